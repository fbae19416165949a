package engine

import (
	"sort"
	"strings"
	"time"

	"github.com/ignite/domain-performance/internal/records"
)

// Metric selects which measure drives ranking and display. The wire
// names match what /api/filters advertises.
type Metric string

const (
	MetricConversions Metric = "Conversions"
	MetricClicks      Metric = "Clicks"
	MetricImpressions Metric = "Impressions"
)

// ParseMetric resolves a wire metric name case-insensitively,
// defaulting to Conversions.
func ParseMetric(s string) Metric {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "clicks":
		return MetricClicks
	case "impressions":
		return MetricImpressions
	default:
		return MetricConversions
	}
}

// Dimension selects the grouping key for entity analysis.
type Dimension string

const (
	DimensionDomain  Dimension = "Domain"
	DimensionKeyword Dimension = "Keyword"
)

// ParseDimension resolves a wire analysis type, defaulting to Domain.
func ParseDimension(s string) Dimension {
	if strings.EqualFold(strings.TrimSpace(s), "keyword") {
		return DimensionKeyword
	}
	return DimensionDomain
}

func entityKey(r records.Record, dim Dimension) string {
	if dim == DimensionKeyword {
		return r.Keyword
	}
	return r.Domain
}

// Filter restricts rows to one advertiser and/or campaign. The "all"
// sentinels (and empty strings) bypass the corresponding check.
type Filter struct {
	Advertiser string
	Campaign   string
}

func (f Filter) match(r records.Record) bool {
	if !records.IsAllAdvertisers(f.Advertiser) && r.Advertiser != f.Advertiser {
		return false
	}
	if !records.IsAllCampaigns(f.Campaign) && r.Campaign != f.Campaign {
		return false
	}
	return true
}

// Totals is the raw per-window sum used for KPI headline numbers.
// Computed without grouping so it stays consistent with the grouped
// breakdown's filter semantics.
type Totals struct {
	Impressions int64
	Clicks      int64
	Conversions float64
}

// Value returns the total for the selected metric as a float.
func (t Totals) Value(m Metric) float64 {
	switch m {
	case MetricClicks:
		return float64(t.Clicks)
	case MetricImpressions:
		return float64(t.Impressions)
	default:
		return t.Conversions
	}
}

// RankedRow is one entity's summed metrics within a window, with its
// 1-based dense rank under the metric's sort order.
type RankedRow struct {
	Entity      string
	Conversions float64
	Clicks      int64
	Impressions int64
	Rank        int
}

// Value returns the row's value for the selected metric as a float.
func (r RankedRow) Value(m Metric) float64 {
	switch m {
	case MetricClicks:
		return float64(r.Clicks)
	case MetricImpressions:
		return float64(r.Impressions)
	default:
		return r.Conversions
	}
}

// RawTotals sums impressions, clicks and conversions over the rows that
// fall within [start, end] and pass the filter.
func RawTotals(rows []records.Record, f Filter, start, end time.Time) Totals {
	var t Totals
	for _, r := range rows {
		if r.Day.Before(start) || r.Day.After(end) {
			continue
		}
		if !f.match(r) {
			continue
		}
		t.Impressions += r.Impressions
		t.Clicks += r.Clicks
		t.Conversions += r.Conversions
	}
	return t
}

// Aggregate groups the in-window, filter-passing rows by the dimension
// key, sums all three metrics per group, and ranks the groups.
//
// The sort is descending on a 3-key tuple led by the selected metric:
// Conversions → (conversions, clicks, impressions); Clicks →
// (clicks, conversions, impressions); Impressions → (impressions,
// conversions, clicks). When all three keys are exactly equal the order
// is stabilized by ascending entity key so ranks are reproducible.
// Ranks are dense 1..K, never shared.
func Aggregate(rows []records.Record, f Filter, metric Metric, dim Dimension, start, end time.Time) []RankedRow {
	groups := make(map[string]*RankedRow)
	order := make([]string, 0)
	for _, r := range rows {
		if r.Day.Before(start) || r.Day.After(end) {
			continue
		}
		if !f.match(r) {
			continue
		}
		key := entityKey(r, dim)
		g, ok := groups[key]
		if !ok {
			g = &RankedRow{Entity: key}
			groups[key] = g
			order = append(order, key)
		}
		g.Conversions += r.Conversions
		g.Clicks += r.Clicks
		g.Impressions += r.Impressions
	}

	out := make([]RankedRow, 0, len(order))
	for _, key := range order {
		out = append(out, *groups[key])
	}

	keys := sortKeys(metric)
	sort.SliceStable(out, func(i, j int) bool {
		for _, k := range keys {
			a, b := k(out[i]), k(out[j])
			if a != b {
				return a > b
			}
		}
		return out[i].Entity < out[j].Entity
	})

	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

func sortKeys(metric Metric) [3]func(RankedRow) float64 {
	conv := func(r RankedRow) float64 { return r.Conversions }
	clk := func(r RankedRow) float64 { return float64(r.Clicks) }
	imp := func(r RankedRow) float64 { return float64(r.Impressions) }

	switch metric {
	case MetricClicks:
		return [3]func(RankedRow) float64{clk, conv, imp}
	case MetricImpressions:
		return [3]func(RankedRow) float64{imp, conv, clk}
	default:
		return [3]func(RankedRow) float64{conv, clk, imp}
	}
}
