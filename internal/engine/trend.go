package engine

import (
	"time"

	"github.com/ignite/domain-performance/internal/records"
)

const labelLimit = 40

func truncateLabel(s string) string {
	if len(s) > labelLimit {
		return s[:labelLimit]
	}
	return s
}

// TrendSeries returns one entity's daily metric values over [start, end],
// one element per calendar day, missing days filled with zero.
func TrendSeries(rows []records.Record, f Filter, entity string, metric Metric, dim Dimension, start, end time.Time) []float64 {
	days := daysBetween(start, end)
	series := make([]float64, days)
	if days == 0 {
		return series
	}
	for _, r := range rows {
		if r.Day.Before(start) || r.Day.After(end) {
			continue
		}
		if !f.match(r) || entityKey(r, dim) != entity {
			continue
		}
		i := int(r.Day.Sub(start).Hours() / 24)
		series[i] += recordValue(r, metric)
	}
	return series
}

// ContributionPoint is one day of the stacked contribution chart: the
// "date" key carries the formatted day, every other key is an entity
// label with its integer metric value. Labels are truncated to keep the
// chart legend bounded.
type ContributionPoint map[string]any

// ContributionMatrix builds one ContributionPoint per day in
// [start, end] for the given entities, zero-filling days and entities
// with no activity. A single pass over the rows feeds the whole matrix.
func ContributionMatrix(rows []records.Record, f Filter, entities []string, metric Metric, dim Dimension, start, end time.Time) []ContributionPoint {
	days := daysBetween(start, end)
	sums := make([]map[string]float64, days)
	for i := range sums {
		sums[i] = make(map[string]float64, len(entities))
	}
	wanted := make(map[string]bool, len(entities))
	for _, e := range entities {
		wanted[e] = true
	}

	for _, r := range rows {
		if r.Day.Before(start) || r.Day.After(end) {
			continue
		}
		if !f.match(r) {
			continue
		}
		key := entityKey(r, dim)
		if !wanted[key] {
			continue
		}
		i := int(r.Day.Sub(start).Hours() / 24)
		sums[i][key] += recordValue(r, metric)
	}

	out := make([]ContributionPoint, 0, days)
	for i := 0; i < days; i++ {
		point := ContributionPoint{
			"date": start.AddDate(0, 0, i).Format("Jan 02"),
		}
		for _, e := range entities {
			point[truncateLabel(e)] = int64(sums[i][e])
		}
		out = append(out, point)
	}
	return out
}

// PieSlice is one wedge of a week's share-of-total pie.
type PieSlice struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

// PieBreakdown keeps the top N ranked rows as named slices and folds
// everything below the cutoff into an "Others" slice, omitted when the
// remainder is not positive.
func PieBreakdown(ranked []RankedRow, metric Metric, topN int) []PieSlice {
	if topN < 0 {
		topN = 0
	}
	out := make([]PieSlice, 0, topN+1)
	n := topN
	if n > len(ranked) {
		n = len(ranked)
	}
	for i := 0; i < n; i++ {
		out = append(out, PieSlice{
			Name:  truncateLabel(ranked[i].Entity),
			Value: int64(ranked[i].Value(metric)),
		})
	}
	if len(ranked) > topN {
		var others float64
		for _, r := range ranked[topN:] {
			others += r.Value(metric)
		}
		if others > 0 {
			out = append(out, PieSlice{Name: "Others", Value: int64(others)})
		}
	}
	return out
}

func recordValue(r records.Record, m Metric) float64 {
	switch m {
	case MetricClicks:
		return float64(r.Clicks)
	case MetricImpressions:
		return float64(r.Impressions)
	default:
		return r.Conversions
	}
}
