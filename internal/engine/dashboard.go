package engine

import (
	"sort"
	"time"

	"github.com/ignite/domain-performance/internal/records"
)

// Request carries the dashboard query. All fields are optional; the
// zero request means "everything, most recent data, top 5 by
// conversions". TopN is a pointer so an explicit zero survives
// decoding.
type Request struct {
	Date         string `json:"date"`
	TopN         *int   `json:"topN"`
	Advertiser   string `json:"advertiser"`
	Campaign     string `json:"campaign"`
	Metric       string `json:"metric"`
	AnalysisType string `json:"analysisType"`
}

// KPIs are the headline totals for the two compared weeks.
type KPIs struct {
	Week1Total int64 `json:"week1Total"`
	Week2Total int64 `json:"week2Total"`
}

// WeekRangeJSON is a week's inclusive date span on the wire.
type WeekRangeJSON struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// WeekRanges names the two compared weeks for the client's header.
type WeekRanges struct {
	Week1 WeekRangeJSON `json:"week1"`
	Week2 WeekRangeJSON `json:"week2"`
}

// DashboardData is the full /api/dashboard-data payload.
type DashboardData struct {
	KPIs             KPIs                `json:"kpis"`
	DomainData       []EntityComparison  `json:"domainData"`
	ContributionData []ContributionPoint `json:"contributionData"`
	PieDataWeek1     []PieSlice          `json:"pieDataWeek1"`
	PieDataWeek2     []PieSlice          `json:"pieDataWeek2"`
	WeekRanges       WeekRanges          `json:"weekRanges"`
}

const dateLayout = "2006-01-02"

// resolveAnchor picks the comparison anchor day: the request date when
// it parses, otherwise the newest day in the table, otherwise today.
func resolveAnchor(req Request, table *records.Table) time.Time {
	if req.Date != "" {
		if d, err := time.Parse(dateLayout, req.Date); err == nil {
			return d.UTC()
		}
		if d, err := time.Parse(time.RFC3339, req.Date); err == nil {
			return midnight(d.UTC())
		}
	}
	if _, max, ok := table.Bounds(); ok {
		return max
	}
	return midnight(time.Now().UTC())
}

// BuildDashboard computes the complete week-over-week comparison for
// one request against one table snapshot. It always returns a
// well-formed payload; an empty table yields zero totals and empty
// slices rather than an error.
func BuildDashboard(table *records.Table, req Request, defaultTopN int) DashboardData {
	topN := defaultTopN
	if req.TopN != nil {
		topN = *req.TopN
	}
	if topN < 0 {
		topN = 0
	}
	metric := ParseMetric(req.Metric)
	dim := ParseDimension(req.AnalysisType)
	f := Filter{Advertiser: req.Advertiser, Campaign: req.Campaign}

	anchor := resolveAnchor(req, table)
	week1Start, week1End := WeekRange(anchor, 1)
	week2Start, week2End := WeekRange(anchor, 0)
	week3Start, _ := WeekRange(anchor, 3)

	// Everything below operates on the four-week slice around the
	// anchor, which keeps the per-request work proportional to the
	// comparison span rather than the whole table.
	rows := table.Slice(week3Start, week2End)

	week1Raw := RawTotals(rows, f, week1Start, week1End)
	week2Raw := RawTotals(rows, f, week2Start, week2End)
	week1Ranked := Aggregate(rows, f, metric, dim, week1Start, week1End)
	week2Ranked := Aggregate(rows, f, metric, dim, week2Start, week2End)

	comparisons := Classify(week1Ranked, week2Ranked, metric, topN)
	union := make([]string, 0, len(comparisons))
	for i := range comparisons {
		union = append(union, comparisons[i].Entity)
		comparisons[i].Trend = TrendSeries(rows, f, comparisons[i].Entity, metric, dim, week1Start, week2End)
	}
	sort.Strings(union)

	return DashboardData{
		KPIs: KPIs{
			Week1Total: int64(week1Raw.Value(metric)),
			Week2Total: int64(week2Raw.Value(metric)),
		},
		DomainData:       comparisons,
		ContributionData: ContributionMatrix(rows, f, union, metric, dim, week1Start, week2End),
		PieDataWeek1:     PieBreakdown(week1Ranked, metric, topN),
		PieDataWeek2:     PieBreakdown(week2Ranked, metric, topN),
		WeekRanges: WeekRanges{
			Week1: WeekRangeJSON{Start: week1Start.Format(dateLayout), End: week1End.Format(dateLayout)},
			Week2: WeekRangeJSON{Start: week2Start.Format(dateLayout), End: week2End.Format(dateLayout)},
		},
	}
}
