package engine

import "sort"

// Tier labels an entity's movement between the two compared top-N sets.
type Tier string

const (
	TierMaintained Tier = "maintained"
	TierNew        Tier = "new"
	TierDropped    Tier = "dropped"
)

// EntityComparison is one row of the week-over-week breakdown. Pointer
// fields are null on the wire when the entity has no rank on that side
// or when the percent change is undefined (zero prior-week value).
type EntityComparison struct {
	Entity     string    `json:"domain"`
	Tier       Tier      `json:"tier"`
	Week1Value int64     `json:"week1Conv"`
	Rank1      *int      `json:"rank1"`
	Week2Value int64     `json:"week2Conv"`
	Rank2      *int      `json:"rank2"`
	Change     *float64  `json:"change"`
	RankChange *int      `json:"rankChange"`
	Trend      []float64 `json:"trend"`
}

// Classify partitions the union of both weeks' top-N entities into
// maintained, new and dropped tiers and computes per-entity deltas.
// Within each tier entities come out in ascending name order, and the
// tiers are emitted maintained, then new, then dropped.
//
// Values and ranks outside the top N still count: a "new" entity that
// ranked below the cutoff last week gets its real prior value and rank,
// so the percent change reflects actual movement rather than 0→x.
func Classify(week1, week2 []RankedRow, metric Metric, topN int) []EntityComparison {
	w1 := indexRows(week1)
	w2 := indexRows(week2)
	top1 := topSet(week1, topN)
	top2 := topSet(week2, topN)

	maintained := make([]string, 0)
	fresh := make([]string, 0)
	dropped := make([]string, 0)
	for e := range top1 {
		if top2[e] {
			maintained = append(maintained, e)
		} else {
			dropped = append(dropped, e)
		}
	}
	for e := range top2 {
		if !top1[e] {
			fresh = append(fresh, e)
		}
	}
	sort.Strings(maintained)
	sort.Strings(fresh)
	sort.Strings(dropped)

	out := make([]EntityComparison, 0, len(maintained)+len(fresh)+len(dropped))
	for _, e := range maintained {
		out = append(out, compare(e, TierMaintained, w1[e], w2[e], metric))
	}
	for _, e := range fresh {
		out = append(out, compare(e, TierNew, w1[e], w2[e], metric))
	}
	for _, e := range dropped {
		out = append(out, compare(e, TierDropped, w1[e], w2[e], metric))
	}
	return out
}

func compare(entity string, tier Tier, r1, r2 *RankedRow, metric Metric) EntityComparison {
	var v1, v2 float64
	var rank1, rank2 *int
	if r1 != nil {
		v1 = r1.Value(metric)
		rank1 = intPtr(r1.Rank)
	}
	if r2 != nil {
		v2 = r2.Value(metric)
		rank2 = intPtr(r2.Rank)
	}

	var change *float64
	if v1 > 0 {
		c := (v2 - v1) / v1 * 100
		change = &c
	}

	var rankChange *int
	if rank1 != nil && rank2 != nil {
		rankChange = intPtr(*rank1 - *rank2)
	}

	return EntityComparison{
		Entity:     entity,
		Tier:       tier,
		Week1Value: int64(v1),
		Rank1:      rank1,
		Week2Value: int64(v2),
		Rank2:      rank2,
		Change:     change,
		RankChange: rankChange,
	}
}

func indexRows(rows []RankedRow) map[string]*RankedRow {
	idx := make(map[string]*RankedRow, len(rows))
	for i := range rows {
		idx[rows[i].Entity] = &rows[i]
	}
	return idx
}

func topSet(rows []RankedRow, n int) map[string]bool {
	if n > len(rows) {
		n = len(rows)
	}
	set := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		set[rows[i].Entity] = true
	}
	return set
}

func intPtr(v int) *int { return &v }
