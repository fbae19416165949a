// Package engine computes week-over-week performance comparisons over
// one immutable table snapshot. Every operation here is a pure,
// synchronous transform: no I/O, no error paths — any input, including
// an empty table, yields a well-formed (possibly empty) result.
package engine

import "time"

// WeekRange returns the rolling 7-day window ending offset weeks before
// the anchor date: end = anchor - 7*offset days, start = end - 6 days,
// both inclusive. These are not calendar weeks.
func WeekRange(anchor time.Time, offset int) (start, end time.Time) {
	end = anchor.AddDate(0, 0, -7*offset)
	start = end.AddDate(0, 0, -6)
	return start, end
}

// midnight truncates t to its calendar date in UTC.
func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// daysBetween returns the count of calendar days from start to end
// inclusive; zero when end precedes start.
func daysBetween(start, end time.Time) int {
	if end.Before(start) {
		return 0
	}
	return int(end.Sub(start).Hours()/24) + 1
}
