// Package records holds the daily performance table: the Record model,
// the CSV snapshot loader, and the atomically-swappable Store that
// serves immutable snapshots to concurrent dashboard requests.
package records

import (
	"sort"
	"strings"
	"time"
)

// Sentinel values the frontend sends to mean "no filter". The short
// form and the display form are both accepted.
const (
	AllAdvertisers = "All Advertisers"
	AllCampaigns   = "All Campaigns"
)

// IsAllAdvertisers reports whether the advertiser filter is the
// "no filter" sentinel (empty, "all" or "All Advertisers").
func IsAllAdvertisers(s string) bool {
	return s == "" || strings.EqualFold(s, "all") || strings.EqualFold(s, AllAdvertisers)
}

// IsAllCampaigns reports whether the campaign filter is the
// "no filter" sentinel (empty, "all" or "All Campaigns").
func IsAllCampaigns(s string) bool {
	return s == "" || strings.EqualFold(s, "all") || strings.EqualFold(s, AllCampaigns)
}

// Record is one row of daily performance data. Day carries no time
// component (normalized to midnight UTC at load). Domain is the
// canonical entity key with any leading "www." stripped; Keyword is
// empty when the snapshot has no keyword column.
type Record struct {
	Day         time.Time
	Advertiser  string
	Campaign    string
	Domain      string
	Keyword     string
	Impressions int64
	Clicks      int64
	Conversions float64
}

// CleanDomain strips a leading "www." (case-insensitive) to form the
// canonical entity key.
func CleanDomain(s string) string {
	if len(s) >= 4 && strings.EqualFold(s[:4], "www.") {
		return s[4:]
	}
	return s
}

// Table is an immutable collection of Records loaded from one snapshot.
// It is never mutated after construction; a reload builds a new Table.
type Table struct {
	rows   []Record
	minDay time.Time
	maxDay time.Time
}

// NewTable builds a Table from rows, computing the date bounds once.
func NewTable(rows []Record) *Table {
	t := &Table{rows: rows}
	for i, r := range rows {
		if i == 0 || r.Day.Before(t.minDay) {
			t.minDay = r.Day
		}
		if i == 0 || r.Day.After(t.maxDay) {
			t.maxDay = r.Day
		}
	}
	return t
}

// Rows returns the underlying rows. Callers must treat them as read-only.
func (t *Table) Rows() []Record { return t.rows }

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Bounds returns the earliest and latest day in the table.
// ok is false when the table is empty.
func (t *Table) Bounds() (min, max time.Time, ok bool) {
	if len(t.rows) == 0 {
		return time.Time{}, time.Time{}, false
	}
	return t.minDay, t.maxDay, true
}

// Slice returns the rows whose day falls within [start, end], both inclusive.
func (t *Table) Slice(start, end time.Time) []Record {
	out := make([]Record, 0, len(t.rows))
	for _, r := range t.rows {
		if r.Day.Before(start) || r.Day.After(end) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Advertisers returns the sorted unique advertiser names.
func (t *Table) Advertisers() []string {
	return t.uniqueSorted(func(r Record) string { return r.Advertiser }, "")
}

// Campaigns returns the sorted unique campaign names, restricted to one
// advertiser unless the filter is the "all" sentinel.
func (t *Table) Campaigns(advertiser string) []string {
	if IsAllAdvertisers(advertiser) {
		advertiser = ""
	}
	return t.uniqueSorted(func(r Record) string { return r.Campaign }, advertiser)
}

// AdvertiserFor returns the advertiser of the first row carrying the
// given campaign, in load order.
func (t *Table) AdvertiserFor(campaign string) (string, bool) {
	for _, r := range t.rows {
		if r.Campaign == campaign {
			return r.Advertiser, true
		}
	}
	return "", false
}

func (t *Table) uniqueSorted(key func(Record) string, advertiser string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, r := range t.rows {
		if advertiser != "" && r.Advertiser != advertiser {
			continue
		}
		k := key(r)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
