package records

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/ignite/domain-performance/internal/pkg/logger"
)

// Snapshot column names after normalization. Vendors are not consistent
// about these, so each logical column accepts a small set of variants.
var (
	dayColumns         = []string{"day", "date"}
	advertiserColumns  = []string{"advertiser"}
	campaignColumns    = []string{"campaign"}
	domainColumns      = []string{"domain", "clean domain"}
	keywordColumns     = []string{"keyword", "clean keyword"}
	impressionsColumns = []string{"ad impressions", "impressions"}
	clicksColumns      = []string{"clicks"}
	conversionsColumns = []string{"weighted conversion", "weighted conversions", "conversions"}
)

var dayLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"1/2/2006",
	"01/02/2006",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
}

// ReadTable parses a CSV snapshot into a Table. Header matching is case
// and whitespace insensitive. Rows with unparseable dates are dropped
// (and counted) here, never surfaced at query time. Numeric fields that
// fail to parse are treated as zero, matching the source feed's habit
// of leaving conversions blank.
func ReadTable(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return NewTable(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[normalizeHeader(h)] = i
	}

	dayIdx, ok := findColumn(cols, dayColumns)
	if !ok {
		return nil, fmt.Errorf("snapshot has no day column (header: %v)", header)
	}
	advIdx, _ := findColumn(cols, advertiserColumns)
	campIdx, _ := findColumn(cols, campaignColumns)
	domIdx, hasDomain := findColumn(cols, domainColumns)
	kwIdx, hasKeyword := findColumn(cols, keywordColumns)
	if !hasDomain && !hasKeyword {
		return nil, fmt.Errorf("snapshot has no entity column (header: %v)", header)
	}
	impIdx, _ := findColumn(cols, impressionsColumns)
	clkIdx, _ := findColumn(cols, clicksColumns)
	convIdx, _ := findColumn(cols, conversionsColumns)

	var rows []Record
	dropped := 0
	for {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading snapshot row: %w", err)
		}

		day, ok := parseDay(field(fields, dayIdx))
		if !ok {
			dropped++
			continue
		}

		rec := Record{
			Day:         day,
			Advertiser:  field(fields, advIdx),
			Campaign:    field(fields, campIdx),
			Impressions: parseInt(field(fields, impIdx)),
			Clicks:      parseInt(field(fields, clkIdx)),
			Conversions: parseFloat(field(fields, convIdx)),
		}
		if hasDomain {
			rec.Domain = CleanDomain(field(fields, domIdx))
		}
		if hasKeyword {
			rec.Keyword = field(fields, kwIdx)
		}
		rows = append(rows, rec)
	}

	if dropped > 0 {
		logger.Warn("snapshot rows dropped for unparseable dates", "dropped", dropped, "kept", len(rows))
	}
	return NewTable(rows), nil
}

func normalizeHeader(h string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(h))), " ")
}

func findColumn(cols map[string]int, names []string) (int, bool) {
	for _, n := range names {
		if i, ok := cols[n]; ok {
			return i, true
		}
	}
	return -1, false
}

func field(fields []string, idx int) string {
	if idx < 0 || idx >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[idx])
}

func parseDay(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dayLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

func parseInt(s string) int64 {
	if s == "" {
		return 0
	}
	s = strings.ReplaceAll(s, ",", "")
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	// Integer columns occasionally arrive as "123.0"
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f)
	}
	return 0
}

func parseFloat(s string) float64 {
	if s == "" {
		return 0
	}
	s = strings.ReplaceAll(s, ",", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
