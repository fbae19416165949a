package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/domain-performance/internal/ingest"
	"github.com/ignite/domain-performance/internal/metrics"
	"github.com/ignite/domain-performance/internal/records"
	"github.com/ignite/domain-performance/internal/snapshot"
)

// Anchored at 2026-01-12: week2 spans Jan 6-12, week1 spans Dec 30-Jan 5.
const sampleCSV = "Day,Advertiser,Campaign,Domain,Ad Impressions,Clicks,Weighted Conversion\n" +
	"2026-01-12,Acme,Search,www.alpha.com,1000,50,20\n" +
	"2026-01-12,Acme,Display,beta.com,500,25,10\n" +
	"2026-01-05,Acme,Search,alpha.com,900,45,15\n" +
	"2026-01-05,Zenith,Brand,gamma.com,400,20,30\n"

type stubSource struct {
	data []byte
	err  error
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) Fetch(ctx context.Context) ([]byte, error) {
	return s.data, s.err
}

type fixture struct {
	router http.Handler
	store  *records.Store
	snap   snapshot.Store
}

func newFixture(t *testing.T, src ingest.Source, csv string) *fixture {
	t.Helper()
	store := records.NewStore()
	snap := snapshot.NewLocalStore(filepath.Join(t.TempDir(), "data.csv"))
	mx := metrics.New(prometheus.NewRegistry(), nil)
	svc := ingest.NewService(store, snap, src, mx)

	if csv != "" {
		require.NoError(t, snap.Write(context.Background(), []byte(csv)))
		_, err := svc.Reload(context.Background())
		require.NoError(t, err)
	}

	h := NewHandlers(store, svc, snap, mx, 5)
	return &fixture{router: SetupRoutes(h, nil), store: store, snap: snap}
}

func (f *fixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func (f *fixture) post(t *testing.T, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst))
}

func TestHealth(t *testing.T) {
	f := newFixture(t, nil, "")
	for _, path := range []string{"/", "/api/health"} {
		rec := f.get(t, path)
		require.Equal(t, http.StatusOK, rec.Code, path)

		var body map[string]string
		decodeJSON(t, rec, &body)
		assert.Equal(t, "ok", body["status"])
		assert.Equal(t, "domain-performance-api", body["service"])
	}
}

func TestFilters(t *testing.T) {
	f := newFixture(t, nil, sampleCSV)
	rec := f.get(t, "/api/filters")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Advertisers []string          `json:"advertisers"`
		Metrics     []string          `json:"metrics"`
		DateRange   map[string]string `json:"dateRange"`
	}
	decodeJSON(t, rec, &body)
	assert.Equal(t, []string{"Acme", "Zenith"}, body.Advertisers)
	assert.Equal(t, []string{"Conversions", "Clicks", "Impressions"}, body.Metrics)
	assert.Equal(t, "2026-01-05", body.DateRange["min"])
	assert.Equal(t, "2026-01-12", body.DateRange["max"])
}

func TestFiltersEmptyTable(t *testing.T) {
	f := newFixture(t, nil, "")
	rec := f.get(t, "/api/filters")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Advertisers []string          `json:"advertisers"`
		DateRange   map[string]string `json:"dateRange"`
	}
	decodeJSON(t, rec, &body)
	assert.Empty(t, body.Advertisers)
	today := time.Now().UTC().Format("2006-01-02")
	assert.Equal(t, today, body.DateRange["min"])
	assert.Equal(t, today, body.DateRange["max"])
}

func TestCampaigns(t *testing.T) {
	f := newFixture(t, nil, sampleCSV)

	var body struct {
		Campaigns []string `json:"campaigns"`
	}
	decodeJSON(t, f.get(t, "/api/campaigns?advertiser=Acme"), &body)
	assert.Equal(t, []string{"Display", "Search"}, body.Campaigns)

	decodeJSON(t, f.get(t, "/api/campaigns"), &body)
	assert.Equal(t, []string{"Brand", "Display", "Search"}, body.Campaigns)

	decodeJSON(t, f.get(t, "/api/campaigns?advertiser=All+Advertisers"), &body)
	assert.Equal(t, []string{"Brand", "Display", "Search"}, body.Campaigns)
}

func TestCampaignAdvertiser(t *testing.T) {
	f := newFixture(t, nil, sampleCSV)

	var body map[string]string
	decodeJSON(t, f.get(t, "/api/campaign-advertiser?campaign=Brand"), &body)
	assert.Equal(t, "Zenith", body["advertiser"])

	decodeJSON(t, f.get(t, "/api/campaign-advertiser?campaign=Unknown"), &body)
	assert.Equal(t, "All Advertisers", body["advertiser"])

	decodeJSON(t, f.get(t, "/api/campaign-advertiser"), &body)
	assert.Equal(t, "All Advertisers", body["advertiser"])
}

func TestDashboardData(t *testing.T) {
	f := newFixture(t, nil, sampleCSV)
	rec := f.post(t, "/api/dashboard-data", `{"date":"2026-01-12","metric":"Conversions"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		KPIs struct {
			Week1Total int64 `json:"week1Total"`
			Week2Total int64 `json:"week2Total"`
		} `json:"kpis"`
		DomainData []struct {
			Domain     string    `json:"domain"`
			Tier       string    `json:"tier"`
			Change     *float64  `json:"change"`
			RankChange *int      `json:"rankChange"`
			Trend      []float64 `json:"trend"`
		} `json:"domainData"`
		ContributionData []map[string]any `json:"contributionData"`
		PieDataWeek2     []struct {
			Name  string `json:"name"`
			Value int64  `json:"value"`
		} `json:"pieDataWeek2"`
		WeekRanges struct {
			Week1 struct{ Start, End string } `json:"week1"`
			Week2 struct{ Start, End string } `json:"week2"`
		} `json:"weekRanges"`
	}
	decodeJSON(t, rec, &body)

	assert.Equal(t, int64(45), body.KPIs.Week1Total)
	assert.Equal(t, int64(30), body.KPIs.Week2Total)
	assert.Equal(t, "2025-12-30", body.WeekRanges.Week1.Start)
	assert.Equal(t, "2026-01-06", body.WeekRanges.Week2.Start)
	assert.Equal(t, "2026-01-12", body.WeekRanges.Week2.End)

	require.NotEmpty(t, body.DomainData)
	for _, d := range body.DomainData {
		assert.Len(t, d.Trend, 14)
		if d.Tier == "new" {
			assert.Nil(t, d.Change, "no prior-week value means null change")
		}
	}
	assert.Len(t, body.ContributionData, 14)
	assert.NotEmpty(t, body.PieDataWeek2)
}

func TestDashboardDataEmptyBody(t *testing.T) {
	f := newFixture(t, nil, sampleCSV)
	rec := f.post(t, "/api/dashboard-data", "")
	require.Equal(t, http.StatusOK, rec.Code, "all fields default")
}

func TestDashboardDataNegativeTopN(t *testing.T) {
	f := newFixture(t, nil, sampleCSV)
	rec := f.post(t, "/api/dashboard-data", `{"date":"2026-01-12","topN":-1}`)
	require.Equal(t, http.StatusOK, rec.Code, "negative topN is treated as zero")

	var body struct {
		DomainData   []map[string]any `json:"domainData"`
		PieDataWeek2 []struct {
			Name string `json:"name"`
		} `json:"pieDataWeek2"`
	}
	decodeJSON(t, rec, &body)
	assert.Empty(t, body.DomainData)
	require.Len(t, body.PieDataWeek2, 1)
	assert.Equal(t, "Others", body.PieDataWeek2[0].Name)
}

func TestDashboardDataEmptyTable(t *testing.T) {
	f := newFixture(t, nil, "")
	rec := f.post(t, "/api/dashboard-data", `{}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	decodeJSON(t, rec, &body)
	require.Contains(t, body, "kpis")
	require.Contains(t, body, "domainData")
	require.Contains(t, body, "weekRanges")
}

func TestDashboardDataInvalidJSON(t *testing.T) {
	f := newFixture(t, nil, sampleCSV)
	rec := f.post(t, "/api/dashboard-data", `{"date":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]string
	decodeJSON(t, rec, &body)
	assert.Contains(t, body["error"], "invalid JSON")
}

func TestReload(t *testing.T) {
	f := newFixture(t, nil, sampleCSV)
	rec := f.post(t, "/api/reload", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	decodeJSON(t, rec, &body)
	assert.Equal(t, "reloaded", body["status"])
	assert.Equal(t, float64(4), body["rows"])
}

func TestReloadMissingSnapshot(t *testing.T) {
	f := newFixture(t, nil, "")
	rec := f.get(t, "/api/reload")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	decodeJSON(t, rec, &body)
	assert.NotEmpty(t, body["error"])
}

func TestFetch(t *testing.T) {
	f := newFixture(t, &stubSource{data: []byte(sampleCSV)}, "")
	rec := f.post(t, "/api/fetch", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	decodeJSON(t, rec, &body)
	assert.Equal(t, "fetched", body["status"])
	assert.NotEmpty(t, body["jobId"])
	assert.Equal(t, float64(4), body["rows"])

	assert.Equal(t, 4, f.store.Snapshot().Len())
}

func TestFetchUpstreamFailure(t *testing.T) {
	f := newFixture(t, &stubSource{err: errors.New("queue timeout")}, "")
	rec := f.post(t, "/api/fetch", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	decodeJSON(t, rec, &body)
	assert.Contains(t, body["error"], "queue timeout")
	assert.NotEmpty(t, body["jobId"])
	assert.Equal(t, 0, f.store.Snapshot().Len(), "table untouched on failure")
}

func TestFetchNoSourceConfigured(t *testing.T) {
	f := newFixture(t, nil, "")
	rec := f.post(t, "/api/fetch", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestDataStatus(t *testing.T) {
	f := newFixture(t, &stubSource{data: []byte(sampleCSV)}, sampleCSV)
	f.post(t, "/api/fetch", "")

	rec := f.get(t, "/api/data-status")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Snapshot struct {
			Exists     bool   `json:"exists"`
			Location   string `json:"location"`
			SizeBytes  int64  `json:"sizeBytes"`
			ModifiedAt string `json:"modifiedAt"`
		} `json:"snapshot"`
		Table struct {
			Rows      int               `json:"rows"`
			LoadedAt  string            `json:"loadedAt"`
			DateRange map[string]string `json:"dateRange"`
		} `json:"table"`
		LastJob *struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"lastJob"`
	}
	decodeJSON(t, rec, &body)

	assert.True(t, body.Snapshot.Exists)
	assert.Positive(t, body.Snapshot.SizeBytes)
	assert.Equal(t, 4, body.Table.Rows)
	assert.Equal(t, "2026-01-05", body.Table.DateRange["min"])

	loadedAt, err := time.Parse(time.RFC3339, body.Table.LoadedAt)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), loadedAt, time.Minute)

	require.NotNil(t, body.LastJob)
	assert.Equal(t, "succeeded", body.LastJob.Status)
}

func TestDataStatusEmpty(t *testing.T) {
	f := newFixture(t, nil, "")
	rec := f.get(t, "/api/data-status")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Snapshot struct {
			Exists bool `json:"exists"`
		} `json:"snapshot"`
		Table struct {
			Rows int `json:"rows"`
		} `json:"table"`
	}
	decodeJSON(t, rec, &body)
	assert.False(t, body.Snapshot.Exists)
	assert.Equal(t, 0, body.Table.Rows)
}
