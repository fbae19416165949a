package api

import (
	"net/http"
	"time"

	"github.com/ignite/domain-performance/internal/engine"
	"github.com/ignite/domain-performance/internal/ingest"
	"github.com/ignite/domain-performance/internal/metrics"
	"github.com/ignite/domain-performance/internal/pkg/httputil"
	"github.com/ignite/domain-performance/internal/records"
	"github.com/ignite/domain-performance/internal/snapshot"
)

const dateLayout = "2006-01-02"

// Handlers holds the dependencies for all HTTP handlers.
type Handlers struct {
	store       *records.Store
	svc         *ingest.Service
	snap        snapshot.Store
	mx          *metrics.Metrics
	defaultTopN int
}

// NewHandlers creates the handler set.
func NewHandlers(store *records.Store, svc *ingest.Service, snap snapshot.Store, mx *metrics.Metrics, defaultTopN int) *Handlers {
	if defaultTopN <= 0 {
		defaultTopN = 5
	}
	return &Handlers{store: store, svc: svc, snap: snap, mx: mx, defaultTopN: defaultTopN}
}

// Health answers load balancer checks.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]string{
		"status":  "ok",
		"service": "domain-performance-api",
	})
}

// Filters returns the advertiser list, the supported metrics and the
// table's date range for the frontend's filter controls.
func (h *Handlers) Filters(w http.ResponseWriter, r *http.Request) {
	table := h.store.Snapshot()
	// An empty table reports today for both bounds so the frontend's
	// date picker still has something to anchor on.
	today := time.Now().UTC().Format(dateLayout)
	dateRange := map[string]string{"min": today, "max": today}
	if min, max, ok := table.Bounds(); ok {
		dateRange["min"] = min.Format(dateLayout)
		dateRange["max"] = max.Format(dateLayout)
	}
	httputil.OK(w, map[string]any{
		"advertisers": table.Advertisers(),
		"metrics":     []string{"Conversions", "Clicks", "Impressions"},
		"dateRange":   dateRange,
	})
}

// Campaigns returns the campaigns visible under the advertiser filter.
func (h *Handlers) Campaigns(w http.ResponseWriter, r *http.Request) {
	advertiser := r.URL.Query().Get("advertiser")
	httputil.OK(w, map[string]any{
		"campaigns": h.store.Snapshot().Campaigns(advertiser),
	})
}

// CampaignAdvertiser resolves which advertiser a campaign belongs to,
// so selecting a campaign can back-fill the advertiser dropdown.
func (h *Handlers) CampaignAdvertiser(w http.ResponseWriter, r *http.Request) {
	campaign := r.URL.Query().Get("campaign")
	if !records.IsAllCampaigns(campaign) {
		if adv, ok := h.store.Snapshot().AdvertiserFor(campaign); ok {
			httputil.OK(w, map[string]string{"advertiser": adv})
			return
		}
	}
	httputil.OK(w, map[string]string{"advertiser": records.AllAdvertisers})
}

// DashboardData computes the full week-over-week payload. Always 200:
// an empty table or a filter with no matches produces well-formed empty
// sections, never an error.
func (h *Handlers) DashboardData(w http.ResponseWriter, r *http.Request) {
	var req engine.Request
	if !httputil.Decode(w, r, &req) {
		return
	}

	start := time.Now()
	data := engine.BuildDashboard(h.store.Snapshot(), req, h.defaultTopN)
	h.mx.DashboardLatency.Observe(time.Since(start).Seconds())
	h.mx.DashboardRequests.WithLabelValues(string(engine.ParseMetric(req.Metric))).Inc()

	httputil.OK(w, data)
}

// Reload re-reads the persisted snapshot into the serving table.
func (h *Handlers) Reload(w http.ResponseWriter, r *http.Request) {
	rows, err := h.svc.Reload(r.Context())
	if err != nil {
		httputil.ServiceUnavailable(w, err.Error())
		return
	}
	httputil.OK(w, map[string]any{
		"status": "reloaded",
		"rows":   rows,
		"source": h.snap.Location(),
	})
}

// Fetch pulls fresh data from the configured upstream, persists it and
// reloads the table. Runs synchronously; the analytics queue can take
// several minutes, so callers should use a patient client.
func (h *Handlers) Fetch(w http.ResponseWriter, r *http.Request) {
	job, err := h.svc.FetchAndReload(r.Context())
	if err != nil {
		httputil.JSON(w, http.StatusServiceUnavailable, httputil.ErrorResponse{
			Error: err.Error(),
			JobID: job.ID,
		})
		return
	}
	httputil.OK(w, map[string]any{
		"status": "fetched",
		"jobId":  job.ID,
		"rows":   job.Rows,
	})
}

// DataStatus reports snapshot persistence, the serving table and the
// last ingestion job.
func (h *Handlers) DataStatus(w http.ResponseWriter, r *http.Request) {
	snapStatus, err := h.snap.Status(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	table := h.store.Snapshot()
	loadedAt, source := h.store.LoadedAt()
	tableInfo := map[string]any{
		"rows":   table.Len(),
		"source": source,
	}
	if !loadedAt.IsZero() {
		tableInfo["loadedAt"] = loadedAt.UTC().Format(time.RFC3339)
	}
	if min, max, ok := table.Bounds(); ok {
		tableInfo["dateRange"] = map[string]string{
			"min": min.Format(dateLayout),
			"max": max.Format(dateLayout),
		}
	}

	snapInfo := map[string]any{
		"exists":   snapStatus.Exists,
		"location": snapStatus.Location,
	}
	if snapStatus.Exists {
		snapInfo["sizeBytes"] = snapStatus.SizeBytes
		snapInfo["modifiedAt"] = snapStatus.ModifiedAt.Format(time.RFC3339)
	}

	payload := map[string]any{
		"snapshot": snapInfo,
		"table":    tableInfo,
	}
	if job, ok := h.svc.LastJob(); ok {
		payload["lastJob"] = job
	}
	httputil.OK(w, payload)
}
