package analytics

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/domain-performance/internal/config"
)

func testClient(baseURL string) *Client {
	return NewClient(config.AnalyticsConfig{
		BaseURL:        baseURL,
		APIKey:         "test-token",
		ModelID:        "907",
		ModelName:      "Max Learning",
		TimeoutSeconds: 5,
	})
}

func TestSubmitQueue(t *testing.T) {
	var gotAuth string
	var gotBody QueueRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/submitQueueRequest", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]string{"queueId": "Q-123"})
	}))
	defer srv.Close()

	id, err := testClient(srv.URL).SubmitQueue(context.Background(), "2026-01-09T00:00:00Z", "2026-02-22T23:59:59Z")
	require.NoError(t, err)
	assert.Equal(t, "Q-123", id)
	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, "2026-01-09T00:00:00Z", gotBody.Query.StartDate)
	assert.Equal(t, "2026-02-22T23:59:59Z", gotBody.Query.EndDate)
	assert.Equal(t, "Max Learning_09Jan2026_0000-22Feb2026_2359", gotBody.Name)
	assert.Equal(t, "907", gotBody.Query.ModelID)
}

func TestSubmitQueueNestedID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]string{"queryId": "Q-NESTED"},
		})
	}))
	defer srv.Close()

	id, err := testClient(srv.URL).SubmitQueue(context.Background(), "2026-01-01T00:00:00Z", "2026-01-07T23:59:59Z")
	require.NoError(t, err)
	assert.Equal(t, "Q-NESTED", id)
}

func TestSubmitQueueAdoptsRepeatedRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]any{
			"response": map[string]string{"repeatedQueryId": "Q-EXISTING"},
		})
	}))
	defer srv.Close()

	id, err := testClient(srv.URL).SubmitQueue(context.Background(), "2026-01-01T00:00:00Z", "2026-01-07T23:59:59Z")
	require.NoError(t, err)
	assert.Equal(t, "Q-EXISTING", id)
}

func TestSubmitQueueErrorWithoutRepeatedID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":"no access"}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).SubmitQueue(context.Background(), "2026-01-01T00:00:00Z", "2026-01-07T23:59:59Z")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestStatusEnvelopeVariants(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		status   string
		progress string
	}{
		{"top level", `{"status":"RUNNING","percentage":"24.87","dataSize":"0 bytes"}`, "RUNNING", "24.87"},
		{"data object", `{"data":{"status":"SUCCESS","progress":"100"}}`, "SUCCESS", "100"},
		{"data list", `{"data":[{"status":"Succeeded","percent":"100"}]}`, "Succeeded", "100"},
		{"bare list", `[{"status":"successful","percentage":"99.5"}]`, "successful", "99.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/getAllQueueStatus", r.URL.Path)
				require.Equal(t, "Q-1", r.URL.Query().Get("queueId"))
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			st, err := testClient(srv.URL).Status(context.Background(), "Q-1")
			require.NoError(t, err)
			assert.Equal(t, tt.status, st.Status)
			assert.Equal(t, tt.progress, st.Progress)
		})
	}
}

func TestQueueStatusSucceeded(t *testing.T) {
	assert.True(t, QueueStatus{Status: "SUCCESS"}.Succeeded())
	assert.True(t, QueueStatus{Status: "Succeeded"}.Succeeded())
	assert.True(t, QueueStatus{Status: "successful"}.Succeeded())
	assert.False(t, QueueStatus{Status: "RUNNING"}.Succeeded())
	assert.False(t, QueueStatus{}.Succeeded())
}

func TestDownloadPlain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/queueDownload", r.URL.Path)
		require.Equal(t, "Q-1", r.URL.Query().Get("queryId"))
		w.Write([]byte("Day,Domain\n2026-01-01,a.com\n"))
	}))
	defer srv.Close()

	data, err := testClient(srv.URL).Download(context.Background(), "Q-1")
	require.NoError(t, err)
	assert.Equal(t, "Day,Domain\n2026-01-01,a.com\n", string(data))
}

func TestDownloadGzipped(t *testing.T) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	gw.Write([]byte("Day,Domain\n2026-01-01,a.com\n"))
	gw.Close()

	tests := []struct {
		name      string
		setHeader bool
	}{
		{"content-encoding header", true},
		{"magic bytes only", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.setHeader {
					w.Header().Set("Content-Encoding", "gzip")
				}
				w.Write(buf.Bytes())
			}))
			defer srv.Close()

			data, err := testClient(srv.URL).Download(context.Background(), "Q-1")
			require.NoError(t, err)
			assert.Equal(t, "Day,Domain\n2026-01-01,a.com\n", string(data))
		})
	}
}

func TestLastNDaysRange(t *testing.T) {
	now := time.Date(2026, 2, 23, 10, 30, 0, 0, time.UTC)
	start, end := lastNDaysRange(45, now)
	assert.Equal(t, "2026-01-09T00:00:00Z", start)
	assert.Equal(t, "2026-02-22T23:59:59Z", end)
}

func TestReportName(t *testing.T) {
	name := reportName("Max Learning", "2026-01-09T00:00:00Z", "2026-02-22T23:59:59Z")
	assert.Equal(t, "Max Learning_09Jan2026_0000-22Feb2026_2359", name)
}
