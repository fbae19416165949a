// Package analytics drives the vendor's asynchronous report queue:
// submit a queue request, poll status until it succeeds, then download
// the produced CSV.
package analytics

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ignite/domain-performance/internal/config"
	"github.com/ignite/domain-performance/internal/pkg/httpretry"
)

// Client talks to the analytics queue API.
type Client struct {
	baseURL    string
	token      string
	modelID    string
	modelName  string
	httpClient httpretry.HTTPDoer
}

// NewClient creates an analytics queue client from config.
func NewClient(cfg config.AnalyticsConfig) *Client {
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		token:     cfg.APIKey,
		modelID:   cfg.ModelID,
		modelName: cfg.ModelName,
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: cfg.Timeout(),
		}, 3),
	}
}

func (c *Client) authorization() string {
	if strings.HasPrefix(c.token, "Bearer ") {
		return c.token
	}
	return "Bearer " + c.token
}

// buildRequest assembles the submit payload for a date range. The fixed
// vendor plumbing mirrors what the report builder UI sends.
func (c *Client) buildRequest(startDate, endDate string, now time.Time) QueueRequest {
	isSQL := false
	return QueueRequest{
		Query: QueueQuery{
			Pool:         "Low",
			IsCusGroup:   1,
			CusGroup:     "000000",
			StartDate:    startDate,
			EndDate:      endDate,
			Limit:        50,
			Metrics:      []string{"1038025", "1038024", "7644"},
			Dimensions:   []string{"-1", "3078", "3370", "598"},
			ShowQuery:    1,
			IsDownload:   1,
			ModelID:      c.modelID,
			ModelName:    c.modelName,
			AdminID:      18491,
			QueryID:      fmt.Sprintf("MAX_A18491_M%s_%d", c.modelID, now.UnixMicro()),
			BuID:         "7",
			BuName:       "MAX",
			Granularity:  "All",
			IsNADisabled: "0",
			DataFormat:   1,
			SSOGroups:    []string{"AUTOOPT-DEV", "AUTOOPT-Tech-Devs-SSO", "AUTOOPT-Tech-Devs-SSH"},
			Filters:      map[string]any{},
			NestedFilter: NestedFilter{
				Condition: "and",
				Fields: []FilterField{
					{DimensionID: "7152", Type: "Equal", IsEnabled: true, Values: []string{"Media.net - [1]"}},
					{DimensionID: "16548", Type: "Equal", IsEnabled: true, Values: []string{"MX", ""}, IsSQL: &isSQL},
					{ID: "ebff40", DimensionID: "5700", Type: "Equal", IsEnabled: true, Values: []string{"search", "redirect"}, IsSQL: &isSQL},
				},
			},
			ShowGrandTotal:  true,
			ShowReportTotal: true,
			InfoOnly:        true,
		},
		Name:      reportName(c.modelName, startDate, endDate),
		Timestamp: now.UnixMilli(),
	}
}

// reportName formats the report label the vendor expects, e.g.
// "Max Learning_09Jan2026_0000-22Feb2026_2359".
func reportName(modelName, startDate, endDate string) string {
	return fmt.Sprintf("%s_%s_0000-%s_2359", modelName, shortDate(startDate), shortDate(endDate))
}

func shortDate(iso string) string {
	if len(iso) < 10 {
		return strings.ReplaceAll(iso, "-", "")
	}
	d, err := time.Parse("2006-01-02", iso[:10])
	if err != nil {
		return strings.ReplaceAll(iso[:10], "-", "")
	}
	return d.Format("02Jan2006")
}

// SubmitQueue posts a queue request for [startDate, endDate] (ISO
// timestamps) and returns the queue ID to poll. When the vendor rejects
// the submission because an identical request is already running, it
// names that request's ID in the error body; SubmitQueue adopts it
// instead of failing.
func (c *Client) SubmitQueue(ctx context.Context, startDate, endDate string) (string, error) {
	payload, err := json.Marshal(c.buildRequest(startDate, endDate, time.Now().UTC()))
	if err != nil {
		return "", fmt.Errorf("encoding queue request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/submitQueueRequest", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", c.authorization())
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if id := repeatedQueryID(body); id != "" {
			return id, nil
		}
		return "", fmt.Errorf("submit failed (status %d): %s", resp.StatusCode, truncate(string(body), 500))
	}

	id := queueIDFromResponse(body)
	if id == "" {
		return "", fmt.Errorf("no queueId in response: %s", truncate(string(body), 200))
	}
	return id, nil
}

// Status fetches and normalizes the queue status for one queue ID.
func (c *Client) Status(ctx context.Context, queueID string) (QueueStatus, error) {
	params := url.Values{"queueId": {queueID}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/getAllQueueStatus?"+params.Encode(), nil)
	if err != nil {
		return QueueStatus{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", c.authorization())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return QueueStatus{}, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return QueueStatus{}, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return QueueStatus{}, fmt.Errorf("status check failed (status %d): %s", resp.StatusCode, truncate(string(body), 200))
	}
	return parseStatus(body), nil
}

// Download fetches the finished report and returns the raw CSV bytes,
// transparently gunzipping when the vendor compresses the payload.
func (c *Client) Download(ctx context.Context, queueID string) ([]byte, error) {
	params := url.Values{"queryId": {queueID}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/queueDownload?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", c.authorization())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading download: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed (status %d): %s", resp.StatusCode, truncate(string(body), 200))
	}

	// The Go client only auto-decompresses when it set the Accept-Encoding
	// header itself, so check both the header and the gzip magic bytes.
	if resp.Header.Get("Content-Encoding") == "gzip" || isGzip(body) {
		gr, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("opening gzip stream: %w", err)
		}
		defer gr.Close()
		body, err = io.ReadAll(gr)
		if err != nil {
			return nil, fmt.Errorf("decompressing download: %w", err)
		}
	}
	return body, nil
}

func isGzip(b []byte) bool {
	return len(b) >= 2 && b[0] == 0x1f && b[1] == 0x8b
}

// repeatedQueryID extracts response.repeatedQueryId from an error body,
// returning "" when absent.
func repeatedQueryID(body []byte) string {
	var payload struct {
		Response struct {
			RepeatedQueryID string `json:"repeatedQueryId"`
		} `json:"response"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Response.RepeatedQueryID
}

// queueIDFromResponse finds the queue ID under its observed spellings:
// queueId or queryId, at the top level or inside a data object.
func queueIDFromResponse(body []byte) string {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if id := stringField(payload, "queueId", "queryId"); id != "" {
		return id
	}
	var inner map[string]json.RawMessage
	if raw, ok := payload["data"]; ok && json.Unmarshal(raw, &inner) == nil {
		return stringField(inner, "queueId", "queryId")
	}
	return ""
}

func stringField(m map[string]json.RawMessage, keys ...string) string {
	for _, k := range keys {
		raw, ok := m[k]
		if !ok {
			continue
		}
		var s string
		if json.Unmarshal(raw, &s) == nil && s != "" {
			return s
		}
		// Some deployments return numeric IDs.
		var n json.Number
		if json.Unmarshal(raw, &n) == nil && n.String() != "" {
			return n.String()
		}
	}
	return ""
}

// parseStatus flattens the vendor's status envelope. The same endpoint
// has been seen returning a plain object, an object with a data object,
// an object with a data list, and a bare list.
func parseStatus(body []byte) QueueStatus {
	var asMap map[string]any
	if err := json.Unmarshal(body, &asMap); err == nil {
		inner := firstObject(asMap["data"])
		if inner == nil {
			inner = asMap
		}
		return QueueStatus{
			Status:   anyString(pick(asMap, inner, "status")),
			Progress: anyString(pick(asMap, inner, "percentage", "progress", "percent", "progressPercent", "completionPercentage")),
			DataSize: anyString(pick(asMap, inner, "dataSize")),
			Message:  anyString(pickMessage(asMap, inner)),
		}
	}

	var asList []map[string]any
	if err := json.Unmarshal(body, &asList); err == nil && len(asList) > 0 {
		row := asList[0]
		return QueueStatus{
			Status:   anyString(row["status"]),
			Progress: anyString(pick(row, nil, "percentage", "progress", "percent", "progressPercent")),
			DataSize: anyString(row["dataSize"]),
			Message:  anyString(row["message"]),
		}
	}
	return QueueStatus{}
}

func firstObject(v any) map[string]any {
	switch t := v.(type) {
	case map[string]any:
		return t
	case []any:
		if len(t) > 0 {
			if obj, ok := t[0].(map[string]any); ok {
				return obj
			}
		}
	}
	return nil
}

func pick(outer, inner map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := outer[k]; ok && v != nil {
			return v
		}
	}
	for _, k := range keys {
		if v, ok := inner[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func pickMessage(outer, inner map[string]any) any {
	if v := pick(outer, inner, "message"); v != nil {
		return v
	}
	if resp, ok := outer["response"].(map[string]any); ok {
		return resp["message"]
	}
	return nil
}

func anyString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return fmt.Sprintf("%g", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
