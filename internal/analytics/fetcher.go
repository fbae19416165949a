package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/ignite/domain-performance/internal/config"
	"github.com/ignite/domain-performance/internal/pkg/logger"
)

// Fetcher runs the full queue flow and hands back the report bytes.
type Fetcher struct {
	client       *Client
	queueDays    int
	pollInterval time.Duration
	maxWait      time.Duration
}

// NewFetcher creates a Fetcher from config.
func NewFetcher(cfg config.AnalyticsConfig) *Fetcher {
	return &Fetcher{
		client:       NewClient(cfg),
		queueDays:    cfg.QueueDays,
		pollInterval: cfg.PollInterval(),
		maxWait:      cfg.MaxWait(),
	}
}

// Name identifies this fetcher in logs and metrics labels.
func (f *Fetcher) Name() string { return "analytics-queue" }

// Fetch submits a report covering the trailing window, waits for the
// queue to finish and downloads the CSV.
func (f *Fetcher) Fetch(ctx context.Context) ([]byte, error) {
	startDate, endDate := lastNDaysRange(f.queueDays, time.Now().UTC())
	logger.Info("Submitting analytics queue request",
		"start_date", startDate, "end_date", endDate, "days", f.queueDays)

	queueID, err := f.client.SubmitQueue(ctx, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("submitting queue request: %w", err)
	}
	logger.Info("Queue request accepted", "queue_id", queueID)

	if err := f.waitUntilSucceeded(ctx, queueID); err != nil {
		return nil, err
	}

	data, err := f.client.Download(ctx, queueID)
	if err != nil {
		return nil, fmt.Errorf("downloading report: %w", err)
	}
	logger.Info("Report downloaded", "queue_id", queueID, "bytes", len(data))
	return data, nil
}

// waitUntilSucceeded polls the queue status until it reports success,
// the wait budget runs out, or the context is cancelled. Transient
// status errors are logged and retried on the next tick.
func (f *Fetcher) waitUntilSucceeded(ctx context.Context, queueID string) error {
	deadline := time.Now().Add(f.maxWait)
	ticker := time.NewTicker(f.pollInterval)
	defer ticker.Stop()

	attempt := 0
	for {
		attempt++
		status, err := f.client.Status(ctx, queueID)
		if err != nil {
			logger.Warn("Queue status check failed",
				"queue_id", queueID, "attempt", attempt, "error", err.Error())
		} else {
			logger.Info("Queue status",
				"queue_id", queueID, "attempt", attempt, "status", status.Status,
				"progress", status.Progress, "data_size", status.DataSize)
			if status.Succeeded() {
				return nil
			}
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("queue %s did not succeed within %s", queueID, f.maxWait)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// lastNDaysRange returns the ISO timestamps for a window of n days
// ending yesterday UTC: midnight n days ago through 23:59:59 yesterday.
func lastNDaysRange(n int, now time.Time) (startDate, endDate string) {
	const layout = "2006-01-02T15:04:05Z"
	end := now.AddDate(0, 0, -1)
	end = time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, 0, time.UTC)
	start := now.AddDate(0, 0, -n)
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	return start.Format(layout), end.Format(layout)
}
