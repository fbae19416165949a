// Package ingest moves report data from an upstream source into the
// serving table: fetch CSV bytes, persist them as the snapshot, parse
// and atomically swap the in-memory table.
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/domain-performance/internal/metrics"
	"github.com/ignite/domain-performance/internal/pkg/logger"
	"github.com/ignite/domain-performance/internal/records"
	"github.com/ignite/domain-performance/internal/snapshot"
)

// Source produces raw report CSV bytes from upstream.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]byte, error)
}

// JobStatus is the lifecycle state of an ingestion job.
type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// Job records one fetch-and-reload run for status reporting.
type Job struct {
	ID         string     `json:"id"`
	Source     string     `json:"source"`
	Status     JobStatus  `json:"status"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
	Rows       int        `json:"rows,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// Service owns the ingestion flow. One fetch runs at a time per
// process; overlapping triggers are rejected.
type Service struct {
	store *records.Store
	snap  snapshot.Store
	src   Source
	mx    *metrics.Metrics

	mu       sync.Mutex
	fetching bool
	lastJob  *Job
}

// NewService wires an ingestion service. src may be nil when no
// upstream is configured; Reload still works from the snapshot.
func NewService(store *records.Store, snap snapshot.Store, src Source, mx *metrics.Metrics) *Service {
	return &Service{store: store, snap: snap, src: src, mx: mx}
}

// Reload reads the persisted snapshot, parses it and swaps the serving
// table. The table is left untouched on any error.
func (s *Service) Reload(ctx context.Context) (int, error) {
	data, err := s.snap.Read(ctx)
	if err != nil {
		s.mx.ReloadTotal.WithLabelValues("error").Inc()
		return 0, fmt.Errorf("reading snapshot: %w", err)
	}
	table, err := records.ReadTable(bytes.NewReader(data))
	if err != nil {
		s.mx.ReloadTotal.WithLabelValues("error").Inc()
		return 0, fmt.Errorf("parsing snapshot: %w", err)
	}

	s.store.Replace(table, s.snap.Location())
	s.mx.ReloadTotal.WithLabelValues("success").Inc()
	s.mx.SnapshotRows.Set(float64(table.Len()))
	logger.Info("Snapshot reloaded", "rows", table.Len(), "source", s.snap.Location())
	return table.Len(), nil
}

// FetchAndReload pulls fresh data from the source, persists it and
// reloads the table. Returns the completed job record.
func (s *Service) FetchAndReload(ctx context.Context) (Job, error) {
	if s.src == nil {
		return Job{}, fmt.Errorf("no ingestion source configured")
	}

	s.mu.Lock()
	if s.fetching {
		last := s.lastJob
		s.mu.Unlock()
		return *last, fmt.Errorf("ingestion already in progress")
	}
	job := &Job{
		ID:        uuid.New().String(),
		Source:    s.src.Name(),
		Status:    JobRunning,
		StartedAt: time.Now().UTC(),
	}
	s.fetching = true
	s.lastJob = job
	s.mu.Unlock()

	err := s.run(ctx, job)

	s.mu.Lock()
	now := time.Now().UTC()
	job.FinishedAt = &now
	if err != nil {
		job.Status = JobFailed
		job.Error = err.Error()
	} else {
		job.Status = JobSucceeded
	}
	s.fetching = false
	done := *job
	s.mu.Unlock()

	if err != nil {
		logger.Error("Ingestion failed", "job_id", done.ID, "source", done.Source, "error", err.Error())
		return done, err
	}
	logger.Info("Ingestion complete", "job_id", done.ID, "source", done.Source, "rows", done.Rows)
	return done, nil
}

func (s *Service) run(ctx context.Context, job *Job) error {
	start := time.Now()
	data, err := s.src.Fetch(ctx)
	s.mx.FetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.mx.FetchTotal.WithLabelValues(s.src.Name(), "error").Inc()
		return fmt.Errorf("fetching from %s: %w", s.src.Name(), err)
	}
	s.mx.FetchTotal.WithLabelValues(s.src.Name(), "success").Inc()

	if err := s.snap.Write(ctx, data); err != nil {
		return fmt.Errorf("persisting snapshot: %w", err)
	}

	rows, err := s.Reload(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	job.Rows = rows
	s.mu.Unlock()
	return nil
}

// LastJob returns a copy of the most recent job, if any.
func (s *Service) LastJob() (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastJob == nil {
		return Job{}, false
	}
	return *s.lastJob, true
}
