package ingest

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/domain-performance/internal/metrics"
	"github.com/ignite/domain-performance/internal/pkg/distlock"
	"github.com/ignite/domain-performance/internal/records"
	"github.com/ignite/domain-performance/internal/snapshot"
)

const sampleCSV = "Day,Advertiser,Campaign,Domain,Ad Impressions,Clicks,Weighted Conversion\n" +
	"2026-01-05,Acme,Search,www.example.com,1000,50,12.5\n" +
	"2026-01-06,Acme,Search,example.org,800,40,9.1\n"

type fakeSource struct {
	data []byte
	err  error
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Fetch(ctx context.Context) ([]byte, error) {
	return f.data, f.err
}

func newTestService(t *testing.T, src Source) (*Service, *records.Store, snapshot.Store) {
	t.Helper()
	store := records.NewStore()
	snap := snapshot.NewLocalStore(filepath.Join(t.TempDir(), "data.csv"))
	mx := metrics.New(prometheus.NewRegistry(), nil)
	return NewService(store, snap, src, mx), store, snap
}

func TestReloadFromSnapshot(t *testing.T) {
	svc, store, snap := newTestService(t, nil)
	require.NoError(t, snap.Write(context.Background(), []byte(sampleCSV)))

	rows, err := svc.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, rows)
	assert.Equal(t, 2, store.Snapshot().Len())
}

func TestReloadMissingSnapshotLeavesTableUnchanged(t *testing.T) {
	svc, store, _ := newTestService(t, nil)
	store.Replace(records.NewTable([]records.Record{{Domain: "keep.com"}}), "seed")

	_, err := svc.Reload(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, store.Snapshot().Len())
}

func TestFetchAndReload(t *testing.T) {
	svc, store, snap := newTestService(t, &fakeSource{data: []byte(sampleCSV)})

	job, err := svc.FetchAndReload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, JobSucceeded, job.Status)
	assert.Equal(t, "fake", job.Source)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, 2, job.Rows)
	require.NotNil(t, job.FinishedAt)

	assert.Equal(t, 2, store.Snapshot().Len())
	persisted, err := snap.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sampleCSV, string(persisted))

	last, ok := svc.LastJob()
	require.True(t, ok)
	assert.Equal(t, job.ID, last.ID)
}

func TestFetchAndReloadSourceFailure(t *testing.T) {
	svc, store, _ := newTestService(t, &fakeSource{err: errors.New("upstream down")})

	job, err := svc.FetchAndReload(context.Background())
	require.Error(t, err)
	assert.Equal(t, JobFailed, job.Status)
	assert.Contains(t, job.Error, "upstream down")
	assert.Equal(t, 0, store.Snapshot().Len())
}

func TestFetchAndReloadNoSource(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	_, err := svc.FetchAndReload(context.Background())
	require.Error(t, err)

	_, ok := svc.LastJob()
	assert.False(t, ok)
}

func TestSchedulerRunOnce(t *testing.T) {
	svc, store, _ := newTestService(t, &fakeSource{data: []byte(sampleCSV)})
	sched := NewScheduler(svc, distlock.NewLocalLock("test"), time.Hour)

	sched.runOnce(context.Background())
	assert.Equal(t, 2, store.Snapshot().Len())
}

func TestSchedulerStopsOnCancel(t *testing.T) {
	svc, _, _ := newTestService(t, &fakeSource{data: []byte(sampleCSV)})
	sched := NewScheduler(svc, distlock.NewLocalLock("test"), 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
