// Package snapshot persists the raw report CSV between fetches so the
// service can serve data immediately after a restart. Backends are a
// local file or an S3 object, selected by config.
package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ignite/domain-performance/internal/config"
)

// Status describes the stored snapshot for /api/data-status.
type Status struct {
	Exists     bool
	Location   string
	SizeBytes  int64
	ModifiedAt time.Time
}

// Store reads and writes the snapshot CSV.
type Store interface {
	// Write replaces the stored snapshot.
	Write(ctx context.Context, data []byte) error
	// Read returns the stored snapshot bytes.
	Read(ctx context.Context) ([]byte, error)
	// Status reports whether a snapshot exists and how fresh it is.
	Status(ctx context.Context) (Status, error)
	// Location names where the snapshot lives, for logs and status.
	Location() string
}

// NewStore builds the configured backend.
func NewStore(ctx context.Context, cfg config.SnapshotConfig) (Store, error) {
	switch cfg.Type {
	case "s3":
		return NewS3Store(ctx, cfg)
	case "", "local":
		return NewLocalStore(cfg.LocalPath), nil
	default:
		return nil, fmt.Errorf("unknown snapshot store type: %s", cfg.Type)
	}
}

// LocalStore keeps the snapshot as a file on disk.
type LocalStore struct {
	path string
}

// NewLocalStore creates a file-backed store at path.
func NewLocalStore(path string) *LocalStore {
	return &LocalStore{path: path}
}

func (s *LocalStore) Location() string { return s.path }

// Write stores via a temp file and rename so readers never observe a
// half-written snapshot.
func (s *LocalStore) Write(ctx context.Context, data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating snapshot dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing snapshot: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing snapshot: %w", err)
	}
	return nil
}

func (s *LocalStore) Read(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	return data, nil
}

func (s *LocalStore) Status(ctx context.Context) (Status, error) {
	info, err := os.Stat(s.path)
	if os.IsNotExist(err) {
		return Status{Exists: false, Location: s.path}, nil
	}
	if err != nil {
		return Status{}, fmt.Errorf("stat snapshot: %w", err)
	}
	return Status{
		Exists:     true,
		Location:   s.path,
		SizeBytes:  info.Size(),
		ModifiedAt: info.ModTime().UTC(),
	}, nil
}
