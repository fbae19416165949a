package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/domain-performance/internal/analytics"
	"github.com/ignite/domain-performance/internal/api"
	"github.com/ignite/domain-performance/internal/config"
	"github.com/ignite/domain-performance/internal/ingest"
	"github.com/ignite/domain-performance/internal/mailbox"
	"github.com/ignite/domain-performance/internal/metrics"
	"github.com/ignite/domain-performance/internal/pkg/distlock"
	"github.com/ignite/domain-performance/internal/records"
	"github.com/ignite/domain-performance/internal/snapshot"
)

// checkPortAvailable verifies that the target port is not already in
// use, so a stale process does not silently eat the traffic.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v\n"+
			"  Hint: run 'lsof -i :%d' to find the blocking process", port, addr, err, port)
	}
	ln.Close()
	return nil
}

// newSource picks the configured upstream fetcher; nil when ingestion
// has no credentials so the service can still serve a stored snapshot.
func newSource(ctx context.Context, cfg *config.Config) ingest.Source {
	switch cfg.Ingest.Source {
	case "mailbox":
		if cfg.Gmail.RefreshToken == "" {
			log.Println("[ingest] mailbox source selected but GMAIL_REFRESH_TOKEN is unset; fetch disabled")
			return nil
		}
		return mailbox.NewFetcher(ctx, cfg.Gmail)
	case "", "queue":
		if cfg.Analytics.APIKey == "" {
			log.Println("[ingest] queue source selected but ANALYTICS_API_KEY is unset; fetch disabled")
			return nil
		}
		return analytics.NewFetcher(cfg.Analytics)
	default:
		log.Printf("[ingest] unknown source %q; fetch disabled", cfg.Ingest.Source)
		return nil
	}
}

func main() {
	log.Println("Domain Performance Dashboard API (cmd/server)")

	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	host := cfg.Server.GetHost()
	port := cfg.Server.Port
	if err := checkPortAvailable(host, port); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := records.NewStore()
	mx := metrics.New(nil, func() float64 {
		loadedAt, _ := store.LoadedAt()
		if loadedAt.IsZero() {
			return 0
		}
		return time.Since(loadedAt).Hours()
	})

	snapStore, err := snapshot.NewStore(ctx, cfg.Snapshot)
	if err != nil {
		log.Fatalf("Failed to initialize snapshot store: %v", err)
	}
	log.Printf("Snapshot store: %s", snapStore.Location())

	source := newSource(ctx, cfg)
	svc := ingest.NewService(store, snapStore, source, mx)

	// Serve whatever snapshot survives from the last run; an empty table
	// is fine, every endpoint degrades to well-formed empty payloads.
	if rows, err := svc.Reload(ctx); err != nil {
		log.Printf("No snapshot loaded at startup (%v); serving empty table", err)
	} else {
		log.Printf("Snapshot loaded: %d rows", rows)
	}

	if cfg.Ingest.Enabled && source != nil {
		var redisClient *redis.Client
		if cfg.Redis.Addr != "" {
			redisClient = redis.NewClient(&redis.Options{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			if err := redisClient.Ping(ctx).Err(); err != nil {
				log.Printf("Redis unreachable (%v); falling back to local ingestion lock", err)
				redisClient = nil
			}
		}
		lock := distlock.NewLock(redisClient, "ingest", cfg.Ingest.LockTTL())
		sched := ingest.NewScheduler(svc, lock, cfg.Ingest.Interval())
		go sched.Run(ctx)
		log.Printf("Ingestion scheduler enabled: source=%s interval=%s", source.Name(), cfg.Ingest.Interval())
	}

	server := api.NewServer(cfg.Dashboard, store, svc, snapStore, mx)

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf("%s:%d", host, port)
		log.Printf("Listening on http://%s", addr)
		errCh <- server.ListenAndServe(addr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("Received %s, shutting down", sig)
	case err := <-errCh:
		log.Printf("Server error: %v", err)
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
	log.Println("Server stopped")
}
