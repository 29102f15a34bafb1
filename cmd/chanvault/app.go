package main

import (
	"fmt"
	"log/slog"
	"strings"

	"chanvault/internal/archiver"
	"chanvault/internal/blobstore"
	"chanvault/internal/config"
	"chanvault/internal/ledger"
	"chanvault/internal/metrics"
	"chanvault/internal/remote"
	"chanvault/internal/threadstore"
)

// app holds the components one command invocation works with.
type app struct {
	cfg     *config.Config
	threads *threadstore.FileStore
	blobs   *blobstore.LocalCAS
	ledger  *ledger.Ledger
	client  *remote.Client
	metrics *metrics.Collector
	logger  *slog.Logger
}

func openStores(dataDir, format string) (*threadstore.FileStore, *blobstore.LocalCAS, error) {
	if strings.TrimSpace(dataDir) == "" {
		return nil, nil, fmt.Errorf("data dir is required")
	}
	layout := config.Config{DataDir: dataDir}
	threads, err := threadstore.Open(layout.BoardsDir(), format)
	if err != nil {
		return nil, nil, err
	}
	blobs, err := blobstore.NewLocalCAS(layout.AttachmentsDir())
	if err != nil {
		return nil, nil, err
	}
	return threads, blobs, nil
}

// withApp opens the archive, the ledger and the remote client, runs fn,
// and releases everything afterwards.
func withApp(cfg *config.Config, fn func(*app) error) error {
	if cfg == nil {
		return fmt.Errorf("config not initialized")
	}
	threads, blobs, err := openStores(cfg.DataDir, cfg.SnapshotFormat)
	if err != nil {
		return err
	}
	timeout, err := cfg.RemoteTimeout()
	if err != nil {
		return fmt.Errorf("remote.timeout: %w", err)
	}

	a := &app{
		cfg:     cfg,
		threads: threads,
		blobs:   blobs,
		metrics: metrics.New(),
		logger:  slog.Default(),
		client: remote.NewClient(remote.Options{
			BaseURL:   cfg.Remote.BaseURL,
			Timeout:   timeout,
			UserAgent: cfg.Remote.UserAgent,
		}),
	}
	defer a.client.Close()

	if cfg.Sync.Ledger {
		a.logger.Debug("opening ledger", "path", cfg.LedgerPath())
		l, err := ledger.Open(cfg.LedgerPath())
		if err != nil {
			return fmt.Errorf("open ledger: %w", err)
		}
		defer l.Close()
		a.ledger = l
	}

	return fn(a)
}

func (a *app) engine() *archiver.Engine {
	engine := archiver.NewEngine(a.client, a.threads, a.blobs, a.logger)
	if a.ledger != nil {
		engine.SetBlobRecorder(a.ledger)
	}
	return engine
}

func (a *app) scheduler() *archiver.Scheduler {
	opts := archiver.SchedulerOptions{
		Concurrency: a.cfg.Sync.Concurrency,
		Metrics:     a.metrics,
		Logger:      a.logger,
	}
	if a.ledger != nil {
		opts.Recorder = a.ledger
	}
	return archiver.NewScheduler(a.engine(), a.client, opts)
}
