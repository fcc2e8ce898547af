package cmd

import (
	"fmt"

	"sidecar-sync/core/config"
	"sidecar-sync/core/database"
	"sidecar-sync/core/logger"
	"sidecar-sync/feature/progress"
	"sidecar-sync/feature/sidecar"
	"sidecar-sync/feature/sidecar/fields"
	"sidecar-sync/feature/sidecar/library"
	"sidecar-sync/feature/sidecar/reconcile"
	"sidecar-sync/feature/sidecar/transport"

	"go.uber.org/zap"
)

// syncEnv bundles everything a sync-style command needs after wiring.
type syncEnv struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   *library.Store
	trans   transport.Transport
	remote  *progress.Client
	service *sidecar.Service
}

// buildSyncEnv loads configuration and wires the full sync stack:
// database, store, transport, pipeline and (optionally) the remote
// progress client.
func buildSyncEnv() (*syncEnv, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := library.NewStore(db, l)
	if err := store.Migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	trans, err := transport.New(cfg.Transport)
	if err != nil {
		return nil, fmt.Errorf("failed to create device transport: %w", err)
	}

	var remote *progress.Client
	if cfg.Progress.Enabled {
		remote, err = progress.NewClient(cfg.Progress)
		if err != nil {
			return nil, fmt.Errorf("failed to create progress client: %w", err)
		}
	}

	env := &syncEnv{cfg: cfg, logger: l, store: store, trans: trans, remote: remote}
	env.rebuildService()
	return env, nil
}

// rebuildService recreates the pipeline and service from the current
// config, so command flags can adjust cfg.Sync before running.
func (e *syncEnv) rebuildService() {
	pipeline := reconcile.New(fields.Default(), e.cfg.Sync, e.store, e.logger)
	e.service = sidecar.NewService(e.store, e.trans, pipeline, e.cfg.Sync, e.remote, e.logger)
}
