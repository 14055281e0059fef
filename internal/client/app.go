package client

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/vttkit/sheetsync/internal/config"
	"github.com/vttkit/sheetsync/internal/engine"
	"github.com/vttkit/sheetsync/internal/logger"
	"github.com/vttkit/sheetsync/internal/notify"
	"github.com/vttkit/sheetsync/internal/protocol"
	"github.com/vttkit/sheetsync/internal/store"
	"github.com/vttkit/sheetsync/internal/validators"
	"github.com/vttkit/sheetsync/internal/workers"
)

type App struct {
	cfg       *config.EngineConfig
	logger    *logger.Logger
	transport protocol.Client
	engine    *engine.Engine
	resync    workers.ResyncJob
}

// NewApp assembles the sync client from its configuration: the protocol
// transport selected by mode, the local stores, the synchronization engine,
// and the periodic resync job.
func NewApp(cfg *config.EngineConfig, log *logger.Logger) (*App, error) {
	if log == nil {
		log = logger.Nop()
	}

	transport, err := newTransport(cfg.Transport, log.GetChildLogger())
	if err != nil {
		return nil, fmt.Errorf("create protocol client: %w", err)
	}

	storages, err := store.NewStorages(cfg.Storage, log)
	if err != nil {
		return nil, fmt.Errorf("create local storages: %w", err)
	}

	syncEngine := engine.NewEngine(
		storages.Entities,
		transport,
		validators.NewMutationValidator(),
		notify.NewLogNotifier(log),
		storages.Snapshots,
		cfg.Sync,
		log,
	)

	return &App{
		cfg:       cfg,
		logger:    log,
		transport: transport,
		engine:    syncEngine,
		resync:    workers.NewResyncJob(syncEngine, log),
	}, nil
}

// Engine exposes the synchronization engine to the presentation layer.
func (a *App) Engine() *engine.Engine {
	return a.engine
}

// Run starts the result loop and the background resync, performs the initial
// refresh, and blocks until the process receives an interrupt or the
// transport shuts down.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := a.engine.Preload(ctx); err != nil {
		a.logger.Err(err).Msg("snapshot preload failed, starting with an empty cache")
	}

	done := make(chan error, 1)
	go func() { done <- a.engine.Run(ctx) }()

	if err := a.engine.Refresh(ctx); err != nil {
		a.logger.Err(err).Msg("initial refresh failed")
	}

	workers.NewWorkers(
		workers.NewResyncWorker(ctx, a.resync, a.cfg.Workers.ResyncInterval),
	).Run()
	defer a.resync.Stop()

	select {
	case <-ctx.Done():
	case err := <-done:
		if err != nil {
			return fmt.Errorf("sync engine stopped: %w", err)
		}
		return nil
	}

	if err := a.transport.Close(); err != nil {
		a.logger.Err(err).Msg("error closing transport")
	}
	return nil
}

func newTransport(cfg config.EngineTransport, log *logger.Logger) (protocol.Client, error) {
	switch cfg.Mode {
	case config.TransportWS:
		return protocol.NewWSClient(protocol.WSClientConfig{
			URL:              cfg.WSAddress,
			Token:            cfg.Token,
			HandshakeTimeout: cfg.RequestTimeout,
		}, log)
	case config.TransportHTTP:
		return protocol.NewHTTPClient(protocol.HTTPClientConfig{
			BaseURL: cfg.HTTPAddress,
			Timeout: cfg.RequestTimeout,
			Token:   cfg.Token,
		}, log), nil
	default:
		return nil, fmt.Errorf("unknown transport mode %q", cfg.Mode)
	}
}
