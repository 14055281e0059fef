package config

import (
	"fmt"
	"time"
)

// Transport mode identifiers accepted by [EngineTransport.Mode].
const (
	TransportHTTP = "http"
	TransportWS   = "ws"
)

// Defaults applied by [GetEngineConfig] when the merged configuration leaves
// a value unset.
const (
	DefaultPendingTimeout = 5 * time.Second
	DefaultConflictWindow = 5 * time.Second
	DefaultResyncInterval = 5 * time.Minute
	DefaultRequestTimeout = 15 * time.Second
)

// EngineSync holds the engine timing policy derived from the shared
// structured config.
type EngineSync struct {
	// PendingTimeout bounds how long an optimistic mutation may remain
	// unconfirmed before rollback.
	PendingTimeout time.Duration
	// ConflictWindow bounds how long a conflict reconciliation waits for the
	// authoritative copy.
	ConflictWindow time.Duration
}

// EngineTransport holds network settings used by the protocol client.
type EngineTransport struct {
	// Mode selects the protocol client implementation ("http" or "ws").
	Mode string
	// HTTPAddress is the REST endpoint used when Mode is "http".
	HTTPAddress string
	// WSAddress is the WebSocket endpoint URL used when Mode is "ws".
	WSAddress string
	// RequestTimeout is the default timeout for outbound requests.
	RequestTimeout time.Duration
	// Token is the opaque bearer token attached to requests.
	Token string
}

// EngineStorage groups snapshot cache settings.
type EngineStorage struct {
	// SnapshotDSN is the SQLite file path of the snapshot cache.
	// Empty disables snapshot persistence.
	SnapshotDSN string
}

// EngineWorkers contains background worker settings.
type EngineWorkers struct {
	// ResyncInterval defines how often the resync worker should run.
	ResyncInterval time.Duration
}

// EngineConfig is the engine-facing configuration view assembled from
// [StructuredConfig] with defaults applied.
type EngineConfig struct {
	// App contains application-level settings.
	App App
	// Sync contains the engine timing policy.
	Sync EngineSync
	// Transport contains protocol client addresses and timeouts.
	Transport EngineTransport
	// Storage contains snapshot cache settings.
	Storage EngineStorage
	// Workers contains background job settings.
	Workers EngineWorkers
}

// GetEngineConfig builds and validates the engine-specific config view from
// the merged structured configuration.
//
// It loads the base config via [GetStructuredConfig], maps only the fields
// relevant to the sync engine, fills in defaults for unset timing values, and
// validates the resulting [EngineConfig].
func GetEngineConfig() (*EngineConfig, error) {
	cfg, err := GetStructuredConfig()
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}

	engineCfg := &EngineConfig{
		App: cfg.App,
		Sync: EngineSync{
			PendingTimeout: cfg.Sync.PendingTimeout,
			ConflictWindow: cfg.Sync.ConflictWindow,
		},
		Transport: EngineTransport{
			Mode:           cfg.Transport.Mode,
			HTTPAddress:    cfg.Transport.HTTPAddress,
			WSAddress:      cfg.Transport.WSAddress,
			RequestTimeout: cfg.Transport.RequestTimeout,
			Token:          cfg.Transport.Token,
		},
		Storage: EngineStorage{
			SnapshotDSN: cfg.Storage.Snapshot.DSN,
		},
		Workers: EngineWorkers{
			ResyncInterval: cfg.Workers.ResyncInterval,
		},
	}

	engineCfg.applyDefaults()

	return engineCfg, engineCfg.validate()
}

func (cfg *EngineConfig) applyDefaults() {
	if cfg.Sync.PendingTimeout == 0 {
		cfg.Sync.PendingTimeout = DefaultPendingTimeout
	}
	if cfg.Sync.ConflictWindow == 0 {
		cfg.Sync.ConflictWindow = DefaultConflictWindow
	}
	if cfg.Workers.ResyncInterval == 0 {
		cfg.Workers.ResyncInterval = DefaultResyncInterval
	}
	if cfg.Transport.RequestTimeout == 0 {
		cfg.Transport.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Transport.Mode == "" {
		cfg.Transport.Mode = TransportHTTP
	}
}
