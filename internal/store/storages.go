package store

import (
	"context"
	"fmt"

	"github.com/vttkit/sheetsync/internal/config"
	"github.com/vttkit/sheetsync/internal/logger"
)

// Storages groups all client-side storage layers into a single value that can
// be passed around: the in-memory entity store the presentation layer reads
// from, and the optional SQLite-backed snapshot repository.
type Storages struct {
	// Entities is the in-memory source of truth for client-visible state.
	Entities EntityStore

	// Snapshots is the SQLite-backed cache of last-known-synced entities.
	// Nil when snapshot persistence is disabled by configuration.
	Snapshots SnapshotRepository
}

// NewStorages initialises the client storage layer using the supplied
// configuration and logger. It performs the following steps:
//  1. Builds the in-memory entity store.
//  2. If a snapshot DSN is configured, opens an SQLite connection to that
//     file path (creating the database file if it does not yet exist) and
//     runs pending schema migrations via [DB.Migrate].
//
// Returns an error if the database connection cannot be established or if
// migration fails.
func NewStorages(cfg config.EngineStorage, log *logger.Logger) (*Storages, error) {
	log.Info().Msg("creating new storages...")

	storages := &Storages{
		Entities: NewEntityStore(log),
	}

	if cfg.SnapshotDSN == "" {
		log.Debug().Msg("snapshot persistence disabled")
		return storages, nil
	}

	db, err := NewConnectSQLite(context.Background(), cfg.SnapshotDSN, log)
	if err != nil {
		return nil, fmt.Errorf("sqlite connection error: %w", err)
	}

	if err := db.Migrate(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	storages.Snapshots = NewSnapshotRepository(db, log)
	return storages, nil
}
