package store

import (
	"database/sql"

	"github.com/vttkit/sheetsync/internal/logger"
	"github.com/vttkit/sheetsync/migrations"
)

type DB struct {
	*sql.DB
	logger *logger.Logger
}

func (db *DB) Migrate() error {
	return migrations.Migrate(db.DB)
}
