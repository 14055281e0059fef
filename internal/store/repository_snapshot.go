package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vttkit/sheetsync/internal/logger"
	"github.com/vttkit/sheetsync/models"
)

type snapshotRepository struct {
	*DB
	logger *logger.Logger
}

// NewSnapshotRepository returns a [SnapshotRepository] backed by the given
// SQLite connection.
func NewSnapshotRepository(db *DB, log *logger.Logger) SnapshotRepository {
	return &snapshotRepository{
		DB:     db,
		logger: log,
	}
}

func (r *snapshotRepository) Save(ctx context.Context, entities ...models.Entity) error {
	log := logger.FromContext(ctx)

	for _, entity := range entities {
		payload, err := json.Marshal(entity.Payload)
		if err != nil {
			return fmt.Errorf("encode snapshot payload (entity_id=%s): %w", entity.ID, err)
		}

		_, err = r.DB.ExecContext(ctx, saveSnapshot,
			entity.ID,
			entity.Version,
			string(payload),
			entity.UpdatedAt,
		)
		if err != nil {
			log.Err(err).
				Str("func", "snapshotRepository.Save").
				Str("entity_id", entity.ID).
				Msg("failed to execute upsert for snapshot")
			return fmt.Errorf("%w (entity_id=%s): %v", ErrExecutingStatement, entity.ID, err)
		}
	}

	return nil
}

func (r *snapshotRepository) LoadAll(ctx context.Context) ([]models.Entity, error) {
	log := logger.FromContext(ctx)

	rows, err := r.DB.QueryContext(ctx, getAllSnapshots)
	if err != nil {
		log.Err(err).
			Str("func", "snapshotRepository.LoadAll").
			Msg("failed to query snapshots")
		return nil, fmt.Errorf("%w: %v", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var entities []models.Entity
	for rows.Next() {
		var entity models.Entity
		var payload string

		if err = rows.Scan(&entity.ID, &entity.Version, &payload, &entity.UpdatedAt); err != nil {
			log.Err(err).
				Str("func", "snapshotRepository.LoadAll").
				Msg("failed to scan snapshot row")
			return nil, fmt.Errorf("%w: %v", ErrScanningRows, err)
		}

		if err = json.Unmarshal([]byte(payload), &entity.Payload); err != nil {
			return nil, fmt.Errorf("decode snapshot payload (entity_id=%s): %w", entity.ID, err)
		}

		// snapshots hold only confirmed server state
		entity.Status = models.StatusSynced
		entities = append(entities, entity)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScanningRows, err)
	}

	return entities, nil
}

func (r *snapshotRepository) Delete(ctx context.Context, id string) error {
	log := logger.FromContext(ctx)

	if _, err := r.DB.ExecContext(ctx, deleteSnapshot, id); err != nil {
		log.Err(err).
			Str("func", "snapshotRepository.Delete").
			Str("entity_id", id).
			Msg("failed to delete snapshot")
		return fmt.Errorf("%w (entity_id=%s): %v", ErrExecutingStatement, id, err)
	}

	return nil
}
