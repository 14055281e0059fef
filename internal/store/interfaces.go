// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The sheetsync Authors

// Package store holds the client-visible entity state: an in-memory entity
// store that is the single source of truth for the presentation layer, and an
// optional SQLite-backed snapshot repository that persists the last known
// synced copy of every entity so a restarted client can render sheets before
// the transport connects.
package store

import (
	"context"

	"github.com/vttkit/sheetsync/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/store_mock.go -package=mock

// EntityStore is the authoritative local cache of entities keyed by id.
// All mutation, patch, and removal operations are atomic with respect to
// concurrent reads; values passed in and out are deep-copied so callers can
// never alias the store's internal state.
type EntityStore interface {
	// Upsert inserts or replaces an entity. No version check is performed;
	// callers are responsible for supplying a valid entity. Used both for
	// optimistic application and for reconciliation.
	Upsert(entity models.Entity)

	// Patch shallow-merges a partial payload and/or status into an existing
	// entity. Returns ErrEntityNotFound if the id is absent.
	Patch(id string, partial models.Payload, status models.SyncStatus) error

	// SetStatus updates only the sync status of an existing entity.
	// Returns ErrEntityNotFound if the id is absent.
	SetStatus(id string, status models.SyncStatus) error

	// Remove deletes the entity; used on confirmed delete, optimistic
	// delete, and abandoned never-confirmed creates. Removing an absent id
	// is a no-op.
	Remove(id string)

	// Get returns a copy of the entity and whether it exists. Never blocks.
	Get(id string) (models.Entity, bool)

	// List returns copies of all entities in unspecified order. Never blocks.
	List() []models.Entity

	// Subscribe registers a change feed for the presentation layer. The
	// returned cancel func detaches the subscriber and closes its channel.
	// Slow subscribers lose the oldest undelivered events rather than
	// blocking mutators.
	Subscribe() (<-chan Event, func())
}

// SnapshotRepository persists last-known-synced entities locally. Pending or
// failed states are never written; the cache answers "what did the server
// last confirm" and nothing else.
type SnapshotRepository interface {
	// Save upserts snapshot rows for the given entities.
	Save(ctx context.Context, entities ...models.Entity) error

	// LoadAll returns every persisted snapshot.
	LoadAll(ctx context.Context) ([]models.Entity, error)

	// Delete removes the snapshot row for id, if present.
	Delete(ctx context.Context, id string) error
}
