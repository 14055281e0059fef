// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The sheetsync Authors

package engine

import (
	"context"
	"fmt"
)

// Refresh requests the authoritative entity listing from the server. The
// result arrives asynchronously and is reconciled by the result loop:
// server copies win for entities without in-flight or unsynced local edits,
// and confirmed entities absent from the listing are removed. A synchronous
// error means the request could not be sent at all.
func (e *Engine) Refresh(ctx context.Context) error {
	if !e.transport.Connected() {
		return nil
	}
	if _, err := e.transport.List(ctx); err != nil {
		return fmt.Errorf("request entity listing: %w", err)
	}
	return nil
}

// Preload seeds the entity store from the local snapshot cache so the
// presentation layer can render last-known-synced sheets before the
// transport connects. It is a no-op without a configured cache and never
// overwrites entities already in the store.
func (e *Engine) Preload(ctx context.Context) error {
	if e.snapshots == nil {
		return nil
	}

	cached, err := e.snapshots.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load snapshots: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var seeded int
	for _, entity := range cached {
		if _, ok := e.entities.Get(entity.ID); ok {
			continue
		}
		e.entities.Upsert(entity)
		seeded++
	}

	e.logger.Info().
		Int("cached", len(cached)).
		Int("seeded", seeded).
		Msg("entity store preloaded from snapshot cache")
	return nil
}
