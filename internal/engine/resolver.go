// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The sheetsync Authors

package engine

import (
	"context"
	"time"

	"github.com/vttkit/sheetsync/models"
)

// reconcile tracks one outstanding authoritative refetch triggered by a
// version conflict. The wait is bounded: if no load result arrives within
// the conflict window, the attempt is abandoned and the entity is marked as
// recoverable instead of hanging in syncing forever.
type reconcile struct {
	opID  models.OpID
	timer *time.Timer
}

func (e *Engine) handleSaveResult(ctx context.Context, res models.Result) {
	e.mu.Lock()
	defer e.mu.Unlock()

	op := e.confirmPending(res.EntityID, res.OpID)
	if op == nil {
		e.logStale(res)
		return
	}
	if res.Err != nil {
		e.rollback(op, res.Err)
		return
	}
	if res.Save == nil {
		e.logger.Warn().Str("op_id", string(res.OpID)).Msg("save result missing body")
		e.rollback(op, ErrMalformedResult)
		return
	}

	tempID := res.EntityID
	entity, ok := e.entities.Get(tempID)
	if !ok {
		e.logger.Warn().
			Str("entity_id", tempID).
			Msg("confirmed create no longer in store")
		return
	}

	confirmed := models.Entity{
		ID:        res.Save.AssignedID,
		Version:   res.Save.Version,
		Payload:   entity.Payload,
		Status:    models.StatusSynced,
		UpdatedAt: time.Now(),
	}
	e.entities.Remove(tempID)
	e.entities.Upsert(confirmed)
	delete(e.lastMutation, tempID)

	if op.retried {
		e.notifier.EntityRecovered(confirmed.ID)
	}
	e.persistSnapshot(ctx, confirmed)
}

func (e *Engine) handleUpdateResult(ctx context.Context, res models.Result) {
	e.mu.Lock()
	defer e.mu.Unlock()

	op := e.confirmPending(res.EntityID, res.OpID)
	if op == nil {
		e.logStale(res)
		return
	}
	if res.Err != nil {
		e.rollback(op, res.Err)
		return
	}
	if res.Update == nil {
		e.logger.Warn().Str("op_id", string(res.OpID)).Msg("update result missing body")
		e.rollback(op, ErrMalformedResult)
		return
	}

	if res.Update.Conflict != nil {
		e.resolveConflict(ctx, *res.Update.Conflict)
		return
	}

	entity, ok := e.entities.Get(res.EntityID)
	if !ok {
		return
	}
	entity.Version = res.Update.NewVersion
	entity.Status = models.StatusSynced
	entity.UpdatedAt = time.Now()
	e.entities.Upsert(entity)
	delete(e.lastMutation, res.EntityID)

	if op.retried {
		e.notifier.EntityRecovered(res.EntityID)
	}
	e.persistSnapshot(ctx, entity)
}

func (e *Engine) handleDeleteResult(ctx context.Context, res models.Result) {
	e.mu.Lock()
	defer e.mu.Unlock()

	op := e.confirmPending(res.EntityID, res.OpID)
	if op == nil {
		e.logStale(res)
		return
	}
	if res.Err != nil {
		e.rollback(op, res.Err)
		return
	}

	delete(e.lastMutation, res.EntityID)
	e.dropSnapshot(ctx, res.EntityID)
}

// resolveConflict handles an update rejected because the server's version no
// longer matched the client's expectation. The user is warned, the stale
// bookkeeping is already cleared by the caller, and the authoritative copy
// is refetched; when it arrives it wins outright over the rejected local
// edit. Callers must hold e.mu.
func (e *Engine) resolveConflict(ctx context.Context, conflict models.VersionConflict) {
	e.notifier.ConflictDetected(conflict)

	id := conflict.EntityID
	e.cancelReconcile(id)

	opID, err := e.transport.Load(ctx, id)
	if err != nil {
		e.logger.Err(err).
			Str("entity_id", id).
			Msg("failed to refetch authoritative entity after conflict")
		if serr := e.entities.SetStatus(id, models.StatusError); serr != nil {
			e.logger.Err(serr).Str("entity_id", id).Msg("conflicted entity not in store")
		}
		return
	}

	rec := &reconcile{opID: opID}
	rec.timer = time.AfterFunc(e.cfg.ConflictWindow, func() {
		e.abandonReconcile(id, opID)
	})
	e.reconciles[id] = rec

	e.logger.Info().
		Str("entity_id", id).
		Int64("claimed_version", conflict.ClaimedVersion).
		Int64("current_version", conflict.CurrentVersion).
		Msg("refetching authoritative entity after version conflict")
}

// abandonReconcile fires when the conflict window elapses without an
// authoritative copy. The entity is left in error state so the user keeps a
// retry affordance instead of a sheet stuck in syncing.
func (e *Engine) abandonReconcile(entityID string, opID models.OpID) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, ok := e.reconciles[entityID]
	if !ok || rec.opID != opID {
		return
	}
	delete(e.reconciles, entityID)

	e.logger.Warn().
		Str("entity_id", entityID).
		Dur("window", e.cfg.ConflictWindow).
		Msg("reconciliation window elapsed without authoritative copy")

	if err := e.entities.SetStatus(entityID, models.StatusError); err != nil {
		e.logger.Err(err).Str("entity_id", entityID).Msg("abandoned entity not in store")
	}
}

// cancelReconcile drops the outstanding reconcile for entityID, if any, and
// stops its window timer. Once a newer mutation is registered for the id the
// mutation owns the entity; a late authoritative copy then goes through the
// plain adoption path, which yields to in-flight operations. Callers must
// hold e.mu.
func (e *Engine) cancelReconcile(entityID string) {
	rec, ok := e.reconciles[entityID]
	if !ok {
		return
	}
	rec.timer.Stop()
	delete(e.reconciles, entityID)
	e.logger.Debug().
		Str("entity_id", entityID).
		Str("op_id", string(rec.opID)).
		Msg("outstanding reconcile dropped")
}

func (e *Engine) handleLoadResult(ctx context.Context, res models.Result) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := res.EntityID

	if rec, ok := e.reconciles[id]; ok && rec.opID == res.OpID {
		rec.timer.Stop()
		delete(e.reconciles, id)

		if res.Err != nil || res.Load == nil {
			e.logger.Err(res.Err).
				Str("entity_id", id).
				Msg("authoritative refetch failed")
			if serr := e.entities.SetStatus(id, models.StatusError); serr != nil {
				e.logger.Err(serr).Str("entity_id", id).Msg("conflicted entity not in store")
			}
			return
		}

		authoritative := res.Load.Entity.Clone()
		authoritative.Status = models.StatusSynced
		e.entities.Upsert(authoritative)
		delete(e.lastMutation, id)
		e.persistSnapshot(ctx, authoritative)
		return
	}

	// plain refresh load, not tied to a conflict
	if res.Err != nil || res.Load == nil {
		e.logger.Err(res.Err).Str("entity_id", id).Msg("load request failed")
		return
	}
	e.adoptAuthoritative(ctx, res.Load.Entity)
}

func (e *Engine) handleListResult(ctx context.Context, res models.Result) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if res.Err != nil || res.List == nil {
		e.logger.Err(res.Err).Msg("list request failed")
		return
	}

	seen := make(map[string]struct{}, len(res.List.Entities))
	for _, entity := range res.List.Entities {
		seen[entity.ID] = struct{}{}
		e.adoptAuthoritative(ctx, entity)
	}

	// entities confirmed earlier but absent from the authoritative listing
	// were deleted elsewhere
	for _, local := range e.entities.List() {
		if _, ok := seen[local.ID]; ok {
			continue
		}
		if local.Status != models.StatusSynced || models.IsTempID(local.ID) {
			continue
		}
		if _, inFlight := e.pending[local.ID]; inFlight {
			continue
		}
		e.entities.Remove(local.ID)
		e.dropSnapshot(ctx, local.ID)
	}
}

// adoptAuthoritative upserts a server copy unless doing so would clobber an
// in-flight optimistic mutation or an unsynced local edit awaiting retry.
// Callers must hold e.mu.
func (e *Engine) adoptAuthoritative(ctx context.Context, entity models.Entity) {
	if _, inFlight := e.pending[entity.ID]; inFlight {
		return
	}
	if _, reconciling := e.reconciles[entity.ID]; reconciling {
		return
	}
	if local, ok := e.entities.Get(entity.ID); ok {
		if local.Status == models.StatusError || local.Status == models.StatusLocal {
			return
		}
	}

	adopted := entity.Clone()
	adopted.Status = models.StatusSynced
	e.entities.Upsert(adopted)
	e.persistSnapshot(ctx, adopted)
}

func (e *Engine) logStale(res models.Result) {
	e.logger.Debug().
		Str("entity_id", res.EntityID).
		Str("op_id", string(res.OpID)).
		Str("kind", string(res.Kind)).
		Msg("ignoring stale or superseded result")
}
