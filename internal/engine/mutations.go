// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The sheetsync Authors

package engine

import (
	"context"
	"time"

	"github.com/vttkit/sheetsync/models"
)

// Create validates and optimistically inserts a new entity under a freshly
// generated temporary id, then dispatches a save request. The returned id is
// temporary until the server confirms the create and assigns a permanent one.
//
// When no transport connection is available the entity is stored with status
// "local" and no request is sent; a later Retry (or reconnect-driven resync)
// dispatches it. A validation failure is returned synchronously and leaves
// the store untouched. Asynchronous failures are reported via the entity's
// status and the notifier, never as an error from this call.
func (e *Engine) Create(ctx context.Context, payload models.Payload) (string, error) {
	mutation := models.Mutation{
		Kind:    models.MutationCreate,
		Payload: payload,
	}
	if err := e.validator.Validate(ctx, mutation); err != nil {
		return "", err
	}

	tempID := models.NewTempID()
	mutation.TempID = tempID

	entity := models.Entity{
		ID:        tempID,
		Version:   0,
		Payload:   payload.Clone(),
		Status:    models.StatusSyncing,
		UpdatedAt: time.Now(),
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.lastMutation[tempID] = mutation

	if !e.transport.Connected() {
		entity.Status = models.StatusLocal
		e.entities.Upsert(entity)
		e.logger.Info().
			Str("entity_id", tempID).
			Msg("no transport available, entity created locally")
		return tempID, nil
	}

	e.entities.Upsert(entity)
	e.dispatchCreate(ctx, mutation, false)
	return tempID, nil
}

// Update validates and optimistically applies a partial payload to an
// existing entity, then dispatches an update request guarded by
// expectedVersion. Returns store.ErrEntityNotFound if the id is unknown.
func (e *Engine) Update(ctx context.Context, id string, partial models.Payload, expectedVersion int64) error {
	mutation := models.Mutation{
		Kind:            models.MutationUpdate,
		EntityID:        id,
		Payload:         partial,
		ExpectedVersion: expectedVersion,
	}
	if err := e.validator.Validate(ctx, mutation); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	snapshot, ok := e.entities.Get(id)
	if !ok {
		return errEntityNotFound(id)
	}

	if err := e.entities.Patch(id, partial, models.StatusSyncing); err != nil {
		return err
	}
	e.lastMutation[id] = mutation
	e.dispatchUpdate(ctx, mutation, snapshot, false)
	return nil
}

// Delete optimistically removes an entity and dispatches a delete request.
// An entity that still carries a temporary id has never reached the server,
// so it is removed locally without any request. Returns
// store.ErrEntityNotFound if the id is unknown.
func (e *Engine) Delete(ctx context.Context, id string) error {
	mutation := models.Mutation{
		Kind:     models.MutationDelete,
		EntityID: id,
	}
	if err := e.validator.Validate(ctx, mutation); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	snapshot, ok := e.entities.Get(id)
	if !ok {
		return errEntityNotFound(id)
	}

	if models.IsTempID(id) {
		e.supersedePending(id)
		delete(e.lastMutation, id)
		e.entities.Remove(id)
		e.logger.Debug().
			Str("entity_id", id).
			Msg("never-synced entity removed locally")
		return nil
	}

	e.entities.Remove(id)
	e.lastMutation[id] = mutation
	e.dispatchDelete(ctx, mutation, snapshot, false)
	return nil
}

// Retry re-issues the last failed mutation for an entity currently in the
// error or local state. Returns ErrNothingToRetry when nothing is on record
// or the entity is not in a retryable state.
func (e *Engine) Retry(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	mutation, ok := e.lastMutation[id]
	if !ok {
		return ErrNothingToRetry
	}

	entity, exists := e.entities.Get(id)

	switch mutation.Kind {
	case models.MutationCreate:
		if !exists {
			return errEntityNotFound(id)
		}
		if entity.Status != models.StatusError && entity.Status != models.StatusLocal {
			return ErrNothingToRetry
		}
		if !e.transport.Connected() {
			if err := e.entities.SetStatus(id, models.StatusLocal); err != nil {
				return err
			}
			e.logger.Info().
				Str("entity_id", id).
				Msg("no transport available, create kept local")
			return nil
		}
		if err := e.entities.SetStatus(id, models.StatusSyncing); err != nil {
			return err
		}
		e.dispatchCreate(ctx, mutation, true)

	case models.MutationUpdate:
		if !exists {
			return errEntityNotFound(id)
		}
		if entity.Status != models.StatusError {
			return ErrNothingToRetry
		}
		// the rollback restored the last confirmed copy, so that is the
		// version the retried update expects
		mutation.ExpectedVersion = entity.Version
		e.lastMutation[id] = mutation
		if err := e.entities.Patch(id, mutation.Payload, models.StatusSyncing); err != nil {
			return err
		}
		e.dispatchUpdate(ctx, mutation, entity, true)

	case models.MutationDelete:
		if !exists {
			return errEntityNotFound(id)
		}
		if entity.Status != models.StatusError {
			return ErrNothingToRetry
		}
		e.entities.Remove(id)
		e.dispatchDelete(ctx, mutation, entity, true)

	default:
		return ErrNothingToRetry
	}

	return nil
}

// Discard abandons the failed mutation of an entity in the error state. A
// never-synced create is removed from the store entirely; for anything else
// the rolled-back copy is kept and marked synced again.
func (e *Engine) Discard(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	entity, ok := e.entities.Get(id)
	if !ok {
		return errEntityNotFound(id)
	}
	if entity.Status != models.StatusError && entity.Status != models.StatusLocal {
		return ErrNothingToRetry
	}

	e.supersedePending(id)
	delete(e.lastMutation, id)

	if models.IsTempID(id) {
		e.entities.Remove(id)
		return nil
	}
	return e.entities.SetStatus(id, models.StatusSynced)
}

// dispatchCreate sends a save request and registers the pending operation,
// applying the transport-failure rollback policy on a synchronous send
// error. Callers must hold e.mu.
func (e *Engine) dispatchCreate(ctx context.Context, mutation models.Mutation, retried bool) {
	opID, err := e.transport.Save(ctx, models.SaveRequest{
		TempID:  mutation.TempID,
		Payload: mutation.Payload,
	})
	if err != nil {
		e.failDispatch(mutation.TempID, mutation.Kind, nil, err)
		return
	}
	e.registerPending(opID, mutation.TempID, models.MutationCreate, nil, retried)
}

// dispatchUpdate sends an update request carrying the expected version.
// Callers must hold e.mu.
func (e *Engine) dispatchUpdate(ctx context.Context, mutation models.Mutation, snapshot models.Entity, retried bool) {
	opID, err := e.transport.Update(ctx, models.UpdateRequest{
		EntityID:        mutation.EntityID,
		Partial:         mutation.Payload,
		ExpectedVersion: mutation.ExpectedVersion,
	})
	if err != nil {
		e.failDispatch(mutation.EntityID, mutation.Kind, &snapshot, err)
		return
	}
	e.registerPending(opID, mutation.EntityID, models.MutationUpdate, &snapshot, retried)
}

// dispatchDelete sends a delete request. Callers must hold e.mu.
func (e *Engine) dispatchDelete(ctx context.Context, mutation models.Mutation, snapshot models.Entity, retried bool) {
	opID, err := e.transport.Delete(ctx, models.DeleteRequest{EntityID: mutation.EntityID})
	if err != nil {
		e.failDispatch(mutation.EntityID, mutation.Kind, &snapshot, err)
		return
	}
	e.registerPending(opID, mutation.EntityID, models.MutationDelete, &snapshot, retried)
}

// failDispatch applies the rollback policy immediately when the transport
// rejects the send itself, instead of waiting for a deadline that can never
// be met. Callers must hold e.mu.
func (e *Engine) failDispatch(entityID string, kind models.MutationKind, original *models.Entity, cause error) {
	e.logger.Err(cause).
		Str("entity_id", entityID).
		Str("kind", string(kind)).
		Msg("transport refused request, rolling back")

	e.rollback(&pendingOp{
		entityID: entityID,
		kind:     kind,
		original: original,
	}, cause)
}
