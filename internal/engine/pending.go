// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The sheetsync Authors

package engine

import (
	"time"

	"github.com/vttkit/sheetsync/models"
)

// pendingOp tracks a single in-flight mutation awaiting server confirmation.
// At most one pendingOp exists per entity id: registering a new one
// supersedes and cancels the previous deadline, and the superseded
// operation's eventual response is ignored because its op id no longer
// matches.
type pendingOp struct {
	opID     models.OpID
	entityID string
	kind     models.MutationKind
	// original is the pre-mutation snapshot restored on rollback. Nil for
	// creates, which keep the optimistic entity in error state instead of
	// deleting it from under the user.
	original *models.Entity
	// retried marks an operation re-issued from the error state so a
	// confirmation can emit a recovery notification.
	retried bool

	timer *time.Timer
	// resolved guards against the race between confirmation and deadline
	// expiry; rollback must happen exactly once. Always read and written
	// under the engine mutex.
	resolved bool
}

// registerPending records an in-flight operation and starts its deadline
// countdown, superseding any operation already tracked for the same id.
// Callers must hold e.mu.
func (e *Engine) registerPending(opID models.OpID, entityID string, kind models.MutationKind, original *models.Entity, retried bool) {
	e.supersedePending(entityID)
	e.cancelReconcile(entityID)

	op := &pendingOp{
		opID:     opID,
		entityID: entityID,
		kind:     kind,
		original: original,
		retried:  retried,
	}
	op.timer = time.AfterFunc(e.cfg.PendingTimeout, func() {
		e.expirePending(entityID, opID)
	})
	e.pending[entityID] = op
}

// confirmPending resolves the operation tracked for entityID if its op id
// matches. It returns the resolved operation, or nil when the response is
// stale (superseded, already confirmed, or never registered) and must be
// ignored. Callers must hold e.mu.
func (e *Engine) confirmPending(entityID string, opID models.OpID) *pendingOp {
	op, ok := e.pending[entityID]
	if !ok || op.resolved || op.opID != opID {
		return nil
	}
	op.resolved = true
	op.timer.Stop()
	delete(e.pending, entityID)
	return op
}

// supersedePending cancels the deadline of any operation tracked for
// entityID without rolling anything back. Callers must hold e.mu.
func (e *Engine) supersedePending(entityID string) {
	op, ok := e.pending[entityID]
	if !ok {
		return
	}
	op.resolved = true
	op.timer.Stop()
	delete(e.pending, entityID)
	e.logger.Debug().
		Str("entity_id", entityID).
		Str("op_id", string(op.opID)).
		Msg("pending operation superseded")
}

// expirePending fires when an operation's deadline elapses without a
// confirmation. It rolls the optimistic change back exactly once.
func (e *Engine) expirePending(entityID string, opID models.OpID) {
	e.mu.Lock()
	defer e.mu.Unlock()

	op, ok := e.pending[entityID]
	if !ok || op.resolved || op.opID != opID {
		// confirmed or superseded between the timer firing and the lock
		return
	}
	op.resolved = true
	delete(e.pending, entityID)

	e.logger.Warn().
		Str("entity_id", entityID).
		Str("op_id", string(opID)).
		Str("kind", string(op.kind)).
		Dur("timeout", e.cfg.PendingTimeout).
		Msg("pending operation expired, rolling back")

	e.rollback(op, ErrPendingTimeout)
}

// rollback reverts the optimistic effect of a failed operation and marks the
// entity as recoverable. Creates keep the optimistic entity visible in error
// state so the user can retry or discard; updates restore the pre-mutation
// snapshot; deletes re-insert it. Callers must hold e.mu.
func (e *Engine) rollback(op *pendingOp, cause error) {
	switch op.kind {
	case models.MutationCreate:
		if err := e.entities.SetStatus(op.entityID, models.StatusError); err != nil {
			e.logger.Err(err).
				Str("entity_id", op.entityID).
				Msg("rollback target missing for failed create")
		}
	case models.MutationUpdate, models.MutationDelete:
		if op.original != nil {
			restored := op.original.Clone()
			restored.Status = models.StatusError
			e.entities.Upsert(restored)
		}
	}
	e.notifier.OperationFailed(op.entityID, op.kind, cause)
}
