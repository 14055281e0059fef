// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The sheetsync Authors

// Package engine implements the optimistic entity-synchronization core.
//
// Mutations issued by the presentation layer are applied to the local entity
// store immediately, dispatched to the server through a protocol client, and
// tracked as pending operations with a deadline. A confirmed operation moves
// the entity to the synced state; a timeout, transport failure, or explicit
// server rejection rolls the optimistic change back and marks the entity as
// recoverable error state. Version conflicts reported by the server are
// resolved by refetching the authoritative copy, which wins outright over
// the rejected local edit.
//
// The engine is a single logical actor: one mutex guards all pending
// bookkeeping, so operations against the same entity id are never concurrent
// while operations against different ids remain independent in flight.
package engine

import (
	"context"
	"sync"

	"github.com/vttkit/sheetsync/internal/config"
	"github.com/vttkit/sheetsync/internal/logger"
	"github.com/vttkit/sheetsync/internal/notify"
	"github.com/vttkit/sheetsync/internal/protocol"
	"github.com/vttkit/sheetsync/internal/store"
	"github.com/vttkit/sheetsync/internal/validators"
	"github.com/vttkit/sheetsync/models"
)

// Engine coordinates the entity store, the protocol client, the pending
// operation registry, and the conflict resolver. Construct with NewEngine
// and start the result loop with Run before issuing mutations.
type Engine struct {
	entities  store.EntityStore
	transport protocol.Client
	validator validators.Validator
	notifier  notify.Notifier
	snapshots store.SnapshotRepository // nil disables snapshot persistence
	cfg       config.EngineSync
	logger    *logger.Logger

	mu         sync.Mutex
	pending    map[string]*pendingOp
	reconciles map[string]*reconcile
	// lastMutation remembers the most recent mutation per entity id so an
	// explicit Retry can re-send it after a rollback.
	lastMutation map[string]models.Mutation
}

// NewEngine wires the synchronization core together. snapshots may be nil
// when no local snapshot cache is configured; notifier may be nil, in which
// case events are discarded.
func NewEngine(
	entities store.EntityStore,
	transport protocol.Client,
	validator validators.Validator,
	notifier notify.Notifier,
	snapshots store.SnapshotRepository,
	cfg config.EngineSync,
	log *logger.Logger,
) *Engine {
	if notifier == nil {
		notifier = notify.Nop()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{
		entities:     entities,
		transport:    transport,
		validator:    validator,
		notifier:     notifier,
		snapshots:    snapshots,
		cfg:          cfg,
		logger:       log,
		pending:      make(map[string]*pendingOp),
		reconciles:   make(map[string]*reconcile),
		lastMutation: make(map[string]models.Mutation),
	}
}

// Run consumes the protocol client's result channel and drives all
// asynchronous state transitions. It returns when ctx is cancelled or the
// result channel is closed. Run must be started before mutations are issued;
// callers typically run it in its own goroutine.
func (e *Engine) Run(ctx context.Context) error {
	results := e.transport.Results()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case res, ok := <-results:
			if !ok {
				e.logger.Info().Msg("result channel closed, stopping sync engine")
				return nil
			}
			e.dispatch(ctx, res)
		}
	}
}

func (e *Engine) dispatch(ctx context.Context, res models.Result) {
	switch res.Kind {
	case models.ResultSave:
		e.handleSaveResult(ctx, res)
	case models.ResultUpdate:
		e.handleUpdateResult(ctx, res)
	case models.ResultDelete:
		e.handleDeleteResult(ctx, res)
	case models.ResultLoad:
		e.handleLoadResult(ctx, res)
	case models.ResultList:
		e.handleListResult(ctx, res)
	default:
		e.logger.Warn().
			Str("op_id", string(res.OpID)).
			Str("kind", string(res.Kind)).
			Msg("dropping result of unknown kind")
	}
}

// Get returns a copy of the entity and whether it exists.
func (e *Engine) Get(id string) (models.Entity, bool) {
	return e.entities.Get(id)
}

// List returns copies of all locally known entities.
func (e *Engine) List() []models.Entity {
	return e.entities.List()
}

// Subscribe attaches a presentation-layer change feed to the entity store.
func (e *Engine) Subscribe() (<-chan store.Event, func()) {
	return e.entities.Subscribe()
}

// Pending reports whether an operation is currently in flight for id.
func (e *Engine) Pending(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.pending[id]
	return ok
}

// persistSnapshot writes the confirmed server state of an entity to the
// snapshot cache, if one is configured. Failures are logged, never fatal:
// the cache is an availability optimisation, not a source of truth.
func (e *Engine) persistSnapshot(ctx context.Context, entity models.Entity) {
	if e.snapshots == nil {
		return
	}
	if err := e.snapshots.Save(ctx, entity); err != nil {
		e.logger.Err(err).
			Str("entity_id", entity.ID).
			Msg("failed to persist snapshot")
	}
}

func (e *Engine) dropSnapshot(ctx context.Context, id string) {
	if e.snapshots == nil {
		return
	}
	if err := e.snapshots.Delete(ctx, id); err != nil {
		e.logger.Err(err).
			Str("entity_id", id).
			Msg("failed to delete snapshot")
	}
}
