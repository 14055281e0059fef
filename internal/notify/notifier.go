// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The sheetsync Authors

// Package notify delivers user-facing sync events. The engine reports
// conflicts, failed operations, and recoveries here instead of deciding how
// a UI should surface them.
package notify

import (
	"github.com/vttkit/sheetsync/internal/logger"
	"github.com/vttkit/sheetsync/models"
)

//go:generate mockgen -source=notifier.go -destination=../mock/notifier_mock.go -package=mock

// Notifier receives sync events destined for the user. Implementations must
// not block: callbacks are invoked from the engine's dispatch path.
type Notifier interface {
	// ConflictDetected fires when the server rejects a mutation because the
	// local version is stale. The engine resolves the conflict on its own;
	// this is informational.
	ConflictDetected(conflict models.VersionConflict)

	// OperationFailed fires when a mutation is rejected, fails in transport,
	// or times out, after local state has been rolled back.
	OperationFailed(entityID string, kind models.MutationKind, err error)

	// EntityRecovered fires when an entity previously in the error state
	// returns to synced.
	EntityRecovered(entityID string)
}

type logNotifier struct {
	logger *logger.Logger
}

// NewLogNotifier returns a [Notifier] that writes every event to the log.
// It is the default sink when no presentation layer is attached.
func NewLogNotifier(log *logger.Logger) Notifier {
	if log == nil {
		log = logger.Nop()
	}
	return &logNotifier{logger: log}
}

func (n *logNotifier) ConflictDetected(conflict models.VersionConflict) {
	n.logger.Warn().
		Str("entity_id", conflict.EntityID).
		Int64("claimed_version", conflict.ClaimedVersion).
		Int64("current_version", conflict.CurrentVersion).
		Msg("version conflict detected, refetching authoritative state")
}

func (n *logNotifier) OperationFailed(entityID string, kind models.MutationKind, err error) {
	n.logger.Error().
		Err(err).
		Str("entity_id", entityID).
		Str("kind", string(kind)).
		Msg("sync operation failed, local changes rolled back")
}

func (n *logNotifier) EntityRecovered(entityID string) {
	n.logger.Info().
		Str("entity_id", entityID).
		Msg("entity recovered, back in sync")
}

type nopNotifier struct{}

// Nop returns a [Notifier] that discards every event.
func Nop() Notifier { return nopNotifier{} }

func (nopNotifier) ConflictDetected(models.VersionConflict)            {}
func (nopNotifier) OperationFailed(string, models.MutationKind, error) {}
func (nopNotifier) EntityRecovered(string)                             {}
