package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// SyncStatus describes where an entity stands in its synchronization
// lifecycle with the authoritative server.
type SyncStatus string

const (
	// StatusLocal marks an entity that exists only on this client:
	// it has never been sent, typically because no transport was available.
	StatusLocal SyncStatus = "local"
	// StatusSyncing marks an entity with a request currently in flight.
	StatusSyncing SyncStatus = "syncing"
	// StatusSynced marks an entity confirmed by the server; no pending
	// operation exists for it.
	StatusSynced SyncStatus = "synced"
	// StatusError marks an entity whose last mutation was rolled back or
	// rejected. The entity stays visible so the user can retry or discard.
	StatusError SyncStatus = "error"
)

// Payload is the application-owned document carried by an entity (e.g. a
// character sheet). The sync engine treats it as opaque beyond shallow
// merging of partial updates.
type Payload map[string]any

// Clone returns a deep copy of the payload. Nested maps and slices are
// copied recursively so optimistic snapshots never alias live data.
func (p Payload) Clone() Payload {
	if p == nil {
		return nil
	}
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, nested := range val {
			out[k] = cloneValue(nested)
		}
		return out
	case Payload:
		return map[string]any(val.Clone())
	case []any:
		out := make([]any, len(val))
		for i, nested := range val {
			out[i] = cloneValue(nested)
		}
		return out
	default:
		return val
	}
}

// Entity is a server-owned record cached on the client. Version is assigned
// by the server and increases monotonically, starting at 1 on creation.
type Entity struct {
	ID        string     `json:"id"`
	Version   int64      `json:"version"`
	Payload   Payload    `json:"payload"`
	Status    SyncStatus `json:"status"`
	UpdatedAt time.Time  `json:"updated_at,omitempty"`
}

// Clone returns a deep copy of the entity suitable for use as a rollback
// snapshot.
func (e Entity) Clone() Entity {
	e.Payload = e.Payload.Clone()
	return e
}

// TempIDPrefix marks identifiers generated locally before the server has
// assigned a permanent id to a created entity.
const TempIDPrefix = "tmp-"

// NewTempID returns a fresh temporary entity identifier.
func NewTempID() string {
	return TempIDPrefix + uuid.NewString()
}

// IsTempID reports whether id is a locally generated temporary identifier.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}
