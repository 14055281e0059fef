package models

// MutationKind identifies the type of a locally issued mutation.
type MutationKind string

const (
	MutationCreate MutationKind = "create"
	MutationUpdate MutationKind = "update"
	MutationDelete MutationKind = "delete"
)

// Mutation captures a caller's intent against a single entity. Mutations are
// applied optimistically in issuance order per entity; cross-entity ordering
// is not guaranteed.
type Mutation struct {
	Kind     MutationKind `json:"kind"`
	EntityID string       `json:"entity_id"`
	// Payload is the full document for creates or the partial document for
	// updates; unused for deletes.
	Payload Payload `json:"payload,omitempty"`
	// ExpectedVersion is the version the client believes it is updating.
	// Only meaningful for updates.
	ExpectedVersion int64 `json:"expected_version,omitempty"`
	// TempID correlates an optimistic create with the eventual
	// server-assigned id.
	TempID string `json:"temp_id,omitempty"`
}
