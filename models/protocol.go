package models

// OpID correlates an outbound request with the asynchronous result that the
// transport eventually delivers for it.
type OpID string

// ResultKind identifies which request a transport result answers.
type ResultKind string

const (
	ResultSave   ResultKind = "save"
	ResultUpdate ResultKind = "update"
	ResultDelete ResultKind = "delete"
	ResultLoad   ResultKind = "load"
	ResultList   ResultKind = "list"
)

// SaveRequest asks the server to persist a newly created entity. TempID is
// echoed back so the client can correlate the optimistic local copy with the
// server-assigned id.
type SaveRequest struct {
	TempID  string  `json:"temp_id"`
	Payload Payload `json:"payload"`
}

// SaveResult confirms a create. AssignedID is the permanent server-side id;
// Version is the initial server version (1 for new entities).
type SaveResult struct {
	AssignedID string `json:"assigned_id"`
	Version    int64  `json:"version"`
}

// UpdateRequest asks the server to shallow-merge Partial into the entity,
// provided its version still equals ExpectedVersion.
type UpdateRequest struct {
	EntityID        string  `json:"entity_id"`
	Partial         Payload `json:"partial"`
	ExpectedVersion int64   `json:"expected_version"`
}

// UpdateResult confirms or rejects an update. A non-nil Conflict means the
// server's version no longer matched ExpectedVersion; NewVersion is only set
// on success.
type UpdateResult struct {
	NewVersion int64            `json:"new_version,omitempty"`
	Conflict   *VersionConflict `json:"conflict,omitempty"`
}

// DeleteRequest asks the server to remove an entity.
type DeleteRequest struct {
	EntityID string `json:"entity_id"`
}

// DeleteResult confirms a delete.
type DeleteResult struct{}

// LoadResult carries the authoritative copy of a single entity.
type LoadResult struct {
	Entity Entity `json:"entity"`
}

// ListResult carries the authoritative copies of all entities visible to the
// client.
type ListResult struct {
	Entities []Entity `json:"entities"`
}

// Result is the envelope delivered on the protocol client's result channel.
// Exactly one of the typed fields matching Kind is populated on success; Err
// is set for explicit server rejections and transport failures discovered
// after dispatch.
type Result struct {
	OpID     OpID       `json:"op_id"`
	Kind     ResultKind `json:"kind"`
	EntityID string     `json:"entity_id,omitempty"`

	Save   *SaveResult   `json:"save,omitempty"`
	Update *UpdateResult `json:"update,omitempty"`
	Delete *DeleteResult `json:"delete,omitempty"`
	Load   *LoadResult   `json:"load,omitempty"`
	List   *ListResult   `json:"list,omitempty"`

	Err error `json:"-"`
}
