package models

// VersionConflict describes a server rejection caused by an update that was
// based on a stale entity version. It is transient bookkeeping handed to the
// conflict resolver and the notification side-channel; it is never persisted.
type VersionConflict struct {
	EntityID string `json:"entity_id"`
	// ClaimedVersion is the version the client believed it was updating.
	ClaimedVersion int64 `json:"claimed_version"`
	// CurrentVersion is the server's authoritative version at the time the
	// request was rejected.
	CurrentVersion int64 `json:"current_version"`
}
