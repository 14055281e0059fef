package config

import "errors"

// Validation errors returned by [EngineConfig.validate] when required
// configuration groups are incomplete or invalid.
var (
	// ErrInvalidTransportConfigs indicates invalid transport settings
	// (for example, missing address for the selected mode).
	ErrInvalidTransportConfigs = errors.New("invalid transport configuration")
	// ErrInvalidSyncConfigs indicates invalid sync timing settings
	// (for example, a negative pending timeout).
	ErrInvalidSyncConfigs = errors.New("invalid sync configuration")
	// ErrInvalidWorkerConfigs indicates invalid background worker settings
	// (for example, a negative resync interval).
	ErrInvalidWorkerConfigs = errors.New("invalid worker configuration")
)
