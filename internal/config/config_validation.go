// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The sheetsync Authors

package config

// validate checks that the final merged [StructuredConfig] satisfies all
// invariants before it is used at startup.
//
// Defaults are not applied at this level, so only negative durations are
// rejected here; completeness checks live in [EngineConfig.validate].
//
// Returns nil if the configuration is valid, or a descriptive error otherwise.
func (cfg *StructuredConfig) validate() error {
	if cfg.Sync.PendingTimeout < 0 || cfg.Sync.ConflictWindow < 0 {
		return ErrInvalidSyncConfigs
	}

	if cfg.Workers.ResyncInterval < 0 {
		return ErrInvalidWorkerConfigs
	}

	return nil
}

func (cfg *EngineConfig) validate() error {
	if cfg.Sync.PendingTimeout <= 0 || cfg.Sync.ConflictWindow <= 0 {
		return ErrInvalidSyncConfigs
	}

	switch cfg.Transport.Mode {
	case TransportHTTP:
		if cfg.Transport.HTTPAddress == "" {
			return ErrInvalidTransportConfigs
		}
	case TransportWS:
		if cfg.Transport.WSAddress == "" {
			return ErrInvalidTransportConfigs
		}
	default:
		return ErrInvalidTransportConfigs
	}

	if cfg.Transport.RequestTimeout <= 0 {
		return ErrInvalidTransportConfigs
	}

	if cfg.Workers.ResyncInterval <= 0 {
		return ErrInvalidWorkerConfigs
	}

	return nil
}
