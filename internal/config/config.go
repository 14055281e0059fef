// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The sheetsync Authors

package config

import (
	"time"
)

// StructuredConfig is the top-level configuration container for the sheetsync
// client runtime. It aggregates all sub-configurations and is populated by
// merging values from environment variables, command-line flags, and an
// optional JSON file.
//
// Struct tags:
//   - envPrefix: prefix applied to all nested env tag lookups (caarlos0/env).
//   - env: direct environment variable name for scalar fields.
type StructuredConfig struct {
	// App holds application-level settings such as the client name reported
	// to the server and the build version.
	App App `envPrefix:"APP_"`

	// Sync holds the timing policy of the synchronization engine: how long an
	// optimistic mutation may stay unconfirmed and how long a conflict
	// reconciliation may wait for the authoritative copy.
	Sync Sync `envPrefix:"SYNC_"`

	// Transport holds addresses and timeouts for the outbound protocol
	// client (HTTP or WebSocket).
	Transport Transport `envPrefix:"TRANSPORT_"`

	// Storage holds configuration for the local snapshot cache.
	Storage Storage `envPrefix:"STORAGE_"`

	// Workers holds configuration for background worker processes such as
	// the periodic resync job.
	Workers Workers `envPrefix:"WORKERS_"`

	// JSONFilePath is the optional path to a JSON configuration file.
	// When non-empty, the file is parsed and merged on top of the values
	// already loaded from environment variables and flags.
	// Populated via the CONFIG environment variable or the -c / -config flag.
	JSONFilePath string `env:"CONFIG"`
}

// App holds application-level configuration values.
type App struct {
	// Name identifies this client installation in logs and notifications.
	// Env: APP_NAME
	Name string `env:"NAME"`

	// Version is the semantic version string of the running client
	// (e.g. "1.2.3").
	// Env: APP_VERSION
	Version string `env:"VERSION"`
}

// Sync holds the timing policy of the synchronization engine.
type Sync struct {
	// PendingTimeout is how long an optimistic mutation may remain
	// unconfirmed before it is rolled back and marked failed (e.g. "5s").
	// Env: SYNC_PENDING_TIMEOUT
	PendingTimeout time.Duration `env:"PENDING_TIMEOUT"`

	// ConflictWindow bounds how long a conflict reconciliation waits for the
	// authoritative entity copy before the attempt is abandoned (e.g. "5s").
	// Env: SYNC_CONFLICT_WINDOW
	ConflictWindow time.Duration `env:"CONFLICT_WINDOW"`
}

// Transport holds network settings for the outbound protocol client.
type Transport struct {
	// Mode selects the protocol client implementation: "http" or "ws".
	// Env: TRANSPORT_MODE
	Mode string `env:"MODE"`

	// HTTPAddress is the table server's REST endpoint in "host:port" format.
	// Env: TRANSPORT_HTTP_ADDRESS
	HTTPAddress string `env:"HTTP_ADDRESS"`

	// WSAddress is the table server's WebSocket endpoint URL
	// (e.g. "ws://host:port/sync").
	// Env: TRANSPORT_WS_ADDRESS
	WSAddress string `env:"WS_ADDRESS"`

	// RequestTimeout is the default timeout for a single outbound request
	// (e.g. "15s").
	// Env: TRANSPORT_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`

	// Token is the opaque bearer token attached to authenticated requests.
	// Obtained out of band; the sync core does not perform authentication.
	// Env: TRANSPORT_TOKEN
	Token string `env:"TOKEN"`
}

// Storage groups the configuration for the local snapshot cache.
type Storage struct {
	// Snapshot holds the SQLite connection settings for the last-known-synced
	// entity cache.
	Snapshot Snapshot `envPrefix:"SNAPSHOT_"`
}

// Snapshot contains local snapshot database settings.
type Snapshot struct {
	// DSN is the SQLite connection string (file path) of the snapshot cache.
	// Empty disables snapshot persistence.
	// Env: STORAGE_SNAPSHOT_DSN
	DSN string `env:"DSN"`
}

// Workers contains background worker settings.
type Workers struct {
	// ResyncInterval defines how often the background resync job refetches
	// the authoritative entity list (e.g. "5m").
	// Env: WORKERS_RESYNC_INTERVAL
	ResyncInterval time.Duration `env:"RESYNC_INTERVAL"`
}

// GetStructuredConfig loads, merges, and validates the full configuration
// from environment variables, flags, and the optional JSON file.
func GetStructuredConfig() (*StructuredConfig, error) {
	return newConfigBuilder().
		withEnv().
		withFlags().
		withJSON().
		build()
}
