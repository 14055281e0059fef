// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The sheetsync Authors

// Package protocol provides transport-layer abstractions for communicating
// with the table server that owns the authoritative entity copies.
//
// The primary abstraction is [Client], which decouples the sync engine from
// the underlying protocol. The package ships an HTTP/REST implementation
// ([NewHTTPClient]) and a WebSocket implementation ([NewWSClient]).
//
// All request methods are fire-and-forget: they return a correlation id
// immediately and deliver the typed outcome later on the channel returned by
// Results. A non-nil error from a request method means the send itself failed
// (transport unavailable) and no result will ever arrive for it.
//
// Error values defined in errors.go are mapped from transport-level failures
// so that callers can use [errors.Is] for transport-agnostic error handling
// (e.g. [ErrUnauthorized] for 401, [ErrRejected] for other explicit server
// failures).
package protocol

import (
	"context"

	"github.com/vttkit/sheetsync/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/protocol_client_mock.go -package=mock

// Client defines transport-agnostic communication with the table server.
// Implementations are responsible for serialisation, authentication header
// management, request/response correlation, and mapping transport-level
// errors to the sentinel values defined in this package.
//
// Per-entity FIFO is guaranteed for a single outstanding request per entity;
// no ordering is guaranteed across different entities.
type Client interface {
	// SetToken stores the bearer token that will be attached to all
	// subsequent authenticated requests.
	SetToken(token string)

	// Connected reports whether the transport is currently able to accept
	// requests. The sync engine stores mutations issued while disconnected
	// with status "local" instead of dispatching them.
	Connected() bool

	// Save asks the server to persist a newly created entity. The temp id in
	// req is echoed back in the eventual SaveResult's entity correlation.
	Save(ctx context.Context, req models.SaveRequest) (models.OpID, error)

	// Update asks the server to shallow-merge a partial document into an
	// entity, guarded by the expected version. A version mismatch is
	// delivered as a result with a populated Conflict, not as an error.
	Update(ctx context.Context, req models.UpdateRequest) (models.OpID, error)

	// Delete asks the server to remove an entity.
	Delete(ctx context.Context, req models.DeleteRequest) (models.OpID, error)

	// Load fetches the authoritative copy of a single entity.
	Load(ctx context.Context, entityID string) (models.OpID, error)

	// List fetches the authoritative copies of all entities visible to this
	// client.
	List(ctx context.Context) (models.OpID, error)

	// Results returns the channel on which asynchronous outcomes are
	// delivered. The channel is closed by Close (HTTP) or when the
	// connection is torn down (WebSocket). Callers must drain it.
	Results() <-chan models.Result

	// Close stops accepting new requests, waits for in-flight ones, and
	// closes the result channel.
	Close() error
}
