package protocol

import "errors"

var (
	// ErrNotConnected is returned synchronously when a request is issued
	// while the transport is closed or the socket is down.
	ErrNotConnected = errors.New("transport not connected")
	// ErrUnauthorized maps explicit authentication failures from the server.
	ErrUnauthorized = errors.New("client unauthorized")
	// ErrRejected maps explicit non-conflict server failures (validation,
	// permission denied, internal errors).
	ErrRejected = errors.New("request rejected by server")
)
