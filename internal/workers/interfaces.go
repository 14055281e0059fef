// Package workers provides abstractions for managing and running
// background workers of the sync client.
// It defines the Worker interface and a Workers aggregate that allows
// running multiple workers in a unified way.
package workers

import (
	"context"
	"time"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/workers_mock.go -package=mock

// Worker is the interface that must be implemented by any background worker.
// It defines a single Run method that starts the worker's execution.
//
// Implementations are expected to block for the duration of their work
// or spawn goroutines internally.
type Worker interface {
	Run()
}

// Refresher requests an authoritative entity listing from the server; the
// reconciliation itself happens asynchronously on the result loop.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// ResyncJob periodically refreshes the local entity cache against the
// server. It is idle until Start is called.
type ResyncJob interface {
	Start(ctx context.Context, interval time.Duration)
	Stop()
}
