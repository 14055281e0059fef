// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The sheetsync Authors

package workers

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vttkit/sheetsync/internal/logger"
)

// countRefresher counts Refresh calls; safe for concurrent use.
type countRefresher struct {
	calls atomic.Int64
	err   error
}

func (r *countRefresher) Refresh(context.Context) error {
	r.calls.Add(1)
	return r.err
}

func TestResyncJob_StartRefreshesOnTicker(t *testing.T) {
	refresher := &countRefresher{}
	job := NewResyncJob(refresher, logger.Nop())

	job.Start(context.Background(), 10*time.Millisecond)
	defer job.Stop()

	require.Eventually(t, func() bool {
		return refresher.calls.Load() >= 3
	}, 2*time.Second, 5*time.Millisecond)
}

func TestResyncJob_StopBlocksUntilExit(t *testing.T) {
	refresher := &countRefresher{}
	job := NewResyncJob(refresher, logger.Nop())

	job.Start(context.Background(), 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return refresher.calls.Load() >= 1
	}, 2*time.Second, 5*time.Millisecond)

	job.Stop()
	after := refresher.calls.Load()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, refresher.calls.Load(), "no refreshes after Stop")
}

func TestResyncJob_StopWithoutStart(t *testing.T) {
	job := NewResyncJob(&countRefresher{}, logger.Nop())

	// no-op, must not panic or block
	job.Stop()
}

func TestResyncJob_RestartReplacesPreviousRun(t *testing.T) {
	refresher := &countRefresher{}
	job := NewResyncJob(refresher, logger.Nop())

	job.Start(context.Background(), 10*time.Millisecond)
	job.Start(context.Background(), 10*time.Millisecond)
	defer job.Stop()

	require.Eventually(t, func() bool {
		return refresher.calls.Load() >= 2
	}, 2*time.Second, 5*time.Millisecond)
}

func TestResyncJob_ContextCancelStopsJob(t *testing.T) {
	refresher := &countRefresher{}
	job := NewResyncJob(refresher, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	job.Start(ctx, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return refresher.calls.Load() >= 1
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	time.Sleep(30 * time.Millisecond)
	after := refresher.calls.Load()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, refresher.calls.Load(), "no refreshes after context cancel")
}

func TestResyncWorker_RunStartsJob(t *testing.T) {
	refresher := &countRefresher{}
	job := NewResyncJob(refresher, logger.Nop())
	defer job.Stop()

	worker := NewResyncWorker(context.Background(), job, 10*time.Millisecond)
	worker.Run()

	require.Eventually(t, func() bool {
		return refresher.calls.Load() >= 1
	}, 2*time.Second, 5*time.Millisecond)
}
