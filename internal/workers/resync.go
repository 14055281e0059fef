// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The sheetsync Authors

package workers

import (
	"context"
	"sync"
	"time"

	"github.com/vttkit/sheetsync/internal/logger"
)

type resyncJob struct {
	refresher Refresher
	logger    *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewResyncJob creates a resyncJob that calls refresher.Refresh on a ticker.
// The job is idle until Start is called.
func NewResyncJob(refresher Refresher, log *logger.Logger) ResyncJob {
	if log == nil {
		log = logger.Nop()
	}
	return &resyncJob{refresher: refresher, logger: log}
}

// Start implements ResyncJob. It stops any previously running job, then
// launches a background goroutine that refreshes every interval. If interval
// is zero or negative it defaults to 5 minutes. The goroutine exits when ctx
// is cancelled or Stop is called.
func (j *resyncJob) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	j.Stop()

	j.mu.Lock()
	jobCtx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.wg.Add(1)
	j.mu.Unlock()

	go func() {
		defer j.wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-jobCtx.Done():
				return
			case <-t.C:
				if err := j.refresher.Refresh(jobCtx); err != nil {
					j.logger.Err(err).Msg("periodic resync failed")
				}
			}
		}
	}()
}

// resyncWorker adapts a ResyncJob to the Worker interface with a fixed
// context and interval so it can run under the Workers aggregate.
type resyncWorker struct {
	ctx      context.Context
	job      ResyncJob
	interval time.Duration
}

func NewResyncWorker(ctx context.Context, job ResyncJob, interval time.Duration) Worker {
	return &resyncWorker{ctx: ctx, job: job, interval: interval}
}

func (w *resyncWorker) Run() {
	w.job.Start(w.ctx, w.interval)
}

// Stop implements ResyncJob. It cancels the background goroutine's context
// and blocks until the goroutine has fully exited. Safe to call when the job
// is not running (no-op in that case).
func (j *resyncJob) Stop() {
	j.mu.Lock()
	cancel := j.cancel
	j.cancel = nil
	j.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	j.wg.Wait()
}
