// Package periodic runs named maintenance functions on a fixed
// interval with an explicit stop, so background work never depends on
// process exit for cleanup.
package periodic

import (
	"context"
	"time"

	"github.com/go-kratos/kratos/v2/log"
)

// Func is one unit of scheduled work. A returned error is logged;
// the schedule keeps running.
type Func func(ctx context.Context) error

// Task runs fn every interval on a single goroutine, so a slow run
// delays the next tick instead of overlapping it.
type Task struct {
	name     string
	interval time.Duration
	fn       Func
	log      *log.Helper

	cancel context.CancelFunc
	done   chan struct{}
}

// NewTask creates a stopped task.
func NewTask(name string, interval time.Duration, fn Func, logger log.Logger) *Task {
	return &Task{
		name:     name,
		interval: interval,
		fn:       fn,
		log:      log.NewHelper(logger),
	}
}

// Start begins the tick loop. Calling Start on a running task is a
// no-op.
func (t *Task) Start() {
	if t.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.done = make(chan struct{})

	go func() {
		defer close(t.done)
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := t.fn(ctx); err != nil {
					t.log.Errorf("periodic task %s: %v", t.name, err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	t.log.Infof("periodic task %s started (interval: %v)", t.name, t.interval)
}

// Stop cancels the loop and waits for any in-flight run to return.
// Safe to call more than once.
func (t *Task) Stop() {
	if t.cancel == nil {
		return
	}
	t.cancel()
	<-t.done
	t.cancel = nil
	t.log.Infof("periodic task %s stopped", t.name)
}
