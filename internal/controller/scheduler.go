// Package controller orchestrates the console's pages. Each page controller
// follows the same shape: Init performs one load and render, arms its
// refresh tasks, and registers its commands; user input mutates the model or
// the controller's local view state and re-renders; Destroy cancels every
// task the controller armed. Rendering always re-derives the visible subset
// from the full model collection plus view state, filter then sort then
// paginate, and never reorders the model's canonical collections.
package controller

import (
	"context"
	"sync"
	"time"
)

// Task is one cancellable periodic refresh. Stop is idempotent and returns
// after the run loop has exited; a tick already executing when Stop is
// called finishes first. Tasks are never restarted: pausing and resuming a
// poll creates a fresh Task.
type Task struct {
	interval time.Duration
	fn       func(context.Context)

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// StartTask arms a periodic task that runs fn every interval until Stop is
// called. The first run happens after one full interval, not immediately;
// the caller has already done its initial load.
func StartTask(interval time.Duration, fn func(context.Context)) *Task {
	t := &Task{
		interval: interval,
		fn:       fn,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	go t.run()
	return t
}

// run ticks at interval until stopCh is closed.
func (t *Task) run() {
	defer close(t.doneCh)
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-t.stopCh
		cancel()
	}()

	for {
		select {
		case <-t.stopCh:
			return
		case <-ticker.C:
			t.fn(ctx)
		}
	}
}

// Stop cancels the task and waits for the run loop to exit.
func (t *Task) Stop() {
	t.stopOnce.Do(func() { close(t.stopCh) })
	<-t.doneCh
}

// taskSet tracks every task a controller arms so Destroy can cancel them
// all.
type taskSet struct {
	mu    sync.Mutex
	tasks []*Task
}

// add registers a task for teardown.
func (s *taskSet) add(t *Task) {
	s.mu.Lock()
	s.tasks = append(s.tasks, t)
	s.mu.Unlock()
}

// stopAll cancels every registered task and empties the set.
func (s *taskSet) stopAll() {
	s.mu.Lock()
	tasks := s.tasks
	s.tasks = nil
	s.mu.Unlock()
	for _, t := range tasks {
		t.Stop()
	}
}
