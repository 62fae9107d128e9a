package recorder

import (
	"context"
	"log/slog"
	"sync"
)

// BackgroundTasks keeps the process alive while recordings finalize.
// Begin returns a func that ends the task; calling it more than once is
// harmless.
type BackgroundTasks interface {
	Begin(name string) (end func())
}

type noopTasks struct{}

func (noopTasks) Begin(string) func() { return func() {} }

// TaskTracker is a BackgroundTasks that can be waited on at shutdown.
type TaskTracker struct {
	mu     sync.Mutex
	wg     sync.WaitGroup
	active map[uint64]string
	next   uint64
}

func NewTaskTracker() *TaskTracker {
	return &TaskTracker{active: make(map[uint64]string)}
}

func (t *TaskTracker) Begin(name string) func() {
	t.mu.Lock()
	t.next++
	id := t.next
	t.active[id] = name
	t.wg.Add(1)
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.active, id)
			t.mu.Unlock()
			t.wg.Done()
		})
	}
}

// Active returns the names of running tasks.
func (t *TaskTracker) Active() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	names := make([]string, 0, len(t.active))
	for _, n := range t.active {
		names = append(names, n)
	}
	return names
}

// Wait blocks until every task has ended or ctx is done.
func (t *TaskTracker) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		slog.Warn("background tasks still running at shutdown", "tasks", t.Active())
		return ctx.Err()
	}
}
