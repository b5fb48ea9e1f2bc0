package utils

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// StoppableWorkers runs background goroutines that share one context and are stopped together.
// A worker that panics cancels the others; Stop reports the panic.
type StoppableWorkers struct {
	mu      sync.Mutex
	group   *errgroup.Group
	ctx     context.Context
	cancel  context.CancelFunc
	stopped bool
}

// NewStoppableWorkers starts each function in its own goroutine.
func NewStoppableWorkers(funcs ...func(context.Context)) *StoppableWorkers {
	parent, cancel := context.WithCancel(context.Background())
	group, ctx := errgroup.WithContext(parent)
	sw := &StoppableWorkers{group: group, ctx: ctx, cancel: cancel}
	sw.AddWorkers(funcs...)
	return sw
}

// AddWorkers starts more goroutines. After Stop it does nothing.
func (sw *StoppableWorkers) AddWorkers(funcs ...func(context.Context)) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if sw.stopped {
		return
	}
	for _, f := range funcs {
		sw.group.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = errors.Errorf("worker panicked: %v", r)
				}
			}()
			f(sw.ctx)
			return nil
		})
	}
}

// Stop cancels the shared context and waits for every worker to return. Only the first call
// waits; later calls return nil.
func (sw *StoppableWorkers) Stop() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if sw.stopped {
		return nil
	}
	sw.stopped = true
	sw.cancel()
	return sw.group.Wait()
}

// Context returns the context the workers watch.
func (sw *StoppableWorkers) Context() context.Context {
	return sw.ctx
}
