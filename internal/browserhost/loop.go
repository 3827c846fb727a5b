package browserhost

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/zsiec/webpanel/internal/logger"
)

// ErrLoopStopped is returned by Do once the loop has exited.
var ErrLoopStopped = errors.New("event loop stopped")

// Loop runs every host callback on one goroutine, in submission order.
// Extension code called from the loop needs no locking of its own.
type Loop struct {
	logger  logger.Logger
	tasks   chan func()
	closing chan struct{}
	stopped chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewLoop creates a loop. Nothing runs until Run is called.
func NewLoop(log logger.Logger) *Loop {
	return &Loop{
		logger:  logger.OrNull(log),
		tasks:   make(chan func(), 64),
		closing: make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Run executes tasks until ctx is done. Tasks accepted before that still
// run. final, when non-nil, runs on the loop goroutine after them and
// before Run returns. Run must be called at most once.
func (l *Loop) Run(ctx context.Context, final func()) {
	defer close(l.stopped)

	for {
		select {
		case task := <-l.tasks:
			task()
		case <-ctx.Done():
			l.shutdown()
			if final != nil {
				final()
			}
			return
		}
	}
}

// shutdown stops accepting tasks and runs the ones already queued.
func (l *Loop) shutdown() {
	// Wakes senders blocked on a full queue so they release the lock.
	close(l.closing)
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()

	for {
		select {
		case task := <-l.tasks:
			task()
		default:
			return
		}
	}
}

// enqueue hands task to the loop. It reports false once the loop is
// shutting down; a true result means task will run.
func (l *Loop) enqueue(ctx context.Context, task func()) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return false, nil
	}
	select {
	case l.tasks <- task:
		return true, nil
	case <-l.closing:
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Do runs fn on the loop and waits for it. A panic in fn is returned as an
// error and leaves the loop running. Do must not be called from the loop.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	done := make(chan error, 1)
	task := func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic on event loop: %v", r)
			}
		}()
		fn()
		done <- nil
	}

	ok, err := l.enqueue(ctx, task)
	if err != nil {
		return err
	}
	if !ok {
		return ErrLoopStopped
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Post queues fn without waiting. It reports false if the loop has stopped,
// in which case fn never runs.
func (l *Loop) Post(fn func()) bool {
	ok, _ := l.enqueue(context.Background(), func() {
		defer func() {
			if r := recover(); r != nil {
				l.logger.WithField("panic", r).Error("Panic on event loop")
			}
		}()
		fn()
	})
	return ok
}
