// Package loop runs every UI-visible state transition of the shell on a
// single goroutine, in the order the work was posted.
//
// Input events, timer expiries and fragment retrieval completions are posted
// as closures. Because one goroutine drains the queue, a handler is never
// preempted by another handler and component state needs no locking.
//
// # What this package must NOT do
//
//   - Run posted work concurrently.
//   - Be called with Do from a task that is itself running on the loop.
package loop

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ErrClosed is returned when work is posted to a closed loop.
var ErrClosed = errors.New("event loop closed")

// Loop serially executes posted tasks on one goroutine.
type Loop struct {
	tasks chan func()
	done  chan struct{}
	wg    sync.WaitGroup

	// mu guards closed and the registration of senders. A sender registered
	// before Close marks the loop closed always lands its task ahead of the
	// final drain.
	mu        sync.Mutex
	closed    bool
	senders   sync.WaitGroup
	closeOnce sync.Once
	logger    *zap.Logger
}

// New starts a loop with the given queue depth.
func New(buffer int, logger *zap.Logger) *Loop {
	if buffer <= 0 {
		buffer = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	l := &Loop{
		tasks:  make(chan func(), buffer),
		done:   make(chan struct{}),
		logger: logger,
	}

	l.wg.Add(1)
	go l.run()

	return l
}

func (l *Loop) run() {
	defer l.wg.Done()

	for {
		select {
		case task := <-l.tasks:
			l.exec(task)
		case <-l.done:
			for {
				select {
				case task := <-l.tasks:
					l.exec(task)
				default:
					return
				}
			}
		}
	}
}

func (l *Loop) exec(task func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("event loop task panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()
	task()
}

// Post enqueues fn. It reports false when the loop is closed. A task Post
// accepted is always run, even when Close runs concurrently.
func (l *Loop) Post(fn func()) bool {
	if l == nil || fn == nil {
		return false
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.senders.Add(1)
	l.mu.Unlock()

	defer l.senders.Done()
	l.tasks <- fn
	return true
}

// Do runs fn on the loop and waits for it to finish. It must not be called
// from a task already running on the loop.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	if ctx == nil {
		ctx = context.Background()
	}

	finished := make(chan struct{})
	var panicked any
	task := func() {
		defer close(finished)
		defer func() {
			panicked = recover()
		}()
		fn()
	}

	if !l.Post(task) {
		return ErrClosed
	}

	select {
	case <-finished:
		if panicked != nil {
			return fmt.Errorf("event loop task panicked: %v", panicked)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting work, drains what was already queued and waits for
// the loop goroutine to exit.
func (l *Loop) Close() {
	if l == nil {
		return
	}
	l.closeOnce.Do(func() {
		l.mu.Lock()
		l.closed = true
		l.mu.Unlock()

		// The loop keeps consuming until every registered sender has
		// enqueued, so none of them can block here.
		l.senders.Wait()
		close(l.done)
		l.wg.Wait()
	})
}
