package audit

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	// DropIfFull makes Emit non-blocking: entries that do not fit in the
	// buffer are counted in Dropped instead of waiting for the sink.
	DropIfFull bool
	Logger     *zap.Logger
}

// pending is one queued unit of work: an entry to deliver, or a flush
// barrier to release once everything queued before it was delivered.
type pending struct {
	entry   Entry
	barrier chan struct{}
}

// Dispatcher asynchronously forwards entries to a sink. Entries are
// delivered in Emit order by a single goroutine.
type Dispatcher struct {
	cfg       Config
	sink      Sink
	logger    *zap.Logger
	queue     chan pending
	done      chan struct{}
	wg        sync.WaitGroup
	delivered atomic.Uint64
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewDispatcher starts a dispatcher, or returns nil when cfg is disabled.
// A nil *Dispatcher is a valid sink that drops everything.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	d := &Dispatcher{
		cfg:    cfg,
		sink:   sink,
		logger: logger,
		queue:  make(chan pending, cfg.BufferSize),
		done:   make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case p := <-d.queue:
			d.handle(p)
		case <-d.done:
			for {
				select {
				case p := <-d.queue:
					d.handle(p)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) handle(p pending) {
	if p.barrier != nil {
		close(p.barrier)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("audit sink panicked",
				zap.String("action", string(p.entry.Action)),
				zap.Any("panic", r),
			)
		}
	}()
	d.sink.Emit(context.Background(), p.entry)
	d.delivered.Add(1)
}

// Emit queues entry for delivery. After Close it is a no-op.
func (d *Dispatcher) Emit(ctx context.Context, entry Entry) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	p := pending{entry: entry}
	if d.cfg.DropIfFull {
		select {
		case d.queue <- p:
		case <-d.done:
		default:
			d.dropped.Add(1)
			d.logger.Debug("audit entry dropped", zap.String("action", string(entry.Action)))
		}
		return
	}

	select {
	case d.queue <- p:
	case <-ctx.Done():
		d.dropped.Add(1)
	case <-d.done:
	}
}

// Flush blocks until every entry queued before the call has reached the
// sink, or ctx ends. Flushing a closed dispatcher returns immediately since
// Close already drained the queue.
func (d *Dispatcher) Flush(ctx context.Context) error {
	if d == nil || d.closed.Load() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	barrier := make(chan struct{})
	select {
	case d.queue <- pending{barrier: barrier}:
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-barrier:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting entries and waits until buffered ones are delivered.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

// Delivered returns the number of entries handed to the sink.
func (d *Dispatcher) Delivered() uint64 {
	if d == nil {
		return 0
	}
	return d.delivered.Load()
}

// Dropped returns the number of entries discarded because the buffer was
// full or the caller's context ended first.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
