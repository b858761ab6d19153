package authpipe

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultEventCloseTimeout bounds how long Close waits for the sink to drain.
const DefaultEventCloseTimeout = 2 * time.Second

// eventDispatcher hands events to a sink on its own goroutine. Emit never waits,
// so a slow sink loses events instead of stalling calls or the refresh.
type eventDispatcher struct {
	sink         EventSink
	queue        chan Event
	dropOldest   bool
	closeTimeout time.Duration

	// ctx is handed to the sink and canceled when Close gives up draining.
	ctx    context.Context
	cancel context.CancelFunc

	stop    chan struct{}
	stopped chan struct{}
	once    sync.Once
	closed  atomic.Bool
	dropped atomic.Uint64
}

func newEventDispatcher(cfg DebugConfig, sink EventSink) *eventDispatcher {
	if !cfg.Enabled {
		return nil
	}
	size := cfg.BufferSize
	if size <= 0 {
		size = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	closeTimeout := cfg.CloseTimeout
	if closeTimeout <= 0 {
		closeTimeout = DefaultEventCloseTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &eventDispatcher{
		sink:         sink,
		queue:        make(chan Event, size),
		dropOldest:   cfg.DropOldest,
		closeTimeout: closeTimeout,
		ctx:          ctx,
		cancel:       cancel,
		stop:         make(chan struct{}),
		stopped:      make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *eventDispatcher) run() {
	defer close(d.stopped)

	for {
		select {
		case ev := <-d.queue:
			d.sink.Emit(d.ctx, ev)
		case <-d.stop:
			d.drain()
			return
		}
	}
}

// drain flushes what is queued at shutdown. Events still queued once the sink
// context is canceled count as dropped.
func (d *eventDispatcher) drain() {
	for {
		select {
		case ev := <-d.queue:
			if d.ctx.Err() != nil {
				d.dropped.Add(1)
				continue
			}
			d.sink.Emit(d.ctx, ev)
		default:
			return
		}
	}
}

// Emit queues event without blocking. On a full queue the new event is dropped,
// or the oldest queued one when DropOldest is set.
func (d *eventDispatcher) Emit(_ context.Context, event Event) {
	if d == nil || d.closed.Load() {
		return
	}
	select {
	case d.queue <- event:
		return
	default:
	}
	if !d.dropOldest {
		d.dropped.Add(1)
		return
	}

	select {
	case <-d.queue:
		d.dropped.Add(1)
	default:
	}
	select {
	case d.queue <- event:
	default:
		d.dropped.Add(1)
	}
}

// Close stops accepting events and waits up to the close timeout for the queue to
// drain. A sink still busy after that sees its context canceled. Safe to call
// more than once.
func (d *eventDispatcher) Close() {
	if d == nil {
		return
	}
	d.once.Do(func() {
		d.closed.Store(true)
		close(d.stop)

		timer := time.NewTimer(d.closeTimeout)
		defer timer.Stop()
		select {
		case <-d.stopped:
		case <-timer.C:
			d.cancel()
			<-d.stopped
		}
		d.cancel()
	})
}

func (d *eventDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
