package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// Dispatcher asynchronously forwards audit events to a sink. A nil
// dispatcher is valid and inert, so callers never branch on auditing
// being enabled.
//
// A single goroutine ranges over the buffered event channel; Close stops
// intake under the write lock, closes the channel, and waits for the
// worker to finish flushing what was already buffered. Emit holds the
// read lock while sending, so a send can never race the channel close.
type Dispatcher struct {
	sink       Sink
	events     chan Event
	drained    chan struct{}
	dropIfFull bool

	mu      sync.RWMutex
	closing bool

	dropped atomic.Uint64
}

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

	d := &Dispatcher{
		sink:       sink,
		events:     make(chan Event, cfg.BufferSize),
		drained:    make(chan struct{}),
		dropIfFull: cfg.DropIfFull,
	}

	go d.forward()

	return d
}

func (d *Dispatcher) forward() {
	for event := range d.events {
		d.sink.Emit(context.Background(), event)
	}
	close(d.drained)
}

// Emit queues an event. In drop-if-full mode a full buffer increments the
// dropped counter instead of blocking; otherwise Emit blocks until the
// worker catches up or ctx is canceled. Events emitted after Close are
// discarded.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closing {
		return
	}

	if d.dropIfFull {
		select {
		case d.events <- event:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.events <- event:
	case <-ctx.Done():
	}
}

// Close stops intake, flushes buffered events to the sink, and returns.
// Safe to call more than once.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}

	d.mu.Lock()
	if d.closing {
		d.mu.Unlock()
		return
	}
	d.closing = true
	close(d.events)
	d.mu.Unlock()

	<-d.drained
}

// Dropped reports how many events were discarded because the buffer was
// full in drop-if-full mode.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
