package audit

import (
	"context"
	"sync"
	"testing"
	"time"
)

// recordSink collects emitted events in order.
type recordSink struct {
	mu  sync.Mutex
	got []Event
}

func (s *recordSink) Emit(_ context.Context, event Event) {
	s.mu.Lock()
	s.got = append(s.got, event)
	s.mu.Unlock()
}

func (s *recordSink) events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.got...)
}

// gateSink blocks every Emit until release is closed, signaling each
// delivery attempt on started first.
type gateSink struct {
	recordSink
	started chan struct{}
	release chan struct{}
}

func (s *gateSink) Emit(ctx context.Context, event Event) {
	s.started <- struct{}{}
	<-s.release
	s.recordSink.Emit(ctx, event)
}

func TestDispatcherFlushesBufferOnClose(t *testing.T) {
	sink := &recordSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 8}, sink)
	if d == nil {
		t.Fatal("enabled dispatcher is nil")
	}

	ctx := context.Background()
	for _, eventType := range []string{"first", "second", "third"} {
		d.Emit(ctx, Event{EventType: eventType, Timestamp: time.Now()})
	}

	d.Close()

	got := sink.events()
	if len(got) != 3 {
		t.Fatalf("sink received %d events, want 3", len(got))
	}
	for i, want := range []string{"first", "second", "third"} {
		if got[i].EventType != want {
			t.Fatalf("event %d = %q, want %q", i, got[i].EventType, want)
		}
	}

	// Emits after Close are discarded, and a repeat Close is a no-op.
	d.Emit(ctx, Event{EventType: "late"})
	d.Close()
	if len(sink.events()) != 3 {
		t.Fatal("event accepted after Close")
	}
}

func TestDispatcherDisabledIsNilAndInert(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, &recordSink{})
	if d != nil {
		t.Fatal("disabled dispatcher is not nil")
	}

	// Nil receivers must be safe.
	d.Emit(context.Background(), Event{EventType: "ignored"})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatalf("Dropped = %d, want 0", d.Dropped())
	}
}

func TestDispatcherDropsWhenBufferFull(t *testing.T) {
	sink := &gateSink{
		started: make(chan struct{}, 8),
		release: make(chan struct{}),
	}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	ctx := context.Background()
	d.Emit(ctx, Event{EventType: "delivering"})
	<-sink.started // worker is now parked inside the sink

	d.Emit(ctx, Event{EventType: "buffered"})
	d.Emit(ctx, Event{EventType: "overflow"})

	if d.Dropped() != 1 {
		t.Fatalf("Dropped = %d, want 1", d.Dropped())
	}

	close(sink.release)
	<-sink.started // the buffered event reaches the sink
	d.Close()

	got := sink.events()
	if len(got) != 2 {
		t.Fatalf("sink received %d events, want 2", len(got))
	}
	if got[0].EventType != "delivering" || got[1].EventType != "buffered" {
		t.Fatalf("unexpected delivery order: %q, %q", got[0].EventType, got[1].EventType)
	}
}

func TestDispatcherBlockingEmitHonorsContext(t *testing.T) {
	sink := &gateSink{
		started: make(chan struct{}, 8),
		release: make(chan struct{}),
	}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1}, sink)

	ctx := context.Background()
	d.Emit(ctx, Event{EventType: "delivering"})
	<-sink.started
	d.Emit(ctx, Event{EventType: "buffered"})

	// The buffer is full and the worker is parked; a canceled context must
	// unblock the caller instead of deadlocking.
	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	done := make(chan struct{})
	go func() {
		d.Emit(canceled, Event{EventType: "abandoned"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit did not return on canceled context")
	}

	close(sink.release)
	<-sink.started
	d.Close()

	if got := sink.events(); len(got) != 2 {
		t.Fatalf("sink received %d events, want 2", len(got))
	}
}
