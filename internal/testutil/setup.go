package testutil

import (
	"io"
	"log/slog"
	"testing"

	"github.com/joshuapare/heapkit/heap"
	"github.com/joshuapare/heapkit/heap/alloc"
	"github.com/joshuapare/heapkit/heap/trace"
)

// DefaultArenaSize is the reservation used by SetupTestAllocator (64 KiB).
const DefaultArenaSize = 64 << 10

// Recorder collects allocator events in the order they were emitted.
type Recorder struct {
	Events []alloc.Event
}

// Record is an alloc.Options.OnEvent sink.
func (r *Recorder) Record(ev alloc.Event) {
	r.Events = append(r.Events, ev)
}

// Kinds returns the kind of every recorded event.
func (r *Recorder) Kinds() []alloc.EventKind {
	kinds := make([]alloc.EventKind, len(r.Events))
	for i, ev := range r.Events {
		kinds[i] = ev.Kind
	}
	return kinds
}

// Reset drops all recorded events.
func (r *Recorder) Reset() { r.Events = nil }

// NewTestArena builds an arena over a plain byte slice of the given size
// with no reserved tail.
func NewTestArena(t testing.TB, size int) *heap.Arena {
	t.Helper()
	arena, err := heap.FromBytes(make([]byte, size), 0)
	if err != nil {
		t.Fatalf("Failed to create arena: %v", err)
	}
	return arena
}

// SetupTestAllocator creates an allocator over a fresh DefaultArenaSize
// arena. Call paths are not captured and events go to the returned Recorder.
//
// Example:
//
//	a, arena, rec := testutil.SetupTestAllocator(t)
//	h, err := a.Allocate(32)
func SetupTestAllocator(t testing.TB) (*alloc.Allocator, *heap.Arena, *Recorder) {
	t.Helper()
	return SetupTestAllocatorSize(t, DefaultArenaSize)
}

// SetupTestAllocatorSize is like SetupTestAllocator with a custom arena size.
func SetupTestAllocatorSize(t testing.TB, size int) (*alloc.Allocator, *heap.Arena, *Recorder) {
	t.Helper()

	arena := NewTestArena(t, size)
	rec := &Recorder{}
	a, err := alloc.New(arena, &alloc.Options{
		Capturer: trace.NoSymbol{},
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		OnEvent:  rec.Record,
	})
	if err != nil {
		t.Fatalf("Failed to create allocator: %v", err)
	}
	return a, arena, rec
}

// MustAllocate allocates n bytes and fails the test on error.
func MustAllocate(t testing.TB, a *alloc.Allocator, n int) alloc.Handle {
	t.Helper()
	h, err := a.Allocate(n)
	if err != nil {
		t.Fatalf("Allocate(%d): %v", n, err)
	}
	return h
}
