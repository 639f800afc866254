package alloc

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heapkit/heap"
	"github.com/joshuapare/heapkit/heap/trace"
	"github.com/joshuapare/heapkit/heap/verify"
)

// eventLog collects events emitted by an allocator under test.
type eventLog struct {
	events []Event
}

func (l *eventLog) record(ev Event) { l.events = append(l.events, ev) }

// fixedCapturer hands out the same call path on every capture and resolves
// the program counters it handed out.
type fixedCapturer struct {
	frames []trace.Frame
}

func (c fixedCapturer) Capture(max int) []trace.Frame {
	if max > len(c.frames) {
		max = len(c.frames)
	}
	return c.frames[:max]
}

func (c fixedCapturer) Resolve(pc uint64) trace.Frame {
	for _, f := range c.frames {
		if f.PC == pc {
			return f
		}
	}
	return trace.Frame{PC: pc, Name: trace.UnknownName}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestAllocator creates an allocator over a size-byte arena that records
// no call paths.
func newTestAllocator(t testing.TB, size int) (*Allocator, *heap.Arena, *eventLog) {
	t.Helper()
	return newTestAllocatorWith(t, size, trace.NoSymbol{})
}

func newTestAllocatorWith(t testing.TB, size int, c trace.Capturer) (*Allocator, *heap.Arena, *eventLog) {
	t.Helper()
	arena, err := heap.FromBytes(make([]byte, size), 0)
	require.NoError(t, err)
	log := &eventLog{}
	a, err := New(arena, &Options{Capturer: c, Logger: quietLogger(), OnEvent: log.record})
	require.NoError(t, err)
	return a, arena, log
}

func mustAlloc(t testing.TB, a *Allocator, n int) Handle {
	t.Helper()
	h, err := a.Allocate(n)
	require.NoError(t, err, "Allocate(%d)", n)
	require.NotEqual(t, Nil, h, "Allocate(%d)", n)
	return h
}

func fill(p []byte, b byte) {
	for i := range p {
		p[i] = b
	}
}

// requireValid runs every layout check against the arena.
func requireValid(t testing.TB, arena *heap.Arena) {
	t.Helper()
	require.NoError(t, verify.Arena(arena.Region(), arena.End()))
}

// capacityOf reads a block's capacity through the dump, the way a caller
// without header access would.
func capacityOf(t testing.TB, a *Allocator, h Handle) int {
	t.Helper()
	for _, b := range a.HeapDump("").Blocks {
		if b.Handle == h {
			return b.Capacity
		}
	}
	t.Fatalf("no block with handle %d", h)
	return 0
}

func newArena(t testing.TB, size int) *heap.Arena {
	t.Helper()
	arena, err := heap.FromBytes(make([]byte, size), 0)
	require.NoError(t, err)
	return arena
}

func textLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
