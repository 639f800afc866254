package alloc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heapkit/heap/trace"
	"github.com/joshuapare/heapkit/internal/format"
)

var testFrames = []trace.Frame{
	{PC: 0x8000, Name: "parseRequest", Offset: 16},
	{PC: 0x8100, Name: "serve", Offset: 40},
	{PC: 0x8200, Name: "main", Offset: 8},
}

// TestRelease_NearGuardCorruption writes one byte before the payload.
func TestRelease_NearGuardCorruption(t *testing.T) {
	a, arena, log := newTestAllocatorWith(t, 1024, fixedCapturer{frames: testFrames})

	h := mustAlloc(t, a, 5)
	arena.Bytes()[h-1] = 0x45

	require.NoError(t, a.Release(h), "corruption is reported, not returned")
	require.False(t, a.IsLive(h), "the release still completes")

	require.Len(t, log.events, 1)
	ev := log.events[0]
	require.Equal(t, EventGuardCorruption, ev.Kind)
	require.Equal(t, h, ev.Handle)
	require.Equal(t, uint32(0x45FDFDFD), ev.NearGuard)
	require.Equal(t, format.GuardValue, ev.FarGuard)
	require.Equal(t, 16, ev.Capacity)
	require.Equal(t, uint32(1), ev.Seq)
	require.Equal(t, testFrames, ev.Frames)
	require.Equal(t, 1, a.Stats().GuardViolations)
}

// TestRelease_FarGuardCorruption writes the byte right after the usable bytes.
func TestRelease_FarGuardCorruption(t *testing.T) {
	a, arena, log := newTestAllocatorWith(t, 1024, fixedCapturer{frames: testFrames})

	h := mustAlloc(t, a, 12)
	require.Equal(t, 12, a.Usable(h))
	arena.Bytes()[int(h)+a.Usable(h)] = 0x45

	require.NoError(t, a.Release(h))
	require.False(t, a.IsLive(h))
	require.Len(t, log.events, 1)
	ev := log.events[0]
	require.Equal(t, EventGuardCorruption, ev.Kind)
	require.Equal(t, h, ev.Handle)
	require.Equal(t, format.GuardValue, ev.NearGuard)
	require.Equal(t, uint32(0xFDFDFD45), ev.FarGuard)
	require.Equal(t, 16, ev.Capacity)
	require.Equal(t, uint32(1), ev.Seq)
	require.Equal(t, testFrames, ev.Frames)
}

func TestRelease_PayloadWritesAreClean(t *testing.T) {
	a, _, log := newTestAllocator(t, 1024)

	h := mustAlloc(t, a, 9)
	fill(a.Payload(h), 'a')
	require.NoError(t, a.Release(h))
	require.Empty(t, log.events)
}

// TestRelease_CorruptedBlockIsReusable checks that a reported block goes
// back to the pool with fresh guards.
func TestRelease_CorruptedBlockIsReusable(t *testing.T) {
	a, arena, log := newTestAllocator(t, 1024)

	h := mustAlloc(t, a, 20)
	_ = mustAlloc(t, a, 8)
	arena.Bytes()[int(h)+a.Usable(h)] = 0
	require.NoError(t, a.Release(h))
	require.Len(t, log.events, 1)

	again := mustAlloc(t, a, 8)
	require.Equal(t, h, again)
	requireValid(t, arena)
	require.NoError(t, a.Release(again))
	require.Len(t, log.events, 1)
}

// TestResize_ReportsCorruptionOnce checks that a damaged block is reported
// when it is moved and not again when the new block is released.
func TestResize_ReportsCorruptionOnce(t *testing.T) {
	a, arena, log := newTestAllocator(t, 1024)

	h := mustAlloc(t, a, 8)
	_ = mustAlloc(t, a, 8)
	arena.Bytes()[int(h)+a.Usable(h)] = 0

	nh, err := a.Resize(h, 64)
	require.NoError(t, err)
	require.NotEqual(t, h, nh)
	require.Len(t, log.events, 1)
	require.Equal(t, h, log.events[0].Handle)

	require.NoError(t, a.Release(nh))
	require.Len(t, log.events, 1)
}

func TestResize_InPlaceReportsCorruption(t *testing.T) {
	a, arena, log := newTestAllocator(t, 1024)

	h := mustAlloc(t, a, 8)
	next := mustAlloc(t, a, 64)
	require.NoError(t, a.Release(next))
	arena.Bytes()[int(h)-2] = 0

	got, err := a.Resize(h, 40)
	require.NoError(t, err)
	require.Equal(t, h, got)
	require.Len(t, log.events, 1)
	require.Equal(t, EventGuardCorruption, log.events[0].Kind)
}

// TestEvents_DefaultSinkLogs checks that events reach the logger when no
// sink is configured.
func TestEvents_DefaultSinkLogs(t *testing.T) {
	var out strings.Builder
	arena := newArena(t, 1024)
	a, err := New(arena, &Options{Capturer: trace.NoSymbol{}, Logger: textLogger(&out)})
	require.NoError(t, err)

	h := mustAlloc(t, a, 8)
	arena.Bytes()[h-1] = 0
	require.NoError(t, a.Release(h))
	require.ErrorIs(t, a.Release(h), ErrBadRef)

	logged := out.String()
	require.Contains(t, logged, "guard-corruption")
	require.Contains(t, logged, "near_guard=0x00FDFDFD")
	require.Contains(t, logged, "invalid-release")
}

//go:noinline
func allocateForProvenance(a *Allocator) (Handle, error) {
	return a.Allocate(24)
}

// TestRuntimeCapturer_RecordsCaller checks that the default capturer names
// the function that called Allocate, not the allocator.
func TestRuntimeCapturer_RecordsCaller(t *testing.T) {
	arena := newArena(t, 1024)
	a, err := New(arena, &Options{Logger: quietLogger()})
	require.NoError(t, err)

	h, err := allocateForProvenance(a)
	require.NoError(t, err)

	leaks := a.MemoryReport().Leaks
	require.Len(t, leaks, 1)
	require.Equal(t, h, leaks[0].Handle)
	require.NotEmpty(t, leaks[0].Frames)
	require.True(t, strings.HasSuffix(leaks[0].Frames[0].Name, ".allocateForProvenance"),
		"first frame %q", leaks[0].Frames[0].Name)
	for _, f := range leaks[0].Frames {
		require.NotContains(t, f.Name, "(*Allocator)")
	}
}

func TestFramePrefix(t *testing.T) {
	require.True(t, strings.HasSuffix(FramePrefix(), "/heap/alloc.(*Allocator)."), FramePrefix())
}
