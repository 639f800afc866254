package alloc

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"reflect"
	"runtime"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/joshuapare/heapkit/heap"
	"github.com/joshuapare/heapkit/heap/trace"
	"github.com/joshuapare/heapkit/internal/buf"
	"github.com/joshuapare/heapkit/internal/format"
)

// maxRequest keeps normalized capacities and handles inside 32 bits.
const maxRequest = math.MaxUint32 - format.HeaderSize - 2*format.Alignment

// Allocator is a first-fit, non-splitting, forward-coalescing allocator that
// stamps every block with guards and its allocation call path.
type Allocator struct {
	arena    Backing
	capturer trace.Capturer
	log      *slog.Logger
	onEvent  func(Event)

	// live holds the handle of every allocated block.
	live *roaring.Bitmap

	// seq numbers allocations; 0 means "never allocated".
	seq uint32

	stats Stats
}

// New creates an allocator over arena. Blocks already present in the arena
// are adopted: allocated ones become live handles, free ones are reusable.
func New(arena Backing, opts *Options) (*Allocator, error) {
	if arena == nil {
		return nil, errors.New("alloc: nil arena")
	}
	if opts == nil {
		opts = &Options{}
	}

	a := &Allocator{
		arena:    arena,
		capturer: opts.Capturer,
		log:      opts.Logger,
		onEvent:  opts.OnEvent,
		live:     roaring.New(),
	}
	if a.capturer == nil {
		a.capturer = trace.NewRuntime(FramePrefix())
	}
	if a.log == nil {
		a.log = defaultLogger()
	}

	if err := a.adopt(); err != nil {
		return nil, err
	}
	return a, nil
}

// FramePrefix returns the function-name prefix shared by the Allocator's
// methods. The default capturer skips frames carrying it so recorded call
// paths start at the caller. Wrappers add their own prefix next to it.
func FramePrefix() string {
	name := runtime.FuncForPC(reflect.ValueOf((*Allocator).Allocate).Pointer()).Name()
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[:i+1]
	}
	return name
}

// adopt scans an existing layout into the live set.
func (a *Allocator) adopt() error {
	it := heap.Blocks(a.arena.Bytes())
	for {
		blk, err := it.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("alloc: existing arena layout: %w", err)
		}
		if blk.Allocated() {
			a.live.Add(uint32(blk.Handle()))
		}
		a.seq = max(a.seq, blk.Seq)
	}
}

// Allocate returns a handle to at least n usable bytes. Allocate(0) returns
// (Nil, nil). When neither a free block nor arena growth can satisfy the
// request it returns (Nil, ErrNoSpace).
func (a *Allocator) Allocate(n int) (Handle, error) {
	a.stats.AllocCalls++
	if n < 0 {
		return Nil, ErrNegativeSize
	}
	if n == 0 {
		return Nil, nil
	}
	if uint64(n) > maxRequest {
		a.stats.Exhausted++
		return Nil, ErrNoSpace
	}
	need := format.RequestCapacity(n)

	if off, ok := a.firstFit(need); ok {
		a.stats.ReuseHits++
		a.log.Debug("alloc: reuse", "request", n, "need", need,
			"offset", off, "capacity", format.Capacity(a.arena.Bytes(), off))
		return a.claim(off, need), nil
	}

	off, ok := a.arena.Extend(need + format.HeaderSize)
	if !ok {
		a.stats.Exhausted++
		a.log.Debug("alloc: arena exhausted", "request", n, "need", need)
		return Nil, ErrNoSpace
	}
	a.stats.GrowCalls++
	a.stats.GrowBytes += int64(need + format.HeaderSize)
	a.log.Debug("alloc: grow", "request", n, "need", need, "offset", off)

	format.PutCapacity(a.arena.Bytes(), off, need)
	return a.claim(off, need), nil
}

// Release returns h's block to the free pool. Releasing Nil is a no-op.
//
// Damaged guards are reported through the event sink and do not stop the
// release. A handle that is not live is reported as EventInvalidRelease and
// ErrBadRef is returned without touching the arena.
func (a *Allocator) Release(h Handle) error {
	a.stats.FreeCalls++
	if h == Nil {
		return nil
	}
	off, err := a.lookup(h)
	if err != nil {
		return err
	}
	a.free(off, true)
	return nil
}

// Resize changes the usable size of h to at least n bytes and returns the
// handle that now owns the data.
//
//   - n == 0 releases h and returns Nil.
//   - h == Nil allocates n bytes.
//   - A request that already fits returns h unchanged; blocks never shrink.
//   - Otherwise following free blocks are absorbed in place when they add up
//     to enough room, keeping h.
//   - Failing that, the data moves to a new block and h is released. If that
//     allocation fails, h is left untouched and ErrNoSpace is returned.
func (a *Allocator) Resize(h Handle, n int) (Handle, error) {
	a.stats.ResizeCalls++
	if n < 0 {
		return Nil, ErrNegativeSize
	}
	if n == 0 {
		return Nil, a.Release(h)
	}
	if h == Nil {
		return a.Allocate(n)
	}

	off, err := a.lookup(h)
	if err != nil {
		return Nil, err
	}
	if uint64(n) > maxRequest {
		a.stats.Exhausted++
		return Nil, ErrNoSpace
	}
	need := format.RequestCapacity(n)
	oldCap := format.Capacity(a.arena.Bytes(), off)
	if need <= oldCap {
		return h, nil
	}

	// The far guard is about to move or the block is about to be freed;
	// either way this is the last chance to notice it was overwritten.
	a.checkGuards(off)

	if a.growInPlace(off, need) {
		a.stats.InPlaceGrowths++
		a.log.Debug("alloc: grew in place", "handle", h, "from", oldCap,
			"to", format.Capacity(a.arena.Bytes(), off))
		return h, nil
	}

	nh, err := a.Allocate(n)
	if err != nil {
		return Nil, err
	}
	data := a.arena.Bytes()
	keep := min(format.Usable(oldCap), n)
	copy(data[int(nh):int(nh)+keep], data[int(h):int(h)+keep])
	a.free(off, false)

	a.stats.Relocations++
	a.log.Debug("alloc: relocated", "from", h, "to", nh, "copied", keep)
	return nh, nil
}

// Payload returns the usable bytes of a live handle, or nil. The slice's
// capacity is clipped so append cannot run into the far guard.
func (a *Allocator) Payload(h Handle) []byte {
	if !a.IsLive(h) {
		return nil
	}
	data := a.arena.Bytes()
	start := int(h)
	end := start + format.Usable(format.Capacity(data, format.HeaderOffset(start)))
	return data[start:end:end]
}

// Usable returns how many bytes the caller may use through h, or 0 when h is
// not live.
func (a *Allocator) Usable(h Handle) int {
	return len(a.Payload(h))
}

// IsLive reports whether h names a block that is currently allocated.
func (a *Allocator) IsLive(h Handle) bool {
	return h != Nil && a.live.Contains(uint32(h))
}

// Live returns the number of live allocations.
func (a *Allocator) Live() int {
	return int(a.live.GetCardinality())
}

// Stats returns a copy of the allocator counters.
func (a *Allocator) Stats() Stats {
	return a.stats
}

// firstFit returns the first free block whose capacity is strictly larger
// than need.
func (a *Allocator) firstFit(need int) (int, bool) {
	data := a.arena.Bytes()
	for off := 0; buf.Has(data, off, format.HeaderSize); off = format.NextOffset(data, off) {
		capacity := format.Capacity(data, off)
		if capacity == 0 {
			return 0, false
		}
		if format.State(data, off) == format.StateFree && capacity > need {
			return off, true
		}
	}
	return 0, false
}

// claim marks the block at off allocated and stamps guards and provenance.
func (a *Allocator) claim(off, need int) Handle {
	data := a.arena.Bytes()
	format.PutState(data, off, format.StateAllocated)
	a.stamp(off)
	format.StampGuards(data, off)

	h := Handle(format.PayloadOffset(off))
	a.live.Add(uint32(h))
	a.stats.BytesAllocated += int64(need)
	return h
}

// stamp records a fresh sequence number and call path on the block at off.
func (a *Allocator) stamp(off int) {
	data := a.arena.Bytes()
	a.seq++
	format.PutSeq(data, off, a.seq)
	format.PutTrace(data, off, trace.PCs(a.capturer.Capture(format.TraceDepth)))
}

// lookup resolves a handle to its header offset, reporting stale or wild
// handles.
func (a *Allocator) lookup(h Handle) (int, error) {
	off := format.HeaderOffset(int(h))
	if !a.IsLive(h) || !buf.Has(a.arena.Bytes(), off, format.HeaderSize) {
		a.stats.InvalidReleases++
		a.emit(Event{Kind: EventInvalidRelease, Handle: h})
		return 0, fmt.Errorf("%w: %d is not a live allocation", ErrBadRef, h)
	}
	return off, nil
}

// free marks the block at off free and absorbs the free blocks after it.
func (a *Allocator) free(off int, checkGuards bool) {
	if checkGuards {
		a.checkGuards(off)
	}
	data := a.arena.Bytes()
	format.PutState(data, off, format.StateFree)
	a.live.Remove(uint32(format.PayloadOffset(off)))
	a.coalesceForward(off)
}

// coalesceForward merges every free block that directly follows off into it.
func (a *Allocator) coalesceForward(off int) {
	data := a.arena.Bytes()
	capacity := format.Capacity(data, off)
	for {
		next := off + format.HeaderSize + capacity
		if !buf.Has(data, next, format.HeaderSize) || format.State(data, next) != format.StateFree {
			break
		}
		nextCap := format.Capacity(data, next)
		if nextCap == 0 {
			break
		}
		capacity += nextCap + format.HeaderSize
		a.stats.CoalesceForward++
	}
	format.PutCapacity(data, off, capacity)
}

// growInPlace extends the allocated block at off over the free blocks that
// follow it until its capacity reaches need. Nothing changes if the run of
// free blocks is too short.
func (a *Allocator) growInPlace(off, need int) bool {
	data := a.arena.Bytes()
	total := format.Capacity(data, off)
	next := format.NextOffset(data, off)
	for total < need {
		if !buf.Has(data, next, format.HeaderSize) || format.State(data, next) != format.StateFree {
			return false
		}
		nextCap := format.Capacity(data, next)
		if nextCap == 0 {
			return false
		}
		total += nextCap + format.HeaderSize
		next = format.NextOffset(data, next)
	}

	format.PutCapacity(data, off, total)
	format.PutU32(data, format.FarGuardOffset(off, total), format.GuardValue)
	a.stamp(off)
	return true
}

// checkGuards reports the block at off if either guard was overwritten.
func (a *Allocator) checkGuards(off int) {
	blk, err := format.ParseBlock(a.arena.Bytes(), off)
	if err == nil && blk.GuardsIntact() {
		return
	}
	a.stats.GuardViolations++
	a.emit(Event{
		Kind:      EventGuardCorruption,
		Handle:    Handle(format.PayloadOffset(off)),
		Capacity:  blk.Capacity,
		NearGuard: blk.NearGuard,
		FarGuard:  blk.FarGuard,
		Seq:       blk.Seq,
		Frames:    trace.ResolveAll(a.capturer, blk.Trace[:]),
	})
}

func (a *Allocator) emit(ev Event) {
	if a.onEvent != nil {
		a.onEvent(ev)
		return
	}
	a.log.Warn("alloc: "+ev.Kind.String(),
		"handle", ev.Handle,
		"capacity", ev.Capacity,
		"near_guard", fmt.Sprintf("0x%08X", ev.NearGuard),
		"far_guard", fmt.Sprintf("0x%08X", ev.FarGuard),
		"frames", ev.Frames)
}
