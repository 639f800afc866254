package alloc

import (
	"errors"
	"io"

	"github.com/joshuapare/heapkit/heap"
	"github.com/joshuapare/heapkit/heap/trace"
	"github.com/joshuapare/heapkit/internal/format"
)

// BlockRecord is one line of a heap dump.
type BlockRecord struct {
	Offset   int    `json:"offset"`
	Handle   Handle `json:"handle"`
	Capacity int    `json:"capacity"`
	Usable   int    `json:"usable"`
	State    string `json:"state"`
	Seq      uint32 `json:"seq,omitempty"`
}

// Dump is a snapshot of every block in the arena.
type Dump struct {
	Label  string        `json:"label"`
	End    int           `json:"end"`
	Blocks []BlockRecord `json:"blocks"`
	// Truncated is set when the walk stopped at a damaged or zero-capacity
	// header before reaching End.
	Truncated bool `json:"truncated,omitempty"`
}

// Leak is an allocated block together with the call path that allocated it.
type Leak struct {
	Handle   Handle        `json:"handle"`
	Capacity int           `json:"capacity"`
	Usable   int           `json:"usable"`
	Seq      uint32        `json:"seq"`
	Frames   []trace.Frame `json:"frames"`
}

// Report is the allocator's end-of-run summary.
type Report struct {
	Stats Stats  `json:"stats"`
	Live  int    `json:"live"`
	End   int    `json:"end"`
	Leaks []Leak `json:"leaks"`
}

// LeakedBytes sums the usable size of every leak.
func (r Report) LeakedBytes() int {
	var total int
	for _, l := range r.Leaks {
		total += l.Usable
	}
	return total
}

// Checkpoint marks the current point in the allocation sequence. Pass it to
// MemoryReportSince to see only what was allocated afterwards.
type Checkpoint uint32

func stateName(state uint32) string {
	switch state {
	case format.StateFree:
		return "free"
	case format.StateAllocated:
		return "allocated"
	default:
		return "invalid"
	}
}

// HeapDump walks the arena and lists every block. It does not modify the
// arena. A zero-capacity block is listed and ends the walk.
func (a *Allocator) HeapDump(label string) Dump {
	data := a.arena.Bytes()
	d := Dump{Label: label, End: len(data)}

	it := heap.Blocks(data)
	for {
		blk, err := it.Next()
		if errors.Is(err, io.EOF) {
			return d
		}
		if err != nil {
			if errors.Is(err, format.ErrZeroCapacity) {
				d.Blocks = append(d.Blocks, record(blk))
			}
			d.Truncated = true
			return d
		}
		d.Blocks = append(d.Blocks, record(blk))
	}
}

func record(blk format.Block) BlockRecord {
	r := BlockRecord{
		Offset:   blk.Offset,
		Handle:   Handle(blk.Handle()),
		Capacity: blk.Capacity,
		Usable:   format.Usable(blk.Capacity),
		State:    stateName(blk.State),
	}
	if blk.Allocated() {
		r.Seq = blk.Seq
	}
	return r
}

// MemoryReport lists every allocated block with its resolved call path.
func (a *Allocator) MemoryReport() Report {
	return a.report(func(uint32) bool { return true })
}

// Checkpoint returns the latest allocation sequence number.
func (a *Allocator) Checkpoint() Checkpoint {
	return Checkpoint(a.seq)
}

// MemoryReportSince is MemoryReport restricted to blocks allocated (or grown
// in place) after cp.
func (a *Allocator) MemoryReportSince(cp Checkpoint) Report {
	return a.report(func(seq uint32) bool { return seq > uint32(cp) })
}

// report lists the live blocks whose sequence number passes keep.
func (a *Allocator) report(keep func(seq uint32) bool) Report {
	data := a.arena.Bytes()
	r := Report{
		Stats: a.stats,
		Live:  a.Live(),
		End:   len(data),
		Leaks: []Leak{},
	}

	it := a.live.Iterator()
	for it.HasNext() {
		h := it.Next()
		blk, err := format.ParseBlock(data, format.HeaderOffset(int(h)))
		if err != nil && !errors.Is(err, format.ErrZeroCapacity) {
			continue
		}
		if !keep(blk.Seq) {
			continue
		}
		r.Leaks = append(r.Leaks, Leak{
			Handle:   Handle(h),
			Capacity: blk.Capacity,
			Usable:   format.Usable(blk.Capacity),
			Seq:      blk.Seq,
			Frames:   trace.ResolveAll(a.capturer, blk.Trace[:]),
		})
	}
	return r
}
