package format

import (
	"fmt"

	"github.com/joshuapare/heapkit/internal/buf"
)

// Block is a decoded view of one block header plus its far guard. It is a
// copy; mutating it does not touch the arena.
type Block struct {
	Offset    int // Offset of the header within the arena
	Capacity  int // Payload capacity, far guard included
	State     uint32
	Seq       uint32
	Trace     [TraceDepth]uint64
	NearGuard uint32
	FarGuard  uint32
}

// Allocated reports whether the block is handed out.
func (b Block) Allocated() bool { return b.State == StateAllocated }

// Handle returns the payload offset, which is what callers hold.
func (b Block) Handle() int { return PayloadOffset(b.Offset) }

// End returns the offset of the following block header.
func (b Block) End() int { return b.Offset + HeaderSize + b.Capacity }

// GuardsIntact reports whether both guards still hold GuardValue.
func (b Block) GuardsIntact() bool {
	return b.NearGuard == GuardValue && b.FarGuard == GuardValue
}

// HeaderOffset converts a payload handle to the offset of its header. This is
// the only place the handle-to-metadata arithmetic lives.
func HeaderOffset(handle int) int {
	return handle - HeaderSize
}

// PayloadOffset converts a header offset to the handle given to callers.
func PayloadOffset(off int) int {
	return off + HeaderSize
}

// FarGuardOffset returns where the far guard of a block at off with the given
// capacity lives: the last GuardSize bytes of the payload.
func FarGuardOffset(off, capacity int) int {
	return off + HeaderSize + capacity - GuardSize
}

// ParseBlock decodes the block header at off. A zero capacity is reported as
// ErrZeroCapacity alongside the partially decoded block so walkers can stop
// without looping forever.
func ParseBlock(b []byte, off int) (Block, error) {
	hdr, ok := buf.Slice(b, off, HeaderSize)
	if !ok {
		return Block{}, fmt.Errorf("block at %d: %w", off, ErrTruncated)
	}
	if off%Alignment != 0 {
		return Block{}, fmt.Errorf("block at %d: %w", off, ErrMisaligned)
	}
	blk := Block{
		Offset:    off,
		Capacity:  int(buf.U32LE(hdr[CapacityOffset:])),
		State:     buf.U32LE(hdr[StateOffset:]),
		Seq:       buf.U32LE(hdr[SeqOffset:]),
		NearGuard: buf.U32LE(hdr[NearGuardOffset:]),
	}
	for i := 0; i < TraceDepth; i++ {
		blk.Trace[i] = buf.U64LE(hdr[TraceOffset+i*TraceEntrySize:])
	}
	if blk.Capacity == 0 {
		return blk, fmt.Errorf("block at %d: %w", off, ErrZeroCapacity)
	}
	if blk.Capacity < GuardSize {
		return blk, fmt.Errorf("block at %d: capacity %d below guard size: %w", off, blk.Capacity, ErrTruncated)
	}
	guard, ok := buf.Slice(b, FarGuardOffset(off, blk.Capacity), GuardSize)
	if !ok {
		return blk, fmt.Errorf("block at %d: payload of %d bytes: %w", off, blk.Capacity, ErrTruncated)
	}
	blk.FarGuard = buf.U32LE(guard)
	return blk, nil
}

// Capacity reads the payload capacity of the block at off.
func Capacity(b []byte, off int) int {
	return int(ReadU32(b, off+CapacityOffset))
}

// State reads the state field of the block at off.
func State(b []byte, off int) uint32 {
	return ReadU32(b, off+StateOffset)
}

// NextOffset returns the header offset that follows the block at off.
func NextOffset(b []byte, off int) int {
	return off + HeaderSize + Capacity(b, off)
}

// PutCapacity writes the capacity field of the block at off.
func PutCapacity(b []byte, off, capacity int) {
	PutU32(b, off+CapacityOffset, uint32(capacity))
}

// PutState writes the state field of the block at off.
func PutState(b []byte, off int, state uint32) {
	PutU32(b, off+StateOffset, state)
}

// PutSeq writes the allocation sequence number of the block at off.
func PutSeq(b []byte, off int, seq uint32) {
	PutU32(b, off+SeqOffset, seq)
}

// PutTrace records up to TraceDepth program counters; missing slots are zeroed.
func PutTrace(b []byte, off int, pcs []uint64) {
	for i := 0; i < TraceDepth; i++ {
		var pc uint64
		if i < len(pcs) {
			pc = pcs[i]
		}
		PutU64(b, off+TraceOffset+i*TraceEntrySize, pc)
	}
}

// StampGuards writes GuardValue into the near guard and into the far guard
// derived from the block's current capacity.
func StampGuards(b []byte, off int) {
	PutU32(b, off+NearGuardOffset, GuardValue)
	PutU32(b, FarGuardOffset(off, Capacity(b, off)), GuardValue)
}
