// Package format describes the in-arena block layout used by the heap
// allocator. Every allocation unit is a fixed 40-byte header followed by a
// payload region whose last four bytes hold the far guard.
//
// Header layout (little-endian):
//
//	Offset  Size  Description
//	0x00    4     Payload capacity in bytes (multiple of 8, includes far guard).
//	0x04    4     State. 0 => free, 1 => allocated.
//	0x08    24    Call path: three program counters, innermost first, 0 = empty.
//	0x20    4     Allocation sequence number.
//	0x24    4     Near guard.
//	0x28    ...   Payload. The final 4 bytes are the far guard.
package format

const (
	// HeaderSize is the number of bytes of metadata preceding every payload.
	HeaderSize = 0x28

	// CapacityOffset is the offset of the payload capacity field.
	CapacityOffset = 0x00

	// StateOffset is the offset of the block state field.
	StateOffset = 0x04

	// TraceOffset is the offset of the first recorded program counter.
	TraceOffset = 0x08

	// TraceDepth is the number of call-path frames stored per block.
	TraceDepth = 3

	// TraceEntrySize is the width of one recorded program counter.
	TraceEntrySize = 8

	// SeqOffset is the offset of the allocation sequence number.
	SeqOffset = 0x20

	// NearGuardOffset is the offset of the near guard, directly before the payload.
	NearGuardOffset = 0x24

	// GuardSize is the width of each guard marker.
	GuardSize = 4

	// GuardValue is the sentinel stamped into both guards of an allocated block.
	GuardValue uint32 = 0xFDFDFDFD

	// Alignment is the required alignment of block offsets and capacities.
	Alignment = 8

	// AlignmentMask is used to round sizes up to Alignment.
	AlignmentMask = Alignment - 1
)

// Block states as stored in the header.
const (
	StateFree      uint32 = 0
	StateAllocated uint32 = 1
)
