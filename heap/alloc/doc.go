// Package alloc implements a debugging heap allocator over a heap.Arena.
//
// # Overview
//
// Every allocation is a block: a 40-byte header (capacity, state, call path,
// sequence number, near guard) followed by the payload, whose final four
// bytes are the far guard. Callers hold a Handle, the offset of the first
// payload byte, and never see the header.
//
//	[cap|state|pc0 pc1 pc2|seq|NEAR][ payload ............ |FAR]
//	                                ^ handle
//
// # Allocation Policy
//
//   - Allocate rounds n+4 up to 8 and claims the FIRST free block whose
//     capacity is strictly larger. The block is not split: the whole capacity
//     goes to the new owner.
//   - On a miss the arena is extended by exactly one block.
//   - Release coalesces forward only: following free blocks are absorbed,
//     a free block in front of the released one is left alone until it is
//     itself released or grown.
//   - Resize never shrinks. It first tries to absorb following free blocks
//     in place and otherwise moves the payload to a fresh block.
//
// # Diagnostics
//
// Guards are checked on Release. A damaged guard produces an Event carrying
// the block's allocation call path; the release still completes. Releasing
// a handle that is not live (double free, stale or wild handle) produces an
// EventInvalidRelease and leaves the arena untouched.
//
// HeapDump lists every block; MemoryReport lists every block still
// allocated, with its call path, and is meant for shutdown or test teardown.
//
// # Usage Example
//
//	arena, err := heap.New(heap.DefaultConfig)
//	if err != nil {
//	    return err
//	}
//	a, err := alloc.New(arena, nil)
//	if err != nil {
//	    return err
//	}
//
//	h, err := a.Allocate(64)
//	if err != nil {
//	    return err // alloc.ErrNoSpace
//	}
//	copy(a.Payload(h), "hello")
//	_ = a.Release(h)
//
// # Thread Safety
//
// Allocator instances are not thread-safe and take no locks. Callers must
// not enter the allocator from more than one goroutine or from a signal
// handler.
package alloc
