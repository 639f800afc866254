// Package heap owns the byte arena a debugging allocator carves blocks from.
//
// # Overview
//
// An Arena is a single fixed reservation. The usable part grows upward from
// offset 0 through Extend, which plays the role of sbrk: it returns the
// current high-water mark and advances it, or refuses when the request would
// run into the reserved tail at the top of the region. Nothing is ever handed
// back; freed space is recycled by the allocator in heap/alloc.
//
//	[block 0][block 1] ... [block N] | unused | reserved tail |
//	0                               End      Limit           len(Region)
//
// Every block is a format.HeaderSize header followed by its payload. Blocks
// tile [0, End) with no gaps, so the arena can be walked with Blocks.
//
// # Thread Safety
//
// Arena is not thread-safe. The allocator built on it assumes one caller at a
// time and must not be entered from signal or interrupt context.
//
// # Related Packages
//
//   - github.com/joshuapare/heapkit/heap/alloc: allocation, release and resize
//   - github.com/joshuapare/heapkit/heap/verify: arena invariant checks
//   - github.com/joshuapare/heapkit/internal/format: block layout
package heap
