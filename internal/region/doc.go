// Package region reserves the fixed byte range that backs a heap arena.
//
// The reservation is made once and never moves, so offsets handed out by the
// allocator stay valid for the life of the region. On unix the range is an
// anonymous private mapping, on windows a VirtualAlloc'd range, and elsewhere
// an ordinary Go byte slice.
package region
