package alloc

// Stats holds allocator counters. They are reporting-only and never steer
// allocation decisions.
type Stats struct {
	AllocCalls      int   `json:"alloc_calls"`      // Total Allocate calls, zero-size included
	FreeCalls       int   `json:"free_calls"`       // Total Release calls, Nil included
	ResizeCalls     int   `json:"resize_calls"`     // Total Resize calls
	BytesAllocated  int64 `json:"bytes_allocated"`  // Normalized bytes granted by successful allocations
	ReuseHits       int   `json:"reuse_hits"`       // Allocations served from a free block
	GrowCalls       int   `json:"grow_calls"`       // Allocations that extended the arena
	GrowBytes       int64 `json:"grow_bytes"`       // Bytes added through Extend
	Exhausted       int   `json:"exhausted"`        // Allocations refused for lack of space
	CoalesceForward int   `json:"coalesce_forward"` // Free blocks absorbed on release
	InPlaceGrowths  int   `json:"in_place_growths"` // Resizes satisfied without moving
	Relocations     int   `json:"relocations"`      // Resizes that moved the payload
	GuardViolations int   `json:"guard_violations"` // Releases with a damaged guard
	InvalidReleases int   `json:"invalid_releases"` // Releases of handles that were not live
}
