// Package verify checks the structural invariants of an arena's block layout.
//
// # Overview
//
// The allocator never validates the arena as a whole; it trusts its own
// bookkeeping. This package walks a layout independently and reports the
// first thing that does not hold. It is used in tests after every mutation
// and by heapctl after running a workload.
//
// Validation categories:
//   - Tiling: blocks are contiguous, start at 0 and the last one ends at end
//   - Fields: capacities are non-zero multiples of 8, states are 0 or 1
//   - Guards: both guards of every allocated block hold GuardValue
//
// # Quick Start
//
//	if err := verify.Arena(arena.Region(), arena.End()); err != nil {
//	    fmt.Printf("Validation failed: %v\n", err)
//	}
//
// # ValidationError
//
// All validation functions return *ValidationError on failure:
//
//	var verr *verify.ValidationError
//	if errors.As(err, &verr) {
//	    fmt.Printf("Type: %s\n", verr.Type)
//	    fmt.Printf("Offset: 0x%X\n", verr.Offset)
//	    fmt.Printf("Message: %s\n", verr.Message)
//	}
//
// Guard failures carry the observed values in Details under "near_guard"
// and "far_guard".
package verify
