/*
Package malloc provides a process-wide allocator with a malloc-style API.

# Quick Start

	h := malloc.Malloc(64)
	copy(malloc.Bytes(h), "hello")
	h = malloc.Realloc(h, 128)
	malloc.Free(h)

The first call reserves an arena with heap.DefaultConfig. Call Init before
any allocation to size it differently:

	if err := malloc.Init(heap.Config{Size: 1 << 20}, nil); err != nil {
	    log.Fatal(err)
	}

# Errors

Malloc and Realloc return alloc.Nil when the arena is exhausted; a failed
Realloc leaves the original allocation untouched. Free never fails: guard
damage and invalid releases are reported through the allocator's event
sink, which logs them by default. Use Default to reach the underlying
*alloc.Allocator for error returns and statistics.

# Leak Checks

	defer func() {
	    printer.New(os.Stderr, printer.DefaultOptions()).PrintReport(malloc.MemoryReport())
	}()

# Thread Safety

None. The package-level allocator must only be used from one goroutine.
*/
package malloc
