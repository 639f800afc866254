package malloc

import (
	"fmt"
	"reflect"
	"runtime"

	"github.com/joshuapare/heapkit/heap"
	"github.com/joshuapare/heapkit/heap/alloc"
	"github.com/joshuapare/heapkit/heap/trace"
)

var (
	arena     *heap.Arena
	allocator *alloc.Allocator
)

// Init replaces the process-wide allocator with one over a fresh arena of
// the given size. A previous arena is released, so handles obtained before
// Init are invalid afterwards. A nil opts records call paths starting at
// the caller of Malloc or Realloc.
func Init(cfg heap.Config, opts *alloc.Options) error {
	ar, err := heap.New(cfg)
	if err != nil {
		return err
	}
	o := alloc.Options{}
	if opts != nil {
		o = *opts
	}
	if o.Capturer == nil {
		o.Capturer = trace.NewRuntime(alloc.FramePrefix(), funcName(Malloc), funcName(Realloc))
	}
	a, err := alloc.New(ar, &o)
	if err != nil {
		_ = ar.Close()
		return err
	}
	if err := Reset(); err != nil {
		_ = ar.Close()
		return err
	}
	arena, allocator = ar, a
	return nil
}

// Reset drops the process-wide allocator and releases its arena. The next
// allocation creates a new default one.
func Reset() error {
	if arena == nil {
		return nil
	}
	err := arena.Close()
	arena, allocator = nil, nil
	return err
}

// Default returns the process-wide allocator, creating it with
// heap.DefaultConfig on first use. It panics if the arena cannot be
// reserved.
func Default() *alloc.Allocator {
	if allocator == nil {
		if err := Init(heap.DefaultConfig, nil); err != nil {
			panic(fmt.Sprintf("malloc: reserve default arena: %v", err))
		}
	}
	return allocator
}

// Malloc returns a handle to at least n usable bytes, or alloc.Nil when n
// is not positive or the arena is exhausted.
//
//go:noinline
func Malloc(n int) alloc.Handle {
	h, err := Default().Allocate(n)
	if err != nil {
		return alloc.Nil
	}
	return h
}

// Free releases h. Releasing alloc.Nil does nothing.
func Free(h alloc.Handle) {
	_ = Default().Release(h)
}

// Realloc resizes h to n bytes and returns the handle now owning the data.
// Realloc(Nil, n) is Malloc(n); Realloc(h, 0) is Free(h) and returns Nil.
// On exhaustion it returns Nil and h stays valid.
//
//go:noinline
func Realloc(h alloc.Handle, n int) alloc.Handle {
	nh, err := Default().Resize(h, n)
	if err != nil {
		return alloc.Nil
	}
	return nh
}

// Bytes returns the usable bytes of h, or nil when h is not live.
func Bytes(h alloc.Handle) []byte {
	return Default().Payload(h)
}

// HeapDump lists every block of the process-wide arena.
func HeapDump(label string) alloc.Dump {
	return Default().HeapDump(label)
}

// MemoryReport lists every live allocation of the process-wide allocator.
func MemoryReport() alloc.Report {
	return Default().MemoryReport()
}

func funcName(fn any) string {
	return runtime.FuncForPC(reflect.ValueOf(fn).Pointer()).Name()
}
