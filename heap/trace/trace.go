// Package trace captures and names call paths for allocation provenance.
//
// The allocator only needs two things: a list of return addresses recorded
// at allocation time, and a way to turn one of those addresses back into a
// function name and offset when a leak or corruption is reported. Capturer
// abstracts both so tests can swap in NoSymbol and get deterministic output.
package trace

import (
	"fmt"
	"runtime"
	"strings"
)

// UnknownName is reported for addresses that cannot be symbolized.
const UnknownName = "???"

// Frame is one captured call-path entry.
type Frame struct {
	PC     uint64 `json:"pc"`
	Name   string `json:"name"`
	Offset uint64 `json:"offset"`
}

// String renders the frame as "0x<pc> at <name>+<offset>".
func (f Frame) String() string {
	return fmt.Sprintf("0x%x at %s+%d", f.PC, f.Name, f.Offset)
}

// Capturer records and resolves call paths. Implementations must not call
// back into the allocator.
type Capturer interface {
	// Capture returns up to max frames, innermost first.
	Capture(max int) []Frame
	// Resolve names a previously captured program counter.
	Resolve(pc uint64) Frame
}

// Runtime captures frames with runtime.Callers.
type Runtime struct {
	skipPrefixes []string
}

// NewRuntime returns a capturer that drops leading frames whose function
// name starts with any of the given prefixes, so the first recorded frame is
// the allocator's caller rather than the allocator itself.
func NewRuntime(skipPrefixes ...string) *Runtime {
	return &Runtime{skipPrefixes: skipPrefixes}
}

// Capture implements Capturer.
func (r *Runtime) Capture(max int) []Frame {
	if max <= 0 {
		return nil
	}
	// Skip runtime.Callers and Capture itself.
	var pcs [32]uintptr
	n := runtime.Callers(2, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	out := make([]Frame, 0, max)
	leading := true
	for len(out) < max {
		f, more := frames.Next()
		if f.PC != 0 {
			if leading && r.skipped(f.Function) {
				if !more {
					break
				}
				continue
			}
			leading = false
			out = append(out, Frame{
				PC:     uint64(f.PC),
				Name:   f.Function,
				Offset: uint64(f.PC - f.Entry),
			})
		}
		if !more {
			break
		}
	}
	return out
}

// Resolve implements Capturer.
func (r *Runtime) Resolve(pc uint64) Frame {
	fn := runtime.FuncForPC(uintptr(pc))
	if fn == nil {
		return Frame{PC: pc, Name: UnknownName}
	}
	return Frame{
		PC:     pc,
		Name:   fn.Name(),
		Offset: pc - uint64(fn.Entry()),
	}
}

func (r *Runtime) skipped(name string) bool {
	if strings.HasPrefix(name, "runtime.") {
		return true
	}
	for _, p := range r.skipPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// NoSymbol records nothing and names everything UnknownName. It keeps tests
// and reports independent of inlining and build flags.
type NoSymbol struct{}

// Capture implements Capturer.
func (NoSymbol) Capture(int) []Frame { return nil }

// Resolve implements Capturer.
func (NoSymbol) Resolve(pc uint64) Frame { return Frame{PC: pc, Name: UnknownName} }

// PCs extracts the program counters from frames.
func PCs(frames []Frame) []uint64 {
	pcs := make([]uint64, len(frames))
	for i, f := range frames {
		pcs[i] = f.PC
	}
	return pcs
}

// ResolveAll names every non-zero program counter in pcs, stopping at the
// first empty slot.
func ResolveAll(c Capturer, pcs []uint64) []Frame {
	out := make([]Frame, 0, len(pcs))
	for _, pc := range pcs {
		if pc == 0 {
			break
		}
		out = append(out, c.Resolve(pc))
	}
	return out
}
