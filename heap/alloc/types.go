package alloc

import (
	"fmt"

	"github.com/joshuapare/heapkit/heap/trace"
)

// Handle is the arena offset of the first payload byte of an allocation.
type Handle uint32

// Nil is the "no allocation" handle. No block can produce it because every
// payload sits after at least one header.
const Nil Handle = 0

// Backing is the arena an Allocator carves blocks from. *heap.Arena
// implements it.
type Backing interface {
	// Bytes returns the in-use prefix of the arena.
	Bytes() []byte
	// Extend grows the in-use prefix by n bytes and returns the offset of the
	// first new byte, or false when the arena is exhausted.
	Extend(n int) (int, bool)
}

// EventKind classifies a diagnostic event.
type EventKind uint8

const (
	// EventGuardCorruption reports a release whose near or far guard was overwritten.
	EventGuardCorruption EventKind = iota + 1
	// EventInvalidRelease reports a release or resize of a handle that is not live.
	EventInvalidRelease
)

func (k EventKind) String() string {
	switch k {
	case EventGuardCorruption:
		return "guard-corruption"
	case EventInvalidRelease:
		return "invalid-release"
	default:
		return fmt.Sprintf("event(%d)", uint8(k))
	}
}

// MarshalText renders the kind by name in JSON output.
func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses a name produced by MarshalText.
func (k *EventKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "guard-corruption":
		*k = EventGuardCorruption
	case "invalid-release":
		*k = EventInvalidRelease
	default:
		return fmt.Errorf("alloc: unknown event kind %q", b)
	}
	return nil
}

// Event is a diagnostic record emitted while the allocator keeps running.
type Event struct {
	Kind      EventKind     `json:"kind"`
	Handle    Handle        `json:"handle"`
	Capacity  int           `json:"capacity,omitempty"`
	NearGuard uint32        `json:"near_guard,omitempty"`
	FarGuard  uint32        `json:"far_guard,omitempty"`
	Seq       uint32        `json:"seq,omitempty"`
	Frames    []trace.Frame `json:"frames,omitempty"`
}
