package verify

import (
	"fmt"

	"github.com/joshuapare/heapkit/internal/format"
)

// ValidationError describes the first invariant violation found.
type ValidationError struct {
	Type    string
	Message string
	Offset  int
	Details map[string]interface{}
	// Err is the format sentinel behind the violation, if any.
	Err error
}

func (e *ValidationError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("%s at offset 0x%X: %s", e.Type, e.Offset, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Arena validates the layout in data[:end]. data may be the whole
// reservation; bytes past end are ignored.
func Arena(data []byte, end int) error {
	if end < 0 || end > len(data) {
		return &ValidationError{
			Type:    "Arena",
			Message: fmt.Sprintf("end %d outside buffer of %d bytes", end, len(data)),
			Offset:  -1,
		}
	}
	if end%format.Alignment != 0 {
		return &ValidationError{
			Type:    "Arena",
			Message: fmt.Sprintf("end 0x%X not 8-byte aligned", end),
			Offset:  -1,
		}
	}
	return AllInvariants(data[:end])
}

// AllInvariants validates every block invariant of a layout that spans all
// of data. Returns the first error encountered, or nil if all checks pass.
func AllInvariants(data []byte) error {
	if err := Tiling(data); err != nil {
		return err
	}
	if err := Fields(data); err != nil {
		return err
	}
	return Guards(data)
}

// Tiling checks that headers follow one another without gaps or overlap
// and that the last block ends exactly at len(data).
func Tiling(data []byte) error {
	pos := 0
	for pos < len(data) {
		if pos+format.HeaderSize > len(data) {
			return &ValidationError{
				Type:    "Tiling",
				Message: fmt.Sprintf("truncated header: %d bytes left, need %d", len(data)-pos, format.HeaderSize),
				Offset:  pos,
				Err:     format.ErrTruncated,
			}
		}
		capacity := format.Capacity(data, pos)
		if capacity == 0 {
			return &ValidationError{
				Type:    "Tiling",
				Message: "zero capacity block",
				Offset:  pos,
				Err:     format.ErrZeroCapacity,
			}
		}
		next := format.NextOffset(data, pos)
		if next > len(data) {
			return &ValidationError{
				Type:    "Tiling",
				Message: fmt.Sprintf("block overruns end: ends at 0x%X, end is 0x%X", next, len(data)),
				Offset:  pos,
				Details: map[string]interface{}{"capacity": capacity},
				Err:     format.ErrTruncated,
			}
		}
		pos = next
	}
	return nil
}

// Fields checks capacity alignment and state values of every block.
func Fields(data []byte) error {
	return walk(data, func(off int) error {
		capacity := format.Capacity(data, off)
		if capacity%format.Alignment != 0 || capacity < format.Alignment {
			return &ValidationError{
				Type:    "Fields",
				Message: fmt.Sprintf("capacity %d not a positive multiple of 8", capacity),
				Offset:  off,
				Err:     format.ErrMisaligned,
			}
		}
		if st := format.State(data, off); st != format.StateFree && st != format.StateAllocated {
			return &ValidationError{
				Type:    "Fields",
				Message: fmt.Sprintf("invalid state %d", st),
				Offset:  off,
				Err:     format.ErrBadState,
			}
		}
		return nil
	})
}

// Guards checks the near and far guard of every allocated block.
func Guards(data []byte) error {
	return walk(data, func(off int) error {
		blk, err := format.ParseBlock(data, off)
		if err != nil {
			return &ValidationError{Type: "Guards", Message: err.Error(), Offset: off, Err: err}
		}
		if !blk.Allocated() || blk.GuardsIntact() {
			return nil
		}
		return &ValidationError{
			Type:    "Guards",
			Message: fmt.Sprintf("guard overwritten in block of capacity %d", blk.Capacity),
			Offset:  off,
			Details: map[string]interface{}{
				"near_guard": blk.NearGuard,
				"far_guard":  blk.FarGuard,
				"handle":     blk.Handle(),
			},
		}
	})
}

// walk visits each block header of a layout already known to tile.
func walk(data []byte, fn func(off int) error) error {
	for pos := 0; pos+format.HeaderSize <= len(data); {
		if err := fn(pos); err != nil {
			return err
		}
		if format.Capacity(data, pos) == 0 {
			return nil
		}
		pos = format.NextOffset(data, pos)
	}
	return nil
}
