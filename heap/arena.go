package heap

import (
	"fmt"

	"github.com/joshuapare/heapkit/internal/buf"
	"github.com/joshuapare/heapkit/internal/format"
	"github.com/joshuapare/heapkit/internal/region"
)

// Arena is a fixed reservation whose in-use prefix grows monotonically.
type Arena struct {
	region  []byte
	end     int // high-water mark
	limit   int // first byte of the reserved tail
	release func() error
}

// New reserves cfg.Size bytes and returns an empty arena over them.
func New(cfg Config) (*Arena, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	data, release, err := region.Reserve(cfg.Size)
	if err != nil {
		return nil, fmt.Errorf("heap: reserve arena: %w", err)
	}
	return &Arena{
		region:  data,
		limit:   cfg.Size - cfg.Reserved,
		release: release,
	}, nil
}

// FromBytes builds an empty arena over a caller-owned buffer, keeping the
// last reserved bytes out of reach.
func FromBytes(b []byte, reserved int) (*Arena, error) {
	return Wrap(b, 0, reserved)
}

// Wrap builds an arena over a buffer whose first end bytes already hold a
// block layout. The layout itself is not checked here; see heap/verify.
func Wrap(b []byte, end, reserved int) (*Arena, error) {
	if err := (Config{Size: len(b), Reserved: reserved}).Validate(); err != nil {
		return nil, err
	}
	limit := len(b) - reserved
	if end < 0 || end > limit || end%format.Alignment != 0 {
		return nil, fmt.Errorf("heap: initial end %d outside [0, %d] or misaligned", end, limit)
	}
	return &Arena{
		region:  b,
		end:     end,
		limit:   limit,
		release: func() error { return nil },
	}, nil
}

// Extend reserves n more bytes at the high-water mark and returns the offset
// of the first new byte. It refuses requests that would reach the reserved
// tail; the arena is left unchanged in that case.
func (a *Arena) Extend(n int) (int, bool) {
	if a == nil || n <= 0 {
		return 0, false
	}
	newEnd, ok := buf.AddOverflowSafe(a.end, n)
	if !ok || newEnd > a.limit {
		return 0, false
	}
	prev := a.end
	a.end = newEnd
	return prev, true
}

// Bytes returns the in-use prefix [0, End).
func (a *Arena) Bytes() []byte { return a.region[:a.end] }

// Region returns the whole reservation, reserved tail included.
func (a *Arena) Region() []byte { return a.region }

// End returns the high-water mark.
func (a *Arena) End() int { return a.end }

// Limit returns the first offset Extend will never hand out.
func (a *Arena) Limit() int { return a.limit }

// Available returns how many bytes Extend can still hand out.
func (a *Arena) Available() int { return a.limit - a.end }

// Close releases the reservation. Handles into the arena are invalid afterwards.
func (a *Arena) Close() error {
	if a == nil || a.release == nil {
		return nil
	}
	err := a.release()
	a.release = nil
	a.region = nil
	a.end, a.limit = 0, 0
	return err
}
