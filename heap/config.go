package heap

import (
	"fmt"
	"math"
)

const (
	// MaxSize is the largest reservation whose offsets fit the 32-bit
	// capacity and handle fields.
	MaxSize = math.MaxUint32

	// DefaultSize is the default reservation size (16 MiB).
	DefaultSize = 16 << 20

	// DefaultReserved is the default tail kept out of the arena (1 MiB).
	DefaultReserved = 1 << 20
)

// Config sizes an arena reservation.
type Config struct {
	// Size is the total number of bytes reserved.
	Size int

	// Reserved is the number of bytes at the top of the reservation that
	// Extend never hands out. It stands in for the stack region that sits
	// directly above the heap on bare-metal targets.
	Reserved int
}

// DefaultConfig is used when callers have no particular sizing needs.
var DefaultConfig = Config{
	Size:     DefaultSize,
	Reserved: DefaultReserved,
}

// Validate checks that the configuration describes a usable arena.
func (c Config) Validate() error {
	if c.Size <= 0 {
		return fmt.Errorf("heap: arena size must be positive, got %d", c.Size)
	}
	if uint64(c.Size) > MaxSize {
		return fmt.Errorf("heap: arena size %d exceeds %d", c.Size, uint64(MaxSize))
	}
	if c.Reserved < 0 || c.Reserved >= c.Size {
		return fmt.Errorf("heap: reserved tail %d must be in [0, %d)", c.Reserved, c.Size)
	}
	return nil
}
