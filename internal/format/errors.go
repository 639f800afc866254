package format

import "errors"

var (
	// ErrTruncated indicates the buffer lacked the bytes required for a structure.
	ErrTruncated = errors.New("format: truncated buffer")
	// ErrZeroCapacity indicates a block header declared an empty payload.
	ErrZeroCapacity = errors.New("format: zero capacity block")
	// ErrMisaligned indicates an offset or capacity that is not 8-byte aligned.
	ErrMisaligned = errors.New("format: misaligned block")
	// ErrBadState indicates a state field holding neither free nor allocated.
	ErrBadState = errors.New("format: invalid block state")
)
