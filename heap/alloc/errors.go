package alloc

import "errors"

var (
	// ErrNoSpace indicates that no free block was large enough and the arena could not grow.
	ErrNoSpace = errors.New("alloc: no space left in arena")

	// ErrBadRef indicates a handle that does not name a live allocation.
	ErrBadRef = errors.New("alloc: bad handle")

	// ErrNegativeSize indicates a negative size request.
	ErrNegativeSize = errors.New("alloc: negative size")
)
