//go:build !unix && !windows

package region

import "fmt"

// Reserve allocates an ordinary byte slice when no mapping primitive is available.
func Reserve(size int) ([]byte, func() error, error) {
	if size <= 0 {
		return nil, nil, fmt.Errorf("region: invalid size %d", size)
	}
	return make([]byte, size), func() error { return nil }, nil
}
