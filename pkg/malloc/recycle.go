package malloc

import (
	"fmt"
	"math/rand"

	"github.com/joshuapare/heapkit/heap/alloc"
)

// RecycleResult summarizes a Recycle run.
type RecycleResult struct {
	Iterations int `json:"iterations"`
	// Serviced is the total of all request sizes.
	Serviced int `json:"serviced"`
	// Extent is the highest payload byte any request reached.
	Extent int `json:"extent"`
	// Percent is Serviced as a percentage of Extent, 0 when nothing was
	// recycled.
	Percent int `json:"percent"`
}

// Recycle runs a churn workload: one long-lived block is resized to a random
// size each iteration while a short-lived block of the same size is
// allocated and released next to it. A high Percent means freed space was
// reused instead of growing the arena. maxSize bounds the random sizes
// (exclusive).
func Recycle(a *alloc.Allocator, iterations, maxSize int, rng *rand.Rand) (RecycleResult, error) {
	if iterations < 0 || maxSize <= 0 {
		return RecycleResult{}, fmt.Errorf("malloc: recycle needs iterations >= 0 and maxSize > 0, got %d, %d", iterations, maxSize)
	}
	res := RecycleResult{Iterations: iterations}

	p, err := a.Allocate(1)
	if err != nil {
		return res, err
	}
	for i := 0; i < iterations; i++ {
		size := rng.Intn(maxSize)
		q, err := a.Allocate(size)
		if err != nil {
			return res, fmt.Errorf("malloc: recycle iteration %d: %w", i, err)
		}
		p, err = a.Resize(p, size)
		if err != nil {
			return res, fmt.Errorf("malloc: recycle iteration %d: %w", i, err)
		}
		res.Serviced += 2 * size
		res.Extent = max(res.Extent, int(max(p, q))+size)
		if err := a.Release(q); err != nil {
			return res, err
		}
	}
	if err := a.Release(p); err != nil {
		return res, err
	}

	if res.Serviced > res.Extent && res.Extent > 0 {
		res.Percent = 100 * res.Serviced / res.Extent
	}
	return res, nil
}
