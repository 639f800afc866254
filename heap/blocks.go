package heap

import (
	"fmt"
	"io"

	"github.com/joshuapare/heapkit/internal/format"
)

// BlockIterator walks the blocks tiling an arena from offset 0.
type BlockIterator struct {
	data []byte
	off  int
	done bool
}

// Blocks returns an iterator over the block headers in data, which is
// normally Arena.Bytes().
func Blocks(data []byte) *BlockIterator {
	return &BlockIterator{data: data}
}

// Offset returns the offset of the block Next will decode.
func (it *BlockIterator) Offset() int { return it.off }

// Next decodes the next block. It returns io.EOF once the walk reaches the
// end of data. A zero-capacity or overrunning block ends the walk with an
// error instead of looping or reading past the arena.
func (it *BlockIterator) Next() (format.Block, error) {
	if it.done || it.off >= len(it.data) {
		it.done = true
		return format.Block{}, io.EOF
	}

	blk, err := format.ParseBlock(it.data, it.off)
	if err != nil {
		it.done = true
		return blk, fmt.Errorf("heap: %w", err)
	}

	it.off = blk.End()
	return blk, nil
}
