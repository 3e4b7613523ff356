package memory

import (
	"io"

	"github.com/Meesho/BharatMLStack/predator-core/pkg/api"
)

// Cursor reads a Memory as a sequence of contiguous chunks. Each reader
// keeps its own Cursor so a shared Memory can be drained independently by
// several holders.
type Cursor struct {
	mem      Memory
	idx      int
	offset   uint64
	position uint64
}

func NewCursor(mem Memory) Cursor {
	return Cursor{mem: mem}
}

// Next returns the next chunk of at most sizeHint bytes, or the rest of the
// current buffer when sizeHint is 0. A chunk never spans two buffers and so
// never crosses a memory-type boundary. Callers loop until io.EOF. The
// preferred type and id are advisory and echoed back at the end.
func (c *Cursor) Next(sizeHint uint64, preferredType Type, preferredID int64) ([]byte, Type, int64, error) {
	if c.mem == nil {
		return nil, preferredType, preferredID, io.EOF
	}
	for c.idx < c.mem.BufferCount() {
		content, memType, memTypeID := c.mem.BufferAt(c.idx)
		if content == nil {
			return nil, preferredType, preferredID, api.NewInternalError("memory buffer %d of %d has no content", c.idx, c.mem.BufferCount())
		}
		size := uint64(len(content))
		if c.offset >= size {
			c.idx++
			c.offset = 0
			continue
		}
		n := size - c.offset
		if sizeHint > 0 && sizeHint < n {
			n = sizeHint
		}
		chunk := content[c.offset : c.offset+n]
		c.offset += n
		c.position += n
		if c.offset == size {
			c.idx++
			c.offset = 0
		}
		return chunk, memType, memTypeID, nil
	}
	return nil, preferredType, preferredID, io.EOF
}

// Reset rewinds the cursor so the memory can be drained again.
func (c *Cursor) Reset() {
	c.idx = 0
	c.offset = 0
	c.position = 0
}

// Position returns the number of bytes consumed since the last Reset.
func (c *Cursor) Position() uint64 {
	return c.position
}
