package memory

import (
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// Allocator hands out buffers of a requested memory type. An allocator may
// satisfy a request from a different memory type than the preferred one and
// reports the type it actually used.
type Allocator interface {
	Allocate(byteSize uint64, preferred Type, preferredID int64) (buf []byte, actual Type, actualID int64, err error)
	Free(buf []byte, memType Type, memTypeID int64)
}

// AllocatedMemory is a single buffer owned by the memory itself. It is
// assigned to an input as a whole and never grows.
type AllocatedMemory struct {
	allocator Allocator
	buf       []byte
	memType   Type
	memTypeID int64
	released  atomic.Bool
}

func NewAllocatedMemory(allocator Allocator, byteSize uint64, preferred Type, preferredID int64) (*AllocatedMemory, error) {
	m := &AllocatedMemory{allocator: allocator, memType: preferred, memTypeID: preferredID}
	if byteSize == 0 {
		return m, nil
	}
	buf, actual, actualID, err := allocator.Allocate(byteSize, preferred, preferredID)
	if err != nil {
		return nil, err
	}
	if actual != preferred || actualID != preferredID {
		log.Debug().
			Str("preferred", preferred.String()).
			Str("actual", actual.String()).
			Uint64("byte_size", byteSize).
			Msg("allocated memory from fallback memory type")
	}
	m.buf = buf[:byteSize]
	m.memType = actual
	m.memTypeID = actualID
	return m, nil
}

// MutableBuffer exposes the buffer for filling before it is handed out.
func (m *AllocatedMemory) MutableBuffer() ([]byte, Type, int64) {
	return m.buf, m.memType, m.memTypeID
}

func (m *AllocatedMemory) BufferCount() int {
	if len(m.buf) == 0 {
		return 0
	}
	return 1
}

func (m *AllocatedMemory) BufferAt(idx int) ([]byte, Type, int64) {
	if idx != 0 || len(m.buf) == 0 {
		return nil, m.memType, m.memTypeID
	}
	return m.buf, m.memType, m.memTypeID
}

func (m *AllocatedMemory) TotalByteSize() uint64 {
	return uint64(len(m.buf))
}

// Release returns the buffer to its allocator. Only the first call has an
// effect; holders must not read the memory afterwards.
func (m *AllocatedMemory) Release() {
	if m.released.Swap(true) || m.buf == nil {
		return
	}
	m.allocator.Free(m.buf[:cap(m.buf)], m.memType, m.memTypeID)
	m.buf = nil
}
