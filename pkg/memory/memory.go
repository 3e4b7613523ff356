// Package memory describes byte regions that may span several memory types
// (host, pinned host, device) and the chunked read protocol used to drain
// them without assuming contiguity.
package memory

import (
	"fmt"
)

type Type uint8

const (
	TypeCPU Type = iota
	TypeCPUPinned
	TypeGPU
)

func (t Type) String() string {
	switch t {
	case TypeCPU:
		return "CPU"
	case TypeCPUPinned:
		return "CPU_PINNED"
	case TypeGPU:
		return "GPU"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(t))
	}
}

// Memory is an ordered list of buffers. Implementations never reorder
// buffers once added and are shared by pointer: a request and an execution
// pipeline may hold the same Memory at the same time.
type Memory interface {
	// BufferCount returns the number of buffers.
	BufferCount() int

	// BufferAt returns the buffer at idx with its memory type and type id.
	// It returns nil content when idx is out of range.
	BufferAt(idx int) (content []byte, memType Type, memTypeID int64)

	// TotalByteSize returns the sum of all buffer sizes.
	TotalByteSize() uint64
}

type segment struct {
	content   []byte
	memType   Type
	memTypeID int64
}

// MemoryReference references buffers owned by someone else. It grows by
// AddBuffer and is the only Memory an input can append to.
type MemoryReference struct {
	segments  []segment
	totalSize uint64
}

func NewMemoryReference() *MemoryReference {
	return &MemoryReference{}
}

// AddBuffer appends content as a new buffer. Empty content is ignored.
func (m *MemoryReference) AddBuffer(content []byte, memType Type, memTypeID int64) {
	if len(content) == 0 {
		return
	}
	m.segments = append(m.segments, segment{
		content:   content,
		memType:   memType,
		memTypeID: memTypeID,
	})
	m.totalSize += uint64(len(content))
}

func (m *MemoryReference) BufferCount() int {
	return len(m.segments)
}

func (m *MemoryReference) BufferAt(idx int) ([]byte, Type, int64) {
	if idx < 0 || idx >= len(m.segments) {
		return nil, TypeCPU, 0
	}
	s := m.segments[idx]
	return s.content, s.memType, s.memTypeID
}

func (m *MemoryReference) TotalByteSize() uint64 {
	return m.totalSize
}
