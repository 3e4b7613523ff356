package inferrequest

import (
	"github.com/Meesho/BharatMLStack/predator-core/pkg/api"
	"github.com/Meesho/BharatMLStack/predator-core/pkg/datatype"
	"github.com/Meesho/BharatMLStack/predator-core/pkg/memory"
)

// Input is one named input tensor of a request. The name is the key the
// owning request stores it under and cannot be changed.
type Input struct {
	name string

	// declared by the caller, kept verbatim across normalizations
	declaredDataType datatype.DataType
	originalShape    []int64
	declaredByteSize uint64

	// derived by normalization
	dataType      datatype.DataType
	shape         []int64
	batchByteSize uint64

	data       memory.Memory
	appendable *memory.MemoryReference
	cursor     memory.Cursor

	// changed since the owning request was last normalized
	dirty bool
}

func newInput(name string, dt datatype.DataType, shape []int64, batchByteSize uint64) *Input {
	return &Input{
		name:             name,
		declaredDataType: dt,
		dataType:         dt,
		originalShape:    cloneShape(shape),
		shape:            cloneShape(shape),
		declaredByteSize: batchByteSize,
		batchByteSize:    batchByteSize,
	}
}

func (i *Input) Name() string {
	return i.name
}

// DataType is the datatype supplied by the caller before normalization and
// the configured datatype after it. DataTypeInvalid means none is known yet.
func (i *Input) DataType() datatype.DataType {
	return i.dataType
}

// OriginalShape is the shape exactly as supplied by the caller.
func (i *Input) OriginalShape() []int64 {
	return i.originalShape
}

// Shape is the per-instance shape after normalization, without any batch
// dimension.
func (i *Input) Shape() []int64 {
	return i.shape
}

// MutableShape gives write access to the normalized shape. The next
// PrepareForInference recomputes it from the original shape.
func (i *Input) MutableShape() *[]int64 {
	i.dirty = true
	return &i.shape
}

// BatchByteSize is the size in bytes of the whole tensor across the batch.
func (i *Input) BatchByteSize() uint64 {
	return i.batchByteSize
}

// SetBatchByteSize declares the tensor size. BatchByteSize reports it only
// after normalization has checked it against the shape and the attached data.
func (i *Input) SetBatchByteSize(b uint64) {
	i.declaredByteSize = b
	i.dirty = true
}

func (i *Input) Data() memory.Memory {
	return i.data
}

// AppendData adds a buffer to the input's data. It fails when the data was
// assigned whole through SetData.
func (i *Input) AppendData(content []byte, memType memory.Type, memTypeID int64) error {
	if i.data != nil && i.appendable == nil {
		return api.NewInvalidArgumentError("input '%s' has data assigned, cannot append", i.name)
	}
	if i.appendable == nil {
		i.appendable = memory.NewMemoryReference()
		i.data = i.appendable
		i.cursor = memory.NewCursor(i.data)
	}
	i.appendable.AddBuffer(content, memType, memTypeID)
	i.dirty = true
	return nil
}

// SetData assigns data to the input. It fails when the input already holds
// non-empty data; call RemoveAllData first to replace it.
func (i *Input) SetData(data memory.Memory) error {
	if i.data != nil && i.data.TotalByteSize() > 0 {
		return api.NewInvalidArgumentError("input '%s' already has data, cannot overwrite", i.name)
	}
	i.data = data
	i.appendable = nil
	i.cursor = memory.NewCursor(data)
	i.dirty = true
	return nil
}

// RemoveAllData drops the input's reference to its data. Other holders of
// the same memory are unaffected.
func (i *Input) RemoveAllData() {
	i.data = nil
	i.appendable = nil
	i.cursor = memory.NewCursor(nil)
	i.dirty = true
}

func (i *Input) ResetDataCursor() {
	i.cursor.Reset()
}

// NextContent returns the next chunk of the input's data, io.EOF once the
// data is exhausted or when there is none. See memory.Cursor.Next.
func (i *Input) NextContent(sizeHint uint64, preferredType memory.Type, preferredID int64) ([]byte, memory.Type, int64, error) {
	return i.cursor.Next(sizeHint, preferredType, preferredID)
}

// dataByteSize reports the size of the attached data, and false when the
// input has no data or only empty data.
func (i *Input) dataByteSize() (uint64, bool) {
	if i.data == nil {
		return 0, false
	}
	size := i.data.TotalByteSize()
	return size, size > 0
}

func cloneShape(shape []int64) []int64 {
	if shape == nil {
		return []int64{}
	}
	out := make([]int64, len(shape))
	copy(out, shape)
	return out
}
