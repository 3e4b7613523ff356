package datatype

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataTypeSize(t *testing.T) {
	tests := []struct {
		dtype    DataType
		expected int64
	}{
		{DataTypeBool, 1},
		{DataTypeUint8, 1},
		{DataTypeUint16, 2},
		{DataTypeUint32, 4},
		{DataTypeUint64, 8},
		{DataTypeInt8, 1},
		{DataTypeInt16, 2},
		{DataTypeInt32, 4},
		{DataTypeInt64, 8},
		{DataTypeFP16, 2},
		{DataTypeFP32, 4},
		{DataTypeFP64, 8},
		{DataTypeBF16, 2},
		{DataTypeBytes, 0},
		{DataTypeInvalid, 0},
	}
	for _, tt := range tests {
		if got := tt.dtype.Size(); got != tt.expected {
			t.Errorf("DataType.Size() for %v = %d, want %d", tt.dtype, got, tt.expected)
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want DataType
	}{
		{"FP32", DataTypeFP32},
		{"TYPE_FP32", DataTypeFP32},
		{"type_int64", DataTypeInt64},
		{"BYTES", DataTypeBytes},
		{"TYPE_STRING", DataTypeBytes},
		{" BF16 ", DataTypeBF16},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := Parse("FP8")
	assert.Error(t, err)
}

func TestJSONRoundTrip(t *testing.T) {
	var v struct {
		DataType DataType `json:"data_type"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"data_type":"TYPE_FP16"}`), &v))
	assert.Equal(t, DataTypeFP16, v.DataType)

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"data_type":"FP16"}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"data_type":"NOPE"}`), &v))
}

func TestByteSize(t *testing.T) {
	assert.Equal(t, int64(4*3*224*224*4), ByteSize(DataTypeFP32, []int64{4, 3, 224, 224}))
	assert.Equal(t, int64(8), ByteSize(DataTypeInt64, nil))
	assert.Equal(t, int64(0), ByteSize(DataTypeFP32, []int64{0, 16}))
	assert.Equal(t, int64(-1), ByteSize(DataTypeFP32, []int64{-1, 16}))
	assert.Equal(t, int64(-1), ByteSize(DataTypeBytes, []int64{2}))
	assert.Equal(t, int64(-1), ByteSize(DataTypeFP32, []int64{1 << 62}))
	assert.Equal(t, int64(-1), ByteSize(DataTypeFP32, []int64{1 << 32, 1 << 32}))
}

func TestElementCount(t *testing.T) {
	assert.Equal(t, int64(1), ElementCount(nil))
	assert.Equal(t, int64(24), ElementCount([]int64{2, 3, 4}))
	assert.Equal(t, int64(0), ElementCount([]int64{0, 1 << 62}))
	assert.Equal(t, int64(-1), ElementCount([]int64{1 << 32, 1 << 32}))
	assert.Equal(t, int64(-1), ElementCount([]int64{2, -1}))
}

func TestMulInt64(t *testing.T) {
	v, ok := MulInt64(1<<31, 1<<31)
	assert.True(t, ok)
	assert.Equal(t, int64(1<<62), v)

	_, ok = MulInt64(1<<62, 2)
	assert.False(t, ok)
	_, ok = MulInt64(-1, 2)
	assert.False(t, ok)
}
