package datatype

import (
	"encoding/json"
	"fmt"
	"math"
	"math/bits"
	"strings"
)

type DataType uint8

const (
	DataTypeInvalid DataType = iota
	DataTypeBool
	DataTypeUint8
	DataTypeUint16
	DataTypeUint32
	DataTypeUint64
	DataTypeInt8
	DataTypeInt16
	DataTypeInt32
	DataTypeInt64
	DataTypeFP16
	DataTypeFP32
	DataTypeFP64
	DataTypeBF16
	DataTypeBytes
)

const (
	typePrefix = "TYPE_"
	typeString = "STRING"
)

var names = map[DataType]string{
	DataTypeBool:   "BOOL",
	DataTypeUint8:  "UINT8",
	DataTypeUint16: "UINT16",
	DataTypeUint32: "UINT32",
	DataTypeUint64: "UINT64",
	DataTypeInt8:   "INT8",
	DataTypeInt16:  "INT16",
	DataTypeInt32:  "INT32",
	DataTypeInt64:  "INT64",
	DataTypeFP16:   "FP16",
	DataTypeFP32:   "FP32",
	DataTypeFP64:   "FP64",
	DataTypeBF16:   "BF16",
	DataTypeBytes:  "BYTES",
}

var sizes = map[DataType]int64{
	DataTypeBool:   1,
	DataTypeUint8:  1,
	DataTypeUint16: 2,
	DataTypeUint32: 4,
	DataTypeUint64: 8,
	DataTypeInt8:   1,
	DataTypeInt16:  2,
	DataTypeInt32:  4,
	DataTypeInt64:  8,
	DataTypeFP16:   2,
	DataTypeFP32:   4,
	DataTypeFP64:   8,
	DataTypeBF16:   2,
}

func (d DataType) String() string {
	if name, ok := names[d]; ok {
		return name
	}
	return "INVALID"
}

// Size returns the size of one element in bytes. Variable-sized BYTES and
// invalid datatypes report 0.
func (d DataType) Size() int64 {
	return sizes[d]
}

func (d DataType) IsValid() bool {
	_, ok := names[d]
	return ok
}

func (d DataType) IsFixedSize() bool {
	return d.Size() > 0
}

// Parse accepts both protocol names ("FP32") and model configuration names
// ("TYPE_FP32"). "TYPE_STRING" is the configuration spelling of BYTES.
func Parse(value string) (DataType, error) {
	name := strings.ToUpper(strings.TrimSpace(value))
	name = strings.TrimPrefix(name, typePrefix)
	if name == typeString {
		return DataTypeBytes, nil
	}
	for dt, n := range names {
		if n == name {
			return dt, nil
		}
	}
	return DataTypeInvalid, fmt.Errorf("invalid data type %q", value)
}

func (d DataType) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *DataType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	dt, err := Parse(s)
	if err != nil {
		return err
	}
	*d = dt
	return nil
}

// UnmarshalText lets mapstructure based decoders (viper, koanf) read the
// datatype from its string form.
func (d *DataType) UnmarshalText(b []byte) error {
	dt, err := Parse(string(b))
	if err != nil {
		return err
	}
	*d = dt
	return nil
}

// ByteSize returns the size in bytes of a tensor with the given shape, or -1
// when the datatype is not fixed-size, a dimension is negative or the size
// does not fit in an int64.
func ByteSize(d DataType, shape []int64) int64 {
	if !d.IsFixedSize() {
		return -1
	}
	count := ElementCount(shape)
	if count < 0 {
		return -1
	}
	size, ok := MulInt64(count, d.Size())
	if !ok {
		return -1
	}
	return size
}

// ElementCount returns the number of elements of shape, -1 when any
// dimension is negative or the count overflows an int64. An empty shape is a
// scalar.
func ElementCount(shape []int64) int64 {
	count := int64(1)
	for _, dim := range shape {
		if dim < 0 {
			return -1
		}
		var ok bool
		if count, ok = MulInt64(count, dim); !ok {
			return -1
		}
	}
	return count
}

// MulInt64 multiplies two non-negative values and reports false on
// overflow.
func MulInt64(a, b int64) (int64, bool) {
	if a < 0 || b < 0 {
		return 0, false
	}
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	if hi != 0 || lo > math.MaxInt64 {
		return 0, false
	}
	return int64(lo), true
}
