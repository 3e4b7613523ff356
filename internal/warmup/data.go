package warmup

import (
	"encoding/binary"
	"math"
	"math/rand"

	"github.com/Meesho/BharatMLStack/predator-core/pkg/datatype"
	"github.com/x448/float16"
)

const (
	// length prefix of one serialized BYTES element
	bytesLengthPrefix = 4
	randomBytesLength = 8
)

// sampleByteSize is the size of one batch of warmup data for an input.
// BYTES elements are length-prefixed strings, empty for zero data. It
// reports false when the size overflows.
func sampleByteSize(dt datatype.DataType, dims []int64, batchSize uint32, random bool) (uint64, bool) {
	elementSize := dt.Size()
	if !dt.IsFixedSize() {
		elementSize = bytesLengthPrefix
		if random {
			elementSize += randomBytesLength
		}
	}
	elements, ok := datatype.MulInt64(datatype.ElementCount(dims), int64(batchSize))
	if !ok {
		return 0, false
	}
	size, ok := datatype.MulInt64(elements, elementSize)
	if !ok {
		return 0, false
	}
	return uint64(size), true
}

// fillZero writes zero data. For BYTES every element is an empty string,
// which is an all-zero length prefix.
func fillZero(buf []byte) {
	clear(buf)
}

// fillRandom writes little-endian random values appropriate for dt.
// Floating point values are drawn from [-1, 1).
func fillRandom(rng *rand.Rand, dt datatype.DataType, buf []byte) {
	switch dt {
	case datatype.DataTypeBool:
		for i := range buf {
			buf[i] = byte(rng.Intn(2))
		}
	case datatype.DataTypeFP16:
		for i := 0; i+2 <= len(buf); i += 2 {
			binary.LittleEndian.PutUint16(buf[i:], float16.Fromfloat32(randomFloat(rng)).Bits())
		}
	case datatype.DataTypeBF16:
		for i := 0; i+2 <= len(buf); i += 2 {
			binary.LittleEndian.PutUint16(buf[i:], uint16(math.Float32bits(randomFloat(rng))>>16))
		}
	case datatype.DataTypeFP32:
		for i := 0; i+4 <= len(buf); i += 4 {
			binary.LittleEndian.PutUint32(buf[i:], math.Float32bits(randomFloat(rng)))
		}
	case datatype.DataTypeFP64:
		for i := 0; i+8 <= len(buf); i += 8 {
			binary.LittleEndian.PutUint64(buf[i:], math.Float64bits(rng.Float64()*2-1))
		}
	case datatype.DataTypeBytes:
		for i := 0; i+bytesLengthPrefix+randomBytesLength <= len(buf); i += bytesLengthPrefix + randomBytesLength {
			binary.LittleEndian.PutUint32(buf[i:], randomBytesLength)
			for j := i + bytesLengthPrefix; j < i+bytesLengthPrefix+randomBytesLength; j++ {
				buf[j] = byte('a' + rng.Intn(26))
			}
		}
	default:
		rng.Read(buf)
	}
}

func randomFloat(rng *rand.Rand) float32 {
	return rng.Float32()*2 - 1
}
