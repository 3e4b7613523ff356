package modelconfig

import (
	"strconv"
	"strings"
)

// WildcardDim marks a configured dimension that accepts any size.
const WildcardDim int64 = -1

type DimsList []int64

func (d DimsList) String() string {
	return DimsListToString(d)
}

func DimsListToString(dims []int64) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, dim := range dims {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatInt(dim, 10))
	}
	sb.WriteByte(']')
	return sb.String()
}

func ContainsWildcard(dims []int64) bool {
	for _, dim := range dims {
		if dim == WildcardDim {
			return true
		}
	}
	return false
}

// CompareDimsWithWildcard reports whether shape matches the configured
// dims, where a wildcard dim matches any non-negative size.
func CompareDimsWithWildcard(dims, shape []int64) bool {
	if len(dims) != len(shape) {
		return false
	}
	for i := range dims {
		if shape[i] < 0 {
			return false
		}
		if dims[i] != WildcardDim && dims[i] != shape[i] {
			return false
		}
	}
	return true
}
