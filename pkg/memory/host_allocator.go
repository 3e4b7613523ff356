package memory

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

type SizeClass struct {
	Size     uint64
	MinCount int
}

type HostAllocatorConfig struct {
	SizeClasses []SizeClass
}

type sizeClassPool struct {
	size uint64
	name string
	pool sync.Pool
}

// HostAllocator serves every request from host memory out of size-class
// pools. Pinned and device requests fall back to TypeCPU with id 0.
// Requests larger than the biggest class are allocated directly and
// dropped on Free.
type HostAllocator struct {
	config HostAllocatorConfig
	pools  []*sizeClassPool
}

func NewHostAllocator(config HostAllocatorConfig) *HostAllocator {
	classes := append([]SizeClass(nil), config.SizeClasses...)
	sort.Slice(classes, func(i, j int) bool {
		return classes[i].Size < classes[j].Size
	})
	config.SizeClasses = classes

	pools := make([]*sizeClassPool, len(classes))
	for i, sizeClass := range classes {
		size := sizeClass.Size
		p := &sizeClassPool{size: size, name: fmt.Sprintf("HostPool-%dBytes", size)}
		p.pool.New = func() any {
			b := make([]byte, size)
			return &b
		}
		for n := 0; n < sizeClass.MinCount; n++ {
			b := make([]byte, size)
			p.pool.Put(&b)
		}
		pools[i] = p
		log.Debug().Msgf("HostAllocator: size class - %d | min count - %d", sizeClass.Size, sizeClass.MinCount)
	}
	return &HostAllocator{config: config, pools: pools}
}

func (a *HostAllocator) Allocate(byteSize uint64, preferred Type, preferredID int64) ([]byte, Type, int64, error) {
	for _, p := range a.pools {
		if byteSize <= p.size {
			buf := *(p.pool.Get().(*[]byte))
			clear(buf)
			return buf[:byteSize], TypeCPU, 0, nil
		}
	}
	return make([]byte, byteSize), TypeCPU, 0, nil
}

func (a *HostAllocator) Free(buf []byte, memType Type, memTypeID int64) {
	if memType != TypeCPU {
		log.Error().Msgf("HostAllocator: cannot free %s memory", memType)
		return
	}
	size := uint64(cap(buf))
	for _, p := range a.pools {
		if size == p.size {
			b := buf[:size]
			p.pool.Put(&b)
			return
		}
	}
}

// ParseSizeClasses reads "size:minCount" pairs separated by commas, for
// example "4096:16,65536:8".
func ParseSizeClasses(value string) ([]SizeClass, error) {
	var classes []SizeClass
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		sizeStr, countStr, found := strings.Cut(part, ":")
		size, err := strconv.ParseUint(strings.TrimSpace(sizeStr), 10, 64)
		if err != nil || size == 0 {
			return nil, fmt.Errorf("invalid size class %q", part)
		}
		count := 0
		if found {
			count, err = strconv.Atoi(strings.TrimSpace(countStr))
			if err != nil || count < 0 {
				return nil, fmt.Errorf("invalid size class count %q", part)
			}
		}
		classes = append(classes, SizeClass{Size: size, MinCount: count})
	}
	return classes, nil
}
