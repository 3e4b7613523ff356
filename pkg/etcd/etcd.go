package etcd

import (
	"context"
	"sync"
	"time"
)

const (
	basePath          = "/config/"
	defaultDialTimout = 30 * time.Second
	watchRestartDelay = 5 * time.Second
)

var (
	once sync.Once
)

// Event is a single change observed under a watched prefix.
type Event struct {
	Key     string
	Value   string
	Deleted bool
}

type WatchCallback func(event Event) error

type Etcd interface {
	GetBasePath() string
	// GetChildren returns every key with a non-empty value under prefix,
	// keyed by absolute path.
	GetChildren(ctx context.Context, prefix string) (map[string]string, error)
	WatchPrefix(ctx context.Context, prefix string)
	RegisterWatchPathCallback(path string, callback WatchCallback) error
	Close() error
}
