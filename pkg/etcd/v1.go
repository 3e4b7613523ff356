package etcd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Meesho/BharatMLStack/predator-core/pkg/configs"
	"github.com/Meesho/BharatMLStack/predator-core/pkg/logger"
	clientv3 "go.etcd.io/etcd/client/v3"
)

type V1 struct {
	conn               *clientv3.Client
	basePath           string
	watchPathCallbacks map[string][]WatchCallback
	mu                 sync.RWMutex
}

func newV1Etcd(configs *configs.AppConfigs) (*V1, error) {
	if configs.Configs.ApplicationName == "" || configs.Configs.ETCD_SERVER == "" {
		return nil, errors.New("APP_NAME or ETCD_SERVER is not set")
	}
	timeout := defaultDialTimout
	if configs.Configs.ETCD_DialTimeoutSeconds > 0 {
		timeout = time.Duration(configs.Configs.ETCD_DialTimeoutSeconds) * time.Second
	}
	servers := strings.Split(configs.Configs.ETCD_SERVER, ",")
	conn, err := clientv3.New(clientv3.Config{
		Endpoints:           servers,
		Username:            configs.Configs.ETCD_USERNAME,
		Password:            configs.Configs.ETCD_PASSWORD,
		DialTimeout:         timeout,
		DialKeepAliveTime:   timeout,
		PermitWithoutStream: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client: %w", err)
	}
	return &V1{
		conn:               conn,
		basePath:           basePath + configs.Configs.ApplicationName,
		watchPathCallbacks: make(map[string][]WatchCallback),
	}, nil
}

func (v *V1) GetBasePath() string {
	return v.basePath
}

func (v *V1) GetChildren(ctx context.Context, prefix string) (map[string]string, error) {
	resp, err := v.conn.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		logger.Error(fmt.Sprintf("Error getting config from etcd path %s", prefix), err)
		return nil, err
	}
	children := make(map[string]string, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		if len(kv.Value) == 0 {
			continue
		}
		children[string(kv.Key)] = string(kv.Value)
	}
	return children, nil
}

// RegisterWatchPathCallback registers callback for events whose key starts
// with path. Callbacks only fire once WatchPrefix is running.
func (v *V1) RegisterWatchPathCallback(path string, callback WatchCallback) error {
	if callback == nil {
		return errors.New("callback must not be nil")
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.watchPathCallbacks[path] = append(v.watchPathCallbacks[path], callback)
	return nil
}

func (v *V1) WatchPrefix(ctx context.Context, prefix string) {
	go func() {
		for {
			func() {
				defer func() {
					if r := recover(); r != nil {
						logger.Error("panic in watch prefix", fmt.Errorf("%v", r))
					}
				}()
				watchChan := v.conn.Watch(ctx, prefix, clientv3.WithPrefix())
				for watchResp := range watchChan {
					if err := watchResp.Err(); err != nil {
						logger.Error(fmt.Sprintf("watch on %s failed", prefix), err)
						continue
					}
					for _, event := range watchResp.Events {
						v.dispatch(Event{
							Key:     string(event.Kv.Key),
							Value:   string(event.Kv.Value),
							Deleted: event.Type == clientv3.EventTypeDelete,
						})
					}
				}
			}()
			if ctx.Err() != nil {
				return
			}
			//Avoid frequent restarts on panics
			time.Sleep(watchRestartDelay)
		}
	}()
}

func (v *V1) dispatch(event Event) {
	logger.Debug(fmt.Sprintf("Key: %s | Deleted: %t", event.Key, event.Deleted))
	v.mu.RLock()
	defer v.mu.RUnlock()
	for path, callbacks := range v.watchPathCallbacks {
		if !strings.HasPrefix(event.Key, path) {
			continue
		}
		for _, cb := range callbacks {
			if err := cb(event); err != nil {
				logger.Error(fmt.Sprintf("unable to execute the function for path %s", path), err)
			}
		}
	}
}

func (v *V1) Close() error {
	return v.conn.Close()
}
