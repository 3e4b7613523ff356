package modelconfig

import (
	"context"
	"strings"
	"testing"

	"github.com/Meesho/BharatMLStack/predator-core/pkg/api"
	"github.com/Meesho/BharatMLStack/predator-core/pkg/cache"
	"github.com/Meesho/BharatMLStack/predator-core/pkg/etcd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
)

const basePath = "/config/predator"

type fakeEtcd struct {
	children  map[string]string
	callbacks map[string][]etcd.WatchCallback
	watching  []string
}

func (f *fakeEtcd) GetBasePath() string {
	return basePath
}

func (f *fakeEtcd) GetChildren(_ context.Context, _ string) (map[string]string, error) {
	return f.children, nil
}

func (f *fakeEtcd) WatchPrefix(_ context.Context, prefix string) {
	f.watching = append(f.watching, prefix)
}

func (f *fakeEtcd) RegisterWatchPathCallback(path string, callback etcd.WatchCallback) error {
	if f.callbacks == nil {
		f.callbacks = make(map[string][]etcd.WatchCallback)
	}
	f.callbacks[path] = append(f.callbacks[path], callback)
	return nil
}

func (f *fakeEtcd) Close() error {
	return nil
}

func (f *fakeEtcd) emit(t *testing.T, event etcd.Event) {
	t.Helper()
	for _, cbs := range f.callbacks {
		for _, cb := range cbs {
			require.NoError(t, cb(event))
		}
	}
}

const storedModel = `{
  "max_batch_size": 4,
  "input": [{"name": "ids", "data_type": "INT64", "dims": [-1]}],
  "output": [{"name": "logits", "data_type": "FP32", "dims": [2]}]
}`

func newTestEtcdManager(t *testing.T, children map[string]string) (*EtcdManager, *fakeEtcd) {
	t.Helper()
	c, err := cache.NewCache(64, 0)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	client := &fakeEtcd{children: children}
	em, err := NewEtcdManager(context.Background(), client, c)
	require.NoError(t, err)
	return em, client
}

func TestEtcdManager_GetModel(t *testing.T) {
	em, _ := newTestEtcdManager(t, map[string]string{
		basePath + "/models/bert/1":  storedModel,
		basePath + "/models/bert/2":  storedModel,
		basePath + "/models/bert":    "ignored",
		basePath + "/other/settings": "ignored",
	})

	m, err := em.GetModel("bert", 1)
	require.NoError(t, err)
	assert.Equal(t, "bert", m.Name())
	assert.Equal(t, int64(1), m.Version())

	latest, err := em.GetModel("bert", LatestVersion)
	require.NoError(t, err)
	assert.Equal(t, int64(2), latest.Version())

	_, err = em.GetModel("bert", 3)
	assert.Equal(t, codes.NotFound, api.Kind(err))
	_, err = em.GetModel("gpt", LatestVersion)
	assert.Equal(t, codes.NotFound, api.Kind(err))

	assert.Len(t, em.GetAllModels(), 2)
}

func TestEtcdManager_InvalidStoredConfig(t *testing.T) {
	em, _ := newTestEtcdManager(t, map[string]string{
		basePath + "/models/bert/1": `{"input": [`,
		basePath + "/models/gpt/1":  `{"name": "other", "input": [], "output": []}`,
	})

	_, err := em.GetModel("bert", 1)
	assert.Equal(t, codes.InvalidArgument, api.Kind(err))
	_, err = em.GetModel("gpt", 1)
	assert.Equal(t, codes.InvalidArgument, api.Kind(err))
	assert.Empty(t, em.GetAllModels())
}

func TestEtcdManager_WatchRefreshesModels(t *testing.T) {
	em, client := newTestEtcdManager(t, map[string]string{
		basePath + "/models/bert/1": storedModel,
	})
	require.NoError(t, em.Watch(context.Background()))
	assert.Equal(t, []string{basePath + "/models/"}, client.watching)

	m, err := em.GetModel("bert", 1)
	require.NoError(t, err)
	assert.Equal(t, int32(4), m.MaxBatchSize())

	updated := `{
	  "max_batch_size": 2,
	  "input": [{"name": "ids", "data_type": "INT64", "dims": [-1]}],
	  "output": [{"name": "logits", "data_type": "FP32", "dims": [2]}]
	}`
	client.emit(t, etcd.Event{Key: basePath + "/models/bert/1", Value: updated})
	m, err = em.GetModel("bert", 1)
	require.NoError(t, err)
	assert.Equal(t, int32(2), m.MaxBatchSize())

	client.emit(t, etcd.Event{Key: basePath + "/models/bert/1", Deleted: true})
	_, err = em.GetModel("bert", 1)
	assert.Equal(t, codes.NotFound, api.Kind(err))
}

func TestEtcdManager_StaleParseNotCachedAfterWatchEvent(t *testing.T) {
	em, client := newTestEtcdManager(t, map[string]string{
		basePath + "/models/bert/1": storedModel,
	})
	require.NoError(t, em.Watch(context.Background()))

	em.mu.RLock()
	stale := em.raw["bert/1"]
	em.mu.RUnlock()
	staleModel, err := parseModel("bert", 1, stale.value)
	require.NoError(t, err)

	updated := strings.Replace(storedModel, `"max_batch_size": 4`, `"max_batch_size": 2`, 1)
	client.emit(t, etcd.Event{Key: basePath + "/models/bert/1", Value: updated})

	assert.False(t, em.cacheIfCurrent("bert/1", stale.generation, staleModel))
	em.cache.Wait()
	_, found := em.cache.Get("bert/1")
	assert.False(t, found)

	m, err := em.GetModel("bert", 1)
	require.NoError(t, err)
	assert.Equal(t, int32(2), m.MaxBatchSize())
}

func TestEtcdManager_CachedModelEvictedByWatchEvent(t *testing.T) {
	em, client := newTestEtcdManager(t, map[string]string{
		basePath + "/models/bert/1": storedModel,
	})
	require.NoError(t, em.Watch(context.Background()))

	em.mu.RLock()
	current := em.raw["bert/1"]
	em.mu.RUnlock()
	m, err := parseModel("bert", 1, current.value)
	require.NoError(t, err)
	assert.True(t, em.cacheIfCurrent("bert/1", current.generation, m))

	client.emit(t, etcd.Event{Key: basePath + "/models/bert/1", Deleted: true})
	_, found := em.cache.Get("bert/1")
	assert.False(t, found)
	_, err = em.GetModel("bert", 1)
	assert.Equal(t, codes.NotFound, api.Kind(err))
}

func TestMockManager(t *testing.T) {
	m, err := NewModel(imageModelConfig())
	require.NoError(t, err)

	mgr := &MockManager{}
	mgr.On("GetModel", "resnet", int64(1)).Return(m, nil)
	mgr.On("GetModel", "missing", int64(1)).Return(nil, api.NewNotFoundError("missing"))

	var _ Manager = mgr
	got, err := mgr.GetModel("resnet", 1)
	require.NoError(t, err)
	assert.Same(t, m, got)

	got, err = mgr.GetModel("missing", 1)
	assert.Nil(t, got)
	assert.True(t, api.IsNotFound(err))
	mgr.AssertExpectations(t)
}
