package modelconfig

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/Meesho/BharatMLStack/predator-core/pkg/api"
	"github.com/Meesho/BharatMLStack/predator-core/pkg/cache"
	"github.com/Meesho/BharatMLStack/predator-core/pkg/etcd"
	"github.com/Meesho/BharatMLStack/predator-core/pkg/logger"
	"github.com/Meesho/BharatMLStack/predator-core/pkg/metrics"
)

const modelsPath = "/models/"

// EtcdManager serves model configurations stored as JSON values under
// <base>/models/<model>/<version>. Parsed models are cached and evicted
// when the watched key changes.
type EtcdManager struct {
	client     etcd.Etcd
	cache      *cache.Cache
	modelsPath string

	mu         sync.RWMutex
	raw        map[string]storedConfig
	generation uint64
}

// storedConfig is the raw value of one key and the generation it was
// written at.
type storedConfig struct {
	value      string
	generation uint64
}

func NewEtcdManager(ctx context.Context, client etcd.Etcd, c *cache.Cache) (*EtcdManager, error) {
	em := &EtcdManager{
		client:     client,
		cache:      c,
		modelsPath: strings.TrimSuffix(client.GetBasePath(), "/") + modelsPath,
		raw:        make(map[string]storedConfig),
	}
	children, err := client.GetChildren(ctx, em.modelsPath)
	if err != nil {
		return nil, err
	}
	for key, value := range children {
		if rel, ok := em.relativeKey(key); ok {
			em.generation++
			em.raw[rel] = storedConfig{value: value, generation: em.generation}
		}
	}
	logger.Info(fmt.Sprintf("Loaded %d model configs from etcd path %s", len(em.raw), em.modelsPath))
	metrics.Gauge(metrics.ModelConfigModels, float64(len(em.raw)), []string{"source:etcd"})
	return em, nil
}

// Watch keeps the manager in sync with etcd until ctx is cancelled.
func (em *EtcdManager) Watch(ctx context.Context) error {
	if err := em.client.RegisterWatchPathCallback(em.modelsPath, em.onEvent); err != nil {
		return err
	}
	em.client.WatchPrefix(ctx, em.modelsPath)
	return nil
}

func (em *EtcdManager) onEvent(event etcd.Event) error {
	rel, ok := em.relativeKey(event.Key)
	if !ok {
		return nil
	}
	em.mu.Lock()
	em.generation++
	if event.Deleted {
		delete(em.raw, rel)
	} else {
		em.raw[rel] = storedConfig{value: event.Value, generation: em.generation}
	}
	count := len(em.raw)
	em.mu.Unlock()
	// a model cached before the lock was taken is still buffered; flush it so
	// the delete removes it
	em.cache.Wait()
	em.cache.Del(rel)
	metrics.Count(metrics.ModelConfigReloaded, 1, []string{"source:etcd"})
	metrics.Gauge(metrics.ModelConfigModels, float64(count), []string{"source:etcd"})
	return nil
}

// relativeKey turns an absolute etcd key into "<model>/<version>".
func (em *EtcdManager) relativeKey(key string) (string, bool) {
	rel := strings.TrimPrefix(key, em.modelsPath)
	if rel == key {
		return "", false
	}
	if _, _, err := splitModelKey(rel); err != nil {
		logger.Warn(fmt.Sprintf("ignoring etcd key %s", key), err)
		return "", false
	}
	return rel, true
}

func splitModelKey(rel string) (string, int64, error) {
	parts := strings.Split(rel, "/")
	if len(parts) != 2 || parts[0] == "" {
		return "", 0, fmt.Errorf("expected <model>/<version>, got %q", rel)
	}
	version, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || version <= 0 {
		return "", 0, fmt.Errorf("invalid version in %q", rel)
	}
	return parts[0], version, nil
}

func modelKey(name string, version int64) string {
	return name + "/" + strconv.FormatInt(version, 10)
}

func (em *EtcdManager) GetModel(name string, version int64) (*Model, error) {
	if version <= 0 {
		latest, ok := em.latestVersion(name)
		if !ok {
			return nil, api.NewNotFoundError("model '%s' is not available", name)
		}
		version = latest
	}
	key := modelKey(name, version)
	if v, found := em.cache.Get(key); found {
		return v.(*Model), nil
	}

	em.mu.RLock()
	stored, ok := em.raw[key]
	em.mu.RUnlock()
	if !ok {
		return nil, api.NewNotFoundError("model '%s' version %d is not available", name, version)
	}
	m, err := parseModel(name, version, stored.value)
	if err != nil {
		return nil, err
	}
	em.cacheIfCurrent(key, stored.generation, m)
	return m, nil
}

// cacheIfCurrent caches m only while key still holds the value m was parsed
// from. Holding the read lock orders the set before any later watch event,
// whose delete then evicts it.
func (em *EtcdManager) cacheIfCurrent(key string, generation uint64, m *Model) bool {
	em.mu.RLock()
	defer em.mu.RUnlock()
	if stored, ok := em.raw[key]; !ok || stored.generation != generation {
		return false
	}
	em.cache.SetWithTTL(key, m)
	return true
}

func (em *EtcdManager) latestVersion(name string) (int64, bool) {
	em.mu.RLock()
	defer em.mu.RUnlock()
	var latest int64
	for key := range em.raw {
		model, version, err := splitModelKey(key)
		if err != nil || model != name {
			continue
		}
		if version > latest {
			latest = version
		}
	}
	return latest, latest > 0
}

// GetAllModels skips entries that fail to parse or validate.
func (em *EtcdManager) GetAllModels() []*Model {
	em.mu.RLock()
	keys := make([]string, 0, len(em.raw))
	for key := range em.raw {
		keys = append(keys, key)
	}
	em.mu.RUnlock()

	models := make([]*Model, 0, len(keys))
	for _, key := range keys {
		name, version, err := splitModelKey(key)
		if err != nil {
			continue
		}
		m, err := em.GetModel(name, version)
		if err != nil {
			logger.Error(fmt.Sprintf("skipping model config %s", key), err)
			continue
		}
		models = append(models, m)
	}
	sortModels(models)
	return models
}

// parseModel decodes a stored config. The key is authoritative for name and
// version.
func parseModel(name string, version int64, value string) (*Model, error) {
	var cfg ModelConfig
	if err := json.Unmarshal([]byte(value), &cfg); err != nil {
		return nil, api.NewInvalidArgumentError("failed to parse config for model '%s' version %d: %v", name, version, err)
	}
	if cfg.Name == "" {
		cfg.Name = name
	}
	if cfg.Name != name {
		return nil, api.NewInvalidArgumentError("config stored for model '%s' names model '%s'", name, cfg.Name)
	}
	cfg.Version = version
	return NewModel(cfg)
}
