package modelconfig

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Meesho/BharatMLStack/predator-core/pkg/logger"
	"github.com/Meesho/BharatMLStack/predator-core/pkg/metrics"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/mitchellh/mapstructure"
)

const configDelimiter = "."

// FileManager serves model configurations from a single JSON or YAML file
// holding a ModelRepository.
type FileManager struct {
	path     string
	provider *file.File
	parser   koanf.Parser

	mu    sync.RWMutex
	index modelIndex
}

func NewFileManager(path string) (*FileManager, error) {
	parser, err := parserFor(path)
	if err != nil {
		return nil, err
	}
	fm := &FileManager{
		path:     path,
		provider: file.Provider(path),
		parser:   parser,
	}
	if err := fm.Reload(); err != nil {
		return nil, err
	}
	return fm, nil
}

func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return json.Parser(), nil
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	default:
		return nil, fmt.Errorf("unsupported model config file extension for %s", path)
	}
}

// Reload re-reads the file. The previous configuration stays in place when
// the new one fails to parse or validate.
func (fm *FileManager) Reload() error {
	k := koanf.New(configDelimiter)
	if err := k.Load(fm.provider, fm.parser); err != nil {
		return fmt.Errorf("failed to load model config file %s: %w", fm.path, err)
	}
	var repo ModelRepository
	err := k.UnmarshalWithConf("", &repo, koanf.UnmarshalConf{
		Tag: "json",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook:       mapstructure.TextUnmarshallerHookFunc(),
			Result:           &repo,
			WeaklyTypedInput: true,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to decode model config file %s: %w", fm.path, err)
	}
	idx, err := buildIndex(repo.Models)
	if err != nil {
		return err
	}
	fm.mu.Lock()
	fm.index = idx
	fm.mu.Unlock()
	metrics.Gauge(metrics.ModelConfigModels, float64(len(repo.Models)), []string{"source:file"})
	return nil
}

// Watch reloads the configuration whenever the file changes.
func (fm *FileManager) Watch() error {
	return fm.provider.Watch(func(event interface{}, err error) {
		if err != nil {
			logger.Error(fmt.Sprintf("watch on model config file %s failed", fm.path), err)
			return
		}
		if err := fm.Reload(); err != nil {
			logger.Error(fmt.Sprintf("unable to reload model config file %s", fm.path), err)
			return
		}
		metrics.Count(metrics.ModelConfigReloaded, 1, []string{"source:file"})
		logger.Info(fmt.Sprintf("Reloaded model config file %s", fm.path))
	})
}

func (fm *FileManager) GetModel(name string, version int64) (*Model, error) {
	fm.mu.RLock()
	defer fm.mu.RUnlock()
	return fm.index.get(name, version)
}

func (fm *FileManager) GetAllModels() []*Model {
	fm.mu.RLock()
	defer fm.mu.RUnlock()
	return fm.index.all()
}
