package modelconfig

import (
	"sort"

	"github.com/Meesho/BharatMLStack/predator-core/pkg/api"
)

// LatestVersion asks a Manager for the highest available version.
const LatestVersion int64 = -1

type Manager interface {
	GetModel(name string, version int64) (*Model, error)
	GetAllModels() []*Model
}

// modelIndex maps a model name to its loaded versions.
type modelIndex map[string]map[int64]*Model

func buildIndex(configs []ModelConfig) (modelIndex, error) {
	idx := make(modelIndex, len(configs))
	for _, cfg := range configs {
		m, err := NewModel(cfg)
		if err != nil {
			return nil, err
		}
		if err := idx.add(m); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

func (idx modelIndex) add(m *Model) error {
	versions, ok := idx[m.Name()]
	if !ok {
		versions = make(map[int64]*Model)
		idx[m.Name()] = versions
	}
	if _, dup := versions[m.Version()]; dup {
		return api.NewAlreadyExistsError("model '%s' version %d is configured more than once", m.Name(), m.Version())
	}
	versions[m.Version()] = m
	return nil
}

func (idx modelIndex) get(name string, version int64) (*Model, error) {
	versions, ok := idx[name]
	if !ok || len(versions) == 0 {
		return nil, api.NewNotFoundError("model '%s' is not available", name)
	}
	if version <= 0 {
		var latest *Model
		for v, m := range versions {
			if latest == nil || v > latest.Version() {
				latest = m
			}
		}
		return latest, nil
	}
	m, ok := versions[version]
	if !ok {
		return nil, api.NewNotFoundError("model '%s' version %d is not available", name, version)
	}
	return m, nil
}

// all returns every model ordered by name then version.
func (idx modelIndex) all() []*Model {
	out := make([]*Model, 0, len(idx))
	for _, versions := range idx {
		for _, m := range versions {
			out = append(out, m)
		}
	}
	sortModels(out)
	return out
}

func sortModels(models []*Model) {
	sort.Slice(models, func(i, j int) bool {
		if models[i].Name() != models[j].Name() {
			return models[i].Name() < models[j].Name()
		}
		return models[i].Version() < models[j].Version()
	})
}
