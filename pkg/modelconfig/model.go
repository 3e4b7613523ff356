package modelconfig

import (
	"github.com/Meesho/BharatMLStack/predator-core/pkg/api"
)

// Model is a validated, read-only view over a ModelConfig with name
// indexed lookup of inputs and outputs.
type Model struct {
	config  ModelConfig
	inputs  map[string]*ModelInput
	outputs map[string]*ModelOutput
}

// NewModel validates a copy of cfg. Later changes to cfg do not affect the
// returned Model.
func NewModel(cfg ModelConfig) (*Model, error) {
	cfg = cloneConfig(cfg)
	if err := validateModelConfig(&cfg); err != nil {
		return nil, err
	}
	m := &Model{
		config:  cfg,
		inputs:  make(map[string]*ModelInput, len(cfg.Input)),
		outputs: make(map[string]*ModelOutput, len(cfg.Output)),
	}
	for i := range m.config.Input {
		in := &m.config.Input[i]
		m.inputs[in.Name] = in
	}
	for i := range m.config.Output {
		out := &m.config.Output[i]
		m.outputs[out.Name] = out
	}
	return m, nil
}

func (m *Model) Name() string {
	return m.config.Name
}

func (m *Model) Version() int64 {
	return m.config.Version
}

func (m *Model) MaxBatchSize() int32 {
	return m.config.MaxBatchSize
}

// SupportsBatching reports whether request shapes carry a leading batch
// dimension.
func (m *Model) SupportsBatching() bool {
	return m.config.MaxBatchSize > 0
}

// Config returns the underlying configuration. Callers must not modify it.
func (m *Model) Config() *ModelConfig {
	return &m.config
}

// Inputs and Outputs return the configured tensors. Callers must not
// modify them.
func (m *Model) Inputs() []ModelInput {
	return m.config.Input
}

func (m *Model) Outputs() []ModelOutput {
	return m.config.Output
}

func (m *Model) GetInput(name string) (*ModelInput, error) {
	in, ok := m.inputs[name]
	if !ok {
		return nil, api.NewInvalidArgumentError("unexpected inference input '%s' for model '%s'", name, m.config.Name)
	}
	return in, nil
}

func (m *Model) GetOutput(name string) (*ModelOutput, error) {
	out, ok := m.outputs[name]
	if !ok {
		return nil, api.NewNotFoundError("unexpected inference output '%s' for model '%s'", name, m.config.Name)
	}
	return out, nil
}

func validateModelConfig(cfg *ModelConfig) error {
	if cfg.Name == "" {
		return api.NewInvalidArgumentError("model configuration must specify a name")
	}
	if cfg.MaxBatchSize < 0 {
		return api.NewInvalidArgumentError("max_batch_size must be non-negative for model '%s', got %d", cfg.Name, cfg.MaxBatchSize)
	}
	if len(cfg.Input) == 0 {
		return api.NewInvalidArgumentError("model '%s' must specify at least one input", cfg.Name)
	}
	if len(cfg.Output) == 0 {
		return api.NewInvalidArgumentError("model '%s' must specify at least one output", cfg.Name)
	}

	seen := make(map[string]struct{}, len(cfg.Input))
	for i := range cfg.Input {
		in := &cfg.Input[i]
		if err := validateTensor(cfg.Name, "input", in.Name, in.DataType.IsValid(), in.Dims); err != nil {
			return err
		}
		if _, dup := seen[in.Name]; dup {
			return api.NewInvalidArgumentError("input '%s' is declared more than once for model '%s'", in.Name, cfg.Name)
		}
		seen[in.Name] = struct{}{}
		if err := validateReshape(cfg.Name, in.Name, in.Dims, in.Reshape); err != nil {
			return err
		}
	}

	seen = make(map[string]struct{}, len(cfg.Output))
	for i := range cfg.Output {
		out := &cfg.Output[i]
		if err := validateTensor(cfg.Name, "output", out.Name, out.DataType.IsValid(), out.Dims); err != nil {
			return err
		}
		if _, dup := seen[out.Name]; dup {
			return api.NewInvalidArgumentError("output '%s' is declared more than once for model '%s'", out.Name, cfg.Name)
		}
		seen[out.Name] = struct{}{}
		if err := validateReshape(cfg.Name, out.Name, out.Dims, out.Reshape); err != nil {
			return err
		}
	}

	for _, w := range cfg.ModelWarmup {
		if err := validateWarmup(cfg, &w); err != nil {
			return err
		}
	}
	return nil
}

func validateTensor(model, kind, name string, validType bool, dims DimsList) error {
	if name == "" {
		return api.NewInvalidArgumentError("model '%s' has an %s without a name", model, kind)
	}
	if !validType {
		return api.NewInvalidArgumentError("%s '%s' for model '%s' has an invalid data type", kind, name, model)
	}
	for _, d := range dims {
		if d < WildcardDim || d == 0 {
			return api.NewInvalidArgumentError("%s '%s' for model '%s' has invalid dims %s", kind, name, model, dims)
		}
	}
	return nil
}

// validateReshape requires the reshape to keep the element count: the same
// number of wildcard dims, carried over in order, and the same product of
// the concrete dims.
func validateReshape(model, name string, dims DimsList, reshape *ModelTensorReshape) error {
	if reshape == nil {
		return nil
	}
	for _, d := range reshape.Shape {
		if d < WildcardDim || d == 0 {
			return api.NewInvalidArgumentError("reshape for '%s' of model '%s' has invalid shape %s", name, model, reshape.Shape)
		}
	}
	if countWildcards(dims) != countWildcards(reshape.Shape) {
		return api.NewInvalidArgumentError("reshape %s for '%s' of model '%s' must have the same number of wildcard dims as %s",
			reshape.Shape, name, model, dims)
	}
	if fixedProduct(dims) != fixedProduct(reshape.Shape) {
		return api.NewInvalidArgumentError("reshape %s for '%s' of model '%s' changes the element count of %s",
			reshape.Shape, name, model, dims)
	}
	return nil
}

func validateWarmup(cfg *ModelConfig, w *WarmupSetting) error {
	if w.Name == "" {
		return api.NewInvalidArgumentError("model '%s' has a warmup setting without a name", cfg.Name)
	}
	maxBatch := uint32(1)
	if cfg.MaxBatchSize > 0 {
		maxBatch = uint32(cfg.MaxBatchSize)
	}
	if w.BatchSize > maxBatch {
		return api.NewInvalidArgumentError("warmup '%s' batch size %d exceeds max batch size %d for model '%s'",
			w.Name, w.BatchSize, maxBatch, cfg.Name)
	}
	for name, in := range w.Inputs {
		if !in.DataType.IsValid() {
			return api.NewInvalidArgumentError("warmup '%s' input '%s' for model '%s' has an invalid data type", w.Name, name, cfg.Name)
		}
		if ContainsWildcard(in.Dims) {
			return api.NewInvalidArgumentError("warmup '%s' input '%s' for model '%s' must use concrete dims, got %s",
				w.Name, name, cfg.Name, in.Dims)
		}
		if in.ZeroData && in.RandomData {
			return api.NewInvalidArgumentError("warmup '%s' input '%s' for model '%s' cannot use both zero and random data",
				w.Name, name, cfg.Name)
		}
	}
	return nil
}

func countWildcards(dims []int64) int {
	n := 0
	for _, d := range dims {
		if d == WildcardDim {
			n++
		}
	}
	return n
}

func fixedProduct(dims []int64) int64 {
	p := int64(1)
	for _, d := range dims {
		if d != WildcardDim {
			p *= d
		}
	}
	return p
}

func cloneConfig(cfg ModelConfig) ModelConfig {
	inputs := make([]ModelInput, len(cfg.Input))
	for i, in := range cfg.Input {
		in.Dims = cloneDims(in.Dims)
		in.Reshape = cloneReshape(in.Reshape)
		inputs[i] = in
	}
	cfg.Input = inputs

	outputs := make([]ModelOutput, len(cfg.Output))
	for i, out := range cfg.Output {
		out.Dims = cloneDims(out.Dims)
		out.Reshape = cloneReshape(out.Reshape)
		outputs[i] = out
	}
	cfg.Output = outputs

	if cfg.ModelWarmup != nil {
		warmup := make([]WarmupSetting, len(cfg.ModelWarmup))
		for i, w := range cfg.ModelWarmup {
			samples := make(map[string]WarmupInput, len(w.Inputs))
			for name, in := range w.Inputs {
				in.Dims = cloneDims(in.Dims)
				samples[name] = in
			}
			w.Inputs = samples
			warmup[i] = w
		}
		cfg.ModelWarmup = warmup
	}
	return cfg
}

func cloneDims(dims DimsList) DimsList {
	if dims == nil {
		return nil
	}
	return append(DimsList(nil), dims...)
}

func cloneReshape(r *ModelTensorReshape) *ModelTensorReshape {
	if r == nil {
		return nil
	}
	return &ModelTensorReshape{Shape: cloneDims(r.Shape)}
}
