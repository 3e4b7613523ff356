package inferrequest

import (
	"github.com/Meesho/BharatMLStack/predator-core/pkg/api"
	"github.com/Meesho/BharatMLStack/predator-core/pkg/datatype"
	"github.com/Meesho/BharatMLStack/predator-core/pkg/modelconfig"
)

// normalizer reconciles a request with a model configuration. Each protocol
// version has its own rules for shapes and batch size.
type normalizer interface {
	normalize(r *InferenceRequest, model *modelconfig.Model) error
}

func newNormalizer(protocolVersion uint32) (normalizer, error) {
	switch protocolVersion {
	case ProtocolV1:
		return normalizerV1{}, nil
	case ProtocolV2:
		return normalizerV2{}, nil
	default:
		return nil, api.NewInvalidArgumentError("unsupported protocol version %d", protocolVersion)
	}
}

// normalizerV1 takes the batch size from the request. Input shapes are
// either the per-instance dims or the dims prefixed with the batch size.
type normalizerV1 struct{}

func (normalizerV1) normalize(r *InferenceRequest, model *modelconfig.Model) error {
	if err := checkRequestedOutputs(r, model); err != nil {
		return err
	}
	if err := checkRequiredInputs(r, model); err != nil {
		return err
	}

	maxBatch := uint32(1)
	if model.SupportsBatching() {
		maxBatch = uint32(model.MaxBatchSize())
	}
	if r.batchSize < 1 || r.batchSize > maxBatch {
		return api.NewInvalidArgumentError("inference request batch-size must be in [1, %d] for model '%s', got %d",
			maxBatch, model.Name(), r.batchSize)
	}

	for _, in := range r.inputs {
		cfg, err := model.GetInput(in.name)
		if err != nil {
			return err
		}
		if err := checkDataType(model, in, cfg); err != nil {
			return err
		}
		shape, err := v1Shape(model, in, cfg, r.batchSize)
		if err != nil {
			return err
		}
		if err := finishInput(model, in, cfg, shape, r.batchSize); err != nil {
			return err
		}
	}
	return nil
}

func v1Shape(model *modelconfig.Model, in *Input, cfg *modelconfig.ModelInput, batchSize uint32) ([]int64, error) {
	orig := in.originalShape
	switch {
	case len(orig) == 0:
		return configuredShape(model, cfg)
	case modelconfig.CompareDimsWithWildcard(cfg.Dims, orig):
		return cloneShape(orig), nil
	case model.SupportsBatching() && len(orig) == len(cfg.Dims)+1 && orig[0] == int64(batchSize) &&
		modelconfig.CompareDimsWithWildcard(cfg.Dims, orig[1:]):
		return cloneShape(orig[1:]), nil
	}
	return nil, shapeMismatch(model, in, cfg)
}

// normalizerV2 derives the batch size from the leading dim of the input
// shapes. Omitted shapes and -1 dims are filled from the configuration.
type normalizerV2 struct{}

func (normalizerV2) normalize(r *InferenceRequest, model *modelconfig.Model) error {
	if len(r.requestedOutputs) == 0 {
		outputs := model.Outputs()
		r.requestedOutputs = make(map[string]*RequestedOutput, len(outputs))
		for _, out := range outputs {
			r.requestedOutputs[out.Name] = newRequestedOutput(out.Name, 0)
		}
		r.defaultOutputs = true
	}
	if err := checkRequestedOutputs(r, model); err != nil {
		return err
	}
	if err := checkRequiredInputs(r, model); err != nil {
		return err
	}

	type pending struct {
		in    *Input
		cfg   *modelconfig.ModelInput
		shape []int64
	}
	inputs := make([]pending, 0, len(r.inputs))
	batchSize := uint32(0)
	var batchFrom string

	for _, in := range r.inputs {
		cfg, err := model.GetInput(in.name)
		if err != nil {
			return err
		}
		if err := checkDataType(model, in, cfg); err != nil {
			return err
		}
		shape, batch, err := v2Shape(model, in, cfg)
		if err != nil {
			return err
		}
		if batch > 0 {
			if batchSize == 0 {
				batchSize, batchFrom = batch, in.name
			} else if batch != batchSize {
				return api.NewInvalidArgumentError("input '%s' batch size %d does not match batch size %d of input '%s' for model '%s'",
					in.name, batch, batchSize, batchFrom, model.Name())
			}
		}
		inputs = append(inputs, pending{in: in, cfg: cfg, shape: shape})
	}

	if batchSize == 0 {
		batchSize = 1
	}
	if model.SupportsBatching() && batchSize > uint32(model.MaxBatchSize()) {
		return api.NewInvalidArgumentError("inference request batch-size must be <= %d for model '%s', got %d",
			model.MaxBatchSize(), model.Name(), batchSize)
	}

	for _, p := range inputs {
		if err := finishInput(model, p.in, p.cfg, p.shape, batchSize); err != nil {
			return err
		}
	}
	r.batchSize = batchSize
	return nil
}

// v2Shape returns the per-instance shape and, when the input carries a
// batch dim, the batch size it declares.
func v2Shape(model *modelconfig.Model, in *Input, cfg *modelconfig.ModelInput) ([]int64, uint32, error) {
	orig := in.originalShape
	if len(orig) == 0 {
		shape, err := configuredShape(model, cfg)
		return shape, 0, err
	}

	var batch uint32
	per := orig
	if model.SupportsBatching() && len(orig) == len(cfg.Dims)+1 {
		if orig[0] < 1 {
			return nil, 0, api.NewInvalidArgumentError("input '%s' for model '%s' has invalid batch dim %d",
				in.name, model.Name(), orig[0])
		}
		if orig[0] > int64(model.MaxBatchSize()) {
			return nil, 0, api.NewInvalidArgumentError("inference request batch-size must be <= %d for model '%s', got %d",
				model.MaxBatchSize(), model.Name(), orig[0])
		}
		batch = uint32(orig[0])
		per = orig[1:]
	}
	if len(per) != len(cfg.Dims) {
		return nil, 0, shapeMismatch(model, in, cfg)
	}

	shape := cloneShape(per)
	for i, d := range shape {
		if d != modelconfig.WildcardDim {
			continue
		}
		if cfg.Dims[i] == modelconfig.WildcardDim {
			return nil, 0, api.NewInvalidArgumentError("input '%s' for model '%s' must specify dim %d, configured dims are %s",
				in.name, model.Name(), i, cfg.Dims)
		}
		shape[i] = cfg.Dims[i]
	}
	if !modelconfig.CompareDimsWithWildcard(cfg.Dims, shape) {
		return nil, 0, shapeMismatch(model, in, cfg)
	}
	return shape, batch, nil
}

func checkRequestedOutputs(r *InferenceRequest, model *modelconfig.Model) error {
	for _, out := range r.requestedOutputs {
		cfg, err := model.GetOutput(out.name)
		if err != nil {
			return err
		}
		if out.classificationCount > 0 && cfg.DataType == datatype.DataTypeBytes {
			return api.NewInvalidArgumentError("output '%s' for model '%s' has BYTES datatype and cannot be classified",
				out.name, model.Name())
		}
	}
	return nil
}

func checkRequiredInputs(r *InferenceRequest, model *modelconfig.Model) error {
	for _, cfg := range model.Inputs() {
		if cfg.Optional {
			continue
		}
		if _, ok := r.inputs[cfg.Name]; !ok {
			return api.NewInvalidArgumentError("expected input '%s' for model '%s' is missing from the request",
				cfg.Name, model.Name())
		}
	}
	return nil
}

func checkDataType(model *modelconfig.Model, in *Input, cfg *modelconfig.ModelInput) error {
	if in.declaredDataType != datatype.DataTypeInvalid && in.declaredDataType != cfg.DataType {
		return api.NewInvalidArgumentError("input '%s' for model '%s' has datatype %s, expected %s",
			in.name, model.Name(), in.declaredDataType, cfg.DataType)
	}
	return nil
}

func configuredShape(model *modelconfig.Model, cfg *modelconfig.ModelInput) ([]int64, error) {
	if modelconfig.ContainsWildcard(cfg.Dims) {
		return nil, api.NewInvalidArgumentError("input '%s' for model '%s' has variable-size dims %s and must specify a shape",
			cfg.Name, model.Name(), cfg.Dims)
	}
	return cloneShape(cfg.Dims), nil
}

func shapeMismatch(model *modelconfig.Model, in *Input, cfg *modelconfig.ModelInput) error {
	expected := cfg.Dims.String()
	if model.SupportsBatching() {
		expected = modelconfig.DimsListToString(append([]int64{modelconfig.WildcardDim}, cfg.Dims...))
	}
	return api.NewInvalidArgumentError("unexpected shape for input '%s' for model '%s'. Expected %s, got %s",
		in.name, model.Name(), expected, modelconfig.DimsListToString(in.originalShape))
}

// finishInput commits the normalized shape after applying any configured
// reshape, then reconciles the byte size.
func finishInput(model *modelconfig.Model, in *Input, cfg *modelconfig.ModelInput, shape []int64, batchSize uint32) error {
	if cfg.Reshape != nil {
		shape = applyReshape(shape, cfg.Dims, cfg.Reshape.Shape)
	}
	size, err := reconcileByteSize(model, in, cfg.DataType, shape, batchSize)
	if err != nil {
		return err
	}
	in.shape = shape
	in.dataType = cfg.DataType
	in.batchByteSize = size
	return nil
}

// applyReshape maps shape, which matches dims, onto the reshape target.
// Wildcard dims take the values shape had at the wildcard positions of dims,
// in order.
func applyReshape(shape, dims, target []int64) []int64 {
	var carried []int64
	for i, d := range dims {
		if d == modelconfig.WildcardDim {
			carried = append(carried, shape[i])
		}
	}
	out := cloneShape(target)
	for i, d := range out {
		if d == modelconfig.WildcardDim && len(carried) > 0 {
			out[i] = carried[0]
			carried = carried[1:]
		}
	}
	return out
}

// reconcileByteSize returns the batch byte size of the input. Fixed-size
// datatypes derive it from the shape and reject a differing declared size
// or attached data. BYTES inputs use the declared size or, failing that,
// the size of the attached data.
func reconcileByteSize(model *modelconfig.Model, in *Input, dt datatype.DataType, shape []int64, batchSize uint32) (uint64, error) {
	dataSize, hasData := in.dataByteSize()
	if !dt.IsFixedSize() {
		if in.declaredByteSize != 0 && hasData && in.declaredByteSize != dataSize {
			return 0, api.NewInvalidArgumentError("input '%s' for model '%s' declares %d bytes but has %d bytes of data",
				in.name, model.Name(), in.declaredByteSize, dataSize)
		}
		if in.declaredByteSize != 0 {
			return in.declaredByteSize, nil
		}
		return dataSize, nil
	}

	instance := datatype.ByteSize(dt, shape)
	if instance < 0 {
		return 0, api.NewInvalidArgumentError("input '%s' for model '%s' with shape %s is too large",
			in.name, model.Name(), modelconfig.DimsListToString(shape))
	}
	total, ok := datatype.MulInt64(instance, int64(batchSize))
	if !ok {
		return 0, api.NewInvalidArgumentError("input '%s' for model '%s' with shape %s and batch size %d is too large",
			in.name, model.Name(), modelconfig.DimsListToString(shape), batchSize)
	}
	expected := uint64(total)
	if in.declaredByteSize != 0 && in.declaredByteSize != expected {
		return 0, api.NewInvalidArgumentError("input '%s' for model '%s' declares %d bytes, expected %d for shape %s and batch size %d",
			in.name, model.Name(), in.declaredByteSize, expected, modelconfig.DimsListToString(shape), batchSize)
	}
	if hasData && dataSize != expected {
		return 0, api.NewInvalidArgumentError("input '%s' for model '%s' has %d bytes of data, expected %d",
			in.name, model.Name(), dataSize, expected)
	}
	return expected, nil
}
