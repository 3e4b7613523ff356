package inferrequest

import (
	"fmt"
	"strconv"
	"time"

	"github.com/Meesho/BharatMLStack/predator-core/pkg/api"
	"github.com/Meesho/BharatMLStack/predator-core/pkg/datatype"
	"github.com/Meesho/BharatMLStack/predator-core/pkg/logger"
	"github.com/Meesho/BharatMLStack/predator-core/pkg/metrics"
	"github.com/Meesho/BharatMLStack/predator-core/pkg/modelconfig"
)

const (
	ProtocolV1 uint32 = 1
	ProtocolV2 uint32 = 2
)

// share of failed preparations that are logged
const prepareErrorLogPercent = 5

// Request flags.
const (
	FlagSequenceStart uint32 = 1 << 0
	FlagSequenceEnd   uint32 = 1 << 1
)

// InferenceRequest is a single, reusable request to run a model. It is not
// safe for concurrent use. PrepareForInference must be called before every
// execution, including re-executions after mutation.
type InferenceRequest struct {
	modelName             string
	requestedModelVersion int64
	actualModelVersion    int64
	protocolVersion       uint32
	normalizer            normalizer

	id            uint64
	idStr         string
	flags         uint32
	correlationID uint64
	batchSize     uint32
	priority      uint32
	timeoutUs     uint64

	needsNormalization bool
	normalizedModel    *modelconfig.Model
	// requested outputs were filled in from the model configuration
	defaultOutputs bool

	inputs           map[string]*Input
	requestedOutputs map[string]*RequestedOutput
	overrideInputs   map[string]*Input
}

func NewInferenceRequest(modelName string, requestedVersion, actualVersion int64, protocolVersion uint32) (*InferenceRequest, error) {
	n, err := newNormalizer(protocolVersion)
	if err != nil {
		return nil, err
	}
	return &InferenceRequest{
		modelName:             modelName,
		requestedModelVersion: requestedVersion,
		actualModelVersion:    actualVersion,
		protocolVersion:       protocolVersion,
		normalizer:            n,
		needsNormalization:    true,
		inputs:                make(map[string]*Input),
		requestedOutputs:      make(map[string]*RequestedOutput),
		overrideInputs:        make(map[string]*Input),
	}, nil
}

func (r *InferenceRequest) ProtocolVersion() uint32 {
	return r.protocolVersion
}

func (r *InferenceRequest) ModelName() string {
	return r.modelName
}

func (r *InferenceRequest) RequestedModelVersion() int64 {
	return r.requestedModelVersion
}

func (r *InferenceRequest) ActualModelVersion() int64 {
	return r.actualModelVersion
}

// Id is the numeric request id used by protocol 1.
func (r *InferenceRequest) Id() uint64 {
	return r.id
}

func (r *InferenceRequest) SetId(id uint64) {
	r.id = id
}

// IdStr is the string request id used by protocol 2.
func (r *InferenceRequest) IdStr() string {
	return r.idStr
}

func (r *InferenceRequest) SetIdStr(id string) {
	r.idStr = id
}

func (r *InferenceRequest) Flags() uint32 {
	return r.flags
}

func (r *InferenceRequest) SetFlags(f uint32) {
	r.flags = f
}

func (r *InferenceRequest) IsSequenceStart() bool {
	return r.flags&FlagSequenceStart != 0
}

func (r *InferenceRequest) IsSequenceEnd() bool {
	return r.flags&FlagSequenceEnd != 0
}

func (r *InferenceRequest) CorrelationId() uint64 {
	return r.correlationID
}

func (r *InferenceRequest) SetCorrelationId(c uint64) {
	r.correlationID = c
}

// BatchSize is explicit under protocol 1 and derived from the input shapes
// by normalization under protocol 2.
func (r *InferenceRequest) BatchSize() uint32 {
	return r.batchSize
}

func (r *InferenceRequest) SetBatchSize(b uint32) {
	r.needsNormalization = true
	r.batchSize = b
}

func (r *InferenceRequest) Priority() uint32 {
	return r.priority
}

func (r *InferenceRequest) SetPriority(p uint32) {
	r.priority = p
}

// TimeoutMicroseconds is carried for the scheduler and never enforced here.
func (r *InferenceRequest) TimeoutMicroseconds() uint64 {
	return r.timeoutUs
}

func (r *InferenceRequest) SetTimeoutMicroseconds(t uint64) {
	r.timeoutUs = t
}

// NeedsNormalization reports whether the request or any of its inputs
// changed since the last successful PrepareForInference.
func (r *InferenceRequest) NeedsNormalization() bool {
	return r.needsNormalization || r.inputsDirty()
}

func (r *InferenceRequest) inputsDirty() bool {
	for _, in := range r.inputs {
		if in.dirty {
			return true
		}
	}
	return false
}

func (r *InferenceRequest) MutableInput(name string) (*Input, error) {
	in, ok := r.inputs[name]
	if !ok {
		return nil, api.NewInvalidArgumentError("input '%s' does not exist in request for model '%s'", name, r.modelName)
	}
	r.needsNormalization = true
	return in, nil
}

// MutableInputs gives direct access to the input map. The caller must keep
// every key equal to its value's Name.
func (r *InferenceRequest) MutableInputs() map[string]*Input {
	r.needsNormalization = true
	return r.inputs
}

func (r *InferenceRequest) Inputs() map[string]*Input {
	return r.inputs
}

func (r *InferenceRequest) MutableRequestedOutput(name string) (*RequestedOutput, error) {
	out, ok := r.requestedOutputs[name]
	if !ok {
		return nil, api.NewInvalidArgumentError("output '%s' does not exist in request for model '%s'", name, r.modelName)
	}
	r.needsNormalization = true
	r.defaultOutputs = false
	return out, nil
}

func (r *InferenceRequest) RequestedOutputs() map[string]*RequestedOutput {
	return r.requestedOutputs
}

func (r *InferenceRequest) MutableOverrideInputs() map[string]*Input {
	return r.overrideInputs
}

func (r *InferenceRequest) OverrideInputs() map[string]*Input {
	return r.overrideInputs
}

func (r *InferenceRequest) AddInput(name string, shape []int64, batchByteSize uint64) (*Input, error) {
	return r.addInput(newInput(name, datatype.DataTypeInvalid, shape, batchByteSize))
}

func (r *InferenceRequest) AddInputDims(name string, dims modelconfig.DimsList, batchByteSize uint64) (*Input, error) {
	return r.addInput(newInput(name, datatype.DataTypeInvalid, dims, batchByteSize))
}

// AddTypedInput adds an input that carries its own datatype. The byte size
// is derived during normalization.
func (r *InferenceRequest) AddTypedInput(name string, dt datatype.DataType, shape []int64) (*Input, error) {
	if !dt.IsValid() {
		return nil, api.NewInvalidArgumentError("input '%s' for model '%s' has an invalid data type", name, r.modelName)
	}
	return r.addInput(newInput(name, dt, shape, 0))
}

func (r *InferenceRequest) addInput(in *Input) (*Input, error) {
	if in.name == "" {
		return nil, api.NewInvalidArgumentError("input for model '%s' must have a name", r.modelName)
	}
	if _, ok := r.inputs[in.name]; ok {
		return nil, api.NewAlreadyExistsError("input '%s' already exists in request for model '%s'", in.name, r.modelName)
	}
	r.inputs[in.name] = in
	r.needsNormalization = true
	return in, nil
}

func (r *InferenceRequest) RemoveInput(name string) error {
	if _, ok := r.inputs[name]; !ok {
		return api.NewInvalidArgumentError("input '%s' does not exist in request for model '%s'", name, r.modelName)
	}
	delete(r.inputs, name)
	r.needsNormalization = true
	return nil
}

func (r *InferenceRequest) RemoveAllInputs() {
	r.inputs = make(map[string]*Input)
	r.needsNormalization = true
}

func (r *InferenceRequest) AddRequestedOutput(name string, classificationCount uint32) error {
	if r.defaultOutputs {
		r.requestedOutputs = make(map[string]*RequestedOutput)
		r.defaultOutputs = false
	}
	if name == "" {
		return api.NewInvalidArgumentError("requested output for model '%s' must have a name", r.modelName)
	}
	if _, ok := r.requestedOutputs[name]; ok {
		return api.NewAlreadyExistsError("output '%s' already requested for model '%s'", name, r.modelName)
	}
	r.requestedOutputs[name] = newRequestedOutput(name, classificationCount)
	r.needsNormalization = true
	return nil
}

func (r *InferenceRequest) RemoveRequestedOutput(name string) error {
	if _, ok := r.requestedOutputs[name]; !ok {
		return api.NewInvalidArgumentError("output '%s' was not requested for model '%s'", name, r.modelName)
	}
	delete(r.requestedOutputs, name)
	r.defaultOutputs = false
	r.needsNormalization = true
	return nil
}

func (r *InferenceRequest) RemoveAllRequestedOutputs() {
	r.requestedOutputs = make(map[string]*RequestedOutput)
	r.defaultOutputs = false
	r.needsNormalization = true
}

// AddOverrideInput adds an input injected by the serving engine for the
// next execution only. Override inputs are not validated against the model
// and are dropped by the next PrepareForInference.
func (r *InferenceRequest) AddOverrideInput(name string, shape []int64, batchByteSize uint64) (*Input, error) {
	if name == "" {
		return nil, api.NewInvalidArgumentError("override input for model '%s' must have a name", r.modelName)
	}
	for _, d := range shape {
		if d < 0 {
			return nil, api.NewInvalidArgumentError("override input '%s' for model '%s' has invalid shape %s",
				name, r.modelName, modelconfig.DimsListToString(shape))
		}
	}
	if _, ok := r.overrideInputs[name]; ok {
		return nil, api.NewAlreadyExistsError("override input '%s' already exists in request for model '%s'", name, r.modelName)
	}
	in := newInput(name, datatype.DataTypeInvalid, shape, batchByteSize)
	r.overrideInputs[name] = in
	return in, nil
}

// EffectiveInput returns the tensor execution should read for name: the
// override input when one exists, the regular input otherwise.
func (r *InferenceRequest) EffectiveInput(name string) (*Input, bool) {
	if in, ok := r.overrideInputs[name]; ok {
		return in, true
	}
	in, ok := r.inputs[name]
	return in, ok
}

// EffectiveInputs merges regular and override inputs, overrides winning.
func (r *InferenceRequest) EffectiveInputs() map[string]*Input {
	merged := make(map[string]*Input, len(r.inputs)+len(r.overrideInputs))
	for name, in := range r.inputs {
		merged[name] = in
	}
	for name, in := range r.overrideInputs {
		merged[name] = in
	}
	return merged
}

// PrepareForInference validates the request against model and normalizes
// shapes, datatypes, byte sizes and batch size. Normalization is skipped
// when nothing changed since the last successful call against the same
// model. Override inputs from a previous execution are dropped and every
// input cursor is rewound.
func (r *InferenceRequest) PrepareForInference(model *modelconfig.Model) error {
	start := time.Now()
	r.overrideInputs = make(map[string]*Input)

	tags := []string{"model:" + r.modelName, "protocol:" + strconv.FormatUint(uint64(r.protocolVersion), 10)}
	metrics.Count(metrics.PrepareTotal, 1, tags)

	if err := r.normalize(model, tags); err != nil {
		r.needsNormalization = true
		r.normalizedModel = nil
		metrics.Count(metrics.PrepareError, 1, append(tags, "code:"+api.Kind(err).String()))
		logger.PercentError(fmt.Sprintf("prepare failed for request %s of model %s", r.idStr, r.modelName), err, prepareErrorLogPercent)
		return err
	}

	for _, in := range r.inputs {
		in.ResetDataCursor()
		in.dirty = false
	}
	r.needsNormalization = false
	metrics.Timing(metrics.PrepareLatency, time.Since(start), tags)
	return nil
}

func (r *InferenceRequest) normalize(model *modelconfig.Model, tags []string) error {
	if model == nil {
		return api.NewInvalidArgumentError("no model configuration provided for model '%s'", r.modelName)
	}
	if model.Name() != r.modelName {
		return api.NewInvalidArgumentError("request for model '%s' cannot be prepared with configuration of model '%s'",
			r.modelName, model.Name())
	}
	if !r.NeedsNormalization() && r.normalizedModel == model {
		metrics.Count(metrics.NormalizeSkipped, 1, tags)
		return nil
	}
	if r.defaultOutputs {
		r.requestedOutputs = make(map[string]*RequestedOutput)
		r.defaultOutputs = false
	}
	if err := r.normalizer.normalize(r, model); err != nil {
		return err
	}
	r.normalizedModel = model
	return nil
}
