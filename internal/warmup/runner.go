package warmup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"sort"
	"strconv"

	"github.com/Meesho/BharatMLStack/predator-core/pkg/api"
	"github.com/Meesho/BharatMLStack/predator-core/pkg/inferrequest"
	"github.com/Meesho/BharatMLStack/predator-core/pkg/logger"
	"github.com/Meesho/BharatMLStack/predator-core/pkg/memory"
	"github.com/Meesho/BharatMLStack/predator-core/pkg/metrics"
	"github.com/Meesho/BharatMLStack/predator-core/pkg/modelconfig"
)

// Result summarises one warmup setting run against one model.
type Result struct {
	Model        string
	Version      int64
	Sample       string
	Runs         uint32
	BytesDrained uint64
}

// Runner sends the warmup samples declared in model configurations through
// request preparation, the way the first real requests would go.
type Runner struct {
	manager         modelconfig.Manager
	allocator       memory.Allocator
	protocolVersion uint32
	chunkSize       uint64
	rng             *rand.Rand
}

func NewRunner(manager modelconfig.Manager, allocator memory.Allocator, protocolVersion uint32, chunkSize uint64, seed int64) *Runner {
	return &Runner{
		manager:         manager,
		allocator:       allocator,
		protocolVersion: protocolVersion,
		chunkSize:       chunkSize,
		rng:             rand.New(rand.NewSource(seed)),
	}
}

// WarmupAll runs every warmup setting of every model known to the manager.
// A failing sample does not stop the others; all failures are returned
// joined.
func (r *Runner) WarmupAll(ctx context.Context) ([]Result, error) {
	var (
		results []Result
		errs    error
	)
	for _, model := range r.manager.GetAllModels() {
		res, err := r.WarmupModel(ctx, model)
		results = append(results, res...)
		if err != nil {
			errs = errors.Join(errs, err)
		}
		if ctx.Err() != nil {
			return results, errors.Join(errs, ctx.Err())
		}
	}
	return results, errs
}

func (r *Runner) WarmupModel(ctx context.Context, model *modelconfig.Model) ([]Result, error) {
	settings := model.Config().ModelWarmup
	if len(settings) == 0 {
		logger.Debug(fmt.Sprintf("No warmup configured for model %s version %d", model.Name(), model.Version()))
		return nil, nil
	}

	var (
		results []Result
		errs    error
	)
	for i := range settings {
		setting := &settings[i]
		tags := []string{"model:" + model.Name(), "version:" + strconv.FormatInt(model.Version(), 10), "sample:" + setting.Name}
		res, err := r.runSample(ctx, model, setting)
		metrics.Count(metrics.WarmupSampleTotal, 1, tags)
		if err != nil {
			metrics.Count(metrics.WarmupSampleError, 1, tags)
			logger.Error(fmt.Sprintf("Warmup sample %s failed for model %s version %d", setting.Name, model.Name(), model.Version()), err)
			errs = errors.Join(errs, err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		metrics.Count(metrics.WarmupBytesDrained, int64(res.BytesDrained), tags)
		logger.Info(fmt.Sprintf("Warmup sample %s done for model %s version %d: %d runs, %d bytes",
			setting.Name, model.Name(), model.Version(), res.Runs, res.BytesDrained))
		results = append(results, res)
	}
	return results, errs
}

func (r *Runner) runSample(ctx context.Context, model *modelconfig.Model, setting *modelconfig.WarmupSetting) (Result, error) {
	res := Result{Model: model.Name(), Version: model.Version(), Sample: setting.Name}
	req, buffers, err := r.buildRequest(model, setting)
	defer func() {
		for _, buf := range buffers {
			buf.Release()
		}
	}()
	if err != nil {
		return res, err
	}

	count := setting.Count
	if count == 0 {
		count = 1
	}
	for run := uint32(0); run < count; run++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := req.PrepareForInference(model); err != nil {
			return res, fmt.Errorf("warmup sample %s: %w", setting.Name, err)
		}
		n, err := r.drain(req)
		if err != nil {
			return res, fmt.Errorf("warmup sample %s: %w", setting.Name, err)
		}
		res.Runs++
		res.BytesDrained += n
	}
	return res, nil
}

func (r *Runner) buildRequest(model *modelconfig.Model, setting *modelconfig.WarmupSetting) (*inferrequest.InferenceRequest, []*memory.AllocatedMemory, error) {
	req, err := inferrequest.NewInferenceRequest(model.Name(), model.Version(), model.Version(), r.protocolVersion)
	if err != nil {
		return nil, nil, err
	}
	req.SetIdStr("warmup_" + setting.Name)

	batchSize := setting.BatchSize
	if batchSize == 0 {
		batchSize = 1
	}
	req.SetBatchSize(batchSize)
	if r.protocolVersion == inferrequest.ProtocolV1 {
		for _, out := range model.Outputs() {
			if err := req.AddRequestedOutput(out.Name, 0); err != nil {
				return nil, nil, err
			}
		}
	}

	names := make([]string, 0, len(setting.Inputs))
	for name := range setting.Inputs {
		names = append(names, name)
	}
	sort.Strings(names)

	var buffers []*memory.AllocatedMemory
	for _, name := range names {
		sample := setting.Inputs[name]
		shape := []int64(sample.Dims)
		if model.SupportsBatching() {
			shape = append([]int64{int64(batchSize)}, sample.Dims...)
		}
		in, err := req.AddTypedInput(name, sample.DataType, shape)
		if err != nil {
			return nil, buffers, err
		}

		size, ok := sampleByteSize(sample.DataType, sample.Dims, batchSize, sample.RandomData)
		if !ok {
			return nil, buffers, api.NewInvalidArgumentError("warmup input '%s' with dims %s and batch size %d is too large",
				name, sample.Dims, batchSize)
		}
		buf, err := memory.NewAllocatedMemory(r.allocator, size, memory.TypeCPU, 0)
		if err != nil {
			return nil, buffers, api.NewInternalError("failed to allocate %d bytes for warmup input '%s': %v", size, name, err)
		}
		buffers = append(buffers, buf)
		content, _, _ := buf.MutableBuffer()
		if sample.RandomData {
			fillRandom(r.rng, sample.DataType, content)
		} else {
			fillZero(content)
		}
		if err := in.SetData(buf); err != nil {
			return nil, buffers, err
		}
	}
	return req, buffers, nil
}

// drain reads every input the way execution would, in chunks of at most
// chunkSize bytes.
func (r *Runner) drain(req *inferrequest.InferenceRequest) (uint64, error) {
	var total uint64
	for _, in := range req.EffectiveInputs() {
		for {
			chunk, _, _, err := in.NextContent(r.chunkSize, memory.TypeCPU, 0)
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return total, err
			}
			total += uint64(len(chunk))
		}
	}
	return total, nil
}
