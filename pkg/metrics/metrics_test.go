package metrics

import (
	"testing"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/stretchr/testify/assert"
)

type recordingClient struct {
	statsd.NoOpClient
	counts  map[string]int64
	timings []string
	gauges  map[string]float64
}

func (r *recordingClient) Gauge(name string, value float64, tags []string, rate float64) error {
	r.gauges[name] = value
	return nil
}

func (r *recordingClient) Count(name string, value int64, tags []string, rate float64) error {
	r.counts[name] += value
	return nil
}

func (r *recordingClient) Timing(name string, value time.Duration, tags []string, rate float64) error {
	r.timings = append(r.timings, name)
	return nil
}

func TestCountAndTiming(t *testing.T) {
	rec := &recordingClient{counts: map[string]int64{}, gauges: map[string]float64{}}
	SetClient(rec)
	t.Cleanup(func() { SetClient(getDefaultClient()) })

	Count(PrepareTotal, 1, []string{"protocol:2"})
	Count(PrepareTotal, 2, nil)
	Timing(PrepareLatency, time.Millisecond, nil)

	assert.Equal(t, int64(3), rec.counts[PrepareTotal])
	assert.Equal(t, []string{PrepareLatency}, rec.timings)

	Gauge(ModelConfigModels, 3, []string{"source:file"})
	Gauge(ModelConfigModels, 2, []string{"source:file"})
	assert.Equal(t, float64(2), rec.gauges[ModelConfigModels])
}
