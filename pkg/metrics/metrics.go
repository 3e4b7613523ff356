package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/Meesho/BharatMLStack/predator-core/pkg/configs"
	"github.com/Meesho/BharatMLStack/predator-core/pkg/logger"
	"github.com/rs/zerolog/log"
)

const (
	PrepareLatency      = "predator.request.prepare.latency"
	PrepareTotal        = "predator.request.prepare.total"
	PrepareError        = "predator.request.prepare.error"
	NormalizeSkipped    = "predator.request.normalize.skipped"
	WarmupSampleTotal   = "predator.warmup.sample.total"
	WarmupSampleError   = "predator.warmup.sample.error"
	WarmupBytesDrained  = "predator.warmup.bytes.drained"
	ModelConfigReloaded = "predator.modelconfig.reload.total"
	ModelConfigModels   = "predator.modelconfig.models"
)

var (
	// It is safe to use one Client from multiple goroutines simultaneously
	statsDClient statsd.ClientInterface = getDefaultClient()

	samplingRate = 1.0
)

func InitMetrics(configs *configs.AppConfigs) {
	var err error
	samplingRate, err = strconv.ParseFloat(configs.Configs.MetricsSamplingRate, 64)
	if err != nil {
		logger.Panic("Error parsing metrics sampling rate", err)
	}
	telegrafAddress := configs.Configs.Telegraf_Host + ":" + configs.Configs.Telegraf_Port
	globalTags := []string{
		"env:" + configs.Configs.ApplicationEnv,
		"service:" + configs.Configs.ApplicationName,
	}

	client, err := statsd.New(telegrafAddress, statsd.WithTags(globalTags))
	if err != nil {
		// Telegraf may not be running locally, keep the no-op client.
		logger.Error("StatsD client initialization failed, metrics will be unavailable", err)
		return
	}
	statsDClient = client
	logger.Info(fmt.Sprintf("Metrics client initialized with telegraf address - %s, global tags - %v, and sampling rate - %f",
		telegrafAddress, globalTags, samplingRate))
}

func getDefaultClient() statsd.ClientInterface {
	client, err := statsd.New("localhost:8125", statsd.WithoutTelemetry())
	if err != nil {
		return &statsd.NoOpClient{}
	}
	return client
}

// SetClient replaces the statsd client, used by tests to capture emitted metrics.
func SetClient(client statsd.ClientInterface) {
	statsDClient = client
}

func Timing(name string, value time.Duration, tags []string) {
	err := statsDClient.Timing(name, value, tags, samplingRate)
	if err != nil {
		log.Warn().Err(err).Msg("Error occurred while doing statsd timing")
	}
}

func Count(name string, value int64, tags []string) {
	err := statsDClient.Count(name, value, tags, samplingRate)
	if err != nil {
		log.Warn().Err(err).Msg("Error occurred while doing statsd count")
	}
}

func Gauge(name string, value float64, tags []string) {
	err := statsDClient.Gauge(name, value, tags, samplingRate)
	if err != nil {
		log.Warn().Err(err).Msg("Error occurred while doing statsd gauge")
	}
}
