package configs

import (
	"log"

	"github.com/spf13/viper"
)

const (
	defaultProtocolVersion = 2
	defaultChunkSizeBytes  = 64 * 1024
	defaultCacheSize       = 1024
	defaultCacheTTLSec     = 300
	defaultDialTimeoutSec  = 30
)

func InitConfig(appConfigs *AppConfigs) {
	staticConfig := appConfigs.GetStaticConfig()
	cfg, ok := staticConfig.(*Configs)
	if !ok {
		log.Fatal("Failed to cast static config to *Configs")
	}

	setDefaults()
	bindEnvVars()

	if err := viper.Unmarshal(cfg); err != nil {
		log.Fatalf("Failed to unmarshal config from environment: %v", err)
	}

	log.Println("Configuration loaded from environment variables")
}

func setDefaults() {
	viper.SetDefault("app_log_level", "INFO")
	viper.SetDefault("metrics_sampling_rate", "1")
	viper.SetDefault("telegraf_host", "localhost")
	viper.SetDefault("telegraf_port", "8125")
	viper.SetDefault("modelConfig_source", "file")
	viper.SetDefault("modelConfig_cacheSize", defaultCacheSize)
	viper.SetDefault("modelConfig_cacheTtlSec", defaultCacheTTLSec)
	viper.SetDefault("etcd_dialTimeoutSec", defaultDialTimeoutSec)
	viper.SetDefault("request_defaultProtocolVersion", defaultProtocolVersion)
	viper.SetDefault("warmup_chunkSizeBytes", defaultChunkSizeBytes)
	viper.SetDefault("warmup_allocatorSizeClasses", "4096:16,65536:8,1048576:2")
}

func bindEnvVars() {
	// Application config
	viper.BindEnv("app_env", "APP_ENV")
	viper.BindEnv("app_log_level", "APP_LOG_LEVEL")
	viper.BindEnv("app_name", "APP_NAME")

	// Metrics / Telegraf config
	viper.BindEnv("metrics_sampling_rate", "METRIC_SAMPLING_RATE")
	viper.BindEnv("telegraf_host", "TELEGRAF_HOST")
	viper.BindEnv("telegraf_port", "TELEGRAF_PORT")

	// Model config
	viper.BindEnv("modelConfig_source", "MODEL_CONFIG_SOURCE")
	viper.BindEnv("modelConfig_file", "MODEL_CONFIG_FILE")
	viper.BindEnv("modelConfig_cacheSize", "MODEL_CONFIG_CACHE_SIZE")
	viper.BindEnv("modelConfig_cacheTtlSec", "MODEL_CONFIG_CACHE_TTL_SEC")

	// ETCD config
	viper.BindEnv("etcd_watcherEnabled", "ETCD_WATCHER_ENABLED")
	viper.BindEnv("etcd_server", "ETCD_SERVER")
	viper.BindEnv("etcd_username", "ETCD_USERNAME")
	viper.BindEnv("etcd_password", "ETCD_PASSWORD")
	viper.BindEnv("etcd_dialTimeoutSec", "ETCD_DIAL_TIMEOUT_SEC")

	// Request config
	viper.BindEnv("request_defaultProtocolVersion", "REQUEST_DEFAULT_PROTOCOL_VERSION")

	// Warmup config
	viper.BindEnv("warmup_chunkSizeBytes", "WARMUP_CHUNK_SIZE_BYTES")
	viper.BindEnv("warmup_allocatorSizeClasses", "WARMUP_ALLOCATOR_SIZE_CLASSES")
}
