package configs

type Configs struct {
	ApplicationEnv      string `mapstructure:"app_env"`
	ApplicationLogLevel string `mapstructure:"app_log_level"`
	ApplicationName     string `mapstructure:"app_name"`

	//telegraf-config
	MetricsSamplingRate string `mapstructure:"metrics_sampling_rate"`
	Telegraf_Host       string `mapstructure:"telegraf_host"`
	Telegraf_Port       string `mapstructure:"telegraf_port"`

	//model-config source: "file" or "etcd"
	ModelConfigSource       string `mapstructure:"modelConfig_source"`
	ModelConfigFile         string `mapstructure:"modelConfig_file"`
	ModelConfigCacheSize    int64  `mapstructure:"modelConfig_cacheSize"`
	ModelConfigCacheTTLSec  int64  `mapstructure:"modelConfig_cacheTtlSec"`
	ETCD_WATCHER_ENABLED    bool   `mapstructure:"etcd_watcherEnabled"`
	ETCD_SERVER             string `mapstructure:"etcd_server"`
	ETCD_USERNAME           string `mapstructure:"etcd_username"`
	ETCD_PASSWORD           string `mapstructure:"etcd_password"`
	ETCD_DialTimeoutSeconds int    `mapstructure:"etcd_dialTimeoutSec"`

	//request-config
	RequestDefaultProtocolVersion uint32 `mapstructure:"request_defaultProtocolVersion"`

	//warmup-config
	WarmupChunkSizeBytes   uint64 `mapstructure:"warmup_chunkSizeBytes"`
	WarmupAllocatorClasses string `mapstructure:"warmup_allocatorSizeClasses"`
}

type AppConfigs struct {
	Configs Configs
}

func (a *AppConfigs) GetStaticConfig() interface{} {
	return &a.Configs
}
