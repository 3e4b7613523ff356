package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Meesho/BharatMLStack/predator-core/internal/warmup"
	"github.com/Meesho/BharatMLStack/predator-core/pkg/cache"
	"github.com/Meesho/BharatMLStack/predator-core/pkg/configs"
	"github.com/Meesho/BharatMLStack/predator-core/pkg/etcd"
	"github.com/Meesho/BharatMLStack/predator-core/pkg/logger"
	"github.com/Meesho/BharatMLStack/predator-core/pkg/memory"
	"github.com/Meesho/BharatMLStack/predator-core/pkg/metrics"
	"github.com/Meesho/BharatMLStack/predator-core/pkg/modelconfig"
	"github.com/spf13/viper"
	_ "go.uber.org/automaxprocs"
)

var AppConfigs configs.AppConfigs

func main() {
	viper.AutomaticEnv()
	viper.SetConfigName("application") // file name without .env
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	err := viper.ReadInConfig()
	if err != nil {
		fmt.Println("Error reading config file, using environment only")
	}
	configs.InitConfig(&AppConfigs)
	logger.InitLogger(&AppConfigs)
	metrics.InitMetrics(&AppConfigs)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	os.Exit(run(ctx, stop))
}

func run(ctx context.Context, stop context.CancelFunc) int {
	defer stop()
	cfg := &AppConfigs.Configs

	manager, err := initModelConfigManager(ctx, cfg)
	if err != nil {
		logger.Error("Unable to initialize model config manager", err)
		return 1
	}

	classes, err := memory.ParseSizeClasses(cfg.WarmupAllocatorClasses)
	if err != nil {
		logger.Error("Invalid warmup allocator size classes", err)
		return 1
	}
	allocator := memory.NewHostAllocator(memory.HostAllocatorConfig{SizeClasses: classes})

	runner := warmup.NewRunner(manager, allocator, cfg.RequestDefaultProtocolVersion, cfg.WarmupChunkSizeBytes, time.Now().UnixNano())
	start := time.Now()
	results, err := runner.WarmupAll(ctx)
	logger.Info(fmt.Sprintf("Warmup finished in %s, %d samples succeeded", time.Since(start), len(results)))
	if err != nil {
		logger.Error("Warmup failed", err)
		return 1
	}
	return 0
}

func initModelConfigManager(ctx context.Context, cfg *configs.Configs) (modelconfig.Manager, error) {
	switch cfg.ModelConfigSource {
	case "file":
		manager, err := modelconfig.NewFileManager(cfg.ModelConfigFile)
		if err != nil {
			return nil, err
		}
		return manager, nil
	case "etcd":
		etcd.Init(etcd.DefaultVersion, &AppConfigs)
		c := cache.InitRistrettoCache(cfg.ModelConfigCacheSize, cfg.ModelConfigCacheTTLSec)
		manager, err := modelconfig.NewEtcdManager(ctx, etcd.Instance(), c)
		if err != nil {
			return nil, err
		}
		if cfg.ETCD_WATCHER_ENABLED {
			if err := manager.Watch(ctx); err != nil {
				return nil, err
			}
		}
		return manager, nil
	default:
		return nil, fmt.Errorf("unknown model config source %q", cfg.ModelConfigSource)
	}
}
