package etcd

import (
	"fmt"

	"github.com/Meesho/BharatMLStack/predator-core/pkg/configs"
	"github.com/Meesho/BharatMLStack/predator-core/pkg/logger"
)

var (
	instance       Etcd
	DefaultVersion = 1
)

// Init initializes the Etcd client, to be called from main.go
func Init(version int, configs *configs.AppConfigs) {
	once.Do(func() {
		switch version {
		case DefaultVersion:
			v1, err := newV1Etcd(configs)
			if err != nil {
				logger.Panic("unable to create etcd client", err)
			}
			instance = v1
		default:
			logger.Panic(fmt.Sprintf("invalid version %d", version), nil)
		}
	})
}

// Instance returns the Etcd client instance. Ensure that Init is called before calling this function
func Instance() Etcd {
	if instance == nil {
		logger.Panic("etcd client not initialized, call Init first", nil)
	}
	return instance
}
