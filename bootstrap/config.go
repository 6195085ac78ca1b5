package bootstrap

import (
	"github.com/kbukum/bucketgate/config"
)

// Config constrains the application config type. Embedding
// config.ServiceConfig supplies GetServiceConfig; the embedding struct
// overrides ApplyDefaults and Validate to cover its own blocks:
//
//	type AppConfig struct {
//	    config.ServiceConfig `mapstructure:",squash"`
//	    ObjStore storage.Config `mapstructure:"objstore"`
//	}
//
//	app, err := bootstrap.NewApp(&cfg)
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}
