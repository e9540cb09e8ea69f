package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/warp/carepoints/config"
	"github.com/warp/carepoints/generic"
	"github.com/warp/carepoints/generic/store"
	"github.com/warp/carepoints/store/bolt"
	"github.com/warp/carepoints/store/file"
	"github.com/warp/carepoints/store/sqlite"
)

// openStore opens the store named by cfg.Driver.
func openStore(cfg config.StorageConfig, log *zap.Logger) (generic.Store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return store.NewMemory(), nil
	case config.DriverFile:
		return file.New(cfg.Path)
	case config.DriverBolt:
		return bolt.Open(cfg.Path, bolt.DefaultBucket)
	case config.DriverSQLite:
		return sqlite.New(cfg.Path, log)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
