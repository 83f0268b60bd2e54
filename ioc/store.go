package ioc

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/KNICEX/watch-agent/internal/repo"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitStore driver 为 sqlite 或 buntdb
func InitStore(cfg StoreConfig) repo.SnapshotRepo {
	if cfg.DSN != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DSN), 0o755); err != nil {
			panic(err)
		}
	}

	switch cfg.Driver {
	case "buntdb":
		store, err := repo.NewBuntSnapshotRepo(cfg.DSN)
		if err != nil {
			panic(err)
		}
		return store
	case "sqlite", "":
		db, err := gorm.Open(sqlite.Open(cfg.DSN), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
		if err != nil {
			panic(err)
		}
		if err := repo.InitTables(db); err != nil {
			panic(err)
		}
		return repo.NewSnapshotRepo(db)
	default:
		panic(fmt.Errorf("unknown store driver %q", cfg.Driver))
	}
}
