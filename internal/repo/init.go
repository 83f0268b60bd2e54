package repo

import (
	"github.com/KNICEX/watch-agent/internal/entity"
	"gorm.io/gorm"
)

func InitTables(db *gorm.DB) error {
	return db.AutoMigrate(&entity.Snapshot{}, &entity.JobRun{})
}
