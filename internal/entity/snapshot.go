package entity

import (
	"time"
)

// Snapshot 任务最近一次成功处理的集合快照, 每个任务一行
type Snapshot struct {
	Id        int64     `gorm:"primaryKey;autoIncrement" json:"-"`
	JobId     string    `gorm:"uniqueIndex" json:"job_id"`
	Members   []string  `gorm:"serializer:json" json:"members"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// JobRun 任务最近一次运行时间
type JobRun struct {
	Id        int64     `gorm:"primaryKey;autoIncrement"`
	JobId     string    `gorm:"uniqueIndex"`
	LastRunAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}
