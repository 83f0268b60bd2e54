package repo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/KNICEX/watch-agent/internal/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound 任务尚无持久化记录
var ErrNotFound = errors.New("repo: not found")

// PersistenceError 存储不可用
type PersistenceError struct {
	Op    string
	JobId string
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("repo: %s %s: %v", e.Op, e.JobId, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// SnapshotRepo 每个任务独占一个 key, 任务之间无需加锁
type SnapshotRepo interface {
	Load(ctx context.Context, jobId string) (entity.Snapshot, error)
	Save(ctx context.Context, snapshot entity.Snapshot) error
	LastRun(ctx context.Context, jobId string) (time.Time, error)
	MarkRun(ctx context.Context, jobId string, at time.Time) error
	io.Closer
}

type snapshotRepo struct {
	db *gorm.DB
}

func NewSnapshotRepo(db *gorm.DB) SnapshotRepo {
	return &snapshotRepo{
		db: db,
	}
}

func (r *snapshotRepo) Load(ctx context.Context, jobId string) (entity.Snapshot, error) {
	var snapshot entity.Snapshot
	err := r.db.WithContext(ctx).Where("job_id = ?", jobId).First(&snapshot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entity.Snapshot{}, ErrNotFound
	}
	if err != nil {
		return entity.Snapshot{}, &PersistenceError{Op: "load", JobId: jobId, Err: err}
	}
	return snapshot, nil
}

func (r *snapshotRepo) Save(ctx context.Context, snapshot entity.Snapshot) error {
	snapshot.Id = 0
	snapshot.UpdatedAt = time.Now()
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "job_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"members", "updated_at"}),
	}).Create(&snapshot).Error
	if err != nil {
		return &PersistenceError{Op: "save", JobId: snapshot.JobId, Err: err}
	}
	return nil
}

func (r *snapshotRepo) LastRun(ctx context.Context, jobId string) (time.Time, error) {
	var run entity.JobRun
	err := r.db.WithContext(ctx).Where("job_id = ?", jobId).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, ErrNotFound
	}
	if err != nil {
		return time.Time{}, &PersistenceError{Op: "last run", JobId: jobId, Err: err}
	}
	return run.LastRunAt, nil
}

func (r *snapshotRepo) MarkRun(ctx context.Context, jobId string, at time.Time) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "job_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_run_at", "updated_at"}),
	}).Create(&entity.JobRun{
		JobId:     jobId,
		LastRunAt: at,
	}).Error
	if err != nil {
		return &PersistenceError{Op: "mark run", JobId: jobId, Err: err}
	}
	return nil
}

func (r *snapshotRepo) Close() error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
