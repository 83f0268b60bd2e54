package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/KNICEX/watch-agent/internal/entity"
	"github.com/tidwall/buntdb"
)

const (
	snapshotKeyPrefix = "snapshot:"
	runKeyPrefix      = "run:"
)

// buntSnapshotRepo 单文件存储, 不需要 cgo
type buntSnapshotRepo struct {
	db *buntdb.DB
}

// NewBuntSnapshotRepo path 为 ":memory:" 时仅在内存中
func NewBuntSnapshotRepo(path string) (SnapshotRepo, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open buntdb: %w", err)
	}
	if err := db.SetConfig(buntdb.Config{
		SyncPolicy:           buntdb.Always,
		AutoShrinkPercentage: 100,
		AutoShrinkMinSize:    32 * 1024 * 1024,
	}); err != nil {
		return nil, fmt.Errorf("failed to configure buntdb: %w", err)
	}
	return &buntSnapshotRepo{db: db}, nil
}

func (r *buntSnapshotRepo) Load(_ context.Context, jobId string) (entity.Snapshot, error) {
	var snapshot entity.Snapshot
	err := r.db.View(func(tx *buntdb.Tx) error {
		val, err := tx.Get(snapshotKeyPrefix + jobId)
		if err != nil {
			return err
		}
		return json.Unmarshal([]byte(val), &snapshot)
	})
	if errors.Is(err, buntdb.ErrNotFound) {
		return entity.Snapshot{}, ErrNotFound
	}
	if err != nil {
		return entity.Snapshot{}, &PersistenceError{Op: "load", JobId: jobId, Err: err}
	}
	return snapshot, nil
}

func (r *buntSnapshotRepo) Save(_ context.Context, snapshot entity.Snapshot) error {
	now := time.Now()
	err := r.db.Update(func(tx *buntdb.Tx) error {
		snapshot.CreatedAt = now
		if val, err := tx.Get(snapshotKeyPrefix + snapshot.JobId); err == nil {
			var prev entity.Snapshot
			if json.Unmarshal([]byte(val), &prev) == nil {
				snapshot.CreatedAt = prev.CreatedAt
			}
		}
		snapshot.UpdatedAt = now

		content, err := json.Marshal(snapshot)
		if err != nil {
			return fmt.Errorf("failed to marshal snapshot: %w", err)
		}
		_, _, err = tx.Set(snapshotKeyPrefix+snapshot.JobId, string(content), nil)
		return err
	})
	if err != nil {
		return &PersistenceError{Op: "save", JobId: snapshot.JobId, Err: err}
	}
	return nil
}

func (r *buntSnapshotRepo) LastRun(_ context.Context, jobId string) (time.Time, error) {
	var at time.Time
	err := r.db.View(func(tx *buntdb.Tx) error {
		val, err := tx.Get(runKeyPrefix + jobId)
		if err != nil {
			return err
		}
		at, err = time.Parse(time.RFC3339Nano, val)
		return err
	})
	if errors.Is(err, buntdb.ErrNotFound) {
		return time.Time{}, ErrNotFound
	}
	if err != nil {
		return time.Time{}, &PersistenceError{Op: "last run", JobId: jobId, Err: err}
	}
	return at, nil
}

func (r *buntSnapshotRepo) MarkRun(_ context.Context, jobId string, at time.Time) error {
	err := r.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(runKeyPrefix+jobId, at.UTC().Format(time.RFC3339Nano), nil)
		return err
	})
	if err != nil {
		return &PersistenceError{Op: "mark run", JobId: jobId, Err: err}
	}
	return nil
}

func (r *buntSnapshotRepo) Close() error {
	return r.db.Close()
}
