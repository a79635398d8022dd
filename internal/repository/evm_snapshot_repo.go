package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/ragayama123/EVM-PM-Tool/internal/model"
)

// EVMSnapshotRepository EVM 快照数据访问接口（只追加）
type EVMSnapshotRepository interface {
	Create(ctx context.Context, snapshot *model.EVMSnapshot) error
	ListByProject(ctx context.Context, projectID int64, start, end *time.Time, offset, limit int) ([]model.EVMSnapshot, int64, error)
}

type evmSnapshotRepo struct {
	db *gorm.DB
}

func NewEVMSnapshotRepo(db *gorm.DB) EVMSnapshotRepository {
	return &evmSnapshotRepo{db: db}
}

func (r *evmSnapshotRepo) Create(ctx context.Context, snapshot *model.EVMSnapshot) error {
	return r.db.WithContext(ctx).Create(snapshot).Error
}

// ListByProject 按快照日期升序返回，便于直接绘制 S 曲线
func (r *evmSnapshotRepo) ListByProject(ctx context.Context, projectID int64, start, end *time.Time, offset, limit int) ([]model.EVMSnapshot, int64, error) {
	var snapshots []model.EVMSnapshot
	var total int64

	db := r.db.WithContext(ctx).Model(&model.EVMSnapshot{}).Where("project_id = ?", projectID)
	if start != nil {
		db = db.Where("snapshot_date >= ?", *start)
	}
	if end != nil {
		db = db.Where("snapshot_date <= ?", *end)
	}
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := db.Order("snapshot_date ASC, id ASC").Offset(offset).Limit(limit).Find(&snapshots).Error
	return snapshots, total, err
}
