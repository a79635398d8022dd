package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/ragayama123/EVM-PM-Tool/internal/model"
	pkgerrors "github.com/ragayama123/EVM-PM-Tool/pkg/errors"
)

// TaskScheduleUpdate 执行类操作对单个任务的写入
// Version 为快照时的版本号；SetMember 为 false 时不修改负责人
type TaskScheduleUpdate struct {
	ID               int64
	Version          int
	PlannedStartDate *time.Time
	PlannedEndDate   *time.Time
	SetMember        bool
	AssignedMemberID *int64
}

// TaskRepository 任务数据访问接口
type TaskRepository interface {
	Create(ctx context.Context, task *model.Task) error
	GetByID(ctx context.Context, id int64) (*model.Task, error)
	ListByProject(ctx context.Context, projectID int64) ([]model.Task, error)
	ListByIDs(ctx context.Context, ids []int64) ([]model.Task, error)
	Update(ctx context.Context, task *model.Task) error
	Delete(ctx context.Context, id int64) error
	ApplyScheduleUpdates(ctx context.Context, updates []TaskScheduleUpdate) error
	ReplaceAll(ctx context.Context, projectID int64, tasks []model.Task, parents []int) (int64, error)
}

type taskRepo struct {
	db *gorm.DB
}

func NewTaskRepo(db *gorm.DB) TaskRepository {
	return &taskRepo{db: db}
}

func (r *taskRepo) Create(ctx context.Context, task *model.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *taskRepo) GetByID(ctx context.Context, id int64) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).
		Preload("AssignedMember").
		Where("id = ?", id).
		First(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// ListByProject 按计划开始日排序，未排期任务在后
func (r *taskRepo) ListByProject(ctx context.Context, projectID int64) ([]model.Task, error) {
	var tasks []model.Task
	err := r.db.WithContext(ctx).
		Preload("AssignedMember").
		Where("project_id = ?", projectID).
		Order("planned_start_date ASC NULLS LAST, id ASC").
		Find(&tasks).Error
	return tasks, err
}

func (r *taskRepo) ListByIDs(ctx context.Context, ids []int64) ([]model.Task, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var tasks []model.Task
	err := r.db.WithContext(ctx).
		Preload("AssignedMember").
		Where("id IN ?", ids).
		Order("planned_start_date ASC NULLS LAST, id ASC").
		Find(&tasks).Error
	return tasks, err
}

func (r *taskRepo) Update(ctx context.Context, task *model.Task) error {
	oldVersion := task.Version
	result := r.db.WithContext(ctx).
		Model(&model.Task{}).
		Where("id = ? AND version = ?", task.ID, oldVersion).
		Updates(map[string]interface{}{
			"parent_id":          task.ParentID,
			"predecessor_id":     task.PredecessorID,
			"assigned_member_id": task.AssignedMemberID,
			"name":               task.Name,
			"description":        task.Description,
			"task_type":          task.TaskType,
			"planned_hours":      task.PlannedHours,
			"actual_hours":       task.ActualHours,
			"progress":           task.Progress,
			"is_milestone":       task.IsMilestone,
			"planned_start_date": task.PlannedStartDate,
			"planned_end_date":   task.PlannedEndDate,
			"actual_start_date":  task.ActualStartDate,
			"actual_end_date":    task.ActualEndDate,
			"version":            oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	task.Version = oldVersion + 1
	return nil
}

// Delete 删除任务及其子任务，并清除指向它们的前置引用
func (r *taskRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []int64
		if err := tx.Model(&model.Task{}).
			Where("id = ? OR parent_id = ?", id, id).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return gorm.ErrRecordNotFound
		}

		if err := tx.Model(&model.Task{}).
			Where("predecessor_id IN ?", ids).
			Update("predecessor_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("parent_id = ?", id).Delete(&model.Task{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&model.Task{}).Error
	})
}

// ApplyScheduleUpdates 在同一事务内写入全部更新
// 任一任务版本号不匹配即整体回滚并返回 ErrOptimisticLock
func (r *taskRepo) ApplyScheduleUpdates(ctx context.Context, updates []TaskScheduleUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, u := range updates {
			fields := map[string]interface{}{
				"planned_start_date": u.PlannedStartDate,
				"planned_end_date":   u.PlannedEndDate,
				"version":            u.Version + 1,
			}
			if u.SetMember {
				fields["assigned_member_id"] = u.AssignedMemberID
			}
			result := tx.Model(&model.Task{}).
				Where("id = ? AND version = ?", u.ID, u.Version).
				Updates(fields)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return pkgerrors.ErrOptimisticLock
			}
		}
		return nil
	})
}

// ReplaceAll 在同一事务内删除项目全部任务并按顺序创建 tasks
// parents[i] 为 tasks[i] 的父任务下标（须小于 i），-1 表示顶层；创建后回写 ID 与 ParentID
func (r *taskRepo) ReplaceAll(ctx context.Context, projectID int64, tasks []model.Task, parents []int) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("project_id = ?", projectID).Delete(&model.Task{})
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected

		for i := range tasks {
			tasks[i].ProjectID = projectID
			tasks[i].ParentID = nil
			if p := parents[i]; p >= 0 {
				parentID := tasks[p].ID
				tasks[i].ParentID = &parentID
			}
			if err := tx.Create(&tasks[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}
