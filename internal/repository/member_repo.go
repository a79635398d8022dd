package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ragayama123/EVM-PM-Tool/internal/model"
)

// MemberRepository 成员数据访问接口
type MemberRepository interface {
	Create(ctx context.Context, member *model.Member) error
	GetByID(ctx context.Context, id int64) (*model.Member, error)
	ListByProject(ctx context.Context, projectID int64) ([]model.Member, error)
	Update(ctx context.Context, member *model.Member) error
	// Delete 删除成员并在同一事务内清除任务上的负责人，返回被清除的任务数
	Delete(ctx context.Context, id int64) (int64, error)
}

type memberRepo struct {
	db *gorm.DB
}

func NewMemberRepo(db *gorm.DB) MemberRepository {
	return &memberRepo{db: db}
}

func (r *memberRepo) Create(ctx context.Context, member *model.Member) error {
	return r.db.WithContext(ctx).Create(member).Error
}

func (r *memberRepo) GetByID(ctx context.Context, id int64) (*model.Member, error) {
	var member model.Member
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *memberRepo) ListByProject(ctx context.Context, projectID int64) ([]model.Member, error) {
	var members []model.Member
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("id ASC").
		Find(&members).Error
	return members, err
}

func (r *memberRepo) Update(ctx context.Context, member *model.Member) error {
	result := r.db.WithContext(ctx).
		Model(&model.Member{}).
		Where("id = ?", member.ID).
		Updates(map[string]interface{}{
			"name":                     member.Name,
			"email":                    member.Email,
			"available_hours_per_week": member.AvailableHoursPerWeek,
			"skills":                   member.Skills,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *memberRepo) Delete(ctx context.Context, id int64) (int64, error) {
	var cleared int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Task{}).
			Where("assigned_member_id = ?", id).
			Updates(map[string]interface{}{
				"assigned_member_id": nil,
				"version":            gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			return res.Error
		}
		cleared = res.RowsAffected

		res = tx.Where("id = ?", id).Delete(&model.Member{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	return cleared, err
}
