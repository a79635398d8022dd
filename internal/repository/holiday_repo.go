package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/ragayama123/EVM-PM-Tool/internal/model"
)

// HolidayFilter 非工作日查询条件，零值字段不过滤
type HolidayFilter struct {
	Start       *time.Time
	End         *time.Time
	HolidayType string
}

// HolidayRepository 非工作日数据访问接口
type HolidayRepository interface {
	Create(ctx context.Context, holiday *model.Holiday) error
	GetByID(ctx context.Context, id int64) (*model.Holiday, error)
	ListByProject(ctx context.Context, projectID int64, filter HolidayFilter) ([]model.Holiday, error)
	// SaveBatch 同一事务内新增 create，并按 (project_id, date) 覆盖 replace 的名称与类型
	SaveBatch(ctx context.Context, create, replace []model.Holiday) error
	Delete(ctx context.Context, id int64) error
	DeleteByType(ctx context.Context, projectID int64, holidayType string) (int64, error)
}

type holidayRepo struct {
	db *gorm.DB
}

func NewHolidayRepo(db *gorm.DB) HolidayRepository {
	return &holidayRepo{db: db}
}

func (r *holidayRepo) Create(ctx context.Context, holiday *model.Holiday) error {
	return r.db.WithContext(ctx).Create(holiday).Error
}

func (r *holidayRepo) GetByID(ctx context.Context, id int64) (*model.Holiday, error) {
	var holiday model.Holiday
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&holiday).Error; err != nil {
		return nil, err
	}
	return &holiday, nil
}

func (r *holidayRepo) ListByProject(ctx context.Context, projectID int64, filter HolidayFilter) ([]model.Holiday, error) {
	var holidays []model.Holiday
	db := r.db.WithContext(ctx).Where("project_id = ?", projectID)
	if filter.Start != nil {
		db = db.Where(`"date" >= ?`, *filter.Start)
	}
	if filter.End != nil {
		db = db.Where(`"date" <= ?`, *filter.End)
	}
	if filter.HolidayType != "" {
		db = db.Where("holiday_type = ?", filter.HolidayType)
	}
	err := db.Order(`"date" ASC`).Find(&holidays).Error
	return holidays, err
}

func (r *holidayRepo) SaveBatch(ctx context.Context, create, replace []model.Holiday) error {
	if len(create) == 0 && len(replace) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(create) > 0 {
			if err := tx.CreateInBatches(&create, 200).Error; err != nil {
				return err
			}
		}
		for _, h := range replace {
			if err := tx.Model(&model.Holiday{}).
				Where(`project_id = ? AND "date" = ?`, h.ProjectID, h.Date).
				Updates(map[string]interface{}{
					"name":         h.Name,
					"holiday_type": h.HolidayType,
				}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *holidayRepo) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Holiday{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteByType holidayType 为空时删除项目全部非工作日
func (r *holidayRepo) DeleteByType(ctx context.Context, projectID int64, holidayType string) (int64, error) {
	db := r.db.WithContext(ctx).Where("project_id = ?", projectID)
	if holidayType != "" {
		db = db.Where("holiday_type = ?", holidayType)
	}
	result := db.Delete(&model.Holiday{})
	return result.RowsAffected, result.Error
}
