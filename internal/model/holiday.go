package model

import "time"

// Holiday 非工作日，对应 holidays，(project_id, date) 唯一
type Holiday struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"                             json:"id"`
	ProjectID   int64     `gorm:"not null;uniqueIndex:uq_holidays_project_date"        json:"project_id"`
	Date        time.Time `gorm:"type:date;not null;uniqueIndex:uq_holidays_project_date" json:"date"`
	Name        string    `gorm:"type:varchar(100);not null"                           json:"name"`
	HolidayType string    `gorm:"type:varchar(20);not null;default:'custom'"           json:"holiday_type"` // weekend | national | company | custom
	BaseModel
}

func (Holiday) TableName() string { return "holidays" }
