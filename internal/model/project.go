package model

// Project 项目，对应 projects
// 开始 / 结束日期与总计划工时由任务派生，不落库
type Project struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"                     json:"id"`
	Name        string `gorm:"type:varchar(200);not null"                   json:"name"`
	Description string `gorm:"type:text;not null;default:''"                json:"description"`
	Status      string `gorm:"type:varchar(20);not null;default:'planning'" json:"status"` // planning | in_progress | on_hold | completed | cancelled
	VersionedModel
}

func (Project) TableName() string { return "projects" }
