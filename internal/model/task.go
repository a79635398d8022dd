package model

import "time"

// Task 任务，对应 tasks
// ParentID 为空的任务为阶段（顶层），否则为其子任务；层级最多一层
type Task struct {
	ID               int64      `gorm:"primaryKey;autoIncrement"              json:"id"`
	ProjectID        int64      `gorm:"not null;index"                        json:"project_id"`
	ParentID         *int64     `gorm:"index"                                 json:"parent_id,omitempty"`
	PredecessorID    *int64     `json:"predecessor_id,omitempty"`
	AssignedMemberID *int64     `gorm:"index"                                 json:"assigned_member_id,omitempty"`
	Name             string     `gorm:"type:varchar(200);not null"            json:"name"`
	Description      string     `gorm:"type:text;not null;default:''"         json:"description"`
	TaskType         *string    `gorm:"type:varchar(30)"                      json:"task_type,omitempty"`
	PlannedHours     float64    `gorm:"type:numeric(10,2);not null;default:0" json:"planned_hours"`
	ActualHours      float64    `gorm:"type:numeric(10,2);not null;default:0" json:"actual_hours"`
	Progress         int        `gorm:"not null;default:0"                    json:"progress"`
	IsMilestone      bool       `gorm:"not null;default:false"                json:"is_milestone"`
	PlannedStartDate *time.Time `gorm:"type:date"                             json:"planned_start_date,omitempty"`
	PlannedEndDate   *time.Time `gorm:"type:date"                             json:"planned_end_date,omitempty"`
	ActualStartDate  *time.Time `gorm:"type:date"                             json:"actual_start_date,omitempty"`
	ActualEndDate    *time.Time `gorm:"type:date"                             json:"actual_end_date,omitempty"`
	VersionedModel

	// 关联
	AssignedMember *Member `gorm:"foreignKey:AssignedMemberID;references:ID" json:"assigned_member,omitempty"`
}

func (Task) TableName() string { return "tasks" }
