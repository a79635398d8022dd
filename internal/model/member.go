package model

// Member 项目成员，对应 members
type Member struct {
	ID                    int64       `gorm:"primaryKey;autoIncrement"               json:"id"`
	ProjectID             int64       `gorm:"not null;index"                         json:"project_id"`
	Name                  string      `gorm:"type:varchar(100);not null"             json:"name"`
	Email                 *string     `gorm:"type:varchar(200)"                      json:"email,omitempty"`
	AvailableHoursPerWeek float64     `gorm:"type:numeric(6,2);not null;default:40"  json:"available_hours_per_week"`
	Skills                StringArray `gorm:"type:text[];not null;default:'{}'"      json:"skills"` // task_type 取值集合
	BaseModel
}

func (Member) TableName() string { return "members" }
