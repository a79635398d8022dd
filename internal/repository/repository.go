package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Project     ProjectRepository
	Task        TaskRepository
	Member      MemberRepository
	Holiday     HolidayRepository
	EVMSnapshot EVMSnapshotRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		Project:     NewProjectRepo(db),
		Task:        NewTaskRepo(db),
		Member:      NewMemberRepo(db),
		Holiday:     NewHolidayRepo(db),
		EVMSnapshot: NewEVMSnapshotRepo(db),
	}
}
