package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ragayama123/EVM-PM-Tool/internal/engine"
	"github.com/ragayama123/EVM-PM-Tool/internal/model"
	"github.com/ragayama123/EVM-PM-Tool/internal/repository"
)

// projectState 一次计算所用的项目数据快照
type projectState struct {
	project  *model.Project
	tasks    []model.Task
	members  []model.Member
	holidays engine.HolidaySet
}

func (st *projectState) engineTasks() []engine.Task     { return toEngineTasks(st.tasks) }
func (st *projectState) engineMembers() []engine.Member { return toEngineMembers(st.members) }

// taskByID 在快照中查找任务
func (st *projectState) taskByID(id int64) *model.Task {
	for i := range st.tasks {
		if st.tasks[i].ID == id {
			return &st.tasks[i]
		}
	}
	return nil
}

// loadProject 读取项目，不存在时返回 ErrProjectNotFound
func loadProject(ctx context.Context, repo *repository.Repository, logger *zap.Logger, projectID int64) (*model.Project, error) {
	project, err := repo.Project.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		logger.Error("查询项目失败", zap.Int64("project_id", projectID), zap.Error(err))
		return nil, err
	}
	return project, nil
}

// loadProjectState 读取项目及其任务、成员、非工作日
func loadProjectState(ctx context.Context, repo *repository.Repository, logger *zap.Logger, projectID int64) (*projectState, error) {
	project, err := loadProject(ctx, repo, logger, projectID)
	if err != nil {
		return nil, err
	}

	tasks, err := repo.Task.ListByProject(ctx, projectID)
	if err != nil {
		logger.Error("查询任务列表失败", zap.Int64("project_id", projectID), zap.Error(err))
		return nil, err
	}
	members, err := repo.Member.ListByProject(ctx, projectID)
	if err != nil {
		logger.Error("查询成员列表失败", zap.Int64("project_id", projectID), zap.Error(err))
		return nil, err
	}
	holidays, err := repo.Holiday.ListByProject(ctx, projectID, repository.HolidayFilter{})
	if err != nil {
		logger.Error("查询非工作日失败", zap.Int64("project_id", projectID), zap.Error(err))
		return nil, err
	}

	return &projectState{
		project:  project,
		tasks:    tasks,
		members:  members,
		holidays: toHolidaySet(holidays),
	}, nil
}
