package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ragayama123/EVM-PM-Tool/internal/dto"
	"github.com/ragayama123/EVM-PM-Tool/internal/engine"
	"github.com/ragayama123/EVM-PM-Tool/internal/model"
	"github.com/ragayama123/EVM-PM-Tool/internal/repository"
)

// TaskService WBS 任务业务接口
type TaskService interface {
	List(ctx context.Context, projectID int64) ([]dto.TaskResponse, error)
	GetByID(ctx context.Context, id int64) (*dto.TaskResponse, error)
	Create(ctx context.Context, projectID int64, req *dto.CreateTaskRequest) (*dto.TaskResponse, error)
	Update(ctx context.Context, id int64, req *dto.UpdateTaskRequest) (*dto.TaskResponse, error)
	Delete(ctx context.Context, id int64) error
}

type taskService struct {
	repo   *repository.Repository
	hooks  *projectHooks
	logger *zap.Logger
}

// NewTaskService 创建 TaskService 实例
func NewTaskService(repo *repository.Repository, hooks *projectHooks, logger *zap.Logger) TaskService {
	return &taskService{repo: repo, hooks: hooks, logger: logger}
}

// ────────────────────── List ──────────────────────

func (s *taskService) List(ctx context.Context, projectID int64) ([]dto.TaskResponse, error) {
	if err := s.ensureProject(ctx, projectID); err != nil {
		return nil, err
	}

	tasks, err := s.repo.Task.ListByProject(ctx, projectID)
	if err != nil {
		s.logger.Error("查询任务列表失败", zap.Int64("project_id", projectID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.TaskResponse, 0, len(tasks))
	for i := range tasks {
		result = append(result, toTaskResponse(&tasks[i]))
	}
	return result, nil
}

// ────────────────────── GetByID ──────────────────────

func (s *taskService) GetByID(ctx context.Context, id int64) (*dto.TaskResponse, error) {
	task, err := s.getTask(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toTaskResponse(task)
	return &resp, nil
}

// ────────────────────── Create ──────────────────────

func (s *taskService) Create(ctx context.Context, projectID int64, req *dto.CreateTaskRequest) (*dto.TaskResponse, error) {
	if err := s.ensureProject(ctx, projectID); err != nil {
		return nil, err
	}

	task := &model.Task{ProjectID: projectID}
	if err := applyTaskRequest(task, req); err != nil {
		return nil, err
	}
	if err := s.validate(ctx, task); err != nil {
		return nil, err
	}

	if err := s.repo.Task.Create(ctx, task); err != nil {
		s.logger.Error("创建任务失败", zap.Int64("project_id", projectID), zap.Error(err))
		return nil, err
	}
	s.hooks.tasksChanged(ctx, projectID)

	return s.GetByID(ctx, task.ID)
}

// ────────────────────── Update ──────────────────────

// Update 整体替换任务字段，版本号不一致时返回 ErrOptimisticLock
func (s *taskService) Update(ctx context.Context, id int64, req *dto.UpdateTaskRequest) (*dto.TaskResponse, error) {
	task, err := s.getTask(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := applyTaskRequest(task, &req.CreateTaskRequest); err != nil {
		return nil, err
	}
	task.Version = req.Version
	task.AssignedMember = nil
	if err := s.validate(ctx, task); err != nil {
		return nil, err
	}

	if err := s.repo.Task.Update(ctx, task); err != nil {
		s.logger.Error("更新任务失败", zap.Int64("task_id", id), zap.Error(err))
		return nil, err
	}
	s.hooks.tasksChanged(ctx, task.ProjectID)

	return s.GetByID(ctx, id)
}

// ────────────────────── Delete ──────────────────────

// Delete 删除任务；阶段的子任务一并删除，指向它们的前置引用被清除
func (s *taskService) Delete(ctx context.Context, id int64) error {
	task, err := s.getTask(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Task.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		s.logger.Error("删除任务失败", zap.Int64("task_id", id), zap.Error(err))
		return err
	}
	s.hooks.tasksChanged(ctx, task.ProjectID)

	s.logger.Info("任务已删除", zap.Int64("task_id", id), zap.Int64("project_id", task.ProjectID))
	return nil
}

// ── 辅助 ──

func (s *taskService) ensureProject(ctx context.Context, projectID int64) error {
	if _, err := s.repo.Project.GetByID(ctx, projectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProjectNotFound
		}
		s.logger.Error("查询项目失败", zap.Int64("project_id", projectID), zap.Error(err))
		return err
	}
	return nil
}

func (s *taskService) getTask(ctx context.Context, id int64) (*model.Task, error) {
	task, err := s.repo.Task.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		s.logger.Error("查询任务失败", zap.Int64("task_id", id), zap.Error(err))
		return nil, err
	}
	return task, nil
}

// validate 校验负责人归属与任务层级 / 前置关系
func (s *taskService) validate(ctx context.Context, task *model.Task) error {
	if task.AssignedMemberID != nil {
		member, err := s.repo.Member.GetByID(ctx, *task.AssignedMemberID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMemberNotFound
			}
			s.logger.Error("查询成员失败", zap.Int64("member_id", *task.AssignedMemberID), zap.Error(err))
			return err
		}
		if member.ProjectID != task.ProjectID {
			return ErrMemberNotInProject
		}
	}

	siblings, err := s.repo.Task.ListByProject(ctx, task.ProjectID)
	if err != nil {
		s.logger.Error("查询任务列表失败", zap.Int64("project_id", task.ProjectID), zap.Error(err))
		return err
	}
	return engine.ValidateTask(toEngineTask(task), toEngineTasks(siblings))
}

// applyTaskRequest 将请求字段整体写入 task
func applyTaskRequest(task *model.Task, req *dto.CreateTaskRequest) error {
	plannedStart, err := parseDatePtr(req.PlannedStartDate)
	if err != nil {
		return err
	}
	plannedEnd, err := parseDatePtr(req.PlannedEndDate)
	if err != nil {
		return err
	}
	actualStart, err := parseDatePtr(req.ActualStartDate)
	if err != nil {
		return err
	}
	actualEnd, err := parseDatePtr(req.ActualEndDate)
	if err != nil {
		return err
	}

	var taskType *string
	if req.TaskType != nil && *req.TaskType != "" {
		tt, ok := engine.ParseTaskType(*req.TaskType)
		if !ok {
			return engine.ErrInvalidTaskType
		}
		v := string(tt)
		taskType = &v
	}

	task.ParentID = req.ParentID
	task.PredecessorID = req.PredecessorID
	task.AssignedMemberID = req.AssignedMemberID
	task.Name = req.Name
	task.Description = req.Description
	task.TaskType = taskType
	task.PlannedHours = req.PlannedHours
	task.ActualHours = req.ActualHours
	task.Progress = req.Progress
	task.IsMilestone = req.IsMilestone
	task.PlannedStartDate = plannedStart
	task.PlannedEndDate = plannedEnd
	task.ActualStartDate = actualStart
	task.ActualEndDate = actualEnd
	return nil
}
