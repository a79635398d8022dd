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

// ProjectService 项目业务接口
type ProjectService interface {
	Create(ctx context.Context, req *dto.CreateProjectRequest) (*dto.ProjectResponse, error)
	GetByID(ctx context.Context, id int64) (*dto.ProjectResponse, error)
	List(ctx context.Context, req *dto.PaginationRequest) ([]dto.ProjectResponse, int64, error)
	Update(ctx context.Context, id int64, req *dto.UpdateProjectRequest) (*dto.ProjectResponse, error)
	UpdateStatus(ctx context.Context, id int64, req *dto.UpdateProjectStatusRequest) (*dto.ProjectResponse, error)
	Delete(ctx context.Context, id int64) error
}

type projectService struct {
	repo   *repository.Repository
	hooks  *projectHooks
	logger *zap.Logger
}

// NewProjectService 创建 ProjectService 实例
func NewProjectService(repo *repository.Repository, hooks *projectHooks, logger *zap.Logger) ProjectService {
	return &projectService{repo: repo, hooks: hooks, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *projectService) Create(ctx context.Context, req *dto.CreateProjectRequest) (*dto.ProjectResponse, error) {
	status := engine.ProjectPlanning
	if req.Status != "" {
		status = engine.ProjectStatus(req.Status)
		if !status.Valid() {
			return nil, ErrInvalidStatus
		}
	}

	project := &model.Project{
		Name:        req.Name,
		Description: req.Description,
		Status:      string(status),
	}
	if err := s.repo.Project.Create(ctx, project); err != nil {
		s.logger.Error("创建项目失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("项目已创建", zap.Int64("project_id", project.ID), zap.String("name", project.Name))
	return s.toProjectResponse(project, nil), nil
}

// ────────────────────── GetByID ──────────────────────

// GetByID 返回项目详情，起止日期与总工时由任务实时派生
func (s *projectService) GetByID(ctx context.Context, id int64) (*dto.ProjectResponse, error) {
	project, err := s.getProject(ctx, id)
	if err != nil {
		return nil, err
	}

	tasks, err := s.repo.Task.ListByProject(ctx, id)
	if err != nil {
		s.logger.Error("查询任务列表失败", zap.Int64("project_id", id), zap.Error(err))
		return nil, err
	}

	return s.toProjectResponse(project, toEngineTasks(tasks)), nil
}

// ────────────────────── List ──────────────────────

// List 分页列出项目（不含派生字段）
func (s *projectService) List(ctx context.Context, req *dto.PaginationRequest) ([]dto.ProjectResponse, int64, error) {
	projects, total, err := s.repo.Project.List(ctx, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出项目失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.ProjectResponse, 0, len(projects))
	for i := range projects {
		result = append(result, *s.toProjectResponse(&projects[i], nil))
	}
	return result, total, nil
}

// ────────────────────── Update ──────────────────────

func (s *projectService) Update(ctx context.Context, id int64, req *dto.UpdateProjectRequest) (*dto.ProjectResponse, error) {
	project, err := s.getProject(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		project.Name = *req.Name
	}
	if req.Description != nil {
		project.Description = *req.Description
	}
	project.Version = req.Version

	if err := s.repo.Project.Update(ctx, project); err != nil {
		s.logger.Error("更新项目失败", zap.Int64("project_id", id), zap.Error(err))
		return nil, err
	}

	return s.toProjectResponse(project, nil), nil
}

// ────────────────────── UpdateStatus ──────────────────────

// UpdateStatus 手动设置状态（暂停 / 取消 / 恢复）；之后任务写入只在非人工状态下重新推导
func (s *projectService) UpdateStatus(ctx context.Context, id int64, req *dto.UpdateProjectStatusRequest) (*dto.ProjectResponse, error) {
	status := engine.ProjectStatus(req.Status)
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	project, err := s.getProject(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Project.UpdateStatus(ctx, id, string(status)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		s.logger.Error("更新项目状态失败", zap.Int64("project_id", id), zap.Error(err))
		return nil, err
	}
	project.Status = string(status)

	s.logger.Info("项目状态已手动设置", zap.Int64("project_id", id), zap.String("status", project.Status))
	return s.toProjectResponse(project, nil), nil
}

// ────────────────────── Delete ──────────────────────

// Delete 删除项目并级联删除任务、成员、非工作日与快照
func (s *projectService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Project.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProjectNotFound
		}
		s.logger.Error("删除项目失败", zap.Int64("project_id", id), zap.Error(err))
		return err
	}

	s.hooks.invalidate(ctx, id)
	s.logger.Info("项目已删除", zap.Int64("project_id", id))
	return nil
}

// ── 辅助 ──

func (s *projectService) getProject(ctx context.Context, id int64) (*model.Project, error) {
	project, err := s.repo.Project.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		s.logger.Error("查询项目失败", zap.Int64("project_id", id), zap.Error(err))
		return nil, err
	}
	return project, nil
}

// toProjectResponse tasks 为 nil 时不填派生字段与汇总
func (s *projectService) toProjectResponse(p *model.Project, tasks []engine.Task) *dto.ProjectResponse {
	resp := &dto.ProjectResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Status:      p.Status,
		Version:     p.Version,
		CreatedAt:   formatTime(p.CreatedAt),
		UpdatedAt:   formatTime(p.UpdatedAt),
	}
	if tasks != nil {
		span := engine.DeriveProjectSpan(tasks)
		resp.StartDate = formatDate(span.Start)
		resp.EndDate = formatDate(span.End)
		resp.TotalPlannedHours = span.TotalPlannedHours
		summary := toSummaryResponse(engine.Summarize(tasks))
		resp.Summary = &summary
	}
	return resp
}
