package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ragayama123/EVM-PM-Tool/config"
	"github.com/ragayama123/EVM-PM-Tool/internal/dto"
	"github.com/ragayama123/EVM-PM-Tool/internal/engine"
	"github.com/ragayama123/EVM-PM-Tool/internal/repository"
	"github.com/ragayama123/EVM-PM-Tool/pkg/metrics"
)

// ScheduleService 级联重排与自动排程业务接口
//
// 预览与执行调用同一个计划函数；执行在项目锁内重新读取快照并整体写入。
type ScheduleService interface {
	PreviewReschedule(ctx context.Context, pivotID int64, req *dto.RescheduleRequest) (*dto.ReschedulePreviewResponse, error)
	ExecuteReschedule(ctx context.Context, pivotID int64, req *dto.RescheduleRequest) (*dto.ExecuteResponse, error)
	PreviewAutoSchedule(ctx context.Context, projectID int64, req *dto.AutoScheduleRequest) (*dto.AutoSchedulePreviewResponse, error)
	ExecuteAutoSchedule(ctx context.Context, projectID int64, req *dto.AutoScheduleRequest) (*dto.ExecuteResponse, error)
}

type scheduleService struct {
	repo   *repository.Repository
	hooks  *projectHooks
	cfg    *config.SchedulingConfig
	loc    *time.Location
	logger *zap.Logger
}

// NewScheduleService 创建 ScheduleService 实例
func NewScheduleService(repo *repository.Repository, hooks *projectHooks, cfg *config.SchedulingConfig, loc *time.Location, logger *zap.Logger) ScheduleService {
	return &scheduleService{repo: repo, hooks: hooks, cfg: cfg, loc: loc, logger: logger}
}

const (
	opReschedule = "reschedule"
	opAutoAssign = "auto_assign"

	modePreview = "preview"
	modeExecute = "execute"
)

// ════════════════════════════════════════════════════════════
// Reschedule 级联平移
// ════════════════════════════════════════════════════════════

func (s *scheduleService) PreviewReschedule(ctx context.Context, pivotID int64, req *dto.RescheduleRequest) (*dto.ReschedulePreviewResponse, error) {
	projectID, err := s.pivotProject(ctx, pivotID)
	if err != nil {
		return nil, err
	}
	st, err := loadProjectState(ctx, s.repo, s.logger, projectID)
	if err != nil {
		return nil, err
	}

	plan, err := s.planReschedule(st, pivotID, req, modePreview)
	if err != nil {
		return nil, err
	}
	return toReschedulePreview(plan), nil
}

// ExecuteReschedule 步骤：
//  1. 获取项目锁
//  2. 重新读取快照并计算计划（与预览相同的函数）
//  3. 单事务写入全部受影响任务，任一版本冲突整体回滚
//  4. 刷新项目状态、失效缓存
func (s *scheduleService) ExecuteReschedule(ctx context.Context, pivotID int64, req *dto.RescheduleRequest) (*dto.ExecuteResponse, error) {
	projectID, err := s.pivotProject(ctx, pivotID)
	if err != nil {
		return nil, err
	}

	var ids []int64
	err = s.hooks.withProjectLock(ctx, projectID, func() error {
		st, err := loadProjectState(ctx, s.repo, s.logger, projectID)
		if err != nil {
			return err
		}
		plan, err := s.planReschedule(st, pivotID, req, modeExecute)
		if err != nil {
			return err
		}

		updates := make([]repository.TaskScheduleUpdate, 0, len(plan.Changes))
		for _, c := range plan.Changes {
			updates = append(updates, repository.TaskScheduleUpdate{
				ID:               c.TaskID,
				Version:          st.taskByID(c.TaskID).Version,
				PlannedStartDate: c.NewStart,
				PlannedEndDate:   c.NewEnd,
			})
			ids = append(ids, c.TaskID)
		}
		return s.apply(ctx, projectID, opReschedule, updates)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("级联重排已执行",
		zap.Int64("project_id", projectID),
		zap.Int64("pivot_id", pivotID),
		zap.Int("shift_days", *req.ShiftDays),
		zap.Int("updated", len(ids)),
	)
	return s.executeResponse(ctx, projectID, ids, nil)
}

func (s *scheduleService) planReschedule(st *projectState, pivotID int64, req *dto.RescheduleRequest, mode string) (engine.ReschedulePlan, error) {
	if req.ShiftDays == nil {
		return engine.ReschedulePlan{}, engine.ErrZeroShift
	}
	started := time.Now()
	plan, err := engine.PlanReschedule(st.engineTasks(), pivotID, *req.ShiftDays, st.holidays)
	metrics.RecordEngineOp(opReschedule, mode, time.Since(started))
	return plan, err
}

// pivotProject 查找基准任务所属项目
func (s *scheduleService) pivotProject(ctx context.Context, pivotID int64) (int64, error) {
	task, err := s.repo.Task.GetByID(ctx, pivotID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrTaskNotFound
		}
		s.logger.Error("查询任务失败", zap.Int64("task_id", pivotID), zap.Error(err))
		return 0, err
	}
	return task.ProjectID, nil
}

// ════════════════════════════════════════════════════════════
// AutoSchedule 技能匹配 + 顺序排程
// ════════════════════════════════════════════════════════════

func (s *scheduleService) PreviewAutoSchedule(ctx context.Context, projectID int64, req *dto.AutoScheduleRequest) (*dto.AutoSchedulePreviewResponse, error) {
	startDate, err := parseDatePtr(req.StartDate)
	if err != nil {
		return nil, err
	}
	st, err := loadProjectState(ctx, s.repo, s.logger, projectID)
	if err != nil {
		return nil, err
	}

	plan, err := s.planAutoAssign(st, req, startDate, modePreview)
	if err != nil {
		return nil, err
	}
	return toAutoSchedulePreview(plan), nil
}

// ExecuteAutoSchedule 步骤同 ExecuteReschedule；子任务获得所属阶段的负责人与日期范围
// 未匹配到成员的阶段写入空负责人，与预览一致
func (s *scheduleService) ExecuteAutoSchedule(ctx context.Context, projectID int64, req *dto.AutoScheduleRequest) (*dto.ExecuteResponse, error) {
	startDate, err := parseDatePtr(req.StartDate)
	if err != nil {
		return nil, err
	}
	if _, err := loadProject(ctx, s.repo, s.logger, projectID); err != nil {
		return nil, err
	}

	var ids []int64
	var warnings []engine.Warning
	err = s.hooks.withProjectLock(ctx, projectID, func() error {
		st, err := loadProjectState(ctx, s.repo, s.logger, projectID)
		if err != nil {
			return err
		}
		plan, err := s.planAutoAssign(st, req, startDate, modeExecute)
		if err != nil {
			return err
		}
		warnings = plan.Warnings

		var updates []repository.TaskScheduleUpdate
		for _, a := range plan.Assignments {
			start, end := a.NewStart, a.NewEnd
			taskIDs := append([]int64{a.TaskID}, a.ChildIDs...)
			for _, id := range taskIDs {
				updates = append(updates, repository.TaskScheduleUpdate{
					ID:               id,
					Version:          st.taskByID(id).Version,
					PlannedStartDate: &start,
					PlannedEndDate:   &end,
					SetMember:        true,
					AssignedMemberID: a.NewMemberID,
				})
				ids = append(ids, id)
			}
		}
		return s.apply(ctx, projectID, opAutoAssign, updates)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("自动排程已执行",
		zap.Int64("project_id", projectID),
		zap.Int("updated", len(ids)),
		zap.Int("warnings", len(warnings)),
	)
	return s.executeResponse(ctx, projectID, ids, warnings)
}

func (s *scheduleService) planAutoAssign(st *projectState, req *dto.AutoScheduleRequest, startDate *time.Time, mode string) (engine.AutoAssignPlan, error) {
	started := time.Now()
	plan, err := engine.PlanAutoAssign(engine.AutoAssignInput{
		Tasks:              st.engineTasks(),
		Members:            st.engineMembers(),
		TaskIDs:            req.TaskIDs,
		PreserveOrder:      req.PreserveOrder,
		StartDate:          startDate,
		DefaultHoursPerDay: s.cfg.DefaultHoursPerDay,
		WorkDaysPerWeek:    s.cfg.WorkDaysPerWeek,
	}, st.holidays)
	metrics.RecordEngineOp(opAutoAssign, mode, time.Since(started))
	if err != nil {
		return plan, err
	}

	for _, w := range plan.Warnings {
		metrics.IncrementWarning(w.Code)
		s.logger.Warn("自动排程警告",
			zap.Int64("project_id", st.project.ID),
			zap.String("mode", mode),
			zap.String("code", w.Code),
			zap.Int64("task_id", w.TaskID),
			zap.String("message", w.Message),
		)
	}
	return plan, nil
}

// ── 执行公共部分 ──

// apply 单事务写入；版本冲突原样返回 ErrOptimisticLock
func (s *scheduleService) apply(ctx context.Context, projectID int64, op string, updates []repository.TaskScheduleUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	if err := s.repo.Task.ApplyScheduleUpdates(ctx, updates); err != nil {
		s.logger.Error("写入排程结果失败",
			zap.Int64("project_id", projectID),
			zap.String("op", op),
			zap.Int("count", len(updates)),
			zap.Error(err),
		)
		return err
	}
	metrics.AddTasksUpdated(op, len(updates))
	s.hooks.tasksChanged(ctx, projectID)
	return nil
}

// executeResponse 重新读取已更新的任务
func (s *scheduleService) executeResponse(ctx context.Context, projectID int64, ids []int64, warnings []engine.Warning) (*dto.ExecuteResponse, error) {
	resp := &dto.ExecuteResponse{
		UpdatedTasks: []dto.TaskResponse{},
		UpdatedCount: len(ids),
		Warnings:     toWarningResponses(warnings),
	}
	if len(ids) == 0 {
		return resp, nil
	}

	tasks, err := s.repo.Task.ListByIDs(ctx, ids)
	if err != nil {
		s.logger.Error("查询已更新任务失败", zap.Int64("project_id", projectID), zap.Error(err))
		return nil, err
	}
	for i := range tasks {
		resp.UpdatedTasks = append(resp.UpdatedTasks, toTaskResponse(&tasks[i]))
	}
	return resp, nil
}

// ── 计划 → 响应 ──

func toReschedulePreview(plan engine.ReschedulePlan) *dto.ReschedulePreviewResponse {
	resp := &dto.ReschedulePreviewResponse{
		PivotTaskID:   plan.PivotID,
		PivotTaskName: plan.PivotName,
		ShiftDays:     plan.ShiftDays,
		AffectedTasks: make([]dto.DateChangeResponse, 0, len(plan.Changes)),
		TotalCount:    plan.TotalCount(),
	}
	for _, c := range plan.Changes {
		resp.AffectedTasks = append(resp.AffectedTasks, dto.DateChangeResponse{
			ID:           c.TaskID,
			Name:         c.Name,
			ParentID:     c.ParentID,
			IsChild:      c.IsChild,
			CurrentStart: formatDate(c.CurrentStart),
			CurrentEnd:   formatDate(c.CurrentEnd),
			NewStart:     formatDate(c.NewStart),
			NewEnd:       formatDate(c.NewEnd),
		})
	}
	return resp
}

func toAutoSchedulePreview(plan engine.AutoAssignPlan) *dto.AutoSchedulePreviewResponse {
	start := plan.StartDate
	resp := &dto.AutoSchedulePreviewResponse{
		StartDate:  formatDate(&start),
		Tasks:      make([]dto.AssignmentResponse, 0, len(plan.Assignments)),
		Warnings:   toWarningResponses(plan.Warnings),
		TotalCount: plan.TotalCount(),
	}
	for _, a := range plan.Assignments {
		item := dto.AssignmentResponse{
			ID:              a.TaskID,
			Name:            a.Name,
			TaskType:        string(a.TaskType),
			PlannedHours:    a.PlannedHours,
			CalculatedDays:  a.CalculatedDays,
			CurrentMemberID: a.CurrentMemberID,
			NewMemberID:     a.NewMemberID,
			NewStart:        a.NewStart.Format(engine.DateLayout),
			NewEnd:          a.NewEnd.Format(engine.DateLayout),
			ChildIDs:        a.ChildIDs,
		}
		if a.NewMemberID != nil {
			name := a.NewMemberName
			item.NewMemberName = &name
		}
		if item.ChildIDs == nil {
			item.ChildIDs = []int64{}
		}
		resp.Tasks = append(resp.Tasks, item)
	}
	return resp
}
