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

// MemberService 成员业务接口
type MemberService interface {
	List(ctx context.Context, projectID int64) ([]dto.MemberResponse, error)
	Create(ctx context.Context, projectID int64, req *dto.CreateMemberRequest) (*dto.MemberResponse, error)
	Update(ctx context.Context, id int64, req *dto.UpdateMemberRequest) (*dto.MemberResponse, error)
	Delete(ctx context.Context, id int64) error
}

type memberService struct {
	repo   *repository.Repository
	hooks  *projectHooks
	logger *zap.Logger
}

// NewMemberService 创建 MemberService 实例
func NewMemberService(repo *repository.Repository, hooks *projectHooks, logger *zap.Logger) MemberService {
	return &memberService{repo: repo, hooks: hooks, logger: logger}
}

// memberLoad 成员当前负责的任务数与计划工时
type memberLoad struct {
	count int
	hours float64
}

// ────────────────────── List ──────────────────────

// List 列出成员，附带已分配工时与负载率
func (s *memberService) List(ctx context.Context, projectID int64) ([]dto.MemberResponse, error) {
	if _, err := s.repo.Project.GetByID(ctx, projectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		s.logger.Error("查询项目失败", zap.Int64("project_id", projectID), zap.Error(err))
		return nil, err
	}

	members, err := s.repo.Member.ListByProject(ctx, projectID)
	if err != nil {
		s.logger.Error("查询成员列表失败", zap.Int64("project_id", projectID), zap.Error(err))
		return nil, err
	}
	tasks, err := s.repo.Task.ListByProject(ctx, projectID)
	if err != nil {
		s.logger.Error("查询任务列表失败", zap.Int64("project_id", projectID), zap.Error(err))
		return nil, err
	}

	loads := make(map[int64]memberLoad)
	for _, t := range tasks {
		if t.AssignedMemberID == nil {
			continue
		}
		l := loads[*t.AssignedMemberID]
		l.count++
		if t.PlannedHours > 0 {
			l.hours += t.PlannedHours
		}
		loads[*t.AssignedMemberID] = l
	}

	result := make([]dto.MemberResponse, 0, len(members))
	for i := range members {
		result = append(result, toMemberResponse(&members[i], loads[members[i].ID]))
	}
	return result, nil
}

// ────────────────────── Create ──────────────────────

func (s *memberService) Create(ctx context.Context, projectID int64, req *dto.CreateMemberRequest) (*dto.MemberResponse, error) {
	if _, err := s.repo.Project.GetByID(ctx, projectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		s.logger.Error("查询项目失败", zap.Int64("project_id", projectID), zap.Error(err))
		return nil, err
	}

	skills, err := normalizeSkills(req.Skills)
	if err != nil {
		return nil, err
	}

	member := &model.Member{
		ProjectID:             projectID,
		Name:                  req.Name,
		Email:                 req.Email,
		AvailableHoursPerWeek: req.AvailableHoursPerWeek,
		Skills:                skills,
	}
	if err := s.repo.Member.Create(ctx, member); err != nil {
		s.logger.Error("创建成员失败", zap.Int64("project_id", projectID), zap.Error(err))
		return nil, err
	}

	resp := toMemberResponse(member, memberLoad{})
	return &resp, nil
}

// ────────────────────── Update ──────────────────────

func (s *memberService) Update(ctx context.Context, id int64, req *dto.UpdateMemberRequest) (*dto.MemberResponse, error) {
	member, err := s.getMember(ctx, id)
	if err != nil {
		return nil, err
	}

	skills, err := normalizeSkills(req.Skills)
	if err != nil {
		return nil, err
	}

	member.Name = req.Name
	member.Email = req.Email
	member.AvailableHoursPerWeek = req.AvailableHoursPerWeek
	member.Skills = skills

	if err := s.repo.Member.Update(ctx, member); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		s.logger.Error("更新成员失败", zap.Int64("member_id", id), zap.Error(err))
		return nil, err
	}
	// 产能变化影响成员维度 EVM
	s.hooks.invalidate(ctx, member.ProjectID)

	resp := toMemberResponse(member, memberLoad{})
	return &resp, nil
}

// ────────────────────── Delete ──────────────────────

// Delete 删除成员；引用该成员的任务在同一事务内清除负责人，任务本身保留
func (s *memberService) Delete(ctx context.Context, id int64) error {
	member, err := s.getMember(ctx, id)
	if err != nil {
		return err
	}

	cleared, err := s.repo.Member.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMemberNotFound
		}
		s.logger.Error("删除成员失败", zap.Int64("member_id", id), zap.Error(err))
		return err
	}
	s.hooks.invalidate(ctx, member.ProjectID)

	s.logger.Info("成员已删除",
		zap.Int64("member_id", id),
		zap.Int64("project_id", member.ProjectID),
		zap.Int64("cleared_tasks", cleared),
	)
	return nil
}

// ── 辅助 ──

func (s *memberService) getMember(ctx context.Context, id int64) (*model.Member, error) {
	member, err := s.repo.Member.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		s.logger.Error("查询成员失败", zap.Int64("member_id", id), zap.Error(err))
		return nil, err
	}
	return member, nil
}

// normalizeSkills 校验技能编码（也接受显示名称），去重并保持顺序
func normalizeSkills(in []string) (model.StringArray, error) {
	out := make(model.StringArray, 0, len(in))
	seen := make(map[engine.TaskType]bool, len(in))
	for _, s := range in {
		tt, ok := engine.ParseTaskType(s)
		if !ok {
			return nil, ErrInvalidSkill
		}
		if seen[tt] {
			continue
		}
		seen[tt] = true
		out = append(out, string(tt))
	}
	return out, nil
}

func toMemberResponse(m *model.Member, load memberLoad) dto.MemberResponse {
	skills := make([]string, len(m.Skills))
	copy(skills, m.Skills)
	return dto.MemberResponse{
		ID:                    m.ID,
		ProjectID:             m.ProjectID,
		Name:                  m.Name,
		Email:                 m.Email,
		AvailableHoursPerWeek: m.AvailableHoursPerWeek,
		Skills:                skills,
		TaskCount:             load.count,
		AssignedHours:         load.hours,
		Utilization:           engine.Utilization(load.hours, m.AvailableHoursPerWeek),
		CreatedAt:             formatTime(m.CreatedAt),
		UpdatedAt:             formatTime(m.UpdatedAt),
	}
}
