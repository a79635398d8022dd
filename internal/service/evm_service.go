package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ragayama123/EVM-PM-Tool/internal/dto"
	"github.com/ragayama123/EVM-PM-Tool/internal/engine"
	"github.com/ragayama123/EVM-PM-Tool/internal/model"
	"github.com/ragayama123/EVM-PM-Tool/internal/repository"
	"github.com/ragayama123/EVM-PM-Tool/pkg/metrics"
)

// EVMService EVM 指标 / 分析 / 快照业务接口
type EVMService interface {
	Metrics(ctx context.Context, projectID int64, req *dto.EVMQueryRequest) (*dto.EVMMetricsResponse, error)
	Analysis(ctx context.Context, projectID int64, req *dto.EVMQueryRequest) (*dto.EVMAnalysisResponse, error)
	CreateSnapshot(ctx context.Context, projectID int64, req *dto.CreateSnapshotRequest) (*dto.SnapshotResponse, error)
	ListSnapshots(ctx context.Context, projectID int64, req *dto.SnapshotListRequest) ([]dto.SnapshotResponse, int64, error)
	MemberEVM(ctx context.Context, projectID int64, req *dto.EVMQueryRequest) ([]dto.MemberEVMResponse, error)
}

type evmService struct {
	repo     *repository.Repository
	hooks    *projectHooks
	cacheTTL time.Duration
	loc      *time.Location
	logger   *zap.Logger
}

// NewEVMService 创建 EVMService 实例；cacheTTL 为 0 时不缓存分析结果
func NewEVMService(repo *repository.Repository, hooks *projectHooks, cacheTTL time.Duration, loc *time.Location, logger *zap.Logger) EVMService {
	return &evmService{repo: repo, hooks: hooks, cacheTTL: cacheTTL, loc: loc, logger: logger}
}

// ────────────────────── Metrics ──────────────────────

func (s *evmService) Metrics(ctx context.Context, projectID int64, req *dto.EVMQueryRequest) (*dto.EVMMetricsResponse, error) {
	asOf, err := s.asOf(req.AsOf)
	if err != nil {
		return nil, err
	}
	st, err := loadProjectState(ctx, s.repo, s.logger, projectID)
	if err != nil {
		return nil, err
	}

	m := s.calculate(st, asOf, "metrics")
	resp := toMetricsResponse(m)
	return &resp, nil
}

// ────────────────────── Analysis ──────────────────────

// Analysis 指标 + 状态 + 建议 + 任务汇总
// 不指定 as_of（即当天）时按项目与日期缓存
func (s *evmService) Analysis(ctx context.Context, projectID int64, req *dto.EVMQueryRequest) (*dto.EVMAnalysisResponse, error) {
	asOf, err := s.asOf(req.AsOf)
	if err != nil {
		return nil, err
	}

	cacheKey := ""
	if req.AsOf == "" && s.hooks.cache != nil && s.cacheTTL > 0 {
		cacheKey = analysisCachePrefix(projectID) + asOf.Format(engine.DateLayout)
		var cached dto.EVMAnalysisResponse
		hit, err := s.hooks.cache.GetJSON(ctx, cacheKey, &cached)
		if err != nil {
			s.logger.Warn("读取 EVM 分析缓存失败", zap.Int64("project_id", projectID), zap.Error(err))
		}
		metrics.RecordAnalysisCache(hit)
		if hit {
			return &cached, nil
		}
	}

	st, err := loadProjectState(ctx, s.repo, s.logger, projectID)
	if err != nil {
		return nil, err
	}
	tasks := st.engineTasks()
	analysis := engine.Analyze(s.calculate(st, asOf, "analysis"))

	resp := &dto.EVMAnalysisResponse{
		Metrics:         toMetricsResponse(analysis.Metrics),
		ScheduleStatus:  string(analysis.ScheduleStatus),
		CostStatus:      string(analysis.CostStatus),
		Recommendations: make([]dto.RecommendationResponse, 0, len(analysis.Recommendations)),
		Summary:         toSummaryResponse(engine.Summarize(tasks)),
	}
	for _, r := range analysis.Recommendations {
		resp.Recommendations = append(resp.Recommendations, dto.RecommendationResponse{Code: r.Code, Message: r.Message})
	}

	if cacheKey != "" {
		if err := s.hooks.cache.SetJSON(ctx, cacheKey, resp, s.cacheTTL); err != nil {
			s.logger.Warn("写入 EVM 分析缓存失败", zap.Int64("project_id", projectID), zap.Error(err))
		}
	}
	return resp, nil
}

// ────────────────────── Snapshots ──────────────────────

// CreateSnapshot 记录指定日期（缺省当天）的指标，始终重新计算
func (s *evmService) CreateSnapshot(ctx context.Context, projectID int64, req *dto.CreateSnapshotRequest) (*dto.SnapshotResponse, error) {
	asOfText := ""
	if req.AsOf != nil {
		asOfText = *req.AsOf
	}
	asOf, err := s.asOf(asOfText)
	if err != nil {
		return nil, err
	}
	st, err := loadProjectState(ctx, s.repo, s.logger, projectID)
	if err != nil {
		return nil, err
	}

	m := s.calculate(st, asOf, "snapshot").Rounded()
	snapshot := &model.EVMSnapshot{
		ProjectID:    projectID,
		SnapshotDate: m.AsOf,
		PV:           m.PV,
		EV:           m.EV,
		AC:           m.AC,
		SV:           m.SV,
		CV:           m.CV,
		SPI:          m.SPI,
		CPI:          m.CPI,
		BAC:          m.BAC,
		ETC:          m.ETC,
		EAC:          m.EAC,
	}
	if err := s.repo.EVMSnapshot.Create(ctx, snapshot); err != nil {
		s.logger.Error("创建 EVM 快照失败", zap.Int64("project_id", projectID), zap.Error(err))
		return nil, err
	}
	metrics.IncrementSnapshotCreated()

	s.logger.Info("EVM 快照已记录",
		zap.Int64("project_id", projectID),
		zap.String("as_of", m.AsOf.Format(engine.DateLayout)),
		zap.Float64("spi", m.SPI),
		zap.Float64("cpi", m.CPI),
	)
	resp := toSnapshotResponse(snapshot)
	return &resp, nil
}

// ListSnapshots 按日期升序分页列出快照（S 曲线数据）
func (s *evmService) ListSnapshots(ctx context.Context, projectID int64, req *dto.SnapshotListRequest) ([]dto.SnapshotResponse, int64, error) {
	if _, err := loadProject(ctx, s.repo, s.logger, projectID); err != nil {
		return nil, 0, err
	}

	start, err := parseDate(req.StartDate)
	if err != nil {
		return nil, 0, err
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		return nil, 0, err
	}

	snapshots, total, err := s.repo.EVMSnapshot.ListByProject(ctx, projectID, start, end, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询 EVM 快照失败", zap.Int64("project_id", projectID), zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.SnapshotResponse, 0, len(snapshots))
	for i := range snapshots {
		result = append(result, toSnapshotResponse(&snapshots[i]))
	}
	return result, total, nil
}

// ────────────────────── MemberEVM ──────────────────────

func (s *evmService) MemberEVM(ctx context.Context, projectID int64, req *dto.EVMQueryRequest) ([]dto.MemberEVMResponse, error) {
	asOf, err := s.asOf(req.AsOf)
	if err != nil {
		return nil, err
	}
	st, err := loadProjectState(ctx, s.repo, s.logger, projectID)
	if err != nil {
		return nil, err
	}

	rows := engine.CalculateByMember(st.engineTasks(), st.engineMembers(), asOf, st.holidays)
	result := make([]dto.MemberEVMResponse, 0, len(rows))
	for _, r := range rows {
		result = append(result, dto.MemberEVMResponse{
			MemberID:      r.MemberID,
			MemberName:    r.MemberName,
			TaskCount:     r.TaskCount,
			AssignedHours: r.AssignedHours,
			Utilization:   r.Utilization,
			Metrics:       toMetricsResponse(r.Metrics),
		})
	}
	return result, nil
}

// ── 辅助 ──

// asOf 解析基准日，空值为业务时区的当天
func (s *evmService) asOf(text string) (time.Time, error) {
	if text == "" {
		return today(s.loc), nil
	}
	return parseRequiredDate(text)
}

func (s *evmService) calculate(st *projectState, asOf time.Time, mode string) engine.Metrics {
	started := time.Now()
	m := engine.Calculate(st.engineTasks(), asOf, st.holidays)
	metrics.RecordEngineOp("evm", mode, time.Since(started))
	return m
}
