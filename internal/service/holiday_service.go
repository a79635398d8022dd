package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ragayama123/EVM-PM-Tool/internal/dto"
	"github.com/ragayama123/EVM-PM-Tool/internal/engine"
	"github.com/ragayama123/EVM-PM-Tool/internal/model"
	"github.com/ragayama123/EVM-PM-Tool/internal/repository"
)

// maxRangeYears 生成 / 导入的日期区间上限
const maxRangeYears = 3

// HolidayService 非工作日（项目日历）业务接口
type HolidayService interface {
	List(ctx context.Context, projectID int64, req *dto.HolidayListRequest) ([]dto.HolidayResponse, error)
	Dates(ctx context.Context, projectID int64) ([]string, error)
	Create(ctx context.Context, projectID int64, req *dto.CreateHolidayRequest) (*dto.HolidayResponse, error)
	Delete(ctx context.Context, id int64) error
	DeleteByType(ctx context.Context, projectID int64, req *dto.DeleteHolidaysRequest) (int64, error)
	Generate(ctx context.Context, projectID int64, req *dto.GenerateHolidaysRequest) (*dto.HolidayImportResponse, error)
	Import(ctx context.Context, projectID int64, req *dto.ImportHolidaysRequest) (*dto.HolidayImportResponse, error)
	// ImportICS file 为 nil 时从 req.URL 拉取
	ImportICS(ctx context.Context, projectID int64, req *dto.ImportICSRequest, file io.Reader) (*dto.HolidayImportResponse, error)
	// ImportCSV 行级错误放入响应的 errors，不影响其余行写入
	ImportCSV(ctx context.Context, projectID int64, req *dto.ImportCSVRequest, file io.Reader) (*dto.HolidayImportResponse, error)
	WorkingDays(ctx context.Context, projectID int64, req *dto.WorkingDaysRequest) (*dto.WorkingDaysResponse, error)
}

type holidayService struct {
	repo     *repository.Repository
	hooks    *projectHooks
	loc      *time.Location
	logger   *zap.Logger
	fetchICS func(url string) (io.ReadCloser, error) // 可在测试中替换
}

// NewHolidayService 创建 HolidayService 实例
func NewHolidayService(repo *repository.Repository, hooks *projectHooks, loc *time.Location, logger *zap.Logger) HolidayService {
	return &holidayService{repo: repo, hooks: hooks, loc: loc, logger: logger, fetchICS: FetchICSContent}
}

// ────────────────────── List ──────────────────────

func (s *holidayService) List(ctx context.Context, projectID int64, req *dto.HolidayListRequest) ([]dto.HolidayResponse, error) {
	if err := s.ensureProject(ctx, projectID); err != nil {
		return nil, err
	}

	start, err := parseDate(req.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		return nil, err
	}
	if req.HolidayType != "" && !engine.HolidayType(req.HolidayType).Valid() {
		return nil, ErrInvalidHolidayType
	}

	holidays, err := s.repo.Holiday.ListByProject(ctx, projectID, repository.HolidayFilter{
		Start:       start,
		End:         end,
		HolidayType: req.HolidayType,
	})
	if err != nil {
		s.logger.Error("查询非工作日失败", zap.Int64("project_id", projectID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.HolidayResponse, 0, len(holidays))
	for i := range holidays {
		result = append(result, toHolidayResponse(&holidays[i]))
	}
	return result, nil
}

// ────────────────────── Dates ──────────────────────

// Dates 返回项目全部非工作日日期（YYYY-MM-DD，升序），供前端日历标记
func (s *holidayService) Dates(ctx context.Context, projectID int64) ([]string, error) {
	if err := s.ensureProject(ctx, projectID); err != nil {
		return nil, err
	}

	holidays, err := s.repo.Holiday.ListByProject(ctx, projectID, repository.HolidayFilter{})
	if err != nil {
		s.logger.Error("查询非工作日失败", zap.Int64("project_id", projectID), zap.Error(err))
		return nil, err
	}

	dates := make([]string, 0, len(holidays))
	for _, d := range toHolidaySet(holidays).Dates() {
		dates = append(dates, d.Format(engine.DateLayout))
	}
	return dates, nil
}

// ────────────────────── Create ──────────────────────

func (s *holidayService) Create(ctx context.Context, projectID int64, req *dto.CreateHolidayRequest) (*dto.HolidayResponse, error) {
	if err := s.ensureProject(ctx, projectID); err != nil {
		return nil, err
	}

	date, err := parseRequiredDate(req.Date)
	if err != nil {
		return nil, err
	}
	holidayType, err := resolveHolidayType(req.HolidayType)
	if err != nil {
		return nil, err
	}

	holiday := &model.Holiday{
		ProjectID:   projectID,
		Date:        date,
		Name:        req.Name,
		HolidayType: string(holidayType),
	}
	if err := s.repo.Holiday.Create(ctx, holiday); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrHolidayExists
		}
		s.logger.Error("创建非工作日失败", zap.Int64("project_id", projectID), zap.Error(err))
		return nil, err
	}
	s.hooks.invalidate(ctx, projectID)

	resp := toHolidayResponse(holiday)
	return &resp, nil
}

// ────────────────────── Delete ──────────────────────

func (s *holidayService) Delete(ctx context.Context, id int64) error {
	holiday, err := s.repo.Holiday.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrHolidayNotFound
		}
		s.logger.Error("查询非工作日失败", zap.Int64("holiday_id", id), zap.Error(err))
		return err
	}

	if err := s.repo.Holiday.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrHolidayNotFound
		}
		s.logger.Error("删除非工作日失败", zap.Int64("holiday_id", id), zap.Error(err))
		return err
	}
	s.hooks.invalidate(ctx, holiday.ProjectID)
	return nil
}

// DeleteByType 按类型批量删除，类型为空时删除全部
func (s *holidayService) DeleteByType(ctx context.Context, projectID int64, req *dto.DeleteHolidaysRequest) (int64, error) {
	if err := s.ensureProject(ctx, projectID); err != nil {
		return 0, err
	}
	if req.HolidayType != "" && !engine.HolidayType(req.HolidayType).Valid() {
		return 0, ErrInvalidHolidayType
	}

	deleted, err := s.repo.Holiday.DeleteByType(ctx, projectID, req.HolidayType)
	if err != nil {
		s.logger.Error("批量删除非工作日失败", zap.Int64("project_id", projectID), zap.Error(err))
		return 0, err
	}
	s.hooks.invalidate(ctx, projectID)

	s.logger.Info("非工作日已批量删除",
		zap.Int64("project_id", projectID),
		zap.String("type", req.HolidayType),
		zap.Int64("deleted", deleted),
	)
	return deleted, nil
}

// ────────────────────── Generate ──────────────────────

// Generate 生成周末 / 法定节假日；已有日期默认跳过，overwrite 时覆盖名称与类型
// 结束日期早于开始日期时返回空结果
func (s *holidayService) Generate(ctx context.Context, projectID int64, req *dto.GenerateHolidaysRequest) (*dto.HolidayImportResponse, error) {
	if err := s.ensureProject(ctx, projectID); err != nil {
		return nil, err
	}

	start, err := parseRequiredDate(req.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := parseRequiredDate(req.EndDate)
	if err != nil {
		return nil, err
	}
	if end.After(start.AddDate(maxRangeYears, 0, 0)) {
		return nil, ErrRangeTooLong
	}

	generated := engine.GenerateHolidays(start, end, req.IncludeWeekends, req.IncludeNationalHolidays)
	return s.save(ctx, projectID, generated, req.Overwrite)
}

// ────────────────────── Import ──────────────────────

// Import JSON 批量导入；请求内同一日期取第一条
func (s *holidayService) Import(ctx context.Context, projectID int64, req *dto.ImportHolidaysRequest) (*dto.HolidayImportResponse, error) {
	if err := s.ensureProject(ctx, projectID); err != nil {
		return nil, err
	}

	seen := make(map[time.Time]bool, len(req.Holidays))
	items := make([]engine.GeneratedHoliday, 0, len(req.Holidays))
	for _, h := range req.Holidays {
		date, err := parseRequiredDate(h.Date)
		if err != nil {
			return nil, err
		}
		holidayType, err := resolveHolidayType(h.HolidayType)
		if err != nil {
			return nil, err
		}
		if seen[date] {
			continue
		}
		seen[date] = true
		items = append(items, engine.GeneratedHoliday{Date: date, Name: h.Name, Type: holidayType})
	}

	return s.save(ctx, projectID, items, req.Overwrite)
}

// ImportCSV 导入 date,name[,type] 格式的 CSV
func (s *holidayService) ImportCSV(ctx context.Context, projectID int64, req *dto.ImportCSVRequest, file io.Reader) (*dto.HolidayImportResponse, error) {
	if err := s.ensureProject(ctx, projectID); err != nil {
		return nil, err
	}

	items, rowErrs, err := ParseHolidayCSV(file)
	if err != nil {
		return nil, err
	}
	resp, err := s.save(ctx, projectID, items, req.Overwrite)
	if err != nil {
		return nil, err
	}
	resp.Errors = rowErrs
	return resp, nil
}

// ImportICS 导入 iCalendar 事件，每个事件按天展开
func (s *holidayService) ImportICS(ctx context.Context, projectID int64, req *dto.ImportICSRequest, file io.Reader) (*dto.HolidayImportResponse, error) {
	if err := s.ensureProject(ctx, projectID); err != nil {
		return nil, err
	}

	holidayType, err := resolveHolidayType(req.HolidayType)
	if err != nil {
		return nil, err
	}
	windowStart, windowEnd, err := s.icsWindow(req)
	if err != nil {
		return nil, err
	}

	if file == nil {
		if req.URL == "" {
			return nil, ErrICSMissingSource
		}
		body, err := s.fetchICS(req.URL)
		if err != nil {
			s.logger.Warn("获取 ICS 失败", zap.String("url", req.URL), zap.Error(err))
			return nil, fmt.Errorf("%w: %v", ErrICSFetch, err)
		}
		defer body.Close()
		file = body
	}

	parsed, err := ParseHolidayICS(file, s.loc, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}
	if len(parsed) == 0 {
		return nil, ErrICSNoEvents
	}
	for i := range parsed {
		parsed[i].Type = holidayType
	}

	return s.save(ctx, projectID, parsed, req.Overwrite)
}

// ────────────────────── WorkingDays ──────────────────────

// WorkingDays 统计 [start, end] 的总天数、非工作日数与工作日数；区间倒置时全部为 0
func (s *holidayService) WorkingDays(ctx context.Context, projectID int64, req *dto.WorkingDaysRequest) (*dto.WorkingDaysResponse, error) {
	if err := s.ensureProject(ctx, projectID); err != nil {
		return nil, err
	}

	start, err := parseRequiredDate(req.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := parseRequiredDate(req.EndDate)
	if err != nil {
		return nil, err
	}

	holidays, err := s.repo.Holiday.ListByProject(ctx, projectID, repository.HolidayFilter{Start: &start, End: &end})
	if err != nil {
		s.logger.Error("查询非工作日失败", zap.Int64("project_id", projectID), zap.Error(err))
		return nil, err
	}

	sum := engine.SummarizeWorkingDays(start, end, toHolidaySet(holidays))
	return &dto.WorkingDaysResponse{
		StartDate:    start.Format(engine.DateLayout),
		EndDate:      end.Format(engine.DateLayout),
		TotalDays:    sum.TotalDays,
		HolidayCount: sum.HolidayCount,
		WorkingDays:  sum.WorkingDays,
	}, nil
}

// ── 辅助 ──

func (s *holidayService) ensureProject(ctx context.Context, projectID int64) error {
	if _, err := s.repo.Project.GetByID(ctx, projectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProjectNotFound
		}
		s.logger.Error("查询项目失败", zap.Int64("project_id", projectID), zap.Error(err))
		return err
	}
	return nil
}

// save 按已有日期拆分为新增 / 覆盖 / 跳过，并在同一事务内写入
func (s *holidayService) save(ctx context.Context, projectID int64, items []engine.GeneratedHoliday, overwrite bool) (*dto.HolidayImportResponse, error) {
	existing, err := s.repo.Holiday.ListByProject(ctx, projectID, repository.HolidayFilter{})
	if err != nil {
		s.logger.Error("查询非工作日失败", zap.Int64("project_id", projectID), zap.Error(err))
		return nil, err
	}
	existingIDs := make(map[time.Time]int64, len(existing))
	for _, h := range existing {
		existingIDs[engine.DateOf(h.Date)] = h.ID
	}

	create, replace, skipped := engine.FilterGenerated(items, toHolidaySet(existing), overwrite)
	toCreate := toHolidayModels(projectID, create)
	toReplace := toHolidayModels(projectID, replace)
	for i := range toReplace {
		toReplace[i].ID = existingIDs[toReplace[i].Date]
	}

	if len(toCreate) > 0 || len(toReplace) > 0 {
		if err := s.repo.Holiday.SaveBatch(ctx, toCreate, toReplace); err != nil {
			s.logger.Error("保存非工作日失败", zap.Int64("project_id", projectID), zap.Error(err))
			return nil, err
		}
		s.hooks.invalidate(ctx, projectID)
	}

	resp := &dto.HolidayImportResponse{
		Created:  len(toCreate),
		Updated:  len(toReplace),
		Skipped:  skipped,
		Holidays: make([]dto.HolidayResponse, 0, len(toCreate)+len(toReplace)),
	}
	for i := range toCreate {
		resp.Holidays = append(resp.Holidays, toHolidayResponse(&toCreate[i]))
	}
	for i := range toReplace {
		resp.Holidays = append(resp.Holidays, toHolidayResponse(&toReplace[i]))
	}

	s.logger.Info("非工作日已保存",
		zap.Int64("project_id", projectID),
		zap.Int("created", resp.Created),
		zap.Int("updated", resp.Updated),
		zap.Int("skipped", resp.Skipped),
	)
	return resp, nil
}

// icsWindow ICS 展开范围，缺省为今年 1 月 1 日起三年
func (s *holidayService) icsWindow(req *dto.ImportICSRequest) (time.Time, time.Time, error) {
	now := today(s.loc)
	start := engine.Date(now.Year(), time.January, 1)
	end := start.AddDate(maxRangeYears, 0, -1)

	if req.StartDate != "" || req.EndDate != "" {
		if req.StartDate == "" || req.EndDate == "" {
			return time.Time{}, time.Time{}, ErrInvalidRange
		}
		var err error
		start, end, err = parseRange(req.StartDate, req.EndDate)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		if end.After(start.AddDate(maxRangeYears, 0, 0)) {
			return time.Time{}, time.Time{}, ErrRangeTooLong
		}
	}
	return start, end, nil
}

// resolveHolidayType 空值视为 custom
func resolveHolidayType(s string) (engine.HolidayType, error) {
	if s == "" {
		return engine.HolidayCustom, nil
	}
	t := engine.HolidayType(s)
	if !t.Valid() {
		return "", ErrInvalidHolidayType
	}
	return t, nil
}

func toHolidayModels(projectID int64, items []engine.GeneratedHoliday) []model.Holiday {
	out := make([]model.Holiday, len(items))
	for i, g := range items {
		out[i] = model.Holiday{
			ProjectID:   projectID,
			Date:        g.Date,
			Name:        g.Name,
			HolidayType: string(g.Type),
		}
	}
	return out
}
