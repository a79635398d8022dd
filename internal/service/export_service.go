package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ragayama123/EVM-PM-Tool/internal/dto"
	"github.com/ragayama123/EVM-PM-Tool/internal/engine"
	"github.com/ragayama123/EVM-PM-Tool/internal/repository"
)

// 导出格式
const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
	FormatYAML     = "yaml"
	FormatXLSX     = "xlsx"
)

var exportContentTypes = map[string]string{
	FormatMarkdown: "text/markdown; charset=utf-8",
	FormatJSON:     "application/json; charset=utf-8",
	FormatYAML:     "application/yaml; charset=utf-8",
	FormatXLSX:     "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// maxReportHistory 报告中保留的最近快照数
const maxReportHistory = 1000

var exportExtensions = map[string]string{
	FormatMarkdown: "md",
	FormatJSON:     "json",
	FormatYAML:     "yaml",
	FormatXLSX:     "xlsx",
}

// ExportContentType 返回导出格式对应的 Content-Type，空值视为 markdown
func ExportContentType(format string) string {
	if format == "" {
		format = FormatMarkdown
	}
	if ct, ok := exportContentTypes[format]; ok {
		return ct
	}
	return "application/octet-stream"
}

// ExportService 报告导出业务接口
//
// 报告内容：项目期间、EVM 指标与解读、改进建议、任务汇总、WBS 明细、快照履历。
// 以 bytes.Buffer 返回，由 Handler 层设置响应头后写入。
type ExportService interface {
	// ExportReport format 为空时导出 markdown；as_of 为空时为当天
	ExportReport(ctx context.Context, projectID int64, req *dto.ExportRequest) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	loc    *time.Location
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, loc *time.Location, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, loc: loc, logger: logger}
}

// ── 报告结构（json / yaml 共用） ──

type evmReport struct {
	Project         reportProject     `json:"project"          yaml:"project"`
	AsOf            string            `json:"as_of"            yaml:"as_of"`
	Metrics         reportMetrics     `json:"metrics"          yaml:"metrics"`
	ScheduleStatus  string            `json:"schedule_status"  yaml:"schedule_status"`
	CostStatus      string            `json:"cost_status"      yaml:"cost_status"`
	Recommendations []string          `json:"recommendations"  yaml:"recommendations"`
	Summary         reportSummary     `json:"summary"          yaml:"summary"`
	Tasks           []reportTaskEntry `json:"tasks"            yaml:"tasks"`
	History         []reportHistory   `json:"history"          yaml:"history"`
	GeneratedAt     string            `json:"generated_at"     yaml:"generated_at"`
}

type reportProject struct {
	ID                  int64   `json:"id"                    yaml:"id"`
	Name                string  `json:"name"                  yaml:"name"`
	Status              string  `json:"status"                yaml:"status"`
	StartDate           string  `json:"start_date,omitempty"  yaml:"start_date,omitempty"`
	EndDate             string  `json:"end_date,omitempty"    yaml:"end_date,omitempty"`
	TotalDays           int     `json:"total_days"            yaml:"total_days"`
	ElapsedDays         int     `json:"elapsed_days"          yaml:"elapsed_days"`
	RemainingDays       int     `json:"remaining_days"        yaml:"remaining_days"`
	ScheduleProgressPct float64 `json:"schedule_progress_pct" yaml:"schedule_progress_pct"`
}

type reportMetrics struct {
	PV  float64 `json:"pv"  yaml:"pv"`
	EV  float64 `json:"ev"  yaml:"ev"`
	AC  float64 `json:"ac"  yaml:"ac"`
	SV  float64 `json:"sv"  yaml:"sv"`
	CV  float64 `json:"cv"  yaml:"cv"`
	SPI float64 `json:"spi" yaml:"spi"`
	CPI float64 `json:"cpi" yaml:"cpi"`
	BAC float64 `json:"bac" yaml:"bac"`
	ETC float64 `json:"etc" yaml:"etc"`
	EAC float64 `json:"eac" yaml:"eac"`

	Interpretation reportInterpretation `json:"interpretation" yaml:"interpretation"`
}

type reportInterpretation struct {
	Schedule            string  `json:"schedule"              yaml:"schedule"`
	Cost                string  `json:"cost"                  yaml:"cost"`
	ScheduleVariancePct float64 `json:"schedule_variance_pct" yaml:"schedule_variance_pct"`
	CostVariancePct     float64 `json:"cost_variance_pct"     yaml:"cost_variance_pct"`
}

type reportSummary struct {
	TotalTasks        int     `json:"total_tasks"         yaml:"total_tasks"`
	CompletedTasks    int     `json:"completed_tasks"     yaml:"completed_tasks"`
	InProgressTasks   int     `json:"in_progress_tasks"   yaml:"in_progress_tasks"`
	NotStartedTasks   int     `json:"not_started_tasks"   yaml:"not_started_tasks"`
	TotalPlannedHours float64 `json:"total_planned_hours" yaml:"total_planned_hours"`
	TotalActualHours  float64 `json:"total_actual_hours"  yaml:"total_actual_hours"`
	OverallProgress   float64 `json:"overall_progress"    yaml:"overall_progress"`
}

type reportTaskEntry struct {
	ID             int64    `json:"id"                      yaml:"id"`
	ParentID       *int64   `json:"parent_id,omitempty"     yaml:"parent_id,omitempty"`
	Name           string   `json:"name"                    yaml:"name"`
	TaskType       string   `json:"task_type,omitempty"     yaml:"task_type,omitempty"`
	Assignee       string   `json:"assignee,omitempty"      yaml:"assignee,omitempty"`
	PlannedHours   float64  `json:"planned_hours"           yaml:"planned_hours"`
	ActualHours    float64  `json:"actual_hours"            yaml:"actual_hours"`
	Progress       int      `json:"progress"                yaml:"progress"`
	EVContribution float64  `json:"ev_contribution"         yaml:"ev_contribution"`
	Efficiency     *float64 `json:"efficiency"              yaml:"efficiency"`
	Status         string   `json:"status"                  yaml:"status"`
	PlannedStart   string   `json:"planned_start,omitempty" yaml:"planned_start,omitempty"`
	PlannedEnd     string   `json:"planned_end,omitempty"   yaml:"planned_end,omitempty"`
	ActualStart    string   `json:"actual_start,omitempty"  yaml:"actual_start,omitempty"`
	ActualEnd      string   `json:"actual_end,omitempty"    yaml:"actual_end,omitempty"`
	IsMilestone    bool     `json:"is_milestone"            yaml:"is_milestone"`
}

// reportHistory 快照履历点
type reportHistory struct {
	Date string  `json:"date" yaml:"date"`
	PV   float64 `json:"pv"   yaml:"pv"`
	EV   float64 `json:"ev"   yaml:"ev"`
	AC   float64 `json:"ac"   yaml:"ac"`
	SPI  float64 `json:"spi"  yaml:"spi"`
	CPI  float64 `json:"cpi"  yaml:"cpi"`
}

// ═══════════════════════════════════════════════════════════
// ExportReport 导出 EVM / WBS 报告
// ═══════════════════════════════════════════════════════════
//
// 返回值：buf（文件内容）, filename（建议文件名）, error

func (s *exportService) ExportReport(ctx context.Context, projectID int64, req *dto.ExportRequest) (*bytes.Buffer, string, error) {
	format := req.Format
	if format == "" {
		format = FormatMarkdown
	}
	ext, ok := exportExtensions[format]
	if !ok {
		return nil, "", ErrUnsupportedFormat
	}

	// 1. 基准日
	day := today(s.loc)
	if req.AsOf != "" {
		d, err := parseRequiredDate(req.AsOf)
		if err != nil {
			return nil, "", err
		}
		day = d
	}

	// 2. 读取项目数据与快照履历并计算
	st, err := loadProjectState(ctx, s.repo, s.logger, projectID)
	if err != nil {
		return nil, "", err
	}
	history, err := s.loadHistory(ctx, projectID, day)
	if err != nil {
		return nil, "", err
	}
	report := buildReport(st, day)
	report.History = history

	// 3. 渲染
	var buf *bytes.Buffer
	switch format {
	case FormatMarkdown:
		buf = renderMarkdown(report)
	case FormatJSON:
		buf = new(bytes.Buffer)
		enc := json.NewEncoder(buf)
		enc.SetIndent("", "  ")
		err = enc.Encode(report)
	case FormatYAML:
		buf = new(bytes.Buffer)
		enc := yaml.NewEncoder(buf)
		enc.SetIndent(2)
		err = enc.Encode(report)
		if err == nil {
			err = enc.Close()
		}
	case FormatXLSX:
		buf, err = renderXLSX(report)
	}
	if err != nil {
		s.logger.Error("生成报告失败", zap.Int64("project_id", projectID), zap.String("format", format), zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("evm_report_%d_%s.%s", projectID, report.AsOf, ext)
	return buf, filename, nil
}

// loadHistory 基准日及之前的快照，超出 maxReportHistory 时保留最近的部分
func (s *exportService) loadHistory(ctx context.Context, projectID int64, asOf time.Time) ([]reportHistory, error) {
	snapshots, total, err := s.repo.EVMSnapshot.ListByProject(ctx, projectID, nil, &asOf, 0, maxReportHistory)
	if err == nil && total > int64(len(snapshots)) {
		snapshots, _, err = s.repo.EVMSnapshot.ListByProject(ctx, projectID, nil, &asOf, int(total)-maxReportHistory, maxReportHistory)
	}
	if err != nil {
		s.logger.Error("查询快照履历失败", zap.Int64("project_id", projectID), zap.Error(err))
		return nil, err
	}

	history := make([]reportHistory, 0, len(snapshots))
	for _, snap := range snapshots {
		history = append(history, reportHistory{
			Date: snap.SnapshotDate.Format(engine.DateLayout),
			PV:   snap.PV,
			EV:   snap.EV,
			AC:   snap.AC,
			SPI:  snap.SPI,
			CPI:  snap.CPI,
		})
	}
	return history, nil
}

func buildReport(st *projectState, asOf time.Time) *evmReport {
	tasks := st.engineTasks()
	analysis := engine.Analyze(engine.Calculate(tasks, asOf, st.holidays))
	m := analysis.Metrics.Rounded()
	in := engine.Interpret(analysis.Metrics)
	sum := engine.Summarize(tasks)
	period := engine.PeriodOf(engine.DeriveProjectSpan(tasks), asOf)

	report := &evmReport{
		Project: reportProject{
			ID:                  st.project.ID,
			Name:                st.project.Name,
			Status:              st.project.Status,
			TotalDays:           period.TotalDays,
			ElapsedDays:         period.ElapsedDays,
			RemainingDays:       period.RemainingDays,
			ScheduleProgressPct: period.ProgressPct,
		},
		AsOf: asOf.Format(engine.DateLayout),
		Metrics: reportMetrics{
			PV:  m.PV,
			EV:  m.EV,
			AC:  m.AC,
			SV:  m.SV,
			CV:  m.CV,
			SPI: m.SPI,
			CPI: m.CPI,
			BAC: m.BAC,
			ETC: m.ETC,
			EAC: m.EAC,
			Interpretation: reportInterpretation{
				Schedule:            in.Schedule,
				Cost:                in.Cost,
				ScheduleVariancePct: in.ScheduleVariancePct,
				CostVariancePct:     in.CostVariancePct,
			},
		},
		ScheduleStatus:  string(analysis.ScheduleStatus),
		CostStatus:      string(analysis.CostStatus),
		Recommendations: make([]string, 0, len(analysis.Recommendations)),
		Summary: reportSummary{
			TotalTasks:        sum.TotalTasks,
			CompletedTasks:    sum.CompletedTasks,
			InProgressTasks:   sum.InProgressTasks,
			NotStartedTasks:   sum.NotStartedTasks,
			TotalPlannedHours: sum.TotalPlannedHours,
			TotalActualHours:  sum.TotalActualHours,
			OverallProgress:   sum.OverallProgress,
		},
		Tasks:       make([]reportTaskEntry, 0, len(st.tasks)),
		History:     []reportHistory{},
		GeneratedAt: time.Now().In(time.UTC).Format(time.RFC3339),
	}
	if d := formatDate(period.Start); d != nil {
		report.Project.StartDate = *d
	}
	if d := formatDate(period.End); d != nil {
		report.Project.EndDate = *d
	}
	for _, r := range analysis.Recommendations {
		report.Recommendations = append(report.Recommendations, r.Message)
	}

	for i := range st.tasks {
		t := &st.tasks[i]
		et := tasks[i]
		ev, efficiency := engine.TaskContribution(&et)
		entry := reportTaskEntry{
			ID:             t.ID,
			ParentID:       t.ParentID,
			Name:           t.Name,
			PlannedHours:   t.PlannedHours,
			ActualHours:    t.ActualHours,
			Progress:       t.Progress,
			EVContribution: ev,
			Efficiency:     efficiency,
			Status:         string(engine.StatusOfTask(&et)),
			IsMilestone:    t.IsMilestone,
		}
		if t.TaskType != nil {
			entry.TaskType = engine.TaskType(*t.TaskType).Label()
		}
		if t.AssignedMember != nil {
			entry.Assignee = t.AssignedMember.Name
		}
		if d := formatDate(t.PlannedStartDate); d != nil {
			entry.PlannedStart = *d
		}
		if d := formatDate(t.PlannedEndDate); d != nil {
			entry.PlannedEnd = *d
		}
		if d := formatDate(t.ActualStartDate); d != nil {
			entry.ActualStart = *d
		}
		if d := formatDate(t.ActualEndDate); d != nil {
			entry.ActualEnd = *d
		}
		report.Tasks = append(report.Tasks, entry)
	}
	return report
}

// ── Markdown ──

var statusLabels = map[string]string{
	string(engine.StatusOnTrack):  "良好",
	string(engine.StatusWarning):  "注意",
	string(engine.StatusCritical): "危险",
}

func renderMarkdown(r *evmReport) *bytes.Buffer {
	var b strings.Builder
	fmt.Fprintf(&b, "# EVM 报告: %s\n\n", r.Project.Name)
	fmt.Fprintf(&b, "- 基准日: %s\n", r.AsOf)
	fmt.Fprintf(&b, "- 项目状态: %s\n", r.Project.Status)
	fmt.Fprintf(&b, "- 项目期间: %s ~ %s（共 %d 天，已过 %d 天，剩余 %d 天，时间进度 %.1f%%）\n",
		dash(r.Project.StartDate), dash(r.Project.EndDate),
		r.Project.TotalDays, r.Project.ElapsedDays, r.Project.RemainingDays, r.Project.ScheduleProgressPct)
	fmt.Fprintf(&b, "- 进度状态: %s (SPI %.3f)\n", statusLabels[r.ScheduleStatus], r.Metrics.SPI)
	fmt.Fprintf(&b, "- 成本状态: %s (CPI %.3f)\n\n", statusLabels[r.CostStatus], r.Metrics.CPI)

	b.WriteString("## 指标\n\n| 指标 | 值 |\n|---|---|\n")
	for _, row := range metricRows(r.Metrics) {
		fmt.Fprintf(&b, "| %s | %s |\n", row[0], row[1])
	}

	in := r.Metrics.Interpretation
	fmt.Fprintf(&b, "\n- 进度: %s（%+.1f%%）\n", interpretationLabels[in.Schedule], in.ScheduleVariancePct)
	fmt.Fprintf(&b, "- 成本: %s（%+.1f%%）\n", interpretationLabels[in.Cost], in.CostVariancePct)

	b.WriteString("\n## 改进建议\n\n")
	for _, rec := range r.Recommendations {
		fmt.Fprintf(&b, "- %s\n", rec)
	}

	b.WriteString("\n## 任务汇总\n\n")
	fmt.Fprintf(&b, "- 任务数: %d（完成 %d / 进行中 %d / 未开始 %d）\n",
		r.Summary.TotalTasks, r.Summary.CompletedTasks, r.Summary.InProgressTasks, r.Summary.NotStartedTasks)
	fmt.Fprintf(&b, "- 计划工时: %.2f h，实际工时: %.2f h\n", r.Summary.TotalPlannedHours, r.Summary.TotalActualHours)
	fmt.Fprintf(&b, "- 整体进度: %.1f%%\n", r.Summary.OverallProgress)

	b.WriteString("\n## WBS\n\n| ID | 任务 | 类型 | 负责人 | 计划工时 | 实际工时 | 进度 | EV | 效率 | 状态 | 计划开始 | 计划结束 |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|---|---|---|---|\n")
	for _, t := range r.Tasks {
		name := t.Name
		if t.ParentID != nil {
			name = "└ " + name
		}
		if t.IsMilestone {
			name += " ◆"
		}
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %.1f | %.1f | %d%% | %.2f | %s | %s | %s | %s |\n",
			t.ID, escapeMarkdownCell(name), t.TaskType, escapeMarkdownCell(t.Assignee),
			t.PlannedHours, t.ActualHours, t.Progress, t.EVContribution, efficiencyText(t.Efficiency),
			t.Status, dash(t.PlannedStart), dash(t.PlannedEnd))
	}

	b.WriteString("\n## 履历\n\n")
	if len(r.History) == 0 {
		b.WriteString("暂无快照\n")
	} else {
		b.WriteString("| 日期 | PV | EV | AC | SPI | CPI |\n|---|---|---|---|---|---|\n")
		for _, h := range r.History {
			fmt.Fprintf(&b, "| %s | %.2f | %.2f | %.2f | %.3f | %.3f |\n", h.Date, h.PV, h.EV, h.AC, h.SPI, h.CPI)
		}
	}

	return bytes.NewBufferString(b.String())
}

var interpretationLabels = map[string]string{
	engine.ScheduleAhead:  "提前",
	engine.ScheduleBehind: "落后",
	engine.CostUnder:      "未超支",
	engine.CostOver:       "超支",
}

func efficiencyText(e *float64) string {
	if e == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *e)
}

func metricRows(m reportMetrics) [][2]string {
	return [][2]string{
		{"PV (计划价值)", fmt.Sprintf("%.2f", m.PV)},
		{"EV (挣值)", fmt.Sprintf("%.2f", m.EV)},
		{"AC (实际成本)", fmt.Sprintf("%.2f", m.AC)},
		{"SV (进度偏差)", fmt.Sprintf("%.2f", m.SV)},
		{"CV (成本偏差)", fmt.Sprintf("%.2f", m.CV)},
		{"SPI (进度绩效指数)", fmt.Sprintf("%.3f", m.SPI)},
		{"CPI (成本绩效指数)", fmt.Sprintf("%.3f", m.CPI)},
		{"BAC (完工预算)", fmt.Sprintf("%.2f", m.BAC)},
		{"ETC (完工尚需估算)", fmt.Sprintf("%.2f", m.ETC)},
		{"EAC (完工估算)", fmt.Sprintf("%.2f", m.EAC)},
	}
}

func escapeMarkdownCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// ── Excel ──

// renderXLSX Sheet "EVM"：期间、指标与建议；"WBS"：任务明细；"History"：快照履历
func renderXLSX(r *evmReport) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	for _, name := range []string{"EVM", "WBS", "History"} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
	}
	f.DeleteSheet("Sheet1")

	// EVM
	f.SetCellValue("EVM", "A1", "项目")
	f.SetCellValue("EVM", "B1", r.Project.Name)
	f.SetCellValue("EVM", "A2", "基准日")
	f.SetCellValue("EVM", "B2", r.AsOf)
	f.SetCellValue("EVM", "A3", "进度状态")
	f.SetCellValue("EVM", "B3", statusLabels[r.ScheduleStatus])
	f.SetCellValue("EVM", "A4", "成本状态")
	f.SetCellValue("EVM", "B4", statusLabels[r.CostStatus])

	f.SetCellValue("EVM", "A5", "项目期间")
	f.SetCellValue("EVM", "B5", fmt.Sprintf("%s ~ %s", dash(r.Project.StartDate), dash(r.Project.EndDate)))
	f.SetCellValue("EVM", "A6", "剩余天数")
	f.SetCellValue("EVM", "B6", r.Project.RemainingDays)
	f.SetCellValue("EVM", "A7", "时间进度(%)")
	f.SetCellValue("EVM", "B7", r.Project.ScheduleProgressPct)

	row := 9
	for _, mr := range metricRows(r.Metrics) {
		f.SetCellValue("EVM", cell("A", row), mr[0])
		f.SetCellValue("EVM", cell("B", row), mr[1])
		row++
	}
	in := r.Metrics.Interpretation
	f.SetCellValue("EVM", cell("A", row), "进度偏差(%)")
	f.SetCellValue("EVM", cell("B", row), in.ScheduleVariancePct)
	row++
	f.SetCellValue("EVM", cell("A", row), "成本偏差(%)")
	f.SetCellValue("EVM", cell("B", row), in.CostVariancePct)
	row++
	row++
	f.SetCellValue("EVM", cell("A", row), "改进建议")
	for _, rec := range r.Recommendations {
		f.SetCellValue("EVM", cell("B", row), rec)
		row++
	}
	f.SetColWidth("EVM", "A", "A", 22)
	f.SetColWidth("EVM", "B", "B", 48)

	// WBS
	headers := []string{
		"ID", "父任务", "任务", "类型", "负责人", "计划工时", "实际工时", "进度(%)", "EV", "效率",
		"状态", "计划开始", "计划结束", "实际开始", "实际结束", "里程碑",
	}
	for i, h := range headers {
		f.SetCellValue("WBS", cell(colName(i), 1), h)
	}
	for i, t := range r.Tasks {
		row := i + 2
		parent := ""
		if t.ParentID != nil {
			parent = fmt.Sprintf("%d", *t.ParentID)
		}
		milestone := ""
		if t.IsMilestone {
			milestone = "◆"
		}
		var efficiency interface{} = ""
		if t.Efficiency != nil {
			efficiency = *t.Efficiency
		}
		values := []interface{}{
			t.ID, parent, t.Name, t.TaskType, t.Assignee, t.PlannedHours, t.ActualHours,
			t.Progress, t.EVContribution, efficiency,
			t.Status, t.PlannedStart, t.PlannedEnd, t.ActualStart, t.ActualEnd, milestone,
		}
		for j, v := range values {
			f.SetCellValue("WBS", cell(colName(j), row), v)
		}
	}
	f.SetColWidth("WBS", "C", "C", 32)

	// History
	for i, h := range []string{"日期", "PV", "EV", "AC", "SPI", "CPI"} {
		f.SetCellValue("History", cell(colName(i), 1), h)
	}
	for i, h := range r.History {
		values := []interface{}{h.Date, h.PV, h.EV, h.AC, h.SPI, h.CPI}
		for j, v := range values {
			f.SetCellValue("History", cell(colName(j), i+2), v)
		}
	}

	if idx, err := f.GetSheetIndex("EVM"); err == nil {
		f.SetActiveSheet(idx)
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
