package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/ragayama123/EVM-PM-Tool/internal/dto"
	"github.com/ragayama123/EVM-PM-Tool/internal/engine"
	"github.com/ragayama123/EVM-PM-Tool/internal/model"
	"github.com/ragayama123/EVM-PM-Tool/internal/repository"
)

// WBSService WBS Excel 模板 / 导入业务接口
//
// 导入会删除项目现有全部任务，按 WBS 编号顺序重新创建；预览不写库。
type WBSService interface {
	// Template 生成导入模板，负责人列下拉为项目成员
	Template(ctx context.Context, projectID int64) (*bytes.Buffer, string, error)
	Preview(ctx context.Context, projectID int64, file io.Reader) (*dto.WBSImportPreviewResponse, error)
	// Import 存在任何行级错误时返回 *WBSRowsError，不写库
	Import(ctx context.Context, projectID int64, file io.Reader) (*dto.WBSImportResponse, error)
}

type wbsService struct {
	repo   *repository.Repository
	hooks  *projectHooks
	logger *zap.Logger
}

// NewWBSService 创建 WBSService 实例
func NewWBSService(repo *repository.Repository, hooks *projectHooks, logger *zap.Logger) WBSService {
	return &wbsService{repo: repo, hooks: hooks, logger: logger}
}

const (
	wbsSheet      = "WBS"
	wbsHelpSheet  = "使い方"
	wbsMaxRows    = 1000
	wbsNameMaxLen = 200
)

// 模板列顺序即解析列顺序
var wbsColumns = []struct {
	title string
	width float64
}{
	{"WBS番号", 10},
	{"タスク名", 32},
	{"タスク種別", 12},
	{"予定工数(h)", 12},
	{"予定開始日", 13},
	{"予定終了日", 13},
	{"担当者", 14},
	{"説明", 40},
	{"マイルストーン", 14},
}

const (
	wbsColNumber = iota
	wbsColName
	wbsColTaskType
	wbsColHours
	wbsColStart
	wbsColEnd
	wbsColAssignee
	wbsColDescription
	wbsColMilestone
)

var wbsSampleRows = [][]string{
	{"1", "要件定義", "要件定義", "", "2025-04-07", "2025-04-18", "", "", "FALSE"},
	{"1.1", "ヒアリング", "要件定義", "16", "2025-04-07", "2025-04-09", "", "現行業務の確認", "FALSE"},
	{"1.2", "要件定義書作成", "要件定義", "24", "2025-04-10", "2025-04-18", "", "", "FALSE"},
	{"2", "開発", "PG", "", "2025-04-21", "2025-05-16", "", "", "FALSE"},
	{"2.1", "画面実装", "PG", "40", "2025-04-21", "2025-05-02", "", "", "FALSE"},
	{"2.2", "API実装", "PG", "40", "2025-05-07", "2025-05-16", "", "", "FALSE"},
}

var wbsHelpLines = []string{
	"■ WBS番号",
	"  - 1、2 为阶段，1.1、2.1 为所属阶段的子任务；层级最多一层",
	"■ 必填",
	"  - WBS番号、タスク名",
	"■ タスク種別",
	"  - 下拉选择，或填写代码（requirements / pg / ut ...）",
	"■ 日付",
	"  - YYYY-MM-DD 或 YYYY/MM/DD",
	"■ 担当者",
	"  - 填写项目成员姓名",
	"■ マイルストーン",
	"  - TRUE / 1 / はい / YES 视为里程碑",
	"■ 导入",
	"  - 导入会删除项目现有全部任务，请先预览确认",
}

// ═══════════════════════════════════════════════════════════
// Template
// ═══════════════════════════════════════════════════════════

func (s *wbsService) Template(ctx context.Context, projectID int64) (*bytes.Buffer, string, error) {
	members, err := s.projectMembers(ctx, projectID)
	if err != nil {
		return nil, "", err
	}

	names := make([]string, 0, len(members))
	for _, m := range members {
		names = append(names, m.Name)
	}
	buf, err := renderWBSTemplate(names)
	if err != nil {
		s.logger.Error("生成 WBS 模板失败", zap.Int64("project_id", projectID), zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	return buf, fmt.Sprintf("wbs_template_%d.xlsx", projectID), nil
}

func renderWBSTemplate(memberNames []string) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", wbsSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(wbsHelpSheet); err != nil {
		return nil, err
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	// WBS 编号按文本存储，避免 1.10 被读成 1.1
	textStyle, _ := f.NewStyle(&excelize.Style{NumFmt: 49})

	for i, c := range wbsColumns {
		col := colName(i)
		f.SetCellValue(wbsSheet, cell(col, 1), c.title)
		f.SetColWidth(wbsSheet, col, col, c.width)
	}
	f.SetCellStyle(wbsSheet, "A1", cell(colName(len(wbsColumns)-1), 1), headerStyle)
	f.SetCellStyle(wbsSheet, "A2", cell("A", wbsMaxRows+1), textStyle)

	for i, row := range wbsSampleRows {
		for j, v := range row {
			f.SetCellValue(wbsSheet, cell(colName(j), i+2), v)
		}
	}

	labels := make([]string, 0, len(engine.AllTaskTypes))
	for _, t := range engine.AllTaskTypes {
		labels = append(labels, t.Label())
	}
	lists := []struct {
		col   int
		items []string
	}{
		{wbsColTaskType, labels},
		{wbsColAssignee, memberNames},
		{wbsColMilestone, []string{"TRUE", "FALSE"}},
	}
	for _, l := range lists {
		col := colName(l.col)
		if err := addDropList(f, cell(col, 2)+":"+cell(col, wbsMaxRows+1), l.items); err != nil {
			return nil, err
		}
	}

	for i, line := range wbsHelpLines {
		f.SetCellValue(wbsHelpSheet, cell("A", i+1), line)
	}
	f.SetColWidth(wbsHelpSheet, "A", "A", 64)

	if idx, err := f.GetSheetIndex(wbsSheet); err == nil {
		f.SetActiveSheet(idx)
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// addDropList 候选为空或超出 Excel 公式长度上限时不设置下拉
func addDropList(f *excelize.File, sqref string, items []string) error {
	if len(items) == 0 {
		return nil
	}
	dv := excelize.NewDataValidation(true)
	dv.Sqref = sqref
	if err := dv.SetDropList(items); err != nil {
		return nil
	}
	return f.AddDataValidation(wbsSheet, dv)
}

// ═══════════════════════════════════════════════════════════
// Preview / Import
// ═══════════════════════════════════════════════════════════

// Preview 解析错误存在时只返回错误；否则继续解析负责人与层级
func (s *wbsService) Preview(ctx context.Context, projectID int64, file io.Reader) (*dto.WBSImportPreviewResponse, error) {
	members, err := s.projectMembers(ctx, projectID)
	if err != nil {
		return nil, err
	}
	items, rowErrs, err := parseWBS(file)
	if err != nil {
		return nil, err
	}

	resp := &dto.WBSImportPreviewResponse{Errors: rowErrs, Tasks: []dto.WBSTaskPreview{}}
	if len(rowErrs) == 0 {
		_, resp.Errors = resolveWBS(items, members)
		for i := range items {
			resp.Tasks = append(resp.Tasks, toWBSPreview(&items[i]))
		}
		resp.TotalCount = len(items)
	}
	resp.Valid = len(resp.Errors) == 0
	return resp, nil
}

func (s *wbsService) Import(ctx context.Context, projectID int64, file io.Reader) (*dto.WBSImportResponse, error) {
	members, err := s.projectMembers(ctx, projectID)
	if err != nil {
		return nil, err
	}
	items, rowErrs, err := parseWBS(file)
	if err != nil {
		return nil, err
	}
	var parents []int
	if len(rowErrs) == 0 {
		parents, rowErrs = resolveWBS(items, members)
	}
	if len(rowErrs) > 0 {
		return nil, &WBSRowsError{Rows: rowErrs}
	}

	tasks := make([]model.Task, len(items))
	for i := range items {
		tasks[i] = items[i].task
	}

	var deleted int64
	err = s.hooks.withProjectLock(ctx, projectID, func() error {
		var err error
		deleted, err = s.repo.Task.ReplaceAll(ctx, projectID, tasks, parents)
		return err
	})
	if err != nil {
		if !errors.Is(err, ErrProjectBusy) {
			s.logger.Error("导入 WBS 失败", zap.Int64("project_id", projectID), zap.Error(err))
		}
		return nil, err
	}
	s.hooks.tasksChanged(ctx, projectID)

	s.logger.Info("WBS 已导入",
		zap.Int64("project_id", projectID),
		zap.Int("imported", len(tasks)),
		zap.Int64("deleted", deleted),
	)
	return &dto.WBSImportResponse{ImportedCount: len(tasks), DeletedCount: deleted}, nil
}

func (s *wbsService) projectMembers(ctx context.Context, projectID int64) ([]model.Member, error) {
	if _, err := loadProject(ctx, s.repo, s.logger, projectID); err != nil {
		return nil, err
	}
	members, err := s.repo.Member.ListByProject(ctx, projectID)
	if err != nil {
		s.logger.Error("查询成员列表失败", zap.Int64("project_id", projectID), zap.Error(err))
		return nil, err
	}
	return members, nil
}

// ── 解析 ──

// wbsRow 通过行级校验的一行
type wbsRow struct {
	row      int
	number   string
	parent   string
	segments []int
	assignee string
	task     model.Task
}

// parseWBS 读取 "WBS" 工作表（不存在时取活动工作表），第 1 行为表头
// 返回按 WBS 编号排序的有效行；文件无法读取时返回 ErrWBSFile
func parseWBS(file io.Reader) ([]wbsRow, []dto.WBSRowError, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrWBSFile, err)
	}
	defer f.Close()

	sheet := wbsSheet
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		sheet = f.GetSheetName(f.GetActiveSheetIndex())
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrWBSFile, err)
	}

	rowErrs := []dto.WBSRowError{}
	var items []wbsRow
	seen := make(map[string]int)
	dataRows := 0

	for i := 1; i < len(rows); i++ {
		cells := rows[i]
		rowNum := i + 1
		get := func(col int) string {
			if col < len(cells) {
				return strings.TrimSpace(cells[col])
			}
			return ""
		}
		if isBlankRow(cells) {
			continue
		}
		dataRows++

		bad := false
		fail := func(format string, args ...interface{}) {
			rowErrs = append(rowErrs, dto.WBSRowError{Row: rowNum, Message: fmt.Sprintf(format, args...)})
			bad = true
		}

		number := get(wbsColNumber)
		if number == "" {
			fail("WBS 编号为必填项")
			continue
		}
		segments, ok := parseWBSNumber(number)
		if !ok {
			fail("WBS 编号「%s」格式错误，应为 1、1.1 形式", number)
			continue
		}
		if prev, dup := seen[number]; dup {
			fail("WBS 编号「%s」与第 %d 行重复", number, prev)
			continue
		}
		seen[number] = rowNum

		item := wbsRow{row: rowNum, number: number, segments: segments, assignee: get(wbsColAssignee)}
		if len(segments) > 1 {
			item.parent = number[:strings.LastIndex(number, ".")]
		}

		t := &item.task
		t.Name = get(wbsColName)
		switch {
		case t.Name == "":
			fail("タスク名为必填项")
		case utf8.RuneCountInString(t.Name) > wbsNameMaxLen:
			fail("タスク名不能超过 %d 个字符", wbsNameMaxLen)
		}

		if v := get(wbsColTaskType); v != "" {
			tt, ok := engine.ParseTaskType(v)
			if !ok {
				fail("未知的任务类型「%s」", v)
			} else {
				code := string(tt)
				t.TaskType = &code
			}
		}

		if v := get(wbsColHours); v != "" {
			hours, err := strconv.ParseFloat(v, 64)
			switch {
			case err != nil:
				fail("预定工时「%s」不是有效数字", v)
			case hours < 0:
				fail("预定工时不能为负数")
			default:
				t.PlannedHours = hours
			}
		}

		if v := get(wbsColStart); v != "" {
			if d, ok := parseWBSDate(v); ok {
				t.PlannedStartDate = &d
			} else {
				fail("预定开始日「%s」格式错误（YYYY-MM-DD）", v)
			}
		}
		if v := get(wbsColEnd); v != "" {
			if d, ok := parseWBSDate(v); ok {
				t.PlannedEndDate = &d
			} else {
				fail("预定结束日「%s」格式错误（YYYY-MM-DD）", v)
			}
		}
		if t.PlannedStartDate != nil && t.PlannedEndDate != nil && t.PlannedEndDate.Before(*t.PlannedStartDate) {
			fail("预定结束日早于开始日")
		}

		t.Description = get(wbsColDescription)
		t.IsMilestone = parseWBSBool(get(wbsColMilestone))

		if !bad {
			items = append(items, item)
		}
	}

	for _, it := range items {
		if it.parent == "" {
			continue
		}
		if _, ok := seen[it.parent]; !ok {
			rowErrs = append(rowErrs, dto.WBSRowError{Row: it.row, Message: fmt.Sprintf("父任务「%s」不存在", it.parent)})
		}
	}

	switch {
	case dataRows == 0:
		rowErrs = append(rowErrs, dto.WBSRowError{Message: "文件中没有任务行"})
	case dataRows > wbsMaxRows:
		rowErrs = append(rowErrs, dto.WBSRowError{Message: fmt.Sprintf("任务行数超过上限 %d 行", wbsMaxRows)})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return slices.Compare(items[i].segments, items[j].segments) < 0
	})
	sortRowErrors(rowErrs)
	return items, rowErrs, nil
}

// resolveWBS 解析负责人姓名与父任务下标，并按写入规则校验层级
// items 须已按 WBS 编号排序，父任务在前
func resolveWBS(items []wbsRow, members []model.Member) ([]int, []dto.WBSRowError) {
	rowErrs := []dto.WBSRowError{}
	memberIDs := make(map[string]int64, len(members))
	for _, m := range members {
		memberIDs[m.Name] = m.ID
	}

	index := make(map[string]int, len(items))
	parents := make([]int, len(items))
	for i := range items {
		it := &items[i]
		index[it.number] = i
		parents[i] = -1
		if p, ok := index[it.parent]; ok && it.parent != "" {
			parents[i] = p
		}
		if it.assignee != "" {
			id, ok := memberIDs[it.assignee]
			if !ok {
				rowErrs = append(rowErrs, dto.WBSRowError{Row: it.row, Message: fmt.Sprintf("负责人「%s」不存在", it.assignee)})
				continue
			}
			it.task.AssignedMemberID = &id
		}
	}

	// 以下标 + 1 作为临时 ID 复用任务写入校验
	drafts := make([]engine.Task, len(items))
	for i := range items {
		drafts[i] = toEngineTask(&items[i].task)
		drafts[i].ID = int64(i + 1)
		drafts[i].ParentID = nil
		if p := parents[i]; p >= 0 {
			parentID := int64(p + 1)
			drafts[i].ParentID = &parentID
		}
	}
	for i := range drafts {
		if err := engine.ValidateTask(drafts[i], drafts); err != nil {
			rowErrs = append(rowErrs, dto.WBSRowError{Row: items[i].row, Message: err.Error()})
		}
	}

	sortRowErrors(rowErrs)
	return parents, rowErrs
}

func sortRowErrors(errs []dto.WBSRowError) {
	sort.SliceStable(errs, func(i, j int) bool { return errs[i].Row < errs[j].Row })
}

func isBlankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// parseWBSNumber 点分正整数，如 1、2.3
func parseWBSNumber(s string) ([]int, bool) {
	parts := strings.Split(s, ".")
	segments := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n <= 0 {
			return nil, false
		}
		segments = append(segments, n)
	}
	return segments, true
}

var wbsDateLayouts = []string{"2006-01-02", "2006/01/02", "2006/1/2", "2006-1-2"}

// parseWBSDate 支持文本日期与 Excel 日期序列值
func parseWBSDate(s string) (time.Time, bool) {
	for _, layout := range wbsDateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return engine.DateOf(d), true
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 {
		if d, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return engine.DateOf(d), true
		}
	}
	return time.Time{}, false
}

func parseWBSBool(s string) bool {
	switch strings.ToUpper(s) {
	case "TRUE", "1", "はい", "YES":
		return true
	}
	return false
}

func toWBSPreview(it *wbsRow) dto.WBSTaskPreview {
	t := &it.task
	p := dto.WBSTaskPreview{
		Row:              it.row,
		WBSNumber:        it.number,
		Name:             t.Name,
		TaskType:         t.TaskType,
		PlannedHours:     t.PlannedHours,
		PlannedStartDate: formatDate(t.PlannedStartDate),
		PlannedEndDate:   formatDate(t.PlannedEndDate),
		AssigneeName:     it.assignee,
		AssignedMemberID: t.AssignedMemberID,
		Description:      t.Description,
		IsMilestone:      t.IsMilestone,
		IsChild:          it.parent != "",
	}
	if it.parent != "" {
		parent := it.parent
		p.ParentWBS = &parent
	}
	if t.TaskType != nil {
		p.TaskTypeLabel = engine.TaskType(*t.TaskType).Label()
	}
	return p
}
