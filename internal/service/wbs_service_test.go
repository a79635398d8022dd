package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/ragayama123/EVM-PM-Tool/internal/dto"
	"github.com/ragayama123/EVM-PM-Tool/internal/engine"
	"github.com/ragayama123/EVM-PM-Tool/internal/model"
)

func setupTestWBSService() (WBSService, *testEnv, *model.Project) {
	env := newTestEnv()
	p := env.seedProject("基干系统更新")
	return NewWBSService(env.repo, env.hooks, env.logger), env, p
}

// wbsWorkbook 以模板列顺序生成 WBS 工作表，rows 从第 2 行开始
func wbsWorkbook(t *testing.T, rows ...[]string) io.Reader {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", wbsSheet); err != nil {
		t.Fatalf("重命名工作表失败: %v", err)
	}
	header := make([]interface{}, len(wbsColumns))
	for i, c := range wbsColumns {
		header[i] = c.title
	}
	f.SetSheetRow(wbsSheet, "A1", &header)
	for i, r := range rows {
		vals := make([]interface{}, len(r))
		for j, v := range r {
			vals[j] = v
		}
		f.SetSheetRow(wbsSheet, cell("A", i+2), &vals)
	}
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		t.Fatalf("写入工作簿失败: %v", err)
	}
	return buf
}

func rowMessages(errs []dto.WBSRowError, row int) []string {
	var out []string
	for _, e := range errs {
		if e.Row == row {
			out = append(out, e.Message)
		}
	}
	return out
}

// ── Template ──

func TestWBSService_Template(t *testing.T) {
	svc, env, p := setupTestWBSService()
	env.seedMember(p.ID, "佐藤", 40)
	env.seedMember(p.ID, "鈴木", 40)

	buf, filename, err := svc.Template(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("生成模板应成功: %v", err)
	}
	if filename != "wbs_template_1.xlsx" {
		t.Errorf("文件名错误: %s", filename)
	}

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("模板应为有效 xlsx: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 2 || sheets[0] != wbsSheet || sheets[1] != wbsHelpSheet {
		t.Errorf("工作表应为 [WBS 使い方]，实际: %v", sheets)
	}
	if v, _ := f.GetCellValue(wbsSheet, "A1"); v != "WBS番号" {
		t.Errorf("A1 应为 WBS番号，实际: %q", v)
	}
	if v, _ := f.GetCellValue(wbsSheet, "I1"); v != "マイルストーン" {
		t.Errorf("I1 应为 マイルストーン，实际: %q", v)
	}
	if v, _ := f.GetCellValue(wbsSheet, "B3"); v != "ヒアリング" {
		t.Errorf("B3 应为示例行，实际: %q", v)
	}

	dvs, err := f.GetDataValidations(wbsSheet)
	if err != nil {
		t.Fatalf("读取下拉失败: %v", err)
	}
	if len(dvs) != 3 {
		t.Fatalf("应有 3 个下拉（种别/负责人/里程碑），实际 %d", len(dvs))
	}
	var memberList bool
	for _, dv := range dvs {
		if strings.Contains(dv.Formula1, "佐藤") && strings.Contains(dv.Formula1, "鈴木") {
			memberList = true
		}
	}
	if !memberList {
		t.Error("负责人下拉应包含项目成员")
	}
}

func TestWBSService_Template_NoMembersSkipsAssigneeList(t *testing.T) {
	svc, _, p := setupTestWBSService()

	buf, _, err := svc.Template(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("生成模板应成功: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("模板应为有效 xlsx: %v", err)
	}
	defer f.Close()

	dvs, _ := f.GetDataValidations(wbsSheet)
	if len(dvs) != 2 {
		t.Errorf("无成员时只有种别与里程碑下拉，实际 %d", len(dvs))
	}
}

func TestWBSService_Template_ProjectNotFound(t *testing.T) {
	svc, _, _ := setupTestWBSService()

	_, _, err := svc.Template(context.Background(), 99)
	if !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("期望 ErrProjectNotFound，实际: %v", err)
	}
}

// 模板自带的示例行可直接导入
func TestWBSService_Preview_TemplateRoundTrip(t *testing.T) {
	svc, _, p := setupTestWBSService()

	buf, _, err := svc.Template(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("生成模板应成功: %v", err)
	}
	resp, err := svc.Preview(context.Background(), p.ID, buf)
	if err != nil {
		t.Fatalf("预览应成功: %v", err)
	}
	if !resp.Valid || len(resp.Errors) != 0 {
		t.Fatalf("示例行应全部有效，错误: %+v", resp.Errors)
	}
	if resp.TotalCount != len(wbsSampleRows) {
		t.Errorf("应解析 %d 行，实际 %d", len(wbsSampleRows), resp.TotalCount)
	}
}

// ── Preview ──

func TestWBSService_Preview(t *testing.T) {
	svc, env, p := setupTestWBSService()
	sato := env.seedMember(p.ID, "佐藤", 40)

	file := wbsWorkbook(t,
		[]string{"2", "开发", "PG"},
		[]string{"1.1", "访谈", "要件定義", "16", "2025/04/07", "2025-04-09", "佐藤", "现状确认", "FALSE"},
		[]string{"1", "需求定义", "requirements", "", "2025-04-07", "2025-04-18"},
		[]string{},
		[]string{"1.2", "评审", "", "2.5", "", "", "", "", "はい"},
	)

	resp, err := svc.Preview(context.Background(), p.ID, file)
	if err != nil {
		t.Fatalf("预览应成功: %v", err)
	}
	if !resp.Valid {
		t.Fatalf("应全部有效，错误: %+v", resp.Errors)
	}
	if resp.TotalCount != 4 {
		t.Fatalf("空行应跳过，期望 4 行，实际 %d", resp.TotalCount)
	}

	order := make([]string, len(resp.Tasks))
	for i, task := range resp.Tasks {
		order[i] = task.WBSNumber
	}
	if strings.Join(order, ",") != "1,1.1,1.2,2" {
		t.Errorf("应按 WBS 编号排序，实际: %v", order)
	}

	hearing := resp.Tasks[1]
	if hearing.Row != 3 || !hearing.IsChild || hearing.ParentWBS == nil || *hearing.ParentWBS != "1" {
		t.Errorf("1.1 应为第 3 行、1 的子任务: %+v", hearing)
	}
	if hearing.TaskType == nil || *hearing.TaskType != string(engine.TaskTypeRequirements) || hearing.TaskTypeLabel != "要件定義" {
		t.Errorf("种别显示名应解析为编码: %+v", hearing)
	}
	if hearing.AssignedMemberID == nil || *hearing.AssignedMemberID != sato.ID {
		t.Errorf("负责人应解析为成员 ID: %v", hearing.AssignedMemberID)
	}
	if hearing.PlannedStartDate == nil || *hearing.PlannedStartDate != "2025-04-07" {
		t.Errorf("斜杠日期应被接受: %v", hearing.PlannedStartDate)
	}

	review := resp.Tasks[2]
	if !review.IsMilestone || review.PlannedHours != 2.5 || review.TaskType != nil {
		t.Errorf("1.2 应为无种别的里程碑: %+v", review)
	}
	if resp.Tasks[0].IsChild || resp.Tasks[0].ParentWBS != nil {
		t.Error("1 应为顶层任务")
	}
	if len(env.tasks.tasks) != 0 {
		t.Error("预览不应写库")
	}
}

func TestWBSService_Preview_RowErrors(t *testing.T) {
	svc, _, p := setupTestWBSService()

	file := wbsWorkbook(t,
		[]string{"1", "阶段"},
		[]string{"1", "重复"},
		[]string{"1.x", "编号错误"},
		[]string{"2", ""},
		[]string{"3", "工时", "", "abc"},
		[]string{"4", "负工时", "", "-1"},
		[]string{"5", "日期", "", "", "2025-13-01"},
		[]string{"6", "倒序", "", "", "2025-04-10", "2025-04-01"},
		[]string{"7", "种别", "设计"},
		[]string{"8.1", "无父任务"},
		[]string{"", "无编号"},
	)

	resp, err := svc.Preview(context.Background(), p.ID, file)
	if err != nil {
		t.Fatalf("行级错误不应返回 error: %v", err)
	}
	if resp.Valid || len(resp.Tasks) != 0 || resp.TotalCount != 0 {
		t.Fatalf("存在解析错误时不返回任务: %+v", resp)
	}

	want := map[int]string{
		3:  "与第 2 行重复",
		4:  "格式错误",
		5:  "タスク名为必填项",
		6:  "不是有效数字",
		7:  "不能为负数",
		8:  "预定开始日「2025-13-01」格式错误",
		9:  "预定结束日早于开始日",
		10: "未知的任务类型「设计」",
		11: "父任务「8」不存在",
		12: "WBS 编号为必填项",
	}
	for row, sub := range want {
		msgs := rowMessages(resp.Errors, row)
		if len(msgs) != 1 || !strings.Contains(msgs[0], sub) {
			t.Errorf("第 %d 行应报错 %q，实际: %v", row, sub, msgs)
		}
	}
	if len(resp.Errors) != len(want) {
		t.Errorf("错误数应为 %d，实际 %d: %+v", len(want), len(resp.Errors), resp.Errors)
	}
	for i := 1; i < len(resp.Errors); i++ {
		if resp.Errors[i].Row < resp.Errors[i-1].Row {
			t.Fatalf("错误应按行号排序: %+v", resp.Errors)
		}
	}
}

func TestWBSService_Preview_ResolveErrors(t *testing.T) {
	svc, env, p := setupTestWBSService()
	env.seedMember(p.ID, "佐藤", 40)

	file := wbsWorkbook(t,
		[]string{"1", "阶段"},
		[]string{"1.1", "子任务", "", "", "", "", "田中"},
		[]string{"1.1.1", "孙任务"},
	)

	resp, err := svc.Preview(context.Background(), p.ID, file)
	if err != nil {
		t.Fatalf("预览应成功: %v", err)
	}
	if resp.Valid {
		t.Fatal("未知负责人与多层级应无效")
	}
	if msgs := rowMessages(resp.Errors, 3); len(msgs) == 0 || msgs[0] != "负责人「田中」不存在" {
		t.Errorf("第 3 行应报未知负责人，实际: %v", msgs)
	}
	if msgs := rowMessages(resp.Errors, 4); len(msgs) != 1 || msgs[0] != engine.ErrNestedChild.Error() {
		t.Errorf("第 4 行应报层级超限，实际: %v", msgs)
	}
	if len(resp.Tasks) != 3 {
		t.Errorf("解析通过时仍返回任务供确认，实际 %d", len(resp.Tasks))
	}
}

func TestWBSService_Preview_EmptySheet(t *testing.T) {
	svc, _, p := setupTestWBSService()

	resp, err := svc.Preview(context.Background(), p.ID, wbsWorkbook(t))
	if err != nil {
		t.Fatalf("预览应成功: %v", err)
	}
	if resp.Valid || len(resp.Errors) != 1 || resp.Errors[0].Row != 0 {
		t.Errorf("无任务行应报文件级错误: %+v", resp.Errors)
	}
}

func TestWBSService_Preview_NotExcel(t *testing.T) {
	svc, _, p := setupTestWBSService()

	_, err := svc.Preview(context.Background(), p.ID, strings.NewReader("date,name\n"))
	if !errors.Is(err, ErrWBSFile) {
		t.Errorf("期望 ErrWBSFile，实际: %v", err)
	}
}

// ── Import ──

func TestWBSService_Import_ReplacesTasks(t *testing.T) {
	svc, env, p := setupTestWBSService()
	sato := env.seedMember(p.ID, "佐藤", 40)
	env.seedTask(&model.Task{ProjectID: p.ID, Name: "旧任务 A"})
	env.seedTask(&model.Task{ProjectID: p.ID, Name: "旧任务 B"})
	other := env.seedProject("其他项目")
	keep := env.seedTask(&model.Task{ProjectID: other.ID, Name: "其他项目任务"})

	file := wbsWorkbook(t,
		[]string{"1", "需求定义", "要件定義"},
		[]string{"1.1", "访谈", "要件定義", "16", "2025-04-07", "2025-04-09", "佐藤"},
		[]string{"2", "上线", "本番化", "8", "", "", "", "", "TRUE"},
	)

	resp, err := svc.Import(context.Background(), p.ID, file)
	if err != nil {
		t.Fatalf("导入应成功: %v", err)
	}
	if resp.ImportedCount != 3 || resp.DeletedCount != 2 {
		t.Errorf("期望导入 3 删除 2，实际: %+v", resp)
	}

	byName := make(map[string]*model.Task)
	for _, task := range env.tasks.tasks {
		byName[task.Name] = task
	}
	if _, ok := byName["旧任务 A"]; ok {
		t.Error("旧任务应被删除")
	}
	if _, ok := byName[keep.Name]; !ok {
		t.Error("其他项目的任务不应受影响")
	}
	phase, child := byName["需求定义"], byName["访谈"]
	if phase == nil || child == nil {
		t.Fatalf("导入任务缺失: %v", byName)
	}
	if child.ParentID == nil || *child.ParentID != phase.ID {
		t.Errorf("子任务应指向新建的父任务 %d，实际: %v", phase.ID, child.ParentID)
	}
	if child.AssignedMemberID == nil || *child.AssignedMemberID != sato.ID {
		t.Errorf("负责人应写入: %v", child.AssignedMemberID)
	}
	if release := byName["上线"]; release == nil || !release.IsMilestone || release.TaskType == nil || *release.TaskType != "release" {
		t.Errorf("里程碑与种别应写入: %+v", release)
	}
	if env.locker.acquired != 1 || env.locker.released != 1 {
		t.Errorf("应获取并释放一次项目锁: acquired=%d released=%d", env.locker.acquired, env.locker.released)
	}
	if len(env.cache.deleted) == 0 {
		t.Error("导入后应清除分析缓存")
	}
}

func TestWBSService_Import_RowErrorsBlockWrite(t *testing.T) {
	svc, env, p := setupTestWBSService()
	env.seedTask(&model.Task{ProjectID: p.ID, Name: "旧任务"})

	file := wbsWorkbook(t,
		[]string{"1", "阶段"},
		[]string{"1.1", "子任务", "", "", "", "", "田中"},
	)

	_, err := svc.Import(context.Background(), p.ID, file)
	var rowsErr *WBSRowsError
	if !errors.As(err, &rowsErr) {
		t.Fatalf("期望 *WBSRowsError，实际: %v", err)
	}
	if !errors.Is(err, ErrWBSInvalid) {
		t.Error("WBSRowsError 应可匹配 ErrWBSInvalid")
	}
	if len(rowsErr.Rows) != 1 || rowsErr.Rows[0].Row != 3 {
		t.Errorf("应携带第 3 行错误: %+v", rowsErr.Rows)
	}
	if len(env.tasks.tasks) != 1 || env.locker.acquired != 0 {
		t.Error("存在错误时不应写库或加锁")
	}
}

func TestWBSService_Import_ProjectBusy(t *testing.T) {
	svc, env, p := setupTestWBSService()
	env.seedTask(&model.Task{ProjectID: p.ID, Name: "旧任务"})
	env.locker.held["project:1"] = true

	_, err := svc.Import(context.Background(), p.ID, wbsWorkbook(t, []string{"1", "阶段"}))
	if !errors.Is(err, ErrProjectBusy) {
		t.Errorf("期望 ErrProjectBusy，实际: %v", err)
	}
	if len(env.tasks.tasks) != 1 {
		t.Error("锁被占用时不应写入")
	}
}

func TestWBSService_Import_ProjectNotFound(t *testing.T) {
	svc, _, _ := setupTestWBSService()

	_, err := svc.Import(context.Background(), 99, wbsWorkbook(t, []string{"1", "阶段"}))
	if !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("期望 ErrProjectNotFound，实际: %v", err)
	}
}

// ── 解析辅助 ──

func TestParseWBSDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2025-04-07", "2025-04-07", true},
		{"2025/4/7", "2025-04-07", true},
		{"45754", "2025-04-07", true},
		{"4/7", "", false},
		{"-3", "", false},
	}
	for _, tt := range tests {
		got, ok := parseWBSDate(tt.in)
		if ok != tt.ok {
			t.Errorf("parseWBSDate(%q) ok=%v, 期望 %v", tt.in, ok, tt.ok)
			continue
		}
		if ok && got.Format("2006-01-02") != tt.want {
			t.Errorf("parseWBSDate(%q) = %s, 期望 %s", tt.in, got.Format("2006-01-02"), tt.want)
		}
	}
}

func TestParseWBSNumber(t *testing.T) {
	if s, ok := parseWBSNumber("1.10"); !ok || len(s) != 2 || s[1] != 10 {
		t.Errorf("1.10 应解析为 [1 10]，实际 %v", s)
	}
	for _, bad := range []string{"0", "1.", ".1", "1.0", "a"} {
		if _, ok := parseWBSNumber(bad); ok {
			t.Errorf("%q 应为非法编号", bad)
		}
	}
}
