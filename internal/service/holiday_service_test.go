package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/ragayama123/EVM-PM-Tool/internal/dto"
	"github.com/ragayama123/EVM-PM-Tool/internal/model"
	pkgerrors "github.com/ragayama123/EVM-PM-Tool/pkg/errors"
)

func setupTestHolidayService() (*holidayService, *testEnv, *model.Project) {
	env := newTestEnv()
	p := env.seedProject("P")
	svc := NewHolidayService(env.repo, env.hooks, jst, env.logger).(*holidayService)
	return svc, env, p
}

// ── Create / Delete ──

func TestHolidayService_Create_DefaultsToCustom(t *testing.T) {
	svc, _, p := setupTestHolidayService()

	result, err := svc.Create(context.Background(), p.ID, &dto.CreateHolidayRequest{Date: "2025-06-02", Name: "社内イベント"})
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if result.HolidayType != "custom" {
		t.Errorf("期望HolidayType=custom，实际=%s", result.HolidayType)
	}
}

func TestHolidayService_Create_Duplicate(t *testing.T) {
	svc, _, p := setupTestHolidayService()
	req := &dto.CreateHolidayRequest{Date: "2025-06-02", Name: "A"}
	_, _ = svc.Create(context.Background(), p.ID, req)

	_, err := svc.Create(context.Background(), p.ID, req)
	if !errors.Is(err, ErrHolidayExists) {
		t.Errorf("期望 ErrHolidayExists，实际: %v", err)
	}
}

func TestHolidayService_Create_InvalidDate(t *testing.T) {
	svc, _, p := setupTestHolidayService()

	_, err := svc.Create(context.Background(), p.ID, &dto.CreateHolidayRequest{Date: "2025-02-30", Name: "A"})
	if !errors.Is(err, ErrInvalidDate) {
		t.Errorf("期望 ErrInvalidDate，实际: %v", err)
	}
}

func TestHolidayService_DeleteByType(t *testing.T) {
	svc, _, p := setupTestHolidayService()
	_, _ = svc.Generate(context.Background(), p.ID, &dto.GenerateHolidaysRequest{
		StartDate: "2025-01-01", EndDate: "2025-01-31", IncludeWeekends: true, IncludeNationalHolidays: true,
	})

	deleted, err := svc.DeleteByType(context.Background(), p.ID, &dto.DeleteHolidaysRequest{HolidayType: "weekend"})
	if err != nil {
		t.Fatalf("DeleteByType 应成功: %v", err)
	}
	if deleted != 8 {
		t.Errorf("2025 年 1 月有 8 个周末日，实际删除 %d", deleted)
	}

	left, _ := svc.List(context.Background(), p.ID, &dto.HolidayListRequest{})
	if len(left) != 2 {
		t.Errorf("应剩余 2 个法定节假日，实际 %d", len(left))
	}
}

func TestHolidayService_Delete_NotFound(t *testing.T) {
	svc, _, _ := setupTestHolidayService()

	if err := svc.Delete(context.Background(), 3); !errors.Is(err, ErrHolidayNotFound) {
		t.Errorf("期望 ErrHolidayNotFound，实际: %v", err)
	}
}

// ── Generate ──

func TestHolidayService_Generate_WeekendsAndNational(t *testing.T) {
	svc, env, p := setupTestHolidayService()

	result, err := svc.Generate(context.Background(), p.ID, &dto.GenerateHolidaysRequest{
		StartDate:               "2025-01-01",
		EndDate:                 "2025-01-13",
		IncludeWeekends:         true,
		IncludeNationalHolidays: true,
	})
	if err != nil {
		t.Fatalf("Generate 应成功: %v", err)
	}
	// 元日、1/4、1/5、1/11、1/12、成人の日
	if result.Created != 6 {
		t.Errorf("期望Created=6，实际=%d", result.Created)
	}
	if result.Holidays[0].Date != "2025-01-01" || result.Holidays[0].HolidayType != "national" {
		t.Errorf("首条应为元日(national)，实际: %+v", result.Holidays[0])
	}
	if len(env.cache.deleted) == 0 {
		t.Error("写入非工作日后应清除分析缓存")
	}
}

func TestHolidayService_Generate_SkipAndOverwrite(t *testing.T) {
	svc, env, p := setupTestHolidayService()
	_, _ = svc.Create(context.Background(), p.ID, &dto.CreateHolidayRequest{Date: "2025-01-04", Name: "棚卸"})

	req := &dto.GenerateHolidaysRequest{StartDate: "2025-01-04", EndDate: "2025-01-05", IncludeWeekends: true}
	result, err := svc.Generate(context.Background(), p.ID, req)
	if err != nil {
		t.Fatalf("Generate 应成功: %v", err)
	}
	if result.Created != 1 || result.Skipped != 1 || result.Updated != 0 {
		t.Errorf("不覆盖时应跳过已有日期: %+v", result)
	}

	req.Overwrite = true
	result, err = svc.Generate(context.Background(), p.ID, req)
	if err != nil {
		t.Fatalf("Generate 应成功: %v", err)
	}
	if result.Updated != 2 || result.Created != 0 {
		t.Errorf("覆盖时应更新已有日期: %+v", result)
	}
	h := env.holidays.find(p.ID, *mustDate("2025-01-04"))
	if h == nil || h.HolidayType != "weekend" || h.Name != "土曜日" {
		t.Errorf("覆盖后名称与类型应更新，实际: %+v", h)
	}
}

func TestHolidayService_Generate_HolidaysListsWrittenRows(t *testing.T) {
	svc, _, p := setupTestHolidayService()

	result, err := svc.Generate(context.Background(), p.ID, &dto.GenerateHolidaysRequest{
		StartDate: "2024-06-01", EndDate: "2024-06-30", IncludeWeekends: true,
	})
	if err != nil {
		t.Fatalf("Generate 应成功: %v", err)
	}
	want := []string{
		"2024-06-01", "2024-06-02", "2024-06-08", "2024-06-09", "2024-06-15",
		"2024-06-16", "2024-06-22", "2024-06-23", "2024-06-29", "2024-06-30",
	}
	if len(result.Holidays) != len(want) || result.Created != len(want) {
		t.Fatalf("2024 年 6 月应生成 %d 个周末日，实际 created=%d holidays=%d", len(want), result.Created, len(result.Holidays))
	}
	for i, h := range result.Holidays {
		if h.Date != want[i] || h.HolidayType != "weekend" || h.ProjectID != p.ID {
			t.Errorf("第 %d 条期望 %s(weekend)，实际: %+v", i, want[i], h)
		}
	}

	// 已有日期被跳过时不出现在 holidays 中
	result, err = svc.Generate(context.Background(), p.ID, &dto.GenerateHolidaysRequest{
		StartDate: "2024-06-29", EndDate: "2024-07-07", IncludeWeekends: true,
	})
	if err != nil {
		t.Fatalf("Generate 应成功: %v", err)
	}
	if result.Skipped != 2 || len(result.Holidays) != 2 {
		t.Fatalf("期望跳过 2 条并写入 2 条，实际: %+v", result)
	}
	if result.Holidays[0].Date != "2024-07-06" || result.Holidays[1].Date != "2024-07-07" {
		t.Errorf("holidays 应只含新写入的 7/6、7/7，实际: %+v", result.Holidays)
	}
}

func TestHolidayService_Generate_InvertedRangeIsEmpty(t *testing.T) {
	svc, _, p := setupTestHolidayService()

	result, err := svc.Generate(context.Background(), p.ID, &dto.GenerateHolidaysRequest{
		StartDate: "2025-02-01", EndDate: "2025-01-01", IncludeWeekends: true,
	})
	if err != nil {
		t.Fatalf("倒置区间不应报错: %v", err)
	}
	if result.Created != 0 || len(result.Holidays) != 0 {
		t.Errorf("倒置区间应返回空结果: %+v", result)
	}
}

func TestHolidayService_Generate_RangeTooLong(t *testing.T) {
	svc, _, p := setupTestHolidayService()

	_, err := svc.Generate(context.Background(), p.ID, &dto.GenerateHolidaysRequest{
		StartDate: "2025-01-01", EndDate: "2029-01-01", IncludeWeekends: true,
	})
	if !errors.Is(err, ErrRangeTooLong) {
		t.Errorf("期望 ErrRangeTooLong，实际: %v", err)
	}
	if !pkgerrors.IsValidation(err) {
		t.Error("区间过长应属于校验错误")
	}
}

// ── Import ──

func TestHolidayService_Import_FirstOccurrenceWins(t *testing.T) {
	svc, _, p := setupTestHolidayService()

	result, err := svc.Import(context.Background(), p.ID, &dto.ImportHolidaysRequest{
		Holidays: []dto.CreateHolidayRequest{
			{Date: "2025-08-13", Name: "お盆", HolidayType: "company"},
			{Date: "2025-08-13", Name: "重複"},
			{Date: "2025-08-14", Name: "お盆"},
		},
	})
	if err != nil {
		t.Fatalf("Import 应成功: %v", err)
	}
	if result.Created != 2 {
		t.Fatalf("期望Created=2，实际=%d", result.Created)
	}
	if result.Holidays[0].Name != "お盆" || result.Holidays[0].HolidayType != "company" {
		t.Errorf("同一日期应取第一条: %+v", result.Holidays[0])
	}
	if result.Holidays[1].HolidayType != "custom" {
		t.Errorf("未指定类型应为 custom，实际=%s", result.Holidays[1].HolidayType)
	}
}

func TestHolidayService_ImportICS_File(t *testing.T) {
	svc, _, p := setupTestHolidayService()
	content := icsCalendar("UID:1\nDTSTART;VALUE=DATE:20250812\nDTEND;VALUE=DATE:20250815\nSUMMARY:夏季休暇")

	result, err := svc.ImportICS(context.Background(), p.ID, &dto.ImportICSRequest{
		HolidayType: "company",
		StartDate:   "2025-01-01",
		EndDate:     "2025-12-31",
	}, strings.NewReader(content))
	if err != nil {
		t.Fatalf("ImportICS 应成功: %v", err)
	}
	if result.Created != 3 {
		t.Errorf("期望Created=3，实际=%d", result.Created)
	}
	for _, h := range result.Holidays {
		if h.HolidayType != "company" {
			t.Errorf("应使用请求指定的类型，实际=%s", h.HolidayType)
		}
	}
}

func TestHolidayService_ImportICS_URL(t *testing.T) {
	svc, _, p := setupTestHolidayService()
	content := icsCalendar("UID:1\nDTSTART;VALUE=DATE:20250401\nSUMMARY:創立記念日")
	var fetched string
	svc.fetchICS = func(url string) (io.ReadCloser, error) {
		fetched = url
		return io.NopCloser(strings.NewReader(content)), nil
	}

	result, err := svc.ImportICS(context.Background(), p.ID, &dto.ImportICSRequest{
		URL:       "https://calendar.example.com/company.ics",
		StartDate: "2025-01-01",
		EndDate:   "2025-12-31",
	}, nil)
	if err != nil {
		t.Fatalf("ImportICS 应成功: %v", err)
	}
	if fetched != "https://calendar.example.com/company.ics" {
		t.Errorf("应从请求 URL 拉取，实际=%s", fetched)
	}
	if result.Created != 1 || result.Holidays[0].HolidayType != "custom" {
		t.Errorf("导入结果不符: %+v", result)
	}
}

func TestHolidayService_ImportICS_Errors(t *testing.T) {
	svc, _, p := setupTestHolidayService()
	svc.fetchICS = func(string) (io.ReadCloser, error) { return nil, errors.New("connection refused") }

	if _, err := svc.ImportICS(context.Background(), p.ID, &dto.ImportICSRequest{}, nil); !errors.Is(err, ErrICSMissingSource) {
		t.Errorf("未提供来源期望 ErrICSMissingSource，实际: %v", err)
	}
	if _, err := svc.ImportICS(context.Background(), p.ID, &dto.ImportICSRequest{URL: "https://x.example/a.ics"}, nil); !errors.Is(err, ErrICSFetch) {
		t.Errorf("拉取失败期望 ErrICSFetch，实际: %v", err)
	}
	empty := icsCalendar()
	if _, err := svc.ImportICS(context.Background(), p.ID, &dto.ImportICSRequest{}, strings.NewReader(empty)); !errors.Is(err, ErrICSNoEvents) {
		t.Errorf("无事件期望 ErrICSNoEvents，实际: %v", err)
	}
	if _, err := svc.ImportICS(context.Background(), p.ID, &dto.ImportICSRequest{StartDate: "2025-01-01"}, strings.NewReader(empty)); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("只给出 start 期望 ErrInvalidRange，实际: %v", err)
	}
}

func TestHolidayService_ImportCSV(t *testing.T) {
	svc, env, p := setupTestHolidayService()
	_, _ = svc.Create(context.Background(), p.ID, &dto.CreateHolidayRequest{Date: "2025-05-01", Name: "旧名称"})
	content := "date,name,type\n2025-05-01,創立記念日,company\n2025-05-02,振替休業,\n2025-05-03,,\n"

	result, err := svc.ImportCSV(context.Background(), p.ID, &dto.ImportCSVRequest{}, strings.NewReader(content))
	if err != nil {
		t.Fatalf("ImportCSV 应成功: %v", err)
	}
	if result.Created != 1 || result.Skipped != 1 || result.Updated != 0 {
		t.Errorf("期望新增 1 跳过 1，实际: %+v", result)
	}
	if len(result.Errors) != 1 || result.Errors[0] != "第 4 行: 名称不能为空" {
		t.Errorf("行级错误应返回，实际: %v", result.Errors)
	}
	if h := env.holidays.find(p.ID, *mustDate("2025-05-01")); h == nil || h.Name != "旧名称" {
		t.Errorf("未覆盖时已有记录应保留: %+v", h)
	}

	result, err = svc.ImportCSV(context.Background(), p.ID, &dto.ImportCSVRequest{Overwrite: true}, strings.NewReader(content))
	if err != nil {
		t.Fatalf("ImportCSV 应成功: %v", err)
	}
	if result.Updated != 2 || result.Created != 0 {
		t.Errorf("覆盖模式期望更新 2，实际: %+v", result)
	}
	if h := env.holidays.find(p.ID, *mustDate("2025-05-01")); h == nil || h.Name != "創立記念日" || h.HolidayType != "company" {
		t.Errorf("覆盖后应为新名称与类型: %+v", h)
	}
}

func TestHolidayService_ImportCSV_Errors(t *testing.T) {
	svc, env, p := setupTestHolidayService()

	if _, err := svc.ImportCSV(context.Background(), p.ID, &dto.ImportCSVRequest{}, strings.NewReader("day,title\n")); !errors.Is(err, ErrCSVHeader) {
		t.Errorf("缺少列期望 ErrCSVHeader，实际: %v", err)
	}
	if _, err := svc.ImportCSV(context.Background(), p.ID, &dto.ImportCSVRequest{}, strings.NewReader("date,name\n")); !errors.Is(err, ErrCSVNoRows) {
		t.Errorf("无数据行期望 ErrCSVNoRows，实际: %v", err)
	}
	if _, err := svc.ImportCSV(context.Background(), 99, &dto.ImportCSVRequest{}, strings.NewReader("date,name\n2025-01-01,元日\n")); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("项目不存在期望 ErrProjectNotFound，实际: %v", err)
	}
	if len(env.holidays.holidays) != 0 {
		t.Error("失败时不应写入")
	}
}

// ── WorkingDays / Dates ──

func TestHolidayService_WorkingDays(t *testing.T) {
	svc, _, p := setupTestHolidayService()
	_, _ = svc.Generate(context.Background(), p.ID, &dto.GenerateHolidaysRequest{
		StartDate: "2025-01-01", EndDate: "2025-01-31", IncludeWeekends: true,
	})

	result, err := svc.WorkingDays(context.Background(), p.ID, &dto.WorkingDaysRequest{StartDate: "2025-01-06", EndDate: "2025-01-12"})
	if err != nil {
		t.Fatalf("WorkingDays 应成功: %v", err)
	}
	if result.TotalDays != 7 || result.HolidayCount != 2 || result.WorkingDays != 5 {
		t.Errorf("统计不符: %+v", result)
	}

	inverted, err := svc.WorkingDays(context.Background(), p.ID, &dto.WorkingDaysRequest{StartDate: "2025-01-12", EndDate: "2025-01-06"})
	if err != nil {
		t.Fatalf("倒置区间不应报错: %v", err)
	}
	if inverted.TotalDays != 0 || inverted.WorkingDays != 0 {
		t.Errorf("倒置区间应全部为 0: %+v", inverted)
	}
}

func TestHolidayService_Dates(t *testing.T) {
	svc, _, p := setupTestHolidayService()
	_, _ = svc.Create(context.Background(), p.ID, &dto.CreateHolidayRequest{Date: "2025-03-02", Name: "B"})
	_, _ = svc.Create(context.Background(), p.ID, &dto.CreateHolidayRequest{Date: "2025-03-01", Name: "A"})

	dates, err := svc.Dates(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("Dates 应成功: %v", err)
	}
	if len(dates) != 2 || dates[0] != "2025-03-01" || dates[1] != "2025-03-02" {
		t.Errorf("应按日期升序返回，实际: %v", dates)
	}
}

func TestHolidayService_ICSWindowDefault(t *testing.T) {
	svc, _, _ := setupTestHolidayService()

	start, end, err := svc.icsWindow(&dto.ImportICSRequest{})
	if err != nil {
		t.Fatalf("icsWindow 应成功: %v", err)
	}
	now := time.Now().In(jst)
	if start.Year() != now.Year() || start.Month() != time.January || start.Day() != 1 {
		t.Errorf("默认起点应为今年 1 月 1 日，实际=%v", start)
	}
	if end.Year() != now.Year()+2 || end.Month() != time.December || end.Day() != 31 {
		t.Errorf("默认终点应为两年后 12 月 31 日，实际=%v", end)
	}
}
