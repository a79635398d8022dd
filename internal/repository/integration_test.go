//go:build integration

package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ragayama123/EVM-PM-Tool/internal/model"
	"github.com/ragayama123/EVM-PM-Tool/internal/repository"
	"github.com/ragayama123/EVM-PM-Tool/pkg/database"
	pkgerrors "github.com/ragayama123/EVM-PM-Tool/pkg/errors"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

var testDB *gorm.DB

func TestMain(m *testing.M) {
	ctx := context.Background()

	dsn := os.Getenv("TEST_DATABASE_DSN")
	var ctr *tcpostgres.PostgresContainer
	if dsn == "" {
		var err error
		ctr, err = tcpostgres.Run(ctx, "postgres:16-alpine",
			tcpostgres.WithDatabase("evm_pm_test"),
			tcpostgres.WithUsername("evm"),
			tcpostgres.WithPassword("evm"),
			tcpostgres.BasicWaitStrategies(),
		)
		if err != nil {
			fmt.Fprintf(os.Stderr, "启动测试数据库容器失败: %v\n", err)
			os.Exit(1)
		}
		dsn, err = ctr.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			fmt.Fprintf(os.Stderr, "获取容器连接串失败: %v\n", err)
			_ = testcontainers.TerminateContainer(ctr)
			os.Exit(1)
		}
	}

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		os.Exit(1)
	}

	sqlDB, err := testDB.DB()
	if err == nil {
		err = database.RunMigrations(sqlDB, zap.NewNop())
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "执行迁移失败: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	if ctr != nil {
		_ = testcontainers.TerminateContainer(ctr)
	}
	os.Exit(code)
}

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

// setupProject 创建项目、两名成员、一个阶段（含子任务与里程碑）并返回清理函数
func setupProject(t *testing.T) (repo *repository.Repository, project *model.Project, phase *model.Task, child *model.Task, member *model.Member) {
	t.Helper()
	ctx := context.Background()
	repo = repository.NewRepository(testDB)

	project = &model.Project{Name: fmt.Sprintf("测试项目-%d", time.Now().UnixNano()), Status: "planning"}
	if err := repo.Project.Create(ctx, project); err != nil {
		t.Fatalf("创建项目失败: %v", err)
	}

	member = &model.Member{ProjectID: project.ID, Name: "佐藤", AvailableHoursPerWeek: 40, Skills: model.StringArray{"pg", "ut"}}
	if err := repo.Member.Create(ctx, member); err != nil {
		t.Fatalf("创建成员失败: %v", err)
	}

	pg := "pg"
	phase = &model.Task{
		ProjectID:        project.ID,
		Name:             "编码",
		TaskType:         &pg,
		PlannedHours:     40,
		AssignedMemberID: &member.ID,
		PlannedStartDate: day(2024, 6, 3),
		PlannedEndDate:   day(2024, 6, 7),
	}
	if err := repo.Task.Create(ctx, phase); err != nil {
		t.Fatalf("创建阶段失败: %v", err)
	}
	child = &model.Task{
		ProjectID:        project.ID,
		ParentID:         &phase.ID,
		Name:             "画面实装",
		PlannedHours:     16,
		AssignedMemberID: &member.ID,
		PlannedStartDate: day(2024, 6, 3),
		PlannedEndDate:   day(2024, 6, 4),
	}
	if err := repo.Task.Create(ctx, child); err != nil {
		t.Fatalf("创建子任务失败: %v", err)
	}

	t.Cleanup(func() {
		_ = repo.Project.Delete(context.Background(), project.ID)
	})
	return repo, project, phase, child, member
}

// ═══════════════════════════════════════════════════════════
// Test: Task
// ═══════════════════════════════════════════════════════════

func TestTask_ListByProjectOrder(t *testing.T) {
	repo, project, phase, child, _ := setupProject(t)
	ctx := context.Background()

	unscheduled := &model.Task{ProjectID: project.ID, Name: "未排期"}
	if err := repo.Task.Create(ctx, unscheduled); err != nil {
		t.Fatalf("创建任务失败: %v", err)
	}

	tasks, err := repo.Task.ListByProject(ctx, project.ID)
	if err != nil {
		t.Fatalf("ListByProject 失败: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("应有 3 个任务, got %d", len(tasks))
	}
	if tasks[0].ID != phase.ID || tasks[1].ID != child.ID || tasks[2].ID != unscheduled.ID {
		t.Errorf("排序不符: %d %d %d", tasks[0].ID, tasks[1].ID, tasks[2].ID)
	}
	if tasks[0].AssignedMember == nil || tasks[0].AssignedMember.Name != "佐藤" {
		t.Error("应预加载负责人")
	}
	if got := tasks[0].PlannedStartDate.Format("2006-01-02"); got != "2024-06-03" {
		t.Errorf("date 列读回不符: %s", got)
	}
}

func TestTask_UpdateOptimisticLock(t *testing.T) {
	repo, _, phase, _, _ := setupProject(t)
	ctx := context.Background()

	stale := *phase
	phase.Progress = 50
	if err := repo.Task.Update(ctx, phase); err != nil {
		t.Fatalf("首次更新应成功: %v", err)
	}
	if phase.Version != 2 {
		t.Errorf("版本号应递增为 2, got %d", phase.Version)
	}

	stale.Progress = 80
	if err := repo.Task.Update(ctx, &stale); !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		t.Fatalf("旧版本更新应返回 ErrOptimisticLock, got %v", err)
	}
}

func TestTask_ApplyScheduleUpdatesRollback(t *testing.T) {
	repo, _, phase, child, member := setupProject(t)
	ctx := context.Background()

	err := repo.Task.ApplyScheduleUpdates(ctx, []repository.TaskScheduleUpdate{
		{ID: phase.ID, Version: phase.Version, PlannedStartDate: day(2024, 6, 10), PlannedEndDate: day(2024, 6, 14)},
		{ID: child.ID, Version: child.Version + 5, PlannedStartDate: day(2024, 6, 10), PlannedEndDate: day(2024, 6, 11)},
	})
	if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		t.Fatalf("版本不匹配应返回 ErrOptimisticLock, got %v", err)
	}

	got, _ := repo.Task.GetByID(ctx, phase.ID)
	if got.PlannedStartDate.Format("2006-01-02") != "2024-06-03" || got.Version != phase.Version {
		t.Error("事务应整体回滚")
	}

	err = repo.Task.ApplyScheduleUpdates(ctx, []repository.TaskScheduleUpdate{
		{ID: phase.ID, Version: phase.Version, PlannedStartDate: day(2024, 6, 10), PlannedEndDate: day(2024, 6, 14), SetMember: true, AssignedMemberID: nil},
		{ID: child.ID, Version: child.Version, PlannedStartDate: day(2024, 6, 10), PlannedEndDate: day(2024, 6, 11)},
	})
	if err != nil {
		t.Fatalf("ApplyScheduleUpdates 应成功: %v", err)
	}
	got, _ = repo.Task.GetByID(ctx, phase.ID)
	if got.PlannedStartDate.Format("2006-01-02") != "2024-06-10" {
		t.Errorf("阶段开始日应更新, got %s", got.PlannedStartDate.Format("2006-01-02"))
	}
	if got.AssignedMemberID != nil {
		t.Error("SetMember 为 true 时应写入空负责人")
	}
	gotChild, _ := repo.Task.GetByID(ctx, child.ID)
	if gotChild.AssignedMemberID == nil || *gotChild.AssignedMemberID != member.ID {
		t.Error("SetMember 为 false 时不应修改负责人")
	}
}

func TestTask_DeleteCascadesChildren(t *testing.T) {
	repo, project, phase, child, _ := setupProject(t)
	ctx := context.Background()

	follower := &model.Task{ProjectID: project.ID, Name: "后续", PredecessorID: &child.ID}
	if err := repo.Task.Create(ctx, follower); err != nil {
		t.Fatalf("创建任务失败: %v", err)
	}

	if err := repo.Task.Delete(ctx, phase.ID); err != nil {
		t.Fatalf("Delete 失败: %v", err)
	}
	if _, err := repo.Task.GetByID(ctx, child.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Error("子任务应随阶段删除")
	}
	got, err := repo.Task.GetByID(ctx, follower.ID)
	if err != nil {
		t.Fatalf("后续任务不应被删除: %v", err)
	}
	if got.PredecessorID != nil {
		t.Error("指向已删除任务的前置引用应被清除")
	}

	if err := repo.Task.Delete(ctx, phase.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("重复删除应返回 ErrRecordNotFound, got %v", err)
	}
}

func TestTask_ReplaceAll(t *testing.T) {
	repo, project, phase, _, member := setupProject(t)
	ctx := context.Background()

	tasks := []model.Task{
		{Name: "設計", PlannedHours: 16, AssignedMemberID: &member.ID},
		{Name: "画面設計", PlannedHours: 8},
		{Name: "リリース", IsMilestone: true},
	}
	deleted, err := repo.Task.ReplaceAll(ctx, project.ID, tasks, []int{-1, 0, -1})
	if err != nil {
		t.Fatalf("ReplaceAll 失败: %v", err)
	}
	if deleted != 2 {
		t.Errorf("应删除原有 2 个任务, got %d", deleted)
	}
	if _, err := repo.Task.GetByID(ctx, phase.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Error("原有阶段应被删除")
	}

	got, err := repo.Task.ListByProject(ctx, project.ID)
	if err != nil || len(got) != 3 {
		t.Fatalf("应有 3 个新任务, got %d (%v)", len(got), err)
	}
	if tasks[1].ParentID == nil || *tasks[1].ParentID != tasks[0].ID {
		t.Errorf("子任务的 ParentID 应回写为父任务 ID, got %v", tasks[1].ParentID)
	}
	child, _ := repo.Task.GetByID(ctx, tasks[1].ID)
	if child.ParentID == nil || *child.ParentID != tasks[0].ID || child.Version != 1 {
		t.Errorf("子任务入库不符: %+v", child)
	}

	// 任一任务写入失败时整体回滚
	bad := []model.Task{{Name: "新阶段"}, {Name: "負の工数", PlannedHours: -1}}
	if _, err := repo.Task.ReplaceAll(ctx, project.ID, bad, []int{-1, -1}); err == nil {
		t.Fatal("违反 CHECK 约束时应返回错误")
	}
	after, _ := repo.Task.ListByProject(ctx, project.ID)
	if len(after) != 3 {
		t.Errorf("回滚后应保留 3 个任务, got %d", len(after))
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Member
// ═══════════════════════════════════════════════════════════

func TestMember_DeleteClearsAssignments(t *testing.T) {
	repo, project, phase, _, member := setupProject(t)
	ctx := context.Background()

	cleared, err := repo.Member.Delete(ctx, member.ID)
	if err != nil {
		t.Fatalf("Delete 失败: %v", err)
	}
	if cleared != 2 {
		t.Errorf("应清除 2 个任务的负责人, got %d", cleared)
	}

	got, _ := repo.Task.GetByID(ctx, phase.ID)
	if got.AssignedMemberID != nil {
		t.Error("任务负责人应被清除")
	}
	if got.Version != phase.Version+1 {
		t.Errorf("被清除负责人的任务版本号应递增, got %d", got.Version)
	}

	members, _ := repo.Member.ListByProject(ctx, project.ID)
	if len(members) != 0 {
		t.Errorf("成员应被删除, got %d", len(members))
	}
}

func TestMember_SkillsRoundTrip(t *testing.T) {
	repo, _, _, _, member := setupProject(t)
	ctx := context.Background()

	member.Skills = model.StringArray{"it", "st", "release"}
	if err := repo.Member.Update(ctx, member); err != nil {
		t.Fatalf("Update 失败: %v", err)
	}
	got, err := repo.Member.GetByID(ctx, member.ID)
	if err != nil {
		t.Fatalf("GetByID 失败: %v", err)
	}
	if len(got.Skills) != 3 || got.Skills[2] != "release" {
		t.Errorf("技能读回不符: %v", got.Skills)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Holiday
// ═══════════════════════════════════════════════════════════

func TestHoliday_SaveBatchAndFilter(t *testing.T) {
	repo, project, _, _, _ := setupProject(t)
	ctx := context.Background()

	create := []model.Holiday{
		{ProjectID: project.ID, Date: *day(2024, 6, 1), Name: "土曜日", HolidayType: "weekend"},
		{ProjectID: project.ID, Date: *day(2024, 6, 2), Name: "日曜日", HolidayType: "weekend"},
		{ProjectID: project.ID, Date: *day(2024, 6, 10), Name: "創立記念日", HolidayType: "company"},
	}
	if err := repo.Holiday.SaveBatch(ctx, create, nil); err != nil {
		t.Fatalf("SaveBatch 失败: %v", err)
	}

	dup := &model.Holiday{ProjectID: project.ID, Date: *day(2024, 6, 1), Name: "重复", HolidayType: "custom"}
	if err := repo.Holiday.Create(ctx, dup); !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Errorf("同日重复应返回 ErrDuplicatedKey, got %v", err)
	}

	replace := []model.Holiday{{ProjectID: project.ID, Date: *day(2024, 6, 10), Name: "夏季休暇", HolidayType: "custom"}}
	if err := repo.Holiday.SaveBatch(ctx, nil, replace); err != nil {
		t.Fatalf("覆盖失败: %v", err)
	}

	weekends, _ := repo.Holiday.ListByProject(ctx, project.ID, repository.HolidayFilter{HolidayType: "weekend"})
	if len(weekends) != 2 {
		t.Errorf("周末应有 2 条, got %d", len(weekends))
	}
	ranged, _ := repo.Holiday.ListByProject(ctx, project.ID, repository.HolidayFilter{Start: day(2024, 6, 2), End: day(2024, 6, 30)})
	if len(ranged) != 2 || ranged[1].Name != "夏季休暇" || ranged[1].HolidayType != "custom" {
		t.Errorf("区间查询或覆盖结果不符: %+v", ranged)
	}

	n, err := repo.Holiday.DeleteByType(ctx, project.ID, "weekend")
	if err != nil || n != 2 {
		t.Errorf("按类型删除应删除 2 条, got %d %v", n, err)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Project / Snapshot
// ═══════════════════════════════════════════════════════════

func TestSnapshot_ListOrder(t *testing.T) {
	repo, project, _, _, _ := setupProject(t)
	ctx := context.Background()

	for _, d := range []*time.Time{day(2024, 6, 20), day(2024, 6, 10), day(2024, 6, 15)} {
		s := &model.EVMSnapshot{ProjectID: project.ID, SnapshotDate: *d, PV: 10, EV: 8, SPI: 0.8, CPI: 1}
		if err := repo.EVMSnapshot.Create(ctx, s); err != nil {
			t.Fatalf("创建快照失败: %v", err)
		}
	}

	list, total, err := repo.EVMSnapshot.ListByProject(ctx, project.ID, day(2024, 6, 12), nil, 0, 10)
	if err != nil {
		t.Fatalf("ListByProject 失败: %v", err)
	}
	if total != 2 || len(list) != 2 {
		t.Fatalf("应返回 2 条, got total=%d len=%d", total, len(list))
	}
	if !list[0].SnapshotDate.Before(list[1].SnapshotDate) {
		t.Error("快照应按日期升序")
	}
}

func TestProject_DeleteCascades(t *testing.T) {
	repo, project, phase, _, member := setupProject(t)
	ctx := context.Background()

	if err := repo.Project.Delete(ctx, project.ID); err != nil {
		t.Fatalf("Delete 失败: %v", err)
	}
	if _, err := repo.Task.GetByID(ctx, phase.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Error("任务应随项目删除")
	}
	if _, err := repo.Member.GetByID(ctx, member.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Error("成员应随项目删除")
	}
	if err := repo.Project.Delete(ctx, project.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("重复删除应返回 ErrRecordNotFound, got %v", err)
	}
}

func TestProject_UpdateStatus(t *testing.T) {
	repo, project, _, _, _ := setupProject(t)
	ctx := context.Background()

	if err := repo.Project.UpdateStatus(ctx, project.ID, "in_progress"); err != nil {
		t.Fatalf("UpdateStatus 失败: %v", err)
	}
	got, _ := repo.Project.GetByID(ctx, project.ID)
	if got.Status != "in_progress" || got.Version != project.Version {
		t.Errorf("状态应更新且版本号不变, got %s v%d", got.Status, got.Version)
	}
}
