package service

import (
	"context"
	"errors"
	"testing"

	"github.com/ragayama123/EVM-PM-Tool/internal/dto"
	"github.com/ragayama123/EVM-PM-Tool/internal/model"
)

func setupTestMemberService() (MemberService, *testEnv, *model.Project) {
	env := newTestEnv()
	p := env.seedProject("P")
	return NewMemberService(env.repo, env.hooks, env.logger), env, p
}

func TestMemberService_Create_NormalizesSkills(t *testing.T) {
	svc, _, p := setupTestMemberService()

	result, err := svc.Create(context.Background(), p.ID, &dto.CreateMemberRequest{
		Name:                  "田中",
		AvailableHoursPerWeek: 40,
		Skills:                []string{"pg", "UT", "pg"},
	})
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if len(result.Skills) != 2 || result.Skills[0] != "pg" || result.Skills[1] != "ut" {
		t.Errorf("技能应去重并归一为编码值，实际=%v", result.Skills)
	}
	if result.Utilization != 0 {
		t.Errorf("新成员负载率应为 0，实际=%v", result.Utilization)
	}
}

func TestMemberService_Create_InvalidSkill(t *testing.T) {
	svc, _, p := setupTestMemberService()

	_, err := svc.Create(context.Background(), p.ID, &dto.CreateMemberRequest{
		Name:                  "田中",
		AvailableHoursPerWeek: 40,
		Skills:                []string{"cooking"},
	})
	if !errors.Is(err, ErrInvalidSkill) {
		t.Errorf("期望 ErrInvalidSkill，实际: %v", err)
	}
}

func TestMemberService_List_Load(t *testing.T) {
	svc, env, p := setupTestMemberService()
	m := env.seedMember(p.ID, "田中", 40, "pg")
	env.seedMember(p.ID, "山田", 20)
	env.seedTask(&model.Task{ProjectID: p.ID, Name: "A", PlannedHours: 16, AssignedMemberID: int64Ptr(m.ID)})
	env.seedTask(&model.Task{ProjectID: p.ID, Name: "B", PlannedHours: 4, AssignedMemberID: int64Ptr(m.ID)})

	result, err := svc.List(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("期望 2 名成员，实际 %d", len(result))
	}
	if result[0].TaskCount != 2 || result[0].AssignedHours != 20 {
		t.Errorf("负载不符: %+v", result[0])
	}
	if result[0].Utilization != 50 {
		t.Errorf("期望Utilization=50，实际=%v", result[0].Utilization)
	}
	if result[1].TaskCount != 0 || result[1].Utilization != 0 {
		t.Errorf("无任务成员负载应为 0: %+v", result[1])
	}
}

func TestMemberService_List_ProjectNotFound(t *testing.T) {
	svc, _, _ := setupTestMemberService()

	if _, err := svc.List(context.Background(), 88); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("期望 ErrProjectNotFound，实际: %v", err)
	}
}

func TestMemberService_Update(t *testing.T) {
	svc, env, p := setupTestMemberService()
	m := env.seedMember(p.ID, "田中", 40)

	result, err := svc.Update(context.Background(), m.ID, &dto.UpdateMemberRequest{
		Name:                  "田中 太郎",
		AvailableHoursPerWeek: 32,
		Skills:                []string{"it"},
	})
	if err != nil {
		t.Fatalf("Update 应成功: %v", err)
	}
	if result.AvailableHoursPerWeek != 32 || result.Name != "田中 太郎" {
		t.Errorf("更新结果不符: %+v", result)
	}
	if len(env.cache.deleted) != 1 {
		t.Error("产能变化应清除分析缓存")
	}

	if _, err := svc.Update(context.Background(), 999, &dto.UpdateMemberRequest{Name: "x", AvailableHoursPerWeek: 1}); !errors.Is(err, ErrMemberNotFound) {
		t.Errorf("期望 ErrMemberNotFound，实际: %v", err)
	}
}

func TestMemberService_Delete_ClearsAssignments(t *testing.T) {
	svc, env, p := setupTestMemberService()
	m := env.seedMember(p.ID, "田中", 40)
	task := env.seedTask(&model.Task{ProjectID: p.ID, Name: "A", AssignedMemberID: int64Ptr(m.ID)})

	if err := svc.Delete(context.Background(), m.ID); err != nil {
		t.Fatalf("Delete 应成功: %v", err)
	}
	got := env.tasks.tasks[task.ID]
	if got == nil {
		t.Fatal("任务本身应保留")
	}
	if got.AssignedMemberID != nil {
		t.Error("任务负责人应被清除")
	}
	if got.Version != 2 {
		t.Errorf("被清除负责人的任务版本号应递增，实际=%d", got.Version)
	}

	if err := svc.Delete(context.Background(), m.ID); !errors.Is(err, ErrMemberNotFound) {
		t.Errorf("重复删除期望 ErrMemberNotFound，实际: %v", err)
	}
}
