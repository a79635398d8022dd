package service

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ragayama123/EVM-PM-Tool/internal/model"
	"github.com/ragayama123/EVM-PM-Tool/internal/repository"
	pkgerrors "github.com/ragayama123/EVM-PM-Tool/pkg/errors"
	"github.com/ragayama123/EVM-PM-Tool/pkg/redis"
)

// ── Mock ProjectRepository ──

type mockProjectRepo struct {
	projects map[int64]*model.Project
	nextID   int64
}

func newMockProjectRepo() *mockProjectRepo {
	return &mockProjectRepo{projects: make(map[int64]*model.Project)}
}

func (m *mockProjectRepo) Create(_ context.Context, project *model.Project) error {
	m.nextID++
	project.ID = m.nextID
	if project.Version == 0 {
		project.Version = 1
	}
	cp := *project
	m.projects[project.ID] = &cp
	return nil
}

func (m *mockProjectRepo) GetByID(_ context.Context, id int64) (*model.Project, error) {
	if p, ok := m.projects[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockProjectRepo) List(_ context.Context, offset, limit int) ([]model.Project, int64, error) {
	var all []model.Project
	for _, p := range m.projects {
		all = append(all, *p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockProjectRepo) Update(_ context.Context, project *model.Project) error {
	p, ok := m.projects[project.ID]
	if !ok || p.Version != project.Version {
		return pkgerrors.ErrOptimisticLock
	}
	project.Version++
	cp := *project
	m.projects[project.ID] = &cp
	return nil
}

func (m *mockProjectRepo) UpdateStatus(_ context.Context, id int64, status string) error {
	p, ok := m.projects[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.Status = status
	return nil
}

func (m *mockProjectRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.projects[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.projects, id)
	return nil
}

// ── Mock TaskRepository ──

type mockTaskRepo struct {
	tasks    map[int64]*model.Task
	members  *mockMemberRepo
	nextID   int64
	applyErr error // 非 nil 时 ApplyScheduleUpdates 直接返回该错误
	applied  [][]repository.TaskScheduleUpdate
}

func newMockTaskRepo() *mockTaskRepo {
	return &mockTaskRepo{tasks: make(map[int64]*model.Task)}
}

// withMember 模拟 Preload("AssignedMember")
func (m *mockTaskRepo) withMember(t model.Task) model.Task {
	t.AssignedMember = nil
	if t.AssignedMemberID != nil && m.members != nil {
		if mem, ok := m.members.members[*t.AssignedMemberID]; ok {
			cp := *mem
			t.AssignedMember = &cp
		}
	}
	return t
}

func (m *mockTaskRepo) Create(_ context.Context, task *model.Task) error {
	m.nextID++
	task.ID = m.nextID
	if task.Version == 0 {
		task.Version = 1
	}
	cp := *task
	cp.AssignedMember = nil
	m.tasks[task.ID] = &cp
	return nil
}

func (m *mockTaskRepo) GetByID(_ context.Context, id int64) (*model.Task, error) {
	if t, ok := m.tasks[id]; ok {
		cp := m.withMember(*t)
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTaskRepo) ListByProject(_ context.Context, projectID int64) ([]model.Task, error) {
	var result []model.Task
	for _, t := range m.tasks {
		if t.ProjectID == projectID {
			result = append(result, m.withMember(*t))
		}
	}
	sortTasks(result)
	return result, nil
}

func (m *mockTaskRepo) ListByIDs(_ context.Context, ids []int64) ([]model.Task, error) {
	var result []model.Task
	for _, id := range ids {
		if t, ok := m.tasks[id]; ok {
			result = append(result, m.withMember(*t))
		}
	}
	sortTasks(result)
	return result, nil
}

// sortTasks planned_start_date ASC NULLS LAST, id ASC
func sortTasks(tasks []model.Task) {
	sort.Slice(tasks, func(i, j int) bool {
		a, b := tasks[i].PlannedStartDate, tasks[j].PlannedStartDate
		switch {
		case a != nil && b != nil && !a.Equal(*b):
			return a.Before(*b)
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		}
		return tasks[i].ID < tasks[j].ID
	})
}

func (m *mockTaskRepo) Update(_ context.Context, task *model.Task) error {
	t, ok := m.tasks[task.ID]
	if !ok || t.Version != task.Version {
		return pkgerrors.ErrOptimisticLock
	}
	task.Version++
	cp := *task
	cp.AssignedMember = nil
	m.tasks[task.ID] = &cp
	return nil
}

func (m *mockTaskRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.tasks[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	removed := map[int64]bool{id: true}
	for tid, t := range m.tasks {
		if t.ParentID != nil && *t.ParentID == id {
			removed[tid] = true
		}
	}
	for tid := range removed {
		delete(m.tasks, tid)
	}
	for _, t := range m.tasks {
		if t.PredecessorID != nil && removed[*t.PredecessorID] {
			t.PredecessorID = nil
		}
	}
	return nil
}

func (m *mockTaskRepo) ApplyScheduleUpdates(_ context.Context, updates []repository.TaskScheduleUpdate) error {
	if m.applyErr != nil {
		return m.applyErr
	}
	for _, u := range updates {
		t, ok := m.tasks[u.ID]
		if !ok || t.Version != u.Version {
			return pkgerrors.ErrOptimisticLock
		}
	}
	for _, u := range updates {
		t := m.tasks[u.ID]
		t.PlannedStartDate = u.PlannedStartDate
		t.PlannedEndDate = u.PlannedEndDate
		if u.SetMember {
			t.AssignedMemberID = u.AssignedMemberID
		}
		t.Version = u.Version + 1
	}
	m.applied = append(m.applied, updates)
	return nil
}

func (m *mockTaskRepo) ReplaceAll(_ context.Context, projectID int64, tasks []model.Task, parents []int) (int64, error) {
	if m.applyErr != nil {
		return 0, m.applyErr
	}
	var deleted int64
	for id, t := range m.tasks {
		if t.ProjectID == projectID {
			delete(m.tasks, id)
			deleted++
		}
	}
	for i := range tasks {
		tasks[i].ProjectID = projectID
		tasks[i].ParentID = nil
		if p := parents[i]; p >= 0 {
			tasks[i].ParentID = int64Ptr(tasks[p].ID)
		}
		_ = m.Create(context.Background(), &tasks[i])
	}
	return deleted, nil
}

// ── Mock MemberRepository ──

type mockMemberRepo struct {
	members map[int64]*model.Member
	tasks   *mockTaskRepo
	nextID  int64
}

func newMockMemberRepo() *mockMemberRepo {
	return &mockMemberRepo{members: make(map[int64]*model.Member)}
}

func (m *mockMemberRepo) Create(_ context.Context, member *model.Member) error {
	m.nextID++
	member.ID = m.nextID
	cp := *member
	m.members[member.ID] = &cp
	return nil
}

func (m *mockMemberRepo) GetByID(_ context.Context, id int64) (*model.Member, error) {
	if mem, ok := m.members[id]; ok {
		cp := *mem
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockMemberRepo) ListByProject(_ context.Context, projectID int64) ([]model.Member, error) {
	var result []model.Member
	for _, mem := range m.members {
		if mem.ProjectID == projectID {
			result = append(result, *mem)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *mockMemberRepo) Update(_ context.Context, member *model.Member) error {
	if _, ok := m.members[member.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *member
	m.members[member.ID] = &cp
	return nil
}

func (m *mockMemberRepo) Delete(_ context.Context, id int64) (int64, error) {
	if _, ok := m.members[id]; !ok {
		return 0, gorm.ErrRecordNotFound
	}
	var cleared int64
	if m.tasks != nil {
		for _, t := range m.tasks.tasks {
			if t.AssignedMemberID != nil && *t.AssignedMemberID == id {
				t.AssignedMemberID = nil
				t.Version++
				cleared++
			}
		}
	}
	delete(m.members, id)
	return cleared, nil
}

// ── Mock HolidayRepository ──

type mockHolidayRepo struct {
	holidays map[int64]*model.Holiday
	nextID   int64
}

func newMockHolidayRepo() *mockHolidayRepo {
	return &mockHolidayRepo{holidays: make(map[int64]*model.Holiday)}
}

func (m *mockHolidayRepo) find(projectID int64, date time.Time) *model.Holiday {
	for _, h := range m.holidays {
		if h.ProjectID == projectID && h.Date.Equal(date) {
			return h
		}
	}
	return nil
}

func (m *mockHolidayRepo) Create(_ context.Context, holiday *model.Holiday) error {
	if m.find(holiday.ProjectID, holiday.Date) != nil {
		return gorm.ErrDuplicatedKey
	}
	m.nextID++
	holiday.ID = m.nextID
	cp := *holiday
	m.holidays[holiday.ID] = &cp
	return nil
}

func (m *mockHolidayRepo) GetByID(_ context.Context, id int64) (*model.Holiday, error) {
	if h, ok := m.holidays[id]; ok {
		cp := *h
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockHolidayRepo) ListByProject(_ context.Context, projectID int64, filter repository.HolidayFilter) ([]model.Holiday, error) {
	var result []model.Holiday
	for _, h := range m.holidays {
		if h.ProjectID != projectID {
			continue
		}
		if filter.Start != nil && h.Date.Before(*filter.Start) {
			continue
		}
		if filter.End != nil && h.Date.After(*filter.End) {
			continue
		}
		if filter.HolidayType != "" && h.HolidayType != filter.HolidayType {
			continue
		}
		result = append(result, *h)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

func (m *mockHolidayRepo) SaveBatch(ctx context.Context, create, replace []model.Holiday) error {
	for i := range create {
		if err := m.Create(ctx, &create[i]); err != nil {
			return err
		}
	}
	for _, r := range replace {
		if h := m.find(r.ProjectID, r.Date); h != nil {
			h.Name = r.Name
			h.HolidayType = r.HolidayType
		}
	}
	return nil
}

func (m *mockHolidayRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.holidays[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.holidays, id)
	return nil
}

func (m *mockHolidayRepo) DeleteByType(_ context.Context, projectID int64, holidayType string) (int64, error) {
	var n int64
	for id, h := range m.holidays {
		if h.ProjectID == projectID && (holidayType == "" || h.HolidayType == holidayType) {
			delete(m.holidays, id)
			n++
		}
	}
	return n, nil
}

// ── Mock EVMSnapshotRepository ──

type mockSnapshotRepo struct {
	snapshots []model.EVMSnapshot
}

func newMockSnapshotRepo() *mockSnapshotRepo {
	return &mockSnapshotRepo{}
}

func (m *mockSnapshotRepo) Create(_ context.Context, snapshot *model.EVMSnapshot) error {
	snapshot.ID = int64(len(m.snapshots) + 1)
	snapshot.CreatedAt = time.Now()
	m.snapshots = append(m.snapshots, *snapshot)
	return nil
}

func (m *mockSnapshotRepo) ListByProject(_ context.Context, projectID int64, start, end *time.Time, offset, limit int) ([]model.EVMSnapshot, int64, error) {
	var all []model.EVMSnapshot
	for _, s := range m.snapshots {
		if s.ProjectID != projectID {
			continue
		}
		if start != nil && s.SnapshotDate.Before(*start) {
			continue
		}
		if end != nil && s.SnapshotDate.After(*end) {
			continue
		}
		all = append(all, s)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].SnapshotDate.Before(all[j].SnapshotDate) })
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	endIdx := offset + limit
	if endIdx > len(all) {
		endIdx = len(all)
	}
	return all[offset:endIdx], total, nil
}

// ── Mock Locker / Cache ──

type mockLocker struct {
	held     map[string]bool
	err      error
	acquired int
	released int
}

func newMockLocker() *mockLocker {
	return &mockLocker{held: make(map[string]bool)}
}

func (l *mockLocker) AcquireLock(_ context.Context, key string, _ time.Duration) (string, error) {
	if l.err != nil {
		return "", l.err
	}
	if l.held[key] {
		return "", redis.ErrLockHeld
	}
	l.held[key] = true
	l.acquired++
	return "token-" + key, nil
}

func (l *mockLocker) ReleaseLock(_ context.Context, key, _ string) error {
	delete(l.held, key)
	l.released++
	return nil
}

type mockCache struct {
	data    map[string][]byte
	deleted []string
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string][]byte)}
}

func (c *mockCache) GetJSON(_ context.Context, key string, dest interface{}) (bool, error) {
	raw, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *mockCache) SetJSON(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = raw
	return nil
}

func (c *mockCache) DeleteByPrefix(_ context.Context, prefix string) error {
	for k := range c.data {
		if strings.HasPrefix(k, prefix) {
			delete(c.data, k)
		}
	}
	c.deleted = append(c.deleted, prefix)
	return nil
}

// ── 测试装配 ──

type testEnv struct {
	repo      *repository.Repository
	projects  *mockProjectRepo
	tasks     *mockTaskRepo
	members   *mockMemberRepo
	holidays  *mockHolidayRepo
	snapshots *mockSnapshotRepo
	locker    *mockLocker
	cache     *mockCache
	hooks     *projectHooks
	logger    *zap.Logger
}

func newTestEnv() *testEnv {
	env := &testEnv{
		projects:  newMockProjectRepo(),
		tasks:     newMockTaskRepo(),
		members:   newMockMemberRepo(),
		holidays:  newMockHolidayRepo(),
		snapshots: newMockSnapshotRepo(),
		locker:    newMockLocker(),
		cache:     newMockCache(),
		logger:    zap.NewNop(),
	}
	env.tasks.members = env.members
	env.members.tasks = env.tasks
	env.repo = &repository.Repository{
		Project:     env.projects,
		Task:        env.tasks,
		Member:      env.members,
		Holiday:     env.holidays,
		EVMSnapshot: env.snapshots,
	}
	env.hooks = &projectHooks{
		repo:    env.repo,
		locker:  env.locker,
		cache:   env.cache,
		lockTTL: time.Minute,
		logger:  env.logger,
	}
	return env
}

// ── 测试数据 ──

func mustDate(s string) *time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &d
}

func strPtr(s string) *string { return &s }
func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }

func (env *testEnv) seedProject(name string) *model.Project {
	p := &model.Project{Name: name, Status: "planning"}
	_ = env.projects.Create(context.Background(), p)
	return p
}

func (env *testEnv) seedMember(projectID int64, name string, hours float64, skills ...string) *model.Member {
	m := &model.Member{ProjectID: projectID, Name: name, AvailableHoursPerWeek: hours, Skills: model.StringArray(skills)}
	_ = env.members.Create(context.Background(), m)
	return m
}

func (env *testEnv) seedTask(t *model.Task) *model.Task {
	_ = env.tasks.Create(context.Background(), t)
	return t
}
