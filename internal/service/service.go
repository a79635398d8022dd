package service

import (
	"time"

	"go.uber.org/zap"

	"github.com/ragayama123/EVM-PM-Tool/config"
	"github.com/ragayama123/EVM-PM-Tool/internal/repository"
	"github.com/ragayama123/EVM-PM-Tool/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Project  ProjectService
	Task     TaskService
	Member   MemberService
	Holiday  HolidayService
	EVM      EVMService
	Schedule ScheduleService
	Export   ExportService
	WBS      WBSService
}

// NewService 创建 Service 聚合；rdb 为 nil 时项目锁与分析缓存降级关闭
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	rdb *redis.Client,
	logger *zap.Logger,
) *Service {
	loc, err := cfg.Scheduling.Location()
	if err != nil {
		logger.Warn("业务时区无效，使用 UTC", zap.String("timezone", cfg.Scheduling.Timezone), zap.Error(err))
		loc = time.UTC
	}

	hooks := &projectHooks{
		repo:    repo,
		lockTTL: cfg.Scheduling.LockTTL,
		logger:  logger,
	}
	// 避免把 nil 指针装进接口
	if rdb != nil {
		hooks.locker = rdb
		hooks.cache = rdb
	}

	return &Service{
		Project:  NewProjectService(repo, hooks, logger),
		Task:     NewTaskService(repo, hooks, logger),
		Member:   NewMemberService(repo, hooks, logger),
		Holiday:  NewHolidayService(repo, hooks, loc, logger),
		EVM:      NewEVMService(repo, hooks, cfg.EVM.AnalysisCacheTTL, loc, logger),
		Schedule: NewScheduleService(repo, hooks, &cfg.Scheduling, loc, logger),
		Export:   NewExportService(repo, loc, logger),
		WBS:      NewWBSService(repo, hooks, logger),
	}
}
