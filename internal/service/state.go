package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ragayama123/EVM-PM-Tool/internal/engine"
	"github.com/ragayama123/EVM-PM-Tool/internal/repository"
	"github.com/ragayama123/EVM-PM-Tool/pkg/redis"
)

// Locker 项目级互斥锁（由 pkg/redis.Client 实现）
type Locker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, error)
	ReleaseLock(ctx context.Context, key, token string) error
}

// Cache JSON 缓存（由 pkg/redis.Client 实现）
type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPrefix(ctx context.Context, prefix string) error
}

// analysisCachePrefix 项目 EVM 分析缓存键前缀
func analysisCachePrefix(projectID int64) string {
	return fmt.Sprintf("evm:%d:", projectID)
}

// projectHooks 任务数据变化后的项目级联动：重新推导项目状态、失效分析缓存
type projectHooks struct {
	repo    *repository.Repository
	locker  Locker
	cache   Cache
	lockTTL time.Duration
	logger  *zap.Logger
}

// tasksChanged 任务写入成功后调用；联动失败只记录日志，不影响主操作结果
func (h *projectHooks) tasksChanged(ctx context.Context, projectID int64) {
	h.refreshStatus(ctx, projectID)
	h.invalidate(ctx, projectID)
}

func (h *projectHooks) refreshStatus(ctx context.Context, projectID int64) {
	project, err := h.repo.Project.GetByID(ctx, projectID)
	if err != nil {
		h.logger.Error("查询项目失败", zap.Int64("project_id", projectID), zap.Error(err))
		return
	}
	tasks, err := h.repo.Task.ListByProject(ctx, projectID)
	if err != nil {
		h.logger.Error("查询任务列表失败", zap.Int64("project_id", projectID), zap.Error(err))
		return
	}

	derived := engine.DeriveProjectStatus(engine.ProjectStatus(project.Status), toEngineTasks(tasks))
	if string(derived) == project.Status {
		return
	}
	if err := h.repo.Project.UpdateStatus(ctx, projectID, string(derived)); err != nil {
		h.logger.Error("更新项目状态失败", zap.Int64("project_id", projectID), zap.Error(err))
		return
	}
	h.logger.Info("项目状态已更新",
		zap.Int64("project_id", projectID),
		zap.String("from", project.Status),
		zap.String("to", string(derived)),
	)
}

// invalidate 删除项目的 EVM 分析缓存
func (h *projectHooks) invalidate(ctx context.Context, projectID int64) {
	if h.cache == nil {
		return
	}
	if err := h.cache.DeleteByPrefix(ctx, analysisCachePrefix(projectID)); err != nil {
		h.logger.Warn("清除 EVM 分析缓存失败", zap.Int64("project_id", projectID), zap.Error(err))
	}
}

// withProjectLock 持有项目锁执行 fn
// 锁被占用返回 ErrProjectBusy；Redis 不可用时降级为无锁执行
func (h *projectHooks) withProjectLock(ctx context.Context, projectID int64, fn func() error) error {
	if h.locker == nil {
		return fn()
	}

	key := fmt.Sprintf("project:%d", projectID)
	token, err := h.locker.AcquireLock(ctx, key, h.lockTTL)
	if err != nil {
		if errors.Is(err, redis.ErrLockHeld) {
			return ErrProjectBusy
		}
		h.logger.Warn("获取项目锁失败，降级为无锁执行", zap.Int64("project_id", projectID), zap.Error(err))
		return fn()
	}
	defer func() {
		// 请求取消后仍需释放锁
		if err := h.locker.ReleaseLock(context.WithoutCancel(ctx), key, token); err != nil {
			h.logger.Warn("释放项目锁失败", zap.Int64("project_id", projectID), zap.Error(err))
		}
	}()
	return fn()
}
