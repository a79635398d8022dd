package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ragayama123/EVM-PM-Tool/config"
	"github.com/ragayama123/EVM-PM-Tool/internal/api/handler"
	"github.com/ragayama123/EVM-PM-Tool/internal/api/middleware"
)

// Setup 初始化并返回 Gin 路由引擎
// limiter 为 nil 时不限流（Redis 未启用）
func Setup(cfg *config.Config, h *handler.Handler, limiter middleware.RateLimiter, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	if cfg.Metrics.Enabled {
		r.Use(middleware.Metrics())
	}

	// ── 健康检查 / 指标 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.BodyLimit(cfg.Server.BodyLimit))
	v1.Use(middleware.RateLimit(limiter, cfg.Server.RateLimit.Limit, cfg.Server.RateLimit.Window))
	{
		// 项目模块
		projects := v1.Group("/projects")
		{
			projects.GET("", h.Project.ListProjects)
			projects.POST("", h.Project.CreateProject)
			projects.GET("/:id", h.Project.GetProject)
			projects.PUT("/:id", h.Project.UpdateProject)
			projects.PUT("/:id/status", h.Project.UpdateProjectStatus)
			projects.DELETE("/:id", h.Project.DeleteProject)

			// 任务（WBS）
			projects.GET("/:id/tasks", h.Task.ListTasks)
			projects.POST("/:id/tasks", h.Task.CreateTask)
			projects.POST("/:id/tasks/auto-schedule/preview", h.Schedule.PreviewAutoSchedule)
			projects.POST("/:id/tasks/auto-schedule", h.Schedule.ExecuteAutoSchedule)

			// WBS Excel
			projects.GET("/:id/wbs/template", h.WBS.DownloadTemplate)
			projects.POST("/:id/wbs/import/preview", h.WBS.PreviewImport)
			projects.POST("/:id/wbs/import", h.WBS.ExecuteImport)

			// 成员
			projects.GET("/:id/members", h.Member.ListMembers)
			projects.POST("/:id/members", h.Member.CreateMember)
			projects.GET("/:id/members/evm", h.EVM.GetMemberEVM)

			// 工作日历
			projects.GET("/:id/holidays", h.Holiday.ListHolidays)
			projects.GET("/:id/holidays/dates", h.Holiday.ListHolidayDates)
			projects.POST("/:id/holidays", h.Holiday.CreateHoliday)
			projects.DELETE("/:id/holidays", h.Holiday.DeleteHolidays)
			projects.POST("/:id/holidays/generate", h.Holiday.GenerateHolidays)
			projects.POST("/:id/holidays/import", h.Holiday.ImportHolidays)
			projects.POST("/:id/holidays/import-ics", h.Holiday.ImportICS)
			projects.POST("/:id/holidays/import-csv", h.Holiday.ImportCSV)
			projects.GET("/:id/working-days", h.Holiday.WorkingDays)

			// EVM
			projects.GET("/:id/evm/metrics", h.EVM.GetMetrics)
			projects.GET("/:id/evm/analysis", h.EVM.GetAnalysis)
			projects.POST("/:id/evm/snapshots", h.EVM.CreateSnapshot)
			projects.GET("/:id/evm/snapshots", h.EVM.ListSnapshots)
			projects.GET("/:id/evm/export", h.Export.ExportReport)
		}

		// 任务模块
		tasks := v1.Group("/tasks")
		{
			tasks.GET("/:id", h.Task.GetTask)
			tasks.PUT("/:id", h.Task.UpdateTask)
			tasks.DELETE("/:id", h.Task.DeleteTask)
			tasks.POST("/:id/reschedule/preview", h.Schedule.PreviewReschedule)
			tasks.POST("/:id/reschedule", h.Schedule.ExecuteReschedule)
		}

		// 成员模块
		members := v1.Group("/members")
		{
			members.PUT("/:id", h.Member.UpdateMember)
			members.DELETE("/:id", h.Member.DeleteMember)
		}

		// 非工作日
		v1.DELETE("/holidays/:id", h.Holiday.DeleteHoliday)
	}

	return r
}
