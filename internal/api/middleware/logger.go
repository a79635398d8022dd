package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// resourceKeys 路由首段资源名 → 日志字段名
var resourceKeys = map[string]string{
	"projects": "project_id",
	"tasks":    "task_id",
	"members":  "member_id",
	"holidays": "holiday_id",
}

// Logger 请求日志中间件（基于 Zap 结构化日志）
// 命中带 :id 的路由时附加 route 与对应资源 ID 字段，便于按项目检索
func Logger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()

		fields := []zap.Field{
			zap.Int("status", statusCode),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", latency),
		}
		if rid := GetRequestID(c); rid != "" {
			fields = append(fields, zap.String("request_id", rid))
		}
		if route := c.FullPath(); route != "" {
			fields = append(fields, zap.String("route", route))
			if key := resourceKey(route); key != "" {
				if id := c.Param("id"); id != "" {
					fields = append(fields, zap.String(key, id))
				}
			}
		}

		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.ByType(gin.ErrorTypePrivate).String()))
		}

		switch {
		case statusCode >= 500:
			logger.Error("请求处理失败", fields...)
		case statusCode >= 400:
			logger.Warn("客户端错误", fields...)
		default:
			logger.Info("请求完成", fields...)
		}
	}
}

// resourceKey 取 :id 前一段作为资源名，如 /api/v1/projects/:id/tasks → project_id
func resourceKey(route string) string {
	segs := strings.Split(strings.Trim(route, "/"), "/")
	for i, seg := range segs {
		if seg == ":id" && i > 0 {
			return resourceKeys[segs[i-1]]
		}
	}
	return ""
}
