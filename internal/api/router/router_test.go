package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/ragayama123/EVM-PM-Tool/config"
	"github.com/ragayama123/EVM-PM-Tool/internal/api/handler"
	"github.com/ragayama123/EVM-PM-Tool/internal/service"
)

func newTestEngine(metricsEnabled bool) http.Handler {
	cfg := &config.Config{
		Server: config.ServerConfig{BodyLimit: 1 << 20},
		Metrics: config.MetricsConfig{
			Enabled: metricsEnabled,
			Path:    "/metrics",
		},
	}
	h := handler.NewHandler(&service.Service{})
	return Setup(cfg, h, nil, zap.NewNop())
}

func TestHealth(t *testing.T) {
	w := httptest.NewRecorder()
	newTestEngine(false).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("健康检查应返回 200, got %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("全局中间件应写入 X-Request-ID")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestEngine(true)

	// 先产生一次带路由模板的请求
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("指标端点应返回 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "evm_http_request_duration_seconds") {
		t.Error("指标输出应包含 HTTP 延迟直方图")
	}
}

func TestMetricsDisabled(t *testing.T) {
	w := httptest.NewRecorder()
	newTestEngine(false).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("未启用指标时应返回 404, got %d", w.Code)
	}
}

func TestInvalidIDRejectedBeforeService(t *testing.T) {
	// Service 为空实现，ID 校验失败时不会触达
	cases := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/projects/abc"},
		{http.MethodGet, "/api/v1/projects/0/tasks"},
		{http.MethodPut, "/api/v1/tasks/-1"},
		{http.MethodDelete, "/api/v1/holidays/x"},
		{http.MethodGet, "/api/v1/projects/x/evm/export"},
	}
	r := newTestEngine(false)
	for _, tc := range cases {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s %s 应返回 400, got %d", tc.method, tc.path, w.Code)
		}
	}
}
