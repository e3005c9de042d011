// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

// HealthChecker 可做就绪探测的依赖
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler 健康检查处理器
type HealthHandler struct {
	version  string
	required map[string]HealthChecker
	optional map[string]HealthChecker
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{
		version:  version,
		required: make(map[string]HealthChecker),
		optional: make(map[string]HealthChecker),
	}
}

// Require 注册必需依赖，失败时 /ready 返回 503
func (h *HealthHandler) Require(name string, c HealthChecker) *HealthHandler {
	if c != nil {
		h.required[name] = c
	}
	return h
}

// Optional 注册可选依赖，失败只标记 degraded
func (h *HealthHandler) Optional(name string, c HealthChecker) *HealthHandler {
	if c != nil {
		h.optional[name] = c
	}
	return h
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

type readinessCheck struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
}

type readinessResponse struct {
	Status string                     `json:"status"`
	Checks map[string]*readinessCheck `json:"checks,omitempty"`
}

// Health 健康检查接口
// @Summary 健康检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Version: h.version})
}

// Ready 就绪检查接口，各依赖并发探测
// @Summary 就绪检查
// @Tags System
// @Produce json
// @Success 200 {object} readinessResponse
// @Failure 503 {object} readinessResponse
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	var (
		mu     sync.Mutex
		checks = make(map[string]*readinessCheck, len(h.required)+len(h.optional))
		ready  = true
	)
	probe := func(name string, checker HealthChecker, required bool) func() error {
		return func() error {
			start := time.Now()
			err := checker.HealthCheck(ctx)
			res := &readinessCheck{Status: "ok", LatencyMs: time.Since(start).Milliseconds()}
			if err != nil {
				res.Error = err.Error()
				res.Status = "degraded"
				if required {
					res.Status = "error"
				}
			}

			mu.Lock()
			checks[name] = res
			if err != nil && required {
				ready = false
			}
			mu.Unlock()
			return nil
		}
	}

	var g errgroup.Group
	for _, name := range sortedNames(h.required) {
		g.Go(probe(name, h.required[name], true))
	}
	for _, name := range sortedNames(h.optional) {
		g.Go(probe(name, h.optional[name], false))
	}
	_ = g.Wait()

	resp := readinessResponse{Status: "ok", Checks: checks}
	if !ready {
		resp.Status = "not_ready"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Live 存活检查接口
// @Summary 存活检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /live [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func sortedNames(m map[string]HealthChecker) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
