// Package handlers contains the gin handlers for the quote API and the /-/ operational endpoints.
package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jsamuelsen/daily-quote/internal/ports"
)

// BuildInfo identifies the running binary. Version, commit and build
// time come from -ldflags.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
}

func NewBuildInfo(version, commit, buildTime string) BuildInfo {
	return BuildInfo{Version: version, Commit: commit, BuildTime: buildTime, GoVersion: runtime.Version()}
}

// HealthHandler serves the operational endpoints under /-/.
type HealthHandler struct {
	registry ports.HealthRegistry
	build    BuildInfo
	started  time.Time
}

func NewHealthHandler(registry ports.HealthRegistry, build BuildInfo) *HealthHandler {
	return &HealthHandler{registry: registry, build: build, started: time.Now()}
}

// RegisterRoutes mounts live, ready, build and metrics under /-.
func (h *HealthHandler) RegisterRoutes(engine *gin.Engine) {
	ops := engine.Group("/-")
	ops.GET("/live", h.Liveness)
	ops.GET("/ready", h.Readiness)
	ops.GET("/build", func(c *gin.Context) { c.JSON(http.StatusOK, h.build) })
	ops.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

type livenessResponse struct {
	Status  string `json:"status"`
	Started string `json:"started"`
	Uptime  string `json:"uptime"`
}

// Liveness answers 200 while the process runs, whatever its dependencies say.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, livenessResponse{
		Status:  "ok",
		Started: h.started.UTC().Format(time.RFC3339),
		Uptime:  time.Since(h.started).Truncate(time.Second).String(),
	})
}

type checkResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message,omitempty"`
	Optional   bool   `json:"optional,omitempty"`
	DurationMS int64  `json:"durationMs"`
}

type readinessResponse struct {
	Status    string                   `json:"status"`
	CheckedAt string                   `json:"checkedAt"`
	Checks    map[string]checkResponse `json:"checks,omitempty"`
}

// Readiness runs the storage, corpus and remote source checks. Only a
// failing required check answers 503; an empty corpus or an unreachable
// remote source reports "degraded" with 200.
func (h *HealthHandler) Readiness(c *gin.Context) {
	result := h.registry.CheckAll(c.Request.Context())

	resp := readinessResponse{
		Status:    string(result.Status),
		CheckedAt: result.Timestamp.UTC().Format(time.RFC3339),
		Checks:    make(map[string]checkResponse, len(result.Checks)),
	}

	for name, r := range result.Checks {
		resp.Checks[name] = checkResponse{
			Status:     string(r.Status),
			Message:    r.Message,
			Optional:   r.Optional,
			DurationMS: r.Duration.Milliseconds(),
		}
	}

	status := http.StatusOK
	if result.Status == ports.HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, resp)
}
