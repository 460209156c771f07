package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthCheck は依存先の疎通確認です。
type HealthCheck func(ctx context.Context) error

// HealthHandler は依存先の状態をまとめて返します。
type HealthHandler struct {
	checks  map[string]HealthCheck
	timeout time.Duration
}

// NewHealthHandler は HealthHandler を生成します。
func NewHealthHandler(checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks, timeout: 2 * time.Second}
}

// Healthz は全ての確認が成功した場合に 200 を返します。
func (h *HealthHandler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(map[string]string, len(names))
	healthy := true
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			results[name] = err.Error()
			healthy = false
			continue
		}
		results[name] = "ok"
	}

	if !healthy {
		c.JSON(http.StatusServiceUnavailable, Envelope{
			Status:  statusError,
			Code:    http.StatusServiceUnavailable,
			Message: http.StatusText(http.StatusServiceUnavailable),
			Data:    results,
		})
		return
	}
	respond(c, http.StatusOK, results)
}
