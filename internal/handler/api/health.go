package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	xlogger "github.com/sourav-625/market-regime-radar/pkg/logger"
)

// Pinger is a backend that can report whether it is reachable.
type Pinger interface {
	Health(ctx context.Context) error
}

// ReadinessHandler serves /readyz. Liveness stays on /healthz.
type ReadinessHandler struct {
	logger  *xlogger.Logger
	timeout time.Duration
	names   []string
	checks  map[string]Pinger
}

func NewReadinessHandler(logger *xlogger.Logger, timeout time.Duration) *ReadinessHandler {
	if logger == nil {
		logger = xlogger.NewNop()
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &ReadinessHandler{logger: logger, timeout: timeout, checks: map[string]Pinger{}}
}

// Add registers a dependency checked on every readiness request.
func (h *ReadinessHandler) Add(name string, p Pinger) *ReadinessHandler {
	if _, ok := h.checks[name]; !ok {
		h.names = append(h.names, name)
	}
	h.checks[name] = p
	return h
}

func (h *ReadinessHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/readyz", h.Ready)
}

func (h *ReadinessHandler) Ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.names))
	for _, name := range h.names {
		if err := h.checks[name].Health(ctx); err != nil {
			h.logger.Warn("readiness check failed", xlogger.String("check", name), xlogger.Error(err))
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "unavailable"
	}
	return c.JSON(status, map[string]any{"status": overall, "checks": results})
}
