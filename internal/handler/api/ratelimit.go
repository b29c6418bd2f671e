package api

import (
	"github.com/labstack/echo/v4"

	"github.com/sourav-625/market-regime-radar/internal/service/ratelimit"
	xhttp "github.com/sourav-625/market-regime-radar/pkg/http"
)

// RateLimit rejects requests over the per-client-IP budget with 429.
// A nil limiter disables limiting.
func RateLimit(l *ratelimit.Limiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if l == nil {
			return next
		}
		return func(c echo.Context) error {
			if !l.Allow(c.RealIP()) {
				c.Response().Header().Set("Retry-After", "1")
				return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("rate limit exceeded"))
			}
			return next(c)
		}
	}
}
