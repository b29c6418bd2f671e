// Package marketdata selects a price provider and guards it with a circuit
// breaker.
package marketdata

import (
	"context"
	"errors"
	"fmt"

	"github.com/sourav-625/market-regime-radar/internal/domain/models"
	drepo "github.com/sourav-625/market-regime-radar/internal/domain/repository"
	"github.com/sourav-625/market-regime-radar/pkg/config"
	applogger "github.com/sourav-625/market-regime-radar/pkg/logger"

	"github.com/sony/gobreaker"
)

// Guarded fails fast with ErrDataUnavailable while the upstream provider
// keeps failing. Only ErrUpstream failures count towards tripping; a symbol
// without data does not.
type Guarded struct {
	next drepo.PriceSource
	cb   *gobreaker.CircuitBreaker
}

func NewGuarded(name string, next drepo.PriceSource, cfg config.BreakerConfig, l *applogger.Logger) *Guarded {
	if l == nil {
		l = applogger.NewNop()
	}
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	st := gobreaker.Settings{
		Name:     name,
		Interval: cfg.Interval,
		Timeout:  cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			return !errors.Is(err, models.ErrUpstream)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			l.Warn("market data breaker state change",
				applogger.String("breaker", name),
				applogger.String("from", from.String()),
				applogger.String("to", to.String()),
			)
		},
	}
	return &Guarded{next: next, cb: gobreaker.NewCircuitBreaker(st)}
}

func (g *Guarded) Fetch(ctx context.Context, symbol string, period drepo.Period) (models.PriceSeries, error) {
	out, err := g.cb.Execute(func() (interface{}, error) {
		return g.next.Fetch(ctx, symbol, period)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return models.PriceSeries{}, fmt.Errorf("%s: %v: %w", g.cb.Name(), err, models.ErrDataUnavailable)
		}
		return models.PriceSeries{}, err
	}
	return out.(models.PriceSeries), nil
}

// State exposes the breaker state for diagnostics.
func (g *Guarded) State() gobreaker.State { return g.cb.State() }

var _ drepo.PriceSource = (*Guarded)(nil)
