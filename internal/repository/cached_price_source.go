package repository

import (
	"context"
	"errors"
	"time"

	"github.com/sourav-625/market-regime-radar/internal/domain/models"
	domrepo "github.com/sourav-625/market-regime-radar/internal/domain/repository"
	"github.com/sourav-625/market-regime-radar/pkg/cache"
	applogger "github.com/sourav-625/market-regime-radar/pkg/logger"
)

const priceKeyPrefix = "prices"

// CachedPriceSource serves price series from cache and falls back to the
// wrapped source on a miss. Cache failures degrade to a direct fetch.
type CachedPriceSource struct {
	next  domrepo.PriceSource
	cache cache.Service
	ttl   time.Duration
	l     *applogger.Logger
}

func NewCachedPriceSource(next domrepo.PriceSource, c cache.Service, ttl time.Duration, l *applogger.Logger) *CachedPriceSource {
	if l == nil {
		l = applogger.NewNop()
	}
	return &CachedPriceSource{next: next, cache: c, ttl: ttl, l: l}
}

func priceKey(symbol string, period domrepo.Period) string {
	return cache.GenerateKeyWithParams(priceKeyPrefix, symbol, period)
}

func (s *CachedPriceSource) Fetch(ctx context.Context, symbol string, period domrepo.Period) (models.PriceSeries, error) {
	key := priceKey(symbol, period)

	var cached models.PriceSeries
	err := s.cache.Get(ctx, key, &cached)
	switch {
	case err == nil && cached.Len() > 0:
		s.l.Debug("price cache hit", applogger.String("key", key), applogger.Int("points", cached.Len()))
		return cached, nil
	case err != nil && !errors.Is(err, cache.ErrCacheMiss):
		s.l.Warn("price cache read failed", applogger.String("key", key), applogger.Error(err))
	}

	series, err := s.next.Fetch(ctx, symbol, period)
	if err != nil {
		return models.PriceSeries{}, err
	}
	if err := s.cache.Set(ctx, key, series, s.ttl); err != nil {
		s.l.Warn("price cache write failed", applogger.String("key", key), applogger.Error(err))
	}
	return series, nil
}
