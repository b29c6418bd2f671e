package marketdata

import (
	"fmt"

	drepo "github.com/sourav-625/market-regime-radar/internal/domain/repository"
	"github.com/sourav-625/market-regime-radar/internal/service/eodhd"
	"github.com/sourav-625/market-regime-radar/internal/service/finnhub"
	"github.com/sourav-625/market-regime-radar/pkg/config"
	xhttp "github.com/sourav-625/market-regime-radar/pkg/http"
	applogger "github.com/sourav-625/market-regime-radar/pkg/logger"
)

// NewSource builds the configured provider wrapped in a circuit breaker.
func NewSource(cfg *config.Config, l *applogger.Logger) (drepo.PriceSource, error) {
	md := cfg.MarketData
	hc := xhttp.NewClient(xhttp.WithTimeout(md.Timeout))

	var provider drepo.PriceSource
	switch md.Provider {
	case config.ProviderFinnhub:
		provider = finnhub.New(md.Finnhub.APIKey,
			finnhub.WithBaseURL(md.Finnhub.BaseURL),
			finnhub.WithHTTP(hc),
			finnhub.WithLogger(l),
		)
	case config.ProviderEODHD:
		provider = eodhd.NewClient(md.EODHD.APIKey,
			eodhd.WithBaseURL(md.EODHD.BaseURL),
			eodhd.WithExchange(md.EODHD.DefaultExchange),
			eodhd.WithRateLimit(md.EODHD.RateLimit, md.EODHD.Burst),
			eodhd.WithHTTP(hc),
			eodhd.WithLogger(l),
		)
	default:
		return nil, fmt.Errorf("unknown market data provider %q", md.Provider)
	}
	return NewGuarded(md.Provider, provider, md.Breaker, l), nil
}
