// Package eodhd fetches end-of-day prices from the EODHD API.
package eodhd

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sourav-625/market-regime-radar/internal/domain/models"
	drepo "github.com/sourav-625/market-regime-radar/internal/domain/repository"
	xhttp "github.com/sourav-625/market-regime-radar/pkg/http"
	applogger "github.com/sourav-625/market-regime-radar/pkg/logger"
	"github.com/sourav-625/market-regime-radar/pkg/util"

	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL   = "https://eodhd.com/api"
	DefaultExchange  = "US"
	DefaultRateLimit = 5
)

// Client implements PriceSource over the EODHD /eod endpoint.
type Client struct {
	apiKey   string
	baseURL  string
	exchange string
	http     *xhttp.Client
	limiter  *rate.Limiter
	logger   *applogger.Logger
	now      func() time.Time
}

type ClientOption func(*Client)

func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithExchange sets the suffix appended to bare tickers.
func WithExchange(code string) ClientOption {
	return func(c *Client) {
		if code != "" {
			c.exchange = strings.ToUpper(code)
		}
	}
}

func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) {
		if rps > 0 {
			if burst < 1 {
				burst = 1
			}
			c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

func WithHTTP(hc *xhttp.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l *applogger.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) { c.now = now }
}

func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:   apiKey,
		baseURL:  DefaultBaseURL,
		exchange: DefaultExchange,
		http:     xhttp.NewClient(xhttp.WithTimeout(30 * time.Second)),
		limiter:  rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:   applogger.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type eodBar struct {
	Date          string   `json:"date"`
	Close         float64  `json:"close"`
	AdjustedClose *float64 `json:"adjusted_close"`
}

// Ticker adds the configured exchange to symbols without one.
func (c *Client) Ticker(symbol string) string {
	if strings.Contains(symbol, ".") {
		return symbol
	}
	return symbol + "." + c.exchange
}

// Fetch returns adjusted daily closes for symbol over period.
func (c *Client) Fetch(ctx context.Context, symbol string, period drepo.Period) (models.PriceSeries, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return models.PriceSeries{}, fmt.Errorf("eodhd rate limiter: %w", err)
	}

	now := c.now().UTC()
	ticker := c.Ticker(symbol)
	q := url.Values{}
	q.Set("from", period.Since(now).Format(util.DateLayout))
	q.Set("to", now.Format(util.DateLayout))
	q.Set("period", "d")
	q.Set("order", "a")
	q.Set("api_token", c.apiKey)
	q.Set("fmt", "json")

	var bars []eodBar
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         c.baseURL + "/eod/" + url.PathEscape(ticker),
		QueryParams: q,
	}, &bars)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return models.PriceSeries{}, err
		}
		c.logger.Warn("eodhd request failed", applogger.String("ticker", ticker), applogger.Error(err))
		return models.PriceSeries{}, fmt.Errorf("eodhd %s: %w: %w: %v", ticker, models.ErrDataUnavailable, models.ErrUpstream, err)
	}

	raw := make([]models.PricePoint, 0, len(bars))
	for _, b := range bars {
		t, ok := util.ParseTime(b.Date)
		if !ok {
			continue
		}
		price := b.Close
		if b.AdjustedClose != nil {
			price = *b.AdjustedClose
		}
		raw = append(raw, models.PricePoint{Time: t.UTC(), Price: price})
	}
	series := models.NewPriceSeries(symbol, raw)
	if series.Len() == 0 {
		return models.PriceSeries{}, fmt.Errorf("eodhd %s: no data: %w", ticker, models.ErrDataUnavailable)
	}
	return series, nil
}

var _ drepo.PriceSource = (*Client)(nil)
