// Package finnhub fetches daily candles from the Finnhub REST API.
package finnhub

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sourav-625/market-regime-radar/internal/domain/models"
	drepo "github.com/sourav-625/market-regime-radar/internal/domain/repository"
	xhttp "github.com/sourav-625/market-regime-radar/pkg/http"
	applogger "github.com/sourav-625/market-regime-radar/pkg/logger"
)

const (
	DefaultBaseURL = "https://finnhub.io/api/v1"
	candlePath     = "/stock/candle"
	statusNoData   = "no_data"
)

// Client implements PriceSource over the Finnhub candle endpoint.
type Client struct {
	apiKey  string
	baseURL string
	http    *xhttp.Client
	logger  *applogger.Logger
	now     func() time.Time
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

func WithHTTP(hc *xhttp.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l *applogger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock fixes "now" for the lookback window.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		http:    xhttp.NewClient(xhttp.WithTimeout(10 * time.Second)),
		logger:  applogger.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// candleResponse holds parallel arrays of close prices and unix seconds.
type candleResponse struct {
	Close  []float64 `json:"c"`
	Time   []int64   `json:"t"`
	Status string    `json:"s"`
}

// Fetch returns daily closes for symbol over period. Any failure maps to
// ErrDataUnavailable; the call is not retried.
func (c *Client) Fetch(ctx context.Context, symbol string, period drepo.Period) (models.PriceSeries, error) {
	now := c.now().UTC()
	from := period.Since(now)

	var resp candleResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + candlePath,
		QueryParams: map[string][]string{
			"symbol":     {symbol},
			"resolution": {"D"},
			"from":       {strconv.FormatInt(from.Unix(), 10)},
			"to":         {strconv.FormatInt(now.Unix(), 10)},
			"token":      {c.apiKey},
		},
	}, &resp)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return models.PriceSeries{}, err
		}
		c.logger.Warn("finnhub candle request failed", applogger.String("symbol", symbol), applogger.Error(err))
		return models.PriceSeries{}, fmt.Errorf("finnhub %s: %w: %w: %v", symbol, models.ErrDataUnavailable, models.ErrUpstream, err)
	}

	if resp.Status == statusNoData || len(resp.Close) == 0 {
		return models.PriceSeries{}, fmt.Errorf("finnhub %s: no data: %w", symbol, models.ErrDataUnavailable)
	}
	if len(resp.Close) != len(resp.Time) {
		return models.PriceSeries{}, fmt.Errorf("finnhub %s: %d closes for %d timestamps: %w",
			symbol, len(resp.Close), len(resp.Time), models.ErrDataUnavailable)
	}

	raw := make([]models.PricePoint, len(resp.Close))
	for i := range resp.Close {
		raw[i] = models.PricePoint{Time: time.Unix(resp.Time[i], 0).UTC(), Price: resp.Close[i]}
	}
	series := models.NewPriceSeries(symbol, raw)
	if series.Len() == 0 {
		return models.PriceSeries{}, fmt.Errorf("finnhub %s: no valid closes: %w", symbol, models.ErrDataUnavailable)
	}
	return series, nil
}

var _ drepo.PriceSource = (*Client)(nil)
