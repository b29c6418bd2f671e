package analytics

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sourav-625/market-regime-radar/pkg/config"
	xhttp "github.com/sourav-625/market-regime-radar/pkg/http"

	"github.com/cenkalti/backoff/v4"
)

// HTTPServiceBase is the shared client for the external model service.
type HTTPServiceBase struct {
	baseURL    string
	client     *xhttp.Client
	maxRetries uint64
	newBackoff func() backoff.BackOff
}

func NewHTTPServiceBase(cfg *config.Config, opts ...xhttp.ClientOption) *HTTPServiceBase {
	r := cfg.Analysis.Remote
	opts = append([]xhttp.ClientOption{xhttp.WithTimeout(r.Timeout)}, opts...)
	return &HTTPServiceBase{
		baseURL:    strings.TrimRight(r.URL, "/"),
		client:     xhttp.NewClient(opts...),
		maxRetries: uint64(r.MaxRetries),
		newBackoff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
	}
}

// PostJSON posts payload to path under the base URL and decodes JSON into dest.
func (b *HTTPServiceBase) PostJSON(ctx context.Context, path string, payload, dest interface{}) error {
	if b.client == nil || b.baseURL == "" {
		return errors.New("model service url not configured")
	}
	err := b.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     b.baseURL + path,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    payload,
	}, dest)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	return nil
}

// PostJSONWithRetry retries PostJSON with exponential backoff. Statuses
// that are not temporary are returned immediately.
func (b *HTTPServiceBase) PostJSONWithRetry(ctx context.Context, path string, payload, dest interface{}) error {
	op := func() error {
		err := b.PostJSON(ctx, path, payload, dest)
		var se *xhttp.StatusError
		if errors.As(err, &se) && !se.Temporary() {
			return backoff.Permanent(err)
		}
		return err
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(b.newBackoff(), b.maxRetries), ctx)
	return backoff.Retry(op, policy)
}
