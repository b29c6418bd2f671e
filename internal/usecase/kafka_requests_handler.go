package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v4"

	"github.com/sourav-625/market-regime-radar/internal/domain/models"
	domrepo "github.com/sourav-625/market-regime-radar/internal/domain/repository"
	xhttp "github.com/sourav-625/market-regime-radar/pkg/http"
	applogger "github.com/sourav-625/market-regime-radar/pkg/logger"
)

// Analyzer runs one analysis.
type Analyzer interface {
	Analyze(ctx context.Context, p AnalysisParams) (*models.Report, error)
}

// KafkaRequestsHandler runs analyses requested over Kafka. Reports reach
// consumers through the report publisher.
type KafkaRequestsHandler struct {
	topic    string
	analyzer Analyzer
	l        *applogger.Logger
}

func NewKafkaRequestsHandler(topic string, analyzer Analyzer, l *applogger.Logger) *KafkaRequestsHandler {
	if l == nil {
		l = applogger.NewNop()
	}
	return &KafkaRequestsHandler{topic: topic, analyzer: analyzer, l: l}
}

func (h *KafkaRequestsHandler) Topic() string { return h.topic }

// incoming message schema: {symbol, period, regimes}
func (h *KafkaRequestsHandler) Handle(ctx context.Context, b []byte) error {
	var req models.AnalysisRequest
	if err := json.Unmarshal(b, &req); err != nil {
		return backoff.Permanent(fmt.Errorf("decode analysis request: %w", err))
	}
	if verr := xhttp.ValidateStruct(ctx, &req); verr != nil {
		return backoff.Permanent(fmt.Errorf("%w: %v", models.ErrInvalidRequest, verr))
	}

	report, err := h.analyzer.Analyze(ctx, AnalysisParams{
		Symbol:  req.Symbol,
		Period:  domrepo.Period(req.Period),
		Regimes: req.RegimeCount(),
	})
	if err != nil {
		if retryable(err) {
			return err
		}
		return backoff.Permanent(err)
	}
	h.l.Debug("kafka analysis done",
		applogger.String("symbol", report.Symbol),
		applogger.String("run_id", report.RunID))
	return nil
}

// retryable reports whether a later attempt could succeed: provider outages
// and unclassified failures, but not bad input or unusable data.
func retryable(err error) bool {
	if errors.Is(err, models.ErrUpstream) {
		return true
	}
	switch ErrorKind(err) {
	case "internal":
		return true
	default:
		return false
	}
}
