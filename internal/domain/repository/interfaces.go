package repository

import (
	"context"

	"github.com/sourav-625/market-regime-radar/internal/domain/models"
)

// PriceSource loads close prices for a symbol over a lookback period.
type PriceSource interface {
	Fetch(ctx context.Context, symbol string, period Period) (models.PriceSeries, error)
}

// RunStore persists analysis summaries.
type RunStore interface {
	Save(ctx context.Context, report *models.Report) error
	Recent(ctx context.Context, symbol string, limit int) ([]models.RunRecord, error)
}

// ReportPublisher fans completed reports out to downstream consumers.
type ReportPublisher interface {
	PublishReport(ctx context.Context, report *models.Report) error
}

type Metrics interface {
	RecordStage(stage string, seconds float64)
	RecordError(kind string)
	RecordRun(regimes int)
	RecordCurrentRegime(symbol string, state int, confidence float64)
}
