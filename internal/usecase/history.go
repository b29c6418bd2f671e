package usecase

import (
	"context"
	"errors"

	"github.com/sourav-625/market-regime-radar/internal/domain/models"
	domrepo "github.com/sourav-625/market-regime-radar/internal/domain/repository"
	"github.com/sourav-625/market-regime-radar/pkg/util"
)

// ErrHistoryDisabled is returned when no run store is configured.
var ErrHistoryDisabled = errors.New("run history is disabled")

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// History reads past analysis runs.
type History struct {
	store domrepo.RunStore
}

// NewHistory returns a History over store, which may be nil.
func NewHistory(store domrepo.RunStore) *History {
	return &History{store: store}
}

// Enabled reports whether a store is configured.
func (h *History) Enabled() bool { return h != nil && h.store != nil }

// Recent returns up to limit runs, newest first. An empty symbol lists all symbols.
func (h *History) Recent(ctx context.Context, symbol string, limit int) ([]models.RunRecord, error) {
	if !h.Enabled() {
		return nil, ErrHistoryDisabled
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return h.store.Recent(ctx, util.NormalizeSymbol(symbol), limit)
}
