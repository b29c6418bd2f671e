package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sourav-625/market-regime-radar/internal/domain/models"
	domrepo "github.com/sourav-625/market-regime-radar/internal/domain/repository"
	pkgch "github.com/sourav-625/market-regime-radar/pkg/clickhouse"
	applogger "github.com/sourav-625/market-regime-radar/pkg/logger"
)

const runsTable = "regime_runs"

// RunSchema is the DDL for the run history table.
func RunSchema(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
            run_id          String,
            symbol          LowCardinality(String),
            period          LowCardinality(String),
            regimes         UInt8,
            observations    UInt32,
            current_state   UInt8,
            current_label   LowCardinality(String),
            confidence      Float64,
            duration_steps  UInt32,
            log_likelihood  Float64,
            created_at      DateTime64(3, 'UTC')
        ) ENGINE = MergeTree
        ORDER BY (symbol, created_at)`, database, runsTable),
	}
}

// CHRunStore implements RunStore backed by ClickHouse.
type CHRunStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHRunStore(ch *pkgch.Client, l *applogger.Logger) *CHRunStore {
	if l == nil {
		l = applogger.NewNop()
	}
	return &CHRunStore{db: ch.DB(), l: l}
}

func (s *CHRunStore) Save(ctx context.Context, report *models.Report) error {
	start := time.Now()
	r := report.Record()
	const q = `INSERT INTO ` + runsTable + ` (run_id, symbol, period, regimes, observations, current_state, current_label, confidence, duration_steps, log_likelihood, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q,
		r.RunID,
		r.Symbol,
		r.Period,
		uint8(r.Regimes),
		uint32(r.Observations),
		uint8(r.CurrentState),
		r.CurrentLabel,
		r.Confidence,
		uint32(r.DurationSteps),
		r.LogLikelihood,
		r.CreatedAt.UTC(),
	)
	if err != nil {
		s.l.Error("clickhouse save_run error", applogger.String("run_id", r.RunID), applogger.Error(err))
		return fmt.Errorf("save run: %w", err)
	}
	s.l.Debug("clickhouse save_run ok",
		applogger.String("run_id", r.RunID),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

// Recent lists the newest runs, optionally for one symbol.
func (s *CHRunStore) Recent(ctx context.Context, symbol string, limit int) ([]models.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `SELECT run_id, symbol, period, regimes, observations, current_state, current_label, confidence, duration_steps, log_likelihood, created_at FROM ` + runsTable
	args := make([]interface{}, 0, 2)
	if symbol != "" {
		q += ` WHERE symbol = ?`
		args = append(args, symbol)
	}
	q += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		s.l.Error("clickhouse recent_runs query error", applogger.String("symbol", symbol), applogger.Error(err))
		return nil, fmt.Errorf("recent runs: %w", err)
	}
	defer rows.Close()

	out := make([]models.RunRecord, 0, limit)
	for rows.Next() {
		var (
			r                      models.RunRecord
			regimes, state         uint8
			observations, duration uint32
		)
		if err := rows.Scan(&r.RunID, &r.Symbol, &r.Period, &regimes, &observations, &state,
			&r.CurrentLabel, &r.Confidence, &duration, &r.LogLikelihood, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Regimes = int(regimes)
		r.Observations = int(observations)
		r.CurrentState = int(state)
		r.DurationSteps = int(duration)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

var _ domrepo.RunStore = (*CHRunStore)(nil)
