package repository

import (
	"strings"
	"time"
)

// Period is a lookback window for price history.
type Period string

const (
	Period6Mo Period = "6mo"
	Period1Y  Period = "1y"
	Period2Y  Period = "2y"
	Period5Y  Period = "5y"
)

// SupportedPeriods lists the periods in ascending length.
func SupportedPeriods() []Period { return []Period{Period6Mo, Period1Y, Period2Y, Period5Y} }

// IsValidPeriod returns true if p is a supported period.
func IsValidPeriod(p Period) bool {
	switch p {
	case Period6Mo, Period1Y, Period2Y, Period5Y:
		return true
	default:
		return false
	}
}

// DefaultPeriod returns the default period.
func DefaultPeriod() Period { return Period2Y }

// NormalizePeriod converts raw input to a valid period (or default).
func NormalizePeriod(s string) Period {
	p := Period(strings.ToLower(strings.TrimSpace(s)))
	if IsValidPeriod(p) {
		return p
	}
	return DefaultPeriod()
}

// Since returns the start of the window ending at now.
func (p Period) Since(now time.Time) time.Time {
	switch p {
	case Period6Mo:
		return now.AddDate(0, -6, 0)
	case Period1Y:
		return now.AddDate(-1, 0, 0)
	case Period5Y:
		return now.AddDate(-5, 0, 0)
	default:
		return now.AddDate(-2, 0, 0)
	}
}
