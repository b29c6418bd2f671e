package models

import (
	"math"
	"sort"
	"time"
)

// PricePoint is one close price observation.
type PricePoint struct {
	Time  time.Time `json:"time"`
	Price float64   `json:"price"`
}

// PriceSeries is a chronological close-price series for one symbol.
// Timestamps are unique and prices are positive.
type PriceSeries struct {
	Symbol string       `json:"symbol"`
	Points []PricePoint `json:"points"`
}

// NewPriceSeries builds a clean series from raw provider points: it drops
// non-positive and non-finite prices, sorts oldest first, and keeps the last
// value seen for a repeated timestamp.
func NewPriceSeries(symbol string, raw []PricePoint) PriceSeries {
	byTime := make(map[int64]int, len(raw))
	points := make([]PricePoint, 0, len(raw))
	for _, p := range raw {
		if !(p.Price > 0) || math.IsInf(p.Price, 0) || p.Time.IsZero() {
			continue
		}
		key := p.Time.UnixNano()
		if i, ok := byTime[key]; ok {
			points[i] = p
			continue
		}
		byTime[key] = len(points)
		points = append(points, p)
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].Time.Before(points[j].Time) })
	return PriceSeries{Symbol: symbol, Points: points}
}

// Len returns the number of observations.
func (s PriceSeries) Len() int { return len(s.Points) }

// Prices returns the close prices in order.
func (s PriceSeries) Prices() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Price
	}
	return out
}

// ReturnSeries holds log-returns aligned one-to-one with Points[1:] of the
// series they were derived from.
type ReturnSeries struct {
	Symbol string      `json:"symbol"`
	Times  []time.Time `json:"times"`
	Values []float64   `json:"values"`
}

// Len returns the number of returns.
func (r ReturnSeries) Len() int { return len(r.Values) }
