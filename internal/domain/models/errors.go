package models

import "errors"

var (
	// ErrDataUnavailable means the symbol has no data or the provider could not be reached.
	ErrDataUnavailable = errors.New("price data unavailable")
	// ErrInsufficientData means there are too few observations to compute returns or fit a model.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrNumericDegeneracy means a computation is undefined for the fitted parameters,
	// e.g. the expected duration of a state whose self-transition probability is 1.
	ErrNumericDegeneracy = errors.New("numeric degeneracy")
	// ErrInvalidPrice means a price series contains a non-positive price.
	ErrInvalidPrice = errors.New("invalid price")
	// ErrInvalidRequest means the analysis parameters are out of range.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUpstream accompanies ErrDataUnavailable when the provider itself failed
	// (transport error or bad status) rather than having no data for the symbol.
	ErrUpstream = errors.New("upstream failure")
)
