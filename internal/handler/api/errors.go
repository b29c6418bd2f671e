package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/sourav-625/market-regime-radar/internal/domain/models"
	"github.com/sourav-625/market-regime-radar/internal/usecase"
	xhttp "github.com/sourav-625/market-regime-radar/pkg/http"
)

// ToAppError maps analysis errors to HTTP errors.
func ToAppError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, models.ErrInvalidRequest):
		return xhttp.NewAppError(http.StatusBadRequest, "ERR_INVALID_REQUEST", err.Error()).WithError(err)
	case errors.Is(err, models.ErrDataUnavailable):
		return xhttp.NotFoundError("ERR_DATA_UNAVAILABLE", "no price data available for this symbol").WithError(err)
	case errors.Is(err, models.ErrInsufficientData):
		return xhttp.UnprocessableError("ERR_INSUFFICIENT_DATA", "not enough price history to fit the model").WithError(err)
	case errors.Is(err, models.ErrInvalidPrice):
		return xhttp.UnprocessableError("ERR_INVALID_PRICE", "price history contains invalid prices").WithError(err)
	case errors.Is(err, models.ErrNumericDegeneracy):
		return xhttp.UnprocessableError("ERR_NUMERIC_DEGENERACY", "the fitted model is degenerate for this data").WithError(err)
	case errors.Is(err, usecase.ErrHistoryDisabled):
		return xhttp.NotFoundError("ERR_HISTORY_DISABLED", "run history is not enabled").WithError(err)
	case errors.Is(err, context.DeadlineExceeded):
		return xhttp.GatewayTimeoutError("analysis timed out").WithError(err)
	default:
		return xhttp.InternalError("analysis failed").WithError(err)
	}
}
