package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

func writeEnvelope(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, APIResponse{
		Status:  status,
		Message: http.StatusText(status),
		Data:    data,
	})
}

// SuccessResponse writes data with 200.
func SuccessResponse(c echo.Context, data interface{}) error {
	return writeEnvelope(c, http.StatusOK, data)
}

// ListResponse writes rows with their count.
func ListResponse(c echo.Context, rows interface{}, total int) error {
	return writeEnvelope(c, http.StatusOK, ListData{Rows: rows, Total: total})
}

// ValidationResponse writes field errors with 400.
func ValidationResponse(c echo.Context, errs []ValidationError) error {
	return writeEnvelope(c, http.StatusBadRequest, errs)
}

// AppErrorResponse writes err with its AppError status. Any other error is
// reported as a generic 500 so internals never leak.
func AppErrorResponse(c echo.Context, err error) error {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = InternalError("something went wrong")
	}
	return writeEnvelope(c, appErr.Status, []*AppError{appErr})
}
