package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/hearth/internal/home"
	"github.com/fyrsmithlabs/hearth/internal/logging"
)

// handleError maps domain errors to status codes and writes {"message": ...}.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code, msg := http.StatusInternalServerError, "internal server error"

	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(code)
		}
	case home.IsFamilyError(err), errors.Is(err, home.ErrInvalidInput):
		code, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, home.ErrNotFound):
		code, msg = http.StatusNotFound, err.Error()
	}

	ctx := c.Request().Context()
	if code >= http.StatusInternalServerError {
		logging.FromContext(ctx).Error(ctx, "request failed", zap.Error(err))
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(code)
	} else {
		writeErr = c.JSON(code, ErrorResponse{Message: msg})
	}
	if writeErr != nil {
		logging.FromContext(ctx).Warn(ctx, "failed to write error response", zap.Error(writeErr))
	}
}

// badRequest reports a malformed body or query as invalid input, so clients
// can tell it apart from a rejected family.
func badRequest(msg string) error {
	return fmt.Errorf("%w: %s", home.ErrInvalidInput, msg)
}
