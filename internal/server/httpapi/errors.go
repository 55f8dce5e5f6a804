package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/yieldvault/internal/common"
	"github.com/labstack/echo/v4"
)

type errorResponse struct {
	Error string `json:"error"`
}

type successResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrInvalidAddress),
		errors.Is(err, common.ErrInvalidPayload),
		errors.Is(err, common.ErrUnknownKind):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrNonceExpired),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// fail writes {"error": ...}. Internal errors are logged and replaced with
// a generic message.
func (s *Server) fail(c echo.Context, err error) error {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		s.logger.Error(c.Request().Context(), "request failed", "path", c.Path(), "error", err)
		msg = common.ErrorInternal.Error()
	}
	return c.JSON(code, errorResponse{Error: msg})
}

func ok(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, successResponse{Success: true, Data: data})
}
