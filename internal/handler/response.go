package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"taxidispatch/internal/auth"
	"taxidispatch/internal/repository"
	"taxidispatch/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code, message := mapError(err)
	c.JSON(code, ErrorResponse{Error: message})
}

// mapError maps service/repository errors to an HTTP status and a safe,
// client-facing message.
func mapError(err error) (int, string) {
	switch {
	// Failed logins collapse to one message so callers cannot probe which
	// accounts exist or lack a driver profile.
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrDriverProfileRequired):
		return http.StatusUnauthorized, "invalid credentials"

	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, "invalid token"

	case errors.Is(err, service.ErrAccountSuspended):
		return http.StatusForbidden, "account is not active"

	case errors.Is(err, service.ErrInvalidLocation),
		errors.Is(err, service.ErrInvalidLogType),
		errors.Is(err, service.ErrInvalidParentEvent):
		return http.StatusBadRequest, err.Error()

	case errors.Is(err, service.ErrVehicleTripActive):
		return http.StatusConflict, err.Error()

	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not found"

	default:
		// No internals leak past this point.
		return http.StatusInternalServerError, "internal server error"
	}
}
