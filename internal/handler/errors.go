package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"edupair/internal/middleware"
	"edupair/internal/service"

	"github.com/gin-gonic/gin"
)

var errNoAuthUser = errors.New("user not found in context")

// statusFor maps service errors to HTTP status codes. Unknown errors are 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrUserAlreadyExists),
		errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInsufficientCredits),
		errors.Is(err, service.ErrAlreadyEnrolled):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrEnrollmentInProgress):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {"error": ...}. Internal errors are logged and replaced
// by fallback so driver details never reach the client.
func respondError(c *gin.Context, logger *slog.Logger, err error, fallback string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.ErrorContext(c.Request.Context(), fallback,
			"error", err, "request_id", c.GetString(middleware.RequestIDKey))
		_ = c.Error(err)
		c.JSON(status, gin.H{"error": fallback})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// getAuthUsername returns the caller resolved by the JWT middleware
func getAuthUsername(c *gin.Context) (string, error) {
	username, ok := middleware.AuthUser(c)
	if !ok {
		return "", errNoAuthUser
	}
	return username, nil
}
