package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	securitydomain "github.com/tipcast/tipcast/internal/security/domain"
	streamerdomain "github.com/tipcast/tipcast/internal/streamer/domain"
	txdomain "github.com/tipcast/tipcast/internal/transaction/domain"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Success bool         `json:"success"`
	Error   errorPayload `json:"error"`
}

var (
	ErrInvalidRequest = errors.New("invalid_request")
	ErrNotFound       = errors.New("not_found")
	ErrInternal       = errors.New("internal_error")
)

// ErrorHandlingMiddleware turns the last handler error into the wire
// error shape. Callers log the detailed cause; the response body stays
// generic so the security gate leaks nothing about why a token failed.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}
		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, errorResponse{Success: false, Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "invalid request",
		}
	case errors.Is(err, securitydomain.ErrInvalidTokenFormat),
		errors.Is(err, securitydomain.ErrUnknownToken):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "alert token rejected",
		}
	case errors.Is(err, securitydomain.ErrTokenRevoked),
		errors.Is(err, securitydomain.ErrTokenExpired),
		errors.Is(err, securitydomain.ErrIPNotAllowed),
		errors.Is(err, securitydomain.ErrInvalidSignature),
		errors.Is(err, securitydomain.ErrReplayDetected):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "alert token rejected",
		}
	case errors.Is(err, securitydomain.ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, securitydomain.ErrSettingsTooLarge):
		return http.StatusRequestEntityTooLarge, errorPayload{
			Type:    "settings_too_large",
			Message: "settings payload too large",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, streamerdomain.ErrInvalidStreamerID),
		errors.Is(err, streamerdomain.ErrInvalidDisplayName),
		errors.Is(err, txdomain.ErrInvalidStreamerID),
		errors.Is(err, txdomain.ErrInvalidAmount),
		errors.Is(err, txdomain.ErrInvalidReference),
		errors.Is(err, securitydomain.ErrInvalidStreamerID):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, streamerdomain.ErrNotFound),
		errors.Is(err, securitydomain.ErrSettingsNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}
