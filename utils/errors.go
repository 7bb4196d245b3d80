package utils

import (
	"errors"
	"net/http"

	"lillith/internal/apperrors"

	"github.com/gin-gonic/gin"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	ErrorCode string      `json:"error_code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}

// RespondWithError sends a standardized error response
func RespondWithError(c *gin.Context, statusCode int, errorCode, message string, details interface{}) {
	c.JSON(statusCode, ErrorResponse{
		ErrorCode: errorCode,
		Message:   message,
		Details:   details,
	})
}

// RespondWithBadRequest sends a 400 Bad Request error
func RespondWithBadRequest(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusBadRequest, "bad_request", message, details)
}

// RespondWithNotFound sends a 404 Not Found error
func RespondWithNotFound(c *gin.Context, message string) {
	RespondWithError(c, http.StatusNotFound, "not_found", message, nil)
}

// RespondWithInternalError sends a 500 Internal Server Error
func RespondWithInternalError(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusInternalServerError, "internal_error", message, details)
}

// RespondWithTooManyRequests sends a 429 Too Many Requests error
func RespondWithTooManyRequests(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusTooManyRequests, "rate_limit_exceeded", message, details)
}

// RespondWithBadGateway sends a 502 Bad Gateway error
func RespondWithBadGateway(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusBadGateway, "upstream_error", message, details)
}

// RespondWithAppError maps pipeline and provider errors onto HTTP responses.
func RespondWithAppError(c *gin.Context, err error) {
	var (
		dimErr      *apperrors.DimensionMismatchError
		providerErr *apperrors.ProviderError
	)

	switch {
	case errors.Is(err, apperrors.ErrCollectionNotFound):
		RespondWithNotFound(c, err.Error())
	case errors.Is(err, apperrors.ErrUnsupportedCollection),
		errors.Is(err, apperrors.ErrInvalidChunking):
		RespondWithBadRequest(c, err.Error(), nil)
	case errors.Is(err, apperrors.ErrCredentialsExhausted):
		RespondWithTooManyRequests(c, "All API keys are rate limited. Please try again later.", nil)
	case errors.As(err, &dimErr):
		RespondWithError(c, http.StatusConflict, "dimension_mismatch", err.Error(), gin.H{
			"collection": dimErr.Collection,
			"want":       dimErr.Want,
			"got":        dimErr.Got,
		})
	case errors.As(err, &providerErr):
		RespondWithBadGateway(c, "Upstream provider failed", gin.H{
			"provider":  providerErr.Provider,
			"operation": providerErr.Op,
		})
	default:
		RespondWithInternalError(c, "Internal server error", nil)
	}
}
