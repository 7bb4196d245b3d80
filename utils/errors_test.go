package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"lillith/internal/apperrors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondWithAppError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"collection not found", fmt.Errorf("%w: Quran", apperrors.ErrCollectionNotFound), http.StatusNotFound, "not_found"},
		{"unsupported collection", apperrors.ErrUnsupportedCollection, http.StatusBadRequest, "bad_request"},
		{"keys exhausted", fmt.Errorf("%w: %w", apperrors.ErrCredentialsExhausted, errors.New("429")), http.StatusTooManyRequests, "rate_limit_exceeded"},
		{"batch exhausted", &apperrors.BatchExhaustedError{Attempts: 2, Err: errors.New("quota")}, http.StatusTooManyRequests, "rate_limit_exceeded"},
		{"dimension mismatch", &apperrors.DimensionMismatchError{Collection: "Hadith", Want: 768, Got: 3072}, http.StatusConflict, "dimension_mismatch"},
		{"provider", &apperrors.ProviderError{Provider: "qdrant", Op: "query", Err: errors.New("unavailable")}, http.StatusBadGateway, "upstream_error"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			RespondWithAppError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.ErrorCode)
		})
	}
}
