package ai

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"lillith/internal/apperrors"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestClassifyProviderError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"nil", nil, ClassFatal},
		{"http 429 text", errors.New("googleapi: Error 429: Too Many Requests"), ClassTransient},
		{"quota", errors.New("Quota exceeded for quota metric"), ClassTransient},
		{"resource exhausted text", errors.New("RESOURCE_EXHAUSTED: try later"), ClassTransient},
		{"key not valid", errors.New("API key not valid. Please pass a valid API key."), ClassTransient},
		{"api_key_invalid", errors.New("reason: API_KEY_INVALID"), ClassTransient},
		{"grpc resource exhausted", status.Error(codes.ResourceExhausted, "slow down"), ClassTransient},
		{"grpc unauthenticated", status.Error(codes.Unauthenticated, "bad key"), ClassTransient},
		{"grpc permission denied", status.Error(codes.PermissionDenied, "denied"), ClassTransient},
		{"grpc internal", status.Error(codes.Internal, "boom"), ClassFatal},
		{"googleapi 403", &googleapi.Error{Code: 403}, ClassTransient},
		{"googleapi 500", &googleapi.Error{Code: 500, Message: "backend error"}, ClassFatal},
		{"wrapped provider error", &apperrors.ProviderError{Provider: "gemini", Op: "batch_embed", Err: status.Error(codes.ResourceExhausted, "x")}, ClassTransient},
		{"rate limited", &apperrors.RateLimitedError{Err: errors.New("x")}, ClassTransient},
		{"network", errors.New("connection refused"), ClassFatal},
		{"bare 429 status", errors.New("429 Too Many Requests"), ClassTransient},
		{"429 inside port", errors.New("dial tcp 10.0.0.4:4290: connect: connection refused"), ClassFatal},
		{"429 as port", errors.New("dial tcp 10.0.0.4:429: i/o timeout"), ClassFatal},
		{"429 inside number", errors.New("read 14290 bytes: unexpected EOF"), ClassFatal},
		{"canceled", fmt.Errorf("embed: %w", context.Canceled), ClassFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyProviderError(tt.err))
		})
	}
}
