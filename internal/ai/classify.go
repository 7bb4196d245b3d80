package ai

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"lillith/internal/apperrors"

	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrorClass decides whether a provider failure is worth retrying on another key.
type ErrorClass int

const (
	// ClassFatal errors propagate immediately.
	ClassFatal ErrorClass = iota
	// ClassTransient errors (rate limit, quota, rejected key) rotate the credential.
	ClassTransient
)

func (c ErrorClass) String() string {
	if c == ClassTransient {
		return "transient"
	}
	return "fatal"
}

// transientMarkers are matched case-insensitively against the error text.
var transientMarkers = []string{
	"quota",
	"resource_exhausted",
	"resource exhausted",
	"key not valid",
	"invalid key",
	"api_key_invalid",
}

// statusTooManyRequests matches a standalone 429, not one inside an address or port.
var statusTooManyRequests = regexp.MustCompile(`(?:^|[^\w.:])429(?:\W|$)`)

// ClassifyProviderError maps an embedding or chat provider error to its class.
// Cancellation is always fatal.
func ClassifyProviderError(err error) ErrorClass {
	if err == nil {
		return ClassFatal
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ClassFatal
	}

	var rl *apperrors.RateLimitedError
	if errors.As(err, &rl) {
		return ClassTransient
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusTooManyRequests, http.StatusUnauthorized, http.StatusForbidden:
			return ClassTransient
		}
	}

	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.ResourceExhausted, codes.Unauthenticated, codes.PermissionDenied:
			return ClassTransient
		}
	}

	msg := strings.ToLower(err.Error())
	if statusTooManyRequests.MatchString(msg) {
		return ClassTransient
	}
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return ClassTransient
		}
	}
	return ClassFatal
}
