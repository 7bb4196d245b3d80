// Package apperrors defines the error taxonomy shared by the ingestion and
// retrieval layers. Callers inspect errors with errors.Is and errors.As.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	// ErrCollectionNotFound indicates a search against a collection that does not exist.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrUnsupportedCollection indicates a collection outside the searchable set.
	ErrUnsupportedCollection = errors.New("unsupported collection")

	// ErrEmptyResult marks an empty chunk or vector. It is logged and the
	// item dropped; ingestion never returns it.
	ErrEmptyResult = errors.New("empty result")

	// ErrNoCredentials indicates an empty credential pool.
	ErrNoCredentials = errors.New("no embedding credentials configured")

	// ErrCredentialsExhausted indicates every credential failed with a transient error.
	ErrCredentialsExhausted = errors.New("all API keys exhausted")

	// ErrInvalidChunking indicates chunk size/overlap that cannot make progress.
	ErrInvalidChunking = errors.New("invalid chunking parameters")
)

// ProviderError is a transport or auth failure from the embedding or
// vector-store provider.
type ProviderError struct {
	Provider string
	Op       string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// RateLimitedError is a provider failure classified as transient (rate limit,
// quota or rejected key). It triggers credential rotation.
type RateLimitedError struct {
	Credential int
	Err        error
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("credential #%d rate limited: %v", e.Credential+1, e.Err)
}

func (e *RateLimitedError) Unwrap() error { return e.Err }

// BatchExhaustedError reports that every credential in the pool failed for one batch.
type BatchExhaustedError struct {
	Source     string
	BatchIndex int
	Attempts   int
	Err        error
}

func (e *BatchExhaustedError) Error() string {
	return fmt.Sprintf("batch %d of %s: all %d credentials exhausted: %v", e.BatchIndex, e.Source, e.Attempts, e.Err)
}

func (e *BatchExhaustedError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrCredentialsExhausted) match a BatchExhaustedError.
func (e *BatchExhaustedError) Is(target error) bool {
	return target == ErrCredentialsExhausted
}

// DimensionMismatchError is raised when a vector or collection has the wrong
// dimensionality. Per chunk it is logged and the chunk dropped; per
// collection it aborts ingestion.
type DimensionMismatchError struct {
	Collection string
	Want       int
	Got        int
}

func (e *DimensionMismatchError) Error() string {
	if e.Collection == "" {
		return fmt.Sprintf("dimensionality mismatch: want %d, got %d", e.Want, e.Got)
	}
	return fmt.Sprintf("collection %q dimensionality mismatch: want %d, got %d", e.Collection, e.Want, e.Got)
}
