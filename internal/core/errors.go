package core

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated is returned when no authenticated identity is present.
	ErrUnauthenticated = errors.New("not authenticated")

	// ErrNotFound is returned when a referenced document or namespace is absent.
	ErrNotFound = errors.New("not found")
)

// ValidationError reports a request rejected at the boundary. Validation
// failures never reach the pipeline.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// UpstreamError wraps a failure from an external collaborator (storage,
// vector index, embedding, or completion service).
type UpstreamError struct {
	Service string
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Upstream wraps err as an UpstreamError attributed to service.
func Upstream(service string, err error) error {
	return &UpstreamError{Service: service, Err: err}
}
