package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidInput marks malformed requests. Never retried.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUpstreamUnavailable marks transient failures of Slack, Gmail, OpenAI or Weaviate.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrPersistence marks failed writes to the tag or summary store.
	ErrPersistence = errors.New("persistence failure")
	ErrNotFound    = errors.New("not found")
)

func InvalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func Upstream(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrUpstreamUnavailable, err)
}

func Persistence(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrPersistence, err)
}

// PartialDataWarning records a degraded channel or thread fetch. It is logged
// and collected by callers, never returned from the workflow.
type PartialDataWarning struct {
	Scope string // "channel" or "thread"
	ID    string
	Err   error
}

func (w *PartialDataWarning) Error() string {
	return fmt.Sprintf("partial data for %s %s: %v", w.Scope, w.ID, w.Err)
}

func (w *PartialDataWarning) Unwrap() error {
	return w.Err
}

// IsPartial reports whether err carries a PartialDataWarning.
func IsPartial(err error) bool {
	var w *PartialDataWarning
	return errors.As(err, &w)
}

// HTTPStatus maps an error to the status code returned by the trigger.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Kind returns a short machine-readable name for the error class.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "upstream_unavailable"
	case errors.Is(err, ErrPersistence):
		return "persistence_error"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "internal_error"
	}
}
