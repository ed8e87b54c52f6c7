package ff

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrNotAuthenticated means no usable token is cached.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrSnapshotNotFound means an upstream snapshot file has not been written yet.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrEnvironmentNotFound means no environment in the snapshot has the requested name.
	ErrEnvironmentNotFound = errors.New("environment not found")
)

// APIError is a non-2xx response from the platform.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("platform API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// TransportError is a failure to reach the platform at all.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request to %s failed: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError is a 2xx response whose body could not be decoded.
type DecodeError struct {
	Endpoint string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s response: %v", e.Endpoint, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsFatal reports whether err must abort a multi-item fetch instead of
// skipping the current item. Network failures and rejected credentials affect
// every remaining item; any other API error or an undecodable page is specific
// to one parent resource.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te *TransportError
	if errors.As(err, &te) {
		return true
	}
	var de *DecodeError
	if errors.As(err, &de) {
		return false
	}
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.StatusCode == http.StatusUnauthorized || ae.StatusCode == http.StatusForbidden
	}
	return true
}

// ItemError records a skipped parent resource.
type ItemError struct {
	Resource string
	ID       string
	Err      error
}

func (e ItemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Resource, e.ID, e.Err)
}

// PartialError is returned alongside a written snapshot when some parent
// resources failed and were skipped.
type PartialError struct {
	Operation string
	Failures  []ItemError
}

func (e *PartialError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.Error()
	}
	return fmt.Sprintf("%s completed with %d skipped item(s): %s", e.Operation, len(e.Failures), strings.Join(parts, "; "))
}

// AsPartial returns the PartialError in err, if any.
func AsPartial(err error) (*PartialError, bool) {
	var pe *PartialError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// partial collects per-item failures during one fetch.
type partial struct {
	operation string
	failures  []ItemError
}

func (p *partial) add(resource, id string, err error) {
	p.failures = append(p.failures, ItemError{Resource: resource, ID: id, Err: err})
}

func (p *partial) err() error {
	if len(p.failures) == 0 {
		return nil
	}
	return &PartialError{Operation: p.operation, Failures: p.failures}
}
