package strapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Error implements repositories.RepositoryError for CMS backed repositories.
type Error struct {
	op          string
	err         error
	status      int
	notFound    bool
	conflict    bool
	unavailable bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.op != "" {
		return fmt.Sprintf("%s: %v", e.op, e.err)
	}
	return e.err.Error()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

// StatusCode returns the upstream HTTP status, or zero for transport failures.
func (e *Error) StatusCode() int {
	if e == nil {
		return 0
	}
	return e.status
}

// IsNotFound reports whether the error represents a missing document.
func (e *Error) IsNotFound() bool {
	return e != nil && e.notFound
}

// IsConflict reports whether the error represents a conflicting update.
func (e *Error) IsConflict() bool {
	return e != nil && e.conflict
}

// IsUnavailable reports whether the error represents a transient backend outage.
func (e *Error) IsUnavailable() bool {
	return e != nil && e.unavailable
}

func newStatusError(op string, status int, detail string) *Error {
	e := &Error{
		op:     op,
		err:    fmt.Errorf("status %d: %s", status, detail),
		status: status,
	}
	switch {
	case status == http.StatusNotFound:
		e.notFound = true
	case status == http.StatusConflict || status == http.StatusPreconditionFailed:
		e.conflict = true
	case status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
		e.unavailable = true
	}
	return e
}

func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	e := &Error{op: op, err: err}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		e.unavailable = true
		return e
	}

	// Network-level failures are retryable from the caller's perspective.
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		e.unavailable = true
	}
	return e
}
