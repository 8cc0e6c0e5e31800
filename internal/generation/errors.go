package generation

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// AttemptError is the outcome of one failed provider attempt. Retryable
// failures move the fold to the next provider; fatal ones stop it.
type AttemptError struct {
	Model     string
	Retryable bool
	Err       error
}

func (e *AttemptError) Error() string {
	kind := "fatal"
	if e.Retryable {
		kind = "retryable"
	}
	return fmt.Sprintf("model %s (%s): %v", e.Model, kind, e.Err)
}

func (e *AttemptError) Unwrap() error { return e.Err }

// QuotaError is returned when every provider failed retryably, or the last
// one reported an exhausted quota.
type QuotaError struct {
	Attempts []*AttemptError
}

func (e *QuotaError) Error() string {
	if len(e.Attempts) == 0 {
		return "generation unavailable: no providers configured"
	}
	return fmt.Sprintf("generation unavailable after %d attempts: %v", len(e.Attempts), e.Attempts[len(e.Attempts)-1])
}

func (e *QuotaError) Unwrap() error {
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[len(e.Attempts)-1]
}

// SchemaError reports a response that did not contain the expected JSON
// object. It is never retried.
type SchemaError struct {
	Reason string
	Err    error
}

func (e *SchemaError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("schema error: %s: %v", e.Reason, e.Err)
	}
	return "schema error: " + e.Reason
}

func (e *SchemaError) Unwrap() error { return e.Err }

// StatusError is an upstream HTTP failure reported by a provider.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.Code, e.Message)
}

// ErrEmptyResponse is returned by providers that answered with no text.
var ErrEmptyResponse = errors.New("empty response")

// retryableStatus lists the upstream statuses that move on to the next model.
var retryableStatus = map[int]bool{
	http.StatusNotFound:            true,
	http.StatusRequestTimeout:      true,
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Retryable classifies a provider error. parent is the caller's context:
// its cancellation is always fatal, while a deadline on the attempt alone
// is retryable.
func Retryable(parent context.Context, err error) bool {
	if err == nil || parent.Err() != nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return retryableStatus[se.Code]
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var ne net.Error
	return errors.As(err, &ne)
}

// IsQuota reports whether err is an upstream rate-limit response.
func IsQuota(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusTooManyRequests
}
