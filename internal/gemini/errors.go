package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"
)

// FailureKind classifies a transport failure for the evaluator and the
// optimization manager.
type FailureKind string

const (
	FailureTimeout     FailureKind = "timeout"
	FailureRateLimited FailureKind = "rate_limited"
	FailureServerError FailureKind = "server_error"
)

// TransportError wraps a failed generate call with its classification.
type TransportError struct {
	Kind FailureKind
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("gemini transport failure (%s): %v", e.Kind, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Retryable reports whether the failure is worth retrying at the path
// runner boundary. Rate limits and server errors back off and retry;
// a timeout already consumed the path's budget.
func (e *TransportError) Retryable() bool {
	return e.Kind == FailureRateLimited || e.Kind == FailureServerError
}

// classify maps an error from the genai SDK onto the transport taxonomy.
func classify(err error) *TransportError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &TransportError{Kind: FailureTimeout, Err: err}
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests:
			return &TransportError{Kind: FailureRateLimited, Err: err}
		case apiErr.Code >= 500:
			return &TransportError{Kind: FailureServerError, Err: err}
		}
	}
	return &TransportError{Kind: FailureServerError, Err: err}
}

// KindOf extracts the failure kind from an error chain, or "" when the
// error is not a transport failure.
func KindOf(err error) FailureKind {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Kind
	}
	return ""
}
