package core

import (
	"errors"
	"fmt"
)

// ErrNotConfigured means no API credential is present; no remote call was
// attempted.
var ErrNotConfigured = errors.New("language model API key is not configured")

// UpstreamError means the remote service answered with a failure. The body is
// kept for diagnostics only and must not be shown verbatim to end users.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("language model upstream error (status %d): %s", e.Status, e.Body)
}

// TransportError means the remote service could not be reached at all:
// timeout, DNS failure, connection reset.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("language model transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
