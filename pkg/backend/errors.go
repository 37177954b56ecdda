package backend

import (
	"errors"
	"fmt"
)

var (
	// ErrStatus is returned when the completion server answers with a non-2xx status.
	ErrStatus = errors.New("unexpected status from completion server")
	// ErrTimeout is reported when a pooled request runs past its deadline.
	ErrTimeout = errors.New("request timed out")
	// ErrCanceled is reported when a pooled request is canceled before it completes.
	ErrCanceled = errors.New("request canceled")
	// ErrDecode is returned when a response body is not valid JSON.
	ErrDecode = errors.New("failed to decode completion server response")
)

// StatusError carries the HTTP status code of a failed request.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: %d", ErrStatus, e.Code)
	}
	return fmt.Sprintf("%s: %d: %s", ErrStatus, e.Code, e.Body)
}

func (e *StatusError) Unwrap() error { return ErrStatus }
