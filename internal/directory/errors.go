package directory

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnavailable marks failures where no response was received from the
// directory at all. Such errors are reported as a *StatusError with status 500.
var ErrUnavailable = errors.New("directory: unavailable")

// StatusError is returned when the directory could not be reached, answered
// with a non-200 status, or answered 200 with nothing in the body.
type StatusError struct {
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("directory: %s (status %d): %v", e.Message, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("directory: %s (status %d)", e.Message, e.StatusCode)
}

// Unwrap returns the underlying cause, if any.
func (e *StatusError) Unwrap() error {
	return e.Err
}

// DecodeError is returned when a non-empty response body does not decode into
// the expected shape. It is never a *StatusError.
type DecodeError struct {
	Op   string
	Body int // body length in bytes
	Err  error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("directory: %s: decode %d-byte body: %v", e.Op, e.Body, e.Err)
}

// Unwrap returns the underlying JSON error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// StatusCode reports the directory status carried by err, if err wraps a
// *StatusError.
func StatusCode(err error) (int, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode, true
	}
	return 0, false
}

// IsNotFound reports whether err is the directory saying the user does not
// exist.
func IsNotFound(err error) bool {
	code, ok := StatusCode(err)
	return ok && code == http.StatusNotFound
}
