// File: internal/runner/errors.go
package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/xkilldash9x/casepilot/internal/browser"
	"github.com/xkilldash9x/casepilot/internal/credentials"
)

// SessionInitError means the browser session could not be started or could not
// reach the target. Every UI case of the batch fails with it.
type SessionInitError struct {
	Err error
}

func (e *SessionInitError) Error() string { return "Session initialization failed: " + e.Err.Error() }
func (e *SessionInitError) Unwrap() error { return e.Err }

// TransportError means an API request failed below the HTTP status layer.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("HTTP %s %s failed: %v", e.Method, e.URL, e.Err)
}
func (e *TransportError) Unwrap() error { return e.Err }

// UnsupportedTypeError names a declared type that has no driver.
type UnsupportedTypeError struct {
	Type string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("Runner for type '%s' not implemented yet.", e.Type)
}

// errPanic wraps a recovered panic value.
type errPanic struct{ value interface{} }

func (e errPanic) Error() string { return fmt.Sprintf("panic: %v", e.value) }

// messageFor renders err as a result message whose prefix tells timeout,
// assertion failure, transport failure and generic errors apart.
func messageFor(err error) string {
	var (
		lte  *browser.LocatorTimeoutError
		ae   *credentials.AssertionError
		te   *TransportError
		sie  *SessionInitError
		unsT *UnsupportedTypeError
	)
	switch {
	case errors.As(err, &sie), errors.As(err, &unsT):
		return err.Error()
	case errors.As(err, &lte):
		return "Timeout waiting for element: " + lte.Error()
	case errors.As(err, &ae):
		return "Assertion failed: " + ae.Error()
	case errors.As(err, &te):
		return "Transport error: " + te.Error()
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "Cancelled: " + err.Error()
	default:
		return "Error executing test: " + err.Error()
	}
}
