// Package apperr defines the closed set of errors that may cross the service
// boundary. Every failure surfaced to a caller is exactly one of these codes and
// always carries a message and a suggested action.
package apperr

import (
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// Code is the machine-readable error category.
type Code string

const (
	CodeSessionNotRunning Code = "BROWSER_NOT_RUNNING"
	CodeSessionCrashed    Code = "BROWSER_CRASHED"
	CodeSessionExpired    Code = "LOGIN_EXPIRED"
	CodeTimeout           Code = "TIMEOUT"
	CodeInvalidInput      Code = "INVALID_INPUT"
	CodeOperationFailed   Code = "CRAWL_FAILED"
)

// Error is the boundary error. Instances are only built through the
// constructors below, so all three fields are always populated.
type Error struct {
	Code    Code
	Message string
	Action  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

type wireError struct {
	Error   bool   `json:"error"`
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Action  string `json:"action"`
}

// MarshalJSON renders the wire shape {"error":true,"code","message","action"}.
func (e *Error) MarshalJSON() ([]byte, error) {
	return jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(wireError{
		Error:   true,
		Code:    e.Code,
		Message: e.Message,
		Action:  e.Action,
	})
}

// Map returns the error as a plain map, for callers assembling generic payloads.
func (e *Error) Map() map[string]any {
	return map[string]any{
		"error":   true,
		"code":    string(e.Code),
		"message": e.Message,
		"action":  e.Action,
	}
}

// SessionNotRunning is returned when an operation arrives while the browser is stopped.
func SessionNotRunning() *Error {
	return &Error{
		Code:    CodeSessionNotRunning,
		Message: "The browser session is not running.",
		Action:  "Restart the service, and check that Chrome is installed and can be launched.",
	}
}

// SessionCrashed is returned when the browser died and the single rebuild failed.
func SessionCrashed() *Error {
	return &Error{
		Code:    CodeSessionCrashed,
		Message: "The browser crashed and automatic recovery failed.",
		Action:  "Restart the service to recover the browser.",
	}
}

// SessionExpired is returned when the login probe reports the account signed out.
func SessionExpired() *Error {
	return &Error{
		Code:    CodeSessionExpired,
		Message: "The login session has expired and must be renewed.",
		Action:  "Run `notecrawl login` to sign in again, then restart the service.",
	}
}

// Timeout is returned when a tool exceeds its wall-clock budget.
func Timeout(tool string, budget time.Duration) *Error {
	return &Error{
		Code:    CodeTimeout,
		Message: fmt.Sprintf("%s timed out after %d seconds.", tool, int(budget.Seconds())),
		Action:  "Retry later, or lower the requested amount (max_count / max_notes).",
	}
}

// InvalidInput is returned when a caller-supplied parameter is rejected.
func InvalidInput(field, reason string) *Error {
	return &Error{
		Code:    CodeInvalidInput,
		Message: fmt.Sprintf("Parameter %s is invalid: %s", field, reason),
		Action:  fmt.Sprintf("Check the %s parameter and retry.", field),
	}
}

// OperationFailed is returned when a crawl could not produce a result.
func OperationFailed(detail string) *Error {
	return &Error{
		Code:    CodeOperationFailed,
		Message: fmt.Sprintf("Crawl failed: %s", detail),
		Action:  "Check that the URL is valid, or retry later.",
	}
}

// From folds any error into the taxonomy. Errors that are already classified pass
// through untouched; everything else becomes OperationFailed.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return OperationFailed(err.Error())
}

// HasCode reports whether err classifies as code.
func HasCode(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
