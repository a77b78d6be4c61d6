package models

import "fmt"

// FailureKind classifies a fetch failure for retry decisions.
type FailureKind string

const (
	FailureTimeout     FailureKind = "timeout"
	FailureRateLimited FailureKind = "rate_limited"
	FailureInvalid     FailureKind = "invalid"
	FailureUnknown     FailureKind = "unknown"
)

// Retryable reports whether the failure class is transient and worth another
// attempt. Invalid requests never are.
func (k FailureKind) Retryable() bool {
	switch k {
	case FailureTimeout, FailureRateLimited, FailureUnknown:
		return true
	default:
		return false
	}
}

// FetchError reports a failed upstream fetch after the retry budget settled.
type FetchError struct {
	Kind     FailureKind
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("fetch failed (%s) after %d attempt(s)", e.Kind, e.Attempts)
	}
	return fmt.Sprintf("fetch failed (%s) after %d attempt(s): %v", e.Kind, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError constructs a FetchError with a sane kind default.
func NewFetchError(kind FailureKind, attempts int, err error) *FetchError {
	if kind == "" {
		kind = FailureUnknown
	}
	return &FetchError{Kind: kind, Attempts: attempts, Err: err}
}

// ValidationError reports rejected caller input. Never retried.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, msg string) error {
	return &ValidationError{Field: field, Msg: msg}
}

// ConfigError reports an out-of-range setting. Fatal at startup of a call.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "invalid configuration: " + e.Msg
	}
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Msg)
}

// NewConfigError constructs a ConfigError.
func NewConfigError(field, msg string) error {
	return &ConfigError{Field: field, Msg: msg}
}

// ReconciliationError marks a keyword whose series could not be assembled.
// It downgrades the keyword to "no data" without aborting the batch.
type ReconciliationError struct {
	Keyword string
	Msg     string
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("reconcile %q: %s", e.Keyword, e.Msg)
}
