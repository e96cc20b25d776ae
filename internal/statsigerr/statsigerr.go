// Package statsigerr defines the error taxonomy surfaced at the few
// boundaries that return errors at all: Initialize and ShutdownWithTimeout.
// Every other entry point degrades to a typed evaluation reason instead of
// failing (see internal/evaluator).
package statsigerr

import "fmt"

// Code identifies the category of failure, independent of the wrapped cause.
type Code string

const (
	CodeNetworkError            Code = "network_error"
	CodeGrpcError               Code = "grpc_error"
	CodeLockFailure             Code = "lock_failure"
	CodeUnstartedAdapter        Code = "unstarted_adapter"
	CodeSpecsAdapterLockFailure Code = "specs_adapter_lock_failure"
	CodeSpecsListenerNotSet     Code = "specs_listener_not_set"
	CodeThreadFailure           Code = "thread_failure"
	CodeCustomError             Code = "custom_error"
	CodeShutdownTimeout         Code = "shutdown_timeout"
	CodeParseError              Code = "parse_error"
)

// Err is the concrete error type returned across the SDK boundary.
type Err struct {
	Code Code
	Err  error
}

func (e *Err) Error() string {
	if e.Err == nil {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Err.Error())
}

func (e *Err) Unwrap() error { return e.Err }

// New wraps cause under code. cause may be nil.
func New(code Code, cause error) *Err {
	return &Err{Code: code, Err: cause}
}

// Newf builds a Err with a formatted message and no wrapped cause.
func Newf(code Code, format string, args ...any) *Err {
	return &Err{Code: code, Err: fmt.Errorf(format, args...)}
}

// Is reports whether err is a *Err with the given code, so callers can
// branch on category the way the Rust StatsigErr enum allowed match arms.
func Is(err error, code Code) bool {
	se, ok := err.(*Err)
	return ok && se.Code == code
}
