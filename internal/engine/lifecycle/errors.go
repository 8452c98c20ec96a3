package lifecycle

import (
	"fmt"
	"time"
)

// InitTimeoutError reports an init hook that exceeded its wall-clock
// deadline. The hook's context is cancelled and the straggler abandoned.
type InitTimeoutError struct {
	Type    string
	Timeout time.Duration
}

// Error implements error.
func (e *InitTimeoutError) Error() string {
	return fmt.Sprintf("service %s: initialization exceeded %s", e.Type, e.Timeout)
}

// InitFaultError reports an error or panic raised inside an init hook.
type InitFaultError struct {
	Type  string
	Cause error
}

// Error implements error.
func (e *InitFaultError) Error() string {
	return fmt.Sprintf("service %s: initialization fault: %v", e.Type, e.Cause)
}

// Unwrap exposes the cause.
func (e *InitFaultError) Unwrap() error {
	return e.Cause
}

// DependencyFailedError reports a service failed by propagation: its
// required dependency failed, so its init hook was never invoked.
type DependencyFailedError struct {
	Type       string
	Dependency string
}

// Error implements error.
func (e *DependencyFailedError) Error() string {
	return fmt.Sprintf("service %s: required dependency %s failed", e.Type, e.Dependency)
}

// ShutdownFaultError reports a shutdown hook that faulted or timed out.
// It is recorded in the shutdown report and never aborts the sequence.
type ShutdownFaultError struct {
	Type     string
	Cause    error
	TimedOut bool
}

// Error implements error.
func (e *ShutdownFaultError) Error() string {
	if e.TimedOut {
		return fmt.Sprintf("service %s: shutdown timed out: %v", e.Type, e.Cause)
	}
	return fmt.Sprintf("service %s: shutdown fault: %v", e.Type, e.Cause)
}

// Unwrap exposes the cause.
func (e *ShutdownFaultError) Unwrap() error {
	return e.Cause
}

// RestartNotSupportedError reports a restart request against a
// registration with SupportsRestart unset. The service state is left
// untouched.
type RestartNotSupportedError struct {
	Type string
}

// Error implements error.
func (e *RestartNotSupportedError) Error() string {
	return fmt.Sprintf("service %s: restart not supported", e.Type)
}
