package engine

import (
	"errors"
	"fmt"
)

// ErrorKind identifies the category of a bring-up failure. Every kind is
// terminal for the current run; nothing above the health-probe layer retries.
type ErrorKind string

const (
	// KindDuplicateComponent indicates a component ID was registered twice.
	KindDuplicateComponent ErrorKind = "duplicate_component"

	// KindUnknownDependency indicates a component declared a dependency on
	// an identifier that has not been registered yet.
	KindUnknownDependency ErrorKind = "unknown_dependency"

	// KindUnknownComponent indicates a requested component is not in the
	// registry.
	KindUnknownComponent ErrorKind = "unknown_component"

	// KindCyclicDependency indicates the dependency graph contains a cycle.
	// Unreachable while registration forbids forward references, but Resolve
	// checks for it anyway.
	KindCyclicDependency ErrorKind = "cyclic_dependency"

	// KindDependencyNotSatisfied indicates a component was about to run while
	// one of its dependencies is not in the installed state.
	KindDependencyNotSatisfied ErrorKind = "dependency_not_satisfied"

	// KindConfigNotFound indicates an explicitly requested override file does
	// not exist.
	KindConfigNotFound ErrorKind = "config_not_found"

	// KindInvalidValue indicates a configuration key holds a value that
	// cannot be parsed or fails validation.
	KindInvalidValue ErrorKind = "invalid_value"

	// KindActionFailure indicates a component action returned an error. The
	// underlying cause is wrapped.
	KindActionFailure ErrorKind = "action_failure"

	// KindProbeTimeout indicates a health probe exhausted its attempt budget.
	KindProbeTimeout ErrorKind = "probe_timeout"

	// KindStateStore indicates the installed-state store failed to read or
	// write a marker.
	KindStateStore ErrorKind = "state_store"
)

// InstallError is the classified error type used throughout the engine.
// It carries the error kind, the component it concerns (when applicable),
// and the wrapped cause.
type InstallError struct {
	Kind      ErrorKind
	Component string
	Message   string
	Err       error
}

// Error implements the error interface.
func (e *InstallError) Error() string {
	msg := e.Message
	if e.Component != "" {
		msg = fmt.Sprintf("%s (component=%s)", msg, e.Component)
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, msg)
}

// Unwrap returns the underlying cause for error chain inspection.
func (e *InstallError) Unwrap() error {
	return e.Err
}

// Is matches on kind so callers can probe with errors.Is against a
// kind-only template.
func (e *InstallError) Is(target error) bool {
	t, ok := target.(*InstallError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// NewError creates a classified error.
func NewError(kind ErrorKind, message string, err error) *InstallError {
	return &InstallError{
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// WithComponent attaches the component ID the error concerns.
func (e *InstallError) WithComponent(id string) *InstallError {
	e.Component = id
	return e
}

// KindOf extracts the error kind from an error chain. Unclassified errors
// report KindActionFailure, matching how opaque action errors surface.
func KindOf(err error) ErrorKind {
	var e *InstallError
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindActionFailure
}

// ComponentOf extracts the component ID from an error chain, if any.
func ComponentOf(err error) string {
	var e *InstallError
	if errors.As(err, &e) {
		return e.Component
	}
	return ""
}

// IsKind reports whether the error chain contains an InstallError of the
// given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *InstallError
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
