package agent

import (
	"errors"
	"fmt"
)

// ErrorType classifies failures surfaced by the agent.
type ErrorType string

const (
	ErrorTypeConfiguration     ErrorType = "configuration"
	ErrorTypePolicyDenied      ErrorType = "policy_denied"
	ErrorTypeWorkerUnreachable ErrorType = "worker_unreachable"
	ErrorTypeWorkerProtocol    ErrorType = "worker_protocol"
	ErrorTypeUnknownTier       ErrorType = "unknown_tier"
)

type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Type, so errors.Is(err, ErrPolicyDenied) holds for any
// policy denial regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

func newError(t ErrorType, message string, err error) *Error {
	return &Error{Type: t, Message: message, Err: err}
}

var (
	ErrConfiguration     = newError(ErrorTypeConfiguration, "invalid configuration", nil)
	ErrPolicyDenied      = newError(ErrorTypePolicyDenied, "request denied", nil)
	ErrWorkerUnreachable = newError(ErrorTypeWorkerUnreachable, "worker unreachable", nil)
	ErrWorkerProtocol    = newError(ErrorTypeWorkerProtocol, "worker protocol error", nil)
	ErrUnknownTier       = newError(ErrorTypeUnknownTier, "unknown tier", nil)
)

func typeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ""
}

func IsConfigurationError(err error) bool { return typeOf(err) == ErrorTypeConfiguration }

func IsPolicyDenied(err error) bool { return typeOf(err) == ErrorTypePolicyDenied }

// IsWorkerError reports whether err came from the worker call, either
// because it could not be reached or because it answered badly.
func IsWorkerError(err error) bool {
	t := typeOf(err)
	return t == ErrorTypeWorkerUnreachable || t == ErrorTypeWorkerProtocol
}
