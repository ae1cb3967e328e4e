package moderation

import (
	"errors"
	"fmt"
	"strings"
)

// Code classifies every failure the pipeline, executor and cascade report.
type Code string

const (
	CodeInvalidCommand      Code = "invalid_command"
	CodePermissionDenied    Code = "permission_denied"
	CodeInsufficientRank    Code = "insufficient_rank"
	CodeOwnerProtected      Code = "owner_protected"
	CodeSelfActionForbidden Code = "self_action_forbidden"
	CodeNotFound            Code = "not_found"
	CodeAdapterForbidden    Code = "adapter_forbidden"
	CodeTransient           Code = "transient"
	CodeInternal            Code = "internal"
)

// Error is the typed result of a failed authorization or execution. Message
// is safe to show to the requester verbatim.
type Error struct {
	Code    Code
	Message string
	// Required lists the capabilities that would have satisfied a
	// PermissionDenied check.
	Required []Capability
	Err      error
}

// Sentinels for errors.Is; only the Code is compared.
var (
	ErrInvalidCommand      = &Error{Code: CodeInvalidCommand}
	ErrPermissionDenied    = &Error{Code: CodePermissionDenied}
	ErrInsufficientRank    = &Error{Code: CodeInsufficientRank}
	ErrOwnerProtected      = &Error{Code: CodeOwnerProtected}
	ErrSelfActionForbidden = &Error{Code: CodeSelfActionForbidden}
	ErrNotFound            = &Error{Code: CodeNotFound}
	ErrAdapterForbidden    = &Error{Code: CodeAdapterForbidden}
	ErrTransient           = &Error{Code: CodeTransient}
	ErrInternal            = &Error{Code: CodeInternal}
)

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error carrying the same Code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Retryable reports whether the caller may retry the same command.
func (e *Error) Retryable() bool { return e.Code == CodeTransient }

// Hint is a short follow-up suggestion for platform-layer failures.
func (e *Error) Hint() string {
	switch e.Code {
	case CodeTransient:
		return "the platform did not respond; try again in a moment"
	case CodeAdapterForbidden:
		return "check that the bot's role is above the target and holds the needed permissions"
	}
	return ""
}

// CodeOf extracts the Code of err, or CodeInternal for foreign errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

func invalid(format string, args ...interface{}) *Error {
	return &Error{Code: CodeInvalidCommand, Message: fmt.Sprintf(format, args...)}
}

func denied(kind Kind, required [][]Capability) *Error {
	var flat []Capability
	names := make([]string, 0, len(required))
	for _, set := range required {
		flat = append(flat, set...)
		parts := make([]string, 0, len(set))
		for _, c := range set {
			parts = append(parts, string(c))
		}
		names = append(names, strings.Join(parts, "+"))
	}
	return &Error{
		Code:     CodePermissionDenied,
		Message:  fmt.Sprintf("%s requires one of: %s", kind, strings.Join(names, ", ")),
		Required: flat,
	}
}
