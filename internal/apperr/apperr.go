package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an application error for transport mapping.
type Kind int

const (
	KindValidation Kind = iota
	KindConflict
	KindImmutable
	KindAuthorization
	KindNotFound
	KindExternal
)

// Error is the error type every service returns to handlers.
// Fields carries field-level validation details when Kind is KindValidation.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// FieldValidation reports per-field problems.
func FieldValidation(fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: "validation_failed", Fields: fields}
}

func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

func Immutable(msg string) *Error {
	return &Error{Kind: KindImmutable, Message: msg}
}

func Authorization(msg string) *Error {
	return &Error{Kind: KindAuthorization, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// External wraps a payment-processor failure. The raw message is surfaced
// to the caller unchanged.
func External(msg string, cause error) *Error {
	return &Error{Kind: KindExternal, Message: msg, cause: cause}
}

// KindOf extracts the kind from err, or (0, false) when err is not an *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// Is reports whether err is an *Error of kind k.
func Is(err error, k Kind) bool {
	got, ok := KindOf(err)
	return ok && got == k
}
