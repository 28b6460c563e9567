package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure so callers can tell security rejections
// from caller mistakes and from infrastructure trouble.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindInvalidFactor
	KindAlreadyEnabled
	KindNotEnabled
	KindNotFound
	KindTransient
	KindInvalidRequest
	KindUnauthorized
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidFactor:
		return "invalid_factor"
	case KindAlreadyEnabled:
		return "already_enabled"
	case KindNotEnabled:
		return "not_enabled"
	case KindNotFound:
		return "not_found"
	case KindTransient:
		return "transient"
	case KindInvalidRequest:
		return "invalid_request"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

// Error is the error type returned by every MFA operation.
type Error struct {
	Kind     ErrorKind
	Code     string
	Message  string
	Op       string
	Username string
	Err      error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on kind and code so that an error decorated with With still
// satisfies errors.Is against its sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// GetCode returns the machine readable error code
func (e *Error) GetCode() string {
	return e.Code
}

// GetMessage returns the human readable message
func (e *Error) GetMessage() string {
	return e.Message
}

// With returns a copy of the error carrying the operation, the username and
// the underlying cause.
func (e *Error) With(op, username string, err error) *Error {
	c := *e
	c.Op = op
	c.Username = username
	c.Err = err
	return &c
}

func newError(kind ErrorKind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

var (
	// ErrTOTPInvalid is returned when a TOTP or recovery code does not validate,
	// or when there is no active factor to validate against.
	ErrTOTPInvalid = newError(KindInvalidFactor, "E_TOTP_INVALID", "TOTP invalid")

	// ErrMFAAlreadyEnabled is returned when attach runs against an active factor
	ErrMFAAlreadyEnabled = newError(KindAlreadyEnabled, "E_MFA_ENABLED", "MFA already enabled")

	// ErrMFADisabled is returned when an operation needs an active factor and there is none
	ErrMFADisabled = newError(KindNotEnabled, "E_MFA_DISABLED", "MFA disabled")

	// ErrUserNotFound is returned when the username does not resolve to a user
	ErrUserNotFound = newError(KindNotFound, "E_USER_NOT_FOUND", "user not found")

	// ErrStorageUnavailable wraps every failure of the storage backend
	ErrStorageUnavailable = newError(KindTransient, "E_STORAGE_UNAVAILABLE", "storage unavailable")

	ErrInvalidRequestBody = newError(KindInvalidRequest, "E_INVALID_BODY", "invalid request body")
	ErrInvalidField       = newError(KindInvalidRequest, "E_INVALID_FIELD", "invalid field")
	ErrUnauthorized       = newError(KindUnauthorized, "E_UNAUTHORIZED", "unauthorized")
	ErrInternal           = newError(KindInternal, "E_INTERNAL", "internal server error")
	ErrRateLimited        = newError(KindInvalidRequest, "E_RATE_LIMITED", "too many requests")
)

// AsError extracts a *Error from err. Anything that is not a domain error is
// reported as ErrInternal wrapping err.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var derr *Error
	if errors.As(err, &derr) {
		return derr
	}
	return ErrInternal.With("", "", err)
}

// KindOf returns the kind of err, KindInternal for foreign errors.
func KindOf(err error) ErrorKind {
	return AsError(err).Kind
}

// IsTransient reports whether err is an infrastructure failure worth retrying.
func IsTransient(err error) bool {
	return err != nil && KindOf(err) == KindTransient
}
