package model

import (
	"context"
	"errors"
)

// ErrorKind tags every error surfaced to callers.
type ErrorKind string

const (
	KindValidation         ErrorKind = "validation"
	KindNotFound           ErrorKind = "not_found"
	KindAlreadyExists      ErrorKind = "already_exists"
	KindInvalidCredentials ErrorKind = "invalid_credentials"
	KindInvalidToken       ErrorKind = "invalid_token"
	KindStorage            ErrorKind = "storage"
	KindInternal           ErrorKind = "internal"
)

var (
	ErrValidation         = errors.New("validation error")
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrStorage            = errors.New("storage unavailable")
	ErrStorageTimeout     = &timeoutError{}
)

type timeoutError struct{}

func (*timeoutError) Error() string        { return "storage timeout" }
func (*timeoutError) Is(target error) bool { return target == ErrStorage }

var kindSentinels = map[ErrorKind]error{
	KindValidation:         ErrValidation,
	KindNotFound:           ErrNotFound,
	KindAlreadyExists:      ErrAlreadyExists,
	KindInvalidCredentials: ErrInvalidCredentials,
	KindInvalidToken:       ErrInvalidToken,
	KindStorage:            ErrStorage,
}

// Error is a tagged error with a caller-safe message.
// Err holds the underlying cause for logging and is never shown to callers.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Kind != KindStorage {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrNotFound) and friends work for tagged errors.
func (e *Error) Is(target error) bool {
	if target == ErrStorageTimeout {
		return false
	}
	sentinel, ok := kindSentinels[e.Kind]
	return ok && sentinel == target
}

// NewValidationError reports malformed caller input.
func NewValidationError(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// NewNotFoundError reports a missing entity.
func NewNotFoundError(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// NewAlreadyExistsError reports a uniqueness violation.
func NewAlreadyExistsError(msg string) *Error {
	return &Error{Kind: KindAlreadyExists, Message: msg}
}

// NewInvalidCredentialsError is the single answer for every failed login.
func NewInvalidCredentialsError() *Error {
	return &Error{Kind: KindInvalidCredentials, Message: "invalid email or password"}
}

// NewInvalidTokenError reports a token that must not be honored.
func NewInvalidTokenError(reason string, cause error) *Error {
	return &Error{Kind: KindInvalidToken, Message: "invalid token: " + reason, Err: cause}
}

// NewStorageError hides backend detail behind a generic message.
// Deadline and cancellation causes become the timeout variant.
func NewStorageError(cause error) *Error {
	if errors.Is(cause, context.DeadlineExceeded) || errors.Is(cause, context.Canceled) {
		return &Error{Kind: KindStorage, Message: ErrStorageTimeout.Error(), Err: &wrapped{sentinel: ErrStorageTimeout, cause: cause}}
	}
	return &Error{Kind: KindStorage, Message: ErrStorage.Error(), Err: cause}
}

type wrapped struct {
	sentinel error
	cause    error
}

func (w *wrapped) Error() string   { return w.sentinel.Error() + ": " + w.cause.Error() }
func (w *wrapped) Unwrap() []error { return []error{w.sentinel, w.cause} }

// KindOf returns the tag of err. Untagged errors are KindInternal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Kind
	}
	for kind, sentinel := range kindSentinels {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return KindInternal
}

// IsDomainError reports whether err is an expected outcome rather than an infrastructure failure.
func IsDomainError(err error) bool {
	switch KindOf(err) {
	case KindValidation, KindNotFound, KindAlreadyExists, KindInvalidCredentials, KindInvalidToken:
		return true
	default:
		return false
	}
}
