package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures surfaced to the presentation layer.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindNotFound   ErrorKind = "not_found"
	KindConflict   ErrorKind = "concurrency_conflict"
	KindStorage    ErrorKind = "storage"
)

// Sentinels for errors.Is matching against an *Error of the same kind.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("concurrency conflict")
	ErrStorage    = errors.New("storage error")
)

// Error is the typed error returned by every ledger operation.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Kind == KindStorage {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrConflict:
		return e.Kind == KindConflict
	case ErrStorage:
		return e.Kind == KindStorage
	}
	return false
}

// UserMessage is the text shown to the user. Storage failures never leak
// their cause.
func (e *Error) UserMessage() string {
	if e.Kind == KindStorage {
		return "the operation could not be completed, nothing was changed"
	}
	return e.Message
}

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func Validationf(format string, args ...any) *Error {
	return Validation(fmt.Sprintf(format, args...))
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// Storage wraps an infrastructure failure. A nil err yields nil.
func Storage(msg string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindStorage, Message: msg, Err: err}
}

// AsError extracts the typed error, wrapping anything foreign as a storage
// failure.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: KindStorage, Message: "storage failure", Err: err}
}
