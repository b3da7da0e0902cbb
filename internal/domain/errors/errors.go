// Package errors defines the tagged error taxonomy shared by the data
// stores and their callers. Every failure that crosses a package boundary
// carries an explicit Kind so that callers branch on classification, not
// on string matching.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies an error for control flow.
type Kind string

const (
	// KindNotFound means the upstream confirmed the entity does not exist.
	// Never cached as a negative for volatile fields, never retried short-term.
	KindNotFound Kind = "NOT_FOUND"

	// KindUnclassified is a terminal business-rule dead-end, e.g. an article
	// with no site mapping. Surfaced distinctly, never retried.
	KindUnclassified Kind = "UNCLASSIFIED"

	// KindServiceUnavailable means the persistent layer or an upstream was
	// unreachable, errored or timed out.
	KindServiceUnavailable Kind = "SERVICE_UNAVAILABLE"

	// KindInvalidInput means a required identifier was missing or a config
	// was malformed. Rejected before any I/O.
	KindInvalidInput Kind = "INVALID_INPUT"

	// KindBadRequest carries a caller-facing message for a rejected request.
	KindBadRequest Kind = "BAD_REQUEST"
)

// Error is the tagged error type used across the service.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes two tagged errors of the same Kind match under errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if stderrors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// New creates a tagged error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a tagged error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap tags an underlying error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// NotFound creates a KindNotFound error.
func NotFound(message string) *Error { return New(KindNotFound, message) }

// NotFoundf creates a formatted KindNotFound error.
func NotFoundf(format string, args ...any) *Error { return Newf(KindNotFound, format, args...) }

// Unclassified creates a KindUnclassified error.
func Unclassified(message string) *Error { return New(KindUnclassified, message) }

// ServiceUnavailable creates a KindServiceUnavailable error.
func ServiceUnavailable(message string, err error) *Error {
	return Wrap(KindServiceUnavailable, message, err)
}

// InvalidInput creates a KindInvalidInput error.
func InvalidInput(message string) *Error { return New(KindInvalidInput, message) }

// BadRequest creates a KindBadRequest error with a caller-facing message.
func BadRequest(message string) *Error { return New(KindBadRequest, message) }

// KindOf returns the Kind of err, or "" when err carries no tag.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsNotFound reports whether err is tagged KindNotFound.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsUnclassified reports whether err is tagged KindUnclassified.
func IsUnclassified(err error) bool { return KindOf(err) == KindUnclassified }

// IsServiceUnavailable reports whether err is tagged KindServiceUnavailable.
func IsServiceUnavailable(err error) bool { return KindOf(err) == KindServiceUnavailable }

// IsInvalidInput reports whether err is tagged KindInvalidInput.
func IsInvalidInput(err error) bool { return KindOf(err) == KindInvalidInput }
