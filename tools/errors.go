package tools

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Kind is the category of a tool failure.
type Kind string

const (
	// KindValidation is returned for bad input.
	KindValidation Kind = "validation"
	// KindNetwork is returned for transport failures and timeouts.
	KindNetwork Kind = "network"
	// KindUpstream is returned for non-2xx responses and malformed payloads.
	KindUpstream Kind = "upstream"
	// KindNotFound is returned when the requested resource does not exist.
	KindNotFound Kind = "not_found"
	// KindInternal is returned for everything else.
	KindInternal Kind = "internal"
)

// Error is the typed failure result of a tool.
// Message is the text returned to the model.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf returns a new Error with formatted message.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap returns a new Error with message "{prefix}: {err}".
func Wrap(kind Kind, err error, prefix string) *Error {
	return &Error{
		Kind:    kind,
		Message: prefix + ": " + err.Error(),
		Err:     err,
	}
}

// KindOf returns the Kind of err, or KindInternal
// if err is not a tool Error.
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindInternal
}

// IsKind returns true if err is a tool Error of kind.
func IsKind(err error, kind Kind) bool {
	var te *Error
	return errors.As(err, &te) && te.Kind == kind
}
