package core

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of failure categories surfaced to callers.
type ErrorKind string

const (
	KindModelLoad   ErrorKind = "model_load"
	KindPrediction  ErrorKind = "prediction"
	KindValidation  ErrorKind = "validation"
	KindPersistence ErrorKind = "persistence"
)

// Error carries a kind, the failing operation and, when useful, the input
// that caused it.
type Error struct {
	Kind  ErrorKind
	Op    string
	Input string
	Err   error
}

// Sentinels for errors.Is. Any *Error of the same kind matches.
var (
	ErrModelLoad   = &Error{Kind: KindModelLoad}
	ErrPrediction  = &Error{Kind: KindPrediction}
	ErrValidation  = &Error{Kind: KindValidation}
	ErrPersistence = &Error{Kind: KindPersistence}
)

func NewError(kind ErrorKind, op, input string, err error) *Error {
	return &Error{Kind: kind, Op: op, Input: input, Err: err}
}

func (e *Error) Error() string {
	msg := string(e.Kind) + " error"
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Input != "" {
		msg += fmt.Sprintf(" (input: %s)", e.Input)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Err == nil && t.Kind == e.Kind
}

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// InputOf returns the echoed input of the first *Error in err's chain.
func InputOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Input
	}
	return ""
}
