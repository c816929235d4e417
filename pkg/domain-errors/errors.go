// Package domainerrors carries the coded error taxonomy shared by every layer.
// Stores and executors wrap infrastructure failures with a code so the robot
// lifecycle can decide what is fatal for a run and what is fatal for one item.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a failure.
type Code string

const (
	// CodeConfiguration covers unknown check names, missing registry entries,
	// missing control-table rows and unregistered notification workers.
	CodeConfiguration Code = "configuration"

	// CodeDataSource covers connection failures and rejected queries.
	CodeDataSource Code = "data_source"

	// CodeDataShape covers payloads that lack an expected field or do not match
	// the pattern the renderer relies on.
	CodeDataShape Code = "data_shape"

	// CodeInternal is the fallback for anything unclassified.
	CodeInternal Code = "internal"
)

// Error is a coded error. Message must never contain credentials.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error without an underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf is New with formatting.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to err. A nil err yields nil.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf returns the outermost code in the chain, or CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether any coded error in the chain carries code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var de *Error
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}
