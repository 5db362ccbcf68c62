package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type Error struct {
	Status int
	Code   Code
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return string(e.Code)
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

// ID is the wire form of the code, e.g. "study.id.does.not.exist".
func (e *Error) ID() string {
	if e == nil {
		return ""
	}
	return e.Code.ID()
}

func New(status int, code Code, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// E builds an error for code with a formatted message; the status comes from
// the code table.
func E(code Code, format string, args ...any) *Error {
	return &Error{Status: code.Status(), Code: code, Err: fmt.Errorf(format, args...)}
}

// Wrap attaches code to an underlying cause.
func Wrap(code Code, err error, format string, args ...any) *Error {
	msg := fmt.Sprintf(format, args...)
	if err != nil {
		return &Error{Status: code.Status(), Code: code, Err: fmt.Errorf("%s: %w", msg, err)}
	}
	return &Error{Status: code.Status(), Code: code, Err: errors.New(msg)}
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) && ae != nil {
		return ae, true
	}
	return nil, false
}

func CodeOf(err error) Code {
	if ae, ok := As(err); ok {
		return ae.Code
	}
	return ""
}

func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

// StatusOf maps err to an HTTP status, 500 when err carries no code.
func StatusOf(err error) int {
	if ae, ok := As(err); ok {
		if ae.Status != 0 {
			return ae.Status
		}
		return ae.Code.Status()
	}
	return http.StatusInternalServerError
}

func (c Code) ID() string {
	return strings.ReplaceAll(strings.ToLower(string(c)), "_", ".")
}
