// Package releaseerr defines the tagged errors returned by the release stages.
// Every stage failure carries a stable code so callers can branch on the kind of
// failure without matching on message text.
package releaseerr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Code identifies a failure kind. Codes are stable and machine-checkable.
type Code string

const (
	// CodeArchive is returned when the external archiver is missing, fails, or
	// produces no usable archive. Also used when assets are requested but absent.
	CodeArchive Code = "EZIP"

	// CodeStage is returned when the source tree cannot be staged or a version
	// token is missing from a file that must contain it.
	CodeStage Code = "ESTAGE"

	// CodeCleanup is returned when the staged tree survives a successful release.
	CodeCleanup Code = "ECLEANUP"

	// CodeInvalidConfig is returned for a plugin config that cannot be used.
	CodeInvalidConfig Code = "EINVALIDCONFIG"

	// CodeInvalidVersion is returned when the release version is not semver.
	CodeInvalidVersion Code = "EINVALIDVERSION"
)

// Error is a release failure with a stable code, a human message and optional
// key/value details for diagnostics.
type Error struct {
	Code    Code
	Message string
	Details map[string]string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%s", k, e.Details[k])
		}
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetail attaches a diagnostic key/value pair and returns e.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates an Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap tags err with code. The message describes what was being attempted.
func Wrap(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Is reports whether err carries code.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}
