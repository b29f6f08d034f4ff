// SPDX-License-Identifier: Apache-2.0

// Package errs defines the closed tagged-variant error taxonomy shared by
// every collaborator in the merge core. Callers match on Code rather than on
// Go type, matching the teacher's "stable string code" error convention.
package errs

import "fmt"

// Code is a stable, programmatically-dispatchable error tag.
type Code string

const (
	NotFound          Code = "NotFound"
	AlreadyExists     Code = "AlreadyExists"
	UnmergedPaths     Code = "UnmergedPaths"
	MergeConflict     Code = "MergeConflict"
	MergeNotSupported Code = "MergeNotSupported"
	FastForward       Code = "FastForward"
	MissingName       Code = "MissingName"
	MissingEmail      Code = "MissingEmail"
	MissingParameter  Code = "MissingParameter"
	InvalidRef        Code = "InvalidRef"
	NoCommit          Code = "NoCommit"
	DetachedHead      Code = "DetachedHead"
	CheckoutConflict  Code = "CheckoutConflict"
	LockContention    Code = "LockContention"
)

// Error is the single error currency of the module. Op names the
// operation that raised it (e.g. "git.merge"), matching every caller
// expectation in §7.
type Error struct {
	Code    Code
	Op      string
	Message string
	Paths   []string // populated for MergeConflict
	Param   string   // populated for MissingParameter
	Wrapped error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if len(e.Paths) > 0 {
		msg = fmt.Sprintf("%s %v", msg, e.Paths)
	}
	if e.Param != "" {
		msg = fmt.Sprintf("%s (parameter %q)", msg, e.Param)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Wrapped }

// Is allows errors.Is(err, &Error{Code: X}) style matching on code alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func New(code Code, op, message string) *Error {
	return &Error{Code: code, Op: op, Message: message}
}

func Wrap(code Code, op, message string, err error) *Error {
	return &Error{Code: code, Op: op, Message: message, Wrapped: err}
}

func Conflict(op string, paths []string) *Error {
	return &Error{Code: MergeConflict, Op: op, Message: "unresolved conflicts", Paths: paths}
}

func MissingParam(op, param string) *Error {
	return &Error{Code: MissingParameter, Op: op, Message: "missing required parameter", Param: param}
}

// CodeOf extracts the Code from err if it (or something it wraps) is an
// *Error, the zero Code otherwise.
func CodeOf(err error) Code {
	var e *Error
	for err != nil {
		if ae, ok := err.(*Error); ok {
			e = ae
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	if e == nil {
		return ""
	}
	return e.Code
}
