// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package fatalerror

// This package defines the failure kinds the runtime distinguishes between.
// Separate package for namespacing

import (
	"errors"
	"fmt"
)

// ErrorType classifies a runtime failure
type ErrorType string

const (
	ConfigurationError ErrorType = "Runtime.ConfigurationError" // missing or malformed control-plane endpoint
	ProtocolError      ErrorType = "Runtime.ProtocolError"      // malformed URI or invalid header text
	TransportError     ErrorType = "Runtime.TransportError"     // control plane unreachable
	PayloadError       ErrorType = "Function.PayloadError"      // event body failed to decode
	HandlerError       ErrorType = "Function.HandlerError"      // user function signalled failure
	ReportingError     ErrorType = "Runtime.ReportingError"     // success report rejected or not delivered
	Unknown            ErrorType = "Unknown"
)

// Fatal reports whether a failure of this type ends the runtime loop.
// Payload and handler failures are local to a single invocation.
func (t ErrorType) Fatal() bool {
	switch t {
	case PayloadError, HandlerError:
		return false
	default:
		return true
	}
}

// Error is a classified runtime failure.
type Error struct {
	Type ErrorType
	Err  error
}

// New wraps err with the given type.
func New(t ErrorType, err error) *Error {
	return &Error{Type: t, Err: err}
}

// Errorf formats a new classified error, supporting %w.
func Errorf(t ErrorType, format string, args ...interface{}) *Error {
	return &Error{Type: t, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Type)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Err.Error())
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message returns the wrapped error text without the type prefix.
func (e *Error) Message() string {
	if e.Err == nil {
		return string(e.Type)
	}
	return e.Err.Error()
}

// TypeOf returns the type of the first classified error in err's chain, or Unknown.
func TypeOf(err error) ErrorType {
	var fatal *Error
	if errors.As(err, &fatal) {
		return fatal.Type
	}
	return Unknown
}

// Is reports whether err carries the given type.
func Is(err error, t ErrorType) bool {
	return err != nil && TypeOf(err) == t
}
