// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"errors"

	"github.com/kaon-rt/kaon/lambda/fatalerror"
	"github.com/kaon-rt/kaon/lambda/jsoncodec"

	log "github.com/sirupsen/logrus"
)

// ErrorType is the errorType reported to the Runtime API.
type ErrorType string

const (
	// ErrorTypeUnhandled is the only error type this runtime reports.
	ErrorTypeUnhandled ErrorType = "Unhandled"

	// FunctionErrorTypeHeader carries the error type on error reports.
	FunctionErrorTypeHeader = "Lambda-Runtime-Function-Error-Type"

	// StackTraceUnused is reported when a failure carries no stack.
	StackTraceUnused = "unused"
)

// ErrorPayload is the error report body accepted by
// /runtime/invocation/{id}/error and /runtime/init/error.
type ErrorPayload struct {
	ErrorMessage string    `json:"errorMessage"`
	ErrorType    ErrorType `json:"errorType"`
	StackTrace   string    `json:"stackTrace"`
}

// NewErrorPayload returns an Unhandled payload for the given message.
func NewErrorPayload(message string) *ErrorPayload {
	return &ErrorPayload{
		ErrorMessage: message,
		ErrorType:    ErrorTypeUnhandled,
		StackTrace:   StackTraceUnused,
	}
}

type stackTracer interface {
	StackTrace() string
}

// ErrorPayloadFromError builds a payload from err. Classified errors
// contribute their message without the type prefix, and errors exposing
// a StackTrace() string keep it.
func ErrorPayloadFromError(err error) *ErrorPayload {
	if err == nil {
		return NewErrorPayload(string(fatalerror.Unknown))
	}

	message := err.Error()
	var fatal *fatalerror.Error
	if errors.As(err, &fatal) {
		message = fatal.Message()
	}

	payload := NewErrorPayload(message)
	var st stackTracer
	if errors.As(err, &st) && st.StackTrace() != "" {
		payload.StackTrace = st.StackTrace()
	}
	return payload
}

// Marshal serializes the payload for the wire.
func (p *ErrorPayload) Marshal() []byte {
	body, err := jsoncodec.Marshal(p)
	if err != nil {
		log.Panicf("Failed to marshal %#v: %s", *p, err)
	}
	return body
}
