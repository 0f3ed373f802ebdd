// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/kaon-rt/kaon/lambda/fatalerror"

	"github.com/stretchr/testify/assert"
)

type tracedError struct {
	msg   string
	stack string
}

func (e *tracedError) Error() string      { return e.msg }
func (e *tracedError) StackTrace() string { return e.stack }

func TestNewErrorPayload(t *testing.T) {
	payload := NewErrorPayload("some test error")
	assert.Equal(t, "some test error", payload.ErrorMessage)
	assert.Equal(t, ErrorTypeUnhandled, payload.ErrorType)
	assert.Equal(t, "unused", payload.StackTrace)
}

func TestErrorPayloadWireShape(t *testing.T) {
	payload := NewErrorPayload("boom")
	assert.JSONEq(t, `{"errorMessage":"boom","errorType":"Unhandled","stackTrace":"unused"}`, string(payload.Marshal()))
}

func TestErrorPayloadFromClassifiedError(t *testing.T) {
	err := fatalerror.New(fatalerror.PayloadError, errors.New("unexpected end of JSON input"))
	payload := ErrorPayloadFromError(fmt.Errorf("decode: %w", err))
	assert.Equal(t, "unexpected end of JSON input", payload.ErrorMessage)
	assert.Equal(t, ErrorTypeUnhandled, payload.ErrorType)
}

func TestErrorPayloadKeepsStackTrace(t *testing.T) {
	err := fatalerror.New(fatalerror.HandlerError, &tracedError{msg: "panic: nil map", stack: "goroutine 1 [running]"})
	payload := ErrorPayloadFromError(err)
	assert.Equal(t, "panic: nil map", payload.ErrorMessage)
	assert.Equal(t, "goroutine 1 [running]", payload.StackTrace)
}

func TestErrorPayloadFromNil(t *testing.T) {
	payload := ErrorPayloadFromError(nil)
	assert.Equal(t, string(fatalerror.Unknown), payload.ErrorMessage)
}
