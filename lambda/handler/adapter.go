// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package handler adapts a typed user function to the raw payloads the
// runtime loop moves around.
package handler

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/kaon-rt/kaon/lambda/fatalerror"
	"github.com/kaon-rt/kaon/lambda/interop"
	"github.com/kaon-rt/kaon/lambda/jsoncodec"
)

// Func is the user function: one decoded request in, one response out.
type Func[Req, Resp any] func(ctx context.Context, req Req, ic interop.Context) (Resp, error)

// Adapter wraps exactly one Func.
type Adapter[Req, Resp any] struct {
	fn Func[Req, Resp]
}

// New returns an adapter for fn.
func New[Req, Resp any](fn Func[Req, Resp]) *Adapter[Req, Resp] {
	return &Adapter[Req, Resp]{fn: fn}
}

// Run invokes the function and returns its result unchanged.
func (a *Adapter[Req, Resp]) Run(ctx context.Context, req Req, ic interop.Context) (Resp, error) {
	return a.fn(ctx, req, ic)
}

// Decode parses an event payload into the request type.
func (a *Adapter[Req, Resp]) Decode(payload []byte) (Req, error) {
	var req Req
	if err := jsoncodec.Unmarshal(payload, &req); err != nil {
		return req, err
	}
	return req, nil
}

// Encode serializes a response for the Runtime API.
func (a *Adapter[Req, Resp]) Encode(resp Resp) ([]byte, error) {
	return jsoncodec.Marshal(resp)
}

// Handle decodes payload, runs the function and encodes its result.
// Decode failures are PayloadErrors; function failures, encode failures
// and panics are HandlerErrors.
func (a *Adapter[Req, Resp]) Handle(ctx context.Context, payload []byte, ic interop.Context) (body []byte, err error) {
	req, err := a.Decode(payload)
	if err != nil {
		return nil, fatalerror.New(fatalerror.PayloadError, err)
	}

	resp, err := a.safeRun(ctx, req, ic)
	if err != nil {
		return nil, fatalerror.New(fatalerror.HandlerError, err)
	}

	body, err = a.Encode(resp)
	if err != nil {
		return nil, fatalerror.Errorf(fatalerror.HandlerError, "failed to encode response: %w", err)
	}
	return body, nil
}

func (a *Adapter[Req, Resp]) safeRun(ctx context.Context, req Req, ic interop.Context) (resp Resp, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &PanicError{Value: v, Stack: string(debug.Stack())}
		}
	}()
	return a.Run(ctx, req, ic)
}

// PanicError is a recovered handler panic.
type PanicError struct {
	Value interface{}
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// StackTrace is picked up by the error payload builder.
func (e *PanicError) StackTrace() string {
	return e.Stack
}
