// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package runtimeapi

import (
	"net/http"
	"unicode/utf8"

	"github.com/kaon-rt/kaon/lambda/fatalerror"
	"github.com/kaon-rt/kaon/lambda/interop"
	"github.com/kaon-rt/kaon/lambda/telemetry"
)

// Lambda Runtime API headers carried by /runtime/invocation/next responses.
const (
	// HeaderRequestID example: "8476a536-e9f4-11e8-9739-2dfe598c3fcd"
	HeaderRequestID = "Lambda-Runtime-Aws-Request-Id"

	// HeaderFunctionArn example: "arn:aws:lambda:us-east-2:123456789012:function:custom-runtime"
	HeaderFunctionArn = "Lambda-Runtime-Invoked-Function-Arn"

	// HeaderTraceID example: "Root=1-5bef4de7-ad49b0e87f6ef6c87fc2e700;Parent=9a9197af755a6419;Sampled=1"
	HeaderTraceID = "Lambda-Runtime-Trace-Id"

	HeaderClientContext   = "Lambda-Runtime-Client-Context"
	HeaderCognitoIdentity = "Lambda-Runtime-Cognito-Identity"

	// HeaderDeadlineMS is read by nobody: the loop imposes no deadline.
	HeaderDeadlineMS = "Lambda-Runtime-Deadline-Ms"
)

// LookupHeader returns the first value of name and whether it was present.
// A present value that is not valid text is a ProtocolError.
func LookupHeader(h http.Header, name string) (string, bool, error) {
	values := h.Values(name)
	if len(values) == 0 {
		return "", false, nil
	}
	value := values[0]
	if !validHeaderText(value) {
		return "", true, fatalerror.Errorf(fatalerror.ProtocolError, "header %s is not valid text", name)
	}
	return value, true, nil
}

// ExtractHeader returns the value of name verbatim. An absent header yields
// the header name itself.
func ExtractHeader(h http.Header, name string) (string, error) {
	value, ok, err := LookupHeader(h, name)
	if err != nil {
		return "", err
	}
	if !ok {
		return name, nil
	}
	return value, nil
}

// NewInvocationContext extracts the four per-invocation identifiers.
func NewInvocationContext(h http.Header) (interop.Context, error) {
	var values [4]string
	for i, name := range []string{HeaderRequestID, HeaderFunctionArn, HeaderCognitoIdentity, HeaderClientContext} {
		value, err := ExtractHeader(h, name)
		if err != nil {
			return interop.Context{}, err
		}
		values[i] = value
	}
	return interop.NewContext(values[0], values[1], values[2], values[3]), nil
}

// TraceHeader returns the trace header when the response carries one.
func TraceHeader(h http.Header) (telemetry.TraceHeader, bool, error) {
	value, ok, err := LookupHeader(h, HeaderTraceID)
	if err != nil || !ok {
		return "", false, err
	}
	return telemetry.TraceHeader(value), true, nil
}

// validHeaderText accepts UTF-8 without control characters other than tab.
func validHeaderText(value string) bool {
	if !utf8.ValidString(value) {
		return false
	}
	for _, r := range value {
		if (r < 0x20 && r != '\t') || r == 0x7f {
			return false
		}
	}
	return true
}
