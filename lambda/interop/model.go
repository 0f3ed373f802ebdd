// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package interop

import (
	"net/http"
)

// MaxPayloadSize max event body size declared as LAMBDA_EVENT_BODY_SIZE
const MaxPayloadSize = 6*1024*1024 + 100 // 6 MiB + 100 bytes

// Event is the raw response to a poll of /runtime/invocation/next.
// It is consumed immediately to build a Context and decode a request.
type Event struct {
	Header  http.Header
	Payload []byte
}

// Context carries the per-invocation identifiers extracted from the
// poll response headers. It is built once per invocation and passed by value.
type Context struct {
	// RequestID is the Lambda-Runtime-Aws-Request-Id value.
	// Example: "8476a536-e9f4-11e8-9739-2dfe598c3fcd"
	RequestID string

	// FunctionArn is the Lambda-Runtime-Invoked-Function-Arn value.
	FunctionArn string

	// Identity is the raw Lambda-Runtime-Cognito-Identity value.
	Identity string

	// ClientContext is the raw Lambda-Runtime-Client-Context value.
	ClientContext string
}

// NewContext builds a Context. Values are stored verbatim; identity and
// client context are not parsed.
func NewContext(requestID, functionArn, identity, clientContext string) Context {
	return Context{
		RequestID:     requestID,
		FunctionArn:   functionArn,
		Identity:      identity,
		ClientContext: clientContext,
	}
}
