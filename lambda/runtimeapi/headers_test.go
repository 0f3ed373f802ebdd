// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package runtimeapi

import (
	"net/http"
	"testing"

	"github.com/kaon-rt/kaon/lambda/fatalerror"
	"github.com/kaon-rt/kaon/lambda/interop"
	"github.com/kaon-rt/kaon/lambda/telemetry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractHeaderPresent(t *testing.T) {
	h := http.Header{}
	h.Set(HeaderRequestID, "8476a536-e9f4-11e8-9739-2dfe598c3fcd")

	value, err := ExtractHeader(h, HeaderRequestID)
	require.NoError(t, err)
	assert.Equal(t, "8476a536-e9f4-11e8-9739-2dfe598c3fcd", value)
}

func TestExtractHeaderAbsentYieldsName(t *testing.T) {
	value, err := ExtractHeader(http.Header{}, HeaderCognitoIdentity)
	require.NoError(t, err)
	assert.Equal(t, HeaderCognitoIdentity, value)
}

func TestExtractHeaderEmptyValueKept(t *testing.T) {
	h := http.Header{}
	h.Set(HeaderClientContext, "")

	value, err := ExtractHeader(h, HeaderClientContext)
	require.NoError(t, err)
	assert.Equal(t, "", value)

	_, ok, err := LookupHeader(h, HeaderClientContext)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestExtractHeaderInvalidText(t *testing.T) {
	for name, value := range map[string]string{
		"non-utf8": "\xff\xfe",
		"control":  "abc\x01def",
		"delete":   "abc\x7f",
	} {
		t.Run(name, func(t *testing.T) {
			h := http.Header{}
			h.Set(HeaderFunctionArn, value)

			_, err := ExtractHeader(h, HeaderFunctionArn)
			require.Error(t, err)
			assert.Equal(t, fatalerror.ProtocolError, fatalerror.TypeOf(err))
		})
	}
}

func TestExtractHeaderAllowsTab(t *testing.T) {
	h := http.Header{}
	h.Set(HeaderFunctionArn, "a\tb")

	value, err := ExtractHeader(h, HeaderFunctionArn)
	require.NoError(t, err)
	assert.Equal(t, "a\tb", value)
}

func TestNewInvocationContext(t *testing.T) {
	h := http.Header{}
	h.Set(HeaderRequestID, "req-1")
	h.Set(HeaderFunctionArn, "arn:aws:lambda:us-east-1:123456789012:function:f")

	ic, err := NewInvocationContext(h)
	require.NoError(t, err)
	assert.Equal(t, interop.NewContext(
		"req-1",
		"arn:aws:lambda:us-east-1:123456789012:function:f",
		HeaderCognitoIdentity,
		HeaderClientContext,
	), ic)
}

func TestNewInvocationContextInvalidHeader(t *testing.T) {
	h := http.Header{}
	h.Set(HeaderRequestID, "req-1")
	h.Set(HeaderCognitoIdentity, "\xff")

	_, err := NewInvocationContext(h)
	assert.True(t, fatalerror.Is(err, fatalerror.ProtocolError))
}

func TestTraceHeader(t *testing.T) {
	_, ok, err := TraceHeader(http.Header{})
	require.NoError(t, err)
	assert.False(t, ok)

	h := http.Header{}
	h.Set(HeaderTraceID, "Root=1-5bef4de7-ad49b0e87f6ef6c87fc2e700;Parent=9a9197af755a6419;Sampled=1")

	header, ok, err := TraceHeader(h)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, telemetry.TraceHeader("Root=1-5bef4de7-ad49b0e87f6ef6c87fc2e700;Parent=9a9197af755a6419;Sampled=1"), header)
}
