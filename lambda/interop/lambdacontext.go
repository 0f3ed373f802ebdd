// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package interop

import (
	"context"
	"fmt"

	"github.com/kaon-rt/kaon/lambda/jsoncodec"

	"github.com/aws/aws-lambda-go/lambdacontext"
)

type contextKey int

const invocationContextKey contextKey = iota

// CognitoIdentity parses the raw identity header value.
func (c Context) CognitoIdentity() (lambdacontext.CognitoIdentity, error) {
	var identity lambdacontext.CognitoIdentity
	if err := jsoncodec.Unmarshal([]byte(c.Identity), &identity); err != nil {
		return lambdacontext.CognitoIdentity{}, fmt.Errorf("invalid cognito identity: %w", err)
	}
	return identity, nil
}

// ClientApplicationContext parses the raw client context header value.
func (c Context) ClientApplicationContext() (lambdacontext.ClientContext, error) {
	var clientContext lambdacontext.ClientContext
	if err := jsoncodec.Unmarshal([]byte(c.ClientContext), &clientContext); err != nil {
		return lambdacontext.ClientContext{}, fmt.Errorf("invalid client context: %w", err)
	}
	return clientContext, nil
}

// NewGoContext returns a derived context carrying c, plus an aws-lambda-go
// LambdaContext so handlers using lambdacontext.FromContext keep working.
// Identity and client context are attached only when they parse.
func NewGoContext(parent context.Context, c Context) context.Context {
	lc := &lambdacontext.LambdaContext{
		AwsRequestID:       c.RequestID,
		InvokedFunctionArn: c.FunctionArn,
	}
	if identity, err := c.CognitoIdentity(); err == nil {
		lc.Identity = identity
	}
	if clientContext, err := c.ClientApplicationContext(); err == nil {
		lc.ClientContext = clientContext
	}

	ctx := lambdacontext.NewContext(parent, lc)
	return context.WithValue(ctx, invocationContextKey, c)
}

// FromGoContext returns the Context stored by NewGoContext.
func FromGoContext(ctx context.Context) (Context, bool) {
	c, ok := ctx.Value(invocationContextKey).(Context)
	return c, ok
}
