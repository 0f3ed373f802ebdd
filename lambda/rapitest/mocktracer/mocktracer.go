// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package mocktracer

import (
	"context"

	"github.com/kaon-rt/kaon/lambda/telemetry"

	"github.com/stretchr/testify/mock"
)

// MockTracer is used for unit tests
type MockTracer struct {
	mock.Mock
}

// Propagate records the header and returns the configured context, or ctx
// when the expectation returns nil.
func (m *MockTracer) Propagate(ctx context.Context, header telemetry.TraceHeader) context.Context {
	args := m.Called(ctx, header)
	if out, ok := args.Get(0).(context.Context); ok {
		return out
	}
	return ctx
}

// PropagatedHeaders returns every header seen, in order.
func (m *MockTracer) PropagatedHeaders() []telemetry.TraceHeader {
	var headers []telemetry.TraceHeader
	for _, call := range m.Calls {
		headers = append(headers, call.Arguments.Get(1).(telemetry.TraceHeader))
	}
	return headers
}

// NewMockTracer is the constructor for mock tracer
func NewMockTracer() *MockTracer {
	return &MockTracer{}
}
