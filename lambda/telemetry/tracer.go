// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

const (
	// TraceIDEnvKey is the process-wide variable X-Ray SDKs read the current trace from.
	TraceIDEnvKey = "_X_AMZN_TRACE_ID"

	XRaySampled    = "1"
	XRayNonSampled = "0"
)

// TraceHeader is the raw Lambda-Runtime-Trace-Id value of one invocation.
// Example: "Root=1-5bef4de7-ad49b0e87f6ef6c87fc2e700;Parent=9a9197af755a6419;Sampled=1"
type TraceHeader string

// Tracer receives the trace header of every invocation that carries one and
// returns the context the handler runs with.
type Tracer interface {
	Propagate(ctx context.Context, header TraceHeader) context.Context
}

type NoOpTracer struct{}

func (t *NoOpTracer) Propagate(ctx context.Context, header TraceHeader) context.Context {
	return ctx
}

func NewNoOpTracer() *NoOpTracer {
	return &NoOpTracer{}
}

// XRayTracer exports the header through _X_AMZN_TRACE_ID for external
// collaborators and attaches the equivalent OpenTelemetry remote span
// context to the handler context.
type XRayTracer struct{}

func NewXRayTracer() *XRayTracer {
	return &XRayTracer{}
}

func (t *XRayTracer) Propagate(ctx context.Context, header TraceHeader) context.Context {
	if err := os.Setenv(TraceIDEnvKey, string(header)); err != nil {
		log.WithError(err).Warnf("Failed to set %s", TraceIDEnvKey)
	}

	sc, err := SpanContextFromHeader(header)
	if err != nil {
		log.WithError(err).Debug("Trace header has no OpenTelemetry equivalent")
		return ctx
	}
	return trace.ContextWithRemoteSpanContext(ctx, sc)
}

// SpanContextFromHeader converts an X-Ray trace header to a remote span context.
// Root "1-5bef4de7-ad49b0e87f6ef6c87fc2e700" maps to trace id
// 5bef4de7ad49b0e87f6ef6c87fc2e700, Parent to the span id.
func SpanContextFromHeader(header TraceHeader) (trace.SpanContext, error) {
	root, parent, sampled := ParseTraceID(string(header))

	parts := strings.Split(root, "-")
	if len(parts) != 3 || parts[0] != "1" {
		return trace.SpanContext{}, fmt.Errorf("invalid trace root %q", root)
	}

	traceID, err := trace.TraceIDFromHex(parts[1] + parts[2])
	if err != nil {
		return trace.SpanContext{}, fmt.Errorf("invalid trace root %q: %w", root, err)
	}

	spanID, err := trace.SpanIDFromHex(parent)
	if err != nil {
		return trace.SpanContext{}, fmt.Errorf("invalid trace parent %q: %w", parent, err)
	}

	var flags trace.TraceFlags
	if sampled == XRaySampled {
		flags = trace.FlagsSampled
	}

	return trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: flags,
		Remote:     true,
	}), nil
}

// ParseTraceID helps client to get TraceID, ParentID, Sampled information from a full trace
func ParseTraceID(fullTraceID string) (rootID, parentID, sample string) {
	for _, part := range strings.Split(fullTraceID, ";") {
		keyValuePair := strings.SplitN(part, "=", 2)
		if len(keyValuePair) != 2 {
			continue
		}
		switch keyValuePair[0] {
		case "Root":
			rootID = keyValuePair[1]
		case "Parent":
			parentID = keyValuePair[1]
		case "Sampled":
			sample = keyValuePair[1]
		}
	}
	return
}

// BuildFullTraceID assembles a trace header; it is empty without a root.
func BuildFullTraceID(root, parent, sample string) string {
	if root == "" {
		return ""
	}

	parts := []string{"Root=" + root}
	if parent != "" {
		parts = append(parts, "Parent="+parent)
	}
	if sample != XRaySampled {
		sample = XRayNonSampled
	}
	parts = append(parts, "Sampled="+sample)
	return strings.Join(parts, ";")
}
