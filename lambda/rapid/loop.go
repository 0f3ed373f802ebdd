// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package rapid drives the runtime: poll, dispatch, report, repeat.
package rapid

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/kaon-rt/kaon/lambda/env"
	"github.com/kaon-rt/kaon/lambda/fatalerror"
	"github.com/kaon-rt/kaon/lambda/interop"
	"github.com/kaon-rt/kaon/lambda/metering"
	"github.com/kaon-rt/kaon/lambda/rapi/model"
	"github.com/kaon-rt/kaon/lambda/runtimeapi"
	"github.com/kaon-rt/kaon/lambda/telemetry"

	log "github.com/sirupsen/logrus"
)

// Handler processes one raw invocation payload. Errors classified as
// PayloadError or HandlerError are reported to the control plane; any
// other error is treated as a HandlerError.
type Handler interface {
	Handle(ctx context.Context, payload []byte, ic interop.Context) ([]byte, error)
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, payload []byte, ic interop.Context) ([]byte, error)

func (f HandlerFunc) Handle(ctx context.Context, payload []byte, ic interop.Context) ([]byte, error) {
	return f(ctx, payload, ic)
}

// Loop is the runtime loop. It serves one invocation at a time.
type Loop struct {
	inFlight      atomic.Bool
	lastProcessed atomic.Pointer[interop.Context]

	client  *runtimeapi.Client
	tracer  telemetry.Tracer
	metrics *metering.Metrics
	logger  *log.Entry

	clientOpts []runtimeapi.ClientOption
}

// Option configures a Loop.
type Option func(*Loop)

// WithTracer replaces the default X-Ray tracer.
func WithTracer(tracer telemetry.Tracer) Option {
	return func(l *Loop) {
		l.tracer = tracer
	}
}

// WithMetrics records invocation outcomes into m.
func WithMetrics(m *metering.Metrics) Option {
	return func(l *Loop) {
		l.metrics = m
	}
}

// WithLogger sets the base log entry.
func WithLogger(logger *log.Entry) Option {
	return func(l *Loop) {
		l.logger = logger
	}
}

// WithHTTPClient sends every Runtime API request through hc.
func WithHTTPClient(hc *http.Client) Option {
	return func(l *Loop) {
		l.clientOpts = append(l.clientOpts, runtimeapi.WithHTTPClient(hc))
	}
}

// Charge prepares a loop against the configured endpoint. The loop is idle
// until Decay is called. A missing or malformed endpoint is a
// ConfigurationError.
func Charge(cfg *env.Config, opts ...Option) (*Loop, error) {
	if cfg == nil {
		return nil, fatalerror.New(fatalerror.ConfigurationError, env.ErrRuntimeAPIMissing)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l := &Loop{
		tracer: telemetry.NewXRayTracer(),
		logger: log.WithFields(cfg.LogFields()),
	}
	for _, opt := range opts {
		opt(l)
	}

	client, err := runtimeapi.NewClient(cfg.RuntimeAPI, l.clientOpts...)
	if err != nil {
		return nil, err
	}
	l.client = client
	l.inFlight.Store(false)

	l.logger.WithField("runtimeAPI", cfg.RuntimeAPI).Debug("Runtime loop charged")
	return l, nil
}

// Decay runs the loop until Stop is called, a duplicate invocation is
// served, or a fatal error occurs. Payload and handler failures are
// reported and never returned.
func (l *Loop) Decay(ctx context.Context, h Handler) error {
	l.inFlight.Store(true)
	l.logger.Info("Runtime loop started")

	for l.inFlight.Load() {
		event, nextErr := l.client.Next(ctx)
		if nextErr != nil && !fatalerror.Is(nextErr, fatalerror.PayloadError) {
			l.metrics.ObservePollFailure()
			return l.halt(nextErr)
		}

		ic, err := runtimeapi.NewInvocationContext(event.Header)
		if err != nil {
			return l.halt(err)
		}

		invokeCtx := ctx
		traceHeader, ok, err := runtimeapi.TraceHeader(event.Header)
		if err != nil {
			return l.halt(err)
		}
		if ok {
			invokeCtx = l.tracer.Propagate(ctx, traceHeader)
		}

		logger := l.logger.WithField("requestId", ic.RequestID)
		if last := l.lastProcessed.Load(); last != nil && last.RequestID == ic.RequestID {
			logger.Warn("Duplicate invocation received, stopping")
			l.metrics.ObserveInvocation(metering.OutcomeDuplicate, 0)
			l.Stop()
			return nil
		}
		l.lastProcessed.Store(&ic)

		if !l.inFlight.Load() {
			logger.Info("Runtime loop stopped before delivery")
			return nil
		}

		// oversized body was discarded, report it without running the handler
		if nextErr != nil {
			l.reportFailure(invokeCtx, ic, nextErr, 0, logger)
			continue
		}

		if err := l.deliver(invokeCtx, h, event.Payload, ic, logger); err != nil {
			return l.halt(err)
		}
	}

	l.logger.Info("Runtime loop stopped")
	return nil
}

func (l *Loop) deliver(ctx context.Context, h Handler, payload []byte, ic interop.Context, logger *log.Entry) error {
	logger = logger.WithField("functionArn", ic.FunctionArn)

	start := time.Now()
	body, err := h.Handle(interop.NewGoContext(ctx, ic), payload, ic)
	elapsed := time.Since(start)

	if err != nil {
		l.reportFailure(ctx, ic, err, elapsed, logger)
		return nil
	}

	if err := l.client.PostResponse(ctx, ic.RequestID, body); err != nil {
		l.metrics.ObserveInvocation(metering.OutcomeReportError, elapsed)
		return err
	}
	l.metrics.ObserveInvocation(metering.OutcomeSuccess, elapsed)
	logger.WithField("duration", elapsed).Debug("Invocation succeeded")
	return nil
}

// reportFailure posts an invocation error. A failed post is logged and
// never ends the loop.
func (l *Loop) reportFailure(ctx context.Context, ic interop.Context, err error, elapsed time.Duration, logger *log.Entry) {
	outcome := metering.OutcomeHandlerError
	errorType := fatalerror.TypeOf(err)
	if errorType == fatalerror.PayloadError {
		outcome = metering.OutcomePayloadError
	}
	logger.WithError(err).WithField("errorType", errorType).Warn("Invocation failed")

	if reportErr := l.client.PostInvocationError(ctx, ic.RequestID, model.ErrorPayloadFromError(err)); reportErr != nil {
		logger.WithError(reportErr).Warn("Invocation error not delivered")
	}
	l.metrics.ObserveInvocation(outcome, elapsed)
}

func (l *Loop) halt(err error) error {
	l.Stop()
	l.logger.WithError(err).WithField("errorType", fatalerror.TypeOf(err)).Error("Runtime loop halted")
	return err
}

// Stop makes the loop exit before its next poll. It is safe to call from
// any goroutine, any number of times.
func (l *Loop) Stop() {
	l.inFlight.Store(false)
}

// InFlight reports whether the loop is serving invocations.
func (l *Loop) InFlight() bool {
	return l.inFlight.Load()
}

// LastProcessed returns the context of the most recent invocation.
func (l *Loop) LastProcessed() (interop.Context, bool) {
	last := l.lastProcessed.Load()
	if last == nil {
		return interop.Context{}, false
	}
	return *last, true
}

// ReportInitError tells the control plane the function failed to
// initialize.
func (l *Loop) ReportInitError(ctx context.Context, err error) error {
	if err == nil {
		return errors.New("no init error to report")
	}
	return l.client.PostInitError(ctx, model.ErrorPayloadFromError(err))
}
