// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package metering

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels the end of a single invocation.
type Outcome string

const (
	OutcomeSuccess      Outcome = "success"
	OutcomePayloadError Outcome = "payload_error"
	OutcomeHandlerError Outcome = "handler_error"
	OutcomeReportError  Outcome = "report_error"
	OutcomeDuplicate    Outcome = "duplicate"
)

// Metrics counts invocations processed by the runtime loop.
type Metrics struct {
	invocationsTotal *prometheus.CounterVec
	handlerDuration  prometheus.Histogram
	pollFailures     prometheus.Counter
}

// NewMetrics creates the collectors and registers them with registerer.
// A nil registerer uses prometheus.DefaultRegisterer. Collectors that are
// already registered are reused.
func NewMetrics(registerer prometheus.Registerer) (*Metrics, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		invocationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kaon",
			Subsystem: "runtime",
			Name:      "invocations_total",
			Help:      "Invocations processed, by outcome.",
		}, []string{"outcome"}),
		handlerDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "kaon",
			Subsystem: "runtime",
			Name:      "handler_duration_seconds",
			Help:      "Time spent decoding, running and encoding one invocation.",
			Buckets:   prometheus.DefBuckets,
		}),
		pollFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kaon",
			Subsystem: "runtime",
			Name:      "poll_failures_total",
			Help:      "Failed polls of /runtime/invocation/next.",
		}),
	}

	var err error
	if m.invocationsTotal, err = register(registerer, m.invocationsTotal); err != nil {
		return nil, err
	}
	if m.handlerDuration, err = register(registerer, m.handlerDuration); err != nil {
		return nil, err
	}
	if m.pollFailures, err = register(registerer, m.pollFailures); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](registerer prometheus.Registerer, c C) (C, error) {
	if err := registerer.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// ObserveInvocation records one finished invocation. Nil receivers are ignored.
func (m *Metrics) ObserveInvocation(outcome Outcome, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.invocationsTotal.WithLabelValues(string(outcome)).Inc()
	if outcome != OutcomeDuplicate {
		m.handlerDuration.Observe(elapsed.Seconds())
	}
}

// ObservePollFailure records a failed poll.
func (m *Metrics) ObservePollFailure() {
	if m == nil {
		return
	}
	m.pollFailures.Inc()
}
