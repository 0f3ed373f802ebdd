// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

const metricsPrefix = "kaon_"

// summarizeMetrics flattens the runtime's counters and histograms into log
// fields. Labelled series get their label values appended to the name.
func summarizeMetrics(gatherer prometheus.Gatherer) (log.Fields, error) {
	families, err := gatherer.Gather()
	if err != nil {
		return nil, err
	}

	fields := log.Fields{}
	for _, family := range families {
		if !strings.HasPrefix(family.GetName(), metricsPrefix) {
			continue
		}
		for _, metric := range family.GetMetric() {
			key := family.GetName()
			for _, label := range metric.GetLabel() {
				key += "." + label.GetValue()
			}
			switch {
			case metric.GetCounter() != nil:
				fields[key] = metric.GetCounter().GetValue()
			case metric.GetHistogram() != nil:
				fields[key+".count"] = metric.GetHistogram().GetSampleCount()
				fields[key+".sum"] = metric.GetHistogram().GetSampleSum()
			}
		}
	}
	return fields, nil
}

// logMetrics writes the summary once, when the runtime exits.
func logMetrics(gatherer prometheus.Gatherer) {
	fields, err := summarizeMetrics(gatherer)
	if err != nil {
		log.WithError(err).Warn("Failed to gather metrics")
		return
	}
	log.WithFields(fields).Info("Runtime metrics")
}
