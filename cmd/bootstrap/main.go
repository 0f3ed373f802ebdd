// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/kaon-rt/kaon/lambda/env"
	"github.com/kaon-rt/kaon/lambda/logging"
	"github.com/kaon-rt/kaon/lambda/metering"
	"github.com/kaon-rt/kaon/lambda/rapid"

	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

type options struct {
	LogLevel   string   `long:"log-level" description:"log level, overrides KAON_LOG_LEVEL"`
	LogFormat  string   `long:"log-format" description:"text or json, overrides KAON_LOG_FORMAT"`
	RuntimeAPI string   `long:"runtime-api" description:"Runtime API host:port, overrides AWS_LAMBDA_RUNTIME_API"`
	EnvFiles   []string `long:"env-file" description:"dotenv file to load, repeatable"`
}

func main() {
	// More frequent GC reduces the tail latencies, equivalent to export GOGC=33
	debug.SetGCPercent(33)

	opts := getCLIArgs(os.Args)

	cfg, err := loadConfig(opts)
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}
	if err := logging.Configure(cfg.LogLevel, cfg.LogFormat); err != nil {
		log.WithError(err).Fatal("Failed to configure logging")
	}

	metrics, err := metering.NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		log.WithError(err).Fatal("Failed to register metrics")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = run(ctx, cfg, newEchoHandler, rapid.WithMetrics(metrics))
	logMetrics(prometheus.DefaultGatherer)
	if err != nil {
		log.WithError(err).Error("Runtime exited")
		stop()
		os.Exit(1)
	}
}

func getCLIArgs(argv []string) options {
	var opts options
	parser := flags.NewParser(&opts, flags.IgnoreUnknown)
	if _, err := parser.ParseArgs(argv); err != nil {
		log.WithError(err).Fatal("Failed to parse command line arguments:", argv)
	}
	return opts
}

// loadConfig resolves the environment, letting command line flags win.
func loadConfig(opts options) (*env.Config, error) {
	if opts.RuntimeAPI != "" {
		if err := os.Setenv(env.RuntimeAPIAddressKey, opts.RuntimeAPI); err != nil {
			return nil, err
		}
	}

	cfg, err := env.Load(opts.EnvFiles...)
	if err != nil {
		return nil, err
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	if opts.LogFormat != "" {
		cfg.LogFormat = opts.LogFormat
	}
	return cfg, nil
}
