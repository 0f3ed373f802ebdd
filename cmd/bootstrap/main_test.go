// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/kaon-rt/kaon/lambda/env"
	"github.com/kaon-rt/kaon/lambda/rapid"
	"github.com/kaon-rt/kaon/lambda/telemetry"
	"github.com/kaon-rt/kaon/lambda/rapitest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions(api *rapitest.RuntimeAPI) []rapid.Option {
	return []rapid.Option{
		rapid.WithHTTPClient(api.HTTPClient()),
		rapid.WithTracer(telemetry.NewNoOpTracer()),
	}
}

func TestRunEchoesEvents(t *testing.T) {
	api := rapitest.NewRuntimeAPI(
		rapitest.Invocation{RequestID: "req-1", Payload: []byte(`{"a":[1,2,{"b":null}]}`)},
		rapitest.Invocation{RequestID: "req-2", Payload: []byte(`"plain string"`)},
		rapitest.Invocation{RequestID: "req-3", Payload: []byte(`{"id":12345678901234567891,"ratio":0.1000000000000000055511151231257827}`)},
	).Start()
	defer api.Close()

	err := run(context.Background(), &env.Config{RuntimeAPI: api.Authority()}, newEchoHandler, testOptions(api)...)
	require.NoError(t, err)

	responses := api.ReportsOf(rapitest.KindResponse)
	require.Len(t, responses, 3)
	assert.JSONEq(t, `{"a":[1,2,{"b":null}]}`, string(responses[0].Body))
	assert.JSONEq(t, `"plain string"`, string(responses[1].Body))
	assert.Contains(t, string(responses[2].Body), `12345678901234567891`)
	assert.Contains(t, string(responses[2].Body), `0.1000000000000000055511151231257827`)
}

func TestRunEchoRejectsMalformedEvent(t *testing.T) {
	api := rapitest.NewRuntimeAPI(rapitest.Invocation{RequestID: "req-1", Payload: []byte(`{"a":`)}).Start()
	defer api.Close()

	require.NoError(t, run(context.Background(), &env.Config{RuntimeAPI: api.Authority()}, newEchoHandler, testOptions(api)...))

	assert.Empty(t, api.ReportsOf(rapitest.KindResponse))
	assert.Len(t, api.ReportsOf(rapitest.KindError), 1)
}

func TestRunReportsHandlerInitFailure(t *testing.T) {
	api := rapitest.NewRuntimeAPI().Start()
	defer api.Close()

	initErr := errors.New("missing table name")
	failing := func() (rapid.Handler, error) { return nil, initErr }

	err := run(context.Background(), &env.Config{RuntimeAPI: api.Authority()}, failing, testOptions(api)...)
	assert.ErrorIs(t, err, initErr)

	reports := api.ReportsOf(rapitest.KindInitError)
	require.Len(t, reports, 1)
	assert.JSONEq(t, `{"errorMessage":"missing table name","errorType":"Unhandled","stackTrace":"unused"}`, string(reports[0].Body))
	assert.Equal(t, 0, api.Polls())
}

func TestRunCancelledIsCleanShutdown(t *testing.T) {
	api := rapitest.NewRuntimeAPI(rapitest.Invocation{RequestID: "req-1", Payload: []byte(`{}`)}).Start()
	defer api.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := run(ctx, &env.Config{RuntimeAPI: api.Authority()}, newEchoHandler, testOptions(api)...)
	assert.NoError(t, err)
}

func TestRunFatalError(t *testing.T) {
	api := rapitest.NewRuntimeAPI().Start()
	authority := api.Authority()
	api.Close()

	err := run(context.Background(), &env.Config{RuntimeAPI: authority}, newEchoHandler, rapid.WithTracer(telemetry.NewNoOpTracer()))
	assert.Error(t, err)
}

func TestRunRejectsBadEndpoint(t *testing.T) {
	err := run(context.Background(), &env.Config{RuntimeAPI: "not a host"}, newEchoHandler)
	assert.Error(t, err)
}

func TestLoadConfigFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv(env.RuntimeAPIAddressKey, "127.0.0.1:9001")
	t.Setenv(env.LogLevelKey, "info")
	t.Setenv(env.LogFormatKey, "text")

	opts := getCLIArgs([]string{"bootstrap", "--runtime-api", "localhost:8080", "--log-level", "debug", "--log-format", "json", "--unknown"})

	cfg, err := loadConfig(opts)
	require.NoError(t, err)
	assert.Equal(t, "localhost:8080", cfg.RuntimeAPI)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "localhost:8080", os.Getenv(env.RuntimeAPIAddressKey))
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv(env.RuntimeAPIAddressKey, "127.0.0.1:9001")
	t.Setenv(env.LogLevelKey, "warn")

	cfg, err := loadConfig(options{})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9001", cfg.RuntimeAPI)
	assert.Equal(t, "warn", cfg.LogLevel)
}
