// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package env

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kaon-rt/kaon/lambda/fatalerror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetEnv clears key for the duration of the test.
func unsetEnv(t *testing.T, key string) {
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func TestLoad(t *testing.T) {
	t.Setenv(RuntimeAPIAddressKey, "127.0.0.1:9001")
	t.Setenv(LogLevelKey, "debug")
	t.Setenv(FunctionNameKey, "custom-runtime")
	t.Setenv(RegionKey, "us-east-2")
	unsetEnv(t, LogFormatKey)
	unsetEnv(t, FunctionVersionKey)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9001", cfg.RuntimeAPI)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "custom-runtime", cfg.FunctionName)
	assert.Equal(t, "us-east-2", cfg.Region)
	assert.Equal(t, "custom-runtime", cfg.LogFields()["functionName"])
	assert.NotContains(t, cfg.LogFields(), "functionVersion")
}

func TestLoadMissingRuntimeAPI(t *testing.T) {
	unsetEnv(t, RuntimeAPIAddressKey)

	cfg, err := Load()
	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Equal(t, fatalerror.ConfigurationError, fatalerror.TypeOf(err))
	assert.ErrorIs(t, err, ErrRuntimeAPIMissing)
}

func TestLoadDotEnvDoesNotOverride(t *testing.T) {
	unsetEnv(t, RuntimeAPIAddressKey)
	t.Setenv(LogLevelKey, "error")

	dotEnv := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(dotEnv, []byte("AWS_LAMBDA_RUNTIME_API=localhost:9001\nKAON_LOG_LEVEL=debug\n"), 0o600))

	cfg, err := Load(dotEnv)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9001", cfg.RuntimeAPI)
	assert.Equal(t, "error", cfg.LogLevel)
}

func TestLoadMissingDotEnvFile(t *testing.T) {
	t.Setenv(RuntimeAPIAddressKey, "localhost:9001")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
	assert.Equal(t, "localhost:9001", cfg.RuntimeAPI)
}
