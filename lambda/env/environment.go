// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package env

import (
	"errors"
	"os"

	"github.com/kaon-rt/kaon/lambda/fatalerror"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	RuntimeAPIAddressKey  = "AWS_LAMBDA_RUNTIME_API"
	LogLevelKey           = "KAON_LOG_LEVEL"
	LogFormatKey          = "KAON_LOG_FORMAT"
	FunctionNameKey       = "AWS_LAMBDA_FUNCTION_NAME"
	FunctionVersionKey    = "AWS_LAMBDA_FUNCTION_VERSION"
	RegionKey             = "AWS_REGION"
	defaultDotEnvFileName = ".env"
)

// ErrRuntimeAPIMissing is returned when no control-plane endpoint is configured.
var ErrRuntimeAPIMissing = errors.New(RuntimeAPIAddressKey + " environment variable not set")

// Config holds the settings resolved once at startup.
type Config struct {
	// RuntimeAPI is the control-plane authority (host:port).
	RuntimeAPI string

	LogLevel  string
	LogFormat string

	FunctionName    string
	FunctionVersion string
	Region          string
}

// Load reads configuration from the environment. Dotenv files are loaded
// first without overriding variables that are already set; with no files
// given, ./.env is used when present.
func Load(dotEnvFiles ...string) (*Config, error) {
	if len(dotEnvFiles) == 0 {
		if _, err := os.Stat(defaultDotEnvFileName); err == nil {
			dotEnvFiles = []string{defaultDotEnvFileName}
		}
	}
	if len(dotEnvFiles) > 0 {
		if err := godotenv.Load(dotEnvFiles...); err != nil {
			log.WithError(err).Warn("Failed to load dotenv files")
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault(LogLevelKey, "info")
	v.SetDefault(LogFormatKey, "text")

	cfg := &Config{
		RuntimeAPI:      v.GetString(RuntimeAPIAddressKey),
		LogLevel:        v.GetString(LogLevelKey),
		LogFormat:       v.GetString(LogFormatKey),
		FunctionName:    v.GetString(FunctionNameKey),
		FunctionVersion: v.GetString(FunctionVersionKey),
		Region:          v.GetString(RegionKey),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the required endpoint is present. Its syntax is
// checked when the Runtime API client is built.
func (c *Config) Validate() error {
	if c.RuntimeAPI == "" {
		return fatalerror.New(fatalerror.ConfigurationError, ErrRuntimeAPIMissing)
	}
	return nil
}

// LogFields returns the function metadata worth attaching to log lines.
func (c *Config) LogFields() log.Fields {
	fields := log.Fields{}
	if c.FunctionName != "" {
		fields["functionName"] = c.FunctionName
	}
	if c.FunctionVersion != "" {
		fields["functionVersion"] = c.FunctionVersion
	}
	if c.Region != "" {
		fields["region"] = c.Region
	}
	return fields
}
