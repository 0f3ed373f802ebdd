// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

// SetOutput configures logging output for standard loggers.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
	logrus.SetOutput(w)
}

// SetLevel parses and applies a logrus level.
func SetLevel(level string) error {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q, valid levels are %v: %w", level, logrus.AllLevels, err)
	}
	logrus.SetLevel(parsed)
	return nil
}

// SetFormat selects the text or JSON formatter.
func SetFormat(format string) error {
	switch strings.ToLower(format) {
	case "", FormatText:
		logrus.SetFormatter(&logrus.TextFormatter{
			DisableColors: true,
			FullTimestamp: true,
		})
	case FormatJSON:
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("invalid log format %q", format)
	}
	return nil
}

// Configure applies level and format in one call.
func Configure(level, format string) error {
	if err := SetLevel(level); err != nil {
		return err
	}
	return SetFormat(format)
}
