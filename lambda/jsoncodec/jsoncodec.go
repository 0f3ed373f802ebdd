// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package jsoncodec is the JSON codec shared by the handler adapter and the
// Runtime API client. It behaves like encoding/json.
package jsoncodec

import (
	"io"

	"github.com/bytedance/sonic"
)

var defaultConfig = sonic.ConfigStd

func Marshal(v interface{}) ([]byte, error) {
	return defaultConfig.Marshal(v)
}

func Unmarshal(data []byte, v interface{}) error {
	return defaultConfig.Unmarshal(data, v)
}

func Decode(r io.Reader, v interface{}) error {
	return defaultConfig.NewDecoder(r).Decode(v)
}

// Valid reports whether data is a well-formed JSON document.
func Valid(data []byte) bool {
	return defaultConfig.Valid(data)
}
