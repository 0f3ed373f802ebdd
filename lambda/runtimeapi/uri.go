// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package runtimeapi

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/kaon-rt/kaon/lambda/fatalerror"
)

// APIVersionPrefix is prepended to every Runtime API path.
const APIVersionPrefix = "/2018-06-01"

// BuildURI returns http://{authority}/2018-06-01{path}. A malformed
// authority is a ConfigurationError; a malformed path is a ProtocolError.
func BuildURI(authority, path string) (*url.URL, error) {
	if err := validateAuthority(authority); err != nil {
		return nil, fatalerror.Errorf(fatalerror.ConfigurationError, "invalid runtime API authority %q: %w", authority, err)
	}
	if err := validatePath(path); err != nil {
		return nil, fatalerror.Errorf(fatalerror.ProtocolError, "invalid runtime API path %q: %w", path, err)
	}

	return &url.URL{
		Scheme: "http",
		Host:   authority,
		Path:   APIVersionPrefix + path,
	}, nil
}

func validateAuthority(authority string) error {
	if authority == "" {
		return fmt.Errorf("empty authority")
	}
	if strings.ContainsAny(authority, "/?#@ \t\r\n") {
		return fmt.Errorf("authority must be host[:port]")
	}

	host, port := authority, ""
	if strings.HasPrefix(authority, "[") {
		end := strings.Index(authority, "]")
		if end < 0 || net.ParseIP(authority[1:end]) == nil {
			return fmt.Errorf("invalid IPv6 literal")
		}
		host = authority[:end+1]
		rest := authority[end+1:]
		if rest != "" {
			if !strings.HasPrefix(rest, ":") {
				return fmt.Errorf("unexpected %q after host", rest)
			}
			port = rest[1:]
			if err := validatePort(port); err != nil {
				return err
			}
		}
	} else if strings.Contains(authority, ":") {
		var err error
		host, port, err = net.SplitHostPort(authority)
		if err != nil {
			return err
		}
		if err := validatePort(port); err != nil {
			return err
		}
	}

	if host == "" {
		return fmt.Errorf("empty host")
	}

	_, err := url.Parse("http://" + authority)
	return err
}

func validatePort(port string) error {
	n, err := strconv.Atoi(port)
	if err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("invalid port %q", port)
	}
	return nil
}

func validatePath(path string) error {
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("path must start with /")
	}
	if strings.ContainsAny(path, "?#% \t\r\n") {
		return fmt.Errorf("path contains reserved characters")
	}
	for _, segment := range strings.Split(path, "/") {
		if segment == "." || segment == ".." {
			return fmt.Errorf("path is not canonical")
		}
	}
	return nil
}

// invocationPath places requestID in a single path segment. An empty id
// gives /runtime/invocation//{action}, which is still a valid URI.
func invocationPath(requestID, action string) (string, error) {
	if strings.Contains(requestID, "/") {
		return "", fatalerror.Errorf(fatalerror.ProtocolError, "request id %q contains /", requestID)
	}
	return "/runtime/invocation/" + requestID + "/" + action, nil
}
