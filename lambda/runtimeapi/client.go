// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package runtimeapi is the client half of the Lambda Runtime API: polling
// for the next invocation and reporting its outcome.
package runtimeapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/kaon-rt/kaon/lambda/fatalerror"
	"github.com/kaon-rt/kaon/lambda/interop"
	"github.com/kaon-rt/kaon/lambda/rapi/model"

	log "github.com/sirupsen/logrus"
)

// Version is reported in the User-Agent header.
const Version = "0.1.0"

const (
	pathNext      = "/runtime/invocation/next"
	pathInitError = "/runtime/init/error"

	contentTypeJSON = "application/json"
	postTimeout     = 5 * time.Second
)

// defaultTransport is shared by the long-poll and the post client.
// The control plane is on loopback and only speaks HTTP/1.1.
var defaultTransport = &http.Transport{
	Proxy:               nil,
	MaxIdleConns:        4,
	MaxIdleConnsPerHost: 4,
	IdleConnTimeout:     120 * time.Second,
	DisableCompression:  true,
	ForceAttemptHTTP2:   false,
	DialContext: (&net.Dialer{
		Timeout:   time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
}

// Client talks to one Runtime API endpoint. It is not safe for concurrent
// invocations, which the runtime never issues.
type Client struct {
	authority  string
	nextClient *http.Client
	postClient *http.Client
	userAgent  string

	nextURL      string
	initErrorURL string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient uses hc for every request, e.g. an httptest server client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.nextClient = hc
		c.postClient = hc
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) ClientOption {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// NewClient validates authority and returns a client for it.
// A malformed authority is a ConfigurationError.
func NewClient(authority string, opts ...ClientOption) (*Client, error) {
	nextURL, err := BuildURI(authority, pathNext)
	if err != nil {
		return nil, err
	}
	initErrorURL, err := BuildURI(authority, pathInitError)
	if err != nil {
		return nil, err
	}

	c := &Client{
		authority:    authority,
		nextClient:   &http.Client{Transport: defaultTransport, Timeout: 0},
		postClient:   &http.Client{Transport: defaultTransport, Timeout: postTimeout},
		userAgent:    "kaon/" + Version,
		nextURL:      nextURL.String(),
		initErrorURL: initErrorURL.String(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Authority returns the endpoint the client was built for.
func (c *Client) Authority() string {
	return c.authority
}

// Next blocks until the control plane hands out the next invocation.
// Connection failures and non-200 statuses are TransportErrors. A body over
// MaxPayloadSize yields the event headers, no payload, and a PayloadError
// so the invocation can still be reported.
func (c *Client) Next(ctx context.Context) (*interop.Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.nextURL, nil)
	if err != nil {
		return nil, fatalerror.Errorf(fatalerror.ProtocolError, "failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.nextClient.Do(req)
	if err != nil {
		log.WithError(err).Error("Failed to reach runtime API")
		return nil, fatalerror.Errorf(fatalerror.TransportError, "failed to get next invocation: %w", err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fatalerror.Errorf(fatalerror.TransportError, "invocation/next failed: %s: %s", resp.Status, string(body))
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, interop.MaxPayloadSize+1))
	if err != nil {
		return nil, fatalerror.Errorf(fatalerror.TransportError, "failed to read invocation payload: %w", err)
	}
	if len(payload) > interop.MaxPayloadSize {
		return &interop.Event{Header: resp.Header.Clone()},
			fatalerror.Errorf(fatalerror.PayloadError, "invocation payload exceeds %d bytes", interop.MaxPayloadSize)
	}

	log.WithField("contentLength", len(payload)).Debug("Event received")
	return &interop.Event{
		Header:  resp.Header.Clone(),
		Payload: payload,
	}, nil
}

// PostResponse reports a successful result. Any failure, including a
// non-2xx status, is returned as a ReportingError.
func (c *Client) PostResponse(ctx context.Context, requestID string, body []byte) error {
	path, err := invocationPath(requestID, "response")
	if err != nil {
		return err
	}
	uri, err := BuildURI(c.authority, path)
	if err != nil {
		return err
	}

	if err := c.post(ctx, uri.String(), body, nil); err != nil {
		return fatalerror.New(fatalerror.ReportingError, err)
	}
	log.WithField("requestId", requestID).Debug("Response sent")
	return nil
}

// PostInvocationError reports a failed invocation. It is best effort:
// callers log a returned error and carry on.
func (c *Client) PostInvocationError(ctx context.Context, requestID string, payload *model.ErrorPayload) error {
	path, err := invocationPath(requestID, "error")
	if err != nil {
		return err
	}
	uri, err := BuildURI(c.authority, path)
	if err != nil {
		return err
	}

	if err := c.postErrorPayload(ctx, uri.String(), payload); err != nil {
		return err
	}
	log.WithField("requestId", requestID).Debug("Error sent")
	return nil
}

// PostInitError reports a failure that happened before the first poll.
func (c *Client) PostInitError(ctx context.Context, payload *model.ErrorPayload) error {
	if err := c.postErrorPayload(ctx, c.initErrorURL, payload); err != nil {
		log.WithError(err).Warn("Failed to send init error")
		return err
	}
	return nil
}

func (c *Client) postErrorPayload(ctx context.Context, url string, payload *model.ErrorPayload) error {
	headers := map[string]string{
		model.FunctionErrorTypeHeader: string(payload.ErrorType),
	}
	if err := c.post(ctx, url, payload.Marshal(), headers); err != nil {
		return fatalerror.New(fatalerror.ReportingError, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, url string, body []byte, headers map[string]string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.ContentLength = int64(len(body))
	req.Header.Set("Content-Type", contentTypeJSON)
	req.Header.Set("User-Agent", c.userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.postClient.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s failed: %w", url, err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("POST %s failed: %s: %s", url, resp.Status, string(b))
	}
	return nil
}

// drainAndClose reads the body to EOF so the connection can be reused.
func drainAndClose(b io.ReadCloser) {
	if b == nil {
		return
	}
	_, _ = io.Copy(io.Discard, b)
	_ = b.Close()
}
