// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package rapitest provides an in-process fake of the Lambda Runtime API
// control plane for tests.
package rapitest

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/kaon-rt/kaon/lambda/rapi/model"
	"github.com/kaon-rt/kaon/lambda/rapi/rendering"
	"github.com/kaon-rt/kaon/lambda/runtimeapi"

	"github.com/go-chi/chi"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Invocation is one event handed out by /runtime/invocation/next.
type Invocation struct {
	// RequestID is generated when empty.
	RequestID       string
	FunctionArn     string
	TraceID         string
	ClientContext   string
	CognitoIdentity string
	DeadlineMS      string

	// RawHeaders are written verbatim after the fields above.
	RawHeaders map[string]string

	Payload []byte
}

// ReportKind tells which endpoint a report was posted to.
type ReportKind string

const (
	KindResponse  ReportKind = "response"
	KindError     ReportKind = "error"
	KindInitError ReportKind = "init/error"
)

// Report is a recorded POST from the runtime.
type Report struct {
	Kind      ReportKind
	RequestID string
	ErrorType string
	Body      []byte
}

// RuntimeAPI serves queued invocations and records every report. Once the
// queue is exhausted the last invocation is served again, which a correct
// runtime treats as a duplicate and stops on.
type RuntimeAPI struct {
	mu sync.Mutex

	queue   []Invocation
	last    *Invocation
	polls   int
	reports []Report

	nextStatus     int
	responseStatus int
	errorStatus    int

	server *httptest.Server
}

// NewRuntimeAPI returns a fake serving invocations in order.
func NewRuntimeAPI(invocations ...Invocation) *RuntimeAPI {
	f := &RuntimeAPI{
		nextStatus:     http.StatusOK,
		responseStatus: http.StatusAccepted,
		errorStatus:    http.StatusAccepted,
	}
	f.Enqueue(invocations...)
	return f
}

// Start serves the fake on a loopback listener.
func (f *RuntimeAPI) Start() *RuntimeAPI {
	f.server = httptest.NewServer(f.Router())
	return f
}

// Close stops the listener started by Start.
func (f *RuntimeAPI) Close() {
	if f.server != nil {
		f.server.Close()
	}
}

// Authority is the host:port the runtime should be pointed at.
func (f *RuntimeAPI) Authority() string {
	return strings.TrimPrefix(f.server.URL, "http://")
}

// HTTPClient returns a client bound to the running fake.
func (f *RuntimeAPI) HTTPClient() *http.Client {
	return f.server.Client()
}

// Router implements the subset of the Runtime API the runtime uses.
func (f *RuntimeAPI) Router() http.Handler {
	router := chi.NewRouter()
	router.Route(runtimeapi.APIVersionPrefix, func(r chi.Router) {
		r.Get("/runtime/invocation/next", f.serveNext)
		r.Post("/runtime/invocation/{awsrequestid}/response", f.recordReport(KindResponse))
		r.Post("/runtime/invocation/{awsrequestid}/error", f.recordReport(KindError))
		// an empty request id leaves an empty segment
		r.Post("/runtime/invocation//response", f.recordReport(KindResponse))
		r.Post("/runtime/invocation//error", f.recordReport(KindError))
		r.Post("/runtime/init/error", f.recordReport(KindInitError))
	})
	return router
}

// Enqueue appends invocations to the queue.
func (f *RuntimeAPI) Enqueue(invocations ...Invocation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, inv := range invocations {
		if inv.RequestID == "" {
			inv.RequestID = uuid.New().String()
		}
		f.queue = append(f.queue, inv)
	}
}

// SetNextStatus makes /next answer with status instead of an event.
func (f *RuntimeAPI) SetNextStatus(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextStatus = status
}

// SetResponseStatus sets the status returned for success reports.
func (f *RuntimeAPI) SetResponseStatus(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responseStatus = status
}

// SetErrorStatus sets the status returned for error reports.
func (f *RuntimeAPI) SetErrorStatus(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errorStatus = status
}

// Polls counts GET /runtime/invocation/next requests.
func (f *RuntimeAPI) Polls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls
}

// Reports returns every report in arrival order.
func (f *RuntimeAPI) Reports() []Report {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Report(nil), f.reports...)
}

// ReportsOf returns the reports of one kind.
func (f *RuntimeAPI) ReportsOf(kind ReportKind) []Report {
	var out []Report
	for _, r := range f.Reports() {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

func (f *RuntimeAPI) serveNext(writer http.ResponseWriter, request *http.Request) {
	f.mu.Lock()
	f.polls++
	status := f.nextStatus
	var inv *Invocation
	if status == http.StatusOK {
		if len(f.queue) > 0 {
			next := f.queue[0]
			f.queue = f.queue[1:]
			f.last = &next
		}
		inv = f.last
	}
	f.mu.Unlock()

	if status != http.StatusOK {
		rendering.RenderError(writer, request, status, rendering.ErrorTypeServiceUnavailable, "next invocation unavailable")
		return
	}
	if inv == nil {
		rendering.RenderInternalServerError(writer, request)
		return
	}

	rendering.RenderInvokeHeaders(writer, rendering.InvokeHeaders{
		RequestID:       inv.RequestID,
		TraceID:         inv.TraceID,
		ClientContext:   inv.ClientContext,
		CognitoIdentity: inv.CognitoIdentity,
		FunctionArn:     inv.FunctionArn,
		DeadlineMS:      inv.DeadlineMS,
	}, inv.RawHeaders)
	if _, err := writer.Write(inv.Payload); err != nil {
		log.WithError(err).Warn("Failed to write invocation payload")
	}
}

func (f *RuntimeAPI) recordReport(kind ReportKind) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		body, err := io.ReadAll(request.Body)
		if err != nil {
			rendering.RenderInternalServerError(writer, request)
			return
		}

		f.mu.Lock()
		f.reports = append(f.reports, Report{
			Kind:      kind,
			RequestID: chi.URLParam(request, "awsrequestid"),
			ErrorType: request.Header.Get(model.FunctionErrorTypeHeader),
			Body:      body,
		})
		status := f.errorStatus
		if kind == KindResponse {
			status = f.responseStatus
		}
		f.mu.Unlock()

		if status >= http.StatusMultipleChoices {
			rendering.RenderError(writer, request, status, rendering.ErrorTypeRequestEntityTooLarge, "report rejected")
			return
		}
		rendering.RenderJSON(status, writer, request, &rendering.StatusResponse{Status: "OK"})
	}
}
