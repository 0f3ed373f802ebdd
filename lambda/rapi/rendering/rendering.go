// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package rendering writes Runtime API responses the way the control plane
// does. The in-process fake control plane renders through it.
package rendering

import (
	"net/http"

	"github.com/go-chi/render"
)

const (
	// ErrorTypeInternalServerError error type for internal server error
	ErrorTypeInternalServerError = "InternalServerError"
	// ErrorTypeInvalidRequestID error type for invalid request ID error
	ErrorTypeInvalidRequestID = "InvalidRequestID"
	// ErrorTypeRequestEntityTooLarge error type for payload too large
	ErrorTypeRequestEntityTooLarge = "RequestEntityTooLarge"
	// ErrorTypeServiceUnavailable error type for an unusable control plane
	ErrorTypeServiceUnavailable = "ServiceUnavailable"
)

// ErrorResponse is the body of a control-plane error.
type ErrorResponse struct {
	ErrorMessage string `json:"errorMessage"`
	ErrorType    string `json:"errorType"`
}

// StatusResponse acknowledges an accepted report.
type StatusResponse struct {
	Status string `json:"status"`
}

// InvokeHeaders are the per-invocation headers of a /next response.
type InvokeHeaders struct {
	RequestID       string
	TraceID         string
	ClientContext   string
	CognitoIdentity string
	FunctionArn     string
	DeadlineMS      string
	ContentType     string
}

// RenderInvokeHeaders writes headers and the 200 status line. Empty
// values are omitted.
func RenderInvokeHeaders(writer http.ResponseWriter, h InvokeHeaders, extra map[string]string) {
	headers := writer.Header()
	setHeaderIfNotEmpty(headers, "Lambda-Runtime-Aws-Request-Id", h.RequestID)
	setHeaderIfNotEmpty(headers, "Lambda-Runtime-Trace-Id", h.TraceID)
	setHeaderIfNotEmpty(headers, "Lambda-Runtime-Client-Context", h.ClientContext)
	setHeaderIfNotEmpty(headers, "Lambda-Runtime-Cognito-Identity", h.CognitoIdentity)
	setHeaderIfNotEmpty(headers, "Lambda-Runtime-Invoked-Function-Arn", h.FunctionArn)
	setHeaderIfNotEmpty(headers, "Lambda-Runtime-Deadline-Ms", h.DeadlineMS)
	setHeaderOrDefault(headers, "Content-Type", h.ContentType, "application/json")
	// extra values are written raw, bypassing canonicalization
	for k, v := range extra {
		headers[k] = []string{v}
	}
	writer.WriteHeader(http.StatusOK)
}

// RenderAccepted acknowledges a report.
func RenderAccepted(w http.ResponseWriter, r *http.Request) {
	RenderJSON(http.StatusAccepted, w, r, &StatusResponse{Status: "OK"})
}

// RenderError renders an error body with the given status.
func RenderError(w http.ResponseWriter, r *http.Request, status int, errorType, message string) {
	RenderJSON(status, w, r, &ErrorResponse{
		ErrorMessage: message,
		ErrorType:    errorType,
	})
}

// RenderInternalServerError method for rendering error response
func RenderInternalServerError(w http.ResponseWriter, r *http.Request) {
	RenderError(w, r, http.StatusInternalServerError, ErrorTypeInternalServerError, "Internal Server Error")
}

// RenderJSON sets the status and writes v as JSON.
func RenderJSON(status int, w http.ResponseWriter, r *http.Request, v interface{}) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

func setHeaderIfNotEmpty(headers http.Header, key string, value string) {
	if value != "" {
		headers.Set(key, value)
	}
}

func setHeaderOrDefault(headers http.Header, key, val, defaultVal string) {
	if val == "" {
		headers.Set(key, defaultVal)
		return
	}
	headers.Set(key, val)
}
