// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package rapitest

import (
	"context"
	"net/http"
	"testing"

	"github.com/kaon-rt/kaon/lambda/runtimeapi"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, api *RuntimeAPI) *runtimeapi.Client {
	client, err := runtimeapi.NewClient(api.Authority(), runtimeapi.WithHTTPClient(api.HTTPClient()))
	require.NoError(t, err)
	return client
}

func TestRuntimeAPIReplaysLastInvocation(t *testing.T) {
	api := NewRuntimeAPI(Invocation{Payload: []byte(`{}`)}).Start()
	defer api.Close()
	client := newClient(t, api)

	first, err := client.Next(context.Background())
	require.NoError(t, err)
	second, err := client.Next(context.Background())
	require.NoError(t, err)

	requestID := first.Header.Get(runtimeapi.HeaderRequestID)
	assert.NotEmpty(t, requestID)
	assert.Equal(t, requestID, second.Header.Get(runtimeapi.HeaderRequestID))
	assert.Equal(t, 2, api.Polls())
}

func TestRuntimeAPIWithoutInvocations(t *testing.T) {
	api := NewRuntimeAPI().Start()
	defer api.Close()

	_, err := newClient(t, api).Next(context.Background())
	assert.Error(t, err)
}

func TestRuntimeAPIRecordsReports(t *testing.T) {
	api := NewRuntimeAPI().Start()
	defer api.Close()
	client := newClient(t, api)

	require.NoError(t, client.PostResponse(context.Background(), "req-1", []byte(`"ok"`)))
	api.SetResponseStatus(http.StatusBadRequest)
	assert.Error(t, client.PostResponse(context.Background(), "req-2", []byte(`"ok"`)))

	reports := api.ReportsOf(KindResponse)
	require.Len(t, reports, 2)
	assert.Equal(t, "req-1", reports[0].RequestID)
	assert.Equal(t, []byte(`"ok"`), reports[0].Body)
	assert.Equal(t, "req-2", reports[1].RequestID)
}
