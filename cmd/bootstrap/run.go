// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"

	"github.com/kaon-rt/kaon/lambda/env"
	"github.com/kaon-rt/kaon/lambda/handler"
	"github.com/kaon-rt/kaon/lambda/interop"
	"github.com/kaon-rt/kaon/lambda/rapid"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// handlerFactory builds the function handler. A failure is reported to
// /runtime/init/error.
type handlerFactory func() (rapid.Handler, error)

// newEchoHandler returns a handler answering every event with itself. The
// event stays raw so numbers keep their full precision.
func newEchoHandler() (rapid.Handler, error) {
	return handler.New(func(ctx context.Context, event json.RawMessage, ic interop.Context) (json.RawMessage, error) {
		log.WithField("requestId", ic.RequestID).Debug("Echoing event")
		return event, nil
	}), nil
}

// run serves invocations until the loop halts or ctx is cancelled. A
// cancelled ctx is a clean shutdown.
func run(ctx context.Context, cfg *env.Config, newHandler handlerFactory, opts ...rapid.Option) error {
	loop, err := rapid.Charge(cfg, opts...)
	if err != nil {
		return err
	}

	h, err := newHandler()
	if err != nil {
		log.WithError(err).Error("Handler initialization failed")
		if reportErr := loop.ReportInitError(ctx, err); reportErr != nil {
			log.WithError(reportErr).Warn("Init error not delivered")
		}
		return err
	}

	decayed := make(chan struct{})
	var g errgroup.Group
	g.Go(func() error {
		defer close(decayed)
		err := loop.Decay(ctx, h)
		if err != nil && ctx.Err() != nil {
			log.WithError(err).Info("Runtime loop interrupted by shutdown")
			return nil
		}
		return err
	})
	g.Go(func() error {
		select {
		case <-ctx.Done():
			log.Info("Shutdown requested")
			loop.Stop()
		case <-decayed:
		}
		return nil
	})
	return g.Wait()
}
