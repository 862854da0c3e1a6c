// Copyright 2025 The R-Lake Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package server exposes the HTTP surface that triggers job runs.
package server

import (
	"context"
	"net"
	"net/http"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rlakedata/preprocess/internal/job"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"
)

// A Server receives job-run triggers and reports run status.
type Server struct {
	base     context.Context // Parent of run contexts; not the request's.
	mux      *http.ServeMux
	registry *job.Registry
	runner   *job.Runner
}

// New constructs the top-level network server. Runs started by
// incoming triggers are children of ctx, since they outlive the
// requests that start them.
func New(ctx context.Context, registry *job.Registry, runner *job.Runner) *Server {
	s := &Server{
		base:     ctx,
		mux:      &http.ServeMux{},
		registry: registry,
		runner:   runner,
	}

	s.mux.HandleFunc("POST /api/datasets/jobs/{job_id}/run", s.handleRun)
	s.mux.HandleFunc("GET /api/datasets/jobs/{job_id}/runs/{run_id}", s.handleRunStatus)
	s.mux.HandleFunc("GET /api/datasets/jobs", s.handleListJobs)
	s.mux.HandleFunc("/_/healthz", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "OK", http.StatusOK)
	})
	s.mux.Handle("/_/metrics", promhttp.Handler())

	return s
}

// Handler returns the request router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return h2c.NewHandler(s.mux, &http2.Server{})
}

// Serve accepts requests on the listener until the context is
// canceled, then drains gracefully.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{Handler: s.Handler()}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		err := srv.Serve(listener)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "unable to serve requests")
	})
	eg.Go(func() error {
		<-egCtx.Done()
		if err := srv.Shutdown(context.Background()); err != nil {
			log.WithError(err).Error("did not shut down cleanly")
			return err
		}
		log.Info("server shutdown complete")
		return nil
	})
	return eg.Wait()
}
