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

package job

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rlakedata/preprocess/internal/util/metrics"
)

var (
	runLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "job_run_duration_seconds",
		Help:    "the end-to-end duration of successful job runs",
		Buckets: metrics.LatencyBuckets,
	}, metrics.JobLabels)
	runsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "job_runs_failed_total",
		Help: "the number of job runs that ended in a terminal error",
	}, metrics.JobLabels)
	runsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "job_runs_started_total",
		Help: "the number of job runs started",
	}, metrics.JobLabels)
	runsSucceeded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "job_runs_succeeded_total",
		Help: "the number of job runs that produced an artifact",
	}, metrics.JobLabels)
)
