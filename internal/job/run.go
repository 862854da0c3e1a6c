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
	"sync"
	"time"

	"github.com/rlakedata/preprocess/internal/ingest"
)

// Status is the lifecycle state of a run.
type Status string

// The run states. There are no retries: a failure is terminal for its
// run.
const (
	StatusRunning   Status = "RUNNING"
	StatusSucceeded Status = "SUCCESS"
	StatusFailed    Status = "FAILED"
)

// A Run is one execution instance of a Job. It owns the run-scoped
// log and, once finished, the artifact location and quality report.
type Run struct {
	ID         string         // A V4 UUID.
	JobID      string         // The job this run executes.
	Parameters map[string]any // The effective (merged) parameters.
	StartedAt  time.Time

	done chan struct{}

	mu struct {
		sync.Mutex
		artifact   string // Stored artifact URL.
		err        error
		finishedAt time.Time
		log        []string
		report     *ingest.Report
		status     Status
	}
}

func newRun(id, jobID string, parameters map[string]any) *Run {
	r := &Run{
		ID:         id,
		JobID:      jobID,
		Parameters: parameters,
		StartedAt:  time.Now().UTC(),
		done:       make(chan struct{}),
	}
	r.mu.status = StatusRunning
	return r
}

// AppendLog adds a line to the run-scoped log.
func (r *Run) AppendLog(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mu.log = append(r.mu.log, message)
}

// Done is closed when the run reaches a terminal state.
func (r *Run) Done() <-chan struct{} { return r.done }

// Err returns the terminal error, if the run failed.
func (r *Run) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mu.err
}

// succeed marks the run as finished.
func (r *Run) succeed(artifactURL string, report *ingest.Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mu.artifact = artifactURL
	r.mu.finishedAt = time.Now().UTC()
	r.mu.report = report
	r.mu.status = StatusSucceeded
	close(r.done)
}

// fail marks the run as failed.
func (r *Run) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mu.err = err
	r.mu.finishedAt = time.Now().UTC()
	r.mu.status = StatusFailed
	close(r.done)
}

// A RunSnapshot is a point-in-time copy of a run's state, suitable
// for returning from the API.
type RunSnapshot struct {
	ID         string         `json:"id"`
	JobID      string         `json:"jobId"`
	Status     Status         `json:"status"`
	Parameters map[string]any `json:"parameters,omitempty"`
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt *time.Time     `json:"finishedAt,omitempty"`
	Artifact   string         `json:"artifact,omitempty"`
	Error      string         `json:"error,omitempty"`
	Log        []string       `json:"log,omitempty"`
	Report     *ingest.Report `json:"report,omitempty"`
}

// Snapshot copies the run's current state.
func (r *Run) Snapshot() *RunSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	ret := &RunSnapshot{
		ID:         r.ID,
		JobID:      r.JobID,
		Status:     r.mu.status,
		Parameters: r.Parameters,
		StartedAt:  r.StartedAt,
		Artifact:   r.mu.artifact,
		Log:        append([]string(nil), r.mu.log...),
		Report:     r.mu.report,
	}
	if !r.mu.finishedAt.IsZero() {
		t := r.mu.finishedAt
		ret.FinishedAt = &t
	}
	if r.mu.err != nil {
		ret.Error = r.mu.err.Error()
	}
	return ret
}
