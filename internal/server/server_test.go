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

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rlakedata/preprocess/internal/artifact"
	"github.com/rlakedata/preprocess/internal/job"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T, maxConcurrent int64) (*Server, *job.Runner) {
	t.Helper()

	registry, err := job.NewRegistry(
		&job.Job{
			ID:       "echo",
			Script:   "testdata/echo.js",
			Defaults: map[string]any{"mode": "full"},
		},
		&job.Job{ID: "slow", Script: "testdata/slow.js"},
		&job.Job{ID: "writer", Script: "testdata/writer.js"},
	)
	require.NoError(t, err)

	store, err := artifact.NewLocal(filepath.Join(t.TempDir(), "artifacts"))
	require.NoError(t, err)
	runner := job.NewRunner(&job.Config{
		MaxConcurrent: maxConcurrent,
		WorkDir:       t.TempDir(),
	}, store)

	return New(context.Background(), registry, runner), runner
}

func writeInput(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "upload.csv")
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))
	return path
}

func triggerRun(
	t *testing.T, s *Server, jobID, body string,
) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost,
		"/api/datasets/jobs/"+jobID+"/run", strings.NewReader(body))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func awaitRun(t *testing.T, runner *job.Runner, runID string) *job.RunSnapshot {
	t.Helper()
	run, ok := runner.Get(runID)
	require.True(t, ok)
	select {
	case <-run.Done():
	case <-time.After(30 * time.Second):
		t.Fatal("run did not finish")
	}
	return run.Snapshot()
}

func TestRunTrigger(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	s, runner := testServer(t, 2)
	input := writeInput(t, "a,b\n1,2\n")

	w := triggerRun(t, s, "echo", `{"input": `+mustJSON(input)+`}`)
	r.Equal(http.StatusAccepted, w.Code)

	var accepted struct {
		RunID  string     `json:"runId"`
		Status job.Status `json:"status"`
	}
	r.NoError(json.Unmarshal(w.Body.Bytes(), &accepted))
	a.Equal(job.StatusRunning, accepted.Status)

	snap := awaitRun(t, runner, accepted.RunID)
	a.Equal(job.StatusSucceeded, snap.Status)
	a.Contains(snap.Log, "echoing input")

	// Status endpoint returns the finished snapshot.
	req := httptest.NewRequest(http.MethodGet,
		"/api/datasets/jobs/echo/runs/"+accepted.RunID, nil)
	w2 := httptest.NewRecorder()
	s.Handler().ServeHTTP(w2, req)
	r.Equal(http.StatusOK, w2.Code)

	var got job.RunSnapshot
	r.NoError(json.Unmarshal(w2.Body.Bytes(), &got))
	a.Equal(job.StatusSucceeded, got.Status)
	a.NotEmpty(got.Artifact)
	a.NotNil(got.Report)
	// Job defaults flow into the effective parameters.
	a.Equal("full", got.Parameters["mode"])
}

func TestRunTriggerErrors(t *testing.T) {
	a := assert.New(t)

	s, _ := testServer(t, 1)
	input := writeInput(t, "a\n1\n")

	// Unknown job.
	w := triggerRun(t, s, "nope", `{"input": `+mustJSON(input)+`}`)
	a.Equal(http.StatusNotFound, w.Code)

	// Malformed body.
	w = triggerRun(t, s, "echo", `{`)
	a.Equal(http.StatusBadRequest, w.Code)

	// Missing input.
	w = triggerRun(t, s, "echo", `{}`)
	a.Equal(http.StatusBadRequest, w.Code)
}

func TestRunTriggerBusy(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	s, runner := testServer(t, 1)
	input := writeInput(t, "a\n1\n")

	w := triggerRun(t, s, "slow", `{"input": `+mustJSON(input)+`}`)
	r.Equal(http.StatusAccepted, w.Code)
	var accepted struct {
		RunID string `json:"runId"`
	}
	r.NoError(json.Unmarshal(w.Body.Bytes(), &accepted))

	// The single run slot is taken.
	w = triggerRun(t, s, "slow", `{"input": `+mustJSON(input)+`}`)
	a.Equal(http.StatusConflict, w.Code)

	awaitRun(t, runner, accepted.RunID)
}

func TestRunStatusNotFound(t *testing.T) {
	a := assert.New(t)

	s, _ := testServer(t, 1)

	req := httptest.NewRequest(http.MethodGet,
		"/api/datasets/jobs/echo/runs/bogus", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	a.Equal(http.StatusNotFound, w.Code)
}

func TestRunStatusWrongJob(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	s, runner := testServer(t, 1)
	input := writeInput(t, "a\n1\n")

	w := triggerRun(t, s, "writer", `{"input": `+mustJSON(input)+`}`)
	r.Equal(http.StatusAccepted, w.Code)
	var accepted struct {
		RunID string `json:"runId"`
	}
	r.NoError(json.Unmarshal(w.Body.Bytes(), &accepted))
	awaitRun(t, runner, accepted.RunID)

	// The run exists, but under a different job.
	req := httptest.NewRequest(http.MethodGet,
		"/api/datasets/jobs/echo/runs/"+accepted.RunID, nil)
	w2 := httptest.NewRecorder()
	s.Handler().ServeHTTP(w2, req)
	a.Equal(http.StatusNotFound, w2.Code)
}

func TestListJobs(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	s, _ := testServer(t, 1)

	req := httptest.NewRequest(http.MethodGet, "/api/datasets/jobs", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	r.Equal(http.StatusOK, w.Code)

	var jobs []*job.Job
	r.NoError(json.Unmarshal(w.Body.Bytes(), &jobs))
	r.Len(jobs, 3)
	a.Equal("echo", jobs[0].ID)
}

func TestHealthz(t *testing.T) {
	a := assert.New(t)

	s, _ := testServer(t, 1)

	req := httptest.NewRequest(http.MethodGet, "/_/healthz", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	a.Equal(http.StatusOK, w.Code)
}

func mustJSON(s string) string {
	data, err := json.Marshal(s)
	if err != nil {
		panic(err)
	}
	return string(data)
}
