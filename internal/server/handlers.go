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
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"
	"github.com/rlakedata/preprocess/internal/job"
	log "github.com/sirupsen/logrus"
)

// runRequest is the body of a run-trigger request.
type runRequest struct {
	// Input is the path of the uploaded file to preprocess.
	Input string `json:"input"`
	// Parameters are run-time overrides of the job defaults.
	Parameters map[string]any `json:"parameters"`
}

// runAccepted is the 202 response to a run trigger.
type runAccepted struct {
	RunID  string     `json:"runId"`
	Status job.Status `json:"status"`
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	j, ok := s.registry.Get(r.PathValue("job_id"))
	if !ok {
		http.Error(w, "no such job", http.StatusNotFound)
		return
	}

	var req runRequest
	body, err := io.ReadAll(r.Body)
	if err == nil && len(body) > 0 {
		err = json.Unmarshal(body, &req)
	}
	if err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}
	if req.Input == "" {
		http.Error(w, "input is required", http.StatusBadRequest)
		return
	}

	// The run outlives this request; it is bound to the server's
	// lifetime, not the trigger's.
	run, err := s.runner.StartRun(s.base, j, req.Input, req.Parameters)
	switch {
	case errors.Is(err, job.ErrBusy):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		log.WithError(err).WithField("job", j.ID).Error("could not start run")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, &runAccepted{RunID: run.ID, Status: job.StatusRunning})
}

func (s *Server) handleRunStatus(w http.ResponseWriter, r *http.Request) {
	run, ok := s.runner.Get(r.PathValue("run_id"))
	if !ok || run.JobID != r.PathValue("job_id") {
		http.Error(w, "no such run", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, run.Snapshot())
}

func (s *Server) handleListJobs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.All())
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.WithError(err).Warn("could not write response")
	}
}
