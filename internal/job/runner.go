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
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/pkg/errors"
	"github.com/rlakedata/preprocess/internal/artifact"
	"github.com/rlakedata/preprocess/internal/ingest"
	"github.com/rlakedata/preprocess/internal/normalize"
	"github.com/rlakedata/preprocess/internal/params"
	"github.com/rlakedata/preprocess/internal/script"
	"github.com/rlakedata/preprocess/internal/types"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

// ErrBusy is returned by StartRun when the concurrent-run limit has
// been reached.
var ErrBusy = errors.New("concurrent job-run limit reached")

// A Runner executes job runs. Each run is sequential within itself:
// script invocation, then normalization, then profiling and artifact
// publication. Runs are mutually isolated; every run gets its own VM,
// scratch directory, and ExecutionContext.
type Runner struct {
	cfg   *Config
	store artifact.Store

	mu struct {
		sync.Mutex
		runs map[string]*Run
	}
	sem *semaphore.Weighted
}

// NewRunner constructs a Runner that publishes artifacts to the given
// store.
func NewRunner(cfg *Config, store artifact.Store) *Runner {
	r := &Runner{
		cfg:   cfg,
		sem:   semaphore.NewWeighted(cfg.MaxConcurrent),
		store: store,
	}
	r.mu.runs = make(map[string]*Run)
	return r
}

// Get returns a previously started run.
func (r *Runner) Get(runID string) (*Run, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.mu.runs[runID]
	return run, ok
}

// StartRun begins executing the job against the named input file and
// returns immediately. The caller may watch Run.Done. StartRun fails
// with ErrBusy when the concurrent-run limit is reached; it does not
// queue.
func (r *Runner) StartRun(
	ctx context.Context, j *Job, input string, overrides map[string]any,
) (*Run, error) {
	if !r.sem.TryAcquire(1) {
		return nil, ErrBusy
	}

	effective, err := params.Merge(j.Defaults, overrides)
	if err != nil {
		r.sem.Release(1)
		return nil, err
	}

	id, err := uuid.NewV4()
	if err != nil {
		r.sem.Release(1)
		return nil, errors.WithStack(err)
	}

	run := newRun(id.String(), j.ID, effective)
	r.mu.Lock()
	r.mu.runs[run.ID] = run
	r.mu.Unlock()

	go func() {
		defer r.sem.Release(1)
		r.execute(ctx, j, run, input)
	}()
	return run, nil
}

// RunSync executes the job and blocks until the run finishes.
func (r *Runner) RunSync(
	ctx context.Context, j *Job, input string, overrides map[string]any,
) (*Run, error) {
	run, err := r.StartRun(ctx, j, input, overrides)
	if err != nil {
		return nil, err
	}
	select {
	case <-run.Done():
		return run, run.Err()
	case <-ctx.Done():
		return run, ctx.Err()
	}
}

// execute drives one run to a terminal state.
func (r *Runner) execute(ctx context.Context, j *Job, run *Run, input string) {
	entry := log.WithFields(log.Fields{"job": j.ID, "run": run.ID})
	start := time.Now()
	runsStarted.WithLabelValues(j.ID).Inc()

	artifactURL, report, err := r.runOnce(ctx, j, run, input)
	if err != nil {
		entry.WithError(err).Error("job run failed")
		runsFailed.WithLabelValues(j.ID).Inc()
		run.fail(err)
		return
	}

	runLatency.WithLabelValues(j.ID).Observe(time.Since(start).Seconds())
	runsSucceeded.WithLabelValues(j.ID).Inc()
	entry.WithField("artifact", artifactURL).Info("job run succeeded")
	run.succeed(artifactURL, report)
}

func (r *Runner) runOnce(
	ctx context.Context, j *Job, run *Run, input string,
) (string, *ingest.Report, error) {
	inputPath, err := filepath.Abs(input)
	if err != nil {
		return "", nil, errors.WithStack(err)
	}
	info, err := os.Stat(inputPath)
	if err != nil {
		return "", nil, errors.Wrap(err, "input file")
	}

	// The scratch directory lives exactly as long as this invocation.
	tempDir, err := os.MkdirTemp(r.cfg.WorkDir, "run-"+run.ID+"-")
	if err != nil {
		return "", nil, errors.WithStack(err)
	}
	defer func() {
		if err := os.RemoveAll(tempDir); err != nil {
			log.WithError(err).Warnf("could not clean up %s", tempDir)
		}
	}()

	scriptPath, err := filepath.Abs(j.Script)
	if err != nil {
		return "", nil, errors.WithStack(err)
	}
	dir, base := filepath.Split(scriptPath)
	userScript, err := script.Load(&script.Config{
		Entry:    j.Entry,
		FS:       os.DirFS(dir),
		MainPath: "/" + base,
	})
	if err != nil {
		return "", nil, err
	}

	ectx := &types.ExecutionContext{
		InputFile:  types.InputFile{Name: info.Name(), Size: info.Size()},
		InputPath:  inputPath,
		Parameters: run.Parameters,
		TempDir:    tempDir,
		LogSink:    run.AppendLog,
	}

	ret, err := userScript.Execute(ctx, ectx)
	if err != nil {
		return "", nil, err
	}

	canonical, err := normalize.Normalize(ectx, ret)
	if err != nil {
		return "", nil, err
	}

	report, err := ingest.Profile(canonical)
	if err != nil {
		return "", nil, err
	}

	// Publish before the scratch directory is discarded.
	artifactURL, err := r.store.Put(ctx, run.ID, canonical)
	if err != nil {
		return "", nil, errors.Wrap(err, "storing artifact")
	}
	return artifactURL, report, nil
}
