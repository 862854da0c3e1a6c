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
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rlakedata/preprocess/internal/artifact"
	"github.com/rlakedata/preprocess/internal/ingest"
	"github.com/rlakedata/preprocess/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRunner(t *testing.T, maxConcurrent int64) *Runner {
	t.Helper()
	store, err := artifact.NewLocal(filepath.Join(t.TempDir(), "artifacts"))
	require.NoError(t, err)
	return NewRunner(&Config{
		MaxConcurrent: maxConcurrent,
		WorkDir:       t.TempDir(),
	}, store)
}

func writeInput(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.csv")
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))
	return path
}

func TestRunnerEndToEnd(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	reg, err := LoadRegistry("testdata/jobs.yaml")
	r.NoError(err)
	j, ok := reg.Get("clean-gps")
	r.True(ok)

	runner := testRunner(t, 2)
	input := writeInput(t, "Name,Speed\ncar,12\nbike,3\ntrain,80\n")

	run, err := runner.RunSync(context.Background(), j, input, nil)
	r.NoError(err)

	snap := run.Snapshot()
	a.Equal(StatusSucceeded, snap.Status)
	a.Equal("clean-gps", snap.JobID)
	r.NotNil(snap.FinishedAt)
	a.Contains(snap.Log, "starting clean")
	a.Contains(snap.Log, "filtered by min_speed>=5: 3->2")

	// The artifact survived the scratch directory.
	u, err := url.Parse(snap.Artifact)
	r.NoError(err)
	data, err := os.ReadFile(u.Path)
	r.NoError(err)
	a.Equal("name,speed\ncar,12\ntrain,80\n", string(data))

	// The quality report reflects the produced table.
	r.NotNil(snap.Report)
	a.Equal(2, snap.Report.TotalRows)
	r.Len(snap.Report.Columns, 2)
	a.Equal(ingest.TypeString, snap.Report.Columns[0].Type)
	a.Equal(ingest.TypeInteger, snap.Report.Columns[1].Type)

	// Look up by ID.
	got, ok := runner.Get(run.ID)
	r.True(ok)
	a.Same(run, got)
}

func TestRunnerParameterOverride(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	reg, err := LoadRegistry("testdata/jobs.yaml")
	r.NoError(err)
	j, _ := reg.Get("clean-gps")

	runner := testRunner(t, 1)
	input := writeInput(t, "Name,Speed\ncar,12\nbike,3\n")

	// The run-time override relaxes the job's default threshold.
	run, err := runner.RunSync(context.Background(), j, input,
		map[string]any{"min_speed": 0})
	r.NoError(err)

	snap := run.Snapshot()
	u, err := url.Parse(snap.Artifact)
	r.NoError(err)
	data, err := os.ReadFile(u.Path)
	r.NoError(err)
	a.Equal("name,speed\ncar,12\nbike,3\n", string(data))
	a.Equal(0, snap.Parameters["min_speed"])
}

func TestRunnerScriptFailure(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	reg, err := LoadRegistry("testdata/jobs.yaml")
	r.NoError(err)
	j, _ := reg.Get("boom")

	runner := testRunner(t, 1)
	input := writeInput(t, "a\n1\n")

	run, err := runner.RunSync(context.Background(), j, input, nil)
	r.Error(err)

	invErr := &types.InvocationError{}
	r.ErrorAs(err, &invErr)
	a.Contains(invErr.Error(), "this job always fails")
	a.Equal(StatusFailed, run.Snapshot().Status)
}

func TestRunnerMissingInput(t *testing.T) {
	r := require.New(t)

	reg, err := LoadRegistry("testdata/jobs.yaml")
	r.NoError(err)
	j, _ := reg.Get("clean-gps")

	runner := testRunner(t, 1)
	_, err = runner.RunSync(context.Background(), j,
		filepath.Join(t.TempDir(), "nope.csv"), nil)
	r.Error(err)
}

func TestRunnerBusy(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	reg, err := LoadRegistry("testdata/jobs.yaml")
	r.NoError(err)
	slow, _ := reg.Get("slow")

	runner := testRunner(t, 1)
	input := writeInput(t, "a\n1\n")

	first, err := runner.StartRun(context.Background(), slow, input, nil)
	r.NoError(err)

	_, err = runner.StartRun(context.Background(), slow, input, nil)
	a.ErrorIs(err, ErrBusy)

	select {
	case <-first.Done():
	case <-time.After(30 * time.Second):
		t.Fatal("slow run did not finish")
	}
	a.Equal(StatusSucceeded, first.Snapshot().Status)

	// Capacity is released once the first run finishes.
	second, err := runner.StartRun(context.Background(), slow, input, nil)
	r.NoError(err)
	<-second.Done()
}

func TestRegistryValidation(t *testing.T) {
	a := assert.New(t)

	_, err := NewRegistry(&Job{ID: "x"})
	a.ErrorContains(err, "script must be set")

	_, err = NewRegistry(&Job{Script: "s.js"})
	a.ErrorContains(err, "id must be set")

	_, err = NewRegistry(
		&Job{ID: "x", Script: "a.js"},
		&Job{ID: "x", Script: "b.js"},
	)
	a.ErrorContains(err, "duplicate job id")

	reg, err := NewRegistry(&Job{ID: "x", Script: "a.js"})
	a.NoError(err)
	j, ok := reg.Get("x")
	a.True(ok)
	a.Equal(types.DefaultEntryFunction, j.Entry)
	a.Equal("x", j.Name)
}
