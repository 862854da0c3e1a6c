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

// Package job executes preprocessing jobs: it invokes a user script
// with a per-run ExecutionContext and normalizes the returned value
// into a canonical CSV artifact.
package job

import (
	"os"
	"sort"

	"github.com/pkg/errors"
	"github.com/rlakedata/preprocess/internal/types"
	"gopkg.in/yaml.v3"
)

// A Job is a configured unit of work referencing a user script and
// its default parameters.
type Job struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	// Script is the filesystem path of the main script.
	Script string `yaml:"script" json:"script"`
	// Entry is the entry function name; defaults to "process".
	Entry string `yaml:"entry,omitempty" json:"entry,omitempty"`
	// Defaults are the job-level default parameters.
	Defaults map[string]any `yaml:"parameters,omitempty" json:"parameters,omitempty"`
}

// Validate applies defaults and checks required fields.
func (j *Job) Validate() error {
	if j.ID == "" {
		return errors.New("job id must be set")
	}
	if j.Script == "" {
		return errors.Errorf("job %q: script must be set", j.ID)
	}
	if j.Entry == "" {
		j.Entry = types.DefaultEntryFunction
	}
	if j.Name == "" {
		j.Name = j.ID
	}
	return nil
}

// A Registry is an immutable collection of job definitions, keyed by
// ID. Job persistence belongs to the surrounding platform; this
// process only needs the definitions it was started with.
type Registry struct {
	byID map[string]*Job
}

// NewRegistry validates the given jobs and indexes them by ID.
func NewRegistry(jobs ...*Job) (*Registry, error) {
	ret := &Registry{byID: make(map[string]*Job, len(jobs))}
	for _, j := range jobs {
		if err := j.Validate(); err != nil {
			return nil, err
		}
		if _, dup := ret.byID[j.ID]; dup {
			return nil, errors.Errorf("duplicate job id %q", j.ID)
		}
		ret.byID[j.ID] = j
	}
	return ret, nil
}

// Get returns the job with the given ID.
func (r *Registry) Get(id string) (*Job, bool) {
	j, ok := r.byID[id]
	return j, ok
}

// All returns the jobs, sorted by ID.
func (r *Registry) All() []*Job {
	ret := make([]*Job, 0, len(r.byID))
	for _, j := range r.byID {
		ret = append(ret, j)
	}
	sort.Slice(ret, func(i, k int) bool { return ret[i].ID < ret[k].ID })
	return ret
}

// jobsFile is the on-disk shape of a job definitions file.
type jobsFile struct {
	Jobs []*Job `yaml:"jobs"`
}

// LoadRegistry reads a YAML job definitions file.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	var f jobsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	return NewRegistry(f.Jobs...)
}
