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

// Package types contains data types and interfaces that define the
// contract between a user-supplied preprocessing script and the job
// harness that invokes it.
package types

import (
	"path/filepath"
)

// DefaultOutputName is the filename used whenever the user script does
// not supply an explicit output path.
const DefaultOutputName = "output.csv"

// DefaultEntryFunction is the name of the function invoked on the user
// script unless the job overrides it.
const DefaultEntryFunction = "process"

// An InputFile is an opaque handle to the raw uploaded data source
// behind a job run.
type InputFile struct {
	Name string // The original filename, as uploaded.
	Size int64  // Size in bytes, or a negative value when unknown.
}

// An ExecutionContext is the value bundle passed to the user script
// once per invocation. It is created fresh for each job run, owned
// exclusively by that run, and discarded when the run completes.
type ExecutionContext struct {
	// InputFile describes the raw uploaded data source.
	InputFile InputFile
	// InputPath is the absolute filesystem path to the input table.
	InputPath string
	// Parameters is the effective parameter mapping: job defaults
	// overlaid with run-time overrides, run-time winning on collision.
	Parameters map[string]any
	// TempDir is a scratch directory valid for the duration of one
	// invocation.
	TempDir string
	// LogSink receives lines appended via Log. A nil sink discards.
	LogSink func(message string)
}

// MakeOutputPath returns a deterministic path under TempDir for the
// given filename.
func (c *ExecutionContext) MakeOutputPath(name string) string {
	return filepath.Join(c.TempDir, name)
}

// DefaultOutputPath is shorthand for MakeOutputPath(DefaultOutputName).
func (c *ExecutionContext) DefaultOutputPath() string {
	return c.MakeOutputPath(DefaultOutputName)
}

// Log appends a line to the run-scoped log sink.
func (c *ExecutionContext) Log(message string) {
	if c.LogSink != nil {
		c.LogSink(message)
	}
}
