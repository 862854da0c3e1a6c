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
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

// Config drives Runner behavior.
type Config struct {
	// MaxConcurrent bounds the number of simultaneously executing
	// runs. Additional StartRun calls fail with ErrBusy.
	MaxConcurrent int64
	// WorkDir is the parent of per-run scratch directories. Empty
	// means the system temp dir.
	WorkDir string
}

// Bind adds flags to the set.
func (c *Config) Bind(f *pflag.FlagSet) {
	f.Int64Var(&c.MaxConcurrent, "maxRuns", 4,
		"the maximum number of concurrently executing job runs")
	f.StringVar(&c.WorkDir, "workDir", "",
		"the parent directory for per-run scratch space; defaults to the system temp dir")
}

// Preflight validates the configuration.
func (c *Config) Preflight() error {
	if c.MaxConcurrent < 1 {
		return errors.New("maxRuns must be at least 1")
	}
	return nil
}
