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
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

// Config drives the HTTP server.
type Config struct {
	BindAddr string // The network address to bind to.
	JobsFile string // The YAML job definitions file.
}

// Bind adds flags to the set.
func (c *Config) Bind(f *pflag.FlagSet) {
	f.StringVar(&c.BindAddr, "bindAddr", ":26280",
		"the network address to bind the API server to")
	f.StringVar(&c.JobsFile, "jobs", "",
		"the YAML file holding job definitions")
}

// Preflight validates the configuration.
func (c *Config) Preflight() error {
	if c.BindAddr == "" {
		return errors.New("bindAddr must be set")
	}
	if c.JobsFile == "" {
		return errors.New("a job definitions file is required; see the jobs flag")
	}
	return nil
}
