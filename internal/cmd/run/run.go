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

// Package run contains a one-shot command for script authors: execute
// a preprocessing script against a local file and print the artifact.
package run

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/rlakedata/preprocess/internal/artifact"
	"github.com/rlakedata/preprocess/internal/job"
	"github.com/rlakedata/preprocess/internal/params"
	"github.com/rlakedata/preprocess/internal/types"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Command returns the one-shot run command.
func Command() *cobra.Command {
	var artCfg artifact.Config
	var jobCfg job.Config
	var entry, input, paramsJSON, scriptPath string
	cmd := &cobra.Command{
		Args:  cobra.NoArgs,
		Short: "run a preprocessing script once and print the artifact location",
		Use:   "run",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if scriptPath == "" {
				return errors.New("a script is required; see the script flag")
			}
			if input == "" {
				return errors.New("an input file is required; see the input flag")
			}
			for _, fn := range []func() error{artCfg.Preflight, jobCfg.Preflight} {
				if err := fn(); err != nil {
					return err
				}
			}
			ctx := cmd.Context()

			overrides, err := params.ParseJSON(paramsJSON)
			if err != nil {
				return err
			}

			j := &job.Job{
				ID:     "adhoc",
				Entry:  entry,
				Script: scriptPath,
			}
			if err := j.Validate(); err != nil {
				return err
			}

			store, err := artCfg.Open(ctx)
			if err != nil {
				return err
			}

			run, err := job.NewRunner(&jobCfg, store).RunSync(ctx, j, input, overrides)
			if err != nil {
				return err
			}

			snap := run.Snapshot()
			for _, line := range snap.Log {
				log.WithField("run", snap.ID).Info(line)
			}
			fmt.Fprintln(cmd.OutOrStdout(), snap.Artifact)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&entry, "entryFunction", types.DefaultEntryFunction,
		"the name of the function to invoke on the script")
	f.StringVar(&input, "input", "", "the file to preprocess")
	f.StringVar(&paramsJSON, "parameters", "",
		"a JSON object of run-time parameters")
	f.StringVar(&scriptPath, "script", "", "the preprocessing script to run")
	artCfg.Bind(f)
	jobCfg.Bind(f)
	return cmd
}
