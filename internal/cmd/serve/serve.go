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

// Package serve contains the command to start the API server.
package serve

import (
	"net"

	"github.com/rlakedata/preprocess/internal/artifact"
	"github.com/rlakedata/preprocess/internal/job"
	"github.com/rlakedata/preprocess/internal/server"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Command returns the command to start the server.
func Command() *cobra.Command {
	var artCfg artifact.Config
	var jobCfg job.Config
	var srvCfg server.Config
	cmd := &cobra.Command{
		Args:  cobra.NoArgs,
		Short: "start the preprocessing API server",
		Use:   "serve",
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, fn := range []func() error{
				artCfg.Preflight, jobCfg.Preflight, srvCfg.Preflight,
			} {
				if err := fn(); err != nil {
					return err
				}
			}
			ctx := cmd.Context()

			registry, err := job.LoadRegistry(srvCfg.JobsFile)
			if err != nil {
				return err
			}
			log.Infof("loaded %d job definitions from %s",
				len(registry.All()), srvCfg.JobsFile)

			store, err := artCfg.Open(ctx)
			if err != nil {
				return err
			}
			runner := job.NewRunner(&jobCfg, store)

			listener, err := net.Listen("tcp", srvCfg.BindAddr)
			if err != nil {
				return err
			}
			log.Infof("listening on %s", listener.Addr())

			return server.New(ctx, registry, runner).Serve(ctx, listener)
		},
	}
	f := cmd.Flags()
	artCfg.Bind(f)
	jobCfg.Bind(f)
	srvCfg.Bind(f)
	return cmd
}
