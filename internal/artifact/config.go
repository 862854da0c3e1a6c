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

package artifact

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

// Config selects and configures an artifact store.
type Config struct {
	Dir string // Local artifact directory.
	S3  S3Config
}

// Bind adds flags to the set.
func (c *Config) Bind(f *pflag.FlagSet) {
	f.StringVar(&c.Dir, "artifactDir", "artifacts",
		"a local directory to store run artifacts in")
	f.StringVar(&c.S3.Endpoint, "s3Endpoint", "",
		"store artifacts in this S3-compatible endpoint instead of a local directory")
	f.StringVar(&c.S3.Bucket, "s3Bucket", "rlake-artifacts",
		"the bucket to store artifacts in")
	f.StringVar(&c.S3.AccessKey, "s3AccessKey", "", "the object-store access key")
	f.StringVar(&c.S3.SecretKey, "s3SecretKey", "", "the object-store secret key")
	f.BoolVar(&c.S3.Insecure, "s3Insecure", false,
		"connect to the object store without TLS")
}

// Preflight validates the configuration.
func (c *Config) Preflight() error {
	if c.S3.Endpoint != "" && c.S3.Bucket == "" {
		return errors.New("s3Bucket must be set when s3Endpoint is in use")
	}
	if c.S3.Endpoint == "" && c.Dir == "" {
		return errors.New("artifactDir must be set")
	}
	return nil
}

// Open constructs the configured Store.
func (c *Config) Open(ctx context.Context) (Store, error) {
	if c.S3.Endpoint != "" {
		return NewS3(ctx, &c.S3)
	}
	return NewLocal(c.Dir)
}
