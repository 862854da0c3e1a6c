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
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorePut(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	src := filepath.Join(t.TempDir(), "output.csv")
	r.NoError(os.WriteFile(src, []byte("a,b\n1,2\n"), 0644))

	store, err := NewLocal(filepath.Join(t.TempDir(), "artifacts"))
	r.NoError(err)

	loc, err := store.Put(context.Background(), "run-1234", src)
	r.NoError(err)

	u, err := url.Parse(loc)
	r.NoError(err)
	a.Equal("file", u.Scheme)

	data, err := os.ReadFile(u.Path)
	r.NoError(err)
	a.Equal("a,b\n1,2\n", string(data))
	a.Equal("output.csv", filepath.Base(u.Path))
	a.Equal("run-1234", filepath.Base(filepath.Dir(u.Path)))
}

func TestLocalStoreMissingSource(t *testing.T) {
	r := require.New(t)

	store, err := NewLocal(t.TempDir())
	r.NoError(err)

	_, err = store.Put(context.Background(), "run-1",
		filepath.Join(t.TempDir(), "nope.csv"))
	r.Error(err)
}

func TestConfigPreflight(t *testing.T) {
	a := assert.New(t)

	cfg := &Config{Dir: "artifacts"}
	a.NoError(cfg.Preflight())

	cfg = &Config{}
	a.Error(cfg.Preflight())

	cfg = &Config{S3: S3Config{Endpoint: "localhost:9000"}}
	a.Error(cfg.Preflight())

	cfg = &Config{S3: S3Config{Endpoint: "localhost:9000", Bucket: "b"}}
	a.NoError(cfg.Preflight())
}
