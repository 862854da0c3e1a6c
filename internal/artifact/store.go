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

// Package artifact persists canonical job-run artifacts beyond the
// lifetime of a run's scratch directory.
package artifact

import (
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// A Store accepts the canonical artifact of a completed run and
// returns a URL for the stored copy.
type Store interface {
	// Put stores the file at path under the given run ID.
	Put(ctx context.Context, runID, path string) (string, error)
}

// NewLocal returns a Store that copies artifacts into per-run
// subdirectories of dir.
func NewLocal(dir string) (Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, errors.WithStack(err)
	}
	return &localStore{dir: abs}, nil
}

type localStore struct {
	dir string
}

// Put implements Store.
func (s *localStore) Put(_ context.Context, runID, path string) (string, error) {
	destDir := filepath.Join(s.dir, runID)
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", errors.WithStack(err)
	}
	dest := filepath.Join(destDir, filepath.Base(path))

	src, err := os.Open(path)
	if err != nil {
		return "", errors.WithStack(err)
	}
	defer src.Close()

	out, err := os.Create(dest)
	if err != nil {
		return "", errors.WithStack(err)
	}
	if _, err := io.Copy(out, src); err != nil {
		_ = out.Close()
		_ = os.Remove(dest)
		return "", errors.WithStack(err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dest)
		return "", errors.WithStack(err)
	}

	u := url.URL{Scheme: "file", Path: dest}
	return u.String(), nil
}
