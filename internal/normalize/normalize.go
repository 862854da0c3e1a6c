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

// Package normalize converts the heterogeneous return value of a user
// preprocessing script into a single canonical CSV artifact.
package normalize

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
	"github.com/rlakedata/preprocess/internal/types"
)

// Normalize converts ret into the path of a canonical CSV artifact,
// given the ExecutionContext used in the invocation that produced it.
// The returned path is guaranteed to name an existing file. Normalize
// is a stateless single-shot function; re-running it on unchanged
// inputs yields a byte-identical artifact.
func Normalize(ctx *types.ExecutionContext, ret types.ReturnValue) (string, error) {
	switch v := ret.(type) {
	case nil, types.Absent:
		// The script wrote the output itself, at the default path.
		return verifyExists(ctx.DefaultOutputPath())

	case types.PathLike:
		// An already-produced file; pass the path through unchanged.
		return verifyExists(v.Path)

	case *types.Table:
		out := ctx.DefaultOutputPath()
		if err := writeAtomic(out, func(w *csv.Writer) error {
			if err := w.Write(v.Columns); err != nil {
				return errors.WithStack(err)
			}
			for i, row := range v.Rows {
				fields := make([]string, len(row))
				for j, cell := range row {
					s, ok := formatCell(cell)
					if !ok {
						col := ""
						if j < len(v.Columns) {
							col = v.Columns[j]
						}
						return &types.SerializationError{Column: col, Row: i, Value: cell}
					}
					fields[j] = s
				}
				if err := w.Write(fields); err != nil {
					return errors.WithStack(err)
				}
			}
			return nil
		}); err != nil {
			return "", err
		}
		return out, nil

	case *types.RecordSequence:
		header := inferHeader(v.Records)
		out := ctx.DefaultOutputPath()
		if err := writeAtomic(out, func(w *csv.Writer) error {
			// An empty sequence still emits the (zero-column) header
			// line, so the artifact is never an empty file.
			if err := w.Write(header); err != nil {
				return errors.WithStack(err)
			}
			for i, rec := range v.Records {
				fields := make([]string, len(header))
				for j, key := range header {
					cell, ok := rec.Fields[key]
					if !ok {
						continue // missing key becomes an empty field
					}
					s, ok := formatCell(cell)
					if !ok {
						return &types.SerializationError{Column: key, Row: i, Value: cell}
					}
					fields[j] = s
				}
				if err := w.Write(fields); err != nil {
					return errors.WithStack(err)
				}
			}
			return nil
		}); err != nil {
			return "", err
		}
		return out, nil

	default:
		return "", errors.Errorf("unsupported return value type %T", ret)
	}
}

// inferHeader computes the union of all keys across the records, in
// first-seen order over the sequence traversal.
func inferHeader(records []types.Record) []string {
	var header []string
	seen := make(map[string]struct{})
	for _, rec := range records {
		for _, key := range rec.Keys {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			header = append(header, key)
		}
	}
	return header
}

// verifyExists confirms that path names an existing regular file.
// Stat failures other than non-existence are reported as-is.
func verifyExists(path string) (string, error) {
	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		return "", &types.MissingOutputError{Path: path}
	case err != nil:
		return "", errors.WithStack(err)
	case info.IsDir():
		return "", &types.MissingOutputError{Path: path}
	}
	return path, nil
}

// writeAtomic streams CSV through fn into a temporary sibling of path
// and renames it into place on success. A failure partway through
// leaves no file at path.
func writeAtomic(path string, fn func(w *csv.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp.*")
	if err != nil {
		return errors.WithStack(err)
	}
	w := csv.NewWriter(tmp)
	if err := fn(w); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	w.Flush()
	if err := w.Error(); err == nil {
		err = tmp.Close()
	} else {
		_ = tmp.Close()
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return errors.WithStack(err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return errors.WithStack(err)
	}
	return nil
}

// formatCell stringifies a scalar cell value. The boolean result is
// false for non-scalar values.
func formatCell(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", true
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case int:
		return strconv.Itoa(t), true
	case int8:
		return strconv.FormatInt(int64(t), 10), true
	case int16:
		return strconv.FormatInt(int64(t), 10), true
	case int32:
		return strconv.FormatInt(int64(t), 10), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case uint:
		return strconv.FormatUint(uint64(t), 10), true
	case uint8:
		return strconv.FormatUint(uint64(t), 10), true
	case uint16:
		return strconv.FormatUint(uint64(t), 10), true
	case uint32:
		return strconv.FormatUint(uint64(t), 10), true
	case uint64:
		return strconv.FormatUint(t, 10), true
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case json.Number:
		return t.String(), true
	default:
		return "", false
	}
}
