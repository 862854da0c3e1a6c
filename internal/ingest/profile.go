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

package ingest

import (
	"bufio"
	"encoding/csv"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// A ColumnProfile summarizes one column of the artifact.
type ColumnProfile struct {
	Name          string     `json:"name"`
	Type          ColumnType `json:"type"`
	NullCount     int        `json:"nullCount"`
	DistinctCount int        `json:"distinctCount"`
	// Completeness is the percentage of rows with a non-blank cell.
	Completeness float64 `json:"completeness"`
	// Min, Max, and Mean are populated for numeric columns only.
	Min  *float64 `json:"min,omitempty"`
	Max  *float64 `json:"max,omitempty"`
	Mean *float64 `json:"mean,omitempty"`
}

// A Report is the quality summary of a canonical artifact.
type Report struct {
	Encoding  string          `json:"encoding"`
	Delimiter string          `json:"delimiter"`
	TotalRows int             `json:"totalRows"`
	Columns   []ColumnProfile `json:"columns"`
}

// Profile reads the CSV artifact at path and produces a quality
// report. The artifact's charset and delimiter are detected rather
// than assumed; a zero-column artifact (the empty-sequence edge case)
// profiles as an empty report instead of failing.
func Profile(path string) (*Report, error) {
	charset, err := DetectEncoding(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()

	// The default bufio buffer is smaller than sniffLen and would
	// truncate the Peek below.
	decoded := bufio.NewReaderSize(DecodeReader(f, charset), sniffLen)
	headerLine, _ := decoded.Peek(sniffLen)
	firstLine, _, _ := strings.Cut(string(headerLine), "\n")
	delim := DetectDelimiter(firstLine)

	cr := csv.NewReader(decoded)
	cr.Comma = delim
	cr.FieldsPerRecord = -1 // tolerate ragged rows
	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "artifact is not parseable as CSV")
	}

	ret := &Report{
		Delimiter: string(delim),
		Encoding:  charset,
	}
	if len(records) == 0 {
		return ret, nil
	}

	header := records[0]
	rows := records[1:]
	ret.TotalRows = len(rows)
	ret.Columns = make([]ColumnProfile, len(header))

	for ci, name := range header {
		values := make([]string, len(rows))
		for ri, row := range rows {
			if ci < len(row) {
				values[ri] = row[ci]
			}
		}
		ret.Columns[ci] = profileColumn(name, values)
	}
	return ret, nil
}

// profileColumn computes per-column statistics the way the platform's
// schema screen expects them.
func profileColumn(name string, values []string) ColumnProfile {
	prof := ColumnProfile{
		Name: name,
		Type: InferColumnType(values),
	}

	distinct := make(map[string]struct{})
	var nums []float64
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			prof.NullCount++
			continue
		}
		distinct[v] = struct{}{}
		if prof.Type == TypeInteger || prof.Type == TypeFloat {
			if n, err := strconv.ParseFloat(v, 64); err == nil {
				nums = append(nums, n)
			}
		}
	}
	prof.DistinctCount = len(distinct)
	if len(values) > 0 {
		prof.Completeness = float64(len(values)-prof.NullCount) / float64(len(values)) * 100
	}

	if len(nums) > 0 {
		min, max, sum := math.Inf(1), math.Inf(-1), 0.0
		for _, n := range nums {
			min = math.Min(min, n)
			max = math.Max(max, n)
			sum += n
		}
		mean := sum / float64(len(nums))
		prof.Min, prof.Max, prof.Mean = &min, &max, &mean
	}
	return prof
}
