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

package types

// A ReturnValue is the value produced by one invocation of the user
// script's entry function. Exactly one of the four variants below is
// active per invocation. The unexported marker method keeps the set of
// variants closed, so a switch over the concrete types is exhaustive.
type ReturnValue interface {
	isReturnValue()
}

// Absent indicates the entry function returned nothing. The script is
// assumed to have written its output to the context's default output
// path itself.
type Absent struct{}

func (Absent) isReturnValue() {}

// PathLike is a string or structured path reference to an
// already-produced CSV file.
type PathLike struct {
	Path string
}

func (PathLike) isReturnValue() {}

// A Table is an in-memory tabular structure with named columns. Rows
// are positional: Rows[i][j] is the value of Columns[j] in row i.
type Table struct {
	Columns []string
	Rows    [][]any
}

func (*Table) isReturnValue() {}

// A Record is one key-value document within a RecordSequence. Keys
// preserves the order in which the script defined the fields; Fields
// holds the values.
type Record struct {
	Keys   []string
	Fields map[string]any
}

// A RecordSequence is an ordered sequence of key-value records,
// possibly with heterogeneous keys across records.
type RecordSequence struct {
	Records []Record
}

func (*RecordSequence) isReturnValue() {}
