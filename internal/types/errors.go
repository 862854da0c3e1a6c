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

import "fmt"

// A MissingOutputError indicates that the expected output file was
// absent after the user script returned.
type MissingOutputError struct {
	// Path is where the output file was expected.
	Path string
}

func (e *MissingOutputError) Error() string {
	return fmt.Sprintf("expected output file does not exist: %s", e.Path)
}

// A SerializationError indicates that table or record data could not
// be converted to CSV.
type SerializationError struct {
	Column string // The offending column or key, if known.
	Row    int    // Zero-based row index, or -1 when not applicable.
	Value  any    // The value that could not be stringified.
}

func (e *SerializationError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("row %d: cannot serialize %T value to CSV", e.Row, e.Value)
	}
	return fmt.Sprintf("row %d, column %q: cannot serialize %T value to CSV",
		e.Row, e.Column, e.Value)
}

// An InvocationError wraps a failure raised by the user script itself,
// or a return value outside the supported variants. It is propagated
// unchanged by the harness.
type InvocationError struct {
	Script string // The script URL or path.
	Entry  string // The entry function name.
	Err    error  // The underlying failure.
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("%s: entry function %q: %v", e.Script, e.Entry, e.Err)
}

// Unwrap supports errors.Is and errors.As.
func (e *InvocationError) Unwrap() error { return e.Err }
