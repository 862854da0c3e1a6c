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

package params

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge(t *testing.T) {
	tcs := []struct {
		name      string
		defaults  map[string]any
		overrides map[string]any
		want      map[string]any
	}{
		{
			name:      "override wins on scalar collision",
			defaults:  map[string]any{"drop_na": true, "min_speed": 5},
			overrides: map[string]any{"min_speed": 10},
			want:      map[string]any{"drop_na": true, "min_speed": 10},
		},
		{
			name:      "nested mappings merge recursively",
			defaults:  map[string]any{"csv": map[string]any{"encoding": "utf-8", "delimiter": ","}},
			overrides: map[string]any{"csv": map[string]any{"encoding": "cp932"}},
			want:      map[string]any{"csv": map[string]any{"encoding": "cp932", "delimiter": ","}},
		},
		{
			name:      "arrays are replaced, not appended",
			defaults:  map[string]any{"columns": []any{"a", "b"}},
			overrides: map[string]any{"columns": []any{"c"}},
			want:      map[string]any{"columns": []any{"c"}},
		},
		{
			name:      "zero and false still override",
			defaults:  map[string]any{"drop_na": true, "min_speed": 5},
			overrides: map[string]any{"drop_na": false, "min_speed": 0},
			want:      map[string]any{"drop_na": false, "min_speed": 0},
		},
		{
			name:      "empty overrides keep defaults",
			defaults:  map[string]any{"x": 1},
			overrides: map[string]any{},
			want:      map[string]any{"x": 1},
		},
		{
			name:      "nil inputs",
			defaults:  nil,
			overrides: nil,
			want:      map[string]any{},
		},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Merge(tc.defaults, tc.overrides)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	r := require.New(t)

	defaults := map[string]any{"nested": map[string]any{"a": 1}}
	overrides := map[string]any{"nested": map[string]any{"b": 2}}

	_, err := Merge(defaults, overrides)
	r.NoError(err)
	r.Equal(map[string]any{"nested": map[string]any{"a": 1}}, defaults)
	r.Equal(map[string]any{"nested": map[string]any{"b": 2}}, overrides)
}

func TestParseJSON(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	got, err := ParseJSON(`{"min_speed": 5, "tags": ["gps"]}`)
	r.NoError(err)
	a.Equal(float64(5), got["min_speed"])
	a.Equal([]any{"gps"}, got["tags"])

	got, err = ParseJSON("  ")
	r.NoError(err)
	a.Empty(got)

	_, err = ParseJSON(`[1,2]`)
	a.Error(err)
}

func TestParseYAML(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	got, err := ParseYAML([]byte("drop_na: true\ncsv:\n  encoding: cp932\n"))
	r.NoError(err)
	a.Equal(true, got["drop_na"])
	a.Equal(map[string]any{"encoding": "cp932"}, got["csv"])

	got, err = ParseYAML(nil)
	r.NoError(err)
	a.Empty(got)
}
