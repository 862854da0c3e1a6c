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

// Package params handles the loosely-typed parameter mappings that
// configure preprocessing jobs. Parameters are recursive value trees
// (string/number/bool/null/array/object) decoded from JSON or YAML.
package params

import (
	"encoding/json"
	"strings"

	"dario.cat/mergo"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Merge overlays run-time overrides onto job-level defaults and
// returns the effective mapping. Nested mappings merge recursively;
// scalar and array keys take the override value on collision. Neither
// input map is mutated.
func Merge(defaults, overrides map[string]any) (map[string]any, error) {
	// Copy first: mergo aliases sub-maps of its source into the
	// destination, which would let the second merge write into the
	// caller's defaults tree.
	merged := copyTree(defaults)
	if err := mergo.Merge(&merged, copyTree(overrides),
		mergo.WithOverride); err != nil {
		return nil, errors.Wrap(err, "merging override parameters")
	}
	return merged, nil
}

// copyTree clones a parameter tree. Arrays and nested mappings are
// copied; scalar leaves are shared.
func copyTree(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = copyValue(v)
	}
	return dst
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyTree(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}

// ParseJSON decodes a parameter mapping from a JSON object. An empty
// or whitespace-only blob decodes to an empty mapping.
func ParseJSON(blob string) (map[string]any, error) {
	if strings.TrimSpace(blob) == "" {
		return map[string]any{}, nil
	}
	ret := make(map[string]any)
	if err := json.Unmarshal([]byte(blob), &ret); err != nil {
		return nil, errors.Wrap(err, "parameters must be a JSON object")
	}
	return ret, nil
}

// ParseYAML decodes a parameter mapping from a YAML document. An empty
// document decodes to an empty mapping.
func ParseYAML(blob []byte) (map[string]any, error) {
	ret := make(map[string]any)
	if err := yaml.Unmarshal(blob, &ret); err != nil {
		return nil, errors.Wrap(err, "parameters must be a YAML mapping")
	}
	return ret, nil
}
