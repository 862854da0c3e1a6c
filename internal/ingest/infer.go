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
	"strconv"
	"strings"
	"time"
)

// A ColumnType is the inferred logical type of a CSV column.
type ColumnType string

// The recognized column types.
const (
	TypeBoolean  ColumnType = "BOOLEAN"
	TypeDatetime ColumnType = "DATETIME"
	TypeFloat    ColumnType = "FLOAT"
	TypeInteger  ColumnType = "INTEGER"
	TypeString   ColumnType = "STRING"
)

// datetimeLayouts are tried in order when parsing datetime cells.
var datetimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"2006/1/2",
}

// boolTokens are the lowercase strings accepted as boolean cells.
var boolTokens = map[string]bool{
	"true": true, "false": true,
	"1": true, "0": true,
	"yes": true, "no": true,
}

// InferColumnType infers the logical type of a column from its
// non-blank cells. Narrower types are tried first: integer, float,
// datetime, boolean. A column with no non-blank cells is STRING.
func InferColumnType(values []string) ColumnType {
	nonBlank := 0
	isInt, isFloat, isDate, isBool := true, true, true, true
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		nonBlank++
		if isInt {
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				isInt = false
			}
		}
		if isFloat {
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				isFloat = false
			}
		}
		if isDate && !parseableDatetime(v) {
			isDate = false
		}
		if isBool && !boolTokens[strings.ToLower(v)] {
			isBool = false
		}
	}
	switch {
	case nonBlank == 0:
		return TypeString
	case isInt:
		return TypeInteger
	case isFloat:
		return TypeFloat
	case isDate:
		return TypeDatetime
	case isBool:
		return TypeBoolean
	default:
		return TypeString
	}
}

func parseableDatetime(v string) bool {
	for _, layout := range datetimeLayouts {
		if _, err := time.Parse(layout, v); err == nil {
			return true
		}
	}
	return false
}
