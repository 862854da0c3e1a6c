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

package script

import (
	"context"
	"os"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/gofrs/uuid"
	"github.com/pkg/errors"
	"github.com/rlakedata/preprocess/internal/types"
)

// UserScript encapsulates a user-provided preprocessing program and
// its bound entry function. Execution is internally synchronized to
// ensure single-threaded access to the underlying JS VM.
type UserScript struct {
	entry  string        // The entry function name.
	fn     goja.Callable // The entry function.
	rt     *goja.Runtime // The JavaScript VM. See execJS.
	rtMu   *sync.Mutex   // Serialize access to the VM.
	source string        // The main script path, for error messages.
}

// Execute invokes the entry function once, passing the
// ExecutionContext, and converts the raw return value into the
// ReturnValue union. Script exceptions and unsupported return shapes
// surface as an InvocationError.
func (s *UserScript) Execute(
	ctx context.Context, ectx *types.ExecutionContext,
) (types.ReturnValue, error) {
	var raw goja.Value
	if err := s.execJS(ctx, func() error {
		var err error
		raw, err = s.fn(goja.Undefined(), s.contextObject(ectx))
		return err
	}); err != nil {
		return nil, &types.InvocationError{Script: s.source, Entry: s.entry, Err: err}
	}

	ret, err := s.convert(raw)
	if err != nil {
		return nil, &types.InvocationError{Script: s.source, Entry: s.entry, Err: err}
	}
	return ret, nil
}

// contextObject projects the ExecutionContext into the VM.
func (s *UserScript) contextObject(ectx *types.ExecutionContext) *goja.Object {
	obj := s.rt.NewObject()
	_ = obj.Set("inputFile", map[string]any{
		"name": ectx.InputFile.Name,
		"size": ectx.InputFile.Size,
	})
	_ = obj.Set("inputPath", ectx.InputPath)
	_ = obj.Set("tempDir", ectx.TempDir)
	_ = obj.Set("parameters", s.rt.ToValue(ectx.Parameters))
	_ = obj.Set("makeOutputPath", func(call goja.FunctionCall) goja.Value {
		name := types.DefaultOutputName
		if len(call.Arguments) > 0 && !goja.IsUndefined(call.Argument(0)) {
			name = call.Argument(0).String()
		}
		return s.rt.ToValue(ectx.MakeOutputPath(name))
	})
	_ = obj.Set("readInput", func() (string, error) {
		data, err := os.ReadFile(ectx.InputPath)
		return string(data), err
	})
	_ = obj.Set("writeFile", func(path, data string) error {
		return os.WriteFile(path, []byte(data), 0644)
	})
	_ = obj.Set("log", func(call goja.FunctionCall) goja.Value {
		var sb strings.Builder
		for idx, arg := range call.Arguments {
			if idx > 0 {
				sb.WriteRune(' ')
			}
			sb.WriteString(arg.String())
		}
		ectx.Log(sb.String())
		return goja.Undefined()
	})
	return obj
}

// convert maps the raw goja value onto the ReturnValue union:
// null/undefined to Absent, a string to PathLike, an object with
// columns and rows to Table, and an array of objects to a
// RecordSequence.
func (s *UserScript) convert(raw goja.Value) (types.ReturnValue, error) {
	if raw == nil || goja.IsUndefined(raw) || goja.IsNull(raw) {
		return types.Absent{}, nil
	}
	if t := raw.ExportType(); t != nil && t.Kind() == reflect.String {
		return types.PathLike{Path: raw.String()}, nil
	}

	obj := raw.ToObject(s.rt)
	if obj == nil {
		return nil, errors.Errorf("unsupported return value; "+
			"return nothing, a path, a table, or an array of records, not %s", raw)
	}

	if obj.ClassName() == "Array" {
		return s.convertRecords(obj)
	}

	cols := obj.Get("columns")
	rows := obj.Get("rows")
	if cols != nil && !goja.IsUndefined(cols) && rows != nil && !goja.IsUndefined(rows) {
		return s.convertTable(cols, rows)
	}

	return nil, errors.New("unsupported return value; " +
		"return nothing, a path, a {columns, rows} table, or an array of records")
}

// convertTable exports a {columns, rows} object.
func (s *UserScript) convertTable(cols, rows goja.Value) (types.ReturnValue, error) {
	ret := &types.Table{}
	if err := s.rt.ExportTo(cols, &ret.Columns); err != nil {
		return nil, errors.Wrap(err, "table columns must be an array of names")
	}
	if err := s.rt.ExportTo(rows, &ret.Rows); err != nil {
		return nil, errors.Wrap(err, "table rows must be an array of arrays")
	}
	return ret, nil
}

// convertRecords exports an array of plain objects, preserving each
// object's own key order.
func (s *UserScript) convertRecords(arr *goja.Object) (types.ReturnValue, error) {
	length := int(arr.Get("length").ToInteger())
	ret := &types.RecordSequence{Records: make([]types.Record, 0, length)}
	for i := 0; i < length; i++ {
		el := arr.Get(strconv.Itoa(i))
		if el == nil || goja.IsUndefined(el) || goja.IsNull(el) {
			return nil, errors.Errorf("record %d is not an object", i)
		}
		if t := el.ExportType(); t != nil && t.Kind() != reflect.Map {
			return nil, errors.Errorf("record %d is not an object", i)
		}
		elObj := el.ToObject(s.rt)
		rec := types.Record{
			Keys:   elObj.Keys(),
			Fields: make(map[string]any, len(elObj.Keys())),
		}
		for _, key := range rec.Keys {
			rec.Fields[key] = elObj.Get(key).Export()
		}
		ret.Records = append(ret.Records, rec)
	}
	return ret, nil
}

// execJS ensures that the callback has exclusive access to the JS VM.
// The JS execution will be interrupted when the context is canceled.
func (s *UserScript) execJS(ctx context.Context, fn func() error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	waitStart := time.Now()
	s.rtMu.Lock()
	scriptEntryWait.Observe(time.Since(waitStart).Seconds())
	s.rt.ClearInterrupt()
	go func() {
		<-ctx.Done()
		s.rt.Interrupt(ctx.Err())
		s.rtMu.Unlock()
	}()

	execStart := time.Now()
	defer func() { scriptExecTime.Observe(time.Since(execStart).Seconds()) }()
	return fn()
}

// randomUUID is exported to scripts via the rlake helper module.
func randomUUID() (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
