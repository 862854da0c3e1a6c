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

// Package script loads and executes user-supplied preprocessing
// scripts written as JavaScript or TypeScript programs.
package script

import (
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/dop251/goja"
	esbuild "github.com/evanw/esbuild/pkg/api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// A Loader performs the first-pass execution of the user script. It
// loads all required resources, parses them, and evaluates the
// top-level module scope.
type Loader struct {
	fs           fs.FS                 // Used by require for file URLs.
	jobConfig    *goja.Object          // Set by api.configureJob.
	requireStack []*url.URL            // Allows relative import paths.
	requireCache map[string]goja.Value // Keys are URLs.
	rt           *goja.Runtime         // JS runtime.
}

// Load parses and evaluates the script named by cfg, returning the
// bound entry function as a UserScript.
func Load(cfg *Config) (*UserScript, error) {
	if cfg.FS == nil {
		return nil, errors.New("no script configured")
	}
	entry := cfg.Entry
	l := &Loader{
		fs:           cfg.FS,
		requireCache: make(map[string]goja.Value),
		rt:           goja.New(),
	}

	// Use a "goja" tag on struct fields to control name bindings.
	// Also uncapitalize for better style consistency.
	l.rt.SetFieldNameMapper(goja.TagFieldNameMapper("goja", true))

	global := l.rt.GlobalObject()
	if err := global.Set("__require_cache", l.rt.ToValue(l.requireCache)); err != nil {
		return nil, err
	}
	if err := global.Set("console", console(l.rt)); err != nil {
		return nil, err
	}
	if err := global.Set("require", l.require); err != nil {
		return nil, err
	}

	// A small helper module available to scripts as require("rlake").
	apiModule := l.rt.NewObject()
	l.requireCache["rlake"] = apiModule
	if err := apiModule.Set("randomUUID", randomUUID); err != nil {
		return nil, err
	}
	if err := apiModule.Set("configureJob", l.configureJob); err != nil {
		return nil, err
	}

	// Load the main script into the runtime.
	main := url.URL{Scheme: "file", Path: cfg.MainPath}
	exports, err := l.require(main.String())
	if err != nil {
		return nil, err
	}

	// The entry function may be registered via api.configureJob,
	// exported in CommonJS style, or simply declared at the top level
	// of a classic script.
	var fn goja.Callable
	if l.jobConfig != nil {
		fn, _ = goja.AssertFunction(l.jobConfig.Get(entry))
	}
	if fn == nil {
		fn = lookupFunction(l.rt, exports, entry)
	}
	if fn == nil {
		return nil, errors.Errorf("script %s does not define entry function %q",
			cfg.MainPath, entry)
	}

	return &UserScript{
		entry:  entry,
		fn:     fn,
		rt:     l.rt,
		rtMu:   &sync.Mutex{},
		source: cfg.MainPath,
	}, nil
}

// configureJob records the configuration object passed by the user
// script, whose properties may name the entry function.
func (l *Loader) configureJob(cfg *goja.Object) error {
	if cfg == nil {
		return errors.New("configureJob requires a configuration object")
	}
	l.jobConfig = cfg
	return nil
}

// lookupFunction resolves the entry function from the module exports,
// falling back to the global object.
func lookupFunction(rt *goja.Runtime, exports goja.Value, name string) goja.Callable {
	if exports != nil && !goja.IsUndefined(exports) && !goja.IsNull(exports) {
		if obj := exports.ToObject(rt); obj != nil {
			if fn, ok := goja.AssertFunction(obj.Get(name)); ok {
				return fn
			}
		}
	}
	if fn, ok := goja.AssertFunction(rt.GlobalObject().Get(name)); ok {
		return fn
	}
	return nil
}

// require implements a basic version of the NodeJS-style require()
// function. The referenced module contents are loaded, converted to
// ES5 in CommonJS packaging, and then executed.
func (l *Loader) require(module string) (goja.Value, error) {
	// Look for an exact match (e.g. the API import).
	if found, ok := l.requireCache[module]; ok {
		return found, nil
	}

	// The required path is parsed as a URL, relative to the top of the
	// require stack. This allows a script loaded from an external
	// source to refer to sibling paths.
	var err error
	var source *url.URL
	if len(l.requireStack) == 0 {
		// We bootstrap the runtime with require("file:///<main.js>").
		source, err = url.Parse(module)
	} else {
		parent := l.requireStack[len(l.requireStack)-1]
		source, err = parent.Parse(module)
		// TS import strings don't generally include the .ts extension.
		if err == nil && path.Ext(parent.Path) == ".ts" && path.Ext(source.Path) == "" {
			source.Path += ".ts"
		}
	}
	if err != nil {
		return nil, err
	}

	// The source is now an absolute URL, so use it as the cache key.
	key := source.String()
	if found, ok := l.requireCache[key]; ok {
		return found, nil
	}

	// Push the script's location onto the stack, pop when we're done.
	l.requireStack = append(l.requireStack, source)
	defer func() { l.requireStack = l.requireStack[:len(l.requireStack)-1] }()

	log.Debugf("loading user script %s", source)

	data, err := l.fetch(source)
	if err != nil {
		return nil, err
	}

	// These options create a self-executing closure that provides the
	// expected ambient symbols for a CommonJS script. The header
	// assigns a stub object to the global __require_cache map to
	// defuse any cyclical module references, then replaces that stub
	// with the evaluated module exports.
	opts := esbuild.TransformOptions{
		Banner: fmt.Sprintf(`
__require_cache[%[1]q]=(()=>{
var exports = __require_cache[%[1]q] = {};
var module = {exports: exports};`, key),
		Footer:     "return module.exports;})()",
		Format:     esbuild.FormatCommonJS,
		Loader:     esbuild.LoaderDefault,
		Sourcefile: key,
		Target:     esbuild.ES2015,
	}
	// Source maps improve error messages from the JS runtime.
	if strings.HasSuffix(key, ".js") || strings.HasSuffix(key, ".ts") {
		opts.Sourcemap = esbuild.SourceMapInline
	}

	res := esbuild.Transform(string(data), opts)
	if len(res.Errors) > 0 {
		strs := esbuild.FormatMessages(res.Errors, esbuild.FormatMessagesOptions{TerminalWidth: 80})
		for _, str := range strs {
			log.Error(str)
		}
		return nil, errors.New("could not transform source, see log messages for details")
	}

	prog, err := goja.Compile(key, string(res.Code), true)
	if err != nil {
		return nil, err
	}

	// Execute the program, which returns the module's exports. The
	// assignment to l.requireCache happens via the __require_cache
	// binding in the script prelude.
	return l.rt.RunProgram(prog)
}

// fetch acquires the contents of a script. A file:// URL is loaded
// from the configured fs.FS, while http(s):// makes the relevant
// request, retrying transient failures.
func (l *Loader) fetch(source *url.URL) ([]byte, error) {
	switch source.Scheme {
	case "file":
		f, err := l.fs.Open(source.Path[1:])
		if err != nil {
			return nil, errors.Wrap(err, source.Path)
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		return data, errors.Wrap(err, source.Path)

	case "http", "https":
		var data []byte
		expBackoff := backoff.NewExponentialBackOff()
		expBackoff.MaxElapsedTime = 30 * time.Second
		err := backoff.RetryNotify(func() error {
			resp, err := http.Get(source.String())
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode >= 500 {
				return errors.Errorf("%s: status %d", source, resp.StatusCode)
			}
			if resp.StatusCode != http.StatusOK {
				return backoff.Permanent(errors.Errorf("%s: status %d", source, resp.StatusCode))
			}
			data, err = io.ReadAll(resp.Body)
			return err
		}, expBackoff, func(err error, d time.Duration) {
			log.WithError(err).Warnf("fetching %s; retrying in %s", source, d)
		})
		return data, err

	default:
		return nil, errors.Errorf("unsupported scheme %s", source.Scheme)
	}
}
