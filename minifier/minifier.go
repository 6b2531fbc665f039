// Copyright 2013 Dmitry Chestnykh. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package minifier implements CSS minification engines.
package minifier

import (
	"fmt"
	"sort"

	"github.com/dchest/cssopt/sourcemap"
)

// Options are passed to every minification.
type Options struct {
	// Filename is the name of the stylesheet. It is used in
	// error messages and as the source name in generated maps.
	Filename string
	// SourceMap requests generation of a source map.
	SourceMap bool
	// Params are engine-specific options. Unknown ones are ignored.
	Params map[string]interface{}
}

// Result is the output of minification.
type Result struct {
	CSS string
	Map *sourcemap.Map // nil if not generated
}

func (r *Result) clone() *Result {
	c := *r
	if r.Map != nil {
		c.Map = r.Map.Clone()
	}
	return &c
}

// Minifier is an interface declaring a minification engine.
type Minifier interface {
	Name() string
	Minify(css string, opts *Options) (*Result, error)
}

// ParseError is returned when the stylesheet can't be parsed.
type ParseError struct {
	Filename string
	Line     int // 1-based
	Column   int // 1-based
	Message  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.Filename, e.Line, e.Column, e.Message)
}

// Maker is a type of function which returns a new
// instance of the minifier.
type Maker func() Minifier

// makers stores builtin minifier makers addressed by their names.
var makers = make(map[string]Maker)

// Default is the name of the engine used when none is configured.
const Default = "esbuild"

// Register registers a new minifier maker.
func Register(name string, maker Maker) {
	makers[name] = maker
}

// Make creates a new minifier by name.
// It returns nil if it can't find a minifier maker with such name.
func Make(name string) Minifier {
	if name == "" {
		name = Default
	}
	maker := makers[name]
	if maker == nil {
		return nil
	}
	return maker()
}

// Names returns sorted names of registered minifiers.
func Names() []string {
	names := make([]string, 0, len(makers))
	for k := range makers {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func boolParam(params map[string]interface{}, name string, def bool) (bool, error) {
	v, ok := params[name]
	if !ok || v == nil {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("option %q must be a boolean", name)
	}
	return b, nil
}

func intParam(params map[string]interface{}, name string, def int) (int, error) {
	v, ok := params[name]
	if !ok || v == nil {
		return def, nil
	}
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case float64:
		if x == float64(int(x)) {
			return int(x), nil
		}
	}
	return 0, fmt.Errorf("option %q must be an integer", name)
}

func stringParam(params map[string]interface{}, name string, def string) (string, error) {
	v, ok := params[name]
	if !ok || v == nil {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("option %q must be a string", name)
	}
	return s, nil
}
