// Copyright 2018 Dmitry Chestnykh. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package optimize minifies stylesheet assets of a build, keeping their
// source maps in sync with the new content.
package optimize

import (
	"fmt"
	"log"
	"runtime/debug"
	"strings"

	"github.com/dchest/cssopt/assets"
	"github.com/dchest/cssopt/build"
	"github.com/dchest/cssopt/minifier"
	"github.com/dchest/cssopt/selector"
	"github.com/dchest/cssopt/sourcemap"
	"github.com/dchest/cssopt/utils"
)

// Options configure minification.
type Options struct {
	// SourceMap controls source map generation: if nil, a map is
	// generated only for assets that already have one.
	SourceMap *bool
	// Engine is the name of the minifier, minifier.Default if empty.
	Engine string
	// Params are passed to the minifier as is.
	Params map[string]interface{}
}

// ErrorReporter collects errors of a build.
type ErrorReporter interface {
	AddError(err error)
}

// Plugin minifies selected assets.
type Plugin struct {
	Options  Options
	Filter   selector.Func
	Minifier minifier.Minifier

	// Parallelism is the number of assets processed at once.
	// If not positive, the number of CPUs is used.
	Parallelism int
}

// New returns a new plugin.
//
// Options can be nil, Options, *Options or a map with optional keys
// "sourceMap" and "engine", where any other key goes to Params.
// Filter is anything accepted by selector.Make.
//
// If options is a filter (a function or a *regexp.Regexp) and filter
// is nil, options is used as the filter, so New(re, nil) works.
func New(options, filter interface{}) (*Plugin, error) {
	if selector.IsFilter(options) && filter == nil {
		filter, options = options, nil
	}
	f, err := selector.Make(filter)
	if err != nil {
		return nil, err
	}
	opts, err := makeOptions(options)
	if err != nil {
		return nil, err
	}
	m := minifier.Make(opts.Engine)
	if m == nil {
		return nil, fmt.Errorf("unknown engine %q (available: %s)",
			opts.Engine, strings.Join(minifier.Names(), ", "))
	}
	return &Plugin{
		Options:  opts,
		Filter:   f,
		Minifier: m,
	}, nil
}

func makeOptions(v interface{}) (opts Options, err error) {
	switch x := v.(type) {
	case nil:
	case Options:
		opts = x
	case *Options:
		if x != nil {
			opts = *x
		}
	case map[string]interface{}:
		for k, v := range x {
			switch k {
			case "sourceMap":
				if v == nil {
					continue
				}
				b, ok := v.(bool)
				if !ok {
					return opts, fmt.Errorf("sourceMap must be a boolean, not %T", v)
				}
				opts.SourceMap = &b
			case "engine":
				s, ok := v.(string)
				if !ok {
					return opts, fmt.Errorf("engine must be a string, not %T", v)
				}
				opts.Engine = s
			default:
				if opts.Params == nil {
					opts.Params = make(map[string]interface{})
				}
				opts.Params[k] = v
			}
		}
	default:
		return opts, fmt.Errorf("options must be Options or a map, not %T", v)
	}
	return opts, nil
}

// Apply hooks the plugin into compilations of c.
func (p *Plugin) Apply(c *build.Compiler) {
	c.OnCompilation(func(comp *build.Compilation) {
		if p.Options.SourceMap != nil && *p.Options.SourceMap {
			comp.OnBuildModule(func(m *build.Module) {
				m.UseSourceMap = true
			})
		}
		comp.OnOptimizeAssets(func(list map[string]assets.Asset) {
			p.OptimizeAssets(list, comp)
		})
	})
}

type job struct {
	i     int
	key   string
	asset assets.Asset
}

// OptimizeAssets minifies selected assets of the list, replacing them
// with the results. Assets which fail are left in place, and an *Error
// for each of them is reported to errs.
func (p *Plugin) OptimizeAssets(list map[string]assets.Asset, errs ErrorReporter) {
	jobs := make([]job, 0, len(list))
	for k, a := range list {
		if p.Filter(k) {
			jobs = append(jobs, job{len(jobs), k, a})
		}
	}
	results := make([]assets.Asset, len(jobs))
	failures := make([]error, len(jobs))
	pool := utils.NewPool(p.Parallelism, func(v interface{}) error {
		j := v.(job)
		results[j.i], failures[j.i] = p.ProcessAsset(j.key, j.asset)
		return nil
	})
	for _, j := range jobs {
		pool.Add(j)
	}
	pool.Err()

	for _, j := range jobs {
		if err := failures[j.i]; err != nil {
			errs.AddError(newError(j.key, err))
			continue
		}
		list[j.key] = results[j.i]
		if _, ok := results[j.i].(*assets.SourceMapped); ok {
			log.Printf("S %s", j.key)
		} else {
			log.Printf("M %s", j.key)
		}
	}
}

// ProcessAsset minifies the asset stored under key and returns
// the asset to replace it with.
func (p *Plugin) ProcessAsset(key string, a assets.Asset) (out assets.Asset, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, &panicError{value: r, stack: debug.Stack()}
		}
	}()

	content, inMap, err := assets.Extract(a)
	if err != nil {
		return nil, err
	}
	generate := inMap != nil
	if p.Options.SourceMap != nil {
		generate = *p.Options.SourceMap
	}
	r, err := p.Minifier.Minify(strings.ToValidUTF8(string(content), "\uFFFD"), &minifier.Options{
		Filename:  key,
		SourceMap: generate,
		Params:    p.Options.Params,
	})
	if err != nil {
		return nil, err
	}

	m := r.Map
	switch {
	case !generate:
		// An inbound map doesn't describe the new content.
		m = nil
	case m != nil && inMap != nil:
		c, err := sourcemap.NewConsumer(inMap)
		if err != nil {
			return nil, err
		}
		if err := m.ApplySourceMap(c, key); err != nil {
			return nil, err
		}
	case m == nil:
		m = inMap
	}

	if m == nil {
		return assets.NewRawString(r.CSS), nil
	}
	return assets.NewSourceMapped([]byte(r.CSS), key, m, content, inMap), nil
}
