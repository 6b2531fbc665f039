// Copyright 2018 Dmitry Chestnykh. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package minifier

// `esbuild` minifies CSS with esbuild and can generate source maps.
//
// Options:
//   restructure: bool - rewrite values and rules, not just whitespace;
//     defaults to true unless a source map is requested, since esbuild
//     drops declaration mappings when restructuring
//   comments: "none", "inline" or "eof" - what to do with legal comments

import (
	"errors"
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/dchest/cssopt/sourcemap"
)

func init() {
	Register("esbuild", func() Minifier {
		return ESBuild(0)
	})
}

type ESBuild int

func (f ESBuild) Name() string { return "esbuild" }

var legalComments = map[string]api.LegalComments{
	"none":   api.LegalCommentsNone,
	"inline": api.LegalCommentsInline,
	"eof":    api.LegalCommentsEndOfFile,
}

func (f ESBuild) Minify(s string, opts *Options) (*Result, error) {
	restructure, err := boolParam(opts.Params, "restructure", !opts.SourceMap)
	if err != nil {
		return nil, err
	}
	comments, err := stringParam(opts.Params, "comments", "")
	if err != nil {
		return nil, err
	}
	to := api.TransformOptions{
		Loader:           api.LoaderCSS,
		Sourcefile:       opts.Filename,
		MinifyWhitespace: true,
		MinifySyntax:     restructure,
		// Syntax errors are warnings by default.
		LogOverride: map[string]api.LogLevel{
			"css-syntax-error": api.LogLevelError,
		},
	}
	if comments != "" {
		lc, ok := legalComments[comments]
		if !ok {
			return nil, fmt.Errorf("unknown comments mode %q", comments)
		}
		to.LegalComments = lc
	}
	if opts.SourceMap {
		to.Sourcemap = api.SourceMapExternal
	}
	r := api.Transform(s, to)
	if len(r.Errors) > 0 {
		return nil, esbuildError(opts.Filename, r.Errors[0])
	}
	res := &Result{CSS: strings.TrimSuffix(string(r.Code), "\n")}
	if opts.SourceMap && len(r.Map) > 0 {
		m, err := sourcemap.Parse(r.Map)
		if err != nil {
			return nil, err
		}
		res.Map = m
	}
	return res, nil
}

func esbuildError(filename string, msg api.Message) error {
	if msg.Location == nil {
		return errors.New(msg.Text)
	}
	return &ParseError{
		Filename: filename,
		Line:     msg.Location.Line,
		Column:   msg.Location.Column + 1,
		Message:  msg.Text,
	}
}
