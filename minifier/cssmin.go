// Copyright 2013 Dmitry Chestnykh. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package minifier

// `cssmin` minifies CSS with a port of YUI Compressor.
// It never fails and doesn't generate source maps.

import (
	"github.com/dchest/cssmin"
)

func init() {
	Register("cssmin", func() Minifier {
		return CSSMin(0)
	})
}

type CSSMin int

func (f CSSMin) Name() string { return "cssmin" }

func (f CSSMin) Minify(s string, opts *Options) (*Result, error) {
	result := cssmin.Minify([]byte(s))
	return &Result{CSS: string(result)}, nil
}
