// Copyright 2018 Dmitry Chestnykh. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package selector implements predicates deciding which assets
// are processed.
package selector

import (
	"fmt"
	"regexp"
	"strings"
)

// Extension is the file extension matched by Default.
const Extension = ".css"

// Func reports whether the asset with the given key is selected.
// It must be safe to call from multiple goroutines.
type Func func(key string) bool

// Default selects keys ending with ".css".
func Default(key string) bool {
	return strings.HasSuffix(key, Extension)
}

// Pattern returns a selector which matches keys against re.
func Pattern(re *regexp.Regexp) Func {
	return func(key string) bool {
		return re.MatchString(key)
	}
}

// IsFilter reports whether v is a function or a pattern, that is,
// whether it can be used as a filter without being interpreted.
// Strings are not considered filters: in a configuration file
// they may mean anything.
func IsFilter(v interface{}) bool {
	switch v.(type) {
	case Func, func(string) bool, *regexp.Regexp:
		return true
	}
	return false
}

// Make returns a selector for v, which can be nil (for Default),
// a Func or func(string) bool, a *regexp.Regexp, or a string
// containing a regular expression.
func Make(v interface{}) (Func, error) {
	switch x := v.(type) {
	case nil:
		return Default, nil
	case Func:
		if x == nil {
			return Default, nil
		}
		return x, nil
	case func(string) bool:
		if x == nil {
			return Default, nil
		}
		return x, nil
	case *regexp.Regexp:
		if x == nil {
			return Default, nil
		}
		return Pattern(x), nil
	case string:
		re, err := regexp.Compile(x)
		if err != nil {
			return nil, fmt.Errorf("bad filter pattern: %s", err)
		}
		return Pattern(re), nil
	default:
		return nil, fmt.Errorf("filter must be a function or a pattern, not %T", v)
	}
}
