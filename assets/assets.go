// Copyright 2013 Dmitry Chestnykh. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package assets defines build assets: named pieces of generated content
// optionally accompanied by a source map.
package assets

import (
	"github.com/dchest/cssopt/sourcemap"
)

// Asset is a unit of build output.
type Asset interface {
	// Source returns the content of the asset.
	Source() ([]byte, error)
	// Map returns the source map of the asset or nil if it has none.
	Map() (*sourcemap.Map, error)
}

// SourceAndMapper is implemented by assets which can return their
// content and source map in one call. This is preferred over calling
// Source and Map separately.
type SourceAndMapper interface {
	SourceAndMap() ([]byte, *sourcemap.Map, error)
}

// Extract returns content and source map of the asset.
func Extract(a Asset) (content []byte, m *sourcemap.Map, err error) {
	if sm, ok := a.(SourceAndMapper); ok {
		return sm.SourceAndMap()
	}
	if m, err = a.Map(); err != nil {
		return nil, nil, err
	}
	if content, err = a.Source(); err != nil {
		return nil, nil, err
	}
	return content, m, nil
}

// Raw is an asset without a source map.
type Raw struct {
	content []byte
}

func NewRaw(content []byte) *Raw {
	return &Raw{content: content}
}

func NewRawString(s string) *Raw {
	return &Raw{content: []byte(s)}
}

func (r *Raw) Source() ([]byte, error)      { return r.content, nil }
func (r *Raw) Map() (*sourcemap.Map, error) { return nil, nil }

// SourceMapped is an asset with a source map.
//
// Besides the map describing its content, it keeps the source it
// was produced from and the map of that source, so that further
// transformations can reconcile them again.
type SourceMapped struct {
	content   []byte
	name      string
	sourceMap *sourcemap.Map
	original  []byte
	innerMap  *sourcemap.Map
}

// NewSourceMapped returns a new asset with the given content and map.
// Original and innerMap can be nil.
func NewSourceMapped(content []byte, name string, m *sourcemap.Map, original []byte, innerMap *sourcemap.Map) *SourceMapped {
	return &SourceMapped{
		content:   content,
		name:      name,
		sourceMap: m,
		original:  original,
		innerMap:  innerMap,
	}
}

func (s *SourceMapped) Source() ([]byte, error)      { return s.content, nil }
func (s *SourceMapped) Map() (*sourcemap.Map, error) { return s.sourceMap, nil }

func (s *SourceMapped) SourceAndMap() ([]byte, *sourcemap.Map, error) {
	return s.content, s.sourceMap, nil
}

// Name returns the name the asset's content was produced under.
func (s *SourceMapped) Name() string { return s.name }

// OriginalSource returns the content the asset was produced from.
func (s *SourceMapped) OriginalSource() []byte { return s.original }

// InnerMap returns the source map of the original content.
func (s *SourceMapped) InnerMap() *sourcemap.Map { return s.innerMap }
