// Copyright 2018 Dmitry Chestnykh. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package assets

import (
	"fmt"
	"io/ioutil"
	"os"

	"github.com/dchest/cssopt/sourcemap"
)

// MapExt is appended to an asset file name to get its source map file name.
const MapExt = ".map"

// File is an asset read from disk. Its source map, if any, is parsed
// when requested.
type File struct {
	Filename string
	content  []byte
	rawMap   []byte
}

// NewFile returns a file asset with the given content and raw JSON
// source map, which can be nil.
func NewFile(filename string, content, rawMap []byte) *File {
	return &File{Filename: filename, content: content, rawMap: rawMap}
}

// ReadFile reads an asset from filename. If withMap is true and
// filename + ".map" exists, it is read as the asset's source map.
func ReadFile(filename string, withMap bool) (*File, error) {
	content, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	f := &File{Filename: filename, content: content}
	if withMap {
		rawMap, err := ioutil.ReadFile(filename + MapExt)
		if err != nil && !os.IsNotExist(err) {
			return nil, err
		}
		f.rawMap = rawMap
	}
	return f, nil
}

func (f *File) Source() ([]byte, error) { return f.content, nil }

func (f *File) Map() (*sourcemap.Map, error) {
	if f.rawMap == nil {
		return nil, nil
	}
	m, err := sourcemap.Parse(f.rawMap)
	if err != nil {
		return nil, fmt.Errorf("%s%s: %w", f.Filename, MapExt, err)
	}
	return m, nil
}

// HasMap reports whether the file came with a source map.
func (f *File) HasMap() bool { return f.rawMap != nil }
