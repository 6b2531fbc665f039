// Copyright 2018 Dmitry Chestnykh. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sourcemap implements the part of Source Map Revision 3 needed
// to chain stylesheet transformations: parsing, position lookup and
// composition of two maps.
package sourcemap

import (
	"encoding/json"
	"fmt"
)

// Map is a version 3 source map as it appears in JSON.
type Map struct {
	Version        int       `json:"version"`
	File           string    `json:"file,omitempty"`
	SourceRoot     string    `json:"sourceRoot,omitempty"`
	Sources        []string  `json:"sources"`
	SourcesContent []*string `json:"sourcesContent,omitempty"`
	Names          []string  `json:"names"`
	Mappings       string    `json:"mappings"`
}

// Parse parses a JSON source map and checks that its mappings
// refer to existing sources and names.
func Parse(b []byte) (*Map, error) {
	var m Map
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("sourcemap: %w", err)
	}
	if m.Version != 3 {
		return nil, fmt.Errorf("sourcemap: unsupported version %d", m.Version)
	}
	if _, err := m.decode(); err != nil {
		return nil, err
	}
	return &m, nil
}

// decode decodes mappings and validates source and name indexes.
func (m *Map) decode() ([]Mapping, error) {
	mappings, err := DecodeMappings(m.Mappings)
	if err != nil {
		return nil, err
	}
	for _, v := range mappings {
		if v.Source >= len(m.Sources) {
			return nil, fmt.Errorf("sourcemap: source index %d out of range", v.Source)
		}
		if v.Name >= len(m.Names) {
			return nil, fmt.Errorf("sourcemap: name index %d out of range", v.Name)
		}
	}
	return mappings, nil
}

// Bytes returns the JSON encoding of the map.
func (m *Map) Bytes() ([]byte, error) {
	out := *m
	if out.Sources == nil {
		out.Sources = []string{}
	}
	if out.Names == nil {
		out.Names = []string{}
	}
	return json.Marshal(&out)
}

// Clone returns a copy of the map which can be modified
// without affecting the original.
func (m *Map) Clone() *Map {
	c := *m
	c.Sources = append([]string(nil), m.Sources...)
	c.Names = append([]string(nil), m.Names...)
	if m.SourcesContent != nil {
		c.SourcesContent = append([]*string(nil), m.SourcesContent...)
	}
	return &c
}

// SourceContent returns the embedded content of the source at index i.
func (m *Map) SourceContent(i int) (string, bool) {
	if i < 0 || i >= len(m.SourcesContent) || m.SourcesContent[i] == nil {
		return "", false
	}
	return *m.SourcesContent[i], true
}

// ApplySourceMap rewrites mappings of m that point into file so that
// they point to the original positions c resolves them to. The result
// maps positions in the output described by m directly to the sources
// of the map behind c. Mappings that c cannot resolve are left as is.
//
// File is compared with source names of m both as is and with the
// source root of m applied. If file is empty, the file name of the
// consumer's map is used. Sources of the result include their roots,
// so the source root of m is cleared.
func (m *Map) ApplySourceMap(c *Consumer, file string) error {
	if file == "" {
		file = c.m.File
	}
	if file == "" {
		return fmt.Errorf("sourcemap: ApplySourceMap needs a file name")
	}
	mappings, err := m.decode()
	if err != nil {
		return err
	}

	contents := make(map[string]string)
	for i, src := range m.Sources {
		if s, ok := m.SourceContent(i); ok {
			contents[joinRoot(m.SourceRoot, src)] = s
		}
	}

	var sources, names []string
	sourceIndex := make(map[string]int)
	nameIndex := make(map[string]int)
	add := func(list *[]string, index map[string]int, s string) int {
		if i, ok := index[s]; ok {
			return i
		}
		index[s] = len(*list)
		*list = append(*list, s)
		return index[s]
	}

	for i := range mappings {
		v := &mappings[i]
		if v.Source < 0 {
			continue
		}
		src := m.Sources[v.Source]
		name, hasName := "", v.Name >= 0
		if hasName {
			name = m.Names[v.Name]
		}
		matches := src == file
		src = joinRoot(m.SourceRoot, src)
		if matches || src == file {
			if pos, ok := c.OriginalPositionFor(v.OrigLine, v.OrigColumn); ok {
				src = pos.Source
				v.OrigLine = pos.Line
				v.OrigColumn = pos.Column
				if pos.Name != "" {
					name, hasName = pos.Name, true
				}
			}
		}
		v.Source = add(&sources, sourceIndex, src)
		v.Name = -1
		if hasName {
			v.Name = add(&names, nameIndex, name)
		}
	}

	for i, src := range c.sources {
		if s, ok := c.m.SourceContent(i); ok {
			contents[src] = s
		}
	}

	// Rebuilt sources carry their roots.
	m.SourceRoot = ""
	m.Sources = sources
	m.Names = names
	m.Mappings = EncodeMappings(mappings)
	m.SourcesContent = nil
	for i, src := range sources {
		s, ok := contents[src]
		if !ok {
			continue
		}
		if m.SourcesContent == nil {
			m.SourcesContent = make([]*string, len(sources))
		}
		m.SourcesContent[i] = &s
	}
	return nil
}
