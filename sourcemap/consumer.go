// Copyright 2018 Dmitry Chestnykh. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sourcemap

import (
	"sort"
	"strings"
)

// Position is a location in an original source.
type Position struct {
	Source string
	Line   int // 1-based
	Column int // 0-based
	Name   string
}

// Consumer answers position queries against a map.
type Consumer struct {
	m        *Map
	sources  []string // with source root applied
	mappings []Mapping
}

// NewConsumer returns a consumer for m.
func NewConsumer(m *Map) (*Consumer, error) {
	mappings, err := m.decode()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(mappings, func(i, j int) bool {
		a, b := mappings[i], mappings[j]
		if a.GenLine != b.GenLine {
			return a.GenLine < b.GenLine
		}
		return a.GenColumn < b.GenColumn
	})
	sources := make([]string, len(m.Sources))
	for i, s := range m.Sources {
		sources[i] = joinRoot(m.SourceRoot, s)
	}
	return &Consumer{m: m, sources: sources, mappings: mappings}, nil
}

func joinRoot(root, source string) string {
	if root == "" || strings.HasPrefix(source, "/") || strings.Contains(source, "://") {
		return source
	}
	return strings.TrimSuffix(root, "/") + "/" + source
}

// Sources returns source names with the source root applied.
func (c *Consumer) Sources() []string {
	return append([]string(nil), c.sources...)
}

// OriginalPositionFor returns the original position for the given
// generated line (1-based) and column (0-based). It uses the closest
// segment at or before the column on the same line. The second result
// is false if there is no such segment or it has no source.
func (c *Consumer) OriginalPositionFor(line, column int) (Position, bool) {
	i := sort.Search(len(c.mappings), func(i int) bool {
		m := c.mappings[i]
		return m.GenLine > line || (m.GenLine == line && m.GenColumn > column)
	})
	if i == 0 {
		return Position{}, false
	}
	m := c.mappings[i-1]
	if m.GenLine != line || m.Source < 0 {
		return Position{}, false
	}
	pos := Position{
		Source: c.sources[m.Source],
		Line:   m.OrigLine,
		Column: m.OrigColumn,
	}
	if m.Name >= 0 {
		pos.Name = c.m.Names[m.Name]
	}
	return pos, true
}
