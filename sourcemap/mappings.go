// Copyright 2018 Dmitry Chestnykh. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sourcemap

import (
	"errors"
	"strings"
)

// Mapping is a decoded segment of the "mappings" field.
//
// Lines are 1-based, columns are 0-based. Source and Name are indexes
// into the map's Sources and Names, or -1 if the segment has none.
type Mapping struct {
	GenLine    int
	GenColumn  int
	Source     int
	OrigLine   int
	OrigColumn int
	Name       int
}

const base64Chars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

var base64Index [256]int8

func init() {
	for i := range base64Index {
		base64Index[i] = -1
	}
	for i := 0; i < len(base64Chars); i++ {
		base64Index[base64Chars[i]] = int8(i)
	}
}

var (
	errBadVLQ     = errors.New("sourcemap: invalid VLQ value in mappings")
	errBadSegment = errors.New("sourcemap: invalid segment length in mappings")
	errNegative   = errors.New("sourcemap: negative value in mappings")
)

func decodeVLQ(s string) (value, n int, err error) {
	var shift uint
	for {
		if n >= len(s) {
			return 0, 0, errBadVLQ
		}
		d := base64Index[s[n]]
		if d < 0 {
			return 0, 0, errBadVLQ
		}
		n++
		value += int(d&31) << shift
		if d&32 == 0 {
			break
		}
		shift += 5
		if shift > 30 {
			return 0, 0, errBadVLQ
		}
	}
	if value&1 != 0 {
		return -(value >> 1), n, nil
	}
	return value >> 1, n, nil
}

func encodeVLQ(b *strings.Builder, v int) {
	u := v << 1
	if v < 0 {
		u = (-v << 1) | 1
	}
	for {
		d := u & 31
		u >>= 5
		if u > 0 {
			d |= 32
		}
		b.WriteByte(base64Chars[d])
		if u == 0 {
			return
		}
	}
}

// DecodeMappings decodes a "mappings" string into segments ordered
// by generated position.
func DecodeMappings(s string) ([]Mapping, error) {
	var (
		out                             []Mapping
		line                            = 1
		col, src, oline, ocol, name, nf int
		fields                          [5]int
	)
	for i := 0; i < len(s); {
		switch s[i] {
		case ';':
			line++
			col = 0
			i++
			continue
		case ',':
			i++
			continue
		}
		nf = 0
		for i < len(s) && s[i] != ',' && s[i] != ';' {
			if nf == len(fields) {
				return nil, errBadSegment
			}
			v, n, err := decodeVLQ(s[i:])
			if err != nil {
				return nil, err
			}
			fields[nf] = v
			nf++
			i += n
		}
		if nf != 1 && nf != 4 && nf != 5 {
			return nil, errBadSegment
		}
		col += fields[0]
		m := Mapping{GenLine: line, GenColumn: col, Source: -1, Name: -1}
		if nf >= 4 {
			src += fields[1]
			oline += fields[2]
			ocol += fields[3]
			m.Source, m.OrigLine, m.OrigColumn = src, oline+1, ocol
		}
		if nf == 5 {
			name += fields[4]
			m.Name = name
		}
		if col < 0 || src < 0 || oline < 0 || ocol < 0 || name < 0 {
			return nil, errNegative
		}
		out = append(out, m)
	}
	return out, nil
}

// EncodeMappings encodes segments, which must be ordered by generated
// position, into a "mappings" string.
func EncodeMappings(mappings []Mapping) string {
	var (
		b                           strings.Builder
		line                        = 1
		col, src, oline, ocol, name int
		lineHasSegment              bool
	)
	for _, m := range mappings {
		for line < m.GenLine {
			b.WriteByte(';')
			line++
			col = 0
			lineHasSegment = false
		}
		if lineHasSegment {
			b.WriteByte(',')
		}
		encodeVLQ(&b, m.GenColumn-col)
		col = m.GenColumn
		if m.Source >= 0 {
			encodeVLQ(&b, m.Source-src)
			encodeVLQ(&b, m.OrigLine-1-oline)
			encodeVLQ(&b, m.OrigColumn-ocol)
			src, oline, ocol = m.Source, m.OrigLine-1, m.OrigColumn
			if m.Name >= 0 {
				encodeVLQ(&b, m.Name-name)
				name = m.Name
			}
		}
		lineHasSegment = true
	}
	return b.String()
}
