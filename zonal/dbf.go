/*
Copyright © 2026 the dasymap authors.
This file is part of dasymap.

dasymap is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

dasymap is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with dasymap.  If not, see <http://www.gnu.org/licenses/>.
*/

package zonal

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"io/ioutil"
	"strings"
)

// dBASE table layout.
const (
	dbfHeaderLen     = 32
	dbfFieldLen      = 32
	dbfFieldEnd      = 0x0D
	dbfDeletedRecord = '*'
)

type dbfField struct {
	name   string
	offset int // from the start of the record, after the deletion flag
	length int
}

// ReadLegendDBF reads a legend from a dBASE table, such as the attribute
// table distributed alongside a land-cover raster. valueColumn holds the
// raw raster values and codeColumn holds the land-cover class codes.
// Field names are case insensitive and deleted records are skipped.
func ReadLegendDBF(r io.Reader, valueColumn, codeColumn string) (Legend, error) {
	b, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("zonal: reading legend: %w", err)
	}
	if len(b) < dbfHeaderLen {
		return nil, fmt.Errorf("zonal: legend is not a dBASE table")
	}
	n := int(binary.LittleEndian.Uint32(b[4:8]))
	headerLen := int(binary.LittleEndian.Uint16(b[8:10]))
	recordLen := int(binary.LittleEndian.Uint16(b[10:12]))
	if headerLen > len(b) || recordLen < 1 {
		return nil, fmt.Errorf("zonal: legend has a corrupt dBASE header")
	}

	var fields []dbfField
	offset := 0
	for pos := dbfHeaderLen; pos+dbfFieldLen <= headerLen && b[pos] != dbfFieldEnd; pos += dbfFieldLen {
		d := b[pos : pos+dbfFieldLen]
		name := d[:11]
		if i := bytes.IndexByte(name, 0); i >= 0 {
			name = name[:i]
		}
		f := dbfField{name: strings.TrimSpace(string(name)), offset: offset, length: int(d[16])}
		fields = append(fields, f)
		offset += f.length
	}
	if offset+1 > recordLen {
		return nil, fmt.Errorf("zonal: legend fields are longer than its records")
	}
	vi, ci := -1, -1
	for i, f := range fields {
		switch {
		case strings.EqualFold(f.name, valueColumn):
			vi = i
		case strings.EqualFold(f.name, codeColumn):
			ci = i
		}
	}
	if vi < 0 {
		return nil, fmt.Errorf("zonal: legend is missing value column %q", valueColumn)
	}
	if ci < 0 {
		return nil, fmt.Errorf("zonal: legend is missing class code column %q", codeColumn)
	}

	l := make(Legend)
	for i := 0; i < n; i++ {
		start := headerLen + i*recordLen
		if start+recordLen > len(b) {
			return nil, fmt.Errorf("zonal: legend has %d records but only %d are present", n, i)
		}
		rec := b[start : start+recordLen]
		if rec[0] == dbfDeletedRecord {
			continue
		}
		field := func(f dbfField) string {
			return strings.Trim(string(rec[1+f.offset:1+f.offset+f.length]), " \x00")
		}
		if err := l.add(field(fields[vi]), field(fields[ci])); err != nil {
			return nil, fmt.Errorf("zonal: legend record %d: %w", i+1, err)
		}
	}
	if len(l) == 0 {
		return nil, fmt.Errorf("zonal: legend is empty")
	}
	return l, nil
}
