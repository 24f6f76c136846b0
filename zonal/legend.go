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
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Legend maps raw raster values to land-cover class codes.
// A nil Legend maps every raw value to itself.
type Legend map[int]int

// Class returns the land-cover class code of the raw raster value v.
// NaN values and values missing from a non-nil legend are NoData.
func (l Legend) Class(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NoData
	}
	raw := int(math.Round(v))
	if l == nil {
		if raw < 0 {
			return NoData
		}
		return raw
	}
	c, ok := l[raw]
	if !ok {
		return NoData
	}
	return c
}

// ReadLegend reads a legend from CSV data with a header row.
// valueColumn holds the raw raster values and codeColumn holds the
// land-cover class codes. Column names are case insensitive.
func ReadLegend(r io.Reader, valueColumn, codeColumn string) (Legend, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("zonal: reading legend header: %w", err)
	}
	vi, ci := -1, -1
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		switch {
		case strings.EqualFold(h, valueColumn):
			vi = i
		case strings.EqualFold(h, codeColumn):
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
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("zonal: reading legend line %d: %w", line, err)
		}
		if err := l.add(rec[vi], rec[ci]); err != nil {
			return nil, fmt.Errorf("zonal: legend line %d: %w", line, err)
		}
	}
	if len(l) == 0 {
		return nil, fmt.Errorf("zonal: legend is empty")
	}
	return l, nil
}

// add maps the raw value v to the class code c, both given as text.
func (l Legend) add(v, c string) error {
	value, err := parseInt(v)
	if err != nil {
		return fmt.Errorf("value: %w", err)
	}
	code, err := parseInt(c)
	if err != nil {
		return fmt.Errorf("class code: %w", err)
	}
	if code < 0 {
		return fmt.Errorf("negative class code %d", code)
	}
	if old, ok := l[value]; ok && old != code {
		return fmt.Errorf("value %d maps to both %d and %d", value, old, code)
	}
	l[value] = code
	return nil
}

// parseInt parses s as an integer. Numbers with a zero fractional part
// such as "111.000" are accepted.
func parseInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	if i, err := strconv.Atoi(s); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, fmt.Errorf("%q is not an integer", s)
	}
	return int(f), nil
}
