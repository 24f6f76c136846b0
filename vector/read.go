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

// Package vector reads and writes the polygon shapefiles used by the
// dasymap stages.
package vector

import (
	"database/sql"
	"fmt"
	"io/ioutil"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/ctessum/geom/proj"
)

// Feature is a polygon with attributes.
type Feature struct {
	geom.Polygonal

	// Attributes holds the requested attribute values, keyed by the
	// requested column names.
	Attributes map[string]string
}

// Layer holds the features of a shapefile.
type Layer struct {
	Features []*Feature

	// SR is the spatial reference from the .prj file, or nil if the
	// shapefile does not have one.
	SR *proj.SR

	// Prj holds the contents of the .prj file.
	Prj string
}

// Read reads the polygons in the shapefile file along with the
// values of the given attribute columns. Column names are case
// insensitive.
func Read(file string, columns ...string) (*Layer, error) {
	d, err := shp.NewDecoder(file)
	if err != nil {
		return nil, fmt.Errorf("vector: opening shapefile %s: %w", file, err)
	}
	defer d.Close()

	var cols []string
	for _, c := range columns {
		if c != "" {
			cols = append(cols, c)
		}
	}

	l := new(Layer)
	prj, err := ioutil.ReadFile(strings.TrimSuffix(file, ".shp") + ".prj")
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("vector: reading projection of %s: %w", file, err)
	}
	if err == nil {
		l.Prj = string(prj)
		if l.SR, err = d.SR(); err != nil {
			return nil, fmt.Errorf("vector: parsing projection of %s: %w", file, err)
		}
	}

	for {
		g, fields, more := d.DecodeRowFields(cols...)
		if err := d.Error(); err != nil {
			return nil, fmt.Errorf("vector: reading shapefile %s: %w", file, err)
		}
		if !more {
			break
		}
		p, ok := g.(geom.Polygonal)
		if !ok {
			return nil, fmt.Errorf("vector: shapefile %s: feature %d has type %T, not polygon", file, len(l.Features), g)
		}
		l.Features = append(l.Features, &Feature{Polygonal: p, Attributes: fields})
	}
	return l, nil
}

// Transform reprojects the features of l to sr. It does nothing if
// either l.SR or sr is nil.
func (l *Layer) Transform(sr *proj.SR) error {
	if l.SR == nil || sr == nil {
		return nil
	}
	ct, err := l.SR.NewTransform(sr)
	if err != nil {
		return fmt.Errorf("vector: creating transform: %w", err)
	}
	for i, f := range l.Features {
		g, err := f.Transform(ct)
		if err != nil {
			return fmt.Errorf("vector: transforming feature %d: %w", i, err)
		}
		f.Polygonal = g.(geom.Polygonal)
	}
	l.SR = sr
	return nil
}

// Float returns the numeric value of attribute column of f. Empty and
// "NA" values are missing.
func (f *Feature) Float(column string) (sql.NullFloat64, error) {
	s := f.attribute(column)
	if s == "" || strings.EqualFold(s, "NA") || strings.Contains(s, "*") { // Null value
		return sql.NullFloat64{}, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return sql.NullFloat64{}, fmt.Errorf("vector: column %s: %w", column, err)
	}
	if math.IsNaN(v) || v == NoData {
		return sql.NullFloat64{}, nil
	}
	return sql.NullFloat64{Float64: v, Valid: true}, nil
}

// Int returns the integer value of attribute column of f.
func (f *Feature) Int(column string) (int, error) {
	s := f.attribute(column)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("vector: column %s: %w", column, err)
	}
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("vector: column %s: %s is not an integer", column, s)
	}
	return int(v), nil
}

// ID returns the value of attribute column of f, or the feature index
// i if column is empty.
func (f *Feature) ID(column string, i int) string {
	if column == "" {
		return strconv.Itoa(i)
	}
	return f.attribute(column)
}

func (f *Feature) attribute(column string) string {
	return strings.Trim(f.Attributes[column], " \x00")
}
