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

package vector

import (
	"database/sql"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	goshp "github.com/jonas-p/go-shp"
)

// NoData is written to shapefiles in place of missing values.
const NoData = -9999.

// Null returns the value of v, or NoData if v is missing.
func Null(v sql.NullFloat64) float64 {
	if !v.Valid {
		return NoData
	}
	return v.Float64
}

// IDField returns a text attribute field.
func IDField(name string) goshp.Field { return goshp.StringField(name, 50) }

// IntField returns an integer attribute field.
func IntField(name string) goshp.Field { return goshp.NumberField(name, 10) }

// FloatField returns a floating point attribute field.
func FloatField(name string) goshp.Field { return goshp.FloatField(name, 24, 8) }

// Write writes polygons and their attribute rows to the shapefile
// file, removing any existing shapefile of the same name first. If prj
// is not empty, it is written to the .prj file.
func Write(file, prj string, fields []goshp.Field, polygons []geom.Polygonal, rows [][]interface{}) error {
	if len(polygons) != len(rows) {
		return fmt.Errorf("vector: writing %s: %d polygons but %d attribute rows", file, len(polygons), len(rows))
	}
	base := strings.TrimSuffix(file, filepath.Ext(file))
	Remove(file)
	e, err := shp.NewEncoderFromFields(base+".shp", goshp.POLYGON, fields...)
	if err != nil {
		Remove(file)
		return fmt.Errorf("vector: creating shapefile %s: %w", file, err)
	}
	for i, p := range polygons {
		if len(rows[i]) != len(fields) {
			e.Close()
			Remove(file)
			return fmt.Errorf("vector: writing %s: row %d has %d values but there are %d fields", file, i, len(rows[i]), len(fields))
		}
		if err := e.EncodeFields(toPolygon(p), rows[i]...); err != nil {
			e.Close()
			Remove(file)
			return fmt.Errorf("vector: writing %s: %w", file, err)
		}
	}
	e.Close()
	if prj != "" {
		if err := ioutil.WriteFile(base+".prj", []byte(prj), 0644); err != nil {
			Remove(file)
			return fmt.Errorf("vector: writing projection of %s: %w", file, err)
		}
	}
	return nil
}

// Remove deletes the component files of the shapefile file.
func Remove(file string) {
	base := strings.TrimSuffix(file, filepath.Ext(file))
	for _, ext := range []string{".shp", ".prj", ".dbf", ".shx"} {
		os.Remove(base + ext)
	}
}

// toPolygon converts p to a single polygon holding all of its rings.
func toPolygon(p geom.Polygonal) geom.Polygon {
	if pp, ok := p.(geom.Polygon); ok {
		return pp
	}
	var o geom.Polygon
	for _, pp := range p.Polygons() {
		o = append(o, pp...)
	}
	return o
}
