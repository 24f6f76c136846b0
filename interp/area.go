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

package interp

import (
	"database/sql"
	"fmt"
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
)

// EqualAreaProj4 is the default projection used to calculate areas:
// the Europe Albers equal-area conic projection on the GRS80 ellipsoid.
const EqualAreaProj4 = "+proj=aea +lat_1=43 +lat_2=62 +lat_0=30 +lon_0=10 +x_0=0 +y_0=0 +ellps=GRS80 +units=m +no_defs"

// AreaFunc returns the area of a polygon in square kilometers.
type AreaFunc func(geom.Polygonal) (float64, error)

// PlanarArea returns an AreaFunc for polygons in a projected coordinate
// system with unitsPerKm length units per kilometer.
func PlanarArea(unitsPerKm float64) AreaFunc {
	return func(p geom.Polygonal) (float64, error) {
		return p.Area() / (unitsPerKm * unitsPerKm), nil
	}
}

// ProjectedArea returns an AreaFunc for polygons with spatial reference
// sr that calculates areas after reprojecting to the equal-area
// spatial reference areaSR.
func ProjectedArea(sr, areaSR *proj.SR) (AreaFunc, error) {
	if sr == nil || areaSR == nil {
		return nil, fmt.Errorf("interp: missing spatial reference")
	}
	ct, err := sr.NewTransform(areaSR)
	if err != nil {
		return nil, fmt.Errorf("interp: creating area transform: %w", err)
	}
	toKm := areaSR.ToMeter / 1000
	return func(p geom.Polygonal) (float64, error) {
		g, err := p.Transform(ct)
		if err != nil {
			return math.NaN(), err
		}
		pp, ok := g.(geom.Polygonal)
		if !ok {
			return math.NaN(), fmt.Errorf("interp: transformed geometry has type %T", g)
		}
		return pp.Area() * toKm * toKm, nil
	}, nil
}

// Density returns value per square kilometer of area. The result is
// missing when value is missing or area is not positive.
func Density(value sql.NullFloat64, areaKm2 float64) sql.NullFloat64 {
	if !value.Valid || !(areaKm2 > 0) || math.IsInf(areaKm2, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: value.Float64 / areaKm2, Valid: true}
}
