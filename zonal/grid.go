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
	"fmt"
	"math"

	"github.com/ctessum/geom"
)

// CoarseCell is a statistical unit of the coarse population grid.
type CoarseCell struct {
	geom.Polygonal

	// ID uniquely identifies the cell.
	ID string

	// Population is the number of people living in the cell.
	Population float64
}

// ValidateCells checks that cells have geometries, unique IDs and
// non-negative populations.
func ValidateCells(cells []*CoarseCell) error {
	ids := make(map[string]struct{}, len(cells))
	for i, c := range cells {
		if c == nil || c.Polygonal == nil {
			return fmt.Errorf("zonal: coarse cell %d has no geometry", i)
		}
		if _, ok := ids[c.ID]; ok {
			return fmt.Errorf("zonal: duplicate coarse cell ID %q", c.ID)
		}
		ids[c.ID] = struct{}{}
		if math.IsNaN(c.Population) || math.IsInf(c.Population, 0) || c.Population < 0 {
			return fmt.Errorf("zonal: coarse cell %q has invalid population %g", c.ID, c.Population)
		}
	}
	return nil
}

// isRectangle returns whether p is a single axis-aligned rectangle.
func isRectangle(p geom.Polygonal) bool {
	polys := p.Polygons()
	if len(polys) != 1 || len(polys[0]) != 1 {
		return false
	}
	ring := polys[0][0]
	if len(ring) != 4 && len(ring) != 5 {
		return false
	}
	b := p.Bounds()
	for _, pt := range ring {
		if (pt.X != b.Min.X && pt.X != b.Max.X) || (pt.Y != b.Min.Y && pt.Y != b.Max.Y) {
			return false
		}
	}
	a := (b.Max.X - b.Min.X) * (b.Max.Y - b.Min.Y)
	return a > 0 && math.Abs(p.Area()-a) <= a*1.e-10
}
