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
	"runtime"

	"github.com/ctessum/geom"
)

// ZoneStatus tells whether a coarse cell can be used for weighting.
type ZoneStatus int

const (
	// ZoneOK means that at least one qualifying pixel touches the cell.
	ZoneOK ZoneStatus = iota

	// ZoneNoQualifying means that pixels with data touch the cell
	// but none of them is in a qualifying class.
	ZoneNoQualifying

	// ZoneNoData means that no pixel with data touches the cell.
	ZoneNoData
)

func (s ZoneStatus) String() string {
	switch s {
	case ZoneOK:
		return "ok"
	case ZoneNoQualifying:
		return "no qualifying pixels"
	case ZoneNoData:
		return "no data"
	default:
		return fmt.Sprintf("ZoneStatus(%d)", int(s))
	}
}

// ZoneStats holds the zonal statistics of one coarse cell.
type ZoneStats struct {
	// ID and Population are copied from the coarse cell.
	ID         string
	Population float64

	// Qualifying is the number of qualifying pixels touching the cell.
	Qualifying int

	// ClassCounts holds the number of qualifying pixels of each class.
	ClassCounts map[int]int

	// Distinct is the number of distinct classes among all pixels
	// with data touching the cell.
	Distinct int

	Status ZoneStatus
}

// AggregateConfig holds the parameters of Aggregate.
type AggregateConfig struct {
	// Qualifying holds the classes that receive population,
	// for example the CORINE artificial surfaces 111-142.
	Qualifying Classes
}

// Aggregate computes the zonal statistics of r over each of the cells.
// A pixel touches a cell when the two overlap with positive area; pixels
// that only share an edge or a corner with the cell are not counted. The output is in the same order as cells.
func Aggregate(r *Raster, cells []*CoarseCell, cfg AggregateConfig) ([]*ZoneStats, error) {
	if r == nil {
		return nil, fmt.Errorf("zonal: aggregate: nil raster")
	}
	if len(cfg.Qualifying) == 0 {
		return nil, fmt.Errorf("zonal: aggregate: no qualifying classes")
	}
	if err := ValidateCells(cells); err != nil {
		return nil, err
	}
	o := make([]*ZoneStats, len(cells))
	nprocs := runtime.GOMAXPROCS(0)
	errChan := make(chan error)
	for procnum := 0; procnum < nprocs; procnum++ {
		go func(procnum int) {
			var err error
			defer func() {
				if p := recover(); p != nil {
					err = fmt.Errorf("zonal: aggregate: %v", p)
				}
				errChan <- err
			}()
			for i := procnum; i < len(cells); i += nprocs {
				o[i] = aggregateCell(r, cells[i], cfg.Qualifying)
			}
		}(procnum)
	}
	var err error
	for procnum := 0; procnum < nprocs; procnum++ {
		if e := <-errChan; e != nil && err == nil {
			err = e
		}
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

func aggregateCell(r *Raster, c *CoarseCell, qualifying Classes) *ZoneStats {
	z := &ZoneStats{
		ID:          c.ID,
		Population:  c.Population,
		ClassCounts: make(map[int]int),
		Status:      ZoneNoData,
	}
	b := c.Bounds()
	row0, row1, col0, col1, ok := r.indexRange(b)
	if !ok {
		return z
	}
	rect := isRectangle(c.Polygonal)
	var vertices []geom.Point
	if !rect {
		for _, p := range c.Polygons() {
			for _, ring := range p {
				vertices = append(vertices, ring...)
			}
		}
	}
	distinct := make(map[int]struct{})
	for row := row0; row <= row1; row++ {
		for col := col0; col <= col1; col++ {
			class := r.Class(row, col)
			if class == NoData {
				continue
			}
			if !rect && !touches(r, row, col, c.Polygonal, vertices) {
				continue
			}
			distinct[class] = struct{}{}
			if qualifying.Contains(class) {
				z.Qualifying++
				z.ClassCounts[class]++
			}
		}
	}
	z.Distinct = len(distinct)
	switch {
	case z.Qualifying > 0:
		z.Status = ZoneOK
	case z.Distinct > 0:
		z.Status = ZoneNoQualifying
	}
	return z
}

// touches returns whether the pixel at row and col overlaps poly with
// positive area. vertices holds the vertices of poly.
func touches(r *Raster, row, col int, poly geom.Polygonal, vertices []geom.Point) bool {
	pb := r.PixelBounds(row, col)
	corners := []geom.Point{
		pb.Min, {X: pb.Max.X, Y: pb.Min.Y},
		pb.Max, {X: pb.Min.X, Y: pb.Max.Y},
	}
	for _, p := range corners {
		if p.Within(poly) == geom.Inside {
			return true
		}
	}
	for _, v := range vertices {
		if v.X > pb.Min.X && v.X < pb.Max.X && v.Y > pb.Min.Y && v.Y < pb.Max.Y {
			return true
		}
	}
	// Polygon edges can cross the pixel without any vertex on either side.
	return r.pixelPolygon(row, col).Intersection(poly).Area() > 0
}
