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

// Package dasymetric redistributes the population of coarse grid cells
// onto land-cover segments using class weights.
package dasymetric

import (
	"fmt"
	"math"
	"runtime"
	"sort"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
	"github.com/spatialmodel/dasymap/interp"
	"github.com/spatialmodel/dasymap/zonal"
)

// Segment is a land-cover polygon.
type Segment struct {
	geom.Polygonal
	ID    string
	Class int

	// Population is the population assigned to the segment.
	Population float64
}

// Unassigned is a coarse cell whose population could not be assigned
// to any segment.
type Unassigned struct {
	CellID     string
	Population float64
}

// Refinement is the result of Refine.
type Refinement struct {
	// Segments holds one output segment per input segment, in input
	// order.
	Segments []*Segment

	// Unassigned holds the populated cells that do not overlap any
	// segment of a weighted class.
	Unassigned []Unassigned
}

// UnassignedPopulation returns the total unassigned population.
func (r *Refinement) UnassignedPopulation() float64 {
	var p float64
	for _, u := range r.Unassigned {
		p += u.Population
	}
	return p
}

// Sources returns the refined segments as interpolation sources.
func (r *Refinement) Sources() []*interp.Source {
	o := make([]*interp.Source, len(r.Segments))
	for i, s := range r.Segments {
		o[i] = &interp.Source{Polygonal: s.Polygonal, ID: s.ID, Value: s.Population}
	}
	return o
}

type indexedSegment struct {
	geom.Polygonal
	i int
}

type share struct {
	seg int
	pop float64
}

// Refine splits the population of each cell among the pieces of the
// segments it overlaps, in proportion to the weight of the segment
// class times the area of the piece. Weights are relative population
// densities such as those returned by weights.Table.Weights. Segments of
// classes missing from weights receive no population. The population of
// the input segments is ignored.
func Refine(segments []*Segment, cells []*zonal.CoarseCell, weights map[int]float64) (*Refinement, error) {
	if err := zonal.ValidateCells(cells); err != nil {
		return nil, fmt.Errorf("dasymetric: %w", err)
	}
	for c, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return nil, fmt.Errorf("dasymetric: class %d has invalid weight %g", c, w)
		}
	}
	index := rtree.NewTree(25, 50)
	ids := make(map[string]struct{}, len(segments))
	for i, s := range segments {
		if s == nil || s.Polygonal == nil {
			return nil, fmt.Errorf("dasymetric: segment %d has no geometry", i)
		}
		if _, ok := ids[s.ID]; ok {
			return nil, fmt.Errorf("dasymetric: duplicate segment ID %q", s.ID)
		}
		ids[s.ID] = struct{}{}
		if weights[s.Class] > 0 {
			index.Insert(indexedSegment{Polygonal: s.Polygonal, i: i})
		}
	}

	shares := make([][]share, len(cells))
	nprocs := runtime.GOMAXPROCS(0)
	errChan := make(chan error)
	for procnum := 0; procnum < nprocs; procnum++ {
		go func(procnum int) {
			var err error
			defer func() {
				if p := recover(); p != nil {
					err = fmt.Errorf("dasymetric: overlaying segments: %v", p)
				}
				errChan <- err
			}()
			for i := procnum; i < len(cells); i += nprocs {
				shares[i] = cellShares(cells[i], segments, index, weights)
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

	r := &Refinement{Segments: make([]*Segment, len(segments))}
	for i, s := range segments {
		r.Segments[i] = &Segment{Polygonal: s.Polygonal, ID: s.ID, Class: s.Class}
	}
	for i, c := range cells {
		if len(shares[i]) == 0 {
			if c.Population > 0 {
				r.Unassigned = append(r.Unassigned, Unassigned{CellID: c.ID, Population: c.Population})
			}
			continue
		}
		for _, s := range shares[i] {
			r.Segments[s.seg].Population += s.pop
		}
	}
	return r, nil
}

// cellShares returns the population of c assigned to each segment, in
// segment order. It returns nil if no weighted segment overlaps c.
func cellShares(c *zonal.CoarseCell, segments []*Segment, index *rtree.Rtree, weights map[int]float64) []share {
	var idx []int
	for _, gI := range index.SearchIntersect(c.Bounds()) {
		idx = append(idx, gI.(indexedSegment).i)
	}
	sort.Ints(idx)
	var o []share
	var total float64
	for _, i := range idx {
		s := segments[i]
		score := weights[s.Class] * s.Intersection(c.Polygonal).Area()
		if score > 0 {
			o = append(o, share{seg: i, pop: score})
			total += score
		}
	}
	if total <= 0 {
		return nil
	}
	for j := range o {
		o[j].pop *= c.Population / total
	}
	return o
}
