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

// Package weights estimates the share of the population living on each
// land-cover class and reconciles the estimates of the two estimation
// methods into a single weight table.
package weights

import (
	"database/sql"
	"fmt"
	"math"
	"sort"

	"github.com/spatialmodel/dasymap/zonal"
	"gonum.org/v1/gonum/floats"
)

// Method identifies a weight estimation method.
type Method string

const (
	// F1 uses every coarse cell touched by at least one qualifying pixel.
	F1 Method = "F1"

	// F2 uses only coarse cells touched by a single land-cover class.
	F2 Method = "F2"
)

// ClassEstimate is the population estimate for one land-cover class.
type ClassEstimate struct {
	Class int

	// Pixels is the number of pixels of the class in the contributing
	// cells.
	Pixels int

	// Population is the population redistributed onto the class.
	Population float64

	// Mean is the mean population per pixel of the class.
	Mean float64

	// Percent is the share of Population in the total of all classes.
	// It is invalid when the total is zero.
	Percent sql.NullFloat64
}

// Estimate holds the class estimates of one method, sorted by class.
type Estimate struct {
	Method  Method
	Classes []*ClassEstimate

	// Cells is the number of coarse cells that contributed.
	Cells int
}

// Class returns the estimate for class c, or nil if the class
// did not receive any population.
func (e *Estimate) Class(c int) *ClassEstimate {
	i := sort.Search(len(e.Classes), func(i int) bool { return e.Classes[i].Class >= c })
	if i < len(e.Classes) && e.Classes[i].Class == c {
		return e.Classes[i]
	}
	return nil
}

// EstimateF1 spreads the population of each cell with status ZoneOK
// evenly over its qualifying pixels. Cells without qualifying pixels
// are excluded.
func EstimateF1(zones []*zonal.ZoneStats) (*Estimate, error) {
	acc := make(accumulator)
	var n int
	for _, z := range zones {
		if z.Status != zonal.ZoneOK {
			continue
		}
		if z.Qualifying <= 0 {
			return nil, fmt.Errorf("weights: F1: cell %q has status %v but %d qualifying pixels", z.ID, z.Status, z.Qualifying)
		}
		acc.add(z, z.Population/float64(z.Qualifying))
		n++
	}
	return acc.estimate(F1, n), nil
}

// EstimateF2 uses only cells with status ZoneOK that are touched by
// a single land-cover class. The population of each of those cells is
// spread over pixelRatio pixels, the number of raster pixels in a
// coarse cell.
func EstimateF2(zones []*zonal.ZoneStats, pixelRatio float64) (*Estimate, error) {
	if !(pixelRatio > 0) || math.IsInf(pixelRatio, 0) {
		return nil, fmt.Errorf("weights: F2: invalid pixel ratio %g", pixelRatio)
	}
	acc := make(accumulator)
	var n int
	for _, z := range zones {
		if z.Status != zonal.ZoneOK || z.Distinct != 1 {
			continue
		}
		acc.add(z, z.Population/pixelRatio)
		n++
	}
	return acc.estimate(F2, n), nil
}

// accumulator holds running per-class totals.
type accumulator map[int]*ClassEstimate

func (a accumulator) add(z *zonal.ZoneStats, perPixel float64) {
	for c, n := range z.ClassCounts {
		if n <= 0 {
			continue
		}
		e, ok := a[c]
		if !ok {
			e = &ClassEstimate{Class: c}
			a[c] = e
		}
		e.Pixels += n
		e.Population += perPixel * float64(n)
	}
}

func (a accumulator) estimate(m Method, cells int) *Estimate {
	o := &Estimate{Method: m, Cells: cells, Classes: make([]*ClassEstimate, 0, len(a))}
	for _, e := range a {
		o.Classes = append(o.Classes, e)
	}
	sort.Slice(o.Classes, func(i, j int) bool { return o.Classes[i].Class < o.Classes[j].Class })

	pop := make([]float64, len(o.Classes))
	for i, e := range o.Classes {
		e.Mean = e.Population / float64(e.Pixels)
		pop[i] = e.Population
	}
	total := floats.Sum(pop)
	if total > 0 {
		for _, e := range o.Classes {
			e.Percent = sql.NullFloat64{Float64: e.Population / total * 100, Valid: true}
		}
	}
	return o
}
