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

// Package interp reapportions values known on a set of source polygons
// onto a set of target polygons in proportion to the area of overlap.
package interp

import (
	"database/sql"
	"fmt"
	"math"
	"runtime"
	"sort"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
)

// Source is a polygon with a known value, for example a refined
// land-cover segment and its population.
type Source struct {
	geom.Polygonal
	ID    string
	Value float64
}

// Target is a polygon to estimate a value for.
type Target struct {
	geom.Polygonal
	ID string

	// Truth is the reference value of the target, if known.
	Truth sql.NullFloat64
}

// Result is the estimate for one target.
type Result struct {
	ID string

	// Value is the interpolated value. It is zero when no source
	// overlaps the target and invalid when the interpolation failed.
	Value sql.NullFloat64

	// AreaKm2 is the area of the target in square kilometers.
	AreaKm2 float64

	// Density is Value per square kilometer.
	Density sql.NullFloat64
}

// DegradedError is returned by Interpolate when the polygon overlay
// failed. The results that accompany it have missing values.
type DegradedError struct {
	Err error
}

func (e *DegradedError) Error() string {
	return fmt.Sprintf("interp: areal interpolation failed, all values are missing: %v", e.Err)
}

func (e *DegradedError) Unwrap() error { return e.Err }

// Option configures an Interpolator.
type Option func(*Interpolator) error

// Area sets the function used to calculate target areas.
// The default is PlanarArea(1000), for coordinates in meters.
func Area(f AreaFunc) Option {
	return func(i *Interpolator) error {
		if f == nil {
			return fmt.Errorf("interp: nil area function")
		}
		i.area = f
		return nil
	}
}

// Interpolator reapportions source values onto targets. It is safe for
// concurrent use.
type Interpolator struct {
	sources []*Source
	areas   []float64
	index   *rtree.Rtree
	area    AreaFunc
}

type indexedSource struct {
	geom.Polygonal
	i int
}

// New creates an Interpolator for the given sources. Source IDs must be
// unique and source values must be non-negative numbers.
func New(sources []*Source, opts ...Option) (*Interpolator, error) {
	in := &Interpolator{
		sources: sources,
		areas:   make([]float64, len(sources)),
		index:   rtree.NewTree(25, 50),
		area:    PlanarArea(1000),
	}
	for _, o := range opts {
		if err := o(in); err != nil {
			return nil, err
		}
	}
	ids := make(map[string]struct{}, len(sources))
	for i, s := range sources {
		if s == nil || s.Polygonal == nil {
			return nil, fmt.Errorf("interp: source %d has no geometry", i)
		}
		if _, ok := ids[s.ID]; ok {
			return nil, fmt.Errorf("interp: duplicate source ID %q", s.ID)
		}
		ids[s.ID] = struct{}{}
		if math.IsNaN(s.Value) || math.IsInf(s.Value, 0) || s.Value < 0 {
			return nil, fmt.Errorf("interp: source %q has invalid value %g", s.ID, s.Value)
		}
		in.areas[i] = s.Area()
		in.index.Insert(indexedSource{Polygonal: s.Polygonal, i: i})
	}
	return in, nil
}

// Interpolate estimates the value of each target as the sum over the
// sources of the source value times the fraction of the source area
// that overlaps the target. Results are in the same order as targets.
//
// If the overlay fails, every result has a missing value and the
// returned error is a *DegradedError. Other errors are returned
// without results.
func (in *Interpolator) Interpolate(targets []*Target) ([]*Result, error) {
	o := make([]*Result, len(targets))
	for i, t := range targets {
		if t == nil {
			return nil, fmt.Errorf("interp: target %d is nil", i)
		}
		o[i] = &Result{ID: t.ID}
		if t.Polygonal == nil {
			continue
		}
		a, err := in.area(t.Polygonal)
		if err != nil {
			return nil, fmt.Errorf("interp: calculating area of target %q: %w", t.ID, err)
		}
		o[i].AreaKm2 = a
	}

	nprocs := runtime.GOMAXPROCS(0)
	errChan := make(chan error)
	for procnum := 0; procnum < nprocs; procnum++ {
		go func(procnum int) {
			var err error
			defer func() {
				if p := recover(); p != nil {
					err = fmt.Errorf("%v", p)
				}
				errChan <- err
			}()
			for i := procnum; i < len(targets); i += nprocs {
				var v float64
				v, err = in.value(targets[i])
				if err != nil {
					return
				}
				o[i].Value = sql.NullFloat64{Float64: v, Valid: true}
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
		for _, r := range o {
			r.Value = sql.NullFloat64{}
			r.Density = sql.NullFloat64{}
		}
		return o, &DegradedError{Err: err}
	}
	for _, r := range o {
		r.Density = Density(r.Value, r.AreaKm2)
	}
	return o, nil
}

// value returns the interpolated value of t.
func (in *Interpolator) value(t *Target) (float64, error) {
	if t.Polygonal == nil {
		return 0, fmt.Errorf("target %q has no geometry", t.ID)
	}
	var idx []int
	for _, gI := range in.index.SearchIntersect(t.Bounds()) {
		idx = append(idx, gI.(indexedSource).i)
	}
	sort.Ints(idx)
	var v float64
	for _, i := range idx {
		s := in.sources[i]
		if in.areas[i] <= 0 || s.Value == 0 {
			continue
		}
		isect := s.Intersection(t.Polygonal)
		if isect == nil {
			continue
		}
		a := isect.Area()
		if math.IsNaN(a) {
			return 0, fmt.Errorf("invalid overlap between source %q and target %q", s.ID, t.ID)
		}
		frac := a / in.areas[i]
		if frac > 1 {
			frac = 1
		}
		v += s.Value * frac
	}
	return v, nil
}
