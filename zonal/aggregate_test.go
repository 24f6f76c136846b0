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
	"math"
	"testing"

	"github.com/ctessum/geom"
	"github.com/kr/pretty"
)

func rect(xmin, ymin, xmax, ymax float64) geom.Polygon {
	return geom.Polygon{{
		{X: xmin, Y: ymin}, {X: xmax, Y: ymin},
		{X: xmax, Y: ymax}, {X: xmin, Y: ymax}, {X: xmin, Y: ymin},
	}}
}

var urban = AggregateConfig{Qualifying: Classes{{Min: 111, Max: 142}}}

func TestAggregateMixedCell(t *testing.T) {
	// Three continuous urban pixels and one discontinuous urban pixel.
	r, err := NewRaster(2, 2, 1, 1, 0, 0, []int{111, 111, 111, 112})
	if err != nil {
		t.Fatal(err)
	}
	cells := []*CoarseCell{{Polygonal: rect(0, 0, 2, 2), ID: "a", Population: 100}}
	z, err := Aggregate(r, cells, urban)
	if err != nil {
		t.Fatal(err)
	}
	want := []*ZoneStats{{
		ID:          "a",
		Population:  100,
		Qualifying:  4,
		ClassCounts: map[int]int{111: 3, 112: 1},
		Distinct:    2,
		Status:      ZoneOK,
	}}
	if diff := pretty.Diff(z, want); len(diff) != 0 {
		t.Fatal(diff)
	}
}

// codeRaster returns a 3×3 raster of unit pixels whose class codes
// identify the pixels: 200 + 3*row + col.
func codeRaster(t *testing.T) *Raster {
	codes := make([]int, 9)
	for i := range codes {
		codes[i] = 200 + i
	}
	r, err := NewRaster(3, 3, 1, 1, 0, 0, codes)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestAggregateTouches(t *testing.T) {
	r := codeRaster(t)
	cfg := AggregateConfig{Qualifying: Classes{{Min: 200, Max: 208}}}
	cells := []*CoarseCell{
		// Shares edges and corners with all of its neighbors, which
		// therefore do not count.
		{Polygonal: rect(1, 1, 2, 2), ID: "aligned"},
		{Polygonal: rect(1.25, 1.25, 1.75, 1.75), ID: "inner"},
		{Polygonal: geom.Polygon{{{X: 1.1, Y: 1.1}, {X: 1.9, Y: 1.1}, {X: 1.5, Y: 1.9}, {X: 1.1, Y: 1.1}}}, ID: "small triangle"},
		// The hypotenuse passes through pixel corners (2, 1) and (1, 2),
		// so the pixels east and north of the center only meet it at a point.
		{Polygonal: geom.Polygon{{{X: 0.5, Y: 0.5}, {X: 2.5, Y: 0.5}, {X: 0.5, Y: 2.5}, {X: 0.5, Y: 0.5}}}, ID: "large triangle"},
		// A thin diagonal strip crossing the center pixel.
		{Polygonal: geom.Polygon{{{X: 0.9, Y: 1.8}, {X: 1.2, Y: 2.1}, {X: 2.1, Y: 1.2}, {X: 1.8, Y: 0.9}, {X: 0.9, Y: 1.8}}}, ID: "strip"},
	}
	z, err := Aggregate(r, cells, cfg)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string][]int{
		"aligned":        {204},
		"inner":          {204},
		"small triangle": {204},
		"large triangle": {200, 201, 202, 203, 204, 206},
		"strip":          {201, 203, 204, 205, 207},
	}
	for i, zz := range z {
		if zz.ID != cells[i].ID {
			t.Fatalf("output %d has ID %q, want %q", i, zz.ID, cells[i].ID)
		}
		w := want[zz.ID]
		if zz.Qualifying != len(w) || zz.Distinct != len(w) {
			t.Errorf("%s: qualifying = %d, distinct = %d, want %d", zz.ID, zz.Qualifying, zz.Distinct, len(w))
		}
		for _, c := range w {
			if zz.ClassCounts[c] != 1 {
				t.Errorf("%s: pixel %d not touched", zz.ID, c)
			}
		}
	}
}

func TestAggregateAlignedGrid(t *testing.T) {
	// 30×30 unit pixels: columns 0-9 are discontinuous urban fabric and
	// the rest continuous urban fabric. Coarse cells are 10×10 pixels.
	codes := make([]int, 30*30)
	for row := 0; row < 30; row++ {
		for col := 0; col < 30; col++ {
			codes[row*30+col] = 111
			if col < 10 {
				codes[row*30+col] = 112
			}
		}
	}
	r, err := NewRaster(30, 30, 1, 1, 0, 0, codes)
	if err != nil {
		t.Fatal(err)
	}
	cells := []*CoarseCell{
		{Polygonal: rect(10, 10, 20, 20), ID: "east of the boundary"},
		{Polygonal: rect(0, 10, 10, 20), ID: "west of the boundary"},
		{Polygonal: rect(5, 10, 15, 20), ID: "across the boundary"},
		// Not a rectangle, so the general overlap test is used.
		{Polygonal: geom.Polygon{{{X: 10, Y: 0}, {X: 20, Y: 0}, {X: 20, Y: 10}, {X: 15, Y: 10}, {X: 10, Y: 10}, {X: 10, Y: 0}}}, ID: "pentagon"},
	}
	z, err := Aggregate(r, cells, urban)
	if err != nil {
		t.Fatal(err)
	}
	want := []*ZoneStats{
		{ID: "east of the boundary", Qualifying: 100, ClassCounts: map[int]int{111: 100}, Distinct: 1, Status: ZoneOK},
		{ID: "west of the boundary", Qualifying: 100, ClassCounts: map[int]int{112: 100}, Distinct: 1, Status: ZoneOK},
		{ID: "across the boundary", Qualifying: 100, ClassCounts: map[int]int{111: 50, 112: 50}, Distinct: 2, Status: ZoneOK},
		{ID: "pentagon", Qualifying: 100, ClassCounts: map[int]int{111: 100}, Distinct: 1, Status: ZoneOK},
	}
	if diff := pretty.Diff(z, want); len(diff) != 0 {
		t.Fatal(diff)
	}
}

func TestAggregateStatus(t *testing.T) {
	// West half urban, east half arable land, north-east pixel no data.
	r, err := NewRaster(4, 2, 1, 1, 0, 0, []int{
		111, 111, 211, 211,
		111, 111, 211, NoData,
	})
	if err != nil {
		t.Fatal(err)
	}
	cells := []*CoarseCell{
		{Polygonal: rect(0.1, 0.1, 1.9, 1.9), ID: "urban", Population: 10},
		{Polygonal: rect(2.1, 0.1, 3.9, 1.9), ID: "arable", Population: 5},
		{Polygonal: rect(3.2, 1.2, 3.8, 1.8), ID: "nodata", Population: 1},
		{Polygonal: rect(10, 10, 11, 11), ID: "outside", Population: 1},
	}
	z, err := Aggregate(r, cells, urban)
	if err != nil {
		t.Fatal(err)
	}
	want := []ZoneStatus{ZoneOK, ZoneNoQualifying, ZoneNoData, ZoneNoData}
	for i, zz := range z {
		if zz.Status != want[i] {
			t.Errorf("%s: status = %v, want %v", zz.ID, zz.Status, want[i])
		}
	}
	if z[1].Qualifying != 0 || z[1].Distinct != 1 {
		t.Errorf("arable: qualifying = %d, distinct = %d", z[1].Qualifying, z[1].Distinct)
	}
	if z[2].Distinct != 0 {
		t.Errorf("nodata: distinct = %d", z[2].Distinct)
	}
}

func TestAggregateInvalid(t *testing.T) {
	r := codeRaster(t)
	for name, cells := range map[string][]*CoarseCell{
		"negative":  {{Polygonal: rect(0, 0, 1, 1), ID: "a", Population: -1}},
		"nan":       {{Polygonal: rect(0, 0, 1, 1), ID: "a", Population: math.NaN()}},
		"duplicate": {{Polygonal: rect(0, 0, 1, 1), ID: "a"}, {Polygonal: rect(1, 1, 2, 2), ID: "a"}},
		"no geom":   {{ID: "a"}},
	} {
		if _, err := Aggregate(r, cells, urban); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
	if _, err := Aggregate(r, nil, AggregateConfig{}); err == nil {
		t.Error("expected an error for empty qualifying classes")
	}
}
