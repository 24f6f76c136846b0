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
	"os"
	"path/filepath"
	"testing"

	"github.com/ctessum/cdf"
	"github.com/kr/pretty"
)

// writeCOARDS writes a classified raster to a COARDS file with pixel
// centers xs and ys. data is ordered [y, x].
func writeCOARDS(t *testing.T, file string, xs, ys []float64, data []int16, fill int16, proj4 string) {
	h := cdf.NewHeader([]string{"y", "x"}, []int{len(ys), len(xs)})
	if proj4 != "" {
		h.AddAttribute("", "proj4", proj4)
	}
	h.AddVariable("x", []string{"x"}, []float64{0})
	h.AddVariable("y", []string{"y"}, []float64{0})
	h.AddVariable("landcover", []string{"y", "x"}, []int16{0})
	h.AddAttribute("landcover", "_FillValue", []int16{fill})
	h.Define()
	ff, err := os.Create(file)
	if err != nil {
		t.Fatal(err)
	}
	defer ff.Close()
	f, err := cdf.Create(ff, h)
	if err != nil {
		t.Fatal(err)
	}
	for v, d := range map[string]interface{}{"x": xs, "y": ys, "landcover": data} {
		if _, err := f.Writer(v, nil, nil).Write(d); err != nil {
			t.Fatal(err)
		}
	}
	if err := cdf.UpdateNumRecs(ff); err != nil {
		t.Fatal(err)
	}
}

func TestReadCOARDS(t *testing.T) {
	file := filepath.Join(t.TempDir(), "clc.nc")
	// North-up file: the first row is the northernmost.
	writeCOARDS(t, file,
		[]float64{100.5, 101.5, 102.5},
		[]float64{21.5, 20.5},
		[]int16{
			1, 2, -128,
			12, 1, 48,
		}, -128, "+proj=longlat +datum=WGS84")

	r, err := ReadCOARDS(file, "", Legend{1: 111, 2: 112, 12: 211})
	if err != nil {
		t.Fatal(err)
	}
	if r.Nx != 3 || r.Ny != 2 || r.Dx != 1 || r.Dy != 1 || r.X0 != 100 || r.Y0 != 20 {
		t.Errorf("grid = %d×%d, %g×%g at (%g, %g)", r.Nx, r.Ny, r.Dx, r.Dy, r.X0, r.Y0)
	}
	if r.SR == nil {
		t.Error("missing spatial reference")
	}
	var classes [][]int
	for row := 0; row < r.Ny; row++ {
		var c []int
		for col := 0; col < r.Nx; col++ {
			c = append(c, r.Class(row, col))
		}
		classes = append(classes, c)
	}
	want := [][]int{
		{211, 111, NoData},
		{111, 112, NoData},
	}
	if diff := pretty.Diff(classes, want); len(diff) != 0 {
		t.Fatal(diff)
	}

	if _, err := ReadCOARDS(file, "missing", nil); err == nil {
		t.Error("expected an error for a missing variable")
	}
}

func TestReadCOARDSUneven(t *testing.T) {
	file := filepath.Join(t.TempDir(), "uneven.nc")
	writeCOARDS(t, file,
		[]float64{0.5, 1.5, 3.5},
		[]float64{0.5, 1.5},
		[]int16{1, 1, 1, 1, 1, 1}, -1, "")
	if _, err := ReadCOARDS(file, "landcover", nil); err == nil {
		t.Error("expected an error for uneven grid spacing")
	}
}

func TestNewRaster(t *testing.T) {
	if _, err := NewRaster(2, 2, 1, 1, 0, 0, []int{1, 2, 3}); err == nil {
		t.Error("expected an error for a short class slice")
	}
	if _, err := NewRaster(2, 2, 0, 1, 0, 0, []int{1, 2, 3, 4}); err == nil {
		t.Error("expected an error for zero pixel width")
	}
	r, err := NewRaster(2, 1, 10, 5, -20, 40, []int{0, -7})
	if err != nil {
		t.Fatal(err)
	}
	if r.Class(0, 0) != 0 || r.Class(0, 1) != NoData {
		t.Errorf("classes = %d, %d", r.Class(0, 0), r.Class(0, 1))
	}
	b := r.PixelBounds(0, 1)
	if b.Min.X != -10 || b.Max.X != 0 || b.Min.Y != 40 || b.Max.Y != 45 {
		t.Errorf("pixel bounds = %+v", b)
	}
	e := r.Extent()
	if e.Min.X != -20 || e.Max.X != 0 || e.Min.Y != 40 || e.Max.Y != 45 {
		t.Errorf("extent = %+v", e)
	}
}
