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
	"os"

	"github.com/ctessum/cdf"
	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
	"github.com/ctessum/sparse"
)

// NoData is the class code of raster pixels without data.
const NoData = -1

// Raster is a regular grid of land-cover class codes. Row 0 is the
// southernmost row and column 0 is the westernmost column.
// A Raster is not modified after it is created.
type Raster struct {
	Nx, Ny int
	Dx, Dy float64

	// X0 and Y0 are the coordinates of the lower left corner of the grid.
	X0, Y0 float64

	// SR is the spatial reference of the grid. It is nil if unknown.
	SR *proj.SR

	classes *sparse.DenseArrayInt
}

// NewRaster creates a raster with nx columns and ny rows of dx by dy
// pixels and lower left corner (x0, y0). classes holds the class code of
// each pixel in row-major order starting from the southernmost row;
// it is copied.
func NewRaster(nx, ny int, dx, dy, x0, y0 float64, classes []int) (*Raster, error) {
	if nx <= 0 || ny <= 0 {
		return nil, fmt.Errorf("zonal: invalid raster dimensions %d×%d", nx, ny)
	}
	if !(dx > 0) || !(dy > 0) {
		return nil, fmt.Errorf("zonal: invalid raster pixel size %g×%g", dx, dy)
	}
	if len(classes) != nx*ny {
		return nil, fmt.Errorf("zonal: raster has %d pixels but %d class values", nx*ny, len(classes))
	}
	r := &Raster{
		Nx: nx, Ny: ny,
		Dx: dx, Dy: dy,
		X0: x0, Y0: y0,
		classes: sparse.ZerosDenseInt(ny, nx),
	}
	for i, c := range classes {
		if c < 0 {
			c = NoData
		}
		r.classes.Elements[i] = c
	}
	return r, nil
}

// Class returns the class code of the pixel at row and col.
func (r *Raster) Class(row, col int) int {
	return r.classes.Elements[r.classes.Index1d(row, col)]
}

// Extent returns the bounds of the whole raster.
func (r *Raster) Extent() *geom.Bounds {
	return &geom.Bounds{
		Min: geom.Point{X: r.X0, Y: r.Y0},
		Max: geom.Point{X: r.X0 + float64(r.Nx)*r.Dx, Y: r.Y0 + float64(r.Ny)*r.Dy},
	}
}

// PixelBounds returns the bounds of the pixel at row and col.
func (r *Raster) PixelBounds(row, col int) *geom.Bounds {
	x := r.X0 + float64(col)*r.Dx
	y := r.Y0 + float64(row)*r.Dy
	return &geom.Bounds{
		Min: geom.Point{X: x, Y: y},
		Max: geom.Point{X: x + r.Dx, Y: y + r.Dy},
	}
}

func (r *Raster) pixelPolygon(row, col int) geom.Polygon {
	b := r.PixelBounds(row, col)
	return geom.Polygon{{
		{X: b.Min.X, Y: b.Min.Y}, {X: b.Max.X, Y: b.Min.Y},
		{X: b.Max.X, Y: b.Max.Y}, {X: b.Min.X, Y: b.Max.Y},
		{X: b.Min.X, Y: b.Min.Y},
	}}
}

// indexRange returns the inclusive row and column ranges of the pixels
// that overlap b with positive area. ok is false if there are none.
func (r *Raster) indexRange(b *geom.Bounds) (row0, row1, col0, col1 int, ok bool) {
	col0 = int(math.Floor((b.Min.X - r.X0) / r.Dx))
	col1 = int(math.Ceil((b.Max.X-r.X0)/r.Dx)) - 1
	row0 = int(math.Floor((b.Min.Y - r.Y0) / r.Dy))
	row1 = int(math.Ceil((b.Max.Y-r.Y0)/r.Dy)) - 1
	if col0 < 0 {
		col0 = 0
	}
	if row0 < 0 {
		row0 = 0
	}
	if col1 > r.Nx-1 {
		col1 = r.Nx - 1
	}
	if row1 > r.Ny-1 {
		row1 = r.Ny - 1
	}
	ok = col0 <= col1 && row0 <= row1
	return
}

// ReadCOARDS reads a classified raster from a COARDS-compliant NetCDF file
// (NetCDF 4 and greater not supported). variable is the name of a
// two-dimensional variable over [y, x] (or [lat, lon]) dimensions, each of
// which must have a coordinate variable holding evenly spaced pixel
// centers. If variable is empty, the file must contain exactly one
// two-dimensional variable. Raw values are converted to class codes
// with legend; values equal to the variable's _FillValue are NoData.
// If the file has a global "proj4" attribute, it is used as the spatial
// reference of the raster.
func ReadCOARDS(file, variable string, legend Legend) (*Raster, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("zonal: opening COARDS file %s: %w", file, err)
	}
	defer f.Close()
	nc, err := cdf.Open(f)
	if err != nil {
		return nil, fmt.Errorf("zonal: opening COARDS file %s: %w", file, err)
	}

	if variable == "" {
		for _, v := range nc.Header.Variables() {
			if len(nc.Header.Dimensions(v)) != 2 {
				continue
			}
			if variable != "" {
				return nil, fmt.Errorf("zonal: COARDS file %s has more than one raster variable (%s, %s); please specify one", file, variable, v)
			}
			variable = v
		}
		if variable == "" {
			return nil, fmt.Errorf("zonal: COARDS file %s has no two-dimensional variable", file)
		}
	}
	dims := nc.Header.Dimensions(variable)
	if len(dims) != 2 {
		return nil, fmt.Errorf("zonal: variable %s in COARDS file %s must have 2 dimensions but has %d", variable, file, len(dims))
	}
	ys, err := readCOARDSVar(nc, dims[0])
	if err != nil {
		return nil, fmt.Errorf("zonal: reading coordinate %s from COARDS file %s: %w", dims[0], file, err)
	}
	xs, err := readCOARDSVar(nc, dims[1])
	if err != nil {
		return nil, fmt.Errorf("zonal: reading coordinate %s from COARDS file %s: %w", dims[1], file, err)
	}
	data, err := readCOARDSVar(nc, variable)
	if err != nil {
		return nil, fmt.Errorf("zonal: reading variable %s from COARDS file %s: %w", variable, file, err)
	}
	nx, ny := len(xs), len(ys)
	if nx < 2 || ny < 2 {
		return nil, fmt.Errorf("zonal: COARDS file %s: %s and %s must be length >= 2 but are %d and %d", file, dims[0], dims[1], ny, nx)
	}
	if len(data) != nx*ny {
		return nil, fmt.Errorf("zonal: COARDS file %s: variable %s has %d values but the grid has %d", file, variable, len(data), nx*ny)
	}
	dx, err := gridSpacing(xs)
	if err != nil {
		return nil, fmt.Errorf("zonal: COARDS file %s: %s: %w", file, dims[1], err)
	}
	dy, err := gridSpacing(ys)
	if err != nil {
		return nil, fmt.Errorf("zonal: COARDS file %s: %s: %w", file, dims[0], err)
	}

	classes := make([]int, nx*ny)
	for j := 0; j < ny; j++ {
		row := j
		if dy < 0 { // North-up files start with the northernmost row.
			row = ny - 1 - j
		}
		for i := 0; i < nx; i++ {
			col := i
			if dx < 0 {
				col = nx - 1 - i
			}
			classes[row*nx+col] = legend.Class(data[j*nx+i])
		}
	}
	dx, dy = math.Abs(dx), math.Abs(dy)
	x0 := math.Min(xs[0], xs[nx-1]) - dx/2
	y0 := math.Min(ys[0], ys[ny-1]) - dy/2
	r, err := NewRaster(nx, ny, dx, dy, x0, y0, classes)
	if err != nil {
		return nil, fmt.Errorf("zonal: COARDS file %s: %w", file, err)
	}
	if p, ok := nc.Header.GetAttribute("", "proj4").(string); ok && p != "" {
		r.SR, err = proj.Parse(p)
		if err != nil {
			return nil, fmt.Errorf("zonal: COARDS file %s: parsing proj4 attribute: %w", file, err)
		}
	}
	return r, nil
}

// gridSpacing returns the spacing of evenly spaced grid points. The
// result is negative for descending points.
func gridSpacing(points []float64) (float64, error) {
	d := (points[len(points)-1] - points[0]) / float64(len(points)-1)
	if d == 0 || math.IsNaN(d) {
		return 0, fmt.Errorf("invalid grid spacing")
	}
	for i := 1; i < len(points); i++ {
		if math.Abs(points[i]-points[i-1]-d) > math.Abs(d)*1.e-6 {
			return 0, fmt.Errorf("grid points are not evenly spaced")
		}
	}
	return d, nil
}

// readCOARDSVar reads a numeric variable from a COARDS file, converting
// values equal to its _FillValue to NaN.
func readCOARDSVar(nc *cdf.File, v string) ([]float64, error) {
	lengths := nc.Header.Lengths(v)
	if lengths == nil {
		return nil, fmt.Errorf("missing variable %s", v)
	}
	r := nc.Reader(v, nil, nil)
	dataI := r.Zero(-1)
	if _, err := r.Read(dataI); err != nil {
		return nil, err
	}
	data, err := toFloats(dataI)
	if err != nil {
		return nil, err
	}
	if fill := nc.Header.GetAttribute(v, "_FillValue"); fill != nil {
		f, err := toFloats(fill)
		if err != nil || len(f) == 0 {
			return nil, fmt.Errorf("invalid type for COARDS _FillValue: %T", fill)
		}
		for i, d := range data {
			if d == f[0] {
				data[i] = math.NaN()
			}
		}
	}
	return data, nil
}

func toFloats(dataI interface{}) ([]float64, error) {
	var data []float64
	switch d := dataI.(type) {
	case []float64:
		data = d
	case []float32:
		data = make([]float64, len(d))
		for i, v := range d {
			data[i] = float64(v)
		}
	case []int32:
		data = make([]float64, len(d))
		for i, v := range d {
			data[i] = float64(v)
		}
	case []int16:
		data = make([]float64, len(d))
		for i, v := range d {
			data[i] = float64(v)
		}
	case []uint8:
		data = make([]float64, len(d))
		for i, v := range d {
			data[i] = float64(v)
		}
	default:
		return nil, fmt.Errorf("unsupported data type %T", dataI)
	}
	return data, nil
}
