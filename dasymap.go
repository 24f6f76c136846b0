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

/*
Package dasymap redistributes population counts from a coarse population
grid onto land-cover classes of a fine classified raster and reapportions
the refined estimates onto arbitrary target polygons.

The pipeline is split into stages, each of which is a subcommand of
cmd/dasymap:

	weights      derive per-class population weights from a classified
	             raster and a coarse population grid (package zonal and
	             package weights)
	refine       tag land-cover segments with weighted shares of the
	             coarse population (package dasymetric)
	interpolate  apportion refined estimates onto target polygons by
	             areal overlap (package interp)
	evaluate     compare interpolated estimates to ground truth
	             (package accuracy)
*/
package dasymap

// Version gives the version number.
const Version = "1.0.0"
