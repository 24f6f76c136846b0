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

package dasymaputil

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/ctessum/geom/proj"
	"github.com/lnashier/viper"
	"github.com/spatialmodel/dasymap/interp"
	"github.com/spatialmodel/dasymap/weights"
	"github.com/spatialmodel/dasymap/zonal"
	"github.com/spf13/cast"
)

// Config holds the settings shared by the processing stages.
type Config struct {
	// Qualifying is the set of land-cover classes counted for method F1.
	Qualifying zonal.Classes

	// PixelRatio is the number of fine pixels per coarse cell.
	PixelRatio float64

	Reconcile weights.ReconcileConfig

	RasterVariable string

	LegendValueColumn, LegendCodeColumn string

	CoarseIDColumn, CoarsePopColumn string

	LandCoverIDColumn, LandCoverClassColumn string

	SourceIDColumn, SourceValueColumn string

	// TargetTruthColumn is empty when no reference values are available.
	TargetIDColumn, TargetTruthColumn string

	// AreaProj is the equal-area projection used to calculate areas.
	// Areas are calculated in the native coordinates of the data when it
	// is empty.
	AreaProj string

	// XLSX is an optional spreadsheet output path for the weight table.
	XLSX string
}

// ReadConfig unmarshals and validates a viper configuration.
func ReadConfig(cfg *viper.Viper) (*Config, error) {
	qSpecs, err := cast.ToStringSliceE(cfg.Get("Weights.Qualifying"))
	if err != nil {
		return nil, fmt.Errorf("Weights.Qualifying: %w", err)
	}
	qualifying, err := zonal.ParseClasses(splitList(qSpecs))
	if err != nil {
		return nil, fmt.Errorf("Weights.Qualifying: %w", err)
	}

	floatVars := []string{"Weights.PixelRatio", "Weights.Threshold", "Weights.ZeroEpsilon"}
	floatVals := make([]float64, len(floatVars))
	for i, name := range floatVars {
		floatVals[i], err = cast.ToFloat64E(cfg.Get(name))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if math.IsNaN(floatVals[i]) || math.IsInf(floatVals[i], 0) {
			return nil, fmt.Errorf("%s=%g but should be finite", name, floatVals[i])
		}
	}

	c := &Config{
		Qualifying: qualifying,
		PixelRatio: floatVals[0],
		Reconcile: weights.ReconcileConfig{
			Threshold:   floatVals[1],
			ZeroEpsilon: floatVals[2],
		},
		RasterVariable:       os.ExpandEnv(cfg.GetString("Raster.Variable")),
		LegendValueColumn:    os.ExpandEnv(cfg.GetString("Legend.ValueColumn")),
		LegendCodeColumn:     os.ExpandEnv(cfg.GetString("Legend.CodeColumn")),
		CoarseIDColumn:       os.ExpandEnv(cfg.GetString("Coarse.IDColumn")),
		CoarsePopColumn:      os.ExpandEnv(cfg.GetString("Coarse.PopColumn")),
		LandCoverIDColumn:    os.ExpandEnv(cfg.GetString("LandCover.IDColumn")),
		LandCoverClassColumn: os.ExpandEnv(cfg.GetString("LandCover.ClassColumn")),
		SourceIDColumn:       os.ExpandEnv(cfg.GetString("Source.IDColumn")),
		SourceValueColumn:    os.ExpandEnv(cfg.GetString("Source.ValueColumn")),
		TargetIDColumn:       os.ExpandEnv(cfg.GetString("Target.IDColumn")),
		TargetTruthColumn:    os.ExpandEnv(cfg.GetString("Target.TruthColumn")),
		AreaProj:             os.ExpandEnv(cfg.GetString("AreaProj")),
		XLSX:                 os.ExpandEnv(cfg.GetString("XLSX")),
	}

	if !(c.PixelRatio > 0) {
		return nil, fmt.Errorf("Weights.PixelRatio=%g but should be >0", c.PixelRatio)
	}
	if c.Reconcile.ZeroEpsilon < 0 {
		return nil, fmt.Errorf("Weights.ZeroEpsilon=%g but should be >=0", c.Reconcile.ZeroEpsilon)
	}
	required := []string{c.LegendValueColumn, c.LegendCodeColumn, c.CoarsePopColumn,
		c.LandCoverClassColumn, c.SourceValueColumn}
	names := []string{"Legend.ValueColumn", "Legend.CodeColumn", "Coarse.PopColumn",
		"LandCover.ClassColumn", "Source.ValueColumn"}
	for i, v := range required {
		if v == "" {
			return nil, fmt.Errorf("%s is not specified", names[i])
		}
	}
	return c, nil
}

// splitList splits comma-separated items so that lists can also be
// given as a single environment variable.
func splitList(s []string) []string {
	var o []string
	for _, v := range s {
		for _, vv := range strings.Split(v, ",") {
			if vv = strings.TrimSpace(vv); vv != "" {
				o = append(o, vv)
			}
		}
	}
	return o
}

// areaFunc returns the function used to calculate target areas for
// polygons with spatial reference sr.
func (c *Config) areaFunc(sr *proj.SR) (interp.AreaFunc, bool, error) {
	if c.AreaProj == "" || sr == nil {
		return interp.PlanarArea(1000), false, nil
	}
	areaSR, err := proj.Parse(c.AreaProj)
	if err != nil {
		return nil, false, fmt.Errorf("parsing AreaProj: %w", err)
	}
	f, err := interp.ProjectedArea(sr, areaSR)
	if err != nil {
		return nil, false, err
	}
	return f, true, nil
}
