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
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ctessum/geom/proj"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/dasymap/internal/stage"
	"github.com/spatialmodel/dasymap/vector"
	"github.com/spatialmodel/dasymap/weights"
	"github.com/spatialmodel/dasymap/zonal"
)

// Weights estimates the population weight of each land-cover class from
// a classified raster, a coarse population grid and a legend that maps
// raster values to class codes. The legend is a dBASE table if its name
// ends in .dbf and CSV otherwise. It writes the weight table to outCSV and
// outGob, and to c.XLSX if it is set.
func Weights(ctx context.Context, log logrus.FieldLogger, c *Config, rasterFile, coarseFile, legendFile, outCSV, outGob string) error {
	log = log.WithField("stage", "weights")
	var table *weights.Table
	err := withStager(log, func(s *stage.Stager) error {
		files, err := fetchAll(ctx, s, rasterFile, coarseFile, legendFile)
		if err != nil {
			return err
		}
		legend, err := readLegend(files[2], legendFile, c)
		if err != nil {
			return err
		}
		r, err := zonal.ReadCOARDS(files[0], c.RasterVariable, legend)
		if err != nil {
			return err
		}
		log.WithFields(logrus.Fields{
			"file": rasterFile, "nx": r.Nx, "ny": r.Ny, "dx": r.Dx, "dy": r.Dy,
		}).Info("read raster")
		if r.SR == nil {
			log.Warn("raster has no spatial reference; assuming it matches the coarse grid")
		}

		cells, err := readCoarse(files[1], c, r.SR)
		if err != nil {
			return fmt.Errorf("reading coarse grid %s: %w", coarseFile, err)
		}
		log.WithFields(logrus.Fields{"file": coarseFile, "cells": len(cells)}).Info("read coarse grid")

		zones, err := zonal.Aggregate(r, cells, zonal.AggregateConfig{Qualifying: c.Qualifying})
		if err != nil {
			return err
		}
		logZoneStatus(log, zones)

		f1, err := weights.EstimateF1(zones)
		if err != nil {
			return err
		}
		f2, err := weights.EstimateF2(zones, c.PixelRatio)
		if err != nil {
			return err
		}
		log.WithFields(logrus.Fields{
			"f1_cells": f1.Cells, "f1_classes": len(f1.Classes),
			"f2_cells": f2.Cells, "f2_classes": len(f2.Classes),
		}).Info("estimated class populations")

		table, err = weights.Reconcile(f1, f2, c.Reconcile)
		return err
	})
	if err != nil {
		return err
	}
	log.WithField("classes", len(table.Records)).Info("reconciled weights")

	outputs := []output{{outCSV, table.WriteCSV}, {outGob, table.Save}}
	if c.XLSX != "" {
		outputs = append(outputs, output{c.XLSX, table.WriteXLSX})
	}
	if err := createFiles(outputs...); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"csv": outCSV, "gob": outGob}).Info("wrote weight table")
	return nil
}

// readLegend reads the legend in file, a dBASE table if name ends in
// .dbf and CSV otherwise.
func readLegend(file, name string, c *Config) (zonal.Legend, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("opening legend: %w", err)
	}
	defer f.Close()
	if strings.EqualFold(filepath.Ext(name), ".dbf") {
		return zonal.ReadLegendDBF(f, c.LegendValueColumn, c.LegendCodeColumn)
	}
	return zonal.ReadLegend(f, c.LegendValueColumn, c.LegendCodeColumn)
}

// readCoarse reads the coarse population grid and reprojects it to sr.
func readCoarse(file string, c *Config, sr *proj.SR) ([]*zonal.CoarseCell, error) {
	l, err := vector.Read(file, c.CoarseIDColumn, c.CoarsePopColumn)
	if err != nil {
		return nil, err
	}
	if err := l.Transform(sr); err != nil {
		return nil, err
	}
	cells := make([]*zonal.CoarseCell, len(l.Features))
	for i, f := range l.Features {
		id := f.ID(c.CoarseIDColumn, i)
		pop, err := f.Float(c.CoarsePopColumn)
		if err != nil {
			return nil, fmt.Errorf("cell %s: %w", id, err)
		}
		if !pop.Valid {
			return nil, fmt.Errorf("cell %s has no population", id)
		}
		cells[i] = &zonal.CoarseCell{Polygonal: f.Polygonal, ID: id, Population: pop.Float64}
	}
	if err := zonal.ValidateCells(cells); err != nil {
		return nil, err
	}
	return cells, nil
}

func logZoneStatus(log logrus.FieldLogger, zones []*zonal.ZoneStats) {
	counts := make(map[zonal.ZoneStatus]int)
	for _, z := range zones {
		counts[z.Status]++
	}
	fields := make(logrus.Fields)
	for s, n := range counts {
		fields[s.String()] = n
	}
	log.WithFields(fields).Info("aggregated raster")
}
