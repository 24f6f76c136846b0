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
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/ctessum/geom"
	goshp "github.com/jonas-p/go-shp"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/dasymap/accuracy"
	"github.com/spatialmodel/dasymap/internal/stage"
	"github.com/spatialmodel/dasymap/interp"
	"github.com/spatialmodel/dasymap/vector"
)

// interpolation holds the results of an interpolation run.
type interpolation struct {
	targets []*interp.Target
	results []*interp.Result
	records []*accuracy.Record // nil if there are no reference values
	prj     string
}

// Interpolate apportions the values of the source polygons onto the
// target polygons and writes the estimates, areas and densities to outCSV
// and outShp. If a reference column is configured for the targets, the
// error metrics are written too.
func Interpolate(ctx context.Context, log logrus.FieldLogger, c *Config, sourceFile, targetFile, outCSV, outShp string) error {
	log = log.WithField("stage", "interpolate")
	in, err := runInterpolation(ctx, log, c, sourceFile, targetFile)
	if err != nil {
		return err
	}
	if err := createFile(outCSV, in.writeCSV); err != nil {
		return err
	}
	if err := in.writeShp(outShp); err != nil {
		os.Remove(outCSV)
		return err
	}
	log.WithFields(logrus.Fields{"csv": outCSV, "shp": outShp, "targets": len(in.results)}).Info("wrote estimates")
	return nil
}

// Evaluate apportions the values of the source polygons onto the target
// polygons and writes the error metrics of the estimates relative to the
// reference column of the targets to outCSV.
func Evaluate(ctx context.Context, log logrus.FieldLogger, c *Config, sourceFile, targetFile, outCSV string) error {
	log = log.WithField("stage", "evaluate")
	if c.TargetTruthColumn == "" {
		return fmt.Errorf("Target.TruthColumn is not specified")
	}
	in, err := runInterpolation(ctx, log, c, sourceFile, targetFile)
	if err != nil {
		return err
	}
	if err := createFile(outCSV, in.writeErrorCSV); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"csv": outCSV, "targets": len(in.records)}).Info("wrote error metrics")
	return nil
}

func runInterpolation(ctx context.Context, log logrus.FieldLogger, c *Config, sourceFile, targetFile string) (*interpolation, error) {
	in := new(interpolation)
	err := withStager(log, func(s *stage.Stager) error {
		files, err := fetchAll(ctx, s, sourceFile, targetFile)
		if err != nil {
			return err
		}
		src, err := vector.Read(files[0], c.SourceIDColumn, c.SourceValueColumn)
		if err != nil {
			return fmt.Errorf("reading sources %s: %w", sourceFile, err)
		}
		sources := make([]*interp.Source, len(src.Features))
		for i, f := range src.Features {
			id := f.ID(c.SourceIDColumn, i)
			v, err := f.Float(c.SourceValueColumn)
			if err != nil {
				return fmt.Errorf("reading sources %s: polygon %s: %w", sourceFile, id, err)
			}
			if !v.Valid {
				return fmt.Errorf("reading sources %s: polygon %s has no value", sourceFile, id)
			}
			sources[i] = &interp.Source{Polygonal: f.Polygonal, ID: id, Value: v.Float64}
		}
		log.WithFields(logrus.Fields{"file": sourceFile, "sources": len(sources)}).Info("read sources")

		tgt, err := vector.Read(files[1], c.TargetIDColumn, c.TargetTruthColumn)
		if err != nil {
			return fmt.Errorf("reading targets %s: %w", targetFile, err)
		}
		if err := tgt.Transform(src.SR); err != nil {
			return fmt.Errorf("reading targets %s: %w", targetFile, err)
		}
		in.prj = src.Prj
		if src.Prj == "" {
			in.prj = tgt.Prj
		}
		in.targets = make([]*interp.Target, len(tgt.Features))
		for i, f := range tgt.Features {
			t := &interp.Target{Polygonal: f.Polygonal, ID: f.ID(c.TargetIDColumn, i)}
			if c.TargetTruthColumn != "" {
				if t.Truth, err = f.Float(c.TargetTruthColumn); err != nil {
					return fmt.Errorf("reading targets %s: polygon %s: %w", targetFile, t.ID, err)
				}
			}
			in.targets[i] = t
		}
		log.WithFields(logrus.Fields{"file": targetFile, "targets": len(in.targets)}).Info("read targets")

		area, projected, err := c.areaFunc(src.SR)
		if err != nil {
			return err
		}
		if !projected {
			log.Warn("calculating areas in native coordinates, assuming meters")
		}
		ip, err := interp.New(sources, interp.Area(area))
		if err != nil {
			return err
		}
		in.results, err = ip.Interpolate(in.targets)
		var degraded *interp.DegradedError
		if errors.As(err, &degraded) {
			log.WithError(degraded.Err).Warn("interpolation failed; writing missing values")
		} else if err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if c.TargetTruthColumn != "" {
		truth := make(map[string]sql.NullFloat64, len(in.targets))
		for _, t := range in.targets {
			truth[t.ID] = t.Truth
		}
		in.records = accuracy.Compare(in.results, truth)
		logSummary(log, accuracy.Summarize(in.records))
	}
	return in, nil
}

func logSummary(log logrus.FieldLogger, s accuracy.Summary) {
	log.WithFields(logrus.Fields{
		"n":          s.N,
		"mean_error": s.MeanError,
		"mae":        s.MeanAbsError,
		"rmse":       s.RMSE,
		"n_percent":  s.NPercent,
		"mape":       s.MeanAbsPercentError,
		"median_ape": s.MedianAbsPercentError,
	}).Info("error summary")
}

var (
	estimateHeader = []string{"id", "value", "area_km2", "density"}
	errorHeader    = []string{"truth", "difference", "percent_difference", "abs_difference", "abs_percent_difference"}
)

func (in *interpolation) writeCSV(w io.Writer) error {
	header := estimateHeader
	if in.records != nil {
		header = append(append([]string{}, estimateHeader...), errorHeader...)
	}
	rows := make([][]string, len(in.results))
	for i, r := range in.results {
		rows[i] = []string{r.ID, formatNull(r.Value),
			strconv.FormatFloat(r.AreaKm2, 'f', -1, 64), formatNull(r.Density)}
		if in.records != nil {
			rows[i] = append(rows[i], errorRow(in.records[i])...)
		}
	}
	return writeCSV(w, header, rows)
}

func (in *interpolation) writeErrorCSV(w io.Writer) error {
	header := append([]string{"id", "estimate"}, errorHeader...)
	rows := make([][]string, len(in.records))
	for i, r := range in.records {
		rows[i] = append([]string{r.ID, formatNull(r.Estimate)}, errorRow(r)...)
	}
	return writeCSV(w, header, rows)
}

func errorRow(r *accuracy.Record) []string {
	return []string{formatNull(r.Truth), formatNull(r.Difference), formatNull(r.PercentDifference),
		formatNull(r.AbsDifference), formatNull(r.AbsPercentDifference)}
}

func (in *interpolation) writeShp(file string) error {
	fields := []goshp.Field{
		vector.IDField("ID"),
		vector.FloatField("value"),
		vector.FloatField("area_km2"),
		vector.FloatField("density"),
	}
	if in.records != nil {
		fields = append(fields,
			vector.FloatField("truth"),
			vector.FloatField("diff"),
			vector.FloatField("pct_diff"),
			vector.FloatField("abs_diff"),
			vector.FloatField("abs_pct"),
		)
	}
	var polygons []geom.Polygonal
	var rows [][]interface{}
	for i, r := range in.results {
		if in.targets[i].Polygonal == nil {
			continue
		}
		polygons = append(polygons, in.targets[i].Polygonal)
		row := []interface{}{r.ID, vector.Null(r.Value), r.AreaKm2, vector.Null(r.Density)}
		if in.records != nil {
			e := in.records[i]
			row = append(row, vector.Null(e.Truth), vector.Null(e.Difference), vector.Null(e.PercentDifference),
				vector.Null(e.AbsDifference), vector.Null(e.AbsPercentDifference))
		}
		rows = append(rows, row)
	}
	return vector.Write(file, in.prj, fields, polygons, rows)
}
