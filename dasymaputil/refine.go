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

	"github.com/ctessum/geom"
	goshp "github.com/jonas-p/go-shp"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/dasymap/dasymetric"
	"github.com/spatialmodel/dasymap/internal/stage"
	"github.com/spatialmodel/dasymap/vector"
	"github.com/spatialmodel/dasymap/weights"
)

// Refine distributes the population of the coarse grid onto the
// land-cover segments using the weight table in weightsGob, and writes
// the populated segments to outSegments in the spatial reference of the
// land-cover data.
func Refine(ctx context.Context, log logrus.FieldLogger, c *Config, landCoverFile, coarseFile, weightsGob, outSegments string) error {
	log = log.WithField("stage", "refine")
	var (
		ref *dasymetric.Refinement
		prj string
	)
	err := withStager(log, func(s *stage.Stager) error {
		files, err := fetchAll(ctx, s, landCoverFile, coarseFile, weightsGob)
		if err != nil {
			return err
		}
		table, err := loadTable(files[2])
		if err != nil {
			return err
		}
		log.WithField("classes", len(table.Records)).Info("read weight table")

		lc, err := vector.Read(files[0], c.LandCoverIDColumn, c.LandCoverClassColumn)
		if err != nil {
			return fmt.Errorf("reading land cover %s: %w", landCoverFile, err)
		}
		prj = lc.Prj
		segments := make([]*dasymetric.Segment, len(lc.Features))
		for i, f := range lc.Features {
			id := f.ID(c.LandCoverIDColumn, i)
			class, err := f.Int(c.LandCoverClassColumn)
			if err != nil {
				return fmt.Errorf("reading land cover %s: segment %s: %w", landCoverFile, id, err)
			}
			segments[i] = &dasymetric.Segment{Polygonal: f.Polygonal, ID: id, Class: class}
		}
		log.WithFields(logrus.Fields{"file": landCoverFile, "segments": len(segments)}).Info("read land cover")

		cells, err := readCoarse(files[1], c, lc.SR)
		if err != nil {
			return fmt.Errorf("reading coarse grid %s: %w", coarseFile, err)
		}
		log.WithFields(logrus.Fields{"file": coarseFile, "cells": len(cells)}).Info("read coarse grid")

		ref, err = dasymetric.Refine(segments, cells, table.Weights())
		return err
	})
	if err != nil {
		return err
	}
	if len(ref.Unassigned) > 0 {
		log.WithFields(logrus.Fields{
			"cells":      len(ref.Unassigned),
			"population": ref.UnassignedPopulation(),
		}).Warn("population of cells without weighted land cover was not assigned")
	}

	fields := []goshp.Field{
		vector.IDField(shpID),
		vector.IntField(shpClass),
		vector.FloatField(shpPopulation),
	}
	polygons := make([]geom.Polygonal, len(ref.Segments))
	rows := make([][]interface{}, len(ref.Segments))
	for i, s := range ref.Segments {
		polygons[i] = s.Polygonal
		rows[i] = []interface{}{s.ID, s.Class, s.Population}
	}
	if err := vector.Write(outSegments, prj, fields, polygons, rows); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"file": outSegments, "segments": len(rows)}).Info("wrote refined segments")
	return nil
}

// Shapefile field names of the refined segments.
const (
	shpID         = "ID"
	shpClass      = "class"
	shpPopulation = "population"
)

func loadTable(file string) (*weights.Table, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("opening weight table: %w", err)
	}
	defer f.Close()
	return weights.Load(f)
}
