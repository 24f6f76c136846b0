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

package weights

import (
	"database/sql"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Record is one row of the weight table.
type Record struct {
	Class int

	// Population is the mean population per pixel over the methods
	// that observed the class.
	Population float64

	// PercentF1 and PercentF2 are the percentages estimated by each
	// method. They are invalid when the method gave no estimate.
	PercentF1, PercentF2 sql.NullFloat64

	// Percent is the reconciled percentage.
	Percent float64
}

// Table is a weight table sorted by class.
type Table struct {
	Records []*Record
}

// Weights returns the population per pixel of each class, the relative
// density used to split cell populations by area. Percent is not a
// density: it already grows with the area a class covers.
func (t *Table) Weights() map[int]float64 {
	o := make(map[int]float64, len(t.Records))
	for _, r := range t.Records {
		o[r.Class] = r.Population
	}
	return o
}

// ReconcileConfig holds the parameters of Reconcile.
type ReconcileConfig struct {
	// ZeroEpsilon replaces F2 percentages that are exactly zero.
	ZeroEpsilon float64

	// Threshold is the smallest reconciled percentage that is kept.
	Threshold float64
}

// DefaultReconcileConfig returns the default reconciliation parameters.
func DefaultReconcileConfig() ReconcileConfig {
	return ReconcileConfig{ZeroEpsilon: 0.1, Threshold: 1.0}
}

// Reconcile joins the F1 and F2 estimates by class. The reconciled
// percentage of a class is the mean of the valid method percentages;
// classes without any valid percentage or with a reconciled percentage
// below cfg.Threshold are dropped.
func Reconcile(f1, f2 *Estimate, cfg ReconcileConfig) (*Table, error) {
	if f1 == nil || f2 == nil {
		return nil, fmt.Errorf("weights: reconcile: missing estimate")
	}
	if f1.Method != F1 || f2.Method != F2 {
		return nil, fmt.Errorf("weights: reconcile: got methods %s and %s, want %s and %s", f1.Method, f2.Method, F1, F2)
	}
	if cfg.ZeroEpsilon < 0 || math.IsNaN(cfg.ZeroEpsilon) || math.IsNaN(cfg.Threshold) {
		return nil, fmt.Errorf("weights: reconcile: invalid configuration %+v", cfg)
	}
	classes := make(map[int]struct{})
	for _, e := range f1.Classes {
		classes[e.Class] = struct{}{}
	}
	for _, e := range f2.Classes {
		classes[e.Class] = struct{}{}
	}
	t := new(Table)
	for c := range classes {
		r := &Record{Class: c}
		var pct, means []float64
		if e := f1.Class(c); e != nil {
			r.PercentF1 = valid(e.Percent)
			means = append(means, e.Mean)
		}
		if e := f2.Class(c); e != nil {
			r.PercentF2 = valid(e.Percent)
			if r.PercentF2.Valid && r.PercentF2.Float64 == 0 {
				r.PercentF2.Float64 = cfg.ZeroEpsilon
			}
			means = append(means, e.Mean)
		}
		for _, p := range []sql.NullFloat64{r.PercentF1, r.PercentF2} {
			if p.Valid {
				pct = append(pct, p.Float64)
			}
		}
		if len(pct) == 0 {
			continue
		}
		r.Percent = stat.Mean(pct, nil)
		if r.Percent < cfg.Threshold {
			continue
		}
		r.Population = stat.Mean(means, nil)
		t.Records = append(t.Records, r)
	}
	sort.Slice(t.Records, func(i, j int) bool { return t.Records[i].Class < t.Records[j].Class })
	return t, nil
}

// valid returns p, marking NaN values as missing.
func valid(p sql.NullFloat64) sql.NullFloat64 {
	if !p.Valid || math.IsNaN(p.Float64) {
		return sql.NullFloat64{}
	}
	return p
}
