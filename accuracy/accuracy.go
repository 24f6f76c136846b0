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

// Package accuracy compares interpolated estimates with reference values.
package accuracy

import (
	"database/sql"
	"math"
	"sort"

	"github.com/spatialmodel/dasymap/interp"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Record holds the error metrics of one estimate.
type Record struct {
	ID              string
	Estimate, Truth sql.NullFloat64

	// Difference is Estimate - Truth.
	Difference sql.NullFloat64

	// PercentDifference is Difference relative to Truth, in percent.
	// It is missing when Truth is zero.
	PercentDifference sql.NullFloat64

	AbsDifference        sql.NullFloat64
	AbsPercentDifference sql.NullFloat64
}

// Metrics calculates the error metrics of estimate relative to truth.
// All metrics are missing when either input is missing.
func Metrics(estimate, truth sql.NullFloat64) *Record {
	r := &Record{Estimate: estimate, Truth: truth}
	if !estimate.Valid || !truth.Valid || math.IsNaN(estimate.Float64) || math.IsNaN(truth.Float64) {
		return r
	}
	d := estimate.Float64 - truth.Float64
	r.Difference = sql.NullFloat64{Float64: d, Valid: true}
	r.AbsDifference = sql.NullFloat64{Float64: math.Abs(d), Valid: true}
	if truth.Float64 != 0 {
		p := d / truth.Float64 * 100
		r.PercentDifference = sql.NullFloat64{Float64: p, Valid: true}
		r.AbsPercentDifference = sql.NullFloat64{Float64: math.Abs(p), Valid: true}
	}
	return r
}

// Compare calculates the error metrics of each estimate against the
// reference value with the same ID. Estimates without a reference
// value get missing metrics. The output is in the same order as
// estimates.
func Compare(estimates []*interp.Result, truth map[string]sql.NullFloat64) []*Record {
	o := make([]*Record, len(estimates))
	for i, e := range estimates {
		o[i] = Metrics(e.Value, truth[e.ID])
		o[i].ID = e.ID
	}
	return o
}

// Summary holds aggregate error statistics over a set of records.
// Statistics over empty sets are NaN.
type Summary struct {
	// N is the number of records with a valid Difference.
	N int

	MeanError, MeanAbsError, RMSE float64

	// NPercent is the number of records with a valid
	// PercentDifference.
	NPercent int

	MeanAbsPercentError, MedianAbsPercentError float64
}

// Summarize calculates summary statistics of records.
func Summarize(records []*Record) Summary {
	var d, ad, sq, ap []float64
	for _, r := range records {
		if r.Difference.Valid {
			d = append(d, r.Difference.Float64)
			ad = append(ad, r.AbsDifference.Float64)
			sq = append(sq, r.Difference.Float64*r.Difference.Float64)
		}
		if r.AbsPercentDifference.Valid {
			ap = append(ap, r.AbsPercentDifference.Float64)
		}
	}
	s := Summary{
		N:                     len(d),
		NPercent:              len(ap),
		MeanError:             math.NaN(),
		MeanAbsError:          math.NaN(),
		RMSE:                  math.NaN(),
		MeanAbsPercentError:   math.NaN(),
		MedianAbsPercentError: math.NaN(),
	}
	if len(d) > 0 {
		n := float64(len(d))
		s.MeanError = floats.Sum(d) / n
		s.MeanAbsError = floats.Sum(ad) / n
		s.RMSE = math.Sqrt(floats.Sum(sq) / n)
	}
	if len(ap) > 0 {
		sort.Float64s(ap)
		s.MeanAbsPercentError = stat.Mean(ap, nil)
		s.MedianAbsPercentError = median(ap)
	}
	return s
}

// median returns the median of the sorted values x. For an even number
// of values it is the mean of the two middle ones, which
// stat.Quantile(0.5, stat.Empirical, ...) does not give.
func median(x []float64) float64 {
	n := len(x)
	if n%2 == 1 {
		return x[n/2]
	}
	return (x[n/2-1] + x[n/2]) / 2
}
