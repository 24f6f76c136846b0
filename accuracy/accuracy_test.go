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

package accuracy

import (
	"database/sql"
	"math"
	"testing"

	"github.com/spatialmodel/dasymap/interp"
	"gonum.org/v1/gonum/floats"
)

func v(f float64) sql.NullFloat64 { return sql.NullFloat64{Float64: f, Valid: true} }

func TestMetrics(t *testing.T) {
	r := Metrics(v(120), v(100))
	want := []sql.NullFloat64{v(20), v(20), v(20), v(20)}
	got := []sql.NullFloat64{r.Difference, r.PercentDifference, r.AbsDifference, r.AbsPercentDifference}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("metric %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	r = Metrics(v(50), v(200))
	if r.Difference != v(-150) || r.PercentDifference != v(-75) ||
		r.AbsDifference != v(150) || r.AbsPercentDifference != v(75) {
		t.Errorf("metrics = %+v", r)
	}
}

func TestMetricsZeroTruth(t *testing.T) {
	r := Metrics(v(5), v(0))
	if r.Difference != v(5) || r.AbsDifference != v(5) {
		t.Errorf("difference = %+v, %+v", r.Difference, r.AbsDifference)
	}
	if r.PercentDifference.Valid || r.AbsPercentDifference.Valid {
		t.Errorf("percent difference should be missing: %+v, %+v", r.PercentDifference, r.AbsPercentDifference)
	}
	if math.IsInf(r.PercentDifference.Float64, 0) || math.IsNaN(r.PercentDifference.Float64) {
		t.Error("missing percent difference holds a non-finite value")
	}
}

func TestMetricsMissing(t *testing.T) {
	for _, r := range []*Record{
		Metrics(sql.NullFloat64{}, v(3)),
		Metrics(v(3), sql.NullFloat64{}),
		Metrics(v(math.NaN()), v(3)),
	} {
		if r.Difference.Valid || r.PercentDifference.Valid || r.AbsDifference.Valid || r.AbsPercentDifference.Valid {
			t.Errorf("metrics should be missing: %+v", r)
		}
	}
}

func TestCompareAndSummarize(t *testing.T) {
	estimates := []*interp.Result{
		{ID: "a", Value: v(110)},
		{ID: "b", Value: v(80)},
		{ID: "c", Value: v(3)},
		{ID: "d", Value: sql.NullFloat64{}},
		{ID: "e", Value: v(7)},
	}
	truth := map[string]sql.NullFloat64{
		"a": v(100),
		"b": v(100),
		"c": v(0),
		"d": v(10),
	}
	r := Compare(estimates, truth)
	if len(r) != len(estimates) {
		t.Fatalf("got %d records", len(r))
	}
	for i, rr := range r {
		if rr.ID != estimates[i].ID {
			t.Errorf("record %d: ID = %q, want %q", i, rr.ID, estimates[i].ID)
		}
	}
	if r[4].Truth.Valid || r[4].Difference.Valid {
		t.Errorf("record without truth = %+v", r[4])
	}

	s := Summarize(r)
	if s.N != 3 || s.NPercent != 2 {
		t.Fatalf("N = %d, NPercent = %d", s.N, s.NPercent)
	}
	want := []float64{(10 - 20 + 3) / 3., (10 + 20 + 3) / 3., math.Sqrt((100 + 400 + 9) / 3.), 15, 15}
	got := []float64{s.MeanError, s.MeanAbsError, s.RMSE, s.MeanAbsPercentError, s.MedianAbsPercentError}
	if !floats.EqualApprox(got, want, 1e-12) {
		t.Errorf("summary = %v, want %v", got, want)
	}

	empty := Summarize(nil)
	if empty.N != 0 || !math.IsNaN(empty.RMSE) {
		t.Errorf("empty summary = %+v", empty)
	}
}

func TestMedian(t *testing.T) {
	for _, test := range []struct {
		x    []float64
		want float64
	}{
		{x: []float64{4}, want: 4},
		{x: []float64{1, 2, 30}, want: 2},
		{x: []float64{1, 2, 3, 10}, want: 2.5},
	} {
		if got := median(test.x); got != test.want {
			t.Errorf("median(%v) = %g, want %g", test.x, got, test.want)
		}
	}

	// An even number of percentage errors.
	truth := map[string]sql.NullFloat64{"a": v(100), "b": v(100), "c": v(100), "d": v(100)}
	estimates := []*interp.Result{
		{ID: "a", Value: v(110)},
		{ID: "b", Value: v(80)},
		{ID: "c", Value: v(130)},
		{ID: "d", Value: v(60)},
	}
	if s := Summarize(Compare(estimates, truth)); s.MedianAbsPercentError != 25 {
		t.Errorf("median absolute percent error = %g, want 25", s.MedianAbsPercentError)
	}
}
