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

// Package zonal computes zonal statistics of a classified land-cover
// raster over the cells of a coarse population grid.
package zonal

import (
	"fmt"
	"strconv"
	"strings"
)

// ClassRange is an inclusive range of land-cover class codes.
type ClassRange struct {
	Min, Max int
}

// Classes is a set of land-cover class codes given as ranges.
type Classes []ClassRange

// Contains returns whether code falls within any of the ranges in c.
func (c Classes) Contains(code int) bool {
	if code == NoData {
		return false
	}
	for _, r := range c {
		if code >= r.Min && code <= r.Max {
			return true
		}
	}
	return false
}

func (c Classes) String() string {
	s := make([]string, len(c))
	for i, r := range c {
		if r.Min == r.Max {
			s[i] = strconv.Itoa(r.Min)
		} else {
			s[i] = fmt.Sprintf("%d-%d", r.Min, r.Max)
		}
	}
	return strings.Join(s, ",")
}

// ParseClasses parses class code specifications such as "111-142" or
// "211" into a set of classes.
func ParseClasses(ranges []string) (Classes, error) {
	if len(ranges) == 0 {
		return nil, fmt.Errorf("zonal: no class codes specified")
	}
	var o Classes
	for _, r := range ranges {
		r = strings.TrimSpace(r)
		if r == "" {
			return nil, fmt.Errorf("zonal: empty class range")
		}
		lo, hi := r, r
		if i := strings.Index(r[1:], "-"); i >= 0 {
			lo, hi = r[:i+1], r[i+2:]
		}
		min, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, fmt.Errorf("zonal: parsing class range %q: %w", r, err)
		}
		max, err := strconv.Atoi(strings.TrimSpace(hi))
		if err != nil {
			return nil, fmt.Errorf("zonal: parsing class range %q: %w", r, err)
		}
		if min < 0 || max < min {
			return nil, fmt.Errorf("zonal: invalid class range %q", r)
		}
		o = append(o, ClassRange{Min: min, Max: max})
	}
	return o, nil
}
