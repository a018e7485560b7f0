/*
Copyright © 2024 the copernicusmarine toolbox authors.
This file is part of the copernicusmarine toolbox.

The copernicusmarine toolbox is free software: you can redistribute it
and/or modify it under the terms of the GNU General Public License as
published by the Free Software Foundation, either version 3 of the License,
or (at your option) any later version.

The copernicusmarine toolbox is distributed in the hope that it will be
useful, but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with the copernicusmarine toolbox.  If not, see <http://www.gnu.org/licenses/>.
*/

package subset

import (
	"fmt"
	"math"
	"sort"

	"github.com/copernicusmarine/toolbox"
	"github.com/sirupsen/logrus"
)

// interval is a requested range of coordinate values. Nil ends take
// the extreme values of the coordinate.
type interval struct {
	min, max *float64
}

func (iv interval) String() string {
	f := func(v *float64) string {
		if v == nil {
			return "*"
		}
		return fmt.Sprintf("%g", *v)
	}
	return fmt.Sprintf("[%s; %s]", f(iv.min), f(iv.max))
}

// selectIndices returns the indices of values selected by iv with the
// given method, in the order of values. values must be monotonic.
func selectIndices(name string, values []float64, iv interval, method toolbox.CoordinatesSelectionMethod, log logrus.FieldLogger) ([]int, error) {
	n := len(values)
	if n == 0 {
		return nil, nil
	}
	descending := n > 1 && values[0] > values[n-1]
	asc := values
	if descending {
		asc = reversed(values)
	}

	lo, hi := asc[0], asc[n-1]
	if iv.min != nil {
		lo = *iv.min
	}
	if iv.max != nil {
		hi = *iv.max
	}
	if lo < asc[0] || hi > asc[n-1] {
		if method == toolbox.StrictInside {
			return nil, fmt.Errorf("%w: some of your subset selection %s for the %s dimension "+
				"exceed the dataset coordinates [%g; %g]", ErrCoordinatesOutOfBounds, iv, name, asc[0], asc[n-1])
		}
		log.WithField("dimension", name).Warnf("some of your subset selection %s exceed the dataset "+
			"coordinates [%g; %g]", iv, asc[0], asc[n-1])
	}

	var i0, i1 int
	switch method {
	case toolbox.Nearest:
		i0, i1 = nearest(asc, lo), nearest(asc, hi)
	case toolbox.Outside:
		i0 = sort.Search(n, func(i int) bool { return asc[i] > lo }) - 1
		if i0 < 0 {
			i0 = 0
		}
		i1 = sort.Search(n, func(i int) bool { return asc[i] >= hi })
		if i1 >= n {
			i1 = n - 1
		}
	default:
		i0 = sort.Search(n, func(i int) bool { return asc[i] >= lo })
		i1 = sort.Search(n, func(i int) bool { return asc[i] > hi }) - 1
		if i0 > i1 {
			i := nearest(asc, (lo+hi)/2)
			log.WithField("dimension", name).Warnf("no %s coordinate lies within %s; "+
				"selecting the nearest value %g", name, iv, asc[i])
			i0, i1 = i, i
		}
	}
	o := make([]int, 0, i1-i0+1)
	for i := i0; i <= i1; i++ {
		if descending {
			o = append(o, n-1-i)
		} else {
			o = append(o, i)
		}
	}
	if descending {
		sort.Ints(o)
	}
	return o, nil
}

func reversed(v []float64) []float64 {
	o := make([]float64, len(v))
	for i, x := range v {
		o[len(v)-1-i] = x
	}
	return o
}

// nearest returns the index of the value of asc closest to x.
func nearest(asc []float64, x float64) int {
	i := sort.SearchFloat64s(asc, x)
	switch {
	case i == 0:
		return 0
	case i == len(asc):
		return len(asc) - 1
	case x-asc[i-1] <= asc[i]-x:
		return i - 1
	}
	return i
}

// longitudeSelection holds the selected longitude indices, and the
// output longitude values, shifted by 360 where the selection wraps.
type longitudeSelection struct {
	indices []int
	values  []float64
}

// selectLongitudes selects the longitudes within iv, wrapping across
// the antimeridian when the minimum exceeds the maximum.
func selectLongitudes(values []float64, iv interval, method toolbox.CoordinatesSelectionMethod, log logrus.FieldLogger) (*longitudeSelection, error) {
	n := len(values)
	if n == 0 || (iv.min == nil && iv.max == nil) {
		idx, err := selectIndices("longitude", values, iv, method, log)
		if err != nil {
			return nil, err
		}
		return longitudesAt(values, idx, nil), nil
	}
	// Bring the request into the frame of the dataset coordinates.
	frameMax := 180.
	if values[n-1] > 180 || values[0] > 180 {
		frameMax = 360
	}
	toFrame := func(v *float64) *float64 {
		if v == nil {
			return nil
		}
		x := *v
		for x >= frameMax {
			x -= 360
		}
		for x < frameMax-360 {
			x += 360
		}
		return &x
	}
	lo, hi := toFrame(iv.min), toFrame(iv.max)
	if iv.min != nil && iv.max != nil && *iv.max-*iv.min >= 360 {
		return selectLongitudes(values, interval{}, method, log)
	}
	if lo == nil || hi == nil || *lo <= *hi {
		idx, err := selectIndices("longitude", values, interval{lo, hi}, method, log)
		if err != nil {
			return nil, err
		}
		return longitudesAt(values, idx, nil), nil
	}

	// The request crosses the edge of the frame: take [lo; end] then
	// [start; hi], the latter shifted by 360.
	if values[0] > values[n-1] {
		return nil, fmt.Errorf("subset: descending longitudes crossing the antimeridian are not supported")
	}
	var east, west []int
	switch method {
	case toolbox.Nearest:
		east = span(nearest(values, *lo), n-1)
		west = span(0, nearest(values, *hi))
	case toolbox.Outside:
		i := sort.Search(n, func(i int) bool { return values[i] > *lo }) - 1
		if i < 0 {
			i = 0
		}
		east = span(i, n-1)
		j := sort.Search(n, func(i int) bool { return values[i] >= *hi })
		if j >= n {
			j = n - 1
		}
		west = span(0, j)
	default:
		east = span(sort.Search(n, func(i int) bool { return values[i] >= *lo }), n-1)
		west = span(0, sort.Search(n, func(i int) bool { return values[i] > *hi })-1)
	}
	if len(east) == 0 && len(west) == 0 {
		i := nearest(values, *lo)
		log.WithField("dimension", "longitude").Warnf("no longitude lies within %s; selecting the nearest value %g", iv, values[i])
		east = []int{i}
	}
	// Both segments may meet when they cover the whole axis.
	if len(east) > 0 && len(west) > 0 && west[len(west)-1] >= east[0] {
		return longitudesAt(values, span(0, n-1), nil), nil
	}
	return longitudesAt(values, east, west), nil
}

func span(i0, i1 int) []int {
	if i1 < i0 {
		return nil
	}
	o := make([]int, 0, i1-i0+1)
	for i := i0; i <= i1; i++ {
		o = append(o, i)
	}
	return o
}

func longitudesAt(values []float64, idx, wrapped []int) *longitudeSelection {
	s := &longitudeSelection{}
	for _, i := range idx {
		s.indices = append(s.indices, i)
		s.values = append(s.values, values[i])
	}
	for _, i := range wrapped {
		s.indices = append(s.indices, i)
		s.values = append(s.values, values[i]+360)
	}
	return s
}

// extent returns the minimum and maximum of the non-NaN values.
func extent(values []float64) (*float64, *float64) {
	var lo, hi *float64
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		v := v
		if lo == nil || v < *lo {
			lo = &v
		}
		if hi == nil || v > *hi {
			hi = &v
		}
	}
	return lo, hi
}
