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
	"errors"
	"io"
	"math"
	"reflect"
	"testing"

	"github.com/copernicusmarine/toolbox"
	"github.com/sirupsen/logrus"
)

func quiet() logrus.FieldLogger {
	l := logrus.New()
	l.Out = io.Discard
	return l
}

func f(v float64) *float64 { return &v }

func TestSelectIndices(t *testing.T) {
	asc := []float64{0, 1, 2, 3, 4}
	desc := []float64{4, 3, 2, 1, 0}
	tests := []struct {
		name   string
		values []float64
		iv     interval
		method toolbox.CoordinatesSelectionMethod
		want   []int
	}{
		{"inside", asc, interval{f(0.5), f(2.5)}, toolbox.Inside, []int{1, 2}},
		{"inside exact", asc, interval{f(1), f(3)}, toolbox.Inside, []int{1, 2, 3}},
		{"inside empty", asc, interval{f(1.2), f(1.4)}, toolbox.Inside, []int{1}},
		{"strict inside", asc, interval{f(0.5), f(2.5)}, toolbox.StrictInside, []int{1, 2}},
		{"nearest", asc, interval{f(0.4), f(2.6)}, toolbox.Nearest, []int{0, 1, 2, 3}},
		{"nearest point", asc, interval{f(2.2), f(2.2)}, toolbox.Nearest, []int{2}},
		{"outside", asc, interval{f(0.5), f(2.5)}, toolbox.Outside, []int{0, 1, 2, 3}},
		{"outside exact", asc, interval{f(1), f(3)}, toolbox.Outside, []int{1, 2, 3}},
		{"outside beyond", asc, interval{f(-3), f(9)}, toolbox.Outside, []int{0, 1, 2, 3, 4}},
		{"unbounded", asc, interval{}, toolbox.Inside, []int{0, 1, 2, 3, 4}},
		{"half bounded", asc, interval{min: f(3)}, toolbox.Inside, []int{3, 4}},
		{"descending", desc, interval{f(0.5), f(2.5)}, toolbox.Inside, []int{2, 3}},
		{"descending nearest", desc, interval{f(3.9), f(4)}, toolbox.Nearest, []int{0}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			have, err := selectIndices("x", test.values, test.iv, test.method, quiet())
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(have, test.want) {
				t.Errorf("have %v, want %v", have, test.want)
			}
		})
	}
	t.Run("strict inside out of bounds", func(t *testing.T) {
		_, err := selectIndices("x", asc, interval{f(-1), f(2)}, toolbox.StrictInside, quiet())
		if !errors.Is(err, ErrCoordinatesOutOfBounds) {
			t.Errorf("have %v", err)
		}
	})
}

func TestSelectLongitudes(t *testing.T) {
	centered := []float64{-180, -135, -90, -45, 0, 45, 90, 135}
	positive := []float64{0, 45, 90, 135, 180, 225, 270, 315}
	tests := []struct {
		name    string
		values  []float64
		iv      interval
		method  toolbox.CoordinatesSelectionMethod
		indices []int
		lons    []float64
	}{
		{"plain", centered, interval{f(-50), f(50)}, toolbox.Inside, []int{3, 4, 5}, []float64{-45, 0, 45}},
		{"antimeridian", centered, interval{f(120), f(-150)}, toolbox.Inside, []int{7, 0}, []float64{135, 180}},
		{"antimeridian west only", centered, interval{f(170), f(-170)}, toolbox.Inside, []int{0}, []float64{180}},
		{"antimeridian outside", centered, interval{f(120), f(-150)}, toolbox.Outside, []int{6, 7, 0, 1}, []float64{90, 135, 180, 225}},
		{"positive frame", positive, interval{f(-50), f(50)}, toolbox.Inside, []int{7, 0, 1}, []float64{315, 360, 405}},
		{"positive frame request", centered, interval{f(200), f(280)}, toolbox.Inside, []int{1, 2}, []float64{-135, -90}},
		{"whole axis", centered, interval{f(-180), f(180)}, toolbox.Inside, []int{0, 1, 2, 3, 4, 5, 6, 7}, centered},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			s, err := selectLongitudes(test.values, test.iv, test.method, quiet())
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(s.indices, test.indices) {
				t.Errorf("indices: have %v, want %v", s.indices, test.indices)
			}
			if !reflect.DeepEqual(s.values, test.lons) {
				t.Errorf("values: have %v, want %v", s.values, test.lons)
			}
		})
	}
}

func TestExtent(t *testing.T) {
	lo, hi := extent([]float64{3, math.NaN(), -1, 2})
	if *lo != -1 || *hi != 3 {
		t.Errorf("have %g, %g", *lo, *hi)
	}
	if lo, hi := extent(nil); lo != nil || hi != nil {
		t.Error("extent of nothing")
	}
}
