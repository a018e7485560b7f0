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

package hash

import (
	"math"
	"testing"
)

type options struct {
	A        bool
	Contains []string
}

func TestKey(t *testing.T) {
	a := Key("url", options{A: true, Contains: []string{"x"}})
	b := Key("url", options{A: true, Contains: []string{"x"}})
	if a != b {
		t.Errorf("equal values give %s and %s", a, b)
	}
	if c := Key("url", options{A: true, Contains: []string{"y"}}); c == a {
		t.Error("different values give the same key")
	}
	m1 := Key(map[string]interface{}{"a": 1, "b": 2, "c": 3})
	m2 := Key(map[string]interface{}{"c": 3, "b": 2, "a": 1})
	if m1 != m2 {
		t.Error("map keys depend on order")
	}
	if Key(math.NaN()) == "" {
		t.Error("empty key")
	}
}
