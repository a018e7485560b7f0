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

package download

import (
	"errors"
	"testing"

	"github.com/copernicusmarine/toolbox"
	"gocloud.dev/blob"
)

func TestFilterMatch(t *testing.T) {
	for _, test := range []struct {
		pattern, url string
		match        bool
	}{
		{"*.nc", "s3://bucket/a/b/c.nc", true},
		{"*.nc", "s3://bucket/a/b/c.ncx", false},
		{"*/2023/*", "https://host/b/2023/01/x.nc", true},
		{"*x?.nc", "https://host/x1.nc", true},
		{"*x?.nc", "https://host/x12.nc", false},
		{"*x[0-2].nc", "https://host/x1.nc", true},
		{"*x[!0-2].nc", "https://host/x1.nc", false},
		{"*x[!0-2].nc", "https://host/x5.nc", true},
		{"*a+b(c).nc", "https://host/a+b(c).nc", true},
		{"*{x1,x2}.nc", "https://host/x2.nc", true},
	} {
		match, err := newMatcher(&toolbox.GetRequest{Filter: test.pattern})
		if err != nil {
			t.Fatalf("%s: %v", test.pattern, err)
		}
		f := &file{obj: &blob.ListObject{}, url: test.url}
		if have := match(f); have != test.match {
			t.Errorf("%s on %s: have %v, want %v", test.pattern, test.url, have, test.match)
		}
	}
	if _, err := newMatcher(&toolbox.GetRequest{Filter: "x[.nc"}); !errors.Is(err, toolbox.ErrInvalidRequest) {
		t.Errorf("unclosed class: %v", err)
	}
}
