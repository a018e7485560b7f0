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

package toolbox

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestResponseSubsetJSON(t *testing.T) {
	r := ResponseSubset{
		Output:     "out.nc",
		Size:       Float64(1.5),
		DataNeeded: Float64(3),
		CoordinatesExtent: DatasetCoordinatesExtent{
			Longitude: GeographicalExtent{Minimum: Float64(-6), Maximum: Float64(-5)},
			Latitude:  GeographicalExtent{Minimum: Float64(35), Maximum: Float64(36)},
			Time:      TimeExtent{Minimum: String("2022-01-01T00:00:00Z"), Maximum: String("2022-01-02T00:00:00Z")},
		},
	}
	t.Run("no vertical", func(t *testing.T) {
		b, err := json.Marshal(r)
		if err != nil {
			t.Fatal(err)
		}
		want := `{"output":"out.nc","size":1.5,"data_needed":3,"coodinates_extent":{"longitude":{"minimum":-6,"maximum":-5},"latitude":{"minimum":35,"maximum":36},"time":{"minimum":"2022-01-01T00:00:00Z","maximum":"2022-01-02T00:00:00Z"}}}`
		if string(b) != want {
			t.Errorf("have %s\nwant %s", b, want)
		}
	})
	t.Run("elevation", func(t *testing.T) {
		r2 := r
		r2.CoordinatesExtent.Elevation = &GeographicalExtent{Minimum: Float64(-5), Maximum: Float64(0)}
		b, err := json.Marshal(r2)
		if err != nil {
			t.Fatal(err)
		}
		if strings.Contains(string(b), `"depth"`) {
			t.Errorf("depth should be omitted: %s", b)
		}
		if !strings.Contains(string(b), `"elevation":{"minimum":-5,"maximum":0}`) {
			t.Errorf("missing elevation: %s", b)
		}
	})
}

func TestParseChoices(t *testing.T) {
	if f, err := ParseFileFormat(""); err != nil || f != FormatNetCDF {
		t.Errorf("default file format: %v, %v", f, err)
	}
	if f, err := ParseFileFormat("zarr"); err != nil || f.Extension() != ".zarr" {
		t.Errorf("zarr: %v, %v", f, err)
	}
	if _, err := ParseFileFormat("grib"); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("grib should be invalid, got %v", err)
	}
	if m, err := ParseCoordinatesSelectionMethod("strict-inside"); err != nil || m != StrictInside {
		t.Errorf("strict-inside: %v, %v", m, err)
	}
	if v, err := ParseVerticalDimensionOutput(""); err != nil || v != Depth {
		t.Errorf("default vertical output: %v, %v", v, err)
	}
	if l, err := ParseLogLevel("quiet"); err != nil || l != LogQuiet {
		t.Errorf("quiet: %v, %v", l, err)
	}
	if _, err := ParseLogLevel("verbose"); err == nil {
		t.Error("verbose should be invalid")
	}
}

func TestCheckMinimumVersion(t *testing.T) {
	if err := CheckMinimumVersion(""); err != nil {
		t.Error(err)
	}
	if err := CheckMinimumVersion("1.0.0"); err != nil {
		t.Error(err)
	}
	if err := CheckMinimumVersion("99.0"); err == nil {
		t.Error("expected an error for a newer minimum version")
	}
}
