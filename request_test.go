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
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadSubsetRequestFile(t *testing.T) {
	t.Run("deprecated keys", func(t *testing.T) {
		path := writeFile(t, "r.json", `{"dataset_id": "ds", "force_dataset_version": "202211",
			"variables": ["thetao"], "minimum_depth": 1, "overwrite": true, "service": null}`)
		m, err := ReadSubsetRequestFile(path)
		if err != nil {
			t.Fatal(err)
		}
		r, err := DecodeSubsetRequest(m)
		if err != nil {
			t.Fatal(err)
		}
		want := &SubsetRequest{
			DatasetID:           "ds",
			DatasetVersion:      "202211",
			Variables:           []string{"thetao"},
			MinimumDepth:        Float64(1),
			OverwriteOutputData: true,
		}
		if !reflect.DeepEqual(r, want) {
			t.Errorf("have %+v, want %+v", r, want)
		}
	})
	t.Run("unknown key", func(t *testing.T) {
		path := writeFile(t, "r.json", `{"dataset_id": "ds", "minimum_lat": 3}`)
		if _, err := ReadSubsetRequestFile(path); !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("expected invalid request, got %v", err)
		}
	})
	t.Run("wrong type", func(t *testing.T) {
		path := writeFile(t, "r.json", `{"dataset_id": "ds", "minimum_latitude": "north"}`)
		if _, err := ReadSubsetRequestFile(path); err == nil {
			t.Error("expected an error")
		}
	})
	t.Run("not an object", func(t *testing.T) {
		path := writeFile(t, "r.json", `["ds"]`)
		if _, err := ReadSubsetRequestFile(path); err == nil {
			t.Error("expected an error")
		}
	})
}

func TestReadGetRequestFile(t *testing.T) {
	path := writeFile(t, "r.json", `{"dataset_id": "ds", "filter_with_globbing_pattern": "*.nc", "sync": true}`)
	m, err := ReadGetRequestFile(path)
	if err != nil {
		t.Fatal(err)
	}
	r, err := DecodeGetRequest(m)
	if err != nil {
		t.Fatal(err)
	}
	if r.Filter != "*.nc" || !r.Sync {
		t.Errorf("unexpected request %+v", r)
	}
}

func TestTemplatesAreValidRequests(t *testing.T) {
	dir := t.TempDir()
	p, err := CreateSubsetTemplate(dir)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(p) != SubsetTemplateName {
		t.Errorf("template name %s", p)
	}
	m, err := ReadSubsetRequestFile(p)
	if err != nil {
		t.Fatal(err)
	}
	r, err := DecodeSubsetRequest(m)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Validate(); err != nil {
		t.Error(err)
	}

	p, err = CreateGetTemplate(dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ReadGetRequestFile(p); err != nil {
		t.Error(err)
	}
}

func TestMergeRequestPrecedence(t *testing.T) {
	file := map[string]interface{}{"dataset_id": "from-file", "minimum_depth": 1.0, "dry_run": true}
	motu, err := ParseMOTURequest("python -m motuclient --motu https://x --service-id S --product-id from-motu --depth-min 2 --out-dir <OUTPUT_DIRECTORY>")
	if err != nil {
		t.Fatal(err)
	}
	args := map[string]interface{}{"minimum_depth": 3.0, "dataset_version": nil}
	r, err := DecodeSubsetRequest(MergeRequest(file, motu, args))
	if err != nil {
		t.Fatal(err)
	}
	want := &SubsetRequest{DatasetID: "from-motu", MinimumDepth: Float64(3), DryRun: true}
	if !reflect.DeepEqual(r, want) {
		t.Errorf("have %+v, want %+v", r, want)
	}
}

func TestParseMOTURequest(t *testing.T) {
	m, err := ParseMOTURequest(`python -m motuclient --motu https://nrt.cmems-du.eu/motu-web/Motu --service-id GLOBAL-TDS --product-id cmems_mod_glo_phy-thetao_anfc_0.083deg_PT6H-i --longitude-min -10 --longitude-max 10 --latitude-min 30 --latitude-max 40 --date-min '2023-01-01 00:00:00' --date-max '2023-01-03 23:59:59' --depth-min 0.49 --depth-max 1 --variable thetao --variable so --out-dir <OUTPUT_DIRECTORY> --out-name <OUTPUT_FILENAME> --user <USERNAME> --pwd <PASSWORD>`)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]interface{}{
		"dataset_id":        "cmems_mod_glo_phy-thetao_anfc_0.083deg_PT6H-i",
		"minimum_longitude": -10.0,
		"maximum_longitude": 10.0,
		"minimum_latitude":  30.0,
		"maximum_latitude":  40.0,
		"start_datetime":    "2023-01-01 00:00:00",
		"end_datetime":      "2023-01-03 23:59:59",
		"minimum_depth":     0.49,
		"maximum_depth":     1.0,
		"variables":         []interface{}{"thetao", "so"},
	}
	if !reflect.DeepEqual(m, want) {
		t.Errorf("have %#v\nwant %#v", m, want)
	}

	if _, err := ParseMOTURequest("--longitude-min west"); err == nil {
		t.Error("expected an error for a non-numeric longitude")
	}
}

func TestParseDatetime(t *testing.T) {
	now = func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) }
	defer func() { now = time.Now }()
	for _, test := range []struct {
		in   string
		want time.Time
	}{
		{"now", time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)},
		{"2022", time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"2022-03-04", time.Date(2022, 3, 4, 0, 0, 0, 0, time.UTC)},
		{"2022-03-04 05:06:07", time.Date(2022, 3, 4, 5, 6, 7, 0, time.UTC)},
		{"2022-03-04T05:06:07", time.Date(2022, 3, 4, 5, 6, 7, 0, time.UTC)},
		{"2022-03-04T05:06:07Z", time.Date(2022, 3, 4, 5, 6, 7, 0, time.UTC)},
		{"2022-03-04T05:06:07+02:00", time.Date(2022, 3, 4, 3, 6, 7, 0, time.UTC)},
	} {
		t.Run(test.in, func(t *testing.T) {
			have, err := ParseDatetime(test.in)
			if err != nil {
				t.Fatal(err)
			}
			if !have.Equal(test.want) {
				t.Errorf("have %v, want %v", have, test.want)
			}
		})
	}
	if _, err := ParseDatetime("yesterday"); err == nil {
		t.Error("expected an error")
	}
}
