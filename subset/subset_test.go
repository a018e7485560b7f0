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

package subset_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/copernicusmarine/toolbox"
	"github.com/copernicusmarine/toolbox/arco"
	"github.com/copernicusmarine/toolbox/catalogue"
	"github.com/copernicusmarine/toolbox/internal/fakemarine"
	"github.com/copernicusmarine/toolbox/subset"
	"github.com/ctessum/cdf"
	"github.com/sirupsen/logrus"
)

func client(t *testing.T) *catalogue.Client {
	t.Helper()
	m, err := fakemarine.Start(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(m.Close)
	c := catalogue.NewClient(m.CatalogueURL)
	c.Fetch.MaxElapsedTime = time.Second
	l := logrus.New()
	l.Out = io.Discard
	c.Log = l
	c.Fetch.Log = l
	return c
}

// boxRequest selects two days, two depths and a 3x3 box of thetao.
func boxRequest() *toolbox.SubsetRequest {
	return &toolbox.SubsetRequest{
		DatasetID:        fakemarine.ThetaoDataset,
		Variables:        []string{"thetao"},
		MinimumLongitude: toolbox.Float64(-50),
		MaximumLongitude: toolbox.Float64(50),
		MinimumLatitude:  toolbox.Float64(-5),
		MaximumLatitude:  toolbox.Float64(5),
		MinimumDepth:     toolbox.Float64(0),
		MaximumDepth:     toolbox.Float64(2),
		StartDatetime:    "2023-01-02T00:00:00Z",
		EndDatetime:      "2023-01-03T00:00:00Z",
		ForceDownload:    true,
	}
}

func dimValues(d *subset.Dataset) map[string][]float64 {
	o := make(map[string][]float64)
	for _, dim := range d.Dims {
		o[dim.Name] = dim.Values
	}
	return o
}

func TestOpen(t *testing.T) {
	c := client(t)
	ctx := context.Background()

	t.Run("box", func(t *testing.T) {
		d, err := subset.Open(ctx, c, boxRequest())
		if err != nil {
			t.Fatal(err)
		}
		if d.Service.ServiceType.ServiceName != catalogue.ArcoGeoSeries {
			t.Errorf("service %s", d.Service.ServiceType.ServiceName)
		}
		dims := dimValues(d)
		if want := []float64{-45, 0, 45}; !reflect.DeepEqual(dims["longitude"], want) {
			t.Errorf("longitude %v", dims["longitude"])
		}
		if want := []float64{-5, 0, 5}; !reflect.DeepEqual(dims["latitude"], want) {
			t.Errorf("latitude %v", dims["latitude"])
		}
		if want := []float64{0.5, 1.5}; !reflect.DeepEqual(dims["depth"], want) {
			t.Errorf("depth %v", dims["depth"])
		}
		times := d.Times()
		if len(times) != 2 || !times[0].Equal(fakemarine.Times[1]) || !times[1].Equal(fakemarine.Times[2]) {
			t.Errorf("times %v", times)
		}
		v, ok := d.Variable("sea_water_potential_temperature")
		if !ok {
			t.Fatal("no thetao")
		}
		a, err := d.Read(ctx, v)
		if err != nil {
			t.Fatal(err)
		}
		if want := []int{2, 2, 3, 3}; !reflect.DeepEqual(a.Shape, want) {
			t.Fatalf("shape %v", a.Shape)
		}
		for ti := 0; ti < 2; ti++ {
			for z := 0; z < 2; z++ {
				for y := 0; y < 3; y++ {
					for x := 0; x < 3; x++ {
						want := fakemarine.ThetaoValue(ti+1, z, y+1, x+3)
						if have := a.Get(ti, z, y, x); have != want {
							t.Errorf("thetao[%d,%d,%d,%d] = %g, want %g", ti, z, y, x, have, want)
						}
					}
				}
			}
		}
		e := d.Extent()
		if *e.Longitude.Minimum != -45 || *e.Latitude.Maximum != 5 || e.Depth == nil || *e.Depth.Maximum != 1.5 ||
			*e.Time.Minimum != "2023-01-02T00:00:00Z" || e.Elevation != nil {
			t.Errorf("extent %+v", e)
		}
		if want := float64(4*36+8*10) / (1024 * 1024); d.Size() != want {
			t.Errorf("size %g, want %g", d.Size(), want)
		}
		if n, err := d.DataNeeded(); err != nil || n <= 0 {
			t.Errorf("data needed %g, %v", n, err)
		}
	})
	t.Run("antimeridian", func(t *testing.T) {
		r := boxRequest()
		r.MinimumLongitude, r.MaximumLongitude = toolbox.Float64(120), toolbox.Float64(-150)
		d, err := subset.Open(ctx, c, r)
		if err != nil {
			t.Fatal(err)
		}
		if have, want := dimValues(d)["longitude"], []float64{135, 180}; !reflect.DeepEqual(have, want) {
			t.Errorf("longitude %v", have)
		}
		v, _ := d.Variable("thetao")
		a, err := d.Read(ctx, v)
		if err != nil {
			t.Fatal(err)
		}
		if have, want := a.Get(0, 0, 0, 1), fakemarine.ThetaoValue(1, 0, 1, 0); have != want {
			t.Errorf("wrapped value %g, want %g", have, want)
		}
	})
	t.Run("elevation", func(t *testing.T) {
		r := boxRequest()
		r.MaximumDepth = toolbox.Float64(6)
		r.VerticalDimensionOutput = toolbox.Elevation
		d, err := subset.Open(ctx, c, r)
		if err != nil {
			t.Fatal(err)
		}
		dim, ok := d.Dim("elevation")
		if !ok {
			t.Fatal("no elevation")
		}
		if want := []float64{-5, -1.5, -0.5}; !reflect.DeepEqual(dim.Values, want) {
			t.Errorf("elevation %v", dim.Values)
		}
		if dim.Attrs["positive"] != "up" {
			t.Errorf("attrs %v", dim.Attrs)
		}
		v, _ := d.Variable("thetao")
		if v.Dims[1] != "elevation" {
			t.Errorf("dims %v", v.Dims)
		}
		a, err := d.Read(ctx, v)
		if err != nil {
			t.Fatal(err)
		}
		if have, want := a.Get(0, 0, 0, 0), fakemarine.ThetaoValue(1, 2, 1, 3); have != want {
			t.Errorf("deepest value %g, want %g", have, want)
		}
		e := d.Extent()
		if e.Depth != nil || e.Elevation == nil || *e.Elevation.Minimum != -5 {
			t.Errorf("extent %+v", e)
		}
	})
	t.Run("standard name", func(t *testing.T) {
		r := boxRequest()
		r.Variables = []string{"sea_water_salinity"}
		d, err := subset.Open(ctx, c, r)
		if err != nil {
			t.Fatal(err)
		}
		if len(d.Variables) != 1 || d.Variables[0].Name != "so" {
			t.Fatalf("variables %v", d.Variables)
		}
		a, err := d.Read(ctx, d.Variables[0])
		if err != nil {
			t.Fatal(err)
		}
		if have, want := a.Get(1, 1, 2, 2), fakemarine.SoValue(2, 1, 3, 5); math.Abs(have-want) > 1e-9 {
			t.Errorf("so %g, want %g", have, want)
		}
	})
	t.Run("static", func(t *testing.T) {
		d, err := subset.Open(ctx, c, &toolbox.SubsetRequest{DatasetID: fakemarine.StaticDataset})
		if err != nil {
			t.Fatal(err)
		}
		if d.Service.ServiceType.ServiceName != catalogue.StaticArco {
			t.Errorf("service %s", d.Service.ServiceType.ServiceName)
		}
		if len(d.Variables) != 1 || d.Variables[0].Name != "deptho" {
			t.Fatalf("variables %v", d.Variables)
		}
		a, err := d.Read(ctx, d.Variables[0])
		if err != nil {
			t.Fatal(err)
		}
		if !math.IsNaN(a.Get(0, 0)) || a.Get(0, 1) != 200 {
			t.Errorf("deptho %v", a.Elements[:2])
		}
	})
	for name, test := range map[string]struct {
		change func(r *toolbox.SubsetRequest)
		err    error
	}{
		"unknown variable": {func(r *toolbox.SubsetRequest) { r.Variables = []string{"nope"} }, subset.ErrVariableNotFound},
		"strict inside": {func(r *toolbox.SubsetRequest) {
			r.MinimumLatitude = toolbox.Float64(-20)
			r.CoordinatesSelectionMethod = toolbox.StrictInside
		}, subset.ErrCoordinatesOutOfBounds},
		"unknown dataset": {func(r *toolbox.SubsetRequest) { r.DatasetID = "nope" }, catalogue.ErrDatasetNotFound},
		"files service":   {func(r *toolbox.SubsetRequest) { r.Service = "files" }, catalogue.ErrServiceNotAvailable},
		"bad latitude":    {func(r *toolbox.SubsetRequest) { r.MinimumLatitude = toolbox.Float64(-100) }, toolbox.ErrInvalidRequest},
	} {
		t.Run(name, func(t *testing.T) {
			r := boxRequest()
			test.change(r)
			if _, err := subset.Open(ctx, c, r); !errors.Is(err, test.err) {
				t.Errorf("have %v, want %v", err, test.err)
			}
		})
	}
}

func TestSubsetNetCDF(t *testing.T) {
	c := client(t)
	ctx := context.Background()
	r := boxRequest()
	r.OutputDirectory = t.TempDir()

	resp, err := subset.Subset(ctx, r, subset.Options{Catalogue: c})
	if err != nil {
		t.Fatal(err)
	}
	name := fakemarine.ThetaoDataset + "_thetao_45.00W-45.00E_5.00S-5.00N_0.50-1.50m_2023-01-02-2023-01-03.nc"
	if want := filepath.Join(r.OutputDirectory, name); resp.Output != want {
		t.Errorf("output %s, want %s", resp.Output, want)
	}

	f, err := os.Open(resp.Output)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	nc, err := cdf.Open(f)
	if err != nil {
		t.Fatal(err)
	}
	if have, want := nc.Header.Lengths("thetao"), []int{2, 2, 3, 3}; !reflect.DeepEqual(have, want) {
		t.Errorf("lengths %v", have)
	}
	if units, _ := nc.Header.GetAttribute("time", "units").(string); units != fakemarine.TimeUnits {
		t.Errorf("time units %q", units)
	}
	lon := make([]float64, 3)
	if _, err := nc.Reader("longitude", nil, nil).Read(lon); err != nil {
		t.Fatal(err)
	}
	if want := []float64{-45, 0, 45}; !reflect.DeepEqual(lon, want) {
		t.Errorf("longitude %v", lon)
	}
	thetao := make([]float32, 36)
	if _, err := nc.Reader("thetao", nil, nil).Read(thetao); err != nil {
		t.Fatal(err)
	}
	if want := float32(fakemarine.ThetaoValue(2, 1, 3, 5)); thetao[35] != want {
		t.Errorf("last thetao %g, want %g", thetao[35], want)
	}
	if h, _ := nc.Header.GetAttribute("", "history").(string); !strings.Contains(h, fakemarine.ThetaoDataset) {
		t.Errorf("history %q", h)
	}

	again, err := subset.Subset(ctx, r, subset.Options{Catalogue: c})
	if err != nil {
		t.Fatal(err)
	}
	if want := strings.TrimSuffix(resp.Output, ".nc") + "_(1).nc"; again.Output != want {
		t.Errorf("second output %s, want %s", again.Output, want)
	}
	r.OverwriteOutputData = true
	over, err := subset.Subset(ctx, r, subset.Options{Catalogue: c})
	if err != nil {
		t.Fatal(err)
	}
	if over.Output != resp.Output {
		t.Errorf("overwritten output %s", over.Output)
	}
}

func TestSubsetZarr(t *testing.T) {
	c := client(t)
	ctx := context.Background()
	r := boxRequest()
	r.Variables = []string{"thetao", "so"}
	r.OutputDirectory = t.TempDir()
	r.OutputFilename = "box.zarr"

	resp, err := subset.Subset(ctx, r, subset.Options{Catalogue: c})
	if err != nil {
		t.Fatal(err)
	}
	store, err := arco.OpenStore(ctx, "file://"+resp.Output, nil)
	if err != nil {
		t.Fatal(err)
	}
	d, err := arco.Open(ctx, store)
	if err != nil {
		t.Fatal(err)
	}
	if have, want := d.DataVariables(), []string{"so", "thetao"}; !reflect.DeepEqual(have, want) {
		t.Errorf("variables %v", have)
	}
	lat, err := d.ReadCoordinate(ctx, "latitude")
	if err != nil {
		t.Fatal(err)
	}
	if want := []float64{-5, 0, 5}; !reflect.DeepEqual(lat, want) {
		t.Errorf("latitude %v", lat)
	}
	so, err := d.ReadVariable(ctx, "so", [][]int{{0}, {0}, {0}, {0}})
	if err != nil {
		t.Fatal(err)
	}
	if have, want := so.Elements[0], fakemarine.SoValue(1, 0, 1, 3); math.Abs(have-want) > 1e-4 {
		t.Errorf("so %g, want %g", have, want)
	}
	if _, ok := d.Arrays["so"].Attrs["scale_factor"]; ok {
		t.Error("packing attributes were copied to unpacked data")
	}
}

func TestSubsetDryRunAndConfirm(t *testing.T) {
	c := client(t)
	ctx := context.Background()
	r := boxRequest()
	r.OutputDirectory = t.TempDir()
	r.DryRun = true
	resp, err := subset.Subset(ctx, r, subset.Options{Catalogue: c})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(resp.Output); !os.IsNotExist(err) {
		t.Errorf("dry run wrote %s", resp.Output)
	}
	if resp.Size == nil || *resp.Size <= 0 || resp.DataNeeded == nil || *resp.DataNeeded <= 0 {
		t.Errorf("estimates %v %v", resp.Size, resp.DataNeeded)
	}

	r.DryRun = false
	r.ForceDownload = false
	var asked *toolbox.ResponseSubset
	_, err = subset.Subset(ctx, r, subset.Options{Catalogue: c, Confirm: func(resp *toolbox.ResponseSubset) bool {
		asked = resp
		return false
	}})
	if !errors.Is(err, subset.ErrDeclined) {
		t.Errorf("declined: %v", err)
	}
	if asked == nil || asked.Output != resp.Output {
		t.Errorf("confirmation asked for %+v", asked)
	}
}

func TestDataframe(t *testing.T) {
	c := client(t)
	ctx := context.Background()
	r := &toolbox.SubsetRequest{
		DatasetID:        fakemarine.ThetaoDataset,
		Variables:        []string{"thetao", "so"},
		MinimumLongitude: toolbox.Float64(0),
		MaximumLongitude: toolbox.Float64(0),
		MinimumLatitude:  toolbox.Float64(0),
		MaximumLatitude:  toolbox.Float64(0),
		MinimumDepth:     toolbox.Float64(0.5),
		MaximumDepth:     toolbox.Float64(0.5),
	}
	d, err := subset.Open(ctx, c, r)
	if err != nil {
		t.Fatal(err)
	}
	if d.Service.ServiceType.ServiceName != catalogue.ArcoTimeSeries {
		t.Errorf("service %s", d.Service.ServiceType.ServiceName)
	}
	df, err := subset.ReadDataframe(ctx, d)
	if err != nil {
		t.Fatal(err)
	}
	if len(df.Rows) != len(fakemarine.Times) {
		t.Fatalf("%d rows", len(df.Rows))
	}
	for i, row := range df.Rows {
		if have, want := row.Values[0], fakemarine.ThetaoValue(i, 0, 2, 4); have != want {
			t.Errorf("row %d thetao %g, want %g", i, have, want)
		}
		if have, want := row.Values[1], fakemarine.SoValue(i, 0, 2, 4); math.Abs(have-want) > 1e-9 {
			t.Errorf("row %d so %g, want %g", i, have, want)
		}
	}
	var b bytes.Buffer
	if err := df.WriteCSV(&b); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(b.String()), "\n")
	if lines[0] != "time,depth,latitude,longitude,thetao,so" {
		t.Errorf("header %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "2023-01-01T00:00:00Z,0.5,0,0,24,") {
		t.Errorf("first row %q", lines[1])
	}
}
