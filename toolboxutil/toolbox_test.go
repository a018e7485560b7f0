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

package toolboxutil

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/copernicusmarine/toolbox"
	"github.com/copernicusmarine/toolbox/credentials"
	"github.com/copernicusmarine/toolbox/internal/fakemarine"
	"github.com/sirupsen/logrus"
)

type checker map[string]string

func (c checker) Check(_ context.Context, cr credentials.Credentials) error {
	if p, ok := c[cr.Username]; !ok || p != cr.Password {
		return credentials.ErrInvalidCredentials
	}
	return nil
}

func libraryOptions(t *testing.T) Options {
	t.Helper()
	m := marine(t)
	l := logrus.New()
	l.Out = io.Discard
	return Options{
		CatalogueURL:   m.CatalogueURL,
		Checker:        checker{"user": "secret"},
		HomeDirectory:  t.TempDir(),
		MaxElapsedTime: time.Second,
		Log:            l,
	}
}

func pointRequest() *toolbox.SubsetRequest {
	return &toolbox.SubsetRequest{
		DatasetID:        fakemarine.ThetaoDataset,
		Username:         "user",
		Password:         "secret",
		Variables:        []string{"thetao"},
		MinimumLongitude: toolbox.Float64(0),
		MaximumLongitude: toolbox.Float64(0),
		MinimumLatitude:  toolbox.Float64(0),
		MaximumLatitude:  toolbox.Float64(0),
		MinimumDepth:     toolbox.Float64(0),
		MaximumDepth:     toolbox.Float64(1),
		StartDatetime:    "2023-01-01",
		EndDatetime:      "2023-01-02",
	}
}

func TestDescribe(t *testing.T) {
	o := libraryOptions(t)
	ctx := context.Background()
	cat, err := Describe(ctx, DescribeOptions{IncludeAll: true}, o)
	if err != nil {
		t.Fatal(err)
	}
	again, err := Describe(ctx, DescribeOptions{IncludeAll: true}, o)
	if err != nil {
		t.Fatal(err)
	}
	if len(cat.Products) == 0 || len(cat.Products) != len(again.Products) {
		t.Errorf("products %d and %d", len(cat.Products), len(again.Products))
	}
	for i := 1; i < len(cat.Products); i++ {
		if cat.Products[i-1].ProductID > cat.Products[i].ProductID {
			t.Errorf("products not sorted: %s before %s", cat.Products[i-1].ProductID, cat.Products[i].ProductID)
		}
	}
}

func TestOpenDataset(t *testing.T) {
	o := libraryOptions(t)
	ctx := context.Background()
	d, err := OpenDataset(ctx, pointRequest(), o)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()
	v, ok := d.Variable("thetao")
	if !ok {
		t.Fatal("no thetao variable")
	}
	a, err := d.Read(ctx, v)
	if err != nil {
		t.Fatal(err)
	}
	// time 0, depth 0, latitude 2, longitude 4.
	if have, want := a.Get(0, 0, 0, 0), fakemarine.ThetaoValue(0, 0, 2, 4); have != want {
		t.Errorf("thetao %g, want %g", have, want)
	}

	r := pointRequest()
	r.Password = "wrong"
	if _, err := OpenDataset(ctx, r, o); !errors.Is(err, credentials.ErrInvalidCredentials) {
		t.Errorf("invalid credentials: %v", err)
	}
	r = pointRequest()
	r.Username, r.Password = "", ""
	t.Setenv(credentials.UsernameEnv, "")
	t.Setenv(credentials.PasswordEnv, "")
	t.Setenv(credentials.ConfigurationDirectoryEnv, t.TempDir())
	if _, err := OpenDataset(ctx, r, o); !errors.Is(err, credentials.ErrMissingCredentials) {
		t.Errorf("missing credentials: %v", err)
	}
	o.Prompt = func(label string, hidden bool) (string, error) {
		if label == "password" {
			return "secret", nil
		}
		return "user", nil
	}
	if _, err := OpenDataset(ctx, r, o); err != nil {
		t.Errorf("prompted credentials: %v", err)
	}
}

func TestReadDataframe(t *testing.T) {
	o := libraryOptions(t)
	f, err := ReadDataframe(context.Background(), pointRequest(), o)
	if err != nil {
		t.Fatal(err)
	}
	// Two times, one depth, one point.
	if len(f.Rows) != 2 {
		t.Fatalf("%d rows", len(f.Rows))
	}
	if have, want := f.Rows[1].Values[0], fakemarine.ThetaoValue(1, 0, 2, 4); have != want {
		t.Errorf("thetao %g, want %g", have, want)
	}
}

func TestLibraryGetAndSubset(t *testing.T) {
	o := libraryOptions(t)
	ctx := context.Background()
	out := t.TempDir()
	declined := false
	o.ConfirmGet = func(*toolbox.ResponseGet) bool {
		declined = true
		return false
	}
	_, err := Get(ctx, &toolbox.GetRequest{
		DatasetID:       fakemarine.ThetaoDataset,
		Username:        "user",
		Password:        "secret",
		OutputDirectory: out,
		IndexParts:      true,
	}, o)
	if err == nil || !declined {
		t.Errorf("declined get: %v", err)
	}

	r := pointRequest()
	r.OutputDirectory = out
	r.OutputFilename = "point.zarr"
	r.ForceDownload = true
	resp, err := Subset(ctx, r, o)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(out, "point.zarr"); resp.Output != want {
		t.Errorf("output %s, want %s", resp.Output, want)
	}
}

func TestLogin(t *testing.T) {
	o := libraryOptions(t)
	ctx := context.Background()
	dir := t.TempDir()
	ok, err := Login(ctx, LoginOptions{Username: "user", Password: "wrong", ConfigurationDirectory: dir}, o)
	if err != nil || ok {
		t.Errorf("invalid login: %v, %v", ok, err)
	}
	ok, err = Login(ctx, LoginOptions{Username: "user", Password: "secret", ConfigurationDirectory: dir}, o)
	if err != nil || !ok {
		t.Fatalf("login: %v, %v", ok, err)
	}
	ok, err = Login(ctx, LoginOptions{ConfigurationDirectory: dir, SkipIfUserLoggedIn: true}, o)
	if err != nil || !ok {
		t.Errorf("skipped login: %v, %v", ok, err)
	}
}
