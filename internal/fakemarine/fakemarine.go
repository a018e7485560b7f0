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

// Package fakemarine serves a small Copernicus Marine catalogue for
// tests: STAC documents and ARCO stores over HTTP, and original files
// in a local directory.
package fakemarine

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/copernicusmarine/toolbox/arco"
	"github.com/copernicusmarine/toolbox/catalogue"
)

// These identify the products and datasets served.
const (
	GlobalProduct   = "GLOBAL_ANALYSISFORECAST_PHY_001_024"
	NWShelfProduct  = "NWSHELF_MULTIYEAR_PHY_004_009"
	ThetaoDataset   = "cmems_mod_glo_phy-thetao_anfc_0.25deg_P1D-m"
	StaticDataset   = "cmems_mod_glo_phy_anfc_0.083deg_static"
	NWShelfDataset  = "cmems_mod_nws_phy-uv_my_7km-2D_PT1H-i"
	ReleasedVersion = "202311"
	FutureVersion   = "209901"
	NWShelfVersion  = "202012"
	BathyPart       = "bathy"
)

// These are the coordinates of the thetao dataset.
var (
	Times      = []time.Time{day(1), day(2), day(3), day(4)}
	Depths     = []float64{0.5, 1.5, 5, 10}
	Latitudes  = []float64{-10, -5, 0, 5, 10}
	Longitudes = []float64{-180, -135, -90, -45, 0, 45, 90, 135}
)

func day(d int) time.Time { return time.Date(2023, 1, d, 0, 0, 0, 0, time.UTC) }

// ThetaoValue is the value of thetao at the given indices.
func ThetaoValue(t, z, y, x int) float64 {
	return float64(t*1000 + z*100 + y*10 + x)
}

// SoValue is the value of so at the given indices.
func SoValue(t, z, y, x int) float64 { return 30 + ThetaoValue(t, z, y, x)/1000 }

// NativeFile is an original file of the thetao dataset.
type NativeFile struct {
	Key          string
	Content      string
	LastModified time.Time
}

// NativeFiles are the original files of the released thetao version.
var NativeFiles = []NativeFile{
	{"2023/01/thetao_20230101.nc", "thetao 1", time.Date(2023, 1, 2, 10, 0, 0, 0, time.UTC)},
	{"2023/01/thetao_20230102.nc", "thetao 2", time.Date(2023, 1, 3, 10, 0, 0, 0, time.UTC)},
	{"2023/02/thetao_20230201.nc", "thetao 3!", time.Date(2023, 2, 2, 10, 0, 0, 0, time.UTC)},
	{"index_history.txt", "history", time.Date(2023, 2, 3, 10, 0, 0, 0, time.UTC)},
	{"index_latest.txt", "latest", time.Date(2023, 2, 3, 10, 0, 0, 0, time.UTC)},
}

var instances int64

// Marine is a running fake service.
type Marine struct {
	// Dir holds the served documents.
	Dir string

	Server *httptest.Server

	// BaseURL is the root of the served documents. It is unique to
	// the instance so that cached documents never leak between them.
	BaseURL string

	// CatalogueURL is the root document of the catalogue.
	CatalogueURL string

	// NativeDir holds the original files of the released thetao version.
	NativeDir string

	// MinimumVersion is written as the minimum toolbox version.
	MinimumVersion string
}

// Start writes the fake service into dir and serves it.
func Start(dir string) (*Marine, error) {
	m := &Marine{Dir: dir}
	prefix := fmt.Sprintf("/marine-%d", atomic.AddInt64(&instances, 1)+time.Now().UnixNano())
	m.Server = httptest.NewServer(http.StripPrefix(prefix, http.FileServer(http.Dir(dir))))
	m.BaseURL = m.Server.URL + prefix
	m.CatalogueURL = m.BaseURL + "/metadata/catalog.stac.json"
	m.NativeDir = filepath.Join(dir, "native-bucket", "native", GlobalProduct, ThetaoDataset+"_"+ReleasedVersion)
	if err := m.write(); err != nil {
		m.Server.Close()
		return nil, err
	}
	return m, nil
}

// Close stops the server.
func (m *Marine) Close() { m.Server.Close() }

// SetMinimumVersion rewrites the root document with the given minimum
// toolbox version.
func (m *Marine) SetMinimumVersion(v string) error {
	m.MinimumVersion = v
	return m.writeRoot()
}

func (m *Marine) writeJSON(rel string, v interface{}) error {
	p := filepath.Join(m.Dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), os.ModePerm); err != nil {
		return err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, b, 0644)
}

func (m *Marine) writeRoot() error {
	var root catalogue.STACRoot
	root.ID = "copernicus-marine"
	root.Properties.ToolboxMinimumVersion = m.MinimumVersion
	root.Links = []catalogue.STACLink{
		{Rel: "root", Href: "catalog.stac.json"},
		{Rel: "child", Href: GlobalProduct + "/product.stac.json"},
		{Rel: "child", Href: NWShelfProduct + "/product.stac.json"},
	}
	return m.writeJSON("metadata/catalog.stac.json", root)
}

func (m *Marine) write() error {
	if err := m.writeRoot(); err != nil {
		return err
	}
	if err := m.writeGlobal(); err != nil {
		return err
	}
	if err := m.writeNWShelf(); err != nil {
		return err
	}
	return m.writeNative()
}

func product(id, title, description string, keywords []string, items ...string) *catalogue.STACProduct {
	p := &catalogue.STACProduct{
		ID:          id,
		Title:       title,
		Description: description,
		Keywords:    keywords,
		Providers: []catalogue.STACProvider{
			{Name: "Copernicus Marine Service", Roles: []string{"host"}},
			{Name: "Mercator Ocean International", Roles: []string{"producer"}},
		},
		Assets: map[string]catalogue.STACRef{"thumbnail": {Href: "https://example.com/" + id + ".jpg"}},
	}
	p.Properties.DOI = "10.48670/moi-" + id
	p.Properties.Sources = []string{"Numerical models"}
	p.Properties.ProcessingLevel = "Level 4"
	for _, it := range items {
		p.Links = append(p.Links, catalogue.STACLink{Rel: "item", Href: it + "/dataset.stac.json"})
	}
	return p
}

func item(id, title, released string) *catalogue.STACItem {
	it := &catalogue.STACItem{ID: id, BBox: []float64{-180, -10, 135, 10}, Assets: map[string]catalogue.STACAsset{}}
	it.Properties.Title = title
	it.Properties.ReleasedDate = released
	return it
}

func fl(v float64) *float64 { return &v }

func millis(t time.Time) float64 { return float64(t.UnixNano() / int64(time.Millisecond)) }

func thetaoDims(chunks [4]int) map[string]catalogue.STACDimension {
	chunkLen := func(i int) map[string]int { return map[string]int{"thetao": chunks[i], "so": chunks[i]} }
	times := make([]float64, len(Times))
	for i, t := range Times {
		times[i] = millis(t)
	}
	return map[string]catalogue.STACDimension{
		"time":      {Units: "milliseconds since 1970-01-01 00:00:00Z", Min: fl(times[0]), Max: fl(times[len(times)-1]), Step: fl(86400000), ChunkLen: chunkLen(0)},
		"depth":     {Units: "m", Coords: Depths, ChunkLen: chunkLen(1)},
		"latitude":  {Units: "degrees_north", Min: fl(-10), Max: fl(10), Step: fl(5), ChunkLen: chunkLen(2)},
		"longitude": {Units: "degrees_east", Min: fl(-180), Max: fl(135), Step: fl(45), ChunkLen: chunkLen(3)},
	}
}

var thetaoVariables = map[string]catalogue.STACViewVariable{
	"thetao": {StandardName: "sea_water_potential_temperature", Units: "degrees_C"},
	"so":     {StandardName: "sea_water_salinity", Units: "1e-3"},
}

// Chunk shapes of the two series, along time, depth, latitude and longitude.
var (
	GeoChunks  = [4]int{1, 4, 5, 8}
	TimeChunks = [4]int{4, 1, 1, 1}
)

func (m *Marine) writeGlobal() error {
	released := ThetaoDataset + "_" + ReleasedVersion
	future := ThetaoDataset + "_" + FutureVersion
	static := StaticDataset + "_" + ReleasedVersion
	p := product(GlobalProduct, "Global Ocean Physics Analysis and Forecast",
		"The Operational Mercator global ocean analysis and forecast system.",
		[]string{"oceanographic-geographical-features", "sea-water-salinity"},
		released, future, static)
	if err := m.writeJSON("metadata/"+GlobalProduct+"/product.stac.json", p); err != nil {
		return err
	}

	for _, v := range []struct {
		id, released string
	}{{released, "2023-11-30T11:00:00.000Z"}, {future, "2099-01-01T00:00:00.000Z"}} {
		it := item(v.id, "daily mean fields", v.released)
		arcoDir := "arco/" + GlobalProduct + "/" + v.id
		it.Assets["geoChunked"] = catalogue.STACAsset{
			Href:          m.BaseURL + "/" + arcoDir + "/geoChunked.zarr",
			ViewDims:      thetaoDims(GeoChunks),
			ViewVariables: thetaoVariables,
		}
		it.Assets["timeChunked"] = catalogue.STACAsset{
			Href:          m.BaseURL + "/" + arcoDir + "/timeChunked.zarr",
			ViewDims:      thetaoDims(TimeChunks),
			ViewVariables: thetaoVariables,
		}
		it.Assets["native"] = catalogue.STACAsset{Href: "file://" + m.NativeDir}
		if err := m.writeJSON("metadata/"+GlobalProduct+"/"+v.id+"/dataset.stac.json", it); err != nil {
			return err
		}
		for name, chunks := range map[string][4]int{"geoChunked": GeoChunks, "timeChunked": TimeChunks} {
			if err := writeThetaoStore(filepath.Join(m.Dir, filepath.FromSlash(arcoDir), name+".zarr"), chunks); err != nil {
				return err
			}
		}
	}

	it := item(static, "static fields", "2023-11-30T11:00:00.000Z")
	it.Assets["static"] = catalogue.STACAsset{
		Href: m.BaseURL + "/arco/" + GlobalProduct + "/" + static + "/static.zarr",
		ViewDims: map[string]catalogue.STACDimension{
			"latitude":  {Units: "degrees_north", Min: fl(-10), Max: fl(10), Step: fl(5), ChunkLen: map[string]int{"deptho": 5}},
			"longitude": {Units: "degrees_east", Min: fl(-180), Max: fl(135), Step: fl(45), ChunkLen: map[string]int{"deptho": 8}},
		},
		ViewVariables: map[string]catalogue.STACViewVariable{
			"deptho": {StandardName: "sea_floor_depth_below_geoid", Units: "m"},
		},
	}
	if err := m.writeJSON("metadata/"+GlobalProduct+"/"+static+"/dataset.stac.json", it); err != nil {
		return err
	}
	deptho := make([]float64, len(Latitudes)*len(Longitudes))
	for i := range deptho {
		deptho[i] = float64(100 * (i + 1))
	}
	deptho[0] = math.NaN()
	arrays := []*arco.ArrayData{
		latitudeArray(), longitudeArray(),
		{Name: "deptho", Dims: []string{"latitude", "longitude"}, Shape: []int{len(Latitudes), len(Longitudes)},
			DType: "<f4", Data: deptho, FillValue: fl(math.NaN()),
			Attrs: map[string]interface{}{"standard_name": "sea_floor_depth_below_geoid", "units": "m"}},
	}
	dir := arco.DirWriter(filepath.Join(m.Dir, "arco", GlobalProduct, static, "static.zarr"))
	return arco.WriteStore(context.Background(), dir, map[string]interface{}{"title": "static"}, arrays, arco.DefaultCodec)
}

func latitudeArray() *arco.ArrayData {
	return &arco.ArrayData{Name: "latitude", Dims: []string{"latitude"}, Shape: []int{len(Latitudes)}, DType: "<f4",
		Data: Latitudes, Attrs: map[string]interface{}{"units": "degrees_north", "standard_name": "latitude", "axis": "Y"}}
}

func longitudeArray() *arco.ArrayData {
	return &arco.ArrayData{Name: "longitude", Dims: []string{"longitude"}, Shape: []int{len(Longitudes)}, DType: "<f4",
		Data: Longitudes, Attrs: map[string]interface{}{"units": "degrees_east", "standard_name": "longitude", "axis": "X"}}
}

// TimeUnits are the units of the time coordinate of the ARCO stores.
const TimeUnits = "hours since 1950-01-01"

func writeThetaoStore(dir string, chunks [4]int) error {
	units, err := arco.ParseTimeUnits(TimeUnits)
	if err != nil {
		return err
	}
	times := make([]float64, len(Times))
	for i, t := range Times {
		times[i] = units.Value(t)
	}
	shape := []int{len(Times), len(Depths), len(Latitudes), len(Longitudes)}
	thetao := make([]float64, 0, shape[0]*shape[1]*shape[2]*shape[3])
	so := make([]float64, 0, cap(thetao))
	for t := range Times {
		for z := range Depths {
			for y := range Latitudes {
				for x := range Longitudes {
					thetao = append(thetao, ThetaoValue(t, z, y, x))
					so = append(so, SoValue(t, z, y, x))
				}
			}
		}
	}
	dims := []string{"time", "depth", "latitude", "longitude"}
	arrays := []*arco.ArrayData{
		{Name: "time", Dims: []string{"time"}, Shape: []int{len(Times)}, DType: "<f8", Data: times,
			Attrs: map[string]interface{}{"units": TimeUnits, "standard_name": "time", "calendar": "standard"}},
		{Name: "depth", Dims: []string{"depth"}, Shape: []int{len(Depths)}, DType: "<f4", Data: Depths,
			Attrs: map[string]interface{}{"units": "m", "standard_name": "depth", "positive": "down"}},
		latitudeArray(), longitudeArray(),
		{Name: "thetao", Dims: dims, Shape: shape, Chunks: chunks[:], DType: "<f4", Data: thetao, FillValue: fl(math.NaN()),
			Attrs: map[string]interface{}{"standard_name": "sea_water_potential_temperature", "units": "degrees_C"}},
		{Name: "so", Dims: dims, Shape: shape, Chunks: chunks[:], DType: "<i4", Data: scaled(so, 0.001, 30), FillValue: fl(-1),
			Attrs: map[string]interface{}{"standard_name": "sea_water_salinity", "units": "1e-3",
				"scale_factor": 0.001, "add_offset": 30.0}},
	}
	attrs := map[string]interface{}{"title": "daily mean fields", "Conventions": "CF-1.6"}
	return arco.WriteStore(context.Background(), arco.DirWriter(dir), attrs, arrays, arco.DefaultCodec)
}

func scaled(v []float64, scale, offset float64) []float64 {
	o := make([]float64, len(v))
	for i, x := range v {
		o[i] = math.Round((x - offset) / scale)
	}
	return o
}

func (m *Marine) writeNWShelf() error {
	id := NWShelfDataset + "_" + NWShelfVersion
	p := product(NWShelfProduct, "Atlantic-European North West Shelf Ocean Physics Reanalysis",
		"NWSHELF reanalysis of the North West Shelf.", []string{"nwshelf", "sea-water-velocity"},
		id, id+"--ext--"+BathyPart)
	if err := m.writeJSON("metadata/"+NWShelfProduct+"/product.stac.json", p); err != nil {
		return err
	}
	for _, part := range []string{"", BathyPart} {
		itemID := id
		if part != "" {
			itemID += "--ext--" + part
		}
		it := item(itemID, "hourly currents", "2020-12-01T00:00:00.000Z")
		it.Assets["native"] = catalogue.STACAsset{Href: "file://" + filepath.Join(m.Dir, "native-bucket", "native", NWShelfProduct, itemID)}
		if err := m.writeJSON("metadata/"+NWShelfProduct+"/"+itemID+"/dataset.stac.json", it); err != nil {
			return err
		}
	}
	return nil
}

func (m *Marine) writeNative() error {
	for _, f := range NativeFiles {
		p := filepath.Join(m.NativeDir, filepath.FromSlash(f.Key))
		if err := os.MkdirAll(filepath.Dir(p), os.ModePerm); err != nil {
			return err
		}
		if err := os.WriteFile(p, []byte(f.Content), 0644); err != nil {
			return err
		}
		if err := os.Chtimes(p, f.LastModified, f.LastModified); err != nil {
			return fmt.Errorf("fakemarine: %v", err)
		}
	}
	return nil
}
