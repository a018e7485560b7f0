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
	"math"
	"path/filepath"
	"regexp"
	"time"
)

// These are the bounds accepted for subset coordinates.
const (
	MinLatitude  = -90.
	MaxLatitude  = 90.
	MinDepth     = 0.
	MaxDepth     = 10000.
	minLongitude = -180.
	maxLongitude = 360.
)

// GeographicalParameters holds the requested horizontal bounds.
// Nil bounds are unconstrained.
type GeographicalParameters struct {
	MinimumLongitude, MaximumLongitude *float64
	MinimumLatitude, MaximumLatitude   *float64
}

// TemporalParameters holds the requested time bounds.
type TemporalParameters struct {
	StartDatetime, EndDatetime *time.Time
}

// DepthParameters holds the requested depth bounds and how the
// vertical axis is written.
type DepthParameters struct {
	MinimumDepth, MaximumDepth *float64
	VerticalDimensionOutput    VerticalDimensionOutput
}

// SubsetParameters holds the validated selection of a subset request.
type SubsetParameters struct {
	Variables                  []string
	Geographical               GeographicalParameters
	Temporal                   TemporalParameters
	Depth                      DepthParameters
	CoordinatesSelectionMethod CoordinatesSelectionMethod
}

// NormalizeLongitude reduces x to the interval [-180; 360[.
func NormalizeLongitude(x float64) float64 {
	if x >= minLongitude && x < maxLongitude {
		return x
	}
	x = math.Mod(x+180, 360)
	if x < 0 {
		x += 360
	}
	return x - 180
}

// Parameters validates the selection in r and returns it with
// longitudes normalized and datetimes parsed.
func (r *SubsetRequest) Parameters() (*SubsetParameters, error) {
	p := new(SubsetParameters)
	p.Variables = r.Variables

	var err error
	if p.CoordinatesSelectionMethod, err = ParseCoordinatesSelectionMethod(string(r.CoordinatesSelectionMethod)); err != nil {
		return nil, err
	}
	if p.Depth.VerticalDimensionOutput, err = ParseVerticalDimensionOutput(string(r.VerticalDimensionOutput)); err != nil {
		return nil, err
	}

	g := &p.Geographical
	if r.MinimumLongitude != nil && r.MaximumLongitude != nil &&
		*r.MaximumLongitude-*r.MinimumLongitude >= 360 {
		g.MinimumLongitude, g.MaximumLongitude = Float64(-180), Float64(180)
	} else {
		if r.MinimumLongitude != nil {
			g.MinimumLongitude = Float64(NormalizeLongitude(*r.MinimumLongitude))
		}
		if r.MaximumLongitude != nil {
			g.MaximumLongitude = Float64(NormalizeLongitude(*r.MaximumLongitude))
		}
	}
	if err := checkRange("latitude", r.MinimumLatitude, r.MaximumLatitude, MinLatitude, MaxLatitude); err != nil {
		return nil, err
	}
	g.MinimumLatitude, g.MaximumLatitude = r.MinimumLatitude, r.MaximumLatitude

	if err := checkRange("depth", r.MinimumDepth, r.MaximumDepth, MinDepth, MaxDepth); err != nil {
		return nil, err
	}
	p.Depth.MinimumDepth, p.Depth.MaximumDepth = r.MinimumDepth, r.MaximumDepth

	if r.StartDatetime != "" {
		t, err := ParseDatetime(r.StartDatetime)
		if err != nil {
			return nil, err
		}
		p.Temporal.StartDatetime = &t
	}
	if r.EndDatetime != "" {
		t, err := ParseDatetime(r.EndDatetime)
		if err != nil {
			return nil, err
		}
		p.Temporal.EndDatetime = &t
	}
	if p.Temporal.StartDatetime != nil && p.Temporal.EndDatetime != nil &&
		p.Temporal.StartDatetime.After(*p.Temporal.EndDatetime) {
		return nil, invalidf("start datetime %s is after end datetime %s",
			FormatDatetime(*p.Temporal.StartDatetime), FormatDatetime(*p.Temporal.EndDatetime))
	}
	return p, nil
}

func checkRange(name string, min, max *float64, lower, upper float64) error {
	for _, v := range []*float64{min, max} {
		if v != nil && (*v < lower || *v > upper) {
			return invalidf("%s %g is not within [%g; %g]", name, *v, lower, upper)
		}
	}
	if min != nil && max != nil && *min > *max {
		return invalidf("minimum %s %g is greater than maximum %s %g", name, *min, name, *max)
	}
	return nil
}

// Validate checks the options of r that do not concern the selection.
func (r *SubsetRequest) Validate() error {
	if r.DatasetID == "" {
		return invalidf("a dataset ID is required")
	}
	if _, err := ParseFileFormat(string(r.FileFormat)); err != nil {
		return err
	}
	if _, err := ParseLogLevel(string(r.LogLevel)); err != nil {
		return err
	}
	if l := r.NetCDFCompressionLevel; l != nil && (*l < 0 || *l > 9) {
		return invalidf("netcdf compression level %d is not within [0; 9]", *l)
	}
	if r.MaxConcurrentRequests < 0 {
		return invalidf("max concurrent requests must not be negative")
	}
	_, err := r.Parameters()
	return err
}

// Validate checks the options of r.
func (r *GetRequest) Validate() error {
	if r.DatasetID == "" {
		return invalidf("a dataset ID is required")
	}
	if _, err := ParseLogLevel(string(r.LogLevel)); err != nil {
		return err
	}
	if r.NoDirectories && r.Sync {
		return invalidf("sync and no-directories options are not compatible")
	}
	if r.SyncDelete && !r.Sync {
		r.Sync = true
	}
	if r.Sync && r.DatasetVersion == "" {
		return invalidf("sync requires to set a dataset version; please use the dataset-version option")
	}
	if r.CreateFileList != "" {
		if ext := filepath.Ext(r.CreateFileList); ext != ".txt" && ext != ".csv" {
			return invalidf("create-file-list %q must end with '.txt' or '.csv'", r.CreateFileList)
		}
	}
	if r.Regex != "" {
		if _, err := regexp.Compile(r.Regex); err != nil {
			return invalidf("regex: %v", err)
		}
	}
	if r.MaxConcurrentRequests < 0 {
		return invalidf("max concurrent requests must not be negative")
	}
	return nil
}
