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
	"strings"
)

// FileFormat is the format of a subset output.
type FileFormat string

// These are the available output formats.
const (
	FormatNetCDF FileFormat = "netcdf"
	FormatZarr   FileFormat = "zarr"
)

// DefaultFileFormat is used when no format is requested.
const DefaultFileFormat = FormatNetCDF

// FileFormats lists the valid output formats.
var FileFormats = []string{string(FormatNetCDF), string(FormatZarr)}

// Extension returns the file extension, including the leading dot.
func (f FileFormat) Extension() string {
	if f == FormatZarr {
		return ".zarr"
	}
	return ".nc"
}

// ParseFileFormat parses s, returning the default for an empty string.
func ParseFileFormat(s string) (FileFormat, error) {
	if s == "" {
		return DefaultFileFormat, nil
	}
	if err := checkChoice("file format", s, FileFormats); err != nil {
		return "", err
	}
	return FileFormat(s), nil
}

// CoordinatesSelectionMethod specifies how requested coordinate bounds
// are matched against the coordinates of a dataset.
type CoordinatesSelectionMethod string

// These are the coordinate selection methods.
const (
	// Inside keeps the coordinates within the requested interval.
	Inside CoordinatesSelectionMethod = "inside"
	// StrictInside is Inside, but requesting an interval that exceeds
	// the dataset coordinates is an error.
	StrictInside CoordinatesSelectionMethod = "strict-inside"
	// Nearest takes the coordinates closest to the requested bounds.
	Nearest CoordinatesSelectionMethod = "nearest"
	// Outside takes the smallest set of coordinates containing the
	// whole requested interval.
	Outside CoordinatesSelectionMethod = "outside"
)

// DefaultCoordinatesSelectionMethod is used when no method is requested.
const DefaultCoordinatesSelectionMethod = Inside

// CoordinatesSelectionMethods lists the valid selection methods.
var CoordinatesSelectionMethods = []string{string(Inside), string(StrictInside), string(Nearest), string(Outside)}

// ParseCoordinatesSelectionMethod parses s, returning the default for an
// empty string.
func ParseCoordinatesSelectionMethod(s string) (CoordinatesSelectionMethod, error) {
	if s == "" {
		return DefaultCoordinatesSelectionMethod, nil
	}
	if err := checkChoice("coordinates selection method", s, CoordinatesSelectionMethods); err != nil {
		return "", err
	}
	return CoordinatesSelectionMethod(s), nil
}

// VerticalDimensionOutput specifies how the vertical axis of a subset
// is written: as depth with positive values going down, or as
// elevation with values increasing upwards.
type VerticalDimensionOutput string

// These are the vertical dimension outputs.
const (
	Depth     VerticalDimensionOutput = "depth"
	Elevation VerticalDimensionOutput = "elevation"
)

// DefaultVerticalDimensionOutput is used when no vertical output is requested.
const DefaultVerticalDimensionOutput = Depth

// VerticalDimensionOutputs lists the valid vertical dimension outputs.
var VerticalDimensionOutputs = []string{string(Depth), string(Elevation)}

// ParseVerticalDimensionOutput parses s, returning the default for an
// empty string.
func ParseVerticalDimensionOutput(s string) (VerticalDimensionOutput, error) {
	if s == "" {
		return DefaultVerticalDimensionOutput, nil
	}
	if err := checkChoice("vertical dimension output", s, VerticalDimensionOutputs); err != nil {
		return "", err
	}
	return VerticalDimensionOutput(s), nil
}

// LogLevel sets the detail of the messages printed by the commands.
type LogLevel string

// These are the log levels.
const (
	LogDebug    LogLevel = "DEBUG"
	LogInfo     LogLevel = "INFO"
	LogWarn     LogLevel = "WARN"
	LogError    LogLevel = "ERROR"
	LogCritical LogLevel = "CRITICAL"
	LogQuiet    LogLevel = "QUIET"
)

// LogLevels lists the valid log levels.
var LogLevels = []string{"DEBUG", "INFO", "WARN", "ERROR", "CRITICAL", "QUIET"}

// ParseLogLevel parses s case-insensitively, returning INFO for an
// empty string.
func ParseLogLevel(s string) (LogLevel, error) {
	if s == "" {
		return LogInfo, nil
	}
	s = strings.ToUpper(s)
	if err := checkChoice("log level", s, LogLevels); err != nil {
		return "", err
	}
	return LogLevel(s), nil
}

func checkChoice(kind, s string, choices []string) error {
	for _, c := range choices {
		if s == c {
			return nil
		}
	}
	return invalidf("%s %q is not one of [%s]", kind, s, strings.Join(choices, ", "))
}

// FileGet describes one file concerned by a get request.
type FileGet struct {
	// URL is the full location of the file server side.
	URL string `json:"url"`
	// Size is the size of the file in MB.
	Size float64 `json:"size"`
	// LastModified is the last modification date of the remote file.
	LastModified string `json:"last_modified"`
	// Output is the path of the local downloaded file.
	Output string `json:"output"`
}

// ResponseGet is returned by get.
type ResponseGet struct {
	Files []FileGet `json:"files"`
}

// GeographicalExtent is an interval of geographical coordinates.
type GeographicalExtent struct {
	Minimum *float64 `json:"minimum"`
	Maximum *float64 `json:"maximum"`
}

// TimeExtent is an interval of times as ISO 8601 strings.
type TimeExtent struct {
	Minimum *string `json:"minimum"`
	Maximum *string `json:"maximum"`
}

// DatasetCoordinatesExtent holds the bounds of a subsetted dataset.
// Depth and Elevation are mutually exclusive and are left out of the
// JSON form when nil.
type DatasetCoordinatesExtent struct {
	Longitude GeographicalExtent  `json:"longitude"`
	Latitude  GeographicalExtent  `json:"latitude"`
	Time      TimeExtent          `json:"time"`
	Depth     *GeographicalExtent `json:"depth,omitempty"`
	Elevation *GeographicalExtent `json:"elevation,omitempty"`
}

// ResponseSubset is returned by subset.
type ResponseSubset struct {
	// Output is the path to the result file.
	Output string `json:"output"`
	// Size is the estimated size of the result in MB.
	Size *float64 `json:"size"`
	// DataNeeded is the estimated maximum amount of data in MB that
	// is read to build the result.
	DataNeeded *float64 `json:"data_needed"`
	// CoordinatesExtent holds the bounds of the subsetted dataset.
	// The JSON key keeps the historical spelling.
	CoordinatesExtent DatasetCoordinatesExtent `json:"coodinates_extent"`
}

// Float64 returns a pointer to v.
func Float64(v float64) *float64 { return &v }

// String returns a pointer to s.
func String(s string) *string { return &s }
