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
	"strconv"
	"strings"

	"github.com/google/shlex"
)

// motuKeys maps MOTU client options to subset request keys.
var motuKeys = map[string]string{
	"product-id":    "dataset_id",
	"longitude-min": "minimum_longitude",
	"longitude-max": "maximum_longitude",
	"latitude-min":  "minimum_latitude",
	"latitude-max":  "maximum_latitude",
	"depth-min":     "minimum_depth",
	"depth-max":     "maximum_depth",
	"date-min":      "start_datetime",
	"date-max":      "end_datetime",
	"variable":      "variables",
	"out-dir":       "output_directory",
	"out-name":      "output_filename",
	"user":          "username",
	"pwd":           "password",
}

// ParseMOTURequest converts a MOTU client command line into subset
// request values by key. Single quotes stand in for double quotes.
// Options that have no subset equivalent, such as --motu or
// --service-id, are ignored, as are <PLACEHOLDER> values.
func ParseMOTURequest(request string) (map[string]interface{}, error) {
	tokens, err := shlex.Split(strings.Replace(request, "'", `"`, -1))
	if err != nil {
		return nil, invalidf("parsing MOTU API request: %v", err)
	}
	o := make(map[string]interface{})
	for i := 0; i < len(tokens); i++ {
		if !strings.HasPrefix(tokens[i], "--") {
			continue
		}
		name := strings.TrimPrefix(tokens[i], "--")
		if i+1 >= len(tokens) || strings.HasPrefix(tokens[i+1], "--") {
			continue // Option without a value.
		}
		i++
		value := tokens[i]
		key, ok := motuKeys[name]
		if !ok || (strings.HasPrefix(value, "<") && strings.HasSuffix(value, ">")) {
			continue
		}
		switch key {
		case "minimum_longitude", "maximum_longitude", "minimum_latitude",
			"maximum_latitude", "minimum_depth", "maximum_depth":
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, invalidf("MOTU API request: option --%s: %v", name, err)
			}
			o[key] = f
		case "variables":
			vars, _ := o[key].([]interface{})
			o[key] = append(vars, value)
		default:
			o[key] = value
		}
	}
	return o, nil
}
