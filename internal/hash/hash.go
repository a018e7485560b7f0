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

// Package hash computes stable cache keys.
package hash

import (
	"encoding/gob"
	"fmt"
	"hash/fnv"

	"github.com/davecgh/go-spew/spew"
)

var printer = spew.ConfigState{
	Indent:                  " ",
	SortKeys:                true,
	DisableMethods:          true,
	SpewKeys:                true,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
}

// Key returns a hex key identifying the given objects. Equal values
// give equal keys, including maps and values gob cannot encode.
func Key(objects ...interface{}) string {
	h := fnv.New128a()
	e := gob.NewEncoder(h)
	for _, o := range objects {
		if _, isMap := o.(map[string]interface{}); !isMap {
			if err := e.Encode(o); err == nil {
				continue
			}
		}
		// Map order and NaN values make gob unstable or failing.
		printer.Fprintf(h, "%#v", o)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
