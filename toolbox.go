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

// Package toolbox holds the requests and responses shared by the
// describe, get, subset and login commands of the Copernicus Marine
// toolbox, together with request files, MOTU request parsing,
// datetime parsing and subset parameter validation.
//
// The engines live in the catalogue, arco, subset, download and
// credentials subpackages. The toolboxutil package ties them into
// command-line and library entry points.
package toolbox

import (
	"errors"
	"fmt"

	"github.com/blang/semver"
)

// Version gives the version number.
const Version = "1.3.1"

// ErrInvalidRequest is returned, wrapped, when a request does not
// pass validation.
var ErrInvalidRequest = errors.New("invalid request")

// CheckMinimumVersion returns an error if this version of the toolbox
// is older than minimum. An empty minimum is always satisfied.
func CheckMinimumVersion(minimum string) error {
	if minimum == "" {
		return nil
	}
	min, err := semver.ParseTolerant(minimum)
	if err != nil {
		return fmt.Errorf("toolbox: parsing minimum version %q: %v", minimum, err)
	}
	v := semver.MustParse(Version)
	if v.LT(min) {
		return fmt.Errorf("toolbox: version %s is not supported anymore by the catalogue; "+
			"please upgrade to version %s or later", v, min)
	}
	return nil
}

// invalidf returns an error wrapping ErrInvalidRequest.
func invalidf(format string, a ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, a...))
}
