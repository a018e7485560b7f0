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
	"time"

	"github.com/relvacode/iso8601"
)

// DatetimeLayout is the layout used to print times in responses.
const DatetimeLayout = "2006-01-02T15:04:05Z"

var datetimeLayouts = []string{
	"2006",
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// now is replaced in tests.
var now = time.Now

// ParseDatetime parses a user supplied date and time. It accepts "now",
// the layouts "YYYY", "YYYY-MM-DD", "YYYY-MM-DD HH:MM:SS" and
// "YYYY-MM-DDTHH:MM:SS", and any ISO 8601 time with fractional seconds
// or a time zone. Times without a zone are UTC. The result is in UTC.
func ParseDatetime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "now") {
		return now().UTC(), nil
	}
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	t, err := iso8601.ParseString(strings.Replace(s, " ", "T", 1))
	if err != nil {
		return time.Time{}, invalidf("%q is not a recognized datetime: %v", s, err)
	}
	return t.UTC(), nil
}

// FormatDatetime prints t in UTC in the layout used in responses.
func FormatDatetime(t time.Time) string {
	return t.UTC().Format(DatetimeLayout)
}
