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

package arco

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/copernicusmarine/toolbox"
)

// TimeUnits are CF time units such as "days since 1950-01-01".
type TimeUnits struct {
	Unit      time.Duration
	Reference time.Time
}

var timeUnitNames = map[string]time.Duration{
	"milliseconds": time.Millisecond,
	"millisecond":  time.Millisecond,
	"ms":           time.Millisecond,
	"seconds":      time.Second,
	"second":       time.Second,
	"s":            time.Second,
	"minutes":      time.Minute,
	"minute":       time.Minute,
	"hours":        time.Hour,
	"hour":         time.Hour,
	"h":            time.Hour,
	"days":         24 * time.Hour,
	"day":          24 * time.Hour,
	"d":            24 * time.Hour,
}

// ParseTimeUnits parses CF time units of the standard calendar.
func ParseTimeUnits(s string) (TimeUnits, error) {
	parts := strings.SplitN(strings.TrimSpace(s), " since ", 2)
	if len(parts) != 2 {
		return TimeUnits{}, fmt.Errorf("arco: %q are not time units", s)
	}
	unit, ok := timeUnitNames[strings.ToLower(parts[0])]
	if !ok {
		return TimeUnits{}, fmt.Errorf("arco: unsupported time unit %q", parts[0])
	}
	ref, err := toolbox.ParseDatetime(strings.TrimSpace(parts[1]))
	if err != nil {
		return TimeUnits{}, fmt.Errorf("arco: time units %q: %v", s, err)
	}
	return TimeUnits{Unit: unit, Reference: ref}, nil
}

// Time converts v to a time.
func (u TimeUnits) Time(v float64) time.Time {
	return u.Reference.Add(time.Duration(math.Round(v * float64(u.Unit))))
}

// Value converts t to a number of units.
func (u TimeUnits) Value(t time.Time) float64 {
	return float64(t.Sub(u.Reference)) / float64(u.Unit)
}

// String implements fmt.Stringer.
func (u TimeUnits) String() string {
	for _, name := range []string{"milliseconds", "seconds", "minutes", "hours", "days"} {
		if timeUnitNames[name] == u.Unit {
			return name + " since " + u.Reference.UTC().Format("2006-01-02 15:04:05")
		}
	}
	return fmt.Sprintf("%v since %s", u.Unit, u.Reference.UTC().Format("2006-01-02 15:04:05"))
}
