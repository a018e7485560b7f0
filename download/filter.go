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

package download

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/copernicusmarine/toolbox"
	"github.com/gobwas/glob"
)

// newMatcher returns the filter selecting the files of r.
func newMatcher(r *toolbox.GetRequest) (func(*file) bool, error) {
	var tests []func(*file) bool
	if r.Filter != "" {
		// No separators: '*' also matches '/'.
		g, err := glob.Compile(r.Filter)
		if err != nil {
			return nil, fmt.Errorf("%w: filter %q: %v", toolbox.ErrInvalidRequest, r.Filter, err)
		}
		tests = append(tests, func(f *file) bool { return g.Match(f.url) })
	}
	if r.Regex != "" {
		re, err := regexp.Compile(r.Regex)
		if err != nil {
			return nil, fmt.Errorf("%w: regex %q: %v", toolbox.ErrInvalidRequest, r.Regex, err)
		}
		tests = append(tests, func(f *file) bool { return re.MatchString(f.url) })
	}
	if r.FileList != "" {
		paths, err := readFileList(r.FileList)
		if err != nil {
			return nil, err
		}
		tests = append(tests, func(f *file) bool {
			for _, p := range paths {
				if strings.HasSuffix(f.url, p) || strings.HasSuffix(f.obj.Key, strings.TrimPrefix(p, "/")) {
					return true
				}
			}
			return false
		})
	}
	return func(f *file) bool {
		for _, t := range tests {
			if !t(f) {
				return false
			}
		}
		return true
	}, nil
}

// readFileList reads the non-empty lines of a file list.
func readFileList(p string) ([]string, error) {
	fh, err := os.Open(p)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: file list %s does not exist", toolbox.ErrInvalidRequest, p)
	}
	if err != nil {
		return nil, fmt.Errorf("download: %v", err)
	}
	defer fh.Close()
	var o []string
	s := bufio.NewScanner(fh)
	for s.Scan() {
		if line := strings.TrimSpace(s.Text()); line != "" {
			o = append(o, line)
		}
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("download: reading file list %s: %v", p, err)
	}
	return o, nil
}
