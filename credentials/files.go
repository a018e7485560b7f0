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

package credentials

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-ini/ini"
	"github.com/google/shlex"
)

// netrcMachines are the hosts looked up in .netrc files, in order.
var netrcMachines = []string{"auth.marine.copernicus.eu", "my.cmems-du.eu", "nrt.cmems-du.eu"}

// ReadFile reads credentials from a file. The format is chosen from the
// file name: .netrc and _netrc files, motuclient .ini files, and
// otherwise the toolbox configuration file.
func ReadFile(path string) (Credentials, error) {
	base := filepath.Base(path)
	switch {
	case strings.Contains(base, "netrc"):
		return readNetrc(path)
	case strings.HasSuffix(base, ".ini"):
		return readINI(path, "Main", "user", "pwd")
	default:
		return readINI(path, "credentials", "username", "password")
	}
}

func readINI(path, section, userKey, passwordKey string) (Credentials, error) {
	f, err := ini.Load(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("credentials: reading %s: %v", path, err)
	}
	s := f.Section(section)
	return Credentials{
		Username: s.Key(userKey).String(),
		Password: s.Key(passwordKey).String(),
	}, nil
}

// readNetrc reads the login and password of the first known machine
// of a netrc file, falling back to the default entry.
func readNetrc(path string) (Credentials, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("credentials: reading %s: %v", path, err)
	}
	tokens, err := shlex.Split(string(b))
	if err != nil {
		return Credentials{}, fmt.Errorf("credentials: parsing %s: %v", path, err)
	}
	entries := make(map[string]*Credentials)
	var cur *Credentials
	for i := 0; i < len(tokens); i++ {
		next := func() string {
			if i+1 < len(tokens) {
				i++
				return tokens[i]
			}
			return ""
		}
		switch tokens[i] {
		case "machine":
			name := next()
			cur = new(Credentials)
			if _, ok := entries[name]; !ok {
				entries[name] = cur
			}
		case "default":
			cur = new(Credentials)
			entries["default"] = cur
		case "login":
			if v := next(); cur != nil {
				cur.Username = v
			}
		case "password":
			if v := next(); cur != nil {
				cur.Password = v
			}
		case "account", "port":
			next()
		}
	}
	for _, m := range append(netrcMachines, "default") {
		if c, ok := entries[m]; ok {
			return *c, nil
		}
	}
	return Credentials{}, nil
}

// WriteFile writes c into the configuration file in dir, creating the
// directory if needed. The file is only readable by its owner.
func WriteFile(dir string, c Credentials) (string, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("credentials: creating configuration directory: %v", err)
	}
	cfg := ini.Empty()
	s, err := cfg.NewSection("credentials")
	if err != nil {
		return "", fmt.Errorf("credentials: %v", err)
	}
	if _, err := s.NewKey("username", c.Username); err != nil {
		return "", fmt.Errorf("credentials: %v", err)
	}
	if _, err := s.NewKey("password", c.Password); err != nil {
		return "", fmt.Errorf("credentials: %v", err)
	}
	path := filepath.Join(dir, FileName)
	w, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return "", fmt.Errorf("credentials: writing configuration file: %v", err)
	}
	// An existing file keeps its mode on open.
	if err := w.Chmod(0600); err != nil {
		w.Close()
		return "", fmt.Errorf("credentials: writing configuration file: %v", err)
	}
	if _, err := cfg.WriteTo(w); err != nil {
		w.Close()
		return "", fmt.Errorf("credentials: writing configuration file: %v", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("credentials: writing configuration file: %v", err)
	}
	return path, nil
}
