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

package toolboxutil

import (
	"fmt"
	"os"
	"strings"

	"github.com/copernicusmarine/toolbox"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// nonRequestOptions are the options that configure the command
// rather than the request it sends.
var nonRequestOptions = map[string]bool{
	"config":          true,
	"log-file":        true,
	"log-max-size":    true,
	"log-max-age":     true,
	"catalogue-url":   true,
	"auth-url":        true,
	"create-template": true,
	"request-file":    true,
}

// pathOptions are the options holding file paths, in which
// environment variables are expanded.
var pathOptions = map[string]bool{
	"output-directory": true,
	"credentials-file": true,
	"file-list":        true,
	"create-file-list": true,
}

// requestKey returns the request file key of an option.
func requestKey(name string) string {
	if name == "variable" {
		return "variables"
	}
	return strings.Replace(name, "-", "_", -1)
}

// optionValue converts the configured value of an option to the type
// of its default value. Values from environment variables and
// configuration files may have any type cast can convert.
func optionValue(name string, v interface{}) (interface{}, error) {
	var def interface{}
	for _, o := range options {
		if o.name == name {
			def = o.defaultVal
			break
		}
	}
	var err error
	switch def.(type) {
	case bool:
		v, err = cast.ToBoolE(v)
	case int:
		v, err = cast.ToIntE(v)
	case float64:
		v, err = cast.ToFloat64E(v)
	case []string:
		v, err = checkStrings(v)
	default:
		var s string
		s, err = cast.ToStringE(v)
		if pathOptions[name] {
			s = os.ExpandEnv(s)
		}
		v = s
	}
	if err != nil {
		return nil, fmt.Errorf("%w: option --%s: %v", toolbox.ErrInvalidRequest, name, err)
	}
	return v, nil
}

// checkStrings returns the values of a repeated option. A single
// string, as set in an environment variable, is split on white space.
func checkStrings(v interface{}) ([]string, error) {
	s, err := cast.ToStringSliceE(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", toolbox.ErrInvalidRequest, err)
	}
	var o []string
	for _, e := range s {
		if e = strings.TrimSpace(e); e != "" {
			o = append(o, e)
		}
	}
	return o, nil
}

// requestLayers returns the request of cmd as a request file document,
// merging from lowest to highest precedence: the configuration file,
// environment variables and default values; the request file; the
// MOTU API request, if motu is true; and the options given on the
// command line.
func requestLayers(cmd *cobra.Command, readFile func(path string) (map[string]interface{}, error), motu bool) (map[string]interface{}, error) {
	settings := make(map[string]interface{})
	given := make(map[string]interface{})
	var err error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if err != nil || nonRequestOptions[f.Name] || !Cfg.IsSet(f.Name) {
			return
		}
		var v interface{}
		if v, err = optionValue(f.Name, Cfg.Get(f.Name)); err != nil {
			return
		}
		settings[requestKey(f.Name)] = v
		if f.Changed {
			given[requestKey(f.Name)] = v
		}
	})
	if err != nil {
		return nil, err
	}

	var file map[string]interface{}
	if p := Cfg.GetString("request-file"); p != "" {
		if file, err = readFile(p); err != nil {
			return nil, err
		}
	}
	m := toolbox.MergeRequest(settings, file)
	if s, _ := m["motu_api_request"].(string); motu && s != "" {
		mr, err := toolbox.ParseMOTURequest(s)
		if err != nil {
			return nil, err
		}
		m = toolbox.MergeRequest(m, mr)
	}
	return toolbox.MergeRequest(m, given), nil
}
