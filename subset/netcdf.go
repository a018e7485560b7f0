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

package subset

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/copernicusmarine/toolbox"
	"github.com/ctessum/cdf"
)

// packingAttrs describe the stored form of values, which are written
// unpacked.
var packingAttrs = map[string]bool{
	"_FillValue":    true,
	"missing_value": true,
	"scale_factor":  true,
	"add_offset":    true,
	"dtype":         true,
}

// outputAttrs returns attrs without the packing attributes.
func outputAttrs(attrs map[string]interface{}) map[string]interface{} {
	o := make(map[string]interface{}, len(attrs))
	for k, v := range attrs {
		if !packingAttrs[k] {
			o[k] = v
		}
	}
	return o
}

// globalAttrs returns the global attributes of the output of d, with
// a line recording the subset appended to the history.
func (d *Dataset) globalAttrs() map[string]interface{} {
	o := make(map[string]interface{}, len(d.Attrs)+1)
	for k, v := range d.Attrs {
		o[k] = v
	}
	line := fmt.Sprintf("%s: subset of %s by the copernicusmarine toolbox %s",
		time.Now().UTC().Format(time.RFC3339), d.DatasetID, toolbox.Version)
	if h, ok := o["history"].(string); ok && h != "" {
		line = h + "\n" + line
	}
	o["history"] = line
	return o
}

// addAttributes adds attrs to variable v of h, in name order. Values
// that NetCDF cannot hold are written as strings.
func addAttributes(h *cdf.Header, v string, attrs map[string]interface{}) {
	names := make([]string, 0, len(attrs))
	for k := range attrs {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		if val := cdfAttr(attrs[k]); val != nil {
			h.AddAttribute(v, k, val)
		}
	}
}

func cdfAttr(v interface{}) interface{} {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return t
	case float64:
		return []float64{t}
	case float32:
		return []float32{t}
	case int:
		return []int32{int32(t)}
	case bool:
		return fmt.Sprint(t)
	case []interface{}:
		nums := make([]float64, 0, len(t))
		for _, e := range t {
			f, ok := e.(float64)
			if !ok {
				strs := make([]string, len(t))
				for i, e := range t {
					strs[i] = fmt.Sprint(e)
				}
				return strings.Join(strs, ", ")
			}
			nums = append(nums, f)
		}
		if len(nums) == 0 {
			return nil
		}
		return nums
	}
	return fmt.Sprint(v)
}

// WriteNetCDF writes d as a classic NetCDF file at path. Coordinates
// are doubles; data variables are floats with NaN as fill value.
func WriteNetCDF(ctx context.Context, d *Dataset, path string) error {
	data := make([][]float32, len(d.Variables))
	for i, v := range d.Variables {
		a, err := d.Read(ctx, v)
		if err != nil {
			return err
		}
		data[i] = make([]float32, len(a.Elements))
		for j, e := range a.Elements {
			data[i][j] = float32(e)
		}
	}

	var dims []string
	var lengths []int
	for _, dim := range d.Dims {
		dims = append(dims, dim.Name)
		lengths = append(lengths, dim.Len())
	}
	h := cdf.NewHeader(dims, lengths)
	defined := make(map[string]bool)
	for _, dim := range d.Dims {
		if !dim.coordinate {
			continue
		}
		h.AddVariable(dim.Name, []string{dim.Name}, []float64{0})
		addAttributes(h, dim.Name, outputAttrs(dim.Attrs))
		defined[dim.Name] = true
	}
	for _, v := range d.Variables {
		if defined[v.Name] {
			return fmt.Errorf("subset: variable %s is also a dimension", v.Name)
		}
		h.AddVariable(v.Name, v.Dims, []float32{0})
		h.AddAttribute(v.Name, "_FillValue", []float32{float32(math.NaN())})
		addAttributes(h, v.Name, outputAttrs(v.Attrs))
	}
	addAttributes(h, "", d.globalAttrs())
	h.Define()
	if errs := h.Check(); len(errs) > 0 {
		return fmt.Errorf("subset: netcdf header: %v", errs[0])
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("subset: %v", err)
	}
	if err := writeNetCDF(f, h, d, data); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("subset: writing %s: %v", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("subset: %v", err)
	}
	d.log.WithField("path", path).Debug("netcdf file written")
	return nil
}

// writeNetCDF writes the header h and the values of d into f.
func writeNetCDF(f *os.File, h *cdf.Header, d *Dataset, data [][]float32) error {
	nc, err := cdf.Create(f, h)
	if err != nil {
		return err
	}
	for _, dim := range d.Dims {
		if !dim.coordinate {
			continue
		}
		if err := writeVariable(nc, dim.Name, dim.Values); err != nil {
			return err
		}
	}
	for i, v := range d.Variables {
		if err := writeVariable(nc, v.Name, data[i]); err != nil {
			return err
		}
	}
	return cdf.UpdateNumRecs(f)
}

// writeVariable writes all the values of a variable.
func writeVariable(nc *cdf.File, name string, values interface{}) error {
	end := nc.Header.Lengths(name)
	start := make([]int, len(end))
	if _, err := nc.Writer(name, start, end).Write(values); err != nil {
		return fmt.Errorf("%s: %v", name, err)
	}
	return nil
}
