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
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/copernicusmarine/toolbox"
	"github.com/copernicusmarine/toolbox/arco"
	"github.com/ctessum/sparse"
)

// Dataframe holds a subset in long format: one row per combination of
// the dimension values.
type Dataframe struct {
	// Dims are the names of the coordinate columns.
	Dims []string

	// Variables are the names of the value columns.
	Variables []string

	Rows []Row

	timeUnits *arco.TimeUnits
}

// Row is a row of a Dataframe. Time coordinates are in the units of
// the dataset.
type Row struct {
	Coordinates []float64
	Values      []float64
}

// ReadDataframe reads every variable of d. Variables that lack some of
// the dimensions of d are repeated along them.
func ReadDataframe(ctx context.Context, d *Dataset) (*Dataframe, error) {
	f := &Dataframe{timeUnits: d.TimeUnits}
	shape := make([]int, len(d.Dims))
	pos := make(map[string]int)
	for i, dim := range d.Dims {
		f.Dims = append(f.Dims, dim.Name)
		shape[i] = dim.Len()
		pos[dim.Name] = i
	}
	data := make([]*sparse.DenseArray, len(d.Variables))
	for i, v := range d.Variables {
		f.Variables = append(f.Variables, v.Name)
		a, err := d.Read(ctx, v)
		if err != nil {
			return nil, err
		}
		data[i] = a
	}

	n := 1
	for _, s := range shape {
		n *= s
	}
	index := make([]int, len(shape))
	for r := 0; r < n; r++ {
		// Row-major decomposition of r.
		rem := r
		for i := len(shape) - 1; i >= 0; i-- {
			index[i] = rem % shape[i]
			rem /= shape[i]
		}
		row := Row{
			Coordinates: make([]float64, len(d.Dims)),
			Values:      make([]float64, len(d.Variables)),
		}
		for i, dim := range d.Dims {
			row.Coordinates[i] = dim.Values[index[i]]
		}
		for j, v := range d.Variables {
			vi := make([]int, len(v.Dims))
			for k, name := range v.Dims {
				vi[k] = index[pos[name]]
			}
			row.Values[j] = data[j].Get(vi...)
		}
		f.Rows = append(f.Rows, row)
	}
	return f, nil
}

// WriteCSV writes f as CSV with a header line. Times are ISO 8601 and
// missing values are empty.
func (f *Dataframe) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	header := append(append([]string{}, f.Dims...), f.Variables...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("subset: writing csv: %v", err)
	}
	record := make([]string, len(header))
	for _, row := range f.Rows {
		for i, v := range row.Coordinates {
			if f.Dims[i] == "time" && f.timeUnits != nil {
				record[i] = toolbox.FormatDatetime(f.timeUnits.Time(v))
				continue
			}
			record[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		for j, v := range row.Values {
			s := ""
			if !math.IsNaN(v) {
				s = strconv.FormatFloat(v, 'g', -1, 64)
			}
			record[len(f.Dims)+j] = s
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("subset: writing csv: %v", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
