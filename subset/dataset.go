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
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/copernicusmarine/toolbox"
	"github.com/copernicusmarine/toolbox/arco"
	"github.com/copernicusmarine/toolbox/catalogue"
	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"
)

var (
	// ErrCoordinatesOutOfBounds is returned by the strict-inside
	// selection when the request exceeds the dataset coordinates.
	ErrCoordinatesOutOfBounds = errors.New("subset: coordinates out of bounds")

	// ErrVariableNotFound is returned for requested variables that the
	// dataset does not hold.
	ErrVariableNotFound = errors.New("subset: variable not found")
)

// Dim is a selected dimension of a subset.
type Dim struct {
	// Name is the output name of the dimension.
	Name string

	// Source is the name of the dimension in the remote store.
	Source string

	// Index lists the selected indices of the remote coordinate.
	Index []int

	// Values are the output coordinate values.
	Values []float64

	Attrs map[string]interface{}

	// coordinate is false for dimensions without a coordinate array.
	coordinate bool
}

// Len returns the number of selected values.
func (d *Dim) Len() int { return len(d.Index) }

// Variable is a selected variable of a subset.
type Variable struct {
	// Name is the short name of the variable.
	Name string

	// Dims are the output names of the dimensions of the variable.
	Dims []string

	Attrs map[string]interface{}

	array *arco.Array
}

// Dataset is a subset of a remote dataset. Coordinates are selected
// when the dataset is opened; variable data are read on demand.
type Dataset struct {
	DatasetID string
	Selection *catalogue.Selection
	Service   *catalogue.Service

	Attrs     map[string]interface{}
	Dims      []*Dim
	Variables []*Variable

	// TimeUnits are the units of the time coordinate, if any.
	TimeUnits *arco.TimeUnits

	Parameters *toolbox.SubsetParameters

	source *arco.Dataset
	log    logrus.FieldLogger
}

// Open resolves the request against the catalogue, opens the remote
// store of the selected service and selects the coordinates.
func Open(ctx context.Context, c *catalogue.Client, r *toolbox.SubsetRequest) (*Dataset, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	p, err := r.Parameters()
	if err != nil {
		return nil, err
	}
	log := c.Log.WithField("dataset_id", r.DatasetID)

	sel, err := c.Resolve(ctx, r.DatasetID, r.DatasetVersion, r.DatasetPart)
	if err != nil {
		return nil, err
	}
	forced, err := catalogue.ParseServiceName(r.Service)
	if err != nil {
		return nil, err
	}
	svc, err := sel.Part.SubsetService(forced, p.Variables, serviceBounds(p))
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"version": sel.Version.Label,
		"part":    sel.Part.Name,
		"service": svc.ServiceType.ServiceName,
	}).Info("dataset resolved")

	var names []string
	for _, v := range p.Variables {
		cv, ok := svc.Variable(v)
		if !ok {
			var available []string
			for _, sv := range svc.Variables {
				available = append(available, sv.ShortName)
			}
			return nil, fmt.Errorf("%w: %s; the variables of dataset %s are [%s]",
				ErrVariableNotFound, v, r.DatasetID, strings.Join(available, ", "))
		}
		names = append(names, cv.ShortName)
	}

	store, err := arco.OpenStore(ctx, svc.URI, c.Fetch)
	if err != nil {
		return nil, err
	}
	src, err := arco.Open(ctx, store, names...)
	if err != nil {
		store.Close()
		return nil, err
	}
	src.MaxConcurrentRequests = c.MaxConcurrentRequests
	src.Log = log
	if len(names) == 0 {
		names = src.DataVariables()
	}

	d := &Dataset{
		DatasetID:  r.DatasetID,
		Selection:  sel,
		Service:    svc,
		Attrs:      src.Attrs,
		Parameters: p,
		source:     src,
		log:        log,
	}
	dims := make(map[string]*Dim)
	for _, name := range names {
		a, err := src.Array(name)
		if err != nil {
			src.Close()
			return nil, fmt.Errorf("%w: %s is listed in the catalogue but not in the store", ErrVariableNotFound, name)
		}
		v := &Variable{Name: name, Attrs: a.Attrs, array: a}
		for i, dim := range a.Dims {
			od, ok := dims[dim]
			if !ok {
				if od, err = d.selectDim(ctx, dim, a.Shape[i]); err != nil {
					src.Close()
					return nil, err
				}
				dims[dim] = od
				d.Dims = append(d.Dims, od)
			}
			v.Dims = append(v.Dims, od.Name)
		}
		d.Variables = append(d.Variables, v)
	}
	return d, nil
}

// serviceBounds returns the requested intervals in catalogue units.
func serviceBounds(p *toolbox.SubsetParameters) catalogue.Bounds {
	b := make(catalogue.Bounds)
	g := p.Geographical
	b["latitude"] = [2]*float64{g.MinimumLatitude, g.MaximumLatitude}
	if g.MinimumLongitude == nil || g.MaximumLongitude == nil || *g.MinimumLongitude <= *g.MaximumLongitude {
		b["longitude"] = [2]*float64{g.MinimumLongitude, g.MaximumLongitude}
	}
	b["depth"] = [2]*float64{p.Depth.MinimumDepth, p.Depth.MaximumDepth}
	ms := func(t *time.Time) *float64 {
		if t == nil {
			return nil
		}
		v := float64(t.UnixNano() / int64(time.Millisecond))
		return &v
	}
	b["time"] = [2]*float64{ms(p.Temporal.StartDatetime), ms(p.Temporal.EndDatetime)}
	return b
}

// Close closes the remote store of d.
func (d *Dataset) Close() error { return d.source.Close() }

// selectDim selects the requested values of a dimension of length n.
func (d *Dataset) selectDim(ctx context.Context, name string, n int) (*Dim, error) {
	o := &Dim{Name: name, Source: name, Attrs: map[string]interface{}{}}
	a, ok := d.source.Arrays[name]
	if !ok {
		// A dimension without coordinate keeps all its indices.
		for i := 0; i < n; i++ {
			o.Index = append(o.Index, i)
			o.Values = append(o.Values, float64(i))
		}
		return o, nil
	}
	o.coordinate = true
	for k, v := range a.Attrs {
		o.Attrs[k] = v
	}
	values, err := d.source.ReadCoordinate(ctx, name)
	if err != nil {
		return nil, err
	}
	p := d.Parameters
	method := p.CoordinatesSelectionMethod
	switch name {
	case "longitude", "lon":
		s, err := selectLongitudes(values, interval{p.Geographical.MinimumLongitude, p.Geographical.MaximumLongitude}, method, d.log)
		if err != nil {
			return nil, err
		}
		o.Index, o.Values = s.indices, s.values
		return o, nil
	case "latitude", "lat":
		o.Index, err = selectIndices(name, values, interval{p.Geographical.MinimumLatitude, p.Geographical.MaximumLatitude}, method, d.log)
	case "depth":
		o.Index, err = selectIndices(name, values, interval{p.Depth.MinimumDepth, p.Depth.MaximumDepth}, method, d.log)
		if err == nil && p.Depth.VerticalDimensionOutput == toolbox.Elevation {
			return d.elevation(o, values), nil
		}
	case "time":
		units, uerr := arco.ParseTimeUnits(a.StringAttr("units"))
		if uerr != nil {
			return nil, uerr
		}
		d.TimeUnits = &units
		var iv interval
		if t := p.Temporal.StartDatetime; t != nil {
			v := units.Value(*t)
			iv.min = &v
		}
		if t := p.Temporal.EndDatetime; t != nil {
			v := units.Value(*t)
			iv.max = &v
		}
		o.Index, err = selectIndices(name, values, iv, method, d.log)
	default:
		o.Index, err = selectIndices(name, values, interval{}, method, d.log)
	}
	if err != nil {
		return nil, err
	}
	for _, i := range o.Index {
		o.Values = append(o.Values, values[i])
	}
	return o, nil
}

// elevation turns a depth selection into an ascending elevation axis.
func (d *Dataset) elevation(o *Dim, depths []float64) *Dim {
	o.Name = "elevation"
	idx := make([]int, len(o.Index))
	for i, j := range o.Index {
		idx[len(idx)-1-i] = j
	}
	o.Index = idx
	o.Values = nil
	for _, j := range idx {
		o.Values = append(o.Values, -depths[j])
	}
	if len(o.Values) > 1 && o.Values[0] > o.Values[len(o.Values)-1] {
		// Depths were stored descending.
		for i, j := 0, len(o.Values)-1; i < j; i, j = i+1, j-1 {
			o.Values[i], o.Values[j] = o.Values[j], o.Values[i]
			o.Index[i], o.Index[j] = o.Index[j], o.Index[i]
		}
	}
	o.Attrs["positive"] = "up"
	o.Attrs["standard_name"] = "elevation"
	o.Attrs["long_name"] = "Elevation"
	return o
}

// Dim returns the dimension with the given output name.
func (d *Dataset) Dim(name string) (*Dim, bool) {
	for _, dim := range d.Dims {
		if dim.Name == name {
			return dim, true
		}
	}
	return nil, false
}

// Variable returns the variable with the given short or standard name.
func (d *Dataset) Variable(name string) (*Variable, bool) {
	for _, v := range d.Variables {
		if v.Name == name {
			return v, true
		}
	}
	for _, v := range d.Variables {
		if v.array.StringAttr("standard_name") == name {
			return v, true
		}
	}
	return nil, false
}

// Shape returns the output shape of v.
func (d *Dataset) Shape(v *Variable) []int {
	o := make([]int, len(v.Dims))
	for i, name := range v.Dims {
		dim, _ := d.Dim(name)
		o[i] = dim.Len()
	}
	return o
}

func (d *Dataset) selection(v *Variable) [][]int {
	sel := make([][]int, len(v.Dims))
	for i, name := range v.Dims {
		dim, _ := d.Dim(name)
		sel[i] = dim.Index
	}
	return sel
}

// Read reads the selected values of v. Missing values are NaN.
func (d *Dataset) Read(ctx context.Context, v *Variable) (*sparse.DenseArray, error) {
	d.log.WithField("variable", v.Name).Debug("reading variable")
	return d.source.ReadVariable(ctx, v.Name, d.selection(v))
}

// Times returns the values of the time dimension as times.
func (d *Dataset) Times() []time.Time {
	dim, ok := d.Dim("time")
	if !ok || d.TimeUnits == nil {
		return nil
	}
	o := make([]time.Time, len(dim.Values))
	for i, v := range dim.Values {
		o[i] = d.TimeUnits.Time(v)
	}
	return o
}

const megabyte = 1024 * 1024

// Size estimates the size in MB of the output: the selected values of
// every variable plus the coordinates.
func (d *Dataset) Size() float64 {
	var bytes int
	for _, v := range d.Variables {
		n := v.array.ItemSize()
		for _, s := range d.Shape(v) {
			n *= s
		}
		bytes += n
	}
	for _, dim := range d.Dims {
		bytes += 8 * dim.Len()
	}
	return float64(bytes) / megabyte
}

// DataNeeded estimates the data in MB transferred to build the output:
// every touched chunk of every variable.
func (d *Dataset) DataNeeded() (float64, error) {
	var bytes int
	for _, v := range d.Variables {
		n, err := d.source.ChunksTouched(v.Name, d.selection(v))
		if err != nil {
			return 0, err
		}
		bytes += n * v.array.ChunkBytes()
	}
	return float64(bytes) / megabyte, nil
}

// Extent returns the bounds of the selected coordinates.
func (d *Dataset) Extent() toolbox.DatasetCoordinatesExtent {
	var e toolbox.DatasetCoordinatesExtent
	for _, dim := range d.Dims {
		lo, hi := extent(dim.Values)
		g := toolbox.GeographicalExtent{Minimum: lo, Maximum: hi}
		switch dim.Name {
		case "longitude", "lon":
			e.Longitude = g
		case "latitude", "lat":
			e.Latitude = g
		case "depth":
			e.Depth = &g
		case "elevation":
			e.Elevation = &g
		case "time":
			if d.TimeUnits != nil && lo != nil {
				e.Time.Minimum = toolbox.String(toolbox.FormatDatetime(d.TimeUnits.Time(*lo)))
				e.Time.Maximum = toolbox.String(toolbox.FormatDatetime(d.TimeUnits.Time(*hi)))
			}
		}
	}
	return e
}
