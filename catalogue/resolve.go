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

package catalogue

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/copernicusmarine/toolbox"
)

// now is replaced in tests.
var now = time.Now

// Selection is a resolved dataset part.
type Selection struct {
	Product *Product
	Dataset *Dataset
	Version *Version
	Part    *Part
}

// Resolve loads the catalogue and selects the version and part of
// datasetID. Empty version and part select the defaults.
func (c *Client) Resolve(ctx context.Context, datasetID, version, part string) (*Selection, error) {
	cat, err := c.Load(ctx)
	if err != nil {
		return nil, err
	}
	return cat.Resolve(datasetID, version, part)
}

// Resolve selects the version and part of datasetID.
func (cat *Catalogue) Resolve(datasetID, version, part string) (*Selection, error) {
	p, d, err := cat.FindDataset(datasetID)
	if err != nil {
		return nil, err
	}
	v, err := d.SelectVersion(version)
	if err != nil {
		return nil, err
	}
	pt, err := v.SelectPart(part)
	if err != nil {
		return nil, err
	}
	return &Selection{Product: p, Dataset: d, Version: v, Part: pt}, nil
}

// FindDataset returns the dataset with the given id and its product.
func (cat *Catalogue) FindDataset(id string) (*Product, *Dataset, error) {
	for i := range cat.Products {
		p := &cat.Products[i]
		for j := range p.Datasets {
			if p.Datasets[j].DatasetID == id {
				return p, &p.Datasets[j], nil
			}
		}
	}
	return nil, nil, fmt.Errorf("%w: %s; please check that the dataset exists and "+
		"the input datasetID is correct", ErrDatasetNotFound, id)
}

// SelectVersion returns the version with the given label or, if label
// is empty, the latest released version.
func (d *Dataset) SelectVersion(label string) (*Version, error) {
	if len(d.Versions) == 0 {
		return nil, fmt.Errorf("%w: dataset %s has no version", ErrVersionNotFound, d.DatasetID)
	}
	if label != "" {
		var labels []string
		for i := range d.Versions {
			if d.Versions[i].Label == label {
				return &d.Versions[i], nil
			}
			labels = append(labels, d.Versions[i].Label)
		}
		return nil, fmt.Errorf("%w: %s of dataset %s; available versions are [%s]",
			ErrVersionNotFound, label, d.DatasetID, strings.Join(labels, ", "))
	}
	order := make([]int, len(d.Versions))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return d.Versions[order[a]].Label > d.Versions[order[b]].Label })
	for _, i := range order {
		if d.Versions[i].Released() {
			return &d.Versions[i], nil
		}
	}
	return &d.Versions[order[0]], nil
}

// Released returns whether some part of v is released and not retired.
func (v *Version) Released() bool {
	for _, p := range v.Parts {
		if p.Released() {
			return true
		}
	}
	return false
}

// Released returns whether p is released and not retired.
func (p *Part) Released() bool {
	t := now()
	if p.ReleasedDate != "" {
		if r, err := toolbox.ParseDatetime(p.ReleasedDate); err == nil && r.After(t) {
			return false
		}
	}
	if p.RetiredDate != "" {
		if r, err := toolbox.ParseDatetime(p.RetiredDate); err == nil && !r.After(t) {
			return false
		}
	}
	return true
}

// SelectPart returns the part with the given name or, if name is
// empty, the default part, or else the first one.
func (v *Version) SelectPart(name string) (*Part, error) {
	if len(v.Parts) == 0 {
		return nil, fmt.Errorf("%w: version %s has no part", ErrPartNotFound, v.Label)
	}
	want := name
	if want == "" {
		want = DefaultPart
	}
	var names []string
	for i := range v.Parts {
		if v.Parts[i].Name == want {
			return &v.Parts[i], nil
		}
		names = append(names, v.Parts[i].Name)
	}
	if name == "" {
		return &v.Parts[0], nil
	}
	return nil, fmt.Errorf("%w: %s; available parts are [%s]", ErrPartNotFound, name, strings.Join(names, ", "))
}

// GetService returns the original files service of p. Forcing any
// other service is an error.
func (p *Part) GetService(forced ServiceName) (*Service, error) {
	if forced != "" && forced != OriginalFiles {
		return nil, fmt.Errorf("%w: %s cannot be used to get original files", ErrServiceNotAvailable, forced)
	}
	return p.Service(OriginalFiles)
}

// Bounds holds requested intervals by coordinate id. Nil ends are
// open. Times are in milliseconds since 1970-01-01.
type Bounds map[string][2]*float64

// SubsetService returns the service used to subset p: the forced one,
// the static or OMI service when p has one, or else the ARCO series
// reading fewer chunks for the request. Ties go to the geographical
// series.
func (p *Part) SubsetService(forced ServiceName, variables []string, b Bounds) (*Service, error) {
	if forced == OriginalFiles {
		return nil, fmt.Errorf("%w: %s cannot be used to subset", ErrServiceNotAvailable, forced)
	}
	if forced != "" {
		return p.Service(forced)
	}
	for _, name := range []ServiceName{StaticArco, OMIArco} {
		if s, err := p.Service(name); err == nil {
			return s, nil
		}
	}
	geo, geoErr := p.Service(ArcoGeoSeries)
	ts, tsErr := p.Service(ArcoTimeSeries)
	switch {
	case geoErr != nil && tsErr != nil:
		return nil, fmt.Errorf("%w: no ARCO service in part %s", ErrServiceNotAvailable, p.Name)
	case geoErr != nil:
		return ts, nil
	case tsErr != nil:
		return geo, nil
	}
	if ts.Chunks(variables, b) < geo.Chunks(variables, b) {
		return ts, nil
	}
	return geo, nil
}

// Chunks estimates the number of chunks of s read for the given
// variables and bounds. All variables count when none is given.
func (s *Service) Chunks(variables []string, b Bounds) int {
	var vars []*Variable
	if len(variables) == 0 {
		for i := range s.Variables {
			vars = append(vars, &s.Variables[i])
		}
	}
	for _, name := range variables {
		if v, ok := s.Variable(name); ok {
			vars = append(vars, v)
		}
	}
	total := 0
	for _, v := range vars {
		n := 1
		for _, c := range v.Coordinates {
			if c.ChunkingLength <= 0 {
				continue
			}
			lo, hi := c.indexRange(b[c.CoordinateID])
			n *= hi/c.ChunkingLength - lo/c.ChunkingLength + 1
		}
		total += n
	}
	return total
}

// Len returns the number of values of c.
func (c *Coordinate) Len() int {
	if len(c.Values) > 0 {
		return len(c.Values)
	}
	if c.MinimumValue == nil || c.MaximumValue == nil || c.Step == nil || *c.Step == 0 {
		return 1
	}
	return int(math.Round((*c.MaximumValue-*c.MinimumValue) / *c.Step)) + 1
}

// indexRange returns the first and last indices of c within the
// interval b.
func (c *Coordinate) indexRange(b [2]*float64) (int, int) {
	n := c.Len()
	if len(c.Values) > 0 {
		lo, hi := -1, -1
		for i, x := range c.Values {
			if (b[0] == nil || x >= *b[0]) && (b[1] == nil || x <= *b[1]) {
				if lo < 0 {
					lo = i
				}
				hi = i
			}
		}
		if lo < 0 {
			return 0, 0
		}
		return lo, hi
	}
	if c.MinimumValue == nil || c.Step == nil || *c.Step == 0 {
		return 0, n - 1
	}
	clamp := func(i int) int {
		if i < 0 {
			return 0
		}
		if i > n-1 {
			return n - 1
		}
		return i
	}
	lo, hi := 0, n-1
	if b[0] != nil {
		lo = clamp(int(math.Floor((*b[0] - *c.MinimumValue) / *c.Step)))
	}
	if b[1] != nil {
		hi = clamp(int(math.Ceil((*b[1] - *c.MinimumValue) / *c.Step)))
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo, hi
}
