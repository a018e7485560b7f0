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
	"sort"
	"strings"
)

// These are the documents of the STAC catalogue, as served.

// STACLink is a link between catalogue documents.
type STACLink struct {
	Rel   string `json:"rel"`
	Href  string `json:"href"`
	Title string `json:"title,omitempty"`
}

// STACRoot is the root document of the catalogue.
type STACRoot struct {
	ID         string `json:"id"`
	Properties struct {
		ToolboxMinimumVersion string `json:"toolbox_minimum_version,omitempty"`
	} `json:"properties"`
	Links []STACLink `json:"links"`
}

// STACProvider is an organisation involved in a product.
type STACProvider struct {
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
}

// STACProduct is the document of a product.
type STACProduct struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
	Properties  struct {
		DOI             string   `json:"sci:doi,omitempty"`
		Sources         []string `json:"sources"`
		ProcessingLevel string   `json:"processingLevel,omitempty"`
	} `json:"properties"`
	Providers []STACProvider     `json:"providers"`
	Assets    map[string]STACRef `json:"assets"`
	Links     []STACLink         `json:"links"`
}

// STACRef is a plain asset.
type STACRef struct {
	Href string `json:"href"`
}

// STACItem is the document of one part of one version of a dataset.
type STACItem struct {
	ID         string    `json:"id"`
	BBox       []float64 `json:"bbox,omitempty"`
	Properties struct {
		Title        string `json:"title"`
		ReleasedDate string `json:"admp_released_date,omitempty"`
		RetiredDate  string `json:"admp_retired_date,omitempty"`
	} `json:"properties"`
	Assets map[string]STACAsset `json:"assets"`
}

// STACAsset is a service of an item.
type STACAsset struct {
	Href          string                      `json:"href"`
	ViewDims      map[string]STACDimension    `json:"viewDims,omitempty"`
	ViewVariables map[string]STACViewVariable `json:"viewVariables,omitempty"`
}

// STACDimension describes a coordinate of an ARCO asset. Either Coords
// or Min, Max and Step are set. ChunkLen gives the chunk length along
// the dimension for each variable.
type STACDimension struct {
	Units    string         `json:"units"`
	Coords   []float64      `json:"coords,omitempty"`
	Min      *float64       `json:"min,omitempty"`
	Max      *float64       `json:"max,omitempty"`
	Step     *float64       `json:"step,omitempty"`
	ChunkLen map[string]int `json:"chunkLen,omitempty"`
}

// STACViewVariable describes a variable of an ARCO asset.
type STACViewVariable struct {
	StandardName string `json:"standardName"`
	Units        string `json:"units"`
}

const partSeparator = "--ext--"

// DefaultPart is the name of the part of datasets that have one.
const DefaultPart = "default"

// parseItemID splits an item id of the form
// <dataset_id>_<version>[--ext--<part>].
func parseItemID(id string) (datasetID, version, part string) {
	part = DefaultPart
	if i := strings.Index(id, partSeparator); i >= 0 {
		id, part = id[:i], id[i+len(partSeparator):]
	}
	i := strings.LastIndex(id, "_")
	if i < 0 {
		return id, "", part
	}
	return id[:i], id[i+1:], part
}

func (p *STACProduct) product() Product {
	o := Product{
		Title:                   p.Title,
		ProductID:               p.ID,
		DigitalObjectIdentifier: p.Properties.DOI,
		Sources:                 p.Properties.Sources,
		ProcessingLevel:         p.Properties.ProcessingLevel,
		Keywords:                p.Keywords,
		Description:             p.Description,
		ThumbnailURL:            p.Assets["thumbnail"].Href,
	}
	if o.Sources == nil {
		o.Sources = []string{}
	}
	for _, pr := range p.Providers {
		for _, r := range pr.Roles {
			if r == "producer" && o.ProductionCenter == "" {
				o.ProductionCenter = pr.Name
			}
		}
	}
	return o
}

// part converts an item to a part, resolving asset hrefs against base.
func (it *STACItem) part(name string, resolve func(string) string) Part {
	p := Part{
		Name:         name,
		ReleasedDate: it.Properties.ReleasedDate,
		RetiredDate:  it.Properties.RetiredDate,
		Services:     []Service{},
	}
	for _, info := range services {
		a, ok := it.Assets[info.assetKey]
		if !ok {
			continue
		}
		s := Service{
			ServiceType:   ServiceType{ServiceName: info.name, ShortName: info.shortName},
			ServiceFormat: info.format,
			URI:           resolve(a.Href),
			Variables:     []Variable{},
		}
		var names []string
		for v := range a.ViewVariables {
			names = append(names, v)
		}
		sort.Strings(names)
		for _, v := range names {
			vv := a.ViewVariables[v]
			s.Variables = append(s.Variables, Variable{
				ShortName:    v,
				StandardName: vv.StandardName,
				Units:        vv.Units,
				BBox:         it.BBox,
				Coordinates:  coordinates(v, a.ViewDims),
			})
		}
		p.Services = append(p.Services, s)
	}
	return p
}

var coordinateRank = map[string]int{"time": 0, "depth": 1, "elevation": 1, "latitude": 2, "longitude": 3}

func coordinates(variable string, dims map[string]STACDimension) []Coordinate {
	var ids []string
	for id := range dims {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		ri, iok := coordinateRank[ids[i]]
		rj, jok := coordinateRank[ids[j]]
		if iok != jok {
			return iok
		}
		if ri != rj {
			return ri < rj
		}
		return ids[i] < ids[j]
	})
	o := []Coordinate{}
	for _, id := range ids {
		d := dims[id]
		c := Coordinate{
			CoordinateID:   id,
			Units:          d.Units,
			Values:         d.Coords,
			MinimumValue:   d.Min,
			MaximumValue:   d.Max,
			Step:           d.Step,
			ChunkingLength: d.ChunkLen[variable],
		}
		if len(d.Coords) > 0 {
			lo, hi := d.Coords[0], d.Coords[len(d.Coords)-1]
			if lo > hi {
				lo, hi = hi, lo
			}
			c.MinimumValue, c.MaximumValue = &lo, &hi
		}
		o = append(o, c)
	}
	return o
}
