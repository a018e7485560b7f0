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
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDatasetNotFound is returned when no product holds the requested dataset.
	ErrDatasetNotFound = errors.New("catalogue: dataset not found")

	// ErrVersionNotFound is returned when the requested version does not exist.
	ErrVersionNotFound = errors.New("catalogue: dataset version not found")

	// ErrPartNotFound is returned when the requested part does not exist.
	ErrPartNotFound = errors.New("catalogue: dataset part not found")

	// ErrServiceNotAvailable is returned when a dataset part does not
	// offer the requested service.
	ErrServiceNotAvailable = errors.New("catalogue: service not available")
)

// Catalogue is the list of products of the catalogue.
type Catalogue struct {
	Products []Product `json:"products"`
}

// Product is a group of datasets.
type Product struct {
	Title                   string    `json:"title"`
	ProductID               string    `json:"product_id"`
	ThumbnailURL            string    `json:"thumbnail_url"`
	DigitalObjectIdentifier string    `json:"digital_object_identifier,omitempty"`
	Sources                 []string  `json:"sources"`
	ProcessingLevel         string    `json:"processing_level,omitempty"`
	ProductionCenter        string    `json:"production_center"`
	Keywords                []string  `json:"keywords,omitempty"`
	Description             string    `json:"description,omitempty"`
	Datasets                []Dataset `json:"datasets,omitempty"`
}

// Dataset is a dataset with its versions.
type Dataset struct {
	DatasetID   string    `json:"dataset_id"`
	DatasetName string    `json:"dataset_name"`
	Versions    []Version `json:"versions"`
}

// Version is one version of a dataset, made of parts.
type Version struct {
	Label string `json:"label"`
	Parts []Part `json:"parts"`
}

// Part is one part of a dataset version, available through services.
type Part struct {
	Name         string    `json:"name"`
	Services     []Service `json:"services"`
	ReleasedDate string    `json:"released_date,omitempty"`
	RetiredDate  string    `json:"retired_date,omitempty"`
}

// Service is a way of accessing a dataset part.
type Service struct {
	ServiceType   ServiceType `json:"service_type"`
	ServiceFormat string      `json:"service_format,omitempty"`
	URI           string      `json:"uri"`
	Variables     []Variable  `json:"variables"`
}

// ServiceType names a service.
type ServiceType struct {
	ServiceName ServiceName `json:"service_name"`
	ShortName   string      `json:"short_name"`
}

// Variable is a variable of a dataset part as seen by one service.
type Variable struct {
	ShortName    string       `json:"short_name"`
	StandardName string       `json:"standard_name"`
	Units        string       `json:"units"`
	BBox         []float64    `json:"bbox,omitempty"`
	Coordinates  []Coordinate `json:"coordinates"`
}

// Coordinate describes a dimension of a variable. Either Values is set,
// or MinimumValue, MaximumValue and Step describe a regular axis.
// Times are in milliseconds since 1970-01-01.
type Coordinate struct {
	CoordinateID   string    `json:"coordinate_id"`
	Units          string    `json:"units"`
	MinimumValue   *float64  `json:"minimum_value"`
	MaximumValue   *float64  `json:"maximum_value"`
	Step           *float64  `json:"step"`
	Values         []float64 `json:"values,omitempty"`
	ChunkingLength int       `json:"chunking_length,omitempty"`
}

// ServiceName is the long name of a service.
type ServiceName string

// These are the services.
const (
	OriginalFiles  ServiceName = "original-files"
	ArcoGeoSeries  ServiceName = "arco-geo-series"
	ArcoTimeSeries ServiceName = "arco-time-series"
	OMIArco        ServiceName = "omi-arco"
	StaticArco     ServiceName = "static-arco"
)

type serviceInfo struct {
	name      ServiceName
	shortName string
	assetKey  string
	format    string
}

var services = []serviceInfo{
	{OriginalFiles, "files", "native", ""},
	{ArcoGeoSeries, "geoseries", "geoChunked", "zarr"},
	{ArcoTimeSeries, "timeseries", "timeChunked", "zarr"},
	{OMIArco, "omi-arco", "omi", "zarr"},
	{StaticArco, "static-arco", "static", "zarr"},
}

// ParseServiceName accepts the long or short name of a service.
// An empty string gives an empty name.
func ParseServiceName(s string) (ServiceName, error) {
	if s == "" {
		return "", nil
	}
	var names []string
	for _, info := range services {
		if s == string(info.name) || s == info.shortName {
			return info.name, nil
		}
		names = append(names, string(info.name), info.shortName)
	}
	return "", fmt.Errorf("%w: %q is not one of [%s]", ErrServiceNotAvailable, s, strings.Join(names, ", "))
}

func serviceForAsset(key string) (serviceInfo, bool) {
	for _, info := range services {
		if info.assetKey == key {
			return info, true
		}
	}
	return serviceInfo{}, false
}

// Service returns the service with the given name.
func (p *Part) Service(name ServiceName) (*Service, error) {
	for i := range p.Services {
		if p.Services[i].ServiceType.ServiceName == name {
			return &p.Services[i], nil
		}
	}
	var available []string
	for _, s := range p.Services {
		available = append(available, string(s.ServiceType.ServiceName))
	}
	return nil, fmt.Errorf("%w: %s; available services are [%s]", ErrServiceNotAvailable, name, strings.Join(available, ", "))
}

// Variable returns the variable with the given short or standard name.
func (s *Service) Variable(name string) (*Variable, bool) {
	for i, v := range s.Variables {
		if v.ShortName == name {
			return &s.Variables[i], true
		}
	}
	for i, v := range s.Variables {
		if v.StandardName == name {
			return &s.Variables[i], true
		}
	}
	return nil, false
}

// Coordinate returns the coordinate with the given id.
func (v *Variable) Coordinate(id string) (*Coordinate, bool) {
	for i, c := range v.Coordinates {
		if c.CoordinateID == id {
			return &v.Coordinates[i], true
		}
	}
	return nil, false
}
