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

package toolbox

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// DefaultMaxConcurrentRequests is the default limit on simultaneous
// requests to the remote services.
const DefaultMaxConcurrentRequests = 15

// SubsetRequest holds the arguments of a subset. The JSON form is the
// format of subset request files.
type SubsetRequest struct {
	DatasetID      string   `json:"dataset_id"`
	DatasetVersion string   `json:"dataset_version,omitempty"`
	DatasetPart    string   `json:"dataset_part,omitempty"`
	Username       string   `json:"username,omitempty"`
	Password       string   `json:"password,omitempty"`
	Variables      []string `json:"variables,omitempty"`

	MinimumLongitude *float64 `json:"minimum_longitude,omitempty"`
	MaximumLongitude *float64 `json:"maximum_longitude,omitempty"`
	MinimumLatitude  *float64 `json:"minimum_latitude,omitempty"`
	MaximumLatitude  *float64 `json:"maximum_latitude,omitempty"`
	MinimumDepth     *float64 `json:"minimum_depth,omitempty"`
	MaximumDepth     *float64 `json:"maximum_depth,omitempty"`

	VerticalDimensionOutput    VerticalDimensionOutput    `json:"vertical_dimension_output,omitempty"`
	StartDatetime              string                     `json:"start_datetime,omitempty"`
	EndDatetime                string                     `json:"end_datetime,omitempty"`
	CoordinatesSelectionMethod CoordinatesSelectionMethod `json:"coordinates_selection_method,omitempty"`

	OutputFilename  string     `json:"output_filename,omitempty"`
	FileFormat      FileFormat `json:"file_format,omitempty"`
	Service         string     `json:"service,omitempty"`
	OutputDirectory string     `json:"output_directory,omitempty"`
	CredentialsFile string     `json:"credentials_file,omitempty"`
	MotuAPIRequest  string     `json:"motu_api_request,omitempty"`

	ForceDownload         bool     `json:"force_download,omitempty"`
	OverwriteOutputData   bool     `json:"overwrite_output_data,omitempty"`
	DryRun                bool     `json:"dry_run,omitempty"`
	DisableProgressBar    bool     `json:"disable_progress_bar,omitempty"`
	LogLevel              LogLevel `json:"log_level,omitempty"`
	MaxConcurrentRequests int      `json:"max_concurrent_requests,omitempty"`
	Staging               bool     `json:"staging,omitempty"`

	NetCDFCompressionEnabled bool `json:"netcdf_compression_enabled,omitempty"`
	NetCDFCompressionLevel   *int `json:"netcdf_compression_level,omitempty"`
	NetCDF3Compatible        bool `json:"netcdf3_compatible,omitempty"`
}

// GetRequest holds the arguments of a get. The JSON form is the format
// of get request files.
type GetRequest struct {
	DatasetID      string `json:"dataset_id"`
	DatasetVersion string `json:"dataset_version,omitempty"`
	DatasetPart    string `json:"dataset_part,omitempty"`
	Username       string `json:"username,omitempty"`
	Password       string `json:"password,omitempty"`

	NoDirectories   bool   `json:"no_directories,omitempty"`
	ShowOutputnames bool   `json:"show_outputnames,omitempty"`
	Filter          string `json:"filter,omitempty"`
	Regex           string `json:"regex,omitempty"`
	FileList        string `json:"file_list,omitempty"`
	CreateFileList  string `json:"create_file_list,omitempty"`
	Sync            bool   `json:"sync,omitempty"`
	SyncDelete      bool   `json:"sync_delete,omitempty"`
	IndexParts      bool   `json:"index_parts,omitempty"`

	Service         string `json:"service,omitempty"`
	OutputDirectory string `json:"output_directory,omitempty"`
	CredentialsFile string `json:"credentials_file,omitempty"`

	ForceDownload         bool     `json:"force_download,omitempty"`
	OverwriteOutputData   bool     `json:"overwrite_output_data,omitempty"`
	DryRun                bool     `json:"dry_run,omitempty"`
	DisableProgressBar    bool     `json:"disable_progress_bar,omitempty"`
	LogLevel              LogLevel `json:"log_level,omitempty"`
	MaxConcurrentRequests int      `json:"max_concurrent_requests,omitempty"`
	Staging               bool     `json:"staging,omitempty"`
}

// deprecatedKeys maps old request keys to their replacements.
var deprecatedKeys = map[string]string{
	"force_dataset_version":          "dataset_version",
	"force_dataset_part":             "dataset_part",
	"force_service":                  "service",
	"overwrite":                      "overwrite_output_data",
	"filter_with_globbing_pattern":   "filter",
	"filter_with_regular_expression": "regex",
}

var sharedRequestKeys = map[string]string{
	"dataset_id":              "string",
	"dataset_version":         "string",
	"dataset_part":            "string",
	"username":                "string",
	"password":                "string",
	"service":                 "string",
	"output_directory":        "string",
	"credentials_file":        "string",
	"force_download":          "boolean",
	"overwrite_output_data":   "boolean",
	"dry_run":                 "boolean",
	"disable_progress_bar":    "boolean",
	"log_level":               "string",
	"max_concurrent_requests": "integer",
	"staging":                 "boolean",
}

var subsetRequestSchema = compileRequestSchema("subset_request.json", sharedRequestKeys, map[string]string{
	"variables":                    "array",
	"minimum_longitude":            "number",
	"maximum_longitude":            "number",
	"minimum_latitude":             "number",
	"maximum_latitude":             "number",
	"minimum_depth":                "number",
	"maximum_depth":                "number",
	"vertical_dimension_output":    "string",
	"start_datetime":               "string",
	"end_datetime":                 "string",
	"coordinates_selection_method": "string",
	"output_filename":              "string",
	"file_format":                  "string",
	"motu_api_request":             "string",
	"netcdf_compression_enabled":   "boolean",
	"netcdf_compression_level":     "integer",
	"netcdf3_compatible":           "boolean",
})

var getRequestSchema = compileRequestSchema("get_request.json", sharedRequestKeys, map[string]string{
	"no_directories":   "boolean",
	"show_outputnames": "boolean",
	"filter":           "string",
	"regex":            "string",
	"file_list":        "string",
	"create_file_list": "string",
	"sync":             "boolean",
	"sync_delete":      "boolean",
	"index_parts":      "boolean",
})

// compileRequestSchema builds a JSON schema for a request object with
// the given keys and types. Every key may also be null, and unknown keys
// are rejected.
func compileRequestSchema(name string, keySets ...map[string]string) *jsonschema.Schema {
	props := make(map[string]interface{})
	for _, keys := range keySets {
		for k, typ := range keys {
			if typ == "array" {
				props[k] = map[string]interface{}{
					"type":  []string{"array", "null"},
					"items": map[string]string{"type": "string"},
				}
				continue
			}
			props[k] = map[string]interface{}{"type": []string{typ, "null"}}
		}
	}
	b, err := json.Marshal(map[string]interface{}{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	})
	if err != nil {
		panic(err)
	}
	return jsonschema.MustCompileString(name, string(b))
}

// ReadSubsetRequestFile reads and validates a subset request file,
// returning its values by key. Deprecated keys are renamed.
func ReadSubsetRequestFile(path string) (map[string]interface{}, error) {
	return readRequestFile(path, subsetRequestSchema)
}

// ReadGetRequestFile reads and validates a get request file,
// returning its values by key. Deprecated keys are renamed.
func ReadGetRequestFile(path string) (map[string]interface{}, error) {
	return readRequestFile(path, getRequestSchema)
}

func readRequestFile(path string, schema *jsonschema.Schema) (map[string]interface{}, error) {
	b, err := os.ReadFile(os.ExpandEnv(path))
	if err != nil {
		return nil, fmt.Errorf("toolbox: reading request file: %v", err)
	}
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, invalidf("request file %s is not valid JSON: %v", path, err)
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, invalidf("request file %s must contain a JSON object", path)
	}
	for old, key := range deprecatedKeys {
		if val, ok := m[old]; ok {
			delete(m, old)
			if _, ok := m[key]; !ok {
				m[key] = val
			}
		}
	}
	if err := schema.Validate(m); err != nil {
		return nil, invalidf("request file %s: %v", path, err)
	}
	return m, nil
}

// MergeRequest combines request values by key. Values in later layers
// take precedence over earlier ones; nil values never override.
func MergeRequest(layers ...map[string]interface{}) map[string]interface{} {
	o := make(map[string]interface{})
	for _, l := range layers {
		for k, v := range l {
			if v == nil {
				continue
			}
			o[k] = v
		}
	}
	return o
}

// DecodeSubsetRequest converts request values by key into a SubsetRequest.
func DecodeSubsetRequest(m map[string]interface{}) (*SubsetRequest, error) {
	r := new(SubsetRequest)
	if err := decodeRequest(m, r); err != nil {
		return nil, err
	}
	return r, nil
}

// DecodeGetRequest converts request values by key into a GetRequest.
func DecodeGetRequest(m map[string]interface{}) (*GetRequest, error) {
	r := new(GetRequest)
	if err := decodeRequest(m, r); err != nil {
		return nil, err
	}
	return r, nil
}

func decodeRequest(m map[string]interface{}, r interface{}) error {
	b, err := json.Marshal(m)
	if err != nil {
		return invalidf("%v", err)
	}
	if err := json.Unmarshal(b, r); err != nil {
		return invalidf("%v", err)
	}
	return nil
}

// These are the names of the files written by CreateTemplate.
const (
	SubsetTemplateName = "subset_template.json"
	GetTemplateName    = "get_template.json"
)

const subsetTemplate = `{
  "dataset_id": "cmems_mod_glo_phy-thetao_anfc_0.083deg_PT6H-i",
  "start_datetime": "2023-10-07",
  "end_datetime": "2023-10-12",
  "minimum_longitude": -85,
  "maximum_longitude": -10,
  "minimum_latitude": 35,
  "maximum_latitude": 43,
  "minimum_depth": 1,
  "maximum_depth": 10,
  "variables": [
    "thetao"
  ],
  "output_directory": "copernicusmarine_data",
  "dataset_version": null,
  "dataset_part": null,
  "service": null,
  "coordinates_selection_method": "inside",
  "vertical_dimension_output": "depth",
  "file_format": "netcdf",
  "force_download": false,
  "overwrite_output_data": false,
  "dry_run": false,
  "log_level": "INFO"
}
`

const getTemplate = `{
  "dataset_id": "cmems_obs-ins_glo_phybgcwav_mynrt_na_irr",
  "dataset_version": null,
  "dataset_part": null,
  "username": null,
  "password": null,
  "no_directories": false,
  "filter": "*01yav_200[0-2]*",
  "regex": null,
  "output_directory": "copernicusmarine_data",
  "show_outputnames": true,
  "service": "files",
  "force_download": false,
  "file_list": null,
  "sync": false,
  "sync_delete": false,
  "index_parts": false,
  "disable_progress_bar": false,
  "overwrite_output_data": false,
  "log_level": "INFO"
}
`

// CreateSubsetTemplate writes an example subset request file into dir
// and returns its path.
func CreateSubsetTemplate(dir string) (string, error) {
	return writeTemplate(dir, SubsetTemplateName, subsetTemplate)
}

// CreateGetTemplate writes an example get request file into dir
// and returns its path.
func CreateGetTemplate(dir string) (string, error) {
	return writeTemplate(dir, GetTemplateName, getTemplate)
}

func writeTemplate(dir, name, content string) (string, error) {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("toolbox: writing template: %v", err)
	}
	return path, nil
}
