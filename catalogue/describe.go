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
	"encoding/json"
	"fmt"
	"strings"

	"github.com/copernicusmarine/toolbox/internal/hash"
)

// DescribeOptions selects what describe returns.
type DescribeOptions struct {
	IncludeDescription bool
	IncludeDatasets    bool
	IncludeKeywords    bool
	IncludeVersions    bool
	// IncludeAll sets all of the above.
	IncludeAll bool

	// Contains keeps the products in which every token appears in
	// some text of the product, its datasets included.
	Contains []string
}

// Describe returns the products of the catalogue, filtered and
// trimmed according to o. Results are cached: identical calls give
// identical results.
func (c *Client) Describe(ctx context.Context, o DescribeOptions) (*Catalogue, error) {
	if o.IncludeAll {
		o.IncludeDescription, o.IncludeDatasets, o.IncludeKeywords, o.IncludeVersions = true, true, true, true
	}
	_, describes := caches()
	key := []byte(hash.Key(c.URL, o))
	if b, err := describes.Get(key); err == nil {
		cat := new(Catalogue)
		if err := json.Unmarshal(b, cat); err == nil {
			return cat, nil
		}
	}

	full, err := c.Load(ctx)
	if err != nil {
		return nil, err
	}
	cat := &Catalogue{Products: []Product{}}
	for _, p := range full.Products {
		ok, err := matches(p, o.Contains)
		if err != nil {
			return nil, err
		}
		if ok {
			cat.Products = append(cat.Products, trim(p, o))
		}
	}
	b, err := json.Marshal(cat)
	if err != nil {
		return nil, fmt.Errorf("catalogue: %v", err)
	}
	_ = describes.Set(key, b, documentExpiry)
	// Decode again so that cached and fresh results are alike.
	o2 := new(Catalogue)
	if err := json.Unmarshal(b, o2); err != nil {
		return nil, fmt.Errorf("catalogue: %v", err)
	}
	return o2, nil
}

// matches returns whether every token is a substring of some string
// in the JSON form of p.
func matches(p Product, tokens []string) (bool, error) {
	if len(tokens) == 0 {
		return true, nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return false, fmt.Errorf("catalogue: %v", err)
	}
	var tree interface{}
	if err := json.Unmarshal(b, &tree); err != nil {
		return false, fmt.Errorf("catalogue: %v", err)
	}
	var texts []string
	collectStrings(tree, &texts)
	for _, tok := range tokens {
		found := false
		for _, s := range texts {
			if strings.Contains(s, tok) {
				found = true
				break
			}
		}
		if !found {
			return false, nil
		}
	}
	return true, nil
}

func collectStrings(v interface{}, o *[]string) {
	switch t := v.(type) {
	case string:
		*o = append(*o, t)
	case []interface{}:
		for _, e := range t {
			collectStrings(e, o)
		}
	case map[string]interface{}:
		for _, e := range t {
			collectStrings(e, o)
		}
	}
}

func trim(p Product, o DescribeOptions) Product {
	if !o.IncludeDescription {
		p.Description = ""
	}
	if !o.IncludeKeywords {
		p.Keywords = nil
	}
	if !o.IncludeDatasets {
		p.Datasets = nil
		return p
	}
	datasets := make([]Dataset, len(p.Datasets))
	for i, d := range p.Datasets {
		if !o.IncludeVersions {
			if v, err := d.SelectVersion(""); err == nil {
				d.Versions = []Version{*v}
			}
		}
		datasets[i] = d
	}
	p.Datasets = datasets
	return p
}
