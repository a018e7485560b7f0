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

// Package catalogue reads the STAC catalogue of the Copernicus Marine
// service. It lists products for describe and resolves the dataset
// version, part and service used by get and subset.
package catalogue

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"sync"

	"github.com/coocood/freecache"
	"github.com/copernicusmarine/toolbox"
	"github.com/copernicusmarine/toolbox/internal/fetch"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// These are the root documents of the catalogue.
const (
	ProductionURL = "https://stac.marine.copernicus.eu/metadata/catalog.stac.json"
	StagingURL    = "https://stac-dta.marine.copernicus.eu/metadata/catalog.stac.json"
)

// DefaultURL returns the root document of the production or of the
// staging catalogue.
func DefaultURL(staging bool) string {
	if staging {
		return StagingURL
	}
	return ProductionURL
}

// documentExpiry is the lifetime in seconds of cached documents.
const documentExpiry = 3600

var (
	cacheOnce     sync.Once
	documentCache *freecache.Cache
	describeCache *freecache.Cache
)

func caches() (documents, describes *freecache.Cache) {
	cacheOnce.Do(func() {
		documentCache = freecache.NewCache(64 * 1024 * 1024)
		describeCache = freecache.NewCache(16 * 1024 * 1024)
	})
	return documentCache, describeCache
}

// Client reads a catalogue.
type Client struct {
	// URL is the root document of the catalogue.
	URL string

	Fetch *fetch.Client

	// MaxConcurrentRequests limits the documents fetched at once.
	MaxConcurrentRequests int

	Log logrus.FieldLogger
}

// NewClient returns a client of the catalogue rooted at rootURL.
func NewClient(rootURL string) *Client {
	return &Client{
		URL:                   rootURL,
		Fetch:                 fetch.New(),
		MaxConcurrentRequests: toolbox.DefaultMaxConcurrentRequests,
		Log:                   logrus.StandardLogger(),
	}
}

// getJSON decodes the document at u into v, going through the
// document cache.
func (c *Client) getJSON(ctx context.Context, u string, v interface{}) error {
	docs, _ := caches()
	b, err := docs.Get([]byte(u))
	if err != nil {
		c.Log.WithField("url", u).Debug("fetching catalogue document")
		if b, err = c.Fetch.Get(ctx, u); err != nil {
			return fmt.Errorf("catalogue: %v", err)
		}
		// Documents too large for the cache are fetched again next time.
		_ = docs.Set([]byte(u), b, documentExpiry)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("catalogue: decoding %s: %v", u, err)
	}
	return nil
}

func resolveRef(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

func (c *Client) limit() int {
	if c.MaxConcurrentRequests > 0 {
		return c.MaxConcurrentRequests
	}
	return toolbox.DefaultMaxConcurrentRequests
}

type productDoc struct {
	url string
	doc STACProduct
}

type itemDoc struct {
	product int
	url     string
	doc     STACItem
}

// Load reads the whole catalogue: every product with all its
// datasets, versions and parts. Products are sorted by id.
func (c *Client) Load(ctx context.Context) (*Catalogue, error) {
	var root STACRoot
	if err := c.getJSON(ctx, c.URL, &root); err != nil {
		return nil, err
	}
	if err := toolbox.CheckMinimumVersion(root.Properties.ToolboxMinimumVersion); err != nil {
		return nil, err
	}

	var products []*productDoc
	for _, l := range root.Links {
		if l.Rel == "child" {
			products = append(products, &productDoc{url: resolveRef(c.URL, l.Href)})
		}
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.limit())
	for _, p := range products {
		p := p
		g.Go(func() error { return c.getJSON(gctx, p.url, &p.doc) })
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var items []*itemDoc
	for i, p := range products {
		for _, l := range p.doc.Links {
			if l.Rel == "item" {
				items = append(items, &itemDoc{product: i, url: resolveRef(p.url, l.Href)})
			}
		}
	}
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(c.limit())
	for _, it := range items {
		it := it
		g.Go(func() error { return c.getJSON(gctx, it.url, &it.doc) })
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	c.Log.WithFields(logrus.Fields{"products": len(products), "items": len(items)}).Debug("catalogue loaded")
	return assemble(products, items), nil
}

func assemble(products []*productDoc, items []*itemDoc) *Catalogue {
	cat := &Catalogue{Products: make([]Product, len(products))}
	for i, p := range products {
		cat.Products[i] = p.doc.product()
	}
	for _, it := range items {
		p := &cat.Products[it.product]
		datasetID, version, partName := parseItemID(it.doc.ID)
		d := findOrAddDataset(p, datasetID)
		if d.DatasetName == "" || partName == DefaultPart {
			d.DatasetName = it.doc.Properties.Title
		}
		v := findOrAddVersion(d, version)
		itemURL := it.url
		v.Parts = append(v.Parts, it.doc.part(partName, func(ref string) string {
			return resolveRef(itemURL, ref)
		}))
	}
	for i := range cat.Products {
		p := &cat.Products[i]
		sort.Slice(p.Datasets, func(a, b int) bool { return p.Datasets[a].DatasetID < p.Datasets[b].DatasetID })
		for j := range p.Datasets {
			d := &p.Datasets[j]
			sort.Slice(d.Versions, func(a, b int) bool { return d.Versions[a].Label < d.Versions[b].Label })
			for k := range d.Versions {
				parts := d.Versions[k].Parts
				sort.Slice(parts, func(a, b int) bool { return parts[a].Name < parts[b].Name })
			}
		}
	}
	sort.Slice(cat.Products, func(a, b int) bool { return cat.Products[a].ProductID < cat.Products[b].ProductID })
	return cat
}

func findOrAddDataset(p *Product, id string) *Dataset {
	for i := range p.Datasets {
		if p.Datasets[i].DatasetID == id {
			return &p.Datasets[i]
		}
	}
	p.Datasets = append(p.Datasets, Dataset{DatasetID: id})
	return &p.Datasets[len(p.Datasets)-1]
}

func findOrAddVersion(d *Dataset, label string) *Version {
	for i := range d.Versions {
		if d.Versions[i].Label == label {
			return &d.Versions[i]
		}
	}
	d.Versions = append(d.Versions, Version{Label: label})
	return &d.Versions[len(d.Versions)-1]
}
