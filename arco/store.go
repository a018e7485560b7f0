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

package arco

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/copernicusmarine/toolbox/cloud"
	"github.com/copernicusmarine/toolbox/internal/fetch"
	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
)

// ErrNotFound is returned by stores for missing keys.
var ErrNotFound = errors.New("arco: key not found")

// Store holds the documents and chunks of a Zarr store.
type Store interface {
	// Get returns the content of key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Location identifies the store.
	Location() string

	// Close releases the resources of the store.
	Close() error
}

// OpenStore returns the store at href: an http(s) URL or a blob
// storage location.
func OpenStore(ctx context.Context, href string, f *fetch.Client) (Store, error) {
	switch {
	case strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://"):
		if f == nil {
			f = fetch.New()
		}
		return &HTTPStore{URL: strings.TrimSuffix(href, "/"), Fetch: f}, nil
	case cloud.IsBlob(href):
		b, prefix, err := cloud.OpenBucket(ctx, href)
		if err != nil {
			return nil, err
		}
		return &BucketStore{Bucket: b, Prefix: prefix, loc: href}, nil
	}
	return nil, fmt.Errorf("arco: unsupported store location %q", href)
}

// HTTPStore reads a store served over HTTP.
type HTTPStore struct {
	URL   string
	Fetch *fetch.Client
}

// Get implements Store.
func (s *HTTPStore) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.Fetch.Get(ctx, s.URL+"/"+key)
	if errors.Is(err, fetch.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return b, err
}

// Location implements Store.
func (s *HTTPStore) Location() string { return s.URL }

// Close implements Store.
func (s *HTTPStore) Close() error { return nil }

// BucketStore reads a store in blob storage.
type BucketStore struct {
	Bucket *blob.Bucket
	Prefix string
	loc    string
}

// Get implements Store.
func (s *BucketStore) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.Bucket.ReadAll(ctx, path.Join(s.Prefix, key))
	if gcerrors.Code(err) == gcerrors.NotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("arco: reading %s: %v", key, err)
	}
	return b, nil
}

// Location implements Store.
func (s *BucketStore) Location() string { return s.loc }

// Close implements Store. It closes the bucket.
func (s *BucketStore) Close() error { return s.Bucket.Close() }

// StoreWriter receives the documents and chunks of a new store.
type StoreWriter interface {
	Put(ctx context.Context, key string, b []byte) error
}

// DirWriter writes a store into a local directory.
type DirWriter string

// Put implements StoreWriter.
func (d DirWriter) Put(ctx context.Context, key string, b []byte) error {
	p := filepath.Join(string(d), filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(p), os.ModePerm); err != nil {
		return fmt.Errorf("arco: %v", err)
	}
	if err := os.WriteFile(p, b, 0644); err != nil {
		return fmt.Errorf("arco: %v", err)
	}
	return nil
}

// BucketWriter writes a store under Prefix in a bucket.
type BucketWriter struct {
	Bucket *blob.Bucket
	Prefix string
}

// Put implements StoreWriter.
func (w *BucketWriter) Put(ctx context.Context, key string, b []byte) error {
	return cloud.WriteBlob(ctx, w.Bucket, path.Join(w.Prefix, key), b)
}
