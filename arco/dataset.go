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

// Package arco reads and writes Zarr (version 2) stores, the format
// of the ARCO series of the Copernicus Marine service.
package arco

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/copernicusmarine/toolbox"
	"github.com/ctessum/requestcache"
	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Array is a variable of a dataset.
type Array struct {
	Name   string
	Dims   []string
	Shape  []int
	Chunks []int
	DType  string
	Attrs  map[string]interface{}

	dtype      dtype
	compressor *Codec
	fills      []float64
	scale      float64
	offset     float64
}

// Dataset is an opened Zarr store. Data are read on demand.
type Dataset struct {
	Attrs  map[string]interface{}
	Arrays map[string]*Array

	// MaxConcurrentRequests limits the chunks read at once.
	MaxConcurrentRequests int

	Log logrus.FieldLogger

	store Store
	id    uint64
}

var openCount uint64

// Open reads the metadata of the store. The consolidated metadata are
// used when present; otherwise the arrays named in hint are read
// one by one, along with the coordinates they refer to.
func Open(ctx context.Context, store Store, hint ...string) (*Dataset, error) {
	meta := make(map[string]json.RawMessage)
	b, err := store.Get(ctx, ".zmetadata")
	switch {
	case err == nil:
		var c consolidated
		if err := json.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("arco: decoding .zmetadata: %v", err)
		}
		meta = c.Metadata
	case errors.Is(err, ErrNotFound):
		if err := readMetadata(ctx, store, meta, hint); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	d := &Dataset{
		Arrays:                make(map[string]*Array),
		Attrs:                 make(map[string]interface{}),
		MaxConcurrentRequests: toolbox.DefaultMaxConcurrentRequests,
		Log:                   logrus.StandardLogger(),
		store:                 store,
		id:                    atomic.AddUint64(&openCount, 1),
	}
	if a, ok := meta[".zattrs"]; ok {
		if err := json.Unmarshal(a, &d.Attrs); err != nil {
			return nil, fmt.Errorf("arco: decoding .zattrs: %v", err)
		}
	}
	for k, v := range meta {
		name := strings.TrimSuffix(k, "/.zarray")
		if name == k {
			continue
		}
		a, err := newArray(name, v, meta[name+"/.zattrs"])
		if err != nil {
			return nil, err
		}
		d.Arrays[name] = a
	}
	if len(d.Arrays) == 0 {
		return nil, fmt.Errorf("arco: no array in store %s", store.Location())
	}
	return d, nil
}

// readMetadata reads the unconsolidated metadata of the given arrays.
func readMetadata(ctx context.Context, store Store, meta map[string]json.RawMessage, names []string) error {
	if b, err := store.Get(ctx, ".zattrs"); err == nil {
		meta[".zattrs"] = b
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	seen := make(map[string]bool)
	for len(names) > 0 {
		name := names[0]
		names = names[1:]
		if seen[name] {
			continue
		}
		seen[name] = true
		b, err := store.Get(ctx, name+"/.zarray")
		if errors.Is(err, ErrNotFound) {
			continue
		} else if err != nil {
			return err
		}
		meta[name+"/.zarray"] = b
		attrs, err := store.Get(ctx, name+"/.zattrs")
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return err
		}
		meta[name+"/.zattrs"] = attrs
		var a struct {
			Dims []string `json:"_ARRAY_DIMENSIONS"`
		}
		if err := json.Unmarshal(attrs, &a); err == nil {
			names = append(names, a.Dims...)
		}
	}
	return nil
}

func newArray(name string, zarray, zattrs json.RawMessage) (*Array, error) {
	var m ArrayMetadata
	if err := json.Unmarshal(zarray, &m); err != nil {
		return nil, fmt.Errorf("arco: decoding %s/.zarray: %v", name, err)
	}
	if m.Order == "F" {
		return nil, fmt.Errorf("arco: %s: Fortran order is not supported", name)
	}
	if len(m.Filters) > 0 {
		return nil, fmt.Errorf("arco: %s: filters are not supported", name)
	}
	if len(m.Shape) != len(m.Chunks) {
		return nil, fmt.Errorf("arco: %s: shape and chunks differ in length", name)
	}
	if m.Compressor != nil {
		switch m.Compressor.ID {
		case "zlib", "gzip", "zstd":
		default:
			return nil, fmt.Errorf("arco: %s: unsupported compressor %q", name, m.Compressor.ID)
		}
	}
	dt, err := parseDType(m.DType)
	if err != nil {
		return nil, fmt.Errorf("arco: %s: %v", name, err)
	}
	a := &Array{
		Name:       name,
		Shape:      m.Shape,
		Chunks:     m.Chunks,
		DType:      m.DType,
		Attrs:      make(map[string]interface{}),
		dtype:      dt,
		compressor: m.Compressor,
		scale:      1,
	}
	if len(zattrs) > 0 {
		if err := json.Unmarshal(zattrs, &a.Attrs); err != nil {
			return nil, fmt.Errorf("arco: decoding %s/.zattrs: %v", name, err)
		}
	}
	if dims, ok := a.Attrs["_ARRAY_DIMENSIONS"].([]interface{}); ok {
		for _, d := range dims {
			a.Dims = append(a.Dims, fmt.Sprint(d))
		}
		delete(a.Attrs, "_ARRAY_DIMENSIONS")
	}
	if len(a.Dims) != len(a.Shape) {
		return nil, fmt.Errorf("arco: %s: %d dimension names for %d dimensions", name, len(a.Dims), len(a.Shape))
	}
	fill, err := parseFillValue(m.FillValue)
	if err != nil {
		return nil, fmt.Errorf("arco: %s: %v", name, err)
	}
	if fill != nil {
		a.fills = append(a.fills, *fill)
	}
	for _, k := range []string{"_FillValue", "missing_value"} {
		if v, ok := numberAttr(a.Attrs[k]); ok {
			a.fills = append(a.fills, v)
		}
	}
	if v, ok := numberAttr(a.Attrs["scale_factor"]); ok {
		a.scale = v
	}
	if v, ok := numberAttr(a.Attrs["add_offset"]); ok {
		a.offset = v
	}
	return a, nil
}

func numberAttr(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	}
	return 0, false
}

// StringAttr returns the attribute of a as a string, or "".
func (a *Array) StringAttr(name string) string {
	if s, ok := a.Attrs[name].(string); ok {
		return s
	}
	return ""
}

// ItemSize returns the size in bytes of one value.
func (a *Array) ItemSize() int { return a.dtype.size }

// ChunkBytes returns the uncompressed size of one chunk.
func (a *Array) ChunkBytes() int {
	n := a.dtype.size
	for _, c := range a.Chunks {
		n *= c
	}
	return n
}

// Close closes the store of d.
func (d *Dataset) Close() error { return d.store.Close() }

// DataVariables returns the sorted names of the arrays that are not
// coordinates.
func (d *Dataset) DataVariables() []string {
	dims := make(map[string]bool)
	for _, a := range d.Arrays {
		for _, dim := range a.Dims {
			dims[dim] = true
		}
	}
	var o []string
	for name := range d.Arrays {
		if !dims[name] {
			o = append(o, name)
		}
	}
	sort.Strings(o)
	return o
}

// Array returns the named array.
func (d *Dataset) Array(name string) (*Array, error) {
	a, ok := d.Arrays[name]
	if !ok {
		return nil, fmt.Errorf("arco: no array %s in store %s", name, d.store.Location())
	}
	return a, nil
}

// ReadCoordinate reads the whole of a one-dimensional array.
func (d *Dataset) ReadCoordinate(ctx context.Context, name string) ([]float64, error) {
	a, err := d.Array(name)
	if err != nil {
		return nil, err
	}
	if len(a.Shape) != 1 {
		return nil, fmt.Errorf("arco: %s has %d dimensions, not 1", name, len(a.Shape))
	}
	v, err := d.ReadVariable(ctx, name, nil)
	if err != nil {
		return nil, err
	}
	return v.Elements, nil
}

// ReadVariable reads the values of the named array at the given
// indices. sel holds, for each dimension, the indices to read in
// output order; a nil sel or a nil entry selects the whole dimension.
// Missing values are NaN. Only the chunks holding selected values are
// read.
func (d *Dataset) ReadVariable(ctx context.Context, name string, sel [][]int) (*sparse.DenseArray, error) {
	a, err := d.Array(name)
	if err != nil {
		return nil, err
	}
	sel, err = a.fullSelection(sel)
	if err != nil {
		return nil, err
	}
	outShape := make([]int, len(sel))
	for i, s := range sel {
		outShape[i] = len(s)
	}
	if len(outShape) == 0 {
		outShape = []int{1}
	}
	out := sparse.ZerosDense(outShape...)
	for _, n := range outShape {
		if n == 0 {
			return out, nil
		}
	}

	// byChunk[dim][chunk index] lists the output positions along dim
	// whose values lie in that chunk.
	byChunk := make([]map[int][]int, len(sel))
	for dim, s := range sel {
		byChunk[dim] = make(map[int][]int)
		for pos, idx := range s {
			c := idx / a.Chunks[dim]
			byChunk[dim][c] = append(byChunk[dim][c], pos)
		}
	}
	chunkIDs := make([][]int, len(sel))
	for dim := range sel {
		for c := range byChunk[dim] {
			chunkIDs[dim] = append(chunkIDs[dim], c)
		}
		sort.Ints(chunkIDs[dim])
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.limit())
	forEachCombination(chunkIDs, func(chunk []int) {
		chunk = append([]int(nil), chunk...)
		g.Go(func() error {
			values, err := d.chunk(gctx, a, chunk)
			if err != nil {
				return err
			}
			positions := make([][]int, len(chunk))
			for dim, c := range chunk {
				positions[dim] = byChunk[dim][c]
			}
			forEachCombination(positions, func(pos []int) {
				src, dst := 0, 0
				for dim, p := range pos {
					within := sel[dim][p] - chunk[dim]*a.Chunks[dim]
					src = src*a.Chunks[dim] + within
					dst = dst*outShape[dim] + p
				}
				out.Elements[dst] = values[src]
			})
			return nil
		})
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// ChunksTouched returns the number of chunks of the named array that
// ReadVariable reads for sel.
func (d *Dataset) ChunksTouched(name string, sel [][]int) (int, error) {
	a, err := d.Array(name)
	if err != nil {
		return 0, err
	}
	sel, err = a.fullSelection(sel)
	if err != nil {
		return 0, err
	}
	n := 1
	for dim, s := range sel {
		chunks := make(map[int]bool)
		for _, idx := range s {
			chunks[idx/a.Chunks[dim]] = true
		}
		n *= len(chunks)
	}
	return n, nil
}

func (a *Array) fullSelection(sel [][]int) ([][]int, error) {
	if sel != nil && len(sel) != len(a.Shape) {
		return nil, fmt.Errorf("arco: %s: selection has %d dimensions, want %d", a.Name, len(sel), len(a.Shape))
	}
	o := make([][]int, len(a.Shape))
	for dim, n := range a.Shape {
		if sel != nil && sel[dim] != nil {
			for _, idx := range sel[dim] {
				if idx < 0 || idx >= n {
					return nil, fmt.Errorf("arco: %s: index %d out of range [0; %d[ along %s", a.Name, idx, n, a.Dims[dim])
				}
			}
			o[dim] = sel[dim]
			continue
		}
		o[dim] = make([]int, n)
		for i := range o[dim] {
			o[dim][i] = i
		}
	}
	return o, nil
}

// forEachCombination calls f with every combination of one element
// from each list, the last list varying fastest.
func forEachCombination(lists [][]int, f func([]int)) {
	cur := make([]int, len(lists))
	var rec func(int)
	rec = func(dim int) {
		if dim == len(lists) {
			f(cur)
			return
		}
		for _, v := range lists[dim] {
			cur[dim] = v
			rec(dim + 1)
		}
	}
	rec(0)
}

func (d *Dataset) limit() int {
	if d.MaxConcurrentRequests > 0 {
		return d.MaxConcurrentRequests
	}
	return toolbox.DefaultMaxConcurrentRequests
}

type chunkRequest struct {
	store Store
	array *Array
	key   string
}

var (
	chunkCacheOnce sync.Once
	chunkCache     *requestcache.Cache
)

// chunks returns the cache shared by all datasets. Keys are unique to
// an opened dataset. Failed reads are not kept, so a later read of the
// same chunk fetches it again.
func chunks() *requestcache.Cache {
	chunkCacheOnce.Do(func() {
		chunkCache = requestcache.NewCache(func(ctx context.Context, payload interface{}) (interface{}, error) {
			r := payload.(chunkRequest)
			return r.array.readChunk(ctx, r.store, r.key)
		}, 2*toolbox.DefaultMaxConcurrentRequests, requestcache.Deduplicate(), requestcache.Memory(64))
	})
	return chunkCache
}

// chunk returns the decoded values of the chunk at the given grid
// position. The result is shared and must not be modified.
func (d *Dataset) chunk(ctx context.Context, a *Array, pos []int) ([]float64, error) {
	key := a.chunkKey(pos)
	req := chunks().NewRequest(ctx, chunkRequest{store: d.store, array: a, key: key}, fmt.Sprintf("%d/%s", d.id, key))
	res, err := req.Result()
	if err != nil {
		return nil, err
	}
	return res.([]float64), nil
}

func (a *Array) chunkKey(pos []int) string {
	if len(pos) == 0 {
		return a.Name + "/0"
	}
	s := make([]string, len(pos))
	for i, p := range pos {
		s[i] = strconv.Itoa(p)
	}
	return a.Name + "/" + strings.Join(s, ".")
}

func (a *Array) chunkLen() int {
	n := 1
	for _, c := range a.Chunks {
		n *= c
	}
	return n
}

// readChunk fetches and decodes a chunk. A missing chunk is all fill.
func (a *Array) readChunk(ctx context.Context, store Store, key string) ([]float64, error) {
	n := a.chunkLen()
	b, err := store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		o := make([]float64, n)
		for i := range o {
			o[i] = math.NaN()
		}
		return o, nil
	} else if err != nil {
		return nil, err
	}
	if b, err = a.compressor.decompress(b); err != nil {
		return nil, fmt.Errorf("arco: %s: %v", key, err)
	}
	o, err := a.dtype.decode(b, n)
	if err != nil {
		return nil, fmt.Errorf("arco: %s: %v", key, err)
	}
	for i, v := range o {
		if a.isFill(v) {
			o[i] = math.NaN()
			continue
		}
		o[i] = v*a.scale + a.offset
	}
	return o, nil
}

func (a *Array) isFill(v float64) bool {
	if math.IsNaN(v) {
		return true
	}
	for _, f := range a.fills {
		if v == f {
			return true
		}
	}
	return false
}
