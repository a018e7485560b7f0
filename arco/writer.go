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
	"encoding/json"
	"fmt"
	"math"
)

// DefaultCodec compresses written chunks.
var DefaultCodec = &Codec{ID: "zlib", Level: 1}

// ArrayData is an array to write.
type ArrayData struct {
	Name  string
	Dims  []string
	Shape []int

	// Chunks defaults to Shape, making a single chunk.
	Chunks []int

	// DType is a Zarr data type such as "<f4".
	DType string

	// Data holds the values in row-major order. NaN values are missing.
	Data []float64

	// FillValue is written as the fill_value of the array. NaN data of
	// integer arrays are written as FillValue.
	FillValue *float64

	Attrs map[string]interface{}
}

// WriteStore writes a Zarr store with consolidated metadata. Chunks
// are compressed with codec, or not at all if codec is nil.
func WriteStore(ctx context.Context, w StoreWriter, attrs map[string]interface{}, arrays []*ArrayData, codec *Codec) error {
	meta := make(map[string]interface{})
	put := func(key string, v interface{}, consolidate bool) error {
		b, err := json.MarshalIndent(v, "", "    ")
		if err != nil {
			return fmt.Errorf("arco: encoding %s: %v", key, err)
		}
		if consolidate {
			meta[key] = json.RawMessage(b)
		}
		return w.Put(ctx, key, b)
	}
	if attrs == nil {
		attrs = map[string]interface{}{}
	}
	if err := put(".zgroup", map[string]int{"zarr_format": 2}, true); err != nil {
		return err
	}
	if err := put(".zattrs", attrs, true); err != nil {
		return err
	}
	for _, a := range arrays {
		chunks := a.Chunks
		if chunks == nil {
			chunks = a.Shape
		}
		if err := checkArrayData(a, chunks); err != nil {
			return err
		}
		zarray := ArrayMetadata{
			ZarrFormat: 2,
			Shape:      a.Shape,
			Chunks:     chunks,
			DType:      a.DType,
			Compressor: codec,
			FillValue:  formatFillValue(a.FillValue),
			Order:      "C",
		}
		if err := put(a.Name+"/.zarray", zarray, true); err != nil {
			return err
		}
		za := map[string]interface{}{"_ARRAY_DIMENSIONS": a.Dims}
		for k, v := range a.Attrs {
			za[k] = v
		}
		if err := put(a.Name+"/.zattrs", za, true); err != nil {
			return err
		}
		if err := writeChunks(ctx, w, a, chunks, codec); err != nil {
			return err
		}
	}
	return put(".zmetadata", map[string]interface{}{
		"metadata":                 meta,
		"zarr_consolidated_format": 1,
	}, false)
}

func checkArrayData(a *ArrayData, chunks []int) error {
	if len(a.Dims) != len(a.Shape) || len(chunks) != len(a.Shape) {
		return fmt.Errorf("arco: %s: dims, shape and chunks differ in length", a.Name)
	}
	n := 1
	for i, s := range a.Shape {
		if chunks[i] <= 0 && s > 0 {
			return fmt.Errorf("arco: %s: invalid chunk length %d", a.Name, chunks[i])
		}
		n *= s
	}
	if len(a.Data) != n {
		return fmt.Errorf("arco: %s: %d values for shape %v", a.Name, len(a.Data), a.Shape)
	}
	if _, err := parseDType(a.DType); err != nil {
		return err
	}
	return nil
}

func writeChunks(ctx context.Context, w StoreWriter, a *ArrayData, chunks []int, codec *Codec) error {
	dt, _ := parseDType(a.DType)
	fill := math.NaN()
	if a.FillValue != nil {
		fill = *a.FillValue
	} else if !dt.isFloat() {
		fill = 0
	}
	grid := make([][]int, len(a.Shape))
	for dim, s := range a.Shape {
		if s == 0 {
			return nil
		}
		for c := 0; c*chunks[dim] < s; c++ {
			grid[dim] = append(grid[dim], c)
		}
	}
	arr := &Array{Name: a.Name, Chunks: chunks}
	chunkLen := arr.chunkLen()
	var err error
	forEachCombination(grid, func(pos []int) {
		if err != nil {
			return
		}
		values := make([]float64, chunkLen)
		for i := range values {
			// Positions past the edge of the array.
			values[i] = fill
		}
		within := make([][]int, len(pos))
		for dim, c := range pos {
			for i := 0; i < chunks[dim] && c*chunks[dim]+i < a.Shape[dim]; i++ {
				within[dim] = append(within[dim], i)
			}
		}
		forEachCombination(within, func(idx []int) {
			src, dst := 0, 0
			for dim, i := range idx {
				src = src*a.Shape[dim] + pos[dim]*chunks[dim] + i
				dst = dst*chunks[dim] + i
			}
			values[dst] = a.Data[src]
		})
		var b []byte
		if b, err = codec.compress(dt.encode(values, fill)); err != nil {
			return
		}
		err = w.Put(ctx, arr.chunkKey(pos), b)
	})
	return err
}
