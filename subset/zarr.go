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
	"math"

	"github.com/copernicusmarine/toolbox/arco"
)

// WriteZarr writes d as a Zarr store with consolidated metadata. Each
// array is a single chunk compressed with arco.DefaultCodec.
func WriteZarr(ctx context.Context, d *Dataset, w arco.StoreWriter) error {
	var arrays []*arco.ArrayData
	for _, dim := range d.Dims {
		if !dim.coordinate {
			continue
		}
		arrays = append(arrays, &arco.ArrayData{
			Name:  dim.Name,
			Dims:  []string{dim.Name},
			Shape: []int{dim.Len()},
			DType: "<f8",
			Data:  dim.Values,
			Attrs: outputAttrs(dim.Attrs),
		})
	}
	nan := math.NaN()
	for _, v := range d.Variables {
		a, err := d.Read(ctx, v)
		if err != nil {
			return err
		}
		arrays = append(arrays, &arco.ArrayData{
			Name:      v.Name,
			Dims:      v.Dims,
			Shape:     a.Shape,
			DType:     "<f4",
			Data:      a.Elements,
			FillValue: &nan,
			Attrs:     outputAttrs(v.Attrs),
		})
	}
	return arco.WriteStore(ctx, w, d.globalAttrs(), arrays, arco.DefaultCodec)
}
