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

// Package subset extracts a geographical, vertical and temporal
// selection of variables from the ARCO services of a dataset and
// writes it as NetCDF or Zarr.
package subset

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/copernicusmarine/toolbox"
	"github.com/copernicusmarine/toolbox/arco"
	"github.com/copernicusmarine/toolbox/catalogue"
	"github.com/copernicusmarine/toolbox/cloud"
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"gocloud.dev/blob"
)

// ErrDeclined is returned when the confirmation of a subset is declined.
var ErrDeclined = errors.New("subset: declined by the user")

// Options configure Subset.
type Options struct {
	Catalogue *catalogue.Client

	// Confirm is asked before writing the output unless the request
	// forces the download. A nil Confirm accepts every subset.
	Confirm func(*toolbox.ResponseSubset) bool
}

// Subset extracts the selection of r and writes it to the output
// directory, returning a description of the output.
func Subset(ctx context.Context, r *toolbox.SubsetRequest, o Options) (*toolbox.ResponseSubset, error) {
	d, err := Open(ctx, o.Catalogue, r)
	if err != nil {
		return nil, err
	}
	defer d.Close()
	format, err := toolbox.ParseFileFormat(string(r.FileFormat))
	if err != nil {
		return nil, err
	}
	name := r.OutputFilename
	switch {
	case name == "":
		name = d.Filename(format)
	case filepath.Ext(name) == ".zarr":
		format = toolbox.FormatZarr
	case filepath.Ext(name) == "":
		name += format.Extension()
	}

	out, err := newOutput(ctx, r.OutputDirectory)
	if err != nil {
		return nil, err
	}
	defer out.close()
	if !r.OverwriteOutputData {
		if name, err = out.unique(ctx, name, format); err != nil {
			return nil, err
		}
	}

	resp := &toolbox.ResponseSubset{
		Output:            out.location(name),
		Size:              toolbox.Float64(d.Size()),
		CoordinatesExtent: d.Extent(),
	}
	needed, err := d.DataNeeded()
	if err != nil {
		return nil, err
	}
	resp.DataNeeded = toolbox.Float64(needed)

	log := d.log.WithField("output", resp.Output)
	log.WithFields(logrus.Fields{
		"size":        humanize.IBytes(uint64(*resp.Size * megabyte)),
		"data_needed": humanize.IBytes(uint64(needed * megabyte)),
	}).Info("subset estimated")
	if r.DryRun {
		log.Info("dry run: the subset is not written")
		return resp, nil
	}
	if !r.ForceDownload && o.Confirm != nil && !o.Confirm(resp) {
		return nil, ErrDeclined
	}
	if r.NetCDFCompressionEnabled || r.NetCDFCompressionLevel != nil {
		log.Warn("netcdf output is written in the classic format, which is not compressed")
	}

	switch format {
	case toolbox.FormatZarr:
		err = out.writeZarr(ctx, d, name, r.OverwriteOutputData)
	default:
		err = out.writeNetCDF(ctx, d, name)
	}
	if err != nil {
		return nil, err
	}
	log.Info("subset written")
	return resp, nil
}

// Filename returns the default output name of d: the dataset ID
// followed by the variables and the extent of the selection.
func (d *Dataset) Filename(format toolbox.FileFormat) string {
	vars := "multi-vars"
	if len(d.Variables) == 1 {
		vars = d.Variables[0].Name
	}
	parts := []string{d.DatasetID, vars}
	e := d.Extent()
	if e.Longitude.Minimum != nil {
		parts = append(parts, hemisphere(*e.Longitude.Minimum, "E", "W")+"-"+hemisphere(*e.Longitude.Maximum, "E", "W"))
	}
	if e.Latitude.Minimum != nil {
		parts = append(parts, hemisphere(*e.Latitude.Minimum, "N", "S")+"-"+hemisphere(*e.Latitude.Maximum, "N", "S"))
	}
	for _, z := range []*toolbox.GeographicalExtent{e.Depth, e.Elevation} {
		if z != nil && z.Minimum != nil {
			parts = append(parts, fmt.Sprintf("%.2f-%.2fm", *z.Minimum, *z.Maximum))
		}
	}
	if times := d.Times(); len(times) > 0 {
		parts = append(parts, times[0].Format("2006-01-02")+"-"+times[len(times)-1].Format("2006-01-02"))
	}
	return strings.Join(parts, "_") + format.Extension()
}

func hemisphere(v float64, pos, neg string) string {
	if v < 0 {
		return fmt.Sprintf("%.2f%s", -v, neg)
	}
	return fmt.Sprintf("%.2f%s", v, pos)
}

// output is the directory receiving a subset: a local directory, or a
// prefix in a bucket.
type output struct {
	dir    string
	loc    string
	bucket *blob.Bucket
	prefix string
}

func newOutput(ctx context.Context, dir string) (*output, error) {
	if dir == "" {
		dir = "."
	}
	o := &output{dir: dir, loc: dir}
	if cloud.IsBlob(dir) {
		b, prefix, err := cloud.OpenBucket(ctx, dir)
		if err != nil {
			return nil, err
		}
		o.bucket, o.prefix = b, prefix
		return o, nil
	}
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("subset: creating output directory: %v", err)
	}
	return o, nil
}

func (o *output) close() {
	if o.bucket != nil {
		o.bucket.Close()
	}
}

func (o *output) location(name string) string {
	if o.bucket != nil {
		return strings.TrimSuffix(o.loc, "/") + "/" + name
	}
	return filepath.Join(o.dir, name)
}

func (o *output) key(name string) string { return path.Join(o.prefix, name) }

func (o *output) exists(ctx context.Context, name string, format toolbox.FileFormat) (bool, error) {
	if o.bucket == nil {
		_, err := os.Stat(filepath.Join(o.dir, name))
		if os.IsNotExist(err) {
			return false, nil
		}
		return err == nil, err
	}
	key := o.key(name)
	if format == toolbox.FormatZarr {
		key = path.Join(key, ".zmetadata")
	}
	return o.bucket.Exists(ctx, key)
}

// unique returns name, or name suffixed with "_(n)" before its
// extension for the smallest n not taken.
func (o *output) unique(ctx context.Context, name string, format toolbox.FileFormat) (string, error) {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for i := 0; ; i++ {
		n := name
		if i > 0 {
			n = fmt.Sprintf("%s_(%d)%s", base, i, ext)
		}
		ok, err := o.exists(ctx, n, format)
		if err != nil {
			return "", fmt.Errorf("subset: %v", err)
		}
		if !ok {
			return n, nil
		}
	}
}

func (o *output) writeNetCDF(ctx context.Context, d *Dataset, name string) error {
	if o.bucket == nil {
		return WriteNetCDF(ctx, d, filepath.Join(o.dir, name))
	}
	tmp, err := os.MkdirTemp("", "copernicusmarine")
	if err != nil {
		return fmt.Errorf("subset: %v", err)
	}
	defer os.RemoveAll(tmp)
	p := filepath.Join(tmp, name)
	if err := WriteNetCDF(ctx, d, p); err != nil {
		return err
	}
	f, err := os.Open(p)
	if err != nil {
		return fmt.Errorf("subset: %v", err)
	}
	defer f.Close()
	return cloud.UploadBlob(ctx, o.bucket, o.key(name), f)
}

func (o *output) writeZarr(ctx context.Context, d *Dataset, name string, overwrite bool) error {
	if o.bucket == nil {
		p := filepath.Join(o.dir, name)
		if overwrite {
			if err := os.RemoveAll(p); err != nil {
				return fmt.Errorf("subset: %v", err)
			}
		}
		return WriteZarr(ctx, d, arco.DirWriter(p))
	}
	if overwrite {
		if err := cloud.DeleteBlobDir(ctx, o.bucket, o.key(name)); err != nil {
			return err
		}
	}
	return WriteZarr(ctx, d, &arco.BucketWriter{Bucket: o.bucket, Prefix: o.key(name)})
}
