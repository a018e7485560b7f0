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

// Package download gets the original files of a dataset.
package download

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/copernicusmarine/toolbox"
	"github.com/copernicusmarine/toolbox/catalogue"
	"github.com/copernicusmarine/toolbox/cloud"
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"gocloud.dev/blob"
)

// ErrDeclined is returned when the confirmation of a download is declined.
var ErrDeclined = errors.New("download: declined by the user")

// Options configure Get.
type Options struct {
	Catalogue *catalogue.Client

	// Confirm is asked before downloading unless the request forces
	// the download. A nil Confirm accepts every download.
	Confirm func(*toolbox.ResponseGet) bool

	// MaxElapsedTime bounds the retries of one file. Zero means two
	// minutes.
	MaxElapsedTime time.Duration
}

func (o *Options) log() logrus.FieldLogger {
	if o.Catalogue != nil && o.Catalogue.Log != nil {
		return o.Catalogue.Log
	}
	return logrus.StandardLogger()
}

// file is a remote file selected for download.
type file struct {
	obj    *blob.ListObject
	rel    string
	url    string
	output string
}

const megabyte = 1024 * 1024

func (f *file) response() toolbox.FileGet {
	return toolbox.FileGet{
		URL:          f.url,
		Size:         float64(f.obj.Size) / megabyte,
		LastModified: f.obj.ModTime.UTC().Format(time.RFC3339),
		Output:       f.output,
	}
}

// Get downloads the original files of the dataset selected by r.
func Get(ctx context.Context, r *toolbox.GetRequest, o Options) (*toolbox.ResponseGet, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	log := o.log().WithField("dataset_id", r.DatasetID)
	sel, err := o.Catalogue.Resolve(ctx, r.DatasetID, r.DatasetVersion, r.DatasetPart)
	if err != nil {
		return nil, err
	}
	forced, err := catalogue.ParseServiceName(r.Service)
	if err != nil {
		return nil, err
	}
	svc, err := sel.Part.GetService(forced)
	if err != nil {
		return nil, err
	}
	bucket, prefix, err := cloud.OpenBucket(ctx, svc.URI)
	if err != nil {
		return nil, err
	}
	defer bucket.Close()

	objs, err := cloud.ListBlobs(ctx, bucket, prefix)
	if err != nil {
		return nil, err
	}
	match, err := newMatcher(r)
	if err != nil {
		return nil, err
	}
	outDir := r.OutputDirectory
	if outDir == "" {
		outDir = "."
	}
	datasetDir := filepath.Join(outDir, sel.Product.ProductID, sel.Dataset.DatasetID+"_"+sel.Version.Label)

	var files []*file
	remote := make(map[string]bool, len(objs))
	for _, obj := range objs {
		rel := strings.TrimPrefix(strings.TrimPrefix(obj.Key, prefix), "/")
		remote[filepath.Join(datasetDir, filepath.FromSlash(rel))] = true
		if r.IndexParts && !isIndex(rel) {
			continue
		}
		f := &file{obj: obj, rel: rel, url: cloud.ObjectURL(svc.URI, obj.Key)}
		if !match(f) {
			continue
		}
		if r.NoDirectories {
			f.output = filepath.Join(outDir, path.Base(rel))
		} else {
			f.output = filepath.Join(datasetDir, filepath.FromSlash(rel))
		}
		files = append(files, f)
	}
	log.WithField("files", len(files)).Info("files listed")

	if r.CreateFileList != "" {
		return createFileList(filepath.Join(outDir, r.CreateFileList), files, log)
	}

	if r.SyncDelete {
		if err := syncDelete(datasetDir, remote, r.DryRun, log); err != nil {
			return nil, err
		}
	}
	var selected []*file
	outputs := make(map[string]bool, len(files))
	for _, f := range files {
		switch {
		case r.Sync && upToDate(f):
			log.WithField("output", f.output).Debug("file up to date")
			continue
		case !r.OverwriteOutputData && !r.Sync:
			f.output = unique(f.output, outputs)
		}
		outputs[f.output] = true
		selected = append(selected, f)
	}

	resp := &toolbox.ResponseGet{Files: []toolbox.FileGet{}}
	var total int64
	for _, f := range selected {
		resp.Files = append(resp.Files, f.response())
		total += f.obj.Size
		if r.ShowOutputnames {
			log.WithField("output", f.output).Info("output")
		}
	}
	log.WithFields(logrus.Fields{"files": len(selected), "size": humanize.IBytes(uint64(total))}).Info("download estimated")
	if r.DryRun {
		log.Info("dry run: no file is downloaded")
		return resp, nil
	}
	if !r.ForceDownload && o.Confirm != nil && !o.Confirm(resp) {
		return nil, ErrDeclined
	}
	d := &downloader{
		bucket:         bucket,
		maxConcurrent:  r.MaxConcurrentRequests,
		maxElapsedTime: o.MaxElapsedTime,
		log:            log,
	}
	if err := d.download(ctx, selected); err != nil {
		return nil, err
	}
	log.Info("download done")
	return resp, nil
}

func isIndex(rel string) bool {
	base := path.Base(rel)
	return strings.HasPrefix(base, "index_") && strings.HasSuffix(base, ".txt")
}

// upToDate returns whether the local copy of f has the remote size and
// is not older than the remote file.
func upToDate(f *file) bool {
	fi, err := os.Stat(f.output)
	if err != nil {
		return false
	}
	return fi.Size() == f.obj.Size && !fi.ModTime().Before(f.obj.ModTime)
}

// unique returns p, or p suffixed with "_(n)" before its extension
// for the smallest n that neither exists nor is taken.
func unique(p string, taken map[string]bool) string {
	ext := filepath.Ext(p)
	base := strings.TrimSuffix(p, ext)
	for i := 0; ; i++ {
		n := p
		if i > 0 {
			n = fmt.Sprintf("%s_(%d)%s", base, i, ext)
		}
		if _, err := os.Stat(n); os.IsNotExist(err) && !taken[n] {
			return n
		}
	}
}

// syncDelete removes the files under dir that are not in keep, the
// local paths of every object of the remote dataset.
func syncDelete(dir string, keep map[string]bool, dryRun bool, log logrus.FieldLogger) error {
	err := filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() || keep[p] {
			return nil
		}
		log.WithField("path", p).Info("deleting local file absent from the remote dataset")
		if dryRun {
			return nil
		}
		return os.Remove(p)
	})
	if err != nil {
		return fmt.Errorf("download: sync delete: %v", err)
	}
	return nil
}
