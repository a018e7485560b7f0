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

package download

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/copernicusmarine/toolbox"
	"github.com/copernicusmarine/toolbox/cloud"
	"github.com/sirupsen/logrus"
	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
	"golang.org/x/sync/errgroup"
)

type downloader struct {
	bucket         *blob.Bucket
	maxConcurrent  int
	maxElapsedTime time.Duration
	log            logrus.FieldLogger

	// chtimes sets modification times; os.Chtimes if nil.
	chtimes func(name string, atime, mtime time.Time) error
}

// download fetches files concurrently.
func (d *downloader) download(ctx context.Context, files []*file) error {
	limit := d.maxConcurrent
	if limit <= 0 {
		limit = toolbox.DefaultMaxConcurrentRequests
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			if err := d.retry(ctx, f); err != nil {
				return err
			}
			d.log.WithFields(logrus.Fields{
				"output":   f.output,
				"progress": fmt.Sprintf("%d/%d", i+1, len(files)),
			}).Debug("file downloaded")
			return nil
		})
	}
	return g.Wait()
}

func (d *downloader) retry(ctx context.Context, f *file) error {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = d.maxElapsedTime
	if b.MaxElapsedTime == 0 {
		b.MaxElapsedTime = 2 * time.Minute
	}
	return backoff.RetryNotify(
		func() error {
			err := d.fetch(ctx, f)
			if err != nil && (gcerrors.Code(err) == gcerrors.NotFound || ctx.Err() != nil) {
				return backoff.Permanent(err)
			}
			return err
		},
		backoff.WithContext(b, ctx),
		func(err error, wait time.Duration) {
			d.log.WithField("url", f.url).Warnf("%v: retrying in %v", err, wait)
		},
	)
}

// fetch writes f into a temporary file next to its output, then moves
// it into place and sets its modification time.
func (d *downloader) fetch(ctx context.Context, f *file) error {
	dir := filepath.Dir(f.output)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return backoff.Permanent(fmt.Errorf("download: %v", err))
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.output)+".*")
	if err != nil {
		return backoff.Permanent(fmt.Errorf("download: %v", err))
	}
	defer os.Remove(tmp.Name())
	if err := cloud.CopyBlob(ctx, d.bucket, f.obj.Key, tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return backoff.Permanent(fmt.Errorf("download: %v", err))
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("download: %v", err)
	}
	if err := os.Rename(tmp.Name(), f.output); err != nil {
		return backoff.Permanent(fmt.Errorf("download: %v", err))
	}
	chtimes := d.chtimes
	if chtimes == nil {
		chtimes = os.Chtimes
	}
	if err := chtimes(f.output, f.obj.ModTime, f.obj.ModTime); err != nil {
		if errors.Is(err, fs.ErrPermission) {
			d.log.Warnf("Permission to modify the last modified date of the file %s is denied", f.output)
			return nil
		}
		return backoff.Permanent(fmt.Errorf("download: %v", err))
	}
	return nil
}
