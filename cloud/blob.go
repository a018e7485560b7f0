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

package cloud

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"gocloud.dev/blob"
)

// ReadBlob reads the given blob from the given bucket.
func ReadBlob(ctx context.Context, bucket *blob.Bucket, key string) ([]byte, error) {
	var b bytes.Buffer
	if err := CopyBlob(ctx, bucket, key, &b); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// CopyBlob copies the given blob from the given bucket into w.
func CopyBlob(ctx context.Context, bucket *blob.Bucket, key string, w io.Writer) error {
	r, err := bucket.NewReader(ctx, key, nil)
	if err != nil {
		return fmt.Errorf("cloud: reading blob key %s: %w", key, err)
	}
	defer r.Close()
	if _, err = io.Copy(w, r); err != nil {
		return fmt.Errorf("cloud: reading blob key %s: %w", key, err)
	}
	return nil
}

// WriteBlob writes the given data to the given bucket.
func WriteBlob(ctx context.Context, bucket *blob.Bucket, key string, data []byte) error {
	return UploadBlob(ctx, bucket, key, bytes.NewReader(data))
}

// UploadBlob copies r into the given key of the given bucket.
func UploadBlob(ctx context.Context, bucket *blob.Bucket, key string, r io.Reader) error {
	w, err := bucket.NewWriter(ctx, key, &blob.WriterOptions{})
	if err != nil {
		return fmt.Errorf("cloud: creating writer for blob %s: %v", key, err)
	}
	if _, err = io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("cloud: copying blob %s: %v", key, err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("cloud: writing blob %s: %v", key, err)
	}
	return nil
}

// ListBlobs returns all the blobs under prefix, recursively.
// Directory placeholders are skipped.
func ListBlobs(ctx context.Context, bucket *blob.Bucket, prefix string) ([]*blob.ListObject, error) {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	iter := bucket.List(&blob.ListOptions{Prefix: prefix})
	var o []*blob.ListObject
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("cloud: listing blobs under %s: %v", prefix, err)
		}
		if obj.IsDir || strings.HasSuffix(obj.Key, "/") {
			continue
		}
		o = append(o, obj)
	}
	return o, nil
}

// DeleteBlobDir deletes all blobs under prefix.
func DeleteBlobDir(ctx context.Context, bucket *blob.Bucket, prefix string) error {
	objs, err := ListBlobs(ctx, bucket, prefix)
	if err != nil {
		return err
	}
	for _, obj := range objs {
		if err = bucket.Delete(ctx, obj.Key); err != nil {
			return fmt.Errorf("cloud: deleting blob %s: %v", obj.Key, err)
		}
	}
	return nil
}
