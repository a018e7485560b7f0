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
	"context"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"testing"
)

func TestBlob(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	bucket, prefix, err := OpenBucket(ctx, "file://"+dir)
	if err != nil {
		t.Fatal(err)
	}
	defer bucket.Close()
	if prefix != "" {
		t.Errorf("prefix %q", prefix)
	}
	for _, k := range []string{"a/1.nc", "a/b/2.nc", "c/3.nc"} {
		if err := WriteBlob(ctx, bucket, k, []byte(k)); err != nil {
			t.Fatal(err)
		}
	}
	t.Run("read", func(t *testing.T) {
		b, err := ReadBlob(ctx, bucket, "a/b/2.nc")
		if err != nil {
			t.Fatal(err)
		}
		if string(b) != "a/b/2.nc" {
			t.Errorf("have %s", b)
		}
		if _, err := os.Stat(filepath.Join(dir, "a", "b", "2.nc")); err != nil {
			t.Error(err)
		}
	})
	t.Run("list", func(t *testing.T) {
		objs, err := ListBlobs(ctx, bucket, "a")
		if err != nil {
			t.Fatal(err)
		}
		var keys []string
		for _, o := range objs {
			keys = append(keys, o.Key)
		}
		sort.Strings(keys)
		want := []string{"a/1.nc", "a/b/2.nc"}
		if !reflect.DeepEqual(keys, want) {
			t.Errorf("have %v, want %v", keys, want)
		}
	})
	t.Run("delete", func(t *testing.T) {
		if err := DeleteBlobDir(ctx, bucket, "a"); err != nil {
			t.Fatal(err)
		}
		objs, err := ListBlobs(ctx, bucket, "")
		if err != nil {
			t.Fatal(err)
		}
		if len(objs) != 1 || objs[0].Key != "c/3.nc" {
			t.Errorf("remaining %v", objs)
		}
	})
}

func TestObjectURL(t *testing.T) {
	for loc, want := range map[string]string{
		"https://s3.example.com/mdl-native-01/native/P/D_202211": "https://s3.example.com/mdl-native-01/native/P/D_202211/f.nc",
		"s3://bucket/native/P/D_202211":                          "s3://bucket/native/P/D_202211/f.nc",
		"file:///tmp/store":                                      "file:///tmp/store/native/P/D_202211/f.nc",
	} {
		if have := ObjectURL(loc, "native/P/D_202211/f.nc"); have != want {
			t.Errorf("%s: have %s, want %s", loc, have, want)
		}
	}
}

func TestOpenBucketInvalid(t *testing.T) {
	if _, _, err := OpenBucket(context.Background(), "ftp://x/y"); err == nil {
		t.Error("expected an error")
	}
	if _, _, err := OpenBucket(context.Background(), "https://host/"); err == nil {
		t.Error("expected an error")
	}
}
