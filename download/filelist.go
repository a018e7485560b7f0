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
	"bufio"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/copernicusmarine/toolbox"
	"github.com/sirupsen/logrus"
)

// createFileList writes the URLs of files to p instead of downloading
// them: one per line for a .txt file, or with their size, date and
// etag for a .csv file.
func createFileList(p string, files []*file, log logrus.FieldLogger) (*toolbox.ResponseGet, error) {
	if err := os.MkdirAll(filepath.Dir(p), os.ModePerm); err != nil {
		return nil, fmt.Errorf("download: %v", err)
	}
	fh, err := os.Create(p)
	if err != nil {
		return nil, fmt.Errorf("download: %v", err)
	}
	resp := &toolbox.ResponseGet{Files: []toolbox.FileGet{}}
	if filepath.Ext(p) == ".csv" {
		w := csv.NewWriter(fh)
		err = w.Write([]string{"filename", "size", "last_modified_datetime", "etag"})
		for _, f := range files {
			if err != nil {
				break
			}
			err = w.Write([]string{
				f.url,
				strconv.FormatInt(f.obj.Size, 10),
				f.obj.ModTime.UTC().Format(time.RFC3339),
				hex.EncodeToString(f.obj.MD5),
			})
		}
		w.Flush()
		if err == nil {
			err = w.Error()
		}
	} else {
		bw := bufio.NewWriter(fh)
		for _, f := range files {
			if _, err = fmt.Fprintln(bw, f.url); err != nil {
				break
			}
		}
		if err == nil {
			err = bw.Flush()
		}
	}
	for _, f := range files {
		resp.Files = append(resp.Files, f.response())
	}
	if cerr := fh.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("download: writing file list %s: %v", p, err)
	}
	log.WithFields(logrus.Fields{"path": p, "files": len(files)}).Info("file list written")
	return resp, nil
}
