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
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// ArrayMetadata is the content of a .zarray document.
type ArrayMetadata struct {
	ZarrFormat int             `json:"zarr_format"`
	Shape      []int           `json:"shape"`
	Chunks     []int           `json:"chunks"`
	DType      string          `json:"dtype"`
	Compressor *Codec          `json:"compressor"`
	FillValue  json.RawMessage `json:"fill_value"`
	Order      string          `json:"order"`
	Filters    []Codec         `json:"filters"`
}

// Codec is a Zarr compressor.
type Codec struct {
	ID    string `json:"id"`
	Level int    `json:"level,omitempty"`
}

// consolidated is the content of a .zmetadata document.
type consolidated struct {
	Metadata map[string]json.RawMessage `json:"metadata"`
	Format   int                        `json:"zarr_consolidated_format"`
}

// dtype is a decoded Zarr data type.
type dtype struct {
	order binary.ByteOrder
	kind  byte
	size  int
}

func parseDType(s string) (dtype, error) {
	if len(s) != 3 {
		return dtype{}, fmt.Errorf("arco: unsupported dtype %q", s)
	}
	d := dtype{kind: s[1]}
	switch s[0] {
	case '<', '|':
		d.order = binary.LittleEndian
	case '>':
		d.order = binary.BigEndian
	default:
		return dtype{}, fmt.Errorf("arco: unsupported dtype %q", s)
	}
	size, err := strconv.Atoi(s[2:])
	if err != nil {
		return dtype{}, fmt.Errorf("arco: unsupported dtype %q", s)
	}
	d.size = size
	switch {
	case d.kind == 'f' && (size == 4 || size == 8):
	case (d.kind == 'i' || d.kind == 'u') && (size == 1 || size == 2 || size == 4 || size == 8):
	default:
		return dtype{}, fmt.Errorf("arco: unsupported dtype %q", s)
	}
	return d, nil
}

func (d dtype) isFloat() bool { return d.kind == 'f' }

// decode converts n raw values of b to float64.
func (d dtype) decode(b []byte, n int) ([]float64, error) {
	if len(b) < n*d.size {
		return nil, fmt.Errorf("arco: chunk has %d bytes, need %d", len(b), n*d.size)
	}
	o := make([]float64, n)
	for i := range o {
		v := b[i*d.size : (i+1)*d.size]
		switch {
		case d.kind == 'f' && d.size == 4:
			o[i] = float64(math.Float32frombits(d.order.Uint32(v)))
		case d.kind == 'f':
			o[i] = math.Float64frombits(d.order.Uint64(v))
		case d.size == 1 && d.kind == 'i':
			o[i] = float64(int8(v[0]))
		case d.size == 1:
			o[i] = float64(v[0])
		case d.size == 2 && d.kind == 'i':
			o[i] = float64(int16(d.order.Uint16(v)))
		case d.size == 2:
			o[i] = float64(d.order.Uint16(v))
		case d.size == 4 && d.kind == 'i':
			o[i] = float64(int32(d.order.Uint32(v)))
		case d.size == 4:
			o[i] = float64(d.order.Uint32(v))
		case d.kind == 'i':
			o[i] = float64(int64(d.order.Uint64(v)))
		default:
			o[i] = float64(d.order.Uint64(v))
		}
	}
	return o, nil
}

// encode converts values to raw bytes. NaN values of integer types
// are written as fill.
func (d dtype) encode(values []float64, fill float64) []byte {
	b := make([]byte, len(values)*d.size)
	for i, x := range values {
		if !d.isFloat() && math.IsNaN(x) {
			x = fill
		}
		v := b[i*d.size : (i+1)*d.size]
		switch {
		case d.kind == 'f' && d.size == 4:
			d.order.PutUint32(v, math.Float32bits(float32(x)))
		case d.kind == 'f':
			d.order.PutUint64(v, math.Float64bits(x))
		case d.size == 1 && d.kind == 'i':
			v[0] = byte(int8(x))
		case d.size == 1:
			v[0] = byte(x)
		case d.size == 2 && d.kind == 'i':
			d.order.PutUint16(v, uint16(int16(x)))
		case d.size == 2:
			d.order.PutUint16(v, uint16(x))
		case d.size == 4 && d.kind == 'i':
			d.order.PutUint32(v, uint32(int32(x)))
		case d.size == 4:
			d.order.PutUint32(v, uint32(x))
		case d.kind == 'i':
			d.order.PutUint64(v, uint64(int64(x)))
		default:
			d.order.PutUint64(v, uint64(x))
		}
	}
	return b
}

// parseFillValue decodes the fill_value of a .zarray document.
// It returns nil for null.
func parseFillValue(raw json.RawMessage) (*float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		var v float64
		switch s {
		case "NaN":
			v = math.NaN()
		case "Infinity":
			v = math.Inf(1)
		case "-Infinity":
			v = math.Inf(-1)
		default:
			return nil, fmt.Errorf("arco: invalid fill_value %q", s)
		}
		return &v, nil
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("arco: invalid fill_value %s", raw)
	}
	return &v, nil
}

func formatFillValue(v *float64) json.RawMessage {
	switch {
	case v == nil:
		return json.RawMessage("null")
	case math.IsNaN(*v):
		return json.RawMessage(`"NaN"`)
	case math.IsInf(*v, 1):
		return json.RawMessage(`"Infinity"`)
	case math.IsInf(*v, -1):
		return json.RawMessage(`"-Infinity"`)
	}
	return json.RawMessage(strconv.FormatFloat(*v, 'g', -1, 64))
}

// decompress returns the decompressed content of b.
func (c *Codec) decompress(b []byte) ([]byte, error) {
	if c == nil {
		return b, nil
	}
	var r io.ReadCloser
	var err error
	switch c.ID {
	case "zlib":
		r, err = zlib.NewReader(bytes.NewReader(b))
	case "gzip":
		r, err = gzip.NewReader(bytes.NewReader(b))
	case "zstd":
		var d *zstd.Decoder
		if d, err = zstd.NewReader(nil); err != nil {
			return nil, fmt.Errorf("arco: zstd: %v", err)
		}
		defer d.Close()
		o, err := d.DecodeAll(b, nil)
		if err != nil {
			return nil, fmt.Errorf("arco: zstd: %v", err)
		}
		return o, nil
	default:
		return nil, fmt.Errorf("arco: unsupported compressor %q", c.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("arco: %s: %v", c.ID, err)
	}
	defer r.Close()
	o, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("arco: %s: %v", c.ID, err)
	}
	return o, nil
}

// compress returns the compressed content of b.
func (c *Codec) compress(b []byte) ([]byte, error) {
	if c == nil {
		return b, nil
	}
	var buf bytes.Buffer
	var w io.WriteCloser
	var err error
	switch c.ID {
	case "zlib":
		w, err = zlib.NewWriterLevel(&buf, c.Level)
	case "gzip":
		w, err = gzip.NewWriterLevel(&buf, c.Level)
	case "zstd":
		e, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(c.Level)))
		if err != nil {
			return nil, fmt.Errorf("arco: zstd: %v", err)
		}
		defer e.Close()
		return e.EncodeAll(b, nil), nil
	default:
		return nil, fmt.Errorf("arco: unsupported compressor %q", c.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("arco: %s: %v", c.ID, err)
	}
	if _, err = w.Write(b); err != nil {
		return nil, fmt.Errorf("arco: %s: %v", c.ID, err)
	}
	if err = w.Close(); err != nil {
		return nil, fmt.Errorf("arco: %s: %v", c.ID, err)
	}
	return buf.Bytes(), nil
}
