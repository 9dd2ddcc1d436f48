/*
 * Copyright 2024 ScopeDB, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package scidb

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"time"
)

const defaultMaxStringLength = 1 << 30

// DecodeOption configures Decode.
type DecodeOption func(*decodeOptions)

type decodeOptions struct {
	dimsInStream *bool
	cells        int
	maxString    uint32
}

// WithDimensionsInStream tells Decode whether each record ends with the cell
// coordinates. It defaults to the opposite of attrsOnly. Coordinates present in
// the stream of an attrs-only decode are read and dropped.
func WithDimensionsInStream(present bool) DecodeOption {
	return func(o *decodeOptions) {
		o.dimsInStream = &present
	}
}

// WithCellCount sets the number of cells the stream must hold exactly.
func WithCellCount(n int) DecodeOption {
	return func(o *decodeOptions) {
		o.cells = n
	}
}

// WithMaxStringLength bounds the length prefix of string and binary values.
// Larger prefixes are reported as a *DecodeAlignmentError.
func WithMaxStringLength(n uint32) DecodeOption {
	return func(o *decodeOptions) {
		o.maxString = n
	}
}

// Decode reads the binary result stream r into a ResultArray.
//
// Each record holds, for every attribute in schema order, a null flag byte if
// the attribute is nullable and the little-endian value, then one int64
// coordinate per dimension when the stream carries them. Strings and binary
// values are prefixed by their uint32 length.
//
// The reader is consumed once, front to back. A stream that ends inside a
// record yields a *TruncatedStreamError.
func Decode(schema *Schema, r io.Reader, attrsOnly bool, opts ...DecodeOption) (*ResultArray, error) {
	o := decodeOptions{cells: -1, maxString: defaultMaxStringLength}
	for _, opt := range opts {
		opt(&o)
	}
	dimsInStream := !attrsOnly
	if o.dimsInStream != nil {
		dimsInStream = *o.dimsInStream
	}
	if !attrsOnly && !dimsInStream {
		return nil, &DecodeAlignmentError{Msg: "coordinates requested but not present in the stream"}
	}

	d := &decoder{
		r:            bufio.NewReader(r),
		schema:       schema,
		attrsOnly:    attrsOnly,
		dimsInStream: dimsInStream,
		maxString:    o.maxString,
	}

	result := &ResultArray{Schema: schema, AttrsOnly: attrsOnly}
	if o.cells > 0 {
		result.Cells = make([]Cell, 0, o.cells)
	}
	for o.cells < 0 || len(result.Cells) < o.cells {
		more, err := d.more()
		if err != nil {
			return nil, err
		}
		if !more {
			if o.cells >= 0 {
				return nil, &TruncatedStreamError{Cell: len(result.Cells), Offset: d.offset}
			}
			break
		}

		cell, err := d.readCell(len(result.Cells))
		if err != nil {
			return nil, err
		}
		result.Cells = append(result.Cells, cell)
	}

	if o.cells >= 0 {
		more, err := d.more()
		if err != nil {
			return nil, err
		}
		if more {
			return nil, &DecodeAlignmentError{Cell: o.cells, Offset: d.offset, Msg: "trailing bytes after the last cell"}
		}
	}
	return result, nil
}

type decoder struct {
	r            *bufio.Reader
	schema       *Schema
	attrsOnly    bool
	dimsInStream bool
	maxString    uint32

	offset int64
	cell   int
	buf    [8]byte
}

// more reports whether another record starts at the current position.
func (d *decoder) more() (bool, error) {
	_, err := d.r.Peek(1)
	if err == io.EOF {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (d *decoder) readCell(n int) (Cell, error) {
	d.cell = n

	cell := Cell{Attrs: make([]TypedValue, len(d.schema.Attributes))}
	for i, attr := range d.schema.Attributes {
		flag := NotNull
		if attr.Nullable {
			b, err := d.read(1)
			if err != nil {
				return Cell{}, err
			}
			flag = NullFlag(b[0])
			if !flag.valid() {
				return Cell{}, &DecodeAlignmentError{
					Cell:   n,
					Offset: d.offset - 1,
					Msg:    fmt.Sprintf("invalid null flag %d for attribute %q", b[0], attr.Name),
				}
			}
		}

		v, err := d.readValue(attr)
		if err != nil {
			return Cell{}, err
		}
		cell.Attrs[i] = TypedValue{Type: attr.Type, Flag: flag, Value: v}
	}

	if !d.dimsInStream {
		return cell, nil
	}
	if !d.attrsOnly {
		cell.Coords = make([]int64, len(d.schema.Dimensions))
	}
	for i := range d.schema.Dimensions {
		b, err := d.read(8)
		if err != nil {
			return Cell{}, err
		}
		if cell.Coords != nil {
			cell.Coords[i] = int64(binary.LittleEndian.Uint64(b))
		}
	}
	return cell, nil
}

func (d *decoder) readValue(attr AttributeSpec) (any, error) {
	if attr.Type.Variable() {
		return d.readVariable(attr)
	}

	b, err := d.read(attr.Type.Size())
	if err != nil {
		return nil, err
	}
	switch attr.Type {
	case TypeBool:
		return b[0] != 0, nil
	case TypeChar:
		return b[0], nil
	case TypeDouble:
		return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
	case TypeFloat:
		return math.Float32frombits(binary.LittleEndian.Uint32(b)), nil
	case TypeInt8:
		return int8(b[0]), nil
	case TypeInt16:
		return int16(binary.LittleEndian.Uint16(b)), nil
	case TypeInt32:
		return int32(binary.LittleEndian.Uint32(b)), nil
	case TypeInt64:
		return int64(binary.LittleEndian.Uint64(b)), nil
	case TypeUint8:
		return b[0], nil
	case TypeUint16:
		return binary.LittleEndian.Uint16(b), nil
	case TypeUint32:
		return binary.LittleEndian.Uint32(b), nil
	case TypeUint64:
		return binary.LittleEndian.Uint64(b), nil
	case TypeDatetime:
		return time.Unix(int64(binary.LittleEndian.Uint64(b)), 0).UTC(), nil
	default:
		return nil, &UnsupportedTypeError{Type: string(attr.Type)}
	}
}

func (d *decoder) readVariable(attr AttributeSpec) (any, error) {
	b, err := d.read(4)
	if err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(b)
	if n > d.maxString {
		return nil, &DecodeAlignmentError{
			Cell:   d.cell,
			Offset: d.offset - 4,
			Msg:    fmt.Sprintf("length %d of attribute %q exceeds %d", n, attr.Name, d.maxString),
		}
	}

	// grows with the bytes actually read, not with the prefix
	var buf bytes.Buffer
	if _, err := io.CopyN(&buf, d.r, int64(n)); err != nil {
		return nil, d.truncated(err)
	}
	d.offset += int64(n)
	data := buf.Bytes()
	if data == nil {
		data = []byte{}
	}

	if attr.Type == TypeString {
		if n > 0 && data[n-1] == 0 {
			data = data[:n-1]
		}
		return string(data), nil
	}
	return data, nil
}

// read returns the next n bytes. The slice is only valid until the next call.
func (d *decoder) read(n int) ([]byte, error) {
	b := d.buf[:n]
	if _, err := io.ReadFull(d.r, b); err != nil {
		return nil, d.truncated(err)
	}
	d.offset += int64(n)
	return b, nil
}

func (d *decoder) truncated(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &TruncatedStreamError{Cell: d.cell, Offset: d.offset}
	}
	return err
}
