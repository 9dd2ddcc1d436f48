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
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"
)

// Encode writes cells in the binary layout read by Decode. Coordinates are
// written after the attributes when withDims is set.
//
// A missing value is written with its Value when one is set, otherwise as the
// zero value of its type.
func Encode(w io.Writer, schema *Schema, cells []Cell, withDims bool) (err error) {
	bw := bufio.NewWriter(w)
	defer func() {
		if err == nil {
			err = bw.Flush()
		}
	}()

	var buf [8]byte
	for n, cell := range cells {
		if len(cell.Attrs) != len(schema.Attributes) {
			return &EncodeError{Cell: n, Msg: fmt.Sprintf("cell has %d attributes, schema has %d", len(cell.Attrs), len(schema.Attributes))}
		}
		for i, attr := range schema.Attributes {
			v := cell.Attrs[i]
			if v.IsNull() && !attr.Nullable {
				return &EncodeError{Cell: n, Attribute: attr.Name, Msg: "missing value for a non-nullable attribute"}
			}
			if !v.Flag.valid() {
				return &EncodeError{Cell: n, Attribute: attr.Name, Msg: fmt.Sprintf("invalid null flag %d", v.Flag)}
			}
			if attr.Nullable {
				if err := bw.WriteByte(byte(v.Flag)); err != nil {
					return err
				}
			}

			value := v.Value
			if value == nil && v.IsNull() {
				value = attr.Type.zero()
			}
			data, err := appendValue(buf[:0], attr.Type, value)
			if err != nil {
				return &EncodeError{Cell: n, Attribute: attr.Name, Msg: err.Error()}
			}
			if _, err := bw.Write(data); err != nil {
				return err
			}
		}

		if !withDims {
			continue
		}
		if len(cell.Coords) != len(schema.Dimensions) {
			return &EncodeError{Cell: n, Msg: fmt.Sprintf("cell has %d coordinates, schema has %d", len(cell.Coords), len(schema.Dimensions))}
		}
		for _, c := range cell.Coords {
			if _, err := bw.Write(binary.LittleEndian.AppendUint64(buf[:0], uint64(c))); err != nil {
				return err
			}
		}
	}
	return nil
}

func appendValue(b []byte, t Type, value any) ([]byte, error) {
	switch t {
	case TypeBool:
		v, ok := value.(bool)
		if !ok {
			break
		}
		if v {
			return append(b, 1), nil
		}
		return append(b, 0), nil
	case TypeChar:
		if v, ok := value.(byte); ok {
			return append(b, v), nil
		}
	case TypeDouble:
		if v, ok := value.(float64); ok {
			return binary.LittleEndian.AppendUint64(b, math.Float64bits(v)), nil
		}
	case TypeFloat:
		if v, ok := value.(float32); ok {
			return binary.LittleEndian.AppendUint32(b, math.Float32bits(v)), nil
		}
	case TypeInt8:
		if v, ok := value.(int8); ok {
			return append(b, byte(v)), nil
		}
	case TypeInt16:
		if v, ok := value.(int16); ok {
			return binary.LittleEndian.AppendUint16(b, uint16(v)), nil
		}
	case TypeInt32:
		if v, ok := value.(int32); ok {
			return binary.LittleEndian.AppendUint32(b, uint32(v)), nil
		}
	case TypeInt64:
		if v, ok := value.(int64); ok {
			return binary.LittleEndian.AppendUint64(b, uint64(v)), nil
		}
	case TypeUint8:
		if v, ok := value.(uint8); ok {
			return append(b, v), nil
		}
	case TypeUint16:
		if v, ok := value.(uint16); ok {
			return binary.LittleEndian.AppendUint16(b, v), nil
		}
	case TypeUint32:
		if v, ok := value.(uint32); ok {
			return binary.LittleEndian.AppendUint32(b, v), nil
		}
	case TypeUint64:
		if v, ok := value.(uint64); ok {
			return binary.LittleEndian.AppendUint64(b, v), nil
		}
	case TypeDatetime:
		if v, ok := value.(time.Time); ok {
			return binary.LittleEndian.AppendUint64(b, uint64(v.Unix())), nil
		}
	case TypeString:
		if v, ok := value.(string); ok {
			b = binary.LittleEndian.AppendUint32(b, uint32(len(v)+1))
			b = append(b, v...)
			return append(b, 0), nil
		}
	case TypeBinary:
		if v, ok := value.([]byte); ok {
			b = binary.LittleEndian.AppendUint32(b, uint32(len(v)))
			return append(b, v...), nil
		}
	default:
		return nil, &UnsupportedTypeError{Type: string(t)}
	}
	return nil, fmt.Errorf("value %v of type %T does not match %s", value, value, t)
}
