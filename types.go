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
	"strings"
	"time"
)

// Type is the name of a SciDB primitive type.
type Type string

const (
	// TypeBool is a one byte boolean.
	TypeBool Type = "bool"
	// TypeChar is a single byte character.
	TypeChar Type = "char"
	// TypeDouble is an IEEE-754 binary64 float.
	TypeDouble Type = "double"
	// TypeFloat is an IEEE-754 binary32 float.
	TypeFloat Type = "float"
	// TypeInt8 is a signed 8-bit integer.
	TypeInt8 Type = "int8"
	// TypeInt16 is a signed 16-bit integer.
	TypeInt16 Type = "int16"
	// TypeInt32 is a signed 32-bit integer.
	TypeInt32 Type = "int32"
	// TypeInt64 is a signed 64-bit integer.
	TypeInt64 Type = "int64"
	// TypeUint8 is an unsigned 8-bit integer.
	TypeUint8 Type = "uint8"
	// TypeUint16 is an unsigned 16-bit integer.
	TypeUint16 Type = "uint16"
	// TypeUint32 is an unsigned 32-bit integer.
	TypeUint32 Type = "uint32"
	// TypeUint64 is an unsigned 64-bit integer.
	TypeUint64 Type = "uint64"
	// TypeString is a variable length, NUL terminated string.
	TypeString Type = "string"
	// TypeBinary is a variable length byte sequence.
	TypeBinary Type = "binary"
	// TypeDatetime is a point in time with second precision, stored as
	// seconds since the Unix epoch.
	TypeDatetime Type = "datetime"
)

type typeInfo struct {
	// size is the wire width in bytes; 0 for length-prefixed types.
	size    int
	numeric bool
}

var typeInfos = map[Type]typeInfo{
	TypeBool:     {size: 1},
	TypeChar:     {size: 1},
	TypeDouble:   {size: 8, numeric: true},
	TypeFloat:    {size: 4, numeric: true},
	TypeInt8:     {size: 1, numeric: true},
	TypeInt16:    {size: 2, numeric: true},
	TypeInt32:    {size: 4, numeric: true},
	TypeInt64:    {size: 8, numeric: true},
	TypeUint8:    {size: 1, numeric: true},
	TypeUint16:   {size: 2, numeric: true},
	TypeUint32:   {size: 4, numeric: true},
	TypeUint64:   {size: 8, numeric: true},
	TypeString:   {size: 0},
	TypeBinary:   {size: 0},
	TypeDatetime: {size: 8},
}

// LookupType resolves a type name, ignoring case and surrounding spaces.
func LookupType(name string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := typeInfos[t]; !ok {
		return "", &UnsupportedTypeError{Type: name}
	}
	return t, nil
}

// Size returns the fixed wire width of t in bytes, or 0 if values of t are
// length-prefixed.
func (t Type) Size() int {
	return typeInfos[t].size
}

// Variable reports whether values of t are length-prefixed on the wire.
func (t Type) Variable() bool {
	info, ok := typeInfos[t]
	return ok && info.size == 0
}

// Numeric reports whether t is an integer or floating point type.
func (t Type) Numeric() bool {
	return typeInfos[t].numeric
}

// zero returns the Go value decoded for t when every value byte is zero.
func (t Type) zero() any {
	switch t {
	case TypeBool:
		return false
	case TypeChar:
		return byte(0)
	case TypeDouble:
		return float64(0)
	case TypeFloat:
		return float32(0)
	case TypeInt8:
		return int8(0)
	case TypeInt16:
		return int16(0)
	case TypeInt32:
		return int32(0)
	case TypeInt64:
		return int64(0)
	case TypeUint8:
		return uint8(0)
	case TypeUint16:
		return uint16(0)
	case TypeUint32:
		return uint32(0)
	case TypeUint64:
		return uint64(0)
	case TypeString:
		return ""
	case TypeBinary:
		return []byte{}
	case TypeDatetime:
		return time.Unix(0, 0).UTC()
	default:
		return nil
	}
}
