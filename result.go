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

import "fmt"

// Value stores the contents of a single cell of a Table.
type Value any

// NullFlag is the missing-reason byte that precedes a nullable value on the wire.
//
// NotNull means the value is present. Any value from 0 to MaxMissingReason
// means the value is missing, with the flag as the missing reason.
type NullFlag uint8

const (
	// NotNull flags a present value.
	NotNull NullFlag = 0xFF
	// MaxMissingReason is the largest missing reason the engine produces.
	MaxMissingReason = 127
)

// IsNull reports whether the flag marks a missing value.
func (f NullFlag) IsNull() bool {
	return f != NotNull
}

// Reason returns the missing reason. It is only meaningful if IsNull is true.
func (f NullFlag) Reason() uint8 {
	return uint8(f)
}

func (f NullFlag) valid() bool {
	return f == NotNull || f <= MaxMissingReason
}

// TypedValue is one attribute value of a cell together with its null flag.
//
// Value holds the Go representation of the attribute type: bool, byte (char),
// float64, float32, int8 to int64, uint8 to uint64, string, []byte (binary)
// or time.Time (datetime). For a missing value it holds whatever the stream
// carried, normally the zero value of the type.
type TypedValue struct {
	Type  Type
	Flag  NullFlag
	Value any
}

// NewValue returns a present value of type t.
func NewValue(t Type, v any) TypedValue {
	return TypedValue{Type: t, Flag: NotNull, Value: v}
}

// Null returns a missing value of type t with the given missing reason.
func Null(t Type, reason uint8) TypedValue {
	return TypedValue{Type: t, Flag: NullFlag(reason), Value: t.zero()}
}

// IsNull reports whether the value is missing.
func (v TypedValue) IsNull() bool {
	return v.Flag.IsNull()
}

func (v TypedValue) String() string {
	if v.IsNull() {
		return fmt.Sprintf("?%d", v.Flag.Reason())
	}
	if c, ok := v.Value.(byte); ok && v.Type == TypeChar {
		return string(rune(c))
	}
	return fmt.Sprint(v.Value)
}

// Cell is a single decoded record: one value per attribute followed by one
// coordinate per dimension.
type Cell struct {
	Attrs  []TypedValue
	Coords []int64
}

// ResultArray is the decoded result of a query. Cells are kept in stream order.
type ResultArray struct {
	// Schema is the schema the cells were decoded with.
	Schema *Schema
	// AttrsOnly reports whether coordinates were left out of the cells.
	AttrsOnly bool
	// Cells are the decoded records.
	Cells []Cell
}

// Len returns the number of cells.
func (a *ResultArray) Len() int {
	return len(a.Cells)
}

// Cell returns the cell at index i.
func (a *ResultArray) Cell(i int) Cell {
	return a.Cells[i]
}

// Attribute returns the values of the named attribute, one per cell.
func (a *ResultArray) Attribute(name string) ([]TypedValue, error) {
	for i, attr := range a.Schema.Attributes {
		if attr.Name != name {
			continue
		}
		values := make([]TypedValue, len(a.Cells))
		for j, c := range a.Cells {
			values[j] = c.Attrs[i]
		}
		return values, nil
	}
	return nil, &UnknownColumnError{Name: name, Available: a.Schema.AttributeNames()}
}

// Coordinates returns the coordinates along the named dimension, one per cell.
func (a *ResultArray) Coordinates(name string) ([]int64, error) {
	if a.AttrsOnly {
		return nil, &UnknownColumnError{Name: name}
	}
	for i, dim := range a.Schema.Dimensions {
		if dim.Name != name {
			continue
		}
		coords := make([]int64, len(a.Cells))
		for j, c := range a.Cells {
			coords[j] = c.Coords[i]
		}
		return coords, nil
	}
	return nil, &UnknownColumnError{Name: name, Available: a.Schema.DimensionNames()}
}
