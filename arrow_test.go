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

package scidb_test

import (
	"bytes"
	"testing"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/brianvoe/gofakeit/v7"
	scidb "github.com/paradigm4/scidb-sdk/go"
	"github.com/stretchr/testify/require"
)

func TestArrowSchema(t *testing.T) {
	schema := scidb.MustParseSchema("<a:int32 NULL, s:string, t:datetime>[i=0:9; j=0:9]")

	as, err := schema.ArrowSchema(false)
	require.NoError(t, err)
	require.Equal(t, 5, as.NumFields())
	require.Equal(t, arrow.Field{Name: "a", Type: arrow.PrimitiveTypes.Int32, Nullable: true}, as.Field(0))
	require.Equal(t, arrow.BinaryTypes.String, as.Field(1).Type)
	require.Equal(t, arrow.FixedWidthTypes.Timestamp_s, as.Field(2).Type)
	require.Equal(t, arrow.PrimitiveTypes.Int64, as.Field(4).Type)

	as, err = schema.ArrowSchema(true)
	require.NoError(t, err)
	require.Equal(t, 3, as.NumFields())
}

func TestToArrowRecord(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	result := varietyArray(t)
	rec, err := result.ToArrowRecord(mem)
	require.NoError(t, err)
	defer rec.Release()

	require.Equal(t, int64(3), rec.NumRows())
	require.Equal(t, int64(16), rec.NumCols())

	s := rec.Column(8).(*array.String)
	require.Equal(t, "abcDEF123", s.Value(0))
	require.True(t, s.IsNull(1))

	c := rec.Column(1).(*array.String)
	require.Equal(t, "a", c.Value(0))

	k := rec.Column(13).(*array.Int64)
	require.Equal(t, []int64{0, 1, 2}, k.Int64Values())
}

func TestArrowRoundTrip(t *testing.T) {
	f := gofakeit.New(11)
	for _, text := range []string{
		varietySchema,
		"<a:int64, b:binary null, c:datetime, d:string>[x=0:*; y=-5:5]",
	} {
		schema := scidb.MustParseSchema(text)
		cells := fakeCells(f, schema, 64)
		for _, cell := range cells {
			for i, v := range cell.Attrs {
				if v.IsNull() {
					// missing reasons do not survive Arrow
					cell.Attrs[i] = scidb.Null(v.Type, 0)
				}
			}
		}
		result := &scidb.ResultArray{Schema: schema, Cells: cells}

		var buf bytes.Buffer
		require.NoError(t, result.WriteArrow(&buf))

		decoded, err := scidb.DecodeArrow(schema, &buf, false)
		require.NoError(t, err)
		require.Equal(t, cells, decoded.Cells)
	}
}

func TestDecodeArrowMismatch(t *testing.T) {
	result := varietyArray(t)

	var buf bytes.Buffer
	require.NoError(t, result.WriteArrow(&buf))
	data := buf.Bytes()

	other := scidb.MustParseSchema("<a:int32 null>[i=0:2]")
	_, err := scidb.DecodeArrow(other, bytes.NewReader(data), false)
	var misaligned *scidb.DecodeAlignmentError
	require.ErrorAs(t, err, &misaligned)

	// same column count, different types
	swapped := scidb.MustParseSchema(varietySchema)
	swapped.Attributes[2].Type = scidb.TypeInt64
	_, err = scidb.DecodeArrow(swapped, bytes.NewReader(data), false)
	require.ErrorAs(t, err, &misaligned)
}
