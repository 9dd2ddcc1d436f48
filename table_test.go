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
	"math"
	"strings"
	"testing"

	scidb "github.com/paradigm4/scidb-sdk/go"
	"github.com/stretchr/testify/require"
)

func varietyArray(t *testing.T) *scidb.ResultArray {
	schema := scidb.MustParseSchema(varietySchema)
	present := scidb.NewValue
	null := scidb.Null
	return &scidb.ResultArray{
		Schema: schema,
		Cells: []scidb.Cell{
			{
				Attrs: []scidb.TypedValue{
					present(scidb.TypeBool, true),
					present(scidb.TypeChar, byte('a')),
					present(scidb.TypeDouble, math.MaxFloat64),
					present(scidb.TypeFloat, float32(-math.MaxFloat32)),
					present(scidb.TypeInt8, int8(math.MinInt8)),
					present(scidb.TypeInt16, int16(math.MinInt16)),
					present(scidb.TypeInt32, int32(math.MinInt32)),
					present(scidb.TypeInt64, int64(math.MinInt64)),
					present(scidb.TypeString, "abcDEF123"),
					present(scidb.TypeUint8, uint8(math.MaxUint8)),
					present(scidb.TypeUint16, uint16(math.MaxUint16)),
					present(scidb.TypeUint32, uint32(math.MaxUint32)),
					present(scidb.TypeUint64, uint64(math.MaxUint64)),
				},
				Coords: []int64{0, -2, 0},
			},
			{
				Attrs: []scidb.TypedValue{
					null(scidb.TypeBool, 0),
					null(scidb.TypeChar, 0),
					null(scidb.TypeDouble, 0),
					null(scidb.TypeFloat, 34),
					null(scidb.TypeInt8, 7),
					null(scidb.TypeInt16, 15),
					null(scidb.TypeInt32, 31),
					null(scidb.TypeInt64, 63),
					null(scidb.TypeString, 0),
					null(scidb.TypeUint8, 0),
					null(scidb.TypeUint16, 0),
					null(scidb.TypeUint32, 0),
					null(scidb.TypeUint64, 0),
				},
				Coords: []int64{1, -2, 0},
			},
			{
				Attrs: []scidb.TypedValue{
					null(scidb.TypeBool, 99),
					null(scidb.TypeChar, 65),
					present(scidb.TypeDouble, math.Inf(-1)),
					present(scidb.TypeFloat, float32(math.Inf(1))),
					null(scidb.TypeInt8, 0),
					null(scidb.TypeInt16, 0),
					null(scidb.TypeInt32, 0),
					null(scidb.TypeInt64, 0),
					null(scidb.TypeString, 99),
					null(scidb.TypeUint8, 8),
					null(scidb.TypeUint16, 16),
					null(scidb.TypeUint32, 32),
					null(scidb.TypeUint64, 64),
				},
				Coords: []int64{2, -2, 0},
			},
		},
	}
}

var (
	nan          = math.NaN()
	varietyTable = [][]scidb.Value{
		{
			true,
			[]byte("a"),
			math.MaxFloat64,
			float64(float32(-math.MaxFloat32)),
			-128.0,
			-32768.0,
			-2147483648.0,
			-9.223372036854776e+18,
			"abcDEF123",
			255.0,
			65535.0,
			4294967295.0,
			1.8446744073709552e+19,
		},
		{nil, nil, nan, nan, nan, nan, nan, nan, nil, nan, nan, nan, nan},
		{nil, nil, math.Inf(-1), math.Inf(1), nan, nan, nan, nan, nil, nan, nan, nan, nan},
	}
)

func requireValues(t *testing.T, want, got []scidb.Value) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		if f, ok := want[i].(float64); ok && math.IsNaN(f) {
			g, ok := got[i].(float64)
			require.True(t, ok && math.IsNaN(g), "value %d: want NaN, got %v", i, got[i])
			continue
		}
		require.Equal(t, want[i], got[i], "value %d", i)
	}
}

func TestToTable(t *testing.T) {
	array := varietyArray(t)

	table, err := array.ToTable(false, scidb.NoIndex())
	require.NoError(t, err)
	rows, cols := table.Shape()
	require.Equal(t, 3, rows)
	require.Equal(t, 16, cols)
	require.Empty(t, table.Index)
	require.Equal(t, append(array.Schema.AttributeNames(), "i", "j", "k"), table.Columns)

	for r, want := range varietyTable {
		row := table.Row(r)
		requireValues(t, want, row[:13])
		require.Equal(t, []scidb.Value{int64(r), int64(-2), int64(0)}, row[13:])
		require.Nil(t, table.IndexRow(r))
	}
}

func TestToTableShapes(t *testing.T) {
	array := varietyArray(t)

	for _, tc := range []struct {
		name      string
		attrsOnly bool
		index     scidb.IndexSpec
		wantIndex []string
		wantCols  int
	}{
		{name: "dims", attrsOnly: false, index: scidb.NoIndex(), wantCols: 16},
		{name: "dims indexed", attrsOnly: false, index: scidb.IndexDimensions(), wantIndex: []string{"i", "j", "k"}, wantCols: 13},
		{name: "attrs", attrsOnly: true, index: scidb.NoIndex(), wantCols: 13},
		{name: "attrs indexed", attrsOnly: true, index: scidb.IndexColumns("s"), wantIndex: []string{"s"}, wantCols: 12},
		{name: "custom order", attrsOnly: false, index: scidb.IndexColumns("k", "i"), wantIndex: []string{"k", "i"}, wantCols: 14},
	} {
		t.Run(tc.name, func(t *testing.T) {
			table, err := array.ToTable(tc.attrsOnly, tc.index)
			require.NoError(t, err)
			rows, cols := table.Shape()
			require.Equal(t, array.Len(), rows)
			require.Equal(t, tc.wantCols, cols)
			if tc.wantIndex == nil {
				require.Empty(t, table.Index)
			} else {
				require.Equal(t, tc.wantIndex, table.Index)
			}
			for _, name := range table.Index {
				require.NotContains(t, table.Columns, name)
			}
			for r := 0; r < rows; r++ {
				require.Len(t, table.Row(r), cols)
			}
		})
	}

	table, err := array.ToTable(false, scidb.IndexColumns("k", "i"))
	require.NoError(t, err)
	require.Equal(t, []scidb.Value{int64(0), int64(2)}, table.IndexRow(2))
	require.Contains(t, table.Columns, "j")
}

func TestToTableErrors(t *testing.T) {
	array := varietyArray(t)

	_, err := array.ToTable(false, scidb.IndexColumns("nonexistent"))
	var unknown *scidb.UnknownColumnError
	require.ErrorAs(t, err, &unknown)
	require.Equal(t, "nonexistent", unknown.Name)
	require.Contains(t, unknown.Available, "i")

	_, err = array.ToTable(true, scidb.IndexDimensions())
	require.ErrorAs(t, err, &unknown)
	require.Equal(t, "i", unknown.Name)

	_, err = array.ToTable(false, scidb.IndexColumns("i", "i"))
	require.Error(t, err)

	attrsOnly := &scidb.ResultArray{Schema: array.Schema, AttrsOnly: true}
	_, err = attrsOnly.ToTable(false, scidb.NoIndex())
	require.ErrorAs(t, err, &unknown)
}

func TestToTableNonNullable(t *testing.T) {
	schema := scidb.MustParseSchema("<a:int32, c:char, cn:char null, d:datetime null>[i=0:1]")
	array := &scidb.ResultArray{
		Schema: schema,
		Cells: []scidb.Cell{
			{
				Attrs: []scidb.TypedValue{
					scidb.NewValue(scidb.TypeInt32, int32(5)),
					scidb.NewValue(scidb.TypeChar, byte(0)),
					scidb.NewValue(scidb.TypeChar, byte(0)),
					scidb.Null(scidb.TypeDatetime, 3),
				},
				Coords: []int64{0},
			},
		},
	}

	table, err := array.ToTable(true, scidb.NoIndex())
	require.NoError(t, err)
	require.Equal(t, []scidb.Value{int32(5), []byte{}, []byte{}, nil}, table.Row(0))
}

func TestTableLoc(t *testing.T) {
	table, err := varietyArray(t).ToTable(false, scidb.IndexDimensions())
	require.NoError(t, err)

	row, ok := table.Loc(1, -2, 0)
	require.True(t, ok)
	requireValues(t, varietyTable[1], row)

	_, ok = table.Loc(3, -2, 0)
	require.False(t, ok)
	_, ok = table.Loc(1)
	require.False(t, ok)

	d, err := table.Column("d")
	require.NoError(t, err)
	require.Equal(t, math.MaxFloat64, d[0])
	require.True(t, math.IsInf(d[2].(float64), -1))

	i, err := table.Column("i")
	require.NoError(t, err)
	require.Equal(t, []scidb.Value{int64(0), int64(1), int64(2)}, i)

	_, err = table.Column("nonexistent")
	var unknown *scidb.UnknownColumnError
	require.ErrorAs(t, err, &unknown)
}

func TestTableRender(t *testing.T) {
	table, err := varietyArray(t).ToTable(false, scidb.IndexDimensions())
	require.NoError(t, err)

	out := table.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	// header, separator, one line per row
	require.Len(t, lines, 5)
	for _, name := range []string{"i", "j", "k", "b", "u64"} {
		require.Contains(t, lines[0], name)
	}
	require.Contains(t, lines[2], "abcDEF123")
	require.Contains(t, lines[3], "null")
	require.Contains(t, lines[3], "NaN")
	require.Contains(t, lines[4], "-Inf")
}

func TestToTableIndexedByCoordinate(t *testing.T) {
	schema := scidb.MustParseSchema("<val:int32 null>[i=1:3]")

	var r record
	r = r.flag(0).i32(0).i64(1)
	r = r.flag(0xFF).i32(0).i64(2)
	r = r.flag(0xFF).i32(-5).i64(3)
	array, err := scidb.Decode(schema, bytes.NewReader(r), false)
	require.NoError(t, err)
	require.True(t, array.Cell(0).Attrs[0].IsNull())
	require.Equal(t, uint8(0), array.Cell(0).Attrs[0].Flag.Reason())
	require.False(t, array.Cell(1).Attrs[0].IsNull())
	require.Equal(t, int32(-5), array.Cell(2).Attrs[0].Value)

	table, err := array.ToTable(false, scidb.IndexColumns("i"))
	require.NoError(t, err)
	rows, cols := table.Shape()
	require.Equal(t, 3, rows)
	require.Equal(t, 1, cols)
	for i := 0; i < rows; i++ {
		require.Equal(t, []scidb.Value{int64(i + 1)}, table.IndexRow(i))
	}
	requireValues(t, []scidb.Value{nan}, table.Row(0))
	require.Equal(t, []scidb.Value{0.0}, table.Row(1))
	require.Equal(t, []scidb.Value{-5.0}, table.Row(2))
}
