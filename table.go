package scidb

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// IndexSpec selects the columns that form the row index of a Table.
//
// The zero value selects no index.
type IndexSpec struct {
	dimensions bool
	columns    []string
}

// NoIndex keeps every column as a data column.
func NoIndex() IndexSpec {
	return IndexSpec{}
}

// IndexDimensions uses all dimensions, in schema order, as the row index.
func IndexDimensions() IndexSpec {
	return IndexSpec{dimensions: true}
}

// IndexColumns uses the named columns, in the given order, as the row index.
// Both dimensions and attributes may be named.
func IndexColumns(names ...string) IndexSpec {
	return IndexSpec{columns: names}
}

// resolve returns the index column names, checked against the available columns.
func (s IndexSpec) resolve(schema *Schema, attrsOnly bool) ([]string, error) {
	available := schema.AttributeNames()
	if !attrsOnly {
		available = append(available, schema.DimensionNames()...)
	}

	names := s.columns
	if s.dimensions {
		names = schema.DimensionNames()
	}

	seen := make(map[string]bool, len(names))
	for _, name := range names {
		found := false
		for _, col := range available {
			if col == name {
				found = true
				break
			}
		}
		if !found {
			return nil, &UnknownColumnError{Name: name, Available: available}
		}
		if seen[name] {
			return nil, fmt.Errorf("column %q is listed twice in the index", name)
		}
		seen[name] = true
	}
	return names, nil
}

// Table is a row and column view of a ResultArray, optionally indexed by some
// of its columns.
//
// Missing values of numeric attributes are shown as NaN, and missing values of
// other attributes as nil; see projectValue.
type Table struct {
	// Index names the columns forming the row index.
	Index []string
	// Columns names the data columns.
	Columns []string

	index [][]Value
	rows  [][]Value
}

// ToTable projects the array into a Table. Unless attrsOnly is set, dimensions
// become int64 columns after the attributes. Columns selected by index are
// moved to the row index.
func (a *ResultArray) ToTable(attrsOnly bool, index IndexSpec) (*Table, error) {
	schema := a.Schema
	if !attrsOnly && a.AttrsOnly && len(schema.Dimensions) > 0 {
		return nil, &UnknownColumnError{Name: schema.Dimensions[0].Name, Available: schema.AttributeNames()}
	}

	indexNames, err := index.resolve(schema, attrsOnly)
	if err != nil {
		return nil, err
	}

	type column struct {
		name  string
		value func(Cell) Value
	}
	var columns []column
	for i, attr := range schema.Attributes {
		columns = append(columns, column{attr.Name, func(c Cell) Value {
			return projectValue(attr, c.Attrs[i])
		}})
	}
	if !attrsOnly {
		for i, dim := range schema.Dimensions {
			columns = append(columns, column{dim.Name, func(c Cell) Value {
				return c.Coords[i]
			}})
		}
	}

	var indexCols, dataCols []column
	for _, name := range indexNames {
		for _, col := range columns {
			if col.name == name {
				indexCols = append(indexCols, col)
			}
		}
	}
	for _, col := range columns {
		if !contains(indexNames, col.name) {
			dataCols = append(dataCols, col)
		}
	}

	t := &Table{
		Index:   indexNames,
		Columns: make([]string, len(dataCols)),
		rows:    make([][]Value, len(a.Cells)),
	}
	for i, col := range dataCols {
		t.Columns[i] = col.name
	}
	if len(indexCols) > 0 {
		t.index = make([][]Value, len(a.Cells))
	}

	for r, cell := range a.Cells {
		row := make([]Value, len(dataCols))
		for i, col := range dataCols {
			row[i] = col.value(cell)
		}
		t.rows[r] = row

		if t.index != nil {
			key := make([]Value, len(indexCols))
			for i, col := range indexCols {
				key[i] = col.value(cell)
			}
			t.index[r] = key
		}
	}
	return t, nil
}

// projectValue converts an attribute value to its table representation.
//
// This is the only lossy step between a ResultArray and a Table: a missing
// numeric value becomes NaN, so it cannot be told apart from a present NaN,
// and every present value of a nullable numeric attribute becomes a float64.
// A missing non-numeric value becomes nil. Chars become one byte slices, empty
// for NUL.
func projectValue(attr AttributeSpec, v TypedValue) Value {
	if attr.Nullable && v.IsNull() {
		if attr.Type.Numeric() {
			return math.NaN()
		}
		return nil
	}
	switch {
	case attr.Type == TypeChar:
		if c, ok := v.Value.(byte); ok && c != 0 {
			return []byte{c}
		}
		return []byte{}
	case attr.Nullable && attr.Type.Numeric():
		return toFloat64(v.Value)
	default:
		return v.Value
	}
}

func toFloat64(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	default:
		return math.NaN()
	}
}

// Shape returns the number of rows and data columns.
func (t *Table) Shape() (int, int) {
	return len(t.rows), len(t.Columns)
}

// Row returns the data values of row i.
func (t *Table) Row(i int) []Value {
	return t.rows[i]
}

// IndexRow returns the index values of row i, or nil if the table has no index.
func (t *Table) IndexRow(i int) []Value {
	if t.index == nil {
		return nil
	}
	return t.index[i]
}

// Column returns the values of the named data or index column.
func (t *Table) Column(name string) ([]Value, error) {
	pick := func(rows [][]Value, i int) []Value {
		values := make([]Value, len(rows))
		for r, row := range rows {
			values[r] = row[i]
		}
		return values
	}
	for i, col := range t.Columns {
		if col == name {
			return pick(t.rows, i), nil
		}
	}
	for i, col := range t.Index {
		if col == name {
			return pick(t.index, i), nil
		}
	}
	return nil, &UnknownColumnError{Name: name, Available: append(append([]string{}, t.Index...), t.Columns...)}
}

// Loc returns the data values of the first row whose index equals key.
// Plain int keys match int64 coordinates.
func (t *Table) Loc(key ...Value) ([]Value, bool) {
	if len(key) != len(t.Index) {
		return nil, false
	}
	for r, idx := range t.index {
		match := true
		for i := range key {
			if !valuesEqual(idx[i], key[i]) {
				match = false
				break
			}
		}
		if match {
			return t.rows[r], true
		}
	}
	return nil, false
}

func valuesEqual(a, b Value) bool {
	if n, ok := b.(int); ok {
		b = int64(n)
	}
	if n, ok := a.(int); ok {
		a = int64(n)
	}
	fa, aok := a.(float64)
	fb, bok := b.(float64)
	if aok && bok && math.IsNaN(fa) && math.IsNaN(fb) {
		return true
	}
	return reflect.DeepEqual(a, b)
}

// Render writes the table as aligned text, index columns first.
func (t *Table) Render(w io.Writer) error {
	var header table.Row
	for _, name := range t.Index {
		header = append(header, name)
	}
	for _, name := range t.Columns {
		header = append(header, name)
	}

	tw := table.NewWriter()
	tw.AppendHeader(header)
	for r, row := range t.rows {
		var out table.Row
		if t.index != nil {
			for _, v := range t.index[r] {
				out = append(out, formatValue(v))
			}
		}
		for _, v := range row {
			out = append(out, formatValue(v))
		}
		tw.AppendRow(out)
	}
	tw.SetStyle(table.StyleLight)
	tw.Style().Format = table.FormatOptions{
		Footer: text.FormatDefault,
		Header: text.FormatDefault,
		Row:    text.FormatDefault,
	}
	tw.Style().Options.DrawBorder = false
	tw.SuppressTrailingSpaces()

	_, err := io.WriteString(w, tw.Render()+"\n")
	return err
}

func (t *Table) String() string {
	var b bytes.Buffer
	_ = t.Render(&b)
	return b.String()
}

func formatValue(v Value) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func quoteIdent(s string, r rune) string {
	var b bytes.Buffer
	b.WriteRune(r)
	for _, c := range s {
		switch c {
		case '\t':
			b.WriteString("\\t")
		case '\n':
			b.WriteString("\\n")
		case '\r':
			b.WriteString("\\r")
		case '\\':
			b.WriteString("\\\\")
		default:
			if c == r {
				b.WriteRune('\\')
				b.WriteRune(c)
				break
			}

			if c < 0x20 {
				b.WriteString(fmt.Sprintf("\\x%02x", c))
				break
			}

			b.WriteRune(c)
		}
	}
	b.WriteRune(r)
	return b.String()
}
