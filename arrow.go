package scidb

import (
	"fmt"
	"io"
	"time"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

// arrowType returns the Arrow type used for columns of t.
func arrowType(t Type) (arrow.DataType, error) {
	switch t {
	case TypeBool:
		return arrow.FixedWidthTypes.Boolean, nil
	case TypeChar, TypeString:
		return arrow.BinaryTypes.String, nil
	case TypeDouble:
		return arrow.PrimitiveTypes.Float64, nil
	case TypeFloat:
		return arrow.PrimitiveTypes.Float32, nil
	case TypeInt8:
		return arrow.PrimitiveTypes.Int8, nil
	case TypeInt16:
		return arrow.PrimitiveTypes.Int16, nil
	case TypeInt32:
		return arrow.PrimitiveTypes.Int32, nil
	case TypeInt64:
		return arrow.PrimitiveTypes.Int64, nil
	case TypeUint8:
		return arrow.PrimitiveTypes.Uint8, nil
	case TypeUint16:
		return arrow.PrimitiveTypes.Uint16, nil
	case TypeUint32:
		return arrow.PrimitiveTypes.Uint32, nil
	case TypeUint64:
		return arrow.PrimitiveTypes.Uint64, nil
	case TypeBinary:
		return arrow.BinaryTypes.Binary, nil
	case TypeDatetime:
		return arrow.FixedWidthTypes.Timestamp_s, nil
	default:
		return nil, &UnsupportedTypeError{Type: string(t)}
	}
}

// ArrowSchema returns the Arrow schema of the columns produced for s: one
// column per attribute, followed by one int64 column per dimension unless
// attrsOnly is set.
func (s *Schema) ArrowSchema(attrsOnly bool) (*arrow.Schema, error) {
	fields := make([]arrow.Field, 0, len(s.Attributes)+len(s.Dimensions))
	for _, attr := range s.Attributes {
		typ, err := arrowType(attr.Type)
		if err != nil {
			return nil, err
		}
		fields = append(fields, arrow.Field{Name: attr.Name, Type: typ, Nullable: attr.Nullable})
	}
	if !attrsOnly {
		for _, dim := range s.Dimensions {
			fields = append(fields, arrow.Field{Name: dim.Name, Type: arrow.PrimitiveTypes.Int64})
		}
	}
	return arrow.NewSchema(fields, nil), nil
}

// ToArrowRecord copies the array into a single Arrow record. Missing values
// become Arrow nulls; their missing reasons are not kept.
//
// The caller must release the returned record.
func (a *ResultArray) ToArrowRecord(mem memory.Allocator) (arrow.Record, error) {
	schema, err := a.Schema.ArrowSchema(a.AttrsOnly)
	if err != nil {
		return nil, err
	}

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	for i := range a.Schema.Attributes {
		fb := b.Field(i)
		for n, cell := range a.Cells {
			if err := appendArrowValue(fb, cell.Attrs[i]); err != nil {
				return nil, fmt.Errorf("cell %d: %w", n, err)
			}
		}
	}
	if !a.AttrsOnly {
		for i := range a.Schema.Dimensions {
			fb := b.Field(len(a.Schema.Attributes) + i).(*array.Int64Builder)
			for _, cell := range a.Cells {
				fb.Append(cell.Coords[i])
			}
		}
	}
	return b.NewRecord(), nil
}

// WriteArrow writes the array as an Arrow IPC stream in the layout read by
// DecodeArrow.
func (a *ResultArray) WriteArrow(w io.Writer) error {
	rec, err := a.ToArrowRecord(memory.DefaultAllocator)
	if err != nil {
		return err
	}
	defer rec.Release()
	return encodeArrowBatches(w, rec.Schema(), []arrow.Record{rec})
}

func appendArrowValue(b array.Builder, v TypedValue) error {
	if v.IsNull() {
		b.AppendNull()
		return nil
	}

	ok := false
	switch fb := b.(type) {
	case *array.BooleanBuilder:
		var x bool
		if x, ok = v.Value.(bool); ok {
			fb.Append(x)
		}
	case *array.StringBuilder:
		switch x := v.Value.(type) {
		case string:
			fb.Append(x)
			ok = true
		case byte:
			if x == 0 {
				fb.Append("")
			} else {
				fb.Append(string(rune(x)))
			}
			ok = true
		}
	case *array.BinaryBuilder:
		var x []byte
		if x, ok = v.Value.([]byte); ok {
			fb.Append(x)
		}
	case *array.Float64Builder:
		var x float64
		if x, ok = v.Value.(float64); ok {
			fb.Append(x)
		}
	case *array.Float32Builder:
		var x float32
		if x, ok = v.Value.(float32); ok {
			fb.Append(x)
		}
	case *array.Int8Builder:
		var x int8
		if x, ok = v.Value.(int8); ok {
			fb.Append(x)
		}
	case *array.Int16Builder:
		var x int16
		if x, ok = v.Value.(int16); ok {
			fb.Append(x)
		}
	case *array.Int32Builder:
		var x int32
		if x, ok = v.Value.(int32); ok {
			fb.Append(x)
		}
	case *array.Int64Builder:
		var x int64
		if x, ok = v.Value.(int64); ok {
			fb.Append(x)
		}
	case *array.Uint8Builder:
		var x uint8
		if x, ok = v.Value.(uint8); ok {
			fb.Append(x)
		}
	case *array.Uint16Builder:
		var x uint16
		if x, ok = v.Value.(uint16); ok {
			fb.Append(x)
		}
	case *array.Uint32Builder:
		var x uint32
		if x, ok = v.Value.(uint32); ok {
			fb.Append(x)
		}
	case *array.Uint64Builder:
		var x uint64
		if x, ok = v.Value.(uint64); ok {
			fb.Append(x)
		}
	case *array.TimestampBuilder:
		var x time.Time
		if x, ok = v.Value.(time.Time); ok {
			fb.Append(arrow.Timestamp(x.Unix()))
		}
	}
	if !ok {
		return fmt.Errorf("value %v of type %T does not match %s", v.Value, v.Value, v.Type)
	}
	return nil
}

// DecodeArrow reads an Arrow IPC stream, as produced by the "arrow" save
// format, into a ResultArray. The stream must hold one column per attribute,
// followed by one int64 column per dimension unless attrsOnly is set.
//
// Arrow nulls carry no missing reason; they are decoded with reason 0.
func DecodeArrow(schema *Schema, r io.Reader, attrsOnly bool) (*ResultArray, error) {
	batches, err := decodeArrowBatches(r)
	if err != nil {
		return nil, err
	}
	defer func() {
		for _, batch := range batches {
			batch.Release()
		}
	}()

	wantCols := len(schema.Attributes)
	if !attrsOnly {
		wantCols += len(schema.Dimensions)
	}

	result := &ResultArray{Schema: schema, AttrsOnly: attrsOnly}
	for _, batch := range batches {
		if int(batch.NumCols()) != wantCols {
			return nil, &DecodeAlignmentError{
				Cell: result.Len(),
				Msg:  fmt.Sprintf("arrow batch has %d columns, schema needs %d", batch.NumCols(), wantCols),
			}
		}

		for row := 0; row < int(batch.NumRows()); row++ {
			n := result.Len()
			cell := Cell{Attrs: make([]TypedValue, len(schema.Attributes))}
			for i, attr := range schema.Attributes {
				v, err := arrowValue(batch.Column(i), row, attr)
				if err != nil {
					return nil, &DecodeAlignmentError{Cell: n, Msg: err.Error()}
				}
				cell.Attrs[i] = v
			}
			if !attrsOnly {
				cell.Coords = make([]int64, len(schema.Dimensions))
				for i := range schema.Dimensions {
					col, ok := batch.Column(len(schema.Attributes) + i).(*array.Int64)
					if !ok {
						return nil, &DecodeAlignmentError{Cell: n, Msg: fmt.Sprintf("dimension column %d is not int64", i)}
					}
					cell.Coords[i] = col.Value(row)
				}
			}
			result.Cells = append(result.Cells, cell)
		}
	}
	return result, nil
}

func arrowValue(col arrow.Array, row int, attr AttributeSpec) (TypedValue, error) {
	if col.IsNull(row) {
		if !attr.Nullable {
			return TypedValue{}, fmt.Errorf("null in non-nullable attribute %q", attr.Name)
		}
		return Null(attr.Type, 0), nil
	}

	var v any
	switch c := col.(type) {
	case *array.Boolean:
		v = c.Value(row)
	case *array.String:
		s := c.Value(row)
		if attr.Type == TypeChar {
			if s == "" {
				v = byte(0)
			} else {
				v = s[0]
			}
		} else {
			v = s
		}
	case *array.Binary:
		v = append([]byte{}, c.Value(row)...)
	case *array.Float64:
		v = c.Value(row)
	case *array.Float32:
		v = c.Value(row)
	case *array.Int8:
		v = c.Value(row)
	case *array.Int16:
		v = c.Value(row)
	case *array.Int32:
		v = c.Value(row)
	case *array.Int64:
		v = c.Value(row)
	case *array.Uint8:
		v = c.Value(row)
	case *array.Uint16:
		v = c.Value(row)
	case *array.Uint32:
		v = c.Value(row)
	case *array.Uint64:
		v = c.Value(row)
	case *array.Timestamp:
		v = time.Unix(int64(c.Value(row)), 0).UTC()
	default:
		return TypedValue{}, fmt.Errorf("unsupported arrow column type %s for attribute %q", col.DataType(), attr.Name)
	}

	want, err := arrowType(attr.Type)
	if err != nil {
		return TypedValue{}, err
	}
	if !arrow.TypeEqual(want, col.DataType()) {
		return TypedValue{}, fmt.Errorf("arrow column type %s does not match attribute %q of type %s", col.DataType(), attr.Name, attr.Type)
	}
	return NewValue(attr.Type, v), nil
}

// decodeArrowBatches reads all record batches of an Arrow IPC stream.
func decodeArrowBatches(r io.Reader) ([]arrow.Record, error) {
	reader, err := ipc.NewReader(r, ipc.WithDelayReadSchema(true))
	if err != nil {
		return nil, err
	}
	defer reader.Release()

	batches := make([]arrow.Record, 0)
	for reader.Next() {
		batch := reader.Record()
		batch.Retain()
		batches = append(batches, batch)
	}
	if err := reader.Err(); err != nil && err != io.EOF {
		for _, batch := range batches {
			batch.Release()
		}
		return nil, err
	}
	return batches, nil
}

// encodeArrowBatches writes record batches as an Arrow IPC stream.
func encodeArrowBatches(w io.Writer, schema *arrow.Schema, batches []arrow.Record) (err error) {
	writer := ipc.NewWriter(w, ipc.WithSchema(schema))
	defer func() {
		if closeErr := writer.Close(); err == nil {
			err = closeErr
		}
	}()

	for _, batch := range batches {
		if err := writer.Write(batch); err != nil {
			return err
		}
	}
	return nil
}
