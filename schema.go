package tableparquet

import (
	"fmt"

	"github.com/apache/arrow/go/v18/arrow"
)

// ParquetType is the columnar primitive type a column is written as.
type ParquetType int

const (
	// ParquetString is UTF-8 text (BYTE_ARRAY, STRING).
	ParquetString ParquetType = iota
	// ParquetInt64 is a signed 64-bit integer (INT64).
	ParquetInt64
	// ParquetDouble is a 64-bit float (DOUBLE).
	ParquetDouble
	// ParquetDateTimeOffset is a timestamp adjusted to UTC
	// (INT64, TIMESTAMP(isAdjustedToUTC=true, MICROS)).
	ParquetDateTimeOffset
	// ParquetBoolean is a boolean (BOOLEAN).
	ParquetBoolean
	// ParquetInt32 is a signed 32-bit integer (INT32).
	ParquetInt32
	// ParquetFloat is a 32-bit float (FLOAT).
	ParquetFloat
	// ParquetByteArray is opaque binary data (BYTE_ARRAY).
	ParquetByteArray
)

// String returns the string representation of ParquetType.
func (pt ParquetType) String() string {
	switch pt {
	case ParquetString:
		return "STRING"
	case ParquetInt64:
		return "INT64"
	case ParquetDouble:
		return "DOUBLE"
	case ParquetDateTimeOffset:
		return "DATETIMEOFFSET"
	case ParquetBoolean:
		return "BOOLEAN"
	case ParquetInt32:
		return "INT32"
	case ParquetFloat:
		return "FLOAT"
	case ParquetByteArray:
		return "BYTE_ARRAY"
	default:
		return fmt.Sprintf("ParquetType(%d)", int(pt))
	}
}

// ArrowType returns the arrow data type used to buffer values of pt.
func (pt ParquetType) ArrowType() arrow.DataType {
	switch pt {
	case ParquetInt64:
		return arrow.PrimitiveTypes.Int64
	case ParquetDouble:
		return arrow.PrimitiveTypes.Float64
	case ParquetDateTimeOffset:
		return &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}
	case ParquetBoolean:
		return arrow.FixedWidthTypes.Boolean
	case ParquetInt32:
		return arrow.PrimitiveTypes.Int32
	case ParquetFloat:
		return arrow.PrimitiveTypes.Float32
	case ParquetByteArray:
		return arrow.BinaryTypes.Binary
	default:
		return arrow.BinaryTypes.String
	}
}

// directTypes lists the logical types with an equivalent columnar primitive.
var directTypes = map[ColumnType]ParquetType{
	TypeText:           ParquetString,
	TypeInteger:        ParquetInt64,
	TypeReal:           ParquetDouble,
	TypeBoolean:        ParquetBoolean,
	TypeInt32:          ParquetInt32,
	TypeFloat32:        ParquetFloat,
	TypeBinary:         ParquetByteArray,
	TypeDatetimeOffset: ParquetDateTimeOffset,
}

// MapType returns the columnar type for a logical column type.
//
// Wall clock datetimes are always written as ParquetDateTimeOffset so that
// every datetime column has a single on-disk representation. Types without a
// direct mapping, including custom ones, fall back to ParquetString.
func MapType(ct ColumnType) ParquetType {
	pt, _ := lookupType(ct)
	return pt
}

// lookupType is MapType that also reports whether the mapping is direct.
func lookupType(ct ColumnType) (ParquetType, bool) {
	if pt, ok := directTypes[ct]; ok {
		return pt, true
	}
	if ct == TypeDatetime {
		return ParquetDateTimeOffset, true
	}
	return ParquetString, false
}

// Field is one column schema entry.
type Field struct {
	// Name is the column name.
	Name string
	// Source is the logical type declared by the table column.
	Source ColumnType
	// Type is the columnar type the column is written as.
	Type ParquetType
}

// fallback reports whether values must be converted to text because
// the source type has no columnar equivalent.
func (f Field) fallback() bool {
	return f.Type == ParquetString && f.Source != TypeText
}

// Schema is the ordered column schema of a table. It is built once per
// conversion and never modified afterwards.
type Schema struct {
	fields    []Field
	appenders []appendFn
	arrow     *arrow.Schema
}

// BuildSchema derives the schema of t, one field per column in column order.
func BuildSchema(t *Table) (*Schema, error) {
	return buildSchema(t, false)
}

// buildSchema derives the schema of t. When strict is set, a column type
// without a columnar mapping is reported as ErrTypeMapping instead of
// falling back to text.
func buildSchema(t *Table, strict bool) (*Schema, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: table is nil", ErrInvalidInput)
	}
	if err := validateColumns(t.Columns); err != nil {
		return nil, err
	}

	s := &Schema{
		fields:    make([]Field, 0, len(t.Columns)),
		appenders: make([]appendFn, 0, len(t.Columns)),
	}
	arrowFields := make([]arrow.Field, 0, len(t.Columns))

	for _, col := range t.Columns {
		pt, direct := lookupType(col.Type)
		if !direct && strict {
			return nil, fmt.Errorf("%w: column %q has type %s", ErrTypeMapping, col.Name, col.Type)
		}

		field := Field{Name: col.Name, Source: col.Type, Type: pt}
		s.fields = append(s.fields, field)
		s.appenders = append(s.appenders, appenderFor(field))
		arrowFields = append(arrowFields, arrow.Field{
			Name:     field.Name,
			Type:     pt.ArrowType(),
			Nullable: true,
		})
	}
	s.arrow = arrow.NewSchema(arrowFields, nil)

	return s, nil
}

// NumFields returns the number of fields.
func (s *Schema) NumFields() int {
	return len(s.fields)
}

// Field returns the i-th field.
func (s *Schema) Field(i int) Field {
	return s.fields[i]
}

// Fields returns a copy of the fields in column order.
func (s *Schema) Fields() []Field {
	fields := make([]Field, len(s.fields))
	copy(fields, s.fields)
	return fields
}

// Arrow returns the arrow schema handed to the parquet writer.
func (s *Schema) Arrow() *arrow.Schema {
	return s.arrow
}
