package tableparquet

import (
	"bytes"
	"fmt"
	"time"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/memory"
)

// window is a contiguous range of row indexes [start, end).
type window struct {
	start int
	end   int
}

func (w window) len() int {
	return w.end - w.start
}

// chunk holds the values of one column for one window, in row order.
// Nulls are tracked by the validity bitmap of the array.
type chunk struct {
	field Field
	arr   arrow.Array
}

func (c *chunk) len() int {
	return c.arr.Len()
}

func (c *chunk) nullN() int {
	return c.arr.NullN()
}

func (c *chunk) isNull(i int) bool {
	return c.arr.IsNull(i)
}

// value returns the i-th value as a Go value, or nil for a null entry.
// Timestamps are returned as time.Time in UTC.
func (c *chunk) value(i int) any {
	if c.arr.IsNull(i) {
		return nil
	}

	switch a := c.arr.(type) {
	case *array.String:
		return a.Value(i)
	case *array.Int64:
		return a.Value(i)
	case *array.Float64:
		return a.Value(i)
	case *array.Timestamp:
		return time.UnixMicro(int64(a.Value(i))).UTC()
	case *array.Boolean:
		return a.Value(i)
	case *array.Int32:
		return a.Value(i)
	case *array.Float32:
		return a.Value(i)
	case *array.Binary:
		return bytes.Clone(a.Value(i))
	default:
		return a.GetOneForMarshal(i)
	}
}

func (c *chunk) release() {
	c.arr.Release()
}

// materialize builds the chunk of column col for the rows of w. Values are
// appended straight into the arrow builder of the field's columnar type;
// absent cells become nulls. Wall clock datetimes are pinned to loc before
// being stored as UTC instants.
func (s *Schema) materialize(mem memory.Allocator, t *Table, col int, w window, loc *time.Location) (*chunk, error) {
	field := s.fields[col]
	appendValue := s.appenders[col]

	b := array.NewBuilder(mem, field.Type.ArrowType())
	defer b.Release()
	b.Reserve(w.len())

	for r := w.start; r < w.end; r++ {
		v := t.Rows[r][col]
		if v == nil {
			b.AppendNull()
			continue
		}
		if err := appendValue(b, v, loc); err != nil {
			return nil, fmt.Errorf("%w: column %q row %d: %v", ErrEncodingFault, field.Name, r, err)
		}
	}

	return &chunk{field: field, arr: b.NewArray()}, nil
}

// An appendFn appends one non-null value to a builder of the matching type.
type appendFn func(b array.Builder, v any, loc *time.Location) error

// appenderFor resolves the append function of a field once, when the schema
// is built.
func appenderFor(f Field) appendFn {
	if f.fallback() {
		return appendText
	}

	switch f.Type {
	case ParquetInt64:
		return appendInt64
	case ParquetDouble:
		return appendDouble
	case ParquetDateTimeOffset:
		if f.Source == TypeDatetime {
			return appendWallClock
		}
		return appendInstant
	case ParquetBoolean:
		return appendBool
	case ParquetInt32:
		return appendInt32
	case ParquetFloat:
		return appendFloat
	case ParquetByteArray:
		return appendBytes
	default:
		return appendString
	}
}

func appendString(b array.Builder, v any, _ *time.Location) error {
	s, ok := v.(string)
	if !ok {
		return fmt.Errorf("expected string, found %T", v)
	}
	b.(*array.StringBuilder).Append(s)
	return nil
}

// appendText converts any value to its text form. It never fails.
func appendText(b array.Builder, v any, _ *time.Location) error {
	sb := b.(*array.StringBuilder)
	switch x := v.(type) {
	case string:
		sb.Append(x)
	case []byte:
		sb.Append(string(x))
	case fmt.Stringer:
		sb.Append(x.String())
	default:
		sb.Append(fmt.Sprint(x))
	}
	return nil
}

func appendInt64(b array.Builder, v any, _ *time.Location) error {
	i, ok := v.(int64)
	if !ok {
		return fmt.Errorf("expected int64, found %T", v)
	}
	b.(*array.Int64Builder).Append(i)
	return nil
}

func appendDouble(b array.Builder, v any, _ *time.Location) error {
	f, ok := v.(float64)
	if !ok {
		return fmt.Errorf("expected float64, found %T", v)
	}
	b.(*array.Float64Builder).Append(f)
	return nil
}

func appendBool(b array.Builder, v any, _ *time.Location) error {
	x, ok := v.(bool)
	if !ok {
		return fmt.Errorf("expected bool, found %T", v)
	}
	b.(*array.BooleanBuilder).Append(x)
	return nil
}

func appendInt32(b array.Builder, v any, _ *time.Location) error {
	i, ok := v.(int32)
	if !ok {
		return fmt.Errorf("expected int32, found %T", v)
	}
	b.(*array.Int32Builder).Append(i)
	return nil
}

func appendFloat(b array.Builder, v any, _ *time.Location) error {
	f, ok := v.(float32)
	if !ok {
		return fmt.Errorf("expected float32, found %T", v)
	}
	b.(*array.Float32Builder).Append(f)
	return nil
}

func appendBytes(b array.Builder, v any, _ *time.Location) error {
	p, ok := v.([]byte)
	if !ok {
		return fmt.Errorf("expected []byte, found %T", v)
	}
	b.(*array.BinaryBuilder).Append(p)
	return nil
}

// appendInstant stores the instant of a time.Time as UTC microseconds.
func appendInstant(b array.Builder, v any, _ *time.Location) error {
	ts, ok := v.(time.Time)
	if !ok {
		return fmt.Errorf("expected time.Time, found %T", v)
	}
	b.(*array.TimestampBuilder).Append(arrow.Timestamp(ts.UnixMicro()))
	return nil
}

// appendWallClock reads the date and clock fields of a time.Time, ignoring
// its location, and stores them as an instant in loc.
func appendWallClock(b array.Builder, v any, loc *time.Location) error {
	ts, ok := v.(time.Time)
	if !ok {
		return fmt.Errorf("expected time.Time, found %T", v)
	}
	b.(*array.TimestampBuilder).Append(arrow.Timestamp(wallClockIn(ts, loc).UnixMicro()))
	return nil
}

// wallClockIn returns the time with the same calendar date and clock reading
// as t, located in loc.
func wallClockIn(t time.Time, loc *time.Location) time.Time {
	year, month, day := t.Date()
	hour, minute, sec := t.Clock()
	return time.Date(year, month, day, hour, minute, sec, t.Nanosecond(), loc)
}
