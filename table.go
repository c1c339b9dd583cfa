package tableparquet

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ColumnType represents the logical type of a table column.
// Values outside the declared constants are treated as custom types.
type ColumnType int

const (
	// TypeText represents text/string column type. Cells hold string.
	TypeText ColumnType = iota
	// TypeInteger represents integer column type. Cells hold int64.
	TypeInteger
	// TypeReal represents floating-point column type. Cells hold float64.
	TypeReal
	// TypeDatetime represents calendar date and wall clock time without an
	// explicit UTC offset. Cells hold time.Time; the location is ignored.
	TypeDatetime
	// TypeBoolean represents boolean column type. Cells hold bool.
	TypeBoolean
	// TypeInt32 represents 32-bit integer column type. Cells hold int32.
	TypeInt32
	// TypeFloat32 represents single precision column type. Cells hold float32.
	TypeFloat32
	// TypeBinary represents raw bytes column type. Cells hold []byte.
	TypeBinary
	// TypeDatetimeOffset represents an instant with an explicit offset.
	// Cells hold time.Time and the instant is preserved.
	TypeDatetimeOffset
	// TypeUUID represents UUID column type. Cells hold uuid.UUID.
	TypeUUID
)

// String returns the string representation of ColumnType.
func (ct ColumnType) String() string {
	switch ct {
	case TypeText:
		return "TEXT"
	case TypeInteger:
		return "INTEGER"
	case TypeReal:
		return "REAL"
	case TypeDatetime:
		return "DATETIME"
	case TypeBoolean:
		return "BOOLEAN"
	case TypeInt32:
		return "INT32"
	case TypeFloat32:
		return "FLOAT32"
	case TypeBinary:
		return "BINARY"
	case TypeDatetimeOffset:
		return "DATETIMEOFFSET"
	case TypeUUID:
		return "UUID"
	default:
		return fmt.Sprintf("CUSTOM(%d)", int(ct))
	}
}

// accepts reports whether v has the Go type that cells of ct hold.
// Custom types accept any value.
func (ct ColumnType) accepts(v any) bool {
	switch ct {
	case TypeText:
		_, ok := v.(string)
		return ok
	case TypeInteger:
		_, ok := v.(int64)
		return ok
	case TypeReal:
		_, ok := v.(float64)
		return ok
	case TypeDatetime, TypeDatetimeOffset:
		_, ok := v.(time.Time)
		return ok
	case TypeBoolean:
		_, ok := v.(bool)
		return ok
	case TypeInt32:
		_, ok := v.(int32)
		return ok
	case TypeFloat32:
		_, ok := v.(float32)
		return ok
	case TypeBinary:
		_, ok := v.([]byte)
		return ok
	case TypeUUID:
		_, ok := v.(uuid.UUID)
		return ok
	default:
		return true
	}
}

// Column describes one column of a Table.
type Column struct {
	// Name is the column name. It becomes the field name in the output schema.
	Name string
	// Type is the logical type of the column cells.
	Type ColumnType
}

// Row is one table row. It holds one cell per column, aligned positionally
// with Table.Columns. A nil cell marks an absent value.
type Row []any

// Table is an in-memory table with typed columns.
// The conversion only reads it; a Table is never modified by this package.
type Table struct {
	// Name is an informational table name.
	Name string
	// Columns contains the column definitions in order.
	Columns []Column
	// Rows contains the data rows in order.
	Rows []Row
}

// NewTable creates an empty table with the given columns.
func NewTable(name string, columns ...Column) *Table {
	return &Table{
		Name:    name,
		Columns: columns,
		Rows:    []Row{},
	}
}

// AddRow appends a row to the table. The number of values must match the
// number of columns and every non-nil value must have the Go type of its
// column type.
func (t *Table) AddRow(values ...any) error {
	if len(values) != len(t.Columns) {
		return fmt.Errorf("%w: row has %d values, table has %d columns", ErrInvalidInput, len(values), len(t.Columns))
	}
	for i, v := range values {
		if v == nil {
			continue
		}
		if !t.Columns[i].Type.accepts(v) {
			return fmt.Errorf("%w: column %q expects %s, found %T", ErrInvalidInput, t.Columns[i].Name, t.Columns[i].Type, v)
		}
	}

	row := make(Row, len(values))
	copy(row, values)
	t.Rows = append(t.Rows, row)
	return nil
}

// NumRows returns the number of rows in the table.
func (t *Table) NumRows() int {
	return len(t.Rows)
}

// Validate checks the structural invariants of the table: a non-nil table,
// named and unique columns, and rows as wide as the column list.
// Cell types are not checked here; a mismatch surfaces as ErrEncodingFault
// while the column is materialized.
func (t *Table) Validate() error {
	if t == nil {
		return fmt.Errorf("%w: table is nil", ErrInvalidInput)
	}
	if err := validateColumns(t.Columns); err != nil {
		return err
	}
	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return fmt.Errorf("%w: row %d has %d cells, table has %d columns", ErrInvalidInput, i, len(row), len(t.Columns))
		}
	}
	return nil
}

// validateColumns checks for missing and duplicate column names.
func validateColumns(columns []Column) error {
	seen := make(map[string]bool, len(columns))
	for i, col := range columns {
		if col.Name == "" {
			return fmt.Errorf("%w: column %d has no name", ErrInvalidInput, i)
		}
		if seen[col.Name] {
			return fmt.Errorf("%w: duplicate column name: %s", ErrInvalidInput, col.Name)
		}
		seen[col.Name] = true
	}
	return nil
}
