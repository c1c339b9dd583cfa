// Package tableparquet converts in-memory typed tables into Apache Parquet
// files organized in fixed-size row groups.
//
// The conversion derives a column schema from the table's column types,
// then walks the rows in windows of the row group size. For each window
// every column is materialized into a typed, nullable buffer and the buffers
// are written as one row group, in column order.
//
// # Type mapping
//
// Each [ColumnType] maps to one [ParquetType] (see [MapType]). Wall clock
// datetimes ([TypeDatetime]) are always stored as UTC-adjusted timestamps,
// reading their clock fields in a fixed location (UTC unless
// [WithDatetimeLocation] says otherwise). Types with no columnar equivalent
// are written as strings.
//
// # Memory Considerations
//
// The whole table is held in memory by the caller. The converter keeps at
// most one row group of column buffers alive at a time.
//
// # Example usage
//
//	table := tableparquet.NewTable("users",
//	    tableparquet.Column{Name: "id", Type: tableparquet.TypeInteger},
//	    tableparquet.Column{Name: "name", Type: tableparquet.TypeText},
//	)
//	_ = table.AddRow(int64(1), "Alice")
//
//	c, _ := tableparquet.NewConverter(tableparquet.WithRowGroupSize(1000))
//	if _, err := c.ConvertFile("users.parquet", table); err != nil {
//	    log.Fatal(err)
//	}
//
// Tables can also be read from CSV, TSV, LTSV and XLSX files with [ReadTable].
package tableparquet

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/apache/arrow/go/v18/arrow/memory"
	"github.com/apache/arrow/go/v18/parquet"
	"github.com/apache/arrow/go/v18/parquet/pqarrow"
	"go.uber.org/zap"
)

// DefaultRowGroupSize is the number of rows per row group used when no
// WithRowGroupSize option is given.
const DefaultRowGroupSize = 100

// Converter writes tables as Parquet files, one row group per window of
// rows. A Converter is configured once and can convert any number of tables,
// one at a time.
type Converter struct {
	rowGroupSize int
	logger       *zap.Logger
	location     *time.Location
	mem          memory.Allocator
	strict       bool
	createdBy    string
	// createFile opens the destination of ConvertFile.
	createFile func(path string) (io.WriteCloser, error)
}

// Option configures a Converter.
type Option func(*Converter)

// WithRowGroupSize sets the number of rows per row group. It must be positive.
func WithRowGroupSize(n int) Option {
	return func(c *Converter) {
		c.rowGroupSize = n
	}
}

// WithLogger sets the logger. The default logger discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Converter) {
		c.logger = logger
	}
}

// WithDatetimeLocation sets the location wall clock (TypeDatetime) values
// are assumed to be in. The default is UTC.
func WithDatetimeLocation(loc *time.Location) Option {
	return func(c *Converter) {
		c.location = loc
	}
}

// WithAllocator sets the allocator used for column buffers and the writer.
func WithAllocator(mem memory.Allocator) Option {
	return func(c *Converter) {
		c.mem = mem
	}
}

// WithStrictTypeMapping makes the conversion fail with ErrTypeMapping for
// columns whose type has no columnar mapping, instead of writing them as text.
func WithStrictTypeMapping() Option {
	return func(c *Converter) {
		c.strict = true
	}
}

// WithCreatedBy sets the "created by" string recorded in the file footer.
func WithCreatedBy(createdBy string) Option {
	return func(c *Converter) {
		c.createdBy = createdBy
	}
}

// NewConverter creates a Converter.
func NewConverter(opts ...Option) (*Converter, error) {
	c := &Converter{
		rowGroupSize: DefaultRowGroupSize,
		logger:       zap.NewNop(),
		location:     time.UTC,
		mem:          memory.DefaultAllocator,
		createFile:   createFile,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.rowGroupSize <= 0 {
		return nil, fmt.Errorf("%w: row group size must be positive, got %d", ErrInvalidInput, c.rowGroupSize)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.location == nil {
		c.location = time.UTC
	}
	if c.mem == nil {
		c.mem = memory.DefaultAllocator
	}
	return c, nil
}

// Result describes a finished conversion.
type Result struct {
	// Schema is the column schema written to the file.
	Schema *Schema
	// Rows is the total number of rows written.
	Rows int
	// RowGroups is the number of row groups written.
	RowGroups int
	// RowGroupRows contains the row count of each row group in file order.
	RowGroupRows []int
}

// Convert writes t to w as a Parquet file and returns a summary.
//
// The table is validated and its schema built before anything is written.
// On error the file footer is not written, so the partial output is never
// readable as a Parquet file. Convert does not close w.
func Convert(w io.Writer, t *Table, opts ...Option) (*Result, error) {
	c, err := NewConverter(opts...)
	if err != nil {
		return nil, err
	}
	return c.Convert(w, t)
}

// Convert writes t to w as a Parquet file. See the package-level Convert.
func (c *Converter) Convert(w io.Writer, t *Table) (*Result, error) {
	if w == nil {
		return nil, fmt.Errorf("%w: writer cannot be nil", ErrInvalidInput)
	}

	schema, err := c.prepare(t)
	if err != nil {
		return nil, err
	}
	return c.write(w, t, schema)
}

// ConvertFile writes t to the file at path, creating or truncating it.
// The file is created only after the table has been validated, is always
// closed, and is removed again when the conversion fails.
func (c *Converter) ConvertFile(path string, t *Table) (result *Result, err error) {
	schema, err := c.prepare(t)
	if err != nil {
		return nil, err
	}

	f, err := c.createFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("%w: failed to close output file: %w", ErrEncodingFault, closeErr)
		}
		if err != nil {
			result = nil
			if removeErr := os.Remove(path); removeErr != nil {
				c.logger.Warn("failed to remove incomplete output file",
					zap.String("path", path), zap.Error(removeErr))
			}
		}
	}()

	return c.write(f, t, schema)
}

func createFile(path string) (io.WriteCloser, error) {
	return os.Create(path) //nolint:gosec // path is chosen by the caller
}

// prepare validates t and builds its schema.
func (c *Converter) prepare(t *Table) (*Schema, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return buildSchema(t, c.strict)
}

// write drives the row group writer over consecutive windows of
// rowGroupSize rows until every row of t is written, then finalizes the file.
// On failure the writer is closed into a discarding sink, so its buffers are
// released and no footer reaches w. Panics raised by the parquet writer on
// sink errors are reported as ErrEncodingFault.
func (c *Converter) write(w io.Writer, t *Table, schema *Schema) (result *Result, err error) {
	out := &sink{w: w}
	var fw *pqarrow.FileWriter
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: parquet writer: %v", ErrEncodingFault, r)
		}
		if err == nil {
			return
		}
		result = nil
		out.abort()
		if fw != nil {
			c.discard(fw)
		}
	}()

	writerProps := []parquet.WriterProperty{
		parquet.WithAllocator(c.mem),
		parquet.WithMaxRowGroupLength(int64(c.rowGroupSize)),
	}
	if c.createdBy != "" {
		writerProps = append(writerProps, parquet.WithCreatedBy(c.createdBy))
	}
	arrowProps := pqarrow.NewArrowWriterProperties(
		pqarrow.WithAllocator(c.mem),
		pqarrow.WithStoreSchema(),
	)

	fw, err = pqarrow.NewFileWriter(schema.Arrow(), out, parquet.NewWriterProperties(writerProps...), arrowProps)
	if err != nil {
		fw = nil
		return nil, fmt.Errorf("%w: failed to create parquet writer: %w", ErrEncodingFault, err)
	}

	rows := t.NumRows()
	result = &Result{
		Schema:       schema,
		RowGroupRows: make([]int, 0, (rows+c.rowGroupSize-1)/c.rowGroupSize),
	}

	for start := 0; start < rows; start += c.rowGroupSize {
		win := window{start: start, end: min(start+c.rowGroupSize, rows)}
		if err := c.writeRowGroup(fw, schema, t, win); err != nil {
			return nil, fmt.Errorf("row group %d: %w", result.RowGroups, err)
		}

		c.logger.Debug("row group written",
			zap.String("table", t.Name),
			zap.Int("row_group", result.RowGroups),
			zap.Int("first_row", win.start),
			zap.Int("rows", win.len()))

		result.RowGroups++
		result.Rows += win.len()
		result.RowGroupRows = append(result.RowGroupRows, win.len())
	}

	closeErr := fw.Close()
	fw = nil
	if closeErr != nil {
		return nil, fmt.Errorf("%w: failed to finalize parquet file: %w", ErrEncodingFault, closeErr)
	}

	c.logger.Info("table converted",
		zap.String("table", t.Name),
		zap.Int("columns", schema.NumFields()),
		zap.Int("rows", result.Rows),
		zap.Int("row_groups", result.RowGroups))

	return result, nil
}

// discard closes an abandoned writer. Its output is already being dropped,
// so only the release of its buffers matters.
func (c *Converter) discard(fw *pqarrow.FileWriter) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("failed to release parquet writer", zap.Any("panic", r))
		}
	}()
	if err := fw.Close(); err != nil {
		c.logger.Debug("abandoned parquet writer closed with error", zap.Error(err))
	}
}

// writeRowGroup materializes every column of win and then writes them as one
// row group, in schema order. No row group is opened unless all columns
// materialized successfully.
func (c *Converter) writeRowGroup(fw *pqarrow.FileWriter, schema *Schema, t *Table, win window) error {
	chunks := make([]*chunk, 0, schema.NumFields())
	defer func() {
		for _, ch := range chunks {
			ch.release()
		}
	}()

	for col := range schema.NumFields() {
		ch, err := schema.materialize(c.mem, t, col, win, c.location)
		if err != nil {
			return err
		}
		chunks = append(chunks, ch)
	}

	fw.NewRowGroup()
	for _, ch := range chunks {
		if err := fw.WriteColumnData(ch.arr); err != nil {
			return fmt.Errorf("%w: failed to write column %q: %w", ErrEncodingFault, ch.field.Name, err)
		}
	}
	return nil
}

// sink hides any Close method of the destination from the parquet writer,
// which would otherwise close it when the file is finalized. The caller owns
// the destination. Once aborted, writes are dropped.
type sink struct {
	w       io.Writer
	aborted bool
}

// Write implements io.Writer
func (s *sink) Write(p []byte) (int, error) {
	if s.aborted {
		return len(p), nil
	}
	return s.w.Write(p)
}

func (s *sink) abort() {
	s.aborted = true
}
