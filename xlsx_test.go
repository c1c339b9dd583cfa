package tableparquet

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// newWorkbook returns an XLSX document whose first sheet holds rows.
func newWorkbook(t *testing.T, rows ...[]any) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cellName, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestParseXLSX(t *testing.T) {
	t.Parallel()

	t.Run("parses the first sheet", func(t *testing.T) {
		t.Parallel()

		data := newWorkbook(t,
			[]any{"id", "name", "score"},
			[]any{1, "Alice", 9.5},
			[]any{2, "Bob"},
		)

		headers, records, err := parseXLSX(bytes.NewReader(data))

		require.NoError(t, err)
		assert.Equal(t, []string{"id", "name", "score"}, headers)
		assert.Equal(t, [][]string{{"1", "Alice", "9.5"}, {"2", "Bob", ""}}, records)
	})

	t.Run("returns error for duplicate headers", func(t *testing.T) {
		t.Parallel()

		data := newWorkbook(t, []any{"id", "id"}, []any{1, 2})

		_, _, err := parseXLSX(bytes.NewReader(data))

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate column name")
	})

	t.Run("returns error for empty sheet", func(t *testing.T) {
		t.Parallel()

		data := newWorkbook(t)

		_, _, err := parseXLSX(bytes.NewReader(data))

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "empty XLSX sheet")
	})

	t.Run("returns error for empty data", func(t *testing.T) {
		t.Parallel()

		_, _, err := parseXLSX(bytes.NewReader([]byte{}))

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to open XLSX")
	})

	t.Run("returns error for invalid xlsx data", func(t *testing.T) {
		t.Parallel()

		_, _, err := parseXLSX(strings.NewReader("not an xlsx file"))

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to open XLSX")
	})
}

func TestReadTable_XLSX(t *testing.T) {
	t.Parallel()

	data := newWorkbook(t,
		[]any{"id", "name", "score"},
		[]any{1, "Alice", 9.5},
		[]any{2, "Bob"},
	)

	table, err := ReadTable(bytes.NewReader(data), XLSX)

	require.NoError(t, err)
	assert.Equal(t, []Column{
		{Name: "id", Type: TypeInteger},
		{Name: "name", Type: TypeText},
		{Name: "score", Type: TypeReal},
	}, table.Columns)
	assert.Equal(t, Row{int64(2), "Bob", nil}, table.Rows[1])
}
