package tableparquet

import (
	"bytes"
	"compress/gzip"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

func TestReadTable_CSV(t *testing.T) {
	t.Parallel()

	t.Run("reads CSV with header and typed data", func(t *testing.T) {
		t.Parallel()

		input := "name,age,city\nAlice,30,Tokyo\nBob,25,Osaka"

		table, err := ReadTable(strings.NewReader(input), CSV)

		require.NoError(t, err)
		assert.Equal(t, []Column{
			{Name: "name", Type: TypeText},
			{Name: "age", Type: TypeInteger},
			{Name: "city", Type: TypeText},
		}, table.Columns)
		require.Equal(t, 2, table.NumRows())
		assert.Equal(t, Row{"Alice", int64(30), "Tokyo"}, table.Rows[0])
		assert.Equal(t, Row{"Bob", int64(25), "Osaka"}, table.Rows[1])
	})

	t.Run("reads real and boolean columns", func(t *testing.T) {
		t.Parallel()

		input := "score,active\n3.14,true\n2,FALSE\n1.5,true"

		table, err := ReadTable(strings.NewReader(input), CSV)

		require.NoError(t, err)
		assert.Equal(t, TypeReal, table.Columns[0].Type)
		assert.Equal(t, TypeBoolean, table.Columns[1].Type)
		assert.Equal(t, Row{3.14, true}, table.Rows[0])
		assert.Equal(t, Row{2.0, false}, table.Rows[1])
	})

	t.Run("empty cells become nil", func(t *testing.T) {
		t.Parallel()

		input := "id,age\n1,\n2,40"

		table, err := ReadTable(strings.NewReader(input), CSV)

		require.NoError(t, err)
		assert.Equal(t, TypeInteger, table.Columns[1].Type)
		assert.Nil(t, table.Rows[0][1])
		assert.Equal(t, int64(40), table.Rows[1][1])
	})

	t.Run("wall clock datetimes stay TypeDatetime", func(t *testing.T) {
		t.Parallel()

		input := "seen\n2024-01-15\n2024-01-16 10:30:00"

		table, err := ReadTable(strings.NewReader(input), CSV)

		require.NoError(t, err)
		assert.Equal(t, TypeDatetime, table.Columns[0].Type)
		assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), table.Rows[0][0])
	})

	t.Run("zoned datetimes become TypeDatetimeOffset", func(t *testing.T) {
		t.Parallel()

		input := "seen\n2024-01-15T10:30:00+09:00\n2024-01-16T00:00:00Z"

		table, err := ReadTable(strings.NewReader(input), CSV)

		require.NoError(t, err)
		assert.Equal(t, TypeDatetimeOffset, table.Columns[0].Type)
		seen, ok := table.Rows[0][0].(time.Time)
		require.True(t, ok)
		assert.True(t, seen.Equal(time.Date(2024, 1, 15, 1, 30, 0, 0, time.UTC)))
	})

	t.Run("column with unparsable minority is demoted to text", func(t *testing.T) {
		t.Parallel()

		input := "code\n1\n2\n3\n4\nX5"

		table, err := ReadTable(strings.NewReader(input), CSV)

		require.NoError(t, err)
		assert.Equal(t, TypeText, table.Columns[0].Type)
		assert.Equal(t, "1", table.Rows[0][0])
		assert.Equal(t, "X5", table.Rows[4][0])
	})

	t.Run("returns error for empty input", func(t *testing.T) {
		t.Parallel()

		_, err := ReadTable(strings.NewReader(""), CSV)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "empty CSV data")
	})

	t.Run("returns error for nil reader", func(t *testing.T) {
		t.Parallel()

		_, err := ReadTable(nil, CSV)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "reader cannot be nil")
	})

	t.Run("returns error for duplicate column names", func(t *testing.T) {
		t.Parallel()

		input := "name,name,city\nAlice,30,Tokyo"

		_, err := ReadTable(strings.NewReader(input), CSV)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate column name")
	})

	t.Run("returns error for empty column name", func(t *testing.T) {
		t.Parallel()

		input := "name,,city\nAlice,30,Tokyo"

		_, err := ReadTable(strings.NewReader(input), CSV)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "empty column name")
	})
}

func TestReadTable_TSV(t *testing.T) {
	t.Parallel()

	input := "id\tproduct\tprice\n1\tLaptop\t999.99\n2\tMouse\t29.99"

	table, err := ReadTable(strings.NewReader(input), TSV)

	require.NoError(t, err)
	assert.Equal(t, []Column{
		{Name: "id", Type: TypeInteger},
		{Name: "product", Type: TypeText},
		{Name: "price", Type: TypeReal},
	}, table.Columns)
	assert.Equal(t, Row{int64(1), "Laptop", 999.99}, table.Rows[0])
}

func TestReadTable_LTSV(t *testing.T) {
	t.Parallel()

	t.Run("preserves first-seen column order", func(t *testing.T) {
		t.Parallel()

		input := "col_a:1\tcol_b:2\tcol_c:3\ncol_c:6\tcol_a:4\tcol_b:5"

		table, err := ReadTable(strings.NewReader(input), LTSV)

		require.NoError(t, err)
		assert.Equal(t, "col_a", table.Columns[0].Name)
		assert.Equal(t, "col_b", table.Columns[1].Name)
		assert.Equal(t, "col_c", table.Columns[2].Name)
		assert.Equal(t, Row{int64(1), int64(2), int64(3)}, table.Rows[0])
		assert.Equal(t, Row{int64(4), int64(5), int64(6)}, table.Rows[1])
	})

	t.Run("missing labels become nil", func(t *testing.T) {
		t.Parallel()

		input := "host:a\tstatus:200\nhost:b"

		table, err := ReadTable(strings.NewReader(input), LTSV)

		require.NoError(t, err)
		assert.Equal(t, Row{"b", nil}, table.Rows[1])
	})

	t.Run("returns error for empty LTSV", func(t *testing.T) {
		t.Parallel()

		_, err := ReadTable(strings.NewReader(""), LTSV)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "no valid LTSV records found")
	})

	t.Run("returns error for empty label", func(t *testing.T) {
		t.Parallel()

		_, err := ReadTable(strings.NewReader("host:a\t:x\nhost:b\t:y"), LTSV)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "empty column name at position 2")
	})
}

func TestReadTable_Compressed(t *testing.T) {
	t.Parallel()

	const input = "id,name\n1,Alice\n2,Bob"

	testCases := []struct {
		fileType FileType
		compress func(t *testing.T, data []byte) []byte
	}{
		{CSVGZ, func(t *testing.T, data []byte) []byte {
			t.Helper()
			var buf bytes.Buffer
			w := gzip.NewWriter(&buf)
			_, err := w.Write(data)
			require.NoError(t, err)
			require.NoError(t, w.Close())
			return buf.Bytes()
		}},
		{CSVZSTD, func(t *testing.T, data []byte) []byte {
			t.Helper()
			var buf bytes.Buffer
			w, err := zstd.NewWriter(&buf)
			require.NoError(t, err)
			_, err = w.Write(data)
			require.NoError(t, err)
			require.NoError(t, w.Close())
			return buf.Bytes()
		}},
		{CSVXZ, func(t *testing.T, data []byte) []byte {
			t.Helper()
			var buf bytes.Buffer
			w, err := xz.NewWriter(&buf)
			require.NoError(t, err)
			_, err = w.Write(data)
			require.NoError(t, err)
			require.NoError(t, w.Close())
			return buf.Bytes()
		}},
		{CSVLZ4, func(t *testing.T, data []byte) []byte {
			t.Helper()
			var buf bytes.Buffer
			w := lz4.NewWriter(&buf)
			_, err := w.Write(data)
			require.NoError(t, err)
			require.NoError(t, w.Close())
			return buf.Bytes()
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.fileType.String(), func(t *testing.T) {
			t.Parallel()

			compressed := tc.compress(t, []byte(input))

			table, err := ReadTable(bytes.NewReader(compressed), tc.fileType)

			require.NoError(t, err)
			assert.Equal(t, 2, table.NumRows())
			assert.Equal(t, Row{int64(2), "Bob"}, table.Rows[1])
		})
	}
}

func TestReadTable_UnsupportedFileType(t *testing.T) {
	t.Parallel()

	_, err := ReadTable(strings.NewReader("test data"), Unsupported)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported")
}

func TestBaseFileType(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		fileType FileType
		expected FileType
	}{
		{CSV, CSV},
		{CSVGZ, CSV},
		{CSVBZ2, CSV},
		{CSVXZ, CSV},
		{CSVZSTD, CSV},
		{CSVLZ4, CSV},
		{TSV, TSV},
		{TSVGZ, TSV},
		{LTSV, LTSV},
		{LTSVLZ4, LTSV},
		{XLSX, XLSX},
		{XLSXGZ, XLSX},
		{Unsupported, Unsupported},
	}

	for _, tc := range testCases {
		t.Run(tc.fileType.String(), func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.expected, BaseFileType(tc.fileType))
		})
	}
}

func TestFileType_String(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		fileType FileType
		expected string
	}{
		{CSV, "CSV"},
		{TSV, "TSV"},
		{LTSV, "LTSV"},
		{XLSX, "XLSX"},
		{CSVGZ, "CSV (gzip)"},
		{CSVBZ2, "CSV (bzip2)"},
		{CSVXZ, "CSV (xz)"},
		{CSVZSTD, "CSV (zstd)"},
		{CSVLZ4, "CSV (lz4)"},
		{TSVGZ, "TSV (gzip)"},
		{XLSXGZ, "XLSX (gzip)"},
		{Unsupported, "Unsupported"},
		{FileType(999), "Unsupported"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.expected, tc.fileType.String())
		})
	}
}

func TestDetectFileType(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		path     string
		expected FileType
	}{
		// Base formats
		{"data.csv", CSV},
		{"data.tsv", TSV},
		{"data.ltsv", LTSV},
		{"data.xlsx", XLSX},

		// Compressed
		{"data.csv.gz", CSVGZ},
		{"data.tsv.bz2", TSVBZ2},
		{"data.ltsv.xz", LTSVXZ},
		{"data.xlsx.zst", XLSXZSTD},
		{"data.csv.lz4", CSVLZ4},

		// Case insensitive
		{"DATA.CSV", CSV},
		{"data.CSV.GZ", CSVGZ},
		{"DATA.TSV.LZ4", TSVLZ4},

		// With path
		{"/path/to/data.csv", CSV},
		{"./relative/path/data.tsv.gz", TSVGZ},

		// Unsupported
		{"data.parquet", Unsupported},
		{"data.txt", Unsupported},
		{"data.json.gz", Unsupported},
		{"noextension", Unsupported},
		{"", Unsupported},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.expected, DetectFileType(tc.path))
		})
	}
}

func TestCreateDecompressedReader_NoCompression(t *testing.T) {
	t.Parallel()

	for _, ft := range []FileType{CSV, TSV, LTSV, XLSX} {
		t.Run(ft.String(), func(t *testing.T) {
			t.Parallel()

			reader, closeFunc, err := createDecompressedReader(strings.NewReader("test data"), ft)

			assert.NoError(t, err)
			assert.Nil(t, closeFunc)
			data, err := io.ReadAll(reader)
			require.NoError(t, err)
			assert.Equal(t, "test data", string(data))
		})
	}
}

func TestCreateDecompressedReader_InvalidGzip(t *testing.T) {
	t.Parallel()

	_, _, err := createDecompressedReader(strings.NewReader("not gzip data"), CSVGZ)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "gzip")
}

func TestCreateDecompressedReader_InvalidXZ(t *testing.T) {
	t.Parallel()

	_, _, err := createDecompressedReader(strings.NewReader("not xz data"), CSVXZ)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "xz")
}

func TestCreateDecompressedReader_InvalidLZ4(t *testing.T) {
	t.Parallel()

	// lz4 only fails once the frame header is read
	reader, closeFunc, err := createDecompressedReader(strings.NewReader("not lz4 data"), CSVLZ4)

	require.NoError(t, err)
	assert.Nil(t, closeFunc)
	_, err = io.ReadAll(reader)
	assert.Error(t, err)
}

func TestIsCompressed(t *testing.T) {
	t.Parallel()

	compressedTypes := []FileType{
		CSVGZ, CSVBZ2, CSVXZ, CSVZSTD, CSVLZ4,
		TSVGZ, TSVBZ2, TSVXZ, TSVZSTD, TSVLZ4,
		LTSVGZ, LTSVBZ2, LTSVXZ, LTSVZSTD, LTSVLZ4,
		XLSXGZ, XLSXBZ2, XLSXXZ, XLSXZSTD, XLSXLZ4,
	}

	uncompressedTypes := []FileType{
		CSV, TSV, LTSV, XLSX, Unsupported,
	}

	for _, ft := range compressedTypes {
		t.Run(ft.String()+"_compressed", func(t *testing.T) {
			t.Parallel()
			assert.True(t, IsCompressed(ft))
		})
	}

	for _, ft := range uncompressedTypes {
		t.Run(ft.String()+"_uncompressed", func(t *testing.T) {
			t.Parallel()
			assert.False(t, IsCompressed(ft))
		})
	}
}
