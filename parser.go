package tableparquet

import (
	"compress/bzip2"
	"compress/gzip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

// FileType represents supported input file types including compression variants.
type FileType int

const (
	// CSV represents CSV file type.
	CSV FileType = iota
	// TSV represents TSV file type.
	TSV
	// LTSV represents LTSV (Labeled Tab-Separated Values) file type.
	LTSV
	// XLSX represents Excel XLSX file type.
	XLSX

	// CSVGZ represents gzip-compressed CSV file type.
	CSVGZ
	// CSVBZ2 represents bzip2-compressed CSV file type.
	CSVBZ2
	// CSVXZ represents xz-compressed CSV file type.
	CSVXZ
	// CSVZSTD represents zstd-compressed CSV file type.
	CSVZSTD
	// CSVLZ4 represents lz4-compressed CSV file type.
	CSVLZ4

	// TSVGZ represents gzip-compressed TSV file type.
	TSVGZ
	// TSVBZ2 represents bzip2-compressed TSV file type.
	TSVBZ2
	// TSVXZ represents xz-compressed TSV file type.
	TSVXZ
	// TSVZSTD represents zstd-compressed TSV file type.
	TSVZSTD
	// TSVLZ4 represents lz4-compressed TSV file type.
	TSVLZ4

	// LTSVGZ represents gzip-compressed LTSV file type.
	LTSVGZ
	// LTSVBZ2 represents bzip2-compressed LTSV file type.
	LTSVBZ2
	// LTSVXZ represents xz-compressed LTSV file type.
	LTSVXZ
	// LTSVZSTD represents zstd-compressed LTSV file type.
	LTSVZSTD
	// LTSVLZ4 represents lz4-compressed LTSV file type.
	LTSVLZ4

	// XLSXGZ represents gzip-compressed XLSX file type.
	XLSXGZ
	// XLSXBZ2 represents bzip2-compressed XLSX file type.
	XLSXBZ2
	// XLSXXZ represents xz-compressed XLSX file type.
	XLSXXZ
	// XLSXZSTD represents zstd-compressed XLSX file type.
	XLSXZSTD
	// XLSXLZ4 represents lz4-compressed XLSX file type.
	XLSXLZ4

	// Unsupported represents unsupported file type.
	Unsupported
)

// compression identifies the compression wrapper of a FileType.
type compression int

const (
	compNone compression = iota
	compGZ
	compBZ2
	compXZ
	compZSTD
	compLZ4
)

// fileTypes maps each base type to its variants, indexed by compression.
var fileTypes = map[FileType][]FileType{
	CSV:  {CSV, CSVGZ, CSVBZ2, CSVXZ, CSVZSTD, CSVLZ4},
	TSV:  {TSV, TSVGZ, TSVBZ2, TSVXZ, TSVZSTD, TSVLZ4},
	LTSV: {LTSV, LTSVGZ, LTSVBZ2, LTSVXZ, LTSVZSTD, LTSVLZ4},
	XLSX: {XLSX, XLSXGZ, XLSXBZ2, XLSXXZ, XLSXZSTD, XLSXLZ4},
}

// split returns the base type and compression of ft.
func (ft FileType) split() (FileType, compression) {
	for base, variants := range fileTypes {
		for comp, variant := range variants {
			if variant == ft {
				return base, compression(comp)
			}
		}
	}
	return Unsupported, compNone
}

// String returns a human-readable string representation of the FileType.
func (ft FileType) String() string {
	base, comp := ft.split()

	var name string
	switch base {
	case CSV:
		name = "CSV"
	case TSV:
		name = "TSV"
	case LTSV:
		name = "LTSV"
	case XLSX:
		name = "XLSX"
	default:
		return "Unsupported"
	}

	switch comp {
	case compGZ:
		return name + " (gzip)"
	case compBZ2:
		return name + " (bzip2)"
	case compXZ:
		return name + " (xz)"
	case compZSTD:
		return name + " (zstd)"
	case compLZ4:
		return name + " (lz4)"
	default:
		return name
	}
}

// File extensions
const (
	ExtCSV  = ".csv"
	ExtTSV  = ".tsv"
	ExtLTSV = ".ltsv"
	ExtXLSX = ".xlsx"
	ExtGZ   = ".gz"
	ExtBZ2  = ".bz2"
	ExtXZ   = ".xz"
	ExtZSTD = ".zst"
	ExtLZ4  = ".lz4"
)

// DetectFileType detects file type from path extension, including compression variants.
func DetectFileType(path string) FileType {
	basePath := path
	comp := compNone

	// Remove compression extensions
	lower := strings.ToLower(path)
	for _, c := range []struct {
		ext  string
		comp compression
	}{
		{ExtGZ, compGZ},
		{ExtBZ2, compBZ2},
		{ExtXZ, compXZ},
		{ExtZSTD, compZSTD},
		{ExtLZ4, compLZ4},
	} {
		if strings.HasSuffix(lower, c.ext) {
			basePath = path[:len(path)-len(c.ext)]
			comp = c.comp
			break
		}
	}

	var base FileType
	switch strings.ToLower(filepath.Ext(basePath)) {
	case ExtCSV:
		base = CSV
	case ExtTSV:
		base = TSV
	case ExtLTSV:
		base = LTSV
	case ExtXLSX:
		base = XLSX
	default:
		return Unsupported
	}
	return fileTypes[base][comp]
}

// IsCompressed returns true if the file type is compressed.
func IsCompressed(ft FileType) bool {
	base, comp := ft.split()
	return base != Unsupported && comp != compNone
}

// BaseFileType returns the base file type without compression.
func BaseFileType(ft FileType) FileType {
	base, _ := ft.split()
	return base
}

// ReadTable reads tabular data from reader and returns it as a typed Table.
// The first record holds the column names. Column types are inferred from
// the data and cells are converted to the Go type of their column; empty
// cells become nil.
//
// Example:
//
//	f, _ := os.Open("data.csv.gz")
//	defer f.Close()
//	table, err := tableparquet.ReadTable(f, tableparquet.CSVGZ)
func ReadTable(reader io.Reader, fileType FileType) (table *Table, err error) {
	if reader == nil {
		return nil, errors.New("reader cannot be nil")
	}

	// Handle decompression
	decompressedReader, closeFunc, decompErr := createDecompressedReader(reader, fileType)
	if decompErr != nil {
		return nil, fmt.Errorf("failed to decompress: %w", decompErr)
	}
	if closeFunc != nil {
		defer func() {
			if closeErr := closeFunc(); closeErr != nil && err == nil {
				err = fmt.Errorf("failed to close decompressor: %w", closeErr)
			}
		}()
	}

	var headers []string
	var records [][]string
	switch BaseFileType(fileType) {
	case CSV:
		headers, records, err = parseDelimited(decompressedReader, ',', "CSV")
	case TSV:
		headers, records, err = parseDelimited(decompressedReader, '\t', "TSV")
	case LTSV:
		headers, records, err = parseLTSV(decompressedReader)
	case XLSX:
		headers, records, err = parseXLSX(decompressedReader)
	default:
		return nil, errors.New("unsupported file type")
	}
	if err != nil {
		return nil, err
	}

	return newTableFromRecords(headers, records), nil
}

// createDecompressedReader wraps the reader with appropriate decompression.
func createDecompressedReader(reader io.Reader, fileType FileType) (io.Reader, func() error, error) {
	_, comp := fileType.split()
	switch comp {
	case compGZ:
		gzReader, err := gzip.NewReader(reader)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		return gzReader, func() error { return gzReader.Close() }, nil

	case compBZ2:
		return bzip2.NewReader(reader), nil, nil

	case compXZ:
		xzReader, err := xz.NewReader(reader)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create xz reader: %w", err)
		}
		return xzReader, nil, nil

	case compZSTD:
		decoder, err := zstd.NewReader(reader)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create zstd reader: %w", err)
		}
		return decoder, func() error { decoder.Close(); return nil }, nil

	case compLZ4:
		return lz4.NewReader(reader), nil, nil

	default:
		// No compression
		return reader, nil, nil
	}
}

// parseDelimited parses CSV or TSV data.
func parseDelimited(reader io.Reader, delimiter rune, fileTypeName string) ([]string, [][]string, error) {
	csvReader := csv.NewReader(reader)
	csvReader.Comma = delimiter

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", fileTypeName, err)
	}

	if len(records) == 0 {
		return nil, nil, fmt.Errorf("empty %s data", fileTypeName)
	}

	headers := records[0]
	if err := validateColumnNames(headers); err != nil {
		return nil, nil, err
	}

	return headers, records[1:], nil
}

// parseLTSV parses LTSV (Labeled Tab-Separated Values) data.
// Column order is preserved as first-seen order for deterministic output.
func parseLTSV(reader io.Reader) ([]string, [][]string, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read LTSV: %w", err)
	}

	var headers []string
	headerSeen := make(map[string]bool)
	var parsedRecords []map[string]string

	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		recordMap := make(map[string]string)
		for _, pair := range strings.Split(line, "\t") {
			kv := strings.SplitN(pair, ":", 2)
			if len(kv) != 2 {
				continue
			}
			key := strings.TrimSpace(kv[0])
			recordMap[key] = strings.TrimSpace(kv[1])
			if !headerSeen[key] {
				headerSeen[key] = true
				headers = append(headers, key)
			}
		}
		if len(recordMap) > 0 {
			parsedRecords = append(parsedRecords, recordMap)
		}
	}

	if len(parsedRecords) == 0 {
		return nil, nil, errors.New("no valid LTSV records found")
	}
	if err := validateColumnNames(headers); err != nil {
		return nil, nil, err
	}

	// Missing labels become empty cells, which are read as nulls.
	records := make([][]string, 0, len(parsedRecords))
	for _, recordMap := range parsedRecords {
		row := make([]string, len(headers))
		for i, key := range headers {
			row[i] = recordMap[key]
		}
		records = append(records, row)
	}

	return headers, records, nil
}

// validateColumnNames checks for empty and duplicate column names.
func validateColumnNames(columns []string) error {
	seen := make(map[string]bool, len(columns))
	for i, col := range columns {
		if col == "" {
			return fmt.Errorf("empty column name at position %d", i+1)
		}
		if seen[col] {
			return fmt.Errorf("duplicate column name: %s", col)
		}
		seen[col] = true
	}
	return nil
}
