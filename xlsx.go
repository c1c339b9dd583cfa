package tableparquet

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// parseXLSX parses the first sheet of Excel XLSX data.
func parseXLSX(reader io.Reader) ([]string, [][]string, error) {
	// Read all data into memory (excelize requires this)
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read XLSX data: %w", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open XLSX: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, errors.New("no sheets found in XLSX file")
	}

	sheetName := sheets[0]
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sheet %s: %w", sheetName, err)
	}

	if len(rows) == 0 {
		return nil, nil, errors.New("empty XLSX sheet")
	}

	headers := rows[0]
	if len(headers) == 0 {
		return nil, nil, errors.New("no headers found in XLSX")
	}

	if err := validateColumnNames(headers); err != nil {
		return nil, nil, err
	}

	// GetRows trims trailing empty cells, so pad or truncate to the header width
	records := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		normalizedRow := make([]string, len(headers))
		copy(normalizedRow, row)
		records = append(records, normalizedRow)
	}

	return headers, records, nil
}
