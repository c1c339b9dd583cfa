package tableparquet

import (
	"strconv"
	"strings"
	"time"
)

// Type inference constants
const (
	maxSampleSize          = 1000
	minConfidenceThreshold = 0.8
	minDatetimeLength      = 4
	maxDatetimeLength      = 35
)

// datetimeFormats are the accepted datetime layouts. Zoned layouts carry an
// explicit UTC offset.
var datetimeFormats = []struct {
	layout string
	zoned  bool
}{
	{time.RFC3339, true},
	{time.RFC3339Nano, true},
	{"2006-01-02T15:04:05-07:00", true},
	{"2006-01-02", false},
	{"2006-01-02 15:04:05", false},
	{"2006/01/02", false},
	{"2006/01/02 15:04:05", false},
	{"01/02/2006", false},
	{"01-02-2006", false},
	{"02/01/2006", false},
	{"02-01-2006", false},
	{"2006-01-02T15:04:05", false},
	{"Jan 2, 2006", false},
	{"January 2, 2006", false},
	{"02 Jan 2006", false},
}

// newTableFromRecords builds a typed table from string records.
func newTableFromRecords(headers []string, records [][]string) *Table {
	columnTypes := inferColumnTypes(headers, records)

	rows := make([]Row, len(records))
	for i := range rows {
		rows[i] = make(Row, len(headers))
	}

	columns := make([]Column, len(headers))
	for i, name := range headers {
		columns[i] = Column{
			Name: name,
			Type: convertColumn(records, i, columnTypes[i], rows),
		}
	}

	return &Table{Columns: columns, Rows: rows}
}

// convertColumn fills column col of rows with values converted to colType
// and returns the type the column ends up with. A column with a value that
// does not convert is demoted to text, and a datetime column whose values
// all carry a UTC offset is promoted to TypeDatetimeOffset.
func convertColumn(records [][]string, col int, colType ColumnType, rows []Row) ColumnType {
	allZoned := true
	nonNull := 0

	for r, record := range records {
		raw := cell(record, col)
		if raw == "" {
			rows[r][col] = nil
			continue
		}
		nonNull++

		if colType == TypeDatetime {
			t, zoned, ok := parseDatetime(raw)
			if !ok {
				return fillText(records, col, rows)
			}
			allZoned = allZoned && zoned
			rows[r][col] = t
			continue
		}

		v := ParseValue(raw, colType)
		if _, isText := v.(string); isText && colType != TypeText {
			return fillText(records, col, rows)
		}
		rows[r][col] = v
	}

	if colType == TypeDatetime && nonNull > 0 && allZoned {
		return TypeDatetimeOffset
	}
	return colType
}

// fillText fills column col of rows with the raw strings.
func fillText(records [][]string, col int, rows []Row) ColumnType {
	for r, record := range records {
		raw := cell(record, col)
		if raw == "" {
			rows[r][col] = nil
			continue
		}
		rows[r][col] = raw
	}
	return TypeText
}

// cell returns the trimmed value at col, or "" when the record is short.
func cell(record []string, col int) string {
	if col >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[col])
}

// inferColumnTypes infers the type of each column based on the data.
func inferColumnTypes(headers []string, records [][]string) []ColumnType {
	columnTypes := make([]ColumnType, len(headers))

	for i := range headers {
		columnTypes[i] = inferColumnType(records, i)
	}

	return columnTypes
}

// inferColumnType infers the type of a single column.
func inferColumnType(records [][]string, colIndex int) ColumnType {
	if len(records) == 0 {
		return TypeText
	}

	// Collect non-empty values for this column
	var values []string
	sampleSize := min(len(records), maxSampleSize)
	for i := range sampleSize {
		if val := cell(records[i], colIndex); val != "" {
			values = append(values, val)
		}
	}

	if len(values) == 0 {
		return TypeText
	}

	// Count types
	var intCount, floatCount, boolCount, datetimeCount int
	for _, val := range values {
		switch classifyValue(val) {
		case TypeInteger:
			intCount++
		case TypeReal:
			floatCount++
		case TypeBoolean:
			boolCount++
		case TypeDatetime:
			datetimeCount++
		}
	}

	total := len(values)

	// Determine type based on majority
	if float64(intCount)/float64(total) >= minConfidenceThreshold {
		return TypeInteger
	}
	if float64(intCount+floatCount)/float64(total) >= minConfidenceThreshold {
		return TypeReal
	}
	if float64(boolCount)/float64(total) >= minConfidenceThreshold {
		return TypeBoolean
	}
	if float64(datetimeCount)/float64(total) >= minConfidenceThreshold {
		return TypeDatetime
	}

	return TypeText
}

// classifyValue determines the type of a single value.
func classifyValue(value string) ColumnType {
	switch {
	case value == "":
		return TypeText
	case isInteger(value):
		return TypeInteger
	case isFloat(value):
		return TypeReal
	case isBoolean(value):
		return TypeBoolean
	case isDatetime(value):
		return TypeDatetime
	default:
		return TypeText
	}
}

// isInteger checks if the string represents an integer.
func isInteger(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}

	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

// isFloat checks if the string represents a floating-point number.
func isFloat(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}

	// Must contain decimal point or scientific notation
	if !strings.Contains(s, ".") && !strings.ContainsAny(s, "eE") {
		return false
	}

	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// isBoolean checks if the string is "true" or "false", ignoring case.
func isBoolean(s string) bool {
	s = strings.TrimSpace(s)
	return strings.EqualFold(s, "true") || strings.EqualFold(s, "false")
}

// isDatetime checks if the string represents a datetime value.
func isDatetime(s string) bool {
	_, _, ok := parseDatetime(s)
	return ok
}

// parseDatetime parses s with the first matching layout and reports whether
// that layout carries a UTC offset.
func parseDatetime(s string) (time.Time, bool, bool) {
	s = strings.TrimSpace(s)
	if len(s) < minDatetimeLength || len(s) > maxDatetimeLength {
		return time.Time{}, false, false
	}

	for _, format := range datetimeFormats {
		if t, err := time.Parse(format.layout, s); err == nil {
			return t, format.zoned, true
		}
	}

	return time.Time{}, false, false
}

// ParseValue converts a string value to the Go type held by cells of colType.
//
// Conversion rules:
//   - TypeInteger: returns int64, or original string if parsing fails
//   - TypeReal: returns float64, or original string if parsing fails
//   - TypeBoolean: returns bool, or original string if parsing fails
//   - TypeDatetime, TypeDatetimeOffset: returns time.Time, or original string if parsing fails
//   - TypeText and other types: returns string as-is
//   - Empty values return nil
func ParseValue(value string, colType ColumnType) any {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	switch colType {
	case TypeInteger:
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
		return value
	case TypeReal:
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		return value
	case TypeBoolean:
		if isBoolean(value) {
			return strings.EqualFold(value, "true")
		}
		return value
	case TypeDatetime, TypeDatetimeOffset:
		if t, _, ok := parseDatetime(value); ok {
			return t
		}
		return value
	default:
		return value
	}
}
