package tables

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// MissingColumnError reports a required column absent from a table header
type MissingColumnError struct {
	File   string
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("%s: missing required column %q", e.File, e.Column)
}

// FieldError reports a cell that could not be parsed into its column type
type FieldError struct {
	File   string
	Line   int
	Column string
	Value  string
	Err    error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s:%d: column %q: invalid value %q: %v", e.File, e.Line, e.Column, e.Value, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// ErrEmptyTable is returned when a required table has a header but no rows
var ErrEmptyTable = errors.New("table has no rows")

// record is one parsed CSV row addressed by column name
type record struct {
	file   string
	line   int
	fields []string
	index  map[string]int
}

func (r record) str(col string) string {
	return strings.TrimSpace(r.fields[r.index[col]])
}

func (r record) float(col string) (float64, error) {
	v := r.str(col)
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, &FieldError{File: r.file, Line: r.line, Column: col, Value: v, Err: err}
	}
	return f, nil
}

func (r record) int(col string) (int, error) {
	v := r.str(col)
	i, err := strconv.Atoi(v)
	if err != nil {
		// Tolerate integral floats such as "3.0" written by spreadsheet tools
		f, ferr := strconv.ParseFloat(v, 64)
		if ferr != nil || f != float64(int(f)) {
			return 0, &FieldError{File: r.file, Line: r.line, Column: col, Value: v, Err: err}
		}
		return int(f), nil
	}
	return i, nil
}

// has reports whether the optional column is present
func (r record) has(col string) bool {
	_, ok := r.index[col]
	return ok
}

// readRecords parses a CSV stream, checks the required columns and returns
// every data row. Header names are matched case-insensitively.
func readRecords(name string, rd io.Reader, required []string) ([]record, error) {
	cr := csv.NewReader(rd)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptyTable)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: reading header: %w", name, err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, col := range required {
		if _, ok := index[col]; !ok {
			return nil, &MissingColumnError{File: name, Column: col}
		}
	}

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	records := make([]record, 0, len(rows))
	for i, fields := range rows {
		if len(fields) < len(header) {
			return nil, fmt.Errorf("%s:%d: expected %d fields, got %d", name, i+2, len(header), len(fields))
		}
		records = append(records, record{file: name, line: i + 2, fields: fields, index: index})
	}
	return records, nil
}
