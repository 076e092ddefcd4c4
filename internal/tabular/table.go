package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
)

var (
	// ErrSheetNotFound is returned when a workbook has no sheet with the requested name
	ErrSheetNotFound = errors.New("sheet not found")

	// ErrTableNotFound is returned when an HTML page has no table matching the selector
	ErrTableNotFound = errors.New("table not found")

	// ErrNoMatchingMember is returned when no archive member matches the pattern
	ErrNoMatchingMember = errors.New("no archive member matches pattern")

	// ErrAmbiguousMember is returned when more than one archive member matches the pattern
	ErrAmbiguousMember = errors.New("more than one archive member matches pattern")
)

// Table is a grid of string cells. Decoders may produce rows of different
// lengths; EncodeCSV pads them to the table width.
type Table struct {
	Rows [][]string
}

// Len returns the number of rows
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

func (t *Table) rows() [][]string {
	if t == nil {
		return nil
	}
	return t.Rows
}

// Width returns the length of the longest row
func (t *Table) Width() int {
	if t == nil {
		return 0
	}
	width := 0
	for _, row := range t.Rows {
		width = max(width, len(row))
	}
	return width
}

// EncodeCSV serializes the table as RFC 4180 CSV with "\n" line endings.
// Every record has Width fields; short rows are padded with empty cells.
func (t *Table) EncodeCSV() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	width := t.Width()
	record := make([]string, width)
	for _, row := range t.rows() {
		n := copy(record, row)
		clear(record[n:])
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to encode csv: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to encode csv: %w", err)
	}
	return buf.Bytes(), nil
}
