package models

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Row is one extracted table record, one value per column.
type Row []string

// Table is an append-only sequence of rows sharing a fixed column set.
type Table struct {
	columns []string
	rows    []Row
}

// NewTable creates an empty table typed against the given column names.
// The column slice is copied so later changes by the caller have no effect.
func NewTable(columns []string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{columns: cols}
}

// Columns returns a copy of the column names.
func (t *Table) Columns() []string {
	cols := make([]string, len(t.columns))
	copy(cols, t.columns)
	return cols
}

// Rows returns the appended rows. The slice must not be modified.
func (t *Table) Rows() []Row { return t.rows }

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Append adds a row. The row width must match the column count.
func (t *Table) Append(row Row) error {
	if len(row) != len(t.columns) {
		return fmt.Errorf("row has %d values, table has %d columns", len(row), len(t.columns))
	}
	r := make(Row, len(row))
	copy(r, row)
	t.rows = append(t.rows, r)
	return nil
}

// Fit pads or truncates values to the column count. It reports whether the
// width had to be adjusted.
func (t *Table) Fit(values []string) (Row, bool) {
	n := len(t.columns)
	row := make(Row, n)
	copy(row, values)
	return row, len(values) != n
}

// WriteCSV writes the header followed by every row.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range t.rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a CSV document produced by WriteCSV back into a Table.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("csv: missing header row")
		}
		return nil, fmt.Errorf("csv: read header: %w", err)
	}

	t := NewTable(header)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return t, nil
		}
		if err != nil {
			return nil, fmt.Errorf("csv: read row %d: %w", t.Len(), err)
		}
		if err := t.Append(rec); err != nil {
			return nil, fmt.Errorf("csv: row %d: %w", t.Len(), err)
		}
	}
}

// Render writes a human-readable rendering of the table to w.
func (t *Table) Render(w io.Writer) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)

	header := make(table.Row, len(t.columns))
	for i, c := range t.columns {
		header[i] = c
	}
	tw.AppendHeader(header)

	for _, row := range t.rows {
		r := make(table.Row, len(row))
		for i, v := range row {
			r[i] = v
		}
		tw.AppendRow(r)
	}
	tw.AppendFooter(table.Row{fmt.Sprintf("%d rows", len(t.rows))})
	tw.SetStyle(table.StyleRounded)
	tw.Render()
}
