// Package vars holds the batch variable table: named columns crossed
// with ordered rows, each row driving one full run of a workflow.
package vars

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// Table is an ordered set of rows over named columns.
type Table struct {
	Columns []string
	Rows    []map[string]string
}

// FromWorkflowData builds a table from the batch data embedded in a
// workflow file.
func FromWorkflowData(columns []string, rows []map[string]string) *Table {
	return &Table{Columns: columns, Rows: rows}
}

// LoadCSV reads a delimited file whose header row names the columns.
func LoadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening batch data: %w", err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV parses CSV from r. The first record is the header; every
// following record becomes one row keyed by the header names.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1 // tolerate ragged rows; missing cells read as empty

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("batch data is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	t := &Table{Columns: header}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", len(t.Rows)+1, err)
		}
		row := map[string]string{}
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			} else {
				row[col] = ""
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// Len returns the row count.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Row returns the i-th row.
func (t *Table) Row(i int) map[string]string {
	return t.Rows[i]
}
