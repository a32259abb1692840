// Package batch turns CSV rows into a zip of rendered codes. Rows are
// processed one at a time in input order; each row succeeds or fails on
// its own and progress is published after every row.
package batch

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	ErrTooManyRows = errors.New("csv has too many rows")
	ErrNoRows      = errors.New("csv has no data rows")
)

// Row is one CSV line: the raw payload and an optional label.
type Row struct {
	Data  string `json:"data"`
	Label string `json:"label,omitempty"`
}

// ParseCSV reads "data,label" records. A first record whose data cell is
// the literal "data" is taken as a header. Fully blank records are skipped;
// a record with a label but no data is kept and fails during the run.
func ParseCSV(r io.Reader, maxItems int) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true

	var rows []Row
	first := true
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}

		var data, label string
		if len(rec) > 0 {
			data = strings.TrimSpace(strings.TrimPrefix(rec[0], "\ufeff"))
		}
		if len(rec) > 1 {
			label = strings.TrimSpace(rec[1])
		}

		if first {
			first = false
			if strings.EqualFold(data, "data") {
				continue
			}
		}
		if data == "" && label == "" {
			continue
		}
		if maxItems > 0 && len(rows) == maxItems {
			return nil, fmt.Errorf("%w: limit is %d", ErrTooManyRows, maxItems)
		}
		rows = append(rows, Row{Data: data, Label: label})
	}
	if len(rows) == 0 {
		return nil, ErrNoRows
	}
	return rows, nil
}
