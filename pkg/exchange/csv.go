// Package exchange implements the interchange formats the glossary speaks:
// CSV for bulk import/export, a JSON snapshot used by remote sync, and a
// standalone HTML document export.
package exchange

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// Record is one glossary row in interchange form.
type Record struct {
	Term         string
	Definition   string
	Example      string
	SourceLabels []string
}

// csvHeader is the column layout of import/export files. Source labels share
// one column, joined with ';'.
var csvHeader = []string{"term", "definition", "example", "sources"}

const labelSeparator = ";"

// ParseCSV reads glossary records from r. A leading header row matching the
// export layout is skipped. Rows may carry one to four columns; missing
// trailing columns are treated as empty. Blank rows are dropped.
func ParseCSV(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var records []Record
	row := 0
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv row %d: %w", row+1, err)
		}
		row++

		if row == 1 && isHeaderRow(fields) {
			continue
		}
		if len(fields) > len(csvHeader) {
			return nil, fmt.Errorf("csv row %d: expected at most %d columns, got %d", row, len(csvHeader), len(fields))
		}

		rec := Record{Term: strings.TrimSpace(field(fields, 0))}
		rec.Definition = field(fields, 1)
		rec.Example = field(fields, 2)
		if labels := strings.TrimSpace(field(fields, 3)); labels != "" {
			for _, l := range strings.Split(labels, labelSeparator) {
				if l = strings.TrimSpace(l); l != "" {
					rec.SourceLabels = append(rec.SourceLabels, l)
				}
			}
		}
		if rec.Term == "" && rec.Definition == "" && rec.Example == "" {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// WriteCSV writes records to w with a header row.
func WriteCSV(w io.Writer, records []Record) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, rec := range records {
		row := []string{
			rec.Term,
			rec.Definition,
			rec.Example,
			strings.Join(rec.SourceLabels, labelSeparator),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write csv row for %q: %w", rec.Term, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func isHeaderRow(fields []string) bool {
	if len(fields) == 0 {
		return false
	}
	for i, f := range fields {
		if i >= len(csvHeader) {
			return false
		}
		if !strings.EqualFold(strings.TrimSpace(f), csvHeader[i]) {
			return false
		}
	}
	return true
}

func field(fields []string, i int) string {
	if i < len(fields) {
		return fields[i]
	}
	return ""
}
