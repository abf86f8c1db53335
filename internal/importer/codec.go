// Package importer turns exported habit spreadsheets into vane documents.
// A row's date-labelled columns become completion-log entries; everything
// else is scalar metadata, with the HABIT column carrying the title.
package importer

import (
	"time"

	"github.com/google/uuid"

	"vane/api/internal/store"
)

// headerDateLayout matches column headers like "01 Jan 2021".
const headerDateLayout = "02 Jan 2006"

// dayLayout is the canonical calendar-day form stored on log entries.
const dayLayout = "2006-01-02"

// Row is one transformed CSV record: the vane title, the remaining scalar
// metadata, and the completion-log entries in column order.
type Row struct {
	Title  string
	Fields map[string]string
	Log    []store.LogEntry
}

// TransformRow maps one CSV record against its header. For each column:
// an empty name or empty cell is skipped; a date-named column whose cell is
// the literal TRUE emits a log entry for that day, stamped with the import
// instant and a fresh key; any other column is kept as metadata. A row
// without a HABIT column still passes through with an empty title.
func TransformRow(header, record []string, now time.Time) Row {
	row := Row{Fields: map[string]string{}}

	for i, name := range header {
		if i >= len(record) {
			break
		}
		value := record[i]
		if name == "" || value == "" {
			continue
		}

		day, err := time.Parse(headerDateLayout, name)
		if err != nil {
			row.Fields[name] = value
			continue
		}
		if value != "TRUE" {
			continue
		}
		row.Log = append(row.Log, store.LogEntry{
			Key:       uuid.NewString(),
			Timestamp: now.UTC().Format(time.RFC3339),
			Day:       day.Format(dayLayout),
		})
	}

	row.Title = row.Fields["HABIT"]
	return row
}
