package importer

import (
	"encoding/csv"
	"errors"
	"io"
	"time"
)

// ErrInvalidCSV reports that the input stream could not be parsed as a
// headered CSV file.
var ErrInvalidCSV = errors.New("invalid csv")

// ReadRows streams a headered CSV file and transforms every record. The
// whole stream is consumed before anything is returned, so a parse failure
// midway surfaces as ErrInvalidCSV with no rows.
func ReadRows(r io.Reader, now time.Time) ([]Row, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrInvalidCSV
	}
	if err != nil {
		return nil, ErrInvalidCSV
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, ErrInvalidCSV
		}
		rows = append(rows, TransformRow(header, record, now))
	}
	return rows, nil
}
