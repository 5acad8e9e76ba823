package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ReadCSV parses rows of code,description,unitPrice[,keywords]. Keywords are
// separated by ";". A first row whose price column is not a number is taken
// as a header and skipped.
func ReadCSV(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var entries []Entry
	for line := 1; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return entries, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}
		if len(row) < 3 {
			return nil, fmt.Errorf("line %d: want at least 3 columns, got %d", line, len(row))
		}

		price, err := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
		if err != nil {
			if line == 1 {
				continue
			}
			return nil, fmt.Errorf("line %d: invalid unit price %q", line, row[2])
		}
		e := Entry{
			Code:        strings.TrimSpace(row[0]),
			Description: strings.TrimSpace(row[1]),
			UnitPrice:   price,
		}
		if e.Code == "" {
			return nil, fmt.Errorf("line %d: empty code", line)
		}
		if len(row) > 3 {
			e.Keywords = splitKeywords(row[3])
		}
		entries = append(entries, e)
	}
}

func splitKeywords(s string) []string {
	var out []string
	for _, k := range strings.Split(s, ";") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}
