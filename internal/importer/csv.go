// Package importer loads monthly records from CSV files into a record store.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"monthlydata/internal/validation"
	"monthlydata/models"
)

// Row is one parsed data line. Line is 1-based and counts the header.
type Row struct {
	Line  int
	Input validation.RecordInput
}

// ReadRows parses a CSV with a header naming username, mobile and any of jan..dec.
// Header names are case-insensitive; unknown columns are ignored and blank month
// cells are treated as absent.
func ReadRows(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("empty CSV: missing header")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	userCol, ok := cols["username"]
	if !ok {
		return nil, errors.New("header has no username column")
	}
	mobileCol, ok := cols["mobile"]
	if !ok {
		return nil, errors.New("header has no mobile column")
	}

	cell := func(rec []string, i int) string {
		if i < len(rec) {
			return rec[i]
		}
		return ""
	}

	var rows []Row
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		var in validation.RecordInput
		in.Username.Value = cell(rec, userCol)
		in.Mobile.Value = cell(rec, mobileCol)
		for i, name := range models.MonthNames {
			if c, ok := cols[name]; ok {
				in.SetMonthText(i, cell(rec, c))
			}
		}
		rows = append(rows, Row{Line: line, Input: in})
	}
	return rows, nil
}
