package bulkimport

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"unicode/utf8"

	dErrors "olympreg/pkg/domain-errors"
)

// Row is one data row keyed by exact header text. Blank cells are absent
// from the map, so lookups distinguish "column missing" from "left empty".
type Row map[string]string

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DecodeCSV parses an uploaded spreadsheet: UTF-8 with an optional leading
// byte-order mark, a header row, and rows that may omit trailing columns.
// Structural failures are whole-file errors with no row numbers.
func DecodeCSV(data []byte, delimiter rune) ([]Row, error) {
	if delimiter != ',' && delimiter != ';' {
		delimiter = ','
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return nil, dErrors.New(dErrors.CodeFormatInvalid,
			"file is not valid UTF-8")
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = delimiter
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeFormatInvalid,
			fmt.Sprintf("malformed CSV: %v", err), err)
	}
	if len(records) == 0 {
		return nil, dErrors.New(dErrors.CodeFormatInvalid, "no header row")
	}

	header := records[0]
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
	}

	rows := make([]Row, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(Row, len(header))
		for i, name := range header {
			if name == "" {
				continue
			}
			// Short rows leave their trailing columns blank.
			value := ""
			if i < len(record) {
				value = strings.TrimSpace(record[i])
			}
			if value != "" {
				row[name] = value
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// commaSplit splits a comma-separated cell into trimmed entries, which must
// be unique within the cell.
func commaSplit(column, value string) ([]string, error) {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]bool, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if seen[p] {
			return nil, dErrors.Newf(dErrors.CodeFormatInvalid,
				"duplicate entries in %s", column)
		}
		seen[p] = true
		out = append(out, p)
	}
	return out, nil
}
