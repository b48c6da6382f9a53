// File: internal/casefile/xlsx.go
package casefile

import (
	"fmt"
	"io"
	"strings"

	json "github.com/json-iterator/go"
	"github.com/xuri/excelize/v2"

	"github.com/xkilldash9x/casepilot/api/schemas"
)

// jsonColumns hold JSON objects in a cell rather than plain text.
var jsonColumns = map[string]bool{
	"data": true, "headers": true, "assert": true, "credentials": true, "body": true, "json": true,
}

// ReadXLSX reads cases from a worksheet whose first row names the columns,
// e.g. id, name, description, type, selector, method, endpoint, expected_status.
// Header names are case-insensitive and spaces become underscores. Columns
// named username and password are folded into credentials.
func ReadXLSX(r io.Reader, sheet string) ([]schemas.TestCase, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, ErrNoCases
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) < 2 {
		return nil, ErrNoCases
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(h)), " ", "_")
	}

	var cases []schemas.TestCase
	for n, row := range rows[1:] {
		record := rowRecord(header, row)
		if len(record) == 0 {
			continue
		}
		raw, err := json.Marshal(record)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", n+2, err)
		}
		var tc schemas.TestCase
		if err := json.Unmarshal(raw, &tc); err != nil {
			return nil, fmt.Errorf("row %d: %w", n+2, err)
		}
		cases = append(cases, tc)
	}
	if len(cases) == 0 {
		return nil, ErrNoCases
	}
	return cases, nil
}

// rowRecord maps non-empty cells to their column names.
func rowRecord(header, row []string) map[string]interface{} {
	record := map[string]interface{}{}
	creds := map[string]string{}
	for i, cell := range row {
		if i >= len(header) || header[i] == "" {
			continue
		}
		cell = strings.TrimSpace(cell)
		if cell == "" {
			continue
		}
		col := header[i]
		switch {
		case col == "username" || col == "password":
			creds[col] = cell
		case jsonColumns[col] && json.Valid([]byte(cell)):
			record[col] = json.RawMessage(cell)
		default:
			record[col] = cell
		}
	}
	if len(creds) > 0 {
		record["credentials"] = creds
	}
	return record
}
