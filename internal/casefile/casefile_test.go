// internal/casefile/casefile_test.go
package casefile

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/xkilldash9x/casepilot/api/schemas"
)

func TestParseJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		ids   []int
		err   bool
	}{
		{"bare array", `[{"id":1,"description":"a"},{"id":2,"description":"b"}]`, []int{1, 2}, false},
		{"tests envelope", `{"tests":[{"id":3}]}`, []int{3}, false},
		{"test_cases envelope", `{"test_cases":[{"id":"4"}]}`, []int{4}, false},
		{"model prose around array", "Sure! Here are your tests:\n```json\n[{\"id\": 5, \"name\": \"Login\"}]\n```\nGood luck.", []int{5}, false},
		{"trailing comma repaired", `[{"id": 6, "description": "x",},]`, []int{6}, false},
		{"single quotes repaired", `[{'id': 7, 'description': 'y'}]`, []int{7}, false},
		{"empty array", `[]`, nil, true},
		{"empty envelope", `{"tests":[]}`, nil, true},
		{"no array", `nothing to see`, nil, true},
		{"empty input", ``, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cases, err := ParseJSON([]byte(tt.input))
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			got := make([]int, len(cases))
			for i, c := range cases {
				got[i] = c.ID
			}
			assert.Equal(t, tt.ids, got)
		})
	}
}

func TestParseJSON_NoCasesIsSentinel(t *testing.T) {
	_, err := ParseJSON([]byte(`[]`))
	assert.ErrorIs(t, err, ErrNoCases)
}

func TestParseYAML(t *testing.T) {
	doc := `
tests:
  - id: 1
    title: Login works
    description: Login with valid credentials
    locator: "#login"
    data:
      remember: true
  - id: 2
    type: api
    url: /health
    expected_status: 204
    headers:
      X-Trace: 1
`
	cases, err := ParseYAML([]byte(doc))
	require.NoError(t, err)
	require.Len(t, cases, 2)

	assert.Equal(t, "Login works", cases[0].Name)
	assert.Equal(t, "#login", cases[0].Selector)
	assert.Equal(t, map[string]string{"remember": "true"}, cases[0].Data)

	assert.Equal(t, "/health", cases[1].Endpoint)
	assert.Equal(t, 204, cases[1].ExpectedStatus)
	assert.Equal(t, "1", cases[1].Headers["X-Trace"])

	_, err = ParseYAML([]byte("tests: [unterminated"))
	assert.Error(t, err)
	_, err = ParseYAML([]byte(""))
	assert.ErrorIs(t, err, ErrNoCases)
}

func workbook(t *testing.T, sheet string, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	if sheet != "Sheet1" {
		_, err := f.NewSheet(sheet)
		require.NoError(t, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestReadXLSX(t *testing.T) {
	data := workbook(t, "Sheet1", [][]interface{}{
		{"ID", "Name", "Description", "Type", "Selector", "Method", "Endpoint", "Expected Status", "Data", "Username", "Password"},
		{1, "Home", "Page loads", "ui", "#main", "", "", "", "", "", ""},
		{},
		{"2", "Health", "API is up", "API", "", "get", "/health", 200, "", "", ""},
		{3, "Login", "Login should fail with incorrect password", "", "", "", "", "", `{"remember":"no"}`, "ada", "pw"},
	})

	cases, err := ReadXLSX(bytes.NewReader(data), "")
	require.NoError(t, err)
	require.Len(t, cases, 3, "blank rows are skipped")

	assert.Equal(t, schemas.TestCase{ID: 1, Name: "Home", Description: "Page loads", Type: "ui", Selector: "#main"}, cases[0])
	assert.Equal(t, 2, cases[1].ID)
	assert.Equal(t, "/health", cases[1].Endpoint)
	assert.Equal(t, 200, cases[1].ExpectedStatus)
	assert.Equal(t, "get", cases[1].Method)

	require.NotNil(t, cases[2].Credentials)
	assert.Equal(t, "ada", cases[2].Credentials.Username)
	assert.Equal(t, "pw", cases[2].Credentials.Password)
	assert.Equal(t, map[string]string{"remember": "no"}, cases[2].Data)
}

func TestReadXLSX_NamedSheet(t *testing.T) {
	data := workbook(t, "Regression", [][]interface{}{
		{"id", "description"},
		{9, "smoke"},
	})
	cases, err := ReadXLSX(bytes.NewReader(data), "Regression")
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Equal(t, 9, cases[0].ID)

	_, err = ReadXLSX(bytes.NewReader(data), "Missing")
	assert.Error(t, err)

	// The default sheet exists but only has no rows.
	_, err = ReadXLSX(bytes.NewReader(data), "")
	assert.ErrorIs(t, err, ErrNoCases)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
		return p
	}

	cases, err := Load(write("suite.json", `[{"description":"a"},{"id":0,"description":"b"},{"id":9,"name":"  "}]`), Options{})
	require.NoError(t, err)
	require.Len(t, cases, 3)
	assert.Equal(t, 1, cases[0].ID)
	assert.Equal(t, 2, cases[1].ID)
	assert.Equal(t, "Test 2", cases[1].Name)
	assert.Equal(t, 9, cases[2].ID)
	assert.Equal(t, "Test 9", cases[2].Name)

	cases, err = Load(write("suite.yml", "- id: 4\n  description: x\n"), Options{})
	require.NoError(t, err)
	assert.Equal(t, 4, cases[0].ID)

	_, err = Load(write("suite.csv", "id\n1\n"), Options{})
	assert.ErrorContains(t, err, "unsupported case file extension")

	_, err = Load(filepath.Join(dir, "absent.json"), Options{})
	assert.ErrorContains(t, err, "failed to read case file")
}
