// File: internal/casefile/casefile.go
// Package casefile loads test-case suites from JSON, YAML or XLSX files.
// Every loader funnels through the same JSON decoding of schemas.TestCase, so
// field aliases and loose value types behave identically across formats.
package casefile

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/json-iterator/go"
	"github.com/kaptinlin/jsonrepair"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/casepilot/api/schemas"
)

// Format is a supported suite file format.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatXLSX Format = "xlsx"
)

// ErrNoCases is returned when a file parses but holds no test cases.
var ErrNoCases = errors.New("no test cases found")

// Options tunes Load.
type Options struct {
	// Sheet selects the worksheet of an XLSX file; empty means the first one.
	Sheet string
}

// FormatOf infers the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".txt":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported case file extension %q (want .json, .yaml, .yml or .xlsx)", filepath.Ext(path))
	}
}

// Load reads and normalizes the cases in path.
func Load(path string, opts Options) ([]schemas.TestCase, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read case file: %w", err)
	}

	var cases []schemas.TestCase
	switch format {
	case FormatYAML:
		cases, err = ParseYAML(data)
	case FormatXLSX:
		cases, err = ReadXLSX(bytes.NewReader(data), opts.Sheet)
	default:
		cases, err = ParseJSON(data)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return schemas.Normalize(cases), nil
}

// envelope is the object form some generators wrap the case array in.
type envelope struct {
	Tests     []schemas.TestCase `json:"tests"`
	TestCases []schemas.TestCase `json:"test_cases"`
}

// ParseJSON decodes a case array. It accepts a bare array, an object with a
// tests or test_cases field, or free text around an array, as produced by
// language models. A malformed array is repaired before giving up.
func ParseJSON(data []byte) ([]schemas.TestCase, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, ErrNoCases
	}

	if trimmed[0] == '{' {
		var env envelope
		if err := json.Unmarshal(trimmed, &env); err == nil {
			if cases := append(env.Tests, env.TestCases...); len(cases) > 0 {
				return cases, nil
			}
			return nil, ErrNoCases
		}
	}

	start, end := bytes.IndexByte(trimmed, '['), bytes.LastIndexByte(trimmed, ']')
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no JSON array in input", ErrNoCases)
	}
	array := trimmed[start : end+1]

	var cases []schemas.TestCase
	strictErr := json.Unmarshal(array, &cases)
	if strictErr != nil {
		repaired, err := jsonrepair.JSONRepair(string(array))
		if err != nil {
			return nil, fmt.Errorf("invalid case array: %w", strictErr)
		}
		cases = nil
		if err := json.Unmarshal([]byte(repaired), &cases); err != nil {
			return nil, fmt.Errorf("invalid case array after repair: %w", err)
		}
	}
	if len(cases) == 0 {
		return nil, ErrNoCases
	}
	return cases, nil
}

// ParseYAML decodes a YAML list of cases, or a mapping with a tests or
// test_cases key.
func ParseYAML(data []byte) ([]schemas.TestCase, error) {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	if doc == nil {
		return nil, ErrNoCases
	}
	// Re-encode as JSON so YAML suites get the same aliases and coercions.
	asJSON, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("unsupported YAML structure: %w", err)
	}
	return ParseJSON(asJSON)
}
