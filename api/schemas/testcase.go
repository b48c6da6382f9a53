// File: api/schemas/testcase.go
package schemas

import (
	"fmt"
	"strconv"
	"strings"

	json "github.com/json-iterator/go"
)

// Credentials overrides the login pair for a single test case.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Assertions are explicit expectations checked after a login or form submission.
type Assertions struct {
	URLContains     string `json:"urlContains,omitempty"`
	TextContains    string `json:"textContains,omitempty"`
	NotTextContains string `json:"notTextContains,omitempty"`
}

// IsZero reports whether no expectation is set.
func (a *Assertions) IsZero() bool {
	return a == nil || (a.URLContains == "" && a.TextContains == "" && a.NotTextContains == "")
}

// TestCase is one loosely structured, usually machine-generated, test description.
// Only ID and Description are expected on every case; everything else is optional.
type TestCase struct {
	ID          int               `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Type        string            `json:"type,omitempty"`
	Selector    string            `json:"selector,omitempty"`
	Action      string            `json:"action,omitempty"`
	Data        map[string]string `json:"data,omitempty"`
	Credentials *Credentials      `json:"credentials,omitempty"`
	Assert      *Assertions       `json:"assert,omitempty"`

	// API-shaped cases.
	Method         string            `json:"method,omitempty"`
	Endpoint       string            `json:"endpoint,omitempty"`
	ExpectedStatus int               `json:"expectedStatus,omitempty"`
	Headers        map[string]string `json:"headers,omitempty"`
	Body           json.RawMessage   `json:"body,omitempty"`
	JSON           json.RawMessage   `json:"json,omitempty"`
}

// wireTestCase mirrors TestCase with every alias and loosely typed field the
// generators are known to emit.
type wireTestCase struct {
	ID             json.RawMessage            `json:"id"`
	Name           string                     `json:"name"`
	Title          string                     `json:"title"`
	Description    string                     `json:"description"`
	Type           json.RawMessage            `json:"type"`
	Selector       string                     `json:"selector"`
	Locator        string                     `json:"locator"`
	Action         string                     `json:"action"`
	Data           map[string]json.RawMessage `json:"data"`
	Credentials    *Credentials               `json:"credentials"`
	Assert         *Assertions                `json:"assert"`
	Method         string                     `json:"method"`
	Endpoint       string                     `json:"endpoint"`
	URL            string                     `json:"url"`
	ExpectedStatus json.RawMessage            `json:"expectedStatus"`
	ExpectedSnake  json.RawMessage            `json:"expected_status"`
	Headers        map[string]json.RawMessage `json:"headers"`
	Body           json.RawMessage            `json:"body"`
	JSON           json.RawMessage            `json:"json"`
}

// UnmarshalJSON accepts the field aliases and number/string variations seen in
// generated test suites (locator for selector, url for endpoint, snake-case
// expected_status, quoted ids).
func (tc *TestCase) UnmarshalJSON(data []byte) error {
	var w wireTestCase
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	id, err := looseInt(w.ID)
	if err != nil {
		return fmt.Errorf("invalid test case id: %w", err)
	}
	expected, err := looseInt(firstNonEmpty(w.ExpectedStatus, w.ExpectedSnake))
	if err != nil {
		return fmt.Errorf("invalid expected status for test case %d: %w", id, err)
	}

	*tc = TestCase{
		ID:             id,
		Name:           coalesce(w.Name, w.Title),
		Description:    w.Description,
		Type:           looseString(w.Type),
		Selector:       coalesce(w.Selector, w.Locator),
		Action:         w.Action,
		Credentials:    w.Credentials,
		Assert:         w.Assert,
		Method:         w.Method,
		Endpoint:       coalesce(w.Endpoint, w.URL),
		ExpectedStatus: expected,
		Body:           nullToEmpty(w.Body),
		JSON:           nullToEmpty(w.JSON),
	}
	if len(w.Data) > 0 {
		tc.Data = make(map[string]string, len(w.Data))
		for k, v := range w.Data {
			tc.Data[k] = looseString(v)
		}
	}
	if len(w.Headers) > 0 {
		tc.Headers = make(map[string]string, len(w.Headers))
		for k, v := range w.Headers {
			tc.Headers[k] = looseString(v)
		}
	}
	return nil
}

// DisplayName returns the name, or "Test <id>" when none was given.
func (tc TestCase) DisplayName() string {
	if name := strings.TrimSpace(tc.Name); name != "" {
		return name
	}
	return fmt.Sprintf("Test %d", tc.ID)
}

// Normalize assigns positional ids to cases without a positive id and fills in
// default names. It returns a new slice; the input is not modified.
func Normalize(cases []TestCase) []TestCase {
	out := make([]TestCase, len(cases))
	for i, tc := range cases {
		if tc.ID <= 0 {
			tc.ID = i + 1
		}
		tc.Name = tc.DisplayName()
		if t := strings.TrimSpace(tc.Type); t != "" {
			tc.Type = t
		}
		out[i] = tc
	}
	return out
}

func looseInt(raw json.RawMessage) (int, error) {
	raw = nullToEmpty(raw)
	if len(raw) == 0 {
		return 0, nil
	}
	text := strings.TrimSpace(string(raw))
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		text = strings.TrimSpace(s)
	}
	if text == "" {
		return 0, nil
	}
	if i, err := strconv.Atoi(text); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", text)
	}
	return int(f), nil
}

// looseString renders a scalar JSON value as a plain string. Strings lose their
// quotes; numbers and booleans keep their literal text.
func looseString(raw json.RawMessage) string {
	raw = nullToEmpty(raw)
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func nullToEmpty(raw json.RawMessage) json.RawMessage {
	if strings.TrimSpace(string(raw)) == "null" {
		return nil
	}
	return raw
}

func firstNonEmpty(values ...json.RawMessage) json.RawMessage {
	for _, v := range values {
		if len(nullToEmpty(v)) > 0 {
			return v
		}
	}
	return nil
}

func coalesce(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
