// File: api/schemas/result.go
package schemas

import "strings"

// Status is the outcome of a single test case.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// TestResult is produced exactly once per input TestCase.
type TestResult struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Status  Status `json:"status"`
	Message string `json:"message"`
}

// Passed builds a passing result for tc.
func Passed(tc TestCase, message string) TestResult {
	return TestResult{ID: tc.ID, Name: tc.DisplayName(), Status: StatusPassed, Message: message}
}

// Failed builds a failing result for tc.
func Failed(tc TestCase, message string) TestResult {
	return TestResult{ID: tc.ID, Name: tc.DisplayName(), Status: StatusFailed, Message: message}
}

// Skipped builds a skipped result for tc.
func Skipped(tc TestCase, message string) TestResult {
	return TestResult{ID: tc.ID, Name: tc.DisplayName(), Status: StatusSkipped, Message: message}
}

// Bucket is the execution strategy derived from a case's declared type.
type Bucket string

const (
	BucketUI    Bucket = "ui"
	BucketAPI   Bucket = "api"
	BucketOther Bucket = "other"
)

var typeBuckets = map[string]Bucket{
	"ui":         BucketUI,
	"functional": BucketUI,
	"smoke":      BucketUI,
	"regression": BucketUI,
	"api":        BucketAPI,
	"http":       BucketAPI,
}

// BucketOf classifies a declared test type. Matching ignores case and
// surrounding whitespace. An absent type lands in the UI bucket; a
// whitespace-only one is unsupported.
func BucketOf(declared string) Bucket {
	if declared == "" {
		return BucketUI
	}
	if b, ok := typeBuckets[strings.ToLower(strings.TrimSpace(declared))]; ok {
		return b
	}
	return BucketOther
}
