// File: internal/credentials/assert.go
package credentials

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/xkilldash9x/casepilot/api/schemas"
)

// Observation is what the page looked like after submission.
type Observation struct {
	URL  string
	Text string
}

// AssertionError reports a violated expectation, explicit or inferred.
type AssertionError struct {
	Expectation string
	Observed    string
}

func (e *AssertionError) Error() string {
	if e.Observed == "" {
		return e.Expectation
	}
	return fmt.Sprintf("%s (observed: %s)", e.Expectation, e.Observed)
}

// Vocabulary is a keyword table for one direction of intent.
type Vocabulary struct {
	// Intent words in the description select this vocabulary.
	Intent []string
	// Signals must appear on the page for the case to pass.
	Signals []string
	// SearchURL also looks for signals in the page URL.
	SearchURL bool
}

var (
	// Success expects evidence of a logged-in or completed state.
	Success = Vocabulary{
		Intent:    []string{"success", "lands on", "secure", "works", "valid"},
		Signals:   []string{"success", "logged", "secure", "welcome", "dashboard"},
		SearchURL: true,
	}
	// Failure expects the page to report a problem.
	Failure = Vocabulary{
		Intent:  []string{"fail", "error", "invalid", "required", "incorrect"},
		Signals: []string{"error", "invalid", "incorrect", "required", "failed", "wrong", "try again", "denied", "not match", "unable", "cannot be empty", "must not be empty"},
	}
)

// vocabularies is checked in order; the first whose intent appears in the
// description decides the verdict. Patterns are compiled once at init.
var vocabularies = []struct {
	label   string
	v       *Vocabulary
	intent  keywordSet
	signals keywordSet
}{
	{"success", &Success, newKeywordSet(Success.Intent), newKeywordSet(Success.Signals)},
	{"failure", &Failure, newKeywordSet(Failure.Intent), newKeywordSet(Failure.Signals)},
}

// Evaluate checks the observation against tc. It returns a short note
// describing why the case passed, or an *AssertionError.
func Evaluate(tc schemas.TestCase, obs Observation) (string, error) {
	text := strings.ToLower(obs.Text)
	url := strings.ToLower(obs.URL)

	if a := tc.Assert; !a.IsZero() {
		if a.URLContains != "" && !strings.Contains(url, strings.ToLower(a.URLContains)) {
			return "", &AssertionError{Expectation: fmt.Sprintf("expected URL to contain '%s'", a.URLContains), Observed: obs.URL}
		}
		if a.TextContains != "" && !strings.Contains(text, strings.ToLower(a.TextContains)) {
			return "", &AssertionError{Expectation: fmt.Sprintf("expected page text to contain '%s'", a.TextContains)}
		}
		if a.NotTextContains != "" && strings.Contains(text, strings.ToLower(a.NotTextContains)) {
			return "", &AssertionError{Expectation: fmt.Sprintf("expected page text not to contain '%s'", a.NotTextContains)}
		}
		return "explicit assertions satisfied", nil
	}

	desc := strings.ToLower(tc.Description)
	for _, entry := range vocabularies {
		v := entry.v
		intentWord, ok := entry.intent.first(desc)
		if !ok {
			continue
		}
		if v.SearchURL {
			for _, s := range v.Signals {
				if strings.Contains(url, s) {
					return fmt.Sprintf("%s signal '%s' found in URL", entry.label, s), nil
				}
			}
		}
		if s, ok := entry.signals.first(text); ok {
			return fmt.Sprintf("%s signal '%s' found on page", entry.label, s), nil
		}
		return "", &AssertionError{
			Expectation: fmt.Sprintf("description implies %s ('%s') but no %s signal (%s) appeared after submission",
				entry.label, intentWord, entry.label, strings.Join(v.Signals, ", ")),
			Observed: obs.URL,
		}
	}
	return "submission completed", nil
}

// keywordSet matches keywords that start at a word boundary, so "valid" does
// not fire inside "invalid" while "fail" still matches "fails".
type keywordSet struct {
	words    []string
	patterns []*regexp.Regexp
}

func newKeywordSet(words []string) keywordSet {
	k := keywordSet{words: words, patterns: make([]*regexp.Regexp, len(words))}
	for i, w := range words {
		k.patterns[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(w))
	}
	return k
}

// first returns the first keyword, in table order, found in text.
func (k keywordSet) first(text string) (string, bool) {
	for i, p := range k.patterns {
		if p.MatchString(text) {
			return k.words[i], true
		}
	}
	return "", false
}
