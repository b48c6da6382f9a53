// File: internal/locator/locator.go
// Package locator turns the free-form selector strings found in test cases into
// ordered candidate element locators.
package locator

import (
	"fmt"
	"strings"
)

// Strategy names how a locator value is interpreted.
type Strategy string

const (
	CSS   Strategy = "css"
	XPath Strategy = "xpath"
	ID    Strategy = "id"
	Name  Strategy = "name"
	// Any matches every element; it is only produced for absent selectors.
	Any Strategy = "any"
)

// Locator is one candidate way of finding an element.
type Locator struct {
	Strategy Strategy
	Value    string
}

// Wildcard is the candidate used when no selector was supplied.
var Wildcard = Locator{Strategy: Any, Value: "*"}

func (l Locator) String() string {
	return fmt.Sprintf("%s='%s'", l.Strategy, l.Value)
}

// IsWildcard reports whether l matches any element.
func (l Locator) IsWildcard() bool { return l.Strategy == Any }

// Query renders the locator as a browser query: a CSS selector, or an XPath
// expression when xpath is true. ID and Name become attribute selectors so
// values that are not valid CSS identifiers still work.
func (l Locator) Query() (expr string, xpath bool) {
	switch l.Strategy {
	case XPath:
		return l.Value, true
	case ID:
		return fmt.Sprintf(`[id="%s"]`, cssQuote(l.Value)), false
	case Name:
		return fmt.Sprintf(`[name="%s"]`, cssQuote(l.Value)), false
	case Any:
		return "*", false
	default:
		return l.Value, false
	}
}

func cssQuote(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

type prefixRule struct {
	prefix   string
	strategy Strategy
}

// prefixRules are matched case-insensitively in order. XPath comes first so an
// XPath value is never split on commas.
var prefixRules = []prefixRule{
	{"xpath=", XPath},
	{"id=", ID},
	{"name=", Name},
	{"css=", CSS},
	{"css:", CSS},
}

// Resolve returns the ordered candidates for a selector string.
//
//   - empty input yields the single Wildcard candidate
//   - "//..." and ".//..." are one XPath candidate, kept verbatim
//   - xpath=, id=, name=, css= and css: yield one candidate with the prefix stripped
//   - anything else is split on commas into CSS candidates
func Resolve(selector string) []Locator {
	sel := strings.TrimSpace(selector)
	if sel == "" {
		return []Locator{Wildcard}
	}
	if strings.HasPrefix(sel, "//") || strings.HasPrefix(sel, ".//") {
		return []Locator{{Strategy: XPath, Value: sel}}
	}

	lower := strings.ToLower(sel)
	for _, r := range prefixRules {
		if strings.HasPrefix(lower, r.prefix) {
			value := strings.TrimSpace(sel[len(r.prefix):])
			if value == "" {
				return []Locator{Wildcard}
			}
			return []Locator{{Strategy: r.strategy, Value: value}}
		}
	}

	var out []Locator
	for _, part := range strings.Split(sel, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, Locator{Strategy: CSS, Value: part})
		}
	}
	if len(out) == 0 {
		return []Locator{Wildcard}
	}
	return out
}

// HasStrategyPrefix reports whether s starts with one of the explicit strategy
// prefixes, or an XPath lead.
func HasStrategyPrefix(s string) bool {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "//") || strings.HasPrefix(s, ".//") {
		return true
	}
	lower := strings.ToLower(s)
	for _, r := range prefixRules {
		if strings.HasPrefix(lower, r.prefix) {
			return true
		}
	}
	return false
}

// Explicit resolves s to a single locator when it is clearly a selector rather
// than a human hint: a strategy prefix, or a CSS form starting with '#', '.' or '['.
// Comma lists are not split here.
func Explicit(s string) (Locator, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Locator{}, false
	}
	if HasStrategyPrefix(s) {
		cands := Resolve(s)
		if cands[0].IsWildcard() {
			return Locator{}, false
		}
		return cands[0], true
	}
	switch s[0] {
	case '#', '.', '[':
		return Locator{Strategy: CSS, Value: s}, true
	}
	return Locator{}, false
}
