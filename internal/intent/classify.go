// File: internal/intent/classify.go
// Package intent infers what a natural-language test description asks for.
// Every heuristic is a row in an ordered table so rules can be read, tested and
// extended without touching the code that consumes them.
package intent

import (
	"regexp"
	"strings"
)

// ActionKind is the element-level action implied by a description.
type ActionKind string

const (
	Type           ActionKind = "type"
	Click          ActionKind = "click"
	VerifyPresence ActionKind = "verify_presence"
)

// Action is the classification result. Text is only meaningful for Type.
type Action struct {
	Kind ActionKind
	Text string
}

// ActionRule maps description keywords to an action. Rules are checked in
// order and the first rule with a matching keyword wins.
type ActionRule struct {
	Kind     ActionKind
	Keywords []string
}

// ActionRules is the default classification table. Typing is checked before
// clicking so "enter X and click submit" types.
var ActionRules = []ActionRule{
	{Kind: Type, Keywords: []string{"enter", "type", "input"}},
	{Kind: Click, Keywords: []string{"click", "press", "tap"}},
}

var (
	quotedLiteral = regexp.MustCompile(`['"]([^'"]+)['"]`)
	trailingValue = regexp.MustCompile(`(?i)(?:enter|type)\s+([^\n\r]+?)(?:\s+into|$)`)
)

// Classify infers the action for a description using ActionRules.
func Classify(description string) Action {
	return ClassifyWith(ActionRules, description)
}

// ClassifyWith infers the action using a custom rule table. Descriptions that
// match no rule verify presence.
func ClassifyWith(rules []ActionRule, description string) Action {
	lower := strings.ToLower(description)
	for _, r := range rules {
		if containsAny(lower, r.Keywords) {
			a := Action{Kind: r.Kind}
			if r.Kind == Type {
				a.Text = ExtractLiteral(description)
			}
			return a
		}
	}
	return Action{Kind: VerifyPresence}
}

// ExtractLiteral finds the text a description wants typed: the first quoted
// substring, else whatever follows "enter"/"type" up to an optional "into".
// It returns "" when neither pattern matches; a missing literal is not an error.
func ExtractLiteral(description string) string {
	if description == "" {
		return ""
	}
	if m := quotedLiteral.FindStringSubmatch(description); m != nil {
		return m[1]
	}
	if m := trailingValue.FindStringSubmatch(description); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// ContainsAny reports whether the lowercased text contains any keyword, and
// returns the first keyword found.
func ContainsAny(text string, keywords []string) (string, bool) {
	lower := strings.ToLower(text)
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			return k, true
		}
	}
	return "", false
}
