// File: internal/formfill/formfill.go
// Package formfill maps a loose field-hint to value mapping onto the controls of
// the current page and submits the form.
package formfill

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/xkilldash9x/casepilot/internal/browser"
	"github.com/xkilldash9x/casepilot/internal/locator"
)

// truthy values switch a checkbox on; everything else switches it off.
var truthy = map[string]bool{"1": true, "true": true, "yes": true, "on": true}

// submitWords identify a submission control by its visible text.
var submitWords = []string{"submit", "send", "save", "continue"}

// nonFillable input types are never chosen by fuzzy matching.
var nonFillable = map[string]bool{"submit": true, "button": true, "reset": true, "image": true, "hidden": true, "file": true}

// Summary describes what a Fill call did.
type Summary struct {
	Filled    []string
	Toggled   []string
	Unchanged []string
	Skipped   []string
	Submitted bool
	// SubmitVia is the text or locator of the control that was activated.
	SubmitVia string
}

// Message renders the summary for a test result.
func (s Summary) Message() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Filled %d field(s)", len(s.Filled))
	if len(s.Toggled) > 0 {
		fmt.Fprintf(&b, ", toggled %d checkbox(es)", len(s.Toggled))
	}
	if len(s.Unchanged) > 0 {
		fmt.Fprintf(&b, ", %d already as requested", len(s.Unchanged))
	}
	if len(s.Skipped) > 0 {
		fmt.Fprintf(&b, ", skipped %d unmatched (%s)", len(s.Skipped), strings.Join(s.Skipped, ", "))
	}
	if s.Submitted {
		fmt.Fprintf(&b, "; submitted via %s", s.SubmitVia)
	} else {
		b.WriteString("; no submit control found")
	}
	return b.String()
}

// Filler fills forms on one page.
type Filler struct {
	page   browser.Page
	logger *zap.Logger
}

// New returns a Filler bound to page.
func New(page browser.Page, logger *zap.Logger) *Filler {
	return &Filler{page: page, logger: logger.Named("formfill")}
}

// Fill writes every field it can resolve, then tries to submit. Unmatched keys
// are skipped and counted, never reported as errors; only a cancelled context
// or a page that cannot be inspected at all returns an error.
func (f *Filler) Fill(ctx context.Context, fields map[string]string) (Summary, error) {
	var sum Summary

	controls, err := f.page.Controls(ctx)
	if err != nil {
		return sum, fmt.Errorf("failed to enumerate form controls: %w", err)
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// Checkbox state as left by this call, keyed by control index. Two keys
	// can resolve to the same box.
	boxes := make(map[int]bool)

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		value := fields[key]

		target, ok, err := f.resolve(ctx, key, controls)
		if err != nil {
			return sum, err
		}
		if !ok {
			f.logger.Debug("No control matched field hint.", zap.String("key", key))
			sum.Skipped = append(sum.Skipped, key)
			continue
		}

		if state, seen := boxes[target.Index]; seen && target.IsCheckbox() {
			target.Checked = state
		}
		outcome, err := f.apply(ctx, target, value)
		if err != nil {
			if ctx.Err() != nil {
				return sum, ctx.Err()
			}
			f.logger.Warn("Could not write field.", zap.String("key", key), zap.Error(err))
			sum.Skipped = append(sum.Skipped, key)
			continue
		}
		if target.IsCheckbox() {
			boxes[target.Index] = target.Checked != (outcome == toggled)
		}
		switch outcome {
		case toggled:
			sum.Toggled = append(sum.Toggled, key)
		case unchanged:
			sum.Unchanged = append(sum.Unchanged, key)
		default:
			sum.Filled = append(sum.Filled, key)
		}
	}

	sum.Submitted, sum.SubmitVia = f.submit(ctx, controls)
	f.logger.Debug("Form fill finished.", zap.String("summary", sum.Message()))
	return sum, nil
}

// resolve finds the control for a key: explicit selectors are looked up
// directly, anything else is matched against the enumerated controls.
func (f *Filler) resolve(ctx context.Context, key string, controls []browser.Control) (browser.Control, bool, error) {
	if loc, ok := locator.Explicit(key); ok {
		found, err := f.page.Query(ctx, loc)
		if err != nil {
			if ctx.Err() != nil {
				return browser.Control{}, false, ctx.Err()
			}
			// A selector the page rejects is treated like one that matched nothing.
			f.logger.Debug("Explicit selector query failed.", zap.String("key", key), zap.Error(err))
			return browser.Control{}, false, nil
		}
		if len(found) == 0 {
			return browser.Control{}, false, nil
		}
		return pickVisible(found), true, nil
	}
	c, ok := Match(key, controls)
	return c, ok, nil
}

// Match fuzzy-matches a hint against controls: first on <label for> text, then
// on placeholder, name and id. Comparison ignores case and punctuation, so
// "first_name" matches a label reading "First name".
func Match(hint string, controls []browser.Control) (browser.Control, bool) {
	h := normalize(hint)
	if h == "" {
		return browser.Control{}, false
	}
	fillable := make([]browser.Control, 0, len(controls))
	for _, c := range controls {
		if c.Tag == "button" || (c.Tag == "input" && nonFillable[c.Type]) {
			continue
		}
		fillable = append(fillable, c)
	}

	passes := []func(browser.Control) []string{
		func(c browser.Control) []string { return []string{c.Label} },
		func(c browser.Control) []string { return []string{c.Placeholder, c.Name, c.ID} },
	}
	for _, attrs := range passes {
		var hits []browser.Control
		for _, c := range fillable {
			for _, a := range attrs(c) {
				if a != "" && strings.Contains(normalize(a), h) {
					hits = append(hits, c)
					break
				}
			}
		}
		if len(hits) > 0 {
			return pickVisible(hits), true
		}
	}
	return browser.Control{}, false
}

func pickVisible(cs []browser.Control) browser.Control {
	for _, c := range cs {
		if c.Visible {
			return c
		}
	}
	return cs[0]
}

func normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

type outcome int

const (
	written outcome = iota
	toggled
	unchanged
)

// apply writes value into c. Checkboxes are clicked only when their state
// differs from the requested one.
func (f *Filler) apply(ctx context.Context, c browser.Control, value string) (outcome, error) {
	loc := c.Locator()
	if c.IsCheckbox() {
		want := truthy[strings.ToLower(strings.TrimSpace(value))]
		if c.Checked == want {
			return unchanged, nil
		}
		if err := f.page.Click(ctx, loc); err != nil {
			return written, err
		}
		return toggled, nil
	}
	if c.Tag != "select" {
		if err := f.page.Clear(ctx, loc); err != nil {
			return written, err
		}
	}
	if err := f.page.Type(ctx, loc, value); err != nil {
		return written, err
	}
	return written, nil
}

// submit activates the first submit-typed control, or failing that a control
// whose text reads like submission. Not finding one is not an error.
func (f *Filler) submit(ctx context.Context, controls []browser.Control) (bool, string) {
	var candidate *browser.Control
	for i := range controls {
		if controls[i].IsSubmit() {
			candidate = &controls[i]
			break
		}
	}
	if candidate == nil {
		for i := range controls {
			c := &controls[i]
			if c.Tag != "button" && !(c.Tag == "input" && (c.Type == "button" || c.Type == "submit")) {
				continue
			}
			if _, ok := containsWord(c.Text, submitWords); ok {
				candidate = c
				break
			}
		}
	}
	if candidate == nil {
		return false, ""
	}
	if err := f.page.Click(ctx, candidate.Locator()); err != nil {
		f.logger.Warn("Submit control could not be clicked.", zap.Error(err))
		return false, ""
	}
	via := candidate.Text
	if via == "" {
		via = candidate.Locator().String()
	}
	return true, fmt.Sprintf("'%s'", via)
}

func containsWord(text string, words []string) (string, bool) {
	lower := strings.ToLower(text)
	for _, w := range words {
		if strings.Contains(lower, w) {
			return w, true
		}
	}
	return "", false
}
