// internal/formfill/formfill_test.go
package formfill

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/casepilot/internal/browser"
	"github.com/xkilldash9x/casepilot/internal/browser/browsertest"
)

func contactForm() []browser.Control {
	return []browser.Control{
		{Index: 0, Tag: "input", Type: "text", ID: "fname", Name: "first", Label: "First name", Visible: true},
		{Index: 1, Tag: "input", Type: "email", ID: "mail", Name: "contact", Placeholder: "Email address", Visible: true},
		{Index: 2, Tag: "textarea", ID: "msg", Name: "message", Visible: true},
		{Index: 3, Tag: "input", Type: "checkbox", ID: "newsletter", Name: "newsletter", Checked: true, Visible: true},
		{Index: 4, Tag: "input", Type: "checkbox", ID: "terms", Name: "terms", Label: "I accept the terms", Visible: true},
		{Index: 5, Tag: "button", Type: "submit", Text: "Send message", Visible: true},
	}
}

func TestMatch(t *testing.T) {
	form := contactForm()
	tests := []struct {
		hint    string
		wantIdx int
		found   bool
	}{
		{"first_name", 0, true},
		{"Email", 1, true},
		{"message", 2, true},
		{"terms", 4, true},
		{"phone", 0, false},
		{"", 0, false},
		// Buttons are never fill targets, even when their text matches.
		{"send", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.hint, func(t *testing.T) {
			c, ok := Match(tt.hint, form)
			require.Equal(t, tt.found, ok)
			if tt.found {
				assert.Equal(t, tt.wantIdx, c.Index)
			}
		})
	}
}

func TestMatch_LabelBeatsAttributes(t *testing.T) {
	form := []browser.Control{
		{Index: 0, Tag: "input", Name: "email_confirm", Visible: true},
		{Index: 1, Tag: "input", ID: "x1", Label: "Email", Visible: true},
	}
	c, ok := Match("email", form)
	require.True(t, ok)
	assert.Equal(t, 1, c.Index)
}

func TestMatch_PrefersVisible(t *testing.T) {
	form := []browser.Control{
		{Index: 0, Tag: "input", Name: "city", Visible: false},
		{Index: 1, Tag: "input", Name: "city", Visible: true},
	}
	c, ok := Match("city", form)
	require.True(t, ok)
	assert.Equal(t, 1, c.Index)
}

func TestFill(t *testing.T) {
	page := browsertest.New("<html></html>")
	page.Form = contactForm()
	page.Elements["#fname"] = page.Form[0]

	f := New(page, zaptest.NewLogger(t))
	sum, err := f.Fill(context.Background(), map[string]string{
		"#fname":     "Ada",
		"email":      "ada@example.com",
		"message":    "hello",
		"newsletter": "yes",
		"terms":      "on",
		"fax":        "123",
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"#fname", "email", "message"}, sum.Filled)
	assert.Equal(t, []string{"terms"}, sum.Toggled)
	assert.Equal(t, []string{"newsletter"}, sum.Unchanged)
	assert.Equal(t, []string{"fax"}, sum.Skipped)
	assert.True(t, sum.Submitted)
	assert.Equal(t, "'Send message'", sum.SubmitVia)

	assert.Equal(t, []string{
		`[data-casepilot-idx="0"]=Ada`,
		`[data-casepilot-idx="1"]=ada@example.com`,
		`[data-casepilot-idx="2"]=hello`,
	}, page.CallsOf("type"))
	// Only the terms box changes state, then the form is submitted.
	assert.Equal(t, []string{`[data-casepilot-idx="4"]`, `[data-casepilot-idx="5"]`}, page.CallsOf("click"))

	assert.Equal(t,
		"Filled 3 field(s), toggled 1 checkbox(es), 1 already as requested, skipped 1 unmatched (fax); submitted via 'Send message'",
		sum.Message())
}

func TestFill_CheckboxAlreadyInStateDoesNotClick(t *testing.T) {
	page := browsertest.New("")
	page.Form = []browser.Control{
		{Index: 0, Tag: "input", Type: "checkbox", Name: "remember", Checked: false, Visible: true},
	}
	sum, err := New(page, zaptest.NewLogger(t)).Fill(context.Background(), map[string]string{"remember": "no"})
	require.NoError(t, err)
	assert.Empty(t, page.CallsOf("click"))
	assert.Equal(t, []string{"remember"}, sum.Unchanged)
	assert.False(t, sum.Submitted)
	assert.Contains(t, sum.Message(), "no submit control found")
}

func TestFill_SubmitByText(t *testing.T) {
	page := browsertest.New("")
	page.Form = []browser.Control{
		{Index: 0, Tag: "input", Name: "q", Visible: true},
		{Index: 1, Tag: "button", Type: "button", Text: "Cancel", Visible: true},
		{Index: 2, Tag: "button", Type: "button", Text: "Save and continue", Visible: true},
	}
	sum, err := New(page, zaptest.NewLogger(t)).Fill(context.Background(), map[string]string{"q": "go"})
	require.NoError(t, err)
	require.True(t, sum.Submitted)
	assert.Equal(t, []string{`[data-casepilot-idx="2"]`}, page.CallsOf("click"))
}

func TestFill_MissingExplicitSelectorIsSkipped(t *testing.T) {
	page := browsertest.New("")
	sum, err := New(page, zaptest.NewLogger(t)).Fill(context.Background(), map[string]string{"css=#ghost": "boo"})
	require.NoError(t, err)
	assert.Equal(t, []string{"css=#ghost"}, sum.Skipped)
	assert.Empty(t, sum.Filled)
}

func TestFill_CancelledContext(t *testing.T) {
	page := browsertest.New("")
	page.Form = contactForm()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(page, zaptest.NewLogger(t)).Fill(ctx, map[string]string{"email": "x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFill_SameCheckboxUnderTwoKeysClickedOnce(t *testing.T) {
	page := browsertest.New("")
	page.Form = []browser.Control{
		{Index: 0, Tag: "input", Type: "checkbox", ID: "agree", Name: "agree", Visible: true},
	}
	page.Elements["#agree"] = page.Form[0]

	sum, err := New(page, zaptest.NewLogger(t)).Fill(context.Background(), map[string]string{
		"agree":  "yes",
		"#agree": "yes",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{`[data-casepilot-idx="0"]`}, page.CallsOf("click"))
	assert.Equal(t, []string{"#agree"}, sum.Toggled)
	assert.Equal(t, []string{"agree"}, sum.Unchanged)
	assert.True(t, page.Form[0].Checked)
}

func TestFill_LaterKeySeesEarlierToggle(t *testing.T) {
	page := browsertest.New("")
	page.Form = []browser.Control{
		{Index: 0, Tag: "input", Type: "checkbox", ID: "agree", Name: "agree", Visible: true},
	}
	page.Elements["#agree"] = page.Form[0]

	sum, err := New(page, zaptest.NewLogger(t)).Fill(context.Background(), map[string]string{
		"#agree": "yes",
		"agree":  "no",
	})
	require.NoError(t, err)
	assert.Len(t, page.CallsOf("click"), 2)
	assert.Equal(t, []string{"#agree", "agree"}, sum.Toggled)
	assert.False(t, page.Form[0].Checked)
}
