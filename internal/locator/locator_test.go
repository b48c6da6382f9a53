package locator

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []Locator
	}{
		{"empty", "", []Locator{Wildcard}},
		{"whitespace", "   ", []Locator{Wildcard}},
		{"plain css", "#login", []Locator{{CSS, "#login"}}},
		{"css list", "#a, #b ,.c", []Locator{{CSS, "#a"}, {CSS, "#b"}, {CSS, ".c"}}},
		{"css list drops empties", "#a,, ,#b,", []Locator{{CSS, "#a"}, {CSS, "#b"}}},
		{"only commas", " , ,", []Locator{Wildcard}},
		{"absolute xpath", "//div[@a='1', @b]", []Locator{{XPath, "//div[@a='1', @b]"}}},
		{"relative xpath", ".//span", []Locator{{XPath, ".//span"}}},
		{"xpath prefix", "xpath=//a[contains(., 'x, y')]", []Locator{{XPath, "//a[contains(., 'x, y')]"}}},
		{"xpath prefix any case", "XPath=//a", []Locator{{XPath, "//a"}}},
		{"id prefix", "id=user-name", []Locator{{ID, "user-name"}}},
		{"name prefix", "NAME=email", []Locator{{Name, "email"}}},
		{"css equals prefix", "css=form > input", []Locator{{CSS, "form > input"}}},
		{"css colon prefix", "css:button.primary, a", []Locator{{CSS, "button.primary, a"}}},
		{"value keeps case", "id=SignIn", []Locator{{ID, "SignIn"}}},
		{"prefix without value", "id=", []Locator{Wildcard}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Resolve(tt.in)); diff != "" {
				t.Errorf("Resolve(%q) mismatch (-want +got):\n%s", tt.in, diff)
			}
		})
	}
}

func TestLocator_Query(t *testing.T) {
	expr, isXPath := Locator{XPath, "//a"}.Query()
	assert.Equal(t, "//a", expr)
	assert.True(t, isXPath)

	expr, isXPath = Locator{ID, `we"ird`}.Query()
	assert.Equal(t, `[id="we\"ird"]`, expr)
	assert.False(t, isXPath)

	expr, _ = Locator{Name, "email"}.Query()
	assert.Equal(t, `[name="email"]`, expr)

	expr, _ = Wildcard.Query()
	assert.Equal(t, "*", expr)

	expr, _ = Locator{CSS, "input, button"}.Query()
	assert.Equal(t, "input, button", expr)
}

func TestLocator_String(t *testing.T) {
	assert.Equal(t, "css='#b'", Locator{CSS, "#b"}.String())
	assert.Equal(t, "xpath='//a'", Locator{XPath, "//a"}.String())
}

func TestExplicit(t *testing.T) {
	for _, s := range []string{"#email", ".field", "[name=q]", "id=x", "name=y", "css=input", "//input"} {
		_, ok := Explicit(s)
		assert.True(t, ok, "%q should be explicit", s)
	}
	for _, s := range []string{"", "email", "First Name", "password", "id="} {
		_, ok := Explicit(s)
		assert.False(t, ok, "%q should be a hint", s)
	}

	loc, ok := Explicit("#a, #b")
	assert.True(t, ok)
	assert.Equal(t, Locator{CSS, "#a, #b"}, loc, "explicit keys are not split")
}

func Fuzz_Resolve(f *testing.F) {
	for _, seed := range []string{"", "#a, #b", "//a[@x=',']", "xpath=//b", "id=q", "css:a,b", ",,,"} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, in string) {
		got := Resolve(in)
		if len(got) == 0 {
			t.Fatalf("Resolve(%q) returned no candidates", in)
		}
		trimmed := strings.TrimSpace(in)
		for _, l := range got {
			if l.Value == "" {
				t.Fatalf("Resolve(%q) produced an empty value: %+v", in, got)
			}
		}
		if strings.HasPrefix(trimmed, "//") || strings.HasPrefix(strings.ToLower(trimmed), "xpath=") {
			if len(got) != 1 {
				t.Fatalf("xpath input %q was split into %d candidates", in, len(got))
			}
		}
	})
}

func TestResolve_ParenthesizedXPathNeedsPrefix(t *testing.T) {
	assert.Equal(t, []Locator{{Strategy: XPath, Value: "(//a)[1]"}}, Resolve("xpath=(//a)[1]"))
	assert.Equal(t, []Locator{{Strategy: XPath, Value: ".//button[@type='submit', 'x']"}}, Resolve(".//button[@type='submit', 'x']"))
	assert.Equal(t, CSS, Resolve("(//a)[1]")[0].Strategy, "only // and .// are detected as bare XPath")
}
