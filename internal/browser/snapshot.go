// File: internal/browser/snapshot.go
package browser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Snapshot is the page state captured after an action.
type Snapshot struct {
	URL  string
	HTML string
}

// nonVisible are elements whose text never renders.
const nonVisible = "script, style, noscript, template, head, svg"

// Text returns the page's visible text with whitespace collapsed. If the HTML
// cannot be parsed the raw markup is returned so keyword checks still have
// something to look at.
func (s *Snapshot) Text() string {
	if s == nil || s.HTML == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s.HTML))
	if err != nil {
		return s.HTML
	}
	title := strings.TrimSpace(doc.Find("title").First().Text())
	doc.Find(nonVisible).Remove()

	parts := []string{doc.Find("body").Text()}
	// Validation messages often live only in attributes.
	doc.Find("[aria-label], [title], input[value]").Each(func(_ int, sel *goquery.Selection) {
		for _, attr := range []string{"aria-label", "title"} {
			if v, ok := sel.Attr(attr); ok {
				parts = append(parts, v)
			}
		}
		if goquery.NodeName(sel) == "input" {
			if t, _ := sel.Attr("type"); t == "submit" || t == "button" {
				v, _ := sel.Attr("value")
				parts = append(parts, v)
			}
		}
	})
	if title != "" {
		parts = append(parts, title)
	}
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}
