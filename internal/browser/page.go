// File: internal/browser/page.go
// Package browser defines the page contract the UI driver executes test cases
// against. The chromedp implementation lives in the session subpackage; tests
// use scripted fakes.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/xkilldash9x/casepilot/internal/locator"
)

// Page is one live browser tab. Methods are called sequentially by a single
// driver; implementations need not be safe for concurrent use.
type Page interface {
	// ID identifies the underlying browser session in logs.
	ID() string
	// Navigate loads url and waits for the load event, bounded by the page-load timeout.
	Navigate(ctx context.Context, url string) error
	// WaitPresent waits up to timeout for loc to match an element in the DOM.
	// It returns a *LocatorTimeoutError when the wait elapses.
	WaitPresent(ctx context.Context, loc locator.Locator, timeout time.Duration) error
	// WaitClickable waits up to timeout for loc to be visible and enabled.
	WaitClickable(ctx context.Context, loc locator.Locator, timeout time.Duration) error
	// Query describes the elements loc currently matches, without waiting.
	Query(ctx context.Context, loc locator.Locator) ([]Control, error)
	// Controls describes every form control on the page.
	Controls(ctx context.Context) ([]Control, error)
	Click(ctx context.Context, loc locator.Locator) error
	Clear(ctx context.Context, loc locator.Locator) error
	// Type sends text as key events to the element.
	Type(ctx context.Context, loc locator.Locator, text string) error
	// PressEnter sends the Enter key to the element.
	PressEnter(ctx context.Context, loc locator.Locator) error
	SetViewport(ctx context.Context, width, height int) error
	// Settle waits, up to timeout, for the document to finish loading after an
	// action that may have navigated.
	Settle(ctx context.Context, timeout time.Duration) error
	Snapshot(ctx context.Context) (*Snapshot, error)
	Close(ctx context.Context) error
}

// Opener starts a fresh page.
type Opener func(ctx context.Context) (Page, error)

// ControlAttr is the attribute used to stamp discovered controls so they can be
// addressed again with a plain CSS selector.
const ControlAttr = "data-casepilot-idx"

// Control describes an element discovered on the page.
type Control struct {
	Index       int    `json:"index"`
	Tag         string `json:"tag"`
	Type        string `json:"type"`
	ID          string `json:"id"`
	Name        string `json:"name"`
	Placeholder string `json:"placeholder"`
	// Label is the text of the <label for=...> that names this control.
	Label   string `json:"label"`
	Text    string `json:"text"`
	Checked bool   `json:"checked"`
	Visible bool   `json:"visible"`
}

// Locator addresses this exact control.
func (c Control) Locator() locator.Locator {
	return locator.Locator{Strategy: locator.CSS, Value: fmt.Sprintf(`[%s="%d"]`, ControlAttr, c.Index)}
}

// IsCheckbox reports whether the control is a checkbox or radio input.
func (c Control) IsCheckbox() bool {
	return c.Tag == "input" && (c.Type == "checkbox" || c.Type == "radio")
}

// IsTextLike reports whether the control accepts typed text.
func (c Control) IsTextLike() bool {
	switch c.Tag {
	case "textarea":
		return true
	case "input":
		switch c.Type {
		case "", "text", "email", "password", "search", "tel", "url", "number", "date", "datetime-local", "month", "week", "time":
			return true
		}
	}
	return false
}

// IsSubmit reports whether the control submits its form by type.
func (c Control) IsSubmit() bool {
	return (c.Tag == "button" || c.Tag == "input") && c.Type == "submit"
}
