// File: internal/browser/browsertest/fake.go
// Package browsertest provides a scripted in-memory browser.Page for tests of
// code that drives a page without needing a real browser.
package browsertest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xkilldash9x/casepilot/internal/browser"
	"github.com/xkilldash9x/casepilot/internal/locator"
)

// Page is a fake page. Elements are keyed by locator value, so a test can
// declare "#login" or `//a[contains(., 'Forgot')]` as present. Enumerated
// controls are addressable through their own Control.Locator value as well.
type Page struct {
	mu sync.Mutex

	URL  string
	HTML string

	// Elements maps locator values to the element they resolve to.
	Elements map[string]browser.Control
	// Form is what Controls returns.
	Form []browser.Control

	// SessionID is what ID returns; "fake" when empty.
	SessionID string

	NavigateErr error
	SnapshotErr error
	// OnClick runs after a successful click, e.g. to swap in a result page.
	OnClick func(p *Page, loc locator.Locator)
	// OnEnter runs after PressEnter.
	OnEnter func(p *Page, loc locator.Locator)

	calls    []string
	viewport [2]int
	closed   int
}

// New returns an empty page showing html.
func New(html string) *Page {
	return &Page{URL: "about:blank", HTML: html, Elements: map[string]browser.Control{}}
}

// Opener returns a browser.Opener that always hands out p.
func (p *Page) Opener() browser.Opener {
	return func(context.Context) (browser.Page, error) { return p, nil }
}

// Calls returns the recorded interactions in order, e.g. "click #go".
func (p *Page) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

// CallsOf returns the recorded interactions of one kind ("click", "type", ...).
func (p *Page) CallsOf(kind string) []string {
	var out []string
	for _, c := range p.Calls() {
		if len(c) > len(kind) && c[:len(kind)+1] == kind+" " {
			out = append(out, c[len(kind)+1:])
		}
	}
	return out
}

// Viewport returns the last size set with SetViewport.
func (p *Page) Viewport() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.viewport[0], p.viewport[1]
}

// Closed reports how many times Close was called.
func (p *Page) Closed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Page) record(format string, args ...interface{}) {
	p.calls = append(p.calls, fmt.Sprintf(format, args...))
}

// lookup must be called with mu held.
func (p *Page) lookup(loc locator.Locator) (browser.Control, int, bool) {
	if el, ok := p.Elements[loc.Value]; ok {
		return el, -1, true
	}
	for i, c := range p.Form {
		if c.Locator().Value == loc.Value {
			return c, i, true
		}
	}
	return browser.Control{}, -1, false
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("navigate %s", url)
	if p.NavigateErr != nil {
		return p.NavigateErr
	}
	p.URL = url
	return ctx.Err()
}

func (p *Page) WaitPresent(ctx context.Context, loc locator.Locator, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, _, ok := p.lookup(loc); ok {
		return nil
	}
	return &browser.LocatorTimeoutError{Locators: []locator.Locator{loc}, Timeout: timeout}
}

func (p *Page) WaitClickable(ctx context.Context, loc locator.Locator, timeout time.Duration) error {
	return p.WaitPresent(ctx, loc, timeout)
}

func (p *Page) Query(ctx context.Context, loc locator.Locator) ([]browser.Control, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, _, ok := p.lookup(loc); ok {
		return []browser.Control{c}, nil
	}
	return nil, nil
}

func (p *Page) Controls(ctx context.Context) ([]browser.Control, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]browser.Control(nil), p.Form...), nil
}

func (p *Page) Click(ctx context.Context, loc locator.Locator) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	c, i, ok := p.lookup(loc)
	if !ok {
		p.mu.Unlock()
		return fmt.Errorf("no element matches %s", loc)
	}
	p.record("click %s", loc.Value)
	if i >= 0 && c.IsCheckbox() {
		p.Form[i].Checked = !c.Checked
	}
	hook := p.OnClick
	p.mu.Unlock()

	if hook != nil {
		hook(p, loc)
	}
	return nil
}

func (p *Page) Clear(ctx context.Context, loc locator.Locator) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("clear %s", loc.Value)
	return ctx.Err()
}

func (p *Page) Type(ctx context.Context, loc locator.Locator, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, _, ok := p.lookup(loc); !ok {
		return fmt.Errorf("no element matches %s", loc)
	}
	p.record("type %s=%s", loc.Value, text)
	return ctx.Err()
}

func (p *Page) PressEnter(ctx context.Context, loc locator.Locator) error {
	p.mu.Lock()
	p.record("enter %s", loc.Value)
	hook := p.OnEnter
	p.mu.Unlock()
	if hook != nil {
		hook(p, loc)
	}
	return ctx.Err()
}

func (p *Page) SetViewport(ctx context.Context, width, height int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("viewport %dx%d", width, height)
	p.viewport = [2]int{width, height}
	return ctx.Err()
}

func (p *Page) Settle(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func (p *Page) Snapshot(ctx context.Context) (*browser.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.SnapshotErr != nil {
		return nil, p.SnapshotErr
	}
	return &browser.Snapshot{URL: p.URL, HTML: p.HTML}, nil
}

func (p *Page) Close(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed++
	return nil
}

// Show replaces the current document, as a navigation would.
func (p *Page) Show(url, html string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.URL, p.HTML = url, html
}

var _ browser.Page = (*Page)(nil)

func (p *Page) ID() string {
	if p.SessionID == "" {
		return "fake"
	}
	return p.SessionID
}
