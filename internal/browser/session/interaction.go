// internal/browser/session/interaction.go
// Page actions. Each one derives its own bounded context from the caller's and
// reports deadline expiry separately from other failures, so the driver can
// tell a slow page from a broken one.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"go.uber.org/zap"

	"github.com/xkilldash9x/casepilot/internal/browser"
	"github.com/xkilldash9x/casepilot/internal/locator"
)

// actionTimeout bounds a single click, clear or keystroke burst once the
// element is known to exist.
const actionTimeout = 15 * time.Second

// queryOpts maps a locator onto chromedp's selector options.
func queryOpts(loc locator.Locator) (string, []chromedp.QueryOption) {
	expr, isXPath := loc.Query()
	if isXPath {
		return expr, []chromedp.QueryOption{chromedp.BySearch}
	}
	return expr, []chromedp.QueryOption{chromedp.ByQuery}
}

// Navigate loads url, bounded by the configured page-load timeout.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Info("Navigating session.", zap.String("url", url))

	timeout := s.cfg.PageLoadTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.runActions(navCtx, chromedp.Navigate(url)); err != nil {
		if errors.Is(navCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return fmt.Errorf("navigation to %s timed out after %v: %w", url, timeout, err)
		}
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

// WaitPresent waits for loc to exist in the DOM.
func (s *Session) WaitPresent(ctx context.Context, loc locator.Locator, timeout time.Duration) error {
	expr, opts := queryOpts(loc)
	return s.wait(ctx, loc, timeout, chromedp.WaitReady(expr, opts...))
}

// WaitClickable waits for loc to be visible and enabled.
func (s *Session) WaitClickable(ctx context.Context, loc locator.Locator, timeout time.Duration) error {
	expr, opts := queryOpts(loc)
	return s.wait(ctx, loc, timeout,
		chromedp.WaitVisible(expr, opts...),
		chromedp.WaitEnabled(expr, opts...),
	)
}

func (s *Session) wait(ctx context.Context, loc locator.Locator, timeout time.Duration, actions ...chromedp.Action) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := s.runActions(waitCtx, actions...)
	if err == nil {
		return nil
	}
	if errors.Is(waitCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return &browser.LocatorTimeoutError{Locators: []locator.Locator{loc}, Timeout: timeout}
	}
	return fmt.Errorf("waiting for %s: %w", loc, err)
}

// Click clicks the first element matching loc.
func (s *Session) Click(ctx context.Context, loc locator.Locator) error {
	expr, opts := queryOpts(loc)
	return s.act(ctx, "click", loc,
		chromedp.ScrollIntoView(expr, opts...),
		chromedp.Click(expr, append(opts, chromedp.NodeVisible)...),
	)
}

// Clear empties the value of the first element matching loc.
func (s *Session) Clear(ctx context.Context, loc locator.Locator) error {
	expr, opts := queryOpts(loc)
	return s.act(ctx, "clear", loc, chromedp.Clear(expr, opts...))
}

// Type focuses the element and sends text as key events.
func (s *Session) Type(ctx context.Context, loc locator.Locator, text string) error {
	if text == "" {
		return nil
	}
	expr, opts := queryOpts(loc)
	return s.act(ctx, "type", loc, chromedp.SendKeys(expr, text, opts...))
}

// PressEnter sends the Enter key to the element.
func (s *Session) PressEnter(ctx context.Context, loc locator.Locator) error {
	expr, opts := queryOpts(loc)
	return s.act(ctx, "press enter", loc, chromedp.SendKeys(expr, kb.Enter, opts...))
}

func (s *Session) act(ctx context.Context, verb string, loc locator.Locator, actions ...chromedp.Action) error {
	s.logger.Debug("Performing action.", zap.String("action", verb), zap.Stringer("locator", loc))
	opCtx, cancel := context.WithTimeout(ctx, actionTimeout)
	defer cancel()

	if err := s.runActions(opCtx, actions...); err != nil {
		if errors.Is(opCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return fmt.Errorf("%s action timed out for %s: %w", verb, loc, err)
		}
		return fmt.Errorf("%s action failed for %s: %w", verb, loc, err)
	}
	return nil
}

// SetViewport emulates a device viewport of the given size.
func (s *Session) SetViewport(ctx context.Context, width, height int) error {
	s.logger.Debug("Setting viewport.", zap.Int("width", width), zap.Int("height", height))
	if err := s.runActions(ctx, chromedp.EmulateViewport(int64(width), int64(height))); err != nil {
		return fmt.Errorf("failed to set viewport %dx%d: %w", width, height, err)
	}
	return nil
}

// Settle gives an action a moment to start a navigation, then waits for the
// document to report complete. Hitting the timeout is not an error; the page
// is inspected as it stands.
func (s *Session) Settle(ctx context.Context, timeout time.Duration) error {
	if timeout <= 0 {
		return nil
	}
	settleCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := s.runActions(settleCtx,
		chromedp.Sleep(300*time.Millisecond),
		chromedp.Poll(`document.readyState === "complete"`, nil, chromedp.WithPollingInterval(100*time.Millisecond)),
	)
	if err != nil && ctx.Err() == nil && errors.Is(settleCtx.Err(), context.DeadlineExceeded) {
		s.logger.Debug("Page did not settle before timeout.", zap.Duration("timeout", timeout))
		return nil
	}
	return err
}

// Snapshot captures the current URL and document markup.
func (s *Session) Snapshot(ctx context.Context) (*browser.Snapshot, error) {
	snap := &browser.Snapshot{}
	err := s.runActions(ctx,
		chromedp.Location(&snap.URL),
		chromedp.OuterHTML("html", &snap.HTML, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to capture page snapshot: %w", err)
	}
	return snap, nil
}

// Query describes the elements loc currently matches.
func (s *Session) Query(ctx context.Context, loc locator.Locator) ([]browser.Control, error) {
	expr, isXPath := loc.Query()
	return s.describe(ctx, expr, isXPath)
}

// Controls describes every form control on the page.
func (s *Session) Controls(ctx context.Context) ([]browser.Control, error) {
	return s.describe(ctx, "input, textarea, select, button", false)
}

func (s *Session) describe(ctx context.Context, expr string, isXPath bool) ([]browser.Control, error) {
	script := fmt.Sprintf("(%s)(%s, %s, %s)", describeJS, jsonEncode(expr), jsonEncode(isXPath), jsonEncode(browser.ControlAttr))

	var out []browser.Control
	err := s.runActions(ctx, chromedp.Evaluate(script, &out, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithReturnByValue(true)
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to query %q: %w", expr, err)
	}
	return out, nil
}
