// File: internal/runner/ui_flows.go
package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/casepilot/api/schemas"
	"github.com/xkilldash9x/casepilot/internal/browser"
	"github.com/xkilldash9x/casepilot/internal/credentials"
	"github.com/xkilldash9x/casepilot/internal/formfill"
	"github.com/xkilldash9x/casepilot/internal/intent"
	"github.com/xkilldash9x/casepilot/internal/locator"
)

var (
	passwordField = locator.Locator{Strategy: locator.CSS, Value: `input[type="password"]`}

	// forgotLinks are tried in order; the XPath matches link text case-insensitively.
	forgotLinks = []locator.Locator{
		{Strategy: locator.ID, Value: "forgot-password"},
		{Strategy: locator.ID, Value: "forgotPassword"},
		{Strategy: locator.XPath, Value: `//a[contains(translate(normalize-space(.), 'ABCDEFGHIJKLMNOPQRSTUVWXYZ', 'abcdefghijklmnopqrstuvwxyz'), 'forgot')]`},
	}

	// structural selectors a responsive layout must still render.
	structural = []locator.Locator{
		{Strategy: locator.CSS, Value: "form"},
		{Strategy: locator.CSS, Value: "form[action]"},
		{Strategy: locator.CSS, Value: "input, button"},
	}

	usernameHints = []string{"email", "user", "login"}
	loginWords    = []string{"log in", "login", "sign in", "submit", "continue"}
)

type viewportPreset struct {
	name          string
	width, height int
}

var (
	mobilePreset = viewportPreset{"mobile", 375, 812}
	tabletPreset = viewportPreset{"tablet", 768, 1024}
)

// forgotPassword probes for a password-reset link. A missing link still
// passes; only an error while following a found link fails the case.
func (d *UIDriver) forgotPassword(ctx context.Context, page browser.Page, targetURL string, _ schemas.TestCase) (string, error) {
	if err := page.Navigate(ctx, targetURL); err != nil {
		return "", err
	}
	for _, loc := range forgotLinks {
		found, err := page.Query(ctx, loc)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			continue
		}
		if len(found) == 0 {
			continue
		}
		if err := page.Click(ctx, loc); err != nil {
			return "", fmt.Errorf("could not open password reset link %s: %w", loc, err)
		}
		if err := page.Settle(ctx, d.cfg.SettleTimeout); err != nil {
			return "", err
		}
		snap, err := page.Snapshot(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Opened password reset flow via %s; now at %s.", loc, snap.URL), nil
	}
	return "Forgot-password link not found; probe completed without navigation.", nil
}

// login fills the username and password fields with resolved credentials,
// submits and evaluates the landing page.
func (d *UIDriver) login(ctx context.Context, page browser.Page, targetURL string, tc schemas.TestCase) (string, error) {
	if err := page.Navigate(ctx, targetURL); err != nil {
		return "", err
	}
	if err := page.WaitPresent(ctx, passwordField, d.cfg.ElementTimeout); err != nil {
		return "", withPurpose(err, "password field")
	}
	controls, err := page.Controls(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to enumerate login form: %w", err)
	}
	pwd, user, ok := loginFields(controls)
	if !ok {
		return "", &browser.LocatorTimeoutError{
			Locators: []locator.Locator{{Strategy: locator.CSS, Value: `input[type="email"], input[type="text"]`}},
			Timeout:  d.cfg.ElementTimeout,
			Purpose:  "username field",
		}
	}

	pair := d.creds.Resolve(targetURL, tc)
	d.logger.Debug("Resolved login credentials.",
		zap.Int("test_id", tc.ID),
		zap.String("source", string(pair.Source)),
		zap.Strings("overrides", pair.Overrides),
	)

	for _, f := range []struct {
		c     browser.Control
		value string
	}{{user, pair.Username}, {pwd, pair.Password}} {
		if err := page.Clear(ctx, f.c.Locator()); err != nil {
			return "", err
		}
		if err := page.Type(ctx, f.c.Locator(), f.value); err != nil {
			return "", err
		}
	}

	if submit, ok := loginSubmit(controls); ok {
		err = page.Click(ctx, submit.Locator())
	} else {
		err = page.PressEnter(ctx, pwd.Locator())
	}
	if err != nil {
		return "", fmt.Errorf("could not submit login form: %w", err)
	}

	note, err := d.evaluate(ctx, page, tc)
	if err != nil {
		return "", err
	}
	msg := fmt.Sprintf("Login submitted as '%s' (credentials from %s", pair.Username, pair.Source)
	if len(pair.Overrides) > 0 {
		msg += ", overrides: " + strings.Join(pair.Overrides, ", ")
	}
	return msg + "). " + note + ".", nil
}

// loginFields picks the first password input and the username input that
// precedes it. Username hints are tried before falling back to the nearest
// text-like control.
func loginFields(controls []browser.Control) (pwd, user browser.Control, ok bool) {
	pwdAt := -1
	for i, c := range controls {
		if c.Tag == "input" && c.Type == "password" {
			pwd, pwdAt = c, i
			break
		}
	}
	if pwdAt < 0 {
		return pwd, user, false
	}
	var candidates []browser.Control
	for _, c := range controls {
		if c.IsTextLike() && c.Type != "password" {
			candidates = append(candidates, c)
		}
	}
	for _, hint := range usernameHints {
		if c, ok := formfill.Match(hint, candidates); ok {
			return pwd, c, true
		}
	}
	for i := pwdAt - 1; i >= 0; i-- {
		if c := controls[i]; c.IsTextLike() && c.Type != "password" {
			return pwd, c, true
		}
	}
	if len(candidates) > 0 {
		return pwd, candidates[0], true
	}
	return pwd, user, false
}

func loginSubmit(controls []browser.Control) (browser.Control, bool) {
	for _, c := range controls {
		if c.IsSubmit() {
			return c, true
		}
	}
	for _, c := range controls {
		if c.Tag != "button" {
			continue
		}
		if _, ok := intent.ContainsAny(c.Text, loginWords); ok {
			return c, true
		}
	}
	return browser.Control{}, false
}

// submitForm fills the case's data with the generic filler and evaluates the result.
func (d *UIDriver) submitForm(ctx context.Context, page browser.Page, targetURL string, tc schemas.TestCase) (string, error) {
	if err := page.Navigate(ctx, targetURL); err != nil {
		return "", err
	}
	sum, err := formfill.New(page, d.logger).Fill(ctx, tc.Data)
	if err != nil {
		return "", err
	}
	note, err := d.evaluate(ctx, page, tc)
	if err != nil {
		return "", err
	}
	return sum.Message() + ". " + note + ".", nil
}

// evaluate waits for the page to settle after a submission and checks the
// case's expectations against it.
func (d *UIDriver) evaluate(ctx context.Context, page browser.Page, tc schemas.TestCase) (string, error) {
	if err := page.Settle(ctx, d.cfg.SettleTimeout); err != nil {
		return "", err
	}
	snap, err := page.Snapshot(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to capture page after submission: %w", err)
	}
	return credentials.Evaluate(tc, credentials.Observation{URL: snap.URL, Text: snap.Text()})
}

// responsive emulates a small viewport and requires the page structure to
// survive it. The configured window size is restored afterwards.
func (d *UIDriver) responsive(ctx context.Context, page browser.Page, _ string, tc schemas.TestCase) (string, error) {
	preset := mobilePreset
	if strings.Contains(strings.ToLower(tc.Description), "tablet") {
		preset = tabletPreset
	}
	if err := page.SetViewport(ctx, preset.width, preset.height); err != nil {
		return "", fmt.Errorf("could not emulate %s viewport: %w", preset.name, err)
	}
	defer d.restoreViewport(page)

	for _, loc := range structural {
		found, err := page.Query(ctx, loc)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			continue
		}
		if len(found) > 0 {
			return fmt.Sprintf("Viewport %dx%d (%s): found structural element %s.", preset.width, preset.height, preset.name, loc), nil
		}
	}
	// Give late-rendering layouts one bounded wait before failing.
	last := structural[len(structural)-1]
	if err := page.WaitPresent(ctx, last, d.cfg.ElementTimeout); err != nil {
		var lte *browser.LocatorTimeoutError
		if errors.As(err, &lte) {
			return "", &browser.LocatorTimeoutError{Locators: structural, Timeout: d.cfg.ElementTimeout, Purpose: "structural element"}
		}
		return "", err
	}
	return fmt.Sprintf("Viewport %dx%d (%s): found structural element %s.", preset.width, preset.height, preset.name, last), nil
}

func (d *UIDriver) restoreViewport(page browser.Page) {
	w, h, err := d.cfg.Window()
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), closeGrace)
	defer cancel()
	if err := page.SetViewport(ctx, w, h); err != nil {
		d.logger.Debug("Could not restore viewport.", zap.Error(err))
	}
}

// element waits for every candidate of the case's selector, then performs the
// described action on the first one found.
func (d *UIDriver) element(ctx context.Context, page browser.Page, _ string, tc schemas.TestCase) (string, error) {
	candidates := locator.Resolve(tc.Selector)
	if len(candidates) == 1 && candidates[0].IsWildcard() {
		return "No selector supplied; page loaded.", nil
	}

	var found []locator.Locator
	for _, loc := range candidates {
		err := page.WaitPresent(ctx, loc, d.cfg.ElementTimeout)
		if err == nil {
			found = append(found, loc)
			continue
		}
		if !errors.Is(err, browser.ErrLocatorTimeout) {
			return "", err
		}
	}
	if len(found) == 0 {
		return "", &browser.LocatorTimeoutError{Locators: candidates, Timeout: d.cfg.ElementTimeout}
	}

	target := found[0]
	action, err := d.perform(ctx, page, target, tc.Description)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Verified %d/%d selector(s); element found by %s. %s", len(found), len(candidates), target, action), nil
}

func (d *UIDriver) perform(ctx context.Context, page browser.Page, loc locator.Locator, description string) (string, error) {
	act := intent.Classify(description)
	switch act.Kind {
	case intent.Type:
		if err := page.WaitClickable(ctx, loc, d.cfg.ElementTimeout); err != nil {
			return "", err
		}
		if err := page.Clear(ctx, loc); err != nil {
			return "", err
		}
		if err := page.Type(ctx, loc, act.Text); err != nil {
			return "", err
		}
		return "Typed text into element.", nil
	case intent.Click:
		if err := page.WaitClickable(ctx, loc, d.cfg.ElementTimeout); err != nil {
			return "", err
		}
		if err := page.Click(ctx, loc); err != nil {
			return "", err
		}
		return "Clicked element as described.", nil
	default:
		return "Verified presence only.", nil
	}
}

// withPurpose labels a locator timeout with what was being looked for.
func withPurpose(err error, purpose string) error {
	var lte *browser.LocatorTimeoutError
	if errors.As(err, &lte) && lte.Purpose == "" {
		labelled := *lte
		labelled.Purpose = purpose
		return &labelled
	}
	return err
}
