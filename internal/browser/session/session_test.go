// internal/browser/session/session_test.go
package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/casepilot/internal/browser"
	"github.com/xkilldash9x/casepilot/internal/config"
	"github.com/xkilldash9x/casepilot/internal/locator"
)

const fixtureHTML = `<!doctype html>
<html><head><title>Fixture</title></head>
<body>
  <form id="signup" action="/done" method="get">
    <label for="email">Email address</label>
    <input id="email" name="email" type="email" placeholder="you@example.com">
    <input id="agree" name="agree" type="checkbox" checked>
    <button id="go" type="submit">Send</button>
  </form>
  <p class="note">Hello, world</p>
</body></html>`

// requireChrome skips when no Chrome or Chromium binary is installed.
func requireChrome(t *testing.T) {
	t.Helper()
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "headless-shell"} {
		if _, err := exec.LookPath(name); err == nil {
			return
		}
	}
	t.Skip("no Chrome binary available")
}

func newTestSession(t *testing.T) (*Session, *httptest.Server) {
	t.Helper()
	requireChrome(t)
	if testing.Short() {
		t.Skip("browser test skipped in short mode")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if r.URL.Path == "/done" {
			_, _ = w.Write([]byte(`<html><body><h1>Thanks, you are subscribed</h1></body></html>`))
			return
		}
		_, _ = w.Write([]byte(fixtureHTML))
	}))
	t.Cleanup(srv.Close)

	cfg := config.NewDefaultConfig().Browser()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s, err := Open(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s, srv
}

func TestSession_PageContract(t *testing.T) {
	s, srv := newTestSession(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	require.NoError(t, s.Navigate(ctx, srv.URL))

	email := locator.Locator{Strategy: locator.ID, Value: "email"}
	require.NoError(t, s.WaitPresent(ctx, email, 5*time.Second))
	require.NoError(t, s.WaitClickable(ctx, email, 5*time.Second))

	xp := locator.Locator{Strategy: locator.XPath, Value: "//p[contains(., 'Hello')]"}
	require.NoError(t, s.WaitPresent(ctx, xp, 5*time.Second))

	controls, err := s.Controls(ctx)
	require.NoError(t, err)
	require.Len(t, controls, 3)
	assert.Equal(t, "Email address", controls[0].Label)
	assert.Equal(t, "you@example.com", controls[0].Placeholder)
	assert.True(t, controls[1].IsCheckbox())
	assert.True(t, controls[1].Checked)
	assert.True(t, controls[2].IsSubmit())

	// Indexes are stable across queries.
	again, err := s.Query(ctx, email)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, controls[0].Index, again[0].Index)

	require.NoError(t, s.Clear(ctx, controls[0].Locator()))
	require.NoError(t, s.Type(ctx, controls[0].Locator(), "jane@doe.com"))
	require.NoError(t, s.Click(ctx, controls[1].Locator()))

	boxes, err := s.Query(ctx, locator.Locator{Strategy: locator.Name, Value: "agree"})
	require.NoError(t, err)
	require.Len(t, boxes, 1)
	assert.False(t, boxes[0].Checked)

	require.NoError(t, s.Click(ctx, controls[2].Locator()))
	require.NoError(t, s.Settle(ctx, 5*time.Second))

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Contains(t, snap.URL, "/done?email=jane%40doe.com")
	assert.Contains(t, snap.Text(), "you are subscribed")

	require.NoError(t, s.SetViewport(ctx, 375, 812))
}

func TestSession_WaitTimeout(t *testing.T) {
	s, srv := newTestSession(t)
	ctx := context.Background()
	require.NoError(t, s.Navigate(ctx, srv.URL))

	missing := locator.Locator{Strategy: locator.CSS, Value: "#nope"}
	start := time.Now()
	err := s.WaitPresent(ctx, missing, 500*time.Millisecond)
	assert.Less(t, time.Since(start), 5*time.Second)

	var lte *browser.LocatorTimeoutError
	require.True(t, errors.As(err, &lte), "got %v", err)
	assert.Equal(t, []locator.Locator{missing}, lte.Locators)

	none, err := s.Query(ctx, missing)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSession_CloseIsIdempotent(t *testing.T) {
	s, _ := newTestSession(t)
	require.NoError(t, s.Close(context.Background()))
	require.NoError(t, s.Close(context.Background()))

	err := s.Navigate(context.Background(), "about:blank")
	assert.Error(t, err)
}

func TestOpen_RejectsBadWindow(t *testing.T) {
	cfg := config.NewDefaultConfig().Browser()
	cfg.WindowSize = "huge"
	_, err := Open(context.Background(), cfg, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestExecOptions_IncludesExtraArgs(t *testing.T) {
	cfg := config.NewDefaultConfig().Browser()
	base := len(execOptions(cfg, 800, 600))

	cfg.Args = []string{"--lang=en-US", "mute-audio", "  ", "--"}
	cfg.ExecPath = "/opt/chrome"
	cfg.Headless = false
	cfg.IgnoreTLSErrors = true
	assert.Equal(t, base+5, len(execOptions(cfg, 800, 600)))
}

// stubStart swaps the browser launch for fn for the duration of the test.
func stubStart(t *testing.T, fn func(tabCtx context.Context) error) {
	t.Helper()
	orig := startBrowser
	startBrowser = fn
	t.Cleanup(func() { startBrowser = orig })
}

func TestOpen_LaunchesOnSessionContext(t *testing.T) {
	var launchCtx context.Context
	stubStart(t, func(tabCtx context.Context) error {
		launchCtx = tabCtx
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	s, err := Open(ctx, config.NewDefaultConfig().Browser(), zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })

	// Ending the startup context must not reach the browser.
	cancel()
	assert.True(t, launchCtx == s.ctx, "browser must be launched on the tab context itself")
	assert.NoError(t, launchCtx.Err())
	assert.NotEmpty(t, s.ID())
}

func TestOpen_StartupBoundedByCallerContext(t *testing.T) {
	stubStart(t, func(tabCtx context.Context) error {
		<-tabCtx.Done()
		return tabCtx.Err()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := Open(ctx, config.NewDefaultConfig().Browser(), zaptest.NewLogger(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestOpen_LaunchFailure(t *testing.T) {
	stubStart(t, func(context.Context) error { return errors.New("exec: chrome not found") })

	_, err := Open(context.Background(), config.NewDefaultConfig().Browser(), zaptest.NewLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start browser: exec: chrome not found")
}
