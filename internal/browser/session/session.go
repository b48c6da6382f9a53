// File: internal/browser/session/session.go
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/casepilot/internal/browser"
	"github.com/xkilldash9x/casepilot/internal/config"
)

// closeGracePeriod bounds how long Close waits for Chrome to exit.
const closeGracePeriod = 10 * time.Second

// startBrowser performs the first Run on the tab context, which allocates the
// Chrome process. Its ctx must live as long as the browser: chromedp ties the
// process to it. Replaced in tests.
var startBrowser = func(tabCtx context.Context) error { return chromedp.Run(tabCtx) }

// Session is a single Chrome tab driven over the DevTools protocol. It
// implements browser.Page.
type Session struct {
	id     string
	cfg    config.BrowserConfig
	logger *zap.Logger

	// ctx carries the chromedp target; every action is derived from it.
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc

	closeOnce sync.Once
	closeErr  error
}

var _ browser.Page = (*Session)(nil)

// NewOpener returns a browser.Opener that launches a fresh Chrome per call.
func NewOpener(cfg config.BrowserConfig, logger *zap.Logger) browser.Opener {
	return func(ctx context.Context) (browser.Page, error) {
		return Open(ctx, cfg, logger)
	}
}

// Open launches Chrome and attaches to its first tab. ctx bounds the startup
// only; the browser lives until Close.
func Open(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Session, error) {
	width, height, err := cfg.Window()
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	log := logger.Named("session").With(zap.String("session_id", id))

	// The browser outlives any single operation context, so it hangs off
	// Background and is torn down explicitly in Close.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), execOptions(cfg, width, height)...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(log.Sugar().Debugf),
		chromedp.WithErrorf(log.Sugar().Debugf),
	)

	s := &Session{
		id:          id,
		cfg:         cfg,
		logger:      log,
		ctx:         tabCtx,
		cancel:      tabCancel,
		allocCancel: allocCancel,
	}

	if err := s.start(ctx); err != nil {
		_ = s.Close(context.Background())
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	log.Info("Browser session started.",
		zap.Bool("headless", cfg.Headless),
		zap.Int("width", width),
		zap.Int("height", height),
	)
	return s, nil
}

// execOptions translates configuration into allocator flags.
func execOptions(cfg config.BrowserConfig, width, height int) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.WindowSize(width, height),
	)
	if !cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if cfg.IgnoreTLSErrors {
		opts = append(opts, chromedp.IgnoreCertErrors)
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}

	// Extra flags: "--name" is a switch, "--name=value" carries a value.
	for _, arg := range cfg.Args {
		arg = strings.TrimLeft(strings.TrimSpace(arg), "-")
		if arg == "" {
			continue
		}
		if key, value, ok := strings.Cut(arg, "="); ok {
			opts = append(opts, chromedp.Flag(key, value))
			continue
		}
		opts = append(opts, chromedp.Flag(arg, true))
	}
	return opts
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// start launches the browser on the long-lived tab context. ctx only bounds
// how long we wait; it is never handed to chromedp.
func (s *Session) start(ctx context.Context) error {
	done := make(chan error, 1)
	go func() { done <- startBrowser(s.ctx) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		s.cancel()
		<-done
		return ctx.Err()
	}
}

// runActions executes chromedp actions on the tab, cancelled by either the
// session or the caller's ctx.
func (s *Session) runActions(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()
	err := chromedp.Run(runCtx, actions...)
	if err != nil {
		// Prefer the context error that caused the failure.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if s.ctx.Err() != nil {
			return fmt.Errorf("browser session closed: %w", s.ctx.Err())
		}
	}
	return err
}

// Close shuts the tab and the browser process. It is safe to call more than once.
func (s *Session) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		done := make(chan error, 1)
		go func() { done <- chromedp.Cancel(s.ctx) }()

		grace := closeGracePeriod
		if deadline, ok := ctx.Deadline(); ok {
			if until := time.Until(deadline); until < grace {
				grace = until
			}
		}
		select {
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				s.closeErr = err
			}
		case <-time.After(grace):
			s.closeErr = fmt.Errorf("browser did not exit within %s", grace)
		}
		s.cancel()
		s.allocCancel()
		s.logger.Debug("Browser session closed.", zap.Error(s.closeErr))
	})
	return s.closeErr
}
