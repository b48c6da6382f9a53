// File: internal/runner/ui.go
package runner

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/casepilot/api/schemas"
	"github.com/xkilldash9x/casepilot/internal/browser"
	"github.com/xkilldash9x/casepilot/internal/config"
	"github.com/xkilldash9x/casepilot/internal/credentials"
	"github.com/xkilldash9x/casepilot/internal/intent"
	"github.com/xkilldash9x/casepilot/internal/observability"
)

// closeGrace bounds session teardown, which runs even after the batch context ended.
const closeGrace = 10 * time.Second

// UIDriver runs a batch of UI cases sequentially against one browser session.
type UIDriver struct {
	open    browser.Opener
	creds   *credentials.Resolver
	cfg     config.BrowserConfig
	metrics *observability.Metrics
	logger  *zap.Logger

	// handlers maps dispatch routes to their flows; replaceable in tests.
	handlers map[intent.Route]caseHandler
}

// caseHandler runs one case on the shared page and returns the pass message.
type caseHandler func(ctx context.Context, page browser.Page, targetURL string, tc schemas.TestCase) (string, error)

// NewUIDriver wires a UI driver. metrics may be nil.
func NewUIDriver(open browser.Opener, creds *credentials.Resolver, cfg config.BrowserConfig, metrics *observability.Metrics, logger *zap.Logger) *UIDriver {
	d := &UIDriver{
		open:    open,
		creds:   creds,
		cfg:     cfg,
		metrics: metrics,
		logger:  logger.Named("ui_driver"),
	}
	d.handlers = map[intent.Route]caseHandler{
		intent.RouteForgotPassword: d.forgotPassword,
		intent.RouteLogin:          d.login,
		intent.RouteFormSubmit:     d.submitForm,
		intent.RouteResponsive:     d.responsive,
		intent.RouteElement:        d.element,
	}
	return d
}

// Run opens a session, loads targetURL once and executes every case in order.
// It returns exactly one result per case. The session is closed on every path.
func (d *UIDriver) Run(ctx context.Context, targetURL string, cases []schemas.TestCase) []schemas.TestResult {
	if len(cases) == 0 {
		return nil
	}
	d.logger.Info("Starting UI batch.", zap.Int("cases", len(cases)), zap.String("target", targetURL))

	page, err := d.open(ctx)
	if err != nil {
		return d.failAll(cases, &SessionInitError{Err: err})
	}
	defer d.closePage(page)
	d.logger.Debug("UI session opened.", zap.String("session_id", page.ID()))

	if err := page.Navigate(ctx, targetURL); err != nil {
		return d.failAll(cases, &SessionInitError{Err: fmt.Errorf("could not load %s: %w", targetURL, err)})
	}

	results := make([]schemas.TestResult, 0, len(cases))
	for i, tc := range cases {
		if err := ctx.Err(); err != nil {
			d.logger.Warn("UI batch cancelled.",
				zap.String("session_id", page.ID()),
				zap.Int("remaining", len(cases)-i),
				zap.Error(err),
			)
			for _, rest := range cases[i:] {
				results = append(results, d.record(rest, 0, schemas.Failed(rest, "Cancelled before execution: "+err.Error())))
			}
			break
		}
		results = append(results, d.runCase(ctx, page, targetURL, tc))
	}
	return results
}

// runCase executes one case, converting errors and panics into a failed result.
func (d *UIDriver) runCase(ctx context.Context, page browser.Page, targetURL string, tc schemas.TestCase) (res schemas.TestResult) {
	start := time.Now()
	route := intent.Dispatch(intent.SignalFor(tc))
	logger := d.logger.With(zap.Int("test_id", tc.ID), zap.String("route", string(route)))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("UI case panicked",
				zap.Any("panicValue", r),
				zap.String("stack", string(debug.Stack())),
			)
			res = schemas.Failed(tc, messageFor(errPanic{value: r}))
		}
		res = d.record(tc, time.Since(start), res)
		logger.Debug("UI case finished.", zap.String("status", string(res.Status)))
	}()

	handler, ok := d.handlers[route]
	if !ok {
		handler = d.element
	}
	msg, err := handler(ctx, page, targetURL, tc)
	if err != nil {
		logger.Info("UI case failed.", zap.Error(err))
		return schemas.Failed(tc, messageFor(err))
	}
	return schemas.Passed(tc, msg)
}

func (d *UIDriver) record(tc schemas.TestCase, elapsed time.Duration, res schemas.TestResult) schemas.TestResult {
	d.metrics.ObserveCase(string(schemas.BucketUI), string(res.Status), elapsed)
	return res
}

func (d *UIDriver) failAll(cases []schemas.TestCase, err error) []schemas.TestResult {
	d.logger.Error("UI session unavailable, failing batch.", zap.Error(err), zap.Int("cases", len(cases)))
	out := make([]schemas.TestResult, len(cases))
	for i, tc := range cases {
		out[i] = d.record(tc, 0, schemas.Failed(tc, messageFor(err)))
	}
	return out
}

// closePage tears the session down with its own deadline; close errors are logged, not returned.
func (d *UIDriver) closePage(page browser.Page) {
	ctx, cancel := context.WithTimeout(context.Background(), closeGrace)
	defer cancel()
	if err := page.Close(ctx); err != nil {
		d.logger.Warn("Error closing browser session.", zap.String("session_id", page.ID()), zap.Error(err))
	}
}
