// File: internal/runner/runner.go
// Package runner routes a batch of test cases to the UI and API drivers and
// assembles one result per case.
package runner

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/casepilot/api/schemas"
	"github.com/xkilldash9x/casepilot/internal/observability"
)

// Driver executes one bucket of cases. Implementations return exactly one
// result per case, in input order, and never panic out of Run.
type Driver interface {
	Run(ctx context.Context, targetURL string, cases []schemas.TestCase) []schemas.TestResult
}

// Runner is the batch entry point.
type Runner struct {
	ui      Driver
	api     Driver
	metrics *observability.Metrics
	logger  *zap.Logger
}

// New creates a Runner. metrics may be nil.
func New(ui, api Driver, metrics *observability.Metrics, logger *zap.Logger) *Runner {
	return &Runner{ui: ui, api: api, metrics: metrics, logger: logger.Named("runner")}
}

// Run executes the batch and returns UI results, then API results, then
// skipped results, each group in input order. The UI and API buckets run
// concurrently; a driver is only invoked when its bucket is non-empty.
// Cancelling ctx fails the cases that have not run yet; it never drops one.
func (r *Runner) Run(ctx context.Context, targetURL string, cases []schemas.TestCase) []schemas.TestResult {
	done := r.metrics.BatchStarted()
	defer done()

	var ui, api, other []schemas.TestCase
	for _, tc := range cases {
		switch schemas.BucketOf(tc.Type) {
		case schemas.BucketUI:
			ui = append(ui, tc)
		case schemas.BucketAPI:
			api = append(api, tc)
		default:
			other = append(other, tc)
		}
	}
	r.logger.Info("Running batch.",
		zap.String("target", targetURL),
		zap.Int("ui", len(ui)),
		zap.Int("api", len(api)),
		zap.Int("unsupported", len(other)),
	)

	var uiRes, apiRes []schemas.TestResult
	g, gctx := errgroup.WithContext(ctx)
	if len(ui) > 0 {
		g.Go(func() error {
			uiRes = r.ui.Run(gctx, targetURL, ui)
			return nil
		})
	}
	if len(api) > 0 {
		g.Go(func() error {
			apiRes = r.api.Run(gctx, targetURL, api)
			return nil
		})
	}
	_ = g.Wait()

	results := make([]schemas.TestResult, 0, len(cases))
	results = append(results, reconcile(ui, uiRes)...)
	results = append(results, reconcile(api, apiRes)...)
	for _, tc := range other {
		res := schemas.Skipped(tc, (&UnsupportedTypeError{Type: tc.Type}).Error())
		r.metrics.ObserveCase(string(schemas.BucketOther), string(res.Status), 0)
		results = append(results, res)
	}

	r.logger.Info("Batch finished.", zap.Any("summary", Summarize(results)))
	return results
}

// reconcile guarantees one result per case even if a driver misbehaves.
func reconcile(cases []schemas.TestCase, results []schemas.TestResult) []schemas.TestResult {
	if len(results) == len(cases) {
		return results
	}
	out := make([]schemas.TestResult, len(cases))
	for i, tc := range cases {
		if i < len(results) {
			out[i] = results[i]
			continue
		}
		out[i] = schemas.Failed(tc, "Error executing test: driver returned no result")
	}
	return out
}

// Summary counts results by status.
type Summary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// Summarize tallies results.
func Summarize(results []schemas.TestResult) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch r.Status {
		case schemas.StatusPassed:
			s.Passed++
		case schemas.StatusFailed:
			s.Failed++
		case schemas.StatusSkipped:
			s.Skipped++
		}
	}
	return s
}
