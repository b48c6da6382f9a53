// File: cmd/run.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	json "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/casepilot/api/schemas"
	"github.com/xkilldash9x/casepilot/internal/browser/session"
	"github.com/xkilldash9x/casepilot/internal/casefile"
	"github.com/xkilldash9x/casepilot/internal/config"
	"github.com/xkilldash9x/casepilot/internal/credentials"
	"github.com/xkilldash9x/casepilot/internal/network"
	"github.com/xkilldash9x/casepilot/internal/observability"
	"github.com/xkilldash9x/casepilot/internal/runner"
	"github.com/xkilldash9x/casepilot/internal/server"
)

// errCasesFailed makes the process exit non-zero once the report is written.
var errCasesFailed = errors.New("one or more test cases failed")

// batchRunnerFactory builds the runner for run and serve; tests replace it.
var batchRunnerFactory = buildRunner

// buildRunner wires the browser and HTTP drivers from configuration.
func buildRunner(cfg config.Interface, metrics *observability.Metrics, logger *zap.Logger) (server.BatchRunner, error) {
	creds, err := credentials.NewResolver(cfg.Credentials(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize credentials: %w", err)
	}
	client, err := network.NewClient(network.ClientConfigFromAPI(cfg.API(), logger))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize HTTP client: %w", err)
	}

	ui := runner.NewUIDriver(session.NewOpener(cfg.Browser(), logger), creds, cfg.Browser(), metrics, logger)
	api := runner.NewAPIDriver(client, cfg.API().Timeout, metrics, logger)
	return runner.New(ui, api, metrics, logger), nil
}

// batchReport is the document written by `run --format json`.
type batchReport struct {
	RunID   string               `json:"run_id"`
	Target  string               `json:"target"`
	Started time.Time            `json:"started"`
	Elapsed string               `json:"elapsed"`
	Summary runner.Summary       `json:"summary"`
	Results []schemas.TestResult `json:"results"`
}

func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run a file of test cases against a target website",
		Example: `  casepilot run --url https://shop.example --cases cases.json
  casepilot run --url https://shop.example --cases suite.xlsx --sheet Regression --format json -o results.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}

			target, _ := cmd.Flags().GetString("url")
			casesPath, _ := cmd.Flags().GetString("cases")
			format, _ := cmd.Flags().GetString("format")
			outputPath, _ := cmd.Flags().GetString("output")
			sheet, _ := cmd.Flags().GetString("sheet")
			timeout, _ := cmd.Flags().GetDuration("timeout")

			if u, err := url.Parse(target); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return fmt.Errorf("--url must be an absolute http(s) URL, got %q", target)
			}
			format = strings.ToLower(format)
			if format != "text" && format != "json" {
				return fmt.Errorf("unsupported output format %q (use text or json)", format)
			}

			cases, err := casefile.Load(casesPath, casefile.Options{Sheet: sheet})
			if err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			metrics, err := observability.NewMetrics(reg)
			if err != nil {
				return fmt.Errorf("failed to register metrics: %w", err)
			}
			batch, err := batchRunnerFactory(cfg, metrics, logger)
			if err != nil {
				return err
			}

			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			report := batchReport{RunID: uuid.NewString(), Target: target, Started: time.Now()}
			logger.Info("Starting batch",
				zap.String("run_id", report.RunID),
				zap.String("target", target),
				zap.String("cases_file", casesPath),
				zap.Int("cases", len(cases)),
			)

			report.Results = batch.Run(ctx, target, cases)
			report.Summary = runner.Summarize(report.Results)
			report.Elapsed = time.Since(report.Started).Round(time.Millisecond).String()
			logger.Info("Batch finished", zap.String("run_id", report.RunID), zap.Any("summary", report.Summary))

			if err := writeReport(cmd.OutOrStdout(), outputPath, format, report); err != nil {
				return err
			}
			if report.Summary.Failed > 0 {
				return errCasesFailed
			}
			return nil
		},
	}

	runCmd.Flags().StringP("url", "u", "", "Target website URL (required)")
	runCmd.Flags().String("cases", "", "Path to a .json, .yaml or .xlsx case file (required)")
	runCmd.Flags().StringP("format", "f", "text", "Output format: text or json")
	runCmd.Flags().StringP("output", "o", "", "Write results to this file instead of stdout")
	runCmd.Flags().Duration("timeout", 0, "Deadline for the whole batch (0 disables)")
	runCmd.Flags().String("sheet", "", "Worksheet to read from an .xlsx case file (default is the first)")
	runCmd.Flags().Bool("headless", true, "Run the browser headless. (Overrides config/env)")
	runCmd.Flags().String("window-size", "", "Browser window size as W,H. (Overrides config/env)")
	runCmd.Flags().String("chrome-path", "", "Path to the Chrome binary. (Overrides config/env)")
	runCmd.Flags().Bool("insecure-tls", false, "Ignore TLS errors in the browser. (Overrides config/env)")
	runCmd.Flags().Duration("api-timeout", 0, "Per-request timeout for API cases. (Overrides config/env)")
	runCmd.Flags().Float64("rate-limit", 0, "Max API requests per second, 0 for unlimited. (Overrides config/env)")
	_ = runCmd.MarkFlagRequired("url")
	_ = runCmd.MarkFlagRequired("cases")

	return runCmd
}

// writeReport renders report to outputPath, or to stdout when it is empty.
func writeReport(stdout io.Writer, outputPath, format string, report batchReport) (err error) {
	w := stdout
	if outputPath != "" {
		var f *os.File
		if f, err = os.Create(outputPath); err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		w = f
	}

	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	return writeText(w, report)
}

var (
	passLabel = color.New(color.FgGreen, color.Bold).SprintFunc()
	failLabel = color.New(color.FgRed, color.Bold).SprintFunc()
	skipLabel = color.New(color.FgYellow, color.Bold).SprintFunc()
	dim       = color.New(color.Faint).SprintFunc()
)

func writeText(w io.Writer, report batchReport) error {
	for _, res := range report.Results {
		var label string
		switch res.Status {
		case schemas.StatusPassed:
			label = passLabel("PASS")
		case schemas.StatusFailed:
			label = failLabel("FAIL")
		default:
			label = skipLabel("SKIP")
		}
		if _, err := fmt.Fprintf(w, "%s  #%d %s\n      %s\n", label, res.ID, res.Name, dim(res.Message)); err != nil {
			return err
		}
	}

	s := report.Summary
	_, err := fmt.Fprintf(w, "\n%d case(s) against %s in %s: %s, %s, %s\n",
		s.Total, report.Target, report.Elapsed,
		passLabel(fmt.Sprintf("%d passed", s.Passed)),
		failLabel(fmt.Sprintf("%d failed", s.Failed)),
		skipLabel(fmt.Sprintf("%d skipped", s.Skipped)),
	)
	return err
}
