// File: internal/runner/api.go
package runner

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/casepilot/api/schemas"
	"github.com/xkilldash9x/casepilot/internal/observability"
)

// maxDrain caps how much of a response body is read before the connection is reused.
const maxDrain = 1 << 20

// APIDriver runs API cases over one shared HTTP client.
type APIDriver struct {
	client  *http.Client
	timeout time.Duration
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewAPIDriver wires an API driver. timeout bounds each request; zero leaves
// only the client's own timeout in effect.
func NewAPIDriver(client *http.Client, timeout time.Duration, metrics *observability.Metrics, logger *zap.Logger) *APIDriver {
	return &APIDriver{client: client, timeout: timeout, metrics: metrics, logger: logger.Named("api_driver")}
}

// Run executes every case against baseURL and returns one result per case.
func (d *APIDriver) Run(ctx context.Context, baseURL string, cases []schemas.TestCase) []schemas.TestResult {
	if len(cases) == 0 {
		return nil
	}
	d.logger.Info("Starting API batch.", zap.Int("cases", len(cases)), zap.String("base", baseURL))

	results := make([]schemas.TestResult, 0, len(cases))
	for i, tc := range cases {
		if err := ctx.Err(); err != nil {
			d.logger.Warn("API batch cancelled.", zap.Int("remaining", len(cases)-i), zap.Error(err))
			for _, rest := range cases[i:] {
				results = append(results, d.record(rest, 0, schemas.Failed(rest, "Cancelled before execution: "+err.Error())))
			}
			break
		}
		results = append(results, d.runCase(ctx, baseURL, tc))
	}
	return results
}

func (d *APIDriver) runCase(ctx context.Context, baseURL string, tc schemas.TestCase) (res schemas.TestResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("API case panicked",
				zap.Int("test_id", tc.ID),
				zap.Any("panicValue", r),
				zap.String("stack", string(debug.Stack())),
			)
			res = schemas.Failed(tc, messageFor(errPanic{value: r}))
		}
		res = d.record(tc, time.Since(start), res)
	}()

	method := strings.ToUpper(strings.TrimSpace(tc.Method))
	if method == "" {
		method = http.MethodGet
	}
	target := ResolveURL(baseURL, tc.Endpoint)
	expected := tc.ExpectedStatus
	if expected == 0 {
		expected = http.StatusOK
	}

	code, err := d.do(ctx, method, target, tc)
	if err != nil {
		d.logger.Info("API request failed.", zap.Int("test_id", tc.ID), zap.Error(err))
		return schemas.Failed(tc, messageFor(err))
	}
	msg := fmt.Sprintf("HTTP %s %s -> %d (expected %d)", method, target, code, expected)
	if code != expected {
		return schemas.Failed(tc, msg)
	}
	return schemas.Passed(tc, msg)
}

// do sends the request and returns the response status code.
func (d *APIDriver) do(ctx context.Context, method, target string, tc schemas.TestCase) (int, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	body, contentType, err := requestBody(tc)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return 0, fmt.Errorf("invalid request %s %s: %w", method, target, err)
	}
	for k, v := range tc.Headers {
		req.Header.Set(k, v)
	}
	if contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, &TransportError{Method: method, URL: target, Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrain))
	return resp.StatusCode, nil
}

// ResolveURL uses an absolute endpoint verbatim and otherwise joins it onto
// base with exactly one slash.
func ResolveURL(base, endpoint string) string {
	if strings.HasPrefix(endpoint, "http") {
		return endpoint
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(endpoint, "/")
}

// requestBody encodes the case payload. A body takes precedence over json:
// a JSON string body is sent as-is, a JSON object body is form-encoded and
// anything else is sent as its JSON text. json is sent as application/json.
func requestBody(tc schemas.TestCase) (io.Reader, string, error) {
	if raw := bytes.TrimSpace(tc.Body); len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		switch raw[0] {
		case '"':
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return nil, "", fmt.Errorf("invalid body: %w", err)
			}
			return strings.NewReader(s), "", nil
		case '{':
			form, err := formEncode(raw)
			if err != nil {
				return nil, "", err
			}
			return strings.NewReader(form), "application/x-www-form-urlencoded", nil
		default:
			return bytes.NewReader(raw), "", nil
		}
	}
	if raw := bytes.TrimSpace(tc.JSON); len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		return bytes.NewReader(raw), "application/json", nil
	}
	return nil, "", nil
}

func formEncode(raw []byte) (string, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return "", fmt.Errorf("invalid body: %w", err)
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := url.Values{}
	for _, k := range keys {
		v := bytes.TrimSpace(fields[k])
		var s string
		if len(v) > 0 && v[0] == '"' && json.Unmarshal(v, &s) == nil {
			values.Add(k, s)
			continue
		}
		values.Add(k, string(v))
	}
	return values.Encode(), nil
}

func (d *APIDriver) record(tc schemas.TestCase, elapsed time.Duration, res schemas.TestResult) schemas.TestResult {
	d.metrics.ObserveCase(string(schemas.BucketAPI), string(res.Status), elapsed)
	return res
}
