// File: internal/network/httpclient.go
package network

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/casepilot/internal/config"
)

// Transport defaults for API test traffic.
const (
	DefaultDialTimeout           = 5 * time.Second
	DefaultKeepAliveInterval     = 15 * time.Second
	DefaultTLSHandshakeTimeout   = 5 * time.Second
	DefaultResponseHeaderTimeout = 10 * time.Second
	DefaultRequestTimeout        = 30 * time.Second

	DefaultMaxIdleConns        = 50
	DefaultMaxIdleConnsPerHost = 10
	DefaultIdleConnTimeout     = 30 * time.Second

	// maxRedirects mirrors the net/http default.
	maxRedirects = 10
)

// ClientConfig holds the configuration for the HTTP client and transport layers.
type ClientConfig struct {
	IgnoreTLSErrors bool

	// RequestTimeout bounds one request, including reading the response body.
	RequestTimeout        time.Duration
	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration
	DialTimeout           time.Duration

	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration

	ForceHTTP2      bool
	FollowRedirects bool

	// RateLimit caps requests per second across the client; zero means unlimited.
	RateLimit float64
	Burst     int

	Logger *zap.Logger
}

// NewDefaultClientConfig returns a configuration with the package defaults.
func NewDefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		RequestTimeout:        DefaultRequestTimeout,
		TLSHandshakeTimeout:   DefaultTLSHandshakeTimeout,
		ResponseHeaderTimeout: DefaultResponseHeaderTimeout,
		DialTimeout:           DefaultDialTimeout,
		MaxIdleConns:          DefaultMaxIdleConns,
		MaxIdleConnsPerHost:   DefaultMaxIdleConnsPerHost,
		IdleConnTimeout:       DefaultIdleConnTimeout,
		ForceHTTP2:            true,
		FollowRedirects:       true,
		Burst:                 1,
	}
}

// ClientConfigFromAPI derives a client configuration from the api config section.
func ClientConfigFromAPI(api config.APIConfig, logger *zap.Logger) *ClientConfig {
	cfg := NewDefaultClientConfig()
	cfg.RequestTimeout = api.Timeout
	// The per-request timeout also bounds the wait for response headers.
	if api.Timeout > 0 {
		cfg.ResponseHeaderTimeout = api.Timeout
	}
	cfg.FollowRedirects = api.FollowRedirects
	cfg.IgnoreTLSErrors = api.IgnoreTLSErrors
	cfg.RateLimit = api.RateLimit
	if api.Burst > 0 {
		cfg.Burst = api.Burst
	}
	cfg.Logger = logger
	return cfg
}

// NewHTTPTransport creates an http.Transport from cfg.
func NewHTTPTransport(cfg *ClientConfig) *http.Transport {
	if cfg == nil {
		cfg = NewDefaultClientConfig()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	dialer := &net.Dialer{Timeout: cfg.DialTimeout, KeepAlive: DefaultKeepAliveInterval}
	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: cfg.IgnoreTLSErrors, //nolint:gosec // opt-in for self-signed test targets
		ClientSessionCache: tls.NewLRUClientSessionCache(64),
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSClientConfig:       tlsConfig,
		TLSHandshakeTimeout:   cfg.TLSHandshakeTimeout,
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		ForceAttemptHTTP2:     cfg.ForceHTTP2,
	}

	if cfg.ForceHTTP2 {
		if err := http2.ConfigureTransport(transport); err != nil {
			logger.Warn("Failed to configure HTTP/2 transport, falling back to HTTP/1.1", zap.Error(err))
		}
	} else {
		tlsConfig.NextProtos = []string{"http/1.1"}
	}
	return transport
}

// NewClient builds an http.Client with a cookie jar, the configured redirect
// policy and, when RateLimit is set, a rate-limited transport.
func NewClient(cfg *ClientConfig) (*http.Client, error) {
	if cfg == nil {
		cfg = NewDefaultClientConfig()
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	var rt http.RoundTripper = NewHTTPTransport(cfg)
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		rt = &limitedTransport{next: rt, limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)}
	}

	return &http.Client{
		Transport:     rt,
		Timeout:       cfg.RequestTimeout,
		Jar:           jar,
		CheckRedirect: redirectPolicy(cfg.FollowRedirects),
	}, nil
}

// redirectPolicy either follows up to maxRedirects hops or hands the redirect
// response itself back to the caller.
func redirectPolicy(follow bool) func(*http.Request, []*http.Request) error {
	if !follow {
		return func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	}
	return func(_ *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		return nil
	}
}

// limitedTransport waits on a token bucket before each round trip.
type limitedTransport struct {
	next    http.RoundTripper
	limiter *rate.Limiter
}

func (t *limitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	return t.next.RoundTrip(req)
}
