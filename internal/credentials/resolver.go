// File: internal/credentials/resolver.go
// Package credentials decides which login pair a test case uses and whether the
// page reached after a login or form submission satisfies the case.
package credentials

import (
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/casepilot/api/schemas"
	"github.com/xkilldash9x/casepilot/internal/config"
)

const (
	FallbackUsername = "user@example.com"
	FallbackPassword = "Password123!"

	WrongUsername = "wrong_user"
	WrongPassword = "wrong_pass_123"
)

// Source records which precedence level supplied a pair.
type Source string

const (
	SourceTestCase Source = "test_case"
	SourceDomain   Source = "domain_map"
	SourceConfig   Source = "config"
	SourceFallback Source = "fallback"
)

// Pair is a resolved username and password.
type Pair struct {
	Username string
	Password string
	Source   Source
	// Overrides lists the negative-scenario adjustments applied after resolution.
	Overrides []string
}

// Resolver holds the process-wide credential material.
type Resolver struct {
	defaults config.DomainPair
	domains  map[string]config.DomainPair
	logger   *zap.Logger
}

// NewResolver builds a Resolver from configuration. The domain map is decoded
// once; a malformed map is an error.
func NewResolver(cfg config.CredentialsConfig, logger *zap.Logger) (*Resolver, error) {
	domains, err := cfg.Domains()
	if err != nil {
		return nil, err
	}
	normalized := make(map[string]config.DomainPair, len(domains))
	for host, pair := range domains {
		normalized[strings.ToLower(strings.TrimSpace(host))] = pair
	}
	return &Resolver{
		defaults: config.DomainPair{Username: cfg.Username, Password: cfg.Password},
		domains:  normalized,
		logger:   logger.Named("credentials"),
	}, nil
}

// Resolve picks the pair for tc against targetURL, then applies the negative
// scenario overrides named in the description. Precedence, highest first: the
// case's own credentials, the domain map, the configured default, the fallback.
func (r *Resolver) Resolve(targetURL string, tc schemas.TestCase) Pair {
	p := r.precedence(targetURL, tc)
	applyOverrides(&p, tc.Description)
	r.logger.Debug("Resolved login credentials.",
		zap.Int("test_id", tc.ID),
		zap.String("source", string(p.Source)),
		zap.String("username", p.Username),
		zap.Strings("overrides", p.Overrides),
	)
	return p
}

func (r *Resolver) precedence(targetURL string, tc schemas.TestCase) Pair {
	if c := tc.Credentials; c != nil && (c.Username != "" || c.Password != "") {
		return Pair{Username: c.Username, Password: c.Password, Source: SourceTestCase}
	}
	if host := Domain(targetURL); host != "" {
		pair, ok := r.domains[host]
		if !ok {
			// Fall back to the bare hostname when the key was written without a port.
			if u, err := url.Parse("//" + host); err == nil {
				pair, ok = r.domains[u.Hostname()]
			}
		}
		if ok {
			return Pair{Username: pair.Username, Password: pair.Password, Source: SourceDomain}
		}
	}
	if r.defaults.Username != "" || r.defaults.Password != "" {
		return Pair{Username: r.defaults.Username, Password: r.defaults.Password, Source: SourceConfig}
	}
	return Pair{Username: FallbackUsername, Password: FallbackPassword, Source: SourceFallback}
}

// Domain strips the scheme and path from a URL, leaving host[:port] in lower case.
func Domain(targetURL string) string {
	s := strings.TrimSpace(targetURL)
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	if i := strings.LastIndex(s, "@"); i >= 0 {
		s = s[i+1:]
	}
	return strings.ToLower(s)
}

// override blanks or corrupts fields when a description asks for a failure scenario.
type override struct {
	name  string
	match func(desc string) bool
	apply func(p *Pair)
}

func both(desc, word string) bool {
	i := strings.Index(desc, "both")
	return i >= 0 && strings.Contains(desc[i:], word)
}

// overrides run in order; "both" rules come first so they are not shadowed by
// the single-field phrases.
var overrides = []override{
	{"both_empty", func(d string) bool { return both(d, "empty") }, func(p *Pair) { p.Username, p.Password = "", "" }},
	{"both_incorrect", func(d string) bool { return both(d, "incorrect") }, func(p *Pair) { p.Username, p.Password = WrongUsername, WrongPassword }},
	{"empty_username", func(d string) bool { return strings.Contains(d, "empty username") }, func(p *Pair) { p.Username = "" }},
	{"empty_password", func(d string) bool { return strings.Contains(d, "empty password") }, func(p *Pair) { p.Password = "" }},
	{"incorrect_username", func(d string) bool { return strings.Contains(d, "incorrect username") }, func(p *Pair) { p.Username = WrongUsername }},
	{"incorrect_password", func(d string) bool { return strings.Contains(d, "incorrect password") }, func(p *Pair) { p.Password = WrongPassword }},
}

func applyOverrides(p *Pair, description string) {
	desc := strings.ToLower(description)
	for _, o := range overrides {
		if o.match(desc) {
			o.apply(p)
			p.Overrides = append(p.Overrides, o.name)
		}
	}
}
