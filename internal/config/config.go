// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	json "github.com/json-iterator/go"
	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// Components take the narrow section they need; the interface exists so
// commands and tests can hand over a fully built configuration.
type Interface interface {
	Logger() LoggerConfig
	Browser() BrowserConfig
	API() APIConfig
	Credentials() CredentialsConfig
	Server() ServerConfig
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg      LoggerConfig      `mapstructure:"logger" yaml:"logger"`
	BrowserCfg     BrowserConfig     `mapstructure:"browser" yaml:"browser"`
	APICfg         APIConfig         `mapstructure:"api" yaml:"api"`
	CredentialsCfg CredentialsConfig `mapstructure:"credentials" yaml:"credentials"`
	ServerCfg      ServerConfig      `mapstructure:"server" yaml:"server"`
}

var _ Interface = (*Config)(nil)

func (c *Config) Logger() LoggerConfig           { return c.LoggerCfg }
func (c *Config) Browser() BrowserConfig         { return c.BrowserCfg }
func (c *Config) API() APIConfig                 { return c.APICfg }
func (c *Config) Credentials() CredentialsConfig { return c.CredentialsCfg }
func (c *Config) Server() ServerConfig           { return c.ServerCfg }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds settings for the browser session that runs UI cases.
type BrowserConfig struct {
	Headless        bool          `mapstructure:"headless" yaml:"headless"`
	WindowSize      string        `mapstructure:"window_size" yaml:"window_size"`
	PageLoadTimeout time.Duration `mapstructure:"page_load_timeout" yaml:"page_load_timeout"`
	ElementTimeout  time.Duration `mapstructure:"element_timeout" yaml:"element_timeout"`
	SettleTimeout   time.Duration `mapstructure:"settle_timeout" yaml:"settle_timeout"`
	ExecPath        string        `mapstructure:"exec_path" yaml:"exec_path"`
	IgnoreTLSErrors bool          `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	Args            []string      `mapstructure:"args" yaml:"args"`
}

// Window parses WindowSize ("width,height").
func (b BrowserConfig) Window() (width, height int, err error) {
	parts := strings.Split(strings.ReplaceAll(b.WindowSize, "x", ","), ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("window size %q must be WIDTH,HEIGHT", b.WindowSize)
	}
	width, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("window width: %w", err)
	}
	height, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("window height: %w", err)
	}
	if width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("window size %q must be positive", b.WindowSize)
	}
	return width, height, nil
}

// APIConfig tunes the HTTP client that runs API cases.
type APIConfig struct {
	Timeout         time.Duration `mapstructure:"timeout" yaml:"timeout"`
	FollowRedirects bool          `mapstructure:"follow_redirects" yaml:"follow_redirects"`
	RateLimit       float64       `mapstructure:"rate_limit" yaml:"rate_limit"`
	Burst           int           `mapstructure:"burst" yaml:"burst"`
	IgnoreTLSErrors bool          `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
}

// CredentialsConfig carries the process-wide login material.
type CredentialsConfig struct {
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"-"`
	// DomainMap is a JSON object keyed by host: {"host": {"username": "", "password": ""}}.
	DomainMap string `mapstructure:"domain_map" yaml:"-"`
}

// DomainPair is one entry of the decoded DomainMap.
type DomainPair struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Domains decodes DomainMap. An empty map string yields an empty map.
func (c CredentialsConfig) Domains() (map[string]DomainPair, error) {
	out := map[string]DomainPair{}
	if strings.TrimSpace(c.DomainMap) == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(c.DomainMap), &out); err != nil {
		return nil, fmt.Errorf("credentials.domain_map is not a JSON object of credential pairs: %w", err)
	}
	return out, nil
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	ListenAddr     string        `mapstructure:"listen_addr" yaml:"listen_addr"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "casepilot")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.window_size", "1366,900")
	v.SetDefault("browser.page_load_timeout", "30s")
	v.SetDefault("browser.element_timeout", "10s")
	v.SetDefault("browser.settle_timeout", "5s")
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.args", []string{})

	// -- API --
	v.SetDefault("api.timeout", "20s")
	v.SetDefault("api.follow_redirects", true)
	v.SetDefault("api.rate_limit", 0.0)
	v.SetDefault("api.burst", 1)
	v.SetDefault("api.ignore_tls_errors", false)

	// -- Credentials --
	v.SetDefault("credentials.username", "")
	v.SetDefault("credentials.password", "")
	v.SetDefault("credentials.domain_map", "")

	// -- Server --
	v.SetDefault("server.listen_addr", ":8080")
	v.SetDefault("server.request_timeout", "10m")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Credentials are usually injected through the environment.
	v.BindEnv("credentials.username", "TEST_USERNAME")
	v.BindEnv("credentials.password", "TEST_PASSWORD")
	v.BindEnv("credentials.domain_map", "TEST_CREDENTIALS_JSON")
	v.BindEnv("browser.window_size", "SELENIUM_WINDOW_SIZE")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := applyLegacyEnv(&cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// applyLegacyEnv honors the variable names older deployments export. They use
// plain seconds and loose booleans, so they are parsed by hand rather than
// through viper's duration decoding.
func applyLegacyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if raw, ok := lookup("SELENIUM_HEADLESS"); ok {
		switch strings.TrimSpace(raw) {
		case "0", "false", "False", "FALSE":
			cfg.BrowserCfg.Headless = false
		default:
			cfg.BrowserCfg.Headless = true
		}
	}
	if raw, ok := lookup("SELENIUM_PAGELOAD_TIMEOUT"); ok {
		d, err := parseSeconds(raw)
		if err != nil {
			return fmt.Errorf("SELENIUM_PAGELOAD_TIMEOUT: %w", err)
		}
		cfg.BrowserCfg.PageLoadTimeout = d
	}
	if raw, ok := lookup("API_TEST_TIMEOUT"); ok {
		d, err := parseSeconds(raw)
		if err != nil {
			return fmt.Errorf("API_TEST_TIMEOUT: %w", err)
		}
		cfg.APICfg.Timeout = d
	}
	return nil
}

// parseSeconds accepts either a bare number of seconds or a Go duration string.
func parseSeconds(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(raw)
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if _, _, err := c.BrowserCfg.Window(); err != nil {
		return fmt.Errorf("browser.window_size: %w", err)
	}
	if c.BrowserCfg.PageLoadTimeout <= 0 {
		return fmt.Errorf("browser.page_load_timeout must be a positive duration")
	}
	if c.BrowserCfg.ElementTimeout <= 0 {
		return fmt.Errorf("browser.element_timeout must be a positive duration")
	}
	if c.BrowserCfg.SettleTimeout < 0 {
		return fmt.Errorf("browser.settle_timeout must not be negative")
	}
	if c.APICfg.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be a positive duration")
	}
	if c.APICfg.RateLimit < 0 {
		return fmt.Errorf("api.rate_limit must not be negative")
	}
	if c.APICfg.RateLimit > 0 && c.APICfg.Burst <= 0 {
		return fmt.Errorf("api.burst must be a positive integer when rate limiting is enabled")
	}
	if _, err := c.CredentialsCfg.Domains(); err != nil {
		return err
	}
	if c.ServerCfg.RequestTimeout <= 0 {
		return fmt.Errorf("server.request_timeout must be a positive duration")
	}
	return nil
}
