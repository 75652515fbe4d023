// ABOUTME: Client configuration loaded from YAML, .env and environment variables
// ABOUTME: Environment beats .env, which beats the YAML file, which beats defaults

// Package config loads settings for the BlinkPay client.
//
// Environment Variables:
//   - BLINKPAY_DEBIT_URL: Debit API base URL (required)
//   - BLINKPAY_TOKEN_URL: token endpoint (default: debit URL + /oauth2/token)
//   - BLINKPAY_CLIENT_ID, BLINKPAY_CLIENT_SECRET: client credentials
//   - BLINKPAY_REQUEST_TIMEOUT: per-attempt timeout (default: 10s)
//   - BLINKPAY_RETRY_ENABLED: retry transient failures (default: true)
//   - BLINKPAY_RETRY_MAX_ATTEMPTS: attempts per call (default: 3)
//   - BLINKPAY_RATE_LIMIT_RPS, BLINKPAY_RATE_LIMIT_BURST: client-side rate limit (0 = off)
//   - BLINKPAY_CIRCUIT_BREAKER_ENABLED: trip after repeated failures (default: false)
//   - BLINKPAY_FAKE_TOKEN: skip the token endpoint and use this bearer value
//   - LOG_LEVEL: debug, info, warn or error (default: info)
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/harper/blinkpay-mcp/pkg/logging"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults
const (
	DefaultTimeout            = 10 * time.Second
	DefaultMaxAttempts        = 3
	DefaultBreakerMaxFailures = 5
	DefaultBreakerOpenTimeout = 30 * time.Second
	tokenPath                 = "/oauth2/token"
)

// Config holds everything needed to build a client
type Config struct {
	DebitURL     string        `yaml:"debit_url"`
	TokenURL     string        `yaml:"token_url"`
	ClientID     string        `yaml:"client_id"`
	ClientSecret string        `yaml:"client_secret"`
	Timeout      time.Duration `yaml:"timeout"`
	LogLevel     string        `yaml:"log_level"`

	// FakeToken, when set, replaces the client-credentials exchange
	FakeToken string `yaml:"fake_token"`

	Retry          RetryConfig          `yaml:"retry"`
	RateLimit      RateLimitConfig      `yaml:"rate_limit"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// RetryConfig controls the retry policy
type RetryConfig struct {
	Enabled     bool `yaml:"enabled"`
	MaxAttempts int  `yaml:"max_attempts"`
}

// RateLimitConfig controls client-side throttling. Zero RequestsPerSecond
// disables it.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// CircuitBreakerConfig controls the breaker in front of the Debit API
type CircuitBreakerConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxFailures uint32        `yaml:"max_failures"`
	OpenTimeout time.Duration `yaml:"open_timeout"`
}

// Default returns a Config with every default applied
func Default() *Config {
	return &Config{
		Timeout:  DefaultTimeout,
		LogLevel: "info",
		Retry: RetryConfig{
			Enabled:     true,
			MaxAttempts: DefaultMaxAttempts,
		},
		RateLimit: RateLimitConfig{
			Burst: 1,
		},
		CircuitBreaker: CircuitBreakerConfig{
			MaxFailures: DefaultBreakerMaxFailures,
			OpenTimeout: DefaultBreakerOpenTimeout,
		},
	}
}

// Load builds a Config from defaults, the YAML file at path, a .env file in
// the working directory and the environment, in increasing precedence.
//
// An empty path uses DefaultConfigPath and tolerates the file being absent; an
// explicit path must exist. Load does not validate; call Validate.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
	}
	if err := cfg.loadFile(path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		logging.GetGlobalLogger().Debug("No config file, using environment only",
			logging.String("path", path))
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile overlays the YAML file at path onto c. ${VAR} references are
// expanded before parsing.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := ExpandEnvVars(string(data))
	if err := yaml.Unmarshal([]byte(expanded), c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.DebitURL = getEnv("BLINKPAY_DEBIT_URL", c.DebitURL)
	c.TokenURL = getEnv("BLINKPAY_TOKEN_URL", c.TokenURL)
	c.ClientID = getEnv("BLINKPAY_CLIENT_ID", c.ClientID)
	c.ClientSecret = getEnv("BLINKPAY_CLIENT_SECRET", c.ClientSecret)
	c.FakeToken = getEnv("BLINKPAY_FAKE_TOKEN", c.FakeToken)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	var err error
	if c.Timeout, err = getDurationEnv("BLINKPAY_REQUEST_TIMEOUT", c.Timeout); err != nil {
		return err
	}
	if c.Retry.Enabled, err = getBoolEnv("BLINKPAY_RETRY_ENABLED", c.Retry.Enabled); err != nil {
		return err
	}
	if c.Retry.MaxAttempts, err = getIntEnv("BLINKPAY_RETRY_MAX_ATTEMPTS", c.Retry.MaxAttempts); err != nil {
		return err
	}
	if c.RateLimit.RequestsPerSecond, err = getFloatEnv("BLINKPAY_RATE_LIMIT_RPS", c.RateLimit.RequestsPerSecond); err != nil {
		return err
	}
	if c.RateLimit.Burst, err = getIntEnv("BLINKPAY_RATE_LIMIT_BURST", c.RateLimit.Burst); err != nil {
		return err
	}
	if c.CircuitBreaker.Enabled, err = getBoolEnv("BLINKPAY_CIRCUIT_BREAKER_ENABLED", c.CircuitBreaker.Enabled); err != nil {
		return err
	}
	return nil
}

// ResolvedTokenURL returns TokenURL, or the token endpoint under DebitURL
func (c *Config) ResolvedTokenURL() string {
	if c.TokenURL != "" {
		return c.TokenURL
	}
	return strings.TrimRight(c.DebitURL, "/") + tokenPath
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.DebitURL == "" {
		return fmt.Errorf("debit_url is required (set BLINKPAY_DEBIT_URL)")
	}
	if err := validateURL("debit_url", c.DebitURL); err != nil {
		return err
	}
	if c.TokenURL != "" {
		if err := validateURL("token_url", c.TokenURL); err != nil {
			return err
		}
	}

	if c.FakeToken == "" {
		if c.ClientID == "" {
			return fmt.Errorf("client_id is required (set BLINKPAY_CLIENT_ID)")
		}
		if c.ClientSecret == "" {
			return fmt.Errorf("client_secret is required (set BLINKPAY_CLIENT_SECRET)")
		}
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	if c.RateLimit.RequestsPerSecond < 0 {
		return fmt.Errorf("rate_limit.requests_per_second must not be negative")
	}
	if c.RateLimit.RequestsPerSecond > 0 && c.RateLimit.Burst < 1 {
		return fmt.Errorf("rate_limit.burst must be at least 1 when rate limiting is on")
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn or error, got %q", c.LogLevel)
	}
	return nil
}

func validateURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got %q", name, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%s has no host: %q", name, raw)
	}
	return nil
}

// getEnv gets an environment variable with a fallback
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fallback, fmt.Errorf("%s: invalid boolean %q", key, value)
	}
	return b, nil
}

func getIntEnv(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback, fmt.Errorf("%s: invalid integer %q", key, value)
	}
	return n, nil
}

func getFloatEnv(key string, fallback float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback, fmt.Errorf("%s: invalid number %q", key, value)
	}
	return f, nil
}

func getDurationEnv(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback, fmt.Errorf("%s: invalid duration %q", key, value)
	}
	return d, nil
}

const configTemplate = `# blinkpay-mcp configuration
# Values may reference environment variables as ${VAR} or ${VAR:-default}.
debit_url: ${BLINKPAY_DEBIT_URL:-https://sandbox.debit.blinkpay.co.nz}
client_id: ${BLINKPAY_CLIENT_ID}
client_secret: ${BLINKPAY_CLIENT_SECRET}
timeout: 10s
log_level: info

retry:
  enabled: true
  max_attempts: 3

rate_limit:
  requests_per_second: 0
  burst: 1

circuit_breaker:
  enabled: false
  max_failures: 5
  open_timeout: 30s
`

// WriteTemplate writes a starter config file to path. An existing file is
// left alone and reported as an error.
func WriteTemplate(path string) error {
	if err := EnsureParentDir(path); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(configTemplate); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
