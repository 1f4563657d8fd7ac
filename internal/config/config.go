// Package config reads client configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"golang.org/x/text/language"

	"budgetbuddy/internal/i18n"
	"budgetbuddy/internal/log"
	"budgetbuddy/internal/storage"
)

const (
	MinRequestTimeout = time.Second
	MaxRequestTimeout = 2 * time.Minute
)

// Config holds all configuration for the client.
type Config struct {
	AuthURL        string        `env:"BUDGETBUDDY_AUTH_URL"        envDefault:"http://localhost:8080"`
	FinanceURL     string        `env:"BUDGETBUDDY_FINANCE_URL"     envDefault:"http://localhost:8081"`
	RequestTimeout time.Duration `env:"BUDGETBUDDY_REQUEST_TIMEOUT" envDefault:"10s"`
	SessionDB      string        `env:"BUDGETBUDDY_SESSION_DB"      envDefault:"budgetbuddy.db"`
	SessionKey     string        `env:"BUDGETBUDDY_SESSION_KEY"`
	Locale         string        `env:"BUDGETBUDDY_LOCALE"          envDefault:"en"`
	LogLevel       string        `env:"BUDGETBUDDY_LOG_LEVEL"       envDefault:"info"`
	Port           string        `env:"PORT"                        envDefault:"8090"`
}

// Load reads a .env file when one exists, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// LoadFrom reads configuration from environ instead of the process environment.
func LoadFrom(environ map[string]string) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// Validate reports every invalid client setting at once. PORT is left to
// ValidateServer.
func (c *Config) Validate() error {
	return report(c.clientProblems())
}

// ValidateServer reports every invalid client setting plus the listen port.
func (c *Config) ValidateServer() error {
	problems := c.clientProblems()
	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}
	return report(problems)
}

func report(problems []string) error {
	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

func (c *Config) clientProblems() []string {
	var problems []string

	if msg := checkURL(c.AuthURL); msg != "" {
		problems = append(problems, fmt.Sprintf("invalid auth URL '%s': %s", c.AuthURL, msg))
	}
	if msg := checkURL(c.FinanceURL); msg != "" {
		problems = append(problems, fmt.Sprintf("invalid finance URL '%s': %s", c.FinanceURL, msg))
	}

	if c.RequestTimeout < MinRequestTimeout || c.RequestTimeout > MaxRequestTimeout {
		problems = append(problems, fmt.Sprintf("invalid request timeout %v: must be between %v and %v",
			c.RequestTimeout, MinRequestTimeout, MaxRequestTimeout))
	}

	if strings.TrimSpace(c.SessionDB) == "" {
		problems = append(problems, "session database path cannot be empty")
	}

	if c.SessionKey != "" {
		if _, err := storage.ParseKey(c.SessionKey); err != nil {
			problems = append(problems, fmt.Sprintf("invalid session key: %v", err))
		}
	}

	if !supportedLocale(c.Locale) {
		problems = append(problems, fmt.Sprintf("invalid locale '%s': must be one of %v", c.Locale, i18n.Supported()))
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, err.Error())
	}

	return problems
}

// Level returns the configured log level, defaulting to info.
func (c *Config) Level() slog.Level {
	level, _ := log.ParseLevel(c.LogLevel)
	return level
}

// Localizer returns a localizer for the configured locale.
func (c *Config) Localizer() *i18n.Localizer {
	return i18n.New(i18n.Parse(c.Locale))
}

// Sealer returns the token sealer, or nil when no key is configured.
func (c *Config) Sealer() (*storage.Sealer, error) {
	if c.SessionKey == "" {
		return nil, nil
	}
	key, err := storage.ParseKey(c.SessionKey)
	if err != nil {
		return nil, err
	}
	return storage.NewSealer(key)
}

func supportedLocale(locale string) bool {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		return false
	}
	base, _ := tag.Base()
	for _, supported := range i18n.Supported() {
		if b, _ := supported.Base(); b == base {
			return true
		}
	}
	return false
}

func checkURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return err.Error()
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "scheme must be http or https"
	}
	if u.Host == "" {
		return "host is required"
	}
	return ""
}
