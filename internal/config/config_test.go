package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func validConfig() Config {
	return Config{
		AuthURL:        "http://localhost:8080",
		FinanceURL:     "http://localhost:8081",
		RequestTimeout: 10 * time.Second,
		SessionDB:      "budgetbuddy.db",
		Locale:         "en",
		LogLevel:       "info",
		Port:           "8090",
	}
}

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, validConfig(), *cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"BUDGETBUDDY_AUTH_URL":        "https://auth.example.com",
		"BUDGETBUDDY_FINANCE_URL":     "https://finance.example.com:9443",
		"BUDGETBUDDY_REQUEST_TIMEOUT": "3s",
		"BUDGETBUDDY_SESSION_DB":      "/tmp/bb.db",
		"BUDGETBUDDY_SESSION_KEY":     strings.Repeat("0f", 32),
		"BUDGETBUDDY_LOCALE":          "ru",
		"BUDGETBUDDY_LOG_LEVEL":       "debug",
		"PORT":                        "9000",
	})
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "https://auth.example.com", cfg.AuthURL)
	assert.Equal(t, "https://finance.example.com:9443", cfg.FinanceURL)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
	assert.Equal(t, slog.LevelDebug, cfg.Level())

	base, _ := cfg.Localizer().Tag().Base()
	ru, _ := language.Russian.Base()
	assert.Equal(t, ru, base)

	sealer, err := cfg.Sealer()
	require.NoError(t, err)
	assert.NotNil(t, sealer)
}

func TestLoadFrom_BadDuration(t *testing.T) {
	_, err := LoadFrom(map[string]string{"BUDGETBUDDY_REQUEST_TIMEOUT": "soon"})
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		errorString string
	}{
		{
			name:        "auth URL without scheme",
			mutate:      func(c *Config) { c.AuthURL = "localhost:8080" },
			errorString: "invalid auth URL 'localhost:8080'",
		},
		{
			name:        "finance URL without host",
			mutate:      func(c *Config) { c.FinanceURL = "http://" },
			errorString: "invalid finance URL 'http://': host is required",
		},
		{
			name:        "timeout too short",
			mutate:      func(c *Config) { c.RequestTimeout = 10 * time.Millisecond },
			errorString: "invalid request timeout 10ms",
		},
		{
			name:        "timeout too long",
			mutate:      func(c *Config) { c.RequestTimeout = time.Hour },
			errorString: "invalid request timeout 1h0m0s",
		},
		{
			name:        "empty session db",
			mutate:      func(c *Config) { c.SessionDB = " " },
			errorString: "session database path cannot be empty",
		},
		{
			name:        "short session key",
			mutate:      func(c *Config) { c.SessionKey = "abcd" },
			errorString: "invalid session key",
		},
		{
			name:        "unsupported locale",
			mutate:      func(c *Config) { c.Locale = "de" },
			errorString: "invalid locale 'de'",
		},
		{
			name:        "unknown log level",
			mutate:      func(c *Config) { c.LogLevel = "loud" },
			errorString: `unknown log level "loud"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorString)

			err = cfg.ValidateServer()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorString)
		})
	}
}

func TestConfig_ValidateServerChecksPort(t *testing.T) {
	tests := map[string]string{
		"abc":   "invalid port 'abc': must be a number",
		"70000": "invalid port 70000: must be between 1 and 65535",
		"0":     "invalid port 0",
	}

	for port, want := range tests {
		cfg := validConfig()
		cfg.Port = port

		assert.NoError(t, cfg.Validate(), "client config ignores port %q", port)

		err := cfg.ValidateServer()
		require.Error(t, err, "port %q", port)
		assert.Contains(t, err.Error(), want)
	}

	cfg := validConfig()
	assert.NoError(t, cfg.ValidateServer())
}

func TestConfig_ValidateCollectsEveryProblem(t *testing.T) {
	cfg := validConfig()
	cfg.Port = "0"
	cfg.LogLevel = "loud"
	cfg.AuthURL = "ftp://x"

	err := cfg.ValidateServer()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid port 0")
	assert.Contains(t, err.Error(), "unknown log level")
	assert.Contains(t, err.Error(), "scheme must be http or https")
}

func TestConfig_SealerDisabledWithoutKey(t *testing.T) {
	cfg := validConfig()
	sealer, err := cfg.Sealer()
	require.NoError(t, err)
	assert.Nil(t, sealer)
}
