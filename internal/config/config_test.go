package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Contains(t, cfg.Calculator.URL, "profitabilitycalculator")
	assert.Equal(t, 3, cfg.Calculator.MarginColumn)
	assert.Equal(t, 3, cfg.Calculator.RetryAttempts)
	assert.Equal(t, 2*time.Second, cfg.Calculator.RetryDelay)
	assert.Equal(t, 5, cfg.Calculator.MaxAlternates)

	assert.Equal(t, "ASINs", cfg.Sheets.Worksheet)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, "memory", cfg.Queue.Type)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.NotEmpty(t, cfg.Search.UserAgents)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CALCULATOR_MARGIN_COLUMN", "7")
	t.Setenv("CALCULATOR_RETRY_DELAY", "500ms")
	t.Setenv("BROWSER_HEADLESS", "false")
	t.Setenv("QUEUE_TYPE", "redis")
	t.Setenv("SEARCH_USER_AGENTS", "agent-one,agent-two")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Calculator.MarginColumn)
	assert.Equal(t, 500*time.Millisecond, cfg.Calculator.RetryDelay)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, "redis", cfg.Queue.Type)
	assert.Equal(t, []string{"agent-one", "agent-two"}, cfg.Search.UserAgents)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("CALCULATOR_MARGIN_COLUMN", "three")
	t.Setenv("CALCULATOR_RETRY_DELAY", "soon")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Calculator.MarginColumn)
	assert.Equal(t, 2*time.Second, cfg.Calculator.RetryDelay)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:    "margin column below one",
			mutate:  func(c *Config) { c.Calculator.MarginColumn = 0 },
			wantErr: "CALCULATOR_MARGIN_COLUMN",
		},
		{
			name:    "retry attempts below one",
			mutate:  func(c *Config) { c.Calculator.RetryAttempts = 0 },
			wantErr: "CALCULATOR_RETRY_ATTEMPTS",
		},
		{
			name:    "max alternates below one",
			mutate:  func(c *Config) { c.Calculator.MaxAlternates = -1 },
			wantErr: "CALCULATOR_MAX_ALTERNATES",
		},
		{
			name: "delay range inverted",
			mutate: func(c *Config) {
				c.Search.DelayMin = 10 * time.Second
				c.Search.DelayMax = 1 * time.Second
			},
			wantErr: "SEARCH_DELAY_MIN",
		},
		{
			name:    "unknown queue type",
			mutate:  func(c *Config) { c.Queue.Type = "kafka" },
			wantErr: "QUEUE_TYPE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)
			tt.mutate(cfg)

			err = cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
