package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig(t *testing.T) {
	t.Run("Load default config when no config file is present", func(t *testing.T) {
		os.Setenv("LEDGER_BASEURL", "https://api.ledger.example.com")
		os.Setenv("LEDGER_APITOKEN", "test-token")
		defer os.Unsetenv("LEDGER_BASEURL")
		defer os.Unsetenv("LEDGER_APITOKEN")

		cfg, err := LoadConfig(".")
		assert.NoError(t, err)
		assert.NotNil(t, cfg)

		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
		assert.Equal(t, 15*time.Second, cfg.Server.WriteTimeout)
		assert.Equal(t, 60*time.Second, cfg.Server.IdleTimeout)

		assert.Equal(t, 100, cfg.Ledger.PageSize)
		assert.Equal(t, 50000, cfg.Ledger.MaxAccounts)
		assert.Equal(t, 50*time.Millisecond, cfg.Ledger.PacingInterval)
		assert.True(t, cfg.Ledger.TransactionLookupEnabled)

		assert.True(t, cfg.Enrichment.Enabled)
		assert.Equal(t, 5*time.Second, cfg.Enrichment.RequestTimeout)
		assert.Equal(t, 2*time.Minute, cfg.Enrichment.StageTimeout)
		assert.Equal(t, 25, cfg.Enrichment.FailureBudget)

		assert.Equal(t, "0 7 * * *", cfg.Batch.ScanSchedule)
		assert.Equal(t, time.Hour, cfg.Batch.ScanTimeout)

		assert.Equal(t, "info", cfg.Logger.Level)
		assert.Equal(t, "json", cfg.Logger.Encoding)
		assert.Equal(t, "/metrics", cfg.Metrics.Path)
	})
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Ledger: LedgerConfig{
				BaseURL:  "https://api.ledger.example.com",
				APIToken: "token",
				PageSize: 100,
			},
			Enrichment: EnrichmentConfig{
				Enabled:    true,
				MappingURL: "https://static.example.com/employers.json",
			},
			Server: ServerConfig{
				Auth: AuthConfig{Enabled: true, Token: "secret"},
			},
		}
	}

	t.Run("Valid config passes", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("Missing ledger base URL fails", func(t *testing.T) {
		cfg := valid()
		cfg.Ledger.BaseURL = ""
		assert.ErrorContains(t, cfg.Validate(), "ledger base URL")
	})

	t.Run("Missing ledger API token fails", func(t *testing.T) {
		cfg := valid()
		cfg.Ledger.APIToken = ""
		assert.ErrorContains(t, cfg.Validate(), "ledger API token")
	})

	t.Run("Missing mapping URL fails only when enrichment enabled", func(t *testing.T) {
		cfg := valid()
		cfg.Enrichment.MappingURL = ""
		assert.Error(t, cfg.Validate())

		cfg.Enrichment.Enabled = false
		assert.NoError(t, cfg.Validate())
	})

	t.Run("Missing auth token fails only when auth enabled", func(t *testing.T) {
		cfg := valid()
		cfg.Server.Auth.Token = ""
		assert.Error(t, cfg.Validate())

		cfg.Server.Auth.Enabled = false
		assert.NoError(t, cfg.Validate())
	})
}
