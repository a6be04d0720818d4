package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("Valid Config", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.yaml")

		configContent := `
server:
  port: 9090
  base_domain: "climabill.io"

database:
  host: "db.internal"
  port: 5433
  user: "climabill"
  password: "secret"
  dbname: "carbon"
  sslmode: "require"

cache:
  sweep_interval: 30s
  ttl:
    estimate: 90s
    usage: 10m

cloverly:
  api_key: "clv_test"
  timeout: 5s
`
		err := os.WriteFile(configPath, []byte(configContent), 0644)
		require.NoError(t, err)

		cfg, err := Load(tmpDir)
		require.NoError(t, err)

		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, "climabill.io", cfg.Server.BaseDomain)
		assert.Equal(t, "db.internal", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, "carbon", cfg.Database.DBName)
		assert.Equal(t, "require", cfg.Database.SSLMode)
		assert.Equal(t, 30*time.Second, cfg.Cache.SweepInterval)
		assert.Equal(t, 90*time.Second, cfg.Cache.TTL["estimate"])
		assert.Equal(t, 10*time.Minute, cfg.Cache.TTL["usage"])
		assert.Equal(t, 5*time.Minute, cfg.Cache.TTL["offset"], "unset TTLs keep defaults")
		assert.Equal(t, "clv_test", cfg.Cloverly.APIKey)
		assert.Equal(t, 5*time.Second, cfg.Cloverly.Timeout)
	})

	t.Run("Defaults Without File", func(t *testing.T) {
		cfg, err := Load(t.TempDir())
		require.NoError(t, err)

		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, "localhost", cfg.Redis.Host)
		assert.Equal(t, 2*time.Minute, cfg.Cache.TTL["estimate"])
		assert.Equal(t, 10*time.Minute, cfg.Cache.TTL["projects"])
		assert.Equal(t, time.Minute, cfg.Cache.SweepInterval)
		assert.False(t, cfg.Cache.Distributed)
	})

	t.Run("Environment Override", func(t *testing.T) {
		t.Setenv("CLIMABILL_SERVER_PORT", "7070")
		t.Setenv("CLIMABILL_CACHE_DISTRIBUTED", "true")

		cfg, err := Load(t.TempDir())
		require.NoError(t, err)

		assert.Equal(t, 7070, cfg.Server.Port)
		assert.True(t, cfg.Cache.Distributed)
	})

	t.Run("Plain LOG_LEVEL", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "debug")

		cfg, err := Load(t.TempDir())
		require.NoError(t, err)
		assert.Equal(t, "debug", cfg.Log.Level)
	})
}

func TestLoadEmissionFactors(t *testing.T) {
	t.Run("Empty Path", func(t *testing.T) {
		factors, err := LoadEmissionFactors("")
		require.NoError(t, err)
		assert.Equal(t, DefaultEmissionFactors(), factors)
	})

	t.Run("Partial Override", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "factors.yaml")
		require.NoError(t, os.WriteFile(path, []byte("carbon_per_email: 0.01\n"), 0644))

		factors, err := LoadEmissionFactors(path)
		require.NoError(t, err)
		assert.Equal(t, 0.01, factors.CarbonPerEmail)
		assert.Equal(t, 0.2, factors.CarbonPerInvoice)
	})

	t.Run("Negative Factor", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "factors.yaml")
		require.NoError(t, os.WriteFile(path, []byte("carbon_per_invoice: -1\n"), 0644))

		_, err := LoadEmissionFactors(path)
		assert.Error(t, err)
	})

	t.Run("Missing File", func(t *testing.T) {
		_, err := LoadEmissionFactors(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}
