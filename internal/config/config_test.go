package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvOverrides(t *testing.T) {
	t.Run("credentials override config values", func(t *testing.T) {
		t.Setenv("TENANT_ID", "tenant-from-env")
		t.Setenv("CLIENT_ID", "client-from-env")
		t.Setenv("CLIENT_SECRET", "secret-from-env")

		cfg := DefaultConfig()
		cfg.Graph.TenantID = "tenant-from-file"
		cfg.applyEnvOverrides()

		assert.Equal(t, "tenant-from-env", cfg.Graph.TenantID)
		assert.Equal(t, "client-from-env", cfg.Graph.ClientID)
		assert.Equal(t, "secret-from-env", cfg.Graph.ClientSecret)
	})

	t.Run("empty env vars do not clobber", func(t *testing.T) {
		t.Setenv("TENANT_ID", "")

		cfg := DefaultConfig()
		cfg.Graph.TenantID = "tenant-from-file"
		cfg.applyEnvOverrides()

		assert.Equal(t, "tenant-from-file", cfg.Graph.TenantID)
	})

	t.Run("INACTIVE_DAYS must be a positive integer", func(t *testing.T) {
		t.Setenv("INACTIVE_DAYS", "not-a-number")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		assert.Equal(t, 90, cfg.Dashboard.InactiveDays)

		t.Setenv("INACTIVE_DAYS", "30")
		cfg.applyEnvOverrides()
		assert.Equal(t, 30, cfg.Dashboard.InactiveDays)
	})

	t.Run("M365AUDIT_DEBUG accepts 1 and true", func(t *testing.T) {
		for _, v := range []string{"1", "true"} {
			t.Setenv("M365AUDIT_DEBUG", v)
			cfg := DefaultConfig()
			cfg.applyEnvOverrides()
			assert.True(t, cfg.Logging.Debug, "value %q", v)
		}
	})
}

func TestLoad(t *testing.T) {
	t.Run("missing file falls back to defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.NoError(t, err)

		assert.Equal(t, "https://graph.microsoft.com/v1.0", cfg.Graph.BaseURL)
		assert.Equal(t, 999, cfg.Collection.PageSize)
		assert.Equal(t, "data/m365_costs.db", cfg.Storage.DatabasePath)
	})

	t.Run("yaml values override defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		body := "storage:\n  database_path: /tmp/audit.db\ncollection:\n  batch_size: 25\n"
		require.NoError(t, os.WriteFile(path, []byte(body), 0600))

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "/tmp/audit.db", cfg.Storage.DatabasePath)
		assert.Equal(t, 25, cfg.Collection.BatchSize)
		// Untouched sections keep their defaults.
		assert.Equal(t, 999, cfg.Collection.PageSize)
	})

	t.Run("malformed yaml is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("graph: ["), 0600))

		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Storage.DatabasePath = "/srv/m365/costs.db"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/m365/costs.db", loaded.Storage.DatabasePath)
}

func TestGraphTimeout(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 60*time.Second, cfg.GraphTimeout())

	cfg.Graph.Timeout = "15s"
	assert.Equal(t, 15*time.Second, cfg.GraphTimeout())

	cfg.Graph.Timeout = "garbage"
	assert.Equal(t, 60*time.Second, cfg.GraphTimeout())
}

func TestValidateCredentials(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.ValidateCredentials())

	cfg.Graph.TenantID = "t"
	cfg.Graph.ClientID = "c"
	cfg.Graph.ClientSecret = "s"
	assert.NoError(t, cfg.ValidateCredentials())
}

func TestStateDir(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "data", cfg.StateDir())
}
