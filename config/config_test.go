package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv(PassphraseEnv, "")
	path := writeConfig(t, `
backend:
  base_url: http://backend.local
crypto:
  passphrase: secret
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "X-User-ID", cfg.Server.UserHeader)
	assert.Equal(t, 5*time.Minute, cfg.Server.CacheTTL)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 15*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, 10*time.Minute, cfg.Backend.CacheTTL)
	assert.Equal(t, 12, cfg.Crypto.WorkFactor)
	assert.Equal(t, 1, cfg.WorkerPool.Size)
	assert.Equal(t, "Europe/Kyiv", cfg.Forms.Timezone)
	assert.Equal(t, "/", cfg.Forms.LandingURL)
	assert.Equal(t, 30*time.Minute, cfg.Forms.SessionTTL)
	assert.Equal(t, "Europe/Kyiv", cfg.Location().String())
}

func TestLoadPassphraseFromEnv(t *testing.T) {
	t.Setenv(PassphraseEnv, "from-env")
	path := writeConfig(t, `
backend:
  base_url: http://backend.local
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Crypto.Passphrase)
}

func TestLoadRejectsIncompleteConfig(t *testing.T) {
	t.Setenv(PassphraseEnv, "")
	testCases := map[string]string{
		"missing backend":    "crypto:\n  passphrase: x\n",
		"missing passphrase": "backend:\n  base_url: http://b\n",
		"bad timezone":       "backend:\n  base_url: http://b\ncrypto:\n  passphrase: x\nforms:\n  timezone: Mars/Olympus\n",
	}
	for name, body := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
