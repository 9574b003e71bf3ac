package config

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManagerCreatesDefaults(t *testing.T) {
	fs := afero.NewMemMapFs()

	manager, err := NewManager(fs, "/data/reeltrack.toml", "/data")
	require.NoError(t, err)

	settings, err := manager.Load()
	require.NoError(t, err)
	assert.Equal(t, 8480, settings.Server.Port)
	assert.Equal(t, "sqlite", settings.Database.Backend)
	assert.Equal(t, "/data/reeltrack.db", settings.Database.SQLitePath)
	assert.NotEmpty(t, settings.Auth.Secret, "auth secret is generated on first run")
	assert.True(t, settings.Auth.AllowSignup)

	exists, err := afero.Exists(fs, "/data/reeltrack.toml")
	require.NoError(t, err)
	assert.True(t, exists, "settings file should be written on first run")
}

func TestManagerReadsExistingFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	content := []byte(`
[server]
host = "127.0.0.1"
port = 9000

[database]
backend = "mongo"
mongo_uri = "mongodb://localhost:27017"
mongo_database = "media"

[auth]
secret = "fixed-secret"
token_hours = 12
`)
	require.NoError(t, afero.WriteFile(fs, "/data/reeltrack.toml", content, 0600))

	manager, err := NewManager(fs, "/data/reeltrack.toml", "/data")
	require.NoError(t, err)

	settings, err := manager.Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", settings.Server.Host)
	assert.Equal(t, 9000, settings.Server.Port)
	assert.Equal(t, "mongo", settings.Database.Backend)
	assert.Equal(t, "mongodb://localhost:27017", settings.Database.MongoURI)
	assert.Equal(t, "fixed-secret", settings.Auth.Secret)
	assert.Equal(t, 12, settings.Auth.TokenHours)
}

func TestSaveRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()

	manager, err := NewManager(fs, "/data/reeltrack.toml", "/data")
	require.NoError(t, err)

	settings, err := manager.Load()
	require.NoError(t, err)
	settings.Catalog.APIKey = "new-key"
	require.NoError(t, manager.Save(settings))

	// Re-read from disk through a fresh manager to bypass the cache.
	fresh, err := NewManager(fs, "/data/reeltrack.toml", "/data")
	require.NoError(t, err)
	reloaded, err := fresh.Load()
	require.NoError(t, err)
	assert.Equal(t, "new-key", reloaded.Catalog.APIKey)
}

func TestLoadReturnsCopies(t *testing.T) {
	fs := afero.NewMemMapFs()

	manager, err := NewManager(fs, "/data/reeltrack.toml", "/data")
	require.NoError(t, err)

	first, err := manager.Load()
	require.NoError(t, err)
	first.Server.Port = 1

	second, err := manager.Load()
	require.NoError(t, err)
	assert.Equal(t, 8480, second.Server.Port, "callers must not share the cached settings")
}
