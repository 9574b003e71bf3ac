// Package config holds reeltrack's settings file handling.
package config

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"

	"reeltrack/utils"
)

// Settings is the full on-disk configuration.
type Settings struct {
	Server   ServerSettings   `toml:"server"`
	Database DatabaseSettings `toml:"database"`
	Catalog  CatalogSettings  `toml:"catalog"`
	Auth     AuthSettings     `toml:"auth"`
	Log      LogSettings      `toml:"log"`
}

// ServerSettings configures the HTTP listener.
type ServerSettings struct {
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	BaseURL string `toml:"base_url"`
	DataDir string `toml:"data_dir"`
}

// DatabaseSettings selects and configures the document store backend.
type DatabaseSettings struct {
	// Backend is "sqlite" or "mongo".
	Backend       string `toml:"backend"`
	SQLitePath    string `toml:"sqlite_path"`
	MongoURI      string `toml:"mongo_uri"`
	MongoDatabase string `toml:"mongo_database"`
}

// CatalogSettings configures the media catalog API client.
type CatalogSettings struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
}

// AuthSettings configures session tokens.
type AuthSettings struct {
	// Secret signs session tokens. Generated on first run.
	Secret        string `toml:"secret"`
	TokenHours    int    `toml:"token_hours"`
	CookieDays    int    `toml:"cookie_days"`
	AllowSignup   bool   `toml:"allow_signup"`
	SecureCookies bool   `toml:"secure_cookies"`
}

// LogSettings configures log file rotation.
type LogSettings struct {
	Path       string `toml:"path"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// DefaultSettings returns the settings written on first run. The auth
// secret is generated fresh per install.
func DefaultSettings(dataDir string) (Settings, error) {
	secret, err := utils.GenerateSecret()
	if err != nil {
		return Settings{}, err
	}

	return Settings{
		Server: ServerSettings{
			Host:    "0.0.0.0",
			Port:    8480,
			BaseURL: "http://localhost:8480",
			DataDir: dataDir,
		},
		Database: DatabaseSettings{
			Backend:       "sqlite",
			SQLitePath:    filepath.Join(dataDir, "reeltrack.db"),
			MongoDatabase: "reeltrack",
		},
		Catalog: CatalogSettings{},
		Auth: AuthSettings{
			Secret:      secret,
			TokenHours:  24,
			CookieDays:  30,
			AllowSignup: true,
		},
		Log: LogSettings{
			Path:       filepath.Join(dataDir, "reeltrack.log"),
			MaxSizeMB:  20,
			MaxBackups: 3,
			MaxAgeDays: 30,
		},
	}, nil
}

// Manager loads and saves the settings file.
type Manager struct {
	fs   afero.Fs
	path string

	mu       sync.RWMutex
	settings *Settings
}

// NewManager creates a manager for the settings file at path. When the file
// does not exist it is created with defaults.
func NewManager(fs afero.Fs, path, dataDir string) (*Manager, error) {
	m := &Manager{fs: fs, path: path}

	exists, err := afero.Exists(fs, path)
	if err != nil {
		return nil, fmt.Errorf("check settings file: %w", err)
	}

	if !exists {
		defaults, err := DefaultSettings(dataDir)
		if err != nil {
			return nil, err
		}
		if err := m.Save(&defaults); err != nil {
			return nil, err
		}
		return m, nil
	}

	if _, err := m.Load(); err != nil {
		return nil, err
	}
	return m, nil
}

// Load reads the settings file, returning a cached copy when the file has
// already been read.
func (m *Manager) Load() (*Settings, error) {
	m.mu.RLock()
	if m.settings != nil {
		cached := *m.settings
		m.mu.RUnlock()
		return &cached, nil
	}
	m.mu.RUnlock()

	raw, err := afero.ReadFile(m.fs, m.path)
	if err != nil {
		return nil, fmt.Errorf("read settings file: %w", err)
	}

	var settings Settings
	if err := toml.Unmarshal(raw, &settings); err != nil {
		return nil, fmt.Errorf("parse settings file: %w", err)
	}

	m.mu.Lock()
	m.settings = &settings
	m.mu.Unlock()

	copied := settings
	return &copied, nil
}

// Save writes settings to disk and refreshes the cached copy.
func (m *Manager) Save(settings *Settings) error {
	raw, err := toml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	if dir := filepath.Dir(m.path); dir != "" && dir != "." {
		if err := m.fs.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := afero.WriteFile(m.fs, m.path, raw, 0600); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}

	m.mu.Lock()
	copied := *settings
	m.settings = &copied
	m.mu.Unlock()
	return nil
}
