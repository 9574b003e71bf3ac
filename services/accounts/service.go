// Package accounts manages local reeltrack logins and their profile data.
// Accounts are persisted as a single JSON file under the data directory.
package accounts

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-password/password"
	"github.com/spf13/afero"
	"golang.org/x/crypto/bcrypt"

	"reeltrack/models"
)

const accountsFile = "accounts.json"

// ErrNotFound is returned when no account matches the lookup.
var ErrNotFound = errors.New("account not found")

// ErrUsernameTaken is returned when creating an account with a username
// that already exists.
var ErrUsernameTaken = errors.New("username already taken")

// Service manages the account registry.
type Service struct {
	fs   afero.Fs
	path string

	mu       sync.RWMutex
	accounts map[string]models.Account
}

// NewService loads the registry from dataDir, creating the bootstrap admin
// account (with a generated password, printed to the log) when none exists.
func NewService(fs afero.Fs, dataDir string) (*Service, error) {
	s := &Service{
		fs:       fs,
		path:     filepath.Join(dataDir, accountsFile),
		accounts: map[string]models.Account{},
	}

	if err := s.load(); err != nil {
		return nil, err
	}

	if len(s.accounts) == 0 {
		pass, err := password.Generate(16, 4, 0, false, false)
		if err != nil {
			return nil, fmt.Errorf("generate admin password: %w", err)
		}
		admin, err := s.Create(models.AdminUsername, pass, "Administrator", "")
		if err != nil {
			return nil, fmt.Errorf("create admin account: %w", err)
		}
		s.mu.Lock()
		admin.IsAdmin = true
		s.accounts[admin.ID] = admin
		err = s.save()
		s.mu.Unlock()
		if err != nil {
			return nil, err
		}
		log.Printf("[accounts] created admin account, initial password: %s", pass)
	}

	return s, nil
}

// Create registers a new account with a bcrypt-hashed password.
func (s *Service) Create(username, plainPassword, displayName, email string) (models.Account, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return models.Account{}, errors.New("username required")
	}
	if len(plainPassword) < 8 {
		return models.Account{}, errors.New("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plainPassword), bcrypt.DefaultCost)
	if err != nil {
		return models.Account{}, fmt.Errorf("hash password: %w", err)
	}

	if displayName == "" {
		displayName = username
	}

	now := time.Now().UTC()
	account := models.Account{
		ID:           uuid.NewString(),
		Username:     username,
		DisplayName:  displayName,
		Email:        email,
		Theme:        models.DefaultTheme,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.accounts {
		if existing.Username == username {
			return models.Account{}, ErrUsernameTaken
		}
	}

	s.accounts[account.ID] = account
	if err := s.save(); err != nil {
		delete(s.accounts, account.ID)
		return models.Account{}, err
	}
	return account, nil
}

// Verify checks a username/password pair and returns the matching account.
func (s *Service) Verify(username, plainPassword string) (models.Account, bool) {
	username = strings.ToLower(strings.TrimSpace(username))

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, account := range s.accounts {
		if account.Username != username {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(plainPassword)) == nil {
			return account, true
		}
		return models.Account{}, false
	}
	return models.Account{}, false
}

// Get returns the account with the given ID.
func (s *Service) Get(id string) (models.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[id]
	return account, ok
}

// GetByUsername returns the account with the given username.
func (s *Service) GetByUsername(username string) (models.Account, bool) {
	username = strings.ToLower(strings.TrimSpace(username))

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, account := range s.accounts {
		if account.Username == username {
			return account, true
		}
	}
	return models.Account{}, false
}

// List returns all accounts.
func (s *Service) List() []models.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]models.Account, 0, len(s.accounts))
	for _, account := range s.accounts {
		list = append(list, account)
	}
	return list
}

// UpdateProfile changes an account's display name and theme.
func (s *Service) UpdateProfile(id, displayName, theme string) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return models.Account{}, ErrNotFound
	}

	if displayName != "" {
		account.DisplayName = displayName
	}
	if theme != "" {
		account.Theme = theme
	}
	account.UpdatedAt = time.Now().UTC()

	previous := s.accounts[id]
	s.accounts[id] = account
	if err := s.save(); err != nil {
		s.accounts[id] = previous
		return models.Account{}, err
	}
	return account, nil
}

// Delete removes an account. The admin account cannot be deleted.
func (s *Service) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return ErrNotFound
	}
	if account.IsAdmin {
		return errors.New("cannot delete the admin account")
	}

	delete(s.accounts, id)
	if err := s.save(); err != nil {
		s.accounts[id] = account
		return err
	}
	return nil
}

func (s *Service) load() error {
	raw, err := afero.ReadFile(s.fs, s.path)
	if errors.Is(err, fs.ErrNotExist) {
		// Fresh install.
		return nil
	}
	if err != nil {
		// Any other failure must not look like an empty registry: the
		// caller would bootstrap a new admin and overwrite the real file.
		return fmt.Errorf("read accounts file: %w", err)
	}

	var list []models.Account
	if err := json.Unmarshal(raw, &list); err != nil {
		return fmt.Errorf("decode accounts file: %w", err)
	}
	for _, account := range list {
		s.accounts[account.ID] = account
	}
	return nil
}

// save writes the registry; callers hold the lock.
func (s *Service) save() error {
	list := make([]models.Account, 0, len(s.accounts))
	for _, account := range s.accounts {
		list = append(list, account)
	}

	raw, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("encode accounts file: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "" && dir != "." {
		if err := s.fs.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create data directory: %w", err)
		}
	}
	if err := afero.WriteFile(s.fs, s.path, raw, 0600); err != nil {
		return fmt.Errorf("write accounts file: %w", err)
	}
	return nil
}
