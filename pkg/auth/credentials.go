// Package auth stores the Instagram session credentials the monitor
// authenticates with. Secrets live in the system keychain when one is
// available, with an encrypted file and environment variables as
// fallbacks.
package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Credentials is the Instagram web session the monitor uses.
type Credentials struct {
	SessionID string    `json:"session_id"`
	CSRFToken string    `json:"csrf_token"`
	UserAgent string    `json:"user_agent,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists one set of session credentials.
type Store interface {
	// Save persists the credentials.
	Save(creds *Credentials) error
	// Load returns the stored credentials.
	Load() (*Credentials, error)
	// Delete removes the stored credentials.
	Delete() error
	// Exists reports whether credentials are stored.
	Exists() bool
}

var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)

// Manager tries a chain of stores in order: keychain, encrypted file,
// environment.
type Manager struct {
	stores []Store
}

// NewManager builds the default store chain.
func NewManager() (*Manager, error) {
	var stores []Store

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := configDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}
	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores builds a manager over an explicit chain.
func NewManagerWithStores(stores ...Store) *Manager {
	return &Manager{stores: stores}
}

// Save validates and persists the credentials to the first store that
// accepts them.
func (m *Manager) Save(creds *Credentials) error {
	if creds == nil || creds.SessionID == "" {
		return fmt.Errorf("%w: session id is required", ErrInvalidCredentials)
	}
	if creds.CSRFToken == "" {
		return fmt.Errorf("%w: csrf token is required", ErrInvalidCredentials)
	}

	creds.UpdatedAt = time.Now()

	var lastErr error
	for _, store := range m.stores {
		if err := store.Save(creds); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	if lastErr != nil {
		return fmt.Errorf("failed to store credentials: %w", lastErr)
	}
	return ErrStoreUnavailable
}

// Load returns credentials from the first store that has them.
func (m *Manager) Load() (*Credentials, error) {
	for _, store := range m.stores {
		if creds, err := store.Load(); err == nil && creds != nil {
			return creds, nil
		}
	}
	return nil, ErrCredentialsNotFound
}

// Delete removes the credentials from every store that holds them.
func (m *Manager) Delete() error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		if err := store.Delete(); err == nil {
			deleted = true
		} else {
			lastErr = err
		}
	}

	if deleted {
		return nil
	}
	if lastErr != nil {
		return fmt.Errorf("failed to delete credentials: %w", lastErr)
	}
	return ErrCredentialsNotFound
}

// Exists reports whether any store holds credentials.
func (m *Manager) Exists() bool {
	for _, store := range m.stores {
		if store.Exists() {
			return true
		}
	}
	return false
}

// configDir returns the storywatch configuration directory, creating
// it if needed.
func configDir() (string, error) {
	var dir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, "Library", "Application Support", "storywatch")
	case "windows":
		dir = filepath.Join(os.Getenv("APPDATA"), "storywatch")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			dir = filepath.Join(xdgConfig, "storywatch")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dir = filepath.Join(home, ".config", "storywatch")
		}
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}

// Sanitize returns a copy of the credentials with secrets masked for
// display.
func Sanitize(creds *Credentials) *Credentials {
	if creds == nil {
		return nil
	}
	return &Credentials{
		SessionID: maskString(creds.SessionID),
		CSRFToken: maskString(creds.CSRFToken),
		UserAgent: creds.UserAgent,
		UpdatedAt: creds.UpdatedAt,
	}
}

func maskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
