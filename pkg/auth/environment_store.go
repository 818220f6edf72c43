package auth

import (
	"os"
	"time"
)

// EnvironmentStore reads session credentials from environment
// variables. Read-only; writes report ErrStoreUnavailable.
type EnvironmentStore struct{}

// NewEnvironmentStore creates the environment-backed store.
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

func (e *EnvironmentStore) Save(creds *Credentials) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Load() (*Credentials, error) {
	sessionID := os.Getenv("STORYWATCH_INSTAGRAM_SESSION_ID")
	csrfToken := os.Getenv("STORYWATCH_INSTAGRAM_CSRF_TOKEN")
	userAgent := os.Getenv("STORYWATCH_INSTAGRAM_USER_AGENT")

	if sessionID == "" || csrfToken == "" {
		return nil, ErrCredentialsNotFound
	}

	return &Credentials{
		SessionID: sessionID,
		CSRFToken: csrfToken,
		UserAgent: userAgent,
		UpdatedAt: time.Now(),
	}, nil
}

func (e *EnvironmentStore) Delete() error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Exists() bool {
	return os.Getenv("STORYWATCH_INSTAGRAM_SESSION_ID") != "" &&
		os.Getenv("STORYWATCH_INSTAGRAM_CSRF_TOKEN") != ""
}
