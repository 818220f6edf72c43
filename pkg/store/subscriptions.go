// Package store holds the durable state of the monitor: the
// subscription mapping and the per-account alert states.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	apperrors "storywatch/pkg/errors"
	"storywatch/pkg/logger"
)

// Subscriptions is the durable mapping of subscriber (chat id) to the
// list of tracked account names. All mutations go through one mutex so
// there is a single writer; persistence is whole-file atomic replace.
type Subscriptions struct {
	path   string
	mu     sync.Mutex
	logger logger.Logger
}

// NewSubscriptions creates the store, creating the parent directory if
// needed.
func NewSubscriptions(path string, log logger.Logger) (*Subscriptions, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &Subscriptions{path: path, logger: log}, nil
}

// NormalizeAccount normalizes an account identifier: trims whitespace
// and strips one leading "@".
func NormalizeAccount(raw string) string {
	account := strings.TrimSpace(raw)
	account = strings.TrimPrefix(account, "@")
	return account
}

// Load returns the current durable mapping. A missing file is an empty
// mapping. On read or parse failure the returned mapping is also empty
// and a typed persistence error reports what happened; the caller
// decides whether to fail open.
func (s *Subscriptions) Load() (map[string][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// load reads the file without taking the lock; callers must hold it.
func (s *Subscriptions) load() (map[string][]string, error) {
	subs := make(map[string][]string)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return subs, nil
		}
		return subs, apperrors.Wrap(apperrors.ErrorTypePersistence, "failed to read subscriptions", err)
	}

	if err := json.Unmarshal(data, &subs); err != nil {
		return make(map[string][]string), apperrors.Wrap(apperrors.ErrorTypePersistence, "failed to parse subscriptions", err)
	}
	return subs, nil
}

// Add starts tracking an account for a subscriber. Returns whether a
// change was made (false when the account was already tracked).
func (s *Subscriptions) Add(subscriber, rawAccount string) (bool, error) {
	account := NormalizeAccount(rawAccount)
	if account == "" {
		return false, apperrors.New(apperrors.ErrorTypeValidation, "account name is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	subs, err := s.load()
	if err != nil {
		// Proceeding would clobber state we could not read
		return false, err
	}

	for _, existing := range subs[subscriber] {
		if existing == account {
			return false, nil
		}
	}

	subs[subscriber] = append(subs[subscriber], account)
	if err := s.persist(subs); err != nil {
		return false, err
	}

	s.logger.DebugWithFields("subscription added", map[string]interface{}{
		"subscriber": subscriber,
		"account":    account,
	})
	return true, nil
}

// Remove stops tracking an account for a subscriber. A subscriber whose
// tracking set becomes empty is removed entirely. Returns whether a
// change was made.
func (s *Subscriptions) Remove(subscriber, rawAccount string) (bool, error) {
	account := NormalizeAccount(rawAccount)
	if account == "" {
		return false, apperrors.New(apperrors.ErrorTypeValidation, "account name is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	subs, err := s.load()
	if err != nil {
		return false, err
	}

	accounts, ok := subs[subscriber]
	if !ok {
		return false, nil
	}

	kept := accounts[:0]
	removed := false
	for _, existing := range accounts {
		if existing == account {
			removed = true
			continue
		}
		kept = append(kept, existing)
	}
	if !removed {
		return false, nil
	}

	if len(kept) == 0 {
		delete(subs, subscriber)
	} else {
		subs[subscriber] = kept
	}

	if err := s.persist(subs); err != nil {
		return false, err
	}

	s.logger.DebugWithFields("subscription removed", map[string]interface{}{
		"subscriber": subscriber,
		"account":    account,
	})
	return true, nil
}

// Accounts returns the tracked accounts of one subscriber.
func (s *Subscriptions) Accounts(subscriber string) ([]string, error) {
	subs, err := s.Load()
	if err != nil {
		return nil, err
	}
	return subs[subscriber], nil
}

// Subscribers returns all subscriber ids in stable order.
func (s *Subscriptions) Subscribers() ([]string, error) {
	subs, err := s.Load()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(subs))
	for id := range subs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Subscriptions) persist(subs map[string][]string) error {
	data, err := json.MarshalIndent(subs, "", "  ")
	if err != nil {
		return apperrors.Wrap(apperrors.ErrorTypePersistence, "failed to encode subscriptions", err)
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return apperrors.Wrap(apperrors.ErrorTypePersistence, "failed to persist subscriptions", err)
	}
	return nil
}
