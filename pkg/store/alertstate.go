package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	apperrors "storywatch/pkg/errors"
	"storywatch/pkg/fingerprint"
	"storywatch/pkg/logger"
)

// AlertState is the durable per-account record of previously seen
// fingerprints.
type AlertState struct {
	// History maps record keys to stored fingerprint values
	// ("<snapshot_hash>:<media_hash_or_empty>", or a legacy single hash).
	History map[string]string `json:"history"`
	// LastCheck is the RFC3339 timestamp of the last check, or empty.
	LastCheck string `json:"last_check"`
}

// NewAlertState returns a fresh empty state.
func NewAlertState() AlertState {
	return AlertState{History: make(map[string]string)}
}

// RetentionPolicy bounds history growth at write time.
type RetentionPolicy struct {
	// MaxEntries keeps at most this many history entries (newest first
	// by the date embedded in the record key). Zero disables the cap.
	MaxEntries int
	// MaxAgeDays drops entries whose record-key date is older than this
	// many days. Zero disables age pruning.
	MaxAgeDays int
}

// AlertStates stores one AlertState file per tracked account so the
// blast radius of a corrupt or concurrent write is a single account.
type AlertStates struct {
	dir       string
	retention RetentionPolicy
	logger    logger.Logger
	now       func() time.Time
}

// NewAlertStates creates the store, creating its directory if needed.
func NewAlertStates(dir string, retention RetentionPolicy, log logger.Logger) (*AlertStates, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create alert states directory: %w", err)
	}
	return &AlertStates{
		dir:       dir,
		retention: retention,
		logger:    log,
		now:       time.Now,
	}, nil
}

// Get returns the stored state for an account. A missing file yields a
// fresh empty state and no error. A read or parse failure also yields a
// fresh empty state, together with a typed persistence error so the
// caller makes the fail-open decision itself.
func (s *AlertStates) Get(account string) (AlertState, error) {
	path, err := s.statePath(account)
	if err != nil {
		return NewAlertState(), err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewAlertState(), nil
		}
		return NewAlertState(), apperrors.Wrap(apperrors.ErrorTypePersistence, "failed to read alert state", err)
	}

	var state AlertState
	if err := json.Unmarshal(data, &state); err != nil {
		return NewAlertState(), apperrors.Wrap(apperrors.ErrorTypePersistence, "failed to parse alert state", err)
	}
	if state.History == nil {
		state.History = make(map[string]string)
	}
	return state, nil
}

// Put persists the state for an account atomically, enforcing the
// retention policy first.
func (s *AlertStates) Put(account string, state AlertState) error {
	path, err := s.statePath(account)
	if err != nil {
		return err
	}

	pruned := s.prune(state)

	data, err := json.MarshalIndent(pruned, "", "  ")
	if err != nil {
		return apperrors.Wrap(apperrors.ErrorTypePersistence, "failed to encode alert state", err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return apperrors.Wrap(apperrors.ErrorTypePersistence, "failed to persist alert state", err)
	}

	s.logger.DebugWithFields("alert state persisted", map[string]interface{}{
		"account": account,
		"entries": len(pruned.History),
	})
	return nil
}

// prune applies the retention policy: first drop entries older than
// MaxAgeDays, then keep the newest MaxEntries. Entries without a
// parseable date (legacy keys) sort oldest and go first when the cap
// bites, but are never dropped by age alone.
func (s *AlertStates) prune(state AlertState) AlertState {
	if len(state.History) == 0 {
		return state
	}
	if s.retention.MaxEntries <= 0 && s.retention.MaxAgeDays <= 0 {
		return state
	}

	type entry struct {
		key  string
		date time.Time
	}
	entries := make([]entry, 0, len(state.History))

	var cutoff time.Time
	if s.retention.MaxAgeDays > 0 {
		cutoff = s.now().UTC().AddDate(0, 0, -s.retention.MaxAgeDays)
	}

	for key := range state.History {
		date := fingerprint.KeyDate(key)
		if !cutoff.IsZero() && !date.IsZero() && date.Before(cutoff) {
			continue
		}
		entries = append(entries, entry{key: key, date: date})
	}

	if s.retention.MaxEntries > 0 && len(entries) > s.retention.MaxEntries {
		sort.Slice(entries, func(i, j int) bool {
			if !entries[i].date.Equal(entries[j].date) {
				return entries[i].date.After(entries[j].date)
			}
			return entries[i].key < entries[j].key
		})
		entries = entries[:s.retention.MaxEntries]
	}

	if len(entries) == len(state.History) {
		return state
	}

	history := make(map[string]string, len(entries))
	for _, e := range entries {
		history[e.key] = state.History[e.key]
	}
	return AlertState{History: history, LastCheck: state.LastCheck}
}

// statePath builds the file path for one account, rejecting names that
// would escape the state directory.
func (s *AlertStates) statePath(account string) (string, error) {
	if account == "" || account == "." || account == ".." ||
		strings.ContainsAny(account, "/\\") || account != filepath.Base(account) {
		return "", apperrors.New(apperrors.ErrorTypeValidation, "invalid account name")
	}
	return filepath.Join(s.dir, account+".json"), nil
}
