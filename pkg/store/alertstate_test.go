package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"storywatch/pkg/fingerprint"
)

func newTestAlertStates(t *testing.T, retention RetentionPolicy) *AlertStates {
	t.Helper()
	s, err := NewAlertStates(t.TempDir(), retention, nil)
	if err != nil {
		t.Fatalf("Failed to create alert states store: %v", err)
	}
	return s
}

func TestGetMissingIsEmpty(t *testing.T) {
	s := newTestAlertStates(t, RetentionPolicy{})

	state, err := s.Get("demo")
	if err != nil {
		t.Fatalf("Get on missing file failed: %v", err)
	}
	if len(state.History) != 0 || state.LastCheck != "" {
		t.Errorf("Expected fresh empty state, got %+v", state)
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	s := newTestAlertStates(t, RetentionPolicy{})

	state := NewAlertState()
	state.History["demo-42-20250314-aaaaaaaa-11111111"] = "aaaa:1111"
	state.History["demo-42-20250313-bbbbbbbb-no-media"] = "bbbb:"
	state.LastCheck = "2025-03-14T12:00:00Z"

	if err := s.Put("demo", state); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := s.Get("demo")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.LastCheck != state.LastCheck {
		t.Errorf("Expected last check %q, got %q", state.LastCheck, got.LastCheck)
	}
	if len(got.History) != 2 {
		t.Fatalf("Expected 2 history entries, got %d", len(got.History))
	}
	for key, value := range state.History {
		if got.History[key] != value {
			t.Errorf("Expected %q = %q, got %q", key, value, got.History[key])
		}
	}
}

func TestGetCorruptFailsOpen(t *testing.T) {
	s := newTestAlertStates(t, RetentionPolicy{})
	path := filepath.Join(s.dir, "demo.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("Failed to write corrupt file: %v", err)
	}

	state, err := s.Get("demo")
	if err == nil {
		t.Error("Expected a typed error for corrupt file")
	}
	if state.History == nil || len(state.History) != 0 {
		t.Errorf("Expected fresh empty state alongside the error, got %+v", state)
	}
}

func TestGetNullHistory(t *testing.T) {
	s := newTestAlertStates(t, RetentionPolicy{})
	path := filepath.Join(s.dir, "demo.json")
	if err := os.WriteFile(path, []byte(`{"history":null,"last_check":""}`), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	state, err := s.Get("demo")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if state.History == nil {
		t.Error("Expected History to be initialized")
	}
}

func TestStatePathRejectsTraversal(t *testing.T) {
	s := newTestAlertStates(t, RetentionPolicy{})

	for _, account := range []string{"", "../escape", "a/b", `a\b`, "."} {
		if _, err := s.Get(account); err == nil {
			t.Errorf("Expected Get(%q) to be rejected", account)
		}
		if err := s.Put(account, NewAlertState()); err == nil {
			t.Errorf("Expected Put(%q) to be rejected", account)
		}
	}
}

func TestPruneMaxAge(t *testing.T) {
	s := newTestAlertStates(t, RetentionPolicy{MaxAgeDays: 30})
	s.now = func() time.Time {
		return time.Date(2025, time.March, 14, 12, 0, 0, 0, time.UTC)
	}

	state := NewAlertState()
	state.History["demo-42-20250313-aaaaaaaa-11111111"] = "aaaa:1111" // fresh
	state.History["demo-42-20250101-bbbbbbbb-no-media"] = "bbbb:"     // stale
	state.History["legacyhash"] = "cccc"                              // no date, kept

	if err := s.Put("demo", state); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := s.Get("demo")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if _, ok := got.History["demo-42-20250101-bbbbbbbb-no-media"]; ok {
		t.Error("Expected stale entry to be pruned")
	}
	if _, ok := got.History["demo-42-20250313-aaaaaaaa-11111111"]; !ok {
		t.Error("Expected fresh entry to survive")
	}
	if _, ok := got.History["legacyhash"]; !ok {
		t.Error("Expected undated legacy entry to survive age pruning")
	}
}

func TestPruneMaxEntriesKeepsNewest(t *testing.T) {
	s := newTestAlertStates(t, RetentionPolicy{MaxEntries: 2})

	state := NewAlertState()
	state.History["demo-42-20250314-aaaaaaaa-11111111"] = "aaaa:1111"
	state.History["demo-42-20250313-bbbbbbbb-22222222"] = "bbbb:2222"
	state.History["demo-42-20250312-cccccccc-33333333"] = "cccc:3333"

	if err := s.Put("demo", state); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := s.Get("demo")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(got.History) != 2 {
		t.Fatalf("Expected 2 entries after cap, got %d", len(got.History))
	}
	if _, ok := got.History["demo-42-20250312-cccccccc-33333333"]; ok {
		t.Error("Expected oldest entry to be dropped by the cap")
	}
}

func TestPruneCapDropsUndatedFirst(t *testing.T) {
	s := newTestAlertStates(t, RetentionPolicy{MaxEntries: 1})

	state := NewAlertState()
	state.History["demo-42-20250314-aaaaaaaa-11111111"] = "aaaa:1111"
	state.History["legacyhash"] = "bbbb"

	if err := s.Put("demo", state); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := s.Get("demo")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if _, ok := got.History["demo-42-20250314-aaaaaaaa-11111111"]; !ok {
		t.Error("Expected dated entry to win the cap over an undated one")
	}
	if _, ok := got.History["legacyhash"]; ok {
		t.Error("Expected undated entry to be dropped first by the cap")
	}
}

func TestPruneRecordKeyIntegration(t *testing.T) {
	s := newTestAlertStates(t, RetentionPolicy{MaxAgeDays: 7})
	now := time.Date(2025, time.March, 14, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	fp := fingerprint.New([]byte("snapshot"), nil)
	fresh := fingerprint.RecordKey("-100987", "demo", fp, now)
	stale := fingerprint.RecordKey("-100987", "demo", fp, now.AddDate(0, 0, -8))

	state := NewAlertState()
	state.History[fresh] = fp.Encode()
	state.History[stale] = fp.Encode()

	if err := s.Put("demo", state); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := s.Get("demo")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if _, ok := got.History[fresh]; !ok {
		t.Error("Expected fresh record to survive")
	}
	if _, ok := got.History[stale]; ok {
		t.Error("Expected stale record to be pruned")
	}
}
