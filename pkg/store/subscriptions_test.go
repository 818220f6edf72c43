package store

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestSubscriptions(t *testing.T) *Subscriptions {
	t.Helper()
	s, err := NewSubscriptions(filepath.Join(t.TempDir(), "users.json"), nil)
	if err != nil {
		t.Fatalf("Failed to create subscriptions store: %v", err)
	}
	return s
}

func TestNormalizeAccount(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"foo", "foo"},
		{"  Foo ", "Foo"},
		{"@foo", "foo"},
		{" @foo ", "foo"},
		{"@@foo", "@foo"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		if got := NormalizeAccount(tt.raw); got != tt.want {
			t.Errorf("NormalizeAccount(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestLoadEmpty(t *testing.T) {
	s := newTestSubscriptions(t)

	subs, err := s.Load()
	if err != nil {
		t.Fatalf("Load() on missing file failed: %v", err)
	}
	if len(subs) != 0 {
		t.Errorf("Expected empty mapping, got %d entries", len(subs))
	}
}

func TestAddNormalizesAndDeduplicates(t *testing.T) {
	s := newTestSubscriptions(t)

	changed, err := s.Add("42", "  Foo ")
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if !changed {
		t.Error("Expected first Add to report a change")
	}

	// Equivalent forms must not duplicate
	for _, raw := range []string{"Foo", "@Foo", " Foo"} {
		changed, err = s.Add("42", raw)
		if err != nil {
			t.Fatalf("Add(%q) failed: %v", raw, err)
		}
		if changed {
			t.Errorf("Expected Add(%q) to be a no-op", raw)
		}
	}

	subs, err := s.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	accounts := subs["42"]
	if len(accounts) != 1 || accounts[0] != "Foo" {
		t.Errorf("Expected exactly [Foo], got %v", accounts)
	}
}

func TestAddEmptyAccount(t *testing.T) {
	s := newTestSubscriptions(t)

	if _, err := s.Add("42", "  @ "); err == nil {
		t.Error("Expected validation error for empty account")
	}
}

func TestRemoveLastAccountRemovesSubscriber(t *testing.T) {
	s := newTestSubscriptions(t)

	if _, err := s.Add("42", "foo"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if _, err := s.Add("42", "bar"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	changed, err := s.Remove("42", "@foo")
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if !changed {
		t.Error("Expected Remove to report a change")
	}

	subs, _ := s.Load()
	if got := subs["42"]; len(got) != 1 || got[0] != "bar" {
		t.Errorf("Expected [bar], got %v", got)
	}

	if _, err := s.Remove("42", "bar"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	subs, err = s.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, ok := subs["42"]; ok {
		t.Error("Expected subscriber entry to be removed with its last account")
	}
}

func TestRemoveUnknown(t *testing.T) {
	s := newTestSubscriptions(t)

	changed, err := s.Remove("42", "foo")
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if changed {
		t.Error("Expected Remove of unknown account to be a no-op")
	}
}

func TestLoadCorruptFileFailsOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("Failed to write corrupt file: %v", err)
	}

	s, err := NewSubscriptions(path, nil)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	subs, err := s.Load()
	if err == nil {
		t.Error("Expected a typed error for corrupt file")
	}
	if subs == nil || len(subs) != 0 {
		t.Errorf("Expected empty mapping alongside the error, got %v", subs)
	}
}

func TestAddDoesNotClobberUnreadableState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("Failed to write corrupt file: %v", err)
	}

	s, err := NewSubscriptions(path, nil)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	if _, err := s.Add("42", "foo"); err == nil {
		t.Error("Expected Add to refuse writing over unreadable state")
	}

	// Original bytes must be untouched
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to re-read file: %v", err)
	}
	if string(data) != "{not json" {
		t.Error("Expected corrupt file to be left as-is")
	}
}

func TestSubscribersSorted(t *testing.T) {
	s := newTestSubscriptions(t)

	for _, sub := range []string{"9", "1", "5"} {
		if _, err := s.Add(sub, "acct"); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	ids, err := s.Subscribers()
	if err != nil {
		t.Fatalf("Subscribers failed: %v", err)
	}
	want := []string{"1", "5", "9"}
	if len(ids) != len(want) {
		t.Fatalf("Expected %d subscribers, got %d", len(want), len(ids))
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("Expected subscribers %v, got %v", want, ids)
			break
		}
	}
}
