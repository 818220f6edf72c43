package novelty

import (
	"testing"

	"storywatch/pkg/fingerprint"
)

func TestDecideEmptyHistory(t *testing.T) {
	fp := fingerprint.Fingerprint{Snapshot: "aaaa", Media: "bbbb"}

	if got := Decide(fp, nil); got != New {
		t.Errorf("Expected New for nil history, got %s", got)
	}
	if got := Decide(fp, map[string]string{}); got != New {
		t.Errorf("Expected New for empty history, got %s", got)
	}
}

func TestDecideSnapshotMatch(t *testing.T) {
	history := map[string]string{
		"k1": "aaaa:bbbb",
	}

	// Same snapshot, any media
	fp := fingerprint.Fingerprint{Snapshot: "aaaa", Media: "zzzz"}
	if got := Decide(fp, history); got != Seen {
		t.Errorf("Expected Seen on snapshot match, got %s", got)
	}

	// Same snapshot, no media at all
	fp = fingerprint.Fingerprint{Snapshot: "aaaa"}
	if got := Decide(fp, history); got != Seen {
		t.Errorf("Expected Seen on snapshot match without media, got %s", got)
	}
}

func TestDecideMediaMatch(t *testing.T) {
	history := map[string]string{
		"k1": "aaaa:bbbb",
	}

	// Different snapshot, same media
	fp := fingerprint.Fingerprint{Snapshot: "zzzz", Media: "bbbb"}
	if got := Decide(fp, history); got != Seen {
		t.Errorf("Expected Seen on media match, got %s", got)
	}
}

func TestDecideMediaAbsentDoesNotMatchEmpty(t *testing.T) {
	// Stored entry with no media hash must not match an item that also
	// lacks a media hash through the empty string
	history := map[string]string{
		"k1": "aaaa:",
	}

	fp := fingerprint.Fingerprint{Snapshot: "zzzz"}
	if got := Decide(fp, history); got != New {
		t.Errorf("Expected New when both media hashes are absent, got %s", got)
	}
}

func TestDecideLegacyEntry(t *testing.T) {
	history := map[string]string{
		"k1": "cccc",
	}

	// Legacy hash equals new snapshot
	fp := fingerprint.Fingerprint{Snapshot: "cccc", Media: "dddd"}
	if got := Decide(fp, history); got != Seen {
		t.Errorf("Expected Seen on legacy snapshot match, got %s", got)
	}

	// Legacy hash equals new media
	fp = fingerprint.Fingerprint{Snapshot: "eeee", Media: "cccc"}
	if got := Decide(fp, history); got != Seen {
		t.Errorf("Expected Seen on legacy media match, got %s", got)
	}

	// Legacy hash matches neither
	fp = fingerprint.Fingerprint{Snapshot: "eeee", Media: "ffff"}
	if got := Decide(fp, history); got != New {
		t.Errorf("Expected New when legacy hash matches neither, got %s", got)
	}
}

func TestDecideScansAllEntries(t *testing.T) {
	history := map[string]string{
		"k1": "aaaa:bbbb",
		"k2": "cccc:dddd",
		"k3": "eeee:ffff",
	}

	// Matches an arbitrary (not most recent) entry
	fp := fingerprint.Fingerprint{Snapshot: "zzzz", Media: "dddd"}
	if got := Decide(fp, history); got != Seen {
		t.Errorf("Expected Seen on any-entry match, got %s", got)
	}
}

func TestDecideGenuinelyNew(t *testing.T) {
	history := map[string]string{
		"k1": "aaaa:bbbb",
		"k2": "cccc",
	}

	fp := fingerprint.Fingerprint{Snapshot: "1111", Media: "2222"}
	if got := Decide(fp, history); got != New {
		t.Errorf("Expected New for all-distinct hashes, got %s", got)
	}
}

func TestDecisionString(t *testing.T) {
	if New.String() != "new" {
		t.Errorf("Expected new, got %s", New.String())
	}
	if Seen.String() != "seen" {
		t.Errorf("Expected seen, got %s", Seen.String())
	}
}
