package fingerprint

import (
	"testing"
	"time"
)

func TestDigestDeterministic(t *testing.T) {
	data := []byte("story media payload")
	first := Digest(data)
	second := Digest(data)

	if first != second {
		t.Errorf("Expected equal digests for equal bytes, got %s and %s", first, second)
	}
	if len(first) != 64 {
		t.Errorf("Expected 64-char hex digest, got %d chars", len(first))
	}
}

func TestDigestEmpty(t *testing.T) {
	// sha256 of the empty buffer
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := Digest(nil); got != want {
		t.Errorf("Expected empty-buffer digest %s, got %s", want, got)
	}
	if got := Digest([]byte{}); got != want {
		t.Errorf("Expected empty-slice digest %s, got %s", want, got)
	}
}

func TestDigestDifferentInputs(t *testing.T) {
	if Digest([]byte("a")) == Digest([]byte("b")) {
		t.Error("Expected different digests for different bytes")
	}
}

func TestNewFingerprint(t *testing.T) {
	fp := New([]byte("snapshot"), []byte("media"))
	if fp.Snapshot != Digest([]byte("snapshot")) {
		t.Error("Snapshot hash mismatch")
	}
	if fp.Media != Digest([]byte("media")) {
		t.Error("Media hash mismatch")
	}
	if !fp.HasMedia() {
		t.Error("Expected HasMedia true")
	}
}

func TestNewFingerprintNoMedia(t *testing.T) {
	fp := New([]byte("snapshot"), nil)
	if fp.Media != "" {
		t.Errorf("Expected empty media hash, got %s", fp.Media)
	}
	if fp.HasMedia() {
		t.Error("Expected HasMedia false")
	}
}

func TestEncode(t *testing.T) {
	fp := Fingerprint{Snapshot: "aaaa", Media: "bbbb"}
	if got := fp.Encode(); got != "aaaa:bbbb" {
		t.Errorf("Expected aaaa:bbbb, got %s", got)
	}

	fp = Fingerprint{Snapshot: "aaaa"}
	if got := fp.Encode(); got != "aaaa:" {
		t.Errorf("Expected aaaa: for missing media, got %s", got)
	}
}

func TestParseStored(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		wantSnapshot string
		wantMedia    string
		wantLegacy   bool
	}{
		{"pair", "aaaa:bbbb", "aaaa", "bbbb", false},
		{"pair without media", "aaaa:", "aaaa", "", false},
		{"legacy single hash", "cccc", "cccc", "", true},
		{"empty", "", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snapshot, media, legacy := ParseStored(tt.value)
			if snapshot != tt.wantSnapshot {
				t.Errorf("snapshot = %s, want %s", snapshot, tt.wantSnapshot)
			}
			if media != tt.wantMedia {
				t.Errorf("media = %s, want %s", media, tt.wantMedia)
			}
			if legacy != tt.wantLegacy {
				t.Errorf("legacy = %v, want %v", legacy, tt.wantLegacy)
			}
		})
	}
}

func TestRecordKey(t *testing.T) {
	at := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	fp := Fingerprint{
		Snapshot: "aaaaaaaabbbbbbbbccccccccdddddddd",
		Media:    "11111111222222223333333344444444",
	}

	key := RecordKey("42", "demo", fp, at)
	want := "demo-42-20250314-aaaaaaaa-11111111"
	if key != want {
		t.Errorf("Expected key %s, got %s", want, key)
	}
}

func TestRecordKeyNoMedia(t *testing.T) {
	at := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	fp := Fingerprint{Snapshot: "aaaaaaaabbbbbbbb"}

	key := RecordKey("-100987", "demo", fp, at)
	want := "demo--100987-20250314-aaaaaaaa-no-media"
	if key != want {
		t.Errorf("Expected key %s, got %s", want, key)
	}
}

func TestRecordKeyUsesUTCDate(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	// Still March 14 in UTC+9 but March 13 in UTC
	at := time.Date(2025, 3, 14, 3, 0, 0, 0, loc)
	fp := Fingerprint{Snapshot: "aaaaaaaabbbbbbbb"}

	key := RecordKey("42", "demo", fp, at)
	want := "demo-42-20250313-aaaaaaaa-no-media"
	if key != want {
		t.Errorf("Expected UTC date in key %s, got %s", want, key)
	}
}

func TestKeyDate(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want time.Time
	}{
		{
			"with media",
			"demo-42-20250314-aaaaaaaa-11111111",
			time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		},
		{
			"no media sentinel",
			"demo-42-20250314-aaaaaaaa-no-media",
			time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		},
		{
			"negative chat id",
			"demo--100987-20241201-aaaaaaaa-no-media",
			time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			"malformed",
			"garbage",
			time.Time{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KeyDate(tt.key); !got.Equal(tt.want) {
				t.Errorf("KeyDate(%s) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

func TestRecordKeyRoundTrip(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	fp := New([]byte("S"), []byte("A"))
	key := RecordKey("7", "acct.name_1", fp, at)

	got := KeyDate(key)
	if got.Format("20060102") != "20250601" {
		t.Errorf("Expected round-tripped date 20250601, got %s", got.Format("20060102"))
	}
}
