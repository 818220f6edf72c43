// Package fingerprint turns captured story bytes into stable identity tokens.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// NoMediaSentinel marks a record key built without a primary media payload.
const NoMediaSentinel = "no-media"

// prefixLen is the number of hash characters embedded in a record key.
const prefixLen = 8

// Digest returns the hex-encoded SHA-256 digest of the given bytes.
// Equal input always yields an equal digest; empty input yields the
// digest of the empty buffer.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Fingerprint is the identity of one captured story: the hash of its
// visual snapshot and, when the media payload was downloaded, the hash
// of that payload.
type Fingerprint struct {
	Snapshot string
	Media    string
}

// New computes a fingerprint from raw captured bytes. mediaBytes may be
// nil when the primary payload is missing; the item is still usable
// through the snapshot hash alone.
func New(snapshotBytes, mediaBytes []byte) Fingerprint {
	fp := Fingerprint{Snapshot: Digest(snapshotBytes)}
	if len(mediaBytes) > 0 {
		fp.Media = Digest(mediaBytes)
	}
	return fp
}

// Encode renders the fingerprint in its stored-value form,
// "<snapshot_hash>:<media_hash_or_empty>".
func (fp Fingerprint) Encode() string {
	return fp.Snapshot + ":" + fp.Media
}

// HasMedia reports whether the primary media payload was hashed.
func (fp Fingerprint) HasMedia() bool {
	return fp.Media != ""
}

// ParseStored splits a stored history value into its snapshot and media
// hashes. Values without a separator are legacy single-hash entries; the
// whole value is returned as the snapshot hash and legacy is true.
func ParseStored(value string) (snapshot, media string, legacy bool) {
	idx := strings.IndexByte(value, ':')
	if idx < 0 {
		return value, "", true
	}
	return value[:idx], value[idx+1:], false
}

// RecordKey builds the human-inspectable label for one history entry:
// account, subscriber, calendar date (UTC), and short prefixes of both
// hashes. It is a label only; novelty decisions scan history values,
// never keys.
func RecordKey(subscriber, account string, fp Fingerprint, at time.Time) string {
	mediaPart := NoMediaSentinel
	if fp.HasMedia() {
		mediaPart = hashPrefix(fp.Media)
	}
	return fmt.Sprintf("%s-%s-%s-%s-%s",
		account,
		subscriber,
		at.UTC().Format("20060102"),
		hashPrefix(fp.Snapshot),
		mediaPart,
	)
}

// ContentKey builds a subscriber-independent label for one story:
// account, calendar date (UTC), and short prefixes of both hashes.
func ContentKey(account string, fp Fingerprint, at time.Time) string {
	mediaPart := NoMediaSentinel
	if fp.HasMedia() {
		mediaPart = hashPrefix(fp.Media)
	}
	return fmt.Sprintf("%s-%s-%s-%s",
		account,
		at.UTC().Format("20060102"),
		hashPrefix(fp.Snapshot),
		mediaPart,
	)
}

// KeyDate extracts the calendar date embedded in a record key.
// Subscriber ids may themselves contain dashes (negative chat ids), so
// the key is unpacked from the right: media part, snapshot prefix, then
// the date segment. Returns the zero time for malformed keys.
func KeyDate(key string) time.Time {
	rest := key
	if strings.HasSuffix(rest, "-"+NoMediaSentinel) {
		rest = strings.TrimSuffix(rest, "-"+NoMediaSentinel)
	} else if i := strings.LastIndexByte(rest, '-'); i >= 0 {
		rest = rest[:i]
	}
	// snapshot hash prefix
	if i := strings.LastIndexByte(rest, '-'); i >= 0 {
		rest = rest[:i]
	}
	if i := strings.LastIndexByte(rest, '-'); i >= 0 {
		if t, err := time.Parse("20060102", rest[i+1:]); err == nil {
			return t
		}
	}
	return time.Time{}
}

func hashPrefix(hash string) string {
	if len(hash) < prefixLen {
		return hash
	}
	return hash[:prefixLen]
}
