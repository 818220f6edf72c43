// Package novelty decides whether a captured story is new relative to
// everything previously recorded for an account.
package novelty

import "storywatch/pkg/fingerprint"

// Decision is the outcome of a novelty check.
type Decision int

const (
	// Seen means the story matches something already in history.
	Seen Decision = iota
	// New means no stored entry matches and the story should be alerted.
	New
)

func (d Decision) String() string {
	if d == New {
		return "new"
	}
	return "seen"
}

// Decide compares a fresh fingerprint against the stored history of an
// account. The policy is OR-based and any-match-over-all-history: the
// story is Seen if its snapshot hash matches any stored snapshot hash,
// or its media hash is present and matches any stored media hash, or a
// legacy single-hash entry equals either hash. Matching every stored
// entry, not just the most recent, keeps content that cycles back into
// view from re-alerting; the cost is never re-alerting a
// visually-identical repost. False negatives over false positives.
func Decide(fp fingerprint.Fingerprint, history map[string]string) Decision {
	if len(history) == 0 {
		return New
	}

	for _, stored := range history {
		storedSnapshot, storedMedia, legacy := fingerprint.ParseStored(stored)

		if legacy {
			if storedSnapshot == fp.Snapshot || (fp.HasMedia() && storedSnapshot == fp.Media) {
				return Seen
			}
			continue
		}

		if storedSnapshot == fp.Snapshot {
			return Seen
		}
		if fp.HasMedia() && storedMedia != "" && storedMedia == fp.Media {
			return Seen
		}
	}

	return New
}
