// Package merging implements the field merge policies used during sync:
// idempotent note merging with provenance tags, export truncation, and
// multi-value union with normalization.
package merging

import (
	"fmt"
	"strings"
)

// TruncationMarker replaces the tail of a note that exceeds the external
// system's length limit.
const TruncationMarker = "… [full note in BlackBook]"

// ProvenanceTag returns the bracketed header identifying a merged-in note's
// source account.
func ProvenanceTag(accountLabel string) string {
	return fmt.Sprintf("[synced from %s]", accountLabel)
}

// MergeNotes appends the external note to the local note under a provenance
// tag for the source account. Merging the same tag+content again is a no-op.
func MergeNotes(local, external, accountLabel string) string {
	local = strings.TrimRight(local, " \t\n")
	external = strings.TrimSpace(external)

	if external == "" {
		return local
	}
	if local == "" {
		return external
	}

	// After an export the next import sees the local note itself coming back
	// from the account, possibly cut at the export length limit. Content the
	// local note already contains is not new and must not be appended again.
	content := strings.TrimSpace(strings.TrimSuffix(external, TruncationMarker))
	if content == "" || strings.Contains(local, content) {
		return local
	}

	return local + "\n\n" + ProvenanceTag(accountLabel) + "\n" + external
}

// TruncateForExport cuts a note to the external hard length limit, replacing
// the tail with a marker pointing back to the full record. Limits are in
// runes so a multi-byte character is never split.
func TruncateForExport(note string, limit int) string {
	if limit <= 0 {
		return note
	}
	runes := []rune(note)
	if len(runes) <= limit {
		return note
	}

	marker := []rune(TruncationMarker)
	if limit <= len(marker) {
		return string(marker[:limit])
	}
	return string(runes[:limit-len(marker)]) + string(marker)
}
