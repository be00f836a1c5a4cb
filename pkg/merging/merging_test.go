package merging

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/perunhq/blackbook-sync/pkg/models"
)

func TestMergeNotes(t *testing.T) {
	t.Run("appends under provenance tag", func(t *testing.T) {
		got := MergeNotes("met at conference", "prefers email", "Work Google")
		assert.Equal(t, "met at conference\n\n[synced from Work Google]\nprefers email", got)
	})

	t.Run("merge is idempotent", func(t *testing.T) {
		once := MergeNotes("met at conference", "prefers email", "Work Google")
		twice := MergeNotes(once, "prefers email", "Work Google")
		assert.Equal(t, once, twice)
	})

	t.Run("different accounts both merge", func(t *testing.T) {
		got := MergeNotes("base", "note a", "Account A")
		got = MergeNotes(got, "note b", "Account B")
		assert.Contains(t, got, "[synced from Account A]\nnote a")
		assert.Contains(t, got, "[synced from Account B]\nnote b")
	})

	t.Run("identical external is a no-op", func(t *testing.T) {
		assert.Equal(t, "met at conference", MergeNotes("met at conference", "met at conference", "Work Google"))
	})

	t.Run("export import round trip never grows the note", func(t *testing.T) {
		// After an export the account hands the local note straight back on
		// the next import.
		note := MergeNotes("met at conference", "prefers email", "Work Google")
		for i := 0; i < 3; i++ {
			note = MergeNotes(note, note, "Work Google")
		}
		assert.Equal(t, "met at conference\n\n[synced from Work Google]\nprefers email", note)
	})

	t.Run("truncated round trip never grows the note", func(t *testing.T) {
		local := strings.Repeat("a", 300)
		exported := TruncateForExport(local, 100)
		assert.Equal(t, local, MergeNotes(local, exported, "Work Google"))
	})

	t.Run("empty external is a no-op", func(t *testing.T) {
		assert.Equal(t, "local", MergeNotes("local", "", "X"))
	})

	t.Run("empty local takes external verbatim", func(t *testing.T) {
		assert.Equal(t, "external", MergeNotes("", "external", "X"))
	})
}

func TestTruncateForExport(t *testing.T) {
	t.Run("short note untouched", func(t *testing.T) {
		assert.Equal(t, "short", TruncateForExport("short", 100))
	})

	t.Run("long note truncated with marker", func(t *testing.T) {
		note := strings.Repeat("a", 300)
		got := TruncateForExport(note, 100)
		assert.Len(t, []rune(got), 100)
		assert.True(t, strings.HasSuffix(got, TruncationMarker))
	})

	t.Run("multibyte runes never split", func(t *testing.T) {
		note := strings.Repeat("é", 300)
		got := TruncateForExport(note, 100)
		assert.Len(t, []rune(got), 100)
	})

	t.Run("zero limit disables truncation", func(t *testing.T) {
		note := strings.Repeat("a", 300)
		assert.Equal(t, note, TruncateForExport(note, 0))
	})
}

func TestUnionEmails(t *testing.T) {
	local := []models.EmailAddress{{Label: "work", Address: "bob@corp.com"}}
	external := []models.EmailAddress{
		{Label: "home", Address: "BOB@CORP.COM"}, // dup after normalization
		{Label: "personal", Address: "bob@home.net"},
	}

	merged, changed := UnionEmails(local, external)
	assert.True(t, changed)
	assert.Len(t, merged, 2)
	assert.Equal(t, "bob@corp.com", merged[0].Address)
	assert.Equal(t, "bob@home.net", merged[1].Address)

	// Re-union is a no-op.
	again, changed := UnionEmails(merged, external)
	assert.False(t, changed)
	assert.Equal(t, merged, again)
}

func TestUnionPhones(t *testing.T) {
	merged, changed := UnionPhones([]string{"+1 555 123 4567"}, []string{"1 (555) 123-4567", "+1-555-999-0000"})
	assert.True(t, changed)
	// The formatted variant of the same number is deduplicated; new numbers
	// are kept.
	assert.Len(t, merged, 2)

	_, changed = UnionPhones(merged, []string{"15551234567"})
	assert.False(t, changed)
}
