package conflict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perunhq/blackbook-sync/pkg/contacts"
	"github.com/perunhq/blackbook-sync/pkg/database"
	"github.com/perunhq/blackbook-sync/pkg/matching"
	"github.com/perunhq/blackbook-sync/pkg/models"
	"github.com/perunhq/blackbook-sync/pkg/nicknames"
)

const (
	accountID    = "acct-1"
	accountLabel = "Work Google"
)

func newDetector() *Detector {
	return NewDetector(matching.NewMatcher(nicknames.DefaultIndex()))
}

func basePerson() *models.Person {
	return &models.Person{
		ID:       "p1",
		FullName: "Robert Smith",
		Emails:   database.JSONB[[]models.EmailAddress]{Data: []models.EmailAddress{{Label: "work", Address: "bob@corp.com"}}},
		Phones:   database.JSONB[[]string]{Data: []string{"555-0001"}},
	}
}

func TestMergeNameHandling(t *testing.T) {
	t.Run("nickname equivalent name merges silently", func(t *testing.T) {
		person := basePerson()
		res := newDetector().Merge(person, contacts.Record{FullName: "Bob Smith"}, accountID, accountLabel)

		assert.Equal(t, "Robert Smith", person.FullName)
		assert.Empty(t, res.Reviews)
	})

	t.Run("conflicting name flags review and keeps local", func(t *testing.T) {
		person := basePerson()
		res := newDetector().Merge(person, contacts.Record{FullName: "Roberta Smith"}, accountID, accountLabel)

		assert.Equal(t, "Robert Smith", person.FullName)
		require.Len(t, res.Reviews, 1)
		item := res.Reviews[0]
		assert.Equal(t, models.ReviewTypeNameConflict, item.Type)
		assert.Equal(t, "full_name", item.Field)
		assert.Equal(t, "Robert Smith", item.LocalValue)
		assert.Equal(t, "Roberta Smith", item.ExternalValue)
		assert.Equal(t, models.ReviewStatusPending, item.Status)
	})

	t.Run("empty local name fills from external", func(t *testing.T) {
		person := basePerson()
		person.FullName = ""
		res := newDetector().Merge(person, contacts.Record{FullName: "Robert Smith"}, accountID, accountLabel)

		assert.Equal(t, "Robert Smith", person.FullName)
		assert.Empty(t, res.Reviews)
		assert.Equal(t, "Robert Smith", res.Changed["full_name"])
	})
}

func TestMergeMultiValuedFields(t *testing.T) {
	t.Run("email union never raises reviews", func(t *testing.T) {
		person := basePerson()
		rec := contacts.Record{
			FullName: "Robert Smith",
			Emails:   []models.EmailAddress{{Label: "home", Address: "bob@home.net"}},
			Phones:   []string{"555-0002"},
		}
		res := newDetector().Merge(person, rec, accountID, accountLabel)

		assert.Empty(t, res.Reviews)
		assert.Len(t, person.Emails.Data, 2)
		assert.Len(t, person.Phones.Data, 2)
		assert.Contains(t, res.Changed, "emails")
		assert.Contains(t, res.Changed, "phones")
	})

	t.Run("duplicate values change nothing", func(t *testing.T) {
		person := basePerson()
		rec := contacts.Record{
			FullName: "Robert Smith",
			Emails:   []models.EmailAddress{{Label: "x", Address: "BOB@CORP.COM"}},
			Phones:   []string{"(555) 0001"},
		}
		res := newDetector().Merge(person, rec, accountID, accountLabel)

		assert.False(t, res.HasChanges())
		assert.Len(t, person.Emails.Data, 1)
		assert.Len(t, person.Phones.Data, 1)
	})
}

func TestMergeNotes(t *testing.T) {
	person := basePerson()
	person.Notes = "met at conference"
	rec := contacts.Record{FullName: "Robert Smith", Notes: "prefers email"}

	det := newDetector()
	res := det.Merge(person, rec, accountID, accountLabel)
	assert.Contains(t, person.Notes, "[synced from Work Google]\nprefers email")
	assert.Contains(t, res.Changed, "notes")
	assert.Empty(t, res.Reviews)

	// Second merge of the same note is a no-op.
	res = det.Merge(person, rec, accountID, accountLabel)
	assert.NotContains(t, res.Changed, "notes")
}

func TestMergeScalars(t *testing.T) {
	t.Run("empty local scalar fills", func(t *testing.T) {
		person := basePerson()
		res := newDetector().Merge(person, contacts.Record{FullName: "Robert Smith", Title: "Engineer"}, accountID, accountLabel)

		assert.Equal(t, "Engineer", person.Title)
		assert.Equal(t, "Engineer", res.Changed["title"])
		assert.Empty(t, res.Reviews)
	})

	t.Run("differing scalars flag data conflict and keep local", func(t *testing.T) {
		person := basePerson()
		person.Title = "Engineer"
		person.Location = "Warsaw"
		rec := contacts.Record{FullName: "Robert Smith", Title: "Manager", Location: "Krakow"}
		res := newDetector().Merge(person, rec, accountID, accountLabel)

		assert.Equal(t, "Engineer", person.Title)
		assert.Equal(t, "Warsaw", person.Location)
		require.Len(t, res.Reviews, 2)
		for _, item := range res.Reviews {
			assert.Equal(t, models.ReviewTypeDataConflict, item.Type)
		}
	})

	t.Run("equal scalars are quiet", func(t *testing.T) {
		person := basePerson()
		person.Title = "Engineer"
		res := newDetector().Merge(person, contacts.Record{FullName: "Robert Smith", Title: "engineer"}, accountID, accountLabel)

		assert.Empty(t, res.Reviews)
		assert.False(t, res.HasChanges())
	})
}
