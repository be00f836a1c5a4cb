// Package conflict compares a local person against the corresponding
// external record and decides per field what merges automatically and what
// goes to the review queue.
package conflict

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/perunhq/blackbook-sync/pkg/contacts"
	"github.com/perunhq/blackbook-sync/pkg/matching"
	"github.com/perunhq/blackbook-sync/pkg/merging"
	"github.com/perunhq/blackbook-sync/pkg/models"
)

// Resolution is the outcome of comparing one person against one external
// record: fields already applied to the person, plus review items to raise.
// Conflicting fields keep their local value until a review is resolved.
type Resolution struct {
	// Changed maps field name to the newly applied value, for the sync log.
	Changed map[string]any
	// Reviews are the conflicts that need manual resolution.
	Reviews []*models.ReviewItem
}

// HasChanges reports whether any field was applied.
func (r *Resolution) HasChanges() bool {
	return len(r.Changed) > 0
}

// Detector classifies field differences.
type Detector struct {
	matcher *matching.Matcher
}

// NewDetector creates a detector using the matcher's name-equivalence rules.
func NewDetector(matcher *matching.Matcher) *Detector {
	return &Detector{matcher: matcher}
}

// Merge applies the external record's auto-mergeable fields to the person in
// place and returns what changed and what needs review.
//
// Rules:
//   - name: untouched if exact (case-insensitive, trimmed) or
//     nickname-equivalent; otherwise a name_conflict review item
//   - emails, phones: union on normalized value, nothing dropped
//   - notes: merged under a provenance tag, idempotently
//   - other scalars: filled when local is empty; both non-empty and
//     different raises a data_conflict review item
func (d *Detector) Merge(person *models.Person, rec contacts.Record, accountID, accountLabel string) *Resolution {
	res := &Resolution{Changed: map[string]any{}}
	now := time.Now().UTC()

	// Name
	localName := strings.TrimSpace(person.FullName)
	extName := strings.TrimSpace(rec.FullName)
	if extName != "" && !strings.EqualFold(localName, extName) {
		if localName == "" {
			person.FullName = extName
			res.Changed["full_name"] = extName
		} else if !d.matcher.EquivalentNames(localName, extName) {
			res.Reviews = append(res.Reviews, d.newReview(person.ID, accountID, models.ReviewTypeNameConflict, "full_name", localName, extName, now))
		}
	}

	// Emails
	if emails, changed := merging.UnionEmails(person.Emails.Data, rec.Emails); changed {
		person.Emails.Data = emails
		res.Changed["emails"] = emails
	}

	// Phones
	if phones, changed := merging.UnionPhones(person.Phones.Data, rec.Phones); changed {
		person.Phones.Data = phones
		res.Changed["phones"] = phones
	}

	// Notes always auto-merge
	if merged := merging.MergeNotes(person.Notes, rec.Notes, accountLabel); merged != person.Notes {
		person.Notes = merged
		res.Changed["notes"] = merged
	}

	// Remaining scalars
	d.mergeScalar(person, res, "title", &person.Title, rec.Title, accountID, now)
	d.mergeScalar(person, res, "birthday", &person.Birthday, rec.Birthday, accountID, now)
	d.mergeScalar(person, res, "location", &person.Location, rec.Location, accountID, now)

	return res
}

func (d *Detector) mergeScalar(person *models.Person, res *Resolution, field string, local *string, external string, accountID string, now time.Time) {
	external = strings.TrimSpace(external)
	if external == "" || strings.EqualFold(strings.TrimSpace(*local), external) {
		return
	}
	if strings.TrimSpace(*local) == "" {
		*local = external
		res.Changed[field] = external
		return
	}
	res.Reviews = append(res.Reviews, d.newReview(person.ID, accountID, models.ReviewTypeDataConflict, field, *local, external, now))
}

func (d *Detector) newReview(personID, accountID string, reviewType models.ReviewType, field, localValue, externalValue string, now time.Time) *models.ReviewItem {
	acct := accountID
	return &models.ReviewItem{
		ID:            uuid.New().String(),
		PersonID:      personID,
		AccountID:     &acct,
		Type:          reviewType,
		Field:         field,
		LocalValue:    localValue,
		ExternalValue: externalValue,
		Status:        models.ReviewStatusPending,
		CreatedAt:     now,
	}
}
