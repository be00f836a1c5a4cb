package models

import (
	"time"

	"github.com/perunhq/blackbook-sync/pkg/database"
)

// DeletedFrom identifies which side initiated the deletion that produced an
// archive snapshot.
const (
	DeletedFromLocal    = "local"
	DeletedFromExternal = "external"
)

// ArchivedPerson is a point-in-time snapshot of a person captured immediately
// before a delete. An entry is either live (unexpired, unrestored) or
// terminal (restored, or expired and eligible for purge).
type ArchivedPerson struct {
	ID               string                 `db:"id" json:"id"`
	PersonID         string                 `db:"person_id" json:"person_id"`
	DeletedFrom      string                 `db:"deleted_from" json:"deleted_from"`
	AccountID        *string                `db:"account_id" json:"account_id,omitempty"`
	Snapshot         database.JSONB[Person] `db:"snapshot" json:"snapshot"`
	ArchivedAt       time.Time              `db:"archived_at" json:"archived_at"`
	ExpiresAt        time.Time              `db:"expires_at" json:"expires_at"`
	RestoredAt       *time.Time             `db:"restored_at" json:"restored_at,omitempty"`
	RestoredPersonID *string                `db:"restored_person_id" json:"restored_person_id,omitempty"`
}

// Restorable reports whether the entry can still be restored at the given time.
func (a *ArchivedPerson) Restorable(now time.Time) bool {
	return a.RestoredAt == nil && now.Before(a.ExpiresAt)
}
