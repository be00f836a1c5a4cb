// Package models defines the persisted entities of the sync core.
package models

import (
	"time"

	"github.com/perunhq/blackbook-sync/pkg/database"
)

// SyncStatus tracks where a person stands relative to the connected accounts.
type SyncStatus string

const (
	SyncStatusPending SyncStatus = "pending"
	SyncStatusSynced  SyncStatus = "synced"
	SyncStatusError   SyncStatus = "error"
)

// EmailAddress is one labeled email on a person.
type EmailAddress struct {
	Label   string `json:"label"`
	Address string `json:"address"`
}

// Person is the canonical local contact record. The record store owns it;
// sync passes and user edits are the only writers.
type Person struct {
	ID       string `db:"id" json:"id"`
	FullName string `db:"full_name" json:"full_name"`
	Title    string `db:"title" json:"title"`
	Birthday string `db:"birthday" json:"birthday"`
	Location string `db:"location" json:"location"`
	Notes    string `db:"notes" json:"notes"`

	Emails database.JSONB[[]EmailAddress] `db:"emails" json:"emails"`
	Phones database.JSONB[[]string]       `db:"phones" json:"phones"`

	// ExternalContactIDs maps an external account id to that account's stable
	// resource identifier for this contact.
	ExternalContactIDs database.JSONB[map[string]string] `db:"external_contact_ids" json:"external_contact_ids"`

	SyncStatus   SyncStatus `db:"sync_status" json:"sync_status"`
	SyncEnabled  bool       `db:"sync_enabled" json:"sync_enabled"`
	LastSyncedAt *time.Time `db:"last_synced_at" json:"last_synced_at,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ResourceID returns the external resource id for an account, if mapped.
func (p *Person) ResourceID(accountID string) (string, bool) {
	if p.ExternalContactIDs.Data == nil {
		return "", false
	}
	id, ok := p.ExternalContactIDs.Data[accountID]
	return id, ok && id != ""
}

// SetResourceID records the external resource id for an account.
func (p *Person) SetResourceID(accountID, resourceID string) {
	if p.ExternalContactIDs.Data == nil {
		p.ExternalContactIDs.Data = map[string]string{}
	}
	p.ExternalContactIDs.Data[accountID] = resourceID
}
