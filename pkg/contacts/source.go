// Package contacts defines the external contact source adapter interface the
// sync orchestrator consumes, one instance per connected account.
package contacts

import (
	"context"

	"github.com/perunhq/blackbook-sync/pkg/models"
)

// Record is one contact as seen by an external source. ResourceID is the
// external system's stable identifier for the contact.
type Record struct {
	ResourceID string                `json:"resource_id"`
	FullName   string                `json:"full_name"`
	Title      string                `json:"title"`
	Birthday   string                `json:"birthday"`
	Location   string                `json:"location"`
	Notes      string                `json:"notes"`
	Emails     []models.EmailAddress `json:"emails"`
	Phones     []string              `json:"phones"`
}

// Source is the capability set required of any external contact source. Every
// call is a fallible remote call; implementations classify failures with
// Transient or Permanent so the caller knows what is safe to retry.
type Source interface {
	// List returns all contacts in the account with stable resource ids.
	List(ctx context.Context) ([]Record, error)
	// Create adds a contact and returns the new resource id. Creates are NOT
	// assumed idempotent; callers must check the stored resource id first.
	Create(ctx context.Context, rec Record) (string, error)
	// Update replaces the contact's fields.
	Update(ctx context.Context, resourceID string, rec Record) error
	// Delete removes the contact.
	Delete(ctx context.Context, resourceID string) error
}

// Factory builds a Source for one external account.
type Factory func(account *models.ExternalAccount) (Source, error)
