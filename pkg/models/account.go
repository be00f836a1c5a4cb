package models

import (
	"time"

	"github.com/perunhq/blackbook-sync/pkg/database"
)

// ExternalAccount is one connected external contact source.
type ExternalAccount struct {
	ID          string                          `db:"id" json:"id"`
	Provider    string                          `db:"provider" json:"provider"`
	Label       string                          `db:"label" json:"label"`
	SyncEnabled bool                            `db:"sync_enabled" json:"sync_enabled"`
	Config      database.JSONB[map[string]any]  `db:"config" json:"config"`
	LastSyncAt  *time.Time                      `db:"last_sync_at" json:"last_sync_at,omitempty"`
	NextSyncAt  *time.Time                      `db:"next_sync_at" json:"next_sync_at,omitempty"`
	CreatedAt   time.Time                       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time                       `db:"updated_at" json:"updated_at"`
}
