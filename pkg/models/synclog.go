package models

import (
	"time"

	"github.com/perunhq/blackbook-sync/pkg/database"
)

// SyncDirection is the direction of one sync operation.
type SyncDirection string

const (
	DirectionExternalToLocal SyncDirection = "external_to_local"
	DirectionLocalToExternal SyncDirection = "local_to_external"
)

// SyncAction is the kind of mutation a sync operation performed.
type SyncAction string

const (
	ActionCreate  SyncAction = "create"
	ActionUpdate  SyncAction = "update"
	ActionDelete  SyncAction = "delete"
	ActionArchive SyncAction = "archive"
	ActionRestore SyncAction = "restore"
)

// SyncLogStatus is the outcome of one sync operation.
type SyncLogStatus string

const (
	SyncLogStatusSuccess       SyncLogStatus = "success"
	SyncLogStatusFailed        SyncLogStatus = "failed"
	SyncLogStatusPendingReview SyncLogStatus = "pending_review"
)

// SyncLogEntry is the immutable record of one sync operation. Append-only;
// person and account references are best-effort since either may be deleted
// later.
type SyncLogEntry struct {
	ID        string                         `db:"id" json:"id"`
	PersonID  *string                        `db:"person_id" json:"person_id,omitempty"`
	AccountID *string                        `db:"account_id" json:"account_id,omitempty"`
	Direction SyncDirection                  `db:"direction" json:"direction"`
	Action    SyncAction                     `db:"action" json:"action"`
	Status    SyncLogStatus                  `db:"status" json:"status"`
	Fields    database.JSONB[map[string]any] `db:"fields" json:"fields"`
	Error     *string                        `db:"error" json:"error,omitempty"`
	CreatedAt time.Time                      `db:"created_at" json:"created_at"`
}
