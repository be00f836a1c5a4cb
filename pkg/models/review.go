package models

import "time"

// ReviewType classifies a flagged conflict.
type ReviewType string

const (
	ReviewTypeNameConflict ReviewType = "name_conflict"
	ReviewTypeDataConflict ReviewType = "data_conflict"
)

// ReviewStatus is the lifecycle of a review item. Items transition out of
// pending only through explicit user action.
type ReviewStatus string

const (
	ReviewStatusPending   ReviewStatus = "pending"
	ReviewStatusResolved  ReviewStatus = "resolved"
	ReviewStatusDismissed ReviewStatus = "dismissed"
)

// ReviewItem is a conflict awaiting manual resolution. Created only by the
// conflict detector; the local field keeps its value until resolved.
type ReviewItem struct {
	ID            string       `db:"id" json:"id"`
	PersonID      string       `db:"person_id" json:"person_id"`
	AccountID     *string      `db:"account_id" json:"account_id,omitempty"`
	Type          ReviewType   `db:"type" json:"type"`
	Field         string       `db:"field" json:"field"`
	LocalValue    string       `db:"local_value" json:"local_value"`
	ExternalValue string       `db:"external_value" json:"external_value"`
	Status        ReviewStatus `db:"status" json:"status"`
	Resolution    *string      `db:"resolution" json:"resolution,omitempty"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
	ResolvedAt    *time.Time   `db:"resolved_at" json:"resolved_at,omitempty"`
}
