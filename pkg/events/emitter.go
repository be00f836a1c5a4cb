// Package events emits sync lifecycle events. A nil emitter (or one without a
// producer) drops everything, which is the default for self-hosted installs
// without Kafka.
package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"

	"github.com/perunhq/blackbook-sync/pkg/kafka"
	"github.com/perunhq/blackbook-sync/pkg/models"
	"github.com/perunhq/blackbook-sync/pkg/tracing"
)

// Event types on the sync stream.
const (
	EventPassCompleted   = "sync.pass.completed"
	EventPersonSynced    = "person.synced"
	EventPersonArchived  = "person.archived"
	EventPersonRestored  = "person.restored"
	EventConflictFlagged = "conflict.flagged"
)

// Emitter publishes sync events to the stream.
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates an event emitter. producer may be nil; emission is then
// a no-op.
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

func (e *Emitter) enabled() bool {
	return e != nil && e.producer != nil
}

// EmitPassCompleted emits the summary of a finished sync pass.
func (e *Emitter) EmitPassCompleted(ctx context.Context, result *models.PassResult) error {
	if !e.enabled() {
		return nil
	}
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitPassCompleted")
	defer span.End()

	data, _ := json.Marshal(result)
	event := &kafka.SyncEvent{
		EventType: EventPassCompleted,
		Data:      data,
	}

	if err := e.producer.PublishSyncEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit sync.pass.completed event")
		return err
	}
	return nil
}

// EmitPersonSynced emits one successful person mutation during sync.
func (e *Emitter) EmitPersonSynced(ctx context.Context, personID, accountID string, direction models.SyncDirection, action models.SyncAction) error {
	if !e.enabled() {
		return nil
	}
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitPersonSynced")
	defer span.End()

	data, _ := json.Marshal(map[string]any{
		"direction": direction,
		"action":    action,
	})
	event := &kafka.SyncEvent{
		EventType: EventPersonSynced,
		PersonID:  personID,
		AccountID: accountID,
		Data:      data,
	}

	if err := e.producer.PublishSyncEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit person.synced event")
		return err
	}
	return nil
}

// EmitPersonArchived emits an archive snapshot event.
func (e *Emitter) EmitPersonArchived(ctx context.Context, archive *models.ArchivedPerson) error {
	if !e.enabled() {
		return nil
	}
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitPersonArchived")
	defer span.End()

	data, _ := json.Marshal(map[string]any{
		"archive_id":   archive.ID,
		"deleted_from": archive.DeletedFrom,
		"expires_at":   archive.ExpiresAt,
	})
	event := &kafka.SyncEvent{
		EventType: EventPersonArchived,
		PersonID:  archive.PersonID,
		Data:      data,
	}
	if archive.AccountID != nil {
		event.AccountID = *archive.AccountID
	}

	if err := e.producer.PublishSyncEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit person.archived event")
		return err
	}
	return nil
}

// EmitPersonRestored emits a restore event carrying the new person id.
func (e *Emitter) EmitPersonRestored(ctx context.Context, archive *models.ArchivedPerson, newPersonID string) error {
	if !e.enabled() {
		return nil
	}
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitPersonRestored")
	defer span.End()

	data, _ := json.Marshal(map[string]any{
		"archive_id":         archive.ID,
		"original_person_id": archive.PersonID,
	})
	event := &kafka.SyncEvent{
		EventType: EventPersonRestored,
		PersonID:  newPersonID,
		Data:      data,
	}

	if err := e.producer.PublishSyncEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit person.restored event")
		return err
	}
	return nil
}

// EmitConflictFlagged emits a review-queue event for a flagged conflict.
func (e *Emitter) EmitConflictFlagged(ctx context.Context, item *models.ReviewItem) error {
	if !e.enabled() {
		return nil
	}
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitConflictFlagged")
	defer span.End()

	data, _ := json.Marshal(map[string]any{
		"review_id": item.ID,
		"type":      item.Type,
		"field":     item.Field,
	})
	event := &kafka.SyncEvent{
		EventType: EventConflictFlagged,
		PersonID:  item.PersonID,
		Data:      data,
	}
	if item.AccountID != nil {
		event.AccountID = *item.AccountID
	}

	if err := e.producer.PublishSyncEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit conflict.flagged event")
		return err
	}
	return nil
}
