package models

import (
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EventType classifies a transaction mutation.
type EventType string

const (
	EventTypeCreated  EventType = "created"
	EventTypeUpdated  EventType = "updated"
	EventTypeDeleted  EventType = "deleted"
	EventTypeRestored EventType = "restored"
)

// TransactionEvent is the audit record for one transaction mutation.
//
// Events are append-only. They are written in the same database transaction
// as the mutation they describe, so a failed audit write rolls back the
// mutation itself.
type TransactionEvent struct {
	DefaultModel

	// The association carries no database constraint. Events must survive
	// the retention cleanup hard-deleting their transaction.
	Transaction   Transaction `json:"-" gorm:"constraint:-"`
	TransactionID uuid.UUID   `gorm:"index"`

	Type EventType

	// Changes holds the field-level diff as JSON for updated events.
	// It is empty for events that are classified structurally.
	Changes string

	// Actor is the authenticated user the API layer handed to the engine.
	Actor string

	// OverrideApplied records that the mutation was applied although it
	// failed the insufficient funds check.
	OverrideApplied bool
}

// BeforeUpdate blocks all updates, the audit trail is append-only.
func (e *TransactionEvent) BeforeUpdate(_ *gorm.DB) error {
	return ErrEventImmutable
}

// BeforeDelete blocks all deletes, the audit trail is append-only.
func (e *TransactionEvent) BeforeDelete(_ *gorm.DB) error {
	return ErrEventImmutable
}

// Returns all transaction events on this instance for export
func (TransactionEvent) Export() (json.RawMessage, error) {
	var events []TransactionEvent
	err := DB.Unscoped().Where(&TransactionEvent{}).Find(&events).Error
	if err != nil {
		return nil, err
	}

	j, err := json.Marshal(&events)
	if err != nil {
		return json.RawMessage{}, err
	}
	return json.RawMessage(j), nil
}
