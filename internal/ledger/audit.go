package ledger

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/moneyfold/backend/internal/models"
	"gorm.io/gorm"
)

// The audit trail appends one event per transaction mutation. Events are
// written in the same database transaction as the mutation, a failed audit
// write therefore rolls back the mutation. Auditability is a correctness
// property of this ledger, not best-effort logging.

// fieldChange is one entry of the diff of an updated event.
type fieldChange struct {
	From interface{} `json:"from"`
	To   interface{} `json:"to"`
}

// record appends the audit event for a transaction mutation.
//
// The event type is passed by the engine since created, deleted and restored
// events are classified structurally from the deletion state transition.
// Only genuine updates carry a field-level diff.
func record(tx *gorm.DB, eventType models.EventType, old, new *models.Transaction, actor string, overridden bool) error {
	event := models.TransactionEvent{
		Type:            eventType,
		Actor:           actor,
		OverrideApplied: overridden,
	}

	switch {
	case new != nil:
		event.TransactionID = new.ID
	case old != nil:
		event.TransactionID = old.ID
	}

	if eventType == models.EventTypeUpdated {
		changes, err := diff(*old, *new)
		if err != nil {
			return err
		}

		event.Changes = changes
	}

	return tx.Create(&event).Error
}

// diff returns the changed fields of a transaction as JSON.
func diff(old, new models.Transaction) (string, error) {
	changes := make(map[string]fieldChange)

	if old.Type != new.Type {
		changes["type"] = fieldChange{old.Type, new.Type}
	}

	if !old.Amount.Equal(new.Amount) {
		changes["amount"] = fieldChange{old.Amount, new.Amount}
	}

	if !old.Date.Equal(new.Date) {
		changes["date"] = fieldChange{old.Date, new.Date}
	}

	if old.Note != new.Note {
		changes["note"] = fieldChange{old.Note, new.Note}
	}

	for _, ref := range []struct {
		name     string
		old, new *uuid.UUID
	}{
		{"fromEnvelopeId", old.FromEnvelopeID, new.FromEnvelopeID},
		{"toEnvelopeId", old.ToEnvelopeID, new.ToEnvelopeID},
		{"payeeId", old.PayeeID, new.PayeeID},
		{"incomeSourceId", old.IncomeSourceID, new.IncomeSourceID},
	} {
		if !referencesEqual(ref.old, ref.new) {
			changes[ref.name] = fieldChange{ref.old, ref.new}
		}
	}

	if old.Cleared != new.Cleared {
		changes["cleared"] = fieldChange{old.Cleared, new.Cleared}
	}

	if old.Reconciled != new.Reconciled {
		changes["reconciled"] = fieldChange{old.Reconciled, new.Reconciled}
	}

	j, err := json.Marshal(changes)
	if err != nil {
		return "", err
	}

	return string(j), nil
}

func referencesEqual(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}

	return *a == *b
}
