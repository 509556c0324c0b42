// Package ledger is the consistency engine of the backend.
//
// Every mutation of the transaction log goes through it: it validates the
// shape of a transaction against its type, applies the monetary effect to
// the cached balances of the affected budget, envelopes and payees,
// recomputes the category totals the mutation touched and appends an audit
// event. All of this happens in a single database transaction, so a mutation
// either takes full effect or none at all.
package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/moneyfold/backend/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Options configure how the engine applies a mutation.
type Options struct {
	// Actor is recorded in the audit event and, for deletions, on the
	// transaction itself.
	Actor string

	// AllowInsufficientFunds applies the mutation even when the funds check
	// fails. The caller is expected to have confirmed this with the user,
	// the override is recorded in the audit event.
	AllowInsufficientFunds bool
}

// Create validates and applies a new transaction.
func Create(db *gorm.DB, transaction models.Transaction, opt Options) (models.Transaction, error) {
	err := db.Transaction(func(tx *gorm.DB) error {
		f, err := flowFor(transaction)
		if err != nil {
			return err
		}

		err = checkOwnership(tx, transaction)
		if err != nil {
			return err
		}

		// Payoffs zero the envelope, so the pre-image is stored on the
		// transaction to make reversal exact
		if transaction.Type == models.TransactionTypePayoff {
			envelope, err := getEnvelope(tx, *transaction.FromEnvelopeID)
			if err != nil {
				return err
			}

			if envelope.Type != models.EnvelopeTypeDebt {
				return ErrNotDebtEnvelope
			}

			balance, target := envelope.CurrentBalance, envelope.TargetAmount
			transaction.PayoffBalanceSnapshot = &balance
			transaction.PayoffTargetSnapshot = &target
		}

		overridden, err := checkFunds(tx, f, transaction, opt)
		if err != nil {
			return err
		}

		err = tx.Create(&transaction).Error
		if err != nil {
			return err
		}

		err = f.apply(tx, transaction)
		if err != nil {
			return err
		}

		err = recomputeForEnvelopes(tx, f.envelopeIDs())
		if err != nil {
			return err
		}

		return record(tx, models.EventTypeCreated, nil, &transaction, opt.Actor, overridden)
	})
	if err != nil {
		return models.Transaction{}, translate(err)
	}

	return transaction, nil
}

// TransactionPatch is a partial update of a transaction. Nil fields are left
// unchanged. Reference fields are cleared by setting them to the nil UUID.
type TransactionPatch struct {
	Type           *models.TransactionType
	Amount         *decimal.Decimal
	Date           *time.Time
	Note           *string
	FromEnvelopeID *uuid.UUID
	ToEnvelopeID   *uuid.UUID
	PayeeID        *uuid.UUID
	IncomeSourceID *uuid.UUID
	Cleared        *bool
	Reconciled     *bool
}

func (p TransactionPatch) applyTo(t models.Transaction) models.Transaction {
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	if p.Note != nil {
		t.Note = *p.Note
	}
	patchReference(&t.FromEnvelopeID, p.FromEnvelopeID)
	patchReference(&t.ToEnvelopeID, p.ToEnvelopeID)
	patchReference(&t.PayeeID, p.PayeeID)
	patchReference(&t.IncomeSourceID, p.IncomeSourceID)
	if p.Cleared != nil {
		t.Cleared = *p.Cleared
	}
	if p.Reconciled != nil {
		t.Reconciled = *p.Reconciled
	}

	return t
}

// patchReference applies a reference patch to a field. The nil UUID clears
// the reference.
func patchReference(field **uuid.UUID, patch *uuid.UUID) {
	if patch == nil {
		return
	}

	if *patch == uuid.Nil {
		*field = nil
		return
	}

	id := *patch
	*field = &id
}

// Update amends a transaction: the effect of the old field values is
// reversed and the effect of the new ones applied, as one atomic step.
//
// Payoff transactions cannot be amended and a transaction cannot be amended
// into a payoff, since the envelope pre-image is only captured at creation.
func Update(db *gorm.DB, id uuid.UUID, patch TransactionPatch, opt Options) (models.Transaction, error) {
	var amended models.Transaction

	err := db.Transaction(func(tx *gorm.DB) error {
		var old models.Transaction
		err := tx.Unscoped().First(&old, id).Error
		if err != nil {
			return err
		}

		if !old.Active() {
			return ErrTransactionDeleted
		}

		if old.Type == models.TransactionTypePayoff || (patch.Type != nil && *patch.Type == models.TransactionTypePayoff) {
			return ErrPayoffImmutable
		}

		amended = patch.applyTo(old)

		oldFlow, err := flowFor(old)
		if err != nil {
			return err
		}

		newFlow, err := flowFor(amended)
		if err != nil {
			return err
		}

		err = checkOwnership(tx, amended)
		if err != nil {
			return err
		}

		// Reverse the old effect first so that funds it held are available
		// to the new one
		err = oldFlow.reverse(tx, old)
		if err != nil {
			return err
		}

		overridden, err := checkFunds(tx, newFlow, amended, opt)
		if err != nil {
			return err
		}

		err = newFlow.apply(tx, amended)
		if err != nil {
			return err
		}

		err = tx.Save(&amended).Error
		if err != nil {
			return err
		}

		err = recomputeForEnvelopes(tx, append(oldFlow.envelopeIDs(), newFlow.envelopeIDs()...))
		if err != nil {
			return err
		}

		return record(tx, models.EventTypeUpdated, &old, &amended, opt.Actor, overridden)
	})
	if err != nil {
		return models.Transaction{}, translate(err)
	}

	return amended, nil
}

// SoftDelete reverses the effect of a transaction and marks it deleted.
// The record is retained for the audit trail and can be restored.
func SoftDelete(db *gorm.DB, id uuid.UUID, opt Options) error {
	err := db.Transaction(func(tx *gorm.DB) error {
		var transaction models.Transaction
		err := tx.Unscoped().First(&transaction, id).Error
		if err != nil {
			return err
		}

		if !transaction.Active() {
			return ErrTransactionDeleted
		}

		f, err := flowFor(transaction)
		if err != nil {
			return err
		}

		err = f.reverse(tx, transaction)
		if err != nil {
			return err
		}

		err = tx.Model(&transaction).UpdateColumn("deleted_by", opt.Actor).Error
		if err != nil {
			return err
		}

		err = tx.Delete(&transaction).Error
		if err != nil {
			return err
		}

		err = recomputeForEnvelopes(tx, f.envelopeIDs())
		if err != nil {
			return err
		}

		return record(tx, models.EventTypeDeleted, &transaction, nil, opt.Actor, false)
	})

	return translate(err)
}

// Restore undoes a soft deletion and reapplies the effect of the
// transaction, returning every affected balance to its pre-deletion value.
func Restore(db *gorm.DB, id uuid.UUID, opt Options) error {
	err := db.Transaction(func(tx *gorm.DB) error {
		var transaction models.Transaction
		err := tx.Unscoped().First(&transaction, id).Error
		if err != nil {
			return err
		}

		if transaction.Active() {
			return ErrTransactionNotDeleted
		}

		f, err := flowFor(transaction)
		if err != nil {
			return err
		}

		overridden, err := checkFunds(tx, f, transaction, opt)
		if err != nil {
			return err
		}

		err = tx.Unscoped().Model(&transaction).UpdateColumns(map[string]interface{}{
			"deleted_at": nil,
			"deleted_by": "",
		}).Error
		if err != nil {
			return err
		}

		err = f.apply(tx, transaction)
		if err != nil {
			return err
		}

		err = recomputeForEnvelopes(tx, f.envelopeIDs())
		if err != nil {
			return err
		}

		return record(tx, models.EventTypeRestored, nil, &transaction, opt.Actor, overridden)
	})

	return translate(err)
}

// checkFunds runs the funds check of the flow and applies the override
// policy from the options. It reports whether an override was used.
func checkFunds(tx *gorm.DB, f flow, t models.Transaction, opt Options) (bool, error) {
	err := f.check(tx, t)
	if err == nil {
		return false, nil
	}

	if errors.Is(err, ErrInsufficientFunds) && opt.AllowInsufficientFunds {
		return true, nil
	}

	return false, err
}

// checkOwnership verifies that every referenced resource belongs to the
// budget of the transaction.
func checkOwnership(tx *gorm.DB, t models.Transaction) error {
	err := tx.First(&models.Budget{}, t.BudgetID).Error
	if err != nil {
		return err
	}

	for name, id := range map[string]*uuid.UUID{
		"source envelope":      t.FromEnvelopeID,
		"destination envelope": t.ToEnvelopeID,
	} {
		if id == nil {
			continue
		}

		envelope, err := getEnvelope(tx, *id)
		if err != nil {
			return err
		}

		if envelope.BudgetID != t.BudgetID {
			return fmt.Errorf("%w: the %s belongs to another budget", ErrCrossBudget, name)
		}
	}

	if t.PayeeID != nil {
		var payee models.Payee
		err := tx.First(&payee, *t.PayeeID).Error
		if err != nil {
			return err
		}

		if payee.BudgetID != t.BudgetID {
			return fmt.Errorf("%w: the payee belongs to another budget", ErrCrossBudget)
		}
	}

	if t.IncomeSourceID != nil {
		var source models.IncomeSource
		err := tx.First(&source, *t.IncomeSourceID).Error
		if err != nil {
			return err
		}

		if source.BudgetID != t.BudgetID {
			return fmt.Errorf("%w: the income source belongs to another budget", ErrCrossBudget)
		}
	}

	return nil
}

// translate maps serialization failures of the storage layer to ErrConflict
// so that callers know the operation is safe to retry.
func translate(err error) error {
	if err == nil {
		return nil
	}

	msg := err.Error()
	if strings.Contains(msg, "database is locked") || // sqlite
		strings.Contains(msg, "could not serialize access") { // postgres
		return fmt.Errorf("%w: %s", ErrConflict, msg)
	}

	return err
}
