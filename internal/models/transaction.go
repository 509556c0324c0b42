package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransactionType determines which references a transaction carries and how
// it moves money. The ledger engine dispatches on it.
type TransactionType string

const (
	TransactionTypeIncome     TransactionType = "income"
	TransactionTypeAllocation TransactionType = "allocation"
	TransactionTypeExpense    TransactionType = "expense"
	TransactionTypeTransfer   TransactionType = "transfer"
	TransactionTypePayoff     TransactionType = "payoff"
)

// Transaction represents a movement of money in the ledger.
//
// Balances are never written through transactions directly, all mutations go
// through the ledger engine so that the cached balances stay consistent with
// the transaction log.
type Transaction struct {
	DefaultModel
	Budget   Budget `json:"-"`
	BudgetID uuid.UUID

	Type   TransactionType
	Amount decimal.Decimal `gorm:"type:DECIMAL(20,8)"`
	Date   time.Time       // Time of day is currently only used for sorting
	Note   string

	FromEnvelopeID *uuid.UUID `gorm:"check:from_to_envelopes_different,from_envelope_id != to_envelope_id"`
	FromEnvelope   *Envelope  `json:"-"`
	ToEnvelopeID   *uuid.UUID
	ToEnvelope     *Envelope  `json:"-"`
	PayeeID        *uuid.UUID
	Payee          *Payee `json:"-"`
	IncomeSourceID *uuid.UUID
	IncomeSource   *IncomeSource `json:"-"`

	Cleared    bool // Has the transaction cleared the underlying real-world account?
	Reconciled bool // Has the transaction been confirmed against a statement?

	// DeletedBy records who soft-deleted the transaction. Deletion time is
	// tracked in DeletedAt.
	DeletedBy string

	// Pre-image of the debt envelope at the time a payoff transaction is
	// created. Payoffs zero the envelope, so reversing one needs the exact
	// values from before it was applied.
	PayoffBalanceSnapshot *decimal.Decimal `gorm:"type:DECIMAL(20,8)"`
	PayoffTargetSnapshot  *decimal.Decimal `gorm:"type:DECIMAL(20,8)"`
}

// AfterFind updates the timestamps to use UTC as
// timezone, not +0000. Yes, this is different.
//
// We already store them in UTC, but somehow reading
// them from the database returns them as +0000.
func (t *Transaction) AfterFind(tx *gorm.DB) (err error) {
	err = t.DefaultModel.AfterFind(tx)
	if err != nil {
		return err
	}

	t.Date = t.Date.In(time.UTC)
	return
}

// BeforeSave
//   - sets the timezone for the Date to UTC
//   - normalizes unset references to nil
//   - trims whitespace from string fields
func (t *Transaction) BeforeSave(_ *gorm.DB) (err error) {
	t.Note = strings.TrimSpace(t.Note)
	t.DeletedBy = strings.TrimSpace(t.DeletedBy)

	// Ensure that unset references are nil and not pointers to a nil UUID
	for _, id := range []**uuid.UUID{&t.FromEnvelopeID, &t.ToEnvelopeID, &t.PayeeID, &t.IncomeSourceID} {
		if *id != nil && **id == uuid.Nil {
			*id = nil
		}
	}

	if t.Date.IsZero() {
		t.Date = time.Now().In(time.UTC)
	} else {
		t.Date = t.Date.In(time.UTC)
	}

	return
}

// Active reports whether the transaction contributes to balances.
func (t Transaction) Active() bool {
	return t.DeletedAt == nil || !t.DeletedAt.Valid
}

// Returns all transactions on this instance for export
func (Transaction) Export() (json.RawMessage, error) {
	var transactions []Transaction
	err := DB.Unscoped().Where(&Transaction{}).Find(&transactions).Error
	if err != nil {
		return nil, err
	}

	j, err := json.Marshal(&transactions)
	if err != nil {
		return json.RawMessage{}, err
	}
	return json.RawMessage(j), nil
}
