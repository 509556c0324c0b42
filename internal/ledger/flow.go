package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/moneyfold/backend/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// flow is the monetary effect of a transaction on the entities it references.
//
// There is one implementation per transaction type and each carries exactly
// the references its type permits, so a malformed transaction cannot even be
// represented once it passed flowFor.
type flow interface {
	// check verifies that the affected entities have sufficient funds.
	// A failed check may be overridden by the caller, see Options.
	check(tx *gorm.DB, t models.Transaction) error

	// apply applies the effect once. reverse is its exact inverse.
	apply(tx *gorm.DB, t models.Transaction) error
	reverse(tx *gorm.DB, t models.Transaction) error

	// envelopeIDs returns the envelopes whose balance the flow touches,
	// for the category cascade.
	envelopeIDs() []uuid.UUID
}

// flowFor validates the reference shape of a transaction against its type
// and returns the matching flow.
//
// The rules per type are:
//
//	income:     income source only
//	allocation: destination envelope only
//	expense:    source envelope and payee
//	transfer:   source and destination envelope, different ones
//	payoff:     source envelope only, which must be a debt envelope
func flowFor(t models.Transaction) (flow, error) {
	if !t.Amount.IsPositive() {
		return nil, ErrAmountNotPositive
	}

	if t.Date.After(time.Now().In(time.UTC).AddDate(0, 0, 1)) {
		return nil, ErrDateTooFarAhead
	}

	switch t.Type {
	case models.TransactionTypeIncome:
		if t.FromEnvelopeID != nil || t.ToEnvelopeID != nil || t.PayeeID != nil {
			return nil, fmt.Errorf("%w: income transactions must only reference an income source", ErrFlow)
		}
		if t.IncomeSourceID == nil {
			return nil, fmt.Errorf("%w: income transactions need an income source", ErrFlow)
		}
		return incomeFlow{source: *t.IncomeSourceID}, nil

	case models.TransactionTypeAllocation:
		if t.FromEnvelopeID != nil || t.PayeeID != nil || t.IncomeSourceID != nil {
			return nil, fmt.Errorf("%w: allocations must only reference a destination envelope", ErrFlow)
		}
		if t.ToEnvelopeID == nil {
			return nil, fmt.Errorf("%w: allocations need a destination envelope", ErrFlow)
		}
		return allocationFlow{to: *t.ToEnvelopeID}, nil

	case models.TransactionTypeExpense:
		if t.ToEnvelopeID != nil || t.IncomeSourceID != nil {
			return nil, fmt.Errorf("%w: expenses must only reference a source envelope and a payee", ErrFlow)
		}
		if t.FromEnvelopeID == nil || t.PayeeID == nil {
			return nil, fmt.Errorf("%w: expenses need a source envelope and a payee", ErrFlow)
		}
		return expenseFlow{from: *t.FromEnvelopeID, payee: *t.PayeeID}, nil

	case models.TransactionTypeTransfer:
		if t.PayeeID != nil || t.IncomeSourceID != nil {
			return nil, fmt.Errorf("%w: transfers must only reference envelopes", ErrFlow)
		}
		if t.FromEnvelopeID == nil || t.ToEnvelopeID == nil {
			return nil, fmt.Errorf("%w: transfers need a source and a destination envelope", ErrFlow)
		}
		if *t.FromEnvelopeID == *t.ToEnvelopeID {
			return nil, ErrSameEnvelope
		}
		return transferFlow{from: *t.FromEnvelopeID, to: *t.ToEnvelopeID}, nil

	case models.TransactionTypePayoff:
		if t.ToEnvelopeID != nil || t.PayeeID != nil || t.IncomeSourceID != nil {
			return nil, fmt.Errorf("%w: payoffs must only reference a source envelope", ErrFlow)
		}
		if t.FromEnvelopeID == nil {
			return nil, fmt.Errorf("%w: payoffs need a source envelope", ErrFlow)
		}
		return payoffFlow{from: *t.FromEnvelopeID}, nil
	}

	return nil, fmt.Errorf("%w: unknown transaction type %q", ErrFlow, t.Type)
}

type incomeFlow struct {
	source uuid.UUID
}

func (f incomeFlow) check(_ *gorm.DB, _ models.Transaction) error {
	return nil
}

func (f incomeFlow) apply(tx *gorm.DB, t models.Transaction) error {
	return addToBudget(tx, t.BudgetID, t.Amount)
}

func (f incomeFlow) reverse(tx *gorm.DB, t models.Transaction) error {
	return addToBudget(tx, t.BudgetID, t.Amount.Neg())
}

func (f incomeFlow) envelopeIDs() []uuid.UUID {
	return nil
}

type allocationFlow struct {
	to uuid.UUID
}

func (f allocationFlow) check(tx *gorm.DB, t models.Transaction) error {
	var budget models.Budget
	err := tx.First(&budget, t.BudgetID).Error
	if err != nil {
		return err
	}

	if budget.AvailableAmount.LessThan(t.Amount) {
		return fmt.Errorf("%w: only %s is available for allocation", ErrInsufficientFunds, budget.AvailableAmount)
	}

	return nil
}

func (f allocationFlow) apply(tx *gorm.DB, t models.Transaction) error {
	err := addToBudget(tx, t.BudgetID, t.Amount.Neg())
	if err != nil {
		return err
	}

	return addToEnvelope(tx, f.to, t.Amount, decimal.Zero)
}

func (f allocationFlow) reverse(tx *gorm.DB, t models.Transaction) error {
	err := addToBudget(tx, t.BudgetID, t.Amount)
	if err != nil {
		return err
	}

	return addToEnvelope(tx, f.to, t.Amount.Neg(), decimal.Zero)
}

func (f allocationFlow) envelopeIDs() []uuid.UUID {
	return []uuid.UUID{f.to}
}

type expenseFlow struct {
	from  uuid.UUID
	payee uuid.UUID
}

func (f expenseFlow) check(tx *gorm.DB, t models.Transaction) error {
	return checkEnvelopeFunds(tx, f.from, t.Amount)
}

func (f expenseFlow) apply(tx *gorm.DB, t models.Transaction) error {
	envelope, err := getEnvelope(tx, f.from)
	if err != nil {
		return err
	}

	// Paying from a debt envelope also reduces the amount still owed
	targetDelta := decimal.Zero
	if envelope.Type == models.EnvelopeTypeDebt {
		targetDelta = t.Amount.Neg()
	}

	err = addToEnvelope(tx, f.from, t.Amount.Neg(), targetDelta)
	if err != nil {
		return err
	}

	return applyPayeePayment(tx, f.payee, t)
}

func (f expenseFlow) reverse(tx *gorm.DB, t models.Transaction) error {
	envelope, err := getEnvelope(tx, f.from)
	if err != nil {
		return err
	}

	targetDelta := decimal.Zero
	if envelope.Type == models.EnvelopeTypeDebt {
		targetDelta = t.Amount
	}

	err = addToEnvelope(tx, f.from, t.Amount, targetDelta)
	if err != nil {
		return err
	}

	return reversePayeePayment(tx, f.payee, t)
}

func (f expenseFlow) envelopeIDs() []uuid.UUID {
	return []uuid.UUID{f.from}
}

type transferFlow struct {
	from uuid.UUID
	to   uuid.UUID
}

func (f transferFlow) check(tx *gorm.DB, t models.Transaction) error {
	return checkEnvelopeFunds(tx, f.from, t.Amount)
}

func (f transferFlow) apply(tx *gorm.DB, t models.Transaction) error {
	err := addToEnvelope(tx, f.from, t.Amount.Neg(), decimal.Zero)
	if err != nil {
		return err
	}

	return addToEnvelope(tx, f.to, t.Amount, decimal.Zero)
}

func (f transferFlow) reverse(tx *gorm.DB, t models.Transaction) error {
	err := addToEnvelope(tx, f.from, t.Amount, decimal.Zero)
	if err != nil {
		return err
	}

	return addToEnvelope(tx, f.to, t.Amount.Neg(), decimal.Zero)
}

func (f transferFlow) envelopeIDs() []uuid.UUID {
	return []uuid.UUID{f.from, f.to}
}

// payoffFlow settles a debt envelope completely.
//
// Its effect is defined in terms of the envelope pre-image that is
// snapshotted onto the transaction when it is created: the envelope balance
// and target are moved from the snapshot values to zero, and allocated funds
// exceeding the payoff amount return to the budget's available pool. This
// makes apply and reverse exact inverses even though the operation zeroes
// the envelope.
type payoffFlow struct {
	from uuid.UUID
}

func (f payoffFlow) check(_ *gorm.DB, _ models.Transaction) error {
	return nil
}

func (f payoffFlow) apply(tx *gorm.DB, t models.Transaction) error {
	if t.PayoffBalanceSnapshot == nil || t.PayoffTargetSnapshot == nil {
		return ErrMissingSnapshot
	}

	err := addToEnvelope(tx, f.from, t.PayoffBalanceSnapshot.Neg(), t.PayoffTargetSnapshot.Neg())
	if err != nil {
		return err
	}

	excess := t.PayoffBalanceSnapshot.Sub(t.Amount)
	if excess.IsPositive() {
		return addToBudget(tx, t.BudgetID, excess)
	}

	return nil
}

func (f payoffFlow) reverse(tx *gorm.DB, t models.Transaction) error {
	if t.PayoffBalanceSnapshot == nil || t.PayoffTargetSnapshot == nil {
		return ErrMissingSnapshot
	}

	err := addToEnvelope(tx, f.from, *t.PayoffBalanceSnapshot, *t.PayoffTargetSnapshot)
	if err != nil {
		return err
	}

	excess := t.PayoffBalanceSnapshot.Sub(t.Amount)
	if excess.IsPositive() {
		return addToBudget(tx, t.BudgetID, excess.Neg())
	}

	return nil
}

func (f payoffFlow) envelopeIDs() []uuid.UUID {
	return []uuid.UUID{f.from}
}
