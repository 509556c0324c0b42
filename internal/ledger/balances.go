package ledger

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/moneyfold/backend/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// The helpers in this file are the only places that write cached balances.
// They read and write inside the caller's database transaction, so the
// read-modify-write cannot interleave with a concurrent mutation.
//
// Cached values are written with UpdateColumn on purpose: a balance update
// is not an edit of the resource and must not bump UpdatedAt.

func addToBudget(tx *gorm.DB, id uuid.UUID, delta decimal.Decimal) error {
	var budget models.Budget
	err := tx.First(&budget, id).Error
	if err != nil {
		return err
	}

	return tx.Model(&budget).UpdateColumn("available_amount", budget.AvailableAmount.Add(delta)).Error
}

func getEnvelope(tx *gorm.DB, id uuid.UUID) (models.Envelope, error) {
	var envelope models.Envelope
	err := tx.First(&envelope, id).Error

	return envelope, err
}

func addToEnvelope(tx *gorm.DB, id uuid.UUID, balanceDelta, targetDelta decimal.Decimal) error {
	envelope, err := getEnvelope(tx, id)
	if err != nil {
		return err
	}

	return tx.Model(&envelope).UpdateColumns(map[string]interface{}{
		"current_balance": envelope.CurrentBalance.Add(balanceDelta),
		"target_amount":   envelope.TargetAmount.Add(targetDelta),
	}).Error
}

func checkEnvelopeFunds(tx *gorm.DB, id uuid.UUID, amount decimal.Decimal) error {
	envelope, err := getEnvelope(tx, id)
	if err != nil {
		return err
	}

	if envelope.CurrentBalance.LessThan(amount) {
		return fmt.Errorf("%w: the envelope %q only holds %s", ErrInsufficientFunds, envelope.Name, envelope.CurrentBalance)
	}

	return nil
}

// applyPayeePayment updates the payment cache of a payee for a newly
// effective expense transaction.
func applyPayeePayment(tx *gorm.DB, id uuid.UUID, t models.Transaction) error {
	var payee models.Payee
	err := tx.First(&payee, id).Error
	if err != nil {
		return err
	}

	updates := map[string]interface{}{
		"total_paid": payee.TotalPaid.Add(t.Amount),
	}

	// Only the most recent payment is cached
	if payee.LastPaymentDate == nil || !t.Date.Before(*payee.LastPaymentDate) {
		updates["last_payment_date"] = t.Date
		updates["last_payment_amount"] = t.Amount
	}

	return tx.Model(&payee).UpdateColumns(updates).Error
}

// reversePayeePayment removes an expense transaction from the payment cache
// of a payee. The last payment cannot be rolled back from the cached values
// alone, it is recomputed from the remaining active expenses.
func reversePayeePayment(tx *gorm.DB, id uuid.UUID, t models.Transaction) error {
	var payee models.Payee
	err := tx.First(&payee, id).Error
	if err != nil {
		return err
	}

	updates := map[string]interface{}{
		"total_paid": payee.TotalPaid.Sub(t.Amount),
	}

	var last models.Transaction
	err = tx.
		Where("payee_id = ? AND type = ? AND transactions.id != ?", id, models.TransactionTypeExpense, t.ID).
		Order("datetime(date) DESC, datetime(created_at) DESC").
		First(&last).Error
	if err != nil && !errors.Is(err, models.ErrResourceNotFound) {
		return err
	}

	if errors.Is(err, models.ErrResourceNotFound) {
		updates["last_payment_date"] = nil
		updates["last_payment_amount"] = decimal.Zero
	} else {
		updates["last_payment_date"] = last.Date
		updates["last_payment_amount"] = last.Amount
	}

	return tx.Model(&payee).UpdateColumns(updates).Error
}
