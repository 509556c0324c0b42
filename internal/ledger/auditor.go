package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/moneyfold/backend/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// The consistency auditor recomputes every cached aggregate from the active
// transaction log. The formulas here define what the cached values mean,
// the incremental updates of the engine are an optimization over them.
//
// Batch recomputation runs in a single database transaction so that it
// cannot interleave with concurrent ledger writes.

// ConsistencyCheck is the result of one consistency validation.
type ConsistencyCheck struct {
	CheckName string `json:"checkName" example:"budget_available_amount"`
	IsValid   bool   `json:"isValid" example:"true"`
	Details   string `json:"details,omitempty" example:"cached -10, recomputed 0"`
}

// ValidateBudgetConsistency compares every cached aggregate of a budget with
// its recomputed value. Drift is only reported, correction requires an
// explicit RefreshBudgetCache call.
func ValidateBudgetConsistency(db *gorm.DB, budgetID uuid.UUID) ([]ConsistencyCheck, error) {
	var checks []ConsistencyCheck

	err := db.Transaction(func(tx *gorm.DB) error {
		var budget models.Budget
		err := tx.First(&budget, budgetID).Error
		if err != nil {
			return err
		}

		available, err := availableAmount(tx, budgetID)
		if err != nil {
			return err
		}

		checks = append(checks, check("budget_available_amount", budget.AvailableAmount, available))

		var envelopes []models.Envelope
		err = tx.Where(&models.Envelope{BudgetID: budgetID}).Find(&envelopes).Error
		if err != nil {
			return err
		}

		envelopeCheck := ConsistencyCheck{CheckName: "envelope_balances", IsValid: true}
		for _, envelope := range envelopes {
			balance, err := envelopeBalance(tx, envelope)
			if err != nil {
				return err
			}

			if !envelope.CurrentBalance.Equal(balance) {
				envelopeCheck.IsValid = false
				envelopeCheck.Details += fmt.Sprintf("envelope %q: cached %s, recomputed %s; ", envelope.Name, envelope.CurrentBalance, balance)
			}
		}
		checks = append(checks, envelopeCheck)

		var categories []models.Category
		err = tx.Where(&models.Category{BudgetID: budgetID}).Find(&categories).Error
		if err != nil {
			return err
		}

		categoryCheck := ConsistencyCheck{CheckName: "category_totals", IsValid: true}
		for _, category := range categories {
			total, err := categoryTotal(tx, category)
			if err != nil {
				return err
			}

			if !category.Total.Equal(total) {
				categoryCheck.IsValid = false
				categoryCheck.Details += fmt.Sprintf("category %q: cached %s, recomputed %s; ", category.Name, category.Total, total)
			}
		}
		checks = append(checks, categoryCheck)

		var payees []models.Payee
		err = tx.Where(&models.Payee{BudgetID: budgetID}).Find(&payees).Error
		if err != nil {
			return err
		}

		payeeCheck := ConsistencyCheck{CheckName: "payee_totals", IsValid: true}
		for _, payee := range payees {
			paid, err := payeeTotalPaid(tx, payee.ID)
			if err != nil {
				return err
			}

			if !payee.TotalPaid.Equal(paid) {
				payeeCheck.IsValid = false
				payeeCheck.Details += fmt.Sprintf("payee %q: cached %s, recomputed %s; ", payee.Name, payee.TotalPaid, paid)
			}
		}
		checks = append(checks, payeeCheck)

		return nil
	})
	if err != nil {
		return nil, translate(err)
	}

	return checks, nil
}

func check(name string, cached, recomputed decimal.Decimal) ConsistencyCheck {
	c := ConsistencyCheck{CheckName: name, IsValid: cached.Equal(recomputed)}
	if !c.IsValid {
		c.Details = fmt.Sprintf("cached %s, recomputed %s", cached, recomputed)
	}

	return c
}

// Drift turns failed checks into an ErrConsistencyDrift error. It returns
// nil when all checks passed.
func Drift(checks []ConsistencyCheck) error {
	var failed []string
	for _, c := range checks {
		if !c.IsValid {
			failed = append(failed, c.CheckName)
		}
	}

	if len(failed) == 0 {
		return nil
	}

	return fmt.Errorf("%w: %s", ErrConsistencyDrift, strings.Join(failed, ", "))
}

// RefreshBudgetCache recomputes all cached aggregates of a budget from the
// active transaction log. It is idempotent and used to heal drift, e.g.
// after a bulk import.
func RefreshBudgetCache(db *gorm.DB, budgetID uuid.UUID) error {
	err := db.Transaction(func(tx *gorm.DB) error {
		var budget models.Budget
		err := tx.First(&budget, budgetID).Error
		if err != nil {
			return err
		}

		available, err := availableAmount(tx, budgetID)
		if err != nil {
			return err
		}

		err = tx.Model(&budget).UpdateColumn("available_amount", available).Error
		if err != nil {
			return err
		}

		var envelopes []models.Envelope
		err = tx.Where(&models.Envelope{BudgetID: budgetID}).Find(&envelopes).Error
		if err != nil {
			return err
		}

		for _, envelope := range envelopes {
			balance, err := envelopeBalance(tx, envelope)
			if err != nil {
				return err
			}

			err = tx.Model(&envelope).UpdateColumn("current_balance", balance).Error
			if err != nil {
				return err
			}
		}

		var payees []models.Payee
		err = tx.Where(&models.Payee{BudgetID: budgetID}).Find(&payees).Error
		if err != nil {
			return err
		}

		for _, payee := range payees {
			err = refreshPayee(tx, payee)
			if err != nil {
				return err
			}
		}

		// Categories go child-first: categories with a parent cannot have
		// children themselves, so after the first pass their totals are
		// final and the root categories can sum over them.
		var categories []models.Category
		err = tx.Where(&models.Category{BudgetID: budgetID}).Order("parent_id IS NULL ASC").Find(&categories).Error
		if err != nil {
			return err
		}

		for _, category := range categories {
			_, err = recomputeCategory(tx, category.ID)
			if err != nil {
				return err
			}
		}

		return nil
	})

	return translate(err)
}

// BudgetSummary is the aggregated state of a budget.
type BudgetSummary struct {
	AvailableAmount       decimal.Decimal `json:"availableAmount" example:"700"`
	TotalAllocated        decimal.Decimal `json:"totalAllocated" example:"300"`
	TotalInEnvelopes      decimal.Decimal `json:"totalInEnvelopes" example:"250"`
	TotalIncome           decimal.Decimal `json:"totalIncome" example:"1000"`
	TotalExpenses         decimal.Decimal `json:"totalExpenses" example:"50"`
	EnvelopeCount         int64           `json:"envelopeCount" example:"4"`
	NegativeEnvelopeCount int64           `json:"negativeEnvelopeCount" example:"1"`
}

// Summary calculates the aggregated state of a budget.
func Summary(db *gorm.DB, budgetID uuid.UUID) (BudgetSummary, error) {
	var summary BudgetSummary

	err := db.Transaction(func(tx *gorm.DB) error {
		var budget models.Budget
		err := tx.First(&budget, budgetID).Error
		if err != nil {
			return err
		}

		summary.AvailableAmount = budget.AvailableAmount

		summary.TotalAllocated, err = sumTransactions(tx, budgetID, models.TransactionTypeAllocation)
		if err != nil {
			return err
		}

		summary.TotalIncome, err = sumTransactions(tx, budgetID, models.TransactionTypeIncome)
		if err != nil {
			return err
		}

		summary.TotalExpenses, err = sumTransactions(tx, budgetID, models.TransactionTypeExpense)
		if err != nil {
			return err
		}

		var inEnvelopes decimal.NullDecimal
		err = tx.
			Table("envelopes").
			Where("budget_id = ? AND archived = ? AND deleted_at IS NULL", budgetID, false).
			Select("SUM(current_balance)").
			Row().
			Scan(&inEnvelopes)
		if err != nil {
			return err
		}
		summary.TotalInEnvelopes = inEnvelopes.Decimal

		err = tx.Model(&models.Envelope{}).
			Where("budget_id = ? AND archived = ?", budgetID, false).
			Count(&summary.EnvelopeCount).Error
		if err != nil {
			return err
		}

		return tx.Model(&models.Envelope{}).
			Where("budget_id = ? AND archived = ? AND current_balance < 0", budgetID, false).
			Count(&summary.NegativeEnvelopeCount).Error
	})
	if err != nil {
		return BudgetSummary{}, translate(err)
	}

	return summary, nil
}

// availableAmount is the recomputation formula for the unallocated pool of a
// budget: all active income minus all active allocations, plus the funds
// active payoffs returned to the pool.
func availableAmount(tx *gorm.DB, budgetID uuid.UUID) (decimal.Decimal, error) {
	income, err := sumTransactions(tx, budgetID, models.TransactionTypeIncome)
	if err != nil {
		return decimal.Zero, err
	}

	allocated, err := sumTransactions(tx, budgetID, models.TransactionTypeAllocation)
	if err != nil {
		return decimal.Zero, err
	}

	excess, err := payoffExcess(tx, &models.Transaction{BudgetID: budgetID, Type: models.TransactionTypePayoff})
	if err != nil {
		return decimal.Zero, err
	}

	return income.Sub(allocated).Add(excess), nil
}

// payoffExcess sums the funds the matching active payoff transactions
// returned to the available pool.
func payoffExcess(tx *gorm.DB, query *models.Transaction) (decimal.Decimal, error) {
	var payoffs []models.Transaction
	err := tx.Where(query).Find(&payoffs).Error
	if err != nil {
		return decimal.Zero, err
	}

	excess := decimal.Zero
	for _, payoff := range payoffs {
		if payoff.PayoffBalanceSnapshot == nil {
			return decimal.Zero, ErrMissingSnapshot
		}

		if e := payoff.PayoffBalanceSnapshot.Sub(payoff.Amount); e.IsPositive() {
			excess = excess.Add(e)
		}
	}

	return excess, nil
}

// envelopeBalance is the recomputation formula for an envelope balance:
// active inbound minus active outbound transaction amounts. Active payoffs
// removed the full allocated snapshot from the envelope.
func envelopeBalance(tx *gorm.DB, envelope models.Envelope) (decimal.Decimal, error) {
	var inbound, outbound decimal.NullDecimal

	err := tx.
		Table("transactions").
		Where("to_envelope_id = ? AND deleted_at IS NULL", envelope.ID).
		Select("SUM(amount)").
		Row().
		Scan(&inbound)
	if err != nil {
		return decimal.Zero, err
	}

	err = tx.
		Table("transactions").
		Where("from_envelope_id = ? AND type IN ? AND deleted_at IS NULL", envelope.ID, []models.TransactionType{models.TransactionTypeExpense, models.TransactionTypeTransfer}).
		Select("SUM(amount)").
		Row().
		Scan(&outbound)
	if err != nil {
		return decimal.Zero, err
	}

	balance := inbound.Decimal.Sub(outbound.Decimal)

	var payoffs []models.Transaction
	err = tx.
		Where("from_envelope_id = ? AND type = ?", envelope.ID, models.TransactionTypePayoff).
		Find(&payoffs).Error
	if err != nil {
		return decimal.Zero, err
	}

	for _, payoff := range payoffs {
		if payoff.PayoffBalanceSnapshot == nil {
			return decimal.Zero, ErrMissingSnapshot
		}

		balance = balance.Sub(*payoff.PayoffBalanceSnapshot)
	}

	return balance, nil
}

// payeeTotalPaid is the recomputation formula for the payment cache of a
// payee.
func payeeTotalPaid(tx *gorm.DB, payeeID uuid.UUID) (decimal.Decimal, error) {
	var paid decimal.NullDecimal
	err := tx.
		Table("transactions").
		Where("payee_id = ? AND type = ? AND deleted_at IS NULL", payeeID, models.TransactionTypeExpense).
		Select("SUM(amount)").
		Row().
		Scan(&paid)
	if err != nil {
		return decimal.Zero, err
	}

	return paid.Decimal, nil
}

// refreshPayee recomputes the full payment cache of a payee.
func refreshPayee(tx *gorm.DB, payee models.Payee) error {
	paid, err := payeeTotalPaid(tx, payee.ID)
	if err != nil {
		return err
	}

	updates := map[string]interface{}{
		"total_paid":          paid,
		"last_payment_date":   nil,
		"last_payment_amount": decimal.Zero,
	}

	var last models.Transaction
	err = tx.
		Where("payee_id = ? AND type = ?", payee.ID, models.TransactionTypeExpense).
		Order("datetime(date) DESC, datetime(created_at) DESC").
		First(&last).Error
	if err == nil {
		updates["last_payment_date"] = last.Date
		updates["last_payment_amount"] = last.Amount
	} else if !errors.Is(err, models.ErrResourceNotFound) {
		return err
	}

	return tx.Model(&payee).UpdateColumns(updates).Error
}

func sumTransactions(tx *gorm.DB, budgetID uuid.UUID, transactionType models.TransactionType) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	err := tx.
		Table("transactions").
		Where("budget_id = ? AND type = ? AND deleted_at IS NULL", budgetID, transactionType).
		Select("SUM(amount)").
		Row().
		Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}

	return sum.Decimal, nil
}
