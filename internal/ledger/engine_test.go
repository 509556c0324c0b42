package ledger_test

import (
	"time"

	"github.com/google/uuid"
	"github.com/moneyfold/backend/internal/ledger"
	"github.com/moneyfold/backend/internal/models"
	"github.com/shopspring/decimal"
)

func (suite *TestSuiteStandard) TestCreateIncome() {
	budget := suite.createTestBudget(models.Budget{})
	source := suite.createTestIncomeSource(models.IncomeSource{BudgetID: budget.ID})

	_, err := ledgerCreate(models.Transaction{
		BudgetID:       budget.ID,
		Type:           models.TransactionTypeIncome,
		Amount:         decimal.NewFromInt(1000),
		Date:           time.Now(),
		IncomeSourceID: &source.ID,
	})
	suite.Require().NoError(err)

	budget = suite.reloadBudget(budget)
	suite.Assert().True(budget.AvailableAmount.Equal(decimal.NewFromInt(1000)), "available is %s", budget.AvailableAmount)
}

func (suite *TestSuiteStandard) TestCreateRejectsNonPositiveAmount() {
	budget := suite.createTestBudget(models.Budget{})
	source := suite.createTestIncomeSource(models.IncomeSource{BudgetID: budget.ID})

	for _, amount := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-5)} {
		_, err := ledgerCreate(models.Transaction{
			BudgetID:       budget.ID,
			Type:           models.TransactionTypeIncome,
			Amount:         amount,
			Date:           time.Now(),
			IncomeSourceID: &source.ID,
		})
		suite.Assert().ErrorIs(err, ledger.ErrFlow)
		suite.Assert().ErrorIs(err, ledger.ErrAmountNotPositive)
	}
}

func (suite *TestSuiteStandard) TestCreateRejectsFarFutureDate() {
	budget := suite.createTestBudget(models.Budget{})
	source := suite.createTestIncomeSource(models.IncomeSource{BudgetID: budget.ID})

	_, err := ledgerCreate(models.Transaction{
		BudgetID:       budget.ID,
		Type:           models.TransactionTypeIncome,
		Amount:         decimal.NewFromInt(10),
		Date:           time.Now().AddDate(0, 0, 2),
		IncomeSourceID: &source.ID,
	})
	suite.Assert().ErrorIs(err, ledger.ErrDateTooFarAhead)
}

// TestIncomeAllocateSpend walks a transaction through the full lifecycle:
// earn, allocate, spend, amend, delete and restore, verifying every cached
// balance along the way.
func (suite *TestSuiteStandard) TestIncomeAllocateSpend() {
	budget, _ := suite.fundedBudget(decimal.NewFromInt(1000))
	envelope := suite.createTestEnvelope(models.Envelope{BudgetID: budget.ID, Name: "Groceries"})
	payee := suite.createTestPayee(models.Payee{BudgetID: budget.ID, Name: "Supermarket"})

	_, err := ledgerCreate(models.Transaction{
		BudgetID:     budget.ID,
		Type:         models.TransactionTypeAllocation,
		Amount:       decimal.NewFromInt(300),
		Date:         time.Now(),
		ToEnvelopeID: &envelope.ID,
	})
	suite.Require().NoError(err)

	budget = suite.reloadBudget(budget)
	envelope = suite.reloadEnvelope(envelope)
	suite.Assert().True(budget.AvailableAmount.Equal(decimal.NewFromInt(700)))
	suite.Assert().True(envelope.CurrentBalance.Equal(decimal.NewFromInt(300)))

	expense, err := ledgerCreate(models.Transaction{
		BudgetID:       budget.ID,
		Type:           models.TransactionTypeExpense,
		Amount:         decimal.NewFromInt(50),
		Date:           time.Now(),
		FromEnvelopeID: &envelope.ID,
		PayeeID:        &payee.ID,
	})
	suite.Require().NoError(err)

	envelope = suite.reloadEnvelope(envelope)
	payee = suite.reloadPayee(payee)
	suite.Assert().True(envelope.CurrentBalance.Equal(decimal.NewFromInt(250)))
	suite.Assert().True(payee.TotalPaid.Equal(decimal.NewFromInt(50)))
	suite.Require().NotNil(payee.LastPaymentDate)
	suite.Assert().True(payee.LastPaymentAmount.Equal(decimal.NewFromInt(50)))

	// Amending the amount reverses the old effect and applies the new one
	amount := decimal.NewFromInt(80)
	_, err = ledger.Update(models.DB, expense.ID, ledger.TransactionPatch{Amount: &amount}, ledger.Options{Actor: "test"})
	suite.Require().NoError(err)

	envelope = suite.reloadEnvelope(envelope)
	payee = suite.reloadPayee(payee)
	suite.Assert().True(envelope.CurrentBalance.Equal(decimal.NewFromInt(220)))
	suite.Assert().True(payee.TotalPaid.Equal(decimal.NewFromInt(80)))

	// Deleting returns the funds, restoring takes them again
	suite.Require().NoError(ledger.SoftDelete(models.DB, expense.ID, ledger.Options{Actor: "test"}))

	envelope = suite.reloadEnvelope(envelope)
	payee = suite.reloadPayee(payee)
	suite.Assert().True(envelope.CurrentBalance.Equal(decimal.NewFromInt(300)))
	suite.Assert().True(payee.TotalPaid.IsZero())
	suite.Assert().Nil(payee.LastPaymentDate)

	suite.Require().NoError(ledger.Restore(models.DB, expense.ID, ledger.Options{Actor: "test"}))

	envelope = suite.reloadEnvelope(envelope)
	payee = suite.reloadPayee(payee)
	suite.Assert().True(envelope.CurrentBalance.Equal(decimal.NewFromInt(220)))
	suite.Assert().True(payee.TotalPaid.Equal(decimal.NewFromInt(80)))
	suite.Require().NotNil(payee.LastPaymentDate)
}

func (suite *TestSuiteStandard) TestTransferBetweenEnvelopes() {
	budget, _ := suite.fundedBudget(decimal.NewFromInt(500))
	groceries := suite.createTestEnvelope(models.Envelope{BudgetID: budget.ID, Name: "Groceries"})
	dining := suite.createTestEnvelope(models.Envelope{BudgetID: budget.ID, Name: "Dining"})

	_, err := ledgerCreate(models.Transaction{
		BudgetID:     budget.ID,
		Type:         models.TransactionTypeAllocation,
		Amount:       decimal.NewFromInt(200),
		Date:         time.Now(),
		ToEnvelopeID: &groceries.ID,
	})
	suite.Require().NoError(err)

	_, err = ledgerCreate(models.Transaction{
		BudgetID:       budget.ID,
		Type:           models.TransactionTypeTransfer,
		Amount:         decimal.NewFromInt(75),
		Date:           time.Now(),
		FromEnvelopeID: &groceries.ID,
		ToEnvelopeID:   &dining.ID,
	})
	suite.Require().NoError(err)

	groceries = suite.reloadEnvelope(groceries)
	dining = suite.reloadEnvelope(dining)
	suite.Assert().True(groceries.CurrentBalance.Equal(decimal.NewFromInt(125)))
	suite.Assert().True(dining.CurrentBalance.Equal(decimal.NewFromInt(75)))

	// The available pool is untouched by transfers
	budget = suite.reloadBudget(budget)
	suite.Assert().True(budget.AvailableAmount.Equal(decimal.NewFromInt(300)))
}

func (suite *TestSuiteStandard) TestTransferSameEnvelope() {
	budget, _ := suite.fundedBudget(decimal.NewFromInt(100))
	envelope := suite.createTestEnvelope(models.Envelope{BudgetID: budget.ID, Name: "Groceries"})

	_, err := ledgerCreate(models.Transaction{
		BudgetID:       budget.ID,
		Type:           models.TransactionTypeTransfer,
		Amount:         decimal.NewFromInt(10),
		Date:           time.Now(),
		FromEnvelopeID: &envelope.ID,
		ToEnvelopeID:   &envelope.ID,
	})
	suite.Assert().ErrorIs(err, ledger.ErrSameEnvelope)
}

func (suite *TestSuiteStandard) TestFlowShapeRejected() {
	budget, source := suite.fundedBudget(decimal.NewFromInt(100))
	envelope := suite.createTestEnvelope(models.Envelope{BudgetID: budget.ID, Name: "Groceries"})
	payee := suite.createTestPayee(models.Payee{BudgetID: budget.ID})

	tests := []struct {
		name        string
		transaction models.Transaction
	}{
		{"income with envelope", models.Transaction{Type: models.TransactionTypeIncome, IncomeSourceID: &source.ID, ToEnvelopeID: &envelope.ID}},
		{"income without source", models.Transaction{Type: models.TransactionTypeIncome}},
		{"allocation with payee", models.Transaction{Type: models.TransactionTypeAllocation, ToEnvelopeID: &envelope.ID, PayeeID: &payee.ID}},
		{"allocation without envelope", models.Transaction{Type: models.TransactionTypeAllocation}},
		{"expense without payee", models.Transaction{Type: models.TransactionTypeExpense, FromEnvelopeID: &envelope.ID}},
		{"expense with income source", models.Transaction{Type: models.TransactionTypeExpense, FromEnvelopeID: &envelope.ID, PayeeID: &payee.ID, IncomeSourceID: &source.ID}},
		{"transfer without destination", models.Transaction{Type: models.TransactionTypeTransfer, FromEnvelopeID: &envelope.ID}},
		{"payoff with payee", models.Transaction{Type: models.TransactionTypePayoff, FromEnvelopeID: &envelope.ID, PayeeID: &payee.ID}},
		{"unknown type", models.Transaction{Type: "magic"}},
	}

	for _, tt := range tests {
		transaction := tt.transaction
		transaction.BudgetID = budget.ID
		transaction.Amount = decimal.NewFromInt(10)
		transaction.Date = time.Now()

		_, err := ledgerCreate(transaction)
		suite.Assert().ErrorIs(err, ledger.ErrFlow, "test %q", tt.name)
	}
}

func (suite *TestSuiteStandard) TestInsufficientFunds() {
	budget, _ := suite.fundedBudget(decimal.NewFromInt(100))
	envelope := suite.createTestEnvelope(models.Envelope{BudgetID: budget.ID, Name: "Groceries"})
	payee := suite.createTestPayee(models.Payee{BudgetID: budget.ID})

	// Over-allocating the pool fails
	_, err := ledgerCreate(models.Transaction{
		BudgetID:     budget.ID,
		Type:         models.TransactionTypeAllocation,
		Amount:       decimal.NewFromInt(150),
		Date:         time.Now(),
		ToEnvelopeID: &envelope.ID,
	})
	suite.Assert().ErrorIs(err, ledger.ErrInsufficientFunds)

	// Overspending the envelope fails without an override
	overspend := models.Transaction{
		BudgetID:       budget.ID,
		Type:           models.TransactionTypeExpense,
		Amount:         decimal.NewFromInt(25),
		Date:           time.Now(),
		FromEnvelopeID: &envelope.ID,
		PayeeID:        &payee.ID,
	}
	_, err = ledgerCreate(overspend)
	suite.Assert().ErrorIs(err, ledger.ErrInsufficientFunds)

	// With the override the mutation applies and is flagged in the audit trail
	created, err := ledger.Create(models.DB, overspend, ledger.Options{Actor: "test", AllowInsufficientFunds: true})
	suite.Require().NoError(err)

	envelope = suite.reloadEnvelope(envelope)
	suite.Assert().True(envelope.CurrentBalance.Equal(decimal.NewFromInt(-25)))

	var event models.TransactionEvent
	suite.Require().NoError(models.DB.Where("transaction_id = ?", created.ID).First(&event).Error)
	suite.Assert().True(event.OverrideApplied)
}

func (suite *TestSuiteStandard) TestCrossBudgetReferences() {
	budget, _ := suite.fundedBudget(decimal.NewFromInt(100))
	other := suite.createTestBudget(models.Budget{Name: "Other Budget"})
	envelope := suite.createTestEnvelope(models.Envelope{BudgetID: other.ID, Name: "Elsewhere"})

	_, err := ledgerCreate(models.Transaction{
		BudgetID:     budget.ID,
		Type:         models.TransactionTypeAllocation,
		Amount:       decimal.NewFromInt(10),
		Date:         time.Now(),
		ToEnvelopeID: &envelope.ID,
	})
	suite.Assert().ErrorIs(err, ledger.ErrCrossBudget)

	payee := suite.createTestPayee(models.Payee{BudgetID: other.ID})
	ownEnvelope := suite.createTestEnvelope(models.Envelope{BudgetID: budget.ID, Name: "Groceries"})

	_, err = ledger.Create(models.DB, models.Transaction{
		BudgetID:       budget.ID,
		Type:           models.TransactionTypeExpense,
		Amount:         decimal.NewFromInt(10),
		Date:           time.Now(),
		FromEnvelopeID: &ownEnvelope.ID,
		PayeeID:        &payee.ID,
	}, ledger.Options{Actor: "test", AllowInsufficientFunds: true})
	suite.Assert().ErrorIs(err, ledger.ErrCrossBudget)
}

func (suite *TestSuiteStandard) TestUpdateDeletedTransaction() {
	budget, _ := suite.fundedBudget(decimal.NewFromInt(100))
	envelope := suite.createTestEnvelope(models.Envelope{BudgetID: budget.ID, Name: "Groceries"})

	allocation, err := ledgerCreate(models.Transaction{
		BudgetID:     budget.ID,
		Type:         models.TransactionTypeAllocation,
		Amount:       decimal.NewFromInt(10),
		Date:         time.Now(),
		ToEnvelopeID: &envelope.ID,
	})
	suite.Require().NoError(err)
	suite.Require().NoError(ledger.SoftDelete(models.DB, allocation.ID, ledger.Options{Actor: "test"}))

	amount := decimal.NewFromInt(20)
	_, err = ledger.Update(models.DB, allocation.ID, ledger.TransactionPatch{Amount: &amount}, ledger.Options{Actor: "test"})
	suite.Assert().ErrorIs(err, ledger.ErrTransactionDeleted)

	err = ledger.SoftDelete(models.DB, allocation.ID, ledger.Options{Actor: "test"})
	suite.Assert().ErrorIs(err, ledger.ErrTransactionDeleted)
}

func (suite *TestSuiteStandard) TestRestoreActiveTransaction() {
	budget, _ := suite.fundedBudget(decimal.NewFromInt(100))
	envelope := suite.createTestEnvelope(models.Envelope{BudgetID: budget.ID, Name: "Groceries"})

	allocation, err := ledgerCreate(models.Transaction{
		BudgetID:     budget.ID,
		Type:         models.TransactionTypeAllocation,
		Amount:       decimal.NewFromInt(10),
		Date:         time.Now(),
		ToEnvelopeID: &envelope.ID,
	})
	suite.Require().NoError(err)

	err = ledger.Restore(models.DB, allocation.ID, ledger.Options{Actor: "test"})
	suite.Assert().ErrorIs(err, ledger.ErrTransactionNotDeleted)
}

func (suite *TestSuiteStandard) TestRestoreMissingTransaction() {
	suite.createTestBudget(models.Budget{})

	err := ledger.Restore(models.DB, uuid.New(), ledger.Options{Actor: "test"})
	suite.Assert().ErrorIs(err, models.ErrResourceNotFound)
}

func (suite *TestSuiteStandard) TestDeletedByRecorded() {
	budget, _ := suite.fundedBudget(decimal.NewFromInt(100))
	envelope := suite.createTestEnvelope(models.Envelope{BudgetID: budget.ID, Name: "Groceries"})

	allocation, err := ledgerCreate(models.Transaction{
		BudgetID:     budget.ID,
		Type:         models.TransactionTypeAllocation,
		Amount:       decimal.NewFromInt(10),
		Date:         time.Now(),
		ToEnvelopeID: &envelope.ID,
	})
	suite.Require().NoError(err)

	suite.Require().NoError(ledger.SoftDelete(models.DB, allocation.ID, ledger.Options{Actor: "jane"}))

	var deleted models.Transaction
	suite.Require().NoError(models.DB.Unscoped().First(&deleted, allocation.ID).Error)
	suite.Assert().Equal("jane", deleted.DeletedBy)
	suite.Assert().False(deleted.Active())

	suite.Require().NoError(ledger.Restore(models.DB, allocation.ID, ledger.Options{Actor: "jane"}))
	suite.Require().NoError(models.DB.First(&deleted, allocation.ID).Error)
	suite.Assert().Empty(deleted.DeletedBy)
}
