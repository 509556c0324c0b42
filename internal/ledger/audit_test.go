package ledger_test

import (
	"encoding/json"
	"time"

	"github.com/moneyfold/backend/internal/ledger"
	"github.com/moneyfold/backend/internal/models"
	"github.com/shopspring/decimal"
)

func (suite *TestSuiteStandard) events(transactionID interface{}) []models.TransactionEvent {
	var events []models.TransactionEvent
	suite.Require().NoError(models.DB.
		Where("transaction_id = ?", transactionID).
		Order("datetime(created_at) ASC").
		Find(&events).Error)

	return events
}

func (suite *TestSuiteStandard) TestAuditTrailCoversLifecycle() {
	budget, _ := suite.fundedBudget(decimal.NewFromInt(500))
	envelope := suite.createTestEnvelope(models.Envelope{BudgetID: budget.ID, Name: "Groceries"})

	allocation, err := ledger.Create(models.DB, models.Transaction{
		BudgetID:     budget.ID,
		Type:         models.TransactionTypeAllocation,
		Amount:       decimal.NewFromInt(100),
		Date:         time.Now(),
		ToEnvelopeID: &envelope.ID,
	}, ledger.Options{Actor: "jane"})
	suite.Require().NoError(err)

	amount := decimal.NewFromInt(120)
	_, err = ledger.Update(models.DB, allocation.ID, ledger.TransactionPatch{Amount: &amount}, ledger.Options{Actor: "jane"})
	suite.Require().NoError(err)

	suite.Require().NoError(ledger.SoftDelete(models.DB, allocation.ID, ledger.Options{Actor: "john"}))
	suite.Require().NoError(ledger.Restore(models.DB, allocation.ID, ledger.Options{Actor: "jane"}))

	events := suite.events(allocation.ID)
	suite.Require().Len(events, 4)

	suite.Assert().Equal(models.EventTypeCreated, events[0].Type)
	suite.Assert().Equal(models.EventTypeUpdated, events[1].Type)
	suite.Assert().Equal(models.EventTypeDeleted, events[2].Type)
	suite.Assert().Equal(models.EventTypeRestored, events[3].Type)

	suite.Assert().Equal("jane", events[0].Actor)
	suite.Assert().Equal("john", events[2].Actor)

	// Only the update carries a field diff
	suite.Assert().Empty(events[0].Changes)
	suite.Assert().Empty(events[2].Changes)

	var changes map[string]struct {
		From interface{} `json:"from"`
		To   interface{} `json:"to"`
	}
	suite.Require().NoError(json.Unmarshal([]byte(events[1].Changes), &changes))
	suite.Require().Contains(changes, "amount")
	suite.Assert().NotContains(changes, "note")
}

func (suite *TestSuiteStandard) TestAuditEventsAreImmutable() {
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

	events := suite.events(allocation.ID)
	suite.Require().Len(events, 1)

	event := events[0]
	err = models.DB.Model(&event).Update("actor", "mallory").Error
	suite.Assert().ErrorIs(err, models.ErrEventImmutable)

	err = models.DB.Delete(&event).Error
	suite.Assert().ErrorIs(err, models.ErrEventImmutable)
}

func (suite *TestSuiteStandard) TestRejectedMutationLeavesNoEvent() {
	budget, _ := suite.fundedBudget(decimal.NewFromInt(100))
	envelope := suite.createTestEnvelope(models.Envelope{BudgetID: budget.ID, Name: "Groceries"})
	payee := suite.createTestPayee(models.Payee{BudgetID: budget.ID})

	_, err := ledgerCreate(models.Transaction{
		BudgetID:       budget.ID,
		Type:           models.TransactionTypeExpense,
		Amount:         decimal.NewFromInt(9999),
		Date:           time.Now(),
		FromEnvelopeID: &envelope.ID,
		PayeeID:        &payee.ID,
	})
	suite.Require().ErrorIs(err, ledger.ErrInsufficientFunds)

	var count int64
	suite.Require().NoError(models.DB.Model(&models.TransactionEvent{}).Count(&count).Error)

	// Only the income event from the budget funding exists
	suite.Assert().Equal(int64(1), count)
}
