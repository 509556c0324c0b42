package models_test

import (
	"github.com/moneyfold/backend/internal/models"
	"github.com/shopspring/decimal"
)

func (suite *TestSuiteStandard) TestTransactionEventAppendOnly() {
	budget := suite.createTestBudget(models.Budget{})

	transaction := suite.createTestTransaction(models.Transaction{
		BudgetID: budget.ID,
		Type:     models.TransactionTypeIncome,
		Amount:   decimal.NewFromFloat(10),
	})

	event := models.TransactionEvent{
		TransactionID: transaction.ID,
		Type:          models.EventTypeCreated,
		Actor:         "test",
	}
	suite.Require().NoError(models.DB.Create(&event).Error)

	err := models.DB.Model(&event).Select("Actor").Updates(models.TransactionEvent{Actor: "mallory"}).Error
	suite.Assert().ErrorIs(err, models.ErrEventImmutable)

	err = models.DB.Delete(&event).Error
	suite.Assert().ErrorIs(err, models.ErrEventImmutable)

	// The event is unchanged
	var reloaded models.TransactionEvent
	suite.Require().NoError(models.DB.First(&reloaded, event.ID).Error)
	suite.Assert().Equal("test", reloaded.Actor)
}

func (suite *TestSuiteStandard) TestTransactionEventSurvivesTransactionDeletion() {
	budget := suite.createTestBudget(models.Budget{})

	transaction := suite.createTestTransaction(models.Transaction{
		BudgetID: budget.ID,
		Type:     models.TransactionTypeIncome,
		Amount:   decimal.NewFromFloat(10),
	})

	event := models.TransactionEvent{
		TransactionID: transaction.ID,
		Type:          models.EventTypeCreated,
		Actor:         "test",
	}
	suite.Require().NoError(models.DB.Create(&event).Error)

	// Even a hard deletion of the transaction keeps the audit trail
	suite.Require().NoError(models.DB.Unscoped().Delete(&transaction).Error)

	var count int64
	suite.Require().NoError(models.DB.
		Model(&models.TransactionEvent{}).
		Where("transaction_id = ?", transaction.ID).
		Count(&count).Error)
	suite.Assert().Equal(int64(1), count)
}
