package v1_test

import (
	"encoding/json"
	"net/http"

	v1 "github.com/moneyfold/backend/internal/controllers/v1"
	"github.com/moneyfold/backend/internal/models"
	"github.com/moneyfold/backend/test"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (suite *TestSuiteStandard) TestExportOptions() {
	r := test.Request(suite.T(), http.MethodOptions, "http://example.com/v1/export", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusNoContent)
	assert.Equal(suite.T(), "OPTIONS, GET", r.Header().Get("allow"))
}

// TestExport verifies that the export contains all resource types, including
// soft-deleted transactions.
func (suite *TestSuiteStandard) TestExport() {
	budget, envelope := fundedEnvelope(suite.T(), decimal.NewFromFloat(100))
	payee := createTestPayee(suite.T(), v1.PayeeEditable{BudgetID: budget.Data.ID})

	expense := createTestTransaction(suite.T(), v1.TransactionEditable{
		BudgetID:       budget.Data.ID,
		Type:           models.TransactionTypeExpense,
		Amount:         decimal.NewFromFloat(10),
		FromEnvelopeID: &envelope.Data.ID,
		PayeeID:        &payee.Data.ID,
	})

	r := test.Request(suite.T(), http.MethodDelete, expense.Data.Links.Self, "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusNoContent)

	r = test.Request(suite.T(), http.MethodGet, "http://example.com/v1/export", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var export v1.ExportResponse
	test.DecodeResponse(suite.T(), &r, &export)

	assert.Equal(suite.T(), "GNU Terry Pratchett", export.Clacks)
	assert.False(suite.T(), export.CreationTime.IsZero())
	require.Len(suite.T(), export.Data, len(models.Registry))

	for name, raw := range export.Data {
		assert.NotEmpty(suite.T(), raw, "export for %q is empty", name)
	}

	// The soft-deleted transaction is part of the export
	var transactions []models.Transaction
	require.Contains(suite.T(), export.Data, "Transaction")
	suite.Require().NoError(json.Unmarshal(export.Data["Transaction"], &transactions))
	assert.Len(suite.T(), transactions, 3)
}

func (suite *TestSuiteStandard) TestExportDBError() {
	suite.CloseDB()

	r := test.Request(suite.T(), http.MethodGet, "http://example.com/v1/export", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusInternalServerError)
}
