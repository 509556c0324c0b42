package v1_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	v1 "github.com/moneyfold/backend/internal/controllers/v1"
	"github.com/moneyfold/backend/internal/models"
	"github.com/moneyfold/backend/test"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestTransaction(t *testing.T, e v1.TransactionEditable, expectedStatus ...int) v1.TransactionResponse {
	// Default to 201 Created as expected status
	if len(expectedStatus) == 0 {
		expectedStatus = append(expectedStatus, http.StatusCreated)
	}

	body := []v1.TransactionEditable{e}

	r := test.Request(t, http.MethodPost, "http://example.com/v1/transactions", body)
	test.AssertHTTPStatus(t, &r, expectedStatus...)

	var transaction v1.TransactionCreateResponse
	test.DecodeResponse(t, &r, &transaction)

	if r.Code == http.StatusCreated {
		return transaction.Data[0]
	}

	return v1.TransactionResponse{}
}

// fundedEnvelope creates a budget with income and an envelope holding the
// given amount.
func fundedEnvelope(t *testing.T, amount decimal.Decimal) (v1.BudgetResponse, v1.EnvelopeResponse) {
	budget := createTestBudget(t, v1.BudgetEditable{})
	source := createTestIncomeSource(t, v1.IncomeSourceEditable{BudgetID: budget.Data.ID})
	envelope := createTestEnvelope(t, v1.EnvelopeEditable{BudgetID: budget.Data.ID})

	_ = createTestTransaction(t, v1.TransactionEditable{
		BudgetID:       budget.Data.ID,
		Type:           models.TransactionTypeIncome,
		Amount:         amount,
		IncomeSourceID: &source.Data.ID,
	})

	_ = createTestTransaction(t, v1.TransactionEditable{
		BudgetID:     budget.Data.ID,
		Type:         models.TransactionTypeAllocation,
		Amount:       amount,
		ToEnvelopeID: &envelope.Data.ID,
	})

	return budget, envelope
}

// TestTransactionsOptions verifies that OPTIONS requests are handled
// correctly, including for soft-deleted transactions.
func (suite *TestSuiteStandard) TestTransactionsOptions() {
	budget, envelope := fundedEnvelope(suite.T(), decimal.NewFromFloat(100))
	payee := createTestPayee(suite.T(), v1.PayeeEditable{BudgetID: budget.Data.ID})

	deleted := createTestTransaction(suite.T(), v1.TransactionEditable{
		BudgetID:       budget.Data.ID,
		Type:           models.TransactionTypeExpense,
		Amount:         decimal.NewFromFloat(10),
		FromEnvelopeID: &envelope.Data.ID,
		PayeeID:        &payee.Data.ID,
	})

	r := test.Request(suite.T(), http.MethodDelete, deleted.Data.Links.Self, "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusNoContent)

	tests := []struct {
		name   string
		id     string // path at the transaction endpoint to test
		status int    // Expected HTTP status code
	}{
		{"No Transaction with this ID", uuid.New().String(), http.StatusNotFound},
		{"Not a valid UUID", "NotParseableAsUUID", http.StatusBadRequest},
		{"Soft-deleted Transaction stays addressable", deleted.Data.ID.String(), http.StatusNoContent},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			path := fmt.Sprintf("%s/%s", "http://example.com/v1/transactions", tt.id)
			recorder := test.Request(t, http.MethodOptions, path, "")
			test.AssertHTTPStatus(t, &recorder, tt.status)

			if tt.status == http.StatusNoContent {
				assert.Equal(t, "OPTIONS, GET, PATCH, DELETE", recorder.Header().Get("allow"))
			}
		})
	}
}

func (suite *TestSuiteStandard) TestTransactionsCreateFails() {
	budget, envelope := fundedEnvelope(suite.T(), decimal.NewFromFloat(50))
	payee := createTestPayee(suite.T(), v1.PayeeEditable{BudgetID: budget.Data.ID})

	tests := []struct {
		name   string
		body   any
		status int // expected HTTP status
	}{
		{"Broken Body", `[{ "amount": "two" }]`, http.StatusBadRequest},
		{"No body", "", http.StatusBadRequest},
		{
			"Zero amount",
			[]v1.TransactionEditable{
				{
					BudgetID: budget.Data.ID,
					Type:     models.TransactionTypeIncome,
				},
			},
			http.StatusBadRequest,
		},
		{
			"Income with envelope reference",
			[]v1.TransactionEditable{
				{
					BudgetID:     budget.Data.ID,
					Type:         models.TransactionTypeIncome,
					Amount:       decimal.NewFromFloat(10),
					ToEnvelopeID: &envelope.Data.ID,
				},
			},
			http.StatusBadRequest,
		},
		{
			"Expense exceeding envelope balance",
			[]v1.TransactionEditable{
				{
					BudgetID:       budget.Data.ID,
					Type:           models.TransactionTypeExpense,
					Amount:         decimal.NewFromFloat(80),
					FromEnvelopeID: &envelope.Data.ID,
					PayeeID:        &payee.Data.ID,
				},
			},
			http.StatusConflict,
		},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			r := test.Request(t, http.MethodPost, "http://example.com/v1/transactions", tt.body)
			test.AssertHTTPStatus(t, &r, tt.status)
		})
	}
}

// TestTransactionsInsufficientFundsOverride verifies that the funds check can
// be overridden per request.
func (suite *TestSuiteStandard) TestTransactionsInsufficientFundsOverride() {
	budget, envelope := fundedEnvelope(suite.T(), decimal.NewFromFloat(50))
	payee := createTestPayee(suite.T(), v1.PayeeEditable{BudgetID: budget.Data.ID})

	body := []v1.TransactionEditable{
		{
			BudgetID:       budget.Data.ID,
			Type:           models.TransactionTypeExpense,
			Amount:         decimal.NewFromFloat(80),
			FromEnvelopeID: &envelope.Data.ID,
			PayeeID:        &payee.Data.ID,
		},
	}

	r := test.Request(suite.T(), http.MethodPost, "http://example.com/v1/transactions?allowInsufficientFunds=true", body)
	test.AssertHTTPStatus(suite.T(), &r, http.StatusCreated)

	// The envelope went negative
	recorder := test.Request(suite.T(), http.MethodGet, envelope.Data.Links.Self, "")
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusOK)

	var reloaded v1.EnvelopeResponse
	test.DecodeResponse(suite.T(), &recorder, &reloaded)
	assert.True(suite.T(), reloaded.Data.CurrentBalance.Equal(decimal.NewFromFloat(-30)), "balance is %s", reloaded.Data.CurrentBalance)
}

func (suite *TestSuiteStandard) TestTransactionsGetFilter() {
	budget, envelope := fundedEnvelope(suite.T(), decimal.NewFromFloat(100))
	payee := createTestPayee(suite.T(), v1.PayeeEditable{BudgetID: budget.Data.ID})

	_ = createTestTransaction(suite.T(), v1.TransactionEditable{
		BudgetID:       budget.Data.ID,
		Type:           models.TransactionTypeExpense,
		Amount:         decimal.NewFromFloat(10),
		Date:           time.Date(2024, 11, 4, 12, 0, 0, 0, time.UTC),
		Note:           "Lunch",
		FromEnvelopeID: &envelope.Data.ID,
		PayeeID:        &payee.Data.ID,
	})

	_ = createTestTransaction(suite.T(), v1.TransactionEditable{
		BudgetID:       budget.Data.ID,
		Type:           models.TransactionTypeExpense,
		Amount:         decimal.NewFromFloat(20),
		Date:           time.Date(2024, 12, 24, 12, 0, 0, 0, time.UTC),
		Note:           "Presents",
		FromEnvelopeID: &envelope.Data.ID,
		PayeeID:        &payee.Data.ID,
	})

	tests := []struct {
		name  string
		query string
		len   int
	}{
		{"Budget", fmt.Sprintf("budget=%s", budget.Data.ID), 4},
		{"Type expense", "type=expense", 2},
		{"Envelope", fmt.Sprintf("envelope=%s", envelope.Data.ID), 3},
		{"Payee", fmt.Sprintf("payee=%s", payee.Data.ID), 2},
		{"Note", "note=Lunch", 1},
		{"Search", "search=presents", 1},
		{"From date", "fromDate=2024-12-01T00:00:00Z&type=expense", 1},
		{"Until date", "untilDate=2024-12-01T00:00:00Z&type=expense", 1},
		{"Invalid date", "fromDate=yesterday", 0},
		{"Deleted", "deleted=true", 0},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			var re v1.TransactionListResponse
			r := test.Request(t, http.MethodGet, fmt.Sprintf("/v1/transactions?%s", tt.query), "")

			if tt.name == "Invalid date" {
				test.AssertHTTPStatus(t, &r, http.StatusBadRequest)
				return
			}

			test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)
			test.DecodeResponse(t, &r, &re)

			assert.Equal(t, tt.len, len(re.Data), "Request ID: %s", r.Result().Header.Get("x-request-id"))
		})
	}
}

// TestTransactionsUpdate verifies that amendments adjust the affected
// balances.
func (suite *TestSuiteStandard) TestTransactionsUpdate() {
	budget, envelope := fundedEnvelope(suite.T(), decimal.NewFromFloat(100))
	payee := createTestPayee(suite.T(), v1.PayeeEditable{BudgetID: budget.Data.ID})

	expense := createTestTransaction(suite.T(), v1.TransactionEditable{
		BudgetID:       budget.Data.ID,
		Type:           models.TransactionTypeExpense,
		Amount:         decimal.NewFromFloat(30),
		FromEnvelopeID: &envelope.Data.ID,
		PayeeID:        &payee.Data.ID,
	})

	r := test.Request(suite.T(), http.MethodPatch, expense.Data.Links.Self, map[string]any{
		"amount": "10",
		"note":   "Cheaper than expected",
	})
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var updated v1.TransactionResponse
	test.DecodeResponse(suite.T(), &r, &updated)
	assert.True(suite.T(), updated.Data.Amount.Equal(decimal.NewFromFloat(10)))
	assert.Equal(suite.T(), "Cheaper than expected", updated.Data.Note)

	// The envelope got the difference back
	recorder := test.Request(suite.T(), http.MethodGet, envelope.Data.Links.Self, "")
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusOK)

	var reloaded v1.EnvelopeResponse
	test.DecodeResponse(suite.T(), &recorder, &reloaded)
	assert.True(suite.T(), reloaded.Data.CurrentBalance.Equal(decimal.NewFromFloat(90)), "balance is %s", reloaded.Data.CurrentBalance)
}

// TestTransactionsDeleteRestore verifies the soft deletion lifecycle.
func (suite *TestSuiteStandard) TestTransactionsDeleteRestore() {
	budget, envelope := fundedEnvelope(suite.T(), decimal.NewFromFloat(100))
	payee := createTestPayee(suite.T(), v1.PayeeEditable{BudgetID: budget.Data.ID})

	expense := createTestTransaction(suite.T(), v1.TransactionEditable{
		BudgetID:       budget.Data.ID,
		Type:           models.TransactionTypeExpense,
		Amount:         decimal.NewFromFloat(30),
		FromEnvelopeID: &envelope.Data.ID,
		PayeeID:        &payee.Data.ID,
	})

	r := test.Request(suite.T(), http.MethodDelete, expense.Data.Links.Self, "", map[string]string{"X-Actor": "jane"})
	test.AssertHTTPStatus(suite.T(), &r, http.StatusNoContent)

	// The deleted transaction is still addressable and records who deleted it
	r = test.Request(suite.T(), http.MethodGet, expense.Data.Links.Self, "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var deleted v1.TransactionResponse
	test.DecodeResponse(suite.T(), &r, &deleted)
	require.NotNil(suite.T(), deleted.Data.DeletedAt)
	assert.Equal(suite.T(), "jane", deleted.Data.DeletedBy)

	// Its monetary effect is reversed
	recorder := test.Request(suite.T(), http.MethodGet, envelope.Data.Links.Self, "")
	var reloaded v1.EnvelopeResponse
	test.DecodeResponse(suite.T(), &recorder, &reloaded)
	assert.True(suite.T(), reloaded.Data.CurrentBalance.Equal(decimal.NewFromFloat(100)))

	// It shows up in the deleted filter
	r = test.Request(suite.T(), http.MethodGet, "http://example.com/v1/transactions?deleted=true", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var list v1.TransactionListResponse
	test.DecodeResponse(suite.T(), &r, &list)
	require.Len(suite.T(), list.Data, 1)

	// Restoring reapplies the effect
	r = test.Request(suite.T(), http.MethodPost, expense.Data.Links.Self+"/restore", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var restored v1.TransactionResponse
	test.DecodeResponse(suite.T(), &r, &restored)
	assert.Nil(suite.T(), restored.Data.DeletedAt)

	recorder = test.Request(suite.T(), http.MethodGet, envelope.Data.Links.Self, "")
	test.DecodeResponse(suite.T(), &recorder, &reloaded)
	assert.True(suite.T(), reloaded.Data.CurrentBalance.Equal(decimal.NewFromFloat(70)))

	// Restoring an active transaction fails
	r = test.Request(suite.T(), http.MethodPost, expense.Data.Links.Self+"/restore", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusBadRequest)
}

// TestTransactionsEvents verifies the audit trail endpoint.
func (suite *TestSuiteStandard) TestTransactionsEvents() {
	budget, envelope := fundedEnvelope(suite.T(), decimal.NewFromFloat(100))
	payee := createTestPayee(suite.T(), v1.PayeeEditable{BudgetID: budget.Data.ID})

	body := []v1.TransactionEditable{
		{
			BudgetID:       budget.Data.ID,
			Type:           models.TransactionTypeExpense,
			Amount:         decimal.NewFromFloat(30),
			FromEnvelopeID: &envelope.Data.ID,
			PayeeID:        &payee.Data.ID,
		},
	}

	r := test.Request(suite.T(), http.MethodPost, "http://example.com/v1/transactions", body, map[string]string{"X-Actor": "jane"})
	test.AssertHTTPStatus(suite.T(), &r, http.StatusCreated)

	var created v1.TransactionCreateResponse
	test.DecodeResponse(suite.T(), &r, &created)
	transaction := created.Data[0]

	r = test.Request(suite.T(), http.MethodPatch, transaction.Data.Links.Self, map[string]any{"note": "Updated"}, map[string]string{"X-Actor": "jane"})
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	// No actor header falls back to "anonymous"
	r = test.Request(suite.T(), http.MethodDelete, transaction.Data.Links.Self, "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusNoContent)

	r = test.Request(suite.T(), http.MethodGet, transaction.Data.Links.Events, "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var events v1.EventListResponse
	test.DecodeResponse(suite.T(), &r, &events)
	require.Len(suite.T(), events.Data, 3)

	assert.Equal(suite.T(), models.EventTypeCreated, events.Data[0].Type)
	assert.Equal(suite.T(), "jane", events.Data[0].Actor)
	assert.Equal(suite.T(), models.EventTypeUpdated, events.Data[1].Type)
	assert.Equal(suite.T(), models.EventTypeDeleted, events.Data[2].Type)
	assert.Equal(suite.T(), "anonymous", events.Data[2].Actor)
}
