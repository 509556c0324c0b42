package v1_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	v1 "github.com/moneyfold/backend/internal/controllers/v1"
	"github.com/moneyfold/backend/internal/models"
	"github.com/moneyfold/backend/test"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestEnvelope(t *testing.T, e v1.EnvelopeEditable, expectedStatus ...int) v1.EnvelopeResponse {
	if e.BudgetID == uuid.Nil {
		e.BudgetID = createTestBudget(t, v1.BudgetEditable{Name: "Testing budget"}).Data.ID
	}

	if e.Name == "" {
		e.Name = uuid.NewString()
	}

	// Default to 201 Created as expected status
	if len(expectedStatus) == 0 {
		expectedStatus = append(expectedStatus, http.StatusCreated)
	}

	body := []v1.EnvelopeEditable{e}

	r := test.Request(t, http.MethodPost, "http://example.com/v1/envelopes", body)
	test.AssertHTTPStatus(t, &r, expectedStatus...)

	var envelope v1.EnvelopeCreateResponse
	test.DecodeResponse(t, &r, &envelope)

	if r.Code == http.StatusCreated {
		return envelope.Data[0]
	}

	return v1.EnvelopeResponse{}
}

// systemCategoryID returns the ID of the named system category of the budget.
func systemCategoryID(t *testing.T, budgetID uuid.UUID, name string) uuid.UUID {
	r := test.Request(t, http.MethodGet, fmt.Sprintf("http://example.com/v1/categories?budget=%s&name=%s", budgetID, name), "")
	test.AssertHTTPStatus(t, &r, http.StatusOK)

	var list v1.CategoryListResponse
	test.DecodeResponse(t, &r, &list)
	require.Len(t, list.Data, 1)

	return list.Data[0].ID
}

// TestEnvelopesOptions verifies that OPTIONS requests are handled correctly.
func (suite *TestSuiteStandard) TestEnvelopesOptions() {
	tests := []struct {
		name   string
		id     string // path at the envelope endpoint to test
		status int    // Expected HTTP status code
	}{
		{"No Envelope with this ID", uuid.New().String(), http.StatusNotFound},
		{"Not a valid UUID", "NotParseableAsUUID", http.StatusBadRequest},
		{"Envelope exists", createTestEnvelope(suite.T(), v1.EnvelopeEditable{}).Data.ID.String(), http.StatusNoContent},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			path := fmt.Sprintf("%s/%s", "http://example.com/v1/envelopes", tt.id)
			r := test.Request(t, http.MethodOptions, path, "")
			test.AssertHTTPStatus(t, &r, tt.status)

			if tt.status == http.StatusNoContent {
				assert.Equal(t, "OPTIONS, GET, PATCH, DELETE", r.Header().Get("allow"))
			}
		})
	}
}

// TestEnvelopesCreateUncategorized verifies that envelopes without a category
// are filed into the budget's "Uncategorized" system category.
func (suite *TestSuiteStandard) TestEnvelopesCreateUncategorized() {
	budget := createTestBudget(suite.T(), v1.BudgetEditable{})

	envelope := createTestEnvelope(suite.T(), v1.EnvelopeEditable{
		BudgetID: budget.Data.ID,
		Name:     "Stray",
	})

	uncategorized := systemCategoryID(suite.T(), budget.Data.ID, "Uncategorized")
	assert.Equal(suite.T(), uncategorized, envelope.Data.CategoryID)
	assert.Equal(suite.T(), uint(0), envelope.Data.DisplayOrder)
	assert.Equal(suite.T(), models.EnvelopeTypeRegular, envelope.Data.Type)
}

// TestEnvelopesCreatePosition verifies the display order of new envelopes
// within their category.
func (suite *TestSuiteStandard) TestEnvelopesCreatePosition() {
	budget := createTestBudget(suite.T(), v1.BudgetEditable{})
	category := createTestCategory(suite.T(), v1.CategoryEditable{BudgetID: budget.Data.ID, Name: "Food"})

	first := createTestEnvelope(suite.T(), v1.EnvelopeEditable{
		BudgetID:   budget.Data.ID,
		CategoryID: category.Data.ID,
		Name:       "Groceries",
	})
	assert.Equal(suite.T(), uint(0), first.Data.DisplayOrder)

	second := createTestEnvelope(suite.T(), v1.EnvelopeEditable{
		BudgetID:   budget.Data.ID,
		CategoryID: category.Data.ID,
		Name:       "Restaurants",
	})
	assert.Equal(suite.T(), uint(1), second.Data.DisplayOrder)

	position := uint(0)
	inserted := createTestEnvelope(suite.T(), v1.EnvelopeEditable{
		BudgetID:   budget.Data.ID,
		CategoryID: category.Data.ID,
		Name:       "Coffee",
		Position:   &position,
	})
	assert.Equal(suite.T(), uint(0), inserted.Data.DisplayOrder)

	// The previous first envelope moved down
	r := test.Request(suite.T(), http.MethodGet, first.Data.Links.Self, "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var reloaded v1.EnvelopeResponse
	test.DecodeResponse(suite.T(), &r, &reloaded)
	assert.Equal(suite.T(), uint(1), reloaded.Data.DisplayOrder)
}

func (suite *TestSuiteStandard) TestEnvelopesCreateFails() {
	budget := createTestBudget(suite.T(), v1.BudgetEditable{})
	otherBudget := createTestBudget(suite.T(), v1.BudgetEditable{})
	foreignCategory := createTestCategory(suite.T(), v1.CategoryEditable{BudgetID: otherBudget.Data.ID, Name: "Foreign"})

	existing := createTestEnvelope(suite.T(), v1.EnvelopeEditable{
		BudgetID: budget.Data.ID,
		Name:     "Unique Envelope Name for Category",
	})

	tests := []struct {
		name   string
		body   any
		status int // expected HTTP status
	}{
		{"Broken Body", `[{ "note": 2 }]`, http.StatusBadRequest},
		{"No body", "", http.StatusBadRequest},
		{"No Budget", `[{ "note": "Some text" }]`, http.StatusNotFound},
		{"Non-existing Budget", `[{ "budgetId": "ea85ad1a-3679-4ced-b83b-89566c12ece9" }]`, http.StatusNotFound},
		{
			"Category in other Budget",
			[]v1.EnvelopeEditable{
				{
					BudgetID:   budget.Data.ID,
					CategoryID: foreignCategory.Data.ID,
					Name:       "Crossing budgets",
				},
			},
			http.StatusBadRequest,
		},
		{
			"Duplicate name in Category",
			[]v1.EnvelopeEditable{
				{
					BudgetID:   budget.Data.ID,
					CategoryID: existing.Data.CategoryID,
					Name:       existing.Data.Name,
				},
			},
			http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			r := test.Request(t, http.MethodPost, "http://example.com/v1/envelopes", tt.body)
			test.AssertHTTPStatus(t, &r, tt.status)
		})
	}
}

// Verify that updating envelopes works as desired
func (suite *TestSuiteStandard) TestEnvelopesUpdate() {
	envelope := createTestEnvelope(suite.T(), v1.EnvelopeEditable{Name: "Name of the envelope"})

	tests := []struct {
		name     string                                    // name of the test
		envelope map[string]any                            // the updates to perform. This is not a struct because that would set all fields on the request
		testFunc func(t *testing.T, a v1.EnvelopeResponse) // tests to perform against the updated envelope resource
	}{
		{
			"Name, Note",
			map[string]any{
				"name": "Another name",
				"note": "New note!",
			},
			func(t *testing.T, a v1.EnvelopeResponse) {
				assert.Equal(t, "New note!", a.Data.Note)
				assert.Equal(t, "Another name", a.Data.Name)
			},
		},
		{
			"Type",
			map[string]any{
				"type": "savings",
			},
			func(t *testing.T, a v1.EnvelopeResponse) {
				assert.Equal(t, models.EnvelopeTypeSavings, a.Data.Type)
			},
		},
		{
			"Archived",
			map[string]any{
				"archived": true,
			},
			func(t *testing.T, a v1.EnvelopeResponse) {
				assert.True(t, a.Data.Archived)
			},
		},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			r := test.Request(t, http.MethodPatch, envelope.Data.Links.Self, tt.envelope)
			test.AssertHTTPStatus(t, &r, http.StatusOK)

			var e v1.EnvelopeResponse
			test.DecodeResponse(t, &r, &e)

			if tt.testFunc != nil {
				tt.testFunc(t, e)
			}
		})
	}
}

// TestEnvelopesMove verifies that a PATCH with a position moves the envelope
// within its category.
func (suite *TestSuiteStandard) TestEnvelopesMove() {
	budget := createTestBudget(suite.T(), v1.BudgetEditable{})
	category := createTestCategory(suite.T(), v1.CategoryEditable{BudgetID: budget.Data.ID, Name: "Food"})

	first := createTestEnvelope(suite.T(), v1.EnvelopeEditable{BudgetID: budget.Data.ID, CategoryID: category.Data.ID, Name: "Groceries"})
	second := createTestEnvelope(suite.T(), v1.EnvelopeEditable{BudgetID: budget.Data.ID, CategoryID: category.Data.ID, Name: "Restaurants"})

	r := test.Request(suite.T(), http.MethodPatch, second.Data.Links.Self, map[string]any{
		"position": 0,
	})
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var moved v1.EnvelopeResponse
	test.DecodeResponse(suite.T(), &r, &moved)
	assert.Equal(suite.T(), uint(0), moved.Data.DisplayOrder)

	r = test.Request(suite.T(), http.MethodGet, first.Data.Links.Self, "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var reloaded v1.EnvelopeResponse
	test.DecodeResponse(suite.T(), &r, &reloaded)
	assert.Equal(suite.T(), uint(1), reloaded.Data.DisplayOrder)
}

// TestEnvelopesChangeCategory verifies that moving an envelope to another
// category appends it there and closes the gap in the old category.
func (suite *TestSuiteStandard) TestEnvelopesChangeCategory() {
	budget := createTestBudget(suite.T(), v1.BudgetEditable{})
	food := createTestCategory(suite.T(), v1.CategoryEditable{BudgetID: budget.Data.ID, Name: "Food"})
	fun := createTestCategory(suite.T(), v1.CategoryEditable{BudgetID: budget.Data.ID, Name: "Fun"})

	groceries := createTestEnvelope(suite.T(), v1.EnvelopeEditable{BudgetID: budget.Data.ID, CategoryID: food.Data.ID, Name: "Groceries"})
	restaurants := createTestEnvelope(suite.T(), v1.EnvelopeEditable{BudgetID: budget.Data.ID, CategoryID: food.Data.ID, Name: "Restaurants"})
	_ = createTestEnvelope(suite.T(), v1.EnvelopeEditable{BudgetID: budget.Data.ID, CategoryID: fun.Data.ID, Name: "Cinema"})

	r := test.Request(suite.T(), http.MethodPatch, groceries.Data.Links.Self, map[string]any{
		"categoryId": fun.Data.ID,
	})
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var moved v1.EnvelopeResponse
	test.DecodeResponse(suite.T(), &r, &moved)

	// Appended to the new category
	assert.Equal(suite.T(), fun.Data.ID, moved.Data.CategoryID)
	assert.Equal(suite.T(), uint(1), moved.Data.DisplayOrder)

	// The gap in the old category is closed
	r = test.Request(suite.T(), http.MethodGet, restaurants.Data.Links.Self, "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var reloaded v1.EnvelopeResponse
	test.DecodeResponse(suite.T(), &r, &reloaded)
	assert.Equal(suite.T(), uint(0), reloaded.Data.DisplayOrder)
}

func (suite *TestSuiteStandard) TestEnvelopesGetFilter() {
	budget := createTestBudget(suite.T(), v1.BudgetEditable{})
	category := createTestCategory(suite.T(), v1.CategoryEditable{BudgetID: budget.Data.ID, Name: "Monthly"})

	_ = createTestEnvelope(suite.T(), v1.EnvelopeEditable{
		BudgetID:   budget.Data.ID,
		CategoryID: category.Data.ID,
		Name:       "Groceries",
		Note:       "For the supermarket",
	})

	_ = createTestEnvelope(suite.T(), v1.EnvelopeEditable{
		BudgetID:   budget.Data.ID,
		CategoryID: category.Data.ID,
		Name:       "Rainy day fund",
		Type:       models.EnvelopeTypeSavings,
	})

	_ = createTestEnvelope(suite.T(), v1.EnvelopeEditable{
		BudgetID: budget.Data.ID,
		Name:     "Archived",
		Archived: true,
	})

	tests := []struct {
		name  string
		query string
		len   int
	}{
		{"Budget", fmt.Sprintf("budget=%s", budget.Data.ID), 3},
		{"Category", fmt.Sprintf("category=%s", category.Data.ID), 2},
		{"Type savings", "type=savings", 1},
		{"Archived", "archived=true", 1},
		{"Note", "note=For the supermarket", 1},
		{"Search", "search=rainy", 1},
		{"Limit 2", "limit=2", 2},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			var re v1.EnvelopeListResponse
			r := test.Request(t, http.MethodGet, fmt.Sprintf("/v1/envelopes?%s", tt.query), "")
			test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)
			test.DecodeResponse(t, &r, &re)

			assert.Equal(t, tt.len, len(re.Data), "Request ID: %s", r.Result().Header.Get("x-request-id"))
		})
	}
}

// TestEnvelopesDeleteReferenced verifies that an envelope referenced by
// active transactions cannot be deleted, only archived.
func (suite *TestSuiteStandard) TestEnvelopesDeleteReferenced() {
	budget := createTestBudget(suite.T(), v1.BudgetEditable{})
	source := createTestIncomeSource(suite.T(), v1.IncomeSourceEditable{BudgetID: budget.Data.ID})
	envelope := createTestEnvelope(suite.T(), v1.EnvelopeEditable{BudgetID: budget.Data.ID})

	_ = createTestTransaction(suite.T(), v1.TransactionEditable{
		BudgetID:       budget.Data.ID,
		Type:           models.TransactionTypeIncome,
		Amount:         decimal.NewFromFloat(100),
		IncomeSourceID: &source.Data.ID,
	})

	allocation := createTestTransaction(suite.T(), v1.TransactionEditable{
		BudgetID:     budget.Data.ID,
		Type:         models.TransactionTypeAllocation,
		Amount:       decimal.NewFromFloat(40),
		ToEnvelopeID: &envelope.Data.ID,
	})

	r := test.Request(suite.T(), http.MethodDelete, envelope.Data.Links.Self, "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusBadRequest)

	var response v1.EnvelopeResponse
	test.DecodeResponse(suite.T(), &r, &response)
	require.NotNil(suite.T(), response.Error)
	assert.Equal(suite.T(), models.ErrEnvelopeReferenced.Error(), *response.Error)

	// The envelope is untouched
	r = test.Request(suite.T(), http.MethodGet, envelope.Data.Links.Self, "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	// Archival still works
	r = test.Request(suite.T(), http.MethodPatch, envelope.Data.Links.Self, map[string]any{"archived": true})
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	// Once the allocation is soft deleted, the envelope can go
	r = test.Request(suite.T(), http.MethodDelete, allocation.Data.Links.Self, "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusNoContent)

	r = test.Request(suite.T(), http.MethodDelete, envelope.Data.Links.Self, "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusNoContent)
}

// TestEnvelopesDelete verifies all cases for Envelope deletions.
func (suite *TestSuiteStandard) TestEnvelopesDelete() {
	tests := []struct {
		name   string
		id     string
		status int // expected response status
	}{
		{"Success", "", http.StatusNoContent},
		{"Non-existing Envelope", uuid.New().String(), http.StatusNotFound},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			var recorder httptest.ResponseRecorder

			if tt.id == "" {
				e := createTestEnvelope(t, v1.EnvelopeEditable{})
				tt.id = e.Data.ID.String()
			}

			recorder = test.Request(t, http.MethodDelete, fmt.Sprintf("http://example.com/v1/envelopes/%s", tt.id), "")
			test.AssertHTTPStatus(t, &recorder, tt.status)
		})
	}
}
