package v1

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/moneyfold/backend/internal/httputil"
	"github.com/moneyfold/backend/internal/ledger"
	"github.com/moneyfold/backend/internal/models"
	"github.com/shopspring/decimal"
)

type TransactionEditable struct {
	BudgetID uuid.UUID              `json:"budgetId" example:"550dc009-cea6-4c12-b2a5-03446eb7b7cf"` // ID of the budget the transaction belongs to
	Type     models.TransactionType `json:"type" example:"expense"`                                  // income, allocation, expense, transfer or payoff

	Amount decimal.Decimal `json:"amount" example:"14.03" minimum:"0.00000001" multipleOf:"0.00000001"` // The amount of money moved
	Date   time.Time       `json:"date" example:"2024-11-04T00:00:00Z"`                                 // Date of the transaction. Defaults to the current time when unset
	Note   string          `json:"note" example:"Lunch" default:""`                                     // A longer description of the transaction

	// Which references are required depends on the type: income needs an
	// income source, allocations a destination envelope, expenses a source
	// envelope and a payee, transfers both envelopes and payoffs a source
	// debt envelope and a payee.
	FromEnvelopeID *uuid.UUID `json:"fromEnvelopeId" example:"45b6b5b9-f746-4ae9-b77b-7688b91f8166"`
	ToEnvelopeID   *uuid.UUID `json:"toEnvelopeId" example:"c6a93b8b-73d7-4aa6-a5c5-91a405a40fb9"`
	PayeeID        *uuid.UUID `json:"payeeId" example:"af892e10-7e0a-4fb8-b1bc-4b6d88401ed9"`
	IncomeSourceID *uuid.UUID `json:"incomeSourceId" example:"2f1f9d8a-6c72-4c5e-a3a9-27c4d9c156de"`

	Cleared    bool `json:"cleared" example:"false" default:"false"`    // Has the transaction cleared the underlying real-world account?
	Reconciled bool `json:"reconciled" example:"false" default:"false"` // Has the transaction been confirmed against a statement?
}

func (editable TransactionEditable) model() models.Transaction {
	return models.Transaction{
		BudgetID:       editable.BudgetID,
		Type:           editable.Type,
		Amount:         editable.Amount,
		Date:           editable.Date,
		Note:           editable.Note,
		FromEnvelopeID: editable.FromEnvelopeID,
		ToEnvelopeID:   editable.ToEnvelopeID,
		PayeeID:        editable.PayeeID,
		IncomeSourceID: editable.IncomeSourceID,
		Cleared:        editable.Cleared,
		Reconciled:     editable.Reconciled,
	}
}

// TransactionPatchBody is the request body for amending a transaction. Only
// fields present in the body are changed. Reference fields are cleared by
// setting them to the nil UUID.
type TransactionPatchBody struct {
	Type           *models.TransactionType `json:"type" example:"expense"`
	Amount         *decimal.Decimal        `json:"amount" example:"14.03" minimum:"0.00000001" multipleOf:"0.00000001"`
	Date           *time.Time              `json:"date" example:"2024-11-04T00:00:00Z"`
	Note           *string                 `json:"note" example:"Lunch"`
	FromEnvelopeID *uuid.UUID              `json:"fromEnvelopeId" example:"45b6b5b9-f746-4ae9-b77b-7688b91f8166"`
	ToEnvelopeID   *uuid.UUID              `json:"toEnvelopeId" example:"c6a93b8b-73d7-4aa6-a5c5-91a405a40fb9"`
	PayeeID        *uuid.UUID              `json:"payeeId" example:"af892e10-7e0a-4fb8-b1bc-4b6d88401ed9"`
	IncomeSourceID *uuid.UUID              `json:"incomeSourceId" example:"2f1f9d8a-6c72-4c5e-a3a9-27c4d9c156de"`
	Cleared        *bool                   `json:"cleared" example:"true"`
	Reconciled     *bool                   `json:"reconciled" example:"true"`
}

func (body TransactionPatchBody) patch() ledger.TransactionPatch {
	return ledger.TransactionPatch{
		Type:           body.Type,
		Amount:         body.Amount,
		Date:           body.Date,
		Note:           body.Note,
		FromEnvelopeID: body.FromEnvelopeID,
		ToEnvelopeID:   body.ToEnvelopeID,
		PayeeID:        body.PayeeID,
		IncomeSourceID: body.IncomeSourceID,
		Cleared:        body.Cleared,
		Reconciled:     body.Reconciled,
	}
}

type TransactionLinks struct {
	Self   string `json:"self" example:"https://example.com/api/v1/transactions/d430d7c3-d14c-4712-9336-ee56965a6673"`          // The transaction itself
	Events string `json:"events" example:"https://example.com/api/v1/transactions/d430d7c3-d14c-4712-9336-ee56965a6673/events"` // The audit trail of the transaction
}

// Transaction is the API v1 representation of a Transaction.
type Transaction struct {
	models.DefaultModel
	TransactionEditable
	DeletedBy string           `json:"deletedBy" example:"jane"` // Who deleted the transaction, if it is deleted
	Links     TransactionLinks `json:"links"`
}

func newTransaction(c *gin.Context, model models.Transaction) Transaction {
	url := httputil.RequestHost(c)

	return Transaction{
		DefaultModel: model.DefaultModel,
		TransactionEditable: TransactionEditable{
			BudgetID:       model.BudgetID,
			Type:           model.Type,
			Amount:         model.Amount,
			Date:           model.Date,
			Note:           model.Note,
			FromEnvelopeID: model.FromEnvelopeID,
			ToEnvelopeID:   model.ToEnvelopeID,
			PayeeID:        model.PayeeID,
			IncomeSourceID: model.IncomeSourceID,
			Cleared:        model.Cleared,
			Reconciled:     model.Reconciled,
		},
		DeletedBy: model.DeletedBy,
		Links: TransactionLinks{
			Self:   fmt.Sprintf("%s/v1/transactions/%s", url, model.ID),
			Events: fmt.Sprintf("%s/v1/transactions/%s/events", url, model.ID),
		},
	}
}

type TransactionListResponse struct {
	Data       []Transaction `json:"data"`                                                          // List of transactions
	Error      *string       `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
	Pagination *Pagination   `json:"pagination"`                                                    // Pagination information
}

type TransactionCreateResponse struct {
	Data  []TransactionResponse `json:"data"`                                                          // List of created Transactions
	Error *string               `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

func (t *TransactionCreateResponse) appendError(err error, currentStatus int) int {
	s := err.Error()
	t.Data = append(t.Data, TransactionResponse{Error: &s})

	if status(err) > currentStatus {
		currentStatus = status(err)
	}

	return currentStatus
}

type TransactionResponse struct {
	Data  *Transaction `json:"data"`                                                          // Data for the transaction
	Error *string      `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

// EventListResponse contains the audit trail of a transaction.
type EventListResponse struct {
	Data  []models.TransactionEvent `json:"data"`                                                          // List of audit events, oldest first
	Error *string                   `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

type TransactionQueryFilter struct {
	BudgetID       string `form:"budget"`                        // By budget ID
	Type           string `form:"type"`                          // By transaction type
	EnvelopeID     string `form:"envelope" filterField:"false"`  // By envelope, as source or destination
	PayeeID        string `form:"payee"`                         // By payee ID
	IncomeSourceID string `form:"incomeSource"`                  // By income source ID
	FromDate       string `form:"fromDate" filterField:"false"`  // Transactions at and after this date
	UntilDate      string `form:"untilDate" filterField:"false"` // Transactions before and at this date
	Note           string `form:"note" filterField:"false"`      // By note
	Search         string `form:"search" filterField:"false"`    // By string in the note
	Deleted        bool   `form:"deleted" filterField:"false"`   // Only soft-deleted transactions
	Offset         uint   `form:"offset" filterField:"false"`    // The offset of the first Transaction returned. Defaults to 0.
	Limit          int    `form:"limit" filterField:"false"`     // Maximum number of Transactions to return. Defaults to 50.
}

func (f TransactionQueryFilter) model() (models.Transaction, error) {
	budgetID, err := httputil.UUIDFromString(f.BudgetID)
	if err != nil {
		return models.Transaction{}, err
	}

	payeeID, err := httputil.UUIDFromString(f.PayeeID)
	if err != nil {
		return models.Transaction{}, err
	}

	incomeSourceID, err := httputil.UUIDFromString(f.IncomeSourceID)
	if err != nil {
		return models.Transaction{}, err
	}

	transaction := models.Transaction{
		BudgetID: budgetID,
		Type:     models.TransactionType(f.Type),
	}

	if payeeID != uuid.Nil {
		transaction.PayeeID = &payeeID
	}

	if incomeSourceID != uuid.Nil {
		transaction.IncomeSourceID = &incomeSourceID
	}

	return transaction, nil
}
