package v1

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/moneyfold/backend/internal/httputil"
	"github.com/moneyfold/backend/internal/ledger"
	"github.com/moneyfold/backend/internal/models"
	"github.com/shopspring/decimal"
)

type BudgetEditable struct {
	Name     string `json:"name" example:"Morre's Budget" default:""`       // Name of the budget
	Note     string `json:"note" example:"My personal expenses" default:""` // A longer description of the budget
	Currency string `json:"currency" example:"€" default:""`                // The currency for the budget
}

func (editable BudgetEditable) model() models.Budget {
	return models.Budget{
		Name:     editable.Name,
		Note:     editable.Note,
		Currency: editable.Currency,
	}
}

type BudgetLinks struct {
	Self          string `json:"self" example:"https://example.com/api/v1/budgets/550dc009-cea6-4c12-b2a5-03446eb7b7cf"`                 // The budget itself
	Categories    string `json:"categories" example:"https://example.com/api/v1/categories?budget=550dc009-cea6-4c12-b2a5-03446eb7b7cf"` // Categories for this budget
	Envelopes     string `json:"envelopes" example:"https://example.com/api/v1/envelopes?budget=550dc009-cea6-4c12-b2a5-03446eb7b7cf"`   // Envelopes for this budget
	Payees        string `json:"payees" example:"https://example.com/api/v1/payees?budget=550dc009-cea6-4c12-b2a5-03446eb7b7cf"`         // Payees for this budget
	IncomeSources string `json:"incomeSources" example:"https://example.com/api/v1/income-sources?budget=550dc009-cea6-4c12-b2a5-03446eb7b7cf"`
	Transactions  string `json:"transactions" example:"https://example.com/api/v1/transactions?budget=550dc009-cea6-4c12-b2a5-03446eb7b7cf"` // Transactions for this budget
	Summary       string `json:"summary" example:"https://example.com/api/v1/budgets/550dc009-cea6-4c12-b2a5-03446eb7b7cf/summary"`          // Aggregated state of this budget
	Consistency   string `json:"consistency" example:"https://example.com/api/v1/budgets/550dc009-cea6-4c12-b2a5-03446eb7b7cf/consistency"`  // Consistency checks for this budget
}

// Budget is the API v1 representation of a Budget.
type Budget struct {
	models.DefaultModel
	BudgetEditable
	AvailableAmount decimal.Decimal `json:"availableAmount" example:"573.12"` // The amount not yet allocated to envelopes
	Links           BudgetLinks     `json:"links"`
}

func newBudget(c *gin.Context, model models.Budget) Budget {
	url := httputil.RequestHost(c)

	return Budget{
		DefaultModel: model.DefaultModel,
		BudgetEditable: BudgetEditable{
			Name:     model.Name,
			Note:     model.Note,
			Currency: model.Currency,
		},
		AvailableAmount: model.AvailableAmount,
		Links: BudgetLinks{
			Self:          fmt.Sprintf("%s/v1/budgets/%s", url, model.ID),
			Categories:    fmt.Sprintf("%s/v1/categories?budget=%s", url, model.ID),
			Envelopes:     fmt.Sprintf("%s/v1/envelopes?budget=%s", url, model.ID),
			Payees:        fmt.Sprintf("%s/v1/payees?budget=%s", url, model.ID),
			IncomeSources: fmt.Sprintf("%s/v1/income-sources?budget=%s", url, model.ID),
			Transactions:  fmt.Sprintf("%s/v1/transactions?budget=%s", url, model.ID),
			Summary:       fmt.Sprintf("%s/v1/budgets/%s/summary", url, model.ID),
			Consistency:   fmt.Sprintf("%s/v1/budgets/%s/consistency", url, model.ID),
		},
	}
}

type BudgetListResponse struct {
	Data       []Budget    `json:"data"`                                                          // List of budgets
	Error      *string     `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
	Pagination *Pagination `json:"pagination"`                                                    // Pagination information
}

type BudgetCreateResponse struct {
	Error *string          `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
	Data  []BudgetResponse `json:"data"`                                                          // List of created Budgets
}

func (b *BudgetCreateResponse) appendError(err error, currentStatus int) int {
	s := err.Error()
	b.Data = append(b.Data, BudgetResponse{Error: &s})

	// The final status code is the highest HTTP status code number
	if status(err) > currentStatus {
		currentStatus = status(err)
	}

	return currentStatus
}

type BudgetResponse struct {
	Data  *Budget `json:"data"`                                                          // Data for the budget
	Error *string `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

type BudgetQueryFilter struct {
	Name     string `form:"name" filterField:"false"`   // By name
	Note     string `form:"note" filterField:"false"`   // By note
	Currency string `form:"currency"`                   // By currency
	Search   string `form:"search" filterField:"false"` // By string in name or note
	Offset   uint   `form:"offset" filterField:"false"` // The offset of the first Budget returned. Defaults to 0.
	Limit    int    `form:"limit" filterField:"false"`  // Maximum number of Budgets to return. Defaults to 50.
}

func (f BudgetQueryFilter) model() models.Budget {
	// Does not return string fields since they are filtered by the controller
	return models.Budget{
		Currency: f.Currency,
	}
}

type BudgetSummaryResponse struct {
	Data  *ledger.BudgetSummary `json:"data"`                                                 // The aggregated state of the budget
	Error *string               `json:"error" example:"there is no budget matching your query"` // The error, if any occurred
}

type ConsistencyResponse struct {
	Data  []ledger.ConsistencyCheck `json:"data"`                                                 // One result per consistency check
	Error *string                   `json:"error" example:"there is no budget matching your query"` // The error, if any occurred
}
