package v1

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/moneyfold/backend/internal/httputil"
	"github.com/moneyfold/backend/internal/models"
	"github.com/shopspring/decimal"
)

type IncomeSourceEditable struct {
	BudgetID uuid.UUID `json:"budgetId" example:"550dc009-cea6-4c12-b2a5-03446eb7b7cf"` // ID of the budget the income source belongs to
	Name     string    `json:"name" example:"Employer" default:""`                      // Name of the income source
	Note     string    `json:"note" example:"Part time job" default:""`                 // A longer description of the income source

	// ExpectedAmount and ExpectedDay describe when income from this source is
	// usually received. They are informational and have no effect on the
	// ledger.
	ExpectedAmount decimal.Decimal `json:"expectedAmount" example:"2150.00" minimum:"0.00000001" multipleOf:"0.00000001"`
	ExpectedDay    uint            `json:"expectedDay" example:"28" maximum:"31"`

	Archived bool `json:"archived" example:"true" default:"false"` // Is the income source archived?
}

func (editable IncomeSourceEditable) model() models.IncomeSource {
	return models.IncomeSource{
		BudgetID:       editable.BudgetID,
		Name:           editable.Name,
		Note:           editable.Note,
		ExpectedAmount: editable.ExpectedAmount,
		ExpectedDay:    editable.ExpectedDay,
		Archived:       editable.Archived,
	}
}

type IncomeSourceLinks struct {
	Self         string `json:"self" example:"https://example.com/api/v1/income-sources/2f1f9d8a-6c72-4c5e-a3a9-27c4d9c156de"`                     // The income source itself
	Transactions string `json:"transactions" example:"https://example.com/api/v1/transactions?incomeSource=2f1f9d8a-6c72-4c5e-a3a9-27c4d9c156de"` // Income received from this source
}

// IncomeSource is the API v1 representation of an IncomeSource.
type IncomeSource struct {
	models.DefaultModel
	IncomeSourceEditable
	Links IncomeSourceLinks `json:"links"`
}

func newIncomeSource(c *gin.Context, model models.IncomeSource) IncomeSource {
	url := httputil.RequestHost(c)

	return IncomeSource{
		DefaultModel: model.DefaultModel,
		IncomeSourceEditable: IncomeSourceEditable{
			BudgetID:       model.BudgetID,
			Name:           model.Name,
			Note:           model.Note,
			ExpectedAmount: model.ExpectedAmount,
			ExpectedDay:    model.ExpectedDay,
			Archived:       model.Archived,
		},
		Links: IncomeSourceLinks{
			Self:         fmt.Sprintf("%s/v1/income-sources/%s", url, model.ID),
			Transactions: fmt.Sprintf("%s/v1/transactions?incomeSource=%s", url, model.ID),
		},
	}
}

type IncomeSourceListResponse struct {
	Data       []IncomeSource `json:"data"`                                                          // List of income sources
	Error      *string        `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
	Pagination *Pagination    `json:"pagination"`                                                    // Pagination information
}

type IncomeSourceCreateResponse struct {
	Data  []IncomeSourceResponse `json:"data"`                                                          // List of created IncomeSources
	Error *string                `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

func (t *IncomeSourceCreateResponse) appendError(err error, currentStatus int) int {
	s := err.Error()
	t.Data = append(t.Data, IncomeSourceResponse{Error: &s})

	if status(err) > currentStatus {
		currentStatus = status(err)
	}

	return currentStatus
}

type IncomeSourceResponse struct {
	Data  *IncomeSource `json:"data"`                                                          // Data for the income source
	Error *string       `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

type IncomeSourceQueryFilter struct {
	BudgetID string `form:"budget"`                     // By budget ID
	Name     string `form:"name" filterField:"false"`   // By name
	Note     string `form:"note" filterField:"false"`   // By note
	Archived bool   `form:"archived"`                   // Is the income source archived?
	Search   string `form:"search" filterField:"false"` // By string in name or note
	Offset   uint   `form:"offset" filterField:"false"` // The offset of the first IncomeSource returned. Defaults to 0.
	Limit    int    `form:"limit" filterField:"false"`  // Maximum number of IncomeSources to return. Defaults to 50.
}

func (f IncomeSourceQueryFilter) model() (models.IncomeSource, error) {
	budgetID, err := httputil.UUIDFromString(f.BudgetID)
	if err != nil {
		return models.IncomeSource{}, err
	}

	return models.IncomeSource{
		BudgetID: budgetID,
		Archived: f.Archived,
	}, nil
}
