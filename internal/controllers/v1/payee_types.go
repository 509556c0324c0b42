package v1

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/moneyfold/backend/internal/httputil"
	"github.com/moneyfold/backend/internal/models"
	"github.com/shopspring/decimal"
)

type PayeeEditable struct {
	BudgetID uuid.UUID `json:"budgetId" example:"550dc009-cea6-4c12-b2a5-03446eb7b7cf"`     // ID of the budget the payee belongs to
	Name     string    `json:"name" example:"Milkman" default:""`                           // Name of the payee
	Note     string    `json:"note" example:"The guy who delivers the milk" default:""`     // A longer description of the payee
	Address  string    `json:"address" example:"Main Street 1, 12345 Moneyfold" default:""` // Postal address of the payee
	Archived bool      `json:"archived" example:"true" default:"false"`                     // Is the payee archived?
}

func (editable PayeeEditable) model() models.Payee {
	return models.Payee{
		BudgetID: editable.BudgetID,
		Name:     editable.Name,
		Note:     editable.Note,
		Address:  editable.Address,
		Archived: editable.Archived,
	}
}

type PayeeLinks struct {
	Self         string `json:"self" example:"https://example.com/api/v1/payees/af892e10-7e0a-4fb8-b1bc-4b6d88401ed9"`                     // The payee itself
	Transactions string `json:"transactions" example:"https://example.com/api/v1/transactions?payee=af892e10-7e0a-4fb8-b1bc-4b6d88401ed9"` // Expenses paid to this payee
}

// Payee is the API v1 representation of a Payee.
//
// TotalPaid, LastPaymentDate and LastPaymentAmount are maintained from the
// active expense transactions and cannot be set through the API.
type Payee struct {
	models.DefaultModel
	PayeeEditable
	TotalPaid         decimal.Decimal `json:"totalPaid" example:"741.21"`                     // Sum of all active expenses paid to this payee
	LastPaymentDate   *time.Time      `json:"lastPaymentDate" example:"2024-11-04T00:00:00Z"` // Date of the most recent active expense
	LastPaymentAmount decimal.Decimal `json:"lastPaymentAmount" example:"31.17"`              // Amount of the most recent active expense
	Links             PayeeLinks      `json:"links"`
}

func newPayee(c *gin.Context, model models.Payee) Payee {
	url := httputil.RequestHost(c)

	return Payee{
		DefaultModel: model.DefaultModel,
		PayeeEditable: PayeeEditable{
			BudgetID: model.BudgetID,
			Name:     model.Name,
			Note:     model.Note,
			Address:  model.Address,
			Archived: model.Archived,
		},
		TotalPaid:         model.TotalPaid,
		LastPaymentDate:   model.LastPaymentDate,
		LastPaymentAmount: model.LastPaymentAmount,
		Links: PayeeLinks{
			Self:         fmt.Sprintf("%s/v1/payees/%s", url, model.ID),
			Transactions: fmt.Sprintf("%s/v1/transactions?payee=%s", url, model.ID),
		},
	}
}

type PayeeListResponse struct {
	Data       []Payee     `json:"data"`                                                          // List of payees
	Error      *string     `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
	Pagination *Pagination `json:"pagination"`                                                    // Pagination information
}

type PayeeCreateResponse struct {
	Data  []PayeeResponse `json:"data"`                                                          // List of created Payees
	Error *string         `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

func (t *PayeeCreateResponse) appendError(err error, currentStatus int) int {
	s := err.Error()
	t.Data = append(t.Data, PayeeResponse{Error: &s})

	if status(err) > currentStatus {
		currentStatus = status(err)
	}

	return currentStatus
}

type PayeeResponse struct {
	Data  *Payee  `json:"data"`                                                          // Data for the payee
	Error *string `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

type PayeeQueryFilter struct {
	BudgetID string `form:"budget"`                     // By budget ID
	Name     string `form:"name" filterField:"false"`   // By name
	Note     string `form:"note" filterField:"false"`   // By note
	Archived bool   `form:"archived"`                   // Is the payee archived?
	Search   string `form:"search" filterField:"false"` // By string in name or note
	Offset   uint   `form:"offset" filterField:"false"` // The offset of the first Payee returned. Defaults to 0.
	Limit    int    `form:"limit" filterField:"false"`  // Maximum number of Payees to return. Defaults to 50.
}

func (f PayeeQueryFilter) model() (models.Payee, error) {
	budgetID, err := httputil.UUIDFromString(f.BudgetID)
	if err != nil {
		return models.Payee{}, err
	}

	return models.Payee{
		BudgetID: budgetID,
		Archived: f.Archived,
	}, nil
}
