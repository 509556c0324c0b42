package v1

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/moneyfold/backend/internal/httputil"
	"github.com/moneyfold/backend/internal/models"
	"github.com/shopspring/decimal"
)

type EnvelopeEditable struct {
	BudgetID uuid.UUID `json:"budgetId" example:"550dc009-cea6-4c12-b2a5-03446eb7b7cf"` // ID of the budget the envelope belongs to

	// ID of the category the envelope is filed in. When unset on creation
	// the envelope goes into the budget's "Uncategorized" system category.
	CategoryID uuid.UUID `json:"categoryId" example:"3b1ea324-d438-4419-882a-2fc91f71defe"`

	Name         string              `json:"name" example:"Groceries" default:""`                                      // Name of the envelope
	Note         string              `json:"note" example:"For the super market" default:""`                           // A longer description of the envelope
	Type         models.EnvelopeType `json:"type" example:"regular" default:"regular"`                                 // regular, savings or debt
	TargetAmount decimal.Decimal     `json:"targetAmount" example:"2400" minimum:"0.00000001" multipleOf:"0.00000001"` // For debt envelopes: the amount still owed
	Archived     bool                `json:"archived" example:"true" default:"false"`                                  // Is the envelope archived?

	// Position in the display order of its category. On create the envelope
	// is appended when this is unset. On update a set position moves the
	// envelope.
	Position *uint `json:"position" example:"1"`
}

func (editable EnvelopeEditable) model() models.Envelope {
	return models.Envelope{
		BudgetID:     editable.BudgetID,
		CategoryID:   editable.CategoryID,
		Name:         editable.Name,
		Note:         editable.Note,
		Type:         editable.Type,
		TargetAmount: editable.TargetAmount,
		Archived:     editable.Archived,
	}
}

type EnvelopeLinks struct {
	Self         string `json:"self" example:"https://example.com/api/v1/envelopes/45b6b5b9-f746-4ae9-b77b-7688b91f8166"`                 // The envelope itself
	Transactions string `json:"transactions" example:"https://example.com/api/v1/transactions?envelope=45b6b5b9-f746-4ae9-b77b-7688b91f8166"` // Transactions affecting this envelope
}

// Envelope is the API v1 representation of an Envelope.
type Envelope struct {
	models.DefaultModel
	EnvelopeEditable
	CurrentBalance decimal.Decimal `json:"currentBalance" example:"180.99"` // The money currently in the envelope
	DisplayOrder   uint            `json:"displayOrder" example:"1"`        // Position of the envelope in its category
	Links          EnvelopeLinks   `json:"links"`
}

func newEnvelope(c *gin.Context, model models.Envelope) Envelope {
	url := httputil.RequestHost(c)

	position := model.DisplayOrder
	return Envelope{
		DefaultModel: model.DefaultModel,
		EnvelopeEditable: EnvelopeEditable{
			BudgetID:     model.BudgetID,
			CategoryID:   model.CategoryID,
			Name:         model.Name,
			Note:         model.Note,
			Type:         model.Type,
			TargetAmount: model.TargetAmount,
			Archived:     model.Archived,
			Position:     &position,
		},
		CurrentBalance: model.CurrentBalance,
		DisplayOrder:   model.DisplayOrder,
		Links: EnvelopeLinks{
			Self:         fmt.Sprintf("%s/v1/envelopes/%s", url, model.ID),
			Transactions: fmt.Sprintf("%s/v1/transactions?envelope=%s", url, model.ID),
		},
	}
}

type EnvelopeListResponse struct {
	Data       []Envelope  `json:"data"`                                                          // List of envelopes
	Error      *string     `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
	Pagination *Pagination `json:"pagination"`                                                    // Pagination information
}

type EnvelopeCreateResponse struct {
	Data  []EnvelopeResponse `json:"data"`                                                          // List of created Envelopes
	Error *string            `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

func (t *EnvelopeCreateResponse) appendError(err error, currentStatus int) int {
	s := err.Error()
	t.Data = append(t.Data, EnvelopeResponse{Error: &s})

	if status(err) > currentStatus {
		currentStatus = status(err)
	}

	return currentStatus
}

type EnvelopeResponse struct {
	Data  *Envelope `json:"data"`                                                          // Data for the envelope
	Error *string   `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

type EnvelopeQueryFilter struct {
	BudgetID   string `form:"budget"`                     // By budget ID
	CategoryID string `form:"category"`                   // By category ID
	Name       string `form:"name" filterField:"false"`   // By name
	Note       string `form:"note" filterField:"false"`   // By note
	Type       string `form:"type"`                       // By envelope type
	Archived   bool   `form:"archived"`                   // Is the envelope archived?
	Search     string `form:"search" filterField:"false"` // By string in name or note
	Offset     uint   `form:"offset" filterField:"false"` // The offset of the first Envelope returned. Defaults to 0.
	Limit      int    `form:"limit" filterField:"false"`  // Maximum number of Envelopes to return. Defaults to 50.
}

func (f EnvelopeQueryFilter) model() (models.Envelope, error) {
	budgetID, err := httputil.UUIDFromString(f.BudgetID)
	if err != nil {
		return models.Envelope{}, err
	}

	categoryID, err := httputil.UUIDFromString(f.CategoryID)
	if err != nil {
		return models.Envelope{}, err
	}

	return models.Envelope{
		BudgetID:   budgetID,
		CategoryID: categoryID,
		Type:       models.EnvelopeType(f.Type),
		Archived:   f.Archived,
	}, nil
}
