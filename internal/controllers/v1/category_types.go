package v1

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/moneyfold/backend/internal/httputil"
	"github.com/moneyfold/backend/internal/models"
	"github.com/shopspring/decimal"
)

type CategoryEditable struct {
	BudgetID uuid.UUID  `json:"budgetId" example:"550dc009-cea6-4c12-b2a5-03446eb7b7cf"` // ID of the budget the category belongs to
	Name     string     `json:"name" example:"Running costs" default:""`                 // Name of the category
	Note     string     `json:"note" example:"All monthly recurring costs" default:""`   // A longer description of the category
	ParentID *uuid.UUID `json:"parentId" example:"d7e7d44a-fb3f-4b27-9a26-01bd5f0b96d5"` // ID of the parent category. Nesting is exactly one level deep
	Archived bool       `json:"archived" example:"true" default:"false"`                 // Is the category archived?

	// Position in the display order. On create the category is appended when
	// this is unset. On update a set position moves the category.
	Position *uint `json:"position" example:"2"`
}

func (editable CategoryEditable) model() models.Category {
	return models.Category{
		BudgetID: editable.BudgetID,
		Name:     editable.Name,
		Note:     editable.Note,
		ParentID: editable.ParentID,
		Archived: editable.Archived,
	}
}

type CategoryLinks struct {
	Self      string `json:"self" example:"https://example.com/api/v1/categories/3b1ea324-d438-4419-882a-2fc91f71defe"`             // The category itself
	Envelopes string `json:"envelopes" example:"https://example.com/api/v1/envelopes?category=3b1ea324-d438-4419-882a-2fc91f71defe"` // Envelopes for this category
}

// Category is the API v1 representation of a Category.
type Category struct {
	models.DefaultModel
	CategoryEditable
	IsSystem     bool            `json:"isSystem" example:"false"`     // Is this one of the categories every budget is created with?
	Total        decimal.Decimal `json:"total" example:"180.99"`       // The sum of the active envelope balances in this category and its children
	DisplayOrder uint            `json:"displayOrder" example:"2"`     // Position of the category in the display order
	Links        CategoryLinks   `json:"links"`
}

func newCategory(c *gin.Context, model models.Category) Category {
	url := httputil.RequestHost(c)

	position := model.DisplayOrder
	return Category{
		DefaultModel: model.DefaultModel,
		CategoryEditable: CategoryEditable{
			BudgetID: model.BudgetID,
			Name:     model.Name,
			Note:     model.Note,
			ParentID: model.ParentID,
			Archived: model.Archived,
			Position: &position,
		},
		IsSystem:     model.IsSystem,
		Total:        model.Total,
		DisplayOrder: model.DisplayOrder,
		Links: CategoryLinks{
			Self:      fmt.Sprintf("%s/v1/categories/%s", url, model.ID),
			Envelopes: fmt.Sprintf("%s/v1/envelopes?category=%s", url, model.ID),
		},
	}
}

type CategoryListResponse struct {
	Data       []Category  `json:"data"`                                                          // List of categories
	Error      *string     `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
	Pagination *Pagination `json:"pagination"`                                                    // Pagination information
}

type CategoryCreateResponse struct {
	Data  []CategoryResponse `json:"data"`                                                          // List of created Categories
	Error *string            `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

func (t *CategoryCreateResponse) appendError(err error, currentStatus int) int {
	s := err.Error()
	t.Data = append(t.Data, CategoryResponse{Error: &s})

	if status(err) > currentStatus {
		currentStatus = status(err)
	}

	return currentStatus
}

type CategoryResponse struct {
	Data  *Category `json:"data"`                                                          // Data for the category
	Error *string   `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

type CategoryQueryFilter struct {
	BudgetID string `form:"budget"`                     // By budget ID
	ParentID string `form:"parent"`                     // By parent category ID
	Name     string `form:"name" filterField:"false"`   // By name
	Note     string `form:"note" filterField:"false"`   // By note
	Archived bool   `form:"archived"`                   // Is the category archived?
	Search   string `form:"search" filterField:"false"` // By string in name or note
	Offset   uint   `form:"offset" filterField:"false"` // The offset of the first Category returned. Defaults to 0.
	Limit    int    `form:"limit" filterField:"false"`  // Maximum number of Categories to return. Defaults to 50.
}

func (f CategoryQueryFilter) model() (models.Category, error) {
	budgetID, err := httputil.UUIDFromString(f.BudgetID)
	if err != nil {
		return models.Category{}, err
	}

	parentID, err := httputil.UUIDFromString(f.ParentID)
	if err != nil {
		return models.Category{}, err
	}

	var parent *uuid.UUID
	if parentID != uuid.Nil {
		parent = &parentID
	}

	return models.Category{
		BudgetID: budgetID,
		ParentID: parent,
		Archived: f.Archived,
	}, nil
}
