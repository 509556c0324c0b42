package models

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Category represents a category of envelopes.
type Category struct {
	DefaultModel
	Budget   Budget    `json:"-"`
	BudgetID uuid.UUID `gorm:"uniqueIndex:category_budget_name"`
	Name     string    `gorm:"uniqueIndex:category_budget_name"`
	Note     string

	// ParentID references the parent category. Categories nest exactly one
	// level deep, a category with a parent cannot be a parent itself.
	ParentID *uuid.UUID
	Parent   *Category `json:"-"`

	// IsSystem marks the categories every budget is created with.
	// They cannot be deleted and the flag cannot be cleared.
	IsSystem bool

	// Total is a cached value maintained by the ledger engine. It always
	// equals the sum of the active envelope balances directly in this
	// category plus the totals of its child categories.
	Total decimal.Decimal `gorm:"type:DECIMAL(20,8)"`

	DisplayOrder uint
	Archived     bool
}

// BeforeSave trims whitespace from all strings and normalizes the parent
// reference.
func (c *Category) BeforeSave(_ *gorm.DB) error {
	c.Name = strings.TrimSpace(c.Name)
	c.Note = strings.TrimSpace(c.Note)

	// Ensure that the parent ID is nil and not a pointer to a nil UUID
	if c.ParentID != nil && *c.ParentID == uuid.Nil {
		c.ParentID = nil
	}

	return nil
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	_ = c.DefaultModel.BeforeCreate(tx)

	toSave := tx.Statement.Dest.(*Category)
	return c.checkIntegrity(tx, *toSave)
}

// BeforeUpdate verifies the state of the category before
// committing an update to the database.
func (c *Category) BeforeUpdate(tx *gorm.DB) error {
	toSave, ok := tx.Statement.Dest.(Category)
	if !ok {
		return nil
	}

	if tx.Statement.Changed("BudgetID") || tx.Statement.Changed("ParentID") {
		if toSave.BudgetID == uuid.Nil {
			toSave.BudgetID = c.BudgetID
		}

		err := c.checkIntegrity(tx, toSave)
		if err != nil {
			return err
		}
	}

	// The system flag protects the built-in categories, it can never be
	// cleared once set.
	if tx.Statement.Changed("IsSystem") && c.IsSystem && !toSave.IsSystem {
		return ErrCategoryIsSystem
	}

	return nil
}

// BeforeDelete protects the system categories.
func (c *Category) BeforeDelete(_ *gorm.DB) error {
	if c.IsSystem {
		return ErrCategoryIsSystem
	}

	return nil
}

// checkIntegrity verifies references to other resources.
func (c *Category) checkIntegrity(tx *gorm.DB, toSave Category) error {
	err := tx.First(&Budget{}, toSave.BudgetID).Error
	if err != nil {
		return err
	}

	if toSave.ParentID == nil || *toSave.ParentID == uuid.Nil {
		return nil
	}

	if *toSave.ParentID == c.ID {
		return ErrCategoryParentSelf
	}

	var parent Category
	err = tx.First(&parent, *toSave.ParentID).Error
	if err != nil {
		return err
	}

	if parent.BudgetID != toSave.BudgetID {
		return ErrCategoryParentBudget
	}

	// The model forbids grandchildren
	if parent.ParentID != nil {
		return ErrCategoryNestingTooDeep
	}

	// A category that has children cannot become a child itself
	var children int64
	err = tx.Model(&Category{}).Where("parent_id = ?", c.ID).Count(&children).Error
	if err != nil {
		return err
	}

	if children > 0 {
		return ErrCategoryNestingTooDeep
	}

	return nil
}

// Envelopes returns all active envelopes in this category.
func (c Category) Envelopes(tx *gorm.DB) ([]Envelope, error) {
	var envelopes []Envelope
	err := tx.Where(&Envelope{CategoryID: c.ID}).Find(&envelopes).Error

	return envelopes, err
}

// Returns all categories on this instance for export
func (Category) Export() (json.RawMessage, error) {
	var categories []Category
	err := DB.Unscoped().Where(&Category{}).Find(&categories).Error
	if err != nil {
		return nil, err
	}

	j, err := json.Marshal(&categories)
	if err != nil {
		return json.RawMessage{}, err
	}
	return json.RawMessage(j), nil
}
