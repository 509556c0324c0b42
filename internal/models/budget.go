package models

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Budget represents a budget
//
// A budget is the highest level of organization in Moneyfold, all other
// resources reference it directly or transitively.
type Budget struct {
	DefaultModel
	Name     string
	Note     string
	Currency string // Only used for display, there is no conversion

	// AvailableAmount is the unallocated pool of the budget. It is a cached
	// value maintained by the ledger engine and always equals the sum of all
	// active income minus the sum of all active allocations.
	AvailableAmount decimal.Decimal `gorm:"type:DECIMAL(20,8)"`
}

// Names of the categories every budget is created with.
//
// "Uncategorized" collects envelopes without an explicit category,
// the other two back the envelope types of the same name.
const (
	SystemCategoryUncategorized = "Uncategorized"
	SystemCategorySavings       = "Savings"
	SystemCategoryDebt          = "Debt"
)

// BeforeSave trims whitespace from all strings.
func (b *Budget) BeforeSave(_ *gorm.DB) error {
	b.Name = strings.TrimSpace(b.Name)
	b.Note = strings.TrimSpace(b.Note)
	b.Currency = strings.TrimSpace(b.Currency)

	return nil
}

// AfterCreate seeds the system categories for the budget.
func (b *Budget) AfterCreate(tx *gorm.DB) error {
	names := []string{SystemCategoryUncategorized, SystemCategorySavings, SystemCategoryDebt}

	for i, name := range names {
		category := Category{
			BudgetID:     b.ID,
			Name:         name,
			IsSystem:     true,
			DisplayOrder: uint(i),
		}

		err := tx.Create(&category).Error
		if err != nil {
			return err
		}
	}

	return nil
}

// SystemCategory returns the system category with the given name for the budget.
func (b Budget) SystemCategory(tx *gorm.DB, name string) (Category, error) {
	var category Category
	err := tx.Where(&Category{BudgetID: b.ID, Name: name, IsSystem: true}, "BudgetID", "Name", "IsSystem").First(&category).Error

	return category, err
}

// Returns all budgets on this instance for export
func (Budget) Export() (json.RawMessage, error) {
	var budgets []Budget
	err := DB.Unscoped().Where(&Budget{}).Find(&budgets).Error
	if err != nil {
		return nil, err
	}

	j, err := json.Marshal(&budgets)
	if err != nil {
		return json.RawMessage{}, err
	}
	return json.RawMessage(j), nil
}
