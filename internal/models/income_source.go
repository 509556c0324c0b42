package models

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// IncomeSource represents an origin of income transactions,
// e.g. an employer.
type IncomeSource struct {
	DefaultModel
	Budget   Budget    `json:"-"`
	BudgetID uuid.UUID `gorm:"uniqueIndex:income_source_budget_name"`
	Name     string    `gorm:"uniqueIndex:income_source_budget_name"`
	Note     string

	// ExpectedAmount and ExpectedDay are read by the notification scheduler
	// to remind about missing income. They have no effect on the ledger.
	ExpectedAmount decimal.Decimal `gorm:"type:DECIMAL(20,8)"`
	ExpectedDay    uint

	Archived bool
}

// BeforeSave trims whitespace from all strings.
func (i *IncomeSource) BeforeSave(_ *gorm.DB) error {
	i.Name = strings.TrimSpace(i.Name)
	i.Note = strings.TrimSpace(i.Note)

	return nil
}

func (i *IncomeSource) BeforeCreate(tx *gorm.DB) error {
	_ = i.DefaultModel.BeforeCreate(tx)

	toSave := tx.Statement.Dest.(*IncomeSource)
	return i.checkIntegrity(tx, *toSave)
}

// BeforeUpdate verifies the state of the income source before
// committing an update to the database.
func (i *IncomeSource) BeforeUpdate(tx *gorm.DB) error {
	toSave, ok := tx.Statement.Dest.(IncomeSource)
	if !ok {
		return nil
	}

	if tx.Statement.Changed("BudgetID") {
		err := i.checkIntegrity(tx, toSave)
		if err != nil {
			return err
		}
	}

	return nil
}

// BeforeDelete blocks deletion while active transactions reference the
// income source. The retirement path for an income source in use is archival.
func (i *IncomeSource) BeforeDelete(tx *gorm.DB) error {
	var count int64
	err := tx.Model(&Transaction{}).Where("income_source_id = ?", i.ID).Count(&count).Error
	if err != nil {
		return err
	}

	if count > 0 {
		return ErrIncomeSourceReferenced
	}

	return nil
}

// checkIntegrity verifies references to other resources
func (i *IncomeSource) checkIntegrity(tx *gorm.DB, toSave IncomeSource) error {
	return tx.First(&Budget{}, toSave.BudgetID).Error
}

// Returns all income sources on this instance for export
func (IncomeSource) Export() (json.RawMessage, error) {
	var incomeSources []IncomeSource
	err := DB.Unscoped().Where(&IncomeSource{}).Find(&incomeSources).Error
	if err != nil {
		return nil, err
	}

	j, err := json.Marshal(&incomeSources)
	if err != nil {
		return json.RawMessage{}, err
	}
	return json.RawMessage(j), nil
}
