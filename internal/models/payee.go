package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Payee represents a recipient of expense transactions.
type Payee struct {
	DefaultModel
	Budget   Budget    `json:"-"`
	BudgetID uuid.UUID `gorm:"uniqueIndex:payee_budget_name"`
	Name     string    `gorm:"uniqueIndex:payee_budget_name"`
	Note     string
	Address  string

	// TotalPaid, LastPaymentDate and LastPaymentAmount are cached values
	// maintained by the ledger engine from the active expense transactions
	// referencing this payee.
	TotalPaid         decimal.Decimal `gorm:"type:DECIMAL(20,8)"`
	LastPaymentDate   *time.Time
	LastPaymentAmount decimal.Decimal `gorm:"type:DECIMAL(20,8)"`

	Archived bool
}

// BeforeSave trims whitespace from all strings.
func (p *Payee) BeforeSave(_ *gorm.DB) error {
	p.Name = strings.TrimSpace(p.Name)
	p.Note = strings.TrimSpace(p.Note)
	p.Address = strings.TrimSpace(p.Address)

	return nil
}

func (p *Payee) BeforeCreate(tx *gorm.DB) error {
	_ = p.DefaultModel.BeforeCreate(tx)

	toSave := tx.Statement.Dest.(*Payee)
	return p.checkIntegrity(tx, *toSave)
}

// BeforeUpdate verifies the state of the payee before
// committing an update to the database.
func (p *Payee) BeforeUpdate(tx *gorm.DB) error {
	toSave, ok := tx.Statement.Dest.(Payee)
	if !ok {
		return nil
	}

	if tx.Statement.Changed("BudgetID") {
		err := p.checkIntegrity(tx, toSave)
		if err != nil {
			return err
		}
	}

	return nil
}

// BeforeDelete blocks deletion while active transactions reference the
// payee. The retirement path for a payee in use is archival.
func (p *Payee) BeforeDelete(tx *gorm.DB) error {
	var count int64
	err := tx.Model(&Transaction{}).Where("payee_id = ?", p.ID).Count(&count).Error
	if err != nil {
		return err
	}

	if count > 0 {
		return ErrPayeeReferenced
	}

	return nil
}

// checkIntegrity verifies references to other resources
func (p *Payee) checkIntegrity(tx *gorm.DB, toSave Payee) error {
	return tx.First(&Budget{}, toSave.BudgetID).Error
}

// Returns all payees on this instance for export
func (Payee) Export() (json.RawMessage, error) {
	var payees []Payee
	err := DB.Unscoped().Where(&Payee{}).Find(&payees).Error
	if err != nil {
		return nil, err
	}

	j, err := json.Marshal(&payees)
	if err != nil {
		return json.RawMessage{}, err
	}
	return json.RawMessage(j), nil
}
