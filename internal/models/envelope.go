package models

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// EnvelopeType defines the behavior of an envelope.
type EnvelopeType string

const (
	EnvelopeTypeRegular EnvelopeType = "regular"
	EnvelopeTypeSavings EnvelopeType = "savings"
	EnvelopeTypeDebt    EnvelopeType = "debt"
)

// Envelope represents an envelope in your budget.
type Envelope struct {
	DefaultModel
	Budget   Budget    `json:"-"`
	BudgetID uuid.UUID `gorm:"uniqueIndex:envelope_budget_name"`

	// CategoryID may be left unset on creation, the envelope is then filed
	// into the budget's "Uncategorized" system category.
	Category   Category  `json:"-"`
	CategoryID uuid.UUID `gorm:"uniqueIndex:envelope_budget_name"`

	Name string `gorm:"uniqueIndex:envelope_budget_name"`
	Note string
	Type EnvelopeType `gorm:"default:regular"`

	// CurrentBalance is a cached value maintained by the ledger engine.
	// It always equals the sum of active inbound transaction amounts minus
	// the sum of active outbound transaction amounts for this envelope.
	//
	// For debt envelopes the balance represents funds allocated towards the
	// debt but not yet paid out.
	CurrentBalance decimal.Decimal `gorm:"type:DECIMAL(20,8)"`

	// TargetAmount is only used for debt envelopes, where it represents the
	// amount still owed.
	TargetAmount decimal.Decimal `gorm:"type:DECIMAL(20,8)"`

	DisplayOrder uint
	Archived     bool
}

// BeforeSave trims whitespace from all strings and defaults the envelope type.
func (e *Envelope) BeforeSave(_ *gorm.DB) error {
	e.Name = strings.TrimSpace(e.Name)
	e.Note = strings.TrimSpace(e.Note)

	if e.Type == "" {
		e.Type = EnvelopeTypeRegular
	}

	return nil
}

func (e *Envelope) BeforeCreate(tx *gorm.DB) error {
	_ = e.DefaultModel.BeforeCreate(tx)

	toSave := tx.Statement.Dest.(*Envelope)
	return e.checkIntegrity(tx, toSave)
}

// BeforeUpdate verifies the state of the envelope before
// committing an update to the database.
func (e *Envelope) BeforeUpdate(tx *gorm.DB) error {
	toSave, ok := tx.Statement.Dest.(Envelope)
	if !ok {
		return nil
	}

	if tx.Statement.Changed("BudgetID") || tx.Statement.Changed("CategoryID") {
		if toSave.BudgetID == uuid.Nil {
			toSave.BudgetID = e.BudgetID
		}

		err := e.checkIntegrity(tx, &toSave)
		if err != nil {
			return err
		}

		// checkIntegrity fills in the Uncategorized category when the
		// category reference is cleared
		tx.Statement.SetColumn("CategoryID", toSave.CategoryID)
	}

	return nil
}

// BeforeDelete blocks deletion while active transactions reference the
// envelope. The ledger engine needs the envelope to reverse or amend them,
// so the retirement path for an envelope in use is archival.
func (e *Envelope) BeforeDelete(tx *gorm.DB) error {
	var count int64
	err := tx.Model(&Transaction{}).
		Where("from_envelope_id = ? OR to_envelope_id = ?", e.ID, e.ID).
		Count(&count).Error
	if err != nil {
		return err
	}

	if count > 0 {
		return ErrEnvelopeReferenced
	}

	return nil
}

// ResolveCategory resolves an unset category to the budget's "Uncategorized"
// system category and verifies the references. The create hook performs the
// same resolution, but callers that need the final category before the row
// exists, like the display order sequencer, call this first.
func (e *Envelope) ResolveCategory(tx *gorm.DB) error {
	return e.checkIntegrity(tx, e)
}

// checkIntegrity verifies references to other resources.
//
// An unset category is replaced by the budget's "Uncategorized" system
// category.
func (e *Envelope) checkIntegrity(tx *gorm.DB, toSave *Envelope) error {
	var budget Budget
	err := tx.First(&budget, toSave.BudgetID).Error
	if err != nil {
		return err
	}

	if toSave.CategoryID == uuid.Nil {
		category, err := budget.SystemCategory(tx, SystemCategoryUncategorized)
		if err != nil {
			return err
		}

		toSave.CategoryID = category.ID
		e.CategoryID = category.ID
		return nil
	}

	var category Category
	err = tx.First(&category, toSave.CategoryID).Error
	if err != nil {
		return err
	}

	if category.BudgetID != toSave.BudgetID {
		return ErrEnvelopeCategoryBudget
	}

	return nil
}

// Returns all envelopes on this instance for export
func (Envelope) Export() (json.RawMessage, error) {
	var envelopes []Envelope
	err := DB.Unscoped().Where(&Envelope{}).Find(&envelopes).Error
	if err != nil {
		return nil, err
	}

	j, err := json.Marshal(&envelopes)
	if err != nil {
		return json.RawMessage{}, err
	}
	return json.RawMessage(j), nil
}
