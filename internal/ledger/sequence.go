package ledger

import (
	"database/sql"

	"github.com/google/uuid"
	"github.com/moneyfold/backend/internal/models"
	"gorm.io/gorm"
)

// The display order sequencer keeps display_order values dense and gap-free
// within a scope: budget and parent for categories, category for envelopes.
//
// All shifting happens in explicit functions. Do not reintroduce database
// triggers for this, the interacting before/after triggers this replaces
// were a reliable source of recursion bugs.

// InsertCategoryAt assigns the display order for a category that is being
// created. Without a position the category is appended, with one the
// categories at and after it move up by one.
func InsertCategoryAt(tx *gorm.DB, category *models.Category, position *uint) error {
	return insertAt(categoryScope(tx, category.BudgetID, category.ParentID), &category.DisplayOrder, position)
}

// MoveCategory moves a category to a new position within its scope.
func MoveCategory(tx *gorm.DB, category *models.Category, position uint) error {
	return move(categoryScope(tx, category.BudgetID, category.ParentID), category, category.DisplayOrder, position)
}

// ReorderCategories rebuilds a dense 0..n-1 sequence for a category scope,
// breaking ties by creation time.
func ReorderCategories(tx *gorm.DB, budgetID uuid.UUID, parentID *uuid.UUID) error {
	return reorder(categoryScope(tx, budgetID, parentID))
}

// InsertEnvelopeAt assigns the display order for an envelope that is being
// created, analogous to InsertCategoryAt.
func InsertEnvelopeAt(tx *gorm.DB, envelope *models.Envelope, position *uint) error {
	return insertAt(envelopeScope(tx, envelope.CategoryID), &envelope.DisplayOrder, position)
}

// MoveEnvelope moves an envelope to a new position within its category.
func MoveEnvelope(tx *gorm.DB, envelope *models.Envelope, position uint) error {
	return move(envelopeScope(tx, envelope.CategoryID), envelope, envelope.DisplayOrder, position)
}

// ReorderEnvelopes rebuilds a dense 0..n-1 sequence for the envelopes of a
// category, breaking ties by creation time.
func ReorderEnvelopes(tx *gorm.DB, categoryID uuid.UUID) error {
	return reorder(envelopeScope(tx, categoryID))
}

func categoryScope(tx *gorm.DB, budgetID uuid.UUID, parentID *uuid.UUID) *gorm.DB {
	q := tx.Model(&models.Category{}).Where("budget_id = ?", budgetID)

	if parentID == nil {
		return q.Where("parent_id IS NULL")
	}

	return q.Where("parent_id = ?", *parentID)
}

func envelopeScope(tx *gorm.DB, categoryID uuid.UUID) *gorm.DB {
	return tx.Model(&models.Envelope{}).Where("category_id = ?", categoryID)
}

func insertAt(q *gorm.DB, order *uint, position *uint) error {
	if position == nil {
		next, err := nextPosition(q)
		if err != nil {
			return err
		}

		*order = next
		return nil
	}

	// Make room: everything at and after the position moves up by one
	err := q.Session(&gorm.Session{}).
		Where("display_order >= ?", *position).
		UpdateColumn("display_order", gorm.Expr("display_order + 1")).Error
	if err != nil {
		return err
	}

	*order = *position
	return nil
}

// move shifts the half-open interval between the old and the new position by
// one, in the direction that closes the gap the moved item leaves behind.
func move(q *gorm.DB, item interface{}, old, position uint) error {
	next, err := nextPosition(q)
	if err != nil {
		return err
	}

	// Clamp to the end of the sequence
	if next > 0 && position >= next {
		position = next - 1
	}

	if position == old {
		return nil
	}

	if position > old {
		err = q.Session(&gorm.Session{}).
			Where("display_order > ? AND display_order <= ?", old, position).
			UpdateColumn("display_order", gorm.Expr("display_order - 1")).Error
	} else {
		err = q.Session(&gorm.Session{}).
			Where("display_order >= ? AND display_order < ?", position, old).
			UpdateColumn("display_order", gorm.Expr("display_order + 1")).Error
	}
	if err != nil {
		return err
	}

	return q.Session(&gorm.Session{}).Model(item).UpdateColumn("display_order", position).Error
}

func reorder(q *gorm.DB) error {
	var ids []uuid.UUID
	err := q.Session(&gorm.Session{}).
		Order("display_order ASC, datetime(created_at) ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return err
	}

	for i, id := range ids {
		err = q.Session(&gorm.Session{}).
			Where("id = ?", id).
			UpdateColumn("display_order", i).Error
		if err != nil {
			return err
		}
	}

	return nil
}

func nextPosition(q *gorm.DB) (uint, error) {
	var max sql.NullInt64
	err := q.Session(&gorm.Session{}).
		Select("MAX(display_order)").
		Row().
		Scan(&max)
	if err != nil {
		return 0, err
	}

	if !max.Valid {
		return 0, nil
	}

	return uint(max.Int64) + 1, nil
}
