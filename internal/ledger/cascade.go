package ledger

import (
	"github.com/google/uuid"
	"github.com/moneyfold/backend/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// The category cascade recomputes cached category totals after balance
// changes. It is one explicit function that touches at most two levels,
// a category and its parent. It must run in the same database transaction
// as the balance change, so that the totals are never observably stale.

// RecomputeCategories recomputes the cached totals of the given categories
// and then of each one's parent, using the already updated child values.
//
// Callers that move an envelope between categories pass both the old and the
// new category.
func RecomputeCategories(tx *gorm.DB, ids ...uuid.UUID) error {
	seen := make(map[uuid.UUID]bool)
	parents := make(map[uuid.UUID]bool)

	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true

		category, err := recomputeCategory(tx, id)
		if err != nil {
			return err
		}

		if category.ParentID != nil {
			parents[*category.ParentID] = true
		}
	}

	// Parents are recomputed last so that they sum over fresh child totals
	for id := range parents {
		_, err := recomputeCategory(tx, id)
		if err != nil {
			return err
		}
	}

	return nil
}

// recomputeCategory writes the recomputed total for one category.
func recomputeCategory(tx *gorm.DB, id uuid.UUID) (models.Category, error) {
	var category models.Category
	err := tx.First(&category, id).Error
	if err != nil {
		return models.Category{}, err
	}

	total, err := categoryTotal(tx, category)
	if err != nil {
		return models.Category{}, err
	}

	err = tx.Model(&category).UpdateColumn("total", total).Error
	if err != nil {
		return models.Category{}, err
	}

	return category, nil
}

// categoryTotal is the recomputation formula for a category total: the sum
// of the active envelope balances directly in the category plus the totals
// of its child categories. Nesting is exactly one level, so child totals
// never contain further categories.
//
// This formula is the definition of the cached value. The incremental
// updates of the engine are an optimization over it and must always agree,
// which is what the consistency auditor verifies.
func categoryTotal(tx *gorm.DB, category models.Category) (decimal.Decimal, error) {
	var envelopeSum decimal.NullDecimal
	err := tx.
		Table("envelopes").
		Where("category_id = ? AND archived = ? AND deleted_at IS NULL", category.ID, false).
		Select("SUM(current_balance)").
		Row().
		Scan(&envelopeSum)
	if err != nil {
		return decimal.Zero, err
	}

	var childSum decimal.NullDecimal
	err = tx.
		Table("categories").
		Where("parent_id = ? AND deleted_at IS NULL", category.ID).
		Select("SUM(total)").
		Row().
		Scan(&childSum)
	if err != nil {
		return decimal.Zero, err
	}

	return envelopeSum.Decimal.Add(childSum.Decimal), nil
}

// recomputeForEnvelopes recomputes the totals of the categories the given
// envelopes are filed in.
func recomputeForEnvelopes(tx *gorm.DB, envelopeIDs []uuid.UUID) error {
	if len(envelopeIDs) == 0 {
		return nil
	}

	var categoryIDs []uuid.UUID
	err := tx.
		Model(&models.Envelope{}).
		Where("id IN ?", envelopeIDs).
		Distinct().
		Pluck("category_id", &categoryIDs).Error
	if err != nil {
		return err
	}

	return RecomputeCategories(tx, categoryIDs...)
}
