package models

import (
	"errors"
)

var (
	ErrGeneral          = errors.New("an error occurred on the server during your request")
	ErrResourceNotFound = errors.New("there is no")
)

var (
	ErrCategoryNameNotUnique     = errors.New("the category name must be unique for the budget")
	ErrEnvelopeNameNotUnique     = errors.New("the envelope name must be unique for the category")
	ErrPayeeNameNotUnique        = errors.New("the payee name must be unique for the budget")
	ErrIncomeSourceNameNotUnique = errors.New("the income source name must be unique for the budget")
)

var (
	// ErrCategoryIsSystem is returned for attempts to delete a system category
	// or to clear the system flag on one.
	ErrCategoryIsSystem = errors.New("system categories cannot be deleted or demoted")

	// ErrCategoryNestingTooDeep is returned when a category would become a
	// grandchild. Categories nest exactly one level deep.
	ErrCategoryNestingTooDeep = errors.New("categories can only be nested one level deep")

	ErrCategoryParentSelf     = errors.New("a category cannot be its own parent")
	ErrCategoryParentBudget   = errors.New("the parent category must belong to the same budget")
	ErrEnvelopeCategoryBudget = errors.New("the category must belong to the same budget as the envelope")
	ErrEventImmutable         = errors.New("transaction events are append-only and cannot be changed")
)

var (
	// Resources referenced by active transactions cannot be deleted, only
	// archived. Deleting them would strand the transactions.
	ErrEnvelopeReferenced     = errors.New("the envelope is still referenced by transactions. Archive it instead of deleting it")
	ErrPayeeReferenced        = errors.New("the payee is still referenced by transactions. Archive it instead of deleting it")
	ErrIncomeSourceReferenced = errors.New("the income source is still referenced by transactions. Archive it instead of deleting it")
)
