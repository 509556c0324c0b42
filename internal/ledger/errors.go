package ledger

import (
	"errors"
	"fmt"
)

// The error taxonomy of the ledger engine. All errors returned by engine
// operations wrap exactly one of these sentinels so that callers can
// classify them with errors.Is.
var (
	// ErrFlow is returned when a transaction does not carry the reference
	// combination its type mandates. Nothing is written in this case.
	ErrFlow = errors.New("the transaction is malformed for its type")

	// ErrConstraint is returned for operations the ledger never allows,
	// e.g. cross-budget references or amending a payoff transaction.
	ErrConstraint = errors.New("the operation violates a ledger constraint")

	// ErrInsufficientFunds is a business-level check. Callers may apply the
	// mutation anyway by setting Options.AllowInsufficientFunds after
	// confirmation, the override is recorded in the audit event.
	ErrInsufficientFunds = errors.New("there are not enough funds for this transaction")

	// ErrConflict is returned when a mutation lost against a concurrent
	// write. The whole operation is safe to retry with the same intent.
	ErrConflict = errors.New("the operation conflicted with a concurrent change")

	// ErrConsistencyDrift is reported by the consistency auditor when a
	// cached value disagrees with the recomputed one. Drift is never
	// corrected automatically, call RefreshBudgetCache to heal it.
	ErrConsistencyDrift = errors.New("a cached value disagrees with the transaction log")
)

var (
	ErrAmountNotPositive = fmt.Errorf("%w: the amount must be larger than zero", ErrFlow)
	ErrDateTooFarAhead   = fmt.Errorf("%w: the date must not be more than one day in the future", ErrFlow)
	ErrSameEnvelope      = fmt.Errorf("%w: transfers need two different envelopes", ErrFlow)
	ErrNotDebtEnvelope   = fmt.Errorf("%w: payoff transactions require a debt envelope", ErrFlow)

	ErrCrossBudget           = fmt.Errorf("%w: all references must belong to the budget of the transaction", ErrConstraint)
	ErrPayoffImmutable       = fmt.Errorf("%w: payoff transactions cannot be amended, delete and recreate instead", ErrConstraint)
	ErrTransactionDeleted    = fmt.Errorf("%w: the transaction is deleted", ErrConstraint)
	ErrTransactionNotDeleted = fmt.Errorf("%w: the transaction is not deleted", ErrConstraint)
	ErrMissingSnapshot       = fmt.Errorf("%w: the payoff transaction is missing its envelope snapshot", ErrConstraint)
)
