package ledger

import (
	"time"

	"github.com/moneyfold/backend/internal/models"
	"gorm.io/gorm"
)

// CleanupDeletedTransactions permanently removes transactions that were
// soft deleted before the cutoff. Their balance effects were already
// reversed at deletion time, so no balances change. The audit trail of the
// removed transactions is retained.
//
// It returns the number of transactions removed.
func CleanupDeletedTransactions(db *gorm.DB, olderThan time.Time) (int64, error) {
	res := db.Unscoped().
		Where("deleted_at IS NOT NULL AND deleted_at < ?", olderThan).
		Delete(&models.Transaction{})
	if res.Error != nil {
		return 0, translate(res.Error)
	}

	return res.RowsAffected, nil
}
