package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/moneyfold/backend/internal/models"
	"gorm.io/gorm"
)

// @Summary		Delete everything
// @Description	Permanently deletes all resources, including the audit trail
// @Tags			v1
// @Success		204
// @Failure		400		{object}	httpError
// @Failure		500		{object}	httpError
// @Param			confirm	query		string	false	"Confirmation to delete all resources. Must have the value 'yes-please-delete-everything'"
// @Router			/v1 [delete]
func Cleanup(c *gin.Context) {
	var params struct {
		Confirm string `form:"confirm"`
	}

	err := c.Bind(&params)
	if err != nil || params.Confirm != "yes-please-delete-everything" {
		c.JSON(http.StatusBadRequest, httpError{
			Error: errCleanupConfirmation.Error(),
		})
		return
	}

	// References are checked during cleanup, add new models *before* any of
	// the models they reference
	resources := []any{
		models.TransactionEvent{},
		models.Transaction{},
		models.Envelope{},
		models.Category{},
		models.Payee{},
		models.IncomeSource{},
		models.Budget{},
	}

	// Use a transaction so that we can roll back if errors happen.
	//
	// The audit trail is append-only and its hooks block deletion, this is
	// the one code path that skips them. Wiping the instance is the explicit
	// purpose of this endpoint.
	tx := models.DB.Session(&gorm.Session{SkipHooks: true}).Begin()

	for _, model := range resources {
		err := tx.Unscoped().Where("true").Delete(&model).Error
		if err != nil {
			c.JSON(http.StatusInternalServerError, httpError{
				Error: err.Error(),
			})
			tx.Rollback()
			return
		}
	}

	tx.Commit()
	c.JSON(http.StatusNoContent, nil)
}
