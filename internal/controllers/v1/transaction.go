package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/moneyfold/backend/internal/httputil"
	"github.com/moneyfold/backend/internal/ledger"
	"github.com/moneyfold/backend/internal/models"
	"golang.org/x/exp/slices"
)

// RegisterTransactionRoutes registers the routes for Transactions with
// the RouterGroup that is passed.
//
// All mutating routes go through the ledger engine, never through plain
// database writes, so that balances, category totals and the audit trail
// stay consistent with the transaction log.
func RegisterTransactionRoutes(r *gin.RouterGroup) {
	// Root group
	{
		r.OPTIONS("", OptionsTransactionList)
		r.GET("", GetTransactions)
		r.POST("", CreateTransactions)
	}

	// Transaction with ID
	{
		r.OPTIONS("/:id", OptionsTransactionDetail)
		r.GET("/:id", GetTransaction)
		r.PATCH("/:id", UpdateTransaction)
		r.DELETE("/:id", DeleteTransaction)
		r.POST("/:id/restore", RestoreTransaction)
		r.GET("/:id/events", GetTransactionEvents)
	}
}

// engineOptions reads the engine options from the request.
//
// The actor is taken from the X-Actor header the authenticating proxy sets.
// The insufficient funds override has to be requested explicitly per request,
// clients are expected to confirm it with the user first.
func engineOptions(c *gin.Context) ledger.Options {
	actor := c.GetHeader("X-Actor")
	if actor == "" {
		actor = "anonymous"
	}

	return ledger.Options{
		Actor:                  actor,
		AllowInsufficientFunds: c.Query("allowInsufficientFunds") == "true",
	}
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Transactions
// @Success		204
// @Router			/v1/transactions [options]
func OptionsTransactionList(c *gin.Context) {
	httputil.OptionsGetPost(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Transactions
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Failure		500	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/transactions/{id} [options]
func OptionsTransactionDetail(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	// Soft-deleted transactions stay addressable for restoration
	err = models.DB.Unscoped().First(&models.Transaction{}, uri.ID).Error
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	httputil.OptionsGetPatchDelete(c)
}

// @Summary		Create transactions
// @Description	Creates new transactions. Every transaction is validated and applied by the ledger engine, which updates all affected balances and appends an audit event atomically.
// @Tags			Transactions
// @Accept			json
// @Produce		json
// @Success		201						{object}	TransactionCreateResponse
// @Failure		400						{object}	TransactionCreateResponse
// @Failure		404						{object}	TransactionCreateResponse
// @Failure		409						{object}	TransactionCreateResponse
// @Failure		500						{object}	TransactionCreateResponse
// @Param			transactions			body		[]TransactionEditable	true	"Transactions"
// @Param			allowInsufficientFunds	query		bool					false	"Apply even when the funds check fails. The override is recorded in the audit trail."
// @Param			X-Actor					header		string					false	"Who performs the mutation, recorded in the audit trail"
// @Router			/v1/transactions [post]
func CreateTransactions(c *gin.Context) {
	var editables []TransactionEditable

	err := httputil.BindData(c, &editables)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), TransactionCreateResponse{
			Error: &e,
		})
		return
	}

	opt := engineOptions(c)

	finalStatus := http.StatusCreated
	r := TransactionCreateResponse{}

	for _, editable := range editables {
		transaction, err := ledger.Create(models.DB, editable.model(), opt)
		if err != nil {
			finalStatus = r.appendError(err, finalStatus)
			continue
		}

		data := newTransaction(c, transaction)
		r.Data = append(r.Data, TransactionResponse{Data: &data})
	}

	c.JSON(finalStatus, r)
}

// @Summary		List transactions
// @Description	Returns a list of transactions
// @Tags			Transactions
// @Produce		json
// @Success		200	{object}	TransactionListResponse
// @Failure		400	{object}	TransactionListResponse
// @Failure		500	{object}	TransactionListResponse
// @Router			/v1/transactions [get]
// @Param			budget			query	string	false	"Filter by budget ID"
// @Param			type			query	string	false	"Filter by transaction type"
// @Param			envelope		query	string	false	"Filter by envelope ID, as source or destination"
// @Param			payee			query	string	false	"Filter by payee ID"
// @Param			incomeSource	query	string	false	"Filter by income source ID"
// @Param			fromDate		query	string	false	"Transactions at and after this date (RFC 3339)"
// @Param			untilDate		query	string	false	"Transactions before and at this date (RFC 3339)"
// @Param			note			query	string	false	"Filter by note"
// @Param			search			query	string	false	"Search for this text in the note"
// @Param			deleted			query	bool	false	"Only return soft-deleted transactions"
// @Param			offset			query	uint	false	"The offset of the first Transaction returned. Defaults to 0."
// @Param			limit			query	int		false	"Maximum number of Transactions to return. Defaults to 50."
func GetTransactions(c *gin.Context) {
	var filter TransactionQueryFilter

	// Every parameter is bound into a string, so this will always succeed
	_ = c.Bind(&filter)

	queryFields, setFields := httputil.GetURLFields(c.Request.URL, filter)

	model, err := filter.model()
	if err != nil {
		s := err.Error()
		c.JSON(status(err), TransactionListResponse{
			Error: &s,
		})
		return
	}

	var transactions []models.Transaction

	// Newest first, ties broken by creation time
	q := models.DB.
		Order("datetime(date) DESC, datetime(created_at) DESC").
		Where(&model, queryFields...)

	if filter.Deleted {
		q = q.Unscoped().Where("transactions.deleted_at IS NOT NULL")
	}

	// An envelope filter matches the envelope on either side of the flow
	if slices.Contains(setFields, "EnvelopeID") {
		envelopeID, err := httputil.UUIDFromString(filter.EnvelopeID)
		if err != nil {
			s := err.Error()
			c.JSON(status(err), TransactionListResponse{
				Error: &s,
			})
			return
		}

		q = q.Where(models.DB.
			Where("from_envelope_id = ?", envelopeID).
			Or("to_envelope_id = ?", envelopeID))
	}

	for _, date := range []struct {
		value    string
		operator string
	}{
		{filter.FromDate, ">="},
		{filter.UntilDate, "<="},
	} {
		if date.value == "" {
			continue
		}

		parsed, err := time.Parse(time.RFC3339, date.value)
		if err != nil {
			s := err.Error()
			c.JSON(http.StatusBadRequest, TransactionListResponse{
				Error: &s,
			})
			return
		}

		q = q.Where("datetime(date) "+date.operator+" datetime(?)", parsed)
	}

	if filter.Note != "" {
		q = q.Where("note LIKE ?", "%"+filter.Note+"%")
	} else if slices.Contains(setFields, "Note") {
		q = q.Where("note = ''")
	}

	if filter.Search != "" {
		q = q.Where("note LIKE ?", "%"+filter.Search+"%")
	}

	q = q.Offset(int(filter.Offset))

	limit := 50
	if slices.Contains(setFields, "Limit") {
		limit = filter.Limit
	}
	q = q.Limit(limit)

	err = q.Find(&transactions).Error
	if err != nil {
		s := err.Error()
		c.JSON(status(err), TransactionListResponse{
			Error: &s,
		})
		return
	}

	var count int64
	err = q.Limit(-1).Offset(-1).Count(&count).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), TransactionListResponse{
			Error: &e,
		})
		return
	}

	apiResources := make([]Transaction, 0)
	for _, transaction := range transactions {
		apiResources = append(apiResources, newTransaction(c, transaction))
	}

	c.JSON(http.StatusOK, TransactionListResponse{
		Data: apiResources,
		Pagination: &Pagination{
			Count:  len(apiResources),
			Total:  count,
			Offset: filter.Offset,
			Limit:  limit,
		},
	})
}

// @Summary		Get transaction
// @Description	Returns a specific transaction. Soft-deleted transactions are returned as well, their deletedAt and deletedBy fields are set.
// @Tags			Transactions
// @Produce		json
// @Success		200	{object}	TransactionResponse
// @Failure		400	{object}	TransactionResponse
// @Failure		404	{object}	TransactionResponse
// @Failure		500	{object}	TransactionResponse
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/transactions/{id} [get]
func GetTransaction(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), TransactionResponse{
			Error: &s,
		})
		return
	}

	var transaction models.Transaction
	err = models.DB.Unscoped().First(&transaction, uri.ID).Error
	if err != nil {
		s := err.Error()
		c.JSON(status(err), TransactionResponse{
			Error: &s,
		})
		return
	}

	apiResource := newTransaction(c, transaction)
	c.JSON(http.StatusOK, TransactionResponse{Data: &apiResource})
}

// @Summary		Update transaction
// @Description	Amends a transaction. The ledger engine reverses the monetary effect of the old values and applies the new ones as one atomic step. Payoff transactions cannot be amended.
// @Tags			Transactions
// @Accept			json
// @Produce		json
// @Success		200						{object}	TransactionResponse
// @Failure		400						{object}	TransactionResponse
// @Failure		404						{object}	TransactionResponse
// @Failure		409						{object}	TransactionResponse
// @Failure		500						{object}	TransactionResponse
// @Param			id						path		URIID					true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Param			transaction				body		TransactionPatchBody	true	"Transaction"
// @Param			allowInsufficientFunds	query		bool					false	"Apply even when the funds check fails. The override is recorded in the audit trail."
// @Param			X-Actor					header		string					false	"Who performs the mutation, recorded in the audit trail"
// @Router			/v1/transactions/{id} [patch]
func UpdateTransaction(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), TransactionResponse{
			Error: &s,
		})
		return
	}

	var body TransactionPatchBody
	err = httputil.BindData(c, &body)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), TransactionResponse{
			Error: &s,
		})
		return
	}

	transaction, err := ledger.Update(models.DB, uri.ID.UUID, body.patch(), engineOptions(c))
	if err != nil {
		s := err.Error()
		c.JSON(status(err), TransactionResponse{
			Error: &s,
		})
		return
	}

	apiResource := newTransaction(c, transaction)
	c.JSON(http.StatusOK, TransactionResponse{Data: &apiResource})
}

// @Summary		Delete transaction
// @Description	Soft-deletes a transaction. Its monetary effect is reversed, the record is retained for the audit trail and can be restored.
// @Tags			Transactions
// @Success		204
// @Failure		400		{object}	httpError
// @Failure		404		{object}	httpError
// @Failure		409		{object}	httpError
// @Failure		500		{object}	httpError
// @Param			id		path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Param			X-Actor	header		string	false	"Who performs the mutation, recorded in the audit trail"
// @Router			/v1/transactions/{id} [delete]
func DeleteTransaction(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	err = ledger.SoftDelete(models.DB, uri.ID.UUID, engineOptions(c))
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	c.JSON(http.StatusNoContent, nil)
}

// @Summary		Restore transaction
// @Description	Restores a soft-deleted transaction and reapplies its monetary effect, returning every affected balance to its pre-deletion value.
// @Tags			Transactions
// @Produce		json
// @Success		200						{object}	TransactionResponse
// @Failure		400						{object}	TransactionResponse
// @Failure		404						{object}	TransactionResponse
// @Failure		409						{object}	TransactionResponse
// @Failure		500						{object}	TransactionResponse
// @Param			id						path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Param			allowInsufficientFunds	query		bool	false	"Apply even when the funds check fails. The override is recorded in the audit trail."
// @Param			X-Actor					header		string	false	"Who performs the mutation, recorded in the audit trail"
// @Router			/v1/transactions/{id}/restore [post]
func RestoreTransaction(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), TransactionResponse{
			Error: &s,
		})
		return
	}

	err = ledger.Restore(models.DB, uri.ID.UUID, engineOptions(c))
	if err != nil {
		s := err.Error()
		c.JSON(status(err), TransactionResponse{
			Error: &s,
		})
		return
	}

	var transaction models.Transaction
	err = models.DB.First(&transaction, uri.ID).Error
	if err != nil {
		s := err.Error()
		c.JSON(status(err), TransactionResponse{
			Error: &s,
		})
		return
	}

	apiResource := newTransaction(c, transaction)
	c.JSON(http.StatusOK, TransactionResponse{Data: &apiResource})
}

// @Summary		Transaction audit trail
// @Description	Returns the audit events of a transaction, oldest first. Events are append-only, the trail outlives the transaction itself.
// @Tags			Transactions
// @Produce		json
// @Success		200	{object}	EventListResponse
// @Failure		400	{object}	EventListResponse
// @Failure		500	{object}	EventListResponse
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/transactions/{id}/events [get]
func GetTransactionEvents(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), EventListResponse{
			Error: &s,
		})
		return
	}

	var events []models.TransactionEvent
	err = models.DB.
		Where("transaction_id = ?", uri.ID.UUID).
		Order("datetime(created_at) ASC").
		Find(&events).Error
	if err != nil {
		s := err.Error()
		c.JSON(status(err), EventListResponse{
			Error: &s,
		})
		return
	}

	c.JSON(http.StatusOK, EventListResponse{Data: events})
}
