package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/moneyfold/backend/internal/httputil"
	"github.com/moneyfold/backend/internal/models"
	"golang.org/x/exp/slices"
)

// RegisterPayeeRoutes registers the routes for Payees with
// the RouterGroup that is passed.
func RegisterPayeeRoutes(r *gin.RouterGroup) {
	// Root group
	{
		r.OPTIONS("", OptionsPayeeList)
		r.GET("", GetPayees)
		r.POST("", CreatePayees)
	}

	// Payee with ID
	{
		r.OPTIONS("/:id", OptionsPayeeDetail)
		r.GET("/:id", GetPayee)
		r.PATCH("/:id", UpdatePayee)
		r.DELETE("/:id", DeletePayee)
	}
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Payees
// @Success		204
// @Router			/v1/payees [options]
func OptionsPayeeList(c *gin.Context) {
	httputil.OptionsGetPost(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Payees
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Failure		500	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/payees/{id} [options]
func OptionsPayeeDetail(c *gin.Context) {
	resourceOptionsDetail(c, models.Payee{})
}

// @Summary		Create payee
// @Description	Creates a new payee
// @Tags			Payees
// @Accept			json
// @Produce		json
// @Success		201		{object}	PayeeCreateResponse
// @Failure		400		{object}	PayeeCreateResponse
// @Failure		404		{object}	PayeeCreateResponse
// @Failure		500		{object}	PayeeCreateResponse
// @Param			payees	body		[]PayeeEditable	true	"Payees"
// @Router			/v1/payees [post]
func CreatePayees(c *gin.Context) {
	var editables []PayeeEditable

	err := httputil.BindData(c, &editables)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), PayeeCreateResponse{
			Error: &e,
		})
		return
	}

	finalStatus := http.StatusCreated
	r := PayeeCreateResponse{}

	for _, editable := range editables {
		payee := editable.model()

		err := models.DB.Create(&payee).Error
		if err != nil {
			finalStatus = r.appendError(err, finalStatus)
			continue
		}

		data := newPayee(c, payee)
		r.Data = append(r.Data, PayeeResponse{Data: &data})
	}

	c.JSON(finalStatus, r)
}

// @Summary		List payees
// @Description	Returns a list of payees
// @Tags			Payees
// @Produce		json
// @Success		200	{object}	PayeeListResponse
// @Failure		400	{object}	PayeeListResponse
// @Failure		500	{object}	PayeeListResponse
// @Router			/v1/payees [get]
// @Param			budget		query	string	false	"Filter by budget ID"
// @Param			name		query	string	false	"Filter by name"
// @Param			note		query	string	false	"Filter by note"
// @Param			archived	query	bool	false	"Is the payee archived?"
// @Param			search		query	string	false	"Search for this text in name and note"
// @Param			offset		query	uint	false	"The offset of the first Payee returned. Defaults to 0."
// @Param			limit		query	int		false	"Maximum number of Payees to return. Defaults to 50."
func GetPayees(c *gin.Context) {
	var filter PayeeQueryFilter

	// Every parameter is bound into a string, so this will always succeed
	_ = c.Bind(&filter)

	queryFields, setFields := httputil.GetURLFields(c.Request.URL, filter)

	model, err := filter.model()
	if err != nil {
		s := err.Error()
		c.JSON(status(err), PayeeListResponse{
			Error: &s,
		})
		return
	}

	var payees []models.Payee

	// Always sort by name
	q := models.DB.
		Order("name ASC").
		Where(&model, queryFields...)

	q = stringFilters(models.DB, q, setFields, filter.Name, filter.Note, filter.Search)

	q = q.Offset(int(filter.Offset))

	limit := 50
	if slices.Contains(setFields, "Limit") {
		limit = filter.Limit
	}
	q = q.Limit(limit)

	err = q.Find(&payees).Error
	if err != nil {
		s := err.Error()
		c.JSON(status(err), PayeeListResponse{
			Error: &s,
		})
		return
	}

	var count int64
	err = q.Limit(-1).Offset(-1).Count(&count).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), PayeeListResponse{
			Error: &e,
		})
		return
	}

	apiResources := make([]Payee, 0)
	for _, payee := range payees {
		apiResources = append(apiResources, newPayee(c, payee))
	}

	c.JSON(http.StatusOK, PayeeListResponse{
		Data: apiResources,
		Pagination: &Pagination{
			Count:  len(apiResources),
			Total:  count,
			Offset: filter.Offset,
			Limit:  limit,
		},
	})
}

// @Summary		Get payee
// @Description	Returns a specific payee
// @Tags			Payees
// @Produce		json
// @Success		200	{object}	PayeeResponse
// @Failure		400	{object}	PayeeResponse
// @Failure		404	{object}	PayeeResponse
// @Failure		500	{object}	PayeeResponse
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/payees/{id} [get]
func GetPayee(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), PayeeResponse{
			Error: &s,
		})
		return
	}

	var payee models.Payee
	err = models.DB.First(&payee, uri.ID).Error
	if err != nil {
		s := err.Error()
		c.JSON(status(err), PayeeResponse{
			Error: &s,
		})
		return
	}

	apiResource := newPayee(c, payee)
	c.JSON(http.StatusOK, PayeeResponse{Data: &apiResource})
}

// @Summary		Update payee
// @Description	Update an existing payee. Only values to be updated need to be specified.
// @Tags			Payees
// @Accept			json
// @Produce		json
// @Success		200		{object}	PayeeResponse
// @Failure		400		{object}	PayeeResponse
// @Failure		404		{object}	PayeeResponse
// @Failure		500		{object}	PayeeResponse
// @Param			id		path		URIID			true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Param			payee	body		PayeeEditable	true	"Payee"
// @Router			/v1/payees/{id} [patch]
func UpdatePayee(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), PayeeResponse{
			Error: &s,
		})
		return
	}

	var payee models.Payee
	err = models.DB.First(&payee, uri.ID).Error
	if err != nil {
		s := err.Error()
		c.JSON(status(err), PayeeResponse{
			Error: &s,
		})
		return
	}

	updateFields, err := httputil.GetBodyFields(c, PayeeEditable{})
	if err != nil {
		s := err.Error()
		c.JSON(status(err), PayeeResponse{
			Error: &s,
		})
		return
	}

	var data PayeeEditable
	err = httputil.BindData(c, &data)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), PayeeResponse{
			Error: &s,
		})
		return
	}

	err = models.DB.Model(&payee).Select("", updateFields...).Updates(data.model()).Error
	if err != nil {
		s := err.Error()
		c.JSON(status(err), PayeeResponse{
			Error: &s,
		})
		return
	}

	apiResource := newPayee(c, payee)
	c.JSON(http.StatusOK, PayeeResponse{Data: &apiResource})
}

// @Summary		Delete payee
// @Description	Deletes a payee
// @Tags			Payees
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Failure		500	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/payees/{id} [delete]
func DeletePayee(c *gin.Context) {
	deleteResource[models.Payee](c)
}
