package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/moneyfold/backend/internal/httputil"
	"github.com/moneyfold/backend/internal/models"
	"golang.org/x/exp/slices"
)

// RegisterIncomeSourceRoutes registers the routes for IncomeSources with
// the RouterGroup that is passed.
func RegisterIncomeSourceRoutes(r *gin.RouterGroup) {
	// Root group
	{
		r.OPTIONS("", OptionsIncomeSourceList)
		r.GET("", GetIncomeSources)
		r.POST("", CreateIncomeSources)
	}

	// IncomeSource with ID
	{
		r.OPTIONS("/:id", OptionsIncomeSourceDetail)
		r.GET("/:id", GetIncomeSource)
		r.PATCH("/:id", UpdateIncomeSource)
		r.DELETE("/:id", DeleteIncomeSource)
	}
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			IncomeSources
// @Success		204
// @Router			/v1/income-sources [options]
func OptionsIncomeSourceList(c *gin.Context) {
	httputil.OptionsGetPost(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			IncomeSources
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Failure		500	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/income-sources/{id} [options]
func OptionsIncomeSourceDetail(c *gin.Context) {
	resourceOptionsDetail(c, models.IncomeSource{})
}

// @Summary		Create income source
// @Description	Creates a new income source
// @Tags			IncomeSources
// @Accept			json
// @Produce		json
// @Success		201				{object}	IncomeSourceCreateResponse
// @Failure		400				{object}	IncomeSourceCreateResponse
// @Failure		404				{object}	IncomeSourceCreateResponse
// @Failure		500				{object}	IncomeSourceCreateResponse
// @Param			incomeSources	body		[]IncomeSourceEditable	true	"IncomeSources"
// @Router			/v1/income-sources [post]
func CreateIncomeSources(c *gin.Context) {
	var editables []IncomeSourceEditable

	err := httputil.BindData(c, &editables)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), IncomeSourceCreateResponse{
			Error: &e,
		})
		return
	}

	finalStatus := http.StatusCreated
	r := IncomeSourceCreateResponse{}

	for _, editable := range editables {
		incomeSource := editable.model()

		err := models.DB.Create(&incomeSource).Error
		if err != nil {
			finalStatus = r.appendError(err, finalStatus)
			continue
		}

		data := newIncomeSource(c, incomeSource)
		r.Data = append(r.Data, IncomeSourceResponse{Data: &data})
	}

	c.JSON(finalStatus, r)
}

// @Summary		List income sources
// @Description	Returns a list of income sources
// @Tags			IncomeSources
// @Produce		json
// @Success		200	{object}	IncomeSourceListResponse
// @Failure		400	{object}	IncomeSourceListResponse
// @Failure		500	{object}	IncomeSourceListResponse
// @Router			/v1/income-sources [get]
// @Param			budget		query	string	false	"Filter by budget ID"
// @Param			name		query	string	false	"Filter by name"
// @Param			note		query	string	false	"Filter by note"
// @Param			archived	query	bool	false	"Is the income source archived?"
// @Param			search		query	string	false	"Search for this text in name and note"
// @Param			offset		query	uint	false	"The offset of the first IncomeSource returned. Defaults to 0."
// @Param			limit		query	int		false	"Maximum number of IncomeSources to return. Defaults to 50."
func GetIncomeSources(c *gin.Context) {
	var filter IncomeSourceQueryFilter

	// Every parameter is bound into a string, so this will always succeed
	_ = c.Bind(&filter)

	queryFields, setFields := httputil.GetURLFields(c.Request.URL, filter)

	model, err := filter.model()
	if err != nil {
		s := err.Error()
		c.JSON(status(err), IncomeSourceListResponse{
			Error: &s,
		})
		return
	}

	var incomeSources []models.IncomeSource

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

	err = q.Find(&incomeSources).Error
	if err != nil {
		s := err.Error()
		c.JSON(status(err), IncomeSourceListResponse{
			Error: &s,
		})
		return
	}

	var count int64
	err = q.Limit(-1).Offset(-1).Count(&count).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), IncomeSourceListResponse{
			Error: &e,
		})
		return
	}

	apiResources := make([]IncomeSource, 0)
	for _, incomeSource := range incomeSources {
		apiResources = append(apiResources, newIncomeSource(c, incomeSource))
	}

	c.JSON(http.StatusOK, IncomeSourceListResponse{
		Data: apiResources,
		Pagination: &Pagination{
			Count:  len(apiResources),
			Total:  count,
			Offset: filter.Offset,
			Limit:  limit,
		},
	})
}

// @Summary		Get income source
// @Description	Returns a specific income source
// @Tags			IncomeSources
// @Produce		json
// @Success		200	{object}	IncomeSourceResponse
// @Failure		400	{object}	IncomeSourceResponse
// @Failure		404	{object}	IncomeSourceResponse
// @Failure		500	{object}	IncomeSourceResponse
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/income-sources/{id} [get]
func GetIncomeSource(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), IncomeSourceResponse{
			Error: &s,
		})
		return
	}

	var incomeSource models.IncomeSource
	err = models.DB.First(&incomeSource, uri.ID).Error
	if err != nil {
		s := err.Error()
		c.JSON(status(err), IncomeSourceResponse{
			Error: &s,
		})
		return
	}

	apiResource := newIncomeSource(c, incomeSource)
	c.JSON(http.StatusOK, IncomeSourceResponse{Data: &apiResource})
}

// @Summary		Update income source
// @Description	Update an existing income source. Only values to be updated need to be specified.
// @Tags			IncomeSources
// @Accept			json
// @Produce		json
// @Success		200				{object}	IncomeSourceResponse
// @Failure		400				{object}	IncomeSourceResponse
// @Failure		404				{object}	IncomeSourceResponse
// @Failure		500				{object}	IncomeSourceResponse
// @Param			id				path		URIID					true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Param			incomeSource	body		IncomeSourceEditable	true	"IncomeSource"
// @Router			/v1/income-sources/{id} [patch]
func UpdateIncomeSource(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), IncomeSourceResponse{
			Error: &s,
		})
		return
	}

	var incomeSource models.IncomeSource
	err = models.DB.First(&incomeSource, uri.ID).Error
	if err != nil {
		s := err.Error()
		c.JSON(status(err), IncomeSourceResponse{
			Error: &s,
		})
		return
	}

	updateFields, err := httputil.GetBodyFields(c, IncomeSourceEditable{})
	if err != nil {
		s := err.Error()
		c.JSON(status(err), IncomeSourceResponse{
			Error: &s,
		})
		return
	}

	var data IncomeSourceEditable
	err = httputil.BindData(c, &data)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), IncomeSourceResponse{
			Error: &s,
		})
		return
	}

	err = models.DB.Model(&incomeSource).Select("", updateFields...).Updates(data.model()).Error
	if err != nil {
		s := err.Error()
		c.JSON(status(err), IncomeSourceResponse{
			Error: &s,
		})
		return
	}

	apiResource := newIncomeSource(c, incomeSource)
	c.JSON(http.StatusOK, IncomeSourceResponse{Data: &apiResource})
}

// @Summary		Delete income source
// @Description	Deletes an income source
// @Tags			IncomeSources
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Failure		500	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/income-sources/{id} [delete]
func DeleteIncomeSource(c *gin.Context) {
	deleteResource[models.IncomeSource](c)
}
