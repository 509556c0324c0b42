package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/moneyfold/backend/internal/httputil"
)

func RegisterRootRoutes(r *gin.RouterGroup) {
	r.GET("", Get)
	r.DELETE("", Cleanup)
	r.OPTIONS("", Options)
}

type Response struct {
	Links Links `json:"links"` // Links for the v1 API
}

type Links struct {
	Budgets       string `json:"budgets" example:"https://example.com/api/v1/budgets"`              // URL of Budget collection endpoint
	Categories    string `json:"categories" example:"https://example.com/api/v1/categories"`        // URL of Category collection endpoint
	Envelopes     string `json:"envelopes" example:"https://example.com/api/v1/envelopes"`          // URL of Envelope collection endpoint
	Payees        string `json:"payees" example:"https://example.com/api/v1/payees"`                // URL of Payee collection endpoint
	IncomeSources string `json:"incomeSources" example:"https://example.com/api/v1/income-sources"` // URL of IncomeSource collection endpoint
	Transactions  string `json:"transactions" example:"https://example.com/api/v1/transactions"`    // URL of Transaction collection endpoint
	Export        string `json:"export" example:"https://example.com/api/v1/export"`                // URL of the export endpoint
}

// Get returns the link list for v1
//
//	@Summary		v1 API
//	@Description	Returns general information about the v1 API
//	@Tags			v1
//	@Success		200	{object}	Response
//	@Router			/v1 [get]
func Get(c *gin.Context) {
	url := httputil.RequestPathV1(c)

	c.JSON(http.StatusOK, Response{
		Links: Links{
			Budgets:       url + "/budgets",
			Categories:    url + "/categories",
			Envelopes:     url + "/envelopes",
			Payees:        url + "/payees",
			IncomeSources: url + "/income-sources",
			Transactions:  url + "/transactions",
			Export:        url + "/export",
		},
	})
}

// Options returns the allowed HTTP methods
//
//	@Summary		Allowed HTTP verbs
//	@Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
//	@Tags			v1
//	@Success		204
//	@Router			/v1 [options]
func Options(c *gin.Context) {
	httputil.OptionsGetDelete(c)
}
