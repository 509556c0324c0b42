package v1

import (
	"encoding/json"
	"net/http"
	"reflect"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/moneyfold/backend/internal/httputil"
	"github.com/moneyfold/backend/internal/models"
)

var backendVersion string

func RegisterExportRoutes(r *gin.RouterGroup, version string) {
	backendVersion = version

	{
		r.OPTIONS("", OptionsExport)
		r.GET("", GetExport)
	}
}

// ExportResponse is the response for the export endpoint
type ExportResponse struct {
	Version      string                     `json:"version" example:"1.0.0"`                     // Version of the backend the export was made with
	Data         map[string]json.RawMessage `json:"data"`                                        // The exported data, keyed by the resource name
	CreationTime time.Time                  `json:"creationTime" example:"2024-11-04T12:00:00Z"` // Time the export was created
	Clacks       string                     `json:"clacks" example:"GNU Terry Pratchett"`        // A message from the past
	Error        string                     `json:"error,omitempty" example:"an error occurred"` // The error, if any occurred
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Export
// @Success		204
// @Router			/v1/export [options]
func OptionsExport(c *gin.Context) {
	httputil.OptionsGet(c)
}

// @Summary		Export
// @Description	Exports all resources for the instance, including soft-deleted transactions and the audit trail
// @Tags			Export
// @Produce		json
// @Success		200	{object}	ExportResponse
// @Failure		500	{object}	ExportResponse
// @Router			/v1/export [get]
func GetExport(c *gin.Context) {
	resources := make(map[string]json.RawMessage)

	for _, model := range models.Registry {
		b, err := model.Export()
		if err != nil {
			c.JSON(status(err), ExportResponse{
				Error: err.Error(),
			})
			return
		}

		resources[reflect.TypeOf(model).Name()] = b
	}

	c.JSON(http.StatusOK, ExportResponse{
		Version:      backendVersion,
		Data:         resources,
		CreationTime: time.Now(),
		Clacks:       "GNU Terry Pratchett",
	})
}
