package v1

import (
	"errors"
	"net/http"

	"github.com/moneyfold/backend/internal/httputil"
	"github.com/moneyfold/backend/internal/ledger"
	"github.com/moneyfold/backend/internal/models"
)

type httpError struct {
	Error string `json:"error" example:"there is no budget matching your query"`
}

// status returns the appropriate HTTP status for an error from the models
// or ledger package.
func status(err error) int {
	if errors.Is(err, models.ErrGeneral) || errors.Is(err, ledger.ErrConsistencyDrift) {
		return http.StatusInternalServerError
	}

	if errors.Is(err, models.ErrResourceNotFound) {
		return http.StatusNotFound
	}

	if errors.Is(err, ledger.ErrInsufficientFunds) || errors.Is(err, ledger.ErrConflict) {
		return http.StatusConflict
	}

	if errors.Is(err, httputil.ErrInvalidUUID) || errors.Is(err, httputil.ErrInvalidBody) || errors.Is(err, httputil.ErrRequestBodyEmpty) {
		return http.StatusBadRequest
	}

	return http.StatusBadRequest
}

// Cleanup errors
var (
	errCleanupConfirmation = errors.New("the confirmation for the cleanup API call was incorrect")
)
