package controlapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/cladc/internal/cladcerr"
)

// errorResponse is the JSON body for any non-2xx response. Errors are
// reported with a kind-specific code, never as an opaque string.
type errorResponse struct {
	Kind    cladcerr.Kind `json:"kind"`
	Message string        `json:"message"`
}

// statusForKind maps each cladcerr.Kind to the HTTP status that best
// represents it.
func statusForKind(k cladcerr.Kind) int {
	switch k {
	case cladcerr.Validation:
		return http.StatusBadRequest
	case cladcerr.NotFound:
		return http.StatusNotFound
	case cladcerr.Conflict:
		return http.StatusConflict
	case cladcerr.CapacityExceeded:
		return http.StatusTooManyRequests
	case cladcerr.Timeout:
		return http.StatusGatewayTimeout
	case cladcerr.BusUnavailable:
		return http.StatusServiceUnavailable
	case cladcerr.StepFailed:
		return http.StatusUnprocessableEntity
	case cladcerr.Serialization:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as a kind-specific JSON error, defaulting to
// fatal/500 for errors not carrying a cladcerr.Kind.
func respondError(c *gin.Context, err error) {
	var typed *cladcerr.Error
	if errors.As(err, &typed) {
		c.JSON(statusForKind(typed.K), errorResponse{Kind: typed.K, Message: typed.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, errorResponse{Kind: cladcerr.Fatal, Message: err.Error()})
}
