package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/layer-3/agentgate/core"
)

func statusFor(err error) int {
	switch core.KindOf(err) {
	case core.KindValidation, core.KindUnsupportedAction:
		return http.StatusBadRequest
	case core.KindAuth, core.KindUnauthorized:
		return http.StatusUnauthorized
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindSubmission:
		return http.StatusBadGateway
	default:
		// Decryption faults are server side, like any unclassified error
		return http.StatusInternalServerError
	}
}

// abortWithError writes {"error": reason}. The full error is attached to the
// context for the request logger; only the classified reason reaches the
// client.
func abortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(statusFor(err), gin.H{"error": core.Reason(err)})
}

// resultStatus maps a dispatch outcome to an HTTP status
func resultStatus(result core.TransactionResult) int {
	if !result.Failed() || result.Error == nil {
		return http.StatusOK
	}
	switch result.Error.Kind {
	case core.ErrorKindValidation, core.ErrorKindSignerMismatch:
		return http.StatusBadRequest
	case core.ErrorKindSubmission:
		if result.Error.Timeout {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	default:
		return http.StatusOK
	}
}
