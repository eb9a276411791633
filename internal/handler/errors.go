package handler

import (
	"errors"
	"net/http"
	"strconv"

	"minimart/internal/logging"
	"minimart/internal/service"

	"github.com/gin-gonic/gin"
)

// Error codes returned next to the message in every error body.
const (
	CodeNotFound          = "NOT_FOUND"
	CodeConflict          = "CONFLICT"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeInvalidInvitation = "INVALID_INVITATION"
	CodeTooManyRequests   = "TOO_MANY_REQUESTS"
	CodeExternalService   = "EXTERNAL_SERVICE_FAILURE"
	CodeInternal          = "INTERNAL"
)

var errorKinds = []struct {
	kind   error
	status int
	code   string
}{
	{service.ErrNotFound, http.StatusNotFound, CodeNotFound},
	{service.ErrConflict, http.StatusConflict, CodeConflict},
	{service.ErrUnauthorized, http.StatusUnauthorized, CodeUnauthorized},
	{service.ErrForbidden, http.StatusForbidden, CodeForbidden},
	{service.ErrInvalidInput, http.StatusBadRequest, CodeInvalidInput},
	{service.ErrInvalidInvitation, http.StatusBadRequest, CodeInvalidInvitation},
	{service.ErrTooManyRequests, http.StatusTooManyRequests, CodeTooManyRequests},
	{service.ErrExternalService, http.StatusBadGateway, CodeExternalService},
}

// respondError writes err as {"error", "code"}. Errors without a kind are
// logged and reported as INTERNAL with the fallback message, so internal
// details never reach the client.
func respondError(c *gin.Context, log logging.Logger, err error, fallback string) {
	for _, k := range errorKinds {
		if !errors.Is(err, k.kind) {
			continue
		}
		msg := k.kind.Error()
		var svcErr *service.Error
		if errors.As(err, &svcErr) {
			msg = svcErr.Msg
		}
		if k.status >= http.StatusInternalServerError {
			log.Error(c.Request.Context(), fallback, "error", err)
		}
		c.JSON(k.status, gin.H{"error": msg, "code": k.code})
		return
	}

	log.Error(c.Request.Context(), fallback, "error", err)
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": fallback, "code": CodeInternal})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "code": CodeInvalidInput})
}

func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "Invalid "+name+" ID")
		return 0, false
	}
	return id, true
}
