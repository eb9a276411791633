package middleware

import (
	"context"
	"errors"
	"net/http"

	"minimart/internal/logging"
	"minimart/internal/model"
	"minimart/internal/service"

	"github.com/gin-gonic/gin"
)

// AccountLookup loads the stored account for a token subject.
type AccountLookup interface {
	CurrentUser(ctx context.Context, email string) (*model.User, error)
}

// ActiveAccountMiddleware re-reads the token's account on every request, so
// suspension and role changes apply before the token expires. Must run after
// JWTAuthMiddleware.
func ActiveAccountMiddleware(accounts AccountLookup, log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		user, err := accounts.CurrentUser(ctx, AuthEmail(c))
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				abort(c, http.StatusUnauthorized, codeUnauthorized, "Account no longer exists")
				return
			}
			log.Error(ctx, "failed to load account", "email", AuthEmail(c), "error", err)
			abort(c, http.StatusInternalServerError, codeInternal, "Failed to verify account")
			return
		}

		if user.Suspended {
			abort(c, http.StatusUnauthorized, codeUnauthorized, "Account is suspended")
			return
		}
		if user.Role != AuthRole(c) {
			abort(c, http.StatusForbidden, codeForbidden, "Role has changed, please log in again")
			return
		}

		c.Next()
	}
}
