package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/p3tuh/notello/internal/authtoken"
	"github.com/p3tuh/notello/internal/log"
)

const (
	TokenHeader = "X-Authorization"
	IdentityKey = "identity"
)

// Authorizer validates and renews a session token.
type Authorizer interface {
	Authorize(rawToken string) (identity, renewed string, err error)
}

// RequireToken guards a route with the X-Authorization session token.
//
// On success the renewed token is returned in the X-Authorization response
// header and the identity is stored under IdentityKey. A token with a bad
// signature ends the request with 200 {"token":"InvalidToken"} so the client
// drops it; every other failure is 403 {"message":"Forbidden"}.
func RequireToken(auth Authorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, renewed, err := auth.Authorize(c.GetHeader(TokenHeader))
		if err != nil {
			if errors.Is(err, authtoken.ErrInvalidSignature) {
				c.AbortWithStatusJSON(http.StatusOK, gin.H{"token": "InvalidToken"})
				return
			}
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Forbidden"})
			return
		}

		c.Header(TokenHeader, renewed)
		c.Set(IdentityKey, identity)
		c.Request = c.Request.WithContext(log.WithAttrs(c.Request.Context(), slog.String("identity", identity)))
		c.Next()
	}
}
