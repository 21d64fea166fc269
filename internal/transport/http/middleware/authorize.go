package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"fleet-expense-server/internal/auth"
	"fleet-expense-server/internal/domain"
	resp "fleet-expense-server/internal/transport/http/response"
)

const KeyIdentity = "identity"

// BearerToken pulls the session credential off the Authorization header.
func BearerToken(c *gin.Context) string {
	ah := c.GetHeader("Authorization")
	if !strings.HasPrefix(ah, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(ah, "Bearer ")
}

// Authorize gates a route group behind the authorizer. An empty
// capability only requires a valid, unrevoked session of an active user.
func Authorize(a *auth.Authorizer, capability domain.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := BearerToken(c)
		if tok == "" {
			c.AbortWithStatusJSON(http.StatusOK, resp.Error(resp.CodeUnauthorized, "missing token"))
			return
		}
		id, err := a.Authorize(c.Request.Context(), tok, capability)
		if err != nil {
			CountDenied(string(capability))
			c.AbortWithStatusJSON(http.StatusOK, resp.Error(resp.CodeForbidden, "forbidden"))
			return
		}
		c.Set(KeyIdentity, id)
		c.Next()
	}
}

// IdentityFrom returns the actor the authorizer attached, or nil.
func IdentityFrom(c *gin.Context) *auth.Identity {
	v, ok := c.Get(KeyIdentity)
	if !ok {
		return nil
	}
	id, _ := v.(*auth.Identity)
	return id
}
