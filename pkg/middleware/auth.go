package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lendinghub/lending-service/internal/authz"
	"github.com/lendinghub/lending-service/internal/tokens"
	"github.com/lendinghub/lending-service/pkg/logger"
)

// IdentityKey is the gin context key holding the verified *tokens.Identity.
const IdentityKey = "identity"

// Verifier is the minimal interface the middleware depends on. tokens.Service
// implements it.
type Verifier interface {
	Verify(raw string) (*tokens.Identity, error)
}

// IdentityMiddleware verifies a Bearer token when one is present and stores the
// identity on the context. A missing or invalid token never aborts here: the
// request simply proceeds unauthenticated and RequireCapability rejects it.
func IdentityMiddleware(ver Verifier) gin.HandlerFunc {
	log := logger.Component("http")
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.Next()
			return
		}
		id, err := ver.Verify(raw)
		if err != nil {
			log.Debugf("token rejected for %s %s: %v", c.Request.Method, c.FullPath(), err)
			c.Next()
			return
		}
		c.Set(IdentityKey, id)
		c.Next()
	}
}

// CurrentIdentity returns the identity set by IdentityMiddleware, or nil.
func CurrentIdentity(c *gin.Context) *tokens.Identity {
	v, ok := c.Get(IdentityKey)
	if !ok {
		return nil
	}
	id, _ := v.(*tokens.Identity)
	return id
}

// RequireCapability aborts with 401 when the request carries no valid identity
// and with 403 when the identity's role may not perform op.
func RequireCapability(op authz.Operation) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := authz.Authorize(CurrentIdentity(c), op)
		switch {
		case err == nil:
			c.Next()
		case errors.Is(err, authz.ErrUnauthenticated):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required", "code": "UNAUTHENTICATED"})
		default:
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": err.Error(), "code": "FORBIDDEN"})
		}
	}
}

// Expect 'Bearer <token>'
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
