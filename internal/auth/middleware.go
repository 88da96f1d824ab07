package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// CookieName carries the session token in browsers.
const CookieName = "admin_session"

const claimsKey = "claims"

// Session parses the session cookie or bearer token when present and
// stores the claims on the context. Requests without a valid session pass
// through unauthenticated.
func Session(signer *Signer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenStr := token(c); tokenStr != "" {
			if claims, err := signer.Parse(tokenStr); err == nil {
				c.Set(claimsKey, claims)
			}
		}
		c.Next()
	}
}

// Require aborts with 401 when no session is present and 403 when the
// session role may not perform op.
func Require(op Op) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := FromContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		if !Allowed(claims.Role, op) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}
		c.Next()
	}
}

// FromContext returns the session claims set by Session.
func FromContext(c *gin.Context) (Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return Claims{}, false
	}
	claims, ok := v.(Claims)
	return claims, ok
}

func token(c *gin.Context) string {
	if authz := c.GetHeader("Authorization"); len(authz) > 7 && strings.EqualFold(authz[:7], "bearer ") {
		return strings.TrimSpace(authz[7:])
	}
	if cookie, err := c.Cookie(CookieName); err == nil {
		return cookie
	}
	return ""
}
