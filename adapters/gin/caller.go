// Package coursegin adapts the kit to gin. Handlers stay thin: resolve the
// caller, apply rate limits, delegate to the domain packages, shape JSON.
package coursegin

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/open-rails/coursekit/adapters/ginutil"
	"github.com/open-rails/coursekit/core"
)

const callerKey = "coursekit.caller"

// RoleAdmin marks school staff allowed to force-issue certificates and
// trigger reconciliation.
const RoleAdmin = "admin"

// CallerRequired verifies the bearer token and aborts unauthenticated
// requests. Verified claims are stored for CallerFromGin.
func CallerRequired(verifier *core.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := verifyBearer(c, verifier)
		if !ok {
			ginutil.Unauthorized(c, "invalid_token")
			c.Abort()
			return
		}
		setCaller(c, claims)
		c.Next()
	}
}

// CallerOptional verifies a bearer token when present but lets anonymous
// requests through (preview/sampling flows).
func CallerOptional(verifier *core.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, ok := verifyBearer(c, verifier); ok {
			setCaller(c, claims)
		}
		c.Next()
	}
}

// CallerFromGin returns the verified caller claims, if any.
func CallerFromGin(c *gin.Context) (core.Claims, bool) {
	v, ok := c.Get(callerKey)
	if !ok {
		return core.Claims{}, false
	}
	claims, ok := v.(core.Claims)
	return claims, ok && claims.UserID != ""
}

func setCaller(c *gin.Context, claims core.Claims) {
	c.Set(callerKey, claims)
	c.Set("coursekit.user_id", claims.UserID)
}

func verifyBearer(c *gin.Context, verifier *core.TokenVerifier) (core.Claims, bool) {
	if verifier == nil {
		return core.Claims{}, false
	}
	auth := c.GetHeader("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return core.Claims{}, false
	}
	claims, err := verifier.Verify(c.Request.Context(), strings.TrimPrefix(auth, "Bearer "))
	if err != nil || claims.UserID == "" {
		return core.Claims{}, false
	}
	return claims, true
}
