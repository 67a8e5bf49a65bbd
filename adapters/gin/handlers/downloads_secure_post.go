package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	coursegin "github.com/open-rails/coursekit/adapters/gin"
	"github.com/open-rails/coursekit/adapters/ginutil"
	"github.com/open-rails/coursekit/downloads"
)

type secureDownloadRequest struct {
	DownloadID string `json:"download_id" binding:"required"`
}

// HandleSecureDownloadPOST relays a download authorization to the gateway.
// The gateway is the authority; this handler only forwards its decision.
func HandleSecureDownloadPOST(gw *downloads.Gateway, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := coursegin.CallerFromGin(c)
		if !ok {
			ginutil.Unauthorized(c, "authentication_required")
			return
		}
		schoolID, err := uuid.Parse(claims.SchoolID)
		if err != nil {
			ginutil.BadRequest(c, "invalid_school_id")
			return
		}
		var req secureDownloadRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			ginutil.BadRequest(c, "invalid_request")
			return
		}
		if !ginutil.AllowNamed(c, rl, ginutil.RLSecureDownload) {
			ginutil.TooMany(c)
			return
		}

		decision, err := gw.Authorize(c.Request.Context(), schoolID, req.DownloadID)
		if err != nil {
			// Transient gateway failure is "retry later", never a grant.
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "gateway_unavailable"})
			return
		}
		if !decision.Allowed {
			c.JSON(http.StatusForbidden, gin.H{"allowed": false, "reason": decision.Reason})
			return
		}
		c.JSON(http.StatusOK, gin.H{"allowed": true, "url": decision.URL})
	}
}
