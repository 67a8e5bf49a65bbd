package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	coursegin "github.com/open-rails/coursekit/adapters/gin"
	"github.com/open-rails/coursekit/adapters/ginutil"
	"github.com/open-rails/coursekit/subscription"
)

// HandleUserReconcilePOST reconciles one user's subscriptions immediately.
// Admin-only; webhook-driven reconciliation should go through the river queue
// instead.
func HandleUserReconcilePOST(rec *subscription.Reconciler, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := coursegin.CallerFromGin(c)
		if !ok {
			ginutil.Unauthorized(c, "authentication_required")
			return
		}
		if !claims.HasRole(coursegin.RoleAdmin) {
			ginutil.Forbidden(c, "admin_required")
			return
		}
		schoolID, err := uuid.Parse(claims.SchoolID)
		if err != nil {
			ginutil.BadRequest(c, "invalid_school_id")
			return
		}
		userID, err := uuid.Parse(c.Param("user_id"))
		if err != nil {
			ginutil.BadRequest(c, "invalid_user_id")
			return
		}
		if !ginutil.AllowNamed(c, rl, ginutil.RLReconcileUser) {
			ginutil.TooMany(c)
			return
		}

		res, err := rec.ReconcileUser(c.Request.Context(), schoolID, userID, time.Now())
		if err != nil {
			ginutil.ServerErr(c, "reconcile_failed")
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"checked":  res.Checked,
			"updated":  res.Updated,
			"cascaded": res.Cascaded,
			"failed":   res.Failed,
		})
	}
}
