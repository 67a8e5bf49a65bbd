// Package ginutil holds the shared response and rate-limit helpers the gin
// handlers use.
package ginutil

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Rate limit bucket names.
const (
	RLLessonAccess     = "lesson_access"
	RLCertificateIssue = "certificate_issue"
	RLSecureDownload   = "secure_download"
	RLReconcileUser    = "reconcile_user"
)

// RateLimiter is the limiter interface the handlers accept; both the redis
// and memory limiters implement it.
type RateLimiter interface {
	AllowNamed(ctx context.Context, bucket, key string) (bool, error)
}

// AllowNamed applies rl for the calling client. The key prefers the
// authenticated user id and falls back to the client IP. A nil limiter or a
// limiter error allows the request; limiting is protection, not access
// control.
func AllowNamed(c *gin.Context, rl RateLimiter, bucket string) bool {
	if rl == nil {
		return true
	}
	key := c.GetString("coursekit.user_id")
	if key == "" {
		key = c.ClientIP()
	}
	ok, err := rl.AllowNamed(c.Request.Context(), bucket, key)
	if err != nil {
		return true
	}
	return ok
}

func BadRequest(c *gin.Context, code string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": code})
}

func NotFound(c *gin.Context, code string) {
	c.JSON(http.StatusNotFound, gin.H{"error": code})
}

func Forbidden(c *gin.Context, code string) {
	c.JSON(http.StatusForbidden, gin.H{"error": code})
}

func Unauthorized(c *gin.Context, code string) {
	c.JSON(http.StatusUnauthorized, gin.H{"error": code})
}

func Ineligible(c *gin.Context, code string) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{"error": code})
}

func TooMany(c *gin.Context) {
	c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate_limited"})
}

func ServerErr(c *gin.Context, code string) {
	c.JSON(http.StatusInternalServerError, gin.H{"error": code})
}
