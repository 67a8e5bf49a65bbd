package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/open-rails/coursekit/access"
	"github.com/open-rails/coursekit/adapters/ginutil"
	"github.com/open-rails/coursekit/core"
)

// HandleLessonMaterialGET returns the sanitized lesson payload. Locked levels
// get a 403 with the level; the payload was never fetched for them.
func HandleLessonMaterialGET(svc *access.Service, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		lessonID, err := uuid.Parse(c.Param("lesson_id"))
		if err != nil {
			ginutil.BadRequest(c, "invalid_lesson_id")
			return
		}
		schoolID, userID, ok := resolveScope(c)
		if !ok {
			ginutil.BadRequest(c, "invalid_school_id")
			return
		}
		if !ginutil.AllowNamed(c, rl, ginutil.RLLessonAccess) {
			ginutil.TooMany(c)
			return
		}
		preview := c.Query("preview") == "1" || c.Query("preview") == "true"
		now := time.Now()

		m, d, err := svc.LessonMaterial(c.Request.Context(), now, schoolID, userID, lessonID, preview)
		if errors.Is(err, core.ErrNotFound) {
			ginutil.NotFound(c, "lesson_not_found")
			return
		}
		if err != nil {
			ginutil.BadRequest(c, "invalid_request")
			return
		}
		if m == nil {
			c.JSON(http.StatusForbidden, gin.H{
				"error":        "content_locked",
				"level":        d.Level,
				"available_at": d.Availability.AvailableAt,
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"level": d.Level,
			"material": gin.H{
				"lesson_id":        m.LessonID,
				"content_text":     m.ContentText,
				"media_url":        m.MediaURL,
				"duration_seconds": m.DurationSeconds,
			},
		})
	}
}
