package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/open-rails/coursekit/access"
	coursegin "github.com/open-rails/coursekit/adapters/gin"
	"github.com/open-rails/coursekit/adapters/ginutil"
	"github.com/open-rails/coursekit/core"
	"github.com/open-rails/coursekit/drip"
	kitlang "github.com/open-rails/coursekit/lang"
)

// HandleLessonAccessGET resolves the caller's access level for a lesson.
// Anonymous callers may request `?preview=1` for the sampling flow.
func HandleLessonAccessGET(svc *access.Service, rl ginutil.RateLimiter) gin.HandlerFunc {
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

		d, err := svc.LessonAccess(c.Request.Context(), now, schoolID, userID, lessonID, preview)
		if errors.Is(err, core.ErrNotFound) {
			ginutil.NotFound(c, "lesson_not_found")
			return
		}
		if err != nil {
			ginutil.BadRequest(c, "invalid_request")
			return
		}

		language := "en"
		if v, ok := kitlang.LanguageFromContext(c.Request.Context()); ok {
			language = v
		}
		c.JSON(http.StatusOK, gin.H{
			"level":     d.Level,
			"available": d.Availability.Available,
			"reason":    d.Availability.Reason,
			"countdown": drip.FormatCountdown(d.Availability.AvailableAt, now, language),
		})
	}
}

// resolveScope derives (school, user) from verified claims, falling back to a
// school_id query param for anonymous preview flows.
func resolveScope(c *gin.Context) (schoolID, userID uuid.UUID, ok bool) {
	if claims, authed := coursegin.CallerFromGin(c); authed {
		sid, err := uuid.Parse(claims.SchoolID)
		if err != nil {
			return uuid.Nil, uuid.Nil, false
		}
		uid, err := uuid.Parse(claims.UserID)
		if err != nil {
			return uuid.Nil, uuid.Nil, false
		}
		return sid, uid, true
	}
	sid, err := uuid.Parse(c.Query("school_id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, false
	}
	return sid, uuid.Nil, true
}
