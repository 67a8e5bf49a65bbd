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
	"github.com/open-rails/coursekit/certificates"
	"github.com/open-rails/coursekit/core"
)

// HandleCertificateIssuePOST mints (or returns the existing) completion
// certificate for the calling user. `?force=1` skips the completion check and
// is admin-only.
func HandleCertificateIssuePOST(issuer *certificates.Issuer, store access.ContentStore, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := coursegin.CallerFromGin(c)
		if !ok {
			ginutil.Unauthorized(c, "authentication_required")
			return
		}
		courseID, err := uuid.Parse(c.Param("course_id"))
		if err != nil {
			ginutil.BadRequest(c, "invalid_course_id")
			return
		}
		schoolID, err := uuid.Parse(claims.SchoolID)
		if err != nil {
			ginutil.BadRequest(c, "invalid_school_id")
			return
		}
		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			ginutil.BadRequest(c, "invalid_user_id")
			return
		}
		if !ginutil.AllowNamed(c, rl, ginutil.RLCertificateIssue) {
			ginutil.TooMany(c)
			return
		}
		force := c.Query("force") == "1" || c.Query("force") == "true"
		if force && !claims.HasRole(coursegin.RoleAdmin) {
			ginutil.Forbidden(c, "force_requires_admin")
			return
		}

		course, err := store.GetCourse(c.Request.Context(), schoolID, courseID)
		if err != nil {
			ginutil.ServerErr(c, "course_lookup_failed")
			return
		}
		if course == nil {
			ginutil.NotFound(c, "course_not_found")
			return
		}

		cert, err := issuer.IssueIfEligible(c.Request.Context(), time.Now(), course, userID, force)
		switch {
		case errors.Is(err, core.ErrIneligible):
			ginutil.Ineligible(c, "course_not_completed")
			return
		case errors.Is(err, core.ErrNotFound):
			ginutil.NotFound(c, "course_not_found")
			return
		case err != nil:
			ginutil.ServerErr(c, "issuance_failed")
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"certificate_id": cert.ID,
			"course_title":   cert.CourseTitle,
			"instructor":     cert.Instructor,
			"issued_at":      cert.IssuedAt,
		})
	}
}
