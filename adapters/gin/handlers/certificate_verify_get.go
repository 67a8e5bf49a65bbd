package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/open-rails/coursekit/adapters/ginutil"
	"github.com/open-rails/coursekit/certificates"
)

// HandleCertificateVerifyGET validates a public share token and returns the
// certificate snapshot embedded in it. No authentication: share links are for
// third parties.
func HandleCertificateVerifyGET(keyfunc jwt.Keyfunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.Query("token")
		if raw == "" {
			ginutil.BadRequest(c, "missing_token")
			return
		}
		claims, err := certificates.VerifyShareToken(raw, keyfunc)
		if err != nil {
			ginutil.BadRequest(c, "invalid_token")
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"valid":          true,
			"certificate_id": claims.CertificateID,
			"course_title":   claims.CourseTitle,
			"instructor":     claims.Instructor,
			"issued_at":      time.Unix(claims.IssuedAt, 0).UTC(),
		})
	}
}
