package certificates

import (
	"context"
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	tokenkit "github.com/open-rails/coursekit/tokens"
)

// ShareTokenAudience is the audience claim on certificate share tokens.
const ShareTokenAudience = "coursekit-certificate"

// DefaultShareTTL bounds how long a share link stays verifiable.
const DefaultShareTTL = 90 * 24 * time.Hour

// ShareClaims is what a verification page learns from a share token. The
// snapshot travels in the token so verification needs no storage read.
type ShareClaims struct {
	CertificateID string `json:"certificate_id"`
	CourseTitle   string `json:"course_title"`
	Instructor    string `json:"instructor"`
	IssuedAt      int64  `json:"certificate_issued_at"`
}

// NewShareToken signs a public share token for an issued certificate.
func NewShareToken(ctx context.Context, signer tokenkit.Signer, cert *Certificate, now time.Time, ttl time.Duration) (string, error) {
	if signer == nil || cert == nil {
		return "", errors.New("certificates: signer and certificate required")
	}
	if ttl <= 0 {
		ttl = DefaultShareTTL
	}
	base := tokenkit.BaseRegisteredClaims(cert.UserID.String(), []string{ShareTokenAudience}, now, ttl)
	claims := jwt.MapClaims{
		"sub":                   base.Subject,
		"aud":                   base.Audience,
		"iat":                   base.IssuedAt,
		"exp":                   base.ExpiresAt,
		"certificate_id":        cert.ID,
		"course_title":          cert.CourseTitle,
		"instructor":            cert.Instructor,
		"certificate_issued_at": cert.IssuedAt.Unix(),
	}
	return signer.Sign(ctx, claims)
}

// VerifyShareToken validates a share token against the kit's public key and
// returns the embedded snapshot.
func VerifyShareToken(raw string, keyfunc jwt.Keyfunc) (*ShareClaims, error) {
	token, err := jwt.Parse(raw, keyfunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(ShareTokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("certificates: unexpected claims type")
	}
	out := &ShareClaims{}
	if v, ok := claims["certificate_id"].(string); ok {
		out.CertificateID = v
	}
	if out.CertificateID == "" {
		return nil, errors.New("certificates: token missing certificate_id")
	}
	if v, ok := claims["course_title"].(string); ok {
		out.CourseTitle = v
	}
	if v, ok := claims["instructor"].(string); ok {
		out.Instructor = v
	}
	if v, ok := claims["certificate_issued_at"].(float64); ok {
		out.IssuedAt = int64(v)
	}
	return out, nil
}
