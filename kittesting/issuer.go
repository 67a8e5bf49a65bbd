// Package kittesting provides utilities for testing applications that embed
// coursekit. The mock issuer serves JWKS and signs platform tokens, so
// adapter tests run without a real identity provider; the mock gateway and
// billing servers stand in for the external collaborators.
package kittesting

import (
	"context"
	"net/http"
	"net/http/httptest"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/open-rails/coursekit/core"
	tokenkit "github.com/open-rails/coursekit/tokens"
)

// Issuer runs an HTTP server serving JWKS at /.well-known/jwks.json and signs
// tokens that validate against it.
type Issuer struct {
	server   *httptest.Server
	signer   *tokenkit.RSASigner
	audience string
}

// NewIssuer creates a mock platform issuer. Call Close when done.
func NewIssuer(audience string) *Issuer {
	signer, err := tokenkit.NewRSASigner(2048, "test-key-1")
	if err != nil {
		panic("kittesting: failed to create RSA signer: " + err.Error())
	}
	ti := &Issuer{signer: signer, audience: audience}
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/jwks.json", ti.handleJWKS)
	ti.server = httptest.NewServer(mux)
	return ti
}

// URL returns the issuer URL (also used as the iss claim).
func (ti *Issuer) URL() string { return ti.server.URL }

// JWKSURL returns the JWKS endpoint.
func (ti *Issuer) JWKSURL() string { return ti.server.URL + "/.well-known/jwks.json" }

// Close shuts down the test server.
func (ti *Issuer) Close() { ti.server.Close() }

// Accept returns an AcceptConfig trusting this issuer, ready for
// core.NewTokenVerifier.
func (ti *Issuer) Accept() core.AcceptConfig {
	return core.AcceptConfig{Issuers: []core.IssuerAccept{{
		Issuer:   ti.URL(),
		Audience: ti.audience,
		JWKSURL:  ti.JWKSURL(),
	}}}
}

// CreateToken signs a platform token for the given caller.
func (ti *Issuer) CreateToken(userID, schoolID string, roles ...string) string {
	base := tokenkit.BaseRegisteredClaims(userID, []string{ti.audience}, nowFunc(), tokenTTL)
	claims := jwt.MapClaims{
		"iss":       ti.URL(),
		"sub":       base.Subject,
		"aud":       base.Audience,
		"iat":       base.IssuedAt,
		"exp":       base.ExpiresAt,
		"school_id": schoolID,
	}
	if len(roles) > 0 {
		claims["roles"] = roles
	}
	token, err := ti.signer.Sign(context.Background(), claims)
	if err != nil {
		panic("kittesting: failed to sign token: " + err.Error())
	}
	return token
}

func (ti *Issuer) handleJWKS(w http.ResponseWriter, r *http.Request) {
	ks := tokenkit.JWKS{Keys: []tokenkit.JWK{
		tokenkit.RSAPublicToJWK(ti.signer.PublicKey(), ti.signer.KID(), ti.signer.Algorithm()),
	}}
	tokenkit.ServeJWKS(w, r, ks)
}
