package core

import (
	"context"
	"errors"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Claims is the minimal caller identity the kit needs: who is asking, for
// which school, and with which roles.
type Claims struct {
	UserID   string
	SchoolID string
	Roles    []string
}

// HasRole reports whether the caller carries the given role.
func (c Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// TokenVerifier validates platform JWTs against the configured issuers,
// fetching and caching JWKS documents per issuer.
type TokenVerifier struct {
	cfg     AcceptConfig
	cache   *jwk.Cache
	byIss   map[string]IssuerAccept
	skew    time.Duration
	baseCtx context.Context
}

// NewTokenVerifier registers every configured issuer's JWKS URL and returns a
// verifier. ctx bounds the lifetime of the background JWKS refresher.
func NewTokenVerifier(ctx context.Context, cfg AcceptConfig) (*TokenVerifier, error) {
	if len(cfg.Issuers) == 0 {
		return nil, errors.New("accept: at least one issuer required")
	}
	cache := jwk.NewCache(ctx)
	byIss := make(map[string]IssuerAccept, len(cfg.Issuers))
	for _, iss := range cfg.Issuers {
		if iss.Issuer == "" || iss.JWKSURL == "" {
			return nil, errors.New("accept: issuer and jwks url required")
		}
		ttl := iss.CacheTTL
		if ttl <= 0 {
			ttl = 5 * time.Minute
		}
		if err := cache.Register(iss.JWKSURL, jwk.WithMinRefreshInterval(ttl)); err != nil {
			return nil, err
		}
		byIss[iss.Issuer] = iss
	}
	skew := cfg.Skew
	if skew <= 0 {
		skew = 30 * time.Second
	}
	return &TokenVerifier{cfg: cfg, cache: cache, byIss: byIss, skew: skew, baseCtx: ctx}, nil
}

// Verify validates raw against the token's issuer and returns the caller
// claims. The subject claim is the user id; school_id and roles are private
// claims set by the platform issuer.
func (v *TokenVerifier) Verify(ctx context.Context, raw string) (Claims, error) {
	if v == nil {
		return Claims{}, errors.New("accept: nil verifier")
	}
	unverified, err := jwt.ParseInsecure([]byte(raw))
	if err != nil {
		return Claims{}, err
	}
	iss, ok := v.byIss[unverified.Issuer()]
	if !ok {
		return Claims{}, errors.New("accept: unknown issuer")
	}
	keySet, err := v.cache.Get(ctx, iss.JWKSURL)
	if err != nil {
		return Claims{}, Transient("accept: jwks fetch", err)
	}
	opts := []jwt.ParseOption{
		jwt.WithKeySet(keySet),
		jwt.WithValidate(true),
		jwt.WithIssuer(iss.Issuer),
		jwt.WithAcceptableSkew(v.skew),
		jwt.WithContext(ctx),
	}
	if iss.Audience != "" {
		opts = append(opts, jwt.WithAudience(iss.Audience))
	}
	token, err := jwt.ParseString(raw, opts...)
	if err != nil {
		return Claims{}, err
	}

	out := Claims{UserID: token.Subject()}
	if v, ok := token.Get("school_id"); ok {
		if s, ok := v.(string); ok {
			out.SchoolID = s
		}
	}
	if v, ok := token.Get("roles"); ok {
		switch roles := v.(type) {
		case []string:
			out.Roles = roles
		case []interface{}:
			for _, r := range roles {
				if s, ok := r.(string); ok {
					out.Roles = append(out.Roles, s)
				}
			}
		}
	}
	return out, nil
}
