package core

import "time"

// AcceptConfig configures verification of platform-issued JWTs (verify-only
// mode). The kit never mints end-user tokens; it only accepts them from the
// host platform's issuer(s).
type AcceptConfig struct {
	Issuers    []IssuerAccept
	Skew       time.Duration
	Algorithms []string
}

// IssuerAccept describes how to accept tokens from a specific issuer.
type IssuerAccept struct {
	Issuer   string
	Audience string // Expected audience for this service (single value)
	JWKSURL  string
	CacheTTL time.Duration
	MaxStale time.Duration
}
