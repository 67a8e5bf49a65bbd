// Package coursehttp holds framework-free HTTP adapters.
package coursehttp

import (
	"net/http"

	tokenkit "github.com/open-rails/coursekit/tokens"
)

// JWKSHandler serves the public keys certificate share tokens verify against.
func JWKSHandler(signer *tokenkit.RSASigner) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ks := tokenkit.JWKS{Keys: []tokenkit.JWK{
			tokenkit.RSAPublicToJWK(signer.PublicKey(), signer.KID(), signer.Algorithm()),
		}}
		tokenkit.ServeJWKS(w, r, ks)
	})
}
