package api

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/org/memberauth/internal/auth"
	"github.com/rs/zerolog/log"
)

const (
	// HeaderTransactionID is stamped on every response.
	HeaderTransactionID = "X-Transaction-Id"

	bearerPrefix = "Bearer "
)

// authenticationGate stamps a transaction id on every request and attaches a
// principal when the request carries a valid, unrevoked bearer token. It never
// rejects a request: routes that need a principal sit behind
// requireAuthenticated.
func authenticationGate(tokens *auth.TokenManager, revocations *auth.RevocationStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			txID := uuid.NewString()
			w.Header().Set(HeaderTransactionID, txID)
			ctx := withTransactionID(r.Context(), txID)

			if p, token := authenticate(tokens, revocations, r.Header.Get("Authorization")); p != nil {
				ctx = withPrincipal(ctx, p, token)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// authenticate resolves an Authorization header value to a principal. Any
// failure, including a panic while reading the token, yields nil.
func authenticate(tokens *auth.TokenManager, revocations *auth.RevocationStore, header string) (p *auth.Principal, token string) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Msg("recovered while extracting bearer token")
			p, token = nil, ""
		}
	}()

	// the prefix is case-sensitive: "bearer x" is not a bearer token
	if !strings.HasPrefix(header, bearerPrefix) {
		return nil, ""
	}
	token = header[len(bearerPrefix):]
	if token == "" || revocations.IsRevoked(token) {
		return nil, ""
	}
	claims, err := tokens.Parse(token)
	if err != nil {
		return nil, ""
	}
	p = auth.PrincipalFromClaims(claims)
	if p.Username == "" || !p.Role.Valid() {
		return nil, ""
	}
	return p, token
}
