package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/edvin/budget/internal/api/response"
	"github.com/edvin/budget/internal/core"
	"github.com/edvin/budget/internal/model"
)

type contextKey string

const APIKeyIdentityKey contextKey = "api_key_identity"

// APIKeyIdentity holds the authenticated key's ID and scopes.
type APIKeyIdentity struct {
	ID     string
	Name   string
	Scopes []string
}

// KeyLookup finds an active API key by the hash of its raw value.
type KeyLookup interface {
	GetByHash(ctx context.Context, hash string) (*model.APIKey, error)
}

// Auth returns a middleware that validates the X-API-Key header, or a bearer
// token carrying an API key, against the api_keys table.
func Auth(keys KeyLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = extractAPIKey(r)
			}
			if key == "" {
				response.WriteError(w, http.StatusUnauthorized, "missing API key")
				return
			}

			k, err := keys.GetByHash(r.Context(), core.HashAPIKey(key))
			if err != nil {
				response.WriteError(w, http.StatusUnauthorized, "invalid API key")
				return
			}

			identity := &APIKeyIdentity{ID: k.ID, Name: k.Name, Scopes: k.Scopes}
			ctx := context.WithValue(r.Context(), APIKeyIdentityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractAPIKey returns an API key passed as a bearer token.
func extractAPIKey(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(h, "Bearer ")
}
