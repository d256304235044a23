package middleware

import (
	"context"
	"crypto/rsa"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/edvin/budget/internal/api/response"
)

const (
	StatusAgentSubject     = "status-app"
	UsageAgentSubject      = "usage-app"
	ControllerAgentSubject = "controller-app"
)

const agentSubjectKey contextKey = "agent_subject"

// AgentAuth returns a middleware accepting RS256 bearer tokens signed by the
// agent's private key. The token must carry exp and a sub equal to subject.
// A nil key rejects every request.
func AgentAuth(key *rsa.PublicKey, subject string) func(http.Handler) http.Handler {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithSubject(subject),
	)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == nil {
				response.WriteError(w, http.StatusUnauthorized, "could not validate credentials: endpoint has no public key")
				return
			}

			raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if raw == "" || raw == r.Header.Get("Authorization") {
				w.Header().Set("WWW-Authenticate", "Bearer")
				response.WriteError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			var claims jwt.RegisteredClaims
			_, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
				return key, nil
			})
			if err != nil {
				zerolog.Ctx(r.Context()).Warn().Err(err).Str("subject", subject).Msg("agent token rejected")
				w.Header().Set("WWW-Authenticate", "Bearer")
				response.WriteError(w, http.StatusUnauthorized, "could not validate credentials")
				return
			}

			ctx := context.WithValue(r.Context(), agentSubjectKey, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AgentSubject returns the subject of the authenticated agent token.
func AgentSubject(ctx context.Context) string {
	s, _ := ctx.Value(agentSubjectKey).(string)
	return s
}

// ParseRSAPublicKey parses a PEM encoded RSA public key. An empty input yields
// a nil key.
func ParseRSAPublicKey(pem string) (*rsa.PublicKey, error) {
	if strings.TrimSpace(pem) == "" {
		return nil, nil
	}
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pem))
	if err != nil {
		return nil, errors.Join(errors.New("parse agent public key"), err)
	}
	return key, nil
}
