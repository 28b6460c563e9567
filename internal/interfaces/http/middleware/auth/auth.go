package auth

import (
	"net/http"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/ipede/mfa-service/internal/domain"
	"github.com/ipede/mfa-service/internal/interfaces/http/errors"
	"go.uber.org/zap"
)

// Algorithm is the signing algorithm of caller bearer tokens
const Algorithm = "HS256"

// AuthMiddleware admits callers presenting a bearer signed with the shared secret
type AuthMiddleware struct {
	tokenAuth *jwtauth.JWTAuth
	logger    *zap.Logger
}

// NewAuthMiddleware creates the middleware for secret
func NewAuthMiddleware(secret string, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		tokenAuth: jwtauth.New(Algorithm, []byte(secret), nil),
		logger:    logger,
	}
}

// Verifier extracts and verifies the bearer from the Authorization header
func (m *AuthMiddleware) Verifier(next http.Handler) http.Handler {
	return jwtauth.Verifier(m.tokenAuth)(next)
}

// Authenticator rejects requests whose bearer failed verification and puts
// the token subject in the context
func (m *AuthMiddleware) Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, _, err := jwtauth.FromContext(r.Context())
		if err != nil || token == nil || token.Subject() == "" {
			m.logger.Warn("Rejected bearer",
				zap.String("path", r.URL.Path),
				zap.Error(err))
			errors.RespondWithError(w, domain.ErrUnauthorized)
			return
		}

		ctx := domain.WithSubject(r.Context(), token.Subject())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Issue signs a bearer for subject valid for ttl
func (m *AuthMiddleware) Issue(subject string, ttl time.Duration) (string, error) {
	claims := map[string]interface{}{"sub": subject}
	jwtauth.SetIssuedNow(claims)
	jwtauth.SetExpiryIn(claims, ttl)
	_, token, err := m.tokenAuth.Encode(claims)
	return token, err
}
