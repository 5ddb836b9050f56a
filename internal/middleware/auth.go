package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/taskdesk/taskdesk/internal/domain"
	"github.com/taskdesk/taskdesk/internal/handler/dto"
	"github.com/taskdesk/taskdesk/internal/repository"
)

type contextKey string

const (
	// ContextKeyIdentity is the key for storing the identity in request context.
	ContextKeyIdentity contextKey = "identity"
)

// AuthMiddleware handles Bearer token authentication. The token is an
// HS256 JWT whose subject is the user ID; the role is resolved from the
// profile tables once per request and carried in the context.
type AuthMiddleware struct {
	profileRepo *repository.ProfileRepository
	secret      []byte
}

// NewAuthMiddleware creates a new AuthMiddleware.
func NewAuthMiddleware(profileRepo *repository.ProfileRepository, secret []byte) *AuthMiddleware {
	return &AuthMiddleware{
		profileRepo: profileRepo,
		secret:      secret,
	}
}

// Authenticate validates the Bearer token and adds the resolved identity
// to the request context.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			dto.RespondEnvelope(w, http.StatusUnauthorized, false, "Authentication required.", nil)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
			dto.RespondEnvelope(w, http.StatusUnauthorized, false, "Invalid authorization header.", nil)
			return
		}

		userID, err := m.verifyToken(parts[1])
		if err != nil {
			dto.RespondEnvelope(w, http.StatusUnauthorized, false, "Invalid or expired token.", nil)
			return
		}

		user, err := m.profileRepo.GetUser(r.Context(), userID)
		if err != nil {
			dto.RespondEnvelope(w, http.StatusUnauthorized, false, "Invalid or expired token.", nil)
			return
		}

		role, err := m.profileRepo.RoleOf(r.Context(), user.ID)
		if err != nil {
			dto.RespondEnvelope(w, http.StatusInternalServerError, false, "Internal Server Error", nil)
			return
		}

		identity := &domain.Identity{User: user, Role: role}
		ctx := context.WithValue(r.Context(), ContextKeyIdentity, identity)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// verifyToken parses and validates the JWT, returning the subject.
func (m *AuthMiddleware) verifyToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&jwt.RegisteredClaims{},
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("%w: unexpected signing method %v", domain.ErrInvalidToken, t.Header["alg"])
			}
			return m.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", domain.ErrInvalidToken
	}
	return claims.Subject, nil
}

// GetIdentityFromContext retrieves the authenticated identity from request context.
func GetIdentityFromContext(ctx context.Context) (*domain.Identity, error) {
	identity, ok := ctx.Value(ContextKeyIdentity).(*domain.Identity)
	if !ok || identity == nil {
		return nil, domain.ErrInvalidToken
	}
	return identity, nil
}
