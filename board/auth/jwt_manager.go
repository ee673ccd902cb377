package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sustainboard/board/schema"
	"sustainboard/utils"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"gorm.io/gorm"
)

const (
	// Tokens are signed with a symmetric key, anything shorter than this
	// is a configuration error.
	MinSecretLength = 32

	DefaultTokenLifetime = 2 * time.Hour
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Identity is the authenticated caller extracted from a verified token.
type Identity struct {
	UserId uuid.UUID
	Email  string
	Role   string
}

func (i Identity) IsAdmin() bool {
	return strings.EqualFold(i.Role, schema.RoleAdmin)
}

// TokenFactory issues and validates the signed identity tokens carried on
// the Authorization header. Validation is a pure function of the secret,
// issuer, and audience; no state is kept between requests.
type TokenFactory struct {
	auth     *jwtauth.JWTAuth
	issuer   string
	audience string
	lifetime time.Duration
}

func NewTokenFactory(secret []byte, issuer, audience string, lifetime time.Duration) (*TokenFactory, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("jwt secret must be at least %d bytes, got %d", MinSecretLength, len(secret))
	}
	if lifetime <= 0 {
		lifetime = DefaultTokenLifetime
	}

	return &TokenFactory{
		auth:     jwtauth.New("HS256", secret, nil, jwt.WithIssuer(issuer), jwt.WithAudience(audience)),
		issuer:   issuer,
		audience: audience,
		lifetime: lifetime,
	}, nil
}

func (m *TokenFactory) issueTokenExpiringAt(identity Identity, expiry time.Time) (string, error) {
	claims := map[string]interface{}{
		"sub":   identity.UserId.String(),
		"email": identity.Email,
		"role":  identity.Role,
		"iss":   m.issuer,
		"aud":   m.audience,
		"exp":   expiry,
	}

	_, token, err := m.auth.Encode(claims)
	if err != nil {
		slog.Error("error generating jwt", "error", err)
		return "", fmt.Errorf("error generating access token: %w", err)
	}
	return token, nil
}

func (m *TokenFactory) IssueToken(userId uuid.UUID, email, role string) (string, error) {
	identity := Identity{UserId: userId, Email: email, Role: role}
	return m.issueTokenExpiringAt(identity, time.Now().Add(m.lifetime))
}

// ValidateToken returns ErrInvalidToken for any verification failure: bad
// signature, issuer/audience mismatch, or expiry (no clock skew allowance).
func (m *TokenFactory) ValidateToken(tokenString string) (Identity, error) {
	token, err := jwtauth.VerifyToken(m.auth, tokenString)
	if err != nil {
		return Identity{}, ErrInvalidToken
	}

	userId, err := uuid.Parse(token.Subject())
	if err != nil {
		return Identity{}, ErrInvalidToken
	}

	claims := token.PrivateClaims()
	email, _ := claims["email"].(string)
	role, ok := claims["role"].(string)
	if !ok {
		return Identity{}, ErrInvalidToken
	}

	return Identity{UserId: userId, Email: email, Role: role}, nil
}

type requestContextKey string

const userRequestContextKey requestContextKey = "user"

// RequireAuth validates the bearer token and loads the caller's user row
// into the request context. The unauthorized reasons are distinguished for
// observability, the response code is 401 in every case.
func (m *TokenFactory) RequireAuth(db *gorm.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		handler := func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				utils.WriteUnauthorized(w, "missing authorization header")
				return
			}

			tokenString, found := strings.CutPrefix(header, "Bearer ")
			if !found || tokenString == "" {
				utils.WriteUnauthorized(w, "malformed authorization header")
				return
			}

			identity, err := m.ValidateToken(tokenString)
			if err != nil {
				utils.WriteUnauthorized(w, ErrInvalidToken.Error())
				return
			}

			user, err := schema.GetUser(identity.UserId, db)
			if err != nil {
				if errors.Is(err, schema.ErrUserNotFound) {
					utils.WriteUnauthorized(w, ErrInvalidToken.Error())
					return
				}
				http.Error(w, fmt.Sprintf("unable to load user %v: %v", identity.UserId, err), http.StatusInternalServerError)
				return
			}

			reqCtx := context.WithValue(r.Context(), userRequestContextKey, user)
			next.ServeHTTP(w, r.WithContext(reqCtx))
		}

		return http.HandlerFunc(handler)
	}
}

func UserFromContext(r *http.Request) (schema.User, error) {
	userUntyped := r.Context().Value(userRequestContextKey)
	if userUntyped == nil {
		return schema.User{}, fmt.Errorf("user field not found in request context")
	}
	user, ok := userUntyped.(schema.User)
	if !ok {
		return schema.User{}, fmt.Errorf("invalid value for user field")
	}
	return user, nil
}

func IsAdmin(user schema.User) bool {
	return strings.EqualFold(user.Role, schema.RoleAdmin)
}
