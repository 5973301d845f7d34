package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/airflowiq/hub/internal/errors"
	"github.com/airflowiq/hub/internal/models"
	"github.com/golang-jwt/jwt/v5"
	nuts "github.com/vaudience/go-nuts"
)

// Claims are the access token claims issued by the hosted auth service.
// The subject is the user id.
type Claims struct {
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// JWTMiddleware authenticates bearer tokens signed with a shared HS256 secret
type JWTMiddleware struct {
	secret []byte
	parser *jwt.Parser
}

func NewJWTMiddleware(secret string) *JWTMiddleware {
	return &JWTMiddleware{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}
}

// Authenticate validates the token and adds user info to context
func (m *JWTMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			handleError(w, errors.NewAuthError("no token provided", nil))
			return
		}

		claims, err := m.Parse(token)
		if err != nil {
			handleError(w, errors.NewAuthError("invalid token", err))
			return
		}

		ctx := models.WithUser(r.Context(), createUserContext(claims))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Parse verifies signature and expiry and requires a subject
func (m *JWTMiddleware) Parse(tokenString string) (*Claims, error) {
	if len(m.secret) == 0 {
		return nil, fmt.Errorf("auth: empty secret")
	}
	claims := &Claims{}
	token, err := m.parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("auth: invalid signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("auth: invalid token")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("auth: missing subject")
	}
	return claims, nil
}

// IssueToken signs a token for a user, for local development and tests
func IssueToken(secret, userID string, roles []string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        nuts.NID("tok", 12),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func createUserContext(claims *Claims) *models.UserContext {
	roles := claims.Roles
	if len(roles) == 0 {
		roles = []string{models.RoleUser}
	}
	return &models.UserContext{
		ID:    claims.Subject,
		Email: claims.Email,
		Roles: roles,
	}
}

func extractToken(r *http.Request) string {
	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return parts[1]
	}
	return ""
}

func handleError(w http.ResponseWriter, apiErr *errors.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.Code)
	_ = json.NewEncoder(w).Encode(apiErr)
	nuts.L.Warnf("[Auth] %s", apiErr.Error())
}
