package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/airflowiq/hub/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func protectedHandler(t *testing.T, wantUser string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := models.UserFromContext(r.Context())
		require.True(t, ok)
		assert.Equal(t, wantUser, user.ID)
		assert.Equal(t, []string{models.RoleUser}, user.Roles)
		w.WriteHeader(http.StatusOK)
	})
}

func serve(h http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/readings", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func TestAuthenticate(t *testing.T) {
	mw := NewJWTMiddleware(testSecret)
	handler := mw.Authenticate(protectedHandler(t, "user-1"))

	valid, err := IssueToken(testSecret, "user-1", nil, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, serve(handler, valid).Code)

	resp := serve(handler, "")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Contains(t, resp.Body.String(), `"type":"authentication"`)

	wrongKey, err := IssueToken("other-secret", "user-1", nil, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, serve(handler, wrongKey).Code)

	expired, err := IssueToken(testSecret, "user-1", nil, -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, serve(handler, expired).Code)

	noSubject, err := IssueToken(testSecret, "", nil, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, serve(handler, noSubject).Code)
}

func TestParseRejectsOtherAlgorithms(t *testing.T) {
	mw := NewJWTMiddleware(testSecret)
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = mw.Parse(token)
	assert.Error(t, err)
}

func TestParseRequiresExpiry(t *testing.T) {
	mw := NewJWTMiddleware(testSecret)
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = mw.Parse(token)
	assert.Error(t, err)
}
