package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signWith(t *testing.T, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(method, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func runMiddleware(token string) (*httptest.ResponseRecorder, string) {
	var seenUserID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenUserID = UserID(r.Context())
	})

	r := httptest.NewRequest(http.MethodGet, "/api/files", nil)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	JWTMiddleware(testSecret)(next).ServeHTTP(w, r)
	return w, seenUserID
}

func TestJWTMiddleware(t *testing.T) {
	validClaims := jwt.MapClaims{
		"user_id": "user-1",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}

	t.Run("valid token attaches the user id", func(t *testing.T) {
		w, userID := runMiddleware(signWith(t, jwt.SigningMethodHS256, validClaims))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "user-1", userID)
	})

	t.Run("missing header is rejected", func(t *testing.T) {
		w, userID := runMiddleware("")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Empty(t, userID)
	})

	t.Run("garbage token is rejected", func(t *testing.T) {
		w, userID := runMiddleware("not.a.jwt")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Empty(t, userID)
	})

	t.Run("wrong secret is rejected", func(t *testing.T) {
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims).SignedString([]byte("other-secret"))
		require.NoError(t, err)

		w, userID := runMiddleware(signed)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Empty(t, userID)
	})

	t.Run("only HS256 is accepted", func(t *testing.T) {
		w, userID := runMiddleware(signWith(t, jwt.SigningMethodHS384, validClaims))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Empty(t, userID)
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		w, userID := runMiddleware(signWith(t, jwt.SigningMethodHS256, jwt.MapClaims{
			"user_id": "user-1",
			"exp":     time.Now().Add(-time.Hour).Unix(),
		}))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Empty(t, userID)
	})

	t.Run("token without a user id claim is rejected", func(t *testing.T) {
		w, userID := runMiddleware(signWith(t, jwt.SigningMethodHS256, jwt.MapClaims{
			"exp": time.Now().Add(time.Hour).Unix(),
		}))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Empty(t, userID)
	})
}
