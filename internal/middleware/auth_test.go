package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestAuthMiddleware(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	var gotSubject interface{}
	handler := AuthMiddleware(secret, log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSubject = r.Context().Value(StaffKey)
		w.WriteHeader(http.StatusNoContent)
	}))

	exp := time.Now().Add(time.Hour).Unix()
	tests := []struct {
		name   string
		header string
		code   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer abc", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + sign(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"staff": true, "exp": exp}), http.StatusUnauthorized},
		{"not staff", "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{"sub": "7", "exp": exp}), http.StatusUnauthorized},
		{"expired", "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{"staff": true, "exp": time.Now().Add(-time.Hour).Unix()}), http.StatusUnauthorized},
		{"none alg", "Bearer " + sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, jwt.MapClaims{"staff": true}), http.StatusUnauthorized},
		{"staff", "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{"sub": "ops-1", "staff": true, "exp": exp}), http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotSubject = nil
			req := httptest.NewRequest(http.MethodGet, "/users", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.code, rec.Code)
			if tt.code == http.StatusUnauthorized {
				assert.Contains(t, rec.Body.String(), `"success":false`)
				assert.Nil(t, gotSubject)
			}
		})
	}
	assert.Equal(t, "ops-1", gotSubject)
}
