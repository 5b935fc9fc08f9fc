package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

type contextKey string

// StaffKey holds the authenticated staff subject in the request context
const StaffKey contextKey = "staff"

// AuthMiddleware accepts only bearer tokens signed with secret (HS256) that
// carry a true "staff" claim.
func AuthMiddleware(secret string, log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject, err := authenticate(r.Header.Get("Authorization"), secret)
			if err != nil {
				log.WithError(err).WithField("path", r.URL.Path).Debug("Rejected request")
				unauthorized(w, err.Error())
				return
			}
			ctx := context.WithValue(r.Context(), StaffKey, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(header, secret string) (string, error) {
	if header == "" {
		return "", fmt.Errorf("authorization header is missing")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", fmt.Errorf("invalid authorization header format")
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", fmt.Errorf("invalid token")
	}

	if staff, _ := claims["staff"].(bool); !staff {
		return "", fmt.Errorf("staff access required")
	}
	subject, _ := claims.GetSubject()
	return subject, nil
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": msg})
}
