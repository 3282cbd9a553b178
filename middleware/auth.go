package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const AdminSubjectKey contextKey = "admin_subject"

// AdminAuth guards operator routes with an HS256 bearer token carrying
// role=admin. With an empty secret every request passes.
type AdminAuth struct {
	secret []byte
	logger *log.Logger
}

func NewAdminAuth(secret string, logger *log.Logger) *AdminAuth {
	if logger == nil {
		logger = log.Default()
	}
	if secret == "" {
		logger.Printf("Warning: ADMIN_JWT_SECRET is empty, admin endpoints are unauthenticated")
	}
	return &AdminAuth{secret: []byte(secret), logger: logger}
}

func (m *AdminAuth) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(m.secret) == 0 {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			writeJSON(w, http.StatusUnauthorized, `{"error": "unauthorized"}`)
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			return m.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			m.logger.Printf("Rejected admin token from %s: %v", GetClientIP(r.Context()), err)
			writeJSON(w, http.StatusUnauthorized, `{"error": "unauthorized"}`)
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, `{"error": "unauthorized"}`)
			return
		}
		if role, _ := claims["role"].(string); role != "admin" {
			writeJSON(w, http.StatusForbidden, `{"error": "forbidden"}`)
			return
		}

		subject, _ := claims.GetSubject()
		ctx := context.WithValue(r.Context(), AdminSubjectKey, subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetAdminSubject(ctx context.Context) string {
	if val, ok := ctx.Value(AdminSubjectKey).(string); ok {
		return val
	}
	return ""
}
