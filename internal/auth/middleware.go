package auth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const SubjectKey contextKey = "subject"

// AuthMiddleware requires a bearer token when authentication is enabled.
func (s *Service) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing authorization header"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid authorization format"})
			return
		}

		subject, err := s.ValidateToken(parts[1])
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			return
		}

		ctx := context.WithValue(r.Context(), SubjectKey, subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Authorize checks a token passed out of band, such as the websocket token
// query parameter. It accepts anything when authentication is disabled.
func (s *Service) Authorize(token string) (string, error) {
	if !s.Enabled() {
		return OperatorSubject, nil
	}
	if token == "" {
		return "", ErrInvalidToken
	}
	return s.ValidateToken(token)
}

func SubjectFromContext(ctx context.Context) string {
	subject, _ := ctx.Value(SubjectKey).(string)
	return subject
}
