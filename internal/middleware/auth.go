package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/mmeshcher/couponboard/internal/session"
)

type contextKey string

const sessionKey contextKey = "session"

// Auth извлекает сессию из cookie и ограничивает доступ к защищённым маршрутам.
type Auth struct {
	sessions *session.Store
}

// NewAuth создаёт middleware аутентификации поверх хранилища сессий.
func NewAuth(sessions *session.Store) *Auth {
	return &Auth{sessions: sessions}
}

// WithSession кладёт сессию запроса (если она есть) в контекст.
func (a *Auth) WithSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := a.sessions.Current(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), sessionKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireUser пропускает только запросы вошедшего пользователя.
func (a *Auth) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := SessionFromContext(r.Context())
		if !ok || sess.User == nil {
			deny(w, "Please log in to continue")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin пропускает только запросы с административной сессией.
func (a *Auth) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := SessionFromContext(r.Context())
		if !ok || !sess.Admin {
			deny(w, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// deny отвечает отказом в том же JSON-формате, что и остальные ошибки API.
func deny(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(struct {
		Message string `json:"message"`
	}{Message: message})
}

// SessionFromContext извлекает сессию из контекста запроса.
func SessionFromContext(ctx context.Context) (session.Session, bool) {
	sess, ok := ctx.Value(sessionKey).(session.Session)
	return sess, ok
}
