// Package session реализует клиентскую сессию в подписанном cookie.
//
// Сервер не хранит сессии: профиль пользователя и флаг администратора
// сериализуются в cookie и подписываются HMAC-SHA256. Сервер доверяет
// содержимому cookie после проверки подписи.
package session

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/mmeshcher/couponboard/internal/model"
)

const (
	cookieName = "couponboard_session"
	userTTL    = 365 * 24 * time.Hour
)

// Session — содержимое клиентской сессии.
type Session struct {
	User  *model.UserPublic `json:"user,omitempty"`
	Admin bool              `json:"admin,omitempty"`
}

// Store кодирует, подписывает и читает сессионные cookie.
type Store struct {
	secretKey []byte
}

// NewStore создаёт хранилище сессий с указанным секретным ключом.
// Пустой секрет заменяется случайным: такие сессии не переживут перезапуск.
func NewStore(secret string) *Store {
	key := []byte(secret)
	if len(key) == 0 {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err == nil {
			key = randomKey
		} else {
			key = []byte("couponboard-fallback-key")
		}
	}

	return &Store{secretKey: key}
}

// Save записывает сессию в cookie ответа. Пользовательские сессии живут год,
// чисто административные — до закрытия браузера.
func (s *Store) Save(w http.ResponseWriter, sess Session) {
	payload, err := json.Marshal(sess)
	if err != nil {
		return
	}

	encoded := base64.RawURLEncoding.EncodeToString(payload)
	value := encoded + "." + s.sign(encoded)

	cookie := &http.Cookie{
		Name:     cookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if sess.User != nil && !sess.Admin {
		cookie.Expires = time.Now().Add(userTTL)
	}

	http.SetCookie(w, cookie)
}

// Current читает и проверяет сессию из запроса.
func (s *Store) Current(r *http.Request) (Session, bool) {
	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return Session{}, false
	}

	parts := strings.Split(cookie.Value, ".")
	if len(parts) != 2 {
		return Session{}, false
	}

	encoded, signature := parts[0], parts[1]
	if !hmac.Equal([]byte(signature), []byte(s.sign(encoded))) {
		return Session{}, false
	}

	payload, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return Session{}, false
	}

	var sess Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return Session{}, false
	}

	return sess, true
}

// Clear удаляет сессионный cookie.
func (s *Store) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Store) sign(payload string) string {
	mac := hmac.New(sha256.New, s.secretKey)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
