// Package admin реализует проверку пароля администратора.
package admin

import "crypto/subtle"

// Пароль задан на этапе сборки и через конфигурацию не меняется.
const adminPassword = "admin123"

// Gate проверяет пароль администратора. Состояние доступа живёт в сессии,
// сам Gate состояния не хранит.
type Gate struct {
	password string
}

// NewGate возвращает Gate со встроенным паролем.
func NewGate() *Gate {
	return &Gate{password: adminPassword}
}

// Attempt сравнивает введённый пароль с эталонным. Количество попыток
// не ограничивается, попытки не журналируются.
func (g *Gate) Attempt(password string) bool {
	return subtle.ConstantTimeCompare([]byte(password), []byte(g.password)) == 1
}
