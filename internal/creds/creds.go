// Package creds реализует преобразование пароля в дайджест и его проверку.
//
// Формат хранения — шестнадцатеричная строка SHA-256 от UTF-8 байтов пароля,
// без соли и без итераций. Формат зафиксирован для совместимости с уже
// сохранёнными дайджестами.
package creds

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Digest возвращает детерминированный дайджест пароля.
func Digest(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// Verify проверяет, что пароль соответствует сохранённому дайджесту.
func Verify(plaintext, storedDigest string) bool {
	computed := Digest(plaintext)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedDigest)) == 1
}
