package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
)

// ResetTokenBytes — 256 бит случайности на токен.
const ResetTokenBytes = 32

// NewResetToken возвращает случайный токен (base64url без паддинга) и его хеш
// для хранения в базе. Сам токен в базу не попадает.
func NewResetToken() (token, hash string, err error) {
	raw := make([]byte, ResetTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", "", err
	}
	token = base64.RawURLEncoding.EncodeToString(raw)
	return token, HashResetToken(token), nil
}

func HashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
