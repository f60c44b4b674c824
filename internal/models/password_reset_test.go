package models

import (
	"testing"
	"time"
)

func TestPasswordResetTokenUsable(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tok := &PasswordResetToken{ExpiresAt: now.Add(time.Hour)}
	if !tok.Usable(now) {
		t.Fatal("свежий токен должен быть действителен")
	}
	if tok.Usable(now.Add(time.Hour)) {
		t.Fatal("токен в момент истечения недействителен")
	}
	if tok.Usable(now.Add(time.Hour + time.Second)) {
		t.Fatal("токен через секунду после истечения недействителен")
	}

	tok.IsUsed = true
	if tok.Usable(now) {
		t.Fatal("использованный токен недействителен")
	}

	var missing *PasswordResetToken
	if missing.Usable(now) {
		t.Fatal("nil-токен недействителен")
	}
}
