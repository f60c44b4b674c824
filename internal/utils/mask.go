package utils

import (
	"strings"
	"unicode/utf8"
)

// MaskEmail оставляет первую букву локальной части и домен: a***@mail.ru
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return "***"
	}
	_, size := utf8.DecodeRuneInString(email)
	return email[:size] + "***" + email[at:]
}
