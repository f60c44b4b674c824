package models

import "time"

type PasswordResetToken struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	TokenHash string     `json:"-"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt time.Time  `json:"expires_at"`
	IsUsed    bool       `json:"is_used"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	IPAddress string     `json:"ip_address,omitempty"`
	UserAgent string     `json:"user_agent,omitempty"`
}

// Usable — токен не использован и ещё не истёк на момент now.
func (t *PasswordResetToken) Usable(now time.Time) bool {
	return t != nil && !t.IsUsed && now.Before(t.ExpiresAt)
}

// RequestMeta — данные запроса для аудита, на проверку токена не влияют.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}
