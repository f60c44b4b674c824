package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema — минимальная схема, нужная сервису сброса пароля.
// Таблица users принадлежит основному приложению, здесь создаётся только
// если её ещё нет (локальный запуск и интеграционные тесты).
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGSERIAL PRIMARY KEY,
		username      TEXT NOT NULL UNIQUE,
		full_name     TEXT NOT NULL DEFAULT '',
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role          TEXT NOT NULL DEFAULT 'student',
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS password_reset_tokens (
		id         BIGSERIAL PRIMARY KEY,
		user_id    BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		token_hash TEXT NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		expires_at TIMESTAMPTZ NOT NULL,
		is_used    BOOLEAN NOT NULL DEFAULT false,
		used_at    TIMESTAMPTZ,
		ip_address TEXT,
		user_agent TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_password_reset_tokens_user_unused
		ON password_reset_tokens (user_id) WHERE is_used = false`,
	`CREATE INDEX IF NOT EXISTS idx_password_reset_tokens_expires_at
		ON password_reset_tokens (expires_at)`,
}

func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
