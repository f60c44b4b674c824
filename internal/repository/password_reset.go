package repository

import (
	"context"
	"errors"
	"smartacademy/internal/logger"
	"smartacademy/internal/models"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type PasswordResetRepository struct {
	db *pgxpool.Pool
}

func NewPasswordResetRepository(db *pgxpool.Pool) *PasswordResetRepository {
	return &PasswordResetRepository{db: db}
}

type PasswordResetRepo interface {
	FindUserIDByEmail(ctx context.Context, email string) (int64, error)
	IssueToken(ctx context.Context, t *models.PasswordResetToken) error
	FindByHash(ctx context.Context, tokenHash string) (*models.PasswordResetToken, error)
	CommitReset(ctx context.Context, tokenHash, passwordHash string, now time.Time) (*models.PasswordResetToken, error)
	ReplacePassword(ctx context.Context, userID int64, passwordHash string, now time.Time) error
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

const selectToken = `
	SELECT id, user_id, token_hash, created_at, expires_at, is_used, used_at,
	       COALESCE(ip_address, ''), COALESCE(user_agent, '')
	FROM password_reset_tokens`

func scanToken(row pgx.Row) (*models.PasswordResetToken, error) {
	var t models.PasswordResetToken
	err := row.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.CreatedAt, &t.ExpiresAt, &t.IsUsed, &t.UsedAt, &t.IPAddress, &t.UserAgent)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *PasswordResetRepository) FindUserIDByEmail(ctx context.Context, email string) (int64, error) {
	var userID int64
	err := r.db.QueryRow(ctx, `SELECT id FROM users WHERE email = $1 LIMIT 1`, email).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	return userID, err
}

// IssueToken в одной транзакции гасит все неиспользованные токены пользователя
// и вставляет новый. Строка пользователя блокируется FOR UPDATE, поэтому
// параллельные запросы сброса для одного пользователя выполняются по очереди
// и активным остаётся только токен последней закоммиченной транзакции.
func (r *PasswordResetRepository) IssueToken(ctx context.Context, t *models.PasswordResetToken) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var locked int64
	if err := tx.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, t.UserID).Scan(&locked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE password_reset_tokens
		SET is_used = true, used_at = $2
		WHERE user_id = $1 AND is_used = false
	`, t.UserID, t.CreatedAt)
	if err != nil {
		logger.Log.Error("Не удалось погасить старые токены сброса", zap.Error(err), zap.Int64("user_id", t.UserID))
		return err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO password_reset_tokens (user_id, token_hash, created_at, expires_at, is_used, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, false, NULLIF($5, ''), NULLIF($6, ''))
		RETURNING id
	`, t.UserID, t.TokenHash, t.CreatedAt, t.ExpiresAt, t.IPAddress, t.UserAgent).Scan(&t.ID)
	if err != nil {
		logger.Log.Error("Create reset token failed", zap.Error(err), zap.Int64("user_id", t.UserID))
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	logger.Log.Debug("Токен сброса выпущен (repo)",
		zap.Int64("user_id", t.UserID),
		zap.Int64("token_id", t.ID),
		zap.Int64("superseded", tag.RowsAffected()),
	)
	return nil
}

func (r *PasswordResetRepository) FindByHash(ctx context.Context, tokenHash string) (*models.PasswordResetToken, error) {
	return scanToken(r.db.QueryRow(ctx, selectToken+` WHERE token_hash = $1`, tokenHash))
}

// CommitReset повторно проверяет токен под блокировкой строки и в той же
// транзакции меняет хеш пароля, гасит предъявленный токен и все его «соседние».
func (r *PasswordResetRepository) CommitReset(ctx context.Context, tokenHash, passwordHash string, now time.Time) (*models.PasswordResetToken, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rec, err := scanToken(tx.QueryRow(ctx, selectToken+` WHERE token_hash = $1 FOR UPDATE`, tokenHash))
	if err != nil {
		return nil, err
	}
	if rec.IsUsed {
		return nil, ErrTokenUsed
	}
	if !now.Before(rec.ExpiresAt) {
		return nil, ErrTokenExpired
	}

	tag, err := tx.Exec(ctx, `UPDATE users SET password_hash = $1, updated_at = $3 WHERE id = $2`, passwordHash, rec.UserID, now)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}

	if _, err := tx.Exec(ctx, `UPDATE password_reset_tokens SET is_used = true, used_at = $2 WHERE id = $1`, rec.ID, now); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE password_reset_tokens
		SET is_used = true, used_at = $2
		WHERE user_id = $1 AND is_used = false
	`, rec.UserID, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	rec.IsUsed = true
	rec.UsedAt = &now
	return rec, nil
}

// ReplacePassword — смена пароля авторизованным пользователем. Заодно гасит
// все выданные ему токены сброса.
func (r *PasswordResetRepository) ReplacePassword(ctx context.Context, userID int64, passwordHash string, now time.Time) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `UPDATE users SET password_hash = $1, updated_at = $3 WHERE id = $2`, passwordHash, userID, now)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if _, err := tx.Exec(ctx, `
		UPDATE password_reset_tokens
		SET is_used = true, used_at = $2
		WHERE user_id = $1 AND is_used = false
	`, userID, now); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// PurgeExpired удаляет только то, что уже не может пройти проверку:
// истёкшие или использованные токены.
func (r *PasswordResetRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM password_reset_tokens WHERE expires_at < $1 OR is_used = true`, now)
	if err != nil {
		logger.Log.Error("Ошибка очистки токенов сброса (repo)", zap.Error(err))
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// CountActive — сколько у пользователя токенов, проходящих проверку на момент now.
func (r *PasswordResetRepository) CountActive(ctx context.Context, userID int64, now time.Time) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `
		SELECT count(*) FROM password_reset_tokens
		WHERE user_id = $1 AND is_used = false AND expires_at > $2
	`, userID, now).Scan(&n)
	return n, err
}
