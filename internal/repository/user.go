package repository

import (
	"context"
	"errors"
	"smartacademy/internal/logger"
	"smartacademy/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

const selectUser = `
	SELECT id, username, full_name, email, password_hash, role, created_at, updated_at
	FROM users`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.FullName, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	logger.Log.Info("Создание пользователя (repo)", zap.String("username", user.Username))
	query := `
	INSERT INTO users (username, full_name, email, password_hash, role)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		user.Username,
		user.FullName,
		user.Email,
		user.PasswordHash,
		user.Role,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

func (r *UserRepository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	logger.Log.Debug("Получение пользователя по ID (repo)", zap.Int64("user_id", id))
	u, err := scanUser(r.db.QueryRow(ctx, selectUser+` WHERE id = $1`, id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		logger.Log.Error("Ошибка получения пользователя по ID (repo)", zap.Int64("user_id", id), zap.Error(err))
	}
	return u, err
}

// GetUserByEmail ищет по точному совпадению, как адрес хранится в базе.
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, selectUser+` WHERE email = $1`, email))
	if err != nil && !errors.Is(err, ErrNotFound) {
		logger.Log.Error("Ошибка получения пользователя по email (repo)", zap.Error(err))
	}
	return u, err
}
