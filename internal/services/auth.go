package services

import (
	"context"
	"errors"
	"smartacademy/internal/logger"
	"smartacademy/internal/models"
	"smartacademy/internal/repository"
	"smartacademy/internal/utils"
	"strings"
	"time"

	"go.uber.org/zap"
)

type UserRepo interface {
	UserReader
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

type AuthService struct {
	repo      UserRepo
	jwtSecret string
	accessTTL time.Duration
}

func NewAuthService(repo UserRepo, jwtSecret string, accessTTL time.Duration) *AuthService {
	return &AuthService{repo: repo, jwtSecret: jwtSecret, accessTTL: accessTTL}
}

// dummyHash сравнивается при неизвестном email, чтобы время ответа не
// выдавало наличие учётной записи.
var dummyHash, _ = utils.HashPasswordWithCost("smart-academy-dummy-1", utils.DefaultBcryptCost)

func (s *AuthService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	log := logger.WithCtx(ctx)
	email = strings.TrimSpace(email)
	log.Info("Попытка входа (service)", zap.String("email_masked", utils.MaskEmail(email)))

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			log.Error("Ошибка получения пользователя при входе", zap.Error(err))
			return "", nil, err
		}
		utils.CheckPasswordHash(password, dummyHash)
		log.Warn("Пользователь не найден (service)", zap.String("email_masked", utils.MaskEmail(email)))
		return "", nil, ErrInvalidCredentials
	}

	if !utils.CheckPasswordHash(password, user.PasswordHash) {
		log.Warn("Неверный пароль (service)", zap.Int64("user_id", user.ID))
		return "", nil, ErrInvalidCredentials
	}

	access, err := utils.GenerateToken(s.jwtSecret, user.ID, user.Role, s.accessTTL)
	if err != nil {
		log.Error("Ошибка генерации access-токена", zap.Error(err))
		return "", nil, err
	}

	log.Info("Вход выполнен (service)", zap.Int64("user_id", user.ID))
	return access, user, nil
}
