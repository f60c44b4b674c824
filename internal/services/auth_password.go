package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"smartacademy/internal/logger"
	"smartacademy/internal/metrics"
	"smartacademy/internal/models"
	"smartacademy/internal/repository"
	"smartacademy/internal/utils"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"
)

const (
	minPasswordLen = 8
	maxPasswordLen = 72 // предел bcrypt в байтах
)

// ResetNotifier — доставка писем. Ошибки доставки на результат запроса не влияют.
type ResetNotifier interface {
	SendPasswordReset(ctx context.Context, to, resetLink string) error
	SendPasswordChanged(ctx context.Context, to string, changedAt time.Time) error
}

type UserReader interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

type PasswordService struct {
	repo     repository.PasswordResetRepo
	users    UserReader
	notifier ResetNotifier
	appURL   string // фронтовый URL: https://example.com (ссылка вида /reset-password?token=...)
	tokenTTL time.Duration
	cost     int
	now      func() time.Time
}

type PasswordOption func(*PasswordService)

func WithResetTTL(ttl time.Duration) PasswordOption {
	return func(s *PasswordService) {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
	}
}

func WithBcryptCost(cost int) PasswordOption {
	return func(s *PasswordService) {
		if cost > 0 {
			s.cost = cost
		}
	}
}

// WithClock подменяет часы (тесты).
func WithClock(now func() time.Time) PasswordOption {
	return func(s *PasswordService) {
		if now != nil {
			s.now = now
		}
	}
}

func NewPasswordService(repo repository.PasswordResetRepo, users UserReader, notifier ResetNotifier, appURL string, opts ...PasswordOption) *PasswordService {
	s := &PasswordService{
		repo:     repo,
		users:    users,
		notifier: notifier,
		appURL:   strings.TrimRight(appURL, "/"),
		tokenTTL: time.Hour,
		cost:     utils.DefaultBcryptCost,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type ValidationResult struct {
	Valid  bool   `json:"valid"`
	UserID int64  `json:"-"`
	Reason string `json:"reason,omitempty"`
}

func invalidResult() ValidationResult {
	return ValidationResult{Valid: false, Reason: ErrInvalidToken.Error()}
}

// RequestReset выпускает одноразовый токен и ставит письмо со ссылкой в очередь.
// Для неизвестного e-mail возвращает nil — снаружи оба случая неотличимы.
// Ошибка возвращается только при сбое инфраструктуры и предназначена для логов.
func (s *PasswordService) RequestReset(ctx context.Context, email string, meta models.RequestMeta) error {
	log := logger.WithCtx(ctx)
	email = strings.TrimSpace(email)
	masked := utils.MaskEmail(email)
	log.Info("Запрос на сброс пароля", zap.String("email_masked", masked))

	userID, err := s.repo.FindUserIDByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		// Не раскрываем наличие почты пользователю, но логируем для нас
		log.Info("Сброс запрошен для неизвестного email", zap.String("email_masked", masked))
		metrics.ResetRequests.WithLabelValues("unknown_email").Inc()
		return nil
	}
	if err != nil {
		log.Error("Ошибка поиска пользователя при запросе сброса", zap.Error(err))
		metrics.ResetRequests.WithLabelValues("error").Inc()
		return fmt.Errorf("find user: %w", err)
	}

	token, tokenHash, err := utils.NewResetToken()
	if err != nil {
		log.Error("Ошибка генерации токена для сброса", zap.Error(err), zap.Int64("user_id", userID))
		metrics.ResetRequests.WithLabelValues("error").Inc()
		return fmt.Errorf("generate token: %w", err)
	}

	createdAt := s.now()
	rec := &models.PasswordResetToken{
		UserID:    userID,
		TokenHash: tokenHash,
		CreatedAt: createdAt,
		ExpiresAt: createdAt.Add(s.tokenTTL),
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	}
	if err := s.repo.IssueToken(ctx, rec); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// пользователь удалён между поиском и выпуском
			log.Info("Пользователь исчез до выпуска токена", zap.Int64("user_id", userID))
			metrics.ResetRequests.WithLabelValues("unknown_email").Inc()
			return nil
		}
		log.Error("Ошибка сохранения токена сброса пароля", zap.Int64("user_id", userID), zap.Error(err))
		metrics.ResetRequests.WithLabelValues("error").Inc()
		return fmt.Errorf("issue token: %w", err)
	}
	metrics.ResetRequests.WithLabelValues("issued").Inc()

	resetLink := fmt.Sprintf("%s/reset-password?token=%s", s.appURL, url.QueryEscape(token))
	log.Debug("Ссылка сброса пароля", zap.Int64("user_id", userID), zap.String("reset_link", resetLink))

	if err := s.notifier.SendPasswordReset(ctx, email, resetLink); err != nil {
		// Не фейлим намеренно: токен уже действителен, ссылка остаётся в логе
		log.Warn("Письмо сброса не поставлено в очередь, ссылка для оператора",
			zap.Int64("user_id", userID),
			zap.String("reset_link", resetLink),
			zap.Error(err),
		)
	}

	log.Info("Токен сброса выпущен",
		zap.Int64("user_id", userID),
		zap.Int64("token_id", rec.ID),
		zap.Time("expires_at", rec.ExpiresAt),
	)
	return nil
}

// ValidateToken: токен существует, не использован и now < expires_at.
// Причина отказа наружу всегда одна и та же.
func (s *PasswordService) ValidateToken(ctx context.Context, token string) (ValidationResult, error) {
	log := logger.WithCtx(ctx)
	token = strings.TrimSpace(token)
	if token == "" {
		metrics.ResetValidations.WithLabelValues("invalid").Inc()
		return invalidResult(), nil
	}

	rec, err := s.repo.FindByHash(ctx, utils.HashResetToken(token))
	if errors.Is(err, repository.ErrNotFound) {
		log.Info("Токен сброса не найден")
		metrics.ResetValidations.WithLabelValues("invalid").Inc()
		return invalidResult(), nil
	}
	if err != nil {
		log.Error("Ошибка поиска токена сброса", zap.Error(err))
		return ValidationResult{}, fmt.Errorf("find token: %w", err)
	}

	now := s.now()
	if !rec.Usable(now) {
		reason := "expired"
		if rec.IsUsed {
			reason = "used"
		}
		log.Info("Токен сброса недействителен",
			zap.String("reason", reason),
			zap.Int64("token_id", rec.ID),
			zap.Int64("user_id", rec.UserID),
		)
		metrics.ResetValidations.WithLabelValues("invalid").Inc()
		return invalidResult(), nil
	}

	metrics.ResetValidations.WithLabelValues("valid").Inc()
	return ValidationResult{Valid: true, UserID: rec.UserID}, nil
}

// ResetPassword проверяет токен заново и устанавливает новый пароль.
// Окончательная проверка выполняется в той же транзакции, что и запись.
func (s *PasswordService) ResetPassword(ctx context.Context, token, newPassword string) error {
	log := logger.WithCtx(ctx)
	log.Info("Попытка сброса пароля по токену")
	token = strings.TrimSpace(token)

	if err := ValidatePassword(newPassword); err != nil {
		log.Warn("Новый пароль не прошёл проверку", zap.Error(err))
		metrics.ResetCommits.WithLabelValues("bad_password").Inc()
		return err
	}

	res, err := s.ValidateToken(ctx, token)
	if err != nil {
		metrics.ResetCommits.WithLabelValues("error").Inc()
		return err
	}
	if !res.Valid {
		metrics.ResetCommits.WithLabelValues("invalid_token").Inc()
		return ErrInvalidToken
	}

	pwHash, err := utils.HashPasswordWithCost(newPassword, s.cost)
	if err != nil {
		log.Error("Ошибка генерации хеша пароля", zap.Error(err), zap.Int64("user_id", res.UserID))
		metrics.ResetCommits.WithLabelValues("error").Inc()
		return fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	rec, err := s.repo.CommitReset(ctx, utils.HashResetToken(token), pwHash, now)
	switch {
	case errors.Is(err, repository.ErrTokenUsed),
		errors.Is(err, repository.ErrTokenExpired),
		errors.Is(err, repository.ErrNotFound):
		// токен погашен между проверкой и записью
		log.Warn("Токен стал недействительным до фиксации", zap.Error(err), zap.Int64("user_id", res.UserID))
		metrics.ResetCommits.WithLabelValues("invalid_token").Inc()
		return ErrInvalidToken
	case err != nil:
		log.Error("Ошибка фиксации сброса пароля", zap.Error(err), zap.Int64("user_id", res.UserID))
		metrics.ResetCommits.WithLabelValues("error").Inc()
		return fmt.Errorf("commit reset: %w", err)
	}

	metrics.ResetCommits.WithLabelValues("success").Inc()
	log.Info("Пароль успешно сброшен", zap.Int64("user_id", rec.UserID))
	s.notifyChanged(ctx, rec.UserID, now)
	return nil
}

// ChangePassword меняет пароль авторизованного пользователя по старому паролю.
// Выданные ранее токены сброса при этом гасятся.
func (s *PasswordService) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error {
	log := logger.WithCtx(ctx)
	log.Info("Смена пароля (авторизованный пользователь)", zap.Int64("user_id", userID))

	if err := ValidatePassword(newPassword); err != nil {
		log.Warn("Новый пароль не прошёл проверку", zap.Int64("user_id", userID), zap.Error(err))
		return err
	}

	u, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		log.Warn("Пользователь не найден при смене пароля", zap.Int64("user_id", userID), zap.Error(err))
		return fmt.Errorf("get user: %w", err)
	}

	if !utils.CheckPasswordHash(oldPassword, u.PasswordHash) {
		log.Warn("Старый пароль не совпадает", zap.Int64("user_id", userID))
		return ErrOldPasswordInvalid
	}

	newHash, err := utils.HashPasswordWithCost(newPassword, s.cost)
	if err != nil {
		log.Error("Ошибка генерации нового хеша пароля", zap.Error(err), zap.Int64("user_id", userID))
		return fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	if err := s.repo.ReplacePassword(ctx, userID, newHash, now); err != nil {
		log.Error("Ошибка обновления пароля пользователя", zap.Int64("user_id", userID), zap.Error(err))
		return fmt.Errorf("replace password: %w", err)
	}

	log.Info("Пароль успешно изменён", zap.Int64("user_id", userID))
	if u.Email != "" {
		if err := s.notifier.SendPasswordChanged(ctx, u.Email, now); err != nil {
			log.Warn("Не удалось поставить уведомление о смене пароля", zap.Error(err))
		}
	}
	return nil
}

// PurgeExpired удаляет истёкшие и использованные токены.
func (s *PasswordService) PurgeExpired(ctx context.Context) (int64, error) {
	deleted, err := s.repo.PurgeExpired(ctx, s.now())
	if err != nil {
		logger.Log.Error("Ошибка очистки токенов сброса", zap.Error(err))
		return 0, err
	}
	metrics.TokensPurged.Add(float64(deleted))
	logger.Log.Info("Очистка токенов сброса", zap.Int64("deleted", deleted))
	return deleted, nil
}

func (s *PasswordService) notifyChanged(ctx context.Context, userID int64, at time.Time) {
	u, err := s.users.GetUserByID(ctx, userID)
	if err != nil || u.Email == "" {
		logger.WithCtx(ctx).Warn("Не удалось получить пользователя для уведомления", zap.Int64("user_id", userID), zap.Error(err))
		return
	}
	if err := s.notifier.SendPasswordChanged(ctx, u.Email, at); err != nil {
		logger.WithCtx(ctx).Warn("Не удалось поставить уведомление о смене пароля", zap.Error(err))
	}
}

// ValidatePassword — требования к новому паролю. Ошибки можно показывать клиенту.
func ValidatePassword(p string) error {
	if len([]rune(p)) < minPasswordLen {
		return ErrPasswordTooShort
	}
	if len(p) > maxPasswordLen {
		return ErrPasswordTooLong
	}
	var hasLetter, hasDigit bool
	for _, r := range p {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return ErrPasswordWeak
	}
	return nil
}
