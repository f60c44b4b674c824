package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"smartacademy/internal/logger"
	"smartacademy/internal/middleware"
	"smartacademy/internal/models"
	"smartacademy/internal/repository"
	"smartacademy/internal/services"
	"smartacademy/internal/utils"
	helpers "smartacademy/internal/utils/helpers"

	"go.uber.org/zap"
)

// forgotMessage — одинаковый ответ для любого e-mail.
const forgotMessage = "If the email exists, a reset link has been sent."

type passwordService interface {
	RequestReset(ctx context.Context, email string, meta models.RequestMeta) error
	ValidateToken(ctx context.Context, token string) (services.ValidationResult, error)
	ResetPassword(ctx context.Context, token, newPassword string) error
	ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error
}

type PasswordHandler struct {
	svc          passwordService
	limiter      middleware.RateLimiter
	proxies      []netip.Prefix
	issueTimeout time.Duration

	wg sync.WaitGroup
}

type PasswordHandlerOption func(*PasswordHandler)

// WithTrustedProxies — адреса прокси, которым разрешено передавать X-Forwarded-For.
func WithTrustedProxies(proxies []netip.Prefix) PasswordHandlerOption {
	return func(h *PasswordHandler) { h.proxies = proxies }
}

// WithIssueTimeout ограничивает фоновый выпуск токена.
func WithIssueTimeout(d time.Duration) PasswordHandlerOption {
	return func(h *PasswordHandler) {
		if d > 0 {
			h.issueTimeout = d
		}
	}
}

func NewPasswordHandler(svc passwordService, limiter middleware.RateLimiter, opts ...PasswordHandlerOption) *PasswordHandler {
	if limiter == nil {
		limiter = middleware.NoopLimiter{}
	}
	h := &PasswordHandler{svc: svc, limiter: limiter, issueTimeout: 30 * time.Second}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Wait ждёт фоновые выпуски токенов. Вызывается после остановки HTTP-сервера.
func (h *PasswordHandler) Wait() {
	h.wg.Wait()
}

type forgotReq struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

// Forgot godoc
// @Summary Запрос восстановления пароля
// @Description Отправляет письмо со ссылкой для сброса пароля. Ответ всегда одинаковый, даже если e-mail не найден.
// @Tags password
// @Accept json
// @Produce json
// @Param input body forgotReq true "Email пользователя"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Router /api/password/forgot [post]
func (h *PasswordHandler) Forgot(w http.ResponseWriter, r *http.Request) {
	log := logger.WithCtx(r.Context())

	var req forgotReq
	if err := decodeAndValidate(w, r, &req); err != nil {
		log.Warn("Невалидный payload в Forgot", zap.Error(err))
		helpers.Error(w, http.StatusBadRequest, "invalid payload")
		return
	}
	email := strings.TrimSpace(req.Email)
	masked := utils.MaskEmail(email)

	ip := clientIP(r, h.proxies)

	if !h.allow(r.Context(), "ip:"+ip) || !h.allow(r.Context(), "email:"+email) {
		// Лимит не должен превращаться в оракул: отвечаем как обычно
		log.Warn("Превышен лимит запросов сброса", zap.String("email_masked", masked), zap.String("ip", ip))
		helpers.JSON(w, http.StatusOK, map[string]string{"message": forgotMessage})
		return
	}

	// Ответ уходит до поиска пользователя: время ответа не зависит от наличия аккаунта
	h.issueAsync(r.Context(), email, models.RequestMeta{IPAddress: ip, UserAgent: r.UserAgent()})

	helpers.JSON(w, http.StatusOK, map[string]string{"message": forgotMessage})
}

func (h *PasswordHandler) issueAsync(reqCtx context.Context, email string, meta models.RequestMeta) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(reqCtx), h.issueTimeout)
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer cancel()
		log := logger.WithCtx(ctx)
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("Паника при выпуске токена сброса", zap.Any("panic", rec))
			}
		}()

		if err := h.svc.RequestReset(ctx, email, meta); err != nil {
			// Клиент уже получил одинаковый ответ, ошибка только для нас
			log.Error("Сбой при запросе восстановления пароля", zap.String("email_masked", utils.MaskEmail(email)), zap.Error(err))
		}
	}()
}

func (h *PasswordHandler) allow(ctx context.Context, key string) bool {
	ok, err := h.limiter.Allow(ctx, key)
	if err != nil {
		logger.WithCtx(ctx).Warn("Лимитер недоступен, пропускаем запрос", zap.Error(err))
	}
	return ok
}

// Validate godoc
// @Summary Проверка токена сброса
// @Description Проверяет, можно ли использовать токен из письма. Причина отказа всегда общая.
// @Tags password
// @Produce json
// @Param token query string true "Токен сброса"
// @Success 200 {object} services.ValidationResult
// @Failure 500 {object} map[string]string
// @Router /api/password/reset/validate [get]
func (h *PasswordHandler) Validate(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ValidateToken(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		logger.WithCtx(r.Context()).Error("Сбой проверки токена сброса", zap.Error(err))
		helpers.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	helpers.JSON(w, http.StatusOK, res)
}

type resetReq struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

// Reset godoc
// @Summary Сброс пароля по токену
// @Description Устанавливает новый пароль по токену из письма. Токен одноразовый.
// @Tags password
// @Accept json
// @Produce json
// @Param input body resetReq true "Токен и новый пароль"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/password/reset [post]
func (h *PasswordHandler) Reset(w http.ResponseWriter, r *http.Request) {
	log := logger.WithCtx(r.Context())

	var req resetReq
	if err := decodeAndValidate(w, r, &req); err != nil {
		log.Warn("Невалидный payload в Reset", zap.Error(err))
		helpers.Error(w, http.StatusBadRequest, "invalid payload")
		return
	}

	if err := h.svc.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		status, msg := passwordErrorResponse(err)
		log.Warn("Не удалось сбросить пароль по токену", zap.Error(err))
		helpers.Error(w, status, msg)
		return
	}

	log.Info("Пароль успешно сброшен")
	helpers.JSON(w, http.StatusOK, map[string]string{"message": "Password has been reset."})
}

type changeReq struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

// Change godoc
// @Summary Смена пароля (авторизованный пользователь)
// @Description Смена пароля по старому паролю. Требуется JWT-токен. Выданные токены сброса гасятся.
// @Tags password
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param input body changeReq true "Старый и новый пароль"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /api/password/change [post]
func (h *PasswordHandler) Change(w http.ResponseWriter, r *http.Request) {
	log := logger.WithCtx(r.Context())

	userID, ok := middleware.UserIDFromContext(r)
	if !ok || userID == 0 {
		log.Warn("Нет доступа для Change: отсутствует user_id")
		helpers.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req changeReq
	if err := decodeAndValidate(w, r, &req); err != nil {
		log.Warn("Невалидный payload в Change", zap.Error(err))
		helpers.Error(w, http.StatusBadRequest, "invalid payload")
		return
	}

	if err := h.svc.ChangePassword(r.Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		status, msg := passwordErrorResponse(err)
		log.Warn("Не удалось сменить пароль", zap.Error(err))
		helpers.Error(w, status, msg)
		return
	}

	log.Info("Пароль изменён")
	helpers.JSON(w, http.StatusOK, map[string]string{"message": "Password changed."})
}

// passwordErrorResponse: ошибки политики пароля отдаём как есть,
// токен — общей фразой, инфраструктуру — 500.
func passwordErrorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrPasswordTooShort),
		errors.Is(err, services.ErrPasswordTooLong),
		errors.Is(err, services.ErrPasswordWeak),
		errors.Is(err, services.ErrOldPasswordInvalid):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, services.ErrInvalidToken):
		return http.StatusBadRequest, services.ErrInvalidToken.Error()
	case errors.Is(err, repository.ErrNotFound):
		// пользователь из токена доступа удалён
		return http.StatusUnauthorized, "unauthorized"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
