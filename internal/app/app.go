package app

import (
	"context"
	"smartacademy/internal/config"
	"smartacademy/internal/db"
	"smartacademy/internal/handlers"
	"smartacademy/internal/logger"
	"smartacademy/internal/metrics"
	"smartacademy/internal/middleware"
	"smartacademy/internal/repository"
	"smartacademy/internal/routes"
	"smartacademy/internal/services"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type App struct {
	Router *mux.Router

	pool     *pgxpool.Pool
	redis    *redis.Client
	mailer   *services.Mailer
	cleaner  *ResetTokenCleaner
	password *handlers.PasswordHandler
}

func InitApp(ctx context.Context, cfg *config.Config) (*App, error) {
	conn, err := db.NewPostgresConnection(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Log.Info("Подключение к БД установлено", zap.String("dsn", cfg.GetDSNSafe()))

	if err := db.EnsureSchema(ctx, conn); err != nil {
		conn.Close()
		return nil, err
	}

	a := &App{pool: conn}

	// Репозитории
	userRepo := repository.NewUserRepository(conn)
	resetRepo := repository.NewPasswordResetRepository(conn)

	// Почта: очередь с воркерами, запрос не ждёт SMTP
	emailService := services.NewEmailService(cfg)
	a.mailer = services.NewMailer(emailService, 100, cfg.ResetTokenTTL())
	a.mailer.Start(cfg.Workers())

	// Сервисы
	authService := services.NewAuthService(userRepo, cfg.JWTSecret, cfg.AccessTTL())
	passwordService := services.NewPasswordService(resetRepo, userRepo, a.mailer, cfg.FrontendURL,
		services.WithResetTTL(cfg.ResetTokenTTL()),
		services.WithBcryptCost(cfg.Cost()),
	)

	var limiter middleware.RateLimiter = middleware.NoopLimiter{}
	if cfg.RedisAddr != "" {
		a.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		limiter = middleware.NewRedisWindowLimiter(a.redis, "pwreset", cfg.RateLimit(), cfg.RateWindow())
	}

	// Метрики
	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		_ = a.Close()
		return nil, err
	}

	// Хендлеры
	authHandler := handlers.NewAuthHandler(authService)
	proxies, err := handlers.ParseTrustedProxies(cfg.Proxies())
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	passwordHandler := handlers.NewPasswordHandler(passwordService, limiter, handlers.WithTrustedProxies(proxies))
	a.password = passwordHandler
	healthHandler := handlers.NewHealthHandler(conn)

	// ▶️ Периодическая чистка токенов сброса (и один прогон сразу)
	a.cleaner = NewResetTokenCleaner(passwordService, cfg.PasswordResetCleanupSpec)
	_, _ = a.cleaner.RunOnce(ctx)
	if err := a.cleaner.Start(); err != nil {
		_ = a.Close()
		return nil, err
	}

	// Маршруты
	a.Router = mux.NewRouter()
	routes.InitRoutes(a.Router, cfg.JWTSecret, authHandler, passwordHandler, healthHandler, metrics.Handler(prometheus.DefaultGatherer))

	return a, nil
}

// Close останавливает фоновые задачи и освобождает соединения.
func (a *App) Close() error {
	var errs error
	if a.password != nil {
		// выпуски токенов ставят письма в очередь, поэтому раньше mailer
		a.password.Wait()
	}
	if a.cleaner != nil {
		a.cleaner.Stop()
	}
	if a.mailer != nil {
		a.mailer.Close()
	}
	if a.redis != nil {
		errs = multierr.Append(errs, a.redis.Close())
	}
	if a.pool != nil {
		a.pool.Close()
	}
	return errs
}
