package routes

import (
	"net/http"
	"smartacademy/internal/handlers"
	"smartacademy/internal/middleware"

	"github.com/gorilla/mux"
)

func InitRoutes(
	router *mux.Router,
	jwtSecret string,
	authHandler *handlers.AuthHandler,
	passwordHandler *handlers.PasswordHandler,
	healthHandler *handlers.HealthHandler,
	metricsHandler http.Handler,
) {
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Logging)

	router.HandleFunc("/health", healthHandler.Health).Methods(http.MethodGet)
	router.Handle("/metrics", metricsHandler).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()

	// --- Публичные маршруты ---
	api.HandleFunc("/login", authHandler.Login).Methods(http.MethodPost)
	api.HandleFunc("/password/forgot", passwordHandler.Forgot).Methods(http.MethodPost)
	api.HandleFunc("/password/reset/validate", passwordHandler.Validate).Methods(http.MethodGet)
	api.HandleFunc("/password/reset", passwordHandler.Reset).Methods(http.MethodPost)

	// --- Защищённые JWT ---
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.JWTAuth(jwtSecret))
	protected.HandleFunc("/password/change", passwordHandler.Change).Methods(http.MethodPost)
}
