// Пакет server — HTTP-сервер Auth Admin с graceful shutdown.
// Без TLS — HTTP внутри кластера, TLS termination на API Gateway.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/authadmin/internal/api/handlers"
	"github.com/bigkaa/authadmin/internal/api/middleware"
	"github.com/bigkaa/authadmin/internal/config"
)

// Server — HTTP-сервер Auth Admin.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// RouteRoles — роли вызывающего, необходимые для групп маршрутов.
type RouteRoles struct {
	// CreateUser — роли для POST /users (AA_ROLES_CREATE_USER)
	CreateUser []string
	// Manage — роли для остальных операций (AA_ROLES_MANAGE)
	Manage []string
}

// New создаёт HTTP-сервер с настроенными routes и middleware.
// jwtAuth — JWT middleware (может быть nil для тестирования без auth).
func New(cfg *config.Config, logger *slog.Logger, handler *handlers.APIHandler, jwtAuth *middleware.JWTAuth) *Server {
	var authMiddleware func(http.Handler) http.Handler
	if jwtAuth != nil {
		authMiddleware = jwtAuth.Middleware()
	}

	router := NewRouter(handler, authMiddleware, RouteRoles{
		CreateUser: cfg.RolesCreateUser,
		Manage:     cfg.RolesManage,
	}, logger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger.With(slog.String("component", "http_server")),
		cfg:        cfg,
	}
}

// NewRouter собирает chi router: глобальные middleware, публичные
// health/metrics и защищённые маршруты /api/auth.
// auth — middleware аутентификации; nil — без аутентификации.
func NewRouter(handler *handlers.APIHandler, auth func(http.Handler) http.Handler, roles RouteRoles, logger *slog.Logger) chi.Router {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	// JWT middleware с исключениями для публичных endpoints.
	// Health и metrics проверяются Kubernetes напрямую, без API Gateway.
	if auth != nil {
		router.Use(authWithExclusions(auth, "/health/", "/metrics"))
	}

	router.Get("/health/live", handler.HealthLive)
	router.Get("/health/ready", handler.HealthReady)
	router.Get("/metrics", handler.GetMetrics)

	router.Route("/api/auth", func(r chi.Router) {
		r.Get("/whoami", handler.Whoami)

		r.With(middleware.RequireRole(roles.CreateUser...)).Post("/users", handler.CreateUser)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(roles.Manage...))

			r.Get("/users", handler.ListUsers)
			r.Get("/users/{id}", handler.GetUser)
			r.Put("/users/{id}/password", handler.SetPassword)
			r.Put("/users/{id}/enabled", handler.SetEnabled)
			r.Post("/users/{id}/roles/realm", handler.AddRealmRoles)
			r.Delete("/users/{id}/roles/realm", handler.RemoveRealmRoles)
			r.Post("/users/{id}/logout", handler.Logout)
			r.Put("/users/{id}/groups/{groupName}", handler.AddToGroup)
			r.Delete("/users/{id}/groups/{groupName}", handler.RemoveFromGroup)
			r.Post("/users/{id}/promote-admin", handler.PromoteToAdmin)

			r.Get("/operations", handler.ListOperations)
			r.Get("/operations/{id}", handler.GetOperation)
		})
	})

	return router
}

// authWithExclusions оборачивает middleware аутентификации, пропуская указанные пути.
// Запросы к путям, начинающимся с любого из excludePrefixes, проходят без JWT.
func authWithExclusions(auth func(http.Handler) http.Handler, excludePrefixes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		protected := auth(next)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range excludePrefixes {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}

			protected.ServeHTTP(w, r)
		})
	}
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
