// Точка входа Auth Admin — фасад администрирования пользователей Keycloak.
// Загружает конфигурацию, при заданном AA_DB_HOST подключает журнал операций
// к PostgreSQL (миграции + pgxpool), создаёт Keycloak Admin API клиент,
// политику администрирования, topologymetrics и HTTP-сервер
// с JWT middleware и graceful shutdown.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/authadmin/internal/api/handlers"
	"github.com/bigkaa/authadmin/internal/api/middleware"
	"github.com/bigkaa/authadmin/internal/config"
	"github.com/bigkaa/authadmin/internal/database"
	"github.com/bigkaa/authadmin/internal/keycloak"
	"github.com/bigkaa/authadmin/internal/repository"
	"github.com/bigkaa/authadmin/internal/server"
	"github.com/bigkaa/authadmin/internal/service"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Auth Admin запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("keycloak_url", cfg.KeycloakURL),
		slog.String("realm", cfg.KeycloakRealm),
	)

	if os.Getenv("AA_DEPHEALTH_GROUP") == "" {
		logger.Warn("AA_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}

	ctx := context.Background()

	// 3. Журнал операций: PostgreSQL (опционально)
	var (
		pool      *pgxpool.Pool
		pgDB      *sql.DB
		opLogRepo repository.OperationLogRepository
		pgChecker handlers.ReadinessChecker
	)
	if cfg.DatabaseEnabled() {
		logger.Info("Применение миграций БД...")
		if err := database.Migrate(cfg, logger); err != nil {
			logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
			os.Exit(1)
		}

		pool, err = database.Connect(ctx, cfg, logger)
		if err != nil {
			logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer pool.Close()

		// Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode)
		pgDB = stdlib.OpenDBFromPool(pool)
		defer pgDB.Close()

		opLogRepo = repository.NewOperationLogRepository(pool)
		pgChecker = database.NewReadinessChecker(pool)
	} else {
		logger.Info("AA_DB_HOST не задан, журнал операций пишется только в лог")
	}

	// 4. HTTP-клиент Keycloak (с кастомным CA или стандартный)
	kcHTTPClient := &http.Client{Timeout: cfg.KeycloakTimeout}
	if cfg.KeycloakCACertPath != "" {
		kcHTTPClient, err = middleware.HTTPClientWithCA(cfg.KeycloakCACertPath, cfg.KeycloakTimeout)
		if err != nil {
			logger.Error("Ошибка загрузки CA-сертификата",
				slog.String("path", cfg.KeycloakCACertPath),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
		logger.Info("CA-сертификат загружен", slog.String("path", cfg.KeycloakCACertPath))
	}

	// 5. Keycloak Admin API клиент
	kcClient := keycloak.New(
		cfg.KeycloakURL,
		cfg.KeycloakRealm,
		cfg.KeycloakClientID,
		cfg.KeycloakClientSecret,
		kcHTTPClient,
		logger,
		keycloak.WithTokenCache(cfg.KeycloakTokenCache),
	)
	logger.Info("Keycloak клиент создан",
		slog.String("client_id", cfg.KeycloakClientID),
		slog.Bool("token_cache", cfg.KeycloakTokenCache),
	)

	// 6. Сервисный слой
	journal := service.NewJournal(opLogRepo, logger)
	policySvc := service.NewAdminPolicyService(kcClient, journal, logger)

	// 7. API handlers
	healthHandler := handlers.NewHealthHandler(pgChecker, kcClient)
	apiHandler := handlers.NewAPIHandler(healthHandler, policySvc, journal, logger)

	// 8. JWT middleware
	jwtAuth, err := middleware.NewJWTAuth(
		cfg.JWTJWKSURL,
		cfg.KeycloakCACertPath,
		cfg.JWTIssuer,
		cfg.JWKSClientTimeout,
		cfg.JWKSRefreshInterval,
		cfg.JWTLeeway,
		logger,
	)
	if err != nil {
		logger.Error("Ошибка создания JWT middleware", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("JWT middleware инициализирован",
		slog.String("jwks_url", cfg.JWTJWKSURL),
		slog.String("issuer", cfg.JWTIssuer),
	)

	// 9. topologymetrics — мониторинг зависимостей (Keycloak + PostgreSQL)
	if cfg.KeycloakCACertPath != "" && !cfg.DephealthTLSSkipVerify {
		logger.Warn("Checker JWKS использует системные CA: с приватным CA задайте AA_DEPHEALTH_TLS_SKIP_VERIFY=true",
			slog.String("ca_cert_path", cfg.KeycloakCACertPath),
		)
	}
	dephealthSvc, dephealthErr := service.NewDephealthService(service.DephealthConfig{
		ServiceID:             "auth-admin",
		Group:                 cfg.DephealthGroup,
		KeycloakJWKSURL:       cfg.JWTJWKSURL,
		KeycloakTLSSkipVerify: cfg.DephealthTLSSkipVerify,
		DB:                    pgDB,
		PGConnURL:             cfg.DatabaseURL(),
		CheckInterval:         cfg.DephealthCheckInterval,
	}, logger)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
		dephealthSvc = nil
	} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
		logger.Warn("Ошибка запуска topologymetrics",
			slog.String("error", startErr.Error()),
		)
		dephealthSvc = nil
	} else {
		logger.Info("topologymetrics запущен",
			slog.String("group", cfg.DephealthGroup),
			slog.String("check_interval", cfg.DephealthCheckInterval.String()),
		)
	}

	// 10. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler, jwtAuth)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 11. Остановка фоновых задач
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	logger.Info("Auth Admin остановлен")
}
