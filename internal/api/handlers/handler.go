// handler.go — основной обработчик API Auth Admin.
// Объединяет доменные обработчики и делегирует запросы в сервисный слой.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	apierrors "github.com/bigkaa/authadmin/internal/api/errors"
	"github.com/bigkaa/authadmin/internal/api/middleware"
	"github.com/bigkaa/authadmin/internal/domain/model"
	"github.com/bigkaa/authadmin/internal/keycloak"
	"github.com/bigkaa/authadmin/internal/service"
)

// PolicyService — операции над пользователями realm.
// Реализуется *service.AdminPolicyService.
type PolicyService interface {
	CreateUser(ctx context.Context, in model.CreateUserInput) (string, error)
	SetPassword(ctx context.Context, userID string, in model.PasswordInput) error
	ListUsers(ctx context.Context, q model.UserQuery) (json.RawMessage, error)
	GetUser(ctx context.Context, userID string) (*model.User, error)
	SetEnabled(ctx context.Context, userID string, enabled *bool) error
	AddRealmRoles(ctx context.Context, userID string, roles []string) error
	RemoveRealmRoles(ctx context.Context, userID string, roles []string) error
	Logout(ctx context.Context, userID string) error
	AddToGroup(ctx context.Context, userID, groupName string) error
	RemoveFromGroup(ctx context.Context, userID, groupName string) error
	PromoteToAdmin(ctx context.Context, userID string) (*model.OperationReport, error)
}

// OperationJournal — чтение журнала операций.
// Реализуется *service.Journal.
type OperationJournal interface {
	List(ctx context.Context, f model.OperationFilter) ([]*model.OperationLogEntry, int, error)
	Get(ctx context.Context, id string) (*model.OperationLogEntry, error)
}

// APIHandler — основной обработчик API Auth Admin.
type APIHandler struct {
	health  *HealthHandler
	users   PolicyService
	journal OperationJournal
	logger  *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(health *HealthHandler, users PolicyService, journal OperationJournal, logger *slog.Logger) *APIHandler {
	return &APIHandler{
		health:  health,
		users:   users,
		journal: journal,
		logger:  logger.With(slog.String("component", "api_handler")),
	}
}

// HealthLive — liveness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики (делегируется в HealthHandler).
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// decodeBody разбирает JSON-тело запроса.
func decodeBody(r *http.Request, target any) error {
	return json.NewDecoder(r.Body).Decode(target)
}

// decodeJSON разбирает тело запроса. При ошибке отвечает 400.
func decodeJSON(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := decodeBody(r, target); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return false
	}
	return true
}

// callerContext переносит вызывающего из JWT claims в контекст сервиса.
func callerContext(r *http.Request) context.Context {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		return r.Context()
	}
	return service.WithCaller(r.Context(), model.Caller{
		Subject:  claims.Subject,
		Username: claims.PreferredUsername,
		Email:    claims.Email,
		Roles:    claims.Roles,
	})
}

// queryInt разбирает необязательный целочисленный query-параметр.
// Отсутствующий параметр — nil.
func queryInt(r *http.Request, name string) (*int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return nil, errors.New("параметр " + name + " должен быть неотрицательным целым числом")
	}
	return &v, nil
}

// paginationDefaults нормализует параметры пагинации.
// Возвращает корректные limit и offset.
func paginationDefaults(limit *int, offset *int) (int, int) {
	l := 100
	o := 0

	if limit != nil {
		l = *limit
		if l < 1 {
			l = 1
		}
		if l > 1000 {
			l = 1000
		}
	}

	if offset != nil {
		o = *offset
		if o < 0 {
			o = 0
		}
	}

	return l, o
}

// writeServiceError переводит ошибку сервисного слоя в HTTP-ответ.
// Ошибки Keycloak и внутренние ошибки логируются с контекстом запроса.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		stepErr *service.StepError
		apiErr  *keycloak.APIError
	)

	switch {
	case errors.As(err, &stepErr):
		h.logger.Error("Операция выполнена частично",
			slog.String("path", r.URL.Path),
			slog.String("user_id", stepErr.UserID),
			slog.String("error", err.Error()),
		)
		apierrors.PartialFailure(w, err.Error(), stepErr.UserID, stepErr.Completed, stepErr.Step)
	case errors.Is(err, service.ErrValidation):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, service.ErrForbidden):
		apierrors.Forbidden(w, err.Error())
	case errors.Is(err, service.ErrConflict):
		apierrors.Conflict(w, err.Error())
	case errors.Is(err, service.ErrJournalDisabled):
		apierrors.JournalDisabled(w, err.Error())
	case errors.Is(err, service.ErrNotFound), errors.Is(err, keycloak.ErrNotFound):
		apierrors.NotFound(w, err.Error())
	case errors.Is(err, keycloak.ErrTokenUnavailable):
		h.logger.Error("Keycloak недоступен",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		apierrors.IDPUnavailable(w, "Не удалось получить admin token Keycloak")
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict:
		apierrors.Conflict(w, err.Error())
	case errors.As(err, &apiErr):
		h.logger.Error("Ошибка Keycloak Admin API",
			slog.String("path", r.URL.Path),
			slog.String("op", apiErr.Op),
			slog.Int("status", apiErr.StatusCode),
			slog.String("error", err.Error()),
		)
		apierrors.UpstreamError(w, err.Error())
	default:
		h.logger.Error("Внутренняя ошибка",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Внутренняя ошибка сервиса")
	}
}
