// users.go — обработчики /api/auth/users endpoints.
// Управление пользователями realm через AdminPolicyService.
// Права вызывающего проверяются middleware.RequireRole на уровне маршрутов.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	openapi_types "github.com/oapi-codegen/runtime/types"

	apierrors "github.com/bigkaa/authadmin/internal/api/errors"
	"github.com/bigkaa/authadmin/internal/domain/model"
	"github.com/bigkaa/authadmin/internal/service"
)

// createUserRequest — тело POST /users.
type createUserRequest struct {
	Username      string              `json:"username"`
	Email         openapi_types.Email `json:"email"`
	Password      string              `json:"password"` //nolint:gosec // G117: пароль передаётся в Keycloak
	EmailVerified *bool               `json:"emailVerified,omitempty"`
	Enabled       *bool               `json:"enabled,omitempty"`
}

// createUserResponse — ответ POST /users.
type createUserResponse struct {
	ID string `json:"id"`
}

// passwordRequest — тело PUT /users/{id}/password.
type passwordRequest struct {
	Password  string `json:"password"` //nolint:gosec // G117: пароль передаётся в Keycloak
	Temporary bool   `json:"temporary"`
}

// enabledRequest — тело PUT /users/{id}/enabled.
type enabledRequest struct {
	Enabled *bool `json:"enabled"`
}

// rolesRequest — тело POST/DELETE /users/{id}/roles/realm.
type rolesRequest struct {
	Roles []string `json:"roles"`
}

// userResponse — пользователь realm в ответе API.
type userResponse struct {
	ID            string               `json:"id"`
	Username      string               `json:"username"`
	Email         *openapi_types.Email `json:"email,omitempty"`
	FirstName     *string              `json:"firstName,omitempty"`
	LastName      *string              `json:"lastName,omitempty"`
	Enabled       bool                 `json:"enabled"`
	EmailVerified bool                 `json:"emailVerified"`
	RealmRoles    []string             `json:"realmRoles"`
	Attributes    map[string][]string  `json:"attributes,omitempty"`
	CreatedAt     *time.Time           `json:"createdAt,omitempty"`
}

// CreateUser — POST /api/auth/users.
// Создаёт пользователя с постоянным паролем. Ответ 201 {"id"}.
func (h *APIHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeBody(r, &req); err != nil {
		if errors.Is(err, openapi_types.ErrValidationEmail) {
			apierrors.ValidationError(w, "Некорректный email")
			return
		}
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	id, err := h.users.CreateUser(callerContext(r), model.CreateUserInput{
		Username:      req.Username,
		Email:         string(req.Email),
		Password:      req.Password,
		EmailVerified: req.EmailVerified,
		Enabled:       req.Enabled,
	})
	if err != nil {
		if id != "" {
			h.logger.Warn("Пользователь создан без пароля",
				slog.String("user_id", id),
				slog.String("username", req.Username),
			)
			w.Header().Set("Location", r.URL.Path+"/"+id)
		}
		h.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Location", r.URL.Path+"/"+id)
	writeJSON(w, http.StatusCreated, createUserResponse{ID: id})
}

// SetPassword — PUT /api/auth/users/{id}/password.
func (h *APIHandler) SetPassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.users.SetPassword(callerContext(r), chi.URLParam(r, "id"), model.PasswordInput{
		Password:  req.Password,
		Temporary: req.Temporary,
	})
	h.writeNoContent(w, r, err)
}

// ListUsers — GET /api/auth/users?q=&first=&max=.
// Тело ответа Keycloak передаётся без изменений.
func (h *APIHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	first, err := queryInt(r, "first")
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	maxResults, err := queryInt(r, "max")
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	raw, err := h.users.ListUsers(r.Context(), model.UserQuery{
		Search: r.URL.Query().Get("q"),
		First:  first,
		Max:    maxResults,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

// GetUser — GET /api/auth/users/{id}.
func (h *APIHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, mapUser(user))
}

// SetEnabled — PUT /api/auth/users/{id}/enabled.
// Отключение завершает сессии пользователя.
func (h *APIHandler) SetEnabled(w http.ResponseWriter, r *http.Request) {
	var req enabledRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	h.writeNoContent(w, r, h.users.SetEnabled(callerContext(r), chi.URLParam(r, "id"), req.Enabled))
}

// AddRealmRoles — POST /api/auth/users/{id}/roles/realm.
func (h *APIHandler) AddRealmRoles(w http.ResponseWriter, r *http.Request) {
	var req rolesRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	h.writeNoContent(w, r, h.users.AddRealmRoles(callerContext(r), chi.URLParam(r, "id"), req.Roles))
}

// RemoveRealmRoles — DELETE /api/auth/users/{id}/roles/realm.
func (h *APIHandler) RemoveRealmRoles(w http.ResponseWriter, r *http.Request) {
	var req rolesRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	h.writeNoContent(w, r, h.users.RemoveRealmRoles(callerContext(r), chi.URLParam(r, "id"), req.Roles))
}

// Logout — POST /api/auth/users/{id}/logout.
func (h *APIHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.writeNoContent(w, r, h.users.Logout(callerContext(r), chi.URLParam(r, "id")))
}

// AddToGroup — PUT /api/auth/users/{id}/groups/{groupName}.
func (h *APIHandler) AddToGroup(w http.ResponseWriter, r *http.Request) {
	h.writeNoContent(w, r, h.users.AddToGroup(callerContext(r), chi.URLParam(r, "id"), chi.URLParam(r, "groupName")))
}

// RemoveFromGroup — DELETE /api/auth/users/{id}/groups/{groupName}.
func (h *APIHandler) RemoveFromGroup(w http.ResponseWriter, r *http.Request) {
	h.writeNoContent(w, r, h.users.RemoveFromGroup(callerContext(r), chi.URLParam(r, "id"), chi.URLParam(r, "groupName")))
}

// PromoteToAdmin — POST /api/auth/users/{id}/promote-admin.
// Действующий администратор — 409.
func (h *APIHandler) PromoteToAdmin(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	report, err := h.users.PromoteToAdmin(callerContext(r), userID)
	if err != nil {
		if errors.Is(err, service.ErrAlreadyAdmin) {
			apierrors.Conflict(w, "Пользователь уже администратор")
			return
		}
		h.writeServiceError(w, r, err)
		return
	}

	h.logger.Info("Пользователь повышен до администратора",
		slog.String("user_id", userID),
		slog.Any("steps", report.Steps),
	)
	w.WriteHeader(http.StatusNoContent)
}

// writeNoContent отвечает 204 или ошибкой сервиса.
func (h *APIHandler) writeNoContent(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Маппинг domain → API ---

// mapUser конвертирует domain model в ответ API.
func mapUser(u *model.User) userResponse {
	result := userResponse{
		ID:            u.ID,
		Username:      u.Username,
		Enabled:       u.Enabled,
		EmailVerified: u.EmailVerified,
		RealmRoles:    u.RealmRoles,
		Attributes:    u.Attributes,
	}

	if result.RealmRoles == nil {
		result.RealmRoles = []string{}
	}

	if u.Email != "" {
		email := openapi_types.Email(u.Email)
		result.Email = &email
	}

	if u.FirstName != "" {
		result.FirstName = &u.FirstName
	}

	if u.LastName != "" {
		result.LastName = &u.LastName
	}

	if u.CreatedAt.UnixMilli() > 0 {
		createdAt := u.CreatedAt.UTC()
		result.CreatedAt = &createdAt
	}

	return result
}
