// admin_auth.go — обработчик /api/auth/whoami.
// Возвращает вызывающего из JWT claims без обращения к Keycloak.
package handlers

import (
	"net/http"

	openapi_types "github.com/oapi-codegen/runtime/types"

	apierrors "github.com/bigkaa/authadmin/internal/api/errors"
	"github.com/bigkaa/authadmin/internal/api/middleware"
)

// whoamiResponse — ответ GET /whoami.
type whoamiResponse struct {
	// Principal — preferred_username (или sub, если username отсутствует)
	Principal  string      `json:"principal"`
	Roles      []string    `json:"roles"`
	Attributes whoamiAttrs `json:"attributes"`
}

// whoamiAttrs — атрибуты вызывающего из токена.
type whoamiAttrs struct {
	Subject           string               `json:"sub"`
	PreferredUsername string               `json:"preferred_username,omitempty"`
	Email             *openapi_types.Email `json:"email,omitempty"`
}

// Whoami — GET /api/auth/whoami.
// Доступ: любой аутентифицированный пользователь.
func (h *APIHandler) Whoami(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		apierrors.Unauthorized(w, "Отсутствуют claims в контексте")
		return
	}

	resp := whoamiResponse{
		Principal: claims.PreferredUsername,
		Roles:     claims.Roles,
		Attributes: whoamiAttrs{
			Subject:           claims.Subject,
			PreferredUsername: claims.PreferredUsername,
		},
	}
	if resp.Principal == "" {
		resp.Principal = claims.Subject
	}
	if resp.Roles == nil {
		resp.Roles = []string{}
	}
	if claims.Email != "" {
		email := openapi_types.Email(claims.Email)
		resp.Attributes.Email = &email
	}

	writeJSON(w, http.StatusOK, resp)
}
