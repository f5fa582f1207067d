package keycloak

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound — ресурс не найден (HTTP 404 от Keycloak).
	ErrNotFound = errors.New("ресурс Keycloak не найден")
	// ErrRoleNotFound — realm-роль с указанным именем не существует.
	ErrRoleNotFound = fmt.Errorf("%w: realm-роль", ErrNotFound)
	// ErrTokenUnavailable — не удалось получить admin token.
	ErrTokenUnavailable = errors.New("не удалось получить admin token Keycloak")
)

// APIError — неожиданный статус ответа Keycloak Admin REST API.
// Тело ответа сохраняется для диагностики.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: Keycloak вернул статус %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: Keycloak вернул статус %d: %s", e.Op, e.StatusCode, e.Body)
}

// Is сопоставляет 404 с ErrNotFound.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}
