// Пакет model — доменные модели Auth Admin.
package model

import "time"

// User — пользователь realm вместе с его эффективными realm-ролями.
// Не хранится локально: формируется из ответа Keycloak на каждый запрос.
type User struct {
	// ID — Keycloak user ID (sub)
	ID string
	// Username — имя пользователя в Keycloak
	Username string
	// Email — адрес электронной почты
	Email string
	// FirstName — имя
	FirstName string
	// LastName — фамилия
	LastName string
	// Enabled — активен ли аккаунт в Keycloak
	Enabled bool
	// EmailVerified — подтверждён ли email
	EmailVerified bool
	// RealmRoles — эффективные realm-роли (включая composite)
	RealmRoles []string
	// Attributes — произвольные атрибуты пользователя Keycloak
	Attributes map[string][]string
	// CreatedAt — дата создания в Keycloak
	CreatedAt time.Time
}

// CreateUserInput — данные для создания пользователя.
// EmailVerified и Enabled по умолчанию true.
type CreateUserInput struct {
	Username      string `validate:"required"`
	Email         string `validate:"required"`
	Password      string `validate:"required"` //nolint:gosec // G117: пароль передаётся в Keycloak
	EmailVerified *bool
	Enabled       *bool
}

// PasswordInput — новый пароль пользователя.
type PasswordInput struct {
	Password  string `validate:"required"` //nolint:gosec // G117: пароль передаётся в Keycloak
	Temporary bool
}

// UserQuery — параметры выборки пользователей.
// Nil-поля не передаются в Keycloak.
type UserQuery struct {
	Search string
	First  *int
	Max    *int
}

// Caller — аутентифицированный вызывающий (из JWT).
type Caller struct {
	// Subject — sub из JWT
	Subject string
	// Username — preferred_username
	Username string
	// Email — email из JWT
	Email string
	// Roles — realm-роли вызывающего
	Roles []string
}
