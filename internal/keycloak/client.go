// client.go — HTTP-клиент к Keycloak Admin REST API.
// Получает admin token через Client Credentials flow и кэширует его
// (обновление за 30s до expiration, кэш можно отключить).
// Операции: пользователи, пароли, realm-роли, группы, logout, RealmInfo.
package keycloak

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bigkaa/authadmin/internal/domain/rbac"
)

// Client — HTTP-клиент к Keycloak Admin REST API.
type Client struct {
	baseURL      string // Базовый URL Keycloak (без trailing slash)
	realm        string // Имя realm
	clientID     string // Client ID для Client Credentials flow
	clientSecret string // Client Secret

	httpClient *http.Client
	logger     *slog.Logger

	// Кэш токена доступа
	cacheToken  bool
	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// Option — дополнительная настройка Client.
type Option func(*Client)

// WithTokenCache включает или отключает кэширование admin token.
// При отключённом кэше токен запрашивается перед каждым вызовом.
func WithTokenCache(enabled bool) Option {
	return func(c *Client) {
		c.cacheToken = enabled
	}
}

// New создаёт клиент к Keycloak Admin REST API.
// baseURL — базовый URL Keycloak (например, https://keycloak.kryukov.lan).
// realm — имя realm (например, cinema).
// clientID, clientSecret — credentials для Client Credentials flow.
// httpClient — HTTP-клиент (может содержать TLS конфигурацию и таймаут).
func New(baseURL, realm, clientID, clientSecret string, httpClient *http.Client, logger *slog.Logger, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		realm:        realm,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   httpClient,
		logger:       logger.With(slog.String("component", "keycloak_client")),
		cacheToken:   true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// --- Аутентификация ---

// tokenEndpoint возвращает URL endpoint'а получения токена.
func (c *Client) tokenEndpoint() string {
	return fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token", c.baseURL, url.PathEscape(c.realm))
}

// adminBaseURL возвращает базовый URL Admin REST API для realm.
func (c *Client) adminBaseURL() string {
	return fmt.Sprintf("%s/admin/realms/%s", c.baseURL, url.PathEscape(c.realm))
}

// getToken возвращает актуальный access token, обновляя при необходимости.
// Токен обновляется за 30 секунд до истечения.
func (c *Client) getToken(ctx context.Context) (string, error) {
	if !c.cacheToken {
		token, err := c.requestToken(ctx)
		if err != nil {
			return "", err
		}
		return token.AccessToken, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Проверяем кэш: если токен валиден ещё 30 секунд — используем его
	if c.accessToken != "" && time.Now().Add(30*time.Second).Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	token, err := c.requestToken(ctx)
	if err != nil {
		return "", err
	}

	c.accessToken = token.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)

	c.logger.Debug("Keycloak токен обновлён",
		slog.Time("expires_at", c.tokenExpiry),
	)

	return c.accessToken, nil
}

// requestToken выполняет Client Credentials flow.
// Любая ошибка оборачивает ErrTokenUnavailable. Повторов нет.
func (c *Client) requestToken(ctx context.Context) (*TokenResponse, error) {
	token, err := c.fetchToken(ctx)
	if err != nil {
		tokenRequestsTotal.WithLabelValues("error").Inc()
		c.logger.Warn("Не удалось получить admin token", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %w", ErrTokenUnavailable, err)
	}
	tokenRequestsTotal.WithLabelValues("ok").Inc()
	return token, nil
}

func (c *Client) fetchToken(ctx context.Context) (*TokenResponse, error) {
	data := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenEndpoint(), strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("создание запроса токена: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("запрос токена Keycloak: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("Keycloak вернул статус %d при запросе токена: %s", resp.StatusCode, string(body))
	}

	var token TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("декодирование токена Keycloak: %w", err)
	}
	if token.AccessToken == "" {
		return nil, errors.New("ответ Keycloak не содержит access_token")
	}

	return &token, nil
}

// --- HTTP helpers ---

// doAuthorized выполняет HTTP-запрос к Admin REST API с авторизацией.
// op — имя операции для метрик и ошибок.
func (c *Client) doAuthorized(ctx context.Context, op, method, path string, body any) (*http.Response, error) {
	token, err := c.getToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s: сериализация тела запроса: %w", op, err)
		}
		bodyReader = bytes.NewReader(data)
	}

	reqURL := c.adminBaseURL() + path
	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("%s: создание запроса: %w", op, err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		observeRequest(op, 0, started)
		return nil, fmt.Errorf("%s: запрос к Keycloak: %w", op, err)
	}
	observeRequest(op, resp.StatusCode, started)

	c.logger.Debug("Запрос к Keycloak выполнен",
		slog.String("op", op),
		slog.String("method", method),
		slog.Int("status", resp.StatusCode),
	)

	return resp, nil
}

// newAPIError читает тело ответа и формирует APIError.
func newAPIError(op string, resp *http.Response) *APIError {
	body, _ := io.ReadAll(resp.Body)
	return &APIError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
}

// decodeResponse проверяет статус 200 и декодирует JSON ответ в target.
func decodeResponse(op string, resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return newAPIError(op, resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("%s: декодирование ответа Keycloak: %w", op, err)
	}

	return nil
}

// checkResponse проверяет статус ответа (для запросов без тела ответа).
func checkResponse(op string, resp *http.Response, expectedStatus int) error {
	defer resp.Body.Close()

	if resp.StatusCode != expectedStatus {
		return newAPIError(op, resp)
	}

	// Дочитываем тело, чтобы соединение вернулось в пул
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// userPath возвращает путь к ресурсу пользователя.
func userPath(userID string, suffix ...string) string {
	p := "/users/" + url.PathEscape(userID)
	for _, s := range suffix {
		p += "/" + s
	}
	return p
}

// --- Users API ---

// CreateUser создаёт пользователя и возвращает его ID.
// Keycloak отвечает 201 и Location .../users/{id}; ID — последний сегмент.
func (c *Client) CreateUser(ctx context.Context, username, email string, emailVerified, enabled bool) (string, error) {
	const op = "CreateUser"

	createReq := userCreateRequest{
		Username:      username,
		Email:         email,
		EmailVerified: emailVerified,
		Enabled:       enabled,
	}

	resp, err := c.doAuthorized(ctx, op, http.MethodPost, "/users", createReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", newAPIError(op, resp)
	}

	location := resp.Header.Get("Location")
	id := location[strings.LastIndex(location, "/")+1:]
	if id == "" {
		return "", fmt.Errorf("%s: не удалось извлечь ID из Location %q", op, location)
	}

	return id, nil
}

// SetPassword устанавливает пароль пользователя.
// temporary=true требует смены пароля при следующем входе.
func (c *Client) SetPassword(ctx context.Context, userID, password string, temporary bool) error {
	const op = "SetPassword"

	cred := credentialRepresentation{
		Type:      "password",
		Value:     password,
		Temporary: temporary,
	}

	resp, err := c.doAuthorized(ctx, op, http.MethodPut, userPath(userID, "reset-password"), cred)
	if err != nil {
		return err
	}

	return checkResponse(op, resp, http.StatusNoContent)
}

// ListUsersRaw возвращает список пользователей в исходном виде Keycloak.
// Параметры search, first, max передаются только если заданы; пустой или пробельный search опускается.
func (c *Client) ListUsersRaw(ctx context.Context, q UserQuery) (json.RawMessage, error) {
	const op = "ListUsers"

	params := url.Values{}
	if strings.TrimSpace(q.Search) != "" {
		params.Set("search", q.Search)
	}
	if q.First != nil {
		params.Set("first", strconv.Itoa(*q.First))
	}
	if q.Max != nil {
		params.Set("max", strconv.Itoa(*q.Max))
	}

	path := "/users"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	resp, err := c.doAuthorized(ctx, op, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(op, resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: чтение ответа Keycloak: %w", op, err)
	}

	return json.RawMessage(body), nil
}

// GetUser возвращает пользователя по Keycloak ID вместе с его realm-ролями.
func (c *Client) GetUser(ctx context.Context, userID string) (*UserRecord, error) {
	const op = "GetUser"

	resp, err := c.doAuthorized(ctx, op, http.MethodGet, userPath(userID), nil)
	if err != nil {
		return nil, err
	}

	var user UserRecord
	if err := decodeResponse(op, resp, &user); err != nil {
		return nil, err
	}

	roles, err := c.GetUserRealmRoles(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.RealmRoles = roles

	return &user, nil
}

// SetEnabled включает или отключает пользователя (частичный PUT).
func (c *Client) SetEnabled(ctx context.Context, userID string, enabled bool) error {
	const op = "SetEnabled"

	resp, err := c.doAuthorized(ctx, op, http.MethodPut, userPath(userID), enabledPatch{Enabled: enabled})
	if err != nil {
		return err
	}

	return checkResponse(op, resp, http.StatusNoContent)
}

// LogoutUser завершает все сессии пользователя.
func (c *Client) LogoutUser(ctx context.Context, userID string) error {
	const op = "LogoutUser"

	resp, err := c.doAuthorized(ctx, op, http.MethodPost, userPath(userID, "logout"), nil)
	if err != nil {
		return err
	}

	return checkResponse(op, resp, http.StatusNoContent)
}

// --- Realm roles API ---

// GetUserRealmRoles возвращает имена эффективных realm-ролей пользователя.
// Сначала запрашивается composite endpoint; если Keycloak его не поддерживает
// (404), используются прямые назначения.
func (c *Client) GetUserRealmRoles(ctx context.Context, userID string) ([]string, error) {
	const op = "GetUserRealmRoles"

	resp, err := c.doAuthorized(ctx, op, http.MethodGet, userPath(userID, "role-mappings", "realm", "composite"), nil)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		c.logger.Debug("Composite role-mappings недоступен, используются прямые назначения",
			slog.String("user_id", userID),
		)

		resp, err = c.doAuthorized(ctx, op, http.MethodGet, userPath(userID, "role-mappings", "realm"), nil)
		if err != nil {
			return nil, err
		}
	}

	var roles []RoleRepresentation
	if err := decodeResponse(op, resp, &roles); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.Name)
	}
	return names, nil
}

// UserHasRealmRole проверяет наличие realm-роли у пользователя (без учёта регистра).
func (c *Client) UserHasRealmRole(ctx context.Context, userID, role string) (bool, error) {
	roles, err := c.GetUserRealmRoles(ctx, userID)
	if err != nil {
		return false, err
	}
	return rbac.ContainsName(roles, role), nil
}

// ResolveRealmRole возвращает полное представление realm-роли по имени.
func (c *Client) ResolveRealmRole(ctx context.Context, name string) (*RoleRepresentation, error) {
	const op = "ResolveRealmRole"

	resp, err := c.doAuthorized(ctx, op, http.MethodGet, "/roles/"+url.PathEscape(name), nil)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %q", ErrRoleNotFound, name)
	}

	var role RoleRepresentation
	if err := decodeResponse(op, resp, &role); err != nil {
		return nil, err
	}

	return &role, nil
}

// AddRealmRoles назначает пользователю realm-роли одним запросом.
// Все имена разрешаются до изменения: неизвестная роль прерывает операцию.
func (c *Client) AddRealmRoles(ctx context.Context, userID string, names []string) error {
	return c.mutateRealmRoles(ctx, "AddRealmRoles", http.MethodPost, userID, names)
}

// RemoveRealmRoles снимает с пользователя realm-роли одним запросом.
func (c *Client) RemoveRealmRoles(ctx context.Context, userID string, names []string) error {
	return c.mutateRealmRoles(ctx, "RemoveRealmRoles", http.MethodDelete, userID, names)
}

func (c *Client) mutateRealmRoles(ctx context.Context, op, method, userID string, names []string) error {
	if len(names) == 0 {
		return nil
	}

	roles := make([]RoleRepresentation, 0, len(names))
	for _, name := range names {
		role, err := c.ResolveRealmRole(ctx, name)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		roles = append(roles, *role)
	}

	resp, err := c.doAuthorized(ctx, op, method, userPath(userID, "role-mappings", "realm"), roles)
	if err != nil {
		return err
	}

	return checkResponse(op, resp, http.StatusNoContent)
}

// --- Groups API ---

// FindGroupByName ищет группу по имени (точное совпадение без учёта регистра).
// Возвращает nil, nil, если группа не найдена.
func (c *Client) FindGroupByName(ctx context.Context, name string) (*Group, error) {
	const op = "FindGroupByName"

	resp, err := c.doAuthorized(ctx, op, http.MethodGet, "/groups?search="+url.QueryEscape(name), nil)
	if err != nil {
		return nil, err
	}

	var groups []Group
	if err := decodeResponse(op, resp, &groups); err != nil {
		return nil, err
	}

	// search в Keycloak — поиск по подстроке, фильтруем точное имя
	for _, g := range groups {
		if rbac.SameName(g.Name, name) {
			return &g, nil
		}
	}

	return nil, nil
}

// GetUserGroups возвращает группы пользователя.
func (c *Client) GetUserGroups(ctx context.Context, userID string) ([]Group, error) {
	const op = "GetUserGroups"

	resp, err := c.doAuthorized(ctx, op, http.MethodGet, userPath(userID, "groups"), nil)
	if err != nil {
		return nil, err
	}

	var groups []Group
	if err := decodeResponse(op, resp, &groups); err != nil {
		return nil, err
	}

	return groups, nil
}

// UserInGroup проверяет членство пользователя в группе по её ID.
func (c *Client) UserInGroup(ctx context.Context, userID, groupID string) (bool, error) {
	groups, err := c.GetUserGroups(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, g := range groups {
		if g.ID == groupID {
			return true, nil
		}
	}
	return false, nil
}

// AddUserToGroup добавляет пользователя в группу.
func (c *Client) AddUserToGroup(ctx context.Context, userID, groupID string) error {
	const op = "AddUserToGroup"

	resp, err := c.doAuthorized(ctx, op, http.MethodPut, userPath(userID, "groups", url.PathEscape(groupID)), nil)
	if err != nil {
		return err
	}

	return checkResponse(op, resp, http.StatusNoContent)
}

// RemoveUserFromGroup удаляет пользователя из группы.
func (c *Client) RemoveUserFromGroup(ctx context.Context, userID, groupID string) error {
	const op = "RemoveUserFromGroup"

	resp, err := c.doAuthorized(ctx, op, http.MethodDelete, userPath(userID, "groups", url.PathEscape(groupID)), nil)
	if err != nil {
		return err
	}

	return checkResponse(op, resp, http.StatusNoContent)
}

// --- Realm API ---

// RealmInfo возвращает информацию о realm.
func (c *Client) RealmInfo(ctx context.Context) (*RealmRepresentation, error) {
	const op = "RealmInfo"

	resp, err := c.doAuthorized(ctx, op, http.MethodGet, "", nil)
	if err != nil {
		return nil, err
	}

	var realm RealmRepresentation
	if err := decodeResponse(op, resp, &realm); err != nil {
		return nil, err
	}

	return &realm, nil
}

// --- Readiness checker ---

// CheckReady проверяет доступность Keycloak через realm info.
// Реализует handlers.ReadinessChecker.
func (c *Client) CheckReady() (string, string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	realm, err := c.RealmInfo(ctx)
	if err != nil {
		return "fail", fmt.Sprintf("Keycloak недоступен: %v", err)
	}

	if !realm.Enabled {
		return "degraded", fmt.Sprintf("Realm %s отключён", realm.Realm)
	}

	return "ok", fmt.Sprintf("Realm %s доступен", realm.Realm)
}
