package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/authadmin/internal/api/middleware"
	"github.com/bigkaa/authadmin/internal/domain/model"
	"github.com/bigkaa/authadmin/internal/keycloak"
	"github.com/bigkaa/authadmin/internal/service"
)

// stubPolicy — PolicyService с заданными ответами и записью аргументов.
type stubPolicy struct {
	err      error
	createID string
	listBody json.RawMessage
	user     *model.User
	report   *model.OperationReport

	lastUserID  string
	lastGroup   string
	lastRoles   []string
	lastEnabled *bool
	lastCreate  model.CreateUserInput
	lastPass    model.PasswordInput
	lastQuery   model.UserQuery
	lastCaller  model.Caller
}

func (s *stubPolicy) remember(ctx context.Context, userID string) {
	s.lastUserID = userID
	s.lastCaller, _ = service.CallerFromContext(ctx)
}

func (s *stubPolicy) CreateUser(ctx context.Context, in model.CreateUserInput) (string, error) {
	s.remember(ctx, "")
	s.lastCreate = in
	return s.createID, s.err
}

func (s *stubPolicy) SetPassword(ctx context.Context, userID string, in model.PasswordInput) error {
	s.remember(ctx, userID)
	s.lastPass = in
	return s.err
}

func (s *stubPolicy) ListUsers(ctx context.Context, q model.UserQuery) (json.RawMessage, error) {
	s.lastQuery = q
	return s.listBody, s.err
}

func (s *stubPolicy) GetUser(ctx context.Context, userID string) (*model.User, error) {
	s.remember(ctx, userID)
	return s.user, s.err
}

func (s *stubPolicy) SetEnabled(ctx context.Context, userID string, enabled *bool) error {
	s.remember(ctx, userID)
	s.lastEnabled = enabled
	return s.err
}

func (s *stubPolicy) AddRealmRoles(ctx context.Context, userID string, roles []string) error {
	s.remember(ctx, userID)
	s.lastRoles = roles
	return s.err
}

func (s *stubPolicy) RemoveRealmRoles(ctx context.Context, userID string, roles []string) error {
	s.remember(ctx, userID)
	s.lastRoles = roles
	return s.err
}

func (s *stubPolicy) Logout(ctx context.Context, userID string) error {
	s.remember(ctx, userID)
	return s.err
}

func (s *stubPolicy) AddToGroup(ctx context.Context, userID, groupName string) error {
	s.remember(ctx, userID)
	s.lastGroup = groupName
	return s.err
}

func (s *stubPolicy) RemoveFromGroup(ctx context.Context, userID, groupName string) error {
	s.remember(ctx, userID)
	s.lastGroup = groupName
	return s.err
}

func (s *stubPolicy) PromoteToAdmin(ctx context.Context, userID string) (*model.OperationReport, error) {
	s.remember(ctx, userID)
	if s.err != nil {
		return nil, s.err
	}
	return s.report, nil
}

// stubJournal — OperationJournal с заданными ответами.
type stubJournal struct {
	entries    []*model.OperationLogEntry
	err        error
	lastFilter model.OperationFilter
}

func (j *stubJournal) List(_ context.Context, f model.OperationFilter) ([]*model.OperationLogEntry, int, error) {
	j.lastFilter = f
	if j.err != nil {
		return nil, 0, j.err
	}
	return j.entries, len(j.entries), nil
}

func (j *stubJournal) Get(_ context.Context, id string) (*model.OperationLogEntry, error) {
	if j.err != nil {
		return nil, j.err
	}
	for _, e := range j.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, fmt.Errorf("%w: запись журнала %s", service.ErrNotFound, id)
}

// stubChecker — ReadinessChecker с фиксированным результатом.
type stubChecker struct{ status, message string }

func (c stubChecker) CheckReady() (string, string) { return c.status, c.message }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

var testClaims = &middleware.AuthClaims{
	Subject:           "caller-1",
	PreferredUsername: "root",
	Email:             "root@example.com",
	Roles:             []string{"admin"},
}

// newTestRouter собирает маршруты без RBAC; claims подставляются в контекст.
func newTestRouter(policy *stubPolicy, journal *stubJournal) http.Handler {
	h := NewAPIHandler(NewHealthHandler(nil, stubChecker{"ok", "realm доступен"}), policy, journal, testLogger())

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(middleware.WithClaims(req.Context(), testClaims)))
		})
	})
	r.Get("/whoami", h.Whoami)
	r.Post("/users", h.CreateUser)
	r.Get("/users", h.ListUsers)
	r.Get("/users/{id}", h.GetUser)
	r.Put("/users/{id}/password", h.SetPassword)
	r.Put("/users/{id}/enabled", h.SetEnabled)
	r.Post("/users/{id}/roles/realm", h.AddRealmRoles)
	r.Delete("/users/{id}/roles/realm", h.RemoveRealmRoles)
	r.Post("/users/{id}/logout", h.Logout)
	r.Put("/users/{id}/groups/{groupName}", h.AddToGroup)
	r.Delete("/users/{id}/groups/{groupName}", h.RemoveFromGroup)
	r.Post("/users/{id}/promote-admin", h.PromoteToAdmin)
	r.Get("/operations", h.ListOperations)
	r.Get("/operations/{id}", h.GetOperation)
	r.Get("/health/ready", h.HealthReady)
	r.Get("/health/live", h.HealthLive)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// errorCode извлекает error.code из тела ответа.
func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("тело ответа не JSON: %v (%s)", err, rec.Body.String())
	}
	return body.Error.Code
}

// --- Маппинг ошибок ---

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", fmt.Errorf("%w: roles обязательны", service.ErrValidation), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"forbidden", fmt.Errorf("%w: нельзя", service.ErrForbidden), http.StatusForbidden, "FORBIDDEN"},
		{"conflict", service.ErrAlreadyAdmin, http.StatusConflict, "CONFLICT"},
		{"not found service", fmt.Errorf("%w: группа", service.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{"not found keycloak", &keycloak.APIError{Op: "GetUser", StatusCode: 404}, http.StatusNotFound, "NOT_FOUND"},
		{"role not found", fmt.Errorf("AddRealmRoles: %w", keycloak.ErrRoleNotFound), http.StatusNotFound, "NOT_FOUND"},
		{"keycloak conflict", &keycloak.APIError{Op: "CreateUser", StatusCode: 409}, http.StatusConflict, "CONFLICT"},
		{"upstream", &keycloak.APIError{Op: "SetEnabled", StatusCode: 500}, http.StatusBadGateway, "UPSTREAM_ERROR"},
		{"token", fmt.Errorf("op: %w: timeout", keycloak.ErrTokenUnavailable), http.StatusBadGateway, "IDP_UNAVAILABLE"},
		{"journal disabled", service.ErrJournalDisabled, http.StatusServiceUnavailable, "JOURNAL_DISABLED"},
		{"partial", &service.StepError{
			Operation: "promote_admin",
			Completed: []string{"add_admin_role"},
			Step:      "remove_customer_role",
			Err:       &keycloak.APIError{Op: "RemoveRealmRoles", StatusCode: 404},
		}, http.StatusBadGateway, "PARTIAL_FAILURE"},
		{"internal", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	h := NewAPIHandler(nil, nil, nil, testLogger())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.writeServiceError(rec, httptest.NewRequest(http.MethodGet, "/x", nil), tt.err)

			if rec.Code != tt.status {
				t.Errorf("ожидался статус %d, получен %d", tt.status, rec.Code)
			}
			if code := errorCode(t, rec); code != tt.code {
				t.Errorf("ожидался код %s, получен %s", tt.code, code)
			}
		})
	}
}

func TestPartialFailureBody(t *testing.T) {
	h := NewAPIHandler(nil, nil, nil, testLogger())
	rec := httptest.NewRecorder()
	h.writeServiceError(rec, httptest.NewRequest(http.MethodPost, "/x", nil), &service.StepError{
		Operation: "create_user",
		UserID:    "5b2a-dangling",
		Completed: []string{"create_user"},
		Step:      "set_password",
		Err:       errors.New("500"),
	})

	var body struct {
		Error struct {
			UserID         string   `json:"user_id"`
			CompletedSteps []string `json:"completed_steps"`
			FailedStep     string   `json:"failed_step"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Error.FailedStep != "set_password" || len(body.Error.CompletedSteps) != 1 {
		t.Errorf("неожиданное тело: %s", rec.Body.String())
	}
	if body.Error.UserID != "5b2a-dangling" {
		t.Errorf("ожидался user_id 5b2a-dangling, получен %q", body.Error.UserID)
	}
}

// --- Пользователи ---

func TestCreateUser(t *testing.T) {
	policy := &stubPolicy{createID: "5b2a9f0a-8d7a-4b1e-9c2b-1234567890ab"}
	router := newTestRouter(policy, &stubJournal{})

	rec := do(t, router, http.MethodPost, "/users",
		`{"username":"nico","email":"nico@example.com","password":"S3cretPwd!"}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("ожидался статус 201, получен %d: %s", rec.Code, rec.Body.String())
	}
	var resp createUserResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.ID != policy.createID {
		t.Errorf("ожидался id %s, получен %s", policy.createID, resp.ID)
	}
	if policy.lastCreate.Username != "nico" || policy.lastCreate.Email != "nico@example.com" {
		t.Errorf("неожиданный ввод: %+v", policy.lastCreate)
	}
	if policy.lastCreate.EmailVerified != nil || policy.lastCreate.Enabled != nil {
		t.Error("незаданные флаги должны оставаться nil")
	}
	if policy.lastCaller.Username != "root" {
		t.Errorf("вызывающий не передан в сервис: %+v", policy.lastCaller)
	}
}

func TestCreateUser_PartialFailureReportsUserID(t *testing.T) {
	policy := &stubPolicy{
		createID: "5b2a-dangling",
		err: &service.StepError{
			Operation: service.OpCreateUser,
			UserID:    "5b2a-dangling",
			Completed: []string{service.StepCreateUser},
			Step:      service.StepSetPassword,
			Err:       &keycloak.APIError{Op: "SetPassword", StatusCode: 500},
		},
	}
	router := newTestRouter(policy, &stubJournal{})

	rec := do(t, router, http.MethodPost, "/users",
		`{"username":"nico","email":"nico@example.com","password":"S3cretPwd!"}`)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("ожидался статус 502, получен %d: %s", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/users/5b2a-dangling" {
		t.Errorf("неожиданный Location: %q", loc)
	}

	var body struct {
		Error struct {
			Code   string `json:"code"`
			UserID string `json:"user_id"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Error.Code != "PARTIAL_FAILURE" || body.Error.UserID != "5b2a-dangling" {
		t.Errorf("неожиданное тело: %s", rec.Body.String())
	}
}

func TestCreateUser_InvalidBody(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"не JSON", `{`},
		{"некорректный email", `{"username":"nico","email":"not-an-email","password":"p"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := &stubPolicy{}
			rec := do(t, newTestRouter(policy, &stubJournal{}), http.MethodPost, "/users", tt.body)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("ожидался статус 400, получен %d", rec.Code)
			}
			if policy.lastCreate.Username != "" {
				t.Error("сервис не должен вызываться")
			}
		})
	}
}

func TestListUsers_Passthrough(t *testing.T) {
	policy := &stubPolicy{listBody: json.RawMessage(`[{"id":"u1","custom":1}]`)}
	router := newTestRouter(policy, &stubJournal{})

	rec := do(t, router, http.MethodGet, "/users?q=nic&first=10&max=5", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался статус 200, получен %d", rec.Code)
	}
	if rec.Body.String() != `[{"id":"u1","custom":1}]` {
		t.Errorf("тело изменено: %s", rec.Body.String())
	}
	q := policy.lastQuery
	if q.Search != "nic" || q.First == nil || *q.First != 10 || q.Max == nil || *q.Max != 5 {
		t.Errorf("неожиданный запрос: %+v", q)
	}
}

func TestListUsers_OmittedParams(t *testing.T) {
	policy := &stubPolicy{listBody: json.RawMessage(`[]`)}
	do(t, newTestRouter(policy, &stubJournal{}), http.MethodGet, "/users", "")

	if policy.lastQuery.First != nil || policy.lastQuery.Max != nil || policy.lastQuery.Search != "" {
		t.Errorf("незаданные параметры должны оставаться пустыми: %+v", policy.lastQuery)
	}
}

func TestListUsers_InvalidParams(t *testing.T) {
	router := newTestRouter(&stubPolicy{}, &stubJournal{})

	for _, path := range []string{"/users?first=abc", "/users?max=-1"} {
		if rec := do(t, router, http.MethodGet, path, ""); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: ожидался статус 400, получен %d", path, rec.Code)
		}
	}
}

func TestGetUser(t *testing.T) {
	policy := &stubPolicy{user: &model.User{
		ID:         "u1",
		Username:   "nico",
		Email:      "nico@example.com",
		Enabled:    true,
		RealmRoles: []string{"Customer"},
		CreatedAt:  time.UnixMilli(1700000000000),
	}}
	rec := do(t, newTestRouter(policy, &stubJournal{}), http.MethodGet, "/users/u1", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался статус 200, получен %d", rec.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["username"] != "nico" || resp["email"] != "nico@example.com" {
		t.Errorf("неожиданный ответ: %v", resp)
	}
	if _, ok := resp["firstName"]; ok {
		t.Error("пустой firstName не должен попадать в ответ")
	}
	if policy.lastUserID != "u1" {
		t.Errorf("ожидался id u1, получен %s", policy.lastUserID)
	}
}

func TestGetUser_NotFound(t *testing.T) {
	policy := &stubPolicy{err: &keycloak.APIError{Op: "GetUser", StatusCode: 404}}
	rec := do(t, newTestRouter(policy, &stubJournal{}), http.MethodGet, "/users/missing", "")

	if rec.Code != http.StatusNotFound {
		t.Errorf("ожидался статус 404, получен %d", rec.Code)
	}
}

func TestMutations_NoContent(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		check  func(t *testing.T, p *stubPolicy)
	}{
		{"password", http.MethodPut, "/users/u1/password", `{"password":"new","temporary":true}`,
			func(t *testing.T, p *stubPolicy) {
				if p.lastPass.Password != "new" || !p.lastPass.Temporary {
					t.Errorf("неожиданный пароль: %+v", p.lastPass)
				}
			}},
		{"disable", http.MethodPut, "/users/u1/enabled", `{"enabled":false}`,
			func(t *testing.T, p *stubPolicy) {
				if p.lastEnabled == nil || *p.lastEnabled {
					t.Errorf("ожидался enabled=false, получен %v", p.lastEnabled)
				}
			}},
		{"add roles", http.MethodPost, "/users/u1/roles/realm", `{"roles":["support"]}`,
			func(t *testing.T, p *stubPolicy) {
				if len(p.lastRoles) != 1 || p.lastRoles[0] != "support" {
					t.Errorf("неожиданные роли: %v", p.lastRoles)
				}
			}},
		{"remove roles", http.MethodDelete, "/users/u1/roles/realm", `{"roles":["Customer"]}`, nil},
		{"logout", http.MethodPost, "/users/u1/logout", "", nil},
		{"add group", http.MethodPut, "/users/u1/groups/staff", "",
			func(t *testing.T, p *stubPolicy) {
				if p.lastGroup != "staff" {
					t.Errorf("ожидалась группа staff, получена %s", p.lastGroup)
				}
			}},
		{"remove group", http.MethodDelete, "/users/u1/groups/staff", "", nil},
		{"promote", http.MethodPost, "/users/u1/promote-admin", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := &stubPolicy{report: &model.OperationReport{Steps: []string{"add_admin_role"}}}
			rec := do(t, newTestRouter(policy, &stubJournal{}), tt.method, tt.path, tt.body)

			if rec.Code != http.StatusNoContent {
				t.Fatalf("ожидался статус 204, получен %d: %s", rec.Code, rec.Body.String())
			}
			if policy.lastUserID != "u1" {
				t.Errorf("ожидался id u1, получен %s", policy.lastUserID)
			}
			if policy.lastCaller.Subject != "caller-1" {
				t.Errorf("вызывающий не передан в сервис: %+v", policy.lastCaller)
			}
			if tt.check != nil {
				tt.check(t, policy)
			}
		})
	}
}

func TestSetEnabled_MissingFieldReachesService(t *testing.T) {
	policy := &stubPolicy{err: fmt.Errorf("%w: enabled обязателен", service.ErrValidation)}
	rec := do(t, newTestRouter(policy, &stubJournal{}), http.MethodPut, "/users/u1/enabled", `{}`)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("ожидался статус 400, получен %d", rec.Code)
	}
	if policy.lastEnabled != nil {
		t.Error("отсутствующее поле enabled должно передаваться как nil")
	}
}

func TestPromoteToAdmin_AlreadyAdmin(t *testing.T) {
	policy := &stubPolicy{err: service.ErrAlreadyAdmin}
	rec := do(t, newTestRouter(policy, &stubJournal{}), http.MethodPost, "/users/u1/promote-admin", "")

	if rec.Code != http.StatusConflict {
		t.Errorf("ожидался статус 409, получен %d", rec.Code)
	}
}

// --- whoami ---

func TestWhoami(t *testing.T) {
	rec := do(t, newTestRouter(&stubPolicy{}, &stubJournal{}), http.MethodGet, "/whoami", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался статус 200, получен %d", rec.Code)
	}
	var resp whoamiResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Principal != "root" || len(resp.Roles) != 1 || resp.Attributes.Subject != "caller-1" {
		t.Errorf("неожиданный ответ: %+v", resp)
	}
}

// --- Журнал ---

func TestListOperations(t *testing.T) {
	journal := &stubJournal{entries: []*model.OperationLogEntry{{
		ID:             "op-1",
		Operation:      "promote_admin",
		UserID:         "u1",
		Status:         model.OperationPartial,
		CompletedSteps: []string{"add_admin_role"},
		FailedStep:     "remove_customer_role",
		StartedAt:      time.Now().UTC(),
		FinishedAt:     time.Now().UTC(),
	}}}
	rec := do(t, newTestRouter(&stubPolicy{}, journal), http.MethodGet, "/operations?user_id=u1&limit=5000", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался статус 200, получен %d", rec.Code)
	}
	if journal.lastFilter.UserID != "u1" || journal.lastFilter.Limit != 1000 {
		t.Errorf("неожиданный фильтр: %+v", journal.lastFilter)
	}
	var resp operationListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 || resp.Items[0].Status != "partial" || resp.HasMore {
		t.Errorf("неожиданный ответ: %+v", resp)
	}
}

func TestOperations_JournalDisabled(t *testing.T) {
	router := newTestRouter(&stubPolicy{}, &stubJournal{err: service.ErrJournalDisabled})

	for _, path := range []string{"/operations", "/operations/op-1"} {
		rec := do(t, router, http.MethodGet, path, "")
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: ожидался статус 503, получен %d", path, rec.Code)
		}
	}
}

func TestGetOperation(t *testing.T) {
	journal := &stubJournal{entries: []*model.OperationLogEntry{{ID: "op-1", Operation: "logout", Status: model.OperationOK}}}
	router := newTestRouter(&stubPolicy{}, journal)

	if rec := do(t, router, http.MethodGet, "/operations/op-1", ""); rec.Code != http.StatusOK {
		t.Errorf("ожидался статус 200, получен %d", rec.Code)
	}
	if rec := do(t, router, http.MethodGet, "/operations/op-2", ""); rec.Code != http.StatusNotFound {
		t.Errorf("ожидался статус 404, получен %d", rec.Code)
	}
}

// --- Health ---

func TestHealthReady(t *testing.T) {
	tests := []struct {
		name   string
		kc     ReadinessChecker
		pg     ReadinessChecker
		status int
		want   string
	}{
		{"только Keycloak", stubChecker{"ok", ""}, nil, http.StatusOK, "ok"},
		{"PostgreSQL недоступен", stubChecker{"ok", ""}, stubChecker{"fail", "нет соединения"}, http.StatusOK, "degraded"},
		{"Keycloak недоступен", stubChecker{"fail", "timeout"}, stubChecker{"ok", ""}, http.StatusServiceUnavailable, "fail"},
		{"Keycloak не инициализирован", nil, nil, http.StatusServiceUnavailable, "fail"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.pg, tt.kc)
			rec := httptest.NewRecorder()
			h.HealthReady(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			if rec.Code != tt.status {
				t.Errorf("ожидался статус %d, получен %d", tt.status, rec.Code)
			}
			var resp healthReadyResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if resp.Status != tt.want {
				t.Errorf("ожидался статус %s, получен %s", tt.want, resp.Status)
			}
			if (tt.pg == nil) != (resp.Checks.PostgreSQL == nil) {
				t.Errorf("проверка PostgreSQL присутствует только при подключённой БД: %+v", resp.Checks.PostgreSQL)
			}
		})
	}
}

func TestHealthLive(t *testing.T) {
	rec := do(t, newTestRouter(&stubPolicy{}, &stubJournal{}), http.MethodGet, "/health/live", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"service":"auth-admin"`) {
		t.Errorf("неожиданный ответ: %d %s", rec.Code, rec.Body.String())
	}
}
