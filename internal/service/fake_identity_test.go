package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/bigkaa/authadmin/internal/domain/model"
	"github.com/bigkaa/authadmin/internal/domain/rbac"
	"github.com/bigkaa/authadmin/internal/keycloak"
	"github.com/bigkaa/authadmin/internal/repository"
)

// call — вызов IdentityClient, записанный fakeIdentity.
type call struct {
	Method string
	Args   string
}

func (c call) String() string { return c.Method + "(" + c.Args + ")" }

// mutatingMethods — методы, изменяющие состояние Keycloak.
var mutatingMethods = map[string]bool{
	"CreateUser":          true,
	"SetPassword":         true,
	"SetEnabled":          true,
	"AddRealmRoles":       true,
	"RemoveRealmRoles":    true,
	"LogoutUser":          true,
	"AddUserToGroup":      true,
	"RemoveUserFromGroup": true,
}

// fakeIdentity — in-memory Keycloak для тестов политики.
// Изменения ролей и групп отражаются в последующих чтениях.
type fakeIdentity struct {
	mu sync.Mutex

	createdID string
	roles     map[string][]string        // userID → realm-роли
	groups    map[string]*keycloak.Group // имя группы (lower) → группа
	members   map[string]map[string]bool // userID → groupID → member
	users     map[string]*keycloak.UserRecord
	listBody  json.RawMessage
	failOn    map[string]error // метод → ошибка

	calls []call
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{
		roles:   map[string][]string{},
		groups:  map[string]*keycloak.Group{},
		members: map[string]map[string]bool{},
		users:   map[string]*keycloak.UserRecord{},
		failOn:  map[string]error{},
	}
}

func (f *fakeIdentity) withRoles(userID string, roles ...string) *fakeIdentity {
	f.roles[userID] = roles
	return f
}

func (f *fakeIdentity) withGroup(id, name string) *fakeIdentity {
	f.groups[strings.ToLower(name)] = &keycloak.Group{ID: id, Name: name, Path: "/" + name}
	return f
}

func (f *fakeIdentity) withMember(userID, groupID string) *fakeIdentity {
	if f.members[userID] == nil {
		f.members[userID] = map[string]bool{}
	}
	f.members[userID][groupID] = true
	return f
}

func (f *fakeIdentity) fail(method string, err error) *fakeIdentity {
	f.failOn[method] = err
	return f
}

// record сохраняет вызов и возвращает ошибку, заданную для метода.
func (f *fakeIdentity) record(method string, args ...any) error {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		parts = append(parts, fmt.Sprint(a))
	}
	f.calls = append(f.calls, call{Method: method, Args: strings.Join(parts, ", ")})
	return f.failOn[method]
}

func (f *fakeIdentity) allCalls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

func (f *fakeIdentity) mutations() []call {
	var out []call
	for _, c := range f.allCalls() {
		if mutatingMethods[c.Method] {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeIdentity) countCalls(method string) int {
	n := 0
	for _, c := range f.allCalls() {
		if c.Method == method {
			n++
		}
	}
	return n
}

func (f *fakeIdentity) CreateUser(_ context.Context, username, email string, emailVerified, enabled bool) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateUser", username, email, emailVerified, enabled); err != nil {
		return "", err
	}
	return f.createdID, nil
}

func (f *fakeIdentity) SetPassword(_ context.Context, userID, password string, temporary bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record("SetPassword", userID, password, temporary)
}

func (f *fakeIdentity) ListUsersRaw(_ context.Context, q keycloak.UserQuery) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListUsersRaw", q.Search); err != nil {
		return nil, err
	}
	return f.listBody, nil
}

func (f *fakeIdentity) GetUser(_ context.Context, userID string) (*keycloak.UserRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("GetUser", userID); err != nil {
		return nil, err
	}
	u, ok := f.users[userID]
	if !ok {
		return nil, &keycloak.APIError{Op: "GetUser", StatusCode: 404}
	}
	cp := *u
	cp.RealmRoles = slices.Clone(f.roles[userID])
	return &cp, nil
}

func (f *fakeIdentity) SetEnabled(_ context.Context, userID string, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record("SetEnabled", userID, enabled)
}

func (f *fakeIdentity) UserHasRealmRole(_ context.Context, userID, role string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("UserHasRealmRole", userID, role); err != nil {
		return false, err
	}
	return rbac.ContainsName(f.roles[userID], role), nil
}

func (f *fakeIdentity) AddRealmRoles(_ context.Context, userID string, names []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("AddRealmRoles", userID, names); err != nil {
		return err
	}
	f.roles[userID] = append(f.roles[userID], names...)
	return nil
}

func (f *fakeIdentity) RemoveRealmRoles(_ context.Context, userID string, names []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("RemoveRealmRoles", userID, names); err != nil {
		return err
	}
	f.roles[userID] = slices.DeleteFunc(f.roles[userID], func(r string) bool {
		return rbac.ContainsName(names, r)
	})
	return nil
}

func (f *fakeIdentity) LogoutUser(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record("LogoutUser", userID)
}

func (f *fakeIdentity) FindGroupByName(_ context.Context, name string) (*keycloak.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("FindGroupByName", name); err != nil {
		return nil, err
	}
	return f.groups[strings.ToLower(name)], nil
}

func (f *fakeIdentity) UserInGroup(_ context.Context, userID, groupID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("UserInGroup", userID, groupID); err != nil {
		return false, err
	}
	return f.members[userID][groupID], nil
}

func (f *fakeIdentity) AddUserToGroup(_ context.Context, userID, groupID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("AddUserToGroup", userID, groupID); err != nil {
		return err
	}
	if f.members[userID] == nil {
		f.members[userID] = map[string]bool{}
	}
	f.members[userID][groupID] = true
	return nil
}

func (f *fakeIdentity) RemoveUserFromGroup(_ context.Context, userID, groupID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("RemoveUserFromGroup", userID, groupID); err != nil {
		return err
	}
	delete(f.members[userID], groupID)
	return nil
}

// fakeOperationLog — in-memory repository.OperationLogRepository.
type fakeOperationLog struct {
	mu      sync.Mutex
	entries []*model.OperationLogEntry
}

func (r *fakeOperationLog) Insert(_ context.Context, e *model.OperationLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *e
	cp.CompletedSteps = slices.Clone(e.CompletedSteps)
	r.entries = append(r.entries, &cp)
	return nil
}

func (r *fakeOperationLog) GetByID(_ context.Context, id string) (*model.OperationLogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, fmt.Errorf("запись %s: %w", id, repository.ErrNotFound)
}

func (r *fakeOperationLog) List(_ context.Context, f model.OperationFilter) ([]*model.OperationLogEntry, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.OperationLogEntry
	for _, e := range r.entries {
		if f.UserID == "" || e.UserID == f.UserID {
			out = append(out, e)
		}
	}
	return out, len(out), nil
}

func (r *fakeOperationLog) last() *model.OperationLogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == 0 {
		return nil
	}
	return r.entries[len(r.entries)-1]
}

// testLogger создаёт logger для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestService создаёт сервис с fake Keycloak и in-memory журналом.
func newTestService(kc *fakeIdentity) (*AdminPolicyService, *fakeOperationLog) {
	repo := &fakeOperationLog{}
	return NewAdminPolicyService(kc, NewJournal(repo, testLogger()), testLogger()), repo
}
