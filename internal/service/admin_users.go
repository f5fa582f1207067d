// Пакет service — бизнес-логика Auth Admin.
// admin_users.go — политика изменения пользователей Keycloak: защита роли admin
// и взаимоисключение admin с группой customers.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/bigkaa/authadmin/internal/domain/model"
	"github.com/bigkaa/authadmin/internal/domain/rbac"
	"github.com/bigkaa/authadmin/internal/keycloak"
)

// Имена операций журнала.
const (
	OpCreateUser       = "create_user"
	OpSetPassword      = "set_password"
	OpSetEnabled       = "set_enabled"
	OpAddRealmRoles    = "add_realm_roles"
	OpRemoveRealmRoles = "remove_realm_roles"
	OpLogout           = "logout"
	OpAddToGroup       = "add_to_group"
	OpRemoveFromGroup  = "remove_from_group"
	OpPromoteAdmin     = "promote_admin"
)

// Имена шагов многошаговых операций.
const (
	StepCreateUser           = "create_user"
	StepSetPassword          = "set_password"
	StepSetEnabled           = "set_enabled"
	StepLogout               = "logout"
	StepAddRealmRoles        = "add_realm_roles"
	StepRemoveRealmRoles     = "remove_realm_roles"
	StepAddToGroup           = "add_to_group"
	StepRemoveFromGroup      = "remove_from_group"
	StepAddAdminRole         = "add_admin_role"
	StepCheckCustomerRole    = "check_customer_role"
	StepRemoveCustomerRole   = "remove_customer_role"
	StepFindCustomersGroup   = "find_customers_group"
	StepCheckCustomersMember = "check_customers_membership"
	StepRemoveCustomersGroup = "remove_customers_group"
)

// IdentityClient — операции Keycloak Admin API, нужные политике.
// Реализуется *keycloak.Client.
type IdentityClient interface {
	CreateUser(ctx context.Context, username, email string, emailVerified, enabled bool) (string, error)
	SetPassword(ctx context.Context, userID, password string, temporary bool) error
	ListUsersRaw(ctx context.Context, q keycloak.UserQuery) (json.RawMessage, error)
	GetUser(ctx context.Context, userID string) (*keycloak.UserRecord, error)
	SetEnabled(ctx context.Context, userID string, enabled bool) error
	UserHasRealmRole(ctx context.Context, userID, role string) (bool, error)
	AddRealmRoles(ctx context.Context, userID string, names []string) error
	RemoveRealmRoles(ctx context.Context, userID string, names []string) error
	LogoutUser(ctx context.Context, userID string) error
	FindGroupByName(ctx context.Context, name string) (*keycloak.Group, error)
	UserInGroup(ctx context.Context, userID, groupID string) (bool, error)
	AddUserToGroup(ctx context.Context, userID, groupID string) error
	RemoveUserFromGroup(ctx context.Context, userID, groupID string) error
}

// AdminPolicyService — сервис управления пользователями с правилами защиты администраторов.
// Все проверки выполняются до первого изменяющего запроса к Keycloak.
// Многошаговые операции не транзакционны: при ошибке выполненные шаги
// не откатываются и фиксируются в журнале.
type AdminPolicyService struct {
	kc       IdentityClient
	journal  *Journal
	validate *validator.Validate
	logger   *slog.Logger
}

// NewAdminPolicyService создаёт сервис.
func NewAdminPolicyService(kc IdentityClient, journal *Journal, logger *slog.Logger) *AdminPolicyService {
	return &AdminPolicyService{
		kc:       kc,
		journal:  journal,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger.With(slog.String("component", "admin_policy_service")),
	}
}

// --- Пользователи ---

// CreateUser создаёт пользователя и устанавливает постоянный пароль.
// Если пароль установить не удалось, возвращается ID созданного пользователя
// вместе с *StepError: пользователь остаётся в Keycloak без пароля.
func (s *AdminPolicyService) CreateUser(ctx context.Context, in model.CreateUserInput) (string, error) {
	op := s.begin(ctx, OpCreateUser, "")

	if err := s.validate.Struct(in); err != nil {
		return "", op.reject(fmt.Errorf("%w: username, email и password обязательны (%s)",
			ErrValidation, strings.Join(formatValidationErrors(err), "; ")))
	}

	emailVerified := in.EmailVerified == nil || *in.EmailVerified
	enabled := in.Enabled == nil || *in.Enabled

	var id string
	err := op.step(StepCreateUser, func() error {
		var err error
		id, err = s.kc.CreateUser(ctx, in.Username, in.Email, emailVerified, enabled)
		return err
	})
	if err != nil {
		return "", op.done(err)
	}
	op.entry.UserID = id

	err = op.step(StepSetPassword, func() error {
		return s.kc.SetPassword(ctx, id, in.Password, false)
	})
	if err != nil {
		return id, op.done(err)
	}

	return id, op.done(nil)
}

// SetPassword устанавливает пароль пользователя. Роль пользователя не проверяется.
func (s *AdminPolicyService) SetPassword(ctx context.Context, userID string, in model.PasswordInput) error {
	op := s.begin(ctx, OpSetPassword, userID)

	if err := s.validate.Struct(in); err != nil {
		return op.reject(fmt.Errorf("%w: password обязателен", ErrValidation))
	}

	return op.done(op.step(StepSetPassword, func() error {
		return s.kc.SetPassword(ctx, userID, in.Password, in.Temporary)
	}))
}

// ListUsers возвращает список пользователей Keycloak без преобразования.
func (s *AdminPolicyService) ListUsers(ctx context.Context, q model.UserQuery) (json.RawMessage, error) {
	return s.kc.ListUsersRaw(ctx, keycloak.UserQuery{
		Search: q.Search,
		First:  q.First,
		Max:    q.Max,
	})
}

// GetUser возвращает пользователя с его realm-ролями.
func (s *AdminPolicyService) GetUser(ctx context.Context, userID string) (*model.User, error) {
	rec, err := s.kc.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &model.User{
		ID:            rec.ID,
		Username:      rec.Username,
		Email:         rec.Email,
		FirstName:     rec.FirstName,
		LastName:      rec.LastName,
		Enabled:       rec.Enabled,
		EmailVerified: rec.EmailVerified,
		RealmRoles:    rec.RealmRoles,
		Attributes:    rec.Attributes,
		CreatedAt:     rec.CreatedAtTime(),
	}, nil
}

// SetEnabled включает или отключает пользователя.
// Администратора включить или отключить нельзя. После отключения
// все сессии пользователя завершаются.
func (s *AdminPolicyService) SetEnabled(ctx context.Context, userID string, enabled *bool) error {
	op := s.begin(ctx, OpSetEnabled, userID)

	if enabled == nil {
		return op.reject(fmt.Errorf("%w: enabled обязателен", ErrValidation))
	}

	if err := s.guardNotAdmin(ctx, op, userID, "нельзя включить или отключить администратора"); err != nil {
		return err
	}

	err := op.step(StepSetEnabled, func() error {
		return s.kc.SetEnabled(ctx, userID, *enabled)
	})
	if err != nil {
		return op.done(err)
	}

	if !*enabled {
		err = op.step(StepLogout, func() error {
			return s.kc.LogoutUser(ctx, userID)
		})
	}

	return op.done(err)
}

// Logout завершает все сессии пользователя.
func (s *AdminPolicyService) Logout(ctx context.Context, userID string) error {
	op := s.begin(ctx, OpLogout, userID)

	return op.done(op.step(StepLogout, func() error {
		return s.kc.LogoutUser(ctx, userID)
	}))
}

// --- Realm-роли ---

// AddRealmRoles назначает пользователю realm-роли.
func (s *AdminPolicyService) AddRealmRoles(ctx context.Context, userID string, roles []string) error {
	return s.mutateRealmRoles(ctx, OpAddRealmRoles, StepAddRealmRoles, userID, roles, s.kc.AddRealmRoles)
}

// RemoveRealmRoles снимает с пользователя realm-роли.
func (s *AdminPolicyService) RemoveRealmRoles(ctx context.Context, userID string, roles []string) error {
	return s.mutateRealmRoles(ctx, OpRemoveRealmRoles, StepRemoveRealmRoles, userID, roles, s.kc.RemoveRealmRoles)
}

// mutateRealmRoles — общие проверки изменения ролей по порядку:
// набор не пуст, пользователь не администратор, набор не содержит admin.
func (s *AdminPolicyService) mutateRealmRoles(
	ctx context.Context,
	opName, stepName, userID string,
	roles []string,
	mutate func(ctx context.Context, userID string, names []string) error,
) error {
	op := s.begin(ctx, opName, userID)

	if len(roles) == 0 {
		return op.reject(fmt.Errorf("%w: roles обязательны", ErrValidation))
	}
	if err := s.guardNotAdmin(ctx, op, userID, "нельзя изменять роли администратора"); err != nil {
		return err
	}
	if rbac.IsAdmin(roles) {
		return op.reject(fmt.Errorf("%w: роль admin нельзя назначать или снимать через этот метод", ErrForbidden))
	}

	return op.done(op.step(stepName, func() error {
		return mutate(ctx, userID, roles)
	}))
}

// --- Группы ---

// AddToGroup добавляет пользователя в группу, если он ещё не в ней.
// Администратора нельзя добавить в группу customers.
func (s *AdminPolicyService) AddToGroup(ctx context.Context, userID, groupName string) error {
	op := s.begin(ctx, OpAddToGroup, userID)

	group, err := s.findGroup(ctx, op, groupName)
	if err != nil {
		return err
	}

	if rbac.SameName(groupName, rbac.GroupCustomers) {
		isAdmin, err := s.kc.UserHasRealmRole(ctx, userID, rbac.RoleAdmin)
		if err != nil {
			return op.done(err)
		}
		if isAdmin {
			return op.reject(fmt.Errorf("%w: администратор не может состоять в группе %s", ErrConflict, rbac.GroupCustomers))
		}
	}

	member, err := s.kc.UserInGroup(ctx, userID, group.ID)
	if err != nil {
		return op.done(err)
	}
	if member {
		return op.done(nil)
	}

	return op.done(op.step(StepAddToGroup, func() error {
		return s.kc.AddUserToGroup(ctx, userID, group.ID)
	}))
}

// RemoveFromGroup удаляет пользователя из группы, если он в ней состоит.
func (s *AdminPolicyService) RemoveFromGroup(ctx context.Context, userID, groupName string) error {
	op := s.begin(ctx, OpRemoveFromGroup, userID)

	group, err := s.findGroup(ctx, op, groupName)
	if err != nil {
		return err
	}

	member, err := s.kc.UserInGroup(ctx, userID, group.ID)
	if err != nil {
		return op.done(err)
	}
	if !member {
		return op.done(nil)
	}

	return op.done(op.step(StepRemoveFromGroup, func() error {
		return s.kc.RemoveUserFromGroup(ctx, userID, group.ID)
	}))
}

// --- Повышение до администратора ---

// PromoteToAdmin назначает роль admin, затем снимает роль Customer
// и исключает из группы customers, если они есть.
// Для действующего администратора возвращает ErrAlreadyAdmin без изменений.
func (s *AdminPolicyService) PromoteToAdmin(ctx context.Context, userID string) (*model.OperationReport, error) {
	op := s.begin(ctx, OpPromoteAdmin, userID)

	isAdmin, err := s.kc.UserHasRealmRole(ctx, userID, rbac.RoleAdmin)
	if err != nil {
		return nil, op.done(err)
	}
	if isAdmin {
		return nil, op.reject(ErrAlreadyAdmin)
	}

	err = op.step(StepAddAdminRole, func() error {
		return s.kc.AddRealmRoles(ctx, userID, []string{rbac.RoleAdmin})
	})
	if err != nil {
		return nil, op.done(err)
	}

	var hasCustomer bool
	err = op.check(StepCheckCustomerRole, func() error {
		var err error
		hasCustomer, err = s.kc.UserHasRealmRole(ctx, userID, rbac.RoleCustomer)
		return err
	})
	if err != nil {
		return nil, op.done(err)
	}
	if hasCustomer {
		err = op.step(StepRemoveCustomerRole, func() error {
			return s.kc.RemoveRealmRoles(ctx, userID, []string{rbac.RoleCustomer})
		})
		if err != nil {
			return nil, op.done(err)
		}
	}

	var group *keycloak.Group
	err = op.check(StepFindCustomersGroup, func() error {
		var err error
		group, err = s.kc.FindGroupByName(ctx, rbac.GroupCustomers)
		return err
	})
	if err != nil {
		return nil, op.done(err)
	}

	if group != nil {
		var member bool
		err = op.check(StepCheckCustomersMember, func() error {
			var err error
			member, err = s.kc.UserInGroup(ctx, userID, group.ID)
			return err
		})
		if err != nil {
			return nil, op.done(err)
		}
		if member {
			err = op.step(StepRemoveCustomersGroup, func() error {
				return s.kc.RemoveUserFromGroup(ctx, userID, group.ID)
			})
			if err != nil {
				return nil, op.done(err)
			}
		}
	}

	report := op.report()
	return report, op.done(nil)
}

// --- Проверки ---

// guardNotAdmin отклоняет операцию над администратором.
func (s *AdminPolicyService) guardNotAdmin(ctx context.Context, op *operation, userID, reason string) error {
	isAdmin, err := s.kc.UserHasRealmRole(ctx, userID, rbac.RoleAdmin)
	if err != nil {
		return op.done(err)
	}
	if isAdmin {
		return op.reject(fmt.Errorf("%w: %s", ErrForbidden, reason))
	}
	return nil
}

// findGroup ищет группу по имени; отсутствие группы отклоняет операцию.
func (s *AdminPolicyService) findGroup(ctx context.Context, op *operation, name string) (*keycloak.Group, error) {
	if strings.TrimSpace(name) == "" {
		return nil, op.reject(fmt.Errorf("%w: имя группы обязательно", ErrValidation))
	}

	group, err := s.kc.FindGroupByName(ctx, name)
	if err != nil {
		return nil, op.done(err)
	}
	if group == nil {
		return nil, op.reject(fmt.Errorf("%w: группа %q", ErrNotFound, name))
	}
	return group, nil
}

// formatValidationErrors преобразует ошибки validator в сообщения по полям.
func formatValidationErrors(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" не задан")
		default:
			msgs = append(msgs, fmt.Sprintf("%s не прошёл проверку %s", field, fe.Tag()))
		}
	}
	return msgs
}
