// Пакет rbac — имена защищённых ролей и групп realm и правила их сравнения.
// Имена ролей и групп сравниваются без учёта регистра: "ADMIN" и "admin"
// считаются одной ролью.
package rbac

import "strings"

// Защищённые realm-роли и группы.
const (
	// RoleAdmin выдаётся только через повышение до администратора
	// и никогда не снимается через общие эндпоинты.
	RoleAdmin = "admin"
	// RoleCustomer снимается при повышении до администратора.
	RoleCustomer = "Customer"
	// GroupCustomers несовместима с ролью admin.
	GroupCustomers = "customers"
)

// SameName сравнивает имена ролей или групп без учёта регистра.
func SameName(a, b string) bool {
	return strings.EqualFold(a, b)
}

// ContainsName проверяет, есть ли name в names (без учёта регистра).
func ContainsName(names []string, name string) bool {
	for _, n := range names {
		if SameName(n, name) {
			return true
		}
	}
	return false
}

// HasAnyRole проверяет пересечение ролей пользователя с разрешёнными ролями.
// Пустой список разрешённых ролей ничего не разрешает.
func HasAnyRole(userRoles, allowed []string) bool {
	for _, a := range allowed {
		if ContainsName(userRoles, a) {
			return true
		}
	}
	return false
}

// IsAdmin проверяет наличие роли admin в наборе ролей.
func IsAdmin(roles []string) bool {
	return ContainsName(roles, RoleAdmin)
}
