package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Role определяет роль аутентифицированного пользователя
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleSupervisor Role = "SUPERVISOR"
	RoleEmployee   Role = "EMPLOYEE"
	RoleAuditor    Role = "AUDITOR"
)

// IsValid проверяет, что роль входит в закрытый набор
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleSuperAdmin, RoleSupervisor, RoleEmployee, RoleAuditor:
		return true
	default:
		return false
	}
}

// Principal представляет аутентифицированного пользователя на время запроса
type Principal struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// PermissionLevel определяет уровень доступа к ресурсу.
// Уровни упорядочены: NONE < VIEW < EDIT < MANAGE.
type PermissionLevel int

const (
	PermissionNone PermissionLevel = iota
	PermissionView
	PermissionEdit
	PermissionManage
)

func (p PermissionLevel) String() string {
	switch p {
	case PermissionView:
		return "view"
	case PermissionEdit:
		return "edit"
	case PermissionManage:
		return "manage"
	default:
		return "none"
	}
}

// ParsePermissionLevel разбирает строковое представление уровня доступа
func ParsePermissionLevel(s string) (PermissionLevel, bool) {
	switch s {
	case "view":
		return PermissionView, true
	case "edit":
		return PermissionEdit, true
	case "manage":
		return PermissionManage, true
	case "none":
		return PermissionNone, true
	default:
		return PermissionNone, false
	}
}

// MarshalJSON выдает уровень строкой, а не внутренним числом
func (p PermissionLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *PermissionLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	level, ok := ParsePermissionLevel(s)
	if !ok {
		return fmt.Errorf("unknown permission level: %q", s)
	}
	*p = level
	return nil
}

// Value сериализует уровень для записи в БД
func (p PermissionLevel) Value() (driver.Value, error) {
	return p.String(), nil
}

// Scan читает уровень из строкового столбца БД
func (p *PermissionLevel) Scan(src interface{}) error {
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("cannot scan permission level from %T", src)
	}

	level, ok := ParsePermissionLevel(s)
	if !ok {
		return fmt.Errorf("unknown permission level: %q", s)
	}
	*p = level
	return nil
}

// AtLeast проверяет, что уровень не ниже требуемого
func (p PermissionLevel) AtLeast(required PermissionLevel) bool {
	return p >= required
}

// MaxPermission возвращает максимальный из двух уровней
func MaxPermission(a, b PermissionLevel) PermissionLevel {
	if a > b {
		return a
	}
	return b
}
