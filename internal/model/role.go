package model

import "strings"

// Role описывает закрытый набор ролей авторизации.
type Role int

const (
	RoleUser Role = iota + 1
	RoleAdmin
)

const (
	roleUserName  = "ROLE_USER"
	roleAdminName = "ROLE_ADMIN"
)

// String возвращает имя роли в том виде, в котором она хранится в БД.
func (r Role) String() string {
	switch r {
	case RoleUser:
		return roleUserName
	case RoleAdmin:
		return roleAdminName
	default:
		return "ROLE_UNKNOWN"
	}
}

// ParseRole преобразует имя роли из хранилища в Role.
func ParseRole(name string) (Role, bool) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case roleUserName:
		return RoleUser, true
	case roleAdminName:
		return RoleAdmin, true
	default:
		return 0, false
	}
}

// MarshalText кодирует роль её именем.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}
