package domain

import (
	"fmt"
	"strings"
)

// UserType is the kind of member a record describes. The zero value means
// that no type has been selected.
type UserType int

const (
	UserTypeDocente UserType = iota + 1
	UserTypeEstudante
	UserTypeTecnicoAdministrativo
)

// Permission is the access level granted to a record. The zero value means
// that no permission has been selected.
type Permission int

const (
	PermissionAdministrador Permission = iota + 1
	PermissionCoordenadorPesquisa
)

// Option is a selectable enum value as shown in a form.
type Option struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

// Display order is the slice order; the stored value never depends on it.
var userTypeOptions = []Option{
	{Code: "docente", Label: "Docente"},
	{Code: "estudante", Label: "Estudante"},
	{Code: "tecnico_administrativo", Label: "Técnico Administrativo"},
}

var permissionOptions = []Option{
	{Code: "administrador", Label: "Administrador"},
	{Code: "coordenador_pesquisa", Label: "Coordenador de Pesquisa"},
}

// UserTypeOptions returns the user types in display order.
func UserTypeOptions() []Option {
	return append([]Option(nil), userTypeOptions...)
}

// PermissionOptions returns the permission levels in display order.
func PermissionOptions() []Option {
	return append([]Option(nil), permissionOptions...)
}

func (t UserType) Valid() bool { return t > 0 && int(t) <= len(userTypeOptions) }

func (t UserType) Code() string {
	if !t.Valid() {
		return ""
	}
	return userTypeOptions[t-1].Code
}

// String returns the Portuguese display label.
func (t UserType) String() string {
	if !t.Valid() {
		return ""
	}
	return userTypeOptions[t-1].Label
}

func (t UserType) MarshalText() ([]byte, error) {
	return []byte(t.Code()), nil
}

func (t *UserType) UnmarshalText(b []byte) error {
	parsed, err := ParseUserType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseUserType accepts either a code or a display label. An empty string
// yields the zero value without error.
func ParseUserType(s string) (UserType, error) {
	i, ok := lookupOption(userTypeOptions, s)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownUserType, s)
	}
	return UserType(i), nil
}

// UserTypeAt maps a display index to its user type.
func UserTypeAt(index int) (UserType, bool) {
	if index < 0 || index >= len(userTypeOptions) {
		return 0, false
	}
	return UserType(index + 1), true
}

func (p Permission) Valid() bool { return p > 0 && int(p) <= len(permissionOptions) }

func (p Permission) Code() string {
	if !p.Valid() {
		return ""
	}
	return permissionOptions[p-1].Code
}

// String returns the Portuguese display label.
func (p Permission) String() string {
	if !p.Valid() {
		return ""
	}
	return permissionOptions[p-1].Label
}

func (p Permission) MarshalText() ([]byte, error) {
	return []byte(p.Code()), nil
}

func (p *Permission) UnmarshalText(b []byte) error {
	parsed, err := ParsePermission(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParsePermission accepts either a code or a display label. An empty string
// yields the zero value without error.
func ParsePermission(s string) (Permission, error) {
	i, ok := lookupOption(permissionOptions, s)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownPermission, s)
	}
	return Permission(i), nil
}

// PermissionAt maps a display index to its permission level.
func PermissionAt(index int) (Permission, bool) {
	if index < 0 || index >= len(permissionOptions) {
		return 0, false
	}
	return Permission(index + 1), true
}

// lookupOption returns the 1-based position of s among opts, 0 for an empty s.
func lookupOption(opts []Option, s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}
	for i, o := range opts {
		if strings.EqualFold(o.Code, s) || o.Label == s {
			return i + 1, true
		}
	}
	return 0, false
}
