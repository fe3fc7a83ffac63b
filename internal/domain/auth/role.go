package auth

import (
	"fmt"
	"strings"
)

// Role is the closed set of roles a user can hold. The zero value is not a
// valid role.
type Role uint8

const (
	RoleAdministrator Role = iota + 1
	RoleSupervisor
	RoleNotary
)

// Stored names in the roles table.
const (
	RoleNameAdministrator = "Administrator"
	RoleNameSupervisor    = "Head of Notary Office"
	RoleNameNotary        = "Notary"
)

// AllRoles lists every role in seeding order.
var AllRoles = []Role{RoleAdministrator, RoleSupervisor, RoleNotary}

// ParseRole maps a stored role name (or its short slug) to a Role.
func ParseRole(name string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "administrator", "admin":
		return RoleAdministrator, nil
	case "head of notary office", "supervisor":
		return RoleSupervisor, nil
	case "notary":
		return RoleNotary, nil
	}
	return 0, fmt.Errorf("unknown role %q", name)
}

// String returns the stored role name.
func (r Role) String() string {
	switch r {
	case RoleAdministrator:
		return RoleNameAdministrator
	case RoleSupervisor:
		return RoleNameSupervisor
	case RoleNotary:
		return RoleNameNotary
	}
	return "unknown"
}

// Slug is the short lowercase name used in URLs and templates.
func (r Role) Slug() string {
	switch r {
	case RoleAdministrator:
		return "admin"
	case RoleSupervisor:
		return "supervisor"
	case RoleNotary:
		return "notary"
	}
	return ""
}

func (r Role) Valid() bool {
	return r >= RoleAdministrator && r <= RoleNotary
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid role %d", r)
	}
	return []byte(r.Slug()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// RoleSet is a small bitset of roles.
type RoleSet uint8

// Roles builds a RoleSet.
func Roles(roles ...Role) RoleSet {
	var s RoleSet
	for _, r := range roles {
		if r.Valid() {
			s |= 1 << r
		}
	}
	return s
}

func (s RoleSet) Contains(r Role) bool {
	return r.Valid() && s&(1<<r) != 0
}

func (s RoleSet) Empty() bool {
	return s == 0
}
