// Package access decides whether a principal may reach a page.
package access

import (
	"notary-service/internal/domain/auth"
)

const LoginPath = "/login"

// Decision is the outcome of Authorize. Redirect is set only on denial.
type Decision struct {
	Allowed  bool
	Redirect string
}

func Allow() Decision {
	return Decision{Allowed: true}
}

func Deny(redirect string) Decision {
	return Decision{Redirect: redirect}
}

// Landing returns the home page of role.
func Landing(role auth.Role) string {
	switch role {
	case auth.RoleAdministrator:
		return "/admin"
	case auth.RoleSupervisor:
		return "/supervisor"
	case auth.RoleNotary:
		return "/notary"
	}
	return LoginPath
}

// Authorize is pure: it depends only on its arguments. An empty required
// set admits any authenticated principal.
func Authorize(required auth.RoleSet, p *auth.Principal) Decision {
	if p == nil || !p.Role.Valid() {
		return Deny(LoginPath)
	}
	if !p.HasActiveLicense() {
		return Deny(LoginPath)
	}
	if !required.Empty() && !required.Contains(p.Role) {
		return Deny(Landing(p.Role))
	}
	return Allow()
}
