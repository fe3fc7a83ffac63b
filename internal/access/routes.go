package access

import (
	"strings"

	"notary-service/internal/domain/auth"
)

// Route binds a URL prefix to the roles allowed below it. Routes with a
// Label appear in the navigation of every role they admit.
type Route struct {
	Prefix string
	Roles  auth.RoleSet
	Label  string
	Public bool
}

var (
	adminOnly      = auth.Roles(auth.RoleAdministrator)
	supervisorOnly = auth.Roles(auth.RoleSupervisor)
	notaryOnly     = auth.Roles(auth.RoleNotary)
	anyRole        = auth.RoleSet(0)
)

// routes is the single source for both the guard middleware and navigation.
// More specific prefixes must come first.
var routes = []Route{
	{Prefix: "/login", Public: true},
	{Prefix: "/forgot-password", Public: true},
	{Prefix: "/reset-password", Public: true},
	{Prefix: "/static", Public: true},
	{Prefix: "/healthz", Public: true},

	{Prefix: "/metrics", Roles: adminOnly},
	{Prefix: "/admin/users", Roles: adminOnly, Label: "Users"},
	{Prefix: "/admin/licenses", Roles: adminOnly, Label: "Licenses"},
	{Prefix: "/admin/regions", Roles: adminOnly, Label: "Regions"},
	{Prefix: "/admin/contract-types", Roles: adminOnly, Label: "Contract types"},
	{Prefix: "/admin/announcements", Roles: adminOnly, Label: "Announcements"},
	{Prefix: "/admin/settings", Roles: adminOnly, Label: "Settings"},
	{Prefix: "/admin/access-log", Roles: adminOnly, Label: "Access log"},
	{Prefix: "/admin", Roles: adminOnly, Label: "Dashboard"},

	{Prefix: "/supervisor/notaries", Roles: supervisorOnly, Label: "Notaries"},
	{Prefix: "/supervisor/submissions", Roles: supervisorOnly, Label: "Submissions"},
	{Prefix: "/supervisor/performance", Roles: supervisorOnly, Label: "Performance"},
	{Prefix: "/supervisor", Roles: supervisorOnly, Label: "Dashboard"},

	{Prefix: "/notary/contracts", Roles: notaryOnly, Label: "Contracts"},
	{Prefix: "/notary/submissions", Roles: notaryOnly, Label: "Submissions"},
	{Prefix: "/notary", Roles: notaryOnly, Label: "Dashboard"},

	{Prefix: "/notifications", Roles: anyRole, Label: "Notifications"},
	{Prefix: "/profile", Roles: anyRole, Label: "Profile"},
	{Prefix: "/help", Roles: anyRole, Label: "Help"},
	{Prefix: "/dashboard", Roles: anyRole},
	{Prefix: "/logout", Roles: anyRole},
}

// Lookup finds the route governing path. Unknown paths resolve to a
// route that admits any authenticated principal.
func Lookup(path string) Route {
	for _, r := range routes {
		if matchPrefix(path, r.Prefix) {
			return r
		}
	}
	return Route{Prefix: path, Roles: anyRole}
}

// Routes returns a copy of the route table.
func Routes() []Route {
	out := make([]Route, len(routes))
	copy(out, routes)
	return out
}

// NavItem is a rendered navigation entry.
type NavItem struct {
	Label string
	Path  string
}

// Navigation lists the labelled routes role may reach, home page first.
func Navigation(role auth.Role) []NavItem {
	if !role.Valid() {
		return nil
	}
	home := Landing(role)
	items := []NavItem{}
	var rest []NavItem
	for _, r := range routes {
		if r.Public || r.Label == "" {
			continue
		}
		if !r.Roles.Empty() && !r.Roles.Contains(role) {
			continue
		}
		if r.Prefix == home {
			items = append(items, NavItem{Label: r.Label, Path: r.Prefix})
			continue
		}
		rest = append(rest, NavItem{Label: r.Label, Path: r.Prefix})
	}
	return append(items, rest...)
}

func matchPrefix(path, prefix string) bool {
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix) && (prefix == "/" || path[len(prefix)] == '/')
}
