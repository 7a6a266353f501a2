// Package nav derives the navigation menu from the role of the current user.
package nav

import (
	"sync"

	"github.com/trainingcmd/portal/core/events"
	"github.com/trainingcmd/portal/core/user"
)

// Route is a menu entry visible to Roles.
type Route struct {
	Path  string   `json:"path"`
	Label string   `json:"label"`
	Roles []string `json:"roles"`
}

// Allows reports whether role may see r. Roles are compared case-insensitively.
func (r Route) Allows(role string) bool {
	role = user.NormalizeRole(role)
	for _, allowed := range r.Roles {
		if user.NormalizeRole(allowed) == role {
			return true
		}
	}
	return false
}

// DefaultRoutes is the static route table of the portal, in menu order.
var DefaultRoutes = []Route{
	{Path: "/", Label: "Home", Roles: []string{user.RoleAdmin, user.RoleTeacher, user.RoleStudent}},
	{Path: "/news", Label: "News", Roles: []string{user.RoleAdmin, user.RoleTeacher, user.RoleStudent}},
	{Path: "/profile", Label: "Profile", Roles: []string{user.RoleAdmin, user.RoleTeacher, user.RoleStudent}},
	{Path: "/schedule", Label: "Teaching Schedule", Roles: []string{user.RoleTeacher, user.RoleStudent}},
	{Path: "/evaluations", Label: "Student Evaluations", Roles: []string{user.RoleTeacher}},
	{Path: "/admin/users", Label: "Personnel", Roles: []string{user.RoleAdmin}},
	{Path: "/admin/teaching-schedules", Label: "Manage Schedules", Roles: []string{user.RoleAdmin}},
	{Path: "/admin/student-evaluation-templates", Label: "Evaluation Templates", Roles: []string{user.RoleAdmin}},
}

// Visible returns the ordered subset of routes role may see.
// Admins see every route; guests see none.
func Visible(role string, routes []Route) []Route {
	role = user.NormalizeRole(role)
	visible := make([]Route, 0, len(routes))
	if role == user.RoleGuest {
		return visible
	}
	for _, r := range routes {
		if role == user.RoleAdmin || r.Allows(role) {
			visible = append(visible, r)
		}
	}
	return visible
}

// Menu is what the navigation bar shows.
type Menu struct {
	Role  string  `json:"role"`
	Items []Route `json:"items"`
	// ShowLogin replaces the menu with a login affordance.
	ShowLogin bool `json:"showLogin"`
}

func Build(role string, routes []Route) Menu {
	role = user.NormalizeRole(role)
	return Menu{
		Role:      role,
		Items:     Visible(role, routes),
		ShowLogin: role == user.RoleGuest,
	}
}

// Gate keeps the menu in sync with the authenticated identity.
type Gate struct {
	mu          sync.RWMutex
	routes      []Route
	menu        Menu
	unsubscribe func()
}

// NewGate builds the menu for role and rebuilds it on every AuthChanged event of bus.
func NewGate(bus *events.Bus, role string, routes []Route) *Gate {
	g := &Gate{routes: routes, menu: Build(role, routes)}
	if bus != nil {
		g.unsubscribe = bus.OnAuthChanged(func(evt events.AuthChanged) {
			g.SetRole(evt.Role)
		})
	}
	return g
}

func (g *Gate) SetRole(role string) {
	menu := Build(role, g.routes)
	g.mu.Lock()
	g.menu = menu
	g.mu.Unlock()
}

func (g *Gate) Menu() Menu {
	g.mu.RLock()
	defer g.mu.RUnlock()
	items := make([]Route, len(g.menu.Items))
	copy(items, g.menu.Items)
	return Menu{Role: g.menu.Role, Items: items, ShowLogin: g.menu.ShowLogin}
}

// Close detaches the gate from the bus.
func (g *Gate) Close() {
	if g.unsubscribe != nil {
		g.unsubscribe()
	}
}
