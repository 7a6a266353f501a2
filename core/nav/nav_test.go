package nav

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trainingcmd/portal/core/events"
	"github.com/trainingcmd/portal/core/user"
)

func paths(routes []Route) []string {
	p := make([]string, 0, len(routes))
	for _, r := range routes {
		p = append(p, r.Path)
	}
	return p
}

func TestVisible(t *testing.T) {
	routes := []Route{
		{Path: "/a", Roles: []string{user.RoleStudent}},
		{Path: "/b", Roles: []string{user.RoleTeacher, user.RoleStudent}},
		{Path: "/c", Roles: []string{user.RoleTeacher}},
		{Path: "/d", Roles: nil},
	}

	tests := []struct {
		name string
		role string
		want []string
	}{
		{name: "guest", role: user.RoleGuest, want: []string{}},
		{name: "empty role is guest", role: "", want: []string{}},
		{name: "student", role: user.RoleStudent, want: []string{"/a", "/b"}},
		{name: "teacher (case-insensitive)", role: "TeAcHeR", want: []string{"/b", "/c"}},
		{name: "admin bypasses allow-list", role: "Admin", want: []string{"/a", "/b", "/c", "/d"}},
		{name: "unknown role", role: "janitor", want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, paths(Visible(tt.role, routes)))
		})
	}
}

func TestBuild(t *testing.T) {
	guest := Build("", DefaultRoutes)
	assert.True(t, guest.ShowLogin)
	assert.Empty(t, guest.Items)
	assert.Equal(t, user.RoleGuest, guest.Role)

	admin := Build(user.RoleAdmin, DefaultRoutes)
	assert.False(t, admin.ShowLogin)
	assert.Equal(t, paths(DefaultRoutes), paths(admin.Items))

	student := Build(user.RoleStudent, DefaultRoutes)
	assert.NotContains(t, paths(student.Items), "/admin/users")
	assert.Contains(t, paths(student.Items), "/schedule")
}

func TestGate_followsAuthChanges(t *testing.T) {
	bus := events.NewBus()
	g := NewGate(bus, "", DefaultRoutes)
	defer g.Close()

	if !g.Menu().ShowLogin {
		t.Fatal("guest menu should show login")
	}

	bus.PublishAuthChanged(events.AuthChanged{Reason: events.ReasonLogin, Role: user.RoleTeacher})
	menu := g.Menu()
	assert.False(t, menu.ShowLogin)
	assert.Contains(t, paths(menu.Items), "/evaluations")
	assert.NotContains(t, paths(menu.Items), "/admin/users")

	bus.PublishAuthChanged(events.AuthChanged{Reason: events.ReasonLogout, Role: user.RoleGuest})
	assert.True(t, g.Menu().ShowLogin)

	g.Close()
	bus.PublishAuthChanged(events.AuthChanged{Reason: events.ReasonLogin, Role: user.RoleAdmin})
	assert.True(t, g.Menu().ShowLogin, "closed gate must not follow the bus")
}

func TestMenuState(t *testing.T) {
	var m MenuState

	m.ToggleMenu()
	m.ToggleProfileMenu()
	if !m.MenuOpen() || !m.ProfileMenuOpen() {
		t.Fatal("toggles must be independent")
	}

	m.ClickOutsideProfile()
	assert.False(t, m.ProfileMenuOpen())
	assert.True(t, m.MenuOpen())

	m.ToggleProfileMenu()
	m.Navigate("/profile")
	assert.False(t, m.MenuOpen())
	assert.True(t, m.ProfileMenuOpen())
	assert.Equal(t, "/profile", m.Active())

	m.ToggleMenu()
	m.ToggleMenu()
	assert.False(t, m.MenuOpen())
}
