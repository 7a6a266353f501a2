package nav

import "sync"

// MenuState tracks the mobile menu disclosure and the profile dropdown.
// The two are independent: opening one never closes the other.
type MenuState struct {
	mu          sync.Mutex
	menuOpen    bool
	profileOpen bool
	active      string
}

func (m *MenuState) ToggleMenu() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.menuOpen = !m.menuOpen
}

func (m *MenuState) ToggleProfileMenu() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profileOpen = !m.profileOpen
}

// ClickOutsideProfile closes the profile dropdown.
func (m *MenuState) ClickOutsideProfile() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profileOpen = false
}

// Navigate records path as the active route and closes the mobile menu.
func (m *MenuState) Navigate(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = path
	m.menuOpen = false
}

func (m *MenuState) MenuOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.menuOpen
}

func (m *MenuState) ProfileMenuOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profileOpen
}

func (m *MenuState) Active() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}
