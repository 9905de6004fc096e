package session

import (
	"context"
)

const (
	LoginRoute      = "/login"
	AdminLoginRoute = "/admin-login"
)

// Gate is a guard predicate over the manager's identity. A gate never
// decides on a still-loading state: Check blocks while a resolution is in
// flight and only then passes or names the route to redirect to.
type Gate struct {
	manager    *Manager
	adminOnly  bool
	redirectTo string
}

// AuthGate passes any signed-in principal.
func (m *Manager) AuthGate() Gate {
	return Gate{manager: m, redirectTo: LoginRoute}
}

// AdminGate passes only principals whose role is admin.
func (m *Manager) AdminGate() Gate {
	return Gate{manager: m, adminOnly: true, redirectTo: AdminLoginRoute}
}

// Check waits out any in-flight resolution, then returns whether the request
// may pass and, if not, where to send it.
func (g Gate) Check(ctx context.Context) (pass bool, redirect string, err error) {
	ident, err := g.manager.WaitSettled(ctx)
	if err != nil {
		return false, "", err
	}

	if g.adminOnly {
		if ident.IsAdmin() {
			return true, "", nil
		}
		return false, g.redirectTo, nil
	}
	if ident != nil {
		return true, "", nil
	}
	return false, g.redirectTo, nil
}
