package service

// Role values carried by the authenticated identity context.
const (
	RoleAdmin     = "admin"
	RoleProfessor = "professor"
	RoleStudent   = "student"
)

// Actor is the already-authenticated identity performing an operation. The
// transport layer resolves it from the request; services re-check only
// business invariants (ownership, role) against it.
type Actor struct {
	ID       uint
	Role     string
	TenantID string
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
