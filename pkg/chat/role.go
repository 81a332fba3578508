package chat

import "fmt"

// Role identifies one fixed participant in the conversation.
type Role string

const (
	// RoleAdmin is the human proxy that opens the chat and checks results.
	RoleAdmin Role = "Admin"

	// RolePlanner proposes the plan and routes work to the other roles.
	RolePlanner Role = "Planner"

	// RoleEngineer writes the code.
	RoleEngineer Role = "Engineer"

	// RoleReviewer checks the code and approves or rejects it.
	RoleReviewer Role = "Reviewer"

	// RoleExecutor runs the code and reports the exit code.
	RoleExecutor Role = "Executor"
)

// Roles returns the fixed participant set in a stable order.
func Roles() []Role {
	return []Role{RoleAdmin, RolePlanner, RoleEngineer, RoleReviewer, RoleExecutor}
}

// Valid reports whether r is one of the five fixed roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RolePlanner, RoleEngineer, RoleReviewer, RoleExecutor:
		return true
	}
	return false
}

// ParseRole validates a role name.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}
