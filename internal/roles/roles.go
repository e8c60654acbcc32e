// Package roles defines the role hierarchy used for access control.
// Roles form a total order via Rank; "has role X" means rank >= rank(X).
package roles

// Role is the role string returned by the identity service
type Role string

const (
	Admin     Role = "ROLE_ADMIN"
	Executive Role = "ROLE_EXECUTIVE"
	Finance   Role = "ROLE_FINANCE"
	Student   Role = "ROLE_STUDENT"
)

// Rank returns the numeric rank of a role. Unknown roles rank 0, which is
// below every known role so they never pass a role check.
func Rank(r Role) int {
	switch r {
	case Admin:
		return 4
	case Executive, Finance:
		return 3
	case Student:
		return 1
	default:
		return 0
	}
}

// HasRequiredRole reports whether userRole satisfies requiredRole
func HasRequiredRole(userRole, requiredRole Role) bool {
	return Rank(userRole) >= Rank(requiredRole)
}

// IsAdmin reports whether the role is exactly ROLE_ADMIN
func IsAdmin(r Role) bool {
	return r == Admin
}

// IsFinanceOrAbove reports whether the role may access the admin area
func IsFinanceOrAbove(r Role) bool {
	return r == Admin || r == Executive || r == Finance
}

// Known reports whether the role is one the identity service hands out.
// The login callback refuses to mint a session for anything else.
func Known(r Role) bool {
	return Rank(r) > 0
}
