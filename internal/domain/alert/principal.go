package alert

import (
	"fmt"
	"strings"
)

// Role is the authorization class of a principal.
type Role string

// Known roles.
const (
	RoleUser   Role = "user"
	RolePolice Role = "police"
	RoleAdmin  Role = "admin"
)

// ParseRole converts a textual role into a Role.
func ParseRole(s string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(s)))
	switch role {
	case RoleUser, RolePolice, RoleAdmin:
		return role, nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidPayload, s)
	}
}

// Principal is an authenticated actor. It is supplied by the identity
// provider for every request or connection and is never stored.
type Principal struct {
	// ID is the subject identifier.
	ID string
	// Role decides which actions the principal may perform.
	Role Role
}

// IsResponder reports whether the principal may act on other people's alerts.
func (p Principal) IsResponder() bool {
	return p.Role == RolePolice || p.Role == RoleAdmin
}

// IsAdmin reports whether the principal has the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// String renders the principal for logs.
func (p Principal) String() string {
	return p.Role.String() + ":" + p.ID
}

// String returns the role name.
func (r Role) String() string {
	return string(r)
}
